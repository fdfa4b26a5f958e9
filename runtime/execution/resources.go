package execution

import (
	"fmt"
	"math"
)

// Resources describes an amount of host capacity. Depending on the context it
// is a request, a limit or a current allocation.
type Resources struct {
	CPU       float64 `json:"cpu" yaml:"cpu" mapstructure:"cpu"`
	RAM       float64 `json:"ram" yaml:"ram" mapstructure:"ram"`
	Bandwidth float64 `json:"bandwidth,omitempty" yaml:"bandwidth,omitempty" mapstructure:"bandwidth"`
}

// Validate returns an error when any dimension is negative or not a number.
func (r Resources) Validate() error {
	for name, v := range map[string]float64{"cpu": r.CPU, "ram": r.RAM, "bandwidth": r.Bandwidth} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("invalid %s amount: %v", name, v)
		}
	}
	return nil
}

// Add returns r + o.
func (r Resources) Add(o Resources) Resources {
	return Resources{CPU: r.CPU + o.CPU, RAM: r.RAM + o.RAM, Bandwidth: r.Bandwidth + o.Bandwidth}
}

// Sub returns r - o, floored at zero per dimension.
func (r Resources) Sub(o Resources) Resources {
	return Resources{
		CPU:       math.Max(0, r.CPU-o.CPU),
		RAM:       math.Max(0, r.RAM-o.RAM),
		Bandwidth: math.Max(0, r.Bandwidth-o.Bandwidth),
	}
}

// Fits reports whether r fits into capacity on every dimension. A zero
// bandwidth capacity means bandwidth is not accounted.
func (r Resources) Fits(capacity Resources) bool {
	if r.CPU > capacity.CPU || r.RAM > capacity.RAM {
		return false
	}
	if capacity.Bandwidth > 0 && r.Bandwidth > capacity.Bandwidth {
		return false
	}
	return true
}

// IsZero returns true when no dimension is set.
func (r Resources) IsZero() bool {
	return r.CPU == 0 && r.RAM == 0 && r.Bandwidth == 0
}

func (r Resources) String() string {
	return fmt.Sprintf("cpu=%g ram=%g bw=%g", r.CPU, r.RAM, r.Bandwidth)
}

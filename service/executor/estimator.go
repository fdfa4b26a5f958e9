package executor

import (
	"math"
	"time"

	"github.com/viant/procflux/runtime/execution"
)

// Estimator computes simulated run time from a process type and its CPU
// allocation: max(base/cpu, MinUnits) units, or base*UnresourcedFactor when no
// CPU is allocated.
type Estimator struct {
	Base              map[execution.Type]float64 `json:"base,omitempty" yaml:"base,omitempty" mapstructure:"base"`
	DefaultBase       float64                    `json:"defaultBase" yaml:"defaultBase" mapstructure:"defaultBase"`
	UnresourcedFactor float64                    `json:"unresourcedFactor" yaml:"unresourcedFactor" mapstructure:"unresourcedFactor"`
	MinUnits          float64                    `json:"minUnits" yaml:"minUnits" mapstructure:"minUnits"`
	Unit              time.Duration              `json:"unit" yaml:"unit" mapstructure:"unit"`
}

// DefaultEstimator returns base durations in seconds for built-in types.
func DefaultEstimator() *Estimator {
	return &Estimator{
		Base: map[execution.Type]float64{
			execution.TypeFileDownload: 30,
			execution.TypeFileUpload:   45,
			execution.TypeBruteforce:   120,
			execution.TypeHack:         300,
			execution.TypeVirusScan:    90,
			execution.TypeVirusInstall: 150,
			execution.TypeVirusCollect: 90,
			execution.TypeLogClean:     60,
			execution.TypeLogForge:     75,
			execution.TypeResearch:     600,
			execution.TypeDDoS:         240,
			execution.TypeBankHack:     300,
			execution.TypeWireTransfer: 45,
		},
		DefaultBase:       180,
		UnresourcedFactor: 2.0,
		MinUnits:          10,
		Unit:              time.Second,
	}
}

// BaseOf returns the base units of a process type.
func (e *Estimator) BaseOf(processType execution.Type) float64 {
	if base, ok := e.Base[processType]; ok {
		return base
	}
	return e.DefaultBase
}

// Estimate returns the simulated run time.
func (e *Estimator) Estimate(processType execution.Type, resources execution.Resources) time.Duration {
	units := e.BaseOf(processType) * e.UnresourcedFactor
	if resources.CPU > 0 {
		units = e.BaseOf(processType) / resources.CPU
	}
	units = math.Max(units, e.MinUnits)
	unit := e.Unit
	if unit <= 0 {
		unit = time.Second
	}
	return time.Duration(units * float64(unit))
}

// Merge fills unset fields from defaults and returns e.
func (e *Estimator) Merge(defaults *Estimator) *Estimator {
	if defaults == nil {
		return e
	}
	if e.Base == nil {
		e.Base = map[execution.Type]float64{}
	}
	for k, v := range defaults.Base {
		if _, ok := e.Base[k]; !ok {
			e.Base[k] = v
		}
	}
	if e.DefaultBase == 0 {
		e.DefaultBase = defaults.DefaultBase
	}
	if e.UnresourcedFactor == 0 {
		e.UnresourcedFactor = defaults.UnresourcedFactor
	}
	if e.MinUnits == 0 {
		e.MinUnits = defaults.MinUnits
	}
	if e.Unit == 0 {
		e.Unit = defaults.Unit
	}
	return e
}

package executor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/procflux/runtime/execution"
)

func TestEstimator_Estimate(t *testing.T) {
	estimator := DefaultEstimator()
	testCases := []struct {
		description string
		processType execution.Type
		resources   execution.Resources
		expected    time.Duration
	}{
		{description: "download on one cpu", processType: execution.TypeFileDownload, resources: execution.Resources{CPU: 1}, expected: 30 * time.Second},
		{description: "download on two cpus", processType: execution.TypeFileDownload, resources: execution.Resources{CPU: 2}, expected: 15 * time.Second},
		{description: "download without cpu", processType: execution.TypeFileDownload, expected: 60 * time.Second},
		{description: "minimum floor", processType: execution.TypeFileDownload, resources: execution.Resources{CPU: 100}, expected: 10 * time.Second},
		{description: "hack on half a cpu", processType: execution.TypeHack, resources: execution.Resources{CPU: 0.5}, expected: 600 * time.Second},
		{description: "unknown type uses default", processType: execution.Type("mining"), resources: execution.Resources{CPU: 1}, expected: 180 * time.Second},
		{description: "virus scan", processType: execution.TypeVirusScan, resources: execution.Resources{CPU: 3}, expected: 30 * time.Second},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			assert.Equal(t, tc.expected, estimator.Estimate(tc.processType, tc.resources))
		})
	}
}

func TestEstimator_Monotonic(t *testing.T) {
	estimator := DefaultEstimator()
	for _, processType := range execution.Types() {
		previous := estimator.Estimate(processType, execution.Resources{CPU: 0.25})
		for cpu := 0.5; cpu <= 64; cpu *= 2 {
			current := estimator.Estimate(processType, execution.Resources{CPU: cpu})
			assert.LessOrEqual(t, current, previous, "type %s cpu %v", processType, cpu)
			assert.GreaterOrEqual(t, current, 10*time.Second)
			previous = current
		}
	}
}

func TestEstimator_Merge(t *testing.T) {
	custom := &Estimator{Base: map[execution.Type]float64{execution.TypeHack: 5}, Unit: time.Millisecond}
	custom.Merge(DefaultEstimator())
	assert.Equal(t, 5.0, custom.BaseOf(execution.TypeHack))
	assert.Equal(t, 30.0, custom.BaseOf(execution.TypeFileDownload))
	assert.Equal(t, 180.0, custom.DefaultBase)
	assert.Equal(t, 10*time.Millisecond, custom.Estimate(execution.TypeHack, execution.Resources{CPU: 1}))
}

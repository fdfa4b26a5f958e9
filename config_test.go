package procflux

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/procflux/runtime/execution"
)

func TestLoadConfig(t *testing.T) {
	var testCases = []struct {
		description string
		data        string
		expectErr   bool
		check       func(t *testing.T, c *Config)
	}{
		{
			description: "defaults",
			data:        ``,
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 4, c.Processor.Workers)
				assert.Equal(t, ":8080", c.HTTP.Addr)
				assert.Equal(t, 30.0, c.Estimator.BaseOf(execution.TypeFileDownload))
			},
		},
		{
			description: "overrides",
			data: `
processor:
  workers: 8
  priorityAware: true
  defaultResources:
    cpu: 2
    ram: 256
estimator:
  base:
    hack: 400
  unit: 500ms
policy:
  mode: enforce
  block: [bank_hack]
capacity:
  hosts:
    h1:
      cpu: 100
      ram: 4096
store:
  url: mem://localhost/procflux/config
logging:
  format: json
  level: debug
`,
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 8, c.Processor.Workers)
				assert.True(t, c.Processor.PriorityAware)
				assert.Equal(t, execution.Resources{CPU: 2, RAM: 256}, c.Processor.DefaultResources)
				assert.Equal(t, 400.0, c.Estimator.BaseOf(execution.TypeHack))
				assert.Equal(t, 30.0, c.Estimator.BaseOf(execution.TypeFileDownload))
				assert.Equal(t, 500*time.Millisecond, c.Estimator.Unit)
				require.NotNil(t, c.Policy)
				assert.Equal(t, "enforce", c.Policy.Mode)
				assert.Equal(t, []string{"bank_hack"}, c.Policy.BlockList)
				assert.Equal(t, execution.Resources{CPU: 100, RAM: 4096}, c.Capacity.Hosts["h1"])
				assert.Equal(t, "mem://localhost/procflux/config", c.Store.URL)
				assert.Equal(t, "json", c.Logging.Format)
			},
		},
		{
			description: "unknown policy mode",
			data:        "policy:\n  mode: strict\n",
			expectErr:   true,
		},
		{
			description: "negative capacity",
			data:        "capacity:\n  hosts:\n    h1:\n      cpu: -1\n",
			expectErr:   true,
		},
		{
			description: "no workers",
			data:        "processor:\n  workers: 0\n",
			expectErr:   true,
		},
		{
			description: "malformed",
			data:        "processor: [",
			expectErr:   true,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			config, err := LoadConfig([]byte(testCase.data))
			if testCase.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			testCase.check(t, config)
		})
	}
}

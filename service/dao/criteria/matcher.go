package criteria

import (
	"github.com/viant/procflux/runtime/execution"
	"github.com/viant/procflux/service/dao"
)

// FilterByState returns true when state matches every State parameter.
func FilterByState(state string, parameters []*dao.Parameter) bool {
	return filterBy(dao.ParameterState, []string{state}, parameters)
}

// Match returns true when the process satisfies every parameter; unknown
// parameter names are ignored.
func Match(p *execution.Process, parameters []*dao.Parameter) bool {
	return filterBy(dao.ParameterState, []string{string(p.State)}, parameters) &&
		filterBy(dao.ParameterType, []string{string(p.Type)}, parameters) &&
		filterBy(dao.ParameterServer, p.Servers(), parameters)
}

func filterBy(name string, candidates []string, parameters []*dao.Parameter) bool {
	for _, parameter := range parameters {
		if parameter == nil || parameter.Name != name {
			continue
		}
		if !matches(candidates, parameter.Value) {
			return false
		}
	}
	return true
}

func matches(candidates []string, value interface{}) bool {
	switch actual := value.(type) {
	case string:
		return contains(candidates, actual)
	case []string:
		for _, v := range actual {
			if contains(candidates, v) {
				return true
			}
		}
		return false
	}
	return true
}

func contains(candidates []string, v string) bool {
	for _, candidate := range candidates {
		if candidate == v {
			return true
		}
	}
	return false
}

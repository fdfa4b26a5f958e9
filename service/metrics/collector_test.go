package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/procflux/runtime/execution"
	"github.com/viant/procflux/service/event"
)

func TestCollector_Observe(t *testing.T) {
	c := NewCollector()
	p := execution.NewProcess("p1", "gw", "o", "", execution.TypeHack, time.Now())

	c.Observe(event.NewStateChange(event.TypeCreated, &event.StateChange{ProcessID: "p1", To: execution.StateWaiting, Process: p}))
	c.Observe(event.NewStateChange(event.TypeStarted, &event.StateChange{ProcessID: "p1", From: execution.StateWaiting, To: execution.StateRunning, Process: p}))
	c.Observe(event.NewStateChange(event.TypeCompleted, &event.StateChange{ProcessID: "p1", From: execution.StateRunning, To: execution.StateCompleted, Duration: 45 * time.Second, Process: p}))
	c.Observe(nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.transitions.WithLabelValues("hack", event.TypeStarted)))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.processes.WithLabelValues("waiting")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.processes.WithLabelValues("running")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.processes.WithLabelValues("completed")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.completion))

	c.Observe(event.NewStateChange(event.TypeDeleted, &event.StateChange{ProcessID: "p1", From: execution.StateCompleted}))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.processes.WithLabelValues("completed")))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	p := execution.NewProcess("p1", "gw", "o", "", execution.TypeVirusScan, time.Now())
	c.Observe(event.NewStateChange(event.TypeCreated, &event.StateChange{ProcessID: "p1", To: execution.StateWaiting, Process: p}))

	recorder := httptest.NewRecorder()
	c.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, recorder.Code)
	body := recorder.Body.String()
	assert.True(t, strings.Contains(body, `procflux_transitions_total{event="created",type="virus_scan"} 1`))
	assert.Contains(t, body, `procflux_processes{state="waiting"} 1`)
}

package procflux_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/procflux"
	"github.com/viant/procflux/internal/clock"
	"github.com/viant/procflux/internal/logging"
	"github.com/viant/procflux/runtime/execution"
	"github.com/viant/procflux/service/dao"
	"github.com/viant/procflux/service/processor"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestService(t *testing.T) {
	ctx := context.Background()
	manual := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	srv, err := procflux.New(
		procflux.WithClock(manual),
		procflux.WithLogger(logging.Discard()),
		procflux.WithStoreURL("mem://localhost/procflux/service-test"),
		procflux.WithCompletionHandler(execution.TypeBankHack, func(ctx context.Context, p *execution.Process) error {
			return errors.New("transfer traced")
		}),
	)
	require.NoError(t, err)
	runtime := srv.Runtime()
	require.NoError(t, runtime.Start(ctx))

	manager := runtime.Processor()
	for _, request := range []*processor.CreateRequest{
		{ID: "download", GatewayID: "H1", TargetID: "H2", Type: execution.TypeFileDownload},
		{ID: "heist", GatewayID: "H1", Type: execution.TypeBankHack},
		{ID: "scan", GatewayID: "H2", Type: execution.TypeVirusScan},
	} {
		_, err = manager.Create(ctx, request)
		require.NoError(t, err)
	}
	for _, id := range []string{"download", "heist"} {
		_, err = manager.Start(ctx, id)
		require.NoError(t, err)
	}
	manual.Advance(time.Hour)
	_, err = manager.Delete(ctx, "scan")
	require.NoError(t, err)

	p, err := runtime.Process(ctx, "heist")
	require.NoError(t, err)
	assert.Equal(t, execution.StateFailed, p.State)
	assert.Equal(t, "transfer traced", p.FailureReason)

	processes, err := runtime.Processes(ctx, dao.NewParameter(dao.ParameterServer, "H2"))
	require.NoError(t, err)
	require.Len(t, processes, 1)
	assert.Equal(t, "download", processes[0].ID)

	w := httptest.NewRecorder()
	runtime.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/processes/download", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, runtime.Shutdown(ctx))

	stored, err := runtime.StoredProcesses(ctx)
	require.NoError(t, err)
	states := map[string]execution.State{}
	for _, item := range stored {
		states[item.ID] = item.State
	}
	assert.Equal(t, map[string]execution.State{
		"download": execution.StateCompleted,
		"heist":    execution.StateFailed,
	}, states)
}

func TestNew_InvalidConfig(t *testing.T) {
	config := procflux.DefaultConfig()
	config.Processor.Workers = 0
	_, err := procflux.New(procflux.WithConfig(config), procflux.WithLogger(logging.Discard()))
	assert.Error(t, err)
}

package fs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/procflux/runtime/execution"
	"github.com/viant/procflux/service/dao"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	srv, err := New("mem://localhost/procflux/test-service")
	require.NoError(t, err)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	download := execution.NewProcess("p1", "gw", "owner", "", execution.TypeFileDownload, now,
		execution.WithData(map[string]interface{}{"file": "a.txt"}))
	hack := execution.NewProcess("p2", "gw", "owner", "remote", execution.TypeHack, now)
	require.NoError(t, srv.Save(ctx, download))
	require.NoError(t, srv.Save(ctx, hack))
	assert.ErrorIs(t, srv.Save(ctx, nil), dao.ErrNilEntity)

	loaded, err := srv.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "gw", loaded.GatewayID)
	assert.Equal(t, "a.txt", loaded.Data["file"])
	assert.Equal(t, execution.StateWaiting, loaded.State)

	list, err := srv.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = srv.List(ctx, dao.NewParameter(dao.ParameterType, string(execution.TypeHack)))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "p2", list[0].ID)

	require.NoError(t, srv.Delete(ctx, "p1"))
	_, err = srv.Load(ctx, "p1")
	assert.ErrorIs(t, err, dao.ErrNotFound)
	assert.ErrorIs(t, srv.Delete(ctx, "p1"), dao.ErrNotFound)
}

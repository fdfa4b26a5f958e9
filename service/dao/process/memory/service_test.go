package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/procflux/runtime/execution"
	"github.com/viant/procflux/service/dao"
)

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newProcess(id, gateway, target string, processType execution.Type, offset int) *execution.Process {
	return execution.NewProcess(id, gateway, "owner", target, processType, baseTime.Add(time.Duration(offset)*time.Second))
}

func TestService_InsertLoad(t *testing.T) {
	ctx := context.Background()
	srv := New(4)
	p := newProcess("p1", "gw", "", execution.TypeFileDownload, 0)
	require.NoError(t, srv.Insert(ctx, p))
	assert.ErrorIs(t, srv.Insert(ctx, p), dao.ErrExists)
	assert.ErrorIs(t, srv.Insert(ctx, nil), dao.ErrNilEntity)
	assert.ErrorIs(t, srv.Insert(ctx, &execution.Process{}), dao.ErrInvalidID)

	loaded, err := srv.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, p, loaded)
	loaded.Progress = 0.9
	again, _ := srv.Load(ctx, "p1")
	assert.Equal(t, 0.0, again.Progress)

	_, err = srv.Load(ctx, "missing")
	assert.ErrorIs(t, err, dao.ErrNotFound)
	_, err = srv.Load(ctx, "")
	assert.ErrorIs(t, err, dao.ErrInvalidID)
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	srv := New(4)
	require.NoError(t, srv.Insert(ctx, newProcess("p1", "gw", "", execution.TypeHack, 0)))

	updated, err := srv.Update(ctx, "p1", func(p *execution.Process) error {
		p.Progress = 0.5
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0.5, updated.Progress)

	boom := errors.New("boom")
	_, err = srv.Update(ctx, "p1", func(p *execution.Process) error {
		p.Progress = 0.9
		return boom
	})
	assert.ErrorIs(t, err, boom)
	loaded, _ := srv.Load(ctx, "p1")
	assert.Equal(t, 0.5, loaded.Progress)

	_, err = srv.Update(ctx, "missing", func(p *execution.Process) error { return nil })
	assert.ErrorIs(t, err, dao.ErrNotFound)
}

func TestService_Indices(t *testing.T) {
	ctx := context.Background()
	srv := New(4)
	require.NoError(t, srv.Insert(ctx, newProcess("p1", "gw", "", execution.TypeFileDownload, 0)))
	require.NoError(t, srv.Insert(ctx, newProcess("p2", "gw", "remote", execution.TypeHack, 1)))
	require.NoError(t, srv.Insert(ctx, newProcess("p3", "other", "", execution.TypeHack, 2)))

	testCases := []struct {
		description string
		list        func() ([]*execution.Process, error)
		expected    []string
	}{
		{description: "by gateway", list: func() ([]*execution.Process, error) { return srv.ListByServer(ctx, "gw") }, expected: []string{"p1", "p2"}},
		{description: "by target", list: func() ([]*execution.Process, error) { return srv.ListByServer(ctx, "remote") }, expected: []string{"p2"}},
		{description: "by unknown server", list: func() ([]*execution.Process, error) { return srv.ListByServer(ctx, "none") }, expected: []string{}},
		{description: "by type", list: func() ([]*execution.Process, error) { return srv.ListByType(ctx, execution.TypeHack) }, expected: []string{"p2", "p3"}},
		{description: "list all", list: func() ([]*execution.Process, error) { return srv.List(ctx) }, expected: []string{"p1", "p2", "p3"}},
		{
			description: "list by server parameter",
			list: func() ([]*execution.Process, error) {
				return srv.List(ctx, dao.NewParameter(dao.ParameterServer, "other"))
			},
			expected: []string{"p3"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			actual, err := tc.list()
			require.NoError(t, err)
			assert.Equal(t, tc.expected, ids(actual))
		})
	}
}

func TestService_DetachRemove(t *testing.T) {
	ctx := context.Background()
	srv := New(4)
	require.NoError(t, srv.Insert(ctx, newProcess("p1", "gw", "remote", execution.TypeHack, 0)))

	require.NoError(t, srv.Detach(ctx, "p1"))
	require.NoError(t, srv.Detach(ctx, "p1"))
	byServer, _ := srv.ListByServer(ctx, "gw")
	assert.Empty(t, byServer)
	byServer, _ = srv.ListByServer(ctx, "remote")
	assert.Empty(t, byServer)
	byType, _ := srv.ListByType(ctx, execution.TypeHack)
	assert.Equal(t, []string{"p1"}, ids(byType))
	listed, _ := srv.List(ctx, dao.NewParameter(dao.ParameterServer, "gw"))
	assert.Empty(t, listed)

	removed, err := srv.Remove(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", removed.ID)
	byType, _ = srv.ListByType(ctx, execution.TypeHack)
	assert.Empty(t, byType)
	assert.ErrorIs(t, srv.Delete(ctx, "p1"), dao.ErrNotFound)
	assert.ErrorIs(t, srv.Detach(ctx, "p1"), dao.ErrNotFound)
	assert.Equal(t, 0, srv.Len())
}

func TestService_Save(t *testing.T) {
	ctx := context.Background()
	srv := New(0)
	p := newProcess("p1", "gw", "", execution.TypeLogClean, 0)
	require.NoError(t, srv.Save(ctx, p))
	p.Progress = 0.3
	require.NoError(t, srv.Save(ctx, p))
	loaded, err := srv.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 0.3, loaded.Progress)
	list, _ := srv.ListByServer(ctx, "gw")
	assert.Len(t, list, 1)
}

func TestService_Reindex(t *testing.T) {
	var testCases = []struct {
		description string
		detach      bool
		replace     func(srv *Service, p *execution.Process) error
		servers     map[string]int
		types       map[execution.Type]int
	}{
		{
			description: "save moves target and type",
			replace: func(srv *Service, p *execution.Process) error {
				p.TargetID = "victim2"
				p.Type = execution.TypeDDoS
				return srv.Save(context.Background(), p)
			},
			servers: map[string]int{"gw": 1, "victim": 0, "victim2": 1},
			types:   map[execution.Type]int{execution.TypeHack: 0, execution.TypeDDoS: 1},
		},
		{
			description: "update moves gateway",
			replace: func(srv *Service, p *execution.Process) error {
				_, err := srv.Update(context.Background(), p.ID, func(p *execution.Process) error {
					p.GatewayID = "gw2"
					return nil
				})
				return err
			},
			servers: map[string]int{"gw": 0, "gw2": 1, "victim": 1},
			types:   map[execution.Type]int{execution.TypeHack: 1},
		},
		{
			description: "detached stays out of server index",
			detach:      true,
			replace: func(srv *Service, p *execution.Process) error {
				p.TargetID = "victim2"
				p.Type = execution.TypeDDoS
				return srv.Save(context.Background(), p)
			},
			servers: map[string]int{"gw": 0, "victim": 0, "victim2": 0},
			types:   map[execution.Type]int{execution.TypeHack: 0, execution.TypeDDoS: 1},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			ctx := context.Background()
			srv := New(2)
			p := newProcess("p1", "gw", "victim", execution.TypeHack, 0)
			require.NoError(t, srv.Insert(ctx, p))
			if testCase.detach {
				require.NoError(t, srv.Detach(ctx, "p1"))
			}
			require.NoError(t, testCase.replace(srv, p.Clone()))
			for server, expected := range testCase.servers {
				list, err := srv.ListByServer(ctx, server)
				require.NoError(t, err)
				assert.Len(t, list, expected, server)
			}
			for processType, expected := range testCase.types {
				list, err := srv.ListByType(ctx, processType)
				require.NoError(t, err)
				assert.Len(t, list, expected, processType)
			}

			removed, err := srv.Remove(ctx, "p1")
			require.NoError(t, err)
			assert.Equal(t, "p1", removed.ID)
			assert.Empty(t, srv.byServer)
			assert.Empty(t, srv.byType)
		})
	}
}

func TestService_ConcurrentIndexConsistency(t *testing.T) {
	ctx := context.Background()
	srv := New(8)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				id := fmt.Sprintf("w%d-%d", w, i)
				assert.NoError(t, srv.Insert(ctx, newProcess(id, "gw", "", execution.TypeVirusScan, i)))
				if i%2 == 0 {
					_, err := srv.Remove(ctx, id)
					assert.NoError(t, err)
				}
			}
		}(w)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			list, err := srv.ListByServer(ctx, "gw")
			assert.NoError(t, err)
			for _, p := range list {
				assert.Equal(t, "gw", p.GatewayID)
			}
		}
	}()
	wg.Wait()

	assert.Equal(t, 400, srv.Len())
	list, _ := srv.ListByServer(ctx, "gw")
	assert.Len(t, list, 400)
	byType, _ := srv.ListByType(ctx, execution.TypeVirusScan)
	assert.Len(t, byType, 400)
}

func ids(processes []*execution.Process) []string {
	out := make([]string, 0, len(processes))
	for _, p := range processes {
		out = append(out, p.ID)
	}
	return out
}

package allocator

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/procflux/runtime/execution"
	"github.com/viant/procflux/service/dao"
)

func TestService_AllocateDeallocate(t *testing.T) {
	ledger := New()
	previous, err := ledger.Allocate("p1", "gw", execution.Resources{CPU: 2, RAM: 512})
	require.NoError(t, err)
	assert.Nil(t, previous)

	previous, err = ledger.Allocate("p1", "gw", execution.Resources{CPU: 1, RAM: 256})
	require.NoError(t, err)
	assert.Equal(t, &execution.Resources{CPU: 2, RAM: 512}, previous)
	assert.Equal(t, execution.Resources{CPU: 1, RAM: 256}, ledger.Committed("gw"))
	assert.Equal(t, 1, ledger.Len())

	_, err = ledger.Allocate("p2", "gw", execution.Resources{CPU: -1})
	assert.Error(t, err)
	_, err = ledger.Allocate("", "gw", execution.Resources{CPU: 1})
	assert.ErrorIs(t, err, dao.ErrInvalidID)

	entry, ok := ledger.Lookup("p1")
	require.True(t, ok)
	assert.Equal(t, "gw", entry.Host)

	freed, err := ledger.Deallocate("p1")
	require.NoError(t, err)
	assert.Equal(t, &execution.Resources{CPU: 1, RAM: 256}, freed)
	assert.True(t, ledger.Committed("gw").IsZero())
	assert.Empty(t, ledger.Hosts())

	_, err = ledger.Deallocate("p1")
	assert.ErrorIs(t, err, dao.ErrNotFound)
}

func TestService_Admit(t *testing.T) {
	ledger := New()
	capacity := execution.Resources{CPU: 4, RAM: 1024}
	_, err := ledger.Allocate("p1", "gw", execution.Resources{CPU: 3, RAM: 512})
	require.NoError(t, err)

	testCases := []struct {
		description string
		host        string
		request     execution.Resources
		exclude     string
		expectErr   bool
	}{
		{description: "fits", host: "gw", request: execution.Resources{CPU: 1, RAM: 512}, expectErr: false},
		{description: "cpu overflow", host: "gw", request: execution.Resources{CPU: 1.5, RAM: 1}, expectErr: true},
		{description: "ram overflow", host: "gw", request: execution.Resources{CPU: 0.5, RAM: 600}, expectErr: true},
		{description: "own allocation discounted", host: "gw", request: execution.Resources{CPU: 4, RAM: 1024}, exclude: "p1", expectErr: false},
		{description: "other host", host: "other", request: execution.Resources{CPU: 4, RAM: 1024}, expectErr: false},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			err := ledger.Admit(tc.host, tc.request, capacity, tc.exclude)
			if tc.expectErr {
				assert.True(t, errors.Is(err, ErrInsufficient))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestService_Conservation(t *testing.T) {
	ledger := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("p%d", i)
			_, err := ledger.Allocate(id, "gw", execution.Resources{CPU: 1, RAM: 10})
			assert.NoError(t, err)
			_, err = ledger.Allocate(id, "gw", execution.Resources{CPU: 2, RAM: 20})
			assert.NoError(t, err)
			if i%2 == 0 {
				_, err = ledger.Deallocate(id)
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 25, ledger.Len())
	assert.Equal(t, execution.Resources{CPU: 50, RAM: 500}, ledger.Committed("gw"))
}

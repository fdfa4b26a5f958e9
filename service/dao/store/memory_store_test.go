package store

import (
	"context"
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/procflux/service/dao"
	"testing"
)

type record struct {
	ID    string
	Count int
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore[string, record](func(r *record) string { return r.ID })
	require.NoError(t, s.Save(ctx, &record{ID: "a"}))
	assert.ErrorIs(t, s.Save(ctx, nil), dao.ErrNilEntity)

	require.NoError(t, s.Update(ctx, "a", func(r *record) error {
		r.Count++
		return nil
	}))
	boom := errors.New("boom")
	assert.ErrorIs(t, s.Update(ctx, "a", func(r *record) error { return boom }), boom)
	assert.ErrorIs(t, s.Update(ctx, "b", func(r *record) error { return nil }), dao.ErrNotFound)

	loaded, err := s.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Count)
	assert.Equal(t, 1, s.Len())

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	taken, err := s.Take("a")
	require.NoError(t, err)
	assert.Equal(t, "a", taken.ID)
	assert.ErrorIs(t, s.Delete(ctx, "a"), dao.ErrNotFound)
	_, err = s.Load(ctx, "a")
	assert.ErrorIs(t, err, dao.ErrNotFound)
}

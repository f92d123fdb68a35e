package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Monkestation/Veyra-Vet/internal/models"
)

func newTestGormStore(t *testing.T) *GormStore[*models.VettingRequest] {
	t.Helper()
	db, err := OpenDatabase("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	s := NewGormStore[*models.VettingRequest](db, "vetting_requests")
	require.NoError(t, s.Init(context.Background()))
	return s
}

func TestGormStore_SetGetRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestGormStore(t)
	ctx := context.Background()

	v := testRequest("1")
	require.NoError(t, s.Set(ctx, v.ID, v))

	got, ok, err := s.Get(ctx, "1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, v.UserID, got.UserID)
	assert.Equal(t, v.Status, got.Status)
	assert.False(t, got.UpdatedAt.IsZero())

	_, ok, err = s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGormStore_SetOverwrites(t *testing.T) {
	t.Parallel()

	s := newTestGormStore(t)
	ctx := context.Background()

	v := testRequest("1")
	require.NoError(t, s.Set(ctx, v.ID, v))

	v.Status = models.VettingStatusApproved
	require.NoError(t, s.Set(ctx, v.ID, v))

	got, ok, err := s.Get(ctx, "1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.VettingStatusApproved, got.Status)

	n, err := s.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestGormStore_DeleteAndSize(t *testing.T) {
	t.Parallel()

	s := newTestGormStore(t)
	ctx := context.Background()

	for _, id := range []string{"1", "2"} {
		v := testRequest(id)
		require.NoError(t, s.Set(ctx, v.ID, v))
	}

	removed, err := s.Delete(ctx, "1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Delete(ctx, "1")
	require.NoError(t, err)
	assert.False(t, removed)

	n, err := s.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestGormStore_FindFilterKeys(t *testing.T) {
	t.Parallel()

	s := newTestGormStore(t)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3"} {
		v := testRequest(id)
		if id == "3" {
			v.Status = models.VettingStatusDenied
		}
		require.NoError(t, s.Set(ctx, v.ID, v))
	}

	got, ok, err := s.Find(ctx, func(v *models.VettingRequest) bool {
		return v.Status == models.VettingStatusDenied
	})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "3", got.ID)

	pending, err := s.Filter(ctx, func(v *models.VettingRequest) bool {
		return v.Status == models.VettingStatusPending
	})
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "2", "3"}, keys)
}

func TestOpenDatabase_UnsupportedDriver(t *testing.T) {
	t.Parallel()

	_, err := OpenDatabase("mongodb", "dsn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported storage driver")
}

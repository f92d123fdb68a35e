package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Monkestation/Veyra-Vet/internal/models"
)

func newTestFileStore(t *testing.T) (*FileStore[*models.VettingRequest], string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vetting-requests.json")
	return NewFileStore[*models.VettingRequest](path, "vetting requests"), path
}

func testRequest(id string) *models.VettingRequest {
	return &models.VettingRequest{
		ID:        id,
		UserID:    "user-" + id,
		Ckey:      "ckey" + id,
		ChannelID: "chan-" + id,
		Status:    models.VettingStatusPending,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestFileStore_InitCreatesEmptyFile(t *testing.T) {
	t.Parallel()

	s, path := newTestFileStore(t)
	require.NoError(t, s.Init(context.Background()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, "{}", string(raw))
}

func TestFileStore_SetGetRoundTrip(t *testing.T) {
	t.Parallel()

	s, _ := newTestFileStore(t)
	ctx := context.Background()

	v := testRequest("1")
	require.NoError(t, s.Set(ctx, v.ID, v))

	got, ok, err := s.Get(ctx, "1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "user-1", got.UserID)
	assert.False(t, got.UpdatedAt.IsZero(), "Set must stamp updatedAt")

	_, ok, err = s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "vetting-requests.json")
	ctx := context.Background()

	first := NewFileStore[*models.VettingRequest](path, "vetting requests")
	v := testRequest("1")
	require.NoError(t, first.Set(ctx, v.ID, v))

	second := NewFileStore[*models.VettingRequest](path, "vetting requests")
	require.NoError(t, second.Init(ctx))

	got, ok, err := second.Get(ctx, "1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, v.Ckey, got.Ckey)
	assert.Equal(t, v.Status, got.Status)
	assert.True(t, v.CreatedAt.Equal(got.CreatedAt))
}

func TestFileStore_Delete(t *testing.T) {
	t.Parallel()

	s, _ := newTestFileStore(t)
	ctx := context.Background()

	v := testRequest("1")
	require.NoError(t, s.Set(ctx, v.ID, v))

	removed, err := s.Delete(ctx, "1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Delete(ctx, "1")
	require.NoError(t, err)
	assert.False(t, removed, "deleting an absent key reports false")

	n, err := s.Size(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFileStore_CorruptFileFailsInit(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "vetting-requests.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := NewFileStore[*models.VettingRequest](path, "vetting requests")
	err := s.Init(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing")
}

func TestFileStore_FindAndFilter(t *testing.T) {
	t.Parallel()

	s, _ := newTestFileStore(t)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3"} {
		v := testRequest(id)
		if id == "2" {
			v.Status = models.VettingStatusApproved
		}
		require.NoError(t, s.Set(ctx, v.ID, v))
	}

	got, ok, err := s.Find(ctx, func(v *models.VettingRequest) bool {
		return v.Status == models.VettingStatusApproved
	})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2", got.ID)

	pending, err := s.Filter(ctx, func(v *models.VettingRequest) bool {
		return v.Status == models.VettingStatusPending
	})
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestFileStore_ReadsReturnCopies(t *testing.T) {
	t.Parallel()

	s, _ := newTestFileStore(t)
	ctx := context.Background()

	v := testRequest("1")
	require.NoError(t, s.Set(ctx, v.ID, v))

	// Mutating the caller's struct after Set must not alter stored state.
	v.Status = models.VettingStatusApproved
	got, ok, err := s.Get(ctx, "1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.VettingStatusPending, got.Status)

	// Mutating a returned record must not leak into later reads.
	got.Status = models.VettingStatusDenied
	got.ProcessedBy = "admin-1"

	again, ok, err := s.Get(ctx, "1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.VettingStatusPending, again.Status)
	assert.Empty(t, again.ProcessedBy)

	found, ok, err := s.Find(ctx, func(r *models.VettingRequest) bool { return r.ID == "1" })
	require.NoError(t, err)
	require.True(t, ok)
	found.Ckey = "mutated"

	values, err := s.Values(ctx)
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, "ckey1", values[0].Ckey)
}

func TestFileStore_NoTempFileLeftBehind(t *testing.T) {
	t.Parallel()

	s, path := newTestFileStore(t)
	ctx := context.Background()

	v := testRequest("1")
	require.NoError(t, s.Set(ctx, v.ID, v))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must be renamed away")
}

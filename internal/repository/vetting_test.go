package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Monkestation/Veyra-Vet/internal/models"
	"github.com/Monkestation/Veyra-Vet/internal/store"
)

func newVettingRepo(t *testing.T) VettingRepository {
	t.Helper()
	s := store.NewFileStore[*models.VettingRequest](
		filepath.Join(t.TempDir(), "vetting-requests.json"), "vetting requests")
	repo := NewVettingRepository(s)
	require.NoError(t, repo.Init(context.Background()))
	return repo
}

func putRequest(t *testing.T, repo VettingRepository, id, userID string, status models.VettingStatus, createdAt time.Time) *models.VettingRequest {
	t.Helper()
	v := &models.VettingRequest{
		ID:        id,
		UserID:    userID,
		Ckey:      "ckey_" + userID,
		ChannelID: "chan-" + id,
		Status:    status,
		CreatedAt: createdAt,
	}
	require.NoError(t, repo.Put(context.Background(), v))
	return v
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func TestVettingRepository_GetNotFound(t *testing.T) {
	t.Parallel()

	repo := newVettingRepo(t)
	_, err := repo.Get(context.Background(), "missing")
	requireCode(t, err, models.CodeNotFound)
}

func TestVettingRepository_GetPendingByUser(t *testing.T) {
	t.Parallel()

	repo := newVettingRepo(t)
	ctx := context.Background()

	got, err := repo.GetPendingByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, got, "no request on file yet")

	putRequest(t, repo, "v1", "user-1", models.VettingStatusApproved, time.Now().Add(-time.Hour))
	got, err = repo.GetPendingByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, got, "terminal requests do not count as pending")

	putRequest(t, repo, "v2", "user-1", models.VettingStatusPending, time.Now())
	got, err = repo.GetPendingByUser(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "v2", got.ID)
}

func TestVettingRepository_GetLatestByUser(t *testing.T) {
	t.Parallel()

	repo := newVettingRepo(t)
	ctx := context.Background()

	putRequest(t, repo, "old", "user-1", models.VettingStatusDenied, time.Now().Add(-48*time.Hour))
	putRequest(t, repo, "new", "user-1", models.VettingStatusPending, time.Now().Add(-time.Hour))
	putRequest(t, repo, "other", "user-2", models.VettingStatusPending, time.Now())

	got, err := repo.GetLatestByUser(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "new", got.ID)
}

func TestVettingRepository_ListPendingOrdered(t *testing.T) {
	t.Parallel()

	repo := newVettingRepo(t)

	putRequest(t, repo, "b", "user-2", models.VettingStatusPending, time.Now().Add(-time.Hour))
	putRequest(t, repo, "a", "user-1", models.VettingStatusPending, time.Now().Add(-2*time.Hour))
	putRequest(t, repo, "done", "user-3", models.VettingStatusApproved, time.Now().Add(-3*time.Hour))

	pending, err := repo.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "a", pending[0].ID)
	assert.Equal(t, "b", pending[1].ID)
}

func TestVettingRepository_TransitionStatus(t *testing.T) {
	t.Parallel()

	repo := newVettingRepo(t)
	ctx := context.Background()

	putRequest(t, repo, "v1", "user-1", models.VettingStatusPending, time.Now())

	v, err := repo.TransitionStatus(ctx, "v1", models.VettingStatusApproved, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.VettingStatusApproved, v.Status)
	assert.Equal(t, "admin-1", v.ProcessedBy)
	require.NotNil(t, v.ProcessedAt)

	// Terminal states never transition again.
	_, err = repo.TransitionStatus(ctx, "v1", models.VettingStatusDenied, "admin-2")
	requireCode(t, err, models.CodeAlreadyProcessed)

	got, err := repo.Get(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, models.VettingStatusApproved, got.Status)
	assert.Equal(t, "admin-1", got.ProcessedBy)
}

func TestVettingRepository_TransitionStatus_Missing(t *testing.T) {
	t.Parallel()

	repo := newVettingRepo(t)
	_, err := repo.TransitionStatus(context.Background(), "missing", models.VettingStatusApproved, "admin-1")
	requireCode(t, err, models.CodeNotFound)
}

func TestVettingRepository_Cleanup(t *testing.T) {
	t.Parallel()

	repo := newVettingRepo(t)
	ctx := context.Background()
	retention := 30 * 24 * time.Hour
	old := time.Now().Add(-31 * 24 * time.Hour)

	putRequest(t, repo, "old-approved", "u1", models.VettingStatusApproved, old)
	putRequest(t, repo, "old-denied", "u2", models.VettingStatusDenied, old)
	putRequest(t, repo, "old-timeout", "u3", models.VettingStatusTimeout, old)
	putRequest(t, repo, "old-pending", "u4", models.VettingStatusPending, old)
	putRequest(t, repo, "new-approved", "u5", models.VettingStatusApproved, time.Now().Add(-time.Hour))

	cleaned, err := repo.Cleanup(ctx, retention)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"old-approved", "old-denied", "old-timeout"}, cleaned,
		"timed-out requests are swept along with approved and denied")

	n, err := repo.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = repo.Get(ctx, "old-pending")
	assert.NoError(t, err, "pending requests survive cleanup regardless of age")

	// A second sweep finds nothing; cleanup is idempotent.
	cleaned, err = repo.Cleanup(ctx, retention)
	require.NoError(t, err)
	assert.Empty(t, cleaned)
}

func TestVettingRepository_CountByStatus(t *testing.T) {
	t.Parallel()

	repo := newVettingRepo(t)

	putRequest(t, repo, "v1", "u1", models.VettingStatusPending, time.Now())
	putRequest(t, repo, "v2", "u2", models.VettingStatusPending, time.Now())
	putRequest(t, repo, "v3", "u3", models.VettingStatusDenied, time.Now())

	counts, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, counts[models.VettingStatusPending])
	assert.Equal(t, 1, counts[models.VettingStatusDenied])
	assert.Zero(t, counts[models.VettingStatusApproved])
}

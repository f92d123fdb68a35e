// Package repository provides typed queries and transitions over the stores.
package repository

import (
	"context"
	"sort"
	"time"

	"github.com/Monkestation/Veyra-Vet/internal/models"
	"github.com/Monkestation/Veyra-Vet/internal/store"
)

// VettingRepository defines the data operations for vetting requests.
type VettingRepository interface {
	Init(ctx context.Context) error
	Get(ctx context.Context, id string) (*models.VettingRequest, error)
	Put(ctx context.Context, v *models.VettingRequest) error
	// GetPendingByUser returns the user's pending request, or nil.
	GetPendingByUser(ctx context.Context, userID string) (*models.VettingRequest, error)
	// GetLatestByUser returns the user's most recent request in any status, or nil.
	GetLatestByUser(ctx context.Context, userID string) (*models.VettingRequest, error)
	// ListPending returns pending requests oldest-first.
	ListPending(ctx context.Context) ([]*models.VettingRequest, error)
	// TransitionStatus moves a pending request to newStatus and stamps
	// processedBy/processedAt. Non-pending requests are rejected.
	TransitionStatus(ctx context.Context, id string, newStatus models.VettingStatus, actorID string) (*models.VettingRequest, error)
	// Cleanup deletes terminal requests older than the retention window
	// and returns the ids removed.
	Cleanup(ctx context.Context, retention time.Duration) ([]string, error)
	CountByStatus(ctx context.Context) (map[models.VettingStatus]int, error)
	Size(ctx context.Context) (int, error)
}

// vettingRepository implements VettingRepository over a generic store.
type vettingRepository struct {
	store store.Store[*models.VettingRequest]
	now   func() time.Time
}

// NewVettingRepository creates a new vetting repository.
func NewVettingRepository(s store.Store[*models.VettingRequest]) VettingRepository {
	return &vettingRepository{store: s, now: time.Now}
}

func (r *vettingRepository) Init(ctx context.Context) error {
	return r.store.Init(ctx)
}

func (r *vettingRepository) Get(ctx context.Context, id string) (*models.VettingRequest, error) {
	v, ok, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if !ok {
		return nil, models.NewNotFoundError("Vetting request", id)
	}
	return v, nil
}

func (r *vettingRepository) Put(ctx context.Context, v *models.VettingRequest) error {
	if err := r.store.Set(ctx, v.ID, v); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *vettingRepository) GetPendingByUser(ctx context.Context, userID string) (*models.VettingRequest, error) {
	v, ok, err := r.store.Find(ctx, func(v *models.VettingRequest) bool {
		return v.UserID == userID && v.Status == models.VettingStatusPending
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if !ok {
		return nil, nil
	}
	return v, nil
}

func (r *vettingRepository) GetLatestByUser(ctx context.Context, userID string) (*models.VettingRequest, error) {
	matches, err := r.store.Filter(ctx, func(v *models.VettingRequest) bool {
		return v.UserID == userID
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	var latest *models.VettingRequest
	for _, v := range matches {
		if latest == nil || v.CreatedAt.After(latest.CreatedAt) {
			latest = v
		}
	}
	return latest, nil
}

func (r *vettingRepository) ListPending(ctx context.Context) ([]*models.VettingRequest, error) {
	pending, err := r.store.Filter(ctx, func(v *models.VettingRequest) bool {
		return v.Status == models.VettingStatusPending
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	return pending, nil
}

func (r *vettingRepository) TransitionStatus(ctx context.Context, id string, newStatus models.VettingStatus, actorID string) (*models.VettingRequest, error) {
	v, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.Status != models.VettingStatusPending {
		return nil, models.NewAlreadyProcessedError(v.Status)
	}

	processedAt := r.now()
	v.Status = newStatus
	v.ProcessedBy = actorID
	v.ProcessedAt = &processedAt
	if err := r.Put(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Cleanup reclaims every terminal request older than the retention window.
// Timed-out requests are terminal and are swept along with approved and
// denied ones.
func (r *vettingRepository) Cleanup(ctx context.Context, retention time.Duration) ([]string, error) {
	cutoff := r.now().Add(-retention)
	entries, err := r.store.Entries(ctx)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	var cleaned []string
	for id, v := range entries {
		if v.Status.Terminal() && v.CreatedAt.Before(cutoff) {
			removed, err := r.store.Delete(ctx, id)
			if err != nil {
				return cleaned, models.NewInternalError(err)
			}
			if removed {
				cleaned = append(cleaned, id)
			}
		}
	}
	return cleaned, nil
}

func (r *vettingRepository) CountByStatus(ctx context.Context) (map[models.VettingStatus]int, error) {
	values, err := r.store.Values(ctx)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	counts := make(map[models.VettingStatus]int)
	for _, v := range values {
		counts[v.Status]++
	}
	return counts, nil
}

func (r *vettingRepository) Size(ctx context.Context) (int, error) {
	n, err := r.store.Size(ctx)
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

package repository

import (
	"context"
	"time"

	"github.com/Monkestation/Veyra-Vet/internal/models"
	"github.com/Monkestation/Veyra-Vet/internal/store"
)

// CommissionRepository defines the data operations for commissions.
type CommissionRepository interface {
	Init(ctx context.Context) error
	Get(ctx context.Context, id string) (*models.Commission, error)
	Put(ctx context.Context, c *models.Commission) error
	// GetByChannelID returns the commission backed by channelID, or nil.
	GetByChannelID(ctx context.Context, channelID string) (*models.Commission, error)
	// GetActiveByCreator returns the creator's active commission, or nil.
	GetActiveByCreator(ctx context.Context, creatorID string) (*models.Commission, error)
	IsCreator(ctx context.Context, channelID, userID string) (bool, error)
	// AddRep appends userID to the roster, preserving insertion order.
	// Duplicates are rejected with AlreadyRep.
	AddRep(ctx context.Context, channelID, userID string) (*models.Commission, error)
	// RemoveRep removes userID from the roster, rejecting absent reps
	// with NotRep.
	RemoveRep(ctx context.Context, channelID, userID string) (*models.Commission, error)
	UpdateChannelName(ctx context.Context, channelID, newName string) (*models.Commission, error)
	SetStatus(ctx context.Context, channelID string, status models.CommissionStatus) (*models.Commission, error)
	// Cleanup deletes inactive commissions older than the retention window
	// and returns the ids removed.
	Cleanup(ctx context.Context, retention time.Duration) ([]string, error)
	CountByStatus(ctx context.Context) (map[models.CommissionStatus]int, error)
	Size(ctx context.Context) (int, error)
}

// commissionRepository implements CommissionRepository over a generic store.
type commissionRepository struct {
	store store.Store[*models.Commission]
	now   func() time.Time
}

// NewCommissionRepository creates a new commission repository.
func NewCommissionRepository(s store.Store[*models.Commission]) CommissionRepository {
	return &commissionRepository{store: s, now: time.Now}
}

func (r *commissionRepository) Init(ctx context.Context) error {
	return r.store.Init(ctx)
}

func (r *commissionRepository) Get(ctx context.Context, id string) (*models.Commission, error) {
	c, ok, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if !ok {
		return nil, models.NewNotFoundError("Commission", id)
	}
	return c, nil
}

func (r *commissionRepository) Put(ctx context.Context, c *models.Commission) error {
	if err := r.store.Set(ctx, c.ID, c); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *commissionRepository) GetByChannelID(ctx context.Context, channelID string) (*models.Commission, error) {
	c, ok, err := r.store.Find(ctx, func(c *models.Commission) bool {
		return c.ChannelID == channelID
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if !ok {
		return nil, nil
	}
	return c, nil
}

func (r *commissionRepository) GetActiveByCreator(ctx context.Context, creatorID string) (*models.Commission, error) {
	c, ok, err := r.store.Find(ctx, func(c *models.Commission) bool {
		return c.CreatorID == creatorID && c.Status == models.CommissionStatusActive
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if !ok {
		return nil, nil
	}
	return c, nil
}

func (r *commissionRepository) IsCreator(ctx context.Context, channelID, userID string) (bool, error) {
	c, err := r.GetByChannelID(ctx, channelID)
	if err != nil {
		return false, err
	}
	return c != nil && c.CreatorID == userID, nil
}

func (r *commissionRepository) AddRep(ctx context.Context, channelID, userID string) (*models.Commission, error) {
	c, err := r.mustGetByChannelID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if c.HasRep(userID) {
		return nil, models.NewAlreadyRepError()
	}
	c.Reps = append(c.Reps, userID)
	if err := r.Put(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *commissionRepository) RemoveRep(ctx context.Context, channelID, userID string) (*models.Commission, error) {
	c, err := r.mustGetByChannelID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if !c.HasRep(userID) {
		return nil, models.NewNotRepError()
	}
	reps := make([]string, 0, len(c.Reps)-1)
	for _, id := range c.Reps {
		if id != userID {
			reps = append(reps, id)
		}
	}
	c.Reps = reps
	if err := r.Put(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *commissionRepository) UpdateChannelName(ctx context.Context, channelID, newName string) (*models.Commission, error) {
	c, err := r.mustGetByChannelID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	c.ChannelName = newName
	if err := r.Put(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *commissionRepository) SetStatus(ctx context.Context, channelID string, status models.CommissionStatus) (*models.Commission, error) {
	c, err := r.mustGetByChannelID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	c.Status = status
	if err := r.Put(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *commissionRepository) Cleanup(ctx context.Context, retention time.Duration) ([]string, error) {
	cutoff := r.now().Add(-retention)
	entries, err := r.store.Entries(ctx)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	var cleaned []string
	for id, c := range entries {
		if c.Status == models.CommissionStatusInactive && c.CreatedAt.Before(cutoff) {
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

func (r *commissionRepository) CountByStatus(ctx context.Context) (map[models.CommissionStatus]int, error) {
	values, err := r.store.Values(ctx)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	counts := make(map[models.CommissionStatus]int)
	for _, c := range values {
		counts[c.Status]++
	}
	return counts, nil
}

func (r *commissionRepository) Size(ctx context.Context) (int, error) {
	n, err := r.store.Size(ctx)
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

func (r *commissionRepository) mustGetByChannelID(ctx context.Context, channelID string) (*models.Commission, error) {
	c, err := r.GetByChannelID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, models.NewNotFoundError("Commission for channel", channelID)
	}
	return c, nil
}

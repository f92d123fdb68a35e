package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/Monkestation/Veyra-Vet/internal/models"
	"github.com/Monkestation/Veyra-Vet/internal/observability"
	"github.com/Monkestation/Veyra-Vet/internal/repository"
	"github.com/Monkestation/Veyra-Vet/internal/scheduler"
	"github.com/Monkestation/Veyra-Vet/internal/validation"
)

const (
	// CommissionRetention is how long closed commissions are kept before
	// the cleanup sweep reclaims them. The record outlives the channel so
	// history survives the deletion window.
	CommissionRetention = 7 * 24 * time.Hour

	closeDeleteDelay = 30 * time.Second
)

// CommissionService governs the lifecycle of commission channels and their
// rep rosters.
type CommissionService struct {
	repo     repository.CommissionRepository
	gateway  CommissionGateway
	deferrer scheduler.Deferrer
	locks    *keyedMutex
	now      func() time.Time
}

// NewCommissionService returns a new CommissionService.
func NewCommissionService(repo repository.CommissionRepository, gateway CommissionGateway, deferrer scheduler.Deferrer) *CommissionService {
	return &CommissionService{
		repo:     repo,
		gateway:  gateway,
		deferrer: deferrer,
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
}

// Create opens a commission channel with its artwork thread and pinned
// status display.
func (s *CommissionService) Create(ctx context.Context, creatorID, rawName string) (*models.Commission, error) {
	name := validation.SanitizeChannelName(rawName)
	if name == "" {
		return nil, models.NewValidationError("A valid commission name is required.")
	}

	unlock := s.locks.Lock("commission:" + creatorID)
	defer unlock()

	existing, err := s.repo.GetActiveByCreator(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewDuplicateCommissionError(existing.ChannelID)
	}

	channelID, err := s.gateway.CreateCommissionChannel(ctx, creatorID, name)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	threadID, err := s.gateway.CreateArtworkThread(ctx, channelID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	c := models.NewCommission(creatorID, channelID, name, threadID, s.now())
	if err := s.repo.Put(ctx, c); err != nil {
		return nil, err
	}

	if err := s.gateway.PostCommissionStatus(ctx, c); err != nil {
		return nil, models.NewInternalError(err)
	}

	slog.InfoContext(ctx, "commission created", "id", c.ID, "creator", creatorID, "name", name)
	return c, nil
}

// AddRep registers userID as a rep on the commission backing channelID.
func (s *CommissionService) AddRep(ctx context.Context, channelID, userID string) (*models.Commission, error) {
	unlock := s.locks.Lock("channel:" + channelID)
	defer unlock()

	if _, err := s.activeByChannel(ctx, channelID); err != nil {
		return nil, err
	}

	c, err := s.repo.AddRep(ctx, channelID, userID)
	if err != nil {
		return nil, err
	}

	s.refreshStatus(ctx, c)
	return c, nil
}

// RemoveRep removes targetID (or the actor, when targetID is empty) from the
// roster. Only the rep themselves or the commission creator may remove a rep.
func (s *CommissionService) RemoveRep(ctx context.Context, channelID, actorID, targetID string) (*models.Commission, error) {
	unlock := s.locks.Lock("channel:" + channelID)
	defer unlock()

	c, err := s.activeByChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}

	if targetID == "" {
		targetID = actorID
	}
	if actorID != targetID && actorID != c.CreatorID {
		return nil, models.NewPermissionDeniedError("Only the rep themselves or the commission creator can remove a rep.")
	}

	c, err = s.repo.RemoveRep(ctx, channelID, targetID)
	if err != nil {
		return nil, err
	}

	s.refreshStatus(ctx, c)
	return c, nil
}

// Rename changes the commission's display name and renames the channel.
func (s *CommissionService) Rename(ctx context.Context, channelID, actorID, rawName string) (*models.Commission, error) {
	unlock := s.locks.Lock("channel:" + channelID)
	defer unlock()

	c, err := s.activeByChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if c.CreatorID != actorID {
		return nil, models.NewPermissionDeniedError("Only the commission creator can rename the channel.")
	}

	name := validation.SanitizeChannelName(rawName)
	if name == "" {
		return nil, models.NewValidationError("A valid commission name is required.")
	}

	c, err = s.repo.UpdateChannelName(ctx, channelID, name)
	if err != nil {
		return nil, err
	}

	if err := s.gateway.RenameChannel(ctx, channelID, "commission-"+name); err != nil {
		return nil, models.NewInternalError(err)
	}

	s.refreshStatus(ctx, c)
	return c, nil
}

// Close transitions the commission to inactive and schedules deletion of the
// backing channel. The record itself is kept for the retention window.
func (s *CommissionService) Close(ctx context.Context, channelID, actorID string) (*models.Commission, error) {
	unlock := s.locks.Lock("channel:" + channelID)
	defer unlock()

	c, err := s.activeByChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if c.CreatorID != actorID {
		return nil, models.NewPermissionDeniedError("Only the commission creator can close the channel.")
	}

	c, err = s.repo.SetStatus(ctx, channelID, models.CommissionStatusInactive)
	if err != nil {
		return nil, err
	}

	if err := s.gateway.PostClosureNotice(ctx, c); err != nil {
		slog.WarnContext(ctx, "closure notice failed", "channel", channelID, "error", err)
	}

	s.deferrer.Defer("commission-channel:"+c.ID, closeDeleteDelay, func() {
		if err := s.gateway.DeleteChannel(context.Background(), channelID); err != nil {
			observability.DeferredDeletions.WithLabelValues("missing").Inc()
			slog.Warn("deferred commission channel deletion failed", "channel", channelID, "error", err)
			return
		}
		observability.DeferredDeletions.WithLabelValues("deleted").Inc()
	})

	slog.InfoContext(ctx, "commission closed", "id", c.ID, "by", actorID)
	return c, nil
}

// Cleanup reclaims inactive commissions past the retention window. Any
// deferred channel deletion still pending for a reclaimed commission is
// cancelled with it.
func (s *CommissionService) Cleanup(ctx context.Context) (int, error) {
	removed, err := s.repo.Cleanup(ctx, CommissionRetention)
	if err != nil {
		return 0, err
	}
	for _, id := range removed {
		s.deferrer.Cancel("commission-channel:" + id)
	}
	cleaned := len(removed)
	observability.CleanupRemovals.WithLabelValues("commissions").Add(float64(cleaned))
	slog.InfoContext(ctx, "cleaned up old commission records", "count", cleaned)
	return cleaned, nil
}

// Stats reports record counts by status.
func (s *CommissionService) Stats(ctx context.Context) (map[models.CommissionStatus]int, error) {
	return s.repo.CountByStatus(ctx)
}

// Size reports the number of stored commission records.
func (s *CommissionService) Size(ctx context.Context) (int, error) {
	return s.repo.Size(ctx)
}

// activeByChannel resolves the active commission behind channelID.
func (s *CommissionService) activeByChannel(ctx context.Context, channelID string) (*models.Commission, error) {
	c, err := s.repo.GetByChannelID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, models.NewNotFoundError("Commission for channel", channelID)
	}
	if c.Status != models.CommissionStatusActive {
		return nil, models.NewValidationError("This commission is closed.")
	}
	return c, nil
}

// refreshStatus re-renders the pinned status display. The data mutation has
// already succeeded, so a failed refresh is logged and skipped.
func (s *CommissionService) refreshStatus(ctx context.Context, c *models.Commission) {
	if err := s.gateway.RefreshCommissionStatus(ctx, c); err != nil {
		slog.WarnContext(ctx, "commission status refresh failed", "id", c.ID, "error", err)
	}
}

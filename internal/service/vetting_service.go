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
	"github.com/Monkestation/Veyra-Vet/internal/veyra"
)

// Decision is an admin's verdict on a pending vetting request.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionDeny    Decision = "deny"
)

const (
	// VettingRetention is how long resolved requests are kept before the
	// cleanup sweep reclaims them.
	VettingRetention = 30 * 24 * time.Hour

	// approveDeleteDelay leaves the channel up briefly so the admin sees
	// the confirmation; denials linger longer so the requester can read
	// the outcome.
	approveDeleteDelay = 30 * time.Second
	denyDeleteDelay    = 60 * time.Second
)

// VettingService governs the lifecycle of age-vetting requests.
type VettingService struct {
	repo     repository.VettingRepository
	api      veyra.API
	gateway  VettingGateway
	deferrer scheduler.Deferrer
	locks    *keyedMutex
	now      func() time.Time
}

// NewVettingService returns a new VettingService.
func NewVettingService(repo repository.VettingRepository, api veyra.API, gateway VettingGateway, deferrer scheduler.Deferrer) *VettingService {
	return &VettingService{
		repo:     repo,
		api:      api,
		gateway:  gateway,
		deferrer: deferrer,
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
}

// Create opens a new vetting request for userID: sanitizes the ckey, rejects
// duplicates and already-vetted ckeys, provisions the private channel, and
// posts the decision prompt.
func (s *VettingService) Create(ctx context.Context, userID, rawCkey string) (*models.VettingRequest, error) {
	ckey := validation.SanitizeCkey(rawCkey)
	if ckey == "" {
		return nil, models.NewValidationError("A valid ckey is required.")
	}

	// One in-flight create per user; the duplicate check below is
	// check-then-act otherwise.
	unlock := s.locks.Lock("vetting:" + userID)
	defer unlock()

	existing, err := s.repo.GetPendingByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewDuplicateRequestError(existing.ChannelID)
	}

	verification, err := s.api.GetVerificationByCkey(ctx, ckey)
	if err != nil {
		return nil, err
	}
	if verification != nil && verification.VerifiedFlags.AgeVetted {
		return nil, models.NewAlreadyVerifiedError(ckey)
	}

	channelID, err := s.gateway.CreateVettingChannel(ctx, userID, ckey)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	v := models.NewVettingRequest(userID, ckey, channelID, s.now())
	if err := s.repo.Put(ctx, v); err != nil {
		return nil, err
	}

	if err := s.gateway.PostVettingPrompt(ctx, channelID, v); err != nil {
		return nil, models.NewInternalError(err)
	}

	slog.InfoContext(ctx, "vetting request created", "id", v.ID, "user", userID, "ckey", ckey)
	return v, nil
}

// Decide resolves a pending request. On approval the verification upsert is
// pushed to Veyra after the local transition; an upstream failure is
// returned to the caller but the transition stands.
func (s *VettingService) Decide(ctx context.Context, requestID string, actor Actor, decision Decision) (*models.VettingRequest, error) {
	if !actor.IsAdmin {
		return nil, models.NewPermissionDeniedError("You don't have permission to process vetting requests.")
	}

	var status models.VettingStatus
	switch decision {
	case DecisionApprove:
		status = models.VettingStatusApproved
	case DecisionDeny:
		status = models.VettingStatusDenied
	default:
		return nil, models.NewValidationError("Unknown decision.")
	}

	// Transition is read-then-write in the repository; one in-flight
	// decision per request keeps it atomic against racing admins and the
	// timeout sweep.
	unlock := s.locks.Lock("request:" + requestID)
	defer unlock()

	v, err := s.repo.TransitionStatus(ctx, requestID, status, actor.ID)
	if err != nil {
		return nil, err
	}

	var upstreamErr error
	if decision == DecisionApprove {
		flags := models.VerifiedFlags{AgeVetted: true, VettedBy: actor.ID}
		if _, err := s.api.CreateOrUpdateVerification(ctx, v.UserID, v.Ckey, flags); err != nil {
			// The local transition is already committed and is not
			// rolled back; the admin is told the upstream write failed.
			slog.ErrorContext(ctx, "verification upsert failed after approval",
				"id", v.ID, "ckey", v.Ckey, "error", err)
			upstreamErr = err
		}
	}

	s.notify(ctx, v, decision)
	s.scheduleChannelDeletion(v.ID, v.ChannelID, deletionDelay(decision))

	slog.InfoContext(ctx, "vetting request resolved",
		"id", v.ID, "status", v.Status, "by", actor.ID)
	return v, upstreamErr
}

// Status returns the user's most recent request, or nil if they have none.
func (s *VettingService) Status(ctx context.Context, userID string) (*models.VettingRequest, error) {
	return s.repo.GetLatestByUser(ctx, userID)
}

// ListPending returns pending requests oldest-first, for the admin list.
func (s *VettingService) ListPending(ctx context.Context) ([]*models.VettingRequest, error) {
	return s.repo.ListPending(ctx)
}

// TimeoutSweep expires pending requests older than maxAge.
func (s *VettingService) TimeoutSweep(ctx context.Context, maxAge time.Duration) (int, error) {
	pending, err := s.repo.ListPending(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-maxAge)
	expired := 0
	for _, v := range pending {
		if !v.CreatedAt.Before(cutoff) {
			continue
		}
		err := s.expire(ctx, v.ID)
		if err != nil {
			// Raced with a decision; the admin won.
			if models.CodeOf(err) == models.CodeAlreadyProcessed {
				continue
			}
			return expired, err
		}
		expired++
	}

	if expired > 0 {
		slog.InfoContext(ctx, "expired stale vetting requests", "count", expired)
	}
	return expired, nil
}

// expire times out a single pending request under the same per-request lock
// the decide path takes.
func (s *VettingService) expire(ctx context.Context, requestID string) error {
	unlock := s.locks.Lock("request:" + requestID)
	defer unlock()

	_, err := s.repo.TransitionStatus(ctx, requestID, models.VettingStatusTimeout, "system")
	return err
}

// Cleanup reclaims terminal requests past the retention window. Any deferred
// channel deletion still pending for a reclaimed request is cancelled with it.
func (s *VettingService) Cleanup(ctx context.Context) (int, error) {
	removed, err := s.repo.Cleanup(ctx, VettingRetention)
	if err != nil {
		return 0, err
	}
	for _, id := range removed {
		s.deferrer.Cancel("vetting-channel:" + id)
	}
	cleaned := len(removed)
	observability.CleanupRemovals.WithLabelValues("vettings").Add(float64(cleaned))
	slog.InfoContext(ctx, "cleaned up old vetting records", "count", cleaned)
	return cleaned, nil
}

// Stats reports record counts by status.
func (s *VettingService) Stats(ctx context.Context) (map[models.VettingStatus]int, error) {
	return s.repo.CountByStatus(ctx)
}

// Size reports the number of stored vetting records.
func (s *VettingService) Size(ctx context.Context) (int, error) {
	return s.repo.Size(ctx)
}

func (s *VettingService) notify(ctx context.Context, v *models.VettingRequest, decision Decision) {
	msg := "Your age vetting request for ckey `" + v.Ckey + "` has been approved!"
	if decision == DecisionDeny {
		msg = "Your age vetting request for ckey `" + v.Ckey + "` has been denied."
	}
	if err := s.gateway.NotifyUser(ctx, v.UserID, msg); err != nil {
		slog.WarnContext(ctx, "decision notification failed", "user", v.UserID, "error", err)
	}
}

func (s *VettingService) scheduleChannelDeletion(requestID, channelID string, delay time.Duration) {
	s.deferrer.Defer("vetting-channel:"+requestID, delay, func() {
		if err := s.gateway.DeleteChannel(context.Background(), channelID); err != nil {
			// The channel may already be gone; tolerated.
			observability.DeferredDeletions.WithLabelValues("missing").Inc()
			slog.Warn("deferred vetting channel deletion failed", "channel", channelID, "error", err)
			return
		}
		observability.DeferredDeletions.WithLabelValues("deleted").Inc()
	})
}

func deletionDelay(decision Decision) time.Duration {
	if decision == DecisionDeny {
		return denyDeleteDelay
	}
	return approveDeleteDelay
}

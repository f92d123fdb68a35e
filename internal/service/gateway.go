// Package service implements the vetting and commission state machines.
package service

import (
	"context"
	"sync"

	"github.com/Monkestation/Veyra-Vet/internal/models"
)

// Actor identifies the user performing an operation and whether they hold
// the admin role.
type Actor struct {
	ID      string
	IsAdmin bool
}

// VettingGateway is the chat-platform capability the vetting machine consumes.
type VettingGateway interface {
	// CreateVettingChannel provisions a private channel visible to the
	// requester and the admin role, returning its id.
	CreateVettingChannel(ctx context.Context, userID, ckey string) (string, error)
	// PostVettingPrompt posts the decision prompt with approve/deny
	// controls into the vetting channel.
	PostVettingPrompt(ctx context.Context, channelID string, v *models.VettingRequest) error
	// NotifyUser sends a direct message. Callers treat failures as
	// best-effort.
	NotifyUser(ctx context.Context, userID, message string) error
	DeleteChannel(ctx context.Context, channelID string) error
}

// CommissionGateway is the chat-platform capability the commission machine
// consumes.
type CommissionGateway interface {
	CreateCommissionChannel(ctx context.Context, userID, name string) (string, error)
	CreateArtworkThread(ctx context.Context, channelID string) (string, error)
	// PostCommissionStatus posts and pins the status display.
	PostCommissionStatus(ctx context.Context, c *models.Commission) error
	// RefreshCommissionStatus re-renders the pinned status display from
	// the fresh record. Callers treat failures as best-effort.
	RefreshCommissionStatus(ctx context.Context, c *models.Commission) error
	PostClosureNotice(ctx context.Context, c *models.Commission) error
	RenameChannel(ctx context.Context, channelID, name string) error
	DeleteChannel(ctx context.Context, channelID string) error
}

// keyedMutex serializes mutations per entity key, closing the window where
// two in-flight interactions could both pass a read-then-write check.
// Entries are refcounted and dropped once the last holder unlocks, so the
// map does not grow with every user and request id ever seen.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock acquires the mutex for key and returns its unlock function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// Package models contains data structures for the bot's domain entities.
package models

import (
	"fmt"
	"time"
)

// VettingStatus represents the lifecycle state of a vetting request.
type VettingStatus string

const (
	// VettingStatusPending indicates a request awaiting an admin decision.
	VettingStatusPending VettingStatus = "pending"
	// VettingStatusApproved indicates an approved request. Terminal.
	VettingStatusApproved VettingStatus = "approved"
	// VettingStatusDenied indicates a denied request. Terminal.
	VettingStatusDenied VettingStatus = "denied"
	// VettingStatusTimeout indicates a request that expired unprocessed. Terminal.
	VettingStatusTimeout VettingStatus = "timeout"
)

// Terminal reports whether no further transition is permitted from s.
func (s VettingStatus) Terminal() bool {
	return s == VettingStatusApproved || s == VettingStatusDenied || s == VettingStatusTimeout
}

// VettingRequest represents one age-vetting request from creation to resolution.
type VettingRequest struct {
	ID          string        `json:"id"`
	UserID      string        `json:"userId"`
	Ckey        string        `json:"ckey"`
	ChannelID   string        `json:"channelId"`
	Status      VettingStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	ProcessedBy string        `json:"processedBy,omitempty"`
	ProcessedAt *time.Time    `json:"processedAt,omitempty"`
}

// Touch refreshes the diagnostic updatedAt timestamp.
func (v *VettingRequest) Touch(t time.Time) { v.UpdatedAt = t }

// NewVettingRequest builds a pending request with a freshly minted id.
// Nanosecond resolution keeps ids unique under rapid repeated requests
// from the same user.
func NewVettingRequest(userID, ckey, channelID string, now time.Time) *VettingRequest {
	return &VettingRequest{
		ID:        fmt.Sprintf("%s-%d", userID, now.UnixNano()),
		UserID:    userID,
		Ckey:      ckey,
		ChannelID: channelID,
		Status:    VettingStatusPending,
		CreatedAt: now,
	}
}

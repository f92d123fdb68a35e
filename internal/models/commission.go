package models

import (
	"fmt"
	"time"
)

// CommissionStatus represents the lifecycle state of a commission channel.
type CommissionStatus string

const (
	// CommissionStatusActive indicates an open commission channel.
	CommissionStatusActive CommissionStatus = "active"
	// CommissionStatusInactive indicates a closed commission. Terminal;
	// there is no reactivation.
	CommissionStatusInactive CommissionStatus = "inactive"
)

// Commission represents an art commission channel and its rep roster.
type Commission struct {
	ID              string           `json:"id"`
	CreatorID       string           `json:"creatorId"`
	ChannelID       string           `json:"channelId"`
	ChannelName     string           `json:"channelName"`
	ArtworkThreadID string           `json:"artworkThreadId"`
	Reps            []string         `json:"reps"`
	Status          CommissionStatus `json:"status"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// Touch refreshes the diagnostic updatedAt timestamp.
func (c *Commission) Touch(t time.Time) { c.UpdatedAt = t }

// HasRep reports whether userID is on the rep roster.
func (c *Commission) HasRep(userID string) bool {
	for _, id := range c.Reps {
		if id == userID {
			return true
		}
	}
	return false
}

// NewCommission builds an active commission with an empty rep roster.
func NewCommission(creatorID, channelID, channelName, artworkThreadID string, now time.Time) *Commission {
	return &Commission{
		ID:              fmt.Sprintf("%s-%d", creatorID, now.UnixNano()),
		CreatorID:       creatorID,
		ChannelID:       channelID,
		ChannelName:     channelName,
		ArtworkThreadID: artworkThreadID,
		Reps:            []string{},
		Status:          CommissionStatusActive,
		CreatedAt:       now,
	}
}

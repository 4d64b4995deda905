package models

import (
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation holds exactly two participants, optionally scoped to a job
// posting. Identity is the unordered participant pair plus the job scope:
// the conversations collection carries a unique compound index on
// (pair_key, job_id), where pair_key is the sorted pair joined with ":".
type Conversation struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Participants  []string           `bson:"participants" json:"participants"`
	PairKey       string             `bson:"pair_key" json:"-"`
	JobID         string             `bson:"job_id" json:"job_id,omitempty"`
	LastMessageID primitive.ObjectID `bson:"last_message_id,omitempty" json:"last_message_id,omitempty"`
	LastMessageAt time.Time          `bson:"last_message_at,omitempty" json:"last_message_at,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

// PairKey normalizes an unordered user pair into a deterministic key.
func PairKey(a, b string) string {
	p := []string{a, b}
	sort.Strings(p)
	return strings.Join(p, ":")
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the first participant that is not userID.
func (c *Conversation) OtherParticipant(userID string) string {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

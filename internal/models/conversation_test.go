package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPairKeyOrderIndependent(t *testing.T) {
	assert.Equal(t, PairKey("u1", "u2"), PairKey("u2", "u1"))
	assert.Equal(t, "u1:u2", PairKey("u2", "u1"))
	assert.NotEqual(t, PairKey("u1", "u2"), PairKey("u1", "u3"))
}

func TestParticipantHelpers(t *testing.T) {
	c := &Conversation{Participants: []string{"u1", "u2"}}

	assert.True(t, c.HasParticipant("u1"))
	assert.True(t, c.HasParticipant("u2"))
	assert.False(t, c.HasParticipant("u3"))

	assert.Equal(t, "u2", c.OtherParticipant("u1"))
	assert.Equal(t, "u1", c.OtherParticipant("u2"))
	assert.Equal(t, "u1", c.OtherParticipant("u3"), "first participant wins for non-members")
}

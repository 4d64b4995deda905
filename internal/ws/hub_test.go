package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(socketID, userID string) *Client {
	// nil conn is fine: Send only touches the buffered channel
	return NewClient(nil, socketID, userID)
}

func drain(t *testing.T, c *Client) []map[string]any {
	t.Helper()
	var out []map[string]any
	for {
		select {
		case b := <-c.send:
			var m map[string]any
			require.NoError(t, json.Unmarshal(b, &m))
			out = append(out, m)
		default:
			return out
		}
	}
}

func TestHub_BroadcastRoomTargetsMembersOnly(t *testing.T) {
	h := NewHub()
	a := newTestClient("s1", "u1")
	b := newTestClient("s2", "u2")
	outsider := newTestClient("s3", "u3")
	h.Register(a)
	h.Register(b)
	h.Register(outsider)
	h.JoinRoom("conv1", a)
	h.JoinRoom("conv1", b)

	h.BroadcastRoom("conv1", map[string]any{"type": "message"}, "")

	assert.Len(t, drain(t, a), 1)
	assert.Len(t, drain(t, b), 1)
	assert.Empty(t, drain(t, outsider))
}

func TestHub_BroadcastRoomExceptSender(t *testing.T) {
	h := NewHub()
	a := newTestClient("s1", "u1")
	b := newTestClient("s2", "u2")
	h.Register(a)
	h.Register(b)
	h.JoinRoom("conv1", a)
	h.JoinRoom("conv1", b)

	h.BroadcastRoom("conv1", map[string]any{"type": "typing"}, "s1")

	assert.Empty(t, drain(t, a), "typing must not echo back to the sender")
	assert.Len(t, drain(t, b), 1)
}

func TestHub_SendToUserReachesAllSockets(t *testing.T) {
	h := NewHub()
	phone := newTestClient("s1", "u1")
	laptop := newTestClient("s2", "u1")
	h.Register(phone)
	h.Register(laptop)

	h.SendToUser("u1", map[string]any{"type": "conversation.created"})

	assert.Len(t, drain(t, phone), 1)
	assert.Len(t, drain(t, laptop), 1)
}

func TestHub_MultipleRoomMembership(t *testing.T) {
	h := NewHub()
	a := newTestClient("s1", "u1")
	h.Register(a)
	h.JoinRoom("conv1", a)
	h.JoinRoom("conv2", a)

	assert.True(t, h.InRoom("conv1", "s1"))
	assert.True(t, h.InRoom("conv2", "s1"))

	h.LeaveRoom("conv1", a)
	assert.False(t, h.InRoom("conv1", "s1"))
	assert.True(t, h.InRoom("conv2", "s1"))
}

func TestHub_UnregisterRemovesEverywhere(t *testing.T) {
	h := NewHub()
	a := newTestClient("s1", "u1")
	b := newTestClient("s2", "u2")
	h.Register(a)
	h.Register(b)
	h.JoinRoom("conv1", a)
	h.JoinRoom("conv1", b)
	h.JoinRoom("conv2", a)

	h.Unregister(a)

	assert.False(t, h.IsOnline("u1"))
	assert.True(t, h.IsOnline("u2"))
	assert.False(t, h.InRoom("conv1", "s1"))
	assert.False(t, h.InRoom("conv2", "s1"))

	h.BroadcastRoom("conv1", map[string]any{"type": "message"}, "")
	assert.Empty(t, drain(t, a))
	assert.Len(t, drain(t, b), 1)
}

func TestHub_IsOnlineTracksLastSocket(t *testing.T) {
	h := NewHub()
	phone := newTestClient("s1", "u1")
	laptop := newTestClient("s2", "u1")
	h.Register(phone)
	h.Register(laptop)
	require.True(t, h.IsOnline("u1"))

	h.Unregister(phone)
	assert.True(t, h.IsOnline("u1"), "still online via the second socket")

	h.Unregister(laptop)
	assert.False(t, h.IsOnline("u1"))
}

func TestClient_SendDropsWhenBufferFull(t *testing.T) {
	c := newTestClient("s1", "u1")
	for i := 0; i < 300; i++ {
		c.Send(map[string]any{"i": i})
	}
	// buffer is 256; the rest were dropped, nothing blocked
	assert.Len(t, drain(t, c), 256)
}

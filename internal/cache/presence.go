package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PresenceStore tracks which users hold live connections so the query
// surface (and other instances) can answer online-presence lookups.
// Keys:
//   <prefix>:conn:<userID>     - set of socket ids
//   <prefix>:presence:<userID> - json {status,last_seen}
type PresenceStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

type Presence struct {
	Status   string `json:"status"`
	LastSeen int64  `json:"last_seen"`
}

func NewPresenceStore(client *redis.Client, prefix string, ttl time.Duration) *PresenceStore {
	return &PresenceStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *PresenceStore) connKey(userID string) string {
	return fmt.Sprintf("%s:conn:%s", s.prefix, userID)
}

func (s *PresenceStore) presenceKey(userID string) string {
	return fmt.Sprintf("%s:presence:%s", s.prefix, userID)
}

// AddConnection registers a socket for userID and marks them online.
func (s *PresenceStore) AddConnection(ctx context.Context, userID, socketID string) error {
	if err := s.client.SAdd(ctx, s.connKey(userID), socketID).Err(); err != nil {
		return err
	}
	_ = s.client.Expire(ctx, s.connKey(userID), s.ttl).Err()
	return s.setPresence(ctx, userID, "online")
}

// RemoveConnection drops a socket; the user goes offline when their last
// socket disappears.
func (s *PresenceStore) RemoveConnection(ctx context.Context, userID, socketID string) error {
	if err := s.client.SRem(ctx, s.connKey(userID), socketID).Err(); err != nil {
		return err
	}
	n, err := s.client.SCard(ctx, s.connKey(userID)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return s.setPresence(ctx, userID, "offline")
	}
	return nil
}

func (s *PresenceStore) setPresence(ctx context.Context, userID, status string) error {
	b, _ := json.Marshal(Presence{Status: status, LastSeen: time.Now().Unix()})
	return s.client.Set(ctx, s.presenceKey(userID), b, s.ttl).Err()
}

// Get returns the stored presence; a missing key reads as offline.
func (s *PresenceStore) Get(ctx context.Context, userID string) (*Presence, error) {
	b, err := s.client.Get(ctx, s.presenceKey(userID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return &Presence{Status: "offline"}, nil
		}
		return nil, err
	}
	var p Presence
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

package session

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	mirrorSetKey    = "relay:sessions"
	mirrorOpTimeout = 500 * time.Millisecond
)

// Mirror publishes the active-session set to Redis so other services can see
// which calls this relay is carrying. It is best effort: the registry stays
// correct when Redis is down, and nothing is read back on restart.
type Mirror struct {
	client *redis.Client
	ttl    time.Duration
}

// NewMirror wraps an already-connected Redis client. ttl bounds how long a
// mirrored entry survives a relay that died without cleaning up.
func NewMirror(client *redis.Client, ttl time.Duration) *Mirror {
	return &Mirror{client: client, ttl: ttl}
}

// Add records the session in the mirror set and stores its metadata.
func (m *Mirror) Add(s Session) error {
	ctx, cancel := context.WithTimeout(context.Background(), mirrorOpTimeout)
	defer cancel()

	pipe := m.client.Pipeline()
	pipe.SAdd(ctx, mirrorSetKey, s.ID)
	pipe.Expire(ctx, mirrorSetKey, m.ttl)
	pipe.HSet(ctx, "relay:session:"+s.ID,
		"room_id", s.RoomID,
		"created_at", strconv.FormatInt(s.CreatedAt.Unix(), 10),
	)
	pipe.Expire(ctx, "relay:session:"+s.ID, m.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Remove drops the session from the mirror set.
func (m *Mirror) Remove(sessionID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), mirrorOpTimeout)
	defer cancel()

	pipe := m.client.Pipeline()
	pipe.SRem(ctx, mirrorSetKey, sessionID)
	pipe.Del(ctx, "relay:session:"+sessionID)
	_, err := pipe.Exec(ctx)
	return err
}

package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	"github.com/acme/chat-webhook-gateway/internal/config"
)

// Store tracks chat widget sessions in Redis. A session exists while its key
// lives; every exchange refreshes the TTL.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewStore constructs a session store.
func NewStore(client *redis.Client, cfg config.SessionConfig) *Store {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "chatgw:session"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

// Ensure returns the session id, minting a new one when blank, and refreshes
// the session's TTL.
func (s *Store) Ensure(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if err := s.client.Set(ctx, s.key(sessionID), time.Now().UTC().Format(time.RFC3339), s.ttl).Err(); err != nil {
		return sessionID, fmt.Errorf("session store: ensure: %w", err)
	}
	return sessionID, nil
}

// Count reports how many sessions are currently live.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var (
		cursor uint64
		total  int64
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+":*", 256).Result()
		if err != nil {
			return 0, fmt.Errorf("session store: scan: %w", err)
		}
		total += int64(len(keys))
		cursor = next
		if cursor == 0 {
			return total, nil
		}
	}
}

func (s *Store) key(sessionID string) string {
	return fmt.Sprintf("%s:%s", s.prefix, sessionID)
}

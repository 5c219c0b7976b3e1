package redis

import (
	"context"
	"fmt"

	"github.com/go-redis/redis"
	"github.com/krancour/cloudbalance/session"
	"github.com/pkg/errors"
)

// SessionStorage is a session.Storage that keeps each session key in its own
// Redis string. Saves replace all keys inside one MULTI/EXEC transaction and
// loads read them with a single MGET, so a session is never observed half
// written.
type SessionStorage struct {
	redisClient *redis.Client
	keys        []string
}

// NewSessionStorage returns a SessionStorage whose keys all begin with the
// given prefix.
func NewSessionStorage(
	redisClient *redis.Client,
	prefix string,
) *SessionStorage {
	keys := make([]string, len(session.Keys))
	for i, key := range session.Keys {
		keys[i] = redisKey(prefix, key)
	}
	return &SessionStorage{
		redisClient: redisClient,
		keys:        keys,
	}
}

func (s *SessionStorage) Load(ctx context.Context) (session.Snapshot, error) {
	values, err := s.redisClient.WithContext(ctx).MGet(s.keys...).Result()
	if err != nil {
		return session.Snapshot{},
			errors.Wrap(err, "error reading session from redis")
	}
	entries := map[string]string{}
	for i, value := range values {
		if str, ok := value.(string); ok {
			entries[session.Keys[i]] = str
		}
	}
	return session.SnapshotFromEntries(entries)
}

func (s *SessionStorage) Save(
	ctx context.Context,
	snap session.Snapshot,
) error {
	entries, err := snap.Entries()
	if err != nil {
		return err
	}
	_, err = s.redisClient.WithContext(ctx).TxPipelined(
		func(pipe redis.Pipeliner) error {
			for i, key := range session.Keys {
				if value, ok := entries[key]; ok {
					pipe.Set(s.keys[i], value, 0)
				} else {
					pipe.Del(s.keys[i])
				}
			}
			return nil
		},
	)
	return errors.Wrap(err, "error writing session to redis")
}

func (s *SessionStorage) Clear(ctx context.Context) error {
	err := s.redisClient.WithContext(ctx).Del(s.keys...).Err()
	return errors.Wrap(err, "error deleting session from redis")
}

func redisKey(prefix, key string) string {
	if prefix == "" {
		return fmt.Sprintf("session:%s", key)
	}
	return fmt.Sprintf("%s:session:%s", prefix, key)
}

// Package cache implements the short-TTL recent-items store on redis. Each
// kind keeps an ordered list of synthesized entry ids (newest first, capped)
// plus one key per entry holding the serialized payload. The list and the
// per-entry keys may drift when a key expires before its list slot is
// trimmed; readers tolerate that by skipping nulls.
package cache

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	// RecentListLimit is N, the per-kind bound of the recency list.
	RecentListLimit = 10

	// EntryTTL applies to every item key and is refreshed on the list on
	// every insert.
	EntryTTL = 7 * 24 * time.Hour

	keyPrefix = "webhook"
)

type RecentStore struct {
	inner *redis.Client
}

// NewRecentStore connects to redis using REDIS_HOST/REDIS_PORT/REDIS_PASSWD
// and verifies the connection.
func NewRecentStore(ctx context.Context) (*RecentStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT")),
		Password: os.Getenv("REDIS_PASSWD"),
		DB:       0, // use default DB
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, err
	}
	return &RecentStore{inner: client}, nil
}

// NewCustomRecentStore wraps an existing client. Used in tests.
func NewCustomRecentStore(client *redis.Client) *RecentStore {
	return &RecentStore{inner: client}
}

// SynthesizeId returns the per-entry cache key id for an external id. The
// random suffix lets duplicate raw ids coexist in the key space while the
// list itself stays deduplicated.
func SynthesizeId(externalId string) string {
	return externalId + "_" + uuid.New().String()
}

// rawId strips the synthesized uuid suffix. External ids may themselves
// contain underscores, so this trims a fixed-length suffix rather than
// splitting.
func rawId(synthesized string) string {
	const suffixLen = 1 + 36 // "_" + uuid
	if len(synthesized) <= suffixLen {
		return synthesized
	}
	return synthesized[:len(synthesized)-suffixLen]
}

func itemKey(kind string, itemId string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, kind, itemId)
}

func listKey(kind string) string {
	return fmt.Sprintf("%s:%s:list", keyPrefix, kind)
}

// Store inserts the payload under the synthesized itemId at the head of the
// kind's list: existing entries with the same raw id are removed first, the
// list is trimmed to the bound (evicted tails lose their item key too), and
// both TTLs are set.
func (s *RecentStore) Store(ctx context.Context, kind string, itemId string, payload []byte) error {
	if err := s.inner.Set(ctx, itemKey(kind, itemId), payload, EntryTTL).Err(); err != nil {
		return err
	}

	// Deduplicate by raw id.
	existing, err := s.inner.LRange(ctx, listKey(kind), 0, -1).Result()
	if err != nil {
		return err
	}
	raw := rawId(itemId)
	for _, id := range existing {
		if id != itemId && rawId(id) == raw {
			s.inner.LRem(ctx, listKey(kind), 0, id)
			s.inner.Del(ctx, itemKey(kind, id))
		}
	}

	if err := s.inner.LPush(ctx, listKey(kind), itemId).Err(); err != nil {
		return err
	}

	// Trim: pop tails beyond the bound and drop their item keys.
	length, err := s.inner.LLen(ctx, listKey(kind)).Result()
	if err != nil {
		return err
	}
	for length > RecentListLimit {
		tail, err := s.inner.RPop(ctx, listKey(kind)).Result()
		if err != nil {
			break
		}
		s.inner.Del(ctx, itemKey(kind, tail))
		length--
	}

	return s.inner.Expire(ctx, listKey(kind), EntryTTL).Err()
}

// Get returns the payload for the synthesized itemId, or nil on miss.
func (s *RecentStore) Get(ctx context.Context, kind string, itemId string) ([]byte, error) {
	res, err := s.inner.Get(ctx, itemKey(kind, itemId)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Recent returns up to min(limit, N) payloads in list order, newest first,
// skipping entries whose item key has expired.
func (s *RecentStore) Recent(ctx context.Context, kind string, limit int) ([][]byte, error) {
	if limit > RecentListLimit {
		limit = RecentListLimit
	}

	ids, err := s.inner.LRange(ctx, listKey(kind), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	payloads := [][]byte{}
	for _, id := range ids {
		if len(payloads) == limit {
			break
		}
		payload, err := s.Get(ctx, kind, id)
		if err != nil {
			return nil, err
		}
		if payload == nil {
			continue
		}
		payloads = append(payloads, payload)
	}
	return payloads, nil
}

// Clear removes one entry and its list slot.
func (s *RecentStore) Clear(ctx context.Context, kind string, itemId string) error {
	if err := s.inner.Del(ctx, itemKey(kind, itemId)).Err(); err != nil {
		return err
	}
	return s.inner.LRem(ctx, listKey(kind), 0, itemId).Err()
}

// ClearAll removes every entry referenced by the kind's list, then the list.
func (s *RecentStore) ClearAll(ctx context.Context, kind string) error {
	ids, err := s.inner.LRange(ctx, listKey(kind), 0, -1).Result()
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.inner.Del(ctx, itemKey(kind, id)).Err(); err != nil {
			return err
		}
	}
	return s.inner.Del(ctx, listKey(kind)).Err()
}

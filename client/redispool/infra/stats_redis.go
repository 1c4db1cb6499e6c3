package infra

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"kvpool/client/redispool/domain"

	"github.com/redis/go-redis/v9"
)

// RedisStatsStore grava contadores de eventos de reconexão em hashes do Redis.
//
// Use um cliente separado do pool monitorado: se o servidor cair, a gravação
// falha junto e é descartada (best-effort).
type RedisStatsStore struct {
	rdb redis.Cmdable

	prefix string
	// ttl aplica apenas em chaves de série temporal / por slot.
	// total é cumulativo e não expira.
	ttl time.Duration

	bucket string // "minute" (padrão) ou "none"

	trackSlots bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func WithStatsTrackSlots(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackSlots = track }
}

func NewRedisStatsStore(rdb redis.Cmdable, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "redispool:stats",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStatsStore) Prefix() string { return s.prefix }

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.Event) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	field := string(ev.Kind)

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)

	if s.bucket == "minute" {
		bucketKey := fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
		pipe.HIncrBy(ctx, bucketKey, field, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, bucketKey, s.ttl)
		}
	}

	if s.trackSlots {
		slotKey := s.prefix + ":slot:" + strconv.Itoa(ev.Slot)
		pipe.HIncrBy(ctx, slotKey, field, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, slotKey, s.ttl)
		}
	}

	if ev.Kind == domain.EventWait && ev.Delay > 0 {
		pipe.HIncrBy(ctx, s.prefix+":total", "wait_ms", ev.Delay.Milliseconds())
	}

	_, err := pipe.Exec(ctx)
	return err
}

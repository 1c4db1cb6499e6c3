package redispool

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"kvpool/client/redispool/domain"
	"kvpool/client/redispool/infra"

	"github.com/alecthomas/assert/v2"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func redisOptions(addr string) *redis.Options {
	return &redis.Options{Addr: addr, Protocol: 2, DisableIdentity: true}
}

func newTestPool(t *testing.T, m *miniredis.Miniredis, opts Options) (*Pool, *infra.MemoryStatsStore) {
	t.Helper()
	stats := infra.NewMemoryStatsStore(infra.WithTrackSlots(true))
	opts.Stats = stats
	p, err := NewRedis(context.Background(), redisOptions(m.Addr()), opts)
	assert.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p, stats
}

func TestNewRedis_SetThenGet(t *testing.T) {
	m := miniredis.RunT(t)
	p, _ := newTestPool(t, m, Options{Conns: Fixed(2)})
	ctx := context.Background()

	assert.NoError(t, p.Do(ctx, "SET", "hello", "Bonjour le monde").Err())
	v, err := p.Do(ctx, "GET", "hello").Text()
	assert.NoError(t, err)
	assert.Equal(t, "Bonjour le monde", v)

	get := redis.NewStringCmd(ctx, "get", "hello")
	assert.NoError(t, p.Process(ctx, get))
	assert.Equal(t, "Bonjour le monde", get.Val())
}

func TestNewRedis_TransparentReconnectAfterDrop(t *testing.T) {
	m := miniredis.RunT(t)
	p, stats := newTestPool(t, m, Options{Conns: Fixed(2), Policy: domain.InstantRetry{}})
	ctx := context.Background()

	assert.NoError(t, p.Do(ctx, "SET", "key", "value").Err())
	v, err := p.Do(ctx, "GET", "key").Text()
	assert.NoError(t, err)
	assert.Equal(t, "value", v)

	// derruba todas as conexões; os dados sobrevivem ao restart
	m.Close()
	assert.NoError(t, m.Restart())

	v, err = p.Do(ctx, "GET", "key").Text()
	assert.NoError(t, err)
	assert.Equal(t, "value", v)
	assert.Equal(t, int64(1), stats.Count(domain.EventReconnect))
	assert.Equal(t, int64(1), stats.Count(domain.EventRecovered))
	assert.Equal(t, int64(1), stats.BySlot()[0][domain.EventReconnect])

	v, err = p.Do(ctx, "GET", "key").Text()
	assert.NoError(t, err)
	assert.Equal(t, "value", v)
	assert.Equal(t, int64(2), stats.Count(domain.EventReconnect))
	assert.Equal(t, int64(0), stats.Count(domain.EventGaveUp))
}

func TestNewRedis_NoReconnectSurfacesNetworkError(t *testing.T) {
	m := miniredis.RunT(t)
	p, stats := newTestPool(t, m, Options{Conns: Fixed(1), Policy: domain.NoReconnect{}})
	ctx := context.Background()

	assert.NoError(t, p.Do(ctx, "PING").Err())
	m.Close()
	assert.NoError(t, m.Restart())

	cmd := p.Do(ctx, "GET", "key")
	assert.True(t, domain.IsNetwork(cmd.Err()), "expected network error, got %v", cmd.Err())
	assert.Equal(t, int64(0), stats.Count(domain.EventReconnect))
}

func TestNewRedis_ApplicationErrorsNeverReconnect(t *testing.T) {
	m := miniredis.RunT(t)
	p, stats := newTestPool(t, m, Options{Conns: Fixed(2), Policy: domain.Infinite{}})
	ctx := context.Background()

	assert.NoError(t, p.Do(ctx, "SET", "word", "abc").Err())

	_, err := p.Do(ctx, "GET", "word").Int64()
	assert.Error(t, err)

	err = p.Do(ctx, "INCR", "word").Err()
	assert.Error(t, err)
	assert.False(t, domain.IsNetwork(err))

	_, err = p.Do(ctx, "GET", "missing").Text()
	assert.IsError(t, err, redis.Nil)

	assert.Equal(t, int64(0), stats.Count(domain.EventNetworkError))
	assert.Equal(t, int64(0), stats.Count(domain.EventReconnect))
}

func TestNewRedis_Pipelined(t *testing.T) {
	m := miniredis.RunT(t)
	p, _ := newTestPool(t, m, Options{Conns: Fixed(1)})
	ctx := context.Background()

	cmds, err := p.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, "a", "1", 0)
		pipe.IncrBy(ctx, "a", 41)
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, len(cmds))
	assert.Equal(t, int64(42), cmds[1].(*redis.IntCmd).Val())
}

func TestNewRedis_PipelinedReplaysAfterDrop(t *testing.T) {
	m := miniredis.RunT(t)
	p, stats := newTestPool(t, m, Options{Conns: Fixed(1), Policy: domain.InstantRetry{}})
	ctx := context.Background()

	assert.NoError(t, p.Do(ctx, "PING").Err())
	m.Close()
	assert.NoError(t, m.Restart())

	calls := 0
	cmds, err := p.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		calls++
		pipe.Set(ctx, "a", "1", 0)
		pipe.IncrBy(ctx, "a", 41)
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, len(cmds))
	assert.Equal(t, int64(42), cmds[1].(*redis.IntCmd).Val())
	assert.Equal(t, int64(1), stats.Count(domain.EventReconnect))

	v, err := p.Do(ctx, "GET", "a").Text()
	assert.NoError(t, err)
	assert.Equal(t, "42", v)
}

func TestNewRedis_ConcurrentCallers(t *testing.T) {
	m := miniredis.RunT(t)
	p, _ := newTestPool(t, m, Options{Conns: Fixed(4)})
	ctx := context.Background()

	const callers = 64
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Do(ctx, "INCR", "hits").Err()
		}()
	}
	wg.Wait()

	got, err := m.Get("hits")
	assert.NoError(t, err)
	assert.Equal(t, strconv.Itoa(callers), got)
}

func TestNewRedis_CloseRejectsCommands(t *testing.T) {
	m := miniredis.RunT(t)
	p, err := NewRedis(context.Background(), redisOptions(m.Addr()), Options{Conns: Fixed(2)})
	assert.NoError(t, err)

	assert.NoError(t, p.Close())
	assert.IsError(t, p.Do(context.Background(), "PING").Err(), domain.ErrPoolClosed)
}

func TestNewRedis_UnreachableServerFailsBuild(t *testing.T) {
	m := miniredis.RunT(t)
	addr := m.Addr()
	m.Close()

	p, err := NewRedis(context.Background(), redisOptions(addr), Options{Conns: Fixed(3)})
	var be *domain.BuildError
	assert.True(t, errors.As(err, &be), "expected BuildError, got %v", err)
	assert.True(t, domain.IsNetwork(err))
	assert.Zero(t, p)
}

func TestNewRedis_ZeroConnsFailsBuild(t *testing.T) {
	m := miniredis.RunT(t)
	p, err := NewRedis(context.Background(), redisOptions(m.Addr()), Options{Conns: Fixed(0)})
	assert.IsError(t, err, domain.ErrInvalidConnsCount)
	assert.Zero(t, p)
}

package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"kvpool/client/redispool"
	"kvpool/client/redispool/domain"

	"github.com/redis/go-redis/v9"
)

type config struct {
	listenAddr     string
	requestTimeout time.Duration

	redisAddr     string
	redisPassword string
	redisDB       int

	conns          redispool.ConnsCount
	policy         domain.Policy
	reconnectRPS   float64
	reconnectBurst int

	statsBackend   string
	statsRedisAddr string
	statsPrefix    string
	statsTTL       time.Duration
}

func (c config) redisOptions() *redis.Options {
	return &redis.Options{
		Addr:     c.redisAddr,
		Password: c.redisPassword,
		DB:       c.redisDB,
	}
}

// statsRedisOptions aponta para POOL_STATS_REDIS_ADDR. Se for o mesmo servidor
// do pool, uma queda também atrasa (até o timeout de stats) cada evento.
func (c config) statsRedisOptions() *redis.Options {
	opt := c.redisOptions()
	opt.Addr = c.statsRedisAddr
	return opt
}

func readConfig() (config, error) {
	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.requestTimeout = getenvDurationDefault("REQUEST_TIMEOUT", 5*time.Second)

	cfg.redisAddr = getenvDefault("REDIS_ADDR", "127.0.0.1:6379")
	cfg.redisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.redisDB = getenvIntDefault("REDIS_DB", 0)

	// POOL_CONNS tem prioridade sobre POOL_CONNS_PER_CPU.
	if n, ok := getenvInt("POOL_CONNS"); ok {
		cfg.conns = redispool.Fixed(n)
	} else if m, ok := getenvInt("POOL_CONNS_PER_CPU"); ok {
		cfg.conns = redispool.PerCPU(m)
	}

	policy, err := parsePolicy(
		getenvDefault("POOL_RECONNECT", "instant"),
		getenvDurationDefault("POOL_RETRY_DELAY", domain.DefaultRetryDelay),
		getenvBoolDefault("POOL_INSTANT_RETRY", true),
		os.Getenv("POOL_RETRY_DELAYS"),
	)
	if err != nil {
		return config{}, err
	}
	cfg.policy = policy

	cfg.reconnectRPS = getenvFloatDefault("POOL_RECONNECT_RPS", 0)
	cfg.reconnectBurst = getenvIntDefault("POOL_RECONNECT_BURST", 1)

	cfg.statsBackend = strings.ToLower(getenvDefault("POOL_STATS", "memory"))
	cfg.statsRedisAddr = getenvDefault("POOL_STATS_REDIS_ADDR", cfg.redisAddr)
	cfg.statsPrefix = getenvDefault("POOL_STATS_PREFIX", "redispool:stats")
	cfg.statsTTL = getenvDurationDefault("POOL_STATS_TTL", 24*time.Hour)

	if _, err := cfg.conns.Resolve(); err != nil {
		return config{}, fmt.Errorf("POOL_CONNS: %w", err)
	}
	switch cfg.statsBackend {
	case "memory", "redis", "none":
	default:
		return config{}, errors.New("POOL_STATS must be one of memory|redis|none")
	}
	if cfg.requestTimeout <= 0 {
		return config{}, errors.New("REQUEST_TIMEOUT must be > 0")
	}
	return cfg, nil
}

// parsePolicy: none | instant | retry-wait-retry | custom | infinite.
func parsePolicy(name string, delay time.Duration, instant bool, delays string) (domain.Policy, error) {
	var p domain.Policy
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "none", "no-reconnect":
		p = domain.NoReconnect{}
	case "instant", "instant-retry", "":
		p = domain.InstantRetry{}
	case "retry-wait-retry":
		p = domain.RetryWaitRetry{Delay: delay}
	case "infinite":
		p = domain.Infinite{Delay: delay}
	case "custom":
		ds, err := parseDurations(delays)
		if err != nil {
			return nil, fmt.Errorf("POOL_RETRY_DELAYS: %w", err)
		}
		p = domain.Custom{InstantRetry: instant, Delays: ds}
	default:
		return nil, fmt.Errorf("POOL_RECONNECT: unknown policy %q", name)
	}
	if err := domain.ValidatePolicy(p); err != nil {
		return nil, err
	}
	return p, nil
}

func parseDurations(s string) ([]time.Duration, error) {
	var out []time.Duration
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := time.ParseDuration(part)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	if i, ok := getenvInt(k); ok {
		return i
	}
	return def
}

func getenvInt(k string) (int, bool) {
	v, ok := os.LookupEnv(k)
	if !ok || v == "" {
		return 0, false
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return i, true
}

func getenvFloatDefault(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

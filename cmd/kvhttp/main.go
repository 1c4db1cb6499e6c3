package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kvpool/client/redispool"
	"kvpool/client/redispool/domain"
	"kvpool/client/redispool/infra"

	"github.com/redis/go-redis/v9"
)

const maxValueBytes = 1 << 20

func main() {
	cfg, err := readConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)

	var (
		stats    domain.StatsStore
		memStats *infra.MemoryStatsStore
	)
	switch cfg.statsBackend {
	case "memory":
		memStats = infra.NewMemoryStatsStore(infra.WithTrackSlots(true))
		stats = memStats
	case "redis":
		// cliente separado: as estatísticas não passam pelo pool monitorado
		rdb := redis.NewClient(cfg.statsRedisOptions())
		defer func() { _ = rdb.Close() }()
		stats = infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.statsPrefix),
			infra.WithStatsTTL(cfg.statsTTL),
			infra.WithStatsTrackSlots(true),
		)
	}

	buildCtx, cancelBuild := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := redispool.NewRedis(buildCtx, cfg.redisOptions(), redispool.Options{
		Conns:          cfg.conns,
		Policy:         cfg.policy,
		Stats:          stats,
		Logger:         logger,
		ReconnectRPS:   cfg.reconnectRPS,
		ReconnectBurst: cfg.reconnectBurst,
	})
	cancelBuild()
	if err != nil {
		log.Fatalf("redis pool error: %v", err)
	}
	defer func() { _ = pool.Close() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           newHandler(pool, memStats, cfg.requestTimeout),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("kvhttp listening on %s -> redis %s", cfg.listenAddr, cfg.redisAddr)
	log.Printf("pool: conns=%s size=%d policy=%s", cfg.conns, pool.Size(), pool.Policy())
	log.Printf("reconnect: rps=%.3f burst=%d stats=%q", cfg.reconnectRPS, cfg.reconnectBurst, cfg.statsBackend)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}

func newHandler(pool *redispool.Pool, stats *infra.MemoryStatsStore, timeout time.Duration) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := pool.Do(ctx, "PING").Err(); err != nil {
			writeError(w, err)
			return
		}
		_, _ = io.WriteString(w, "ok\n")
	})

	mux.HandleFunc("GET /kv/{key}", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		v, err := pool.Do(ctx, "GET", r.PathValue("key")).Text()
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = io.WriteString(w, v)
	})

	mux.HandleFunc("PUT /kv/{key}", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxValueBytes+1))
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if len(body) > maxValueBytes {
			http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
			return
		}

		args := []any{"SET", r.PathValue("key"), body}
		if ttl := r.URL.Query().Get("ttl"); ttl != "" {
			d, err := time.ParseDuration(ttl)
			if err != nil || d <= 0 {
				http.Error(w, "invalid ttl", http.StatusBadRequest)
				return
			}
			args = append(args, "PX", d.Milliseconds())
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := pool.Do(ctx, args...).Err(); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("DELETE /kv/{key}", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		n, err := pool.Do(ctx, "DEL", r.PathValue("key")).Int64()
		if err != nil {
			writeError(w, err)
			return
		}
		if n == 0 {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		if stats == nil {
			http.Error(w, "stats disabled (POOL_STATS=memory)", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"size":    pool.Size(),
			"policy":  pool.Policy().String(),
			"total":   stats.Total(),
			"by_slot": stats.BySlot(),
		})
	})

	return mux
}

// writeError traduz a taxonomia de erros do pool para status HTTP.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, redis.Nil):
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	case errors.Is(err, context.DeadlineExceeded):
		http.Error(w, http.StatusText(http.StatusGatewayTimeout), http.StatusGatewayTimeout)
	case domain.IsNetwork(err), errors.Is(err, domain.ErrPoolClosed):
		log.Printf("redis unavailable: %v", err)
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusBadGateway)
	}
}

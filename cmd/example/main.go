package main

import (
	"context"
	"log"
	"os"

	"kvpool/client/redispool"

	"github.com/redis/go-redis/v9"
)

func main() {
	// Exemplo: pool com os padrões (4 conexões por CPU, InstantRetry)
	addr := "127.0.0.1:6379"
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		addr = v
	}

	ctx := context.Background()
	pool, err := redispool.NewRedis(ctx, &redis.Options{Addr: addr}, redispool.Options{})
	if err != nil {
		log.Fatalf("redis pool error: %v", err)
	}
	defer func() { _ = pool.Close() }()

	if err := pool.Do(ctx, "SET", "redispool_hello_world", "Bonjour le monde").Err(); err != nil {
		log.Fatalf("SET error: %v", err)
	}
	hello, err := pool.Do(ctx, "GET", "redispool_hello_world").Text()
	if err != nil {
		log.Fatalf("GET error: %v", err)
	}
	log.Printf("%s (pool size=%d)", hello, pool.Size())
}

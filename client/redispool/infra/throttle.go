package infra

import (
	"context"

	"kvpool/client/redispool/domain"

	"golang.org/x/time/rate"
)

// ReconnectThrottle é um token bucket (x/time/rate) compartilhado por todos os
// slots, para que uma queda do servidor não vire uma tempestade de reconexões.
type ReconnectThrottle struct {
	lim *rate.Limiter
}

// NewReconnectThrottle retorna nil (sem limite) quando rps <= 0.
// burst <= 0 vira 1.
func NewReconnectThrottle(rps float64, burst int) *ReconnectThrottle {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &ReconnectThrottle{lim: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (t *ReconnectThrottle) RPS() float64 { return float64(t.lim.Limit()) }
func (t *ReconnectThrottle) Burst() int   { return t.lim.Burst() }

// Wait implementa domain.ReconnectGate.
func (t *ReconnectThrottle) Wait(ctx context.Context) error {
	return t.lim.Wait(ctx)
}

// Gate converte para a interface do domínio sem o problema do nil tipado.
func (t *ReconnectThrottle) Gate() domain.ReconnectGate {
	if t == nil {
		return nil
	}
	return t
}

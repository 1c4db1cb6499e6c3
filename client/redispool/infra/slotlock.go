package infra

import (
	"context"

	"kvpool/client/redispool/domain"
)

type chanLock struct {
	sem chan struct{}
}

// NewSlotLock cria um lock exclusivo baseado em channel de capacidade 1.
// Diferente de sync.Mutex, a espera pode ser cancelada pelo ctx.
func NewSlotLock() domain.SlotLock {
	return &chanLock{sem: make(chan struct{}, 1)}
}

func (l *chanLock) Acquire(ctx context.Context) (func(), bool) {
	select {
	case l.sem <- struct{}{}:
		return func() { <-l.sem }, true
	case <-ctx.Done():
		return nil, false
	}
}

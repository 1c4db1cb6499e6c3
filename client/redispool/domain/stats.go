package domain

import (
	"context"
	"time"
)

type EventKind string

const (
	EventNetworkError    EventKind = "network_error"
	EventWait            EventKind = "wait"
	EventReconnect       EventKind = "reconnect"
	EventReconnectFailed EventKind = "reconnect_failed"
	EventRecovered       EventKind = "recovered"
	EventGaveUp          EventKind = "gave_up"
)

// Event representa um passo da máquina de reconexão de um slot.
type Event struct {
	Slot  int
	Kind  EventKind
	Delay time.Duration
	Err   error

	At time.Time
}

// StatsStore é a estratégia de persistência para estatísticas de reconexão.
//
// Implementações podem armazenar em Redis, memória, etc.
// O executor trata erro como best-effort (não derruba o comando).
type StatsStore interface {
	Record(ctx context.Context, ev Event) error
}

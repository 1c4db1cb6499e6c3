package domain

import (
	"fmt"
	"time"
)

// DefaultRetryDelay é a espera usada por RetryWaitRetry e Infinite quando Delay é zero.
const DefaultRetryDelay = 2 * time.Second

// Policy descreve o que fazer quando um comando falha com erro de rede.
//
// O conjunto de variantes é fechado: NoReconnect, InstantRetry, RetryWaitRetry,
// Custom e Infinite. Cada uma é compilada para um Schedule, que é o que a
// máquina de reconexão consome.
type Policy interface {
	Schedule() Schedule
	String() string
	isPolicy()
}

// NoReconnect devolve o erro de rede imediatamente.
type NoReconnect struct{}

// InstantRetry reconecta uma vez e tenta o comando de novo.
type InstantRetry struct{}

// RetryWaitRetry reconecta e tenta; se falhar de novo, espera Delay,
// reconecta e tenta uma última vez.
type RetryWaitRetry struct {
	Delay time.Duration
}

// Custom generaliza as anteriores: uma tentativa imediata opcional seguida de
// uma tentativa após cada espera de Delays, em ordem.
type Custom struct {
	InstantRetry bool
	Delays       []time.Duration
}

// Infinite reconecta para sempre, esperando Delay entre tentativas.
// Um chamador pode esperar indefinidamente; erros de rede nunca são devolvidos.
type Infinite struct {
	Delay time.Duration
}

func (NoReconnect) isPolicy()    {}
func (InstantRetry) isPolicy()   {}
func (RetryWaitRetry) isPolicy() {}
func (Custom) isPolicy()         {}
func (Infinite) isPolicy()       {}

func (NoReconnect) Schedule() Schedule  { return Schedule{} }
func (InstantRetry) Schedule() Schedule { return Schedule{Instant: true} }

func (p RetryWaitRetry) Schedule() Schedule {
	return Schedule{Instant: true, Delays: []time.Duration{orDefault(p.Delay)}}
}

func (p Custom) Schedule() Schedule {
	delays := make([]time.Duration, len(p.Delays))
	copy(delays, p.Delays)
	return Schedule{Instant: p.InstantRetry, Delays: delays}
}

func (p Infinite) Schedule() Schedule {
	return Schedule{Instant: true, Delays: []time.Duration{orDefault(p.Delay)}, Forever: true}
}

func (NoReconnect) String() string  { return "none" }
func (InstantRetry) String() string { return "instant" }

func (p RetryWaitRetry) String() string {
	return fmt.Sprintf("retry-wait-retry(%s)", orDefault(p.Delay))
}

func (p Custom) String() string {
	return fmt.Sprintf("custom(instant=%v, delays=%v)", p.InstantRetry, p.Delays)
}

func (p Infinite) String() string {
	return fmt.Sprintf("infinite(%s)", orDefault(p.Delay))
}

func orDefault(d time.Duration) time.Duration {
	if d == 0 {
		return DefaultRetryDelay
	}
	return d
}

// ValidatePolicy rejeita políticas nil e delays negativos.
func ValidatePolicy(p Policy) error {
	if p == nil {
		return fmt.Errorf("%w: nil policy", ErrInvalidPolicy)
	}
	for i, d := range p.Schedule().Delays {
		if d < 0 {
			return fmt.Errorf("%w: %s: delay #%d is negative (%s)", ErrInvalidPolicy, p, i, d)
		}
	}
	return nil
}

// Schedule é a tabela de transições de uma Policy em forma de dados.
//
//   - Instant: a primeira tentativa de reconexão acontece sem espera
//   - Delays: cada tentativa seguinte espera o delay correspondente
//   - Forever: depois de esgotar Delays, repete o último para sempre
type Schedule struct {
	Instant bool
	Delays  []time.Duration
	Forever bool
}

// Delay retorna a espera antes da tentativa de reconexão número `attempt`
// (a partir de 0). ok=false significa que a política se esgotou.
func (s Schedule) Delay(attempt int) (d time.Duration, ok bool) {
	if attempt < 0 {
		return 0, false
	}
	if s.Instant {
		if attempt == 0 {
			return 0, true
		}
		attempt--
	}
	if attempt < len(s.Delays) {
		return s.Delays[attempt], true
	}
	if s.Forever && len(s.Delays) > 0 {
		return s.Delays[len(s.Delays)-1], true
	}
	return 0, false
}

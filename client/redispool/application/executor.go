package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"kvpool/client/redispool/domain"
)

// Config reúne as dependências do Executor.
type Config struct {
	// Conns são as conexões iniciais, uma por slot.
	Conns []domain.Conn
	// NewLock cria o lock exclusivo de cada slot.
	NewLock func() domain.SlotLock
	// Factory abre conexões de reposição.
	Factory domain.Factory
	// Policy padrão: InstantRetry.
	Policy domain.Policy

	Gate   domain.ReconnectGate
	Stats  domain.StatsStore
	Logger *log.Logger

	// StatsTimeout limita cada Record. Padrão: DefaultStatsTimeout.
	StatsTimeout time.Duration

	// Sleep espera d ou até o ctx encerrar. Se nil, usa um timer real.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultStatsTimeout é o tempo máximo que um evento de stats pode segurar o slot.
const DefaultStatsTimeout = 100 * time.Millisecond

type slot struct {
	index int
	lock  domain.SlotLock
	// conn só é lida/escrita por quem segura lock.
	conn domain.Conn
}

// Executor é o pool propriamente dito: slots de tamanho fixo, cursor
// compartilhado e a máquina de reconexão.
type Executor struct {
	slots    []*slot
	cursor   atomic.Uint64
	factory  domain.Factory
	schedule domain.Schedule
	policy   domain.Policy
	gate     domain.ReconnectGate
	stats    domain.StatsStore
	logger   *log.Logger
	sleep    func(ctx context.Context, d time.Duration) error
	closed   atomic.Bool

	statsTimeout time.Duration
}

func NewExecutor(cfg Config) (*Executor, error) {
	if len(cfg.Conns) == 0 {
		return nil, domain.ErrInvalidConnsCount
	}
	if cfg.Factory == nil {
		return nil, domain.ErrNoFactory
	}
	if cfg.NewLock == nil {
		return nil, errors.New("redispool: slot lock constructor is required")
	}
	if cfg.Policy == nil {
		cfg.Policy = domain.InstantRetry{}
	}
	if err := domain.ValidatePolicy(cfg.Policy); err != nil {
		return nil, err
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleep
	}
	if cfg.StatsTimeout <= 0 {
		cfg.StatsTimeout = DefaultStatsTimeout
	}

	e := &Executor{
		slots:    make([]*slot, len(cfg.Conns)),
		factory:  cfg.Factory,
		schedule: cfg.Policy.Schedule(),
		policy:   cfg.Policy,
		gate:     cfg.Gate,
		stats:    cfg.Stats,
		logger:   cfg.Logger,
		sleep:    cfg.Sleep,

		statsTimeout: cfg.StatsTimeout,
	}
	for i, c := range cfg.Conns {
		e.slots[i] = &slot{index: i, lock: cfg.NewLock(), conn: c}
	}
	return e, nil
}

func (e *Executor) Size() int             { return len(e.slots) }
func (e *Executor) Policy() domain.Policy { return e.policy }

// next escolhe o próximo slot: fetch-and-add atômico, módulo o tamanho.
func (e *Executor) next() *slot {
	i := e.cursor.Add(1) - 1
	return e.slots[i%uint64(len(e.slots))]
}

// Exec executa cmd em um slot escolhido em round-robin.
//
// O lock do slot é mantido durante toda a reconexão e as novas tentativas,
// então outro chamador do mesmo slot nunca vê uma conexão pela metade.
// Cancelar o ctx enquanto espera o lock não altera o estado do pool.
func (e *Executor) Exec(ctx context.Context, cmd domain.Command) error {
	if e.closed.Load() {
		return domain.ErrPoolClosed
	}

	s := e.next()
	release, ok := s.lock.Acquire(ctx)
	if !ok {
		if err := ctx.Err(); err != nil {
			return err
		}
		return context.Canceled
	}
	defer release()

	if s.conn == nil {
		return domain.ErrPoolClosed
	}

	err := s.conn.Exec(ctx, cmd)
	if err == nil || !domain.IsNetwork(err) {
		return err
	}
	return e.recover(ctx, s, cmd, err)
}

// recover é a máquina de reconexão. Chamado com o lock de s adquirido.
//
// Normal -> Reconnecting -> Retrying [-> Waiting -> Reconnecting -> Retrying ...]
// até Succeeded ou até o Schedule se esgotar (Failed, devolve o último erro de rede).
func (e *Executor) recover(ctx context.Context, s *slot, cmd domain.Command, cause error) error {
	e.record(ctx, s, domain.EventNetworkError, 0, cause)
	lastErr := cause

	for attempt := 0; ; attempt++ {
		// Close espera este slot; não prende o fechamento em Infinite.
		if e.closed.Load() {
			return interrupted(domain.ErrPoolClosed, lastErr)
		}
		// o prazo do chamador acabou: não é queda do servidor, nada a reconectar.
		if err := ctx.Err(); err != nil {
			return interrupted(err, lastErr)
		}

		delay, ok := e.schedule.Delay(attempt)
		if !ok {
			e.record(ctx, s, domain.EventGaveUp, 0, lastErr)
			e.logf("redispool: slot %d: giving up after %d reconnect attempt(s): %v", s.index, attempt, lastErr)
			return lastErr
		}

		if delay > 0 {
			e.record(ctx, s, domain.EventWait, delay, lastErr)
			if err := e.sleep(ctx, delay); err != nil {
				return interrupted(err, lastErr)
			}
		}

		if e.gate != nil {
			if err := e.gate.Wait(ctx); err != nil {
				return e.gateRefused(ctx, s, err, lastErr)
			}
		}

		if err := e.reconnect(ctx, s); err != nil {
			if ctx.Err() != nil {
				return interrupted(ctx.Err(), lastErr)
			}
			lastErr = err
			continue
		}

		err := s.conn.Exec(ctx, cmd)
		if err == nil {
			e.record(ctx, s, domain.EventRecovered, 0, nil)
			return nil
		}
		if !domain.IsNetwork(err) {
			return err
		}
		e.record(ctx, s, domain.EventNetworkError, 0, err)
		lastErr = err
	}
}

// gateRefused traduz a recusa do ReconnectGate. O limitador recusa sem
// esperar quando o próximo token passaria do deadline do ctx; isso vira
// context.DeadlineExceeded. Sem deadline, devolve o último erro de rede.
func (e *Executor) gateRefused(ctx context.Context, s *slot, gateErr, lastErr error) error {
	if err := ctx.Err(); err != nil {
		return interrupted(err, lastErr)
	}
	e.logf("redispool: slot %d: reconnect throttled: %v", s.index, gateErr)
	if _, ok := ctx.Deadline(); ok {
		return interrupted(context.DeadlineExceeded, lastErr)
	}
	e.record(ctx, s, domain.EventGaveUp, 0, lastErr)
	return lastErr
}

// reconnect troca a conexão do slot no lugar. Se a factory falhar, a conexão
// antiga permanece (estado definido: antiga ou nova, nunca parcial).
func (e *Executor) reconnect(ctx context.Context, s *slot) error {
	c, err := e.factory.Open(ctx)
	if err != nil {
		err = domain.AsNetwork("reconnect", err)
		if ctx.Err() != nil {
			return err
		}
		e.record(ctx, s, domain.EventReconnectFailed, 0, err)
		e.logf("redispool: slot %d: reconnect failed: %v", s.index, err)
		return err
	}

	old := s.conn
	s.conn = c
	if old != nil {
		_ = old.Close()
	}
	e.record(ctx, s, domain.EventReconnect, 0, nil)
	e.logf("redispool: slot %d: reconnected", s.index)
	return nil
}

// Close fecha a conexão de cada slot. Chamadas posteriores a Exec retornam
// domain.ErrPoolClosed. Espera os comandos em andamento liberarem os slots.
func (e *Executor) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}

	var errs []error
	for _, s := range e.slots {
		release, ok := s.lock.Acquire(context.Background())
		if !ok {
			continue
		}
		if s.conn != nil {
			if err := s.conn.Close(); err != nil {
				errs = append(errs, fmt.Errorf("slot %d: %w", s.index, err))
			}
			s.conn = nil
		}
		release()
	}
	return errors.Join(errs...)
}

func (e *Executor) record(ctx context.Context, s *slot, kind domain.EventKind, delay time.Duration, err error) {
	if e.stats == nil {
		return
	}
	// desacoplado do cancelamento do chamador e com prazo curto: o store pode
	// estar no mesmo servidor que caiu.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.statsTimeout)
	defer cancel()
	_ = e.stats.Record(ctx, domain.Event{
		Slot:  s.index,
		Kind:  kind,
		Delay: delay,
		Err:   err,
		At:    time.Now(),
	})
}

func (e *Executor) logf(format string, args ...any) {
	if e.logger != nil {
		e.logger.Printf(format, args...)
	}
}

// interrupted combina o motivo da interrupção (ctx/gate) com o último erro de rede,
// sem classificar o resultado como erro de rede.
func interrupted(reason, last error) error {
	if last == nil {
		return reason
	}
	return fmt.Errorf("%w (last error: %v)", reason, last)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

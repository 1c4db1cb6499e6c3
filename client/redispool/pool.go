package redispool

import (
	"context"
	"errors"
	"io"
	"sync"

	"kvpool/client/redispool/application"
	"kvpool/client/redispool/domain"
	"kvpool/client/redispool/infra"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// Pool é um pool de conexões de tamanho fixo. Seguro para uso concorrente.
type Pool struct {
	exec *application.Executor
	// owned é fechado junto com o pool (ex: RedisFactory criada por NewRedis).
	owned io.Closer

	closeOnce sync.Once
	closeErr  error
}

// Build abre todas as conexões iniciais em paralelo e monta o pool.
//
// Não há retry no build, qualquer que seja a Policy: se uma conexão falhar,
// as já abertas são fechadas e o erro volta como *domain.BuildError.
func Build(ctx context.Context, opts Options) (*Pool, error) {
	opts, n, err := opts.withDefaults()
	if err != nil {
		return nil, &domain.BuildError{Err: err}
	}

	conns := make([]domain.Conn, n)
	g, gctx := errgroup.WithContext(ctx)
	for i := range conns {
		i := i
		g.Go(func() error {
			c, err := opts.Factory.Open(gctx)
			if err != nil {
				return err
			}
			conns[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		closeAll(conns)
		return nil, &domain.BuildError{Err: err}
	}

	exec, err := application.NewExecutor(application.Config{
		Conns:   conns,
		NewLock: infra.NewSlotLock,
		Factory: opts.Factory,
		Policy:  opts.Policy,
		Gate:    infra.NewReconnectThrottle(opts.ReconnectRPS, opts.ReconnectBurst).Gate(),
		Stats:   opts.Stats,
		Logger:  opts.Logger,
	})
	if err != nil {
		closeAll(conns)
		return nil, &domain.BuildError{Err: err}
	}

	if opts.Logger != nil {
		opts.Logger.Printf("redispool: %d connection(s) ready, policy=%s", n, opts.Policy)
	}
	return &Pool{exec: exec}, nil
}

// NewRedis cria um pool sobre go-redis. opt descreve o servidor (endereço,
// senha, DB, timeouts); o pool interno do go-redis é dimensionado para o
// número de conexões resolvido e fechado junto com o Pool.
func NewRedis(ctx context.Context, opt *redis.Options, opts Options) (*Pool, error) {
	n, err := opts.Conns.Resolve()
	if err != nil {
		return nil, &domain.BuildError{Err: err}
	}

	f := infra.NewRedisFactory(opt, n)
	opts.Factory = f
	opts.Conns = Fixed(n)

	p, err := Build(ctx, opts)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	p.owned = f
	return p, nil
}

func closeAll(conns []domain.Conn) {
	for _, c := range conns {
		if c != nil {
			_ = c.Close()
		}
	}
}

// Size é o número de slots (fixo).
func (p *Pool) Size() int { return p.exec.Size() }

func (p *Pool) Policy() domain.Policy { return p.exec.Policy() }

// Process executa cmd em um slot, com reconexão conforme a Policy.
// O erro final também fica em cmd (cmd.Err()).
func (p *Pool) Process(ctx context.Context, cmd redis.Cmder) error {
	err := p.exec.Exec(ctx, cmd)
	if err != nil {
		cmd.SetErr(err)
	}
	return err
}

// Do executa um comando arbitrário; decodifique com Text, Int64, Bool, Slice...
//
//	v, err := pool.Do(ctx, "GET", "key").Text()
func (p *Pool) Do(ctx context.Context, args ...any) *redis.Cmd {
	cmd := redis.NewCmd(ctx, args...)
	_ = p.Process(ctx, cmd)
	return cmd
}

// Pipelined envia os comandos enfileirados por fn em um único round-trip.
// fn pode ser chamada de novo se o slot reconectar, então só deve enfileirar.
func (p *Pool) Pipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error) {
	cmd := infra.NewPipelineCommand(fn)
	err := p.exec.Exec(ctx, cmd)
	return cmd.Cmds(), err
}

// Close fecha todas as conexões. Comandos posteriores retornam domain.ErrPoolClosed.
func (p *Pool) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.exec.Close()
		if p.owned != nil {
			p.closeErr = errors.Join(p.closeErr, p.owned.Close())
		}
	})
	return p.closeErr
}

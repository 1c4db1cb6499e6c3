package infra

import (
	"context"
	"fmt"
	"time"

	"kvpool/client/redispool/domain"

	"github.com/redis/go-redis/v9"
)

// RedisFactory abre conexões dedicadas (*redis.Conn), uma por slot, a partir
// de um *redis.Client privado. O retry do go-redis é desligado: quem decide
// reconectar é a Policy do pool.
type RedisFactory struct {
	rdb *redis.Client
}

// NewRedisFactory copia opt e ajusta o pool interno do go-redis para caber
// `conns` conexões dedicadas mais as reposições em andamento. Cada Open faz
// uma única tentativa de dial; esperas entre tentativas são da Policy.
func NewRedisFactory(opt *redis.Options, conns int) *RedisFactory {
	o := *opt
	if need := 2 * conns; o.PoolSize < need {
		o.PoolSize = need
	}
	o.MaxRetries = -1
	o.MinIdleConns = 0
	o.DialerRetries = 1
	o.DialerRetryTimeout = time.Millisecond
	return &RedisFactory{rdb: redis.NewClient(&o)}
}

func (f *RedisFactory) Client() *redis.Client { return f.rdb }

// Open implementa domain.Factory. O go-redis só disca no primeiro comando,
// então um PING força a conexão e valida o alvo.
func (f *RedisFactory) Open(ctx context.Context) (domain.Conn, error) {
	cn := f.rdb.Conn()
	if err := cn.Ping(ctx).Err(); err != nil {
		_ = cn.Close()
		return nil, domain.AsNetwork("dial", err)
	}
	return &redisConn{cn: cn}, nil
}

func (f *RedisFactory) Close() error {
	return f.rdb.Close()
}

type redisConn struct {
	cn *redis.Conn
}

func (c *redisConn) Exec(ctx context.Context, cmd domain.Command) error {
	switch v := cmd.(type) {
	case *PipelineCommand:
		cmds, err := c.cn.Pipelined(ctx, v.Fn)
		v.cmds = cmds
		return classify(err)
	case redis.Cmder:
		return classify(c.cn.Process(ctx, v))
	default:
		return fmt.Errorf("%w: %T", domain.ErrUnsupportedCommand, cmd)
	}
}

func (c *redisConn) Close() error {
	return c.cn.Close()
}

func classify(err error) error {
	if IsNetworkError(err) {
		return domain.AsNetwork("exec", err)
	}
	return err
}

// PipelineCommand executa vários comandos em um round-trip no mesmo slot.
// Fn pode ser chamada mais de uma vez se o slot reconectar.
type PipelineCommand struct {
	Fn func(redis.Pipeliner) error

	cmds []redis.Cmder
}

func NewPipelineCommand(fn func(redis.Pipeliner) error) *PipelineCommand {
	return &PipelineCommand{Fn: fn}
}

func (p *PipelineCommand) Name() string { return "pipeline" }

func (p *PipelineCommand) Args() []any {
	var args []any
	for _, c := range p.cmds {
		args = append(args, c.Args()...)
	}
	return args
}

// Cmds retorna os comandos da última execução.
func (p *PipelineCommand) Cmds() []redis.Cmder { return p.cmds }

package redispool

import (
	"fmt"
	"log"
	"runtime"

	"kvpool/client/redispool/domain"
)

// DefaultConnsPerCPU é o multiplicador usado quando Options.Conns não é definido.
const DefaultConnsPerCPU = 4

// ConnsCount é o número de conexões do pool: absoluto (Fixed) ou
// proporcional ao paralelismo disponível (PerCPU).
// O valor zero equivale a PerCPU(DefaultConnsPerCPU).
type ConnsCount struct {
	n      int
	perCPU bool
	set    bool
}

func Fixed(n int) ConnsCount { return ConnsCount{n: n, set: true} }

// PerCPU: multiplier <= 0 usa DefaultConnsPerCPU.
func PerCPU(multiplier int) ConnsCount {
	if multiplier <= 0 {
		multiplier = DefaultConnsPerCPU
	}
	return ConnsCount{n: multiplier, perCPU: true, set: true}
}

// Resolve devolve o número efetivo de conexões (>= 1).
func (c ConnsCount) Resolve() (int, error) {
	n := c.n
	switch {
	case !c.set:
		n = DefaultConnsPerCPU * runtime.GOMAXPROCS(0)
	case c.perCPU:
		n = c.n * runtime.GOMAXPROCS(0)
	}
	if n < 1 {
		return 0, fmt.Errorf("%w (got %d)", domain.ErrInvalidConnsCount, n)
	}
	return n, nil
}

func (c ConnsCount) String() string {
	switch {
	case !c.set:
		return fmt.Sprintf("%d per cpu", DefaultConnsPerCPU)
	case c.perCPU:
		return fmt.Sprintf("%d per cpu", c.n)
	}
	return fmt.Sprintf("%d", c.n)
}

type Options struct {
	// Factory abre as conexões. Obrigatório em Build; NewRedis preenche.
	Factory domain.Factory
	// Por padrão, 4 conexões por CPU.
	Conns ConnsCount
	// Por padrão, domain.InstantRetry.
	Policy domain.Policy
	// Stats recebe eventos de reconexão (best-effort). Opcional.
	Stats domain.StatsStore
	// Logger para reconexões. nil = silencioso.
	Logger *log.Logger

	// ReconnectRPS limita as reconexões do pool inteiro (token bucket).
	// <= 0 desliga o limite.
	ReconnectRPS   float64
	ReconnectBurst int
}

// withDefaults preenche os padrões e valida. Retorna o número de conexões resolvido.
func (o Options) withDefaults() (Options, int, error) {
	if o.Factory == nil {
		return o, 0, domain.ErrNoFactory
	}
	if o.Policy == nil {
		o.Policy = domain.InstantRetry{}
	}
	if err := domain.ValidatePolicy(o.Policy); err != nil {
		return o, 0, err
	}
	n, err := o.Conns.Resolve()
	if err != nil {
		return o, 0, err
	}
	return o, n, nil
}

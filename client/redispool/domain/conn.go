package domain

import "context"

// Command é um comando opaco para o servidor.
//
// redis.Cmder satisfaz esta interface; o resultado é escrito no próprio comando.
type Command interface {
	Name() string
	Args() []any
}

// Conn é uma conexão viva capaz de executar um comando por vez.
//
// Erros de rede devem vir embrulhados em *NetworkError (ver AsNetwork);
// qualquer outro erro é tratado como erro de aplicação e nunca dispara reconexão.
type Conn interface {
	Exec(ctx context.Context, cmd Command) error
	Close() error
}

// Factory abre novas conexões contra o mesmo alvo lógico.
// Deve ser segura para chamadas concorrentes (build e reconexões de slots diferentes).
type Factory interface {
	Open(ctx context.Context) (Conn, error)
}

// SlotLock é o lock exclusivo de um slot.
//
// A semântica é: Acquire bloqueia até conseguir o lock ou até o ctx encerrar.
// Ao adquirir, retorna uma função de release que deve ser chamada exatamente uma vez.
type SlotLock interface {
	Acquire(ctx context.Context) (release func(), ok bool)
}

// ReconnectGate limita a taxa de tentativas de reconexão (ex: token bucket).
type ReconnectGate interface {
	Wait(ctx context.Context) error
}

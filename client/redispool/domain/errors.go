package domain

import (
	"errors"
	"fmt"
)

var (
	ErrPoolClosed         = errors.New("redispool: pool is closed")
	ErrNoFactory          = errors.New("redispool: connection factory is required")
	ErrInvalidConnsCount  = errors.New("redispool: connections count must be >= 1")
	ErrInvalidPolicy      = errors.New("redispool: invalid reconnect policy")
	ErrUnsupportedCommand = errors.New("redispool: unsupported command type")
)

// NetworkError marca um erro como "de rede" (timeout, conexão derrubada, I/O).
// Só erros desta classe são elegíveis para reconexão.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	if e.Op == "" {
		return "redispool: network error: " + e.Err.Error()
	}
	return "redispool: " + e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AsNetwork embrulha err como erro de rede, a menos que já seja um.
func AsNetwork(op string, err error) error {
	if err == nil || IsNetwork(err) {
		return err
	}
	return &NetworkError{Op: op, Err: err}
}

func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// BuildError indica que a construção do pool falhou por completo.
// Nenhum pool parcial é retornado.
type BuildError struct {
	Err error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("redispool: build failed: %v", e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

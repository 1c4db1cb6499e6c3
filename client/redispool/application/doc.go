// Package application contém o caso de uso do pool: selecionar um slot,
// executar o comando e, em erro de rede, conduzir a máquina de reconexão.
//
// Ele depende apenas do pacote domain e não conhece go-redis.
// Ex.: Executor.Exec(ctx, cmd) escolhe o slot em round-robin e aplica a Policy.
package application

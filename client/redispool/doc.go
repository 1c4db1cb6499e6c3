// Package redispool fornece um pool de conexões cliente para Redis com
// balanceamento round-robin e reconexão transparente.
//
// Visão geral (camadas):
//
//   - domain: contratos, políticas de reconexão e taxonomia de erros (sem go-redis)
//   - application: Executor (slots, cursor, máquina de reconexão) sem go-redis
//   - infra: implementações concretas (conexões go-redis, lock de slot, throttle, stats)
//   - redispool (este pacote): Options/Build + API tipada sobre go-redis
//
// Fluxo de um comando:
//
//   1) Escolhe o slot: cursor atômico (fetch-and-add) módulo o número de slots
//   2) Adquire o lock do slot (único ponto de espera além do I/O)
//   3) Executa; em erro de rede, reconecta e repete conforme a Policy, ainda com o lock
//   4) Libera o lock em todos os caminhos
//
// O número de conexões é fixo durante a vida do pool. Se qualquer conexão inicial
// falhar, Build falha por completo com *domain.BuildError.
package redispool

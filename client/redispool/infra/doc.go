// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - RedisFactory: conexões dedicadas go-redis, uma por slot
//   - SlotLock: semáforo de capacidade 1 baseado em channel
//   - ReconnectThrottle: token bucket para reconexões usando golang.org/x/time/rate
//   - MemoryStatsStore / RedisStatsStore: contadores de eventos de reconexão
package infra

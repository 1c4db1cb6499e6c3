// Package domain define contratos e tipos de domínio do pool de conexões.
//
// Este pacote não depende de go-redis nem de implementações concretas.
// A intenção é permitir testes de unidade puros da máquina de reconexão e
// desacoplar a política de retry dos detalhes do protocolo.
package domain

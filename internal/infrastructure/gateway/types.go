package gateway

import (
	"context"
	"fmt"

	"github.com/tu-usuario/fiscal-pro/internal/domain/fiscal"
)

// ── Status retornados pelo gateway ────────────────────────────────────────────

// Valores do campo "status" nas respostas do gateway da autoridade fiscal.
const (
	StatusProcessando = "processando_autorizacao"
	StatusAutorizado  = "autorizado"
	StatusErro        = "erro_autorizacao"
	StatusCancelado   = "cancelado"
)

// ── Porta (interface) ─────────────────────────────────────────────────────────

// Credentials identifica o tenant perante o gateway: token estático mais o
// ambiente que seleciona a URL base. Uma chamada nunca mistura ambientes.
type Credentials struct {
	Token       string
	Environment string // sandbox | production
}

// SubmitResult é a resposta de uma submissão aceita pelo gateway (2xx).
type SubmitResult struct {
	Ref        string // referência ecoada pelo gateway
	Status     string // status interino atribuído na recepção
	HTTPStatus int
	RawBody    []byte
}

// StatusResult é a resposta de uma consulta de situação.
type StatusResult struct {
	Status          string // ver constantes Status*
	AuthorityNumber string // número do documento atribuído pela autoridade
	AccessKey       string // chave de acesso (documento autorizado)
	Message         string // mensagem da SEFAZ (motivo de rejeição, etc.)
	PDFPath         string // caminho do artefato legível (DANFE)
	XMLPath         string // caminho do XML autorizado
	HTTPStatus      int
	RawBody         []byte
}

// CancelResult é a resposta de um pedido de cancelamento aceito.
type CancelResult struct {
	Status     string
	HTTPStatus int
	RawBody    []byte
}

// Client define a porta de saída para o gateway da autoridade fiscal.
// A implementação concreta usa HTTP/JSON; para testes injeta-se um mock.
//
// Submit é seguro de repetir com a mesma ref: o gateway deduplica pela
// referência, e o cliente jamais gera uma nova para a mesma submissão lógica.
type Client interface {
	Submit(ctx context.Context, creds Credentials, payload *fiscal.DocumentPayload, ref string) (*SubmitResult, error)
	QueryStatus(ctx context.Context, creds Credentials, ref string) (*StatusResult, error)
	Cancel(ctx context.Context, creds Credentials, ref, reason string) (*CancelResult, error)
	// FetchArtifact baixa os bytes de um artefato a partir do caminho devolvido
	// pelo gateway nas respostas de submissão/consulta.
	FetchArtifact(ctx context.Context, creds Credentials, path string) ([]byte, error)
}

// ── Erro de gateway ───────────────────────────────────────────────────────────

// Error carrega o status HTTP e o corpo cru de qualquer resposta não-2xx.
// O corpo nunca é interpretado como payload de sucesso; fica preservado
// literalmente para inspeção manual via trilha de auditoria.
type Error struct {
	Status int
	Body   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway: HTTP %d: %s", e.Status, e.Body)
}

package entity

import "time"

// Ações registradas na trilha de auditoria de um documento.
const (
	AuditActionSubmit = "submit"
	AuditActionPoll   = "poll"
	AuditActionCancel = "cancel"
	AuditActionFetch  = "fetch"
)

// AuditEntry é uma linha imutável da trilha de auditoria: uma por tentativa de
// transição, com sucesso ou falha, incluindo a resposta crua do gateway.
// A trilha é append-only; nada aqui é atualizado ou removido.
type AuditEntry struct {
	ID               string
	DocumentID       string
	Action           string // submit | poll | cancel | fetch
	HTTPStatus       int    // 0 quando a falha ocorreu antes de qualquer chamada
	Message          string
	ResponseSnapshot string // corpo cru da resposta do gateway, quando houve chamada
	CreatedAt        time.Time
}

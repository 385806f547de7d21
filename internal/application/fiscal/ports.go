package fiscal

import (
	"context"

	"github.com/tu-usuario/fiscal-pro/internal/domain/repository"
)

// TxRunner executa uma função dentro de uma transação que inclui os repositórios
// de documento e auditoria, para que transição de estado e trilha sejam
// persistidas atomicamente.
type TxRunner interface {
	RunFiscal(ctx context.Context, fn func(
		docRepo repository.FiscalDocumentRepository,
		auditRepo repository.AuditRepository,
	) error) error
}

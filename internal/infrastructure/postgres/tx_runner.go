package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	appfiscal "github.com/tu-usuario/fiscal-pro/internal/application/fiscal"
	"github.com/tu-usuario/fiscal-pro/internal/domain/repository"
)

var _ appfiscal.TxRunner = (*TxRunner)(nil)

// TxRunner executa callbacks dentro de uma transação PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner constrói o runner com o pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunFiscal inicia uma transação com os repositórios de documento e auditoria
// atados a ela, executa fn e faz Commit ou Rollback. Garante que a transição de
// estado e a linha de auditoria entram juntas ou nenhuma entra.
func (r *TxRunner) RunFiscal(ctx context.Context, fn func(
	docRepo repository.FiscalDocumentRepository,
	auditRepo repository.AuditRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	docRepo := NewFiscalDocumentRepository(tx)
	auditRepo := NewAuditRepository(tx)

	if err := fn(docRepo, auditRepo); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

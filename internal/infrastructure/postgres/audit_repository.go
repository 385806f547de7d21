package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tu-usuario/fiscal-pro/internal/domain/entity"
	"github.com/tu-usuario/fiscal-pro/internal/domain/repository"
)

var _ repository.AuditRepository = (*AuditRepo)(nil)

// AuditRepo implementação de AuditRepository (usável com pool ou tx).
// A tabela é append-only: não há UPDATE nem DELETE aqui.
type AuditRepo struct {
	q Querier
}

// NewAuditRepository constrói o adaptador. Passar pool ou tx (Querier).
func NewAuditRepository(q Querier) *AuditRepo {
	return &AuditRepo{q: q}
}

// Append insere uma linha da trilha.
func (r *AuditRepo) Append(ctx context.Context, e *entity.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	const q = `
		INSERT INTO fiscal_audit_entries
			(id, document_id, action, http_status, message, response_snapshot, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, q,
		e.ID, e.DocumentID, e.Action, e.HTTPStatus, e.Message, e.ResponseSnapshot, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert fiscal_audit_entry: %w", err)
	}
	return nil
}

// ListByDocumentID devolve a trilha completa do documento, mais antiga primeiro.
func (r *AuditRepo) ListByDocumentID(ctx context.Context, documentID string) ([]*entity.AuditEntry, error) {
	const q = `
		SELECT id, document_id, action, http_status, message, response_snapshot, created_at
		FROM fiscal_audit_entries
		WHERE document_id = $1
		ORDER BY created_at`
	rows, err := r.q.Query(ctx, q, documentID)
	if err != nil {
		return nil, fmt.Errorf("list fiscal_audit_entries: %w", err)
	}
	defer rows.Close()

	var list []*entity.AuditEntry
	for rows.Next() {
		var e entity.AuditEntry
		if err := rows.Scan(&e.ID, &e.DocumentID, &e.Action, &e.HTTPStatus,
			&e.Message, &e.ResponseSnapshot, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan fiscal_audit_entry: %w", err)
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}

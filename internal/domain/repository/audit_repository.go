package repository

import (
	"context"

	"github.com/tu-usuario/fiscal-pro/internal/domain/entity"
)

// AuditRepository define a porta da trilha de auditoria (append-only).
type AuditRepository interface {
	Append(ctx context.Context, e *entity.AuditEntry) error
	ListByDocumentID(ctx context.Context, documentID string) ([]*entity.AuditEntry, error)
}

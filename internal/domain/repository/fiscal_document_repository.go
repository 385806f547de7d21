package repository

import (
	"context"

	"github.com/tu-usuario/fiscal-pro/internal/domain/entity"
)

// FiscalDocumentRepository define a porta de persistência de documentos fiscais.
// Apenas o controlador de ciclo de vida escreve por aqui.
type FiscalDocumentRepository interface {
	Create(ctx context.Context, doc *entity.FiscalDocument) error
	// Update persiste status, referências da autoridade, URIs de artefato e
	// última resposta. Nunca remove registros.
	Update(ctx context.Context, doc *entity.FiscalDocument) error
	GetByID(ctx context.Context, id string) (*entity.FiscalDocument, error)
	ListByOrderID(ctx context.Context, orderID string) ([]*entity.FiscalDocument, error)
	// FindOpenByOrderID devolve o documento não terminal do pedido, se existir
	// (guarda contra submissão duplicada à autoridade). nil, nil quando não há.
	FindOpenByOrderID(ctx context.Context, orderID string) (*entity.FiscalDocument, error)
	// ListProcessingByCompany devolve os documentos aguardando resposta da
	// autoridade (alvo do polling em lote).
	ListProcessingByCompany(ctx context.Context, companyID string) ([]*entity.FiscalDocument, error)
}

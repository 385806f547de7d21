package repository

import (
	"context"

	"github.com/tu-usuario/fiscal-pro/internal/domain/entity"
)

// OrderRepository define a porta de leitura de pedidos confirmados.
// O CRUD de pedidos pertence a outro módulo; o motor fiscal só consome.
type OrderRepository interface {
	// GetByID devolve o pedido com cliente e itens. nil, nil quando não existe.
	GetByID(ctx context.Context, id string) (*entity.Order, error)
}

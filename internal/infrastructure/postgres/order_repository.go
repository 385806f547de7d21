package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tu-usuario/fiscal-pro/internal/domain/entity"
	"github.com/tu-usuario/fiscal-pro/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderRepo leitura de pedidos confirmados (o CRUD de pedidos vive em outro módulo,
// este adaptador só consulta).
type OrderRepo struct {
	q Querier
}

// NewOrderRepository constrói o adaptador.
func NewOrderRepository(q Querier) *OrderRepo {
	return &OrderRepo{q: q}
}

// GetByID devolve o pedido com cliente e itens. nil, nil quando não existe.
func (r *OrderRepo) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	const q = `
		SELECT o.id, o.company_id, o.created_by, o.external_number, o.payment_terms,
		       o.operation_type, o.destination, o.created_at,
		       c.id, c.name, c.cnpj, c.cpf, c.email, c.uf
		FROM orders o
		JOIN clients c ON c.id = o.client_id
		WHERE o.id = $1`
	var o entity.Order
	err := r.q.QueryRow(ctx, q, id).Scan(
		&o.ID, &o.CompanyID, &o.CreatedBy, &o.ExternalNumber, &o.PaymentTerms,
		&o.OperationType, &o.Destination, &o.CreatedAt,
		&o.Client.ID, &o.Client.Name, &o.Client.CNPJ, &o.Client.CPF,
		&o.Client.Email, &o.Client.UF,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order by id: %w", err)
	}

	lines, err := r.listLines(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Lines = lines
	return &o, nil
}

func (r *OrderRepo) listLines(ctx context.Context, orderID string) ([]entity.OrderLine, error) {
	const q = `
		SELECT product_id, product_name, product_code, quantity, unit_price, ncm, weight
		FROM order_lines
		WHERE order_id = $1
		ORDER BY position`
	rows, err := r.q.Query(ctx, q, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order_lines: %w", err)
	}
	defer rows.Close()

	var list []entity.OrderLine
	for rows.Next() {
		var l entity.OrderLine
		if err := rows.Scan(&l.ProductID, &l.ProductName, &l.ProductCode,
			&l.Quantity, &l.UnitPrice, &l.NCM, &l.Weight); err != nil {
			return nil, fmt.Errorf("scan order_line: %w", err)
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

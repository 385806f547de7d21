package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tu-usuario/fiscal-pro/internal/domain/entity"
	"github.com/tu-usuario/fiscal-pro/internal/domain/repository"
)

var _ repository.FiscalDocumentRepository = (*FiscalDocumentRepo)(nil)

// FiscalDocumentRepo implementação de FiscalDocumentRepository (usável com pool ou tx).
type FiscalDocumentRepo struct {
	q Querier
}

// NewFiscalDocumentRepository constrói o adaptador. Passar pool ou tx (Querier).
func NewFiscalDocumentRepository(q Querier) *FiscalDocumentRepo {
	return &FiscalDocumentRepo{q: q}
}

const documentColumns = `
	id, order_id, company_id, kind, status, gateway_ref, attempt,
	authority_number, access_key, submitted_payload, last_response,
	pdf_uri, xml_uri, created_at, updated_at`

// Create persiste o documento recém-criado (DRAFT, referência já gerada).
func (r *FiscalDocumentRepo) Create(ctx context.Context, doc *entity.FiscalDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	const q = `
		INSERT INTO fiscal_documents
			(id, order_id, company_id, kind, status, gateway_ref, attempt,
			 authority_number, access_key, submitted_payload, last_response,
			 pdf_uri, xml_uri, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.q.Exec(ctx, q,
		doc.ID, doc.OrderID, doc.CompanyID, doc.Kind, doc.Status,
		doc.GatewayRef, doc.Attempt, doc.AuthorityNumber, doc.AccessKey,
		doc.SubmittedPayload, doc.LastResponse, doc.PDFURI, doc.XMLURI,
		doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert fiscal_document: referência duplicada: %w", err)
		}
		return fmt.Errorf("insert fiscal_document: %w", err)
	}
	return nil
}

// Update persiste status, dados da autoridade e URIs de artefato.
// gateway_ref e attempt nunca mudam depois do insert.
func (r *FiscalDocumentRepo) Update(ctx context.Context, doc *entity.FiscalDocument) error {
	const q = `
		UPDATE fiscal_documents
		SET status = $2, authority_number = $3, access_key = $4,
		    submitted_payload = $5, last_response = $6,
		    pdf_uri = $7, xml_uri = $8, updated_at = $9
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, q,
		doc.ID, doc.Status, doc.AuthorityNumber, doc.AccessKey,
		doc.SubmittedPayload, doc.LastResponse, doc.PDFURI, doc.XMLURI,
		doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update fiscal_document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update fiscal_document: %s não encontrado", doc.ID)
	}
	return nil
}

// GetByID devolve o documento ou nil, nil quando não existe.
func (r *FiscalDocumentRepo) GetByID(ctx context.Context, id string) (*entity.FiscalDocument, error) {
	q := `SELECT` + documentColumns + ` FROM fiscal_documents WHERE id = $1`
	doc, err := scanDocument(r.q.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get fiscal_document by id: %w", err)
	}
	return doc, nil
}

// ListByOrderID devolve todas as tentativas de emissão do pedido, por ordem de criação.
func (r *FiscalDocumentRepo) ListByOrderID(ctx context.Context, orderID string) ([]*entity.FiscalDocument, error) {
	q := `SELECT` + documentColumns + ` FROM fiscal_documents WHERE order_id = $1 ORDER BY attempt`
	rows, err := r.q.Query(ctx, q, orderID)
	if err != nil {
		return nil, fmt.Errorf("list fiscal_documents by order: %w", err)
	}
	defer rows.Close()
	return collectDocuments(rows)
}

// FindOpenByOrderID devolve o documento não terminal do pedido, se houver.
// É a guarda contra submissão duplicada à autoridade.
func (r *FiscalDocumentRepo) FindOpenByOrderID(ctx context.Context, orderID string) (*entity.FiscalDocument, error) {
	q := `SELECT` + documentColumns + `
		FROM fiscal_documents
		WHERE order_id = $1
		  AND status NOT IN ($2, $3)
		ORDER BY attempt DESC
		LIMIT 1`
	doc, err := scanDocument(r.q.QueryRow(ctx, q, orderID,
		entity.DocumentStatusRejected, entity.DocumentStatusCancelled))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find open fiscal_document: %w", err)
	}
	return doc, nil
}

// ListProcessingByCompany devolve os documentos aguardando a autoridade (alvo do polling).
func (r *FiscalDocumentRepo) ListProcessingByCompany(ctx context.Context, companyID string) ([]*entity.FiscalDocument, error) {
	q := `SELECT` + documentColumns + `
		FROM fiscal_documents
		WHERE company_id = $1 AND status = $2
		ORDER BY created_at`
	rows, err := r.q.Query(ctx, q, companyID, entity.DocumentStatusProcessing)
	if err != nil {
		return nil, fmt.Errorf("list processing fiscal_documents: %w", err)
	}
	defer rows.Close()
	return collectDocuments(rows)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func scanDocument(row pgx.Row) (*entity.FiscalDocument, error) {
	var d entity.FiscalDocument
	err := row.Scan(
		&d.ID, &d.OrderID, &d.CompanyID, &d.Kind, &d.Status,
		&d.GatewayRef, &d.Attempt, &d.AuthorityNumber, &d.AccessKey,
		&d.SubmittedPayload, &d.LastResponse, &d.PDFURI, &d.XMLURI,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func collectDocuments(rows pgx.Rows) ([]*entity.FiscalDocument, error) {
	var list []*entity.FiscalDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fiscal_document: %w", err)
		}
		list = append(list, doc)
	}
	return list, rows.Err()
}

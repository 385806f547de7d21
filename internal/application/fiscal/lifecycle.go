package fiscal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tu-usuario/fiscal-pro/internal/application/dto"
	"github.com/tu-usuario/fiscal-pro/internal/domain"
	"github.com/tu-usuario/fiscal-pro/internal/domain/entity"
	domfiscal "github.com/tu-usuario/fiscal-pro/internal/domain/fiscal"
	"github.com/tu-usuario/fiscal-pro/internal/domain/repository"
	"github.com/tu-usuario/fiscal-pro/internal/infrastructure/gateway"
	"github.com/tu-usuario/fiscal-pro/pkg/logger"
)

// LifecycleUseCase é o controlador do ciclo de vida do documento fiscal:
// submissão, consulta de situação, cancelamento e recuperação de artefatos.
//
// É o único componente autorizado a persistir estado do documento. Toda
// tentativa de transição que chega ao gateway gera exatamente uma AuditEntry,
// com sucesso ou falha; falhas de autorização e de estado acontecem antes de
// qualquer I/O e não entram na trilha.
//
// Transições de um mesmo documento são serializadas por lock em memória
// (Acquire/release em todos os caminhos de saída); documentos distintos
// operam em paralelo.
type LifecycleUseCase struct {
	configRepo repository.FiscalConfigRepository
	orderRepo  repository.OrderRepository
	docRepo    repository.FiscalDocumentRepository
	auditRepo  repository.AuditRepository
	txRunner   TxRunner
	gw         gateway.Client
	locks      *documentLocks
	log        *logger.Logger

	// Timeout por chamada ao gateway; timeout conta como erro de gateway
	// (estado inalterado, tentativa auditada).
	callTimeout time.Duration

	// Limite de consultas simultâneas no polling em lote.
	pollConcurrency int
}

// NewLifecycleUseCase constrói o controlador com suas dependências.
func NewLifecycleUseCase(
	configRepo repository.FiscalConfigRepository,
	orderRepo repository.OrderRepository,
	docRepo repository.FiscalDocumentRepository,
	auditRepo repository.AuditRepository,
	txRunner TxRunner,
	gw gateway.Client,
	log *logger.Logger,
	callTimeout time.Duration,
	pollConcurrency int,
) *LifecycleUseCase {
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}
	if pollConcurrency <= 0 {
		pollConcurrency = 5
	}
	return &LifecycleUseCase{
		configRepo:      configRepo,
		orderRepo:       orderRepo,
		docRepo:         docRepo,
		auditRepo:       auditRepo,
		txRunner:        txRunner,
		gw:              gw,
		locks:           newDocumentLocks(),
		log:             log,
		callTimeout:     callTimeout,
		pollConcurrency: pollConcurrency,
	}
}

// ── Submit ────────────────────────────────────────────────────────────────────

// Submit emite o documento fiscal do pedido: resolve tributos, monta o payload
// e o envia ao gateway. Em caso de sucesso o documento fica em PROCESSING com a
// referência de idempotência persistida; em falha volta a DRAFT para que o
// chamador possa repetir sem criar recurso duplicado.
func (uc *LifecycleUseCase) Submit(ctx context.Context, principal entity.Principal, orderID string) (*dto.DocumentResponse, error) {
	order, err := uc.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	// Autorização antes de qualquer I/O de emissão; nunca vira tentativa auditada.
	if !principal.MayOperate(order) {
		return nil, domain.ErrForbidden
	}

	// Submissões do mesmo pedido são serializadas pelo id do pedido: impede
	// duas goroutines de criarem documentos concorrentes para ele.
	release := uc.locks.Acquire("order:" + orderID)
	defer release()

	cfg, err := uc.configRepo.GetByCompanyID(ctx, order.CompanyID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, &domfiscal.RuleError{Reason: domfiscal.RuleMissingConfig, Field: "fiscal_config"}
	}

	doc, err := uc.openDocumentFor(ctx, order)
	if err != nil {
		return nil, err
	}

	warnings, err := uc.submitDocument(ctx, order, cfg, doc)
	if err != nil {
		return nil, err
	}
	return toDocumentResponse(doc, warnings), nil
}

// openDocumentFor devolve o documento DRAFT reutilizável do pedido ou cria um
// novo com a próxima tentativa. Documento não terminal já em andamento bloqueia
// nova submissão (StateError): nada de envio duplicado à autoridade.
func (uc *LifecycleUseCase) openDocumentFor(ctx context.Context, order *entity.Order) (*entity.FiscalDocument, error) {
	open, err := uc.docRepo.FindOpenByOrderID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		if open.Status != entity.DocumentStatusDraft {
			return nil, &entity.StateError{DocumentID: open.ID, Current: open.Status, Attempted: "submit"}
		}
		// Retentativa da mesma submissão lógica: a referência já gerada é
		// reutilizada, nunca regenerada.
		return open, nil
	}

	previous, err := uc.docRepo.ListByOrderID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	attempt := len(previous) + 1

	now := time.Now()
	doc := &entity.FiscalDocument{
		ID:        uuid.New().String(),
		OrderID:   order.ID,
		CompanyID: order.CompanyID,
		Kind:      entity.DocumentKindNFe,
		Status:    entity.DocumentStatusDraft,
		// Chave de idempotência determinística: pedido + número da tentativa.
		GatewayRef: fmt.Sprintf("%s-%d", order.ExternalNumber, attempt),
		Attempt:    attempt,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := uc.docRepo.Create(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// submitDocument executa resolução → montagem → envio para um documento DRAFT.
func (uc *LifecycleUseCase) submitDocument(ctx context.Context, order *entity.Order, cfg *entity.FiscalConfig, doc *entity.FiscalDocument) ([]string, error) {
	op := order.Operation()
	resolutions := make([]domfiscal.TaxResolution, 0, len(order.Lines))
	var warnings []string
	for _, line := range order.Lines {
		res, err := domfiscal.Resolve(*cfg, line, op)
		if err != nil {
			uc.appendAudit(ctx, doc.ID, entity.AuditActionSubmit, 0, err.Error(), "")
			return nil, err
		}
		if unified, ok := res.(domfiscal.UnifiedResolution); ok {
			warnings = appendUnique(warnings, unified.Warnings...)
		}
		resolutions = append(resolutions, res)
	}

	payload, err := domfiscal.Assemble(*order, *cfg, resolutions)
	if err != nil {
		uc.appendAudit(ctx, doc.ID, entity.AuditActionSubmit, 0, err.Error(), "")
		return nil, err
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("serializar payload: %w", err)
	}

	doc.SubmittedPayload = string(payloadJSON)
	doc.Status = entity.DocumentStatusSubmitted
	doc.UpdatedAt = time.Now()
	if err := uc.docRepo.Update(ctx, doc); err != nil {
		return nil, err
	}

	for _, w := range warnings {
		uc.log.Warn().Str("document_id", doc.ID).Str("order_id", order.ID).Msg(w)
	}

	callCtx, cancel := context.WithTimeout(ctx, uc.callTimeout)
	defer cancel()
	result, gwErr := uc.gw.Submit(callCtx, credentialsOf(cfg), payload, doc.GatewayRef)
	if gwErr != nil {
		// Falha de gateway (inclui timeout): volta a DRAFT, uma AuditEntry
		// com o corpo cru, e o chamador decide se repete.
		doc.Status = entity.DocumentStatusDraft
		doc.LastResponse = gatewayBody(gwErr)
		doc.UpdatedAt = time.Now()
		if err := uc.persistTransition(ctx, doc, auditEntry(doc.ID, entity.AuditActionSubmit, gatewayStatus(gwErr), gwErr.Error(), doc.LastResponse)); err != nil {
			return nil, err
		}
		uc.log.Error().Err(gwErr).Str("document_id", doc.ID).Msg("submissão rejeitada pelo gateway")
		return nil, gwErr
	}

	doc.Status = entity.DocumentStatusProcessing
	doc.LastResponse = string(result.RawBody)
	doc.UpdatedAt = time.Now()
	if err := uc.persistTransition(ctx, doc, auditEntry(doc.ID, entity.AuditActionSubmit, result.HTTPStatus, "submissão aceita: "+result.Status, string(result.RawBody))); err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("document_id", doc.ID).
		Str("gateway_ref", doc.GatewayRef).
		Int("attempt", doc.Attempt).
		Msg("documento submetido ao gateway")
	return warnings, nil
}

// ── PollStatus ────────────────────────────────────────────────────────────────

// PollStatus consulta a autoridade sobre um documento em PROCESSING e aplica o
// resultado: AUTHORIZED (com número, chave e URIs de artefato), REJECTED (com a
// mensagem) ou mantém PROCESSING. Idempotente por situação observada: é seguro
// chamar repetidamente por um agendador externo.
func (uc *LifecycleUseCase) PollStatus(ctx context.Context, principal entity.Principal, documentID string) (*dto.DocumentResponse, error) {
	doc, err := uc.authorizedDocument(ctx, principal, documentID)
	if err != nil {
		return nil, err
	}

	release := uc.locks.Acquire("doc:" + doc.ID)
	defer release()

	// Reler sob o lock: outra transição pode ter avançado o estado.
	doc, err = uc.docRepo.GetByID(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	if doc.Status != entity.DocumentStatusProcessing {
		return nil, &entity.StateError{DocumentID: doc.ID, Current: doc.Status, Attempted: "poll"}
	}

	cfg, err := uc.configOf(ctx, doc.CompanyID)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, uc.callTimeout)
	defer cancel()
	result, gwErr := uc.gw.QueryStatus(callCtx, credentialsOf(cfg), doc.GatewayRef)
	if gwErr != nil {
		// Estado inalterado; a tentativa fica na trilha.
		uc.appendAudit(ctx, doc.ID, entity.AuditActionPoll, gatewayStatus(gwErr), gwErr.Error(), gatewayBody(gwErr))
		return nil, gwErr
	}

	message := "situação: " + result.Status
	switch result.Status {
	case gateway.StatusAutorizado:
		doc.Status = entity.DocumentStatusAuthorized
		doc.AuthorityNumber = result.AuthorityNumber
		doc.AccessKey = result.AccessKey
		doc.PDFURI = result.PDFPath
		doc.XMLURI = result.XMLPath
	case gateway.StatusErro:
		doc.Status = entity.DocumentStatusRejected
		message = "rejeitado: " + result.Message
	default:
		// Qualquer outra situação mantém PROCESSING.
	}
	doc.LastResponse = string(result.RawBody)
	doc.UpdatedAt = time.Now()

	if err := uc.persistTransition(ctx, doc, auditEntry(doc.ID, entity.AuditActionPoll, result.HTTPStatus, message, string(result.RawBody))); err != nil {
		return nil, err
	}

	uc.log.Info().Str("document_id", doc.ID).Str("status", doc.Status).Msg("polling concluído")
	return toDocumentResponse(doc, nil), nil
}

// ── Cancel ────────────────────────────────────────────────────────────────────

// Cancel solicita o cancelamento de um documento AUTHORIZED. Falha do gateway
// mantém AUTHORIZED e é registrada; o cancelamento nunca é repetido
// automaticamente.
func (uc *LifecycleUseCase) Cancel(ctx context.Context, principal entity.Principal, documentID, reason string) (*dto.DocumentResponse, error) {
	if reason == "" {
		return nil, domain.ErrInvalidInput
	}
	doc, err := uc.authorizedDocument(ctx, principal, documentID)
	if err != nil {
		return nil, err
	}

	release := uc.locks.Acquire("doc:" + doc.ID)
	defer release()

	doc, err = uc.docRepo.GetByID(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	if doc.Status != entity.DocumentStatusAuthorized {
		return nil, &entity.StateError{DocumentID: doc.ID, Current: doc.Status, Attempted: "cancel"}
	}

	cfg, err := uc.configOf(ctx, doc.CompanyID)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, uc.callTimeout)
	defer cancel()
	result, gwErr := uc.gw.Cancel(callCtx, credentialsOf(cfg), doc.GatewayRef, reason)
	if gwErr != nil {
		uc.appendAudit(ctx, doc.ID, entity.AuditActionCancel, gatewayStatus(gwErr), gwErr.Error(), gatewayBody(gwErr))
		return nil, gwErr
	}

	doc.Status = entity.DocumentStatusCancelled
	doc.LastResponse = string(result.RawBody)
	doc.UpdatedAt = time.Now()
	if err := uc.persistTransition(ctx, doc, auditEntry(doc.ID, entity.AuditActionCancel, result.HTTPStatus, "cancelado: "+reason, string(result.RawBody))); err != nil {
		return nil, err
	}

	uc.log.Info().Str("document_id", doc.ID).Msg("documento cancelado junto à autoridade")
	return toDocumentResponse(doc, nil), nil
}

// ── FetchArtifact ─────────────────────────────────────────────────────────────

// FetchArtifact recupera os bytes de um artefato (DANFE ou XML autorizado) de
// um documento AUTHORIZED ou CANCELLED, via gateway. O XML é conferido contra a
// chave de acesso persistida antes de ser servido.
func (uc *LifecycleUseCase) FetchArtifact(ctx context.Context, principal entity.Principal, documentID, kind string) ([]byte, string, error) {
	if kind != entity.ArtifactPDF && kind != entity.ArtifactXML {
		return nil, "", domain.ErrInvalidInput
	}
	doc, err := uc.authorizedDocument(ctx, principal, documentID)
	if err != nil {
		return nil, "", err
	}

	release := uc.locks.Acquire("doc:" + doc.ID)
	defer release()

	doc, err = uc.docRepo.GetByID(ctx, doc.ID)
	if err != nil {
		return nil, "", err
	}
	if doc.Status != entity.DocumentStatusAuthorized && doc.Status != entity.DocumentStatusCancelled {
		return nil, "", &entity.StateError{DocumentID: doc.ID, Current: doc.Status, Attempted: "fetch"}
	}

	uri := doc.ArtifactURI(kind)
	if uri == "" {
		return nil, "", domain.ErrNotFound
	}

	cfg, err := uc.configOf(ctx, doc.CompanyID)
	if err != nil {
		return nil, "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, uc.callTimeout)
	defer cancel()
	raw, gwErr := uc.gw.FetchArtifact(callCtx, credentialsOf(cfg), uri)
	if gwErr != nil {
		uc.appendAudit(ctx, doc.ID, entity.AuditActionFetch, gatewayStatus(gwErr), gwErr.Error(), gatewayBody(gwErr))
		return nil, "", gwErr
	}

	contentType := "application/pdf"
	if kind == entity.ArtifactXML {
		contentType = "application/xml"
		if err := gateway.VerifyAccessKey(raw, doc.AccessKey); err != nil {
			uc.appendAudit(ctx, doc.ID, entity.AuditActionFetch, 0, err.Error(), "")
			return nil, "", err
		}
	}

	uc.appendAudit(ctx, doc.ID, entity.AuditActionFetch, 200, "artefato "+kind+" servido", "")
	return raw, contentType, nil
}

// ── Consultas ─────────────────────────────────────────────────────────────────

// GetDocument devolve um documento por id (dono do pedido ou admin).
func (uc *LifecycleUseCase) GetDocument(ctx context.Context, principal entity.Principal, documentID string) (*dto.DocumentResponse, error) {
	doc, err := uc.authorizedDocument(ctx, principal, documentID)
	if err != nil {
		return nil, err
	}
	return toDocumentResponse(doc, nil), nil
}

// ListByOrder devolve os documentos de um pedido (todas as tentativas).
func (uc *LifecycleUseCase) ListByOrder(ctx context.Context, principal entity.Principal, orderID string) ([]*dto.DocumentResponse, error) {
	order, err := uc.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	if !principal.MayOperate(order) {
		return nil, domain.ErrForbidden
	}
	docs, err := uc.docRepo.ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.DocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocumentResponse(d, nil))
	}
	return out, nil
}

// ListAudit devolve a trilha de auditoria de um documento.
func (uc *LifecycleUseCase) ListAudit(ctx context.Context, principal entity.Principal, documentID string) ([]*dto.AuditEntryResponse, error) {
	doc, err := uc.authorizedDocument(ctx, principal, documentID)
	if err != nil {
		return nil, err
	}
	entries, err := uc.auditRepo.ListByDocumentID(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, &dto.AuditEntryResponse{
			ID:         e.ID,
			Action:     e.Action,
			HTTPStatus: e.HTTPStatus,
			Message:    e.Message,
			CreatedAt:  e.CreatedAt,
		})
	}
	return out, nil
}

// ── helpers privados ──────────────────────────────────────────────────────────

// authorizedDocument carrega o documento e valida o principal contra o pedido
// de origem. Toda operação de ciclo de vida passa por aqui antes de qualquer
// chamada ao gateway.
func (uc *LifecycleUseCase) authorizedDocument(ctx context.Context, principal entity.Principal, documentID string) (*entity.FiscalDocument, error) {
	doc, err := uc.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrNotFound
	}
	order, err := uc.orderRepo.GetByID(ctx, doc.OrderID)
	if err != nil {
		return nil, err
	}
	if !principal.MayOperate(order) {
		return nil, domain.ErrForbidden
	}
	return doc, nil
}

func (uc *LifecycleUseCase) configOf(ctx context.Context, companyID string) (*entity.FiscalConfig, error) {
	cfg, err := uc.configRepo.GetByCompanyID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, &domfiscal.RuleError{Reason: domfiscal.RuleMissingConfig, Field: "fiscal_config"}
	}
	return cfg, nil
}

// persistTransition grava documento e linha de auditoria na mesma transação.
func (uc *LifecycleUseCase) persistTransition(ctx context.Context, doc *entity.FiscalDocument, entry *entity.AuditEntry) error {
	return uc.txRunner.RunFiscal(ctx, func(docRepo repository.FiscalDocumentRepository, auditRepo repository.AuditRepository) error {
		if err := docRepo.Update(ctx, doc); err != nil {
			return err
		}
		return auditRepo.Append(ctx, entry)
	})
}

// appendAudit registra uma tentativa que não mudou o estado do documento.
func (uc *LifecycleUseCase) appendAudit(ctx context.Context, documentID, action string, httpStatus int, message, snapshot string) {
	if err := uc.auditRepo.Append(ctx, auditEntry(documentID, action, httpStatus, message, snapshot)); err != nil {
		uc.log.Error().Err(err).Str("document_id", documentID).Str("action", action).Msg("falha ao gravar auditoria")
	}
}

func auditEntry(documentID, action string, httpStatus int, message, snapshot string) *entity.AuditEntry {
	return &entity.AuditEntry{
		ID:               uuid.New().String(),
		DocumentID:       documentID,
		Action:           action,
		HTTPStatus:       httpStatus,
		Message:          message,
		ResponseSnapshot: snapshot,
		CreatedAt:        time.Now(),
	}
}

func credentialsOf(cfg *entity.FiscalConfig) gateway.Credentials {
	return gateway.Credentials{Token: cfg.GatewayToken, Environment: cfg.Environment}
}

// gatewayStatus extrai o status HTTP de um erro de gateway (0 se não houver).
func gatewayStatus(err error) int {
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		return gwErr.Status
	}
	return 0
}

// gatewayBody extrai o corpo cru de um erro de gateway.
func gatewayBody(err error) string {
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		return gwErr.Body
	}
	return ""
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		seen := false
		for _, existing := range dst {
			if existing == v {
				seen = true
				break
			}
		}
		if !seen {
			dst = append(dst, v)
		}
	}
	return dst
}

func toDocumentResponse(doc *entity.FiscalDocument, warnings []string) *dto.DocumentResponse {
	return &dto.DocumentResponse{
		ID:              doc.ID,
		OrderID:         doc.OrderID,
		CompanyID:       doc.CompanyID,
		Kind:            doc.Kind,
		Status:          doc.Status,
		GatewayRef:      doc.GatewayRef,
		Attempt:         doc.Attempt,
		AuthorityNumber: doc.AuthorityNumber,
		AccessKey:       doc.AccessKey,
		PDFURI:          doc.PDFURI,
		XMLURI:          doc.XMLURI,
		Warnings:        warnings,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}
}

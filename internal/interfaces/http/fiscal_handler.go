package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/fiscal-pro/internal/application/dto"
	appfiscal "github.com/tu-usuario/fiscal-pro/internal/application/fiscal"
	"github.com/tu-usuario/fiscal-pro/internal/domain"
	"github.com/tu-usuario/fiscal-pro/internal/domain/entity"
	domfiscal "github.com/tu-usuario/fiscal-pro/internal/domain/fiscal"
	"github.com/tu-usuario/fiscal-pro/internal/infrastructure/gateway"
)

// FiscalHandler atende as requisições do ciclo de vida de documentos fiscais.
type FiscalHandler struct {
	uc *appfiscal.LifecycleUseCase
}

// NewFiscalHandler constrói o handler.
func NewFiscalHandler(uc *appfiscal.LifecycleUseCase) *FiscalHandler {
	return &FiscalHandler{uc: uc}
}

// Emit godoc
// @Summary      Emitir documento fiscal de um pedido
// @Tags         fiscal
// @Accept       json
// @Produce      json
// @Param        body  body  dto.EmitRequest  true  "Pedido a emitir"
// @Success      201   {object}  dto.DocumentResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Failure      502   {object}  dto.ErrorResponse
// @Router       /api/fiscal/documents [post]
func (h *FiscalHandler) Emit(c *fiber.Ctx) error {
	var in dto.EmitRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo inválido"})
	}
	if in.OrderID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "order_id é obrigatório", Field: "order_id"})
	}
	out, err := h.uc.Submit(c.Context(), GetPrincipal(c), in.OrderID)
	if err != nil {
		return fiscalError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID devolve um documento fiscal.
// GET /api/fiscal/documents/:id
func (h *FiscalHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.uc.GetDocument(c.Context(), GetPrincipal(c), c.Params("id"))
	if err != nil {
		return fiscalError(c, err)
	}
	return c.JSON(out)
}

// ListByOrder devolve todas as tentativas de emissão de um pedido.
// GET /api/fiscal/orders/:orderId/documents
func (h *FiscalHandler) ListByOrder(c *fiber.Ctx) error {
	out, err := h.uc.ListByOrder(c.Context(), GetPrincipal(c), c.Params("orderId"))
	if err != nil {
		return fiscalError(c, err)
	}
	return c.JSON(out)
}

// Poll godoc
// @Summary      Consultar a situação de um documento na autoridade
// @Tags         fiscal
// @Produce      json
// @Param        id   path  string  true  "ID do documento"
// @Success      200  {object}  dto.DocumentResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/fiscal/documents/{id}/poll [post]
func (h *FiscalHandler) Poll(c *fiber.Ctx) error {
	out, err := h.uc.PollStatus(c.Context(), GetPrincipal(c), c.Params("id"))
	if err != nil {
		return fiscalError(c, err)
	}
	return c.JSON(out)
}

// PollPending consulta em lote todos os documentos pendentes da empresa.
// Pensado para ser o alvo de um agendador externo.
// POST /api/fiscal/documents/poll
func (h *FiscalHandler) PollPending(c *fiber.Ctx) error {
	out, err := h.uc.PollPending(c.Context(), GetPrincipal(c))
	if err != nil {
		return fiscalError(c, err)
	}
	return c.JSON(out)
}

// Cancel godoc
// @Summary      Cancelar um documento autorizado
// @Tags         fiscal
// @Accept       json
// @Produce      json
// @Param        id    path  string             true  "ID do documento"
// @Param        body  body  dto.CancelRequest  true  "Justificativa"
// @Success      200   {object}  dto.DocumentResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/fiscal/documents/{id} [delete]
func (h *FiscalHandler) Cancel(c *fiber.Ctx) error {
	var in dto.CancelRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo inválido"})
	}
	out, err := h.uc.Cancel(c.Context(), GetPrincipal(c), c.Params("id"), in.Reason)
	if err != nil {
		return fiscalError(c, err)
	}
	return c.JSON(out)
}

// Artifact serve os bytes de um artefato do documento (danfe em PDF ou XML
// autorizado), baixados do gateway sob a credencial do tenant.
// GET /api/fiscal/documents/:id/artifacts/:kind
func (h *FiscalHandler) Artifact(c *fiber.Ctx) error {
	raw, contentType, err := h.uc.FetchArtifact(c.Context(), GetPrincipal(c), c.Params("id"), c.Params("kind"))
	if err != nil {
		return fiscalError(c, err)
	}
	c.Set(fiber.HeaderContentType, contentType)
	return c.Send(raw)
}

// Audit devolve a trilha de auditoria do documento.
// GET /api/fiscal/documents/:id/audit
func (h *FiscalHandler) Audit(c *fiber.Ctx) error {
	out, err := h.uc.ListAudit(c.Context(), GetPrincipal(c), c.Params("id"))
	if err != nil {
		return fiscalError(c, err)
	}
	return c.JSON(out)
}

// fiscalError mapeia a taxonomia de erros do motor para respostas HTTP:
//
//	RuleError / AssemblyError → 422 (corrigir configuração ou pedido)
//	StateError               → 409 (transição inválida para o estado atual)
//	gateway.Error            → 502 (autoridade indisponível ou recusou)
//	erros de domínio         → 400/401/403/404
func fiscalError(c *fiber.Ctx, err error) error {
	var ruleErr *domfiscal.RuleError
	if errors.As(err, &ruleErr) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: ruleErr.Reason, Message: err.Error(), Field: ruleErr.Field})
	}
	var asmErr *domfiscal.AssemblyError
	if errors.As(err, &asmErr) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: asmErr.Reason, Message: err.Error(), Field: asmErr.Field})
	}
	var stateErr *entity.StateError
	if errors.As(err, &stateErr) {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INVALID_STATE", Message: err.Error()})
	}
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "GATEWAY", Message: err.Error()})
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso não encontrado"})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "dados inválidos"})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "acesso negado ao recurso"})
	case errors.Is(err, domain.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "não autenticado"})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}

package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/fiscal-pro/internal/application/dto"
	appfiscal "github.com/tu-usuario/fiscal-pro/internal/application/fiscal"
)

// ConfigHandler atende leitura e escrita da configuração fiscal do tenant.
// A escrita é restrita a admin (RequireRole no router).
type ConfigHandler struct {
	uc *appfiscal.ConfigUseCase
}

// NewConfigHandler constrói o handler.
func NewConfigHandler(uc *appfiscal.ConfigUseCase) *ConfigHandler {
	return &ConfigHandler{uc: uc}
}

// Get devolve a configuração fiscal da empresa do token (sem o token do gateway).
// GET /api/fiscal/config
func (h *ConfigHandler) Get(c *fiber.Ctx) error {
	out, err := h.uc.Get(c.Context(), GetCompanyID(c))
	if err != nil {
		return fiscalError(c, err)
	}
	return c.JSON(out)
}

// Upsert godoc
// @Summary      Criar ou atualizar a configuração fiscal da empresa
// @Tags         fiscal
// @Accept       json
// @Produce      json
// @Param        body  body  dto.FiscalConfigRequest  true  "Configuração fiscal"
// @Success      200   {object}  dto.FiscalConfigResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/fiscal/config [put]
func (h *ConfigHandler) Upsert(c *fiber.Ctx) error {
	var in dto.FiscalConfigRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo inválido"})
	}
	out, err := h.uc.Upsert(c.Context(), GetCompanyID(c), in)
	if err != nil {
		return fiscalError(c, err)
	}
	return c.JSON(out)
}

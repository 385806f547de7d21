package http

import (
	"github.com/gofiber/fiber/v2"
	appfiscal "github.com/tu-usuario/fiscal-pro/internal/application/fiscal"
	"github.com/tu-usuario/fiscal-pro/internal/domain/entity"
)

// RouterDeps dependências para o router.
type RouterDeps struct {
	LifecycleUC *appfiscal.LifecycleUseCase
	ConfigUC    *appfiscal.ConfigUseCase
	JWTSecret   string
}

// Router registra as rotas da API. Todas as rotas do motor fiscal exigem
// Bearer Token; a escrita de configuração exige papel admin.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	protected := api.Group("/fiscal", AuthMiddleware(deps.JWTSecret))

	// Documentos fiscais (ciclo de vida)
	fiscalHandler := NewFiscalHandler(deps.LifecycleUC)
	docs := protected.Group("/documents")
	docs.Post("/", fiscalHandler.Emit)
	// Rota fixa antes da rota com parâmetro, senão o Fiber casa "poll" como :id.
	docs.Post("/poll", fiscalHandler.PollPending)
	docs.Get("/:id", fiscalHandler.GetByID)
	docs.Post("/:id/poll", fiscalHandler.Poll)
	docs.Delete("/:id", fiscalHandler.Cancel)
	docs.Get("/:id/artifacts/:kind", fiscalHandler.Artifact)
	docs.Get("/:id/audit", fiscalHandler.Audit)

	protected.Get("/orders/:orderId/documents", fiscalHandler.ListByOrder)

	// Configuração fiscal do tenant
	configHandler := NewConfigHandler(deps.ConfigUC)
	protected.Get("/config", configHandler.Get)
	protected.Put("/config", RequireRole(entity.RoleAdmin), configHandler.Upsert)
}

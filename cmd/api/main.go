package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	appfiscal "github.com/tu-usuario/fiscal-pro/internal/application/fiscal"
	"github.com/tu-usuario/fiscal-pro/internal/infrastructure/gateway"
	"github.com/tu-usuario/fiscal-pro/internal/infrastructure/postgres"
	httpRouter "github.com/tu-usuario/fiscal-pro/internal/interfaces/http"
	"github.com/tu-usuario/fiscal-pro/pkg/config"
	"github.com/tu-usuario/fiscal-pro/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("carregar configuração: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicação")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexão ao PostgreSQL")
	}
	defer pool.Close()

	configRepo := postgres.NewFiscalConfigRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	docRepo := postgres.NewFiscalDocumentRepository(pool)
	auditRepo := postgres.NewAuditRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	gatewayClient := gateway.NewHTTPClient(gateway.Config{
		SandboxBaseURL:    cfg.Emissor.SandboxBaseURL,
		ProductionBaseURL: cfg.Emissor.ProductionBaseURL,
		Timeout:           cfg.Emissor.RequestTimeout,
	})

	lifecycleUC := appfiscal.NewLifecycleUseCase(
		configRepo, orderRepo, docRepo, auditRepo,
		txRunner, gatewayClient, log,
		cfg.Emissor.RequestTimeout, cfg.Emissor.PollConcurrency,
	)
	configUC := appfiscal.NewConfigUseCase(configRepo)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Fiscal Pro API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		LifecycleUC: lifecycleUC,
		ConfigUC:    configUC,
		JWTSecret:   cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("sinal de desligamento recebido, encerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("desligamento do servidor")
	}

	log.Info().Msg("aplicação encerrada")
}

package main

import (
	"log"
	"strings"

	"hemolife-backend/internal/activity"
	"hemolife-backend/internal/admin"
	"hemolife-backend/internal/alert"
	"hemolife-backend/internal/auth"
	"hemolife-backend/internal/config"
	"hemolife-backend/internal/dashboard"
	"hemolife-backend/internal/database"
	"hemolife-backend/internal/donation"
	"hemolife-backend/internal/forecast"
	"hemolife-backend/internal/inventory"
	"hemolife-backend/internal/ledger"
	"hemolife-backend/internal/models"
	"hemolife-backend/internal/notifier"
	"hemolife-backend/internal/report"
	"hemolife-backend/internal/request"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	cfg := config.Load()
	database.Init(cfg)

	// Núcleo: ledger -> fluxo de requisições -> alertas -> previsão
	var transport notifier.Transport
	if cfg.SMTPHost != "" {
		transport = notifier.NewSMTP(cfg)
	}
	dispatcher := notifier.NewDispatcher(transport)

	ledgerSvc := ledger.NewService(database.DB)
	alertSvc := alert.NewService(database.DB, ledgerSvc, dispatcher, cfg)
	requestSvc := request.NewService(database.DB, ledgerSvc, alertSvc)
	forecastSvc := forecast.NewService(database.DB, ledgerSvc)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			log.Println("Erro inesperado:", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Erro inesperado no servidor",
			})
		},
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Público
	api.Post("/auth/register-admin", auth.RegisterAdminHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg, alertSvc))

	// Protegido
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	// Tipos sanguíneos (leitura para todos os perfis)
	protected.Get("/blood-types", admin.ListBloodTypesHandler())

	// Requisições (médicos criam e acompanham as próprias)
	protected.Post("/requests", request.SubmitHandler(requestSvc))
	protected.Get("/requests/mine", request.ListMineHandler(requestSvc))

	// Alertas
	protected.Get("/alerts", alert.ListAlertsHandler(alertSvc))
	protected.Post("/alerts/:id/read", alert.MarkReadHandler(alertSvc))

	// Dashboard
	protected.Get("/dashboard/summary", dashboard.SummaryHandler(ledgerSvc))

	// Rotas de equipe (admin + técnico). O grupo divide o prefixo /api com as
	// rotas comuns: registrar depois delas, senão o RequireRole as alcança.
	staff := protected.Group("")
	staff.Use(auth.RequireRole(models.RoleAdmin, models.RoleTechnician))

	// Estoque
	staff.Post("/stock-entries", inventory.AddLotHandler(ledgerSvc, alertSvc))
	staff.Get("/stock-entries", inventory.ListLotsHandler())
	staff.Get("/stock/summary", inventory.StockSummaryHandler(ledgerSvc))
	staff.Get("/stock/:type/balance", inventory.BalanceHandler(ledgerSvc))
	staff.Get("/stock/expiring", inventory.ExpiringHandler(ledgerSvc))

	// Doações
	staff.Post("/donations", donation.CreateDonationHandler(ledgerSvc, alertSvc))
	staff.Get("/donations", donation.ListDonationsHandler())

	// Aprovação/rejeição de requisições
	staff.Get("/requests", request.ListHandler(requestSvc))
	staff.Post("/requests/:id/approve", request.ApproveHandler(requestSvc, alertSvc))
	staff.Post("/requests/:id/reject", request.RejectHandler(requestSvc))

	// Previsão de demanda
	staff.Get("/forecast/:type/history", forecast.HistoryHandler(forecastSvc))
	staff.Get("/forecast/:type", forecast.ForecastHandler(forecastSvc))

	// Relatório de estoque
	staff.Get("/reports/stock", report.StockReportHandler(ledgerSvc))

	// Administração
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleAdmin))

	adminRoutes.Post("/users", admin.CreateUserHandler())
	adminRoutes.Get("/users", admin.ListUsersHandler())
	adminRoutes.Put("/users/:id", admin.UpdateUserHandler())
	adminRoutes.Post("/users/:id/toggle-active", admin.ToggleUserActiveHandler())
	adminRoutes.Post("/users/:id/reset-password", admin.ResetPasswordHandler())
	adminRoutes.Put("/blood-types/:type", admin.UpdateBloodTypeHandler(ledgerSvc))
	adminRoutes.Post("/alerts/check-low-stock", alert.CheckLowStockHandler(alertSvc))
	adminRoutes.Get("/activity-logs", activity.ListActivityLogsHandler())

	log.Println("Servidor rodando na porta:", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}

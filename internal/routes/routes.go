// Package routes defines the API routing configuration.
// It sets up all HTTP routes and their corresponding handlers,
// including middleware and authentication requirements.
package routes

import (
	"time"

	"finops/internal/handlers"
	"finops/internal/middleware"
	"finops/internal/models"
	"finops/internal/services/adjustment"
	"finops/internal/services/auth"
	"finops/internal/services/commission"
	"finops/internal/services/ledger"
	"finops/internal/services/operation"
	"finops/internal/services/recharge"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// Dependencies are the services the API is built on. Idempotency is
// optional; without it Idempotency-Key headers are ignored.
type Dependencies struct {
	Auth       auth.Service
	Ledger     ledger.Service
	Recharge   recharge.Service
	Commission commission.Service
	Operation  operation.Service
	Adjustment adjustment.Service
	Health     *handlers.HealthHandler

	Idempotency    middleware.IdempotencyStore
	IdempotencyTTL time.Duration

	Log logrus.FieldLogger
}

// SetupRoutes configures all application routes.
// It groups routes by functionality and applies appropriate middleware.
func SetupRoutes(app *fiber.App, deps Dependencies) {
	if deps.Health != nil {
		app.Get("/health", deps.Health.HealthCheck)
	}

	authMiddleware := middleware.NewAuthMiddleware(deps.Auth, deps.Log)
	chain := []fiber.Handler{authMiddleware.Handler}
	if deps.Idempotency != nil {
		chain = append(chain, middleware.Idempotency(deps.Idempotency, deps.IdempotencyTTL, deps.Log))
	}

	api := app.Group("/api", chain...)

	rechargeHandler := handlers.NewRechargeHandler(deps.Recharge)
	commissionHandler := handlers.NewCommissionHandler(deps.Commission)
	operationHandler := handlers.NewOperationHandler(deps.Operation)
	adjustmentHandler := handlers.NewAdjustmentHandler(deps.Adjustment)
	ledgerHandler := handlers.NewLedgerHandler(deps.Ledger)

	api.Post("/process-recharge", rechargeHandler.ProcessRecharge)
	api.Post("/process-commission-transfer", commissionHandler.ProcessTransfer)
	api.Post("/validate-operation", operationHandler.ValidateOperation)
	api.Get("/ledger", ledgerHandler.ListEntries)

	admin := api.Group("/admin", middleware.AdminTier())
	admin.Post("/adjustments",
		middleware.RequireCapability(func(c models.Capabilities) bool { return c.CanAdjust }),
		adjustmentHandler.Adjust)
	admin.Get("/ledger/:account_id/verify", ledgerHandler.VerifyAccount)
}

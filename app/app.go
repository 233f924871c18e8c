// Package app assembles the services and the HTTP application.
package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/rbxmart/rbxmart/config"
	"github.com/rbxmart/rbxmart/pkg/domain"
	domainorder "github.com/rbxmart/rbxmart/pkg/domain/order"
	"github.com/rbxmart/rbxmart/pkg/eventbus"
	"github.com/rbxmart/rbxmart/pkg/provider"
	"github.com/rbxmart/rbxmart/pkg/repository"
	authsvc "github.com/rbxmart/rbxmart/pkg/service/auth"
	fulfillmentsvc "github.com/rbxmart/rbxmart/pkg/service/fulfillment"
	ordersvc "github.com/rbxmart/rbxmart/pkg/service/order"
	paymentsvc "github.com/rbxmart/rbxmart/pkg/service/payment"
	stocksvc "github.com/rbxmart/rbxmart/pkg/service/stock"
	"github.com/rbxmart/rbxmart/webapi/auth"
	"github.com/rbxmart/rbxmart/webapi/common"
	orderwebapi "github.com/rbxmart/rbxmart/webapi/order"
	stockwebapi "github.com/rbxmart/rbxmart/webapi/stock"
	"github.com/rbxmart/rbxmart/webapi/webhook"
)

// Deps carries everything the services need that lives in infra.
type Deps struct {
	Uow           repository.UnitOfWork
	EventBus      eventbus.Bus
	RobloxClient  provider.RobloxClient
	Gateway       provider.PaymentGateway
	Notifier      provider.Notifier
	GamepassCache provider.GamepassCache
	Logger        *slog.Logger
}

// New builds all services, registers event handlers, and returns the Fiber app.
func New(deps *Deps, cfg *config.App) *fiber.App {
	logger := deps.Logger

	orderSvc := ordersvc.New(
		deps.Uow, deps.RobloxClient, deps.Gateway, deps.GamepassCache, cfg.Roblox, logger,
	)
	stockSvc := stocksvc.New(deps.Uow, deps.RobloxClient, logger)
	fulfillSvc := fulfillmentsvc.New(
		deps.Uow, deps.RobloxClient, deps.EventBus, cfg.Fulfillment.MaxAccountAttempts, logger,
	)
	paymentSvc := paymentsvc.New(deps.Uow, deps.Gateway, deps.Notifier, deps.EventBus, logger)
	authSvc := authsvc.New(cfg.Auth, logger)

	bus := deps.EventBus

	// Settled gamepass orders flow straight into fulfillment; manual (joki)
	// orders stay in pending for the operator. A failed run has already
	// parked the order, so the handler only logs.
	bus.Subscribe(domainorder.PaidEvent{}.Type(), func(ctx context.Context, e domain.Event) {
		paid, ok := e.(domainorder.PaidEvent)
		if !ok {
			return
		}
		res, err := fulfillSvc.Fulfill(ctx, paid.OrderID)
		if err != nil {
			logger.Warn(
				"automatic fulfillment skipped",
				"order_id", paid.OrderID,
				"invoice_code", paid.InvoiceCode,
				"error", err,
			)
			return
		}
		logger.Info(
			"automatic fulfillment finished",
			"order_id", paid.OrderID,
			"invoice_code", paid.InvoiceCode,
			"outcome", res.Outcome,
		)
	})

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return common.ProblemDetailsJSON(c, "Internal Server Error", err)
		},
	})

	app.Use(limiter.New(limiter.Config{
		Max:        cfg.RateLimit.MaxRequests,
		Expiration: cfg.RateLimit.Window,
		KeyGenerator: func(c *fiber.Ctx) string {
			// Use X-Forwarded-For header if available (for load balancers/proxies)
			// Fall back to X-Real-IP, then to direct IP
			if forwardedFor := c.Get("X-Forwarded-For"); forwardedFor != "" {
				if commaIndex := strings.Index(forwardedFor, ","); commaIndex != -1 {
					return strings.TrimSpace(forwardedFor[:commaIndex])
				}
				return strings.TrimSpace(forwardedFor)
			}
			if realIP := c.Get("X-Real-IP"); realIP != "" {
				return realIP
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return common.ProblemDetailsJSON(
				c,
				"Too Many Requests",
				errors.New("rate limit exceeded"),
				fiber.StatusTooManyRequests,
			)
		},
	}))
	app.Use(recover.New())
	app.Use(cors.New())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("App is working! 🚀")
	})

	orderwebapi.Routes(app, orderSvc, fulfillSvc, cfg, logger)
	stockwebapi.Routes(app, stockSvc, cfg, logger)
	webhook.Routes(app, paymentSvc, logger)
	auth.Routes(app, authSvc)
	return app
}

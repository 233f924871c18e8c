// Package stock exposes the back-office stock account routes.
package stock

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rbxmart/rbxmart/config"
	"github.com/rbxmart/rbxmart/pkg/domain"
	domainstock "github.com/rbxmart/rbxmart/pkg/domain/stock"
	"github.com/rbxmart/rbxmart/pkg/middleware"
	stocksvc "github.com/rbxmart/rbxmart/pkg/service/stock"
	"github.com/rbxmart/rbxmart/webapi/common"
)

// Routes registers the stock account routes. All of them are operator-only.
func Routes(app *fiber.App, svc *stocksvc.Service, cfg *config.App, logger *slog.Logger) {
	g := app.Group("/admin/stock-accounts", middleware.JwtProtected(cfg.Auth.Jwt))
	g.Post("/", AddAccount(svc, logger))
	g.Get("/", ListAccounts(svc))
	g.Post("/:id/validate", ValidateAccount(svc))
	g.Patch("/:id/status", SetStatus(svc))
	g.Delete("/:id", DeleteAccount(svc))
}

// AddAccount registers a stock account from its credential. The credential
// is validated against the platform before anything is stored.
func AddAccount(svc *stocksvc.Service, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := common.BindAndValidate[AddAccountRequest](c)
		if err != nil {
			return nil
		}
		read, err := svc.AddAccount(c.Context(), req.Credential)
		if err != nil {
			logger.Warn("stock account registration failed", "error", err)
			return common.ProblemDetailsJSON(c, "Could not register stock account", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Stock account registered", read)
	}
}

// ListAccounts returns the stock account pool.
func ListAccounts(svc *stocksvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		reads, err := svc.ListAccounts(c.Context())
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list stock accounts", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Stock accounts fetched", reads)
	}
}

// ValidateAccount refreshes an account's cached balance from the platform.
func ValidateAccount(svc *stocksvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid account ID", err,
				"Account ID must be a valid UUID")
		}
		read, err := svc.Validate(c.Context(), id)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Validation failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Stock account validated", read)
	}
}

// SetStatus toggles selection eligibility for an account.
func SetStatus(svc *stocksvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid account ID", err,
				"Account ID must be a valid UUID")
		}
		req, err := common.BindAndValidate[SetStatusRequest](c)
		if err != nil {
			return nil
		}
		if err := svc.SetStatus(c.Context(), id, domainstock.Status(req.Status)); err != nil {
			return common.ProblemDetailsJSON(c, "Status update failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Stock account updated", nil)
	}
}

// DeleteAccount removes an account from the pool.
func DeleteAccount(svc *stocksvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid account ID", err,
				"Account ID must be a valid UUID")
		}
		if err := svc.DeleteAccount(c.Context(), id); err != nil {
			return common.ProblemDetailsJSON(c, "Delete failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Stock account deleted", nil)
	}
}

func parseID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, domain.ErrValidation
	}
	return id, nil
}

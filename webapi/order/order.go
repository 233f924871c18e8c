// Package order exposes the customer checkout and order status routes plus
// the back-office order management routes.
package order

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rbxmart/rbxmart/config"
	"github.com/rbxmart/rbxmart/pkg/domain"
	domainorder "github.com/rbxmart/rbxmart/pkg/domain/order"
	"github.com/rbxmart/rbxmart/pkg/middleware"
	"github.com/rbxmart/rbxmart/pkg/service/fulfillment"
	ordersvc "github.com/rbxmart/rbxmart/pkg/service/order"
	"github.com/rbxmart/rbxmart/webapi/common"
)

// Routes registers the order routes.
func Routes(
	app *fiber.App,
	svc *ordersvc.Service,
	fulfillSvc *fulfillment.Service,
	cfg *config.App,
	logger *slog.Logger,
) {
	app.Post("/orders", Checkout(svc, logger))
	app.Get("/orders/:invoice", GetByInvoice(svc))

	admin := app.Group("/admin", middleware.JwtProtected(cfg.Auth.Jwt))
	admin.Get("/orders", ListOrders(svc))
	admin.Post("/orders/:id/transition", TransitionOrder(svc))
	admin.Post("/orders/:id/fulfill", FulfillOrder(fulfillSvc, logger))
}

// Checkout creates an order and opens a payment session for it.
func Checkout(svc *ordersvc.Service, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := common.BindAndValidate[CheckoutRequest](c)
		if err != nil {
			return nil
		}
		result, err := svc.Checkout(c.Context(), ordersvc.CheckoutInput{
			CustomerEmail: req.CustomerEmail,
			ServiceType:   domainorder.ServiceType(req.ServiceType),
			Category:      domainorder.ServiceCategory(req.Category),
			GamepassID:    req.GamepassID,
			Price:         req.Price,
		})
		if err != nil {
			logger.Warn("checkout failed", "error", err)
			return common.ProblemDetailsJSON(c, "Checkout failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Order created", CheckoutResponse{
			Order:      result.Order,
			PaymentURL: result.PaymentURL,
		})
	}
}

// GetByInvoice returns the public view of an order.
func GetByInvoice(svc *ordersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		read, err := svc.GetByInvoice(c.Context(), c.Params("invoice"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Order not found", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Order found", read)
	}
}

// ListOrders returns orders for the back office, optionally filtered by
// ?status=.
func ListOrders(svc *ordersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status := domainorder.Status(c.Query("status"))
		limit := c.QueryInt("limit", 100)
		reads, err := svc.List(c.Context(), status, limit)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list orders", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Orders fetched", reads)
	}
}

// TransitionOrder appends a manual status transition.
func TransitionOrder(svc *ordersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid order ID", domain.ErrValidation,
				"Order ID must be a valid UUID")
		}
		req, err := common.BindAndValidate[TransitionRequest](c)
		if err != nil {
			return nil
		}
		read, err := svc.Transition(c.Context(), id, domainorder.Status(req.Status), req.Note)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Transition failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Order updated", read)
	}
}

// FulfillOrder re-triggers the purchase orchestration for a paid order.
// Deferred runs are reported as 200 with the deferral reason; only
// precondition violations surface as errors.
func FulfillOrder(svc *fulfillment.Service, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid order ID", domain.ErrValidation,
				"Order ID must be a valid UUID")
		}
		result, err := svc.Fulfill(c.Context(), id)
		if err != nil {
			logger.Warn("manual fulfillment trigger failed", "order_id", id, "error", err)
			return common.ProblemDetailsJSON(c, "Fulfillment rejected", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Fulfillment finished", result)
	}
}

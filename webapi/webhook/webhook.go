// Package webhook receives payment gateway notifications.
package webhook

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	paymentsvc "github.com/rbxmart/rbxmart/pkg/service/payment"
	"github.com/rbxmart/rbxmart/webapi/common"
)

// NotificationRequest is the gateway's webhook payload.
type NotificationRequest struct {
	OrderID           string `json:"order_id" validate:"required"`
	StatusCode        string `json:"status_code" validate:"required"`
	GrossAmount       string `json:"gross_amount" validate:"required"`
	SignatureKey      string `json:"signature_key" validate:"required"`
	TransactionStatus string `json:"transaction_status" validate:"required"`
	FraudStatus       string `json:"fraud_status"`
	PaymentType       string `json:"payment_type"`
}

// Routes registers the webhook endpoint. No JWT guard here: the signature
// key inside the payload is the authentication.
func Routes(app *fiber.App, svc *paymentsvc.Service, logger *slog.Logger) {
	app.Post("/webhooks/payment", PaymentNotification(svc, logger))
}

// PaymentNotification applies one gateway notification to its order.
func PaymentNotification(svc *paymentsvc.Service, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := common.BindAndValidate[NotificationRequest](c)
		if err != nil {
			return nil
		}
		o, err := svc.HandleNotification(c.Context(), paymentsvc.Notification{
			OrderID:           req.OrderID,
			StatusCode:        req.StatusCode,
			GrossAmount:       req.GrossAmount,
			SignatureKey:      req.SignatureKey,
			TransactionStatus: req.TransactionStatus,
			FraudStatus:       req.FraudStatus,
			PaymentType:       req.PaymentType,
		})
		if err != nil {
			logger.Warn("webhook rejected", "order_id", req.OrderID, "error", err)
			return common.ProblemDetailsJSON(c, "Notification rejected", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Notification processed", fiber.Map{
			"invoice_code":   o.InvoiceCode,
			"payment_status": o.PaymentStatus,
			"order_status":   o.Status,
		})
	}
}

package provider

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rbxmart/rbxmart/config"
	"github.com/wneessen/go-mail"
)

// SMTPNotifier implements provider.Notifier over SMTP.
type SMTPNotifier struct {
	cfg    config.SMTPConfig
	logger *slog.Logger
}

// NewSMTPNotifier creates an SMTP-backed notifier from config.
func NewSMTPNotifier(cfg config.SMTPConfig, logger *slog.Logger) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg, logger: logger}
}

// PaymentConfirmed emails the customer that their payment settled and the
// order is on its way.
func (n *SMTPNotifier) PaymentConfirmed(ctx context.Context, email, invoiceCode string, amount int64) error {
	msg := mail.NewMsg()
	if err := msg.From(n.cfg.From); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(email); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(fmt.Sprintf("Payment received for order %s", invoiceCode))
	msg.SetBodyString(mail.TypeTextPlain, fmt.Sprintf(
		"Hi,\n\nWe received your payment of %d for order %s. "+
			"Your order is now being processed.\n\nThank you for shopping with us!",
		amount, invoiceCode))

	client, err := mail.NewClient(n.cfg.Host,
		mail.WithPort(n.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(n.cfg.Username),
		mail.WithPassword(n.cfg.Password),
	)
	if err != nil {
		return fmt.Errorf("failed to build mail client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send confirmation email: %w", err)
	}
	n.logger.Info("confirmation email sent", "invoice_code", invoiceCode)
	return nil
}

package order

// CheckoutRequest is the customer checkout payload.
type CheckoutRequest struct {
	CustomerEmail string `json:"customer_email" validate:"required,email"`
	ServiceType   string `json:"service_type" validate:"required,oneof=robux joki"`
	Category      string `json:"category" validate:"required,oneof=gamepass manual"`
	GamepassID    int64  `json:"gamepass_id" validate:"required_if=Category gamepass"`
	Price         int64  `json:"price" validate:"omitempty,gt=0"`
}

// TransitionRequest is the admin manual status transition payload.
type TransitionRequest struct {
	Status string `json:"status" validate:"required,oneof=pending processing completed cancelled failed"`
	Note   string `json:"note" validate:"max=500"`
}

// CheckoutResponse carries the created order and the payment redirect.
type CheckoutResponse struct {
	Order      any    `json:"order"`
	PaymentURL string `json:"payment_url"`
}

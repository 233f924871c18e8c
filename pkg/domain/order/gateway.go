package order

// MapGatewayStatus translates a payment gateway notification
// (transaction_status, fraud_status) into the internal payment and order
// statuses. The mapping is a fixed table; unknown combinations return
// ok=false and must leave the order untouched.
func MapGatewayStatus(txStatus, fraudStatus string) (PaymentStatus, Status, bool) {
	switch txStatus {
	case "capture":
		switch fraudStatus {
		case "accept", "":
			return PaymentSettlement, StatusProcessing, true
		case "challenge":
			// Held for manual fraud review; the gateway sends a follow-up
			// notification once the review resolves.
			return PaymentPending, StatusWaitingPayment, true
		case "deny":
			return PaymentFailed, StatusFailed, true
		}
		return "", "", false
	case "settlement":
		return PaymentSettlement, StatusProcessing, true
	case "pending":
		return PaymentPending, StatusWaitingPayment, true
	case "deny":
		return PaymentFailed, StatusFailed, true
	case "cancel":
		return PaymentCancelled, StatusFailed, true
	case "expire":
		return PaymentExpired, StatusFailed, true
	}
	return "", "", false
}

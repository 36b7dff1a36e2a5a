package enums

import "strings"

// PaymentState tracks the lifecycle of a gateway payment attempt.
type PaymentState string

const (
	PaymentStatePending   PaymentState = "pending"
	PaymentStateSuccess   PaymentState = "success"
	PaymentStateFailed    PaymentState = "failed"
	PaymentStateCancelled PaymentState = "cancelled"
)

var validPaymentStates = set[PaymentState]{
	PaymentStatePending,
	PaymentStateSuccess,
	PaymentStateFailed,
	PaymentStateCancelled,
}

// String implements fmt.Stringer.
func (p PaymentState) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentState.
func (p PaymentState) IsValid() bool {
	return validPaymentStates.has(p)
}

// IsTerminal reports whether the attempt can no longer change state.
func (p PaymentState) IsTerminal() bool {
	return p == PaymentStateSuccess || p == PaymentStateFailed || p == PaymentStateCancelled
}

// ParsePaymentState converts raw input into a PaymentState.
func ParsePaymentState(value string) (PaymentState, error) {
	return validPaymentStates.parse(value, "payment state")
}

// PaymentStateFromReported normalises the free-form status strings gateways
// send in webhooks, redirects and verify responses. Unknown values map to
// pending so they can never settle an attempt.
func PaymentStateFromReported(value string) PaymentState {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "success", "successful", "succeeded", "paid", "completed":
		return PaymentStateSuccess
	case "failed", "failure", "error", "declined":
		return PaymentStateFailed
	case "cancelled", "canceled", "expired", "abandoned":
		return PaymentStateCancelled
	default:
		return PaymentStatePending
	}
}

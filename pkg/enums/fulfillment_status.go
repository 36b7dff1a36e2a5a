package enums

// FulfillmentStatus is the lifecycle of a supplier purchase order.
type FulfillmentStatus string

const (
	FulfillmentAwaitingPayment  FulfillmentStatus = "awaiting_payment"
	FulfillmentPaymentConfirmed FulfillmentStatus = "payment_confirmed"
	FulfillmentInTransit        FulfillmentStatus = "in_transit"
	FulfillmentDelivered        FulfillmentStatus = "delivered"
	FulfillmentIssueReported    FulfillmentStatus = "issue_reported"
	FulfillmentCancelled        FulfillmentStatus = "cancelled"
)

var validFulfillmentStatuses = set[FulfillmentStatus]{
	FulfillmentAwaitingPayment,
	FulfillmentPaymentConfirmed,
	FulfillmentInTransit,
	FulfillmentDelivered,
	FulfillmentIssueReported,
	FulfillmentCancelled,
}

// String implements fmt.Stringer.
func (s FulfillmentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known FulfillmentStatus.
func (s FulfillmentStatus) IsValid() bool {
	return validFulfillmentStatuses.has(s)
}

func (s FulfillmentStatus) IsTerminal() bool {
	return s == FulfillmentDelivered || s == FulfillmentIssueReported || s == FulfillmentCancelled
}

// ParseFulfillmentStatus converts raw input into a FulfillmentStatus.
func ParseFulfillmentStatus(value string) (FulfillmentStatus, error) {
	return validFulfillmentStatuses.parse(value, "fulfillment status")
}

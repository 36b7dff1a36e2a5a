package enums

// MovementReason explains why warehouse stock changed.
type MovementReason string

const (
	MovementPurchaseDelivery MovementReason = "purchase_delivery"
)

func (r MovementReason) String() string {
	return string(r)
}

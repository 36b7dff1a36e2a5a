package enums

// LedgerEventType enumerates entries in the append-only payment ledger.
type LedgerEventType string

const (
	LedgerEventInitiated        LedgerEventType = "initiated"
	LedgerEventSettledSuccess   LedgerEventType = "settled_success"
	LedgerEventSettledFailed    LedgerEventType = "settled_failed"
	LedgerEventSettledCancelled LedgerEventType = "settled_cancelled"
	LedgerEventVerifyFailed     LedgerEventType = "verify_failed"
	LedgerEventAmountMismatch   LedgerEventType = "amount_mismatch"
)

var validLedgerEventTypes = set[LedgerEventType]{
	LedgerEventInitiated,
	LedgerEventSettledSuccess,
	LedgerEventSettledFailed,
	LedgerEventSettledCancelled,
	LedgerEventVerifyFailed,
	LedgerEventAmountMismatch,
}

// String implements fmt.Stringer.
func (t LedgerEventType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known ledger event type.
func (t LedgerEventType) IsValid() bool {
	return validLedgerEventTypes.has(t)
}

// ParseLedgerEventType converts raw input into a LedgerEventType.
func ParseLedgerEventType(value string) (LedgerEventType, error) {
	return validLedgerEventTypes.parse(value, "ledger event type")
}

// LedgerEventForSettlement maps a terminal payment state to its ledger entry.
func LedgerEventForSettlement(state PaymentState) LedgerEventType {
	switch state {
	case PaymentStateSuccess:
		return LedgerEventSettledSuccess
	case PaymentStateFailed:
		return LedgerEventSettledFailed
	default:
		return LedgerEventSettledCancelled
	}
}

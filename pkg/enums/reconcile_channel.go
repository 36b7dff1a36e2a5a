package enums

// ReconcileChannel identifies how a payment outcome reached the system.
type ReconcileChannel string

const (
	// ChannelWebhook is the signed server-to-server callback and is authoritative.
	ChannelWebhook ReconcileChannel = "webhook"
	// ChannelReturn is the browser redirect; advisory only.
	ChannelReturn ReconcileChannel = "return"
	// ChannelPoll is an operator or scheduled verify-by-reference.
	ChannelPoll ReconcileChannel = "poll"
)

var validReconcileChannels = set[ReconcileChannel]{
	ChannelWebhook,
	ChannelReturn,
	ChannelPoll,
}

func (c ReconcileChannel) String() string {
	return string(c)
}

func (c ReconcileChannel) IsValid() bool {
	return validReconcileChannels.has(c)
}

// RequiresVerification reports whether reported states on this channel must be
// confirmed with the gateway before they are trusted.
func (c ReconcileChannel) RequiresVerification() bool {
	return c == ChannelReturn || c == ChannelPoll
}

func ParseReconcileChannel(value string) (ReconcileChannel, error) {
	return validReconcileChannels.parse(value, "reconcile channel")
}

// ReconcileOutcome summarises what a reconciliation did.
type ReconcileOutcome string

const (
	ReconcileApplied        ReconcileOutcome = "applied"
	ReconcileAlreadySettled ReconcileOutcome = "already_settled"
	ReconcilePending        ReconcileOutcome = "pending"
	ReconcileDuplicate      ReconcileOutcome = "duplicate"
	ReconcileRejected       ReconcileOutcome = "rejected"
	ReconcileFailed         ReconcileOutcome = "failed"
)

func (o ReconcileOutcome) String() string {
	return string(o)
}

package enums

// DeliveryCondition is the receiver's assessment of a delivered shipment.
type DeliveryCondition string

const (
	DeliveryExcellent DeliveryCondition = "excellent"
	DeliveryGood      DeliveryCondition = "good"
	DeliveryFair      DeliveryCondition = "fair"
	DeliveryPoor      DeliveryCondition = "poor"
	DeliveryDamaged   DeliveryCondition = "damaged"
)

var validDeliveryConditions = set[DeliveryCondition]{
	DeliveryExcellent,
	DeliveryGood,
	DeliveryFair,
	DeliveryPoor,
	DeliveryDamaged,
}

func (c DeliveryCondition) IsValid() bool {
	return validDeliveryConditions.has(c)
}

func ParseDeliveryCondition(value string) (DeliveryCondition, error) {
	return validDeliveryConditions.parse(value, "delivery condition")
}

// DeliveryOutcome distinguishes full from partial receipt.
type DeliveryOutcome string

const (
	DeliveryOutcomeDelivered DeliveryOutcome = "delivered"
	DeliveryOutcomePartial   DeliveryOutcome = "partial"
)

// IssueType classifies a reported delivery problem.
type IssueType string

const (
	IssueDamaged      IssueType = "damaged"
	IssueMissingItems IssueType = "missing_items"
	IssueWrongItems   IssueType = "wrong_items"
	IssueQuality      IssueType = "quality"
	IssueLateDelivery IssueType = "late_delivery"
	IssueOther        IssueType = "other"
)

var validIssueTypes = set[IssueType]{
	IssueDamaged,
	IssueMissingItems,
	IssueWrongItems,
	IssueQuality,
	IssueLateDelivery,
	IssueOther,
}

func (t IssueType) IsValid() bool {
	return validIssueTypes.has(t)
}

// IssueSeverity ranks a reported issue.
type IssueSeverity string

const (
	SeverityLow      IssueSeverity = "low"
	SeverityMedium   IssueSeverity = "medium"
	SeverityHigh     IssueSeverity = "high"
	SeverityCritical IssueSeverity = "critical"
)

var validIssueSeverities = set[IssueSeverity]{
	SeverityLow,
	SeverityMedium,
	SeverityHigh,
	SeverityCritical,
}

func (s IssueSeverity) IsValid() bool {
	return validIssueSeverities.has(s)
}

package enums

// NotificationType is the kind of inbox notification raised for a payer or supplier.
type NotificationType string

const (
	NotificationPaymentConfirmed  NotificationType = "payment_confirmed"
	NotificationPaymentFailed     NotificationType = "payment_failed"
	NotificationOrderShipped      NotificationType = "order_shipped"
	NotificationDeliveryConfirmed NotificationType = "delivery_confirmed"
	NotificationDeliveryPartial   NotificationType = "delivery_partial"
	NotificationIssueReported     NotificationType = "issue_reported"
	NotificationOrderCancelled    NotificationType = "order_cancelled"
)

var validNotificationTypes = set[NotificationType]{
	NotificationPaymentConfirmed,
	NotificationPaymentFailed,
	NotificationOrderShipped,
	NotificationDeliveryConfirmed,
	NotificationDeliveryPartial,
	NotificationIssueReported,
	NotificationOrderCancelled,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	return validNotificationTypes.has(n)
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	return validNotificationTypes.parse(value, "notification type")
}

// RecipientKind names who a notification is addressed to.
type RecipientKind string

const (
	RecipientPayer    RecipientKind = "payer"
	RecipientSupplier RecipientKind = "supplier"
)

package enums

// WebhookEventType is the event_type discriminator carried by inbound
// webhook payloads.
type WebhookEventType string

const (
	WebhookEventPaymentCreated     WebhookEventType = "payment.created"
	WebhookEventTransactionSettled WebhookEventType = "transaction.settled"
)

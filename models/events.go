package models

import "time"

// CallBillingEvent is the queue payload delivered when a call ends. The
// external call id is the per-call idempotency key.
type CallBillingEvent struct {
	ConversationId  string `json:"conversation_id"`
	WorkspaceId     int    `json:"workspace_id"`
	PartnerId       int    `json:"partner_id"`
	DurationSeconds int64  `json:"duration_seconds"`
	Provider        string `json:"provider"`
	ExternalCallId  string `json:"external_call_id"`
}

// SubscriptionEvent is the normalized shape of a gateway subscription
// created/updated delivery after the raw payload has been decoded.
type SubscriptionEvent struct {
	WorkspaceId            int
	PlanId                 string
	ExternalSubscriptionId string
	ExternalCustomerId     string
	ExternalStatus         string
	CurrentPeriodStart     time.Time
	CurrentPeriodEnd       time.Time
	EventTime              time.Time
}

// InvoiceEvent is the normalized shape of a gateway invoice payment
// delivery. UsageInvoice is true when the invoice carries the
// postpaid_usage metadata tag rather than being a regular subscription
// invoice.
type InvoiceEvent struct {
	ExternalSubscriptionId string
	AmountCents            int64
	UsageInvoice           bool
	EventTime              time.Time
}

// TopupEvent is the normalized shape of a payment_intent.succeeded
// delivery tagged as a workspace credits top-up.
type TopupEvent struct {
	WorkspaceId       int
	AmountCents       int64
	ExternalPaymentId string
}

package models

import "time"

// Billing types supported by plans and subscriptions.
const (
	BillingTypePrepaid  = "prepaid"
	BillingTypePostpaid = "postpaid"
)

// Internal subscription statuses.
const (
	StatusActive     = "active"
	StatusPastDue    = "past_due"
	StatusCanceled   = "canceled"
	StatusIncomplete = "incomplete"
	StatusTrialing   = "trialing"
	StatusPaused     = "paused"
)

// WorkspaceSubscription is the per-workspace billing state. One row per
// workspace; canceled subscriptions are kept, never deleted.
type WorkspaceSubscription struct {
	Id                        int
	WorkspaceId               int
	PlanId                    string
	BillingType               string
	Status                    string
	CurrentPeriodStart        time.Time
	CurrentPeriodEnd          time.Time
	MinutesUsedThisPeriod     int64
	PostpaidMinutesUsed       int64
	PendingInvoiceAmountCents int64
	OverageChargesCents       int64
	ExternalSubscriptionId    string
	ExternalCustomerId        string
	GatewayEventTime          time.Time
}

// BillingPlan is read-only reference data from the plan catalog.
type BillingPlan struct {
	Id                        string
	KeyName                   string
	BillingType               string
	IncludedMinutes           int64
	OverageRatePerMinuteCents int64
}

// CreditBalance is the materialized credit balance for a workspace. The
// balance always equals the sum of applied top-ups minus call deductions.
type CreditBalance struct {
	WorkspaceId  int
	BalanceCents int64
}

// CreditTopup is one applied top-up. Immutable once written; the unique key
// on (workspace_id, external_payment_id) is the idempotency anchor.
type CreditTopup struct {
	Id                int
	WorkspaceId       int
	ExternalPaymentId string
	AmountCents       int64
	CreatedAt         time.Time
}

// ChargeResult is the outcome of the pure usage calculation. No side
// effects; the orchestrator applies the new counters transactionally.
type ChargeResult struct {
	MinutesBilled       int64
	FreeMinutesApplied  int64
	OverageMinutes      int64
	OverageCents        int64
	AmountDeductedCents int64
	DeficitCents        int64
	Blocked             bool

	NewMinutesUsed         int64
	NewPostpaidMinutes     int64
	NewPendingInvoiceCents int64
	NewOverageChargesCents int64
}

// BillingOutcome is returned to the call-event consumer for every
// completed call.
type BillingOutcome struct {
	Success             bool
	AlreadyProcessed    bool
	Blocked             bool
	Reason              string
	MinutesAdded        int64
	AmountDeductedCents int64
}

// PostpaidSnapshot is the pre-reset counter state returned by a postpaid
// period close, used for audit and confirmation logging.
type PostpaidSnapshot struct {
	WorkspaceId            int
	ExternalSubscriptionId string
	PreviousUsage          int64
	PreviousCharges        int64
	ClosedAt               time.Time
}

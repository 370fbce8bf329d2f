package models

// InvoiceTask is published by the distributor for every postpaid
// subscription with pending charges at period close.
type InvoiceTask struct {
	WorkspaceId            int    `json:"workspace_id"`
	ExternalSubscriptionId string `json:"external_subscription_id"`
	PendingAmountCents     int64  `json:"pending_amount_cents"`
	PendingMinutes         int64  `json:"pending_minutes"`
	RunId                  string `json:"run_id"`
}

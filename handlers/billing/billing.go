package billing

import (
	"voicelane.com/billing/models"
)

// UsageInvoicer creates the gateway invoice for a postpaid period's
// pending charges. The counters reset only when the gateway later
// confirms payment through its webhook, so a failed invoice leaves the
// pending amount in place.
type UsageInvoicer interface {
	CreateUsageInvoice(sub *models.WorkspaceSubscription, task *models.InvoiceTask) error
}

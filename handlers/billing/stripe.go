package billing

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/invoice"
	"github.com/stripe/stripe-go/v72/invoiceitem"
	"voicelane.com/billing/models"
)

type StripeUsageInvoicer struct {
	StripeKey string
	logger    *logrus.Entry
}

func NewStripeUsageInvoicer(stripeKey string) *StripeUsageInvoicer {
	return &StripeUsageInvoicer{
		StripeKey: stripeKey,
		logger:    logrus.WithField("component", "stripe_invoicer"),
	}
}

func (hndl *StripeUsageInvoicer) CreateUsageInvoice(sub *models.WorkspaceSubscription, task *models.InvoiceTask) error {
	stripe.Key = hndl.StripeKey

	if sub.ExternalCustomerId == "" {
		return errors.Errorf("subscription %s has no gateway customer", sub.ExternalSubscriptionId)
	}

	description := fmt.Sprintf("Usage charges: %d minutes", task.PendingMinutes)
	itemParams := &stripe.InvoiceItemParams{
		Customer:    stripe.String(sub.ExternalCustomerId),
		Amount:      stripe.Int64(task.PendingAmountCents),
		Currency:    stripe.String(string(stripe.CurrencyUSD)),
		Description: stripe.String(description),
	}
	itemParams.SetIdempotencyKey(usageRunKey(task, "item"))
	if _, err := invoiceitem.New(itemParams); err != nil {
		return errors.Wrap(err, "could not create invoice item")
	}

	invoiceParams := &stripe.InvoiceParams{
		Customer:         stripe.String(sub.ExternalCustomerId),
		AutoAdvance:      stripe.Bool(true),
		CollectionMethod: stripe.String(string(stripe.InvoiceCollectionMethodChargeAutomatically)),
	}
	invoiceParams.SetIdempotencyKey(usageRunKey(task, "invoice"))
	// the webhook handler recognizes usage invoices by this tag and closes
	// the postpaid period on payment
	invoiceParams.AddMetadata("type", "postpaid_usage")
	invoiceParams.AddMetadata("subscription_id", sub.ExternalSubscriptionId)
	invoiceParams.AddMetadata("workspace_id", fmt.Sprintf("%d", sub.WorkspaceId))
	invoiceParams.AddMetadata("run_id", task.RunId)

	inv, err := invoice.New(invoiceParams)
	if err != nil {
		return errors.Wrap(err, "could not create usage invoice")
	}

	hndl.logger.Info(fmt.Sprintf("created usage invoice %s for workspace %d: %d cents", inv.ID, sub.WorkspaceId, task.PendingAmountCents))
	return nil
}

// usageRunKey pins the gateway-side idempotency of each invoicing call to
// the distribution run, so a requeued or retried task cannot create a
// second invoice item for the same period.
func usageRunKey(task *models.InvoiceTask, part string) string {
	return fmt.Sprintf("usage-%s-%s-%s", part, task.RunId, task.ExternalSubscriptionId)
}

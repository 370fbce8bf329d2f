package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v72"
	"voicelane.com/billing/internal/ledger"
	"voicelane.com/billing/internal/subscription"
	"voicelane.com/billing/models"
)

// Metadata tags the gateway attaches to payments and invoices created by
// this platform.
const (
	MetadataTypeTopup         = "workspace_credits_topup"
	MetadataTypePostpaidUsage = "postpaid_usage"
)

// eventDedupeTTL keeps processed gateway event ids around long enough to
// cover Stripe's redelivery window.
const eventDedupeTTL = 72 * time.Hour

type CreditLedger interface {
	ApplyTopup(workspaceId int, amountCents int64, externalPaymentId string) (*ledger.TopupResult, error)
}

type SubscriptionSync interface {
	Upsert(ev *models.SubscriptionEvent) error
	Cancel(externalSubscriptionId string, eventTime time.Time) error
	HandleInvoicePaid(ev *models.InvoiceEvent) (*models.PostpaidSnapshot, error)
	HandleInvoiceFailed(externalSubscriptionId string, eventTime time.Time) error
}

// StripeHandler routes verified gateway events to the billing services.
// Domain rejections are logged and swallowed so the webhook is always
// ACKed; only infrastructure errors propagate, which makes the transport
// redeliver.
type StripeHandler struct {
	rdb    *redis.Client
	ledger CreditLedger
	sync   SubscriptionSync
	logger *logrus.Entry
}

func NewStripeHandler(rdb *redis.Client, creditLedger CreditLedger, sync SubscriptionSync) *StripeHandler {
	return &StripeHandler{
		rdb:    rdb,
		ledger: creditLedger,
		sync:   sync,
		logger: logrus.WithField("component", "stripe_webhooks"),
	}
}

func (h *StripeHandler) HandleEvent(ctx context.Context, event stripe.Event) error {
	dedupeKey := ""
	if h.rdb != nil {
		key := "stripe_event:" + event.ID
		fresh, err := h.rdb.SetNX(ctx, key, "1", eventDedupeTTL).Result()
		if err != nil {
			// dedupe is an optimization; the unique keys in the store still
			// guarantee at-most-once effect
			h.logger.Warn("event dedupe unavailable: " + err.Error())
		} else if !fresh {
			h.logger.Info(fmt.Sprintf("skipping already seen event %s (%s)", event.ID, event.Type))
			return nil
		} else {
			dedupeKey = key
		}
	}

	err := h.route(event)
	if err != nil && dedupeKey != "" {
		// an error makes the transport redeliver; release the claim so the
		// retry is not mistaken for a duplicate
		if derr := h.rdb.Del(ctx, dedupeKey).Err(); derr != nil {
			h.logger.Warn("could not release dedupe key for event " + event.ID + ": " + derr.Error())
		}
	}
	return err
}

func (h *StripeHandler) route(event stripe.Event) error {
	eventTime := time.Unix(event.Created, 0)

	switch event.Type {
	case "payment_intent.succeeded":
		return h.handlePaymentIntent(event)
	case "customer.subscription.created", "customer.subscription.updated":
		return h.handleSubscriptionUpdate(event, eventTime)
	case "customer.subscription.deleted":
		return h.handleSubscriptionDeleted(event, eventTime)
	case "invoice.payment_succeeded":
		return h.handleInvoicePaid(event, eventTime)
	case "invoice.payment_failed":
		return h.handleInvoiceFailed(event, eventTime)
	}

	h.logger.Info(fmt.Sprintf("ignoring event %s of kind %s", event.ID, event.Type))
	return nil
}

func (h *StripeHandler) handlePaymentIntent(event stripe.Event) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		h.logger.Error(fmt.Sprintf("could not decode payment intent from event %s: %s", event.ID, err.Error()))
		return nil
	}
	if intent.Metadata["type"] != MetadataTypeTopup {
		return nil
	}

	workspaceId, err := strconv.Atoi(intent.Metadata["workspace_id"])
	if err != nil {
		h.logger.Error(fmt.Sprintf("topup payment %s has no usable workspace_id metadata", intent.ID))
		return nil
	}

	amount := intent.AmountReceived
	if amount == 0 {
		amount = intent.Amount
	}
	ev := &models.TopupEvent{
		WorkspaceId:       workspaceId,
		AmountCents:       amount,
		ExternalPaymentId: intent.ID,
	}
	result, err := h.ledger.ApplyTopup(ev.WorkspaceId, ev.AmountCents, ev.ExternalPaymentId)
	if err != nil {
		return err
	}
	if result.AlreadyApplied {
		h.logger.Info(fmt.Sprintf("topup %s already applied, nothing to do", intent.ID))
	}
	return nil
}

func (h *StripeHandler) handleSubscriptionUpdate(event stripe.Event, eventTime time.Time) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		h.logger.Error(fmt.Sprintf("could not decode subscription from event %s: %s", event.ID, err.Error()))
		return nil
	}

	// workspace_id may be absent on older subscriptions; the synchronizer
	// then falls back to the gateway subscription id
	workspaceId, _ := strconv.Atoi(sub.Metadata["workspace_id"])

	customerId := ""
	if sub.Customer != nil {
		customerId = sub.Customer.ID
	}

	ev := &models.SubscriptionEvent{
		WorkspaceId:            workspaceId,
		PlanId:                 sub.Metadata["plan_id"],
		ExternalSubscriptionId: sub.ID,
		ExternalCustomerId:     customerId,
		ExternalStatus:         string(sub.Status),
		CurrentPeriodStart:     time.Unix(sub.CurrentPeriodStart, 0),
		CurrentPeriodEnd:       time.Unix(sub.CurrentPeriodEnd, 0),
		EventTime:              eventTime,
	}
	err := h.sync.Upsert(ev)
	if errors.Is(err, subscription.ErrUnknownPlan) {
		// bad catalog reference, redelivery will not fix it
		return nil
	}
	return err
}

func (h *StripeHandler) handleSubscriptionDeleted(event stripe.Event, eventTime time.Time) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		h.logger.Error(fmt.Sprintf("could not decode subscription from event %s: %s", event.ID, err.Error()))
		return nil
	}
	return h.sync.Cancel(sub.ID, eventTime)
}

func (h *StripeHandler) handleInvoicePaid(event stripe.Event, eventTime time.Time) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		h.logger.Error(fmt.Sprintf("could not decode invoice from event %s: %s", event.ID, err.Error()))
		return nil
	}

	subscriptionId := invoiceSubscriptionId(&invoice)
	if subscriptionId == "" {
		h.logger.Warn(fmt.Sprintf("paid invoice %s has no subscription reference, skipping", invoice.ID))
		return nil
	}

	ev := &models.InvoiceEvent{
		ExternalSubscriptionId: subscriptionId,
		AmountCents:            invoice.AmountPaid,
		UsageInvoice:           invoice.Metadata["type"] == MetadataTypePostpaidUsage,
		EventTime:              eventTime,
	}
	snapshot, err := h.sync.HandleInvoicePaid(ev)
	if err != nil {
		return err
	}
	if snapshot != nil {
		h.logger.Info(fmt.Sprintf("postpaid period closed for %s: %d minutes, %d cents billed",
			subscriptionId, snapshot.PreviousUsage, snapshot.PreviousCharges))
	}
	return nil
}

func (h *StripeHandler) handleInvoiceFailed(event stripe.Event, eventTime time.Time) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		h.logger.Error(fmt.Sprintf("could not decode invoice from event %s: %s", event.ID, err.Error()))
		return nil
	}

	subscriptionId := invoiceSubscriptionId(&invoice)
	if subscriptionId == "" {
		h.logger.Warn(fmt.Sprintf("failed invoice %s has no subscription reference, skipping", invoice.ID))
		return nil
	}
	return h.sync.HandleInvoiceFailed(subscriptionId, eventTime)
}

// invoiceSubscriptionId digs the gateway subscription id out of the
// invoice, preferring the expanded reference and falling back to the
// metadata written by our usage invoicer.
func invoiceSubscriptionId(invoice *stripe.Invoice) string {
	if invoice.Subscription != nil && invoice.Subscription.ID != "" {
		return invoice.Subscription.ID
	}
	return invoice.Metadata["subscription_id"]
}

package subscription

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"voicelane.com/billing/models"
	"voicelane.com/billing/repository"
)

// ErrUnknownPlan is returned when a gateway event references a plan id
// missing from the catalog.
var ErrUnknownPlan = errors.New("unknown plan")

// Archiver receives period-close snapshots for long-term audit storage.
type Archiver interface {
	ArchivePostpaidClose(snapshot *models.PostpaidSnapshot) error
}

// Notifier delivers billing alerts; failures are logged, never propagated.
type Notifier interface {
	PaymentFailedAlert(workspaceId int, externalSubscriptionId string) error
}

// statusMap translates gateway subscription statuses to internal ones.
// Unknown statuses are dropped, never guessed.
var statusMap = map[string]string{
	"active":             models.StatusActive,
	"trialing":           models.StatusTrialing,
	"past_due":           models.StatusPastDue,
	"unpaid":             models.StatusPastDue,
	"canceled":           models.StatusCanceled,
	"incomplete":         models.StatusIncomplete,
	"incomplete_expired": models.StatusCanceled,
	"paused":             models.StatusPaused,
}

// Service keeps workspace subscriptions in sync with the payment
// gateway's lifecycle events. Webhooks arrive at least once and in no
// particular order, so every apply path carries a staleness guard and the
// canceled state is terminal.
type Service struct {
	db       *sql.DB
	subs     repository.SubscriptionRepository
	plans    repository.PlanRepository
	archiver Archiver
	notifier Notifier
	logger   *logrus.Entry
}

func NewService(db *sql.DB, subs repository.SubscriptionRepository, plans repository.PlanRepository, archiver Archiver, notifier Notifier) *Service {
	return &Service{
		db:       db,
		subs:     subs,
		plans:    plans,
		archiver: archiver,
		notifier: notifier,
		logger:   logrus.WithField("component", "subscription_sync"),
	}
}

// Upsert applies a subscription created/updated event: creates the row on
// first sync, otherwise updates it unless the event is stale or the
// subscription is already canceled.
func (s *Service) Upsert(ev *models.SubscriptionEvent) error {
	status, ok := statusMap[ev.ExternalStatus]
	if !ok {
		s.logger.Warn(fmt.Sprintf("dropping subscription event with unknown status %q for %s", ev.ExternalStatus, ev.ExternalSubscriptionId))
		return nil
	}

	existing, err := s.lookup(ev)
	if err != nil && err != repository.ErrNotFound {
		return err
	}

	if existing == nil {
		if ev.WorkspaceId <= 0 {
			s.logger.Warn(fmt.Sprintf("cannot create subscription %s without workspace metadata", ev.ExternalSubscriptionId))
			return nil
		}
		plan, perr := s.plans.GetPlan(ev.PlanId)
		if perr == repository.ErrNotFound {
			s.logger.Error(fmt.Sprintf("cannot create subscription %s: plan %q not in catalog", ev.ExternalSubscriptionId, ev.PlanId))
			return errors.Wrapf(ErrUnknownPlan, "plan %s", ev.PlanId)
		}
		if perr != nil {
			return perr
		}
		sub := &models.WorkspaceSubscription{
			WorkspaceId:            ev.WorkspaceId,
			PlanId:                 ev.PlanId,
			BillingType:            plan.BillingType,
			Status:                 status,
			CurrentPeriodStart:     ev.CurrentPeriodStart,
			CurrentPeriodEnd:       ev.CurrentPeriodEnd,
			ExternalSubscriptionId: ev.ExternalSubscriptionId,
			ExternalCustomerId:     ev.ExternalCustomerId,
			GatewayEventTime:       ev.EventTime,
		}
		if err = s.subs.Insert(sub); err != nil {
			return err
		}
		s.logger.Info(fmt.Sprintf("created subscription %s for workspace %d (%s, %s)", ev.ExternalSubscriptionId, ev.WorkspaceId, plan.BillingType, status))
		return nil
	}

	if existing.Status == models.StatusCanceled {
		s.logger.Warn(fmt.Sprintf("ignoring update for canceled subscription %s", ev.ExternalSubscriptionId))
		return nil
	}
	if !ev.EventTime.After(existing.GatewayEventTime) {
		s.logger.Warn(fmt.Sprintf("dropping stale subscription event for %s (event %s, have %s)",
			ev.ExternalSubscriptionId, ev.EventTime.Format(time.RFC3339), existing.GatewayEventTime.Format(time.RFC3339)))
		return nil
	}

	updated := *existing
	updated.PlanId = ev.PlanId
	updated.Status = status
	if ev.ExternalCustomerId != "" {
		updated.ExternalCustomerId = ev.ExternalCustomerId
	}
	updated.CurrentPeriodStart = ev.CurrentPeriodStart
	updated.CurrentPeriodEnd = ev.CurrentPeriodEnd
	updated.GatewayEventTime = ev.EventTime

	applied, err := s.subs.UpdateFromEvent(&updated)
	if err != nil {
		return err
	}
	if !applied {
		// lost the race to a newer event or a cancellation; the guarded
		// WHERE clause already kept the newer state
		s.logger.Warn(fmt.Sprintf("subscription event for %s not applied, newer state in store", ev.ExternalSubscriptionId))
	}
	return nil
}

// lookup prefers the workspace id from event metadata, falling back to
// the gateway subscription id when metadata is absent.
func (s *Service) lookup(ev *models.SubscriptionEvent) (*models.WorkspaceSubscription, error) {
	if ev.WorkspaceId > 0 {
		sub, err := s.subs.GetByWorkspace(ev.WorkspaceId)
		if err != repository.ErrNotFound {
			return sub, err
		}
		return nil, repository.ErrNotFound
	}
	return s.subs.GetByExternalId(ev.ExternalSubscriptionId)
}

// Cancel forces a subscription into the terminal canceled state. The row
// is retained for history.
func (s *Service) Cancel(externalSubscriptionId string, eventTime time.Time) error {
	applied, err := s.subs.SetStatusByExternalId(externalSubscriptionId, models.StatusCanceled, eventTime)
	if err != nil {
		return err
	}
	if !applied {
		s.logger.Warn(fmt.Sprintf("cancel for unknown subscription %s", externalSubscriptionId))
		return nil
	}
	s.logger.Info(fmt.Sprintf("subscription %s canceled", externalSubscriptionId))
	return nil
}

// HandleInvoicePaid resets billing counters after a paid invoice. A
// postpaid usage invoice (tagged in gateway metadata) closes the postpaid
// period and returns the pre-reset snapshot; a regular subscription
// invoice starts a fresh period and reactivates the subscription.
func (s *Service) HandleInvoicePaid(ev *models.InvoiceEvent) (*models.PostpaidSnapshot, error) {
	if ev.UsageInvoice {
		return s.ResetPostpaidPeriod(ev.ExternalSubscriptionId)
	}

	sub, err := s.subs.GetByExternalId(ev.ExternalSubscriptionId)
	if err == repository.ErrNotFound {
		s.logger.Warn(fmt.Sprintf("invoice paid for unknown subscription %s", ev.ExternalSubscriptionId))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	resetPostpaid := sub.BillingType == models.BillingTypePostpaid
	applied, err := s.subs.ResetPeriodCounters(ev.ExternalSubscriptionId, resetPostpaid, ev.EventTime)
	if err != nil {
		return nil, err
	}
	if applied {
		s.logger.Info(fmt.Sprintf("period counters reset for subscription %s after paid invoice", ev.ExternalSubscriptionId))
	}
	return nil, nil
}

// HandleInvoiceFailed marks the subscription past due. Matched by the
// gateway subscription id alone; workspace metadata may be missing on
// invoice events.
func (s *Service) HandleInvoiceFailed(externalSubscriptionId string, eventTime time.Time) error {
	applied, err := s.subs.SetStatusByExternalId(externalSubscriptionId, models.StatusPastDue, eventTime)
	if err != nil {
		return err
	}
	if !applied {
		s.logger.Warn(fmt.Sprintf("invoice failure for unknown or canceled subscription %s", externalSubscriptionId))
		return nil
	}
	s.logger.Info(fmt.Sprintf("subscription %s marked past_due after failed invoice payment", externalSubscriptionId))

	if s.notifier != nil {
		sub, serr := s.subs.GetByExternalId(externalSubscriptionId)
		if serr == nil {
			if nerr := s.notifier.PaymentFailedAlert(sub.WorkspaceId, externalSubscriptionId); nerr != nil {
				s.logger.Error("could not send payment failure alert: " + nerr.Error())
			}
		}
	}
	return nil
}

// ResetPostpaidPeriod zeroes the postpaid counters and returns the
// pre-reset snapshot for confirmation logging. Safe to call repeatedly: a
// second reset sees zeros and returns zeros.
func (s *Service) ResetPostpaidPeriod(externalSubscriptionId string) (*models.PostpaidSnapshot, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, errors.Wrap(err, "could not begin transaction")
	}

	sub, err := s.subs.GetByExternalIdTx(tx, externalSubscriptionId)
	if err == repository.ErrNotFound {
		// same treatment as a regular invoice for an unknown subscription:
		// redelivery cannot fix it, so log and ACK
		_ = tx.Rollback()
		s.logger.Warn(fmt.Sprintf("usage invoice paid for unknown subscription %s", externalSubscriptionId))
		return nil, nil
	}
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	snapshot := &models.PostpaidSnapshot{
		WorkspaceId:            sub.WorkspaceId,
		ExternalSubscriptionId: externalSubscriptionId,
		PreviousUsage:          sub.PostpaidMinutesUsed,
		PreviousCharges:        sub.PendingInvoiceAmountCents,
		ClosedAt:               time.Now(),
	}

	if err = s.subs.ZeroPostpaidCountersTx(tx, externalSubscriptionId); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "could not commit postpaid reset")
	}

	s.logger.Info(fmt.Sprintf("postpaid period closed for %s: %d minutes, %d cents", externalSubscriptionId, snapshot.PreviousUsage, snapshot.PreviousCharges))

	if s.archiver != nil && (snapshot.PreviousUsage > 0 || snapshot.PreviousCharges > 0) {
		if err = s.archiver.ArchivePostpaidClose(snapshot); err != nil {
			// audit upload is best effort, the reset already committed
			s.logger.Error("could not archive postpaid close: " + err.Error())
		}
	}
	return snapshot, nil
}

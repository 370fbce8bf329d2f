package billing

import (
	"database/sql"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"voicelane.com/billing/internal/usage"
	"voicelane.com/billing/models"
	"voicelane.com/billing/repository"
)

// Rejection reasons reported in BillingOutcome.
const (
	ReasonNoSubscription       = "no_subscription"
	ReasonSubscriptionInactive = "subscription_inactive"
	ReasonUnknownPlan          = "unknown_plan"
)

// Notifier delivers billing alerts. Alerts are fire and forget; a failed
// notification never fails the billing outcome.
type Notifier interface {
	LowBalanceAlert(workspaceId int, balanceCents int64, deficitCents int64) error
}

// Orchestrator produces one authoritative billing outcome per completed
// call. The idempotency marker, the subscription counters and the credit
// balance move in a single transaction so a retried delivery can never
// double-bill.
type Orchestrator struct {
	db                   *sql.DB
	subs                 repository.SubscriptionRepository
	credits              repository.CreditRepository
	calls                repository.CallRepository
	plans                repository.PlanRepository
	notifier             Notifier
	negativeCeilingCents int64
	logger               *logrus.Entry
}

func NewOrchestrator(db *sql.DB, subs repository.SubscriptionRepository, credits repository.CreditRepository,
	calls repository.CallRepository, plans repository.PlanRepository, notifier Notifier, negativeCeilingCents int64) *Orchestrator {
	return &Orchestrator{
		db:                   db,
		subs:                 subs,
		credits:              credits,
		calls:                calls,
		plans:                plans,
		notifier:             notifier,
		negativeCeilingCents: negativeCeilingCents,
		logger:               logrus.WithField("component", "billing_orchestrator"),
	}
}

func (o *Orchestrator) ProcessCallCompletion(event *models.CallBillingEvent) (*models.BillingOutcome, error) {
	billed, err := o.calls.Billed(event.WorkspaceId, event.ExternalCallId)
	if err != nil {
		return nil, err
	}
	if billed {
		o.logger.Info(fmt.Sprintf("call %s already billed for workspace %d", event.ExternalCallId, event.WorkspaceId))
		return &models.BillingOutcome{Success: true, AlreadyProcessed: true}, nil
	}

	sub, err := o.subs.GetByWorkspace(event.WorkspaceId)
	if err == repository.ErrNotFound {
		o.logger.Warn(fmt.Sprintf("no subscription for workspace %d, call %s not billed", event.WorkspaceId, event.ExternalCallId))
		return &models.BillingOutcome{Reason: ReasonNoSubscription}, nil
	}
	if err != nil {
		return nil, err
	}
	if sub.Status != models.StatusActive && sub.Status != models.StatusTrialing {
		o.logger.Warn(fmt.Sprintf("subscription for workspace %d is %s, call %s not billed", event.WorkspaceId, sub.Status, event.ExternalCallId))
		return &models.BillingOutcome{Reason: ReasonSubscriptionInactive}, nil
	}

	plan, err := o.plans.GetPlan(sub.PlanId)
	if err == repository.ErrNotFound {
		o.logger.Error(fmt.Sprintf("plan %q for workspace %d not in catalog", sub.PlanId, event.WorkspaceId))
		return &models.BillingOutcome{Reason: ReasonUnknownPlan}, nil
	}
	if err != nil {
		return nil, err
	}

	outcome, result, newBalance, err := o.billInTx(event, plan)
	if err != nil {
		return nil, err
	}
	if outcome.AlreadyProcessed {
		return outcome, nil
	}

	o.logger.Info(fmt.Sprintf("billed call %s for workspace %d: %d minutes, %d cents deducted, blocked=%t",
		event.ExternalCallId, event.WorkspaceId, outcome.MinutesAdded, outcome.AmountDeductedCents, outcome.Blocked))

	if result != nil && result.Blocked && o.notifier != nil {
		if nerr := o.notifier.LowBalanceAlert(event.WorkspaceId, newBalance, result.DeficitCents); nerr != nil {
			o.logger.Error("could not send low balance alert: " + nerr.Error())
		}
	}
	return outcome, nil
}

// billInTx locks the subscription row, reads the balance under the same
// lock scope, computes the charge and applies everything together. The
// idempotency insert goes first: a concurrent duplicate hits the unique
// key, rolls the loser back and reports already processed. The returned
// balance is the committed post-deduction balance.
func (o *Orchestrator) billInTx(event *models.CallBillingEvent, plan *models.BillingPlan) (*models.BillingOutcome, *models.ChargeResult, int64, error) {
	tx, err := o.db.Begin()
	if err != nil {
		return nil, nil, 0, errors.Wrap(err, "could not begin transaction")
	}

	sub, err := o.subs.GetByWorkspaceTx(tx, event.WorkspaceId)
	if err != nil {
		_ = tx.Rollback()
		if err == repository.ErrNotFound {
			// subscription vanished between the unlocked read and here
			return &models.BillingOutcome{Reason: ReasonNoSubscription}, nil, 0, nil
		}
		return nil, nil, 0, err
	}

	var balance int64
	if plan.BillingType == models.BillingTypePrepaid {
		balance, err = o.credits.GetBalanceTx(tx, event.WorkspaceId)
		if err != nil {
			_ = tx.Rollback()
			return nil, nil, 0, err
		}
	}

	result := usage.ComputeCharge(plan, sub, balance, o.negativeCeilingCents, event.DurationSeconds)

	err = o.calls.InsertTx(tx, event, result)
	if repository.IsDuplicateEntry(err) {
		_ = tx.Rollback()
		return &models.BillingOutcome{Success: true, AlreadyProcessed: true}, nil, 0, nil
	}
	if err != nil {
		_ = tx.Rollback()
		return nil, nil, 0, errors.Wrap(err, "could not record billed call")
	}

	if err = o.subs.ApplyUsageTx(tx, event.WorkspaceId, result); err != nil {
		_ = tx.Rollback()
		return nil, nil, 0, err
	}
	newBalance := balance
	if result.AmountDeductedCents > 0 {
		if newBalance, err = o.credits.ApplyDeltaTx(tx, event.WorkspaceId, -result.AmountDeductedCents); err != nil {
			_ = tx.Rollback()
			return nil, nil, 0, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, nil, 0, errors.Wrap(err, "could not commit billing transaction")
	}

	return &models.BillingOutcome{
		Success:             true,
		Blocked:             result.Blocked,
		MinutesAdded:        result.MinutesBilled,
		AmountDeductedCents: result.AmountDeductedCents,
	}, result, newBalance, nil
}

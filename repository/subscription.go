package repository

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"voicelane.com/billing/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

type SubscriptionRepository interface {
	GetByWorkspace(workspaceId int) (*models.WorkspaceSubscription, error)
	GetByWorkspaceTx(tx *sql.Tx, workspaceId int) (*models.WorkspaceSubscription, error)
	GetByExternalId(externalSubscriptionId string) (*models.WorkspaceSubscription, error)
	GetByExternalIdTx(tx *sql.Tx, externalSubscriptionId string) (*models.WorkspaceSubscription, error)
	ZeroPostpaidCountersTx(tx *sql.Tx, externalSubscriptionId string) error
	Insert(sub *models.WorkspaceSubscription) error
	UpdateFromEvent(sub *models.WorkspaceSubscription) (bool, error)
	SetStatusByExternalId(externalSubscriptionId string, status string, eventTime time.Time) (bool, error)
	ResetPeriodCounters(externalSubscriptionId string, resetPostpaid bool, eventTime time.Time) (bool, error)
	ApplyUsageTx(tx *sql.Tx, workspaceId int, result *models.ChargeResult) error
	ListPostpaidDue() ([]models.WorkspaceSubscription, error)
}

type SubscriptionService struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) SubscriptionRepository {
	return &SubscriptionService{db: db}
}

const subscriptionColumns = `id, workspace_id, plan_id, billing_type, status,
	current_period_start, current_period_end, minutes_used_this_period,
	postpaid_minutes_used, pending_invoice_amount_cents, overage_charges_cents,
	external_subscription_id, external_customer_id, gateway_event_ts`

func scanSubscription(row *sql.Row) (*models.WorkspaceSubscription, error) {
	var sub models.WorkspaceSubscription
	err := row.Scan(&sub.Id, &sub.WorkspaceId, &sub.PlanId, &sub.BillingType, &sub.Status,
		&sub.CurrentPeriodStart, &sub.CurrentPeriodEnd, &sub.MinutesUsedThisPeriod,
		&sub.PostpaidMinutesUsed, &sub.PendingInvoiceAmountCents, &sub.OverageChargesCents,
		&sub.ExternalSubscriptionId, &sub.ExternalCustomerId, &sub.GatewayEventTime)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not scan subscription")
	}
	return &sub, nil
}

func (s *SubscriptionService) GetByWorkspace(workspaceId int) (*models.WorkspaceSubscription, error) {
	row := s.db.QueryRow(`SELECT `+subscriptionColumns+` FROM workspace_subscriptions WHERE workspace_id = ?`, workspaceId)
	return scanSubscription(row)
}

// GetByWorkspaceTx locks the subscription row for the duration of the
// transaction so concurrent call completions for the same workspace
// serialize in the store.
func (s *SubscriptionService) GetByWorkspaceTx(tx *sql.Tx, workspaceId int) (*models.WorkspaceSubscription, error) {
	row := tx.QueryRow(`SELECT `+subscriptionColumns+` FROM workspace_subscriptions WHERE workspace_id = ? FOR UPDATE`, workspaceId)
	return scanSubscription(row)
}

func (s *SubscriptionService) GetByExternalId(externalSubscriptionId string) (*models.WorkspaceSubscription, error) {
	row := s.db.QueryRow(`SELECT `+subscriptionColumns+` FROM workspace_subscriptions WHERE external_subscription_id = ?`, externalSubscriptionId)
	return scanSubscription(row)
}

func (s *SubscriptionService) GetByExternalIdTx(tx *sql.Tx, externalSubscriptionId string) (*models.WorkspaceSubscription, error) {
	row := tx.QueryRow(`SELECT `+subscriptionColumns+` FROM workspace_subscriptions WHERE external_subscription_id = ? FOR UPDATE`, externalSubscriptionId)
	return scanSubscription(row)
}

func (s *SubscriptionService) ZeroPostpaidCountersTx(tx *sql.Tx, externalSubscriptionId string) error {
	_, err := tx.Exec(`UPDATE workspace_subscriptions
		SET postpaid_minutes_used = 0, pending_invoice_amount_cents = 0, updated_at = ?
		WHERE external_subscription_id = ?`, time.Now(), externalSubscriptionId)
	if err != nil {
		return errors.Wrap(err, "could not zero postpaid counters")
	}
	return nil
}

func (s *SubscriptionService) Insert(sub *models.WorkspaceSubscription) error {
	stmt, err := s.db.Prepare(`INSERT INTO workspace_subscriptions
		(workspace_id, plan_id, billing_type, status, current_period_start, current_period_end,
		minutes_used_this_period, postpaid_minutes_used, pending_invoice_amount_cents,
		overage_charges_cents, external_subscription_id, external_customer_id, gateway_event_ts, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, 0, 0, 0, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "could not prepare query")
	}
	defer stmt.Close()
	now := time.Now()
	_, err = stmt.Exec(sub.WorkspaceId, sub.PlanId, sub.BillingType, sub.Status,
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.ExternalSubscriptionId,
		sub.ExternalCustomerId, sub.GatewayEventTime, now, now)
	if err != nil {
		return errors.Wrap(err, "could not insert subscription")
	}
	return nil
}

// UpdateFromEvent applies a lifecycle update. The WHERE clause repeats the
// staleness and terminal-state guards so racing deliveries cannot undo a
// newer write between the caller's read and this update.
func (s *SubscriptionService) UpdateFromEvent(sub *models.WorkspaceSubscription) (bool, error) {
	stmt, err := s.db.Prepare(`UPDATE workspace_subscriptions
		SET plan_id = ?, status = ?, current_period_start = ?, current_period_end = ?,
		external_customer_id = ?, gateway_event_ts = ?, updated_at = ?
		WHERE workspace_id = ? AND gateway_event_ts <= ? AND status != ?`)
	if err != nil {
		return false, errors.Wrap(err, "could not prepare query")
	}
	defer stmt.Close()
	res, err := stmt.Exec(sub.PlanId, sub.Status, sub.CurrentPeriodStart, sub.CurrentPeriodEnd,
		sub.ExternalCustomerId, sub.GatewayEventTime, time.Now(), sub.WorkspaceId, sub.GatewayEventTime, models.StatusCanceled)
	if err != nil {
		return false, errors.Wrap(err, "could not update subscription")
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "could not read affected rows")
	}
	return count > 0, nil
}

func (s *SubscriptionService) SetStatusByExternalId(externalSubscriptionId string, status string, eventTime time.Time) (bool, error) {
	query := `UPDATE workspace_subscriptions SET status = ?, gateway_event_ts = ?, updated_at = ? WHERE external_subscription_id = ?`
	args := []interface{}{status, eventTime, time.Now(), externalSubscriptionId}
	if status != models.StatusCanceled {
		// cancellation is terminal and always wins; anything else must not
		// resurrect a canceled row or regress past a newer event
		query += ` AND status != 'canceled' AND gateway_event_ts <= ?`
		args = append(args, eventTime)
	}
	stmt, err := s.db.Prepare(query)
	if err != nil {
		return false, errors.Wrap(err, "could not prepare query")
	}
	defer stmt.Close()
	res, err := stmt.Exec(args...)
	if err != nil {
		return false, errors.Wrap(err, "could not update subscription status")
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "could not read affected rows")
	}
	return count > 0, nil
}

// ResetPeriodCounters zeroes the prepaid counters (and the postpaid ones
// too for postpaid rows) after a paid subscription invoice, and marks the
// subscription active again.
func (s *SubscriptionService) ResetPeriodCounters(externalSubscriptionId string, resetPostpaid bool, eventTime time.Time) (bool, error) {
	query := `UPDATE workspace_subscriptions
		SET minutes_used_this_period = 0, overage_charges_cents = 0, status = ?, gateway_event_ts = ?, updated_at = ?
		WHERE external_subscription_id = ? AND status != 'canceled' AND gateway_event_ts <= ?`
	if resetPostpaid {
		query = `UPDATE workspace_subscriptions
		SET minutes_used_this_period = 0, overage_charges_cents = 0, postpaid_minutes_used = 0,
		pending_invoice_amount_cents = 0, status = ?, gateway_event_ts = ?, updated_at = ?
		WHERE external_subscription_id = ? AND status != 'canceled' AND gateway_event_ts <= ?`
	}
	stmt, err := s.db.Prepare(query)
	if err != nil {
		return false, errors.Wrap(err, "could not prepare query")
	}
	defer stmt.Close()
	res, err := stmt.Exec(models.StatusActive, eventTime, time.Now(), externalSubscriptionId, eventTime)
	if err != nil {
		return false, errors.Wrap(err, "could not reset period counters")
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "could not read affected rows")
	}
	return count > 0, nil
}

// ApplyUsageTx writes the counters computed for one call. Must run inside
// the same transaction that records the call and moves the balance.
func (s *SubscriptionService) ApplyUsageTx(tx *sql.Tx, workspaceId int, result *models.ChargeResult) error {
	_, err := tx.Exec(`UPDATE workspace_subscriptions
		SET minutes_used_this_period = ?, postpaid_minutes_used = ?,
		pending_invoice_amount_cents = ?, overage_charges_cents = ?, updated_at = ?
		WHERE workspace_id = ?`,
		result.NewMinutesUsed, result.NewPostpaidMinutes, result.NewPendingInvoiceCents,
		result.NewOverageChargesCents, time.Now(), workspaceId)
	if err != nil {
		return errors.Wrap(err, "could not apply usage counters")
	}
	return nil
}

func (s *SubscriptionService) ListPostpaidDue() ([]models.WorkspaceSubscription, error) {
	rows, err := s.db.Query(`SELECT `+subscriptionColumns+` FROM workspace_subscriptions
		WHERE billing_type = ? AND status = ? AND pending_invoice_amount_cents > 0`,
		models.BillingTypePostpaid, models.StatusActive)
	if err != nil {
		return nil, errors.Wrap(err, "could not list postpaid subscriptions")
	}
	defer rows.Close()

	var due []models.WorkspaceSubscription
	for rows.Next() {
		var sub models.WorkspaceSubscription
		err = rows.Scan(&sub.Id, &sub.WorkspaceId, &sub.PlanId, &sub.BillingType, &sub.Status,
			&sub.CurrentPeriodStart, &sub.CurrentPeriodEnd, &sub.MinutesUsedThisPeriod,
			&sub.PostpaidMinutesUsed, &sub.PendingInvoiceAmountCents, &sub.OverageChargesCents,
			&sub.ExternalSubscriptionId, &sub.ExternalCustomerId, &sub.GatewayEventTime)
		if err != nil {
			return nil, errors.Wrap(err, "could not scan subscription")
		}
		due = append(due, sub)
	}
	return due, rows.Err()
}

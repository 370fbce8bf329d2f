package subscription

import (
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"voicelane.com/billing/models"
	"voicelane.com/billing/repository"
)

var subscriptionCols = []string{"id", "workspace_id", "plan_id", "billing_type", "status",
	"current_period_start", "current_period_end", "minutes_used_this_period",
	"postpaid_minutes_used", "pending_invoice_amount_cents", "overage_charges_cents",
	"external_subscription_id", "external_customer_id", "gateway_event_ts"}

type stubArchiver struct {
	snapshots []*models.PostpaidSnapshot
}

func (a *stubArchiver) ArchivePostpaidClose(snapshot *models.PostpaidSnapshot) error {
	a.snapshots = append(a.snapshots, snapshot)
	return nil
}

type stubNotifier struct {
	alerts int
}

func (n *stubNotifier) PaymentFailedAlert(workspaceId int, externalSubscriptionId string) error {
	n.alerts++
	return nil
}

func newTestService(t *testing.T, archiver Archiver, notifier Notifier) (*Service, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := NewService(db, repository.NewSubscriptionRepository(db), repository.NewPlanRepository(db), archiver, notifier)
	return svc, mock
}

func subscriptionRow(mock sqlmock.Sqlmock, status string, billingType string, eventTime time.Time) *sqlmock.Rows {
	periodStart := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(subscriptionCols).
		AddRow(1, 42, "plan_starter", billingType, status,
			periodStart, periodStart.AddDate(0, 1, 0), int64(95),
			int64(0), int64(0), int64(0),
			"sub_abc", "cus_abc", eventTime)
}

func TestUpsert(t *testing.T) {
	t.Parallel()

	baseEvent := func() *models.SubscriptionEvent {
		return &models.SubscriptionEvent{
			WorkspaceId:            42,
			PlanId:                 "plan_starter",
			ExternalStatus:         "active",
			ExternalSubscriptionId: "sub_abc",
			ExternalCustomerId:     "cus_abc",
			CurrentPeriodStart:     time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
			CurrentPeriodEnd:       time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
			EventTime:              time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
		}
	}

	t.Run("Should drop events with an unknown gateway status", func(t *testing.T) {
		t.Parallel()

		svc, mock := newTestService(t, nil, nil)

		ev := baseEvent()
		ev.ExternalStatus = "halfway_renewed"

		require.NoError(t, svc.Upsert(ev))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should create the subscription on first sync", func(t *testing.T) {
		t.Parallel()

		svc, mock := newTestService(t, nil, nil)
		ev := baseEvent()

		mock.ExpectQuery(regexp.QuoteMeta("FROM workspace_subscriptions WHERE workspace_id = ?")).
			WithArgs(42).
			WillReturnRows(sqlmock.NewRows(subscriptionCols))
		mock.ExpectQuery(regexp.QuoteMeta("FROM billing_plans WHERE id = ?")).
			WithArgs("plan_starter").
			WillReturnRows(sqlmock.NewRows([]string{"id", "key_name", "billing_type", "included_minutes", "overage_rate_per_minute_cents"}).
				AddRow("plan_starter", "starter", models.BillingTypePrepaid, int64(100), int64(10)))
		mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO workspace_subscriptions"))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO workspace_subscriptions")).
			WithArgs(42, "plan_starter", models.BillingTypePrepaid, models.StatusActive,
				ev.CurrentPeriodStart, ev.CurrentPeriodEnd, "sub_abc", "cus_abc", ev.EventTime,
				sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		require.NoError(t, svc.Upsert(ev))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should refuse to create without workspace metadata", func(t *testing.T) {
		t.Parallel()

		svc, mock := newTestService(t, nil, nil)
		ev := baseEvent()
		ev.WorkspaceId = 0

		mock.ExpectQuery(regexp.QuoteMeta("FROM workspace_subscriptions WHERE external_subscription_id = ?")).
			WithArgs("sub_abc").
			WillReturnRows(sqlmock.NewRows(subscriptionCols))

		require.NoError(t, svc.Upsert(ev))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should fail creation when the plan is not in the catalog", func(t *testing.T) {
		t.Parallel()

		svc, mock := newTestService(t, nil, nil)
		ev := baseEvent()
		ev.PlanId = "plan_missing"

		mock.ExpectQuery(regexp.QuoteMeta("FROM workspace_subscriptions WHERE workspace_id = ?")).
			WithArgs(42).
			WillReturnRows(sqlmock.NewRows(subscriptionCols))
		mock.ExpectQuery(regexp.QuoteMeta("FROM billing_plans WHERE id = ?")).
			WithArgs("plan_missing").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		err := svc.Upsert(ev)
		assert.ErrorIs(t, err, ErrUnknownPlan)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should apply an update newer than the stored state", func(t *testing.T) {
		t.Parallel()

		svc, mock := newTestService(t, nil, nil)
		ev := baseEvent()
		ev.ExternalStatus = "past_due"

		storedAt := ev.EventTime.Add(-time.Hour)
		mock.ExpectQuery(regexp.QuoteMeta("FROM workspace_subscriptions WHERE workspace_id = ?")).
			WithArgs(42).
			WillReturnRows(subscriptionRow(mock, models.StatusActive, models.BillingTypePrepaid, storedAt))
		mock.ExpectPrepare(regexp.QuoteMeta("UPDATE workspace_subscriptions"))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE workspace_subscriptions")).
			WithArgs("plan_starter", models.StatusPastDue, ev.CurrentPeriodStart, ev.CurrentPeriodEnd,
				"cus_abc", ev.EventTime, sqlmock.AnyArg(), 42, ev.EventTime, models.StatusCanceled).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, svc.Upsert(ev))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should drop a stale event", func(t *testing.T) {
		t.Parallel()

		svc, mock := newTestService(t, nil, nil)
		ev := baseEvent()

		storedAt := ev.EventTime.Add(time.Hour)
		mock.ExpectQuery(regexp.QuoteMeta("FROM workspace_subscriptions WHERE workspace_id = ?")).
			WithArgs(42).
			WillReturnRows(subscriptionRow(mock, models.StatusPastDue, models.BillingTypePrepaid, storedAt))

		require.NoError(t, svc.Upsert(ev))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should never resurrect a canceled subscription", func(t *testing.T) {
		t.Parallel()

		svc, mock := newTestService(t, nil, nil)
		ev := baseEvent()

		storedAt := ev.EventTime.Add(-time.Hour)
		mock.ExpectQuery(regexp.QuoteMeta("FROM workspace_subscriptions WHERE workspace_id = ?")).
			WithArgs(42).
			WillReturnRows(subscriptionRow(mock, models.StatusCanceled, models.BillingTypePrepaid, storedAt))

		require.NoError(t, svc.Upsert(ev))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should map unpaid onto past_due", func(t *testing.T) {
		t.Parallel()

		svc, mock := newTestService(t, nil, nil)
		ev := baseEvent()
		ev.ExternalStatus = "unpaid"

		storedAt := ev.EventTime.Add(-time.Hour)
		mock.ExpectQuery(regexp.QuoteMeta("FROM workspace_subscriptions WHERE workspace_id = ?")).
			WithArgs(42).
			WillReturnRows(subscriptionRow(mock, models.StatusActive, models.BillingTypePrepaid, storedAt))
		mock.ExpectPrepare(regexp.QuoteMeta("UPDATE workspace_subscriptions"))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE workspace_subscriptions")).
			WithArgs("plan_starter", models.StatusPastDue, ev.CurrentPeriodStart, ev.CurrentPeriodEnd,
				"cus_abc", ev.EventTime, sqlmock.AnyArg(), 42, ev.EventTime, models.StatusCanceled).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, svc.Upsert(ev))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCancel(t *testing.T) {
	t.Parallel()

	t.Run("Should mark the subscription canceled", func(t *testing.T) {
		t.Parallel()

		svc, mock := newTestService(t, nil, nil)
		eventTime := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)

		mock.ExpectPrepare(regexp.QuoteMeta("UPDATE workspace_subscriptions SET status = ?")).
			ExpectExec().
			WithArgs(models.StatusCanceled, eventTime, sqlmock.AnyArg(), "sub_abc").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, svc.Cancel("sub_abc", eventTime))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should tolerate a cancel for an unknown subscription", func(t *testing.T) {
		t.Parallel()

		svc, mock := newTestService(t, nil, nil)
		eventTime := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)

		mock.ExpectPrepare(regexp.QuoteMeta("UPDATE workspace_subscriptions SET status = ?")).
			ExpectExec().
			WithArgs(models.StatusCanceled, eventTime, sqlmock.AnyArg(), "sub_missing").
			WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, svc.Cancel("sub_missing", eventTime))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestHandleInvoicePaid(t *testing.T) {
	t.Parallel()

	t.Run("Should reset prepaid counters after a paid subscription invoice", func(t *testing.T) {
		t.Parallel()

		svc, mock := newTestService(t, nil, nil)
		eventTime := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

		mock.ExpectQuery(regexp.QuoteMeta("FROM workspace_subscriptions WHERE external_subscription_id = ?")).
			WithArgs("sub_abc").
			WillReturnRows(subscriptionRow(mock, models.StatusPastDue, models.BillingTypePrepaid, eventTime.Add(-time.Hour)))
		mock.ExpectPrepare(regexp.QuoteMeta("minutes_used_this_period = 0")).
			ExpectExec().
			WithArgs(models.StatusActive, eventTime, sqlmock.AnyArg(), "sub_abc", eventTime).
			WillReturnResult(sqlmock.NewResult(0, 1))

		snapshot, err := svc.HandleInvoicePaid(&models.InvoiceEvent{
			ExternalSubscriptionId: "sub_abc",
			EventTime:              eventTime,
		})
		require.NoError(t, err)
		assert.Nil(t, snapshot)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should ignore a paid invoice for an unknown subscription", func(t *testing.T) {
		t.Parallel()

		svc, mock := newTestService(t, nil, nil)

		mock.ExpectQuery(regexp.QuoteMeta("FROM workspace_subscriptions WHERE external_subscription_id = ?")).
			WithArgs("sub_missing").
			WillReturnRows(sqlmock.NewRows(subscriptionCols))

		snapshot, err := svc.HandleInvoicePaid(&models.InvoiceEvent{
			ExternalSubscriptionId: "sub_missing",
			EventTime:              time.Now(),
		})
		require.NoError(t, err)
		assert.Nil(t, snapshot)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should drop a stale paid invoice behind a newer update", func(t *testing.T) {
		t.Parallel()

		svc, mock := newTestService(t, nil, nil)
		eventTime := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

		mock.ExpectQuery(regexp.QuoteMeta("FROM workspace_subscriptions WHERE external_subscription_id = ?")).
			WithArgs("sub_abc").
			WillReturnRows(subscriptionRow(mock, models.StatusPastDue, models.BillingTypePrepaid, eventTime.Add(time.Hour)))
		mock.ExpectPrepare(regexp.QuoteMeta("AND gateway_event_ts <= ?")).
			ExpectExec().
			WithArgs(models.StatusActive, eventTime, sqlmock.AnyArg(), "sub_abc", eventTime).
			WillReturnResult(sqlmock.NewResult(0, 0))

		snapshot, err := svc.HandleInvoicePaid(&models.InvoiceEvent{
			ExternalSubscriptionId: "sub_abc",
			EventTime:              eventTime,
		})
		require.NoError(t, err)
		assert.Nil(t, snapshot)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should ignore a paid usage invoice for an unknown subscription", func(t *testing.T) {
		t.Parallel()

		svc, mock := newTestService(t, nil, nil)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FROM workspace_subscriptions WHERE external_subscription_id = ?")).
			WithArgs("sub_missing").
			WillReturnRows(sqlmock.NewRows(subscriptionCols))
		mock.ExpectRollback()

		snapshot, err := svc.HandleInvoicePaid(&models.InvoiceEvent{
			ExternalSubscriptionId: "sub_missing",
			EventTime:              time.Now(),
			UsageInvoice:           true,
		})
		require.NoError(t, err)
		assert.Nil(t, snapshot)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should close the postpaid period for a usage invoice", func(t *testing.T) {
		t.Parallel()

		archiver := &stubArchiver{}
		svc, mock := newTestService(t, archiver, nil)
		eventTime := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

		periodStart := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
		rows := sqlmock.NewRows(subscriptionCols).
			AddRow(1, 42, "plan_scale", models.BillingTypePostpaid, models.StatusActive,
				periodStart, periodStart.AddDate(0, 1, 0), int64(0),
				int64(120), int64(350), int64(0),
				"sub_abc", "cus_abc", eventTime.Add(-time.Hour))

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FROM workspace_subscriptions WHERE external_subscription_id = ?")).
			WithArgs("sub_abc").
			WillReturnRows(rows)
		mock.ExpectExec(regexp.QuoteMeta("SET postpaid_minutes_used = 0, pending_invoice_amount_cents = 0")).
			WithArgs(sqlmock.AnyArg(), "sub_abc").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		snapshot, err := svc.HandleInvoicePaid(&models.InvoiceEvent{
			ExternalSubscriptionId: "sub_abc",
			EventTime:              eventTime,
			UsageInvoice:           true,
		})
		require.NoError(t, err)
		require.NotNil(t, snapshot)
		assert.Equal(t, int64(120), snapshot.PreviousUsage)
		assert.Equal(t, int64(350), snapshot.PreviousCharges)
		assert.Equal(t, 42, snapshot.WorkspaceId)
		assert.Len(t, archiver.snapshots, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should be a no-op when the postpaid period is already closed", func(t *testing.T) {
		t.Parallel()

		archiver := &stubArchiver{}
		svc, mock := newTestService(t, archiver, nil)
		eventTime := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FROM workspace_subscriptions WHERE external_subscription_id = ?")).
			WithArgs("sub_abc").
			WillReturnRows(subscriptionRow(mock, models.StatusActive, models.BillingTypePostpaid, eventTime.Add(-time.Hour)))
		mock.ExpectExec(regexp.QuoteMeta("SET postpaid_minutes_used = 0, pending_invoice_amount_cents = 0")).
			WithArgs(sqlmock.AnyArg(), "sub_abc").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		snapshot, err := svc.HandleInvoicePaid(&models.InvoiceEvent{
			ExternalSubscriptionId: "sub_abc",
			EventTime:              eventTime,
			UsageInvoice:           true,
		})
		require.NoError(t, err)
		require.NotNil(t, snapshot)
		assert.Equal(t, int64(0), snapshot.PreviousUsage)
		assert.Equal(t, int64(0), snapshot.PreviousCharges)
		// nothing worth archiving on an empty close
		assert.Len(t, archiver.snapshots, 0)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestHandleInvoiceFailed(t *testing.T) {
	t.Parallel()

	t.Run("Should mark the subscription past_due and alert the workspace", func(t *testing.T) {
		t.Parallel()

		notifier := &stubNotifier{}
		svc, mock := newTestService(t, nil, notifier)
		eventTime := time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC)

		mock.ExpectPrepare(regexp.QuoteMeta("UPDATE workspace_subscriptions SET status = ?")).
			ExpectExec().
			WithArgs(models.StatusPastDue, eventTime, sqlmock.AnyArg(), "sub_abc", eventTime).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(regexp.QuoteMeta("FROM workspace_subscriptions WHERE external_subscription_id = ?")).
			WithArgs("sub_abc").
			WillReturnRows(subscriptionRow(mock, models.StatusPastDue, models.BillingTypePrepaid, eventTime))

		require.NoError(t, svc.HandleInvoiceFailed("sub_abc", eventTime))
		assert.Equal(t, 1, notifier.alerts)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should drop a stale invoice failure behind a newer update", func(t *testing.T) {
		t.Parallel()

		notifier := &stubNotifier{}
		svc, mock := newTestService(t, nil, notifier)
		eventTime := time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC)

		// the guarded WHERE clause matches nothing when the stored
		// gateway_event_ts is newer than this event
		mock.ExpectPrepare(regexp.QuoteMeta("AND gateway_event_ts <= ?")).
			ExpectExec().
			WithArgs(models.StatusPastDue, eventTime, sqlmock.AnyArg(), "sub_abc", eventTime).
			WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, svc.HandleInvoiceFailed("sub_abc", eventTime))
		assert.Equal(t, 0, notifier.alerts)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should not resurrect a canceled subscription on invoice failure", func(t *testing.T) {
		t.Parallel()

		notifier := &stubNotifier{}
		svc, mock := newTestService(t, nil, notifier)
		eventTime := time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC)

		mock.ExpectPrepare(regexp.QuoteMeta("UPDATE workspace_subscriptions SET status = ?")).
			ExpectExec().
			WithArgs(models.StatusPastDue, eventTime, sqlmock.AnyArg(), "sub_canceled", eventTime).
			WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, svc.HandleInvoiceFailed("sub_canceled", eventTime))
		assert.Equal(t, 0, notifier.alerts)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

package repository

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"voicelane.com/billing/models"
)

type CallRepository interface {
	Billed(workspaceId int, externalCallId string) (bool, error)
	InsertTx(tx *sql.Tx, event *models.CallBillingEvent, result *models.ChargeResult) error
	SumDeductions(workspaceId int) (int64, error)
}

type CallService struct {
	db *sql.DB
}

func NewCallRepository(db *sql.DB) CallRepository {
	return &CallService{db: db}
}

func (s *CallService) Billed(workspaceId int, externalCallId string) (bool, error) {
	var id int
	err := s.db.QueryRow(`SELECT id FROM billed_calls WHERE workspace_id = ? AND external_call_id = ?`,
		workspaceId, externalCallId).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "could not check billed call")
	}
	return true, nil
}

// InsertTx writes the idempotency marker for a call in the same
// transaction as the counter and balance updates. The unique key on
// (workspace_id, external_call_id) is what makes redelivery safe.
func (s *CallService) InsertTx(tx *sql.Tx, event *models.CallBillingEvent, result *models.ChargeResult) error {
	_, err := tx.Exec("INSERT INTO billed_calls (`workspace_id`, `external_call_id`, `conversation_id`, `partner_id`, `provider`, `duration_seconds`, `minutes_billed`, `amount_deducted_cents`, `blocked`, `created_at`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		event.WorkspaceId, event.ExternalCallId, event.ConversationId, event.PartnerId,
		event.Provider, event.DurationSeconds, result.MinutesBilled,
		result.AmountDeductedCents, result.Blocked, time.Now())
	return err
}

func (s *CallService) SumDeductions(workspaceId int) (int64, error) {
	var total sql.NullInt64
	err := s.db.QueryRow(`SELECT SUM(amount_deducted_cents) FROM billed_calls WHERE workspace_id = ?`, workspaceId).Scan(&total)
	if err != nil {
		return 0, errors.Wrap(err, "could not sum call deductions")
	}
	return total.Int64, nil
}

package repository

import (
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
)

type CreditRepository interface {
	GetBalance(workspaceId int) (int64, error)
	GetBalanceTx(tx *sql.Tx, workspaceId int) (int64, error)
	ApplyDeltaTx(tx *sql.Tx, workspaceId int, deltaCents int64) (int64, error)
	InsertTopupTx(tx *sql.Tx, workspaceId int, externalPaymentId string, amountCents int64) error
	SumTopups(workspaceId int) (int64, error)
}

type CreditService struct {
	db *sql.DB
}

func NewCreditRepository(db *sql.DB) CreditRepository {
	return &CreditService{db: db}
}

// IsDuplicateEntry reports whether err is a MySQL unique-constraint
// violation (error 1062). Duplicate inserts on the idempotency keys are
// expected under at-least-once delivery and are never treated as failures.
func IsDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return stderrors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

func (s *CreditService) GetBalance(workspaceId int) (int64, error) {
	var balance int64
	err := s.db.QueryRow(`SELECT balance_cents FROM workspace_credits WHERE workspace_id = ?`, workspaceId).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "could not read balance")
	}
	return balance, nil
}

// GetBalanceTx locks the balance row for the transaction, creating it
// lazily on first use. The row lock serializes every concurrent mutation
// of a workspace's balance through the store.
func (s *CreditService) GetBalanceTx(tx *sql.Tx, workspaceId int) (int64, error) {
	var balance int64
	err := tx.QueryRow(`SELECT balance_cents FROM workspace_credits WHERE workspace_id = ? FOR UPDATE`, workspaceId).Scan(&balance)
	if err == sql.ErrNoRows {
		now := time.Now()
		_, err = tx.Exec(`INSERT INTO workspace_credits (workspace_id, balance_cents, created_at, updated_at) VALUES (?, 0, ?, ?)`,
			workspaceId, now, now)
		if err != nil && !IsDuplicateEntry(err) {
			return 0, errors.Wrap(err, "could not create balance row")
		}
		err = tx.QueryRow(`SELECT balance_cents FROM workspace_credits WHERE workspace_id = ? FOR UPDATE`, workspaceId).Scan(&balance)
	}
	if err != nil {
		return 0, errors.Wrap(err, "could not read balance")
	}
	return balance, nil
}

func (s *CreditService) ApplyDeltaTx(tx *sql.Tx, workspaceId int, deltaCents int64) (int64, error) {
	_, err := tx.Exec(`UPDATE workspace_credits SET balance_cents = balance_cents + ?, updated_at = ? WHERE workspace_id = ?`,
		deltaCents, time.Now(), workspaceId)
	if err != nil {
		return 0, errors.Wrap(err, "could not apply balance delta")
	}
	var balance int64
	err = tx.QueryRow(`SELECT balance_cents FROM workspace_credits WHERE workspace_id = ?`, workspaceId).Scan(&balance)
	if err != nil {
		return 0, errors.Wrap(err, "could not read updated balance")
	}
	return balance, nil
}

// InsertTopupTx records one applied top-up. The unique key on
// (workspace_id, external_payment_id) makes the insert race-safe: the
// loser of a concurrent duplicate delivery gets error 1062, which the
// caller maps to already-applied.
func (s *CreditService) InsertTopupTx(tx *sql.Tx, workspaceId int, externalPaymentId string, amountCents int64) error {
	_, err := tx.Exec("INSERT INTO credit_topups (`workspace_id`, `external_payment_id`, `amount_cents`, `created_at`) VALUES (?, ?, ?, ?)",
		workspaceId, externalPaymentId, amountCents, time.Now())
	return err
}

func (s *CreditService) SumTopups(workspaceId int) (int64, error) {
	var total sql.NullInt64
	err := s.db.QueryRow(`SELECT SUM(amount_cents) FROM credit_topups WHERE workspace_id = ?`, workspaceId).Scan(&total)
	if err != nil {
		return 0, errors.Wrap(err, "could not sum topups")
	}
	return total.Int64, nil
}

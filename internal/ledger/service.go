package ledger

import (
	"database/sql"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"voicelane.com/billing/repository"
)

// ErrInsufficientBalance is returned when a deduction would push the
// balance below the configured floor. The caller decides whether to
// surface it or fall back to a partial apply.
var ErrInsufficientBalance = errors.New("insufficient balance")

type TopupResult struct {
	AlreadyApplied bool
	NewBalance     int64
}

type DeductResult struct {
	Success    bool
	NewBalance int64
}

type ReconcileReport struct {
	WorkspaceId   int
	BalanceCents  int64
	ExpectedCents int64
	DriftCents    int64
}

// Service applies top-ups and deductions to workspace credit balances.
// Every mutation runs in its own transaction; the unique key on applied
// top-ups plus the row lock on the balance give exactly-once effect under
// at-least-once delivery.
type Service struct {
	db         *sql.DB
	credits    repository.CreditRepository
	calls      repository.CallRepository
	floorCents int64
	logger     *logrus.Entry
}

func NewService(db *sql.DB, credits repository.CreditRepository, calls repository.CallRepository, floorCents int64) *Service {
	return &Service{
		db:         db,
		credits:    credits,
		calls:      calls,
		floorCents: floorCents,
		logger:     logrus.WithField("component", "credit_ledger"),
	}
}

// ApplyTopup credits a workspace once per external payment id. A
// duplicate delivery is detected by the unique constraint on the top-up
// insert and reported as already applied, never as an error.
func (s *Service) ApplyTopup(workspaceId int, amountCents int64, externalPaymentId string) (*TopupResult, error) {
	if amountCents <= 0 {
		return nil, errors.Errorf("invalid topup amount %d for workspace %d", amountCents, workspaceId)
	}
	if externalPaymentId == "" {
		return nil, errors.Errorf("missing external payment id for workspace %d", workspaceId)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, errors.Wrap(err, "could not begin transaction")
	}

	err = s.credits.InsertTopupTx(tx, workspaceId, externalPaymentId, amountCents)
	if repository.IsDuplicateEntry(err) {
		_ = tx.Rollback()
		s.logger.Info(fmt.Sprintf("topup %s already applied for workspace %d", externalPaymentId, workspaceId))
		balance, berr := s.credits.GetBalance(workspaceId)
		if berr != nil {
			return nil, berr
		}
		return &TopupResult{AlreadyApplied: true, NewBalance: balance}, nil
	}
	if err != nil {
		_ = tx.Rollback()
		return nil, errors.Wrap(err, "could not record topup")
	}

	if _, err = s.credits.GetBalanceTx(tx, workspaceId); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	newBalance, err := s.credits.ApplyDeltaTx(tx, workspaceId, amountCents)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "could not commit topup")
	}
	s.logger.Info(fmt.Sprintf("applied topup %s of %d cents to workspace %d, balance now %d", externalPaymentId, amountCents, workspaceId, newBalance))
	return &TopupResult{NewBalance: newBalance}, nil
}

// Deduct withdraws credits, refusing to breach the floor. The balance
// read and write happen under a row lock so two calls ending at the same
// instant cannot both spend the same credits.
func (s *Service) Deduct(workspaceId int, amountCents int64) (*DeductResult, error) {
	return s.deduct(workspaceId, amountCents, s.floorCents)
}

// DeductAllowingNegative is the explicit override path for callers that
// tolerate a soft negative balance down to the given ceiling.
func (s *Service) DeductAllowingNegative(workspaceId int, amountCents int64, ceilingCents int64) (*DeductResult, error) {
	return s.deduct(workspaceId, amountCents, s.floorCents-ceilingCents)
}

func (s *Service) deduct(workspaceId int, amountCents int64, floorCents int64) (*DeductResult, error) {
	if amountCents < 0 {
		return nil, errors.Errorf("invalid deduction amount %d for workspace %d", amountCents, workspaceId)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, errors.Wrap(err, "could not begin transaction")
	}

	balance, err := s.credits.GetBalanceTx(tx, workspaceId)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if balance-amountCents < floorCents {
		_ = tx.Rollback()
		return &DeductResult{Success: false, NewBalance: balance}, ErrInsufficientBalance
	}

	newBalance, err := s.credits.ApplyDeltaTx(tx, workspaceId, -amountCents)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "could not commit deduction")
	}
	return &DeductResult{Success: true, NewBalance: newBalance}, nil
}

// Reconcile recomputes the balance a workspace should have from the
// applied top-ups and call deductions and reports any drift against the
// materialized balance.
func (s *Service) Reconcile(workspaceId int) (*ReconcileReport, error) {
	topups, err := s.credits.SumTopups(workspaceId)
	if err != nil {
		return nil, err
	}
	deductions, err := s.calls.SumDeductions(workspaceId)
	if err != nil {
		return nil, err
	}
	balance, err := s.credits.GetBalance(workspaceId)
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{
		WorkspaceId:   workspaceId,
		BalanceCents:  balance,
		ExpectedCents: topups - deductions,
	}
	report.DriftCents = report.BalanceCents - report.ExpectedCents
	if report.DriftCents != 0 {
		s.logger.Warn(fmt.Sprintf("balance drift for workspace %d: have %d cents, ledger says %d", workspaceId, report.BalanceCents, report.ExpectedCents))
	}
	return report, nil
}

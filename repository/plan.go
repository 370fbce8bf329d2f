package repository

import (
	"database/sql"

	"github.com/pkg/errors"
	"voicelane.com/billing/models"
)

type PlanRepository interface {
	GetPlan(planId string) (*models.BillingPlan, error)
}

type PlanService struct {
	db *sql.DB
}

func NewPlanRepository(db *sql.DB) PlanRepository {
	return &PlanService{db: db}
}

func (s *PlanService) GetPlan(planId string) (*models.BillingPlan, error) {
	row := s.db.QueryRow(`SELECT id, key_name, billing_type, included_minutes, overage_rate_per_minute_cents FROM billing_plans WHERE id = ?`, planId)
	var plan models.BillingPlan
	err := row.Scan(&plan.Id, &plan.KeyName, &plan.BillingType, &plan.IncludedMinutes, &plan.OverageRatePerMinuteCents)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not get plan")
	}
	return &plan, nil
}

package usage

import (
	"voicelane.com/billing/models"
)

// BilledMinutes converts a call duration to whole billed minutes. Partial
// minutes round up; a zero-duration call bills zero minutes.
func BilledMinutes(durationSeconds int64) int64 {
	if durationSeconds <= 0 {
		return 0
	}
	return (durationSeconds + 59) / 60
}

// ComputeCharge maps one completed call onto new counter values for the
// subscription. Pure: nothing is written here, the orchestrator applies
// the result in a single transaction.
//
// balanceCents is the workspace's current credit balance and
// negativeCeilingCents how far below zero the balance may go before
// further overage is blocked. Within that headroom the full overage is
// deducted; beyond it the charge applies partially down to the ceiling
// and the unpaid remainder is reported as DeficitCents with Blocked set.
// The charge is never silently dropped.
func ComputeCharge(plan *models.BillingPlan, sub *models.WorkspaceSubscription, balanceCents int64, negativeCeilingCents int64, durationSeconds int64) *models.ChargeResult {
	minutes := BilledMinutes(durationSeconds)

	result := &models.ChargeResult{
		MinutesBilled:          minutes,
		NewMinutesUsed:         sub.MinutesUsedThisPeriod,
		NewPostpaidMinutes:     sub.PostpaidMinutesUsed,
		NewPendingInvoiceCents: sub.PendingInvoiceAmountCents,
		NewOverageChargesCents: sub.OverageChargesCents,
	}
	if minutes == 0 {
		return result
	}

	if plan.BillingType == models.BillingTypePostpaid {
		// accumulate-then-bill: nothing is deducted now, overage beyond the
		// included allowance lands on the pending invoice
		used := sub.PostpaidMinutesUsed
		free := plan.IncludedMinutes - used
		if free < 0 {
			free = 0
		}
		overageMinutes := minutes - free
		if overageMinutes < 0 {
			overageMinutes = 0
		}
		overageCents := overageMinutes * plan.OverageRatePerMinuteCents

		result.FreeMinutesApplied = minutes - overageMinutes
		result.OverageMinutes = overageMinutes
		result.OverageCents = overageCents
		result.NewPostpaidMinutes = used + minutes
		result.NewPendingInvoiceCents = sub.PendingInvoiceAmountCents + overageCents
		return result
	}

	// prepaid: included minutes first, then overage drawn from credits.
	// minutes_used_this_period tracks true cumulative usage so the audit
	// trail survives; overage is computed from the pre-call counter.
	free := plan.IncludedMinutes - sub.MinutesUsedThisPeriod
	if free < 0 {
		free = 0
	}
	overageMinutes := minutes - free
	if overageMinutes < 0 {
		overageMinutes = 0
	}
	overageCents := overageMinutes * plan.OverageRatePerMinuteCents

	result.FreeMinutesApplied = minutes - overageMinutes
	result.OverageMinutes = overageMinutes
	result.OverageCents = overageCents
	result.NewMinutesUsed = sub.MinutesUsedThisPeriod + minutes
	result.NewOverageChargesCents = sub.OverageChargesCents + overageCents

	headroom := balanceCents + negativeCeilingCents
	if headroom < 0 {
		headroom = 0
	}
	if overageCents <= headroom {
		result.AmountDeductedCents = overageCents
		return result
	}

	result.AmountDeductedCents = headroom
	result.DeficitCents = overageCents - headroom
	result.Blocked = true
	return result
}

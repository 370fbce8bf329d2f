package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	billing "voicelane.com/billing/handlers/billing"
	"voicelane.com/billing/models"
	"voicelane.com/billing/repository"
	"voicelane.com/billing/utils"
)

// admin command to invoice pending postpaid usage without waiting for the
// scheduled distributor run. The counters reset only once the gateway
// confirms payment.
func ClosePostpaidPeriods() error {
	db, err := utils.GetDBConnection()
	if err != nil {
		return err
	}

	subs := repository.NewSubscriptionRepository(db)
	invoicer := billing.NewStripeUsageInvoicer(utils.Config("STRIPE_KEY"))

	due, err := subs.ListPostpaidDue()
	if err != nil {
		logrus.Error("error listing postpaid subscriptions..")
		logrus.Error(err.Error())
		return err
	}

	runId, err := utils.CreateRunConfirmationNumber()
	if err != nil {
		return err
	}

	issued := 0
	for i := range due {
		sub := &due[i]
		task := &models.InvoiceTask{
			WorkspaceId:            sub.WorkspaceId,
			ExternalSubscriptionId: sub.ExternalSubscriptionId,
			PendingAmountCents:     sub.PendingInvoiceAmountCents,
			PendingMinutes:         sub.PostpaidMinutesUsed,
			RunId:                  "manual-" + runId,
		}
		if err := invoicer.CreateUsageInvoice(sub, task); err != nil {
			logrus.Error(fmt.Sprintf("could not invoice workspace %d: %s", sub.WorkspaceId, err.Error()))
			continue
		}
		issued++
	}

	logrus.Info(fmt.Sprintf("issued %d usage invoices for %d due subscriptions", issued, len(due)))
	return nil
}

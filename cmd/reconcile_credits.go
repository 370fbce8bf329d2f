package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"voicelane.com/billing/internal/ledger"
	"voicelane.com/billing/repository"
	"voicelane.com/billing/utils"
)

// admin command to verify every materialized balance against the sum of
// applied top-ups and call deductions
func ReconcileCredits() error {
	db, err := utils.GetDBConnection()
	if err != nil {
		return err
	}

	credits := repository.NewCreditRepository(db)
	calls := repository.NewCallRepository(db)
	svc := ledger.NewService(db, credits, calls, 0)

	rows, err := db.Query("SELECT workspace_id FROM workspace_credits")
	if err != nil {
		logrus.Error("error listing credit balances..")
		logrus.Error(err.Error())
		return err
	}
	defer rows.Close()

	checked := 0
	drifted := 0
	for rows.Next() {
		var workspaceId int
		if err = rows.Scan(&workspaceId); err != nil {
			logrus.Error("error scanning workspace id: " + err.Error())
			continue
		}
		report, err := svc.Reconcile(workspaceId)
		if err != nil {
			logrus.Error(fmt.Sprintf("could not reconcile workspace %d: %s", workspaceId, err.Error()))
			continue
		}
		checked++
		if report.DriftCents != 0 {
			drifted++
		}
	}

	logrus.Info(fmt.Sprintf("reconciled %d balances, %d with drift", checked, drifted))
	return rows.Err()
}

package main

import (
	"os"

	_ "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	cmd "voicelane.com/billing/cmd"
	"voicelane.com/billing/utils"
)

func main() {
	var err error

	utils.InitLogger(utils.Config("LOG_DESTINATIONS"))

	args := os.Args[1:]
	if len(args) == 0 {
		logrus.Info("Please provide command")
		return
	}
	command := args[0]
	switch command {
	case "reconcile_credits":
		logrus.Info("reconciling credit balances against the ledger")
		err = cmd.ReconcileCredits()
		if err != nil {
			logrus.Error(err.Error())
		}
	case "close_postpaid_periods":
		logrus.Info("closing postpaid periods and issuing usage invoices")
		err = cmd.ClosePostpaidPeriods()
		if err != nil {
			logrus.Error(err.Error())
		}
	}
}

package main

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	_ "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v72/webhook"
	"voicelane.com/billing/handlers/gateway"
	"voicelane.com/billing/internal/audit"
	"voicelane.com/billing/internal/ledger"
	"voicelane.com/billing/internal/notify"
	"voicelane.com/billing/internal/subscription"
	"voicelane.com/billing/repository"
	"voicelane.com/billing/utils"
)

const maxWebhookBody = 65536

func main() {
	utils.InitLogger(utils.Config("LOG_DESTINATIONS"))

	db, err := utils.GetDBConnection()
	if err != nil {
		logrus.Fatal("could not connect to database: " + err.Error())
	}

	subs := repository.NewSubscriptionRepository(db)
	plans := repository.NewPlanRepository(db)
	credits := repository.NewCreditRepository(db)
	calls := repository.NewCallRepository(db)

	rdb, err := utils.NewRedisClient()
	if err != nil {
		logrus.Warn("redis unavailable, gateway event dedupe disabled: " + err.Error())
		rdb = nil
	}

	var archiver subscription.Archiver
	if utils.Config("AUDIT_S3_BUCKET") != "" {
		archiver = audit.NewService(
			utils.Config("AWS_REGION"),
			utils.Config("AUDIT_S3_BUCKET"),
			utils.Config("AWS_ACCESS_KEY_ID"),
			utils.Config("AWS_SECRET_ACCESS_KEY"))
	}

	var notifier subscription.Notifier
	if utils.Config("MAILGUN_DOMAIN") != "" {
		notifier = notify.NewService(
			utils.Config("MAILGUN_DOMAIN"),
			utils.Config("MAILGUN_API_KEY"),
			utils.Config("BILLING_EMAIL_FROM"),
			utils.Config("BILLING_ALERTS_EMAIL"))
	}

	ledgerSvc := ledger.NewService(db, credits, calls, 0)
	syncSvc := subscription.NewService(db, subs, plans, archiver, notifier)
	handler := gateway.NewStripeHandler(rdb, ledgerSvc, syncSvc)

	webhookSecret := utils.Config("STRIPE_WEBHOOK_SECRET")

	r := chi.NewRouter()
	r.Post("/webhooks/stripe", func(w http.ResponseWriter, req *http.Request) {
		req.Body = http.MaxBytesReader(w, req.Body, maxWebhookBody)
		payload, err := io.ReadAll(req.Body)
		if err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}

		event, err := webhook.ConstructEvent(payload, req.Header.Get("Stripe-Signature"), webhookSecret)
		if err != nil {
			logrus.Warn("rejected webhook with bad signature: " + err.Error())
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		// non-2xx makes the gateway redeliver; only infra errors get here,
		// domain rejections are ACKed and logged inside the handler
		if err := handler.HandleEvent(req.Context(), event); err != nil {
			logrus.Error("webhook processing failed: " + err.Error())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	addr := ":" + utils.Config("WEBHOOK_PORT")
	if addr == ":" {
		addr = ":8090"
	}
	logrus.Info("Stripe webhook listener on " + addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		logrus.Fatal(err.Error())
	}
}

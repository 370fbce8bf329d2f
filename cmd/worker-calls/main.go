package main

import (
	"log"
	"os"

	_ "github.com/go-sql-driver/mysql"
	amqp "github.com/rabbitmq/amqp091-go"
	"voicelane.com/billing/handlers/calls"
	billing "voicelane.com/billing/internal/billing"
	"voicelane.com/billing/internal/notify"
	"voicelane.com/billing/repository"
	"voicelane.com/billing/utils"
)

func main() {
	utils.InitLogger(utils.Config("LOG_DESTINATIONS"))

	db, err := utils.GetDBConnection()
	if err != nil {
		panic(err)
	}
	subs := repository.NewSubscriptionRepository(db)
	credits := repository.NewCreditRepository(db)
	callRepo := repository.NewCallRepository(db)
	plans := repository.NewPlanRepository(db)

	var notifier billing.Notifier
	if utils.Config("MAILGUN_DOMAIN") != "" {
		notifier = notify.NewService(
			utils.Config("MAILGUN_DOMAIN"),
			utils.Config("MAILGUN_API_KEY"),
			utils.Config("BILLING_EMAIL_FROM"),
			utils.Config("BILLING_ALERTS_EMAIL"))
	}

	orchestrator := billing.NewOrchestrator(db, subs, credits, callRepo, plans, notifier, utils.NegativeBalanceCeiling())
	consumer := calls.NewConsumer(orchestrator)

	conn, err := amqp.Dial(os.Getenv("QUEUE_URL"))
	if err != nil {
		panic(err)
	}

	defer conn.Close()
	ch, err := conn.Channel()
	if err != nil {
		panic(err)
	}
	defer ch.Close()

	// Prefetch(1) ensures the worker doesn't hog all events if one is slow
	ch.Qos(1, 0, false)
	msgs, err := ch.Consume("call_events", "", false, false, false, false, nil)
	if err != nil {
		panic(err)
	}

	log.Println("Worker ready. Waiting for call events...")

	for d := range msgs {
		requeue, err := consumer.HandleDelivery(d.Body)
		if err != nil {
			log.Printf("Error processing call event: %v", err)
			d.Nack(false, requeue)
		} else {
			d.Ack(false)
		}
	}
}

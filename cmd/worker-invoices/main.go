package main

import (
	"encoding/json"
	"log"
	"os"

	_ "github.com/go-sql-driver/mysql"
	amqp "github.com/rabbitmq/amqp091-go"
	billing "voicelane.com/billing/handlers/billing"
	"voicelane.com/billing/models"
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

	var invoicer billing.UsageInvoicer = billing.NewStripeUsageInvoicer(utils.Config("STRIPE_KEY"))

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

	// Prefetch(1) ensures the worker doesn't hog all tasks if one is slow
	ch.Qos(1, 0, false)
	msgs, err := ch.Consume("invoice_tasks", "", false, false, false, false, nil)
	if err != nil {
		panic(err)
	}

	log.Println("Worker ready. Waiting for invoice tasks...")

	for d := range msgs {
		var task models.InvoiceTask
		if err := json.Unmarshal(d.Body, &task); err != nil {
			log.Printf("Dropping undecodable invoice task: %v", err)
			d.Ack(false)
			continue
		}

		sub, err := subs.GetByExternalId(task.ExternalSubscriptionId)
		if err == repository.ErrNotFound {
			log.Printf("Subscription %s gone, dropping invoice task", task.ExternalSubscriptionId)
			d.Ack(false)
			continue
		}
		if err == nil {
			err = invoicer.CreateUsageInvoice(sub, &task)
		}

		if err != nil {
			log.Printf("Error invoicing workspace %d: %v", task.WorkspaceId, err)
			d.Nack(false, true) // Requeue for retry
		} else {
			d.Ack(false)
		}
	}
}

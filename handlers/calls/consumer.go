package calls

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"voicelane.com/billing/models"
)

type Processor interface {
	ProcessCallCompletion(event *models.CallBillingEvent) (*models.BillingOutcome, error)
}

// Consumer glues queue deliveries to the billing orchestrator. The
// transport redelivers on requeue, so any infra failure asks for a
// requeue and the orchestrator's idempotency marker absorbs the retry.
type Consumer struct {
	processor Processor
	logger    *logrus.Entry
}

func NewConsumer(processor Processor) *Consumer {
	return &Consumer{
		processor: processor,
		logger:    logrus.WithField("component", "call_events"),
	}
}

// HandleDelivery processes one queue message. The returned requeue flag
// tells the caller whether to nack-requeue (transient failure) or ack.
func (c *Consumer) HandleDelivery(body []byte) (bool, error) {
	var event models.CallBillingEvent
	if err := json.Unmarshal(body, &event); err != nil {
		// poison message, requeueing will not fix it
		c.logger.Error("dropping undecodable call event: " + err.Error())
		return false, nil
	}
	if event.ExternalCallId == "" || event.WorkspaceId <= 0 {
		c.logger.Error(fmt.Sprintf("dropping call event without identifiers: conversation %q", event.ConversationId))
		return false, nil
	}

	outcome, err := c.processor.ProcessCallCompletion(&event)
	if err != nil {
		c.logger.Error(fmt.Sprintf("billing failed for call %s on workspace %d: %s", event.ExternalCallId, event.WorkspaceId, err.Error()))
		return true, err
	}

	switch {
	case outcome.AlreadyProcessed:
		c.logger.Info(fmt.Sprintf("call %s was already billed", event.ExternalCallId))
	case !outcome.Success:
		c.logger.Warn(fmt.Sprintf("call %s on workspace %d not billed: %s", event.ExternalCallId, event.WorkspaceId, outcome.Reason))
	case outcome.Blocked:
		c.logger.Warn(fmt.Sprintf("call %s on workspace %d billed with insufficient credit, deficit recorded", event.ExternalCallId, event.WorkspaceId))
	}
	return false, nil
}

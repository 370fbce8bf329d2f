package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/sirupsen/logrus"
)

// Service sends billing emails through Mailgun. All notifications are
// best effort; callers log failures and move on.
type Service struct {
	mg     mailgun.Mailgun
	from   string
	alerts string
	logger *logrus.Entry
}

func NewService(domain string, apiKey string, from string, alertsAddress string) *Service {
	return &Service{
		mg:     mailgun.NewMailgun(domain, apiKey),
		from:   from,
		alerts: alertsAddress,
		logger: logrus.WithField("component", "billing_notify"),
	}
}

func (s *Service) LowBalanceAlert(workspaceId int, balanceCents int64, deficitCents int64) error {
	subject := fmt.Sprintf("Workspace %d is out of calling credit", workspaceId)
	body := fmt.Sprintf("Workspace %d completed a call without enough credit.\r\nBalance: %d cents\r\nUnpaid overage: %d cents\r\n",
		workspaceId, balanceCents, deficitCents)
	return s.send(subject, body)
}

func (s *Service) PaymentFailedAlert(workspaceId int, externalSubscriptionId string) error {
	subject := fmt.Sprintf("Invoice payment failed for workspace %d", workspaceId)
	body := fmt.Sprintf("The gateway reported a failed invoice payment for subscription %s (workspace %d). The subscription was marked past_due.\r\n",
		externalSubscriptionId, workspaceId)
	return s.send(subject, body)
}

func (s *Service) send(subject string, body string) error {
	message := s.mg.NewMessage(s.from, subject, body, s.alerts)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _, err := s.mg.Send(ctx, message)
	if err != nil {
		return err
	}
	s.logger.Info("sent billing notification: " + subject)
	return nil
}

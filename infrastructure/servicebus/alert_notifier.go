package servicebus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"

	"kreatr-scheduler/domain/model"
	"kreatr-scheduler/infrastructure/logger"
)

// IAlertNotifier delivers an operator alert when a dispatch tick records
// platform failures.
type IAlertNotifier interface {
	NotifyFailures(ctx context.Context, summary *model.TickSummary) error
}

type AlertNotifier struct {
	client *azservicebus.Client
	queue  string
}

// NewServiceBus connects to the Azure Service Bus namespace using the default
// credential chain (managed identity in production, az login locally).
func NewServiceBus(ctx context.Context, namespace string) (*azservicebus.Client, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}
	return azservicebus.NewClient(namespace, cred, nil)
}

func NewAlertNotifier(client *azservicebus.Client, queue string) IAlertNotifier {
	return &AlertNotifier{client: client, queue: queue}
}

type failureAlert struct {
	Source     string             `json:"source"`
	Summary    *model.TickSummary `json:"summary"`
	OccurredAt time.Time          `json:"occurred_at"`
}

func (n *AlertNotifier) NotifyFailures(ctx context.Context, summary *model.TickSummary) error {
	sender, err := n.client.NewSender(n.queue, nil)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while making new sender service bus.")
		return err
	}
	defer func(sender *azservicebus.Sender, ctx context.Context) {
		if err := sender.Close(ctx); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while closing sender.")
		}
	}(sender, ctx)

	body, err := json.Marshal(failureAlert{
		Source:     "kreatr-scheduler",
		Summary:    summary,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return sender.SendMessage(ctx, &azservicebus.Message{Body: body}, nil)
}

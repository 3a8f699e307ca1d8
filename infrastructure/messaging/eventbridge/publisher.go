// Package eventbridge publishes lifecycle events to an EventBridge bus.
package eventbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"

	"opino-backend/application/ports"
)

const eventSource = "opino.backend"

// Publisher implements ports.EventPublisher on EventBridge. A nil client
// turns publishing into a no-op, which is how local development runs.
type Publisher struct {
	client  *awseventbridge.Client
	busName string
	logger  *zap.Logger
}

// NewPublisher creates an EventBridge publisher.
func NewPublisher(client *awseventbridge.Client, busName string, logger *zap.Logger) *Publisher {
	return &Publisher{client: client, busName: busName, logger: logger}
}

// Publish sends one event to the bus.
func (p *Publisher) Publish(ctx context.Context, event ports.Event) error {
	if p.client == nil {
		return nil
	}

	detail, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event detail: %w", err)
	}

	out, err := p.client.PutEvents(ctx, &awseventbridge.PutEventsInput{
		Entries: []types.PutEventsRequestEntry{
			{
				EventBusName: aws.String(p.busName),
				Source:       aws.String(eventSource),
				DetailType:   aws.String(event.Type),
				Detail:       aws.String(string(detail)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("put events: %w", err)
	}
	if out.FailedEntryCount > 0 {
		return fmt.Errorf("eventbridge rejected %d entries", out.FailedEntryCount)
	}

	p.logger.Debug("published event", zap.String("type", event.Type))
	return nil
}

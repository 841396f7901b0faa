// Package alerts pushes operator notifications when a fulfillment request
// exhausts its delivery budget and lands on the dead-letter list.
package alerts

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"dining-concierge/internal/common/logger"
	"dining-concierge/internal/models"
)

// SNSService matches the subset of the SNS client the notifier calls.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSNotifier publishes dead-letter events to a topic. Publish failures are
// logged and swallowed: alerting must never block queue progress.
type SNSNotifier struct {
	client   SNSService
	topicARN string
	logger   logger.Logger
}

func NewSNSNotifier(ctx context.Context, region, topicARN string, log logger.Logger) (*SNSNotifier, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &SNSNotifier{
		client:   sns.NewFromConfig(awsCfg),
		topicARN: topicARN,
		logger:   log.With(map[string]interface{}{"component": "dlq-alerts"}),
	}, nil
}

func NewSNSNotifierWithClient(client SNSService, topicARN string, log logger.Logger) *SNSNotifier {
	return &SNSNotifier{
		client:   client,
		topicARN: topicARN,
		logger:   log.With(map[string]interface{}{"component": "dlq-alerts"}),
	}
}

type deadLetterEvent struct {
	RequestID  string    `json:"request_id"`
	Cuisine    string    `json:"cuisine"`
	Email      string    `json:"email"`
	Receives   int       `json:"receives"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (n *SNSNotifier) NotifyDeadLetter(ctx context.Context, req *models.FulfillmentRequest, receives int) {
	event := deadLetterEvent{
		RequestID:  req.RequestID,
		Cuisine:    req.Cuisine,
		Email:      req.Email,
		Receives:   receives,
		OccurredAt: time.Now().UTC(),
	}
	payload, _ := json.Marshal(event)

	_, err := n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String("Dining concierge request dead-lettered"),
		Message:  aws.String(string(payload)),
	})
	if err != nil {
		n.logger.Error("dead-letter alert publish failed", map[string]interface{}{
			"request_id": req.RequestID,
			"error":      err.Error(),
		})
		return
	}

	n.logger.Warn("request dead-lettered", map[string]interface{}{
		"request_id": req.RequestID,
		"receives":   receives,
	})
}

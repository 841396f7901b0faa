// Package email delivers suggestion digests to the address captured during
// the conversation.
package email

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	stderrors "dining-concierge/internal/common/errors"
	"dining-concierge/internal/common/logger"
)

// Sender is the delivery abstraction the fulfillment worker depends on.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SESService matches the subset of the SES client the sender calls.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SESSender struct {
	client    SESService
	fromEmail string
	logger    logger.Logger
}

func NewSESSender(ctx context.Context, region, fromEmail string, log logger.Logger) (*SESSender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &SESSender{
		client:    ses.NewFromConfig(awsCfg),
		fromEmail: fromEmail,
		logger:    log.With(map[string]interface{}{"component": "ses-sender"}),
	}, nil
}

// NewSESSenderWithClient wires a pre-built client. Tests use it with a mock.
func NewSESSenderWithClient(client SESService, fromEmail string, log logger.Logger) *SESSender {
	return &SESSender{
		client:    client,
		fromEmail: fromEmail,
		logger:    log.With(map[string]interface{}{"component": "ses-sender"}),
	}
}

func (s *SESSender) Send(ctx context.Context, to, subject, body string) error {
	// A malformed recipient would bounce off SES on every redelivery;
	// fail it terminally instead.
	if err := validation.Validate(to, validation.Required, is.EmailFormat); err != nil {
		return stderrors.NewInvalidEmailAddressError(err.Error())
	}

	_, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(s.fromEmail),
	})
	if err != nil {
		return stderrors.NewEmailSendFailedError(to, err)
	}

	s.logger.Info("email dispatched", map[string]interface{}{
		"to":      to,
		"subject": subject,
	})
	return nil
}

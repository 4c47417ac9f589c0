package sns

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/go-wallet-api/internal/config"
	"github.com/go-wallet-api/internal/domain"
)

// SMSSender sends SMS messages via AWS SNS and returns the provider
// message id.
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) (string, error)
}

type sender struct {
	client *sns.Client
}

func NewSender(cfg *config.Config) (SMSSender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.SNSRegion),
	)
	if err != nil {
		return nil, err
	}
	return &sender{client: sns.NewFromConfig(awsCfg)}, nil
}

// SendSMS publishes the message. A rejected destination number is a
// permanent failure (domain.ErrBadRequest); anything else from the
// provider is treated as transient (domain.ErrUnavailable) and left to the
// caller's retry policy.
func (s *sender) SendSMS(ctx context.Context, to, message string) (string, error) {
	out, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: &to,
		Message:     &message,
	})
	if err != nil {
		var ipe *types.InvalidParameterException
		if errors.As(err, &ipe) {
			return "", fmt.Errorf("sns rejected recipient: %w", domain.ErrBadRequest)
		}
		return "", fmt.Errorf("sns publish: %v: %w", err, domain.ErrUnavailable)
	}
	if out.MessageId == nil {
		return "", nil
	}
	return *out.MessageId, nil
}

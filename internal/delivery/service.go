package delivery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"email-assistant/internal/common/config"
	"email-assistant/internal/common/logger"
)

// Request is one outbound email.
type Request struct {
	To      string
	Subject string
	HTML    string
}

// Result reports a successful send.
type Result struct {
	MessageID string
	SentAt    time.Time
}

type Service struct {
	client SESAPI
	from   string
	logger logger.Logger
}

func NewService(client SESAPI, cfg config.DeliveryConfig, log logger.Logger) *Service {
	return &Service{
		client: client,
		from:   cfg.From,
		logger: log.WithFields(map[string]interface{}{
			"component": "delivery",
		}),
	}
}

// Send validates addresses and dispatches the email through SES.
func (s *Service) Send(ctx context.Context, req Request) (*Result, error) {
	if !isValidEmail(req.To) {
		return nil, fmt.Errorf("invalid 'to' email address: %s", req.To)
	}
	if !isValidEmail(s.from) {
		return nil, fmt.Errorf("invalid 'from' email address: %s", s.from)
	}
	if strings.TrimSpace(req.HTML) == "" {
		return nil, fmt.Errorf("refusing to send empty email body")
	}

	out, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(s.from),
		Destination: &types.Destination{
			ToAddresses: []string{req.To},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(req.Subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data:    aws.String(req.HTML),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send email to %s: %w", req.To, err)
	}

	result := &Result{
		MessageID: aws.ToString(out.MessageId),
		SentAt:    time.Now().UTC(),
	}
	s.logger.Info("email sent", map[string]interface{}{
		"to":        req.To,
		"messageId": result.MessageID,
	})
	return result, nil
}

func isValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	if len(parts[0]) == 0 || len(parts[1]) == 0 {
		return false
	}
	return strings.Contains(parts[1], ".")
}

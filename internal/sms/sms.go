package sms

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
	"trohub/app/internal/config"
)

// Sender delivers a text message and returns the provider's message id.
type Sender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// ErrInvalidPhone is returned for numbers that cannot be turned into E.164.
var ErrInvalidPhone = errors.New("invalid phone number")

// NormalizePhone converts local Vietnamese numbers (0912 345 678) to E.164 (+84912345678).
func NormalizePhone(phone string) (string, error) {
	var digits strings.Builder
	for i, r := range strings.TrimSpace(phone) {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == '+' && i == 0:
			digits.WriteRune(r)
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
		default:
			return "", fmt.Errorf("%w: %q", ErrInvalidPhone, phone)
		}
	}
	n := digits.String()
	switch {
	case strings.HasPrefix(n, "+"):
	case strings.HasPrefix(n, "84"):
		n = "+" + n
	case strings.HasPrefix(n, "0"):
		n = "+84" + n[1:]
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPhone, phone)
	}
	if len(n) < 10 || len(n) > 16 {
		return "", fmt.Errorf("%w: %q", ErrInvalidPhone, phone)
	}
	return n, nil
}

// NewSender picks the sender for the configuration: Redis capture under
// MOCK_SERVICES, Twilio when credentials are present, logging otherwise.
func NewSender(cfg *config.Config, rdb *redis.Client) Sender {
	switch {
	case cfg.MockServices && rdb != nil:
		return &RedisSender{client: rdb}
	case cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" && cfg.TwilioFromNumber != "":
		return NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
	default:
		zap.S().Info("Twilio not configured, using logging SMS sender")
		return LoggingSender{}
	}
}

// TwilioSender sends through the Twilio Messages API.
type TwilioSender struct {
	client *twilio.RestClient
	from   string
}

func NewTwilioSender(accountSID, authToken, from string) *TwilioSender {
	return &TwilioSender{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		}),
		from: from,
	}
}

func (s *TwilioSender) Send(ctx context.Context, to, body string) (string, error) {
	phone, err := NormalizePhone(to)
	if err != nil {
		return "", err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(phone)
	params.SetFrom(s.from)
	params.SetBody(body)

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("twilio error sending to %s: %w", phone, err)
	}
	sid := ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}
	zap.S().Infof("SMS sent to %s, SID: %s", phone, sid)
	return sid, nil
}

// LoggingSender only logs messages.
type LoggingSender struct{}

func (LoggingSender) Send(ctx context.Context, to, body string) (string, error) {
	zap.S().Infow("SMS (logged, not sent)", "to", to, "body", body)
	return "", nil
}

// MockInboxKey is the Redis list of captured messages for a phone number.
func MockInboxKey(phone string) string {
	return "mocksms:" + phone
}

// RedisSender captures messages in Redis (MOCK_SERVICES).
type RedisSender struct {
	client *redis.Client
}

func (s *RedisSender) Send(ctx context.Context, to, body string) (string, error) {
	phone, err := NormalizePhone(to)
	if err != nil {
		return "", err
	}
	key := MockInboxKey(phone)
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, body)
	pipe.Expire(ctx, key, 10*time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to store SMS in Redis: %w", err)
	}
	return "mock-" + phone, nil
}

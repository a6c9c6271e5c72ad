package email

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// MockMailboxTTL is how long captured emails stay readable.
const MockMailboxTTL = 10 * time.Minute

// MockMailboxKey is the Redis list holding captured emails for one recipient, newest first.
func MockMailboxKey(to string) string {
	return "mockemail:" + strings.ToLower(to)
}

// CapturedEmail is what RedisSender stores.
type CapturedEmail struct {
	To      []string  `json:"to"`
	From    string    `json:"from"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sent_at"`
}

// RedisSender captures emails in Redis instead of sending them (MOCK_SERVICES).
type RedisSender struct {
	client *redis.Client
	from   string
}

func NewRedisSender(client *redis.Client, from string) Sender {
	return &RedisSender{client: client, from: from}
}

func (s *RedisSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	data, err := json.Marshal(CapturedEmail{
		To:      to,
		From:    s.from,
		Subject: subject,
		Body:    string(rawMessage),
		SentAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email data: %w", err)
	}

	pipe := s.client.TxPipeline()
	for _, addr := range to {
		key := MockMailboxKey(addr)
		pipe.LPush(ctx, key, data)
		pipe.Expire(ctx, key, MockMailboxTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store email in Redis: %w", err)
	}

	zap.S().Infof("Mock email captured in Redis (To: %s, Subject: %s)", strings.Join(to, ", "), subject)
	return nil
}

// LatestCaptured returns the newest captured email for a recipient, or redis.Nil.
func LatestCaptured(ctx context.Context, client *redis.Client, to string) (*CapturedEmail, error) {
	raw, err := client.LIndex(ctx, MockMailboxKey(to), 0).Result()
	if err != nil {
		return nil, err
	}
	var captured CapturedEmail
	if err := json.Unmarshal([]byte(raw), &captured); err != nil {
		return nil, fmt.Errorf("failed to decode captured email: %w", err)
	}
	return &captured, nil
}

package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"greendrake/estate/internal/config"
	"greendrake/estate/internal/logging"
)

// MockTTL is how long a captured email stays readable.
const MockTTL = 5 * time.Minute

// Kinds used in the mock key. KindOf derives them from the subject.
const (
	KindInvoice = "invoice"
	KindOther   = "other"
)

// MockEmail is what RedisSender stores for one message.
type MockEmail struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	SentAt  string `json:"sent_at"`
	Kind    string `json:"kind"`
}

// RedisSender captures emails in Redis instead of sending them, so end to
// end tests can read them back through the service API.
type RedisSender struct {
	client *redis.Client
	from   string
	log    *zap.Logger
}

func NewRedisSender(client *redis.Client, cfg *config.Config, logger *zap.Logger) Sender {
	return &RedisSender{client: client, from: cfg.SmtpFromAddress, log: logging.OrNop(logger)}
}

// KindOf classifies a message by its subject.
func KindOf(subject string) string {
	if strings.Contains(strings.ToLower(subject), "invoice") {
		return KindInvoice
	}
	return KindOther
}

// MockKey is the Redis key a captured email for to and kind is stored under.
func MockKey(to, kind string) string {
	return fmt.Sprintf("mockemail:%s:%s", strings.ToLower(to), kind)
}

func (s *RedisSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	// the first recipient owns the key
	primaryTo := ""
	if len(to) > 0 {
		primaryTo = to[0]
	}
	kind := KindOf(subject)
	data, err := json.Marshal(MockEmail{
		To:      strings.Join(to, ", "),
		From:    s.from,
		Subject: subject,
		Body:    string(rawMessage),
		SentAt:  time.Now().UTC().Format(time.RFC3339Nano),
		Kind:    kind,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email data: %w", err)
	}

	key := MockKey(primaryTo, kind)
	if err := s.client.Set(ctx, key, data, MockTTL).Err(); err != nil {
		return fmt.Errorf("failed to store email in Redis key '%s': %w", key, err)
	}
	s.log.Info("mock email stored", zap.String("key", key), zap.String("subject", subject))
	return nil
}

// ErrNoMockEmail is returned by FetchMock when nothing was captured.
var ErrNoMockEmail = errors.New("no mock email found")

// FetchMock reads back the email captured for to and kind.
func FetchMock(ctx context.Context, client *redis.Client, to, kind string) (*MockEmail, error) {
	raw, err := client.Get(ctx, MockKey(to, kind)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoMockEmail
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read mock email: %w", err)
	}
	var m MockEmail
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to decode mock email: %w", err)
	}
	return &m, nil
}

package email

import (
	"context"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"

	"greendrake/estate/internal/config"
	"greendrake/estate/internal/logging"
)

// Sender defines the interface for sending emails.
// rawMessage is the full RFC 5322 message, headers included.
type Sender interface {
	Send(ctx context.Context, to []string, subject string, rawMessage []byte) error
}

// SMTPSender delivers mail through the configured SMTP relay.
type SMTPSender struct {
	from string
	auth smtp.Auth
	addr string
	log  *zap.Logger
}

// NewSMTPSender returns an SMTPSender, or a LoggingSender when no SMTP host
// is configured.
func NewSMTPSender(cfg *config.Config, logger *zap.Logger) Sender {
	logger = logging.OrNop(logger).Named("email")
	if cfg.SmtpHost == "" {
		logger.Info("SMTP host not configured, using logging email sender")
		return NewLoggingSender(cfg, logger)
	}
	var auth smtp.Auth
	if cfg.SmtpUsername != "" {
		auth = smtp.PlainAuth("", cfg.SmtpUsername, cfg.SmtpPassword, cfg.SmtpHost)
	}
	return &SMTPSender{
		from: cfg.SmtpFromAddress,
		auth: auth,
		addr: fmt.Sprintf("%s:%d", cfg.SmtpHost, cfg.SmtpPort),
		log:  logger,
	}
}

func (s *SMTPSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	if err := smtp.SendMail(s.addr, s.auth, s.from, to, rawMessage); err != nil {
		s.log.Error("smtp send failed", zap.Strings("to", to), zap.Error(err))
		return fmt.Errorf("smtp error: %w", err)
	}
	s.log.Info("email sent", zap.Strings("to", to), zap.String("subject", subject))
	return nil
}

// LoggingSender only logs the message. Used in development.
type LoggingSender struct {
	from string
	log  *zap.Logger
}

func NewLoggingSender(cfg *config.Config, logger *zap.Logger) *LoggingSender {
	return &LoggingSender{from: cfg.SmtpFromAddress, log: logging.OrNop(logger)}
}

func (s *LoggingSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	s.log.Info("email (logged, not sent)",
		zap.Strings("to", to),
		zap.String("from", s.from),
		zap.String("subject", subject),
		zap.ByteString("message", rawMessage))
	return nil
}

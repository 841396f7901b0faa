package email

import (
	"context"

	"dining-concierge/internal/common/logger"
)

// LogSender logs instead of dispatching. Used when outbound email is
// disabled, typically in local development.
type LogSender struct {
	logger logger.Logger
}

func NewLogSender(log logger.Logger) *LogSender {
	return &LogSender{logger: log.With(map[string]interface{}{"component": "log-sender"})}
}

func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.logger.Info("outbound email suppressed", map[string]interface{}{
		"to":      to,
		"subject": subject,
		"bytes":   len(body),
	})
	return nil
}

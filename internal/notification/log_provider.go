package notification

import (
	"context"
	"log/slog"
	"strings"
)

// LogProvider writes messages to the logger instead of delivering them.
// It backs local development and environments without an SMTP relay.
type LogProvider struct {
	logger *slog.Logger
}

// NewLogProvider returns a LogProvider that writes to logger.
func NewLogProvider(logger *slog.Logger) *LogProvider {
	return &LogProvider{logger: logger}
}

// Name returns the provider identifier.
func (p *LogProvider) Name() string { return "log" }

// Send records the message and always succeeds unless ctx is done.
func (p *LogProvider) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.logger.InfoContext(ctx, "notification not delivered (log provider)",
		"to", strings.Join(msg.To, ","),
		"subject", msg.Subject,
		"body_bytes", len(msg.Body),
	)
	return nil
}

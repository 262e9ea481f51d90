package lark

import (
	"context"

	"go.uber.org/zap"

	"github.com/garyjia/claims-workflow/internal/application/port"
)

// LogNotifier writes notifications to the log instead of delivering them.
// It is used when no Lark credentials are configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log-only notifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// SendText logs the message
func (n *LogNotifier) SendText(_ context.Context, openID string, text string) error {
	n.logger.Info("Notification (not delivered)",
		zap.String("receive_id", openID),
		zap.String("text", text))
	return nil
}

var _ port.Notifier = (*LogNotifier)(nil)

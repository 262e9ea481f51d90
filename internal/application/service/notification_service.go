package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/claims-workflow/internal/application/dispatcher"
	"github.com/garyjia/claims-workflow/internal/application/port"
	"github.com/garyjia/claims-workflow/internal/domain/event"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// NotificationService tells submitters about status changes of their claims
type NotificationService interface {
	// Register subscribes the service to status change events
	Register(d dispatcher.Dispatcher)

	// HandleStatusChanged notifies the submitter named in a status change event
	HandleStatusChanged(ctx context.Context, evt *event.Event) error
}

type notificationServiceImpl struct {
	userRepo port.UserRepository
	notifier port.Notifier
	logger   Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(userRepo port.UserRepository, notifier port.Notifier, logger Logger) NotificationService {
	return &notificationServiceImpl{
		userRepo: userRepo,
		notifier: notifier,
		logger:   logger,
	}
}

func (s *notificationServiceImpl) Register(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeStatusChanged, "submitter-notification", s.HandleStatusChanged)
}

func (s *notificationServiceImpl) HandleStatusChanged(ctx context.Context, evt *event.Event) error {
	submitterID := evt.GetPayloadString(event.KeySubmitterID)
	if submitterID == "" {
		s.logger.Info("Status change without submitter, skipping notification", "claim_id", evt.ClaimID)
		return nil
	}

	user, err := s.userRepo.GetByID(ctx, submitterID)
	if err != nil {
		s.logger.Error("Failed to get submitter", "error", err, "user_id", submitterID)
		return fmt.Errorf("get submitter: %w", err)
	}
	if user == nil || user.LarkOpenID == "" {
		s.logger.Info("Submitter has no chat account, skipping notification",
			"claim_id", evt.ClaimID,
			"user_id", submitterID,
		)
		return nil
	}

	message := buildStatusMessage(evt)
	if err := s.notifier.SendText(ctx, user.LarkOpenID, message); err != nil {
		s.logger.Error("Failed to send status notification", "error", err, "claim_id", evt.ClaimID, "open_id", user.LarkOpenID)
		return fmt.Errorf("send message: %w", err)
	}

	s.logger.Info("Status notification sent",
		"claim_id", evt.ClaimID,
		"to_state", evt.GetPayloadString(event.KeyToState),
		"open_id", user.LarkOpenID,
	)
	return nil
}

var stateLabels = map[string]string{
	"pending":    "pending review",
	"approved":   "approved",
	"rejected":   "rejected",
	"needs_info": "waiting for more information from you",
	"paid":       "paid",
}

// buildStatusMessage builds a human-readable status change message
func buildStatusMessage(evt *event.Event) string {
	to := evt.GetPayloadString(event.KeyToState)
	label, ok := stateLabels[to]
	if !ok {
		label = to
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Your reimbursement claim %s is now %s.", evt.ClaimID, label)
	if note := strings.TrimSpace(evt.GetPayloadString(event.KeyNote)); note != "" {
		fmt.Fprintf(&b, "\n\nNote: %s", note)
	}
	if to == "needs_info" {
		b.WriteString("\n\nPlease update the claim and resubmit it.")
	}
	return b.String()
}

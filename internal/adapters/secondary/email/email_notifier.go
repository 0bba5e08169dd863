package email

import (
	"context"
	"log/slog"

	"github.com/lorrc/service-desk-routing/internal/core/domain"
	"github.com/lorrc/service-desk-routing/internal/core/ports"
)

// TechnicianLookup resolves the recipient of a notification.
type TechnicianLookup interface {
	Get(id int64) (domain.Technician, error)
}

// MockSMTPNotifier is a secondary adapter that mocks sending emails.
// It implements the ports.Notifier interface.
type MockSMTPNotifier struct {
	technicians TechnicianLookup
	logger      *slog.Logger
}

var _ ports.Notifier = (*MockSMTPNotifier)(nil)

// NewMockSMTPNotifier creates a new mock notifier. Recipients are looked up
// in the technician registry, so no database round trip is needed.
func NewMockSMTPNotifier(technicians TechnicianLookup, logger *slog.Logger) *MockSMTPNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &MockSMTPNotifier{
		technicians: technicians,
		logger:      logger.With("component", "email_notifier"),
	}
}

// Notify logs the notification instead of sending an email.
// Callers run it in a separate goroutine, so it handles its own errors.
func (n *MockSMTPNotifier) Notify(ctx context.Context, params ports.NotificationParams) {
	// 1. Get the recipient's details
	technician, err := n.technicians.Get(params.TechnicianID)
	if err != nil {
		n.logger.ErrorContext(ctx, "failed to get technician for notification",
			"technician_id", params.TechnicianID,
			"ticket_id", params.TicketID,
			"error", err,
		)
		return
	}

	// 2. Log the mock email
	n.logger.InfoContext(ctx, "mock email sent",
		"to_name", technician.Name,
		"technician_id", technician.ID,
		"subject", params.Subject,
		"ticket_id", params.TicketID,
	)
}

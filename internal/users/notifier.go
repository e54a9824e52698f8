package users

import (
	"context"

	"github.com/hammer-mt/FireFlask/pkg/logger"
)

// ResetNotifier delivers password reset tokens to the account holder.
type ResetNotifier interface {
	NotifyPasswordReset(ctx context.Context, email, token string) error
}

// LogNotifier records reset requests without delivering them. Mail delivery
// lives outside this service.
type LogNotifier struct {
	logg *logger.Logger
}

// NewLogNotifier builds a notifier writing to logg.
func NewLogNotifier(logg *logger.Logger) *LogNotifier {
	return &LogNotifier{logg: logg}
}

func (n *LogNotifier) NotifyPasswordReset(ctx context.Context, email, _ string) error {
	if n == nil || n.logg == nil {
		return nil
	}
	ctx = n.logg.WithField(ctx, "email", email)
	n.logg.Info(ctx, "password reset requested")
	return nil
}

package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/kindredlabs/kindred-backend/internal/platform/logger"
)

// Deliverer pushes a message to a member, best-effort. Failures are logged
// by callers and never roll back engine state. Production wiring passes
// internal/platform/redisbus.Bus.
type Deliverer interface {
	Deliver(ctx context.Context, memberID uuid.UUID, text string) error
}

// LogDeliverer writes deliveries to the log instead of a bus. Used when no
// delivery channel is configured, so local runs still show outbound traffic.
type LogDeliverer struct {
	log *logger.Logger
}

func NewLogDeliverer(log *logger.Logger) *LogDeliverer {
	return &LogDeliverer{log: log.With("deliverer", "LogDeliverer")}
}

func (d *LogDeliverer) Deliver(_ context.Context, memberID uuid.UUID, text string) error {
	d.log.Info("delivery (log only)", "member_id", memberID, "text", text)
	return nil
}

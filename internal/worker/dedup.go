package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/joao-fontenele/storefront-dispatch/internal/messaging"
)

// Claimer records which events have been handled.
type Claimer interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

// Once wraps next so each event id is handled at most once while its claim
// lives. Messages without an event id are always handled. A failed handler
// releases the claim so the redelivery is retried.
func Once(claimer Claimer, logger *slog.Logger, next messaging.Handler) messaging.Handler {
	return func(ctx context.Context, msg messaging.Message) error {
		var envelope struct {
			EventID string `json:"event_id"`
		}
		if err := json.Unmarshal(msg.Value, &envelope); err != nil || envelope.EventID == "" {
			return next(ctx, msg)
		}

		first, err := claimer.Claim(ctx, envelope.EventID)
		if err != nil {
			logger.Warn("event dedup unavailable", "error", err, "event_id", envelope.EventID)
			return next(ctx, msg)
		}
		if !first {
			logger.Info("skipping duplicate event", "event_id", envelope.EventID, "topic", msg.Topic, "offset", msg.Offset)
			return nil
		}

		if err := next(ctx, msg); err != nil {
			if relErr := claimer.Release(ctx, envelope.EventID); relErr != nil {
				logger.Error("failed to release event claim", "error", relErr, "event_id", envelope.EventID)
			}
			return err
		}
		return nil
	}
}

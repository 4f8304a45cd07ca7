package events

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
)

// NewAuditHandler writes every booking event to the log.
func NewAuditHandler(logger *zerolog.Logger) EventHandler {
	log := zerolog.Nop()
	if logger != nil {
		log = logger.With().Str("component", "audit").Logger()
	}

	return func(event *Event) error {
		var p BookingEventPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			return fmt.Errorf("decode %s payload: %w", event.Type, err)
		}

		log.Info().
			Str("event", event.Type).
			Str("booking_id", p.BookingID).
			Str("item_id", p.ItemID).
			Str("from", p.FromStatus).
			Str("status", p.Status).
			Str("actor_id", p.ActorID).
			Str("actor_role", p.ActorRole).
			Time("at", event.CreatedAt).
			Msg("booking event")
		return nil
	}
}

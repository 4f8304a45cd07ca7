package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rentbook/internal/models"
)

const (
	MessageBookingUpserted      = "booking.upserted"
	MessageBookingStatusChanged = "booking.status_changed"

	headerMessageType = "message-type"
)

// BookingMessage is the record value written to the bookings topic.
// Records are keyed by booking ID so a booking's changes stay ordered.
type BookingMessage struct {
	Type      string               `json:"type"`
	BookingID string               `json:"booking_id"`
	Status    models.BookingStatus `json:"status"`
	Booking   *models.Booking      `json:"booking,omitempty"`
	SentAt    time.Time            `json:"sent_at"`
}

type publisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error
}

// BookingPublisher is a sync sink that streams booking changes to Kafka.
type BookingPublisher struct {
	producer publisher
	topic    string
	now      func() time.Time
}

func NewBookingPublisher(producer publisher, topic string) *BookingPublisher {
	return &BookingPublisher{producer: producer, topic: topic, now: time.Now}
}

func (p *BookingPublisher) Name() string { return "kafka" }

func (p *BookingPublisher) UpsertBooking(ctx context.Context, b *models.Booking) error {
	return p.send(ctx, BookingMessage{
		Type:      MessageBookingUpserted,
		BookingID: b.ID,
		Status:    b.Status,
		Booking:   b,
	})
}

func (p *BookingPublisher) UpdateBookingStatus(ctx context.Context, bookingID string, status models.BookingStatus) error {
	return p.send(ctx, BookingMessage{
		Type:      MessageBookingStatusChanged,
		BookingID: bookingID,
		Status:    status,
	})
}

func (p *BookingPublisher) send(ctx context.Context, msg BookingMessage) error {
	msg.SentAt = p.now().UTC()
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode booking message: %w", err)
	}
	return p.producer.Publish(ctx, p.topic, msg.BookingID, payload, map[string]string{headerMessageType: msg.Type})
}

package notify

import (
    "context"
    "encoding/json"
    "log"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/rideronin/slot-booking/internal/model"
)

// Publisher emits booking.confirmed events to RabbitMQ. It satisfies
// the settlement engine's Notifier: publishing is detached from the
// caller and every failure is logged and swallowed, so a broker
// outage degrades notifications, never bookings.
type Publisher struct {
    url string
}

// NewPublisher returns a Publisher dialing the given AMQP URL.
func NewPublisher(url string) *Publisher { return &Publisher{url: url} }

// BookingConfirmed publishes the event for a confirmed booking from a
// detached goroutine and returns immediately.
func (p *Publisher) BookingConfirmed(b model.Booking) {
    ev := eventFromBooking(b)
    go func() {
        ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
        defer cancel()
        if err := p.publish(ctx, ev); err != nil {
            log.Printf("notify: publish booking %d failed: %v", ev.BookingID, err)
        }
    }()
}

func (p *Publisher) publish(ctx context.Context, ev BookingConfirmedEvent) error {
    conn, err := amqp.Dial(p.url)
    if err != nil {
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        return err
    }
    defer func() { _ = ch.Close() }()

    // Idempotent declare; durable so events survive broker restarts.
    if _, err := ch.QueueDeclare(bookingQueueName, true, false, false, false, nil); err != nil {
        return err
    }

    body, err := json.Marshal(ev)
    if err != nil {
        return err
    }
    return ch.PublishWithContext(ctx,
        "",               // default exchange
        bookingQueueName, // routing key = queue name
        false,            // mandatory
        false,            // immediate
        amqp.Publishing{
            ContentType:  "application/json",
            DeliveryMode: amqp.Persistent,
            Timestamp:    time.Now().UTC(),
            Body:         body,
        },
    )
}

// NopNotifier discards confirmation events. Used when no broker is
// configured so the settlement engine still has a sink.
type NopNotifier struct{}

// BookingConfirmed implements the notifier interface; it only logs.
func (NopNotifier) BookingConfirmed(b model.Booking) {
    log.Printf("notify: broker disabled, skipping confirmation for booking %d", b.ID)
}

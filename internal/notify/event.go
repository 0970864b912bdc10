// Package notify implements the best-effort notification sink:
// confirmed bookings are published to a durable RabbitMQ queue and an
// in-process worker drains it, delivering confirmation email over
// SMTP. Nothing here may block or fail a settlement.
package notify

import (
    "time"

    "github.com/rideronin/slot-booking/internal/model"
)

const bookingQueueName = "booking.confirmed"

// BookingConfirmedEvent is published when a booking is confirmed. It
// carries everything the mail worker needs so delivery never queries
// the primary database.
type BookingConfirmedEvent struct {
    BookingID   uint64 `json:"booking_id"`
    UserID      string `json:"user_id"`
    Date        string `json:"date"`
    SlotTime    string `json:"slot_time"`
    DisplayTime string `json:"display_time"`
    Amount      int64  `json:"amount"`
    Email       string `json:"email"`
    Name        string `json:"name"`
    ConfirmedAt string `json:"confirmed_at"`
}

func eventFromBooking(b model.Booking) BookingConfirmedEvent {
    display := b.SlotTime
    if b.SlotDisplayTime != nil && *b.SlotDisplayTime != "" {
        display = *b.SlotDisplayTime
    }
    return BookingConfirmedEvent{
        BookingID:   b.ID,
        UserID:      b.UserID,
        Date:        b.Date,
        SlotTime:    b.SlotTime,
        DisplayTime: display,
        Amount:      b.Amount,
        Email:       b.UserEmail,
        Name:        b.UserName,
        ConfirmedAt: time.Now().UTC().Format(time.RFC3339),
    }
}

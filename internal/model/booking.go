package model

import "time"

// Booking status values as stored in the `bookings.status` column.
// A booking is `confirmed` when admission succeeded, `refund_pending`
// when a payment was taken but admission failed (a compensating refund
// has been recorded and initiated), and `cancelled` once the slot has
// been released or the refund completed.
const (
    StatusConfirmed     = "confirmed"
    StatusRefundPending = "refund_pending"
    StatusCancelled     = "cancelled"
)

// Booking records one reservation of a slot on a date. The user's
// contact details are denormalized onto the row so that bookings
// remain readable after a profile changes or is removed.
//
// Fields:
//  ID              – primary key identifier.
//  UserID          – identity-provider user id (UUID string).
//  Date            – slot date in YYYY-MM-DD form.
//  SlotTime        – slot time in HH:MM form.
//  SlotDisplayTime – human-readable time label (nullable).
//  Status          – one of the Status* constants.
//  PaymentID       – gateway payment id that funded the booking (nullable).
//  Amount          – amount paid in major currency units.
//  UserName        – bookings.user_name.
//  UserEmail       – bookings.user_email.
//  UserPhone       – bookings.user_phone (nullable).
//  CreatedAt       – creation timestamp.
//  CancelledAt     – when the booking was cancelled (nullable).
type Booking struct {
    ID              uint64     `json:"id"`
    UserID          string     `json:"userId"`
    Date            string     `json:"date"`
    SlotTime        string     `json:"slotTime"`
    SlotDisplayTime *string    `json:"slotDisplayTime,omitempty"`
    Status          string     `json:"status"`
    PaymentID       *string    `json:"paymentId,omitempty"`
    Amount          int64      `json:"amount"`
    UserName        string     `json:"userName"`
    UserEmail       string     `json:"userEmail"`
    UserPhone       *string    `json:"userPhone,omitempty"`
    CreatedAt       time.Time  `json:"createdAt"`
    CancelledAt     *time.Time `json:"cancelledAt,omitempty"`
}

// SlotID returns the composite slot identifier exposed to clients,
// e.g. "2025-01-01-09:00".
func (b Booking) SlotID() string { return b.Date + "-" + b.SlotTime }

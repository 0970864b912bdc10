package service

import (
    "errors"

    "github.com/rideronin/slot-booking/internal/repository"
)

// RejectReason classifies why a settlement or booking attempt was
// turned away. Reasons are attached to refund notes so the gateway
// side of a compensation can be traced back to its cause.
type RejectReason string

const (
    ReasonInvalidSignature    RejectReason = "invalid_signature"
    ReasonOrderNotPaid        RejectReason = "order_not_paid"
    ReasonSlotFull            RejectReason = "slot_full"
    ReasonDuplicateBooking    RejectReason = "duplicate_booking"
    ReasonBookingInsertFailed RejectReason = "booking_insert_failed"
)

// Failures with no side effects: nothing was charged under the
// claimed identity, so the caller gets a plain error.
var (
    // ErrInvalidSignature means the proof-of-payment did not verify.
    ErrInvalidSignature = errors.New("invalid payment signature")
    // ErrOrderNotPaid means the gateway does not confirm the order as
    // paid, either because the fetch failed or the status differs.
    ErrOrderNotPaid = errors.New("order not paid")
    // ErrSlotFull means the slot has no remaining capacity.
    ErrSlotFull = errors.New("slot is fully booked")
    // ErrDuplicateBooking means the user already holds a confirmed
    // booking for the slot.
    ErrDuplicateBooking = errors.New("slot already booked by user")
    // ErrTooCloseToSlotTime rejects an owner cancellation inside the
    // lead-time window.
    ErrTooCloseToSlotTime = errors.New("too close to slot time to cancel")
    // ErrNotRefundable means the booking's status does not allow a
    // refund.
    ErrNotRefundable = errors.New("booking cannot be refunded")
    // ErrForbidden rejects an operation on a booking the requester
    // does not own.
    ErrForbidden = errors.New("forbidden")
)

// mapInsertErr translates the ledger's storage-level admission errors
// into the domain errors handlers report.
func mapInsertErr(err error) error {
    switch {
    case errors.Is(err, repository.ErrSlotFull):
        return ErrSlotFull
    case errors.Is(err, repository.ErrDuplicate):
        return ErrDuplicateBooking
    }
    return err
}

// CompensatedError reports that a verified payment could not be
// admitted and a compensating refund has been recorded and initiated.
// It is distinct from the plain admission errors above because money
// has already moved: the refund_pending row exists before this error
// is returned, regardless of whether the gateway refund call itself
// succeeded.
type CompensatedError struct {
    Reason    RejectReason
    PaymentID string
}

func (e *CompensatedError) Error() string {
    return "booking failed, refund pending (" + string(e.Reason) + ")"
}

// Message returns the client-facing explanation, which always
// discloses that a refund was initiated.
func (e *CompensatedError) Message() string {
    switch e.Reason {
    case ReasonSlotFull:
        return "Slot is fully booked. Your payment has been refunded."
    case ReasonDuplicateBooking:
        return "You have already booked this slot. Your payment has been refunded."
    default:
        return "Booking could not be completed. Your payment has been refunded."
    }
}

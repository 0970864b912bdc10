package handler

import (
    "time"

    "github.com/labstack/echo/v4"

    "github.com/rideronin/slot-booking/internal/model"
)

// validDate reports whether s is a calendar date in zero-padded
// YYYY-MM-DD form. time.Parse alone accepts unpadded fields, which
// would produce slot keys that never match the stored schedule, so
// the round-trip comparison pins the canonical form.
func validDate(s string) bool {
    t, err := time.Parse("2006-01-02", s)
    return err == nil && t.Format("2006-01-02") == s
}

// validSlotTime reports whether s is a time of day in zero-padded
// HH:MM form, matching slot template keys exactly.
func validSlotTime(s string) bool {
    t, err := time.Parse("15:04", s)
    return err == nil && t.Format("15:04") == s
}

// bookingResponse shapes a booking for clients, adding the composite
// slot id alongside the stored fields.
func bookingResponse(b model.Booking) echo.Map {
    out := echo.Map{
        "id":        b.ID,
        "userId":    b.UserID,
        "userName":  b.UserName,
        "userEmail": b.UserEmail,
        "userPhone": "",
        "date":      b.Date,
        "slotId":    b.SlotID(),
        "slotTime":  b.SlotTime,
        "createdAt": b.CreatedAt,
        "status":    b.Status,
        "amount":    b.Amount,
    }
    if b.UserPhone != nil {
        out["userPhone"] = *b.UserPhone
    }
    if b.PaymentID != nil {
        out["paymentId"] = *b.PaymentID
    }
    if b.SlotDisplayTime != nil {
        out["slotDisplayTime"] = *b.SlotDisplayTime
    }
    if b.CancelledAt != nil {
        out["cancelledAt"] = *b.CancelledAt
    }
    return out
}

package handler

import (
    "database/sql"
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/rideronin/slot-booking/internal/middleware"
    "github.com/rideronin/slot-booking/internal/model"
    "github.com/rideronin/slot-booking/internal/repository"
    "github.com/rideronin/slot-booking/internal/service"
)

// BookingHandler serves the booking list, direct creation and
// cancellation routes.
type BookingHandler struct {
    Settlement *service.Settlement
    Bookings   *repository.BookingRepo
    Cache      *middleware.SlotCache
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(settlement *service.Settlement, bookings *repository.BookingRepo, cache *middleware.SlotCache) *BookingHandler {
    if settlement == nil || bookings == nil {
        panic("nil dependency passed to NewBookingHandler")
    }
    return &BookingHandler{Settlement: settlement, Bookings: bookings, Cache: cache}
}

// List handles GET /v1/bookings. Administrators see every booking;
// regular users see only their own. An admin can narrow the view to
// their personal bookings with ?mine=true.
func (h *BookingHandler) List(c echo.Context) error {
    ident := middleware.CurrentIdentity(c)
    mine := c.QueryParam("mine") == "true"

    var (
        bookings []model.Booking
        err      error
    )
    if middleware.IsAdmin(c) && !mine {
        bookings, err = h.Bookings.ListAll(c.Request().Context())
    } else {
        if !ident.IsUser() {
            return c.JSON(http.StatusOK, echo.Map{"bookings": []echo.Map{}})
        }
        bookings, err = h.Bookings.ListByUser(c.Request().Context(), ident.UserID)
    }
    if err != nil {
        c.Logger().Errorf("list bookings failed: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
    }

    out := make([]echo.Map, 0, len(bookings))
    for _, b := range bookings {
        out = append(out, bookingResponse(b))
    }
    return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}

// Create handles POST /v1/bookings: a direct reservation with no
// gateway settlement attached.
func (h *BookingHandler) Create(c echo.Context) error {
    var body struct {
        Date            string  `json:"date"`
        SlotTime        string  `json:"slotTime"`
        SlotDisplayTime *string `json:"slotDisplayTime"`
        PaymentID       *string `json:"paymentId"`
        Amount          int64   `json:"amount"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.Date == "" || body.SlotTime == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "date and slotTime are required"})
    }
    if !validDate(body.Date) || !validSlotTime(body.SlotTime) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date or slot time"})
    }
    if body.Amount < 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid amount"})
    }

    booking, err := h.Settlement.CreateBooking(c.Request().Context(), service.BookingInput{
        Date:            body.Date,
        SlotTime:        body.SlotTime,
        SlotDisplayTime: body.SlotDisplayTime,
        PaymentID:       body.PaymentID,
        Amount:          body.Amount,
        Profile:         middleware.CurrentProfile(c),
    })
    if err != nil {
        switch {
        case errors.Is(err, service.ErrSlotFull):
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "slot is fully booked"})
        case errors.Is(err, service.ErrDuplicateBooking):
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "you already have a booking for this slot"})
        }
        c.Logger().Errorf("create booking failed: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create booking"})
    }
    if h.Cache != nil {
        h.Cache.Invalidate(c.Request().Context(), booking.Date)
    }
    return c.JSON(http.StatusCreated, bookingResponse(booking))
}

// Cancel handles PATCH /v1/bookings/:id/cancel. The owner may cancel
// up to the configured lead time before the slot; administrators may
// cancel any booking at any time.
func (h *BookingHandler) Cancel(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }

    ident := middleware.CurrentIdentity(c)
    err = h.Settlement.Cancel(c.Request().Context(), id, ident.UserID, middleware.IsAdmin(c))
    if err != nil {
        switch {
        case errors.Is(err, sql.ErrNoRows):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
        case errors.Is(err, service.ErrForbidden):
            return c.JSON(http.StatusForbidden, echo.Map{"error": "you cannot cancel this booking"})
        case errors.Is(err, service.ErrTooCloseToSlotTime):
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "too close to the slot time to cancel"})
        }
        c.Logger().Errorf("cancel booking %d failed: %v", id, err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel booking"})
    }

    if h.Cache != nil {
        if b, err := h.Bookings.GetByID(c.Request().Context(), id); err == nil {
            h.Cache.Invalidate(c.Request().Context(), b.Date)
        }
    }
    return c.JSON(http.StatusOK, echo.Map{"success": true})
}

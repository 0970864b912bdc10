package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/rideronin/slot-booking/internal/middleware"
    "github.com/rideronin/slot-booking/internal/model"
    "github.com/rideronin/slot-booking/internal/repository"
    "github.com/rideronin/slot-booking/internal/service"
)

// SlotHandler serves the public availability projection and the
// admin-only per-date capacity overrides.
type SlotHandler struct {
    Capacity *service.CapacityResolver
    Slots    *repository.SlotRepo
    Cache    *middleware.SlotCache
}

// NewSlotHandler constructs a SlotHandler.
func NewSlotHandler(capacity *service.CapacityResolver, slots *repository.SlotRepo, cache *middleware.SlotCache) *SlotHandler {
    if capacity == nil || slots == nil {
        panic("nil dependency passed to NewSlotHandler")
    }
    return &SlotHandler{Capacity: capacity, Slots: slots, Cache: cache}
}

// GetDay handles GET /v1/slots/:date. Public; the response carries
// every slot for the date with its effective capacity and confirmed
// booking count.
func (h *SlotHandler) GetDay(c echo.Context) error {
    date := c.Param("date")
    if !validDate(date) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date"})
    }
    slots, err := h.Capacity.DaySlots(c.Request().Context(), date)
    if err != nil {
        c.Logger().Errorf("day slots failed for %s: %v", date, err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load slots"})
    }
    return c.JSON(http.StatusOK, echo.Map{"date": date, "slots": slots})
}

// UpsertOverride handles PUT /v1/slots/:date/:time (admin). It sets or
// replaces the capacity override for one slot on one date. Capacity
// zero closes the slot for that date.
func (h *SlotHandler) UpsertOverride(c echo.Context) error {
    date := c.Param("date")
    slotTime := c.Param("time")
    if !validDate(date) || !validSlotTime(slotTime) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date or slot time"})
    }

    var body struct {
        Capacity *int `json:"capacity"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.Capacity == nil || *body.Capacity < 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity must be a non-negative number"})
    }

    override := model.DateSlotOverride{Date: date, Time: slotTime, Capacity: *body.Capacity}
    if err := h.Slots.UpsertOverride(c.Request().Context(), override); err != nil {
        c.Logger().Errorf("upsert override failed for %s %s: %v", date, slotTime, err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to save override"})
    }
    if h.Cache != nil {
        h.Cache.Invalidate(c.Request().Context(), date)
    }
    return c.JSON(http.StatusOK, echo.Map{"date": date, "time": slotTime, "capacity": *body.Capacity})
}

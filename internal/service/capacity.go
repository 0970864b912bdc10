// Package service holds the booking domain logic: capacity
// resolution, the payment-settlement state machine, cancellation and
// manual refund reconciliation. Handlers stay thin; everything with
// an invariant lives here.
package service

import (
    "context"
    "log"

    "github.com/rideronin/slot-booking/internal/model"
)

// SlotSource provides the schedule data capacity resolution reads:
// global templates and per-date overrides. Implemented by
// repository.SlotRepo.
type SlotSource interface {
    ListTemplates(ctx context.Context) ([]model.SlotTemplate, error)
    GetOverride(ctx context.Context, date, slotTime string) (int, bool, error)
    ListOverridesByDate(ctx context.Context, date string) (map[string]int, error)
}

// BookingCounter exposes the confirmed-booking counts capacity
// decisions compare against. Implemented by repository.BookingRepo.
type BookingCounter interface {
    CountConfirmed(ctx context.Context, date, slotTime string) (int, error)
    ConfirmedCountsByDate(ctx context.Context, date string) (map[string]int, error)
}

// CapacityResolver computes the effective capacity of a slot on a
// date: an override beats the template, which beats the hard default.
type CapacityResolver struct {
    slots    SlotSource
    bookings BookingCounter
}

// NewCapacityResolver returns a CapacityResolver over the given
// sources.
func NewCapacityResolver(slots SlotSource, bookings BookingCounter) *CapacityResolver {
    return &CapacityResolver{slots: slots, bookings: bookings}
}

// EffectiveCapacity resolves the capacity for (date, slotTime). It
// never fails: absent data and read errors both degrade to the
// default, so a schedule-store outage can only make a slot look
// default-sized, never unbookable.
func (r *CapacityResolver) EffectiveCapacity(ctx context.Context, date, slotTime string) int {
    capacity, found, err := r.slots.GetOverride(ctx, date, slotTime)
    if err != nil {
        log.Printf("capacity: override lookup failed for %s %s: %v", date, slotTime, err)
    } else if found {
        return capacity
    }
    templates, err := r.slots.ListTemplates(ctx)
    if err != nil {
        log.Printf("capacity: template lookup failed: %v", err)
        return model.DefaultCapacity
    }
    for _, t := range templates {
        if t.Time == slotTime {
            return t.Capacity
        }
    }
    return model.DefaultCapacity
}

// ConfirmedCount returns the number of confirmed bookings currently
// held for the slot.
func (r *CapacityResolver) ConfirmedCount(ctx context.Context, date, slotTime string) (int, error) {
    return r.bookings.CountConfirmed(ctx, date, slotTime)
}

// DaySlots projects effective capacity and booked counts over every
// template slot for one date. When no templates are configured the
// built-in default schedule is used so the calendar is never empty.
func (r *CapacityResolver) DaySlots(ctx context.Context, date string) ([]model.Slot, error) {
    templates, err := r.slots.ListTemplates(ctx)
    if err != nil {
        return nil, err
    }
    if len(templates) == 0 {
        templates = model.DefaultTemplates()
    }
    overrides, err := r.slots.ListOverridesByDate(ctx, date)
    if err != nil {
        return nil, err
    }
    booked, err := r.bookings.ConfirmedCountsByDate(ctx, date)
    if err != nil {
        return nil, err
    }
    out := make([]model.Slot, 0, len(templates))
    for _, t := range templates {
        capacity := t.Capacity
        if v, ok := overrides[t.Time]; ok {
            capacity = v
        }
        out = append(out, model.Slot{
            ID:          date + "-" + t.Time,
            Time:        t.Time,
            DisplayTime: t.DisplayTime,
            Capacity:    capacity,
            Booked:      booked[t.Time],
        })
    }
    return out, nil
}

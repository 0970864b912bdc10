package model

// DefaultCapacity is the hard fallback used when neither a per-date
// override nor a template row defines a capacity for a slot.
const DefaultCapacity = 2

// SlotTemplate is the recurring default schedule for a time of day,
// independent of date. Rows are unique on Time and ordered by
// SortOrder for display.
//
// Fields:
//  ID          – primary key identifier.
//  Time        – slot time in HH:MM form (unique).
//  DisplayTime – human-readable label, e.g. "9:00 AM".
//  Capacity    – default number of concurrent bookings for this time.
//  SortOrder   – display ordering.
type SlotTemplate struct {
    ID          uint64 `json:"id"`
    Time        string `json:"time"`
    DisplayTime string `json:"displayTime"`
    Capacity    int    `json:"capacity"`
    SortOrder   int    `json:"sortOrder"`
}

// DateSlotOverride supersedes a template's capacity for one specific
// date. Rows are unique on (Date, Time); absence means "use the
// template capacity".
type DateSlotOverride struct {
    Date     string `json:"date"`
    Time     string `json:"time"`
    Capacity int    `json:"capacity"`
}

// Slot is the availability projection returned for a single date. It
// combines the effective capacity with the current confirmed-booking
// count so clients can render remaining availability.
type Slot struct {
    ID          string `json:"id"`
    Time        string `json:"time"`
    DisplayTime string `json:"displayTime"`
    Capacity    int    `json:"capacity"`
    Booked      int    `json:"booked"`
}

// DefaultTemplates returns the built-in hourly schedule used when no
// templates have been configured yet. It also seeds the slot_templates
// table on first-run initialization.
func DefaultTemplates() []SlotTemplate {
    times := []struct {
        t, d string
    }{
        {"09:00", "9:00 AM"}, {"10:00", "10:00 AM"}, {"11:00", "11:00 AM"},
        {"12:00", "12:00 PM"}, {"13:00", "1:00 PM"}, {"14:00", "2:00 PM"},
        {"15:00", "3:00 PM"}, {"16:00", "4:00 PM"}, {"17:00", "5:00 PM"},
        {"18:00", "6:00 PM"},
    }
    out := make([]SlotTemplate, 0, len(times))
    for i, s := range times {
        out = append(out, SlotTemplate{
            Time:        s.t,
            DisplayTime: s.d,
            Capacity:    DefaultCapacity,
            SortOrder:   i + 1,
        })
    }
    return out
}

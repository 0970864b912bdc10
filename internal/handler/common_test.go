package handler

import "testing"

func TestValidDate(t *testing.T) {
    valid := []string{"2026-10-01", "2026-01-31", "2024-02-29"}
    for _, s := range valid {
        if !validDate(s) {
            t.Errorf("expected %q to be valid", s)
        }
    }
    invalid := []string{
        "", "2026-1-1", "2026-10-1", "26-10-01", // unpadded or short forms
        "2026-13-01", "2026-02-30", // impossible dates
        "2026/10/01", "not-a-date",
    }
    for _, s := range invalid {
        if validDate(s) {
            t.Errorf("expected %q to be rejected", s)
        }
    }
}

func TestValidSlotTime(t *testing.T) {
    valid := []string{"09:00", "00:00", "23:59", "18:30"}
    for _, s := range valid {
        if !validSlotTime(s) {
            t.Errorf("expected %q to be valid", s)
        }
    }
    // Unpadded hours parse but would never match a zero-padded
    // template key, silently resolving to default capacity under a
    // distinct slot id. They must be rejected outright.
    invalid := []string{"", "9:00", "09:0", "24:00", "09:60", "0900", "nine"}
    for _, s := range invalid {
        if validSlotTime(s) {
            t.Errorf("expected %q to be rejected", s)
        }
    }
}

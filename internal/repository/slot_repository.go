package repository

import (
    "context"
    "database/sql"

    "github.com/rideronin/slot-booking/internal/model"
)

// SlotRepo provides access to the slot schedule: the global
// slot_templates table and the per-date date_slot_overrides table.
type SlotRepo struct {
    db *sql.DB
}

// NewSlotRepo returns a SlotRepo bound to the given database.
func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{db: db} }

// ListTemplates returns all slot templates ordered by sort_order.
func (r *SlotRepo) ListTemplates(ctx context.Context) ([]model.SlotTemplate, error) {
    const q = `SELECT id, time, display_time, capacity, sort_order
               FROM slot_templates ORDER BY sort_order ASC`
    rows, err := r.db.QueryContext(ctx, q)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.SlotTemplate, 0)
    for rows.Next() {
        var t model.SlotTemplate
        if err := rows.Scan(&t.ID, &t.Time, &t.DisplayTime, &t.Capacity, &t.SortOrder); err != nil {
            return nil, err
        }
        out = append(out, t)
    }
    return out, rows.Err()
}

// CreateTemplate inserts a new template and populates its generated
// ID. A template reusing an existing time fails with ErrDuplicate.
func (r *SlotRepo) CreateTemplate(ctx context.Context, t *model.SlotTemplate) error {
    const q = `INSERT INTO slot_templates (time, display_time, capacity, sort_order)
               VALUES (?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, q, t.Time, t.DisplayTime, t.Capacity, t.SortOrder)
    if err != nil {
        if isDuplicateKey(err) {
            return ErrDuplicate
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    t.ID = uint64(id)
    return nil
}

// MaxSortOrder returns the highest sort_order in use, or -1 when no
// templates exist. New templates default to MaxSortOrder()+1.
func (r *SlotRepo) MaxSortOrder(ctx context.Context) (int, error) {
    const q = `SELECT COALESCE(MAX(sort_order), -1) FROM slot_templates`
    var max int
    err := r.db.QueryRowContext(ctx, q).Scan(&max)
    return max, err
}

// DeleteTemplate removes the template for a time along with every
// per-date override for that time, in one transaction. Overrides
// cannot outlive their template.
func (r *SlotRepo) DeleteTemplate(ctx context.Context, slotTime string) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if _, err := tx.ExecContext(ctx, `DELETE FROM date_slot_overrides WHERE time = ?`, slotTime); err != nil {
        return err
    }
    if _, err := tx.ExecContext(ctx, `DELETE FROM slot_templates WHERE time = ?`, slotTime); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// GetOverride returns the override capacity for (date, time). The
// second return value reports whether an override exists.
func (r *SlotRepo) GetOverride(ctx context.Context, date, slotTime string) (int, bool, error) {
    const q = `SELECT capacity FROM date_slot_overrides WHERE date = ? AND time = ?`
    var capacity int
    err := r.db.QueryRowContext(ctx, q, date, slotTime).Scan(&capacity)
    if err == sql.ErrNoRows {
        return 0, false, nil
    }
    if err != nil {
        return 0, false, err
    }
    return capacity, true, nil
}

// ListOverridesByDate returns all override capacities for a date,
// keyed by slot time.
func (r *SlotRepo) ListOverridesByDate(ctx context.Context, date string) (map[string]int, error) {
    const q = `SELECT time, capacity FROM date_slot_overrides WHERE date = ?`
    rows, err := r.db.QueryContext(ctx, q, date)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make(map[string]int)
    for rows.Next() {
        var t string
        var capacity int
        if err := rows.Scan(&t, &capacity); err != nil {
            return nil, err
        }
        out[t] = capacity
    }
    return out, rows.Err()
}

// UpsertOverride creates or replaces the capacity override for
// (date, time).
func (r *SlotRepo) UpsertOverride(ctx context.Context, o model.DateSlotOverride) error {
    const q = `INSERT INTO date_slot_overrides (date, time, capacity)
               VALUES (?, ?, ?)
               ON DUPLICATE KEY UPDATE capacity = VALUES(capacity)`
    _, err := r.db.ExecContext(ctx, q, o.Date, o.Time, o.Capacity)
    return err
}

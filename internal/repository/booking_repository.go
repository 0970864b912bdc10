package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/rideronin/slot-booking/internal/model"
)

// BookingRepo is the booking ledger: append/update access to the
// `bookings` table. All timestamps are stored in UTC. The guarded
// insert re-checks capacity and duplicates inside a transaction so
// that concurrent settlements for the same slot resolve
// deterministically at the storage layer.
type BookingRepo struct {
    db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, user_id, date, slot_time, slot_display_time, status,
       payment_id, amount, user_name, user_email, user_phone, created_at, cancelled_at`

func scanBooking(row interface {
    Scan(dest ...interface{}) error
}) (model.Booking, error) {
    var b model.Booking
    var displayTime, paymentID, phone sql.NullString
    var cancelledAt sql.NullTime
    err := row.Scan(&b.ID, &b.UserID, &b.Date, &b.SlotTime, &displayTime, &b.Status,
        &paymentID, &b.Amount, &b.UserName, &b.UserEmail, &phone, &b.CreatedAt, &cancelledAt)
    if err != nil {
        return model.Booking{}, err
    }
    if displayTime.Valid {
        v := displayTime.String
        b.SlotDisplayTime = &v
    }
    if paymentID.Valid {
        v := paymentID.String
        b.PaymentID = &v
    }
    if phone.Valid {
        v := phone.String
        b.UserPhone = &v
    }
    if cancelledAt.Valid {
        v := cancelledAt.Time
        b.CancelledAt = &v
    }
    return b, nil
}

// InsertConfirmed atomically admits one more confirmed booking for the
// slot identified by b.Date and b.SlotTime, given the effective
// capacity resolved by the caller. The count and duplicate checks run
// inside the same transaction as the insert with the slot's confirmed
// rows locked, so a concurrent settlement that loses the race fails
// with ErrSlotFull or ErrDuplicate rather than over-admitting. On
// success the generated ID and timestamps are populated on b.
func (r *BookingRepo) InsertConfirmed(ctx context.Context, b *model.Booking, capacity int) error {
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

    // Lock the slot's confirmed rows; with REPEATABLE READ the range
    // lock also blocks concurrent inserts for the same key until commit.
    const countQ = `SELECT COUNT(*) FROM bookings
                    WHERE date = ? AND slot_time = ? AND status = ? FOR UPDATE`
    var count int
    if err := tx.QueryRowContext(ctx, countQ, b.Date, b.SlotTime, model.StatusConfirmed).Scan(&count); err != nil {
        return err
    }
    if count >= capacity {
        return ErrSlotFull
    }

    const dupQ = `SELECT COUNT(*) FROM bookings
                  WHERE date = ? AND slot_time = ? AND user_id = ? AND status = ? FOR UPDATE`
    var dup int
    if err := tx.QueryRowContext(ctx, dupQ, b.Date, b.SlotTime, b.UserID, model.StatusConfirmed).Scan(&dup); err != nil {
        return err
    }
    if dup > 0 {
        return ErrDuplicate
    }

    const ins = `INSERT INTO bookings
                 (user_id, date, slot_time, slot_display_time, status, payment_id, amount, user_name, user_email, user_phone)
                 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    res, err := tx.ExecContext(ctx, ins,
        b.UserID, b.Date, b.SlotTime, b.SlotDisplayTime, model.StatusConfirmed,
        b.PaymentID, b.Amount, b.UserName, b.UserEmail, b.UserPhone)
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
    // Query back the full row to populate timestamps and defaults.
    const sel = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
    stored, err := scanBooking(tx.QueryRowContext(ctx, sel, id))
    if err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    *b = stored
    return nil
}

// InsertRefundPending records the refund obligation for a payment
// whose admission failed. It is a plain insert: by the time it runs,
// money has already moved, so there is nothing to race against.
func (r *BookingRepo) InsertRefundPending(ctx context.Context, b *model.Booking) error {
    const ins = `INSERT INTO bookings
                 (user_id, date, slot_time, slot_display_time, status, payment_id, amount, user_name, user_email, user_phone)
                 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, ins,
        b.UserID, b.Date, b.SlotTime, b.SlotDisplayTime, model.StatusRefundPending,
        b.PaymentID, b.Amount, b.UserName, b.UserEmail, b.UserPhone)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    b.ID = uint64(id)
    b.Status = model.StatusRefundPending
    return nil
}

// CountConfirmed returns the number of confirmed bookings for a slot
// on a date.
func (r *BookingRepo) CountConfirmed(ctx context.Context, date, slotTime string) (int, error) {
    const q = `SELECT COUNT(*) FROM bookings WHERE date = ? AND slot_time = ? AND status = ?`
    var n int
    err := r.db.QueryRowContext(ctx, q, date, slotTime, model.StatusConfirmed).Scan(&n)
    return n, err
}

// HasConfirmed reports whether the user already holds a confirmed
// booking for the slot.
func (r *BookingRepo) HasConfirmed(ctx context.Context, date, slotTime, userID string) (bool, error) {
    const q = `SELECT COUNT(*) FROM bookings
               WHERE date = ? AND slot_time = ? AND user_id = ? AND status = ?`
    var n int
    if err := r.db.QueryRowContext(ctx, q, date, slotTime, userID, model.StatusConfirmed).Scan(&n); err != nil {
        return false, err
    }
    return n > 0, nil
}

// ConfirmedCountsByDate returns confirmed-booking counts keyed by slot
// time for one date. Used to build the availability projection in a
// single query.
func (r *BookingRepo) ConfirmedCountsByDate(ctx context.Context, date string) (map[string]int, error) {
    const q = `SELECT slot_time, COUNT(*) FROM bookings
               WHERE date = ? AND status = ? GROUP BY slot_time`
    rows, err := r.db.QueryContext(ctx, q, date, model.StatusConfirmed)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    counts := make(map[string]int)
    for rows.Next() {
        var t string
        var n int
        if err := rows.Scan(&t, &n); err != nil {
            return nil, err
        }
        counts[t] = n
    }
    return counts, rows.Err()
}

// GetByID returns a single booking. sql.ErrNoRows is returned when it
// does not exist.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
    const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
    return scanBooking(r.db.QueryRowContext(ctx, q, id))
}

// GetByPaymentAndUser looks up the booking funded by a payment,
// restricted to the given user so that callers can only reach their
// own payments. sql.ErrNoRows is returned when no such booking exists.
func (r *BookingRepo) GetByPaymentAndUser(ctx context.Context, paymentID, userID string) (model.Booking, error) {
    const q = `SELECT ` + bookingColumns + ` FROM bookings
               WHERE payment_id = ? AND user_id = ? LIMIT 1`
    return scanBooking(r.db.QueryRowContext(ctx, q, paymentID, userID))
}

// ListByUser returns the user's bookings, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID string) ([]model.Booking, error) {
    const q = `SELECT ` + bookingColumns + ` FROM bookings
               WHERE user_id = ? ORDER BY created_at DESC`
    return r.list(ctx, q, userID)
}

// ListAll returns every booking, newest first. Admin only.
func (r *BookingRepo) ListAll(ctx context.Context) ([]model.Booking, error) {
    const q = `SELECT ` + bookingColumns + ` FROM bookings ORDER BY created_at DESC`
    return r.list(ctx, q)
}

func (r *BookingRepo) list(ctx context.Context, query string, args ...interface{}) ([]model.Booking, error) {
    rows, err := r.db.QueryContext(ctx, query, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Booking, 0)
    for rows.Next() {
        b, err := scanBooking(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, b)
    }
    return out, rows.Err()
}

// MarkCancelled transitions a booking to cancelled and records the
// cancellation time.
func (r *BookingRepo) MarkCancelled(ctx context.Context, id uint64, at time.Time) error {
    const q = `UPDATE bookings SET status = ?, cancelled_at = ? WHERE id = ?`
    _, err := r.db.ExecContext(ctx, q, model.StatusCancelled, at.UTC(), id)
    return err
}

// MarkRefundPending transitions a booking to refund_pending and
// stores the refund-scoped payment identifier returned by the gateway.
func (r *BookingRepo) MarkRefundPending(ctx context.Context, id uint64, paymentID string) error {
    const q = `UPDATE bookings SET status = ?, payment_id = ? WHERE id = ?`
    _, err := r.db.ExecContext(ctx, q, model.StatusRefundPending, paymentID, id)
    return err
}

// FindStaleRefundPending returns refund_pending bookings created
// before the cutoff. There is no automatic retry loop for failed
// refund calls; this query exists so an operator or external job can
// reconcile rows whose gateway refund may never have gone through.
func (r *BookingRepo) FindStaleRefundPending(ctx context.Context, before time.Time) ([]model.Booking, error) {
    const q = `SELECT ` + bookingColumns + ` FROM bookings
               WHERE status = ? AND created_at < ? ORDER BY created_at`
    return r.list(ctx, q, model.StatusRefundPending, before.UTC())
}

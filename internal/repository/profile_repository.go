package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/rideronin/slot-booking/internal/model"
)

// ProfileRepo provides access to the `profiles` table. Profiles are
// keyed by the identity provider's user id and created lazily on the
// first authenticated request.
type ProfileRepo struct {
    db *sql.DB
}

// NewProfileRepo returns a ProfileRepo bound to the given database.
func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{db: db} }

// Get fetches a profile by user id. sql.ErrNoRows is returned when no
// profile exists yet.
func (r *ProfileRepo) Get(ctx context.Context, id string) (model.Profile, error) {
    const q = `SELECT id, name, email, phone, is_admin FROM profiles WHERE id = ?`
    var p model.Profile
    var phone sql.NullString
    err := r.db.QueryRowContext(ctx, q, id).Scan(&p.ID, &p.Name, &p.Email, &phone, &p.IsAdmin)
    if err != nil {
        return model.Profile{}, err
    }
    p.Phone = phone.String
    return p, nil
}

// Create inserts a new profile row. A concurrent first request may
// have won the race; duplicate inserts fail with ErrDuplicate and the
// caller should re-read.
func (r *ProfileRepo) Create(ctx context.Context, p model.Profile) error {
    const q = `INSERT INTO profiles (id, name, email, phone, is_admin) VALUES (?, ?, ?, ?, ?)`
    var phone interface{}
    if p.Phone != "" {
        phone = p.Phone
    }
    _, err := r.db.ExecContext(ctx, q, p.ID, p.Name, p.Email, phone, p.IsAdmin)
    if err != nil && isDuplicateKey(err) {
        return ErrDuplicate
    }
    return err
}

// Update applies owner-editable fields (name, phone) and returns the
// stored profile. Nil fields are left untouched.
func (r *ProfileRepo) Update(ctx context.Context, id string, name, phone *string) (model.Profile, error) {
    sets := make([]string, 0, 2)
    args := make([]interface{}, 0, 3)
    if name != nil {
        sets = append(sets, "name = ?")
        args = append(args, *name)
    }
    if phone != nil {
        sets = append(sets, "phone = ?")
        args = append(args, *phone)
    }
    if len(sets) > 0 {
        args = append(args, id)
        q := `UPDATE profiles SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
        if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
            return model.Profile{}, err
        }
    }
    return r.Get(ctx, id)
}

// PromoteAdmin sets the is_admin flag for the profile with the given
// email. It reports whether a row was updated.
func (r *ProfileRepo) PromoteAdmin(ctx context.Context, email string) (bool, error) {
    const q = `UPDATE profiles SET is_admin = TRUE WHERE email = ?`
    res, err := r.db.ExecContext(ctx, q, email)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    return n > 0, err
}

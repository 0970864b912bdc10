// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// settlement service and handlers to distinguish between different
// failure scenarios without inspecting driver-specific error text.
package repository

import (
    "errors"

    "github.com/go-sql-driver/mysql"
)

// ErrSlotFull is returned by the guarded confirmed-booking insert
// when the slot's effective capacity has already been reached. Under
// concurrent settlements the losing insert fails with this error
// instead of over-admitting.
var ErrSlotFull = errors.New("slot full")

// ErrDuplicate is returned when an insert violates a uniqueness
// constraint: a second confirmed booking for the same user and slot,
// or a slot template reusing an existing time.
var ErrDuplicate = errors.New("duplicate record")

// isDuplicateKey reports whether err is a MySQL duplicate-key
// violation (error 1062).
func isDuplicateKey(err error) bool {
    var me *mysql.MySQLError
    return errors.As(err, &me) && me.Number == 1062
}

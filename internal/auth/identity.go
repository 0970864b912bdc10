// Package auth resolves bearer credentials into a tagged identity and
// mints the admin tokens used by the back-office endpoints. User
// tokens are issued by an external identity provider and only
// verified here; admin tokens are local.
package auth

// Identity is the tagged result of credential resolution. Exactly one
// variant is populated: a user identity carries the provider's user
// id plus contact metadata, while an admin identity has Admin set and
// no user id. Downstream authorization checks consume this uniformly
// instead of branching on token shape.
type Identity struct {
    UserID string
    Email  string
    Name   string
    Phone  string
    Admin  bool
}

// IsUser reports whether the identity belongs to an authenticated
// end user (as opposed to a pure admin token).
func (id Identity) IsUser() bool { return id.UserID != "" }

package model

// Profile holds the contact details attached to an authenticated
// identity. A profile is created lazily on a user's first
// authenticated request; the ID is the identity provider's user id.
// Name and Phone are mutated by the owner, IsAdmin is set out of band.
type Profile struct {
    ID      string `json:"id"`
    Name    string `json:"name"`
    Email   string `json:"email"`
    Phone   string `json:"phone"`
    IsAdmin bool   `json:"isAdmin"`
}

package middleware // middleware provides shared request processing for handlers

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/rideronin/slot-booking/internal/auth"
)

// Context keys under which the resolved identity and loaded profile
// are stored for handlers.
const (
    identityKey = "identity"
    profileKey  = "profile"
)

// Authenticate returns middleware that resolves the Authorization
// bearer credential into a tagged auth.Identity. A token is first
// checked against the external user verifier; when that fails it is
// checked as a locally issued admin token. Requests carrying neither
// are rejected with 401. Handlers read the result via
// CurrentIdentity.
func Authenticate(verifier auth.Verifier, adminSecret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            header := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(header, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimPrefix(header, "Bearer ")

            if ident, err := verifier.VerifyBearerToken(raw); err == nil {
                c.Set(identityKey, ident)
                return next(c)
            }
            if auth.VerifyAdminToken(adminSecret, raw) {
                c.Set(identityKey, auth.Identity{Admin: true})
                return next(c)
            }
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
        }
    }
}

// RequireUser rejects requests whose identity is not an end user.
// Admin tokens carry no user id and cannot own bookings or payments.
func RequireUser() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !CurrentIdentity(c).IsUser() {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "user account required"})
            }
            return next(c)
        }
    }
}

// RequireAdmin rejects requests without administrator capability.
// Capability comes either from an admin token or from a user profile
// flagged is_admin, so it must run after Authenticate and LoadProfile.
func RequireAdmin() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !IsAdmin(c) {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "admin required"})
            }
            return next(c)
        }
    }
}

// CurrentIdentity returns the identity resolved by Authenticate, or
// the zero Identity when the request is unauthenticated.
func CurrentIdentity(c echo.Context) auth.Identity {
    if v, ok := c.Get(identityKey).(auth.Identity); ok {
        return v
    }
    return auth.Identity{}
}

// IsAdmin reports whether the request carries administrator
// capability via either an admin token or an is_admin profile.
func IsAdmin(c echo.Context) bool {
    if CurrentIdentity(c).Admin {
        return true
    }
    return CurrentProfile(c).IsAdmin
}

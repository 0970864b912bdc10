package middleware

import (
    "database/sql"
    "errors"
    "log"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/rideronin/slot-booking/internal/auth"
    "github.com/rideronin/slot-booking/internal/model"
    "github.com/rideronin/slot-booking/internal/repository"
)

// LoadProfile returns middleware that attaches the stored profile for
// user identities, creating it on first authenticated access. Pure
// admin-token requests pass through without a profile. A storage
// failure degrades to a profile synthesized from the token's claims
// rather than failing the request.
func LoadProfile(profiles *repository.ProfileRepo) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            ident := CurrentIdentity(c)
            if !ident.IsUser() {
                return next(c)
            }
            ctx := c.Request().Context()
            p, err := profiles.Get(ctx, ident.UserID)
            if errors.Is(err, sql.ErrNoRows) {
                p = profileFromIdentity(ident)
                if createErr := profiles.Create(ctx, p); createErr != nil {
                    if errors.Is(createErr, repository.ErrDuplicate) {
                        // Concurrent first request won; read theirs.
                        if stored, getErr := profiles.Get(ctx, ident.UserID); getErr == nil {
                            p = stored
                        }
                    } else {
                        log.Printf("profile: lazy create failed for %s: %v", ident.UserID, createErr)
                    }
                }
            } else if err != nil {
                log.Printf("profile: load failed for %s: %v", ident.UserID, err)
                p = profileFromIdentity(ident)
            }
            if p.Email == "" {
                p.Email = ident.Email
            }
            c.Set(profileKey, p)
            return next(c)
        }
    }
}

// CurrentProfile returns the profile attached by LoadProfile, or the
// zero Profile when none was loaded.
func CurrentProfile(c echo.Context) model.Profile {
    if v, ok := c.Get(profileKey).(model.Profile); ok {
        return v
    }
    return model.Profile{}
}

func profileFromIdentity(ident auth.Identity) model.Profile {
    name := ident.Name
    if name == "" {
        if at := strings.Index(ident.Email, "@"); at > 0 {
            name = ident.Email[:at]
        } else {
            name = "User"
        }
    }
    return model.Profile{
        ID:    ident.UserID,
        Name:  name,
        Email: ident.Email,
        Phone: ident.Phone,
    }
}

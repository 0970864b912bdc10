package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/rideronin/slot-booking/internal/middleware"
    "github.com/rideronin/slot-booking/internal/repository"
)

// ProfileHandler serves the authenticated user's own profile.
type ProfileHandler struct {
    Profiles *repository.ProfileRepo
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(profiles *repository.ProfileRepo) *ProfileHandler {
    if profiles == nil {
        panic("nil dependency passed to NewProfileHandler")
    }
    return &ProfileHandler{Profiles: profiles}
}

// Me handles GET /v1/auth/me, returning the profile LoadProfile
// attached to the request.
func (h *ProfileHandler) Me(c echo.Context) error {
    return c.JSON(http.StatusOK, middleware.CurrentProfile(c))
}

// UpdateMe handles PATCH /v1/auth/me. Only name and phone are
// user-editable; omitted fields keep their stored values.
func (h *ProfileHandler) UpdateMe(c echo.Context) error {
    var body struct {
        Name  *string `json:"name"`
        Phone *string `json:"phone"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.Name == nil && body.Phone == nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
    }
    if body.Name != nil && *body.Name == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "name cannot be empty"})
    }

    ident := middleware.CurrentIdentity(c)
    updated, err := h.Profiles.Update(c.Request().Context(), ident.UserID, body.Name, body.Phone)
    if err != nil {
        c.Logger().Errorf("profile update failed for %s: %v", ident.UserID, err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update profile"})
    }
    return c.JSON(http.StatusOK, updated)
}

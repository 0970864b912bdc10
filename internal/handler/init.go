package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/rideronin/slot-booking/internal/config"
    "github.com/rideronin/slot-booking/internal/model"
    "github.com/rideronin/slot-booking/internal/repository"
)

// InitHandler seeds first-run data: the default slot schedule, and
// promotion of the configured admin email. Calling it repeatedly is
// harmless.
type InitHandler struct {
    Cfg      config.Config
    Slots    *repository.SlotRepo
    Profiles *repository.ProfileRepo
}

// NewInitHandler constructs an InitHandler.
func NewInitHandler(cfg config.Config, slots *repository.SlotRepo, profiles *repository.ProfileRepo) *InitHandler {
    if slots == nil || profiles == nil {
        panic("nil dependency passed to NewInitHandler")
    }
    return &InitHandler{Cfg: cfg, Slots: slots, Profiles: profiles}
}

// Init handles POST /v1/init.
func (h *InitHandler) Init(c echo.Context) error {
    ctx := c.Request().Context()

    templates, err := h.Slots.ListTemplates(ctx)
    if err != nil {
        c.Logger().Errorf("init: list templates failed: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "initialization failed"})
    }
    seeded := 0
    if len(templates) == 0 {
        for _, t := range model.DefaultTemplates() {
            tmpl := t
            if err := h.Slots.CreateTemplate(ctx, &tmpl); err != nil {
                if errors.Is(err, repository.ErrDuplicate) {
                    continue
                }
                c.Logger().Errorf("init: seed template %s failed: %v", t.Time, err)
                return c.JSON(http.StatusInternalServerError, echo.Map{"error": "initialization failed"})
            }
            seeded++
        }
    }

    promoted := false
    if h.Cfg.AdminEmail != "" {
        promoted, err = h.Profiles.PromoteAdmin(ctx, h.Cfg.AdminEmail)
        if err != nil {
            c.Logger().Errorf("init: promote admin failed: %v", err)
        }
    }
    return c.JSON(http.StatusOK, echo.Map{"ok": true, "seededTemplates": seeded, "adminPromoted": promoted})
}

package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/rideronin/slot-booking/internal/auth"
    "github.com/rideronin/slot-booking/internal/config"
    "github.com/rideronin/slot-booking/internal/model"
    "github.com/rideronin/slot-booking/internal/repository"
)

// AdminHandler serves back-office login and slot template management.
type AdminHandler struct {
    Cfg   config.Config
    Slots *repository.SlotRepo
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(cfg config.Config, slots *repository.SlotRepo) *AdminHandler {
    if slots == nil {
        panic("nil dependency passed to NewAdminHandler")
    }
    return &AdminHandler{Cfg: cfg, Slots: slots}
}

// Login handles POST /v1/admin/login. Credentials are checked against
// the configured username and bcrypt password hash; success issues a
// short-lived admin token. Deployments without a configured hash have
// admin login disabled.
func (h *AdminHandler) Login(c echo.Context) error {
    if h.Cfg.AdminPasswordHash == "" {
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "admin login is not configured"})
    }

    var body struct {
        Username string `json:"username"`
        Password string `json:"password"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.Username != h.Cfg.AdminUsername || !auth.CheckAdminPassword(h.Cfg.AdminPasswordHash, body.Password) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }

    token, err := auth.NewAdminToken(h.Cfg.AdminJWTSecret, h.Cfg.AdminTokenTTL)
    if err != nil {
        c.Logger().Errorf("admin token issue failed: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to issue token"})
    }
    return c.JSON(http.StatusOK, echo.Map{"token": token})
}

// ListTemplates handles GET /v1/admin/slot-templates.
func (h *AdminHandler) ListTemplates(c echo.Context) error {
    templates, err := h.Slots.ListTemplates(c.Request().Context())
    if err != nil {
        c.Logger().Errorf("list templates failed: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load slot templates"})
    }
    return c.JSON(http.StatusOK, echo.Map{"templates": templates})
}

// CreateTemplate handles POST /v1/admin/slot-templates. A template
// with no sortOrder is appended after the current last one.
func (h *AdminHandler) CreateTemplate(c echo.Context) error {
    var body struct {
        Time        string `json:"time"`
        DisplayTime string `json:"displayTime"`
        Capacity    *int   `json:"capacity"`
        SortOrder   *int   `json:"sortOrder"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if !validSlotTime(body.Time) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "time must be in HH:MM form"})
    }
    capacity := model.DefaultCapacity
    if body.Capacity != nil {
        if *body.Capacity < 0 {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity must be a non-negative number"})
        }
        capacity = *body.Capacity
    }
    display := body.DisplayTime
    if display == "" {
        display = body.Time
    }

    ctx := c.Request().Context()
    sortOrder := 0
    if body.SortOrder != nil {
        sortOrder = *body.SortOrder
    } else {
        max, err := h.Slots.MaxSortOrder(ctx)
        if err != nil {
            c.Logger().Errorf("max sort order failed: %v", err)
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create slot template"})
        }
        sortOrder = max + 1
    }

    t := model.SlotTemplate{Time: body.Time, DisplayTime: display, Capacity: capacity, SortOrder: sortOrder}
    if err := h.Slots.CreateTemplate(ctx, &t); err != nil {
        if errors.Is(err, repository.ErrDuplicate) {
            return c.JSON(http.StatusConflict, echo.Map{"error": "Slot time already exists"})
        }
        c.Logger().Errorf("create template failed: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create slot template"})
    }
    return c.JSON(http.StatusCreated, t)
}

// DeleteTemplate handles DELETE /v1/admin/slot-templates/:time. The
// template and every per-date override for its time are removed.
func (h *AdminHandler) DeleteTemplate(c echo.Context) error {
    slotTime := c.Param("time")
    if !validSlotTime(slotTime) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "time must be in HH:MM form"})
    }
    if err := h.Slots.DeleteTemplate(c.Request().Context(), slotTime); err != nil {
        c.Logger().Errorf("delete template %s failed: %v", slotTime, err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete slot template"})
    }
    return c.NoContent(http.StatusNoContent)
}

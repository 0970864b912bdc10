package handler

import (
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "golang.org/x/crypto/bcrypt"

    "github.com/rideronin/slot-booking/internal/auth"
    "github.com/rideronin/slot-booking/internal/config"
    "github.com/rideronin/slot-booking/internal/repository"
)

func loginRequest(t *testing.T, h *AdminHandler, body string) *httptest.ResponseRecorder {
    t.Helper()
    e := echo.New()
    req := httptest.NewRequest(http.MethodPost, "/v1/admin/login", strings.NewReader(body))
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    rec := httptest.NewRecorder()
    if err := h.Login(e.NewContext(req, rec)); err != nil {
        t.Fatalf("Login returned error: %v", err)
    }
    return rec
}

func TestAdminLogin(t *testing.T) {
    hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
    if err != nil {
        t.Fatalf("bcrypt hash failed: %v", err)
    }
    cfg := config.Config{
        AdminUsername:     "admin",
        AdminPasswordHash: string(hash),
        AdminJWTSecret:    "admin-secret",
        AdminTokenTTL:     time.Hour,
    }
    h := NewAdminHandler(cfg, repository.NewSlotRepo(nil))

    t.Run("valid credentials issue a verifiable token", func(t *testing.T) {
        rec := loginRequest(t, h, `{"username":"admin","password":"hunter2"}`)
        if rec.Code != http.StatusOK {
            t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
        }
        var body struct {
            Token string `json:"token"`
        }
        if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
            t.Fatalf("decode response: %v", err)
        }
        if !auth.VerifyAdminToken(cfg.AdminJWTSecret, body.Token) {
            t.Error("issued token does not verify")
        }
    })

    t.Run("wrong password rejected", func(t *testing.T) {
        rec := loginRequest(t, h, `{"username":"admin","password":"hunter3"}`)
        if rec.Code != http.StatusUnauthorized {
            t.Errorf("expected 401, got %d", rec.Code)
        }
    })

    t.Run("wrong username rejected", func(t *testing.T) {
        rec := loginRequest(t, h, `{"username":"root","password":"hunter2"}`)
        if rec.Code != http.StatusUnauthorized {
            t.Errorf("expected 401, got %d", rec.Code)
        }
    })

    t.Run("unconfigured hash disables login", func(t *testing.T) {
        disabled := NewAdminHandler(config.Config{AdminUsername: "admin"}, repository.NewSlotRepo(nil))
        rec := loginRequest(t, disabled, `{"username":"admin","password":"hunter2"}`)
        if rec.Code != http.StatusServiceUnavailable {
            t.Errorf("expected 503, got %d", rec.Code)
        }
    })
}

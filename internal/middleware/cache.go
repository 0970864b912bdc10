package middleware

import (
    "bytes"
    "context"
    "log"
    "net/http"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/rideronin/slot-booking/internal/config"
)

// SlotCache caches the availability projection for a date in Redis.
// Entries are short-lived and additionally invalidated by any write
// that changes a date's availability (settlement, booking, cancel,
// override upsert), so cached reads can be served safely while
// admission decisions always hit the database.
type SlotCache struct {
    cfg config.CacheConfig
    rdb *redis.Client
}

// NewSlotCache returns a SlotCache; rdb may be nil, which disables
// caching entirely.
func NewSlotCache(cfg config.CacheConfig, rdb *redis.Client) *SlotCache {
    return &SlotCache{cfg: cfg, rdb: rdb}
}

func (sc *SlotCache) enabled() bool { return sc.cfg.Enabled && sc.rdb != nil }

func (sc *SlotCache) key(date string) string { return sc.cfg.Prefix + ":" + date }

// Invalidate drops the cached projection for a date. Errors are
// logged only; a stale entry expires by TTL anyway.
func (sc *SlotCache) Invalidate(ctx context.Context, date string) {
    if !sc.enabled() {
        return
    }
    if err := sc.rdb.Del(ctx, sc.key(date)).Err(); err != nil {
        log.Printf("slotcache: invalidate %s failed: %v", date, err)
    }
}

// bodyCapture duplicates the response body while forwarding it to the
// client so a successful projection can be stored.
type bodyCapture struct {
    http.ResponseWriter
    status int
    buf    bytes.Buffer
}

func (w *bodyCapture) WriteHeader(code int) {
    w.status = code
    w.ResponseWriter.WriteHeader(code)
}

func (w *bodyCapture) Write(b []byte) (int, error) {
    w.buf.Write(b)
    return w.ResponseWriter.Write(b)
}

// Middleware serves the availability endpoint from Redis on a hit and
// stores successful responses on a miss. It keys by the :date path
// parameter.
func (sc *SlotCache) Middleware() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !sc.enabled() {
                return next(c)
            }
            date := c.Param("date")
            ctx := c.Request().Context()

            if body, err := sc.rdb.Get(ctx, sc.key(date)).Bytes(); err == nil {
                c.Response().Header().Set("X-Cache", "HIT")
                return c.JSONBlob(http.StatusOK, body)
            }

            cw := &bodyCapture{ResponseWriter: c.Response().Writer, status: http.StatusOK}
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")

            if err := next(c); err != nil {
                return err
            }
            if cw.status == http.StatusOK {
                if err := sc.rdb.Set(context.Background(), sc.key(date), cw.buf.Bytes(), sc.cfg.TTL).Err(); err != nil {
                    log.Printf("slotcache: store %s failed: %v", date, err)
                }
            }
            return nil
        }
    }
}

package main // Entry point package

import (
    "log"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"

    "github.com/rideronin/slot-booking/internal/auth"
    "github.com/rideronin/slot-booking/internal/config"
    "github.com/rideronin/slot-booking/internal/database"
    "github.com/rideronin/slot-booking/internal/handler"
    "github.com/rideronin/slot-booking/internal/middleware"
    "github.com/rideronin/slot-booking/internal/notify"
    "github.com/rideronin/slot-booking/internal/payment"
    "github.com/rideronin/slot-booking/internal/repository"
    "github.com/rideronin/slot-booking/internal/router"
    "github.com/rideronin/slot-booking/internal/service"
)

func main() {
    _ = godotenv.Load() // .env is optional; real env always wins
    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()

    rdb := config.NewRedisClient() // nil when Redis is unavailable

    bookings := repository.NewBookingRepo(db)
    slots := repository.NewSlotRepo(db)
    profiles := repository.NewProfileRepo(db)

    gateway := payment.NewClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
    capacity := service.NewCapacityResolver(slots, bookings)

    var notifier service.Notifier = notify.NopNotifier{}
    if cfg.AMQPURL != "" {
        notifier = notify.NewPublisher(cfg.AMQPURL)
        mailer := notify.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)
        go notify.StartConsumer(cfg.AMQPURL, mailer)
    }

    settlement := service.NewSettlement(bookings, capacity, gateway, notifier, cfg.RazorpayKeySecret, cfg.CancelWindow)

    cache := middleware.NewSlotCache(config.LoadCacheConfig(), rdb)
    rlCfg := config.LoadRateLimitConfig()

    h := router.Handlers{
        Payments: handler.NewPaymentHandler(settlement, gateway, cache),
        Bookings: handler.NewBookingHandler(settlement, bookings, cache),
        Slots:    handler.NewSlotHandler(capacity, slots, cache),
        Profile:  handler.NewProfileHandler(profiles),
        Admin:    handler.NewAdminHandler(cfg, slots),
        Init:     handler.NewInitHandler(cfg, slots, profiles),
    }

    e := echo.New()
    e.HideBanner = true
    e.Use(echomw.Recover())
    e.Use(echomw.Logger())
    e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
        AllowOrigins: []string{cfg.FrontendURL},
        AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
    }))

    verifier := auth.NewJWTVerifier(cfg.UserJWTSecret)
    router.RegisterRoutes(e, h, rlCfg, rdb, cache)
    router.RegisterAuth(e, h, verifier, cfg.AdminJWTSecret, profiles)

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)
    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}

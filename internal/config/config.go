package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "time"    // time parses duration values
)

// Config holds all runtime configuration values, constructed once at
// process start and passed by reference into each component; nothing
// reads the environment after Load returns. Required variables are
// enforced by must() and missing values cause the program to exit.
type Config struct {
    Env  string // application environment (e.g. "dev", "prod")
    Port string // HTTP port to listen on

    DBUser string // database username
    DBPass string // database password (optional)
    DBHost string // database host address
    DBPort string // database port number
    DBName string // database name

    RazorpayKeyID     string // gateway public key id
    RazorpayKeySecret string // gateway shared secret (orders, signature verification)

    UserJWTSecret     string        // secret the identity provider signs user tokens with
    AdminUsername     string        // back-office login name
    AdminPasswordHash string        // bcrypt hash of the back-office password; empty disables admin login
    AdminJWTSecret    string        // secret used to sign admin tokens
    AdminTokenTTL     time.Duration // lifetime of issued admin tokens
    AdminEmail        string        // profile email promoted to admin during init (optional)

    CancelWindow time.Duration // minimum lead time for owner cancellations

    FrontendURL string // origin allowed by CORS
    AMQPURL     string // RabbitMQ URL; empty disables the notification queue

    SMTPHost string // SMTP relay host; empty disables email
    SMTPPort string // SMTP relay port
    SMTPUser string // SMTP username
    SMTPPass string // SMTP password
    MailFrom string // From address for outbound mail
}

// Load reads configuration from environment variables and returns a
// Config. The payment gateway keys, token secrets and database
// coordinates are required; notification transports are optional and
// their absence degrades the corresponding feature.
func Load() Config {
    return Config{
        Env:  must("APP_ENV"),
        Port: must("APP_PORT"),

        DBUser: must("DB_USER"),
        DBPass: os.Getenv("DB_PASS"),
        DBHost: must("DB_HOST"),
        DBPort: must("DB_PORT"),
        DBName: must("DB_NAME"),

        RazorpayKeyID:     must("RAZORPAY_KEY_ID"),
        RazorpayKeySecret: must("RAZORPAY_KEY_SECRET"),

        UserJWTSecret:     must("USER_JWT_SECRET"),
        AdminUsername:     envStr("ADMIN_USERNAME", "admin"),
        AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
        AdminJWTSecret:    must("ADMIN_JWT_SECRET"),
        AdminTokenTTL:     time.Duration(envInt("ADMIN_TOKEN_TTL_HOURS", 24)) * time.Hour,
        AdminEmail:        os.Getenv("ADMIN_EMAIL"),

        CancelWindow: time.Duration(envInt("CANCEL_WINDOW_MIN", 30)) * time.Minute,

        FrontendURL: envStr("FRONTEND_URL", "http://localhost:5173"),
        AMQPURL:     os.Getenv("RABBITMQ_URL"),

        SMTPHost: os.Getenv("SMTP_HOST"),
        SMTPPort: os.Getenv("SMTP_PORT"),
        SMTPUser: os.Getenv("SMTP_USER"),
        SMTPPass: os.Getenv("SMTP_PASS"),
        MailFrom: os.Getenv("MAIL_FROM"),
    }
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

func envStr(k, d string) string {
    if v := os.Getenv(k); v != "" {
        return v
    }
    return d
}

func envInt(k string, d int) int {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    if n, err := strconv.Atoi(v); err == nil {
        return n
    }
    return d
}

func envBool(k string, d bool) bool {
    switch os.Getenv(k) {
    case "1", "true", "TRUE", "True", "yes", "on":
        return true
    case "0", "false", "FALSE", "False", "no", "off":
        return false
    }
    return d
}

func envDur(k string, d time.Duration) time.Duration {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    if dur, err := time.ParseDuration(v); err == nil {
        return dur
    }
    return d
}

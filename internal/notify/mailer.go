package notify

import (
    "fmt"
    "log"
    "net/smtp"
    "strings"
)

// Mailer sends confirmation email over SMTP. When no SMTP host or
// credentials are configured the mailer is disabled and sends are
// logged and skipped.
type Mailer struct {
    host string
    port string
    user string
    pass string
    from string
}

// NewMailer builds a Mailer from SMTP settings. from falls back to
// the SMTP user when empty.
func NewMailer(host, port, user, pass, from string) *Mailer {
    if from == "" {
        from = user
    }
    if port == "" {
        port = "587"
    }
    return &Mailer{host: host, port: port, user: user, pass: pass, from: from}
}

// Enabled reports whether the mailer has enough configuration to
// attempt delivery.
func (m *Mailer) Enabled() bool { return m.host != "" && m.user != "" && m.pass != "" }

// SendBookingConfirmation delivers the confirmation email for one
// event.
func (m *Mailer) SendBookingConfirmation(ev BookingConfirmedEvent) error {
    if !m.Enabled() {
        log.Printf("notify: SMTP not configured, skipping confirmation email for booking %d", ev.BookingID)
        return nil
    }
    subject := fmt.Sprintf("Booking confirmed – RideRonin %s %s", ev.Date, ev.DisplayTime)
    html := fmt.Sprintf(`<div style="font-family: system-ui, sans-serif; max-width: 480px;">
  <h2 style="color: #0f172a;">Booking confirmed</h2>
  <p>Your slot has been confirmed.</p>
  <p><strong>Date:</strong> %s</p>
  <p><strong>Time:</strong> %s</p>
  <p><strong>Amount:</strong> ₹%d</p>
  <p style="margin-top: 24px; color: #64748b; font-size: 14px;">RideRonin</p>
</div>`, ev.Date, ev.DisplayTime, ev.Amount)

    msg := strings.Join([]string{
        "From: " + m.from,
        "To: " + ev.Email,
        "Subject: " + subject,
        "MIME-Version: 1.0",
        "Content-Type: text/html; charset=UTF-8",
        "",
        html,
    }, "\r\n")

    addr := m.host + ":" + m.port
    auth := smtp.PlainAuth("", m.user, m.pass, m.host)
    return smtp.SendMail(addr, auth, m.from, []string{ev.Email}, []byte(msg))
}

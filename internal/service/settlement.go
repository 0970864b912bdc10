package service

import (
    "context"
    "errors"
    "fmt"
    "log"
    "time"

    "github.com/rideronin/slot-booking/internal/model"
    "github.com/rideronin/slot-booking/internal/payment"
)

// Ledger is the booking ledger the settlement engine writes to.
// Implemented by repository.BookingRepo. InsertConfirmed must be
// atomic with respect to concurrent confirmed inserts for the same
// slot and fail distinguishably when it would over-admit.
type Ledger interface {
    InsertConfirmed(ctx context.Context, b *model.Booking, capacity int) error
    InsertRefundPending(ctx context.Context, b *model.Booking) error
    HasConfirmed(ctx context.Context, date, slotTime, userID string) (bool, error)
    GetByID(ctx context.Context, id uint64) (model.Booking, error)
    GetByPaymentAndUser(ctx context.Context, paymentID, userID string) (model.Booking, error)
    MarkCancelled(ctx context.Context, id uint64, at time.Time) error
    MarkRefundPending(ctx context.Context, id uint64, paymentID string) error
}

// Gateway is the payment-gateway surface the engine consumes.
// Implemented by payment.Client.
type Gateway interface {
    FetchOrder(ctx context.Context, orderID string) (payment.Order, error)
    InitiateRefund(ctx context.Context, paymentID string, opts payment.RefundOptions) (payment.Refund, error)
}

// Notifier delivers best-effort confirmation notices. Implementations
// must not block the caller or surface failures; the settlement path
// never awaits delivery.
type Notifier interface {
    BookingConfirmed(b model.Booking)
}

// Settlement converts verified payments into confirmed bookings or
// compensated rejections. It holds no state across requests; every
// admission decision re-reads capacity at commit time.
type Settlement struct {
    ledger       Ledger
    capacity     *CapacityResolver
    gateway      Gateway
    notifier     Notifier
    secret       string
    cancelWindow time.Duration
    now          func() time.Time
}

// NewSettlement wires the settlement engine. secret is the gateway's
// shared signing secret; cancelWindow is the minimum lead time a
// non-admin owner needs to cancel.
func NewSettlement(ledger Ledger, capacity *CapacityResolver, gateway Gateway, notifier Notifier, secret string, cancelWindow time.Duration) *Settlement {
    return &Settlement{
        ledger:       ledger,
        capacity:     capacity,
        gateway:      gateway,
        notifier:     notifier,
        secret:       secret,
        cancelWindow: cancelWindow,
        now:          time.Now,
    }
}

// SettleInput carries one proof-of-payment and the slot it should
// fund. Profile supplies the contact details denormalized onto the
// booking row.
type SettleInput struct {
    OrderID         string
    PaymentID       string
    Signature       string
    Date            string
    SlotTime        string
    SlotDisplayTime *string
    Profile         model.Profile
}

// Settle runs one settlement attempt:
//
//	verify signature -> fetch order (must be paid) -> resolve capacity
//	-> admission check -> confirmed insert | compensate
//
// Signature and paid-status failures return plain errors with no
// compensation: the gateway does not confirm any funds moved under
// this identity. From the moment the order is known paid, every
// failure path records a refund_pending row before initiating the
// gateway refund and returns *CompensatedError. An insert that loses
// a storage-level race is an expected outcome and takes the same
// compensation path.
func (s *Settlement) Settle(ctx context.Context, in SettleInput) (model.Booking, error) {
    if !payment.VerifySignature(s.secret, in.OrderID, in.PaymentID, in.Signature) {
        return model.Booking{}, ErrInvalidSignature
    }

    order, err := s.gateway.FetchOrder(ctx, in.OrderID)
    if err != nil {
        return model.Booking{}, fmt.Errorf("%w: %v", ErrOrderNotPaid, err)
    }
    if order.Status != payment.OrderStatusPaid {
        return model.Booking{}, ErrOrderNotPaid
    }

    // Money is confirmed moved. Everything below must compensate on
    // failure instead of dropping the paid booking.
    amountMinor := order.Amount
    booking := s.newBooking(in, amountMinor)

    // The pre-checks are advisory: a failing counter store degrades to
    // the transactional re-check inside InsertConfirmed.
    capacity := s.capacity.EffectiveCapacity(ctx, in.Date, in.SlotTime)
    count, err := s.capacity.ConfirmedCount(ctx, in.Date, in.SlotTime)
    if err != nil {
        log.Printf("settlement: confirmed count failed for %s %s: %v", in.Date, in.SlotTime, err)
    } else if count >= capacity {
        return model.Booking{}, s.compensate(ctx, booking, amountMinor, ReasonSlotFull)
    }
    dup, err := s.ledger.HasConfirmed(ctx, in.Date, in.SlotTime, in.Profile.ID)
    if err != nil {
        log.Printf("settlement: duplicate check failed for %s %s: %v", in.Date, in.SlotTime, err)
    } else if dup {
        return model.Booking{}, s.compensate(ctx, booking, amountMinor, ReasonDuplicateBooking)
    }

    confirmed := booking
    if err := s.ledger.InsertConfirmed(ctx, &confirmed, capacity); err != nil {
        // Lost a race the pre-checks could not see, or storage failed
        // outright. Either way the payment needs compensating.
        log.Printf("settlement: confirmed insert failed for %s %s: %v", in.Date, in.SlotTime, err)
        return model.Booking{}, s.compensate(ctx, booking, amountMinor, ReasonBookingInsertFailed)
    }

    s.notifier.BookingConfirmed(confirmed)
    return confirmed, nil
}

func (s *Settlement) newBooking(in SettleInput, amountMinor int64) model.Booking {
    paymentID := in.PaymentID
    var phone *string
    if in.Profile.Phone != "" {
        p := in.Profile.Phone
        phone = &p
    }
    return model.Booking{
        UserID:          in.Profile.ID,
        Date:            in.Date,
        SlotTime:        in.SlotTime,
        SlotDisplayTime: in.SlotDisplayTime,
        PaymentID:       &paymentID,
        Amount:          majorUnits(amountMinor),
        UserName:        in.Profile.Name,
        UserEmail:       in.Profile.Email,
        UserPhone:       phone,
    }
}

// compensate records the refund obligation durably, then attempts the
// gateway refund. The write comes first: the client response promises
// a refund, and that promise must not depend on the gateway call
// succeeding. Both failures are logged only.
func (s *Settlement) compensate(ctx context.Context, booking model.Booking, amountMinor int64, reason RejectReason) error {
    rp := booking
    if err := s.ledger.InsertRefundPending(ctx, &rp); err != nil {
        log.Printf("settlement: refund_pending insert failed for payment %s: %v", deref(booking.PaymentID), err)
    }
    _, err := s.gateway.InitiateRefund(ctx, deref(booking.PaymentID), payment.RefundOptions{
        Amount:  amountMinor,
        Notes:   map[string]string{"reason": string(reason)},
        Receipt: fmt.Sprintf("refund_%s_%s_%s", reason, booking.Date, booking.SlotTime),
    })
    if err != nil {
        log.Printf("settlement: refund call failed for payment %s: %v", deref(booking.PaymentID), err)
    }
    return &CompensatedError{Reason: reason, PaymentID: deref(booking.PaymentID)}
}

// BookingInput describes an uncommitted-payment booking: no gateway
// interaction, used when payment happens out of band. A zero Amount
// falls back to the standard slot price.
type BookingInput struct {
    Date            string
    SlotTime        string
    SlotDisplayTime *string
    PaymentID       *string
    Amount          int64
    Profile         model.Profile
}

// defaultAmount is the standard major-unit price recorded for
// bookings created without a gateway order.
const defaultAmount = 100

// CreateBooking performs admission and the confirmed insert only.
// Admission failures return plain validation errors; there is no
// payment to compensate.
func (s *Settlement) CreateBooking(ctx context.Context, in BookingInput) (model.Booking, error) {
    capacity := s.capacity.EffectiveCapacity(ctx, in.Date, in.SlotTime)
    count, err := s.capacity.ConfirmedCount(ctx, in.Date, in.SlotTime)
    if err != nil {
        return model.Booking{}, err
    }
    if count >= capacity {
        return model.Booking{}, ErrSlotFull
    }
    dup, err := s.ledger.HasConfirmed(ctx, in.Date, in.SlotTime, in.Profile.ID)
    if err != nil {
        return model.Booking{}, err
    }
    if dup {
        return model.Booking{}, ErrDuplicateBooking
    }

    amount := in.Amount
    if amount == 0 {
        amount = defaultAmount
    }
    var phone *string
    if in.Profile.Phone != "" {
        p := in.Profile.Phone
        phone = &p
    }
    booking := model.Booking{
        UserID:          in.Profile.ID,
        Date:            in.Date,
        SlotTime:        in.SlotTime,
        SlotDisplayTime: in.SlotDisplayTime,
        PaymentID:       in.PaymentID,
        Amount:          amount,
        UserName:        in.Profile.Name,
        UserEmail:       in.Profile.Email,
        UserPhone:       phone,
    }
    if err := s.ledger.InsertConfirmed(ctx, &booking, capacity); err != nil {
        return model.Booking{}, mapInsertErr(err)
    }
    s.notifier.BookingConfirmed(booking)
    return booking, nil
}

// Cancel transitions a confirmed booking to cancelled. The requester
// must own the booking or be an administrator; owners are held to the
// lead-time window, admins bypass it.
func (s *Settlement) Cancel(ctx context.Context, bookingID uint64, requesterID string, isAdmin bool) error {
    booking, err := s.ledger.GetByID(ctx, bookingID)
    if err != nil {
        return err
    }
    if booking.UserID != requesterID && !isAdmin {
        return ErrForbidden
    }
    if !isAdmin {
        slotAt, err := time.ParseInLocation("2006-01-02T15:04", booking.Date+"T"+booking.SlotTime, time.Local)
        if err != nil {
            return fmt.Errorf("parse slot time: %w", err)
        }
        if slotAt.Sub(s.now()) < s.cancelWindow {
            return ErrTooCloseToSlotTime
        }
    }
    return s.ledger.MarkCancelled(ctx, bookingID, s.now().UTC())
}

// RefundResult reports the outcome of a manual refund request.
type RefundResult struct {
    RefundID        string
    Amount          int64
    AlreadyRefunded bool
}

// Refund reconciles a payment on user request. The booking is looked
// up by (paymentID, requester) so users can only refund their own
// payments; it must be confirmed or refund_pending. amountMinor of
// zero refunds the full remaining amount. A gateway report that the
// payment was already fully refunded converges the booking to
// cancelled and is treated as success, making repeated refund
// attempts idempotent.
func (s *Settlement) Refund(ctx context.Context, paymentID, requesterID string, amountMinor int64) (RefundResult, error) {
    booking, err := s.ledger.GetByPaymentAndUser(ctx, paymentID, requesterID)
    if err != nil {
        return RefundResult{}, err
    }
    if booking.Status != model.StatusRefundPending && booking.Status != model.StatusConfirmed {
        return RefundResult{}, ErrNotRefundable
    }
    refund, err := s.gateway.InitiateRefund(ctx, paymentID, payment.RefundOptions{Amount: amountMinor})
    if err != nil {
        if errors.Is(err, payment.ErrAlreadyRefunded) {
            if mErr := s.ledger.MarkCancelled(ctx, booking.ID, s.now().UTC()); mErr != nil {
                return RefundResult{}, mErr
            }
            return RefundResult{AlreadyRefunded: true}, nil
        }
        return RefundResult{}, err
    }
    if err := s.ledger.MarkRefundPending(ctx, booking.ID, refund.PaymentID); err != nil {
        return RefundResult{}, err
    }
    return RefundResult{RefundID: refund.ID, Amount: refund.Amount}, nil
}

// majorUnits converts a gateway minor-unit amount to major units,
// rounding half up.
func majorUnits(minor int64) int64 { return (minor + 50) / 100 }

func deref(s *string) string {
    if s == nil {
        return ""
    }
    return *s
}

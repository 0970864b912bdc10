package service

import (
    "context"
    "crypto/hmac"
    "crypto/sha256"
    "database/sql"
    "encoding/hex"
    "errors"
    "fmt"
    "sync"
    "testing"
    "time"

    "github.com/rideronin/slot-booking/internal/model"
    "github.com/rideronin/slot-booking/internal/payment"
)

const testSecret = "test_secret"

func sign(orderID, paymentID string) string {
    mac := hmac.New(sha256.New, []byte(testSecret))
    mac.Write([]byte(orderID + "|" + paymentID))
    return hex.EncodeToString(mac.Sum(nil))
}

func testProfile(id string) model.Profile {
    return model.Profile{ID: id, Name: "Test User", Email: id + "@example.com", Phone: "9999999999"}
}

// newTestEngine wires a Settlement over fresh mocks with a template
// schedule of one slot (10:00, capacity 2).
func newTestEngine() (*Settlement, *mockLedger, *mockGateway, *mockNotifier, *mockSlotSource) {
    ledger := newMockLedger()
    gateway := newMockGateway()
    gateway.ledger = ledger
    notifier := &mockNotifier{}
    slots := &mockSlotSource{
        templates: []model.SlotTemplate{{ID: 1, Time: "10:00", DisplayTime: "10:00 AM", Capacity: 2, SortOrder: 0}},
        overrides: map[string]map[string]int{},
    }
    capacity := NewCapacityResolver(slots, ledger)
    engine := NewSettlement(ledger, capacity, gateway, notifier, testSecret, 30*time.Minute)
    return engine, ledger, gateway, notifier, slots
}

func settleInput(user, orderID, paymentID string) SettleInput {
    return SettleInput{
        OrderID:   orderID,
        PaymentID: paymentID,
        Signature: sign(orderID, paymentID),
        Date:      "2026-10-01",
        SlotTime:  "10:00",
        Profile:   testProfile(user),
    }
}

func TestSettle_InvalidSignature(t *testing.T) {
    engine, ledger, gateway, _, _ := newTestEngine()
    gateway.paidOrder("order_1", 10000)

    in := settleInput("user-1", "order_1", "pay_1")
    in.Signature = "deadbeef"

    _, err := engine.Settle(context.Background(), in)
    if !errors.Is(err, ErrInvalidSignature) {
        t.Fatalf("expected ErrInvalidSignature, got %v", err)
    }
    if gateway.refundCalls != 0 {
        t.Errorf("no refund expected for unverified payment, got %d calls", gateway.refundCalls)
    }
    if len(ledger.bookings) != 0 {
        t.Errorf("expected no ledger writes, got %d", len(ledger.bookings))
    }
}

func TestSettle_OrderNotPaid(t *testing.T) {
    engine, _, gateway, _, _ := newTestEngine()
    gateway.orders["order_1"] = payment.Order{ID: "order_1", Amount: 10000, Status: "created"}

    _, err := engine.Settle(context.Background(), settleInput("user-1", "order_1", "pay_1"))
    if !errors.Is(err, ErrOrderNotPaid) {
        t.Fatalf("expected ErrOrderNotPaid, got %v", err)
    }
    if gateway.refundCalls != 0 {
        t.Errorf("no refund expected for unpaid order, got %d calls", gateway.refundCalls)
    }
}

func TestSettle_OrderFetchFails(t *testing.T) {
    engine, _, gateway, _, _ := newTestEngine()
    // order_1 never registered; FetchOrder fails.

    _, err := engine.Settle(context.Background(), settleInput("user-1", "order_1", "pay_1"))
    if !errors.Is(err, ErrOrderNotPaid) {
        t.Fatalf("expected ErrOrderNotPaid on fetch failure, got %v", err)
    }
    if gateway.refundCalls != 0 {
        t.Errorf("no refund expected when order state is unknown, got %d calls", gateway.refundCalls)
    }
}

func TestSettle_Success(t *testing.T) {
    engine, _, gateway, notifier, _ := newTestEngine()
    gateway.paidOrder("order_1", 12345)

    booking, err := engine.Settle(context.Background(), settleInput("user-1", "order_1", "pay_1"))
    if err != nil {
        t.Fatalf("Settle failed: %v", err)
    }
    if booking.Status != model.StatusConfirmed {
        t.Errorf("expected status confirmed, got %q", booking.Status)
    }
    if booking.Amount != 123 {
        t.Errorf("expected amount 123 (12345 paise rounded), got %d", booking.Amount)
    }
    if booking.PaymentID == nil || *booking.PaymentID != "pay_1" {
        t.Errorf("expected payment id pay_1 on booking, got %v", booking.PaymentID)
    }
    if booking.UserEmail != "user-1@example.com" {
        t.Errorf("expected denormalized email, got %q", booking.UserEmail)
    }
    if notifier.count() != 1 {
        t.Errorf("expected 1 confirmation notice, got %d", notifier.count())
    }
    if gateway.refundCalls != 0 {
        t.Errorf("no refund expected on success, got %d calls", gateway.refundCalls)
    }
}

func TestSettle_SlotFullCompensates(t *testing.T) {
    engine, ledger, gateway, notifier, _ := newTestEngine()
    gateway.paidOrder("order_a", 10000)
    gateway.paidOrder("order_b", 10000)
    gateway.paidOrder("order_c", 10000)

    ctx := context.Background()
    for i, user := range []string{"user-1", "user-2"} {
        if _, err := engine.Settle(ctx, settleInput(user, fmt.Sprintf("order_%c", 'a'+i), fmt.Sprintf("pay_%d", i+1))); err != nil {
            t.Fatalf("seed settle %d failed: %v", i, err)
        }
    }
    ledger.calls = nil

    _, err := engine.Settle(ctx, settleInput("user-3", "order_c", "pay_3"))
    var compensated *CompensatedError
    if !errors.As(err, &compensated) {
        t.Fatalf("expected CompensatedError, got %v", err)
    }
    if compensated.Reason != ReasonSlotFull {
        t.Errorf("expected reason slot_full, got %q", compensated.Reason)
    }
    if compensated.PaymentID != "pay_3" {
        t.Errorf("expected payment id pay_3, got %q", compensated.PaymentID)
    }

    // The durable refund obligation must exist before the gateway call.
    if len(ledger.calls) < 2 || ledger.calls[0] != "InsertRefundPending" || ledger.calls[1] != "InitiateRefund" {
        t.Errorf("expected refund_pending insert before gateway refund, got calls %v", ledger.calls)
    }
    if gateway.lastRefundID != "pay_3" {
        t.Errorf("expected refund of pay_3, got %q", gateway.lastRefundID)
    }
    if gateway.lastRefundOpt.Notes["reason"] != "slot_full" {
        t.Errorf("expected reason note slot_full, got %v", gateway.lastRefundOpt.Notes)
    }
    if notifier.count() != 2 {
        t.Errorf("expected no confirmation for the rejected booking, got %d notices", notifier.count())
    }
}

func TestSettle_DuplicateCompensates(t *testing.T) {
    engine, _, gateway, _, _ := newTestEngine()
    gateway.paidOrder("order_a", 10000)
    gateway.paidOrder("order_b", 10000)

    ctx := context.Background()
    if _, err := engine.Settle(ctx, settleInput("user-1", "order_a", "pay_1")); err != nil {
        t.Fatalf("seed settle failed: %v", err)
    }

    _, err := engine.Settle(ctx, settleInput("user-1", "order_b", "pay_2"))
    var compensated *CompensatedError
    if !errors.As(err, &compensated) {
        t.Fatalf("expected CompensatedError, got %v", err)
    }
    if compensated.Reason != ReasonDuplicateBooking {
        t.Errorf("expected reason duplicate_booking, got %q", compensated.Reason)
    }
    if gateway.lastRefundID != "pay_2" {
        t.Errorf("expected refund of pay_2, got %q", gateway.lastRefundID)
    }
}

func TestSettle_InsertRaceCompensates(t *testing.T) {
    engine, ledger, gateway, _, _ := newTestEngine()
    gateway.paidOrder("order_1", 10000)
    ledger.insertConfirmedErr = errMockStorage

    _, err := engine.Settle(context.Background(), settleInput("user-1", "order_1", "pay_1"))
    var compensated *CompensatedError
    if !errors.As(err, &compensated) {
        t.Fatalf("expected CompensatedError, got %v", err)
    }
    if compensated.Reason != ReasonBookingInsertFailed {
        t.Errorf("expected reason booking_insert_failed, got %q", compensated.Reason)
    }
    if gateway.refundCalls != 1 {
        t.Errorf("expected one refund call, got %d", gateway.refundCalls)
    }
}

func TestSettle_PrecheckErrorsFallThroughToInsert(t *testing.T) {
    engine, ledger, gateway, notifier, _ := newTestEngine()
    gateway.paidOrder("order_1", 10000)
    ledger.countConfirmedErr = errMockStorage
    ledger.hasConfirmedErr = errMockStorage

    // A failing counter store must not abort or compensate a paid
    // settlement; the guarded insert makes the admission decision.
    booking, err := engine.Settle(context.Background(), settleInput("user-1", "order_1", "pay_1"))
    if err != nil {
        t.Fatalf("expected settlement to fall through to the insert, got %v", err)
    }
    if booking.Status != model.StatusConfirmed {
        t.Errorf("expected status confirmed, got %q", booking.Status)
    }
    if gateway.refundCalls != 0 {
        t.Errorf("no refund expected, got %d calls", gateway.refundCalls)
    }
    if notifier.count() != 1 {
        t.Errorf("expected 1 confirmation notice, got %d", notifier.count())
    }
}

func TestSettle_RefundPendingInsertFailureStillRefunds(t *testing.T) {
    engine, ledger, gateway, _, slots := newTestEngine()
    gateway.paidOrder("order_1", 10000)
    ledger.insertRefundPendingErr = errMockStorage
    slots.overrides["2026-10-01"] = map[string]int{"10:00": 0} // slot closed

    _, err := engine.Settle(context.Background(), settleInput("user-1", "order_1", "pay_1"))
    var compensated *CompensatedError
    if !errors.As(err, &compensated) {
        t.Fatalf("expected CompensatedError, got %v", err)
    }
    if gateway.refundCalls != 1 {
        t.Errorf("refund must still be attempted when the durable record fails, got %d calls", gateway.refundCalls)
    }
}

func TestSettle_RefundCallFailureStillCompensates(t *testing.T) {
    engine, ledger, gateway, _, slots := newTestEngine()
    gateway.paidOrder("order_1", 10000)
    gateway.refundErr = errMockGateway
    slots.overrides["2026-10-01"] = map[string]int{"10:00": 0}

    _, err := engine.Settle(context.Background(), settleInput("user-1", "order_1", "pay_1"))
    var compensated *CompensatedError
    if !errors.As(err, &compensated) {
        t.Fatalf("expected CompensatedError even when the gateway refund fails, got %v", err)
    }
    counts := ledger.statusCounts()
    if counts[model.StatusRefundPending] != 1 {
        t.Errorf("expected one refund_pending row, got %v", counts)
    }
}

func TestSettle_ConcurrentOverCapacity(t *testing.T) {
    engine, ledger, gateway, notifier, _ := newTestEngine()

    const attempts = 8 // capacity is 2
    ctx := context.Background()
    for i := 0; i < attempts; i++ {
        gateway.paidOrder(fmt.Sprintf("order_%d", i), 10000)
    }

    var wg sync.WaitGroup
    results := make([]error, attempts)
    for i := 0; i < attempts; i++ {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            _, results[i] = engine.Settle(ctx, settleInput(
                fmt.Sprintf("user-%d", i),
                fmt.Sprintf("order_%d", i),
                fmt.Sprintf("pay_%d", i),
            ))
        }(i)
    }
    wg.Wait()

    confirmed := 0
    for i, err := range results {
        if err == nil {
            confirmed++
            continue
        }
        var compensated *CompensatedError
        if !errors.As(err, &compensated) {
            t.Errorf("attempt %d: expected CompensatedError, got %v", i, err)
        }
    }
    if confirmed != 2 {
        t.Fatalf("expected exactly 2 confirmed bookings, got %d", confirmed)
    }
    counts := ledger.statusCounts()
    if counts[model.StatusConfirmed] != 2 {
        t.Errorf("expected 2 confirmed rows, got %v", counts)
    }
    if counts[model.StatusRefundPending] != attempts-2 {
        t.Errorf("expected %d refund_pending rows, got %v", attempts-2, counts)
    }
    if notifier.count() != 2 {
        t.Errorf("expected 2 confirmation notices, got %d", notifier.count())
    }
}

func TestCreateBooking(t *testing.T) {
    t.Run("success with default amount", func(t *testing.T) {
        engine, _, _, notifier, _ := newTestEngine()
        booking, err := engine.CreateBooking(context.Background(), BookingInput{
            Date: "2026-10-01", SlotTime: "10:00", Profile: testProfile("user-1"),
        })
        if err != nil {
            t.Fatalf("CreateBooking failed: %v", err)
        }
        if booking.Amount != 100 {
            t.Errorf("expected default amount 100, got %d", booking.Amount)
        }
        if notifier.count() != 1 {
            t.Errorf("expected 1 confirmation notice, got %d", notifier.count())
        }
    })

    t.Run("slot full", func(t *testing.T) {
        engine, _, _, _, slots := newTestEngine()
        slots.overrides["2026-10-01"] = map[string]int{"10:00": 0}
        _, err := engine.CreateBooking(context.Background(), BookingInput{
            Date: "2026-10-01", SlotTime: "10:00", Profile: testProfile("user-1"),
        })
        if !errors.Is(err, ErrSlotFull) {
            t.Fatalf("expected ErrSlotFull, got %v", err)
        }
    })

    t.Run("duplicate", func(t *testing.T) {
        engine, _, _, _, _ := newTestEngine()
        ctx := context.Background()
        in := BookingInput{Date: "2026-10-01", SlotTime: "10:00", Profile: testProfile("user-1")}
        if _, err := engine.CreateBooking(ctx, in); err != nil {
            t.Fatalf("seed booking failed: %v", err)
        }
        if _, err := engine.CreateBooking(ctx, in); !errors.Is(err, ErrDuplicateBooking) {
            t.Fatalf("expected ErrDuplicateBooking, got %v", err)
        }
    })
}

func TestCancel(t *testing.T) {
    seed := func(t *testing.T, engine *Settlement) model.Booking {
        t.Helper()
        booking, err := engine.CreateBooking(context.Background(), BookingInput{
            Date: "2026-10-01", SlotTime: "10:00", Profile: testProfile("user-1"),
        })
        if err != nil {
            t.Fatalf("seed booking failed: %v", err)
        }
        return booking
    }

    t.Run("owner inside window rejected", func(t *testing.T) {
        engine, _, _, _, _ := newTestEngine()
        booking := seed(t, engine)
        engine.now = func() time.Time {
            return time.Date(2026, 10, 1, 9, 45, 0, 0, time.Local) // 15 min before
        }
        err := engine.Cancel(context.Background(), booking.ID, "user-1", false)
        if !errors.Is(err, ErrTooCloseToSlotTime) {
            t.Fatalf("expected ErrTooCloseToSlotTime, got %v", err)
        }
    })

    t.Run("owner outside window succeeds", func(t *testing.T) {
        engine, ledger, _, _, _ := newTestEngine()
        booking := seed(t, engine)
        engine.now = func() time.Time {
            return time.Date(2026, 10, 1, 8, 0, 0, 0, time.Local)
        }
        if err := engine.Cancel(context.Background(), booking.ID, "user-1", false); err != nil {
            t.Fatalf("Cancel failed: %v", err)
        }
        got, _ := ledger.GetByID(context.Background(), booking.ID)
        if got.Status != model.StatusCancelled {
            t.Errorf("expected status cancelled, got %q", got.Status)
        }
        if got.CancelledAt == nil {
            t.Errorf("expected cancelled_at to be set")
        }
    })

    t.Run("admin bypasses window", func(t *testing.T) {
        engine, _, _, _, _ := newTestEngine()
        booking := seed(t, engine)
        engine.now = func() time.Time {
            return time.Date(2026, 10, 1, 9, 59, 0, 0, time.Local)
        }
        if err := engine.Cancel(context.Background(), booking.ID, "someone-else", true); err != nil {
            t.Fatalf("admin cancel failed: %v", err)
        }
    })

    t.Run("non-owner forbidden", func(t *testing.T) {
        engine, _, _, _, _ := newTestEngine()
        booking := seed(t, engine)
        err := engine.Cancel(context.Background(), booking.ID, "user-2", false)
        if !errors.Is(err, ErrForbidden) {
            t.Fatalf("expected ErrForbidden, got %v", err)
        }
    })

    t.Run("unknown booking", func(t *testing.T) {
        engine, _, _, _, _ := newTestEngine()
        err := engine.Cancel(context.Background(), 404, "user-1", false)
        if !errors.Is(err, sql.ErrNoRows) {
            t.Fatalf("expected sql.ErrNoRows, got %v", err)
        }
    })
}

func TestRefund(t *testing.T) {
    settle := func(t *testing.T, engine *Settlement, gateway *mockGateway) model.Booking {
        t.Helper()
        gateway.paidOrder("order_1", 10000)
        booking, err := engine.Settle(context.Background(), settleInput("user-1", "order_1", "pay_1"))
        if err != nil {
            t.Fatalf("seed settle failed: %v", err)
        }
        return booking
    }

    t.Run("success marks refund pending", func(t *testing.T) {
        engine, ledger, gateway, _, _ := newTestEngine()
        booking := settle(t, engine, gateway)

        result, err := engine.Refund(context.Background(), "pay_1", "user-1", 0)
        if err != nil {
            t.Fatalf("Refund failed: %v", err)
        }
        if result.RefundID != "rfnd_1" {
            t.Errorf("expected refund id rfnd_1, got %q", result.RefundID)
        }
        got, _ := ledger.GetByID(context.Background(), booking.ID)
        if got.Status != model.StatusRefundPending {
            t.Errorf("expected status refund_pending, got %q", got.Status)
        }
    })

    t.Run("already refunded converges to cancelled", func(t *testing.T) {
        engine, ledger, gateway, _, _ := newTestEngine()
        booking := settle(t, engine, gateway)
        gateway.refundErr = payment.ErrAlreadyRefunded

        result, err := engine.Refund(context.Background(), "pay_1", "user-1", 0)
        if err != nil {
            t.Fatalf("expected idempotent success, got %v", err)
        }
        if !result.AlreadyRefunded {
            t.Errorf("expected AlreadyRefunded to be set")
        }
        got, _ := ledger.GetByID(context.Background(), booking.ID)
        if got.Status != model.StatusCancelled {
            t.Errorf("expected status cancelled, got %q", got.Status)
        }
    })

    t.Run("other user's payment not found", func(t *testing.T) {
        engine, _, gateway, _, _ := newTestEngine()
        settle(t, engine, gateway)
        _, err := engine.Refund(context.Background(), "pay_1", "user-2", 0)
        if !errors.Is(err, sql.ErrNoRows) {
            t.Fatalf("expected sql.ErrNoRows, got %v", err)
        }
    })

    t.Run("cancelled booking not refundable", func(t *testing.T) {
        engine, ledger, gateway, _, _ := newTestEngine()
        booking := settle(t, engine, gateway)
        if err := ledger.MarkCancelled(context.Background(), booking.ID, time.Now()); err != nil {
            t.Fatalf("mark cancelled failed: %v", err)
        }
        _, err := engine.Refund(context.Background(), "pay_1", "user-1", 0)
        if !errors.Is(err, ErrNotRefundable) {
            t.Fatalf("expected ErrNotRefundable, got %v", err)
        }
    })
}

func TestMajorUnits(t *testing.T) {
    cases := []struct {
        minor int64
        want  int64
    }{
        {10000, 100},
        {12345, 123},
        {12350, 124},
        {49, 0},
        {50, 1},
        {0, 0},
    }
    for _, tc := range cases {
        if got := majorUnits(tc.minor); got != tc.want {
            t.Errorf("majorUnits(%d) = %d, want %d", tc.minor, got, tc.want)
        }
    }
}

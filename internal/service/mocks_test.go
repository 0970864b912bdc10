package service

import (
    "context"
    "database/sql"
    "errors"
    "sync"
    "time"

    "github.com/rideronin/slot-booking/internal/model"
    "github.com/rideronin/slot-booking/internal/payment"
    "github.com/rideronin/slot-booking/internal/repository"
)

// Common test errors.
var (
    errMockStorage = errors.New("mock storage error")
    errMockGateway = errors.New("mock gateway error")
)

// mockLedger implements Ledger with in-memory state. It enforces the
// same admission semantics as the real repository: InsertConfirmed
// re-counts under the lock and fails with repository.ErrSlotFull or
// repository.ErrDuplicate, so racing callers behave like racing
// transactions.
type mockLedger struct {
    mu       sync.Mutex
    nextID   uint64
    bookings map[uint64]model.Booking

    // Error injection; nil means the call succeeds.
    insertConfirmedErr     error
    insertRefundPendingErr error
    countConfirmedErr      error
    hasConfirmedErr        error

    // Call order recording for compensation-ordering assertions.
    calls []string
}

func newMockLedger() *mockLedger {
    return &mockLedger{nextID: 1, bookings: map[uint64]model.Booking{}}
}

func (m *mockLedger) record(name string) { m.calls = append(m.calls, name) }

func (m *mockLedger) InsertConfirmed(ctx context.Context, b *model.Booking, capacity int) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.record("InsertConfirmed")
    if m.insertConfirmedErr != nil {
        return m.insertConfirmedErr
    }
    count := 0
    for _, stored := range m.bookings {
        if stored.Date != b.Date || stored.SlotTime != b.SlotTime || stored.Status != model.StatusConfirmed {
            continue
        }
        if stored.UserID == b.UserID {
            return repository.ErrDuplicate
        }
        count++
    }
    if count >= capacity {
        return repository.ErrSlotFull
    }
    b.ID = m.nextID
    m.nextID++
    b.Status = model.StatusConfirmed
    b.CreatedAt = time.Now().UTC()
    m.bookings[b.ID] = *b
    return nil
}

func (m *mockLedger) InsertRefundPending(ctx context.Context, b *model.Booking) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.record("InsertRefundPending")
    if m.insertRefundPendingErr != nil {
        return m.insertRefundPendingErr
    }
    b.ID = m.nextID
    m.nextID++
    b.Status = model.StatusRefundPending
    b.CreatedAt = time.Now().UTC()
    m.bookings[b.ID] = *b
    return nil
}

func (m *mockLedger) HasConfirmed(ctx context.Context, date, slotTime, userID string) (bool, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    if m.hasConfirmedErr != nil {
        return false, m.hasConfirmedErr
    }
    for _, b := range m.bookings {
        if b.Date == date && b.SlotTime == slotTime && b.UserID == userID && b.Status == model.StatusConfirmed {
            return true, nil
        }
    }
    return false, nil
}

func (m *mockLedger) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    b, ok := m.bookings[id]
    if !ok {
        return model.Booking{}, sql.ErrNoRows
    }
    return b, nil
}

func (m *mockLedger) GetByPaymentAndUser(ctx context.Context, paymentID, userID string) (model.Booking, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    for _, b := range m.bookings {
        if b.UserID == userID && b.PaymentID != nil && *b.PaymentID == paymentID {
            return b, nil
        }
    }
    return model.Booking{}, sql.ErrNoRows
}

func (m *mockLedger) MarkCancelled(ctx context.Context, id uint64, at time.Time) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    b, ok := m.bookings[id]
    if !ok {
        return sql.ErrNoRows
    }
    b.Status = model.StatusCancelled
    b.CancelledAt = &at
    m.bookings[id] = b
    return nil
}

func (m *mockLedger) MarkRefundPending(ctx context.Context, id uint64, paymentID string) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    b, ok := m.bookings[id]
    if !ok {
        return sql.ErrNoRows
    }
    b.Status = model.StatusRefundPending
    m.bookings[id] = b
    return nil
}

// CountConfirmed lets the mock ledger double as a BookingCounter.
func (m *mockLedger) CountConfirmed(ctx context.Context, date, slotTime string) (int, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    if m.countConfirmedErr != nil {
        return 0, m.countConfirmedErr
    }
    count := 0
    for _, b := range m.bookings {
        if b.Date == date && b.SlotTime == slotTime && b.Status == model.StatusConfirmed {
            count++
        }
    }
    return count, nil
}

func (m *mockLedger) ConfirmedCountsByDate(ctx context.Context, date string) (map[string]int, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    out := map[string]int{}
    for _, b := range m.bookings {
        if b.Date == date && b.Status == model.StatusConfirmed {
            out[b.SlotTime]++
        }
    }
    return out, nil
}

func (m *mockLedger) statusCounts() map[string]int {
    m.mu.Lock()
    defer m.mu.Unlock()
    out := map[string]int{}
    for _, b := range m.bookings {
        out[b.Status]++
    }
    return out
}

// mockGateway implements Gateway with canned orders and refund
// recording.
type mockGateway struct {
    mu     sync.Mutex
    orders map[string]payment.Order

    refundErr     error
    refundCalls   int
    lastRefundID  string
    lastRefundOpt payment.RefundOptions

    ledger *mockLedger // when set, refund calls are appended to its call log
}

func newMockGateway() *mockGateway {
    return &mockGateway{orders: map[string]payment.Order{}}
}

func (m *mockGateway) paidOrder(id string, amountMinor int64) {
    m.orders[id] = payment.Order{ID: id, Amount: amountMinor, Currency: "INR", Status: payment.OrderStatusPaid}
}

func (m *mockGateway) FetchOrder(ctx context.Context, orderID string) (payment.Order, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    order, ok := m.orders[orderID]
    if !ok {
        return payment.Order{}, errMockGateway
    }
    return order, nil
}

func (m *mockGateway) InitiateRefund(ctx context.Context, paymentID string, opts payment.RefundOptions) (payment.Refund, error) {
    m.mu.Lock()
    m.refundCalls++
    m.lastRefundID = paymentID
    m.lastRefundOpt = opts
    err := m.refundErr
    m.mu.Unlock()
    if m.ledger != nil {
        m.ledger.mu.Lock()
        m.ledger.record("InitiateRefund")
        m.ledger.mu.Unlock()
    }
    if err != nil {
        return payment.Refund{}, err
    }
    return payment.Refund{ID: "rfnd_1", PaymentID: paymentID, Amount: opts.Amount}, nil
}

// mockNotifier records confirmed bookings.
type mockNotifier struct {
    mu        sync.Mutex
    confirmed []model.Booking
}

func (m *mockNotifier) BookingConfirmed(b model.Booking) {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.confirmed = append(m.confirmed, b)
}

func (m *mockNotifier) count() int {
    m.mu.Lock()
    defer m.mu.Unlock()
    return len(m.confirmed)
}

// mockSlotSource implements SlotSource from maps.
type mockSlotSource struct {
    templates    []model.SlotTemplate
    overrides    map[string]map[string]int // date -> time -> capacity
    templatesErr error
    overrideErr  error
}

func (m *mockSlotSource) ListTemplates(ctx context.Context) ([]model.SlotTemplate, error) {
    if m.templatesErr != nil {
        return nil, m.templatesErr
    }
    return m.templates, nil
}

func (m *mockSlotSource) GetOverride(ctx context.Context, date, slotTime string) (int, bool, error) {
    if m.overrideErr != nil {
        return 0, false, m.overrideErr
    }
    if day, ok := m.overrides[date]; ok {
        if capacity, ok := day[slotTime]; ok {
            return capacity, true, nil
        }
    }
    return 0, false, nil
}

func (m *mockSlotSource) ListOverridesByDate(ctx context.Context, date string) (map[string]int, error) {
    if m.overrideErr != nil {
        return nil, m.overrideErr
    }
    if day, ok := m.overrides[date]; ok {
        return day, nil
    }
    return map[string]int{}, nil
}

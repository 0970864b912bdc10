package handler

import (
    "database/sql"
    "errors"
    "math"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/rideronin/slot-booking/internal/middleware"
    "github.com/rideronin/slot-booking/internal/payment"
    "github.com/rideronin/slot-booking/internal/service"
)

// PaymentHandler exposes the gateway-facing endpoints: order
// creation, proof-of-payment settlement and manual refunds. All
// routes assume Authenticate, RequireUser and LoadProfile have run.
type PaymentHandler struct {
    Settlement *service.Settlement
    Gateway    *payment.Client
    Cache      *middleware.SlotCache
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(settlement *service.Settlement, gateway *payment.Client, cache *middleware.SlotCache) *PaymentHandler {
    if settlement == nil || gateway == nil {
        panic("nil dependency passed to NewPaymentHandler")
    }
    return &PaymentHandler{Settlement: settlement, Gateway: gateway, Cache: cache}
}

// CreateOrder handles POST /v1/payments/create-order. It creates a
// gateway order for the requested amount in major units and returns
// the order id plus the public key id the client checkout needs.
func (h *PaymentHandler) CreateOrder(c echo.Context) error {
    var body struct {
        Amount   int64             `json:"amount"`
        Currency string            `json:"currency"`
        Receipt  string            `json:"receipt"`
        Notes    map[string]string `json:"notes"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.Amount <= 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid amount"})
    }
    if body.Currency == "" {
        body.Currency = "INR"
    }
    order, err := h.Gateway.CreateOrder(c.Request().Context(), body.Amount*100, body.Currency, body.Receipt, body.Notes)
    if err != nil {
        c.Logger().Errorf("create order failed: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create order"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "orderId":  order.ID,
        "keyId":    h.Gateway.KeyID(),
        "amount":   order.Amount,
        "currency": order.Currency,
    })
}

// Verify handles POST /v1/payments/verify: one settlement attempt for
// a claimed payment. A compensated rejection is reported distinctly
// from plain validation failures because money has already moved and
// a refund has been recorded.
func (h *PaymentHandler) Verify(c echo.Context) error {
    var body struct {
        PaymentID       string  `json:"razorpay_payment_id"`
        OrderID         string  `json:"razorpay_order_id"`
        Signature       string  `json:"razorpay_signature"`
        Date            string  `json:"date"`
        SlotTime        string  `json:"slotTime"`
        SlotDisplayTime *string `json:"slotDisplayTime"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.PaymentID == "" || body.OrderID == "" || body.Signature == "" || body.Date == "" || body.SlotTime == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing payment or booking details"})
    }
    if !validDate(body.Date) || !validSlotTime(body.SlotTime) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date or slot time"})
    }

    booking, err := h.Settlement.Settle(c.Request().Context(), service.SettleInput{
        OrderID:         body.OrderID,
        PaymentID:       body.PaymentID,
        Signature:       body.Signature,
        Date:            body.Date,
        SlotTime:        body.SlotTime,
        SlotDisplayTime: body.SlotDisplayTime,
        Profile:         middleware.CurrentProfile(c),
    })
    if err != nil {
        var compensated *service.CompensatedError
        switch {
        case errors.As(err, &compensated):
            return c.JSON(http.StatusBadRequest, echo.Map{
                "error":           compensated.Message(),
                "code":            "BOOKING_FAILED_REFUND_PENDING",
                "refundInitiated": true,
            })
        case errors.Is(err, service.ErrInvalidSignature):
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment signature"})
        case errors.Is(err, service.ErrOrderNotPaid):
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "order not paid"})
        }
        c.Logger().Errorf("settlement failed: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "settlement failed"})
    }
    if h.Cache != nil {
        h.Cache.Invalidate(c.Request().Context(), booking.Date)
    }
    return c.JSON(http.StatusOK, bookingResponse(booking))
}

// Refund handles POST /v1/payments/refund: user-triggered refund
// reconciliation for their own payment.
func (h *PaymentHandler) Refund(c echo.Context) error {
    var body struct {
        PaymentID string   `json:"payment_id"`
        Amount    *float64 `json:"amount"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.PaymentID == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment_id is required"})
    }
    var amountMinor int64
    if body.Amount != nil {
        amountMinor = int64(math.Round(*body.Amount * 100))
        if amountMinor <= 0 {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid amount"})
        }
    }

    ident := middleware.CurrentIdentity(c)
    result, err := h.Settlement.Refund(c.Request().Context(), body.PaymentID, ident.UserID, amountMinor)
    if err != nil {
        switch {
        case errors.Is(err, sql.ErrNoRows):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found or you cannot refund this payment"})
        case errors.Is(err, service.ErrNotRefundable):
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "this booking cannot be refunded"})
        }
        c.Logger().Errorf("refund failed: %v", err)
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "refund failed"})
    }
    if result.AlreadyRefunded {
        return c.JSON(http.StatusOK, echo.Map{"ok": true, "alreadyRefunded": true})
    }
    return c.JSON(http.StatusOK, echo.Map{"ok": true, "refundId": result.RefundID, "amount": result.Amount})
}

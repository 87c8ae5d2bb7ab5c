package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"travelbackend/internal/domain/models"
	"travelbackend/internal/http/middleware"
	"travelbackend/internal/services"
)

func paymentService(c *gin.Context) services.PaymentService {
	return services.PaymentService{
		Gateway:   gwPay,
		Relay:     relay,
		Env:       appEnv,
		RequestID: middleware.GetRequestID(c),
	}
}

type intentRequest struct {
	BookingID int64 `json:"bookingId"`
}

// POST /api/payments/intent
func CreatePaymentIntent(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req intentRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	if req.BookingID <= 0 {
		respondError(c, http.StatusBadRequest, "validation_error", "bookingId is required", nil)
		return
	}

	result, err := paymentService(c).CreateIntent(c.Request.Context(), req.BookingID, actor)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

type verifyRequest struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
	Signature string `json:"signature"`
}

// POST /api/payments/verify
func VerifyPayment(c *gin.Context) {
	if _, ok := actorOrAbort(c); !ok {
		return
	}
	var req verifyRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	payment, err := paymentService(c).Verify(c.Request.Context(), req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": payment})
}

// POST /api/payments/webhook is unauthenticated; trust comes from the body
// signature over the raw payload, so the body must not be re-encoded before
// verification.
func PaymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil || len(body) == 0 {
		respondError(c, http.StatusBadRequest, "validation_error", "empty body", nil)
		return
	}
	signature := c.GetHeader("X-Razorpay-Signature")

	if err := paymentService(c).HandleWebhook(c.Request.Context(), body, signature); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

type manualPaymentRequest struct {
	BookingID      int64  `json:"bookingId"`
	AmountMinor    int64  `json:"amountMinor"`
	Method         string `json:"method"`
	TransactionRef string `json:"transactionRef"`
	ProofRef       string `json:"proofRef"`
}

// POST /api/payments/manual
func RecordManualPayment(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req manualPaymentRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	if req.BookingID <= 0 {
		respondError(c, http.StatusBadRequest, "validation_error", "bookingId is required", nil)
		return
	}

	payment, err := paymentService(c).RecordManual(c.Request.Context(),
		req.BookingID, req.AmountMinor, models.PaymentMethod(req.Method),
		req.TransactionRef, req.ProofRef, actor)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"payment": payment})
}

// POST /api/bookings/:id/refund
func RefundBooking(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	payment, err := paymentService(c).Refund(c.Request.Context(), id, actor)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": payment})
}

// GET /api/bookings/:id/payment reports settlement state for the client poller.
func PaymentStatus(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	status, err := paymentService(c).Status(id, actor)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// GET /api/payments lists recent payments for admins.
func PaymentHistory(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	payments, err := paymentService(c).History(limit, actor)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

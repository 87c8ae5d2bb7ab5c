package models

import "time"

// PaymentState is the lifecycle state of a payment record. Transitions only
// move forward; terminal states are never reopened.
type PaymentState string

const (
	PaymentCreated  PaymentState = "CREATED"
	PaymentCaptured PaymentState = "CAPTURED"
	PaymentFailedSt PaymentState = "FAILED"
	PaymentRefunded PaymentState = "REFUNDED"
)

// PaymentMethod distinguishes gateway-routed payments from offline ones.
type PaymentMethod string

const (
	MethodGateway      PaymentMethod = "GATEWAY"
	MethodUPI          PaymentMethod = "UPI"
	MethodCash         PaymentMethod = "CASH"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
)

// ManualMethod reports whether m is one of the offline admin-recorded methods.
func ManualMethod(m PaymentMethod) bool {
	switch m {
	case MethodUPI, MethodCash, MethodBankTransfer:
		return true
	}
	return false
}

// Payment references exactly one booking. AmountMinor is in paise.
// ProviderPaymentID, once set, is immutable and unique system-wide; it is the
// idempotency key for capture.
type Payment struct {
	ID                int64         `json:"id"`
	BookingID         int64         `json:"bookingId"`
	AmountMinor       int64         `json:"amountMinor"`
	Provider          string        `json:"provider"`
	Method            PaymentMethod `json:"method"`
	Status            PaymentState  `json:"status"`
	ProviderOrderID   string        `json:"providerOrderId"`
	ProviderPaymentID string        `json:"providerPaymentId,omitempty"`
	ProviderRefundID  string        `json:"providerRefundId,omitempty"`
	ProofRef          string        `json:"proofRef,omitempty"`
	CreatedAt         time.Time     `json:"createdAt,omitempty"`
	UpdatedAt         time.Time     `json:"updatedAt,omitempty"`
}

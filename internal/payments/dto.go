package payments

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jpcontreras/vendia-backend/pkg/enums"
)

// Actor identifies who is performing an operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

// SubmitPaymentInput captures a client's reported payment. Amount is in the
// display currency the client paid with; conversion to canonical USD happens
// against the active rate snapshot at submission time.
type SubmitPaymentInput struct {
	OrderID    uuid.UUID
	Actor      Actor
	Amount     decimal.Decimal
	Currency   enums.Currency
	Method     enums.PaymentMethod
	Reference  *string
	ReceiptURL *string
	Note       *string
}

// VerifyPaymentInput addresses a pending payment for admin verification.
type VerifyPaymentInput struct {
	PaymentID uuid.UUID
	Actor     Actor
}

// RejectPaymentInput carries the mandatory rejection reason.
type RejectPaymentInput struct {
	PaymentID uuid.UUID
	Reason    string
	Actor     Actor
}

// DeletePaymentInput addresses an unverified payment for removal.
type DeletePaymentInput struct {
	PaymentID uuid.UUID
	Actor     Actor
}

package mintgate

import "fmt"

// MintError represents a structured failure of a payment claim.
// Code identifies the failure class; Details carries operator-facing context.
type MintError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *MintError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes, grouped by the retry contract they impose on the caller.
const (
	// Client-caused. The claim itself is bad; resubmitting it unchanged
	// will never succeed.
	ErrCodeInvalidClaim        = "invalid_claim"
	ErrCodeInvalidResource     = "invalid_resource"
	ErrCodeTransactionFailed   = "transaction_failed"
	ErrCodeNoQualifyingPayment = "no_qualifying_payment"
	ErrCodeInsufficientAmount  = "insufficient_amount"

	// Transient. The same claim may be resubmitted later.
	ErrCodeReceiptNotFound     = "receipt_not_found"
	ErrCodeSubmissionFailed    = "submission_failed"
	ErrCodeConfirmationTimeout = "confirmation_timeout"

	// Operational. Requires operator intervention, not a retry.
	ErrCodeMisconfigured = "misconfigured"
)

// NewMintError creates a new mint error.
func NewMintError(code, message string, details map[string]interface{}) *MintError {
	return &MintError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Retryable reports whether resubmitting the same claim later can succeed.
func (e *MintError) Retryable() bool {
	switch e.Code {
	case ErrCodeReceiptNotFound, ErrCodeSubmissionFailed, ErrCodeConfirmationTimeout:
		return true
	}
	return false
}

// Rejection reports whether the failure was caused by the claim itself.
func (e *MintError) Rejection() bool {
	switch e.Code {
	case ErrCodeInvalidClaim, ErrCodeInvalidResource, ErrCodeTransactionFailed,
		ErrCodeNoQualifyingPayment, ErrCodeInsufficientAmount:
		return true
	}
	return false
}

// Fatal reports whether the deployment itself is broken. A fatal error
// applies to every claim, not just the one that surfaced it.
func (e *MintError) Fatal() bool {
	return e.Code == ErrCodeMisconfigured
}

// AsMintError unwraps err to a *MintError if it is one.
func AsMintError(err error) (*MintError, bool) {
	me, ok := err.(*MintError)
	return me, ok
}

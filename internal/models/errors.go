package models

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a gate protocol failure.
type ErrorCode string

const (
	// Caller/config errors, fatal to the request.
	CodeInvalidPrice   ErrorCode = "INVALID_PRICE"
	CodeInvalidFeeRate ErrorCode = "INVALID_FEE_RATE"

	// Terminal verification/settlement failures, never retried automatically.
	CodeChallengeNotFound        ErrorCode = "CHALLENGE_NOT_FOUND"
	CodeChallengeExpired         ErrorCode = "CHALLENGE_EXPIRED"
	CodeChallengeAlreadyConsumed ErrorCode = "CHALLENGE_ALREADY_CONSUMED"
	CodeWrongRecipient           ErrorCode = "WRONG_RECIPIENT"
	CodeAmountMismatch           ErrorCode = "AMOUNT_MISMATCH"
	CodeTransactionReverted      ErrorCode = "TRANSACTION_REVERTED"
	CodeNoMatchingTransfer       ErrorCode = "NO_MATCHING_TRANSFER"
	CodeTransactionReuse         ErrorCode = "TRANSACTION_REUSE"

	// Retryable failures; the same proof may be re-presented later.
	CodeTransactionNotFound ErrorCode = "TRANSACTION_NOT_FOUND"
	CodeNotYetConfirmed     ErrorCode = "NOT_YET_CONFIRMED"
	CodeChainRPCUnavailable ErrorCode = "CHAIN_RPC_UNAVAILABLE"
)

// GateError is a typed protocol failure carrying its taxonomy code.
type GateError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
}

func (e *GateError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

var (
	ErrInvalidPrice   = &GateError{Code: CodeInvalidPrice, Message: "price must be a positive decimal"}
	ErrInvalidFeeRate = &GateError{Code: CodeInvalidFeeRate, Message: "platform fee must be between 0 and 10000 basis points"}

	ErrChallengeNotFound        = &GateError{Code: CodeChallengeNotFound, Message: "payment challenge not found"}
	ErrChallengeExpired         = &GateError{Code: CodeChallengeExpired, Message: "payment challenge expired"}
	ErrChallengeAlreadyConsumed = &GateError{Code: CodeChallengeAlreadyConsumed, Message: "payment challenge already consumed by another transaction"}
	ErrWrongRecipient           = &GateError{Code: CodeWrongRecipient, Message: "transfer recipient does not match challenge"}
	ErrAmountMismatch           = &GateError{Code: CodeAmountMismatch, Message: "transfer amount is below the challenge amount"}
	ErrTransactionReverted      = &GateError{Code: CodeTransactionReverted, Message: "transaction execution reverted"}
	ErrNoMatchingTransfer       = &GateError{Code: CodeNoMatchingTransfer, Message: "no transfer of the configured token found in receipt"}
	ErrTransactionReuse         = &GateError{Code: CodeTransactionReuse, Message: "transaction already settled for different content"}

	ErrTransactionNotFound = &GateError{Code: CodeTransactionNotFound, Message: "transaction not found on chain", Retryable: true}
	ErrNotYetConfirmed     = &GateError{Code: CodeNotYetConfirmed, Message: "transaction does not have enough confirmations yet", Retryable: true}
	ErrChainRPCUnavailable = &GateError{Code: CodeChainRPCUnavailable, Message: "chain RPC endpoint unavailable", Retryable: true}
)

// IsRetryable reports whether the failure is transient and the same proof
// can be re-presented without issuing a new challenge.
func IsRetryable(err error) bool {
	var ge *GateError
	if errors.As(err, &ge) {
		return ge.Retryable
	}
	return false
}

// CodeOf extracts the taxonomy code from an error chain, or empty string.
func CodeOf(err error) ErrorCode {
	var ge *GateError
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ""
}

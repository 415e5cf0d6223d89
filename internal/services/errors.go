package services

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the ledger operations. Front-end adapters own
// the user-facing wording; these carry only machine-readable identity.
var (
	ErrUserNotFound          = errors.New("user not found")
	ErrOrderNotFound         = errors.New("order not found")
	ErrOrderAlreadySettled   = errors.New("order already settled")
	ErrInvalidVoucherCode    = errors.New("invalid voucher code")
	ErrVoucherQuotaExhausted = errors.New("voucher quota exhausted")
	ErrVoucherAlreadyClaimed = errors.New("voucher already claimed")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrServiceUnavailable    = errors.New("service unavailable")
)

// OutOfStockError reports that no ready inventory exists for a package.
type OutOfStockError struct {
	PackageType string
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("out of stock for package %q", e.PackageType)
}

// InsufficientBalanceError reports a deduction larger than the stored
// balance. Both amounts are included so the adapter can show a top-up hint.
type InsufficientBalanceError struct {
	Required  int64
	Available int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: required %d, available %d", e.Required, e.Available)
}

// IsOutOfStock reports whether err is an out-of-stock condition.
func IsOutOfStock(err error) bool {
	var oos *OutOfStockError
	return errors.As(err, &oos)
}

// IsInsufficientBalance reports whether err is an insufficient-balance
// condition.
func IsInsufficientBalance(err error) bool {
	var ib *InsufficientBalanceError
	return errors.As(err, &ib)
}

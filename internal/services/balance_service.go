package services

import (
	"context"
	"database/sql"
	"fmt"
)

// BalanceService mutates stored user balances. Every mutation locks the user
// row first and re-reads the balance, so concurrent deductions for the same
// user serialize and the balance can never go negative.
type BalanceService struct {
	db *sql.DB
}

func NewBalanceService(db *sql.DB) *BalanceService {
	return &BalanceService{db: db}
}

// DeductBalance subtracts amount from the user's balance and returns the new
// balance. Fails with ErrUserNotFound or InsufficientBalanceError.
func (s *BalanceService) DeductBalance(ctx context.Context, userID string, amount int64) (int64, error) {
	var newBalance int64
	err := runTx(ctx, s.db, func(tx *sql.Tx) error {
		b, err := s.deductTx(tx, userID, amount)
		if err != nil {
			return err
		}
		newBalance = b
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

func (s *BalanceService) deductTx(tx *sql.Tx, userID string, amount int64) (int64, error) {
	balance, err := lockBalance(tx, userID)
	if err != nil {
		return 0, err
	}
	if balance < amount {
		return 0, &InsufficientBalanceError{Required: amount, Available: balance}
	}

	newBalance := balance - amount
	if err := writeBalance(tx, userID, newBalance); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// CreditBalance adds amount to the user's balance and returns the new
// balance. Used by voucher redemption and referral rewards.
func (s *BalanceService) CreditBalance(ctx context.Context, userID string, amount int64) (int64, error) {
	var newBalance int64
	err := runTx(ctx, s.db, func(tx *sql.Tx) error {
		b, err := s.creditTx(tx, userID, amount)
		if err != nil {
			return err
		}
		newBalance = b
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

func (s *BalanceService) creditTx(tx *sql.Tx, userID string, amount int64) (int64, error) {
	balance, err := lockBalance(tx, userID)
	if err != nil {
		return 0, err
	}

	newBalance := balance + amount
	if err := writeBalance(tx, userID, newBalance); err != nil {
		return 0, err
	}
	return newBalance, nil
}

func lockBalance(tx *sql.Tx, userID string) (int64, error) {
	var balance int64
	err := tx.QueryRow(`SELECT balance FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("balance lock failed: %w", err)
	}
	return balance, nil
}

func writeBalance(tx *sql.Tx, userID string, balance int64) error {
	if _, err := tx.Exec(
		`UPDATE users SET balance = $1, updated_at = now() WHERE id = $2`,
		balance, userID); err != nil {
		return fmt.Errorf("balance update failed: %w", err)
	}
	return nil
}

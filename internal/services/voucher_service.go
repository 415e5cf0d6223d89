package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/akunflix/backend/internal/models"
)

// VoucherService owns promotional codes. Redemption credits the user's
// balance, burns quota and records the claim in a single transaction, so a
// user hammering the redeem button from two devices still gets the credit
// exactly once.
type VoucherService struct {
	db      *sql.DB
	balance *BalanceService
}

func NewVoucherService(db *sql.DB, balance *BalanceService) *VoucherService {
	return &VoucherService{db: db, balance: balance}
}

// RedeemVoucher applies the voucher with the given code to the user. Codes
// are case-insensitive. Quota 0 means unlimited uses.
func (s *VoucherService) RedeemVoucher(ctx context.Context, userID, code string) (*models.Redemption, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	var voucherID string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM vouchers WHERE code = $1`, code).Scan(&voucherID)
	if err == sql.ErrNoRows {
		return nil, ErrInvalidVoucherCode
	}
	if err != nil {
		return nil, fmt.Errorf("voucher lookup failed: %w", err)
	}

	var redemption models.Redemption
	err = runTx(ctx, s.db, func(tx *sql.Tx) error {
		// Re-read under lock; the pre-transaction lookup only resolved the id.
		var amount int64
		var quota, used int
		err := tx.QueryRow(
			`SELECT amount, quota, used FROM vouchers WHERE id = $1 FOR UPDATE`,
			voucherID).Scan(&amount, &quota, &used)
		if err == sql.ErrNoRows {
			return ErrInvalidVoucherCode
		}
		if err != nil {
			return fmt.Errorf("voucher lock failed: %w", err)
		}

		if quota > 0 && used >= quota {
			return ErrVoucherQuotaExhausted
		}

		var claimed bool
		if err := tx.QueryRow(
			`SELECT EXISTS (SELECT 1 FROM voucher_claims WHERE voucher_id = $1 AND user_id = $2)`,
			voucherID, userID).Scan(&claimed); err != nil {
			return fmt.Errorf("claim check failed: %w", err)
		}
		if claimed {
			return ErrVoucherAlreadyClaimed
		}

		// First-time users can redeem before ever talking to the bot proper.
		if _, err := tx.Exec(
			`INSERT INTO users (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`,
			userID); err != nil {
			return fmt.Errorf("lazy user create failed: %w", err)
		}

		newBalance, err := s.balance.creditTx(tx, userID, amount)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(
			`UPDATE vouchers SET used = used + 1 WHERE id = $1`, voucherID); err != nil {
			return fmt.Errorf("voucher burn failed: %w", err)
		}

		if _, err := tx.Exec(
			`INSERT INTO voucher_claims (voucher_id, user_id) VALUES ($1, $2)`,
			voucherID, userID); err != nil {
			// The primary key is the backstop for a concurrent claim that
			// slipped past the exists check before our lock.
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return ErrVoucherAlreadyClaimed
			}
			return fmt.Errorf("claim insert failed: %w", err)
		}

		redemption = models.Redemption{Amount: amount, NewBalance: newBalance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &redemption, nil
}

// CreateVoucherParams describes a new promotional code.
type CreateVoucherParams struct {
	Code   string `json:"code" validate:"required,min=3,max=32"`
	Amount int64  `json:"amount" validate:"required,gt=0"`
	Quota  int    `json:"quota" validate:"gte=0"`
}

// CreateVoucher stores a new voucher; the code is uppercased.
func (s *VoucherService) CreateVoucher(ctx context.Context, params CreateVoucherParams) (*models.Voucher, error) {
	v := models.Voucher{
		ID:     uuid.NewString(),
		Code:   strings.ToUpper(strings.TrimSpace(params.Code)),
		Amount: params.Amount,
		Quota:  params.Quota,
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO vouchers (id, code, amount, quota)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		v.ID, v.Code, v.Amount, v.Quota).Scan(&v.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, fmt.Errorf("voucher code %s already exists", v.Code)
		}
		return nil, fmt.Errorf("voucher insert failed: %w", err)
	}
	return &v, nil
}

// ListVouchers returns all vouchers, newest first.
func (s *VoucherService) ListVouchers(ctx context.Context) ([]models.Voucher, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, code, amount, quota, used, created_at
		FROM vouchers ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("voucher list failed: %w", err)
	}
	defer rows.Close()

	var vouchers []models.Voucher
	for rows.Next() {
		var v models.Voucher
		if err := rows.Scan(&v.ID, &v.Code, &v.Amount, &v.Quota, &v.Used, &v.CreatedAt); err != nil {
			return nil, err
		}
		vouchers = append(vouchers, v)
	}
	return vouchers, rows.Err()
}

// DeleteVoucher removes a voucher and its claims.
func (s *VoucherService) DeleteVoucher(ctx context.Context, voucherID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM vouchers WHERE id = $1`, voucherID)
	if err != nil {
		return fmt.Errorf("voucher delete failed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInvalidVoucherCode
	}
	return nil
}

package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/spf13/viper"

	"github.com/akunflix/backend/internal/models"
)

const userColumns = `id, first_name, username, role, balance, referred_by, is_first_buy, created_at, updated_at`

// UserService manages user records and the referral program.
type UserService struct {
	db      *sql.DB
	balance *BalanceService
}

func NewUserService(db *sql.DB, balance *BalanceService) *UserService {
	return &UserService{db: db, balance: balance}
}

// GetOrCreateUser returns the user with the given platform identity,
// creating it lazily on first interaction. A non-empty profile refreshes the
// stored name fields; empty fields never clobber existing values.
func (s *UserService) GetOrCreateUser(ctx context.Context, id string, profile models.UserProfile) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO users (id, first_name, username)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			first_name = COALESCE(NULLIF(EXCLUDED.first_name, ''), users.first_name),
			username   = COALESCE(NULLIF(EXCLUDED.username, ''), users.username),
			updated_at = now()
		RETURNING `+userColumns,
		id, profile.FirstName, profile.Username)

	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("get-or-create user failed: %w", err)
	}
	return user, nil
}

// GetUser returns a user without creating one.
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user failed: %w", err)
	}
	return user, nil
}

// UpdateUserRole is the admin edit for a user's role. The stored value is
// normalized through ParseRole so legacy free-form strings cannot re-enter.
func (s *UserService) UpdateUserRole(ctx context.Context, id, role string) error {
	normalized := string(models.ParseRole(role))
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET role = $1, updated_at = now() WHERE id = $2`, normalized, id)
	if err != nil {
		return fmt.Errorf("role update failed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListUsers returns users for a broadcast target: all, reseller or customer.
func (s *UserService) ListUsers(ctx context.Context, target string) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	switch target {
	case models.TargetReseller:
		query += ` WHERE role <> 'customer'`
	case models.TargetCustomer:
		query += ` WHERE role = 'customer'`
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("user list failed: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// SetReferrer links a user to the referrer that invited them. The link is
// write-once and self-referrals are rejected; returns true when the link was
// actually written.
func (s *UserService) SetReferrer(ctx context.Context, userID, referrerID string) (bool, error) {
	if userID == referrerID {
		return false, nil
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET referred_by = $2, updated_at = now()
		WHERE id = $1 AND referred_by = ''`, userID, referrerID)
	if err != nil {
		return false, fmt.Errorf("set referrer failed: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// RewardReferrer pays the referral commission after a user's first purchase:
// credit the referrer, clear the first-buy flag and write an audit log row,
// all in one transaction. Users without a referrer, or past their first buy,
// are a no-op.
func (s *UserService) RewardReferrer(ctx context.Context, userID string) error {
	commission := viper.GetInt64("store.referral_commission")
	if commission <= 0 {
		commission = 1000
	}

	return runTx(ctx, s.db, func(tx *sql.Tx) error {
		var referrerID string
		var isFirstBuy bool
		err := tx.QueryRow(
			`SELECT referred_by, is_first_buy FROM users WHERE id = $1 FOR UPDATE`,
			userID).Scan(&referrerID, &isFirstBuy)
		if err == sql.ErrNoRows {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("referral lookup failed: %w", err)
		}

		if _, err := tx.Exec(
			`UPDATE users SET is_first_buy = false, updated_at = now() WHERE id = $1`,
			userID); err != nil {
			return fmt.Errorf("first-buy flag update failed: %w", err)
		}

		if referrerID == "" || !isFirstBuy {
			return nil
		}

		if _, err := s.balance.creditTx(tx, referrerID, commission); err != nil {
			// The referrer may have been deleted; the purchase should not
			// fail because of a dangling referral link.
			if err == ErrUserNotFound {
				log.Printf("[REFERRAL] Referrer %s of user %s no longer exists", referrerID, userID)
				return nil
			}
			return err
		}

		if _, err := tx.Exec(`
			INSERT INTO system_logs (action, details, type)
			VALUES ('REFERRAL_COMMISSION', $1, 'info')`,
			fmt.Sprintf("User %s first buy rewarded %s with Rp %d", userID, referrerID, commission)); err != nil {
			return fmt.Errorf("referral log failed: %w", err)
		}
		return nil
	})
}

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.FirstName, &u.Username, &u.Role, &u.Balance,
		&u.ReferredBy, &u.IsFirstBuy, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

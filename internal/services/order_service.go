package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/akunflix/backend/internal/models"
)

// OrderService owns the order state machine and the settlement protocol.
//
// SettleOrder runs as one store transaction spanning the order row, the
// buyer's balance and the claimed inventory record. The order row lock
// doubles as the idempotency guard: a retried confirmation waits on the
// lock, then finds the order no longer pending and short-circuits without
// touching inventory. A failure anywhere in the protocol rolls back every
// mutation, so a buyer can never be debited without receiving an account.
type OrderService struct {
	db        *sql.DB
	inventory *InventoryService
	balance   *BalanceService
	users     *UserService
}

func NewOrderService(db *sql.DB, inventory *InventoryService, balance *BalanceService, users *UserService) *OrderService {
	return &OrderService{
		db:        db,
		inventory: inventory,
		balance:   balance,
		users:     users,
	}
}

// CreateOrderParams is the purchase intent recorded by CreateOrder.
type CreateOrderParams struct {
	BuyerID       string `json:"buyer_id" validate:"required"`
	BuyerName     string `json:"buyer_name" validate:"required"`
	BuyerUsername string `json:"buyer_username"`
	PackageType   string `json:"package_type" validate:"required,package"`
	Price         int64  `json:"price" validate:"required,gt=0"`
}

// CreateOrder inserts a pending order. Inventory is untouched until the
// order settles.
func (s *OrderService) CreateOrder(ctx context.Context, params CreateOrderParams) (string, error) {
	id := uuid.NewString()
	err := runTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			INSERT INTO orders (id, buyer_id, buyer_name, buyer_username, package_type, price)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			id, params.BuyerID, params.BuyerName, params.BuyerUsername,
			params.PackageType, params.Price); err != nil {
			return fmt.Errorf("order insert failed: %w", err)
		}
		notifyTx(tx, "orders", fmt.Sprintf(`{"id":%q,"payment_status":"pending"}`, id))
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetOrder returns a single order.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var o models.Order
	err := s.db.QueryRowContext(ctx, `
		SELECT id, buyer_id, buyer_name, buyer_username, package_type, price,
		       payment_status, account_sent, created_at, updated_at
		FROM orders WHERE id = $1`, orderID).
		Scan(&o.ID, &o.BuyerID, &o.BuyerName, &o.BuyerUsername, &o.PackageType,
			&o.Price, &o.PaymentStatus, &o.AccountSent, &o.CreatedAt, &o.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("order lookup failed: %w", err)
	}
	return &o, nil
}

// ListOrders returns recent orders for the dashboard history view.
func (s *OrderService) ListOrders(ctx context.Context, status string, limit int) ([]models.Order, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT id, buyer_id, buyer_name, buyer_username, package_type, price,
		       payment_status, account_sent, created_at, updated_at
		FROM orders`
	args := []any{}
	if status != "" {
		query += ` WHERE payment_status = $1 ORDER BY created_at DESC LIMIT $2`
		args = append(args, status, limit)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("order list failed: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.ID, &o.BuyerID, &o.BuyerName, &o.BuyerUsername, &o.PackageType,
			&o.Price, &o.PaymentStatus, &o.AccountSent, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// SettleResult is handed to the adapter for credential delivery.
type SettleResult struct {
	OrderID     string             `json:"order_id"`
	PackageType string             `json:"package_type"`
	Price       int64              `json:"price"`
	Account     models.Credentials `json:"account"`
	// NewBalance is set only for balance payments.
	NewBalance *int64 `json:"new_balance,omitempty"`
}

// SettleOrder confirms payment for a pending order: deduct the buyer's
// balance when paying with stored balance, claim the oldest ready account of
// the ordered package, record the buyer on it and mark the order paid, all
// in one transaction.
func (s *OrderService) SettleOrder(ctx context.Context, orderID, paymentMethod string) (*SettleResult, error) {
	var result SettleResult
	var buyerID string
	err := runTx(ctx, s.db, func(tx *sql.Tx) error {
		var o models.Order
		err := tx.QueryRow(`
			SELECT id, buyer_id, buyer_name, package_type, price, payment_status
			FROM orders WHERE id = $1
			FOR UPDATE`, orderID).
			Scan(&o.ID, &o.BuyerID, &o.BuyerName, &o.PackageType, &o.Price, &o.PaymentStatus)
		if err == sql.ErrNoRows {
			return ErrOrderNotFound
		}
		if err != nil {
			return fmt.Errorf("order lock failed: %w", err)
		}
		if o.PaymentStatus != models.OrderPending {
			return ErrOrderAlreadySettled
		}

		result = SettleResult{OrderID: o.ID, PackageType: o.PackageType, Price: o.Price}
		buyerID = o.BuyerID

		if paymentMethod == models.PaymentBalance {
			newBalance, err := s.balance.deductTx(tx, o.BuyerID, o.Price)
			if err != nil {
				return err
			}
			result.NewBalance = &newBalance
		}

		rec, err := s.inventory.claimTx(tx, o.PackageType)
		if err != nil {
			return err
		}
		if err := s.inventory.markSoldTx(tx, rec.ID, o.BuyerID, o.BuyerName); err != nil {
			return err
		}
		result.Account = rec.Credentials()

		if _, err := tx.Exec(`
			UPDATE orders
			SET payment_status = 'paid', account_sent = true, updated_at = now()
			WHERE id = $1`, o.ID); err != nil {
			return fmt.Errorf("order settle update failed: %w", err)
		}
		notifyTx(tx, "orders", fmt.Sprintf(`{"id":%q,"payment_status":"paid"}`, o.ID))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.inventory.dropStockCache(ctx, result.PackageType)

	// The sale is committed; the referral payout is best-effort and must not
	// fail the settlement.
	if err := s.users.RewardReferrer(ctx, buyerID); err != nil {
		log.Printf("[SETTLE] Referral reward failed for buyer %s: %v", buyerID, err)
	}
	return &result, nil
}

// CancelOrder moves a pending order to cancelled. Terminal orders are
// rejected; a paid order cannot be un-sold from here.
func (s *OrderService) CancelOrder(ctx context.Context, orderID string) error {
	return runTx(ctx, s.db, func(tx *sql.Tx) error {
		var status string
		err := tx.QueryRow(
			`SELECT payment_status FROM orders WHERE id = $1 FOR UPDATE`,
			orderID).Scan(&status)
		if err == sql.ErrNoRows {
			return ErrOrderNotFound
		}
		if err != nil {
			return fmt.Errorf("order lock failed: %w", err)
		}
		if status != models.OrderPending {
			return ErrOrderAlreadySettled
		}

		if _, err := tx.Exec(`
			UPDATE orders
			SET payment_status = 'cancelled', account_sent = false, updated_at = now()
			WHERE id = $1`, orderID); err != nil {
			return fmt.Errorf("order cancel update failed: %w", err)
		}
		notifyTx(tx, "orders", fmt.Sprintf(`{"id":%q,"payment_status":"cancelled"}`, orderID))
		return nil
	})
}

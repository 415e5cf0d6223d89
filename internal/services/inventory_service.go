package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/akunflix/backend/internal/models"
)

const stockCacheTTL = 15 * time.Second

// InventoryService owns the sellable credential records and the FIFO claim
// protocol. All state transitions on a record go through here.
type InventoryService struct {
	db    *sql.DB
	redis *redis.Client
}

func NewInventoryService(db *sql.DB, redisClient *redis.Client) *InventoryService {
	return &InventoryService{
		db:    db,
		redis: redisClient,
	}
}

// ClaimAvailableAccount reserves the oldest ready record of the given
// package inside a single transaction and returns its pre-claim snapshot.
// The row lock taken by the select is what prevents two concurrent claims
// from ever being handed the same record; SKIP LOCKED makes the loser move
// on to the next ready row instead of blocking.
func (s *InventoryService) ClaimAvailableAccount(ctx context.Context, packageType string) (*models.InventoryRecord, error) {
	var rec *models.InventoryRecord
	err := runTx(ctx, s.db, func(tx *sql.Tx) error {
		r, err := s.claimTx(tx, packageType)
		if err != nil {
			return err
		}
		rec = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.dropStockCache(ctx, packageType)
	return rec, nil
}

// claimTx performs the claim inside the caller's transaction. FIFO order is
// defined by created_at with the record id as a stable tie-break.
func (s *InventoryService) claimTx(tx *sql.Tx, packageType string) (*models.InventoryRecord, error) {
	var rec models.InventoryRecord
	err := tx.QueryRow(`
		SELECT id, email, password, profile_name, profile_pin, package_type, status, created_at, updated_at
		FROM inventory
		WHERE status = 'ready' AND package_type = $1
		ORDER BY created_at, id
		LIMIT 1
		FOR UPDATE SKIP LOCKED`, packageType).
		Scan(&rec.ID, &rec.Email, &rec.Password, &rec.ProfileName, &rec.ProfilePIN,
			&rec.PackageType, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, &OutOfStockError{PackageType: packageType}
	}
	if err != nil {
		return nil, fmt.Errorf("claim select failed: %w", err)
	}

	if _, err := tx.Exec(`
		UPDATE inventory
		SET status = 'processing', claimed_at = now(), updated_at = now()
		WHERE id = $1`, rec.ID); err != nil {
		return nil, fmt.Errorf("claim update failed: %w", err)
	}

	notifyTx(tx, "inventory", fmt.Sprintf(`{"id":%q,"status":"processing"}`, rec.ID))
	return &rec, nil
}

// MarkSold records the buyer on a claimed record. It is an unconditional
// update: the caller must hold the claim.
func (s *InventoryService) MarkSold(ctx context.Context, recordID, buyerID, buyerName string) error {
	return runTx(ctx, s.db, func(tx *sql.Tx) error {
		return s.markSoldTx(tx, recordID, buyerID, buyerName)
	})
}

func (s *InventoryService) markSoldTx(tx *sql.Tx, recordID, buyerID, buyerName string) error {
	if _, err := tx.Exec(`
		UPDATE inventory
		SET status = 'sold', buyer_id = $2, buyer_name = $3, sold_at = now(), updated_at = now()
		WHERE id = $1`, recordID, buyerID, buyerName); err != nil {
		return fmt.Errorf("mark sold failed: %w", err)
	}
	notifyTx(tx, "inventory", fmt.Sprintf(`{"id":%q,"status":"sold"}`, recordID))
	return nil
}

// StockCount returns the number of ready records, optionally for a single
// package type. Counts are served from a short-lived Redis cache when one is
// configured; the count is a display value and may trail ongoing writes.
func (s *InventoryService) StockCount(ctx context.Context, packageType string) (int, error) {
	cacheKey := "stock:all"
	if packageType != "" {
		cacheKey = "stock:" + packageType
	}

	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			if n, err := strconv.Atoi(cached); err == nil {
				return n, nil
			}
		}
	}

	var n int
	var err error
	if packageType != "" {
		err = s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM inventory WHERE status = 'ready' AND package_type = $1`,
			packageType).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM inventory WHERE status = 'ready'`).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("stock count failed: %w", err)
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, cacheKey, strconv.Itoa(n), stockCacheTTL).Err(); err != nil {
			log.Printf("[INVENTORY] Stock cache write failed: %v", err)
		}
	}
	return n, nil
}

func (s *InventoryService) dropStockCache(ctx context.Context, packageType string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, "stock:all", "stock:"+packageType).Err(); err != nil {
		log.Printf("[INVENTORY] Stock cache invalidation failed: %v", err)
	}
}

// NewAccount describes one credential to add to inventory.
type NewAccount struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required"`
	ProfileName string `json:"profile_name"`
	ProfilePIN  string `json:"profile_pin"`
	PackageType string `json:"package_type" validate:"required,package"`
}

// AddAccount inserts a single ready record and returns its id.
func (s *InventoryService) AddAccount(ctx context.Context, acc NewAccount) (string, error) {
	id := uuid.NewString()
	err := runTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			INSERT INTO inventory (id, email, password, profile_name, profile_pin, package_type)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			id, acc.Email, acc.Password, acc.ProfileName, acc.ProfilePIN, acc.PackageType); err != nil {
			return fmt.Errorf("inventory insert failed: %w", err)
		}
		notifyTx(tx, "inventory", fmt.Sprintf(`{"id":%q,"status":"ready"}`, id))
		return nil
	})
	if err != nil {
		return "", err
	}
	s.dropStockCache(ctx, acc.PackageType)
	return id, nil
}

// AddAccounts bulk-inserts records in one transaction; either all rows land
// or none do.
func (s *InventoryService) AddAccounts(ctx context.Context, accounts []NewAccount) ([]string, error) {
	ids := make([]string, 0, len(accounts))
	err := runTx(ctx, s.db, func(tx *sql.Tx) error {
		ids = ids[:0]
		for _, acc := range accounts {
			id := uuid.NewString()
			if _, err := tx.Exec(`
				INSERT INTO inventory (id, email, password, profile_name, profile_pin, package_type)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				id, acc.Email, acc.Password, acc.ProfileName, acc.ProfilePIN, acc.PackageType); err != nil {
				return fmt.Errorf("inventory bulk insert failed: %w", err)
			}
			ids = append(ids, id)
		}
		notifyTx(tx, "inventory", fmt.Sprintf(`{"inserted":%d}`, len(accounts)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, acc := range accounts {
		s.dropStockCache(ctx, acc.PackageType)
	}
	return ids, nil
}

// DeleteAccount removes a record outright. Sold records are kept for the
// sales history and refuse deletion.
func (s *InventoryService) DeleteAccount(ctx context.Context, recordID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM inventory WHERE id = $1 AND status <> 'sold'`, recordID)
	if err != nil {
		return fmt.Errorf("inventory delete failed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("inventory record %s not found or already sold", recordID)
	}
	return nil
}

// ListAccounts returns records, newest first, optionally filtered by status.
func (s *InventoryService) ListAccounts(ctx context.Context, status string, limit int) ([]models.InventoryRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT id, email, password, profile_name, profile_pin, package_type, status,
		       buyer_id, buyer_name, claimed_at, created_at, updated_at, sold_at
		FROM inventory`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1 ORDER BY created_at DESC LIMIT $2`
		args = append(args, status, limit)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("inventory list failed: %w", err)
	}
	defer rows.Close()

	var records []models.InventoryRecord
	for rows.Next() {
		var rec models.InventoryRecord
		if err := rows.Scan(&rec.ID, &rec.Email, &rec.Password, &rec.ProfileName, &rec.ProfilePIN,
			&rec.PackageType, &rec.Status, &rec.BuyerID, &rec.BuyerName,
			&rec.ClaimedAt, &rec.CreatedAt, &rec.UpdatedAt, &rec.SoldAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

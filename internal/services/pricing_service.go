package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"

	"github.com/akunflix/backend/internal/database"
	"github.com/akunflix/backend/internal/models"
)

var packageTypes = []string{
	models.PackagePremium,
	models.PackageStandard,
	models.PackageBasic,
	models.PackageSharing,
}

// PricingService resolves the price a role pays for a package. The settings
// document is loaded once into an immutable PriceTable and swapped out on a
// settings change notification, never fetched per lookup.
type PricingService struct {
	db *sql.DB

	mu    sync.RWMutex
	table models.PriceTable
}

func NewPricingService(db *sql.DB) *PricingService {
	s := &PricingService{db: db}
	if err := s.Reload(context.Background()); err != nil {
		log.Printf("[PRICING] Initial settings load failed, using defaults: %v", err)
		s.mu.Lock()
		s.table = BuildPriceTable(nil)
		s.mu.Unlock()
	}
	return s
}

// Reload re-reads the settings singleton and rebuilds the price table.
func (s *PricingService) Reload(ctx context.Context) error {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM settings WHERE id = 1`).Scan(&raw)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("settings load failed: %w", err)
	}

	var doc map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("settings parse failed: %w", err)
		}
	}

	table := BuildPriceTable(doc)
	s.mu.Lock()
	s.table = table
	s.mu.Unlock()
	return nil
}

// Watch reloads the price table whenever the settings channel fires.
func (s *PricingService) Watch(feed *database.Feed) {
	sub := feed.Subscribe("settings")
	go func() {
		for range sub {
			if err := s.Reload(context.Background()); err != nil {
				log.Printf("[PRICING] Settings reload failed: %v", err)
			} else {
				log.Printf("[PRICING] Price table reloaded")
			}
		}
	}()
}

// ResolvePrice returns the price the given role pays for the package.
// Unknown package types resolve to zero; package names are validated at the
// API boundary, and zero is never a sellable price.
func (s *PricingService) ResolvePrice(role models.Role, packageType string) int64 {
	if !models.KnownPackage(packageType) {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	tier := role.PricingTier()
	if prices, ok := s.table[tier]; ok {
		if p, ok := prices[packageType]; ok {
			return p
		}
	}
	return models.DefaultPrices[packageType]
}

// Prices returns the full package price list for a role, for the adapter's
// price menu.
func (s *PricingService) Prices(role models.Role) map[string]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]int64, len(packageTypes))
	for pkg, p := range s.table[role.PricingTier()] {
		out[pkg] = p
	}
	return out
}

// UpdatePrices overwrites the explicit price for one tier/package pair in
// the settings document and notifies subscribers. Passing price <= 0 removes
// the explicit entry so the fallback chain applies again.
func (s *PricingService) UpdatePrices(ctx context.Context, tier models.Role, packageType string, price int64) error {
	err := runTx(ctx, s.db, func(tx *sql.Tx) error {
		var raw []byte
		err := tx.QueryRow(
			`SELECT data FROM settings WHERE id = 1 FOR UPDATE`).Scan(&raw)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("settings lock failed: %w", err)
		}

		doc := map[string]any{}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &doc); err != nil {
				return fmt.Errorf("settings parse failed: %w", err)
			}
		}

		prices, _ := doc["prices"].(map[string]any)
		if prices == nil {
			prices = map[string]any{}
		}
		tierPrices, _ := prices[string(tier)].(map[string]any)
		if tierPrices == nil {
			tierPrices = map[string]any{}
		}
		if price > 0 {
			tierPrices[packageType] = price
		} else {
			delete(tierPrices, packageType)
		}
		prices[string(tier)] = tierPrices
		doc["prices"] = prices

		updated, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`
			INSERT INTO settings (id, data) VALUES (1, $1)
			ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
			updated); err != nil {
			return fmt.Errorf("settings write failed: %w", err)
		}
		notifyTx(tx, "settings", `{"changed":"prices"}`)
		return nil
	})
	if err != nil {
		return err
	}
	return s.Reload(ctx)
}

// BuildPriceTable resolves a raw settings document into the full
// tier -> package -> price table.
//
// The fallback chain per package, oldest schema last:
//  1. prices[tier][package] (current nested schema)
//  2. customer tier only: prices[package] (old nested schema),
//     then the flat "price_<package>" key (oldest schema)
//  3. hardcoded defaults, with the reseller tiers defaulting to a fixed
//     discount off the resolved customer price
func BuildPriceTable(doc map[string]any) models.PriceTable {
	lookup := func(tier models.Role, pkg string) (int64, bool) {
		if doc == nil {
			return 0, false
		}
		prices, _ := doc["prices"].(map[string]any)
		if tierPrices, ok := prices[string(tier)].(map[string]any); ok {
			if p, ok := asPrice(tierPrices[pkg]); ok {
				return p, true
			}
		}
		if tier == models.RoleCustomer {
			if p, ok := asPrice(prices[pkg]); ok {
				return p, true
			}
			if p, ok := asPrice(doc["price_"+pkg]); ok {
				return p, true
			}
		}
		return 0, false
	}

	customer := make(map[string]int64, len(packageTypes))
	for _, pkg := range packageTypes {
		if p, ok := lookup(models.RoleCustomer, pkg); ok {
			customer[pkg] = p
		} else {
			customer[pkg] = models.DefaultPrices[pkg]
		}
	}

	silver := make(map[string]int64, len(packageTypes))
	gold := make(map[string]int64, len(packageTypes))
	for _, pkg := range packageTypes {
		if p, ok := lookup(models.RoleResellerSilver, pkg); ok {
			silver[pkg] = p
		} else {
			silver[pkg] = customer[pkg] - models.SilverDiscount
		}

		if p, ok := lookup(models.RoleResellerGold, pkg); ok {
			gold[pkg] = p
		} else if pkg == models.PackageSharing {
			gold[pkg] = customer[pkg] - models.GoldSharingDiscount
		} else {
			gold[pkg] = customer[pkg] - models.GoldDiscount
		}
	}

	return models.PriceTable{
		models.RoleCustomer:       customer,
		models.RoleResellerSilver: silver,
		models.RoleResellerGold:   gold,
	}
}

// asPrice coerces the value shapes that have appeared in settings documents
// over the years: numbers, numeric strings and json.Number.
func asPrice(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/akunflix/backend/internal/models"
)

func TestBuildPriceTable_Defaults(t *testing.T) {
	table := BuildPriceTable(nil)

	t.Run("customer tier gets the hardcoded defaults", func(t *testing.T) {
		assert.Equal(t, int64(50000), table[models.RoleCustomer]["premium"])
		assert.Equal(t, int64(35000), table[models.RoleCustomer]["standard"])
		assert.Equal(t, int64(25000), table[models.RoleCustomer]["basic"])
		assert.Equal(t, int64(20000), table[models.RoleCustomer]["sharing"])
	})

	t.Run("silver defaults to customer minus 5000", func(t *testing.T) {
		for _, pkg := range packageTypes {
			assert.Equal(t, table[models.RoleCustomer][pkg]-5000,
				table[models.RoleResellerSilver][pkg], pkg)
		}
	})

	t.Run("gold defaults to customer minus 15000, sharing minus 8000", func(t *testing.T) {
		assert.Equal(t, int64(35000), table[models.RoleResellerGold]["premium"])
		assert.Equal(t, int64(20000), table[models.RoleResellerGold]["standard"])
		assert.Equal(t, int64(10000), table[models.RoleResellerGold]["basic"])
		assert.Equal(t, int64(12000), table[models.RoleResellerGold]["sharing"])
	})
}

func TestBuildPriceTable_ExplicitPrices(t *testing.T) {
	t.Run("nested tier prices win", func(t *testing.T) {
		doc := map[string]any{
			"prices": map[string]any{
				"customer":      map[string]any{"premium": float64(60000)},
				"reseller_gold": map[string]any{"premium": float64(42000)},
			},
		}
		table := BuildPriceTable(doc)

		assert.Equal(t, int64(60000), table[models.RoleCustomer]["premium"])
		assert.Equal(t, int64(42000), table[models.RoleResellerGold]["premium"])
		// Silver has no explicit price; the discount applies to the
		// resolved customer price, not the default.
		assert.Equal(t, int64(55000), table[models.RoleResellerSilver]["premium"])
	})

	t.Run("legacy nested schema applies to customers only", func(t *testing.T) {
		doc := map[string]any{
			"prices": map[string]any{"premium": float64(58000)},
		}
		table := BuildPriceTable(doc)

		assert.Equal(t, int64(58000), table[models.RoleCustomer]["premium"])
		assert.Equal(t, int64(53000), table[models.RoleResellerSilver]["premium"])
		assert.Equal(t, int64(43000), table[models.RoleResellerGold]["premium"])
	})

	t.Run("oldest flat schema still resolves", func(t *testing.T) {
		doc := map[string]any{
			"price_basic": float64(22000),
		}
		table := BuildPriceTable(doc)

		assert.Equal(t, int64(22000), table[models.RoleCustomer]["basic"])
		assert.Equal(t, int64(17000), table[models.RoleResellerSilver]["basic"])
	})

	t.Run("current schema beats the legacy schemas", func(t *testing.T) {
		doc := map[string]any{
			"prices": map[string]any{
				"customer": map[string]any{"premium": float64(61000)},
				"premium":  float64(58000),
			},
			"price_premium": float64(55000),
		}
		table := BuildPriceTable(doc)

		assert.Equal(t, int64(61000), table[models.RoleCustomer]["premium"])
	})
}

func TestAsPrice(t *testing.T) {
	cases := []struct {
		name  string
		input any
		want  int64
		ok    bool
	}{
		{"float64", float64(50000), 50000, true},
		{"int64", int64(50000), 50000, true},
		{"int", 50000, 50000, true},
		{"json number", json.Number("50000"), 50000, true},
		{"numeric string", "50000", 50000, true},
		{"garbage string", "lots", 0, false},
		{"nil", nil, 0, false},
		{"bool", true, 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := asPrice(tc.input)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPricingService_ResolvePrice(t *testing.T) {
	s := &PricingService{table: BuildPriceTable(nil)}

	t.Run("admins buy at the gold tier", func(t *testing.T) {
		assert.Equal(t, int64(35000), s.ResolvePrice(models.RoleAdmin, "premium"))
	})

	t.Run("customer pays list price", func(t *testing.T) {
		assert.Equal(t, int64(50000), s.ResolvePrice(models.RoleCustomer, "premium"))
	})

	t.Run("unknown package resolves to zero", func(t *testing.T) {
		assert.Equal(t, int64(0), s.ResolvePrice(models.RoleCustomer, "platinum"))
	})

	t.Run("unknown package resolves to zero even with a table entry", func(t *testing.T) {
		table := BuildPriceTable(nil)
		table[models.RoleCustomer]["platinum"] = 99000
		stray := &PricingService{table: table}
		assert.Equal(t, int64(0), stray.ResolvePrice(models.RoleCustomer, "platinum"))
	})
}

func TestPricingService_Prices(t *testing.T) {
	s := &PricingService{table: BuildPriceTable(nil)}

	prices := s.Prices(models.RoleResellerSilver)
	assert.Len(t, prices, 4)
	assert.Equal(t, int64(45000), prices["premium"])

	// The returned map is a copy; mutating it must not poison the table.
	prices["premium"] = 1
	assert.Equal(t, int64(45000), s.Prices(models.RoleResellerSilver)["premium"])
}

package models

// DefaultPrices are the hardcoded fallback prices (rupiah) used when the
// settings document carries no value for a package.
var DefaultPrices = map[string]int64{
	PackagePremium:  50000,
	PackageStandard: 35000,
	PackageBasic:    25000,
	PackageSharing:  20000,
}

// Reseller tier discounts applied when a tier has no explicit price of its
// own. Gold sharing uses a smaller cut than the other gold packages.
const (
	SilverDiscount      = 5000
	GoldDiscount        = 15000
	GoldSharingDiscount = 8000
)

// Settings is the singleton settings document. Prices holds the current
// nested schema (tier -> package -> price); the legacy fields survive so
// settings documents written by older dashboard versions keep resolving.
type Settings struct {
	// Current schema: prices["reseller_gold"]["premium"] = 35000.
	// Legacy nested schema stored customer prices directly at the top level:
	// prices["premium"] = 50000.
	Prices map[string]any `json:"prices,omitempty"`

	// Legacy flat keys, e.g. "price_premium": 50000.
	LegacyFlat map[string]int64 `json:"-"`
}

// PriceTable is the fully resolved tier -> package -> price mapping handed
// to the pricing service. It is a value object: resolve once from Settings,
// reload on change notification.
type PriceTable map[Role]map[string]int64

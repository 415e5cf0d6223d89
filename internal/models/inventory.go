package models

import "time"

// Inventory record lifecycle states.
const (
	StatusReady      = "ready"
	StatusProcessing = "processing"
	StatusSold       = "sold"
)

// Package types sold by the store.
const (
	PackagePremium  = "premium"
	PackageStandard = "standard"
	PackageBasic    = "basic"
	PackageSharing  = "sharing"
)

// KnownPackage reports whether pkg is one of the sellable package types.
func KnownPackage(pkg string) bool {
	switch pkg {
	case PackagePremium, PackageStandard, PackageBasic, PackageSharing:
		return true
	}
	return false
}

// InventoryRecord is a single sellable credential. A record is created in
// `ready` state, moves to `processing` when claimed by exactly one buyer's
// settlement and to `sold` once the buyer is recorded. ClaimedAt carries the
// reservation lease used by the reaper.
type InventoryRecord struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Password    string     `json:"password"`
	ProfileName string     `json:"profile_name,omitempty"`
	ProfilePIN  string     `json:"profile_pin,omitempty"`
	PackageType string     `json:"package_type"`
	Status      string     `json:"status"`
	BuyerID     string     `json:"buyer_id,omitempty"`
	BuyerName   string     `json:"buyer_name,omitempty"`
	ClaimedAt   *time.Time `json:"claimed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	SoldAt      *time.Time `json:"sold_at,omitempty"`
}

// Credentials is the subset of an inventory record delivered to a buyer.
type Credentials struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	ProfileName string `json:"profile_name,omitempty"`
	ProfilePIN  string `json:"profile_pin,omitempty"`
}

// Credentials returns the deliverable fields of the record.
func (r *InventoryRecord) Credentials() Credentials {
	return Credentials{
		Email:       r.Email,
		Password:    r.Password,
		ProfileName: r.ProfileName,
		ProfilePIN:  r.ProfilePIN,
	}
}

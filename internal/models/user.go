package models

import (
	"strings"
	"time"
)

// Role is a closed enumeration of user roles. Legacy settings documents and
// admin edits used free-form role strings ("Reseller Gold", "reseller"), so
// ParseRole keeps the old substring matching but the rest of the codebase
// only ever sees one of these four values.
type Role string

const (
	RoleCustomer       Role = "customer"
	RoleResellerSilver Role = "reseller_silver"
	RoleResellerGold   Role = "reseller_gold"
	RoleAdmin          Role = "admin"
)

// ParseRole normalizes a stored role string to a Role.
func ParseRole(s string) Role {
	r := strings.ToLower(strings.TrimSpace(s))
	switch {
	case r == "admin":
		return RoleAdmin
	case strings.Contains(r, "gold"):
		return RoleResellerGold
	case strings.Contains(r, "silver"), strings.Contains(r, "reseller"):
		return RoleResellerSilver
	default:
		return RoleCustomer
	}
}

// PricingTier maps a role to the pricing bracket it pays. Admins buy at the
// gold tier.
func (r Role) PricingTier() Role {
	switch r {
	case RoleAdmin, RoleResellerGold:
		return RoleResellerGold
	case RoleResellerSilver:
		return RoleResellerSilver
	default:
		return RoleCustomer
	}
}

// Reseller reports whether the role gets reseller privileges (special
// pricing, balance payments).
func (r Role) Reseller() bool {
	return r != RoleCustomer
}

// User is a storefront customer or reseller, keyed by the chat platform
// identity. Balance is stored in whole rupiah and never goes negative.
type User struct {
	ID         string    `json:"id"`
	FirstName  string    `json:"first_name"`
	Username   string    `json:"username,omitempty"`
	Role       string    `json:"role"`
	Balance    int64     `json:"balance"`
	ReferredBy string    `json:"referred_by,omitempty"`
	IsFirstBuy bool      `json:"is_first_buy"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UserProfile carries the mutable identity fields supplied by a front-end
// adapter on each interaction.
type UserProfile struct {
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

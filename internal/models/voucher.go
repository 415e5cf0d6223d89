package models

import "time"

// Voucher is a promotional balance credit. Quota 0 means unlimited uses;
// otherwise used must stay <= quota. A user may claim a given voucher at
// most once, enforced by the voucher_claims primary key.
type Voucher struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Amount    int64     `json:"amount"`
	Quota     int       `json:"quota"`
	Used      int       `json:"used"`
	CreatedAt time.Time `json:"created_at"`
}

// VoucherClaim records one user's redemption of a voucher.
type VoucherClaim struct {
	VoucherID string    `json:"voucher_id"`
	UserID    string    `json:"user_id"`
	ClaimedAt time.Time `json:"claimed_at"`
}

// Redemption is the result handed back to the adapter after a successful
// voucher redemption.
type Redemption struct {
	Amount     int64 `json:"amount"`
	NewBalance int64 `json:"new_balance"`
}

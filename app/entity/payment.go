package entity

import "time"

// Payment is a ledger row recording the approved provider payment that
// granted course access. PaymentID is unique.
type Payment struct {
	PaymentID string
	UserID    uint64
	Amount    float64
	Status    string
	AppliedAt time.Time
}

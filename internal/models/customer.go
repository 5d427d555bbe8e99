package models

import (
	"time"
)

// Customer holds credit balance of a client
type Customer struct {
	ClientID  string
	Email     *string
	Phone     *string
	Credits   int64
	Blocked   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreditUsage is entity of spent credits
type CreditUsage struct {
	ID        uint64
	ClientID  string
	Amount    int64
	Reason    string
	CreatedAt time.Time
}

// CreditPack is a purchasable bundle of credits
type CreditPack struct {
	ID       string
	Name     string
	Credits  int64
	Price    string
	Currency string
}

package models

import "time"

// TokenPayload contains claims of admin token
type TokenPayload struct {
	Subject   string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

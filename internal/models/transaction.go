package models

import (
	"time"
)

const (
	TransactionPending = "pending"
	TransactionSuccess = "success"
	TransactionFailed  = "failed"
)

// PaymentTransaction records one settlement attempt. The unique index on
// Reference is the replay defense: a gateway reference can be consumed once.
type PaymentTransaction struct {
	ID              uint64  `gorm:"primaryKey;autoIncrement"`
	UserID          uint64  `gorm:"not null;index"`
	Reference       string  `gorm:"uniqueIndex;not null"`
	Amount          float64 `gorm:"type:decimal(10,2);not null"`
	Coins           int     `gorm:"not null"`
	Status          string  `gorm:"not null"`
	GatewayResponse string
	PaidAt          time.Time
	CreatedAt       time.Time
}

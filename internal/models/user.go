package models

import (
	"time"
)

type User struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Email        string `gorm:"uniqueIndex;not null"`
	Username     string `gorm:"not null"`
	SchoolDomain string `gorm:"index;not null"`
	Coins        int    `gorm:"not null;default:10"`
	LastLogin    *time.Time
	CreatedAt    time.Time
}

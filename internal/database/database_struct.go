package database

import "gorm.io/gorm"

// Database wraps the GORM handle; query methods live in per-entity files
// and the coin ledger in ledger.go.
type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

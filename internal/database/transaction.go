package database

import (
	"errors"

	"github.com/thereayou/sneakyspeak/internal/models"
	"gorm.io/gorm"
)

func (d *Database) CreateTransactionTx(tx *gorm.DB, t *models.PaymentTransaction) error {
	return tx.Create(t).Error
}

// FindTransactionByReference returns nil, nil when no settlement has
// consumed the reference yet.
func (d *Database) FindTransactionByReference(reference string) (*models.PaymentTransaction, error) {
	var t models.PaymentTransaction
	err := d.db.Where("reference = ?", reference).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

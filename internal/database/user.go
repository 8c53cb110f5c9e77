package database

import (
	"time"

	"github.com/thereayou/sneakyspeak/internal/models"
	"gorm.io/gorm"
)

func (d *Database) SaveUser(user *models.User) error {
	if err := d.db.Create(user).Error; err != nil {
		return err
	}
	return nil
}

func (d *Database) GetUser(id uint64) (*models.User, error) {
	user := models.User{}
	if err := d.db.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *Database) FindUserByEmail(email string) (*models.User, error) {
	user := models.User{}
	if err := d.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *Database) UpdateLastLogin(id uint64) error {
	return d.db.Model(&models.User{}).Where("id = ?", id).Update("last_login", time.Now()).Error
}

func (d *Database) UpdateUsernameTx(tx *gorm.DB, id uint64, username string) error {
	return tx.Model(&models.User{}).Where("id = ?", id).Update("username", username).Error
}

// GetCoins reads the current balance without touching anything else.
func (d *Database) GetCoins(id uint64) (int, error) {
	user, err := d.GetUser(id)
	if err != nil {
		return 0, err
	}
	return user.Coins, nil
}

// Transaction exposes the underlying transaction helper so services can
// bundle ledger writes with their own.
func (d *Database) Transaction(fn func(tx *gorm.DB) error) error {
	return d.db.Transaction(fn)
}

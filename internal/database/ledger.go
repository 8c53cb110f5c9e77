package database

import (
	"github.com/thereayou/sneakyspeak/internal/models"
	"gorm.io/gorm"
)

// casRetries bounds how many times a lost compare-and-swap is retried
// before the conflict surfaces to the caller.
const casRetries = 2

// debitOnce performs one compare-and-swap attempt: the update only commits
// if the stored balance still equals the value just read. Two concurrent
// debits can both read the same balance; only one of them wins the update.
func debitOnce(db *gorm.DB, userID uint64, amount int) (int, error) {
	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		return 0, err
	}

	if user.Coins < amount {
		return user.Coins, ErrInsufficientCoins
	}

	newBalance := user.Coins - amount
	res := db.Model(&models.User{}).
		Where("id = ? AND coins = ?", userID, user.Coins).
		Update("coins", newBalance)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrConcurrentModification
	}

	return newBalance, nil
}

func creditOnce(db *gorm.DB, userID uint64, amount int) (int, error) {
	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		return 0, err
	}

	newBalance := user.Coins + amount
	res := db.Model(&models.User{}).
		Where("id = ? AND coins = ?", userID, user.Coins).
		Update("coins", newBalance)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrConcurrentModification
	}

	return newBalance, nil
}

// DebitCoins subtracts amount from the user's balance, retrying a lost race
// a bounded number of times. Returns the resulting balance.
func (d *Database) DebitCoins(userID uint64, amount int) (int, error) {
	return retryCAS(func() (int, error) {
		return debitOnce(d.db, userID, amount)
	})
}

// CreditCoins adds amount to the user's balance. Growth is uncapped.
func (d *Database) CreditCoins(userID uint64, amount int) (int, error) {
	return retryCAS(func() (int, error) {
		return creditOnce(d.db, userID, amount)
	})
}

// DebitCoinsTx runs a single debit attempt against tx so the caller can
// combine it with other writes in one transaction. No retry: retrying
// inside an open transaction would re-read stale state, the enclosing
// transaction is expected to abort and rerun instead.
func (d *Database) DebitCoinsTx(tx *gorm.DB, userID uint64, amount int) (int, error) {
	return debitOnce(tx, userID, amount)
}

// CreditCoinsTx is the transactional counterpart of CreditCoins.
func (d *Database) CreditCoinsTx(tx *gorm.DB, userID uint64, amount int) (int, error) {
	return creditOnce(tx, userID, amount)
}

func retryCAS(op func() (int, error)) (int, error) {
	balance, err := op()
	for i := 0; i < casRetries && err == ErrConcurrentModification; i++ {
		balance, err = op()
	}
	return balance, err
}

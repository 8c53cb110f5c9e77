package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/thereayou/sneakyspeak/internal/database"
	"github.com/thereayou/sneakyspeak/internal/models"
	"gorm.io/gorm"
)

// Service settles external payments into coin credits. A reference is
// credited at most once.
type Service struct {
	db         *database.Database
	verifier   Verifier
	priceTable map[int]float64
}

func NewService(db *database.Database, verifier Verifier, priceTable map[int]float64) *Service {
	return &Service{db: db, verifier: verifier, priceTable: priceTable}
}

// Settle verifies a gateway payment and credits coins exactly once.
// The gateway is consulted before any transaction opens; the record insert
// and the credit commit together or not at all. Returns the new balance.
func (s *Service) Settle(ctx context.Context, userID uint64, reference string, coins int) (int, error) {
	existing, err := s.db.FindTransactionByReference(reference)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return 0, ErrDuplicateReference
	}

	verification, err := s.verifier.Verify(ctx, reference)
	if err != nil {
		return 0, err
	}

	if verification.Status != "success" {
		return 0, fmt.Errorf("%w: gateway reported %q", ErrVerificationFailed, verification.Status)
	}

	expected, ok := s.priceTable[coins]
	if !ok {
		return 0, fmt.Errorf("%w: no bundle of %d coins", ErrAmountMismatch, coins)
	}
	if verification.PaidAmount != expected {
		return 0, fmt.Errorf("%w: expected %.2f, got %.2f", ErrAmountMismatch, expected, verification.PaidAmount)
	}

	var newBalance int
	err = s.db.Transaction(func(tx *gorm.DB) error {
		record := &models.PaymentTransaction{
			UserID:          userID,
			Reference:       reference,
			Amount:          verification.PaidAmount,
			Coins:           coins,
			Status:          models.TransactionSuccess,
			GatewayResponse: verification.RawPayload,
			PaidAt:          time.Now(),
		}
		if err := s.db.CreateTransactionTx(tx, record); err != nil {
			// A concurrent settle of the same reference got here first.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateReference
			}
			return err
		}

		balance, err := s.db.CreditCoinsTx(tx, userID, coins)
		if err != nil {
			return err
		}
		newBalance = balance
		return nil
	})
	if err != nil {
		return 0, err
	}

	log.Printf("settled payment %s: user %d credited %d coins", reference, userID, coins)

	return newBalance, nil
}

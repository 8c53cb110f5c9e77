package payment

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/sneakyspeak/internal/database"
	"github.com/thereayou/sneakyspeak/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testPriceTable = map[int]float64{20: 200, 50: 400, 100: 700}

type fakeVerifier struct {
	status     string
	paidAmount float64
	err        error
	calls      int
	onVerify   func()
}

func (f *fakeVerifier) Verify(_ context.Context, _ string) (*Verification, error) {
	f.calls++
	if f.onVerify != nil {
		f.onVerify()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &Verification{
		Status:     f.status,
		PaidAmount: f.paidAmount,
		RawPayload: `{"status":true}`,
	}, nil
}

func newTestDB(t *testing.T) *database.Database {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Message{}, &models.PaymentTransaction{}))

	return database.NewDatabase(db)
}

func createUser(t *testing.T, d *database.Database, coins int) *models.User {
	t.Helper()
	user := &models.User{
		Email:        "student@school.edu",
		Username:     "student42",
		SchoolDomain: "school.edu",
		Coins:        coins,
	}
	require.NoError(t, d.SaveUser(user))
	return user
}

func TestSettleSuccess(t *testing.T) {
	d := newTestDB(t)
	user := createUser(t, d, 10)
	verifier := &fakeVerifier{status: "success", paidAmount: 200}
	svc := NewService(d, verifier, testPriceTable)

	balance, err := svc.Settle(context.Background(), user.ID, "ref1", 20)
	require.NoError(t, err)
	assert.Equal(t, 30, balance)

	record, err := d.FindTransactionByReference("ref1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, models.TransactionSuccess, record.Status)
	assert.Equal(t, 20, record.Coins)
	assert.Equal(t, float64(200), record.Amount)
}

func TestSettleTwiceCreditsOnce(t *testing.T) {
	d := newTestDB(t)
	user := createUser(t, d, 0)
	verifier := &fakeVerifier{status: "success", paidAmount: 200}
	svc := NewService(d, verifier, testPriceTable)

	balance, err := svc.Settle(context.Background(), user.ID, "ref1", 20)
	require.NoError(t, err)
	assert.Equal(t, 20, balance)

	_, err = svc.Settle(context.Background(), user.ID, "ref1", 20)
	assert.ErrorIs(t, err, ErrDuplicateReference)

	coins, err := d.GetCoins(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, coins, "second settle must not credit again")

	assert.Equal(t, 1, verifier.calls, "duplicate must be rejected before re-querying the gateway")
}

func TestSettleAmountMismatch(t *testing.T) {
	d := newTestDB(t)
	user := createUser(t, d, 10)
	verifier := &fakeVerifier{status: "success", paidAmount: 150}
	svc := NewService(d, verifier, testPriceTable)

	_, err := svc.Settle(context.Background(), user.ID, "ref1", 20)
	assert.ErrorIs(t, err, ErrAmountMismatch)

	coins, err := d.GetCoins(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, coins)

	record, err := d.FindTransactionByReference("ref1")
	require.NoError(t, err)
	assert.Nil(t, record, "a mismatched payment must leave no settlement record")
}

func TestSettleUnknownBundle(t *testing.T) {
	d := newTestDB(t)
	user := createUser(t, d, 0)
	verifier := &fakeVerifier{status: "success", paidAmount: 330}
	svc := NewService(d, verifier, testPriceTable)

	_, err := svc.Settle(context.Background(), user.ID, "ref1", 33)
	assert.ErrorIs(t, err, ErrAmountMismatch)
}

func TestSettleVerificationFailed(t *testing.T) {
	d := newTestDB(t)
	user := createUser(t, d, 0)
	verifier := &fakeVerifier{status: "failed", paidAmount: 200}
	svc := NewService(d, verifier, testPriceTable)

	_, err := svc.Settle(context.Background(), user.ID, "ref1", 20)
	assert.ErrorIs(t, err, ErrVerificationFailed)

	coins, err := d.GetCoins(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, coins)
}

func TestSettleVerifierUnavailable(t *testing.T) {
	d := newTestDB(t)
	user := createUser(t, d, 0)
	verifier := &fakeVerifier{err: fmt.Errorf("%w: connection refused", ErrVerifierUnavailable)}
	svc := NewService(d, verifier, testPriceTable)

	_, err := svc.Settle(context.Background(), user.ID, "ref1", 20)
	assert.ErrorIs(t, err, ErrVerifierUnavailable)

	record, err := d.FindTransactionByReference("ref1")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestSettleLosingInsertRaceReportsDuplicate(t *testing.T) {
	d := newTestDB(t)
	user := createUser(t, d, 0)
	verifier := &fakeVerifier{status: "success", paidAmount: 200}
	svc := NewService(d, verifier, testPriceTable)

	// Another settle of the same reference commits between the duplicate
	// pre-check and our insert. The unique index is the last line of defense.
	verifier.onVerify = func() {
		require.NoError(t, d.Transaction(func(tx *gorm.DB) error {
			return d.CreateTransactionTx(tx, &models.PaymentTransaction{
				UserID:    user.ID,
				Reference: "ref1",
				Amount:    200,
				Coins:     20,
				Status:    models.TransactionSuccess,
			})
		}))
	}

	_, err := svc.Settle(context.Background(), user.ID, "ref1", 20)
	assert.ErrorIs(t, err, ErrDuplicateReference)

	coins, err := d.GetCoins(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, coins, "the losing settle must not credit")
}

func TestSettleAtomicity(t *testing.T) {
	d := newTestDB(t)
	verifier := &fakeVerifier{status: "success", paidAmount: 200}
	svc := NewService(d, verifier, testPriceTable)

	// The credit fails (no such user), so the settlement record created in
	// the same transaction must be rolled back with it.
	_, err := svc.Settle(context.Background(), 999, "ref1", 20)
	require.Error(t, err)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	record, err := d.FindTransactionByReference("ref1")
	require.NoError(t, err)
	assert.Nil(t, record, "a failed credit must not leave an orphaned settlement record")
}

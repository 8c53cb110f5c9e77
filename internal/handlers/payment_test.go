package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/thereayou/sneakyspeak/internal/database"
	"github.com/thereayou/sneakyspeak/internal/middleware"
	"github.com/thereayou/sneakyspeak/internal/models"
	"github.com/thereayou/sneakyspeak/internal/payment"
)

type stubVerifier struct {
	status     string
	paidAmount float64
	err        error
}

func (s *stubVerifier) Verify(_ context.Context, _ string) (*payment.Verification, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &payment.Verification{Status: s.status, PaidAmount: s.paidAmount, RawPayload: "{}"}, nil
}

func newPaymentRig(t *testing.T, verifier payment.Verifier) (*gin.Engine, *database.Database, *models.User) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Message{}, &models.PaymentTransaction{}))
	d := database.NewDatabase(db)

	user := &models.User{
		Email:        "student@school.edu",
		Username:     "student42",
		SchoolDomain: "school.edu",
		Coins:        10,
	}
	require.NoError(t, d.SaveUser(user))

	settlement := payment.NewService(d, verifier, map[int]float64{20: 200, 50: 400, 100: 700})
	h := NewPaymentHandler(settlement)

	r := gin.New()
	r.POST("/api/payment/verify/:reference", func(c *gin.Context) {
		c.Set(middleware.UserIDKey, user.ID)
	}, h.VerifyPayment)

	return r, d, user
}

func settle(r *gin.Engine, reference string, coins int) *httptest.ResponseRecorder {
	data, _ := json.Marshal(gin.H{"coins": coins})
	req := httptest.NewRequest(http.MethodPost, "/api/payment/verify/"+reference, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestVerifyPaymentSuccess(t *testing.T) {
	r, d, user := newPaymentRig(t, &stubVerifier{status: "success", paidAmount: 200})

	w := settle(r, "ref1", 20)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Coins   int  `json:"coins"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 30, resp.Coins)

	coins, err := d.GetCoins(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, coins)
}

func TestVerifyPaymentDuplicateReference(t *testing.T) {
	r, d, user := newPaymentRig(t, &stubVerifier{status: "success", paidAmount: 200})

	require.Equal(t, http.StatusOK, settle(r, "ref1", 20).Code)

	w := settle(r, "ref1", 20)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	coins, err := d.GetCoins(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, coins, "replayed reference must not credit twice")
}

func TestVerifyPaymentAmountMismatch(t *testing.T) {
	r, d, user := newPaymentRig(t, &stubVerifier{status: "success", paidAmount: 150})

	w := settle(r, "ref1", 20)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	coins, err := d.GetCoins(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, coins)
}

func TestVerifyPaymentGatewayDown(t *testing.T) {
	r, _, _ := newPaymentRig(t, &stubVerifier{err: payment.ErrVerifierUnavailable})

	w := settle(r, "ref1", 20)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestVerifyPaymentBadBody(t *testing.T) {
	r, _, _ := newPaymentRig(t, &stubVerifier{status: "success", paidAmount: 200})

	req := httptest.NewRequest(http.MethodPost, "/api/payment/verify/ref1", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"github.com/thereayou/sneakyspeak/internal/config"
	"github.com/thereayou/sneakyspeak/internal/database"
	"github.com/thereayou/sneakyspeak/internal/handlers/dto"
	"github.com/thereayou/sneakyspeak/internal/mail"
	"github.com/thereayou/sneakyspeak/internal/middleware"
	"github.com/thereayou/sneakyspeak/internal/models"
	"github.com/thereayou/sneakyspeak/internal/verification"
	"github.com/thereayou/sneakyspeak/pkg/auth"
)

type AuthHandler struct {
	db         *database.Database
	jwtManager *auth.JWTManager
	redis      *redis.Client
	challenges *verification.Store
	mailer     mail.Sender
	cfg        *config.Config
}

func NewAuthHandler(db *database.Database, jwtMgr *auth.JWTManager, rdb *redis.Client,
	challenges *verification.Store, mailer mail.Sender, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		db:         db,
		jwtManager: jwtMgr,
		redis:      rdb,
		challenges: challenges,
		mailer:     mailer,
		cfg:        cfg,
	}
}

// Login starts passwordless sign-in: school-domain check, then a one-time
// code by email. No user row is created yet.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, ok := schoolDomain(email, h.cfg.AllowedEmailDomains); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "must use a school email address"})
		return
	}

	code, err := h.challenges.Issue(email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start verification"})
		return
	}

	if err := h.mailer.Send(email, "SneakySpeak Verification Code", mail.VerificationEmail(code)); err != nil {
		log.Printf("verification mail to %s failed: %v", email, err)
		h.challenges.Revoke(email)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send verification code"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "verification code sent to your email"})
}

// Verify completes sign-in: checks the code, creates the user on first
// sight, and issues the session token as both a cookie and a body field.
func (h *AuthHandler) Verify(c *gin.Context) {
	var req dto.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := h.challenges.Verify(email, req.Code); err != nil {
		switch {
		case errors.Is(err, verification.ErrExpired):
			c.JSON(http.StatusBadRequest, gin.H{"error": "verification code expired"})
		case errors.Is(err, verification.ErrNotFound):
			c.JSON(http.StatusBadRequest, gin.H{"error": "no verification code found or code expired"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid verification code"})
		}
		return
	}

	user, err := h.db.FindUserByEmail(email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		domain, _ := schoolDomain(email, h.cfg.AllowedEmailDomains)
		user = &models.User{
			Email:        email,
			Username:     generateUsername(email),
			SchoolDomain: domain,
			Coins:        h.cfg.StartingCoins,
			CreatedAt:    time.Now(),
		}
		if err := h.db.SaveUser(user); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
			return
		}
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}

	if err := h.db.UpdateLastLogin(user.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update last login"})
		return
	}

	token, err := h.jwtManager.Generate(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate token"})
		return
	}

	h.setTokenCookie(c, token)

	c.JSON(http.StatusOK, gin.H{
		"user":  userResponse(user),
		"token": token,
	})
}

// Logout blacklists the token in Redis until it would have expired.
func (h *AuthHandler) Logout(c *gin.Context) {
	rawToken, err := auth.ExtractToken(c.Request)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	exp, err := h.jwtManager.Expiry(rawToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	ttl := time.Until(exp)
	if ttl > 0 {
		h.redis.Set(context.Background(), "blacklist:"+rawToken, 1, ttl)
	}

	h.clearTokenCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Profile returns the current user.
func (h *AuthHandler) Profile(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uint64)

	user, err := h.db.GetUser(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, userResponse(user))
}

// UpdateUsername changes the display name for a coin fee. The debit and the
// rename commit together.
func (h *AuthHandler) UpdateUsername(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uint64)

	var req dto.UpdateUsernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	username := strings.TrimSpace(req.Username)
	if len(username) < 3 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username must be at least 3 characters long"})
		return
	}

	cost := h.cfg.UsernameChangeCost
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if _, err := h.db.DebitCoinsTx(tx, userID, cost); err != nil {
			return err
		}
		return h.db.UpdateUsernameTx(tx, userID, username)
	})
	if errors.Is(err, database.ErrInsufficientCoins) {
		coins, _ := h.db.GetCoins(userID)
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error": fmt.Sprintf("insufficient coins: username change requires %d coins, you have %d", cost, coins),
		})
		return
	}
	if err != nil {
		log.Printf("username change for user %d failed: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update username"})
		return
	}

	user, err := h.db.GetUser(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}

	c.JSON(http.StatusOK, userResponse(user))
}

// Refresh re-validates the cookie token and rotates it with a fresh expiry.
func (h *AuthHandler) Refresh(c *gin.Context) {
	rawToken, err := auth.ExtractToken(c.Request)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no token provided"})
		return
	}

	newToken, userID, err := h.jwtManager.Refresh(rawToken)
	if err != nil {
		h.clearTokenCookie(c)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	user, err := h.db.GetUser(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	h.setTokenCookie(c, newToken)

	c.JSON(http.StatusOK, gin.H{
		"user":  userResponse(user),
		"token": newToken,
	})
}

func (h *AuthHandler) setTokenCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(auth.TokenCookie, token, int(h.cfg.TokenTTL.Seconds()), "/", "", gin.Mode() == gin.ReleaseMode, true)
}

func (h *AuthHandler) clearTokenCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(auth.TokenCookie, "", -1, "/", "", gin.Mode() == gin.ReleaseMode, true)
}

func userResponse(user *models.User) dto.UserResponse {
	return dto.UserResponse{
		ID:           user.ID,
		Email:        user.Email,
		Username:     user.Username,
		SchoolDomain: user.SchoolDomain,
		Coins:        user.Coins,
	}
}

// schoolDomain extracts the email's domain and reports whether it ends with
// one of the recognized educational suffixes.
func schoolDomain(email string, allowed []string) (string, bool) {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return "", false
	}
	domain := email[at+1:]

	for _, suffix := range allowed {
		if domain == suffix || strings.HasSuffix(domain, "."+suffix) {
			return domain, true
		}
	}
	return domain, false
}

func generateUsername(email string) string {
	mailbox := email[:strings.Index(email, "@")]

	var b strings.Builder
	for _, r := range mailbox {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}

	return fmt.Sprintf("%s%d", b.String(), rand.Intn(1000))
}

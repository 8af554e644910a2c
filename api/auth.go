package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"bankapi/account"
	"bankapi/ledger"
	"bankapi/models"
	"bankapi/store"
)

const (
	authCookie = "jwt"
	tokenTTL   = 24 * time.Hour
)

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// register creates an account with balance 0, a fresh account number and
// IBAN, and a bcrypt password hash.
func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.fail(c, err)
		return
	}

	number, iban := account.Generate()
	acct := &models.Account{
		ID:            uuid.NewString(),
		Name:          req.Name,
		Email:         req.Email,
		PasswordHash:  string(hash),
		AccountNumber: number,
		IBAN:          iban,
		Balance:       0,
	}
	if err := s.Accounts.Create(c.Request.Context(), acct); err != nil {
		if errors.Is(err, store.ErrDuplicateAccount) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user already exists"})
			return
		}
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":        "User registered successfully",
		"user_id":        acct.ID,
		"account_number": acct.AccountNumber,
		"iban":           acct.IBAN,
	})
}

// login verifies the password and sets a signed JWT cookie carrying the
// account email.
func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	acct, err := s.Accounts.GetByEmail(c.Request.Context(), req.Email)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": acct.Email,
		"exp":   time.Now().Add(tokenTTL).Unix(),
	})
	signed, err := token.SignedString(s.Secret)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.SetCookie(authCookie, signed, int(tokenTTL.Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Login successful"})
}

func (s *Server) logout(c *gin.Context) {
	c.SetCookie(authCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// authRequired resolves the caller account from the JWT cookie and stores
// it in the request context. Every route behind this middleware can assume
// an authenticated account.
func (s *Server) authRequired(c *gin.Context) {
	tokenString, err := c.Cookie(authCookie)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated, please log in"})
		return
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.Secret, nil
	})
	if err != nil || !token.Valid {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token, please log in again"})
		return
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authentication token"})
		return
	}
	email, _ := claims["email"].(string)
	if email == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authentication token"})
		return
	}

	acct, err := s.Accounts.GetByEmail(c.Request.Context(), email)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	if err != nil {
		s.fail(c, err)
		c.Abort()
		return
	}

	c.Set("account", acct)
	c.Next()
}

// callerAccount returns the account resolved by authRequired.
func callerAccount(c *gin.Context) *models.Account {
	acct, _ := c.MustGet("account").(*models.Account)
	return acct
}

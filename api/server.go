// Package api exposes the banking service over HTTP. Handlers resolve the
// caller from a JWT cookie, call the ledger engine, and map its errors to
// status codes: validation and state errors are the client's fault,
// anything else is reported as a generic server error.
package api

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"bankapi/ledger"
	"bankapi/models"
	"bankapi/store"
)

// TransactionQuery is the read side over the transaction log.
type TransactionQuery interface {
	List(ctx context.Context, accountID string, opts store.ListOptions) (*store.TransactionPage, error)
	Get(ctx context.Context, accountID, transactionID string) (*models.Transaction, error)
}

// Server holds the handler dependencies.
type Server struct {
	Engine       *ledger.Engine
	Accounts     ledger.AccountStore
	Transactions TransactionQuery
	Secret       []byte
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.POST("/api/auth/register", s.register)
	r.POST("/api/auth/login", s.login)
	r.POST("/api/auth/logout", s.logout)

	auth := r.Group("/api", s.authRequired)
	auth.GET("/bank/balance", s.getBalance)
	auth.POST("/bank/deposit", s.deposit)
	auth.POST("/bank/withdraw", s.withdraw)
	auth.POST("/bank/transfer", s.transfer)
	auth.GET("/transactions", s.listTransactions)
	auth.GET("/transactions/:id", s.getTransaction)

	return r
}

// fail maps an engine or store error onto an HTTP response.
func (s *Server) fail(c *gin.Context, err error) {
	s.failWith(c, err, "internal server error")
}

// failMutation is fail for the balance-mutating endpoints. A persistence
// failure there leaves an unknown commit state and is never retried
// automatically, so the caller is told to re-check their balance and
// history before trying again.
func (s *Server) failMutation(c *gin.Context, err error) {
	s.failWith(c, err, "the operation may not have completed, please verify your balance and transaction history before retrying")
}

func (s *Server) failWith(c *gin.Context, err error, serverMsg string) {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrMissingRecipient),
		errors.Is(err, ledger.ErrSelfTransfer),
		errors.Is(err, ledger.ErrInsufficientFunds):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, ledger.ErrRecipientNotFound),
		errors.Is(err, store.ErrTransactionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		log.Printf("internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": serverMsg})
	}
}

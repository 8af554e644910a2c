package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bankapi/store"
)

type amountRequest struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

type transferRequest struct {
	RecipientAccount string  `json:"recipient_account"`
	Amount           float64 `json:"amount"`
	Description      string  `json:"description"`
}

func (s *Server) getBalance(c *gin.Context) {
	acct := callerAccount(c)
	c.JSON(http.StatusOK, gin.H{
		"balance":        acct.Balance,
		"account_number": acct.AccountNumber,
		"iban":           acct.IBAN,
	})
}

func (s *Server) deposit(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	acct := callerAccount(c)
	balance, err := s.Engine.Deposit(c.Request.Context(), acct.ID, req.Amount, req.Description)
	if err != nil {
		s.failMutation(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Deposit successful",
		"new_balance": balance,
	})
}

func (s *Server) withdraw(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	acct := callerAccount(c)
	balance, err := s.Engine.Withdraw(c.Request.Context(), acct.ID, req.Amount, req.Description)
	if err != nil {
		s.failMutation(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Withdrawal successful",
		"new_balance": balance,
	})
}

func (s *Server) transfer(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	acct := callerAccount(c)
	balance, err := s.Engine.Transfer(c.Request.Context(), acct.ID, req.RecipientAccount, req.Amount, req.Description)
	if err != nil {
		s.failMutation(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Transfer successful",
		"new_balance": balance,
	})
}

func (s *Server) listTransactions(c *gin.Context) {
	acct := callerAccount(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	opts := store.ListOptions{
		Page:     page,
		PageSize: pageSize,
		Sort:     c.DefaultQuery("sort", "date"),
		Order:    c.DefaultQuery("order", "desc"),
		Type:     c.Query("type"),
		Search:   c.Query("search"),
	}

	result, err := s.Transactions.List(c.Request.Context(), acct.ID, opts)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) getTransaction(c *gin.Context) {
	acct := callerAccount(c)

	tx, err := s.Transactions.Get(c.Request.Context(), acct.ID, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, tx)
}

// Package ledger implements the ledger engine: every balance mutation goes
// through here, and every committed mutation is recorded as an immutable
// transaction carrying the resulting balance snapshot.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"bankapi/models"
)

// Default descriptions applied when the caller supplies none.
const (
	DefaultDepositDescription    = "Deposit"
	DefaultWithdrawalDescription = "Withdrawal"
)

// AccountStore persists accounts and provides atomic balance primitives.
// Credit, Debit and Transfer must apply their mutation under per-account
// mutual exclusion (row lock or equivalent) so that two concurrent
// withdrawals cannot both pass the balance check against a stale read.
//
// Each mutation primitive also returns the commit timestamp, captured
// inside the same critical section. Per account, commit timestamps are
// strictly increasing in commit order, so transactions stamped with them
// replay in the order the balances actually changed.
type AccountStore interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByAccountNumber(ctx context.Context, number string) (*models.Account, error)

	// Credit atomically adds amount to the account balance and returns the
	// new balance. Returns ErrAccountNotFound if the account does not exist.
	Credit(ctx context.Context, id string, amount float64) (float64, time.Time, error)

	// Debit atomically subtracts amount from the account balance and returns
	// the new balance. Returns ErrInsufficientFunds if the balance is lower
	// than amount, leaving the balance unchanged.
	Debit(ctx context.Context, id string, amount float64) (float64, time.Time, error)

	// Transfer atomically debits fromID and credits toID as a single unit.
	// Neither balance changes unless both mutations commit.
	Transfer(ctx context.Context, fromID, toID string, amount float64) (fromBalance, toBalance float64, committedAt time.Time, err error)

	// AppendTransactionID adds a transaction id to the account's denormalized
	// transaction index.
	AppendTransactionID(ctx context.Context, accountID, transactionID string) error
}

// TransactionLog is the append-only record store for transactions.
type TransactionLog interface {
	Insert(ctx context.Context, tx *models.Transaction) error
}

// Event describes a committed ledger operation, published for audit
// consumers after the transaction has been recorded.
type Event struct {
	TransactionID string    `json:"transaction_id"`
	AccountID     string    `json:"account_id"`
	Type          string    `json:"type"`
	Amount        float64   `json:"amount"`
	Balance       float64   `json:"balance"`
	Description   string    `json:"description"`
	Date          time.Time `json:"date"`
}

// EventPublisher delivers committed ledger events to interested consumers.
// Publishing is best-effort: the transaction log is the source of truth.
type EventPublisher interface {
	PublishEvent(event Event) error
}

// Engine orchestrates balance mutation and transaction recording.
type Engine struct {
	accounts AccountStore
	txlog    TransactionLog
	events   EventPublisher
}

// New creates an engine. events may be nil when no queue is configured.
func New(accounts AccountStore, txlog TransactionLog, events EventPublisher) *Engine {
	return &Engine{accounts: accounts, txlog: txlog, events: events}
}

func validAmount(amount float64) bool {
	return amount > 0 && !math.IsNaN(amount) && !math.IsInf(amount, 0)
}

// Deposit adds amount to the account balance and records a deposit
// transaction with the resulting balance. Returns the new balance.
func (e *Engine) Deposit(ctx context.Context, accountID string, amount float64, description string) (float64, error) {
	if !validAmount(amount) {
		return 0, ErrInvalidAmount
	}

	newBalance, committedAt, err := e.accounts.Credit(ctx, accountID, amount)
	if err != nil {
		return 0, err
	}

	if description == "" {
		description = DefaultDepositDescription
	}
	if err := e.recordTransaction(ctx, accountID, models.TypeDeposit, amount, newBalance, description, committedAt); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// Withdraw subtracts amount from the account balance and records a
// withdrawal transaction with the resulting balance. The balance check
// happens inside the store under the account lock, so concurrent
// withdrawals cannot overdraw.
func (e *Engine) Withdraw(ctx context.Context, accountID string, amount float64, description string) (float64, error) {
	if !validAmount(amount) {
		return 0, ErrInvalidAmount
	}

	newBalance, committedAt, err := e.accounts.Debit(ctx, accountID, amount)
	if err != nil {
		return 0, err
	}

	if description == "" {
		description = DefaultWithdrawalDescription
	}
	if err := e.recordTransaction(ctx, accountID, models.TypeWithdrawal, amount, newBalance, description, committedAt); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// Transfer moves amount from the sender to the account identified by
// recipientNumber. The debit and credit commit as a single unit in the
// account store; the two transaction records cross-reference the parties
// by name. Returns the sender's new balance.
func (e *Engine) Transfer(ctx context.Context, senderID, recipientNumber string, amount float64, description string) (float64, error) {
	if recipientNumber == "" {
		return 0, ErrMissingRecipient
	}
	if !validAmount(amount) {
		return 0, ErrInvalidAmount
	}

	sender, err := e.accounts.GetByID(ctx, senderID)
	if err != nil {
		return 0, err
	}
	recipient, err := e.accounts.GetByAccountNumber(ctx, recipientNumber)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return 0, ErrRecipientNotFound
		}
		return 0, err
	}
	if recipient.ID == sender.ID {
		return 0, ErrSelfTransfer
	}

	senderBalance, recipientBalance, committedAt, err := e.accounts.Transfer(ctx, sender.ID, recipient.ID, amount)
	if err != nil {
		return 0, err
	}

	outDesc := fmt.Sprintf("Transfer to %s", recipient.Name)
	inDesc := fmt.Sprintf("Transfer from %s", sender.Name)
	if description != "" {
		outDesc = fmt.Sprintf("%s (to %s)", description, recipient.Name)
		inDesc = fmt.Sprintf("%s (from %s)", description, sender.Name)
	}

	if err := e.recordTransaction(ctx, sender.ID, models.TypeWithdrawal, amount, senderBalance, outDesc, committedAt); err != nil {
		return 0, err
	}
	if err := e.recordTransaction(ctx, recipient.ID, models.TypeDeposit, amount, recipientBalance, inDesc, committedAt); err != nil {
		return 0, err
	}
	return senderBalance, nil
}

// recordTransaction creates and persists a transaction, then appends its id
// to the owning account's transaction index. The record carries the commit
// timestamp the store assigned under the account lock, so sorting by date
// always reproduces the order balances actually changed, even when the
// appends themselves race. The index is a convenience cache: if the append
// fails the record is still reachable through the log's account_id field,
// so the failure is logged and not propagated.
func (e *Engine) recordTransaction(ctx context.Context, accountID, kind string, amount, balance float64, description string, committedAt time.Time) error {
	tx := &models.Transaction{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		Type:        kind,
		Amount:      amount,
		Balance:     balance,
		Description: description,
		Date:        committedAt,
	}
	if err := e.txlog.Insert(ctx, tx); err != nil {
		return err
	}

	if err := e.accounts.AppendTransactionID(ctx, accountID, tx.ID); err != nil {
		log.Printf("transaction %s recorded but index append failed: %v", tx.ID, err)
	}

	if e.events != nil {
		event := Event{
			TransactionID: tx.ID,
			AccountID:     tx.AccountID,
			Type:          tx.Type,
			Amount:        tx.Amount,
			Balance:       tx.Balance,
			Description:   tx.Description,
			Date:          tx.Date,
		}
		if err := e.events.PublishEvent(event); err != nil {
			log.Printf("failed to publish event for transaction %s: %v", tx.ID, err)
		}
	}
	return nil
}

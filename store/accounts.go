// Package store provides the persistence layer: accounts in PostgreSQL,
// the transaction log in MongoDB, and an in-memory variant used by tests
// and local runs.
package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"bankapi/ledger"
	"bankapi/models"
)

// ErrDuplicateAccount is returned when a unique constraint (email, account
// number or IBAN) rejects an insert.
var ErrDuplicateAccount = errors.New("account already exists")

const createAccountsTable = `CREATE TABLE IF NOT EXISTS accounts (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT UNIQUE NOT NULL,
	password_hash TEXT NOT NULL,
	account_number TEXT UNIQUE NOT NULL,
	iban TEXT UNIQUE NOT NULL,
	balance DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (balance >= 0),
	transaction_ids TEXT[] NOT NULL DEFAULT '{}'
)`

const (
	insertAccount       = `INSERT INTO accounts (id, name, email, password_hash, account_number, iban, balance, transaction_ids) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	selectByID          = `SELECT id, name, email, password_hash, account_number, iban, balance, transaction_ids FROM accounts WHERE id = $1`
	selectByEmail       = `SELECT id, name, email, password_hash, account_number, iban, balance, transaction_ids FROM accounts WHERE email = $1`
	selectByNumber      = `SELECT id, name, email, password_hash, account_number, iban, balance, transaction_ids FROM accounts WHERE account_number = $1`
	creditBalance       = `UPDATE accounts SET balance = balance + $1 WHERE id = $2 RETURNING balance, clock_timestamp()`
	debitBalance        = `UPDATE accounts SET balance = balance - $1 WHERE id = $2 RETURNING balance, clock_timestamp()`
	lockBalance         = `SELECT balance FROM accounts WHERE id = $1 FOR UPDATE`
	appendTransactionID = `UPDATE accounts SET transaction_ids = array_append(transaction_ids, $1) WHERE id = $2`
)

// PostgresAccounts implements ledger.AccountStore on PostgreSQL. Balance
// mutations lock the account row first, so concurrent operations on the
// same account serialize at the database.
type PostgresAccounts struct {
	db *sql.DB
}

func NewPostgresAccounts(db *sql.DB) *PostgresAccounts {
	return &PostgresAccounts{db: db}
}

// Init creates the accounts table.
func (s *PostgresAccounts) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, createAccountsTable)
	return err
}

func (s *PostgresAccounts) Create(ctx context.Context, account *models.Account) error {
	_, err := s.db.ExecContext(ctx, insertAccount,
		account.ID, account.Name, account.Email, account.PasswordHash,
		account.AccountNumber, account.IBAN, account.Balance,
		pq.Array(account.TransactionIDs))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateAccount
		}
		return err
	}
	return nil
}

func (s *PostgresAccounts) scanAccount(row *sql.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash,
		&a.AccountNumber, &a.IBAN, &a.Balance, pq.Array(&a.TransactionIDs))
	if err == sql.ErrNoRows {
		return nil, ledger.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *PostgresAccounts) GetByID(ctx context.Context, id string) (*models.Account, error) {
	return s.scanAccount(s.db.QueryRowContext(ctx, selectByID, id))
}

func (s *PostgresAccounts) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.scanAccount(s.db.QueryRowContext(ctx, selectByEmail, email))
}

func (s *PostgresAccounts) GetByAccountNumber(ctx context.Context, number string) (*models.Account, error) {
	return s.scanAccount(s.db.QueryRowContext(ctx, selectByNumber, number))
}

// Credit adds amount to the balance in a single atomic statement. The
// returned commit timestamp is read while the row lock taken by the
// UPDATE is still held, so per-account timestamps follow commit order.
func (s *PostgresAccounts) Credit(ctx context.Context, id string, amount float64) (float64, time.Time, error) {
	var balance float64
	var committedAt time.Time
	err := s.db.QueryRowContext(ctx, creditBalance, amount, id).Scan(&balance, &committedAt)
	if err == sql.ErrNoRows {
		return 0, time.Time{}, ledger.ErrAccountNotFound
	}
	if err != nil {
		return 0, time.Time{}, err
	}
	return balance, committedAt.UTC(), nil
}

// Debit locks the account row, checks the balance under the lock, and
// subtracts amount. Two concurrent debits on the same account serialize on
// the row lock, so both see an up-to-date balance.
func (s *PostgresAccounts) Debit(ctx context.Context, id string, amount float64) (float64, time.Time, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, time.Time{}, err
	}
	defer tx.Rollback()

	var current float64
	err = tx.QueryRowContext(ctx, lockBalance, id).Scan(&current)
	if err == sql.ErrNoRows {
		return 0, time.Time{}, ledger.ErrAccountNotFound
	}
	if err != nil {
		return 0, time.Time{}, err
	}
	if current < amount {
		return 0, time.Time{}, ledger.ErrInsufficientFunds
	}

	var balance float64
	var committedAt time.Time
	if err := tx.QueryRowContext(ctx, debitBalance, amount, id).Scan(&balance, &committedAt); err != nil {
		return 0, time.Time{}, err
	}
	if err := tx.Commit(); err != nil {
		return 0, time.Time{}, err
	}
	return balance, committedAt.UTC(), nil
}

// Transfer debits fromID and credits toID in one database transaction.
// Rows are locked in id order so that two crossing transfers cannot
// deadlock. Neither balance changes unless both updates commit.
func (s *PostgresAccounts) Transfer(ctx context.Context, fromID, toID string, amount float64) (float64, float64, time.Time, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, time.Time{}, err
	}
	defer tx.Rollback()

	first, second := fromID, toID
	if second < first {
		first, second = second, first
	}
	balances := make(map[string]float64, 2)
	for _, id := range []string{first, second} {
		var b float64
		err := tx.QueryRowContext(ctx, lockBalance, id).Scan(&b)
		if err == sql.ErrNoRows {
			return 0, 0, time.Time{}, ledger.ErrAccountNotFound
		}
		if err != nil {
			return 0, 0, time.Time{}, err
		}
		balances[id] = b
	}
	if balances[fromID] < amount {
		return 0, 0, time.Time{}, ledger.ErrInsufficientFunds
	}

	// Both row locks are held here, so one timestamp orders the pair of
	// records correctly on both accounts.
	var fromBalance, toBalance float64
	var committedAt, creditedAt time.Time
	if err := tx.QueryRowContext(ctx, debitBalance, amount, fromID).Scan(&fromBalance, &committedAt); err != nil {
		return 0, 0, time.Time{}, err
	}
	if err := tx.QueryRowContext(ctx, creditBalance, amount, toID).Scan(&toBalance, &creditedAt); err != nil {
		return 0, 0, time.Time{}, err
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, time.Time{}, err
	}
	return fromBalance, toBalance, committedAt.UTC(), nil
}

func (s *PostgresAccounts) AppendTransactionID(ctx context.Context, accountID, transactionID string) error {
	_, err := s.db.ExecContext(ctx, appendTransactionID, transactionID, accountID)
	return err
}

package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bankapi/ledger"
	"bankapi/models"
)

func newMock(t *testing.T) (*PostgresAccounts, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("Failed to create mock DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresAccounts(db), mock
}

func TestCreate(t *testing.T) {
	s, mock := newMock(t)
	acct := &models.Account{
		ID: "u1", Name: "Alice", Email: "alice@example.com",
		PasswordHash: "hash", AccountNumber: "12345678903", IBAN: "NO3912345678903",
	}

	mock.ExpectExec(insertAccount).
		WithArgs(acct.ID, acct.Name, acct.Email, acct.PasswordHash,
			acct.AccountNumber, acct.IBAN, 0.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Create(context.Background(), acct))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDuplicate(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectExec(insertAccount).
		WillReturnError(&pq.Error{Code: "23505"})

	err := s.Create(context.Background(), &models.Account{ID: "u1"})
	assert.ErrorIs(t, err, ErrDuplicateAccount)
}

func TestGetByEmail(t *testing.T) {
	s, mock := newMock(t)

	rows := sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "account_number", "iban", "balance", "transaction_ids"}).
		AddRow("u1", "Alice", "alice@example.com", "hash", "12345678903", "NO3912345678903", 150.0, []byte(`{tx1,tx2}`))
	mock.ExpectQuery(selectByEmail).WithArgs("alice@example.com").WillReturnRows(rows)

	acct, err := s.GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", acct.ID)
	assert.Equal(t, 150.0, acct.Balance)
	assert.Equal(t, []string{"tx1", "tx2"}, acct.TransactionIDs)
}

func TestGetByEmailNotFound(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(selectByEmail).WithArgs("nobody@example.com").WillReturnError(sql.ErrNoRows)

	_, err := s.GetByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestCredit(t *testing.T) {
	s, mock := newMock(t)

	committed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(creditBalance).WithArgs(50.0, "u1").
		WillReturnRows(sqlmock.NewRows([]string{"balance", "clock_timestamp"}).AddRow(150.0, committed))

	balance, committedAt, err := s.Credit(context.Background(), "u1", 50)
	require.NoError(t, err)
	assert.Equal(t, 150.0, balance)
	assert.Equal(t, committed, committedAt)
}

func TestCreditAccountNotFound(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(creditBalance).WithArgs(50.0, "missing").WillReturnError(sql.ErrNoRows)

	_, _, err := s.Credit(context.Background(), "missing", 50)
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestDebit(t *testing.T) {
	s, mock := newMock(t)

	committed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(lockBalance).WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(200.0))
	mock.ExpectQuery(debitBalance).WithArgs(80.0, "u1").
		WillReturnRows(sqlmock.NewRows([]string{"balance", "clock_timestamp"}).AddRow(120.0, committed))
	mock.ExpectCommit()

	balance, committedAt, err := s.Debit(context.Background(), "u1", 80)
	require.NoError(t, err)
	assert.Equal(t, 120.0, balance)
	assert.Equal(t, committed, committedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDebitInsufficientFunds(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockBalance).WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(50.0))
	mock.ExpectRollback()

	_, _, err := s.Debit(context.Background(), "u1", 80)
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransfer(t *testing.T) {
	s, mock := newMock(t)

	// Rows lock in id order regardless of direction: "a" before "b" even
	// though "b" is the sender.
	committed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(lockBalance).WithArgs("a").
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(0.0))
	mock.ExpectQuery(lockBalance).WithArgs("b").
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(500.0))
	mock.ExpectQuery(debitBalance).WithArgs(200.0, "b").
		WillReturnRows(sqlmock.NewRows([]string{"balance", "clock_timestamp"}).AddRow(300.0, committed))
	mock.ExpectQuery(creditBalance).WithArgs(200.0, "a").
		WillReturnRows(sqlmock.NewRows([]string{"balance", "clock_timestamp"}).AddRow(200.0, committed.Add(time.Microsecond)))
	mock.ExpectCommit()

	fromBalance, toBalance, committedAt, err := s.Transfer(context.Background(), "b", "a", 200)
	require.NoError(t, err)
	assert.Equal(t, 300.0, fromBalance)
	assert.Equal(t, 200.0, toBalance)
	assert.Equal(t, committed, committedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferInsufficientFunds(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockBalance).WithArgs("a").
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(10.0))
	mock.ExpectQuery(lockBalance).WithArgs("b").
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(0.0))
	mock.ExpectRollback()

	_, _, _, err := s.Transfer(context.Background(), "a", "b", 200)
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendTransactionID(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectExec(appendTransactionID).WithArgs("tx1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.AppendTransactionID(context.Background(), "u1", "tx1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

package store

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"bankapi/ledger"
	"bankapi/models"
)

// Memory implements ledger.AccountStore and ledger.TransactionLog behind a
// single mutex, serializing all mutations the way the Postgres row lock
// does. Used by tests and for running the server without external stores.
type Memory struct {
	mu           sync.Mutex
	accounts     map[string]*models.Account
	byEmail      map[string]string
	byNumber     map[string]string
	lastCommit   map[string]time.Time
	transactions []models.Transaction
}

func NewMemory() *Memory {
	return &Memory{
		accounts:   make(map[string]*models.Account),
		byEmail:    make(map[string]string),
		byNumber:   make(map[string]string),
		lastCommit: make(map[string]time.Time),
	}
}

// commitTime returns a commit timestamp strictly after every earlier
// commit on the given accounts. Must be called with mu held.
func (m *Memory) commitTime(ids ...string) time.Time {
	ts := time.Now().UTC()
	for _, id := range ids {
		if last := m.lastCommit[id]; !ts.After(last) {
			ts = last.Add(time.Nanosecond)
		}
	}
	for _, id := range ids {
		m.lastCommit[id] = ts
	}
	return ts
}

func (m *Memory) Create(_ context.Context, account *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[account.Email]; ok {
		return ErrDuplicateAccount
	}
	if _, ok := m.byNumber[account.AccountNumber]; ok {
		return ErrDuplicateAccount
	}
	cp := *account
	m.accounts[cp.ID] = &cp
	m.byEmail[cp.Email] = cp.ID
	m.byNumber[cp.AccountNumber] = cp.ID
	return nil
}

func (m *Memory) get(id string) (*models.Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	cp := *a
	cp.TransactionIDs = append([]string(nil), a.TransactionIDs...)
	return &cp, nil
}

func (m *Memory) GetByID(_ context.Context, id string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(id)
}

func (m *Memory) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(m.byEmail[email])
}

func (m *Memory) GetByAccountNumber(_ context.Context, number string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(m.byNumber[number])
}

func (m *Memory) Credit(_ context.Context, id string, amount float64) (float64, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return 0, time.Time{}, ledger.ErrAccountNotFound
	}
	a.Balance += amount
	return a.Balance, m.commitTime(id), nil
}

func (m *Memory) Debit(_ context.Context, id string, amount float64) (float64, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return 0, time.Time{}, ledger.ErrAccountNotFound
	}
	if a.Balance < amount {
		return 0, time.Time{}, ledger.ErrInsufficientFunds
	}
	a.Balance -= amount
	return a.Balance, m.commitTime(id), nil
}

func (m *Memory) Transfer(_ context.Context, fromID, toID string, amount float64) (float64, float64, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	from, ok := m.accounts[fromID]
	if !ok {
		return 0, 0, time.Time{}, ledger.ErrAccountNotFound
	}
	to, ok := m.accounts[toID]
	if !ok {
		return 0, 0, time.Time{}, ledger.ErrAccountNotFound
	}
	if from.Balance < amount {
		return 0, 0, time.Time{}, ledger.ErrInsufficientFunds
	}
	from.Balance -= amount
	to.Balance += amount
	return from.Balance, to.Balance, m.commitTime(fromID, toID), nil
}

func (m *Memory) AppendTransactionID(_ context.Context, accountID, transactionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[accountID]
	if !ok {
		return ledger.ErrAccountNotFound
	}
	a.TransactionIDs = append(a.TransactionIDs, transactionID)
	return nil
}

func (m *Memory) Insert(_ context.Context, tx *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions = append(m.transactions, *tx)
	return nil
}

// Transactions returns the account's transactions in insertion order.
func (m *Memory) Transactions(accountID string) []models.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Transaction
	for _, tx := range m.transactions {
		if tx.AccountID == accountID {
			out = append(out, tx)
		}
	}
	return out
}

// List mirrors the Mongo query service's filter, sort and pagination
// semantics over the in-memory log.
func (m *Memory) List(_ context.Context, accountID string, opts ListOptions) (*TransactionPage, error) {
	opts = normalize(opts)

	m.mu.Lock()
	matched := []models.Transaction{}
	search := strings.ToLower(strings.TrimSpace(opts.Search))
	for _, tx := range m.transactions {
		if tx.AccountID != accountID {
			continue
		}
		if opts.Type != "" && tx.Type != opts.Type {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(tx.Description), search) {
			continue
		}
		matched = append(matched, tx)
	}
	m.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool {
		var less bool
		switch opts.Sort {
		case "amount":
			less = matched[i].Amount < matched[j].Amount
		case "balance":
			less = matched[i].Balance < matched[j].Balance
		case "type":
			less = matched[i].Type < matched[j].Type
		default:
			less = matched[i].Date.Before(matched[j].Date)
		}
		if opts.Order == "desc" {
			return !less
		}
		return less
	})

	total := int64(len(matched))
	start := (opts.Page - 1) * opts.PageSize
	if start > len(matched) {
		start = len(matched)
	}
	end := start + opts.PageSize
	if end > len(matched) {
		end = len(matched)
	}

	return &TransactionPage{
		Items:      matched[start:end],
		Page:       opts.Page,
		TotalPages: int(math.Ceil(float64(total) / float64(opts.PageSize))),
		TotalCount: total,
	}, nil
}

func (m *Memory) Get(_ context.Context, accountID, transactionID string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tx := range m.transactions {
		if tx.ID == transactionID && tx.AccountID == accountID {
			cp := tx
			return &cp, nil
		}
	}
	return nil, ErrTransactionNotFound
}

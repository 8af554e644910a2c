package models

import "time"

// Transaction types recorded in the ledger. A transfer is recorded as a
// withdrawal on the sender and a deposit on the recipient.
const (
	TypeDeposit    = "deposit"
	TypeWithdrawal = "withdrawal"
)

// Account holds a user's identity fields and single balance.
type Account struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	PasswordHash  string  `json:"-"`
	AccountNumber string  `json:"account_number"`
	IBAN          string  `json:"iban"`
	Balance       float64 `json:"balance"`

	// TransactionIDs is a denormalized convenience index. The transaction
	// log's account_id field is the authoritative link.
	TransactionIDs []string `json:"-"`
}

// Transaction is one immutable balance-affecting event. Balance is the
// owning account's balance immediately after the event was applied.
type Transaction struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	AccountID   string    `bson:"account_id" json:"account_id"`
	Type        string    `bson:"type" json:"type"`
	Amount      float64   `bson:"amount" json:"amount"`
	Balance     float64   `bson:"balance" json:"balance"`
	Description string    `bson:"description" json:"description"`
	Date        time.Time `bson:"date" json:"date"`
}

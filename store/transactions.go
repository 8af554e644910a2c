package store

import (
	"context"
	"errors"
	"math"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bankapi/models"
)

// ErrTransactionNotFound is returned when a transaction does not exist or
// does not belong to the requesting account.
var ErrTransactionNotFound = errors.New("transaction not found")

// Pagination defaults for transaction listings.
const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ListOptions selects, sorts and pages a transaction listing.
type ListOptions struct {
	Page     int
	PageSize int
	Sort     string // date, amount, balance or type
	Order    string // asc or desc
	Type     string // deposit, withdrawal, or empty/all for both
	Search   string // text search over descriptions
}

// TransactionPage is one page of a transaction listing.
type TransactionPage struct {
	Items      []models.Transaction `json:"transactions"`
	Page       int                  `json:"current_page"`
	TotalPages int                  `json:"total_pages"`
	TotalCount int64                `json:"total_transactions"`
}

// MongoTransactions implements the transaction log and its query service
// on a MongoDB collection.
type MongoTransactions struct {
	coll *mongo.Collection
}

func NewMongoTransactions(coll *mongo.Collection) *MongoTransactions {
	return &MongoTransactions{coll: coll}
}

// EnsureIndexes creates the text index used for description search and the
// account/date index used by listings.
func (s *MongoTransactions) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "description", Value: "text"}}},
		{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "date", Value: 1}}},
	})
	return err
}

func (s *MongoTransactions) Insert(ctx context.Context, tx *models.Transaction) error {
	_, err := s.coll.InsertOne(ctx, tx)
	return err
}

var sortableFields = map[string]bool{
	"date":    true,
	"amount":  true,
	"balance": true,
	"type":    true,
}

func normalize(opts ListOptions) ListOptions {
	if opts.Page < 1 {
		opts.Page = DefaultPage
	}
	if opts.PageSize < 1 {
		opts.PageSize = DefaultPageSize
	}
	if opts.PageSize > MaxPageSize {
		opts.PageSize = MaxPageSize
	}
	if !sortableFields[opts.Sort] {
		opts.Sort = "date"
	}
	if opts.Order != "asc" {
		opts.Order = "desc"
	}
	if opts.Type == "all" {
		opts.Type = ""
	}
	return opts
}

func buildFilter(accountID string, opts ListOptions) bson.M {
	filter := bson.M{"account_id": accountID}
	if opts.Type != "" {
		filter["type"] = opts.Type
	}
	if s := strings.TrimSpace(opts.Search); s != "" {
		filter["$text"] = bson.M{"$search": s}
	}
	return filter
}

func buildFindOptions(opts ListOptions) *options.FindOptions {
	order := -1
	if opts.Order == "asc" {
		order = 1
	}
	return options.Find().
		SetSort(bson.D{{Key: opts.Sort, Value: order}}).
		SetSkip(int64((opts.Page - 1) * opts.PageSize)).
		SetLimit(int64(opts.PageSize))
}

// List returns one page of the account's transactions together with the
// total count and page count for the current filter.
func (s *MongoTransactions) List(ctx context.Context, accountID string, opts ListOptions) (*TransactionPage, error) {
	opts = normalize(opts)
	filter := buildFilter(accountID, opts)

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, err
	}

	cursor, err := s.coll.Find(ctx, filter, buildFindOptions(opts))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := []models.Transaction{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}

	return &TransactionPage{
		Items:      items,
		Page:       opts.Page,
		TotalPages: int(math.Ceil(float64(total) / float64(opts.PageSize))),
		TotalCount: total,
	}, nil
}

// Get returns a single transaction, scoped to the owning account so a
// caller can never read another account's records.
func (s *MongoTransactions) Get(ctx context.Context, accountID, transactionID string) (*models.Transaction, error) {
	var tx models.Transaction
	err := s.coll.FindOne(ctx, bson.M{"_id": transactionID, "account_id": accountID}).Decode(&tx)
	if err == mongo.ErrNoDocuments {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestNormalizeDefaults(t *testing.T) {
	opts := normalize(ListOptions{})
	assert.Equal(t, DefaultPage, opts.Page)
	assert.Equal(t, DefaultPageSize, opts.PageSize)
	assert.Equal(t, "date", opts.Sort)
	assert.Equal(t, "desc", opts.Order)
	assert.Equal(t, "", opts.Type)
}

func TestNormalizeClampsAndWhitelists(t *testing.T) {
	opts := normalize(ListOptions{
		Page:     -3,
		PageSize: 10000,
		Sort:     "password_hash",
		Order:    "sideways",
		Type:     "all",
	})
	assert.Equal(t, 1, opts.Page)
	assert.Equal(t, MaxPageSize, opts.PageSize)
	assert.Equal(t, "date", opts.Sort)
	assert.Equal(t, "desc", opts.Order)
	assert.Equal(t, "", opts.Type)

	opts = normalize(ListOptions{Sort: "amount", Order: "asc"})
	assert.Equal(t, "amount", opts.Sort)
	assert.Equal(t, "asc", opts.Order)
}

func TestBuildFilter(t *testing.T) {
	filter := buildFilter("u1", ListOptions{})
	assert.Equal(t, bson.M{"account_id": "u1"}, filter)

	filter = buildFilter("u1", ListOptions{Type: "deposit", Search: " groceries "})
	assert.Equal(t, bson.M{
		"account_id": "u1",
		"type":       "deposit",
		"$text":      bson.M{"$search": "groceries"},
	}, filter)
}

func TestBuildFindOptions(t *testing.T) {
	opts := buildFindOptions(normalize(ListOptions{Page: 3, PageSize: 20, Sort: "amount", Order: "asc"}))
	assert.Equal(t, bson.D{{Key: "amount", Value: 1}}, opts.Sort)
	assert.Equal(t, int64(40), *opts.Skip)
	assert.Equal(t, int64(20), *opts.Limit)

	opts = buildFindOptions(normalize(ListOptions{}))
	assert.Equal(t, bson.D{{Key: "date", Value: -1}}, opts.Sort)
	assert.Equal(t, int64(0), *opts.Skip)
	assert.Equal(t, int64(10), *opts.Limit)
}

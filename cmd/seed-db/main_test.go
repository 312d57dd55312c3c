package main

import (
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCatalog(t *testing.T) {
	cat, err := decodeCatalog([]byte(`{
		"products": [{"id": "1", "name": "Kettle", "price": "300.00", "category": "kitchen"}],
		"buyers": [{"id": "b1", "name": "Asha"}],
		"coupons": [{"code": "FLAT50", "amount": 50}],
		"version": 2
	}`))
	require.NoError(t, err)

	require.Len(t, cat.Products, 1)
	assert.Equal(t, "Kettle", cat.Products[0].Name)
	assert.True(t, decimal.RequireFromString("300").Equal(cat.Products[0].Price))
	require.Len(t, cat.Buyers, 1)
	assert.Equal(t, "b1", cat.Buyers[0].ID)
	require.Len(t, cat.Coupons, 1)
	assert.True(t, decimal.NewFromInt(50).Equal(cat.Coupons[0].Amount))
}

func TestDecodeCatalog_Invalid(t *testing.T) {
	for name, input := range map[string]string{
		"not json":       `{`,
		"missing price":  `{"products": [{"id": "1", "name": "Kettle"}]}`,
		"bad price":      `{"products": [{"id": "1", "price": "abc"}]}`,
		"buyer no id":    `{"buyers": [{"name": "Asha"}]}`,
		"amount boolean": `{"coupons": [{"code": "X", "amount": true}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := decodeCatalog([]byte(input))
			require.Error(t, err)
		})
	}
}

func TestDecodeCatalog_SeedFile(t *testing.T) {
	data, err := os.ReadFile("../../db/seed/catalog.json")
	require.NoError(t, err)

	cat, err := decodeCatalog(data)
	require.NoError(t, err)
	assert.NotEmpty(t, cat.Products)
	assert.NotEmpty(t, cat.Buyers)
}

package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerbook/internal/core/types"
	"ledgerbook/internal/domain/documents/commercial"
	"ledgerbook/internal/infrastructure/http/v1/dto"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("REDIS_ADDR", "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestPreviewFromStdin(t *testing.T) {
	doc := `{
		"kind": "sale",
		"date": "2026-05-04T00:00:00Z",
		"discount": {"value": "10", "type": "percent"},
		"lineItems": [{"description": "Consulting", "quantity": 2, "rate": "100", "taxPercent": "5"}],
		"settlement": {"amount": "50"}
	}`
	out, err := execute(t, doc, "preview", "-b", "shop-1")
	require.NoError(t, err)

	var preview commercial.Preview
	require.NoError(t, json.Unmarshal([]byte(out), &preview))
	assert.Equal(t, commercial.StatusPartial, preview.Status)
	assert.True(t, preview.Totals.Subtotal.Equal(mustDecimal(t, "200")))
}

func TestBalancesEmptyBusiness(t *testing.T) {
	out, err := execute(t, "", "balances", "-b", "shop-1")
	require.NoError(t, err)

	var res dto.BalancesResponse
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Empty(t, res.Modes)
	assert.True(t, res.Total.IsZero())
}

func TestBusinessFlagRequired(t *testing.T) {
	_, err := execute(t, "", "balances", "-b", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--business")
}

func TestIntentsStaleOnFreshStore(t *testing.T) {
	out, err := execute(t, "", "intents", "stale")
	require.NoError(t, err)
	assert.Contains(t, out, "no stale operations")
}

func mustDecimal(t *testing.T, s string) types.Money {
	t.Helper()
	m, err := types.NewMoneyFromString(s)
	require.NoError(t, err)
	return m
}

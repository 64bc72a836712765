package dashboard

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func mustRecord(t *testing.T, raw string) Record {
	t.Helper()
	require.True(t, gjson.Valid(raw), "fixture is not valid json: %s", raw)
	return ParseRecord(gjson.Parse(raw))
}

func mustSnapshot(t *testing.T, raw string) Snapshot {
	t.Helper()
	snap, err := ParseSnapshot([]byte(raw))
	require.NoError(t, err)
	return snap
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got.String())
}

func assertKnown(t *testing.T, want string, got decimal.NullDecimal) {
	t.Helper()
	if assert.True(t, got.Valid, "want %s, got unknown", want) {
		assertDecimal(t, want, got.Decimal)
	}
}

package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "claimdesk/pkg/domain-errors"
)

func TestParseAmount(t *testing.T) {
	valid := map[string]Amount{
		"0":       0,
		"12":      1200,
		"12.5":    1250,
		"12.05":   1205,
		"1000.00": 100000,
	}
	for in, want := range valid {
		got, err := ParseAmount(in, "premium")
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "-1", "1.234", "1e3", "+5", ".5", "5.", "abc", "1,000", "9999999999999"} {
		_, err := ParseAmount(in, "premium")
		require.Error(t, err, in)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), in)
	}
}

func TestAmount_JSON(t *testing.T) {
	var body struct {
		Coverage Amount `json:"coverage"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"coverage": 2500.75}`), &body))
	assert.Equal(t, Amount(250075), body.Coverage)

	out, err := json.Marshal(body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"coverage": 2500.75}`, string(out))

	err = json.Unmarshal([]byte(`{"coverage": -3}`), &body)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.Equal(t, "validation_error: value must be a non-negative amount with at most two decimals", err.Error())
}

func TestAmount_Scan(t *testing.T) {
	var a Amount
	require.NoError(t, a.Scan([]byte("99.90")))
	assert.Equal(t, Amount(9990), a)
	require.NoError(t, a.Scan("15"))
	assert.Equal(t, Amount(1500), a)
	require.Error(t, a.Scan(true))

	v, err := Amount(120050).Value()
	require.NoError(t, err)
	assert.Equal(t, "1200.50", v)
}

package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMustParse(t *testing.T) {
	m := MustParse("19.99", "NZD")
	assert.Equal(t, "NZD", m.Currency.String())
	assert.True(t, decimal.RequireFromString("19.99").Equal(m.Amount))

	assert.Panics(t, func() { MustParse("not-a-number", "NZD") })
	assert.Panics(t, func() { MustParse("10", "XYZ99") })
}

func TestMul(t *testing.T) {
	m := MustParse("19.99", "NZD").Mul(3)
	assert.True(t, MustParse("59.97", "NZD").Equal(m))

	assert.True(t, MustParse("5", "NZD").Mul(0).IsZero())
}

func TestAddSub(t *testing.T) {
	a := MustParse("10.50", "NZD")
	b := MustParse("4.50", "NZD")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.True(t, MustParse("15", "NZD").Equal(sum))

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.True(t, MustParse("6", "NZD").Equal(diff))

	_, err = a.Add(MustParse("1", "USD"))
	assert.ErrorContains(t, err, "currency mismatch")
	_, err = a.Sub(MustParse("1", "USD"))
	assert.ErrorContains(t, err, "currency mismatch")
}

func TestEqual(t *testing.T) {
	assert.True(t, MustParse("10", "NZD").Equal(MustParse("10.00", "NZD")))
	assert.False(t, MustParse("10", "NZD").Equal(MustParse("10", "USD")))
	assert.False(t, MustParse("10", "NZD").Equal(MustParse("11", "NZD")))
}

func TestString(t *testing.T) {
	assert.Equal(t, "NZD 19.99", MustParse("19.99", "NZD").String())
}

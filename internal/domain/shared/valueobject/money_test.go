package valueobject

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/bookkeep/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestNewMoney(t *testing.T) {
	t.Run("creates money with currency", func(t *testing.T) {
		m, err := NewMoney(decimal.NewFromInt(100), CAD)
		require.NoError(t, err)
		assert.True(t, m.Amount().Equal(decimal.NewFromInt(100)))
		assert.Equal(t, CAD, m.Currency())
	})

	t.Run("rejects empty currency", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromInt(100), "")
		assert.Error(t, err)
	})

	t.Run("rejects non-finite floats", func(t *testing.T) {
		for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
			_, err := NewMoneyFromFloat(f, CAD)
			require.Error(t, err)
			assert.True(t, errors.Is(err, shared.ErrInvalidAmount))
		}
	})

	t.Run("rejects negative amounts where not allowed", func(t *testing.T) {
		_, err := NewNonNegativeMoney(decimal.NewFromInt(-1), CAD)
		require.Error(t, err)
		assert.Equal(t, shared.CodeInvalidAmount, shared.CodeOf(err))

		m, err := NewNonNegativeMoney(decimal.Zero, CAD)
		require.NoError(t, err)
		assert.True(t, m.IsZero())
	})

	t.Run("rejects malformed strings", func(t *testing.T) {
		_, err := NewMoneyFromString("12.3.4", CAD)
		require.Error(t, err)
		assert.Equal(t, shared.CodeInvalidAmount, shared.CodeOf(err))
	})
}

func TestMoneyRounding(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"half rounds up", "0.125", "0.13"},
		{"half rounds away from zero for negatives", "-0.125", "-0.13"},
		{"below half rounds down", "2.344", "2.34"},
		{"above half rounds up", "2.3451", "2.35"},
		{"already rounded", "113.00", "113.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := MustMoney(tt.input, CAD).Round2()
			assert.Equal(t, tt.expected, m.StringFixed())
		})
	}

	t.Run("differs from banker's rounding on even halves", func(t *testing.T) {
		m := MustMoney("0.125", CAD)
		assert.Equal(t, "0.13", m.Round2().StringFixed())
		assert.Equal(t, "0.12", m.RoundBank(2).StringFixed())
	})
}

func TestMoneyArithmetic(t *testing.T) {
	a := MustMoney("100.00", CAD)
	b := MustMoney("13.00", CAD)

	t.Run("add and subtract", func(t *testing.T) {
		assert.Equal(t, "113.00", a.MustAdd(b).StringFixed())
		assert.Equal(t, "87.00", a.MustSubtract(b).StringFixed())
	})

	t.Run("currency mismatch is an error", func(t *testing.T) {
		_, err := a.Add(MustMoney("1", USD))
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrCurrencyMismatch))

		_, err = a.Subtract(MustMoney("1", USD))
		assert.Error(t, err)

		assert.Panics(t, func() { a.MustAdd(MustMoney("1", USD)) })
	})

	t.Run("multiply keeps precision", func(t *testing.T) {
		m := MustMoney("10.10", CAD).Multiply(decimal.RequireFromString("0.333"))
		assert.True(t, m.Amount().Equal(decimal.RequireFromString("3.3633")))
	})

	t.Run("min and compare", func(t *testing.T) {
		assert.True(t, a.Min(b).Equals(b))
		c, err := a.Cmp(b)
		require.NoError(t, err)
		assert.Equal(t, 1, c)
		gt, err := b.GreaterThan(a)
		require.NoError(t, err)
		assert.False(t, gt)
	})

	t.Run("cents", func(t *testing.T) {
		assert.Equal(t, int64(11300), a.MustAdd(b).Cents())
		assert.Equal(t, int64(13), MustMoney("0.125", CAD).Cents())
	})
}

func TestMoneyPercentOf(t *testing.T) {
	tests := []struct {
		amount   string
		rate     string
		expected string
	}{
		{"100.00", "13", "13.00"},
		{"100.00", "8.875", "8.88"},
		{"99.99", "20", "20.00"},
		{"123.45", "7.25", "8.95"},
		{"10.10", "5", "0.51"},
		{"10.10", "7", "0.71"},
		{"0.00", "13", "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.amount+"@"+tt.rate, func(t *testing.T) {
			got := MustMoney(tt.amount, CAD).PercentOf(decimal.RequireFromString(tt.rate))
			assert.Equal(t, tt.expected, got.StringFixed())
		})
	}
}

func TestMoneyEmbeddedPercent(t *testing.T) {
	t.Run("backs out tax from an inclusive amount", func(t *testing.T) {
		got := MustMoney("113.00", CAD).EmbeddedPercent(decimal.NewFromInt(13))
		assert.Equal(t, "13.00", got.StringFixed())
	})

	t.Run("matches a*r/(100+r) after rounding", func(t *testing.T) {
		amount := MustMoney("57.99", CAD)
		rate := decimal.NewFromInt(5)
		direct := Round2(amount.Amount().Mul(rate).Div(decimal.NewFromInt(105)))
		assert.True(t, amount.EmbeddedPercent(rate).Amount().Equal(direct))
	})

	t.Run("zero rate embeds no tax", func(t *testing.T) {
		got := MustMoney("50.00", CAD).EmbeddedPercent(decimal.Zero)
		assert.True(t, got.IsZero())
	})
}

func TestMoneyFormat(t *testing.T) {
	m := MustMoney("1234.5", CAD)
	assert.Contains(t, m.Format(language.English), "1,234.50")

	unknown := MustMoney("1", Currency("ZZZ"))
	assert.Equal(t, "1.00 ZZZ", unknown.Format(language.English))

	huge := MustMoney("123456789012345678.99", CAD)
	assert.Equal(t, "123456789012345678.99 CAD", huge.Format(language.English))

	negative := MustMoney("-90071992547409.93", CAD)
	assert.Equal(t, "-90071992547409.93 CAD", negative.Format(language.English))
}

func TestMoneyJSON(t *testing.T) {
	m := MustMoney("13", CAD)
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"13.00","currency":"CAD"}`, string(data))

	var back Money
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.Equals(MustMoney("13.00", CAD)))

	err = json.Unmarshal([]byte(`{"amount":"x","currency":"CAD"}`), &back)
	assert.Error(t, err)
}

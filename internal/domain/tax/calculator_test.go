package tax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePricingMode(t *testing.T) {
	m, err := ParsePricingMode(" Inclusive ")
	require.NoError(t, err)
	assert.Equal(t, PricingModeInclusive, m)

	m, err = ParsePricingMode("exclusive")
	require.NoError(t, err)
	assert.Equal(t, PricingModeExclusive, m)

	_, err = ParsePricingMode("gross")
	assert.Error(t, err)
}

func TestComputeLineTax(t *testing.T) {
	reg := testRegistry()
	code := func(id string) *TaxCode {
		c, ok := reg.GetByID(id)
		require.True(t, ok)
		return &c
	}

	t.Run("no tax code yields zero tax", func(t *testing.T) {
		res, issues := ComputeLineTax(cad("100.00"), nil, PricingModeExclusive, reg)
		assert.Empty(t, issues)
		assert.True(t, res.TotalTax.IsZero())
		assert.Empty(t, res.PerComponent)
	})

	t.Run("simple exclusive", func(t *testing.T) {
		res, issues := ComputeLineTax(cad("100.00"), code("hst"), PricingModeExclusive, reg)
		assert.Empty(t, issues)
		assert.Equal(t, "13.00", res.TotalTax.StringFixed())
		amt, ok := res.Component("hst")
		require.True(t, ok)
		assert.Equal(t, "13.00", amt.StringFixed())
	})

	t.Run("simple inclusive backs tax out", func(t *testing.T) {
		res, _ := ComputeLineTax(cad("113.00"), code("hst"), PricingModeInclusive, reg)
		assert.Equal(t, "13.00", res.TotalTax.StringFixed())
	})

	t.Run("composite exclusive splits into components", func(t *testing.T) {
		res, issues := ComputeLineTax(cad("100.00"), code("gst-qst"), PricingModeExclusive, reg)
		assert.Empty(t, issues)
		m := res.AsMap()
		require.Len(t, m, 2)
		assert.Equal(t, "5.00", m["gst-part"].StringFixed())
		assert.Equal(t, "7.00", m["qst-part"].StringFixed())
		assert.Equal(t, "12.00", res.TotalTax.StringFixed())
		assert.Equal(t, "gst-part", res.PerComponent[0].TaxCodeID)
	})

	t.Run("composite rounds each component before summing", func(t *testing.T) {
		// 10.10 * 5% = 0.505 -> 0.51 and 10.10 * 7% = 0.707 -> 0.71.
		// A combined 12% would give 1.212 -> 1.21.
		res, _ := ComputeLineTax(cad("10.10"), code("gst-qst"), PricingModeExclusive, reg)
		assert.Equal(t, "1.22", res.TotalTax.StringFixed())
		combined := cad("10.10").PercentOf(rate("12"))
		assert.Equal(t, "1.21", combined.StringFixed())
	})

	t.Run("composite inclusive", func(t *testing.T) {
		res, _ := ComputeLineTax(cad("112.00"), code("gst-qst"), PricingModeInclusive, reg)
		m := res.AsMap()
		assert.Equal(t, "5.33", m["gst-part"].StringFixed())
		assert.Equal(t, "7.33", m["qst-part"].StringFixed())
		assert.Equal(t, "12.66", res.TotalTax.StringFixed())
	})

	t.Run("empty composite is rejected by default", func(t *testing.T) {
		res, issues := ComputeLineTax(cad("100.00"), code("empty"), PricingModeExclusive, reg)
		require.Len(t, issues, 1)
		assert.Equal(t, IssueEmptyComposite, issues[0].Code)
		assert.Equal(t, "empty", issues[0].TaxCodeID)
		assert.True(t, res.TotalTax.IsZero())
		assert.Empty(t, res.PerComponent)
	})

	t.Run("empty composite falls back to its own rate when configured", func(t *testing.T) {
		calc := NewCalculator(CalcOptions{EmptyComposite: EmptyCompositeFallback})
		res, issues := calc.ComputeLineTax(cad("100.00"), code("empty"), PricingModeExclusive, reg)
		require.Len(t, issues, 1)
		assert.Equal(t, IssueEmptyComposite, issues[0].Code)
		assert.Equal(t, "9.00", res.TotalTax.StringFixed())
		_, ok := res.Component("empty")
		assert.True(t, ok)
	})

	t.Run("invalid policy behaves as reject", func(t *testing.T) {
		calc := NewCalculator(CalcOptions{EmptyComposite: "sometimes"})
		res, _ := calc.ComputeLineTax(cad("100.00"), code("empty"), PricingModeExclusive, reg)
		assert.True(t, res.TotalTax.IsZero())
	})

	t.Run("component selected directly is taxed with a warning", func(t *testing.T) {
		res, issues := ComputeLineTax(cad("100.00"), code("qst-part"), PricingModeExclusive, reg)
		require.Len(t, issues, 1)
		assert.Equal(t, IssueNonTopLevel, issues[0].Code)
		assert.Equal(t, "7.00", res.TotalTax.StringFixed())
	})

	t.Run("zero amount", func(t *testing.T) {
		res, _ := ComputeLineTax(cad("0"), code("hst"), PricingModeInclusive, reg)
		assert.True(t, res.TotalTax.IsZero())
	})
}

func TestInclusiveExclusiveDuality(t *testing.T) {
	reg := testRegistry()
	rates := []string{"5", "7", "13", "8.875", "15"}
	amounts := []string{"0.01", "1.00", "9.99", "57.35", "100.00", "1234.56", "99999.99"}

	for _, r := range rates {
		code := TaxCode{ID: "r" + r, Rate: rate(r)}
		for _, a := range amounts {
			t.Run(a+"@"+r, func(t *testing.T) {
				excl, _ := ComputeLineTax(cad(a), &code, PricingModeExclusive, reg)
				gross := cad(a).MustAdd(excl.TotalTax)
				incl, _ := ComputeLineTax(gross, &code, PricingModeInclusive, reg)

				diff := excl.TotalTax.MustSubtract(incl.TotalTax).Amount().Abs()
				assert.True(t, diff.LessThanOrEqual(rate("0.01")),
					"exclusive %s vs inclusive %s", excl.TotalTax, incl.TotalTax)
			})
		}
	}
}

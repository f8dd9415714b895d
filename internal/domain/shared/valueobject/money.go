package valueobject

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/bookkeep/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	CAD Currency = "CAD" // Canadian Dollar (default)
	USD Currency = "USD" // US Dollar
	EUR Currency = "EUR" // Euro
	GBP Currency = "GBP" // British Pound
)

// DefaultCurrency is the default currency for the system
const DefaultCurrency = CAD

// MoneyScale is the number of fractional digits every emitted amount is rounded to
const MoneyScale int32 = 2

var hundred = decimal.NewFromInt(100)

// maxDisplayCents bounds the amounts whose cents a float64 holds exactly
var maxDisplayCents = decimal.NewFromInt(1 << 53)

// Money is a value object representing monetary amounts
// It is immutable - all operations return new Money instances
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates a new Money with the specified amount and currency
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, shared.NewDomainError(shared.CodeInvalidInput, "currency cannot be empty")
	}
	return Money{
		amount:   amount,
		currency: currency,
	}, nil
}

// NewNonNegativeMoney creates Money and rejects negative amounts with INVALID_AMOUNT
func NewNonNegativeMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if amount.IsNegative() {
		return Money{}, shared.NewDomainError(shared.CodeInvalidAmount,
			fmt.Sprintf("amount %s must not be negative", amount.String()))
	}
	return NewMoney(amount, currency)
}

// NewMoneyFromFloat creates Money from a float64 value.
// NaN and infinities are rejected with INVALID_AMOUNT.
func NewMoneyFromFloat(amount float64, currency Currency) (Money, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Money{}, shared.NewDomainError(shared.CodeInvalidAmount, "amount must be a finite number")
	}
	return NewMoney(decimal.NewFromFloat(amount), currency)
}

// NewMoneyFromString creates Money from a string representation
func NewMoneyFromString(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, shared.NewDomainError(shared.CodeInvalidAmount,
			fmt.Sprintf("invalid amount string %q: %v", amount, err))
	}
	return NewMoney(d, currency)
}

// MustMoney parses a string amount and panics on error. Intended for tests and constants.
func MustMoney(amount string, currency Currency) Money {
	m, err := NewMoneyFromString(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero-value Money in the specified currency
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return m.currency
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsPositive returns true if the amount is positive
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// IsNegative returns true if the amount is negative
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// Round2 rounds half away from zero to two decimal places.
// This is the only rounding applied to amounts the core emits.
func (m Money) Round2() Money {
	return Money{amount: Round2(m.amount), currency: m.currency}
}

// RoundBank returns a new Money with banker's rounding to the specified places
func (m Money) RoundBank(places int32) Money {
	return Money{
		amount:   m.amount.RoundBank(places),
		currency: m.currency,
	}
}

// Round2 rounds a raw decimal half away from zero to two places
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// Add returns a new Money with the sum of both amounts
// Returns error if currencies don't match
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, currencyMismatch("add", m.currency, other.currency)
	}
	return Money{
		amount:   m.amount.Add(other.amount),
		currency: m.currency,
	}, nil
}

// MustAdd adds two Money values, panics if currencies don't match
func (m Money) MustAdd(other Money) Money {
	result, err := m.Add(other)
	if err != nil {
		panic(err)
	}
	return result
}

// Subtract returns a new Money with the difference
// Returns error if currencies don't match
func (m Money) Subtract(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, currencyMismatch("subtract", m.currency, other.currency)
	}
	return Money{
		amount:   m.amount.Sub(other.amount),
		currency: m.currency,
	}, nil
}

// MustSubtract subtracts two Money values, panics if currencies don't match
func (m Money) MustSubtract(other Money) Money {
	result, err := m.Subtract(other)
	if err != nil {
		panic(err)
	}
	return result
}

// Multiply returns a new Money multiplied by the given factor (unrounded)
func (m Money) Multiply(factor decimal.Decimal) Money {
	return Money{
		amount:   m.amount.Mul(factor),
		currency: m.currency,
	}
}

// PercentOf returns round2(amount * rate / 100)
func (m Money) PercentOf(rate decimal.Decimal) Money {
	return Money{
		amount:   Round2(m.amount.Mul(rate).Div(hundred)),
		currency: m.currency,
	}
}

// EmbeddedPercent returns the tax already contained in a tax-inclusive amount:
// round2(amount - amount*100/(100+rate)).
func (m Money) EmbeddedPercent(rate decimal.Decimal) Money {
	net := m.amount.Mul(hundred).Div(hundred.Add(rate))
	return Money{
		amount:   Round2(m.amount.Sub(net)),
		currency: m.currency,
	}
}

// Min returns the smaller of both amounts; currencies must match
func (m Money) Min(other Money) Money {
	if m.currency != other.currency {
		panic(currencyMismatch("compare", m.currency, other.currency))
	}
	if other.amount.LessThan(m.amount) {
		return other
	}
	return m
}

// Negate returns a new Money with the sign reversed
func (m Money) Negate() Money {
	return Money{
		amount:   m.amount.Neg(),
		currency: m.currency,
	}
}

// Equals returns true if both Money values are equal (same amount and currency)
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// Cmp compares amounts: -1 if m < other, 0 if equal, +1 if m > other.
// Returns error if currencies don't match.
func (m Money) Cmp(other Money) (int, error) {
	if m.currency != other.currency {
		return 0, currencyMismatch("compare", m.currency, other.currency)
	}
	return m.amount.Cmp(other.amount), nil
}

// GreaterThan returns true if this Money is greater than the other
func (m Money) GreaterThan(other Money) (bool, error) {
	c, err := m.Cmp(other)
	return c > 0, err
}

// String returns a string representation of the Money
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(MoneyScale), m.currency)
}

// StringFixed returns the amount as a string with two decimal places
func (m Money) StringFixed() string {
	return m.amount.StringFixed(MoneyScale)
}

// Cents returns the amount in minor units, rounded to two places first
func (m Money) Cents() int64 {
	return Round2(m.amount).Mul(hundred).IntPart()
}

// Format renders the amount for display in the given locale, e.g. "CA$ 1,234.50".
// The locale printer takes a float64, so amounts too large for it to carry
// every cent fall back to String.
func (m Money) Format(tag language.Tag) string {
	unit, err := currency.ParseISO(string(m.currency))
	if err != nil {
		return m.String()
	}
	if Round2(m.amount).Mul(hundred).Abs().GreaterThan(maxDisplayCents) {
		return m.String()
	}
	p := message.NewPrinter(tag)
	return p.Sprint(currency.Symbol(unit.Amount(m.amount.InexactFloat64())))
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string   `json:"amount"`
		Currency Currency `json:"currency"`
	}{
		Amount:   m.amount.StringFixed(MoneyScale),
		Currency: m.currency,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Money) UnmarshalJSON(data []byte) error {
	var v struct {
		Amount   string   `json:"amount"`
		Currency Currency `json:"currency"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := NewMoneyFromString(v.Amount, v.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func currencyMismatch(op string, a, b Currency) error {
	return shared.NewDomainError(shared.CodeCurrencyMismatch,
		fmt.Sprintf("cannot %s money with different currencies: %s and %s", op, a, b))
}

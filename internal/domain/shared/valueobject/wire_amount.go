package valueobject

import (
	"github.com/shopspring/decimal"
)

// WireAmount is a decimal that serializes as a bare JSON number with two fraction digits,
// the shape the transaction store expects for subTotal/taxAmount/totalAmount fields.
// It accepts both quoted and unquoted numbers when decoding.
type WireAmount decimal.Decimal

// NewWireAmount rounds m to two places for transport
func NewWireAmount(m Money) WireAmount {
	return WireAmount(Round2(m.Amount()))
}

// Decimal returns the underlying decimal value
func (w WireAmount) Decimal() decimal.Decimal {
	return decimal.Decimal(w)
}

// Money converts the wire value into Money of the given currency
func (w WireAmount) Money(currency Currency) (Money, error) {
	return NewMoney(w.Decimal(), currency)
}

// MarshalJSON implements json.Marshaler
func (w WireAmount) MarshalJSON() ([]byte, error) {
	return []byte(w.Decimal().StringFixed(MoneyScale)), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (w *WireAmount) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	*w = WireAmount(d)
	return nil
}

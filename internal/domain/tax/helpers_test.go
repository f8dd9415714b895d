package tax

import (
	"github.com/bookkeep/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

func cad(s string) valueobject.Money {
	return valueobject.MustMoney(s, valueobject.CAD)
}

func ref(s string) *string {
	return &s
}

func rate(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// testCodes is a registry with one simple rate, a two-part composite and a
// composite that was never given components.
func testCodes() []TaxCode {
	return []TaxCode{
		{ID: "hst", Name: "HST", Rate: rate("13")},
		{ID: "gst", Name: "GST", Rate: rate("5")},
		{ID: "gst-qst", Name: "GST + QST", IsComposite: true},
		{ID: "gst-part", Name: "GST (composite)", Rate: rate("5"), ParentID: ref("gst-qst")},
		{ID: "qst-part", Name: "QST (composite)", Rate: rate("7"), ParentID: ref("gst-qst")},
		{ID: "empty", Name: "Unconfigured", Rate: rate("9"), IsComposite: true},
	}
}

func testRegistry() *Registry {
	return NewRegistry(testCodes())
}

func line(id, amount string, taxCodeID *string) LineItem {
	return LineItem{ID: id, Amount: cad(amount), TaxCodeID: taxCodeID}
}

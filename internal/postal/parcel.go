package postal

import "github.com/shopspring/decimal"

// Parcel dimensions: weight in ounces, length/width/height in inches.
type Parcel struct {
	Weight decimal.Decimal
	Length decimal.NullDecimal
	Width  decimal.NullDecimal
	Height decimal.NullDecimal
}

// Payload builds the parcel body sent to the carrier. Weight is always
// present; a dimension is included only when it was supplied and is positive.
func (p Parcel) Payload() map[string]float64 {
	out := map[string]float64{
		"weight": p.Weight.InexactFloat64(),
	}
	addDimension(out, "length", p.Length)
	addDimension(out, "width", p.Width)
	addDimension(out, "height", p.Height)
	return out
}

func addDimension(out map[string]float64, key string, d decimal.NullDecimal) {
	if !d.Valid || !d.Decimal.IsPositive() {
		return
	}
	out[key] = d.Decimal.InexactFloat64()
}

package carrier

import (
	"strings"

	"github.com/shopspring/decimal"
)

const CarrierUSPS = "USPS"

type Rate struct {
	ID      string
	Carrier string
	Service string
	Amount  decimal.Decimal
}

// LowestUSPSRate returns the cheapest USPS rate. Non-USPS rates are ignored
// whatever their price; among equal amounts the first one wins.
func LowestUSPSRate(rates []Rate) (Rate, bool) {
	var (
		best  Rate
		found bool
	)
	for _, r := range rates {
		if !strings.EqualFold(strings.TrimSpace(r.Carrier), CarrierUSPS) {
			continue
		}
		if !found || r.Amount.LessThan(best.Amount) {
			best = r
			found = true
		}
	}
	return best, found
}

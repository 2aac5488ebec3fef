package zatca

import (
	"github.com/shopspring/decimal"

	"github.com/albadr/zatca-integration/internal/domain/entity"
)

// TaxSubtotal is one aggregated tax bucket for the cac:TaxSubtotal blocks,
// grouped by category code and rate.
type TaxSubtotal struct {
	Category        string
	ExemptionType   string
	ExemptionReason string
	Percent         decimal.Decimal
	Taxable         decimal.Decimal
	Amount          decimal.Decimal
}

// TaxBreakdown aggregates the lines' tax components by (category, percent),
// preserving first-seen order so the XML is deterministic.
func TaxBreakdown(lines []*entity.LineItem) []TaxSubtotal {
	var order []string
	buckets := map[string]*TaxSubtotal{}

	for _, line := range lines {
		lt := ComputeLineTotals(line)
		for _, t := range line.Taxes {
			key := t.Category + "|" + t.Percentage.String()
			b, ok := buckets[key]
			if !ok {
				b = &TaxSubtotal{
					Category:        t.Category,
					ExemptionType:   t.Type,
					ExemptionReason: t.Reason,
					Percent:         t.Percentage,
				}
				buckets[key] = b
				order = append(order, key)
			}
			b.Taxable = b.Taxable.Add(lt.Net)
			if t.Value.IsZero() && !t.Percentage.IsZero() {
				b.Amount = b.Amount.Add(lt.Net.Mul(t.Percentage).Div(oneHundred))
			} else {
				b.Amount = b.Amount.Add(t.Value)
			}
		}
	}

	out := make([]TaxSubtotal, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		b.Taxable = b.Taxable.Round(2)
		b.Amount = b.Amount.Round(2)
		out = append(out, *b)
	}
	return out
}

package zatca

import (
	"github.com/shopspring/decimal"

	"github.com/albadr/zatca-integration/internal/domain/entity"
)

var oneHundred = decimal.NewFromInt(100)

// LineTotals are the per-line monetary aggregates, each rounded to 2 decimals.
type LineTotals struct {
	Extension decimal.Decimal // qty x unit price, before discounts and tax
	Discount  decimal.Decimal
	Net       decimal.Decimal // extension - discounts
	Tax       decimal.Decimal
	Gross     decimal.Decimal // net + tax (the line's RoundingAmount)
}

// InvoiceTotals are the invoice-level aggregates. The string forms of these
// values are embedded in the hashed XML, so rounding happens here, once.
type InvoiceTotals struct {
	LineExtension decimal.Decimal // sum of line extensions
	TaxExclusive  decimal.Decimal // line extension - discounts
	Discount      decimal.Decimal
	Tax           decimal.Decimal
	Net           decimal.Decimal // tax-inclusive payable amount
	Lines         []LineTotals
}

// ComputeLineTotals aggregates one line. The tax amount is the declared sum
// of the line's tax component values; a component with a zero value is
// computed as net x percentage / 100.
func ComputeLineTotals(line *entity.LineItem) LineTotals {
	ext := line.Quantity.Mul(line.UnitPrice)

	var discount decimal.Decimal
	for _, d := range line.Discounts {
		discount = discount.Add(d.Amount)
	}
	net := ext.Sub(discount)

	var tax decimal.Decimal
	for _, t := range line.Taxes {
		if t.Value.IsZero() && !t.Percentage.IsZero() {
			tax = tax.Add(net.Mul(t.Percentage).Div(oneHundred))
		} else {
			tax = tax.Add(t.Value)
		}
	}

	return LineTotals{
		Extension: ext.Round(2),
		Discount:  discount.Round(2),
		Net:       net.Round(2),
		Tax:       tax.Round(2),
		Gross:     net.Add(tax).Round(2),
	}
}

// ComputeInvoiceTotals aggregates every line into the invoice totals.
func ComputeInvoiceTotals(lines []*entity.LineItem) InvoiceTotals {
	var totals InvoiceTotals
	for _, line := range lines {
		lt := ComputeLineTotals(line)
		totals.Lines = append(totals.Lines, lt)
		totals.LineExtension = totals.LineExtension.Add(lt.Extension)
		totals.Discount = totals.Discount.Add(lt.Discount)
		totals.Tax = totals.Tax.Add(lt.Tax)
	}
	totals.LineExtension = totals.LineExtension.Round(2)
	totals.Discount = totals.Discount.Round(2)
	totals.Tax = totals.Tax.Round(2)
	totals.TaxExclusive = totals.LineExtension.Sub(totals.Discount).Round(2)
	totals.Net = totals.TaxExclusive.Add(totals.Tax).Round(2)
	return totals
}

// Amount renders a monetary value exactly as the authority expects it:
// fixed-point, two decimals, '.' separator. The same rendering must be used
// everywhere a value reaches the XML, the QR and the hash.
func Amount(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}

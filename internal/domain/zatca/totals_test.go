package zatca_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albadr/zatca-integration/internal/domain/entity"
	"github.com/albadr/zatca-integration/internal/domain/zatca"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestComputeLineTotals_DeclaredTaxValue(t *testing.T) {
	line := &entity.LineItem{
		Name:      "Example Item",
		Quantity:  d("2"),
		UnitPrice: d("100"),
		Taxes: []entity.TaxComponent{
			{Percentage: d("15"), Value: d("30.00"), Category: "S"},
		},
	}

	lt := zatca.ComputeLineTotals(line)

	assert.Equal(t, "200.00", zatca.Amount(lt.Extension))
	assert.Equal(t, "200.00", zatca.Amount(lt.Net))
	assert.Equal(t, "30.00", zatca.Amount(lt.Tax), "declared component value wins over the percentage")
	assert.Equal(t, "230.00", zatca.Amount(lt.Gross))
}

func TestComputeLineTotals_TaxComputedFromPercentage(t *testing.T) {
	line := &entity.LineItem{
		Quantity:  d("3"),
		UnitPrice: d("10"),
		Taxes: []entity.TaxComponent{
			{Percentage: d("15"), Category: "S"},
		},
	}

	lt := zatca.ComputeLineTotals(line)

	// 3 x 10 x 15% = 4.50
	assert.Equal(t, "4.50", zatca.Amount(lt.Tax))
}

func TestComputeLineTotals_DiscountReducesNetAndTaxBase(t *testing.T) {
	line := &entity.LineItem{
		Quantity:  d("1"),
		UnitPrice: d("100"),
		Discounts: []entity.Discount{{Amount: d("20"), Reason: "Discount"}},
		Taxes: []entity.TaxComponent{
			{Percentage: d("15"), Category: "S"},
		},
	}

	lt := zatca.ComputeLineTotals(line)

	assert.Equal(t, "100.00", zatca.Amount(lt.Extension))
	assert.Equal(t, "20.00", zatca.Amount(lt.Discount))
	assert.Equal(t, "80.00", zatca.Amount(lt.Net))
	assert.Equal(t, "12.00", zatca.Amount(lt.Tax))
}

func TestComputeInvoiceTotals_Identities(t *testing.T) {
	lines := []*entity.LineItem{
		{
			Quantity:  d("2"),
			UnitPrice: d("50"),
			Taxes:     []entity.TaxComponent{{Percentage: d("15"), Category: "S"}},
		},
		{
			Quantity:  d("1"),
			UnitPrice: d("33.33"),
			Discounts: []entity.Discount{{Amount: d("3.33")}},
			Taxes:     []entity.TaxComponent{{Percentage: d("15"), Category: "S"}},
		},
	}

	totals := zatca.ComputeInvoiceTotals(lines)
	require.Len(t, totals.Lines, 2)

	// lineNet = qty*price - discounts per line
	for i, lt := range totals.Lines {
		expected := lt.Extension.Sub(lt.Discount)
		assert.True(t, lt.Net.Equal(expected), "line %d net", i)
	}

	// invoiceTaxTotal = sum of line taxes
	sumTax := totals.Lines[0].Tax.Add(totals.Lines[1].Tax)
	assert.True(t, totals.Tax.Equal(sumTax.Round(2)))

	// invoiceNetTotal = lineExtensionTotal - discountTotal + taxTotal
	expectedNet := totals.LineExtension.Sub(totals.Discount).Add(totals.Tax)
	assert.True(t, totals.Net.Equal(expectedNet.Round(2)))

	assert.Equal(t, "133.33", zatca.Amount(totals.LineExtension))
	assert.Equal(t, "3.33", zatca.Amount(totals.Discount))
	assert.Equal(t, "130.00", zatca.Amount(totals.TaxExclusive))
	assert.Equal(t, "19.50", zatca.Amount(totals.Tax))
	assert.Equal(t, "149.50", zatca.Amount(totals.Net))
}

func TestAmount_TwoDecimalFixedPoint(t *testing.T) {
	assert.Equal(t, "100.00", zatca.Amount(d("100")))
	assert.Equal(t, "0.10", zatca.Amount(d("0.1")))
	assert.Equal(t, "1.13", zatca.Amount(d("1.125")))
}

func TestClassify(t *testing.T) {
	warn := func(code string) []zatca.ValidationMessage {
		return []zatca.ValidationMessage{{Code: code, Message: "msg"}}
	}

	tests := []struct {
		name     string
		warnings []zatca.ValidationMessage
		errors   []zatca.ValidationMessage
		want     string
	}{
		{"clean response is PASS", nil, nil, zatca.StatusPass},
		{"suppressed warning alone is still PASS", warn("BR-KSA-98"), nil, zatca.StatusPass},
		{"other warning alone is WARNING", warn("BR-KSA-12"), nil, zatca.StatusWarning},
		{"error forces ERROR", nil, warn("BR-KSA-40"), zatca.StatusError},
		{"error wins over warnings", warn("BR-KSA-12"), warn("BR-KSA-40"), zatca.StatusError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := zatca.Classify(tc.warnings, tc.errors)
			assert.Equal(t, tc.want, got.Status)
		})
	}
}

func TestClassify_SuppressedCodeIsDropped(t *testing.T) {
	got := zatca.Classify([]zatca.ValidationMessage{
		{Code: "BR-KSA-98", Message: "benign"},
		{Code: "BR-KSA-12", Message: "real"},
	}, nil)

	assert.Equal(t, zatca.StatusWarning, got.Status)
	assert.NotContains(t, got.Warnings, "BR-KSA-98")
	assert.Contains(t, got.Warnings, "BR-KSA-12")
}

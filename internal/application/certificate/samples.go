package certificate

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/albadr/zatca-integration/internal/domain/entity"
)

// sampleTemplate describes one of the documents the gateway requires a fresh
// credential to pass before a production CSID is issued: every combination of
// standard/simplified and invoice/credit/debit.
type sampleTemplate struct {
	Name            string
	TransactionType string
	WithReference   bool
	Simplified      bool
	UnitPrice       int64
}

func sampleCatalog() []sampleTemplate {
	return []sampleTemplate{
		{Name: "standard_invoice", TransactionType: entity.TransactionSales, UnitPrice: 100},
		{Name: "standard_debit_note", TransactionType: entity.TransactionSalesReturn, WithReference: true, UnitPrice: 115},
		{Name: "standard_credit_note", TransactionType: entity.TransactionSales, WithReference: true, UnitPrice: 115},
		{Name: "simplified_invoice", TransactionType: entity.TransactionSales, Simplified: true, UnitPrice: 115},
		{Name: "simplified_credit_note", TransactionType: entity.TransactionSales, WithReference: true, Simplified: true, UnitPrice: 115},
		{Name: "simplified_debit_note", TransactionType: entity.TransactionSalesReturn, WithReference: true, Simplified: true, UnitPrice: 115},
	}
}

// buildSampleInvoice materializes one sample as a regular invoice entity, so
// the compliance run exercises the exact same build and signing path as live
// submissions.
func buildSampleInvoice(tmpl sampleTemplate, seq int64, at time.Time) *entity.Invoice {
	inv := &entity.Invoice{
		ID:              seq,
		Number:          fmt.Sprintf("SAMPLE-%d", seq),
		UUID:            uuid.New().String(),
		Counter:         seq,
		Date:            at,
		TransactionType: tmpl.TransactionType,
		Lines: []*entity.LineItem{
			{
				ID:        seq,
				Name:      "Example Item",
				Quantity:  decimal.NewFromInt(1),
				UnitPrice: decimal.NewFromInt(tmpl.UnitPrice),
				Taxes: []entity.TaxComponent{
					{Percentage: decimal.NewFromInt(15), Category: "S"},
				},
			},
		},
	}

	if tmpl.WithReference {
		parent := seq - 1
		inv.ReferenceID = &parent
		inv.ReferenceNumber = fmt.Sprintf("SAMPLE-%d", parent)
	}

	if tmpl.Simplified {
		inv.Buyer = &entity.Buyer{Name: "Alex Player", StreetName: "King Street"}
	} else {
		inv.Buyer = &entity.Buyer{
			Name:       "John Doe",
			TaxNumber:  "311111121111113",
			StreetName: "King Street",
		}
	}
	return inv
}

package zatca

import (
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albadr/zatca-integration/internal/domain/entity"
	domzatca "github.com/albadr/zatca-integration/internal/domain/zatca"
)

func testProfile() entity.TaxpayerProfile {
	return entity.TaxpayerProfile{
		StoreID:            1,
		ShopID:             1,
		Name:               "Albadr Trading Co",
		CommonName:         "Albadr-POS-1",
		TaxNumber:          "399999999900003",
		OrganizationUnit:   "3999999999",
		CommercialRegister: "1010101010",
		StreetName:         "King Fahd Road",
		BuildingNumber:     "1234",
		PlotIdentification: "5678",
		City:               "Riyadh",
		PostalNumber:       "12345",
		Environment:        entity.EnvSandbox,
		BusinessCategory:   "Retail",
	}
}

func testInvoice() *entity.Invoice {
	return &entity.Invoice{
		ID:              42,
		StoreID:         1,
		ShopID:          1,
		Number:          "INV-0042",
		UUID:            "8e6a04b0-44d1-4c92-a5c2-9d5b1e9f2a11",
		Counter:         42,
		Date:            time.Date(2026, 3, 15, 14, 30, 5, 0, time.UTC),
		TransactionType: entity.TransactionSales,
		Lines: []*entity.LineItem{
			{
				ID:        1,
				Name:      "Example Item",
				Quantity:  decimal.NewFromInt(2),
				UnitPrice: decimal.NewFromInt(100),
				Taxes: []entity.TaxComponent{
					{Percentage: decimal.NewFromInt(15), Category: "S"},
				},
			},
		},
	}
}

func buildContext(inv *entity.Invoice) *DocumentBuildContext {
	return &DocumentBuildContext{
		Invoice:             inv,
		Profile:             testProfile(),
		Totals:              domzatca.ComputeInvoiceTotals(inv.Lines),
		PreviousInvoiceHash: ZeroInvoiceHash(),
		SigningTime:         time.Date(2026, 3, 15, 14, 30, 6, 0, time.UTC),
	}
}

func TestBuildHashableStructure(t *testing.T) {
	doc, err := NewXMLBuilder().BuildHashable(buildContext(testInvoice()))
	require.NoError(t, err)

	root := doc.Root()
	require.NotNil(t, root)
	assert.Equal(t, "Invoice", root.Tag)

	assert.Equal(t, "reporting:1.0", root.SelectElement("cbc:ProfileID").Text())
	assert.Equal(t, "INV-0042", root.SelectElement("cbc:ID").Text())
	assert.Equal(t, "2026-03-15", root.SelectElement("cbc:IssueDate").Text())
	assert.Equal(t, "14:30:05", root.SelectElement("cbc:IssueTime").Text())

	typeCode := root.SelectElement("cbc:InvoiceTypeCode")
	require.NotNil(t, typeCode)
	assert.Equal(t, "388", typeCode.Text())
	assert.Equal(t, "0200000", typeCode.SelectAttrValue("name", ""))

	refs := root.SelectElements("cac:AdditionalDocumentReference")
	require.Len(t, refs, 2)
	assert.Equal(t, "ICV", refs[0].SelectElement("cbc:ID").Text())
	assert.Equal(t, "42", refs[0].SelectElement("cbc:UUID").Text())
	assert.Equal(t, "PIH", refs[1].SelectElement("cbc:ID").Text())
	assert.Equal(t, ZeroInvoiceHash(),
		refs[1].FindElement("cac:Attachment/cbc:EmbeddedDocumentBinaryObject").Text())

	crn := root.FindElement("cac:AccountingSupplierParty/cac:Party/cac:PartyIdentification/cbc:ID")
	require.NotNil(t, crn)
	assert.Equal(t, "1010101010", crn.Text())
	assert.Equal(t, "CRN", crn.SelectAttrValue("schemeID", ""))

	lmt := root.SelectElement("cac:LegalMonetaryTotal")
	require.NotNil(t, lmt)
	assert.Equal(t, "200.00", lmt.SelectElement("cbc:LineExtensionAmount").Text())
	assert.Equal(t, "200.00", lmt.SelectElement("cbc:TaxExclusiveAmount").Text())
	assert.Equal(t, "230.00", lmt.SelectElement("cbc:TaxInclusiveAmount").Text())
	assert.Equal(t, "230.00", lmt.SelectElement("cbc:PayableAmount").Text())

	taxTotals := root.SelectElements("cac:TaxTotal")
	require.Len(t, taxTotals, 2)
	assert.Equal(t, "30.00", taxTotals[0].SelectElement("cbc:TaxAmount").Text())
	assert.NotNil(t, taxTotals[0].SelectElement("cac:TaxSubtotal"))
	assert.Nil(t, taxTotals[1].SelectElement("cac:TaxSubtotal"))

	lines := root.SelectElements("cac:InvoiceLine")
	require.Len(t, lines, 1)
	qty := lines[0].SelectElement("cbc:InvoicedQuantity")
	assert.Equal(t, "2", qty.Text())
	assert.Equal(t, "PCE", qty.SelectAttrValue("unitCode", ""))
	assert.Equal(t, "230.00", lines[0].FindElement("cac:TaxTotal/cbc:RoundingAmount").Text())
}

func TestBuildHashableCreditNote(t *testing.T) {
	inv := testInvoice()
	parent := int64(40)
	inv.ReferenceID = &parent
	inv.ReferenceNumber = "INV-0040"

	doc, err := NewXMLBuilder().BuildHashable(buildContext(inv))
	require.NoError(t, err)
	root := doc.Root()

	assert.Equal(t, "381", root.SelectElement("cbc:InvoiceTypeCode").Text())
	billing := root.FindElement("cac:BillingReference/cac:InvoiceDocumentReference/cbc:ID")
	require.NotNil(t, billing)
	assert.Equal(t, "INV-0040", billing.Text())

	pm := root.SelectElement("cac:PaymentMeans")
	require.NotNil(t, pm)
	assert.Equal(t, "10", pm.SelectElement("cbc:PaymentMeansCode").Text())
	assert.NotEmpty(t, pm.SelectElement("cbc:InstructionNote").Text())
}

func TestBuildHashableStandardBuyer(t *testing.T) {
	inv := testInvoice()
	inv.Buyer = &entity.Buyer{
		Name:       "John Doe",
		TaxNumber:  "311111121111113",
		StreetName: "King Street",
		CityName:   "Jeddah",
	}

	doc, err := NewXMLBuilder().BuildHashable(buildContext(inv))
	require.NoError(t, err)
	root := doc.Root()

	assert.Equal(t, "0100000", root.SelectElement("cbc:InvoiceTypeCode").SelectAttrValue("name", ""))
	company := root.FindElement("cac:AccountingCustomerParty/cac:Party/cac:PartyTaxScheme/cbc:CompanyID")
	require.NotNil(t, company)
	assert.Equal(t, "311111121111113", company.Text())
	assert.Nil(t, root.SelectElement("cac:PaymentMeans"))
}

func TestBuildHashableSimplifiedHasEmptyCustomerParty(t *testing.T) {
	doc, err := NewXMLBuilder().BuildHashable(buildContext(testInvoice()))
	require.NoError(t, err)

	party := doc.Root().FindElement("cac:AccountingCustomerParty/cac:Party")
	require.NotNil(t, party)
	assert.Empty(t, party.ChildElements())
}

func TestBuildHashableRejectsMissingUUID(t *testing.T) {
	inv := testInvoice()
	inv.UUID = ""
	_, err := NewXMLBuilder().BuildHashable(buildContext(inv))
	assert.Error(t, err)
}

func TestBuildHashableDeterministic(t *testing.T) {
	b := NewXMLBuilder()
	first, err := b.BuildHashable(buildContext(testInvoice()))
	require.NoError(t, err)
	second, err := b.BuildHashable(buildContext(testInvoice()))
	require.NoError(t, err)

	a, err := first.WriteToString()
	require.NoError(t, err)
	bs, err := second.WriteToString()
	require.NoError(t, err)
	assert.Equal(t, a, bs)

	hashA, err := InvoiceHash([]byte(a))
	require.NoError(t, err)
	hashB, err := InvoiceHash([]byte(bs))
	require.NoError(t, err)
	assert.Equal(t, hashA, hashB)
}

func TestInvoiceLineDiscount(t *testing.T) {
	inv := testInvoice()
	inv.Lines[0].Discounts = []entity.Discount{
		{Amount: decimal.NewFromInt(10), Reason: "Promo"},
	}

	ctx := buildContext(inv)
	doc, err := NewXMLBuilder().BuildHashable(ctx)
	require.NoError(t, err)
	root := doc.Root()

	ac := root.SelectElement("cac:AllowanceCharge")
	require.NotNil(t, ac)
	assert.Equal(t, "false", ac.SelectElement("cbc:ChargeIndicator").Text())
	assert.Equal(t, "10.00", ac.SelectElement("cbc:Amount").Text())

	line := root.SelectElement("cac:InvoiceLine")
	assert.Equal(t, "190.00", line.SelectElement("cbc:LineExtensionAmount").Text())
	priceAC := line.FindElement("cac:Price/cac:AllowanceCharge")
	require.NotNil(t, priceAC)
	assert.Equal(t, "Promo", priceAC.SelectElement("cbc:AllowanceChargeReason").Text())

	lmt := root.SelectElement("cac:LegalMonetaryTotal")
	assert.Equal(t, "10.00", lmt.SelectElement("cbc:AllowanceTotalAmount").Text())
	assert.Equal(t, "190.00", lmt.SelectElement("cbc:TaxExclusiveAmount").Text())
	assert.Equal(t, "218.50", lmt.SelectElement("cbc:TaxInclusiveAmount").Text())
}

func firstChildElement(doc *etree.Document) *etree.Element {
	return doc.Root().ChildElements()[0]
}

package zatca

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/albadr/zatca-integration/internal/domain/entity"
	domzatca "github.com/albadr/zatca-integration/internal/domain/zatca"
)

// UBL 2.1 namespaces.
const (
	nsInvoice = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	nsCAC     = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	nsCBC     = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
	nsExt     = "urn:oasis:names:specification:ubl:schema:xsd:CommonExtensionComponents-2"
)

const (
	currencySAR = "SAR"
	profileID   = "reporting:1.0"
)

// XMLBuilder renders the hashable UBL document for an invoice: the full
// document without extensions, QR reference or signature block. Signing
// decorates a copy of this document, so every element here is part of the
// bytes the invoice hash covers.
type XMLBuilder struct{}

// NewXMLBuilder creates the builder.
func NewXMLBuilder() *XMLBuilder {
	return &XMLBuilder{}
}

// BuildHashable renders the invoice as a UBL document ready for hashing.
func (b *XMLBuilder) BuildHashable(ctx *DocumentBuildContext) (*etree.Document, error) {
	inv := ctx.Invoice
	if inv == nil {
		return nil, fmt.Errorf("zatca: build document: nil invoice")
	}
	if len(inv.Lines) == 0 {
		return nil, fmt.Errorf("zatca: build document: invoice %d has no lines", inv.ID)
	}
	if inv.UUID == "" {
		return nil, fmt.Errorf("zatca: build document: invoice %d has no UUID", inv.ID)
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("Invoice")
	root.CreateAttr("xmlns", nsInvoice)
	root.CreateAttr("xmlns:cac", nsCAC)
	root.CreateAttr("xmlns:cbc", nsCBC)

	root.CreateElement("cbc:ProfileID").SetText(profileID)
	root.CreateElement("cbc:ID").SetText(inv.Number)
	root.CreateElement("cbc:UUID").SetText(inv.UUID)
	root.CreateElement("cbc:IssueDate").SetText(inv.IssueDate())
	root.CreateElement("cbc:IssueTime").SetText(inv.IssueTime())

	typeCode := root.CreateElement("cbc:InvoiceTypeCode")
	typeCode.CreateAttr("name", inv.TypeName())
	typeCode.SetText(strconv.Itoa(inv.TypeCode()))

	root.CreateElement("cbc:DocumentCurrencyCode").SetText(currencySAR)
	root.CreateElement("cbc:TaxCurrencyCode").SetText(currencySAR)

	b.addBillingReference(root, inv)
	b.addCounterReference(root, inv)
	b.addPreviousHashReference(root, ctx.PreviousInvoiceHash)
	b.addSupplier(root, ctx.Profile)
	b.addCustomer(root, inv.Buyer)
	b.addReturnReason(root, inv)
	b.addInvoiceAllowance(root, ctx.Totals)
	b.addTaxTotals(root, inv, ctx.Totals)
	b.addMonetaryTotal(root, ctx.Totals)
	b.addInvoiceLines(root, inv, ctx.Totals)

	return doc, nil
}

// addBillingReference links a credit or debit note to the invoice it corrects.
func (b *XMLBuilder) addBillingReference(root *etree.Element, inv *entity.Invoice) {
	if inv.ReferenceID == nil {
		return
	}
	ref := root.CreateElement("cac:BillingReference").CreateElement("cac:InvoiceDocumentReference")
	number := inv.ReferenceNumber
	if number == "" {
		number = strconv.FormatInt(*inv.ReferenceID, 10)
	}
	ref.CreateElement("cbc:ID").SetText(number)
}

func (b *XMLBuilder) addCounterReference(root *etree.Element, inv *entity.Invoice) {
	ref := root.CreateElement("cac:AdditionalDocumentReference")
	ref.CreateElement("cbc:ID").SetText("ICV")
	ref.CreateElement("cbc:UUID").SetText(strconv.FormatInt(inv.Counter, 10))
}

func (b *XMLBuilder) addPreviousHashReference(root *etree.Element, pih string) {
	ref := root.CreateElement("cac:AdditionalDocumentReference")
	ref.CreateElement("cbc:ID").SetText("PIH")
	obj := ref.CreateElement("cac:Attachment").CreateElement("cbc:EmbeddedDocumentBinaryObject")
	obj.CreateAttr("mimeCode", "text/plain")
	obj.SetText(pih)
}

func (b *XMLBuilder) addSupplier(root *etree.Element, profile entity.TaxpayerProfile) {
	party := root.CreateElement("cac:AccountingSupplierParty").CreateElement("cac:Party")

	id := party.CreateElement("cac:PartyIdentification").CreateElement("cbc:ID")
	id.CreateAttr("schemeID", "CRN")
	id.SetText(profile.CommercialRegister)

	addr := party.CreateElement("cac:PostalAddress")
	addr.CreateElement("cbc:StreetName").SetText(profile.StreetName)
	addr.CreateElement("cbc:BuildingNumber").SetText(profile.BuildingNumber)
	addr.CreateElement("cbc:PlotIdentification").SetText(profile.PlotIdentification)
	addr.CreateElement("cbc:CitySubdivisionName").SetText(profile.City)
	addr.CreateElement("cbc:CityName").SetText(profile.City)
	addr.CreateElement("cbc:PostalZone").SetText(profile.PostalNumber)
	addr.CreateElement("cac:Country").CreateElement("cbc:IdentificationCode").SetText("SA")

	scheme := party.CreateElement("cac:PartyTaxScheme")
	scheme.CreateElement("cbc:CompanyID").SetText(profile.TaxNumber)
	scheme.CreateElement("cac:TaxScheme").CreateElement("cbc:ID").SetText("VAT")

	party.CreateElement("cac:PartyLegalEntity").CreateElement("cbc:RegistrationName").SetText(profile.Name)
}

// addCustomer renders the buyer party. A simplified invoice with no buyer
// still carries an empty customer party so the document shape is stable.
func (b *XMLBuilder) addCustomer(root *etree.Element, buyer *entity.Buyer) {
	party := root.CreateElement("cac:AccountingCustomerParty").CreateElement("cac:Party")
	if buyer == nil {
		return
	}

	id := party.CreateElement("cac:PartyIdentification").CreateElement("cbc:ID")
	id.CreateAttr("schemeID", "OTH")
	id.SetText(buyer.TaxNumber)

	addr := party.CreateElement("cac:PostalAddress")
	addr.CreateElement("cbc:StreetName").SetText(buyer.StreetName)
	addr.CreateElement("cbc:BuildingNumber").SetText(buyer.BuildingNumber)
	addr.CreateElement("cbc:PlotIdentification").SetText(buyer.PlotIdentification)
	addr.CreateElement("cbc:CitySubdivisionName").SetText(buyer.CityName)
	addr.CreateElement("cbc:CityName").SetText(buyer.CityName)
	addr.CreateElement("cbc:PostalZone").SetText(buyer.PostalNumber)
	addr.CreateElement("cac:Country").CreateElement("cbc:IdentificationCode").SetText("SA")

	if buyer.TaxNumber != "" {
		scheme := party.CreateElement("cac:PartyTaxScheme")
		scheme.CreateElement("cbc:CompanyID").SetText(buyer.TaxNumber)
		scheme.CreateElement("cac:TaxScheme").CreateElement("cbc:ID").SetText("VAT")
	}

	party.CreateElement("cac:PartyLegalEntity").CreateElement("cbc:RegistrationName").SetText(buyer.Name)
}

// addReturnReason attaches the payment means block carrying the credit/debit
// note reason. Plain invoices (388) do not carry it.
func (b *XMLBuilder) addReturnReason(root *etree.Element, inv *entity.Invoice) {
	code := inv.TypeCode()
	if code != entity.TypeCodeCreditNote && code != entity.TypeCodeDebitNote {
		return
	}
	pm := root.CreateElement("cac:PaymentMeans")
	pm.CreateElement("cbc:PaymentMeansCode").SetText("10")
	pm.CreateElement("cbc:InstructionNote").SetText("Return of goods")
}

func (b *XMLBuilder) addInvoiceAllowance(root *etree.Element, totals domzatca.InvoiceTotals) {
	if totals.Discount.IsZero() {
		return
	}
	ac := root.CreateElement("cac:AllowanceCharge")
	ac.CreateElement("cbc:ChargeIndicator").SetText("false")
	ac.CreateElement("cbc:AllowanceChargeReason").SetText("Discount")
	b.amount(ac, "cbc:Amount", totals.Discount)

	cat := ac.CreateElement("cac:TaxCategory")
	catID := cat.CreateElement("cbc:ID")
	catID.CreateAttr("schemeID", "UN/ECE 5305")
	catID.CreateAttr("schemeAgencyID", "6")
	catID.SetText("S")
	cat.CreateElement("cbc:Percent").SetText("15")
	schemeID := cat.CreateElement("cac:TaxScheme").CreateElement("cbc:ID")
	schemeID.CreateAttr("schemeID", "UN/ECE 5153")
	schemeID.CreateAttr("schemeAgencyID", "6")
	schemeID.SetText("VAT")
}

// addTaxTotals emits the two TaxTotal blocks: one with the per-category
// subtotals and one carrying only the total tax in the tax currency.
func (b *XMLBuilder) addTaxTotals(root *etree.Element, inv *entity.Invoice, totals domzatca.InvoiceTotals) {
	withSubtotals := root.CreateElement("cac:TaxTotal")
	b.amount(withSubtotals, "cbc:TaxAmount", totals.Tax)

	for _, st := range domzatca.TaxBreakdown(inv.Lines) {
		sub := withSubtotals.CreateElement("cac:TaxSubtotal")
		b.amount(sub, "cbc:TaxableAmount", st.Taxable)
		b.amount(sub, "cbc:TaxAmount", st.Amount)

		cat := sub.CreateElement("cac:TaxCategory")
		catID := cat.CreateElement("cbc:ID")
		catID.CreateAttr("schemeID", "UN/ECE 5305")
		catID.CreateAttr("schemeAgencyID", "6")
		catID.SetText(st.Category)
		cat.CreateElement("cbc:Percent").SetText(domzatca.Amount(st.Percent))
		if st.ExemptionType != "" {
			cat.CreateElement("cbc:TaxExemptionReasonCode").SetText(st.ExemptionType)
		}
		if st.ExemptionReason != "" {
			cat.CreateElement("cbc:TaxExemptionReason").SetText(st.ExemptionReason)
		}
		schemeID := cat.CreateElement("cac:TaxScheme").CreateElement("cbc:ID")
		schemeID.CreateAttr("schemeID", "UN/ECE 5153")
		schemeID.CreateAttr("schemeAgencyID", "6")
		schemeID.SetText("VAT")
	}

	taxOnly := root.CreateElement("cac:TaxTotal")
	b.amount(taxOnly, "cbc:TaxAmount", totals.Tax)
}

func (b *XMLBuilder) addMonetaryTotal(root *etree.Element, totals domzatca.InvoiceTotals) {
	lmt := root.CreateElement("cac:LegalMonetaryTotal")
	b.amount(lmt, "cbc:LineExtensionAmount", totals.LineExtension)
	b.amount(lmt, "cbc:TaxExclusiveAmount", totals.TaxExclusive)
	b.amount(lmt, "cbc:TaxInclusiveAmount", totals.Net)
	b.amount(lmt, "cbc:AllowanceTotalAmount", totals.Discount)
	b.amount(lmt, "cbc:PayableAmount", totals.Net)
}

func (b *XMLBuilder) addInvoiceLines(root *etree.Element, inv *entity.Invoice, totals domzatca.InvoiceTotals) {
	for i, item := range inv.Lines {
		lt := totals.Lines[i]

		line := root.CreateElement("cac:InvoiceLine")
		line.CreateElement("cbc:ID").SetText(strconv.FormatInt(item.ID, 10))

		qty := line.CreateElement("cbc:InvoicedQuantity")
		qty.CreateAttr("unitCode", "PCE")
		qty.SetText(item.Quantity.String())

		b.amount(line, "cbc:LineExtensionAmount", lt.Net)

		taxTotal := line.CreateElement("cac:TaxTotal")
		b.amount(taxTotal, "cbc:TaxAmount", lt.Tax)
		b.amount(taxTotal, "cbc:RoundingAmount", lt.Gross)

		itemEl := line.CreateElement("cac:Item")
		itemEl.CreateElement("cbc:Name").SetText(item.Name)
		for _, t := range item.Taxes {
			cat := itemEl.CreateElement("cac:ClassifiedTaxCategory")
			cat.CreateElement("cbc:ID").SetText(t.Category)
			cat.CreateElement("cbc:Percent").SetText(domzatca.Amount(t.Percentage))
			cat.CreateElement("cac:TaxScheme").CreateElement("cbc:ID").SetText("VAT")
		}

		price := line.CreateElement("cac:Price")
		b.amount(price, "cbc:PriceAmount", item.UnitPrice)
		for _, d := range item.Discounts {
			ac := price.CreateElement("cac:AllowanceCharge")
			ac.CreateElement("cbc:ChargeIndicator").SetText("false")
			reason := d.Reason
			if reason == "" {
				reason = "Discount"
			}
			ac.CreateElement("cbc:AllowanceChargeReason").SetText(reason)
			b.amount(ac, "cbc:Amount", d.Amount)
		}
	}
}

// amount appends a monetary element with the SAR currency attribute.
func (b *XMLBuilder) amount(parent *etree.Element, tag string, value decimal.Decimal) {
	el := parent.CreateElement(tag)
	el.CreateAttr("currencyID", currencySAR)
	el.SetText(domzatca.Amount(value))
}

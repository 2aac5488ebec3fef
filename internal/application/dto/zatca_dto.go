package dto

import (
	"time"

	"github.com/albadr/zatca-integration/internal/domain/entity"
	"github.com/albadr/zatca-integration/internal/domain/repository"
)

// StoreSettingsResponse is one store with its tax integration state.
type StoreSettingsResponse struct {
	StoreID            int64  `json:"store_id"`
	ShopID             int64  `json:"shop_id"`
	Name               string `json:"name"`
	CommonName         string `json:"common_name"`
	TaxNumber          string `json:"tax_number"`
	CommercialRegister string `json:"commercial_register"`
	StreetName         string `json:"street_name"`
	BuildingNumber     string `json:"building_number"`
	PlotIdentification string `json:"plot_identification"`
	City               string `json:"city"`
	PostalNumber       string `json:"postal_number"`
	Environment        string `json:"environment"`
	BusinessCategory   string `json:"business_category"`

	HasCertificate bool       `json:"has_certificate"`
	SyncStartDate  *time.Time `json:"sync_start_date,omitempty"`
}

// NewStoreSettingsResponse maps the joined settings view.
func NewStoreSettingsResponse(s *repository.StoreSettings) StoreSettingsResponse {
	out := StoreSettingsResponse{
		StoreID:            s.Profile.StoreID,
		ShopID:             s.Profile.ShopID,
		Name:               s.Profile.Name,
		CommonName:         s.Profile.CommonName,
		TaxNumber:          s.Profile.TaxNumber,
		CommercialRegister: s.Profile.CommercialRegister,
		StreetName:         s.Profile.StreetName,
		BuildingNumber:     s.Profile.BuildingNumber,
		PlotIdentification: s.Profile.PlotIdentification,
		City:               s.Profile.City,
		PostalNumber:       s.Profile.PostalNumber,
		Environment:        s.Profile.Environment,
		BusinessCategory:   s.Profile.BusinessCategory,
		HasCertificate:     s.Credential.HasCertificate(),
	}
	if !s.Credential.SyncStartDate.IsZero() {
		t := s.Credential.SyncStartDate
		out.SyncStartDate = &t
	}
	return out
}

// UpdateSettingsRequest is the body for PUT /api/stores/:id/settings.
type UpdateSettingsRequest struct {
	Name               string `json:"name"`
	CommonName         string `json:"common_name"`
	TaxNumber          string `json:"tax_number"`
	CommercialRegister string `json:"commercial_register"`
	StreetName         string `json:"street_name"`
	BuildingNumber     string `json:"building_number"`
	PlotIdentification string `json:"plot_identification"`
	City               string `json:"city"`
	PostalNumber       string `json:"postal_number"`
	Environment        string `json:"environment"`
	BusinessCategory   string `json:"business_category"`
}

// Profile maps the request onto a taxpayer profile for persistence.
func (r UpdateSettingsRequest) Profile(storeID, shopID int64) entity.TaxpayerProfile {
	return entity.TaxpayerProfile{
		StoreID:            storeID,
		ShopID:             shopID,
		Name:               r.Name,
		CommonName:         r.CommonName,
		TaxNumber:          r.TaxNumber,
		CommercialRegister: r.CommercialRegister,
		StreetName:         r.StreetName,
		BuildingNumber:     r.BuildingNumber,
		PlotIdentification: r.PlotIdentification,
		City:               r.City,
		PostalNumber:       r.PostalNumber,
		Environment:        r.Environment,
		BusinessCategory:   r.BusinessCategory,
	}
}

// CertificateRequest is the body for the certificate endpoints.
type CertificateRequest struct {
	OTP string `json:"otp"`
}

// SubmitBatchRequest is the body for POST /api/invoices/submit.
type SubmitBatchRequest struct {
	StoreID int64 `json:"store_id"`
}

// InvoiceListItem is one row of the sync/review invoice listing.
type InvoiceListItem struct {
	ID         int64     `json:"id"`
	Number     string    `json:"number"`
	Type       string    `json:"type"`
	Date       time.Time `json:"date"`
	Net        string    `json:"net"`
	VATSum     string    `json:"vat_sum"`
	ClientName string    `json:"client_name,omitempty"`
	StoreName  string    `json:"store_name"`
}

// NewInvoiceListItem maps one listing row; amounts render with two decimals.
func NewInvoiceListItem(s *repository.InvoiceSummary) InvoiceListItem {
	return InvoiceListItem{
		ID:         s.ID,
		Number:     s.Number,
		Type:       s.Type,
		Date:       s.Date,
		Net:        s.Net.StringFixed(2),
		VATSum:     s.VATSum.StringFixed(2),
		ClientName: s.ClientName,
		StoreName:  s.StoreName,
	}
}

// StatisticsResponse is the store's integration dashboard payload.
type StatisticsResponse struct {
	Settings               StoreSettingsResponse `json:"settings"`
	LastSyncDate           *time.Time            `json:"last_sync_date,omitempty"`
	InvoicesNeedReview     int64                 `json:"invoices_need_review"`
	UnsynchronizedInvoices int64                 `json:"unsynchronized_invoices"`
}

// SubmissionResponse is the audit record for one invoice.
type SubmissionResponse struct {
	InvoiceID    int64     `json:"invoice_id"`
	StoreID      int64     `json:"store_id"`
	Status       string    `json:"status"`
	InvoiceType  int       `json:"invoice_type"`
	DocumentType string    `json:"document_type"`
	QRCode       string    `json:"qr_code"`
	InvoiceHash  string    `json:"invoice_hash"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewSubmissionResponse maps one submission record.
func NewSubmissionResponse(rec *entity.SubmissionRecord) SubmissionResponse {
	return SubmissionResponse{
		InvoiceID:    rec.InvoiceID,
		StoreID:      rec.StoreID,
		Status:       rec.Status,
		InvoiceType:  rec.InvoiceType,
		DocumentType: rec.DocumentType,
		QRCode:       rec.QRCode,
		InvoiceHash:  rec.InvoiceHash,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
}

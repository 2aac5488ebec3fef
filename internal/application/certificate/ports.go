package certificate

import (
	"context"
	"time"

	"github.com/albadr/zatca-integration/internal/domain/entity"
	"github.com/albadr/zatca-integration/internal/domain/repository"
	"github.com/albadr/zatca-integration/internal/infrastructure/storage"
	"github.com/albadr/zatca-integration/internal/infrastructure/zatca"
)

// SettingsStore is what the lifecycle needs from the settings service.
type SettingsStore interface {
	Get(storeID, shopID int64) (*repository.StoreSettings, error)
	UpdateCredential(storeID, shopID int64, cred *entity.CredentialBundle) error
}

// Gateway is the authority client surface used during onboarding and renewal.
type Gateway interface {
	RequestCompliance(ctx context.Context, baseURL, csrB64, otp string) (*zatca.CSIDResponse, error)
	RequestProductionCSID(ctx context.Context, baseURL, complianceRequestID string, creds zatca.Credentials) (*zatca.ProductionResult, error)
	RenewProductionCSID(ctx context.Context, baseURL, csrB64 string, creds zatca.Credentials) (*zatca.ProductionResult, error)
	SubmitComplianceInvoice(ctx context.Context, baseURL string, payload zatca.SubmissionPayload, creds zatca.Credentials) (*zatca.InvoiceResponse, error)
}

// FileStore is the credential file surface.
type FileStore interface {
	CredentialPaths(shopID, storeID int64) storage.CredentialPaths
	DocumentPath(shopID, storeID int64, kind string, invoiceID int64, at time.Time) string
	Write(relPath string, data []byte) error
	Read(relPath string) ([]byte, error)
	Exists(relPath string) bool
}

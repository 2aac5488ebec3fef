package invoicing

import (
	"context"
	"time"

	"github.com/albadr/zatca-integration/internal/domain/repository"
	"github.com/albadr/zatca-integration/internal/infrastructure/zatca"
)

// SettingsStore is what the submission flow needs from the settings service.
type SettingsStore interface {
	Get(storeID, shopID int64) (*repository.StoreSettings, error)
}

// Gateway is the authority client surface for live submissions.
type Gateway interface {
	SubmitInvoice(ctx context.Context, baseURL string, payload zatca.SubmissionPayload, creds zatca.Credentials, standard bool) (*zatca.InvoiceResponse, error)
}

// FileStore reads credential material and keeps audit copies of generated
// documents.
type FileStore interface {
	DocumentPath(shopID, storeID int64, kind string, invoiceID int64, at time.Time) string
	Write(relPath string, data []byte) error
	Read(relPath string) ([]byte, error)
	Exists(relPath string) bool
}

// Package invoicing builds, signs and submits invoices to the authority and
// keeps the per-invoice audit trail.
package invoicing

import (
	"encoding/base64"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/albadr/zatca-integration/internal/domain"
	"github.com/albadr/zatca-integration/internal/domain/entity"
	"github.com/albadr/zatca-integration/internal/domain/repository"
	domzatca "github.com/albadr/zatca-integration/internal/domain/zatca"
	"github.com/albadr/zatca-integration/internal/infrastructure/zatca"
	"github.com/albadr/zatca-integration/pkg/logger"
)

// DocumentBuilder turns a loaded invoice into a submittable signed document.
// It owns the side effects of generation: assigning the UUID once, resolving
// the previous-invoice-hash chain, persisting the QR payload and keeping
// audit copies of the generated XML.
type DocumentBuilder struct {
	invoices    repository.InvoiceRepository
	submissions repository.SubmissionRepository
	files       FileStore
	signer      *zatca.Signer
	log         *logger.Logger

	now func() time.Time
}

// NewDocumentBuilder wires the builder.
func NewDocumentBuilder(invoices repository.InvoiceRepository, submissions repository.SubmissionRepository, files FileStore, signer *zatca.Signer, log *logger.Logger) *DocumentBuilder {
	return &DocumentBuilder{
		invoices:    invoices,
		submissions: submissions,
		files:       files,
		signer:      signer,
		log:         log,
		now:         time.Now,
	}
}

// Build produces the signed document for one invoice. The invoice UUID is
// assigned and persisted on first build and never changes afterwards; the
// QR payload is re-persisted on every build so the stored value always
// matches the submitted document.
func (b *DocumentBuilder) Build(inv *entity.Invoice, profile entity.TaxpayerProfile, sctx *zatca.SigningContext) (*zatca.DocumentPayload, error) {
	if inv.UUID == "" {
		id := uuid.New().String()
		if err := b.invoices.SetUUID(inv.ID, id); err != nil {
			return nil, err
		}
		inv.UUID = id
	}

	bctx := &zatca.DocumentBuildContext{
		Invoice:             inv,
		Profile:             profile,
		Totals:              domzatca.ComputeInvoiceTotals(inv.Lines),
		PreviousInvoiceHash: b.previousHash(inv.StoreID, inv.ShopID),
		SigningTime:         b.now(),
	}

	docs, err := b.signer.Build(bctx, sctx)
	if err != nil {
		return nil, err
	}

	if err := b.invoices.SetQRCode(inv.ID, docs.QR); err != nil {
		return nil, err
	}
	inv.QRCode = docs.QR

	b.storeAuditCopy(inv, "hash", docs.HashXML)
	b.storeAuditCopy(inv, "sign", docs.SignXML)

	return &zatca.DocumentPayload{
		InvoiceHash:  docs.InvoiceHash,
		UUID:         inv.UUID,
		Invoice:      base64.StdEncoding.EncodeToString(docs.SignXML),
		QR:           docs.QR,
		HashXML:      string(docs.HashXML),
		SignXML:      string(docs.SignXML),
		InvoiceType:  inv.TypeCode(),
		DocumentType: inv.DocumentType(),
	}, nil
}

// previousHash resolves the PIH chain value: the invoice hash of the store's
// latest submission record, or the chain seed when none exists. A read
// failure falls back to the seed rather than blocking the submission.
func (b *DocumentBuilder) previousHash(storeID, shopID int64) string {
	rec, err := b.submissions.LatestByStore(storeID, shopID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			b.log.Warn().Err(err).Int64("store_id", storeID).Msg("previous submission lookup failed, seeding hash chain")
		}
		return zatca.ZeroInvoiceHash()
	}
	if rec.InvoiceHash == "" {
		return zatca.ZeroInvoiceHash()
	}
	return rec.InvoiceHash
}

// storeAuditCopy writes one generated document to disk. Audit copies are
// best-effort: the signed XML also lands in the submission record.
func (b *DocumentBuilder) storeAuditCopy(inv *entity.Invoice, kind string, data []byte) {
	path := b.files.DocumentPath(inv.ShopID, inv.StoreID, kind, inv.ID, b.now())
	if err := b.files.Write(path, data); err != nil {
		b.log.Warn().Err(err).Str("path", path).Msg("audit copy write failed")
	}
}

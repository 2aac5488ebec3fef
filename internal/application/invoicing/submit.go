package invoicing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/albadr/zatca-integration/internal/domain"
	"github.com/albadr/zatca-integration/internal/domain/entity"
	"github.com/albadr/zatca-integration/internal/domain/repository"
	domzatca "github.com/albadr/zatca-integration/internal/domain/zatca"
	"github.com/albadr/zatca-integration/internal/infrastructure/zatca"
	"github.com/albadr/zatca-integration/pkg/logger"
)

// SubmissionResult is the per-invoice outcome surfaced to callers: the
// classified status plus the authority's coded messages.
type SubmissionResult struct {
	InvoiceID int64             `json:"invoice_id"`
	Status    string            `json:"status"`
	Warnings  map[string]string `json:"warnings,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
	QRCode    string            `json:"qr_code,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Service drives live invoice submissions. Submissions for the same invoice
// are serialized through the invoice lock, and every attempt leaves an audit
// record.
type Service struct {
	invoices    repository.InvoiceRepository
	submissions repository.SubmissionRepository
	settings    SettingsStore
	gateway     Gateway
	files       FileStore
	builder     *DocumentBuilder
	locker      repository.InvoiceLocker
	log         *logger.Logger
}

// NewService wires the submission service.
func NewService(
	invoices repository.InvoiceRepository,
	submissions repository.SubmissionRepository,
	settings SettingsStore,
	gateway Gateway,
	files FileStore,
	builder *DocumentBuilder,
	locker repository.InvoiceLocker,
	log *logger.Logger,
) *Service {
	return &Service{
		invoices:    invoices,
		submissions: submissions,
		settings:    settings,
		gateway:     gateway,
		files:       files,
		builder:     builder,
		locker:      locker,
		log:         log,
	}
}

// Submit signs and submits one invoice. An invoice already recorded as PASS
// is never resubmitted; a certificate problem surfaces as a domain error
// before any document is generated.
func (s *Service) Submit(ctx context.Context, invoiceID, shopID int64) (*SubmissionResult, error) {
	inv, err := s.invoices.GetForSubmission(invoiceID, shopID)
	if err != nil {
		return nil, err
	}
	if inv.TransactionType != entity.TransactionSales && inv.TransactionType != entity.TransactionSalesReturn {
		return nil, domain.ErrInvalidInvoiceType
	}

	passed, err := s.submissions.HasPassed(invoiceID)
	if err != nil {
		return nil, err
	}
	if passed {
		return nil, domain.ErrAlreadySubmitted
	}

	st, err := s.settings.Get(inv.StoreID, shopID)
	if err != nil {
		return nil, err
	}
	if !st.Credential.HasCertificate() || !s.files.Exists(st.Credential.CertificatePath) {
		return nil, domain.ErrCertificateMissing
	}
	if !st.Credential.SyncStartDate.IsZero() && inv.Date.Before(st.Credential.SyncStartDate) {
		return nil, domain.ErrInvoiceBeforeCert
	}

	sctx, creds, err := s.loadCredential(st.Credential)
	if err != nil {
		return nil, err
	}

	var result *SubmissionResult
	err = s.locker.WithInvoiceLock(ctx, invoiceID, func() error {
		// Another worker may have pushed the invoice through while this one
		// waited on the lock.
		passed, err := s.submissions.HasPassed(invoiceID)
		if err != nil {
			return err
		}
		if passed {
			return domain.ErrAlreadySubmitted
		}

		result, err = s.submitLocked(ctx, inv, st, sctx, creds)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// submitLocked runs the build-submit-record sequence under the invoice lock.
func (s *Service) submitLocked(ctx context.Context, inv *entity.Invoice, st *repository.StoreSettings, sctx *zatca.SigningContext, creds zatca.Credentials) (*SubmissionResult, error) {
	payload, err := s.builder.Build(inv, st.Profile, sctx)
	if err != nil {
		return nil, err
	}

	record := &entity.SubmissionRecord{
		InvoiceID:    inv.ID,
		StoreID:      inv.StoreID,
		ShopID:       inv.ShopID,
		QRCode:       payload.QR,
		InvoiceHash:  payload.InvoiceHash,
		SignedXML:    payload.SignXML,
		InvoiceType:  payload.InvoiceType,
		DocumentType: payload.DocumentType,
	}

	resp, err := s.gateway.SubmitInvoice(ctx, st.Profile.BaseURL(), zatca.SubmissionPayload{
		InvoiceHash: payload.InvoiceHash,
		UUID:        payload.UUID,
		Invoice:     payload.Invoice,
	}, creds, payload.DocumentType == entity.DocumentStandard)
	if err != nil {
		// Record the failed attempt so retries leave a trail, then surface
		// the error.
		record.Status = entity.SubmissionError
		record.Response = err.Error()
		if uerr := s.submissions.Upsert(record); uerr != nil {
			s.log.Error().Err(uerr).Int64("invoice_id", inv.ID).Msg("submission record write failed")
		}
		return nil, err
	}

	outcome := s.classify(resp, payload.DocumentType)
	record.Status = outcome.Status
	record.Response = string(resp.Raw)
	if err := s.submissions.Upsert(record); err != nil {
		return nil, err
	}

	s.log.Info().Int64("invoice_id", inv.ID).Int64("store_id", inv.StoreID).
		Str("document_type", payload.DocumentType).Str("status", outcome.Status).
		Msg("invoice submitted")

	return &SubmissionResult{
		InvoiceID: inv.ID,
		Status:    outcome.Status,
		Warnings:  outcome.Warnings,
		Errors:    outcome.Errors,
		QRCode:    payload.QR,
	}, nil
}

// classify maps the gateway response to a submission status. Responses
// without validation results are judged by the document's reported state.
func (s *Service) classify(resp *zatca.InvoiceResponse, documentType string) domzatca.ValidationOutcome {
	if resp.ValidationResults != nil {
		return domzatca.Classify(resp.ValidationResults.WarningMessages, resp.ValidationResults.ErrorMessages)
	}
	if resp.Accepted(documentType) {
		return domzatca.ValidationOutcome{Status: domzatca.StatusPass, Warnings: map[string]string{}, Errors: map[string]string{}}
	}
	return domzatca.ValidationOutcome{
		Status:   domzatca.StatusError,
		Warnings: map[string]string{},
		Errors:   map[string]string{fmt.Sprintf("HTTP-%d", resp.StatusCode): "document rejected without validation results"},
	}
}

// SubmitMany submits every pending sales and sales-return invoice of the
// store in id order, so documents go out in the order they were issued.
// Per-invoice failures are collected, not fatal; invoices that were accepted
// concurrently are skipped.
func (s *Service) SubmitMany(ctx context.Context, storeID, shopID int64) ([]*SubmissionResult, error) {
	ids, err := s.invoices.ListPendingIDs(storeID, shopID)
	if err != nil {
		return nil, err
	}
	var results []*SubmissionResult
	for _, id := range ids {
		res, err := s.Submit(ctx, id, shopID)
		if err != nil {
			if errors.Is(err, domain.ErrAlreadySubmitted) {
				continue
			}
			results = append(results, &SubmissionResult{
				InvoiceID: id,
				Status:    entity.SubmissionError,
				Error:     err.Error(),
			})
			continue
		}
		results = append(results, res)
	}
	return results, nil
}

// List returns the store's invoices for the sync or review list. The window
// opens at the credential's sync start date; a store that never onboarded
// lists from the zero time.
func (s *Service) List(storeID, shopID int64, filter string) ([]*repository.InvoiceSummary, error) {
	st, err := s.settings.Get(storeID, shopID)
	if err != nil {
		return nil, err
	}
	return s.invoices.ListSummaries(storeID, shopID, filter, st.Credential.SyncStartDate)
}

// Statistics summarizes the store's integration state: its settings, the
// time of the last submission attempt and the two pending counts.
type Statistics struct {
	Settings       *repository.StoreSettings
	LastSyncDate   *time.Time
	NeedReview     int64
	Unsynchronized int64
}

// GetStatistics assembles the statistics for one store.
func (s *Service) GetStatistics(storeID, shopID int64) (*Statistics, error) {
	st, err := s.settings.Get(storeID, shopID)
	if err != nil {
		return nil, err
	}

	stats := &Statistics{Settings: st}

	last, err := s.submissions.LastSyncTime(storeID, shopID)
	switch {
	case err == nil:
		stats.LastSyncDate = &last
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	syncStart := st.Credential.SyncStartDate
	if stats.NeedReview, err = s.invoices.CountByFilter(storeID, shopID, repository.ListFilterReview, syncStart); err != nil {
		return nil, err
	}
	if stats.Unsynchronized, err = s.invoices.CountByFilter(storeID, shopID, repository.ListFilterSync, syncStart); err != nil {
		return nil, err
	}
	return stats, nil
}

// GetRecord returns the audit record for one invoice.
func (s *Service) GetRecord(invoiceID int64) (*entity.SubmissionRecord, error) {
	return s.submissions.GetByInvoice(invoiceID)
}

// loadCredential reads the store's certificate material and prepares the
// signing context and gateway credentials. A credential issued through the
// 428 fallback is still in compliance form, so that decoding is tried second.
func (s *Service) loadCredential(cred entity.CredentialBundle) (*zatca.SigningContext, zatca.Credentials, error) {
	cert, err := s.files.Read(cred.CertificatePath)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, zatca.Credentials{}, domain.ErrCertificateMissing
		}
		return nil, zatca.Credentials{}, err
	}
	key, err := s.files.Read(cred.PrivateKeyPath)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, zatca.Credentials{}, domain.ErrPrivateKeyMissing
		}
		return nil, zatca.Credentials{}, err
	}
	secret, err := s.files.Read(cred.SecretPath)
	if err != nil {
		return nil, zatca.Credentials{}, err
	}

	sctx, err := zatca.NewSigningContext(zatca.ModeProduction, cert, key)
	if err != nil {
		sctx, err = zatca.NewSigningContext(zatca.ModeCompliance, cert, key)
		if err != nil {
			return nil, zatca.Credentials{}, domain.ErrCertificateRenewal
		}
	}

	creds := zatca.Credentials{
		Username: sctx.AuthUsername(),
		Secret:   strings.TrimSpace(string(secret)),
	}
	return sctx, creds, nil
}

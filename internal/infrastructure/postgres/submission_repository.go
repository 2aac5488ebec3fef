package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/albadr/zatca-integration/internal/domain"
	"github.com/albadr/zatca-integration/internal/domain/entity"
	"github.com/albadr/zatca-integration/internal/domain/repository"
)

var _ repository.SubmissionRepository = (*SubmissionRepo)(nil)

// SubmissionRepo implements SubmissionRepository over PostgreSQL.
type SubmissionRepo struct {
	q Querier
}

// NewSubmissionRepository builds the adapter. Pass a pool or a tx (Querier).
func NewSubmissionRepository(q Querier) *SubmissionRepo {
	return &SubmissionRepo{q: q}
}

// Upsert writes the audit row keyed by invoice id.
func (r *SubmissionRepo) Upsert(rec *entity.SubmissionRecord) error {
	const query = `
		INSERT INTO zatca_results
			(transaction_id, store_id, shop_id, qr_code, invoice_hash, xml, status, invoice_type, document_type, response, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		ON CONFLICT (transaction_id) DO UPDATE SET
			qr_code       = EXCLUDED.qr_code,
			invoice_hash  = EXCLUDED.invoice_hash,
			xml           = EXCLUDED.xml,
			status        = EXCLUDED.status,
			invoice_type  = EXCLUDED.invoice_type,
			document_type = EXCLUDED.document_type,
			response      = EXCLUDED.response,
			updated_at    = now()`
	_, err := r.q.Exec(context.Background(), query,
		rec.InvoiceID, rec.StoreID, rec.ShopID,
		rec.QRCode, rec.InvoiceHash, rec.SignedXML,
		rec.Status, rec.InvoiceType, rec.DocumentType, rec.Response,
	)
	if err != nil {
		return fmt.Errorf("upsert zatca result: %w", err)
	}
	return nil
}

// HasPassed reports whether the invoice already has a PASS record.
func (r *SubmissionRepo) HasPassed(invoiceID int64) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM zatca_results
			WHERE transaction_id = $1 AND status = 'PASS'
		)`
	var exists bool
	if err := r.q.QueryRow(context.Background(), query, invoiceID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check passed submission: %w", err)
	}
	return exists, nil
}

// LatestByStore returns the newest record for the store; the previous-invoice
// hash chain reads from it.
func (r *SubmissionRepo) LatestByStore(storeID, shopID int64) (*entity.SubmissionRecord, error) {
	const query = `
		SELECT id, transaction_id, store_id, shop_id, qr_code, invoice_hash, xml,
		       status, invoice_type, document_type, response, created_at, updated_at
		FROM zatca_results
		WHERE store_id = $1 AND shop_id = $2
		ORDER BY id DESC
		LIMIT 1`
	return r.scanOne(r.q.QueryRow(context.Background(), query, storeID, shopID))
}

// GetByInvoice returns the record for one invoice.
func (r *SubmissionRepo) GetByInvoice(invoiceID int64) (*entity.SubmissionRecord, error) {
	const query = `
		SELECT id, transaction_id, store_id, shop_id, qr_code, invoice_hash, xml,
		       status, invoice_type, document_type, response, created_at, updated_at
		FROM zatca_results
		WHERE transaction_id = $1`
	return r.scanOne(r.q.QueryRow(context.Background(), query, invoiceID))
}

// LastSyncTime returns the update time of the store's newest result row.
func (r *SubmissionRepo) LastSyncTime(storeID, shopID int64) (time.Time, error) {
	const query = `
		SELECT updated_at
		FROM zatca_results
		WHERE store_id = $1 AND shop_id = $2
		ORDER BY updated_at DESC
		LIMIT 1`
	var t time.Time
	if err := r.q.QueryRow(context.Background(), query, storeID, shopID).Scan(&t); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, domain.ErrNotFound
		}
		return time.Time{}, fmt.Errorf("last sync time: %w", err)
	}
	return t, nil
}

func (r *SubmissionRepo) scanOne(row pgx.Row) (*entity.SubmissionRecord, error) {
	var rec entity.SubmissionRecord
	err := row.Scan(
		&rec.ID, &rec.InvoiceID, &rec.StoreID, &rec.ShopID,
		&rec.QRCode, &rec.InvoiceHash, &rec.SignedXML,
		&rec.Status, &rec.InvoiceType, &rec.DocumentType, &rec.Response,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get zatca result: %w", err)
	}
	return &rec, nil
}

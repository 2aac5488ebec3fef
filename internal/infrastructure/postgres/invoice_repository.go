package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/albadr/zatca-integration/internal/domain"
	"github.com/albadr/zatca-integration/internal/domain/entity"
	"github.com/albadr/zatca-integration/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implements InvoiceRepository over PostgreSQL (works with pool or tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository builds the adapter. Pass a pool or a tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

// GetForSubmission loads the transaction with buyer, lines and tax components.
func (r *InvoiceRepo) GetForSubmission(invoiceID, shopID int64) (*entity.Invoice, error) {
	const query = `
		SELECT t.id, t.store_id, t.shop_id, t.transaction_number,
		       COALESCE(t.uuid, ''), t.date, t.transaction_type,
		       t.reference_id, COALESCE(p.transaction_number, ''),
		       COALESCE(t.qr_code, ''),
		       t.created_at, t.updated_at,
		       c.id, COALESCE(c.name, ''), COALESCE(c.tax_number, ''),
		       COALESCE(c.street_name, ''), COALESCE(c.building_number, ''),
		       COALESCE(c.plot_identification, ''), COALESCE(c.city_name, ''),
		       COALESCE(c.postal_number, '')
		FROM transactions t
		LEFT JOIN transactions p ON p.id = t.reference_id
		LEFT JOIN clients c ON c.id = t.client_id
		WHERE t.id = $1 AND t.shop_id = $2`

	var inv entity.Invoice
	var referenceID *int64
	var clientID *int64
	var buyer entity.Buyer
	err := r.q.QueryRow(context.Background(), query, invoiceID, shopID).Scan(
		&inv.ID, &inv.StoreID, &inv.ShopID, &inv.Number,
		&inv.UUID, &inv.Date, &inv.TransactionType,
		&referenceID, &inv.ReferenceNumber,
		&inv.QRCode,
		&inv.CreatedAt, &inv.UpdatedAt,
		&clientID, &buyer.Name, &buyer.TaxNumber,
		&buyer.StreetName, &buyer.BuildingNumber,
		&buyer.PlotIdentification, &buyer.CityName,
		&buyer.PostalNumber,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	inv.ReferenceID = referenceID
	// The invoice counter (ICV) is the transaction id.
	inv.Counter = inv.ID
	if clientID != nil {
		inv.Buyer = &buyer
	}

	lines, err := r.loadLines(inv.ID)
	if err != nil {
		return nil, err
	}
	inv.Lines = lines
	return &inv, nil
}

// loadLines fetches the detail rows and attaches their tax components.
func (r *InvoiceRepo) loadLines(invoiceID int64) ([]*entity.LineItem, error) {
	const query = `
		SELECT d.id, COALESCE(i.name, 'Item'), d.quantity, d.price, COALESCE(d.discount, 0)
		FROM transaction_details d
		LEFT JOIN items i ON i.id = d.item_id
		WHERE d.transaction_id = $1
		ORDER BY d.id`
	rows, err := r.q.Query(context.Background(), query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list transaction details: %w", err)
	}
	defer rows.Close()

	var lines []*entity.LineItem
	byID := map[int64]*entity.LineItem{}
	for rows.Next() {
		var line entity.LineItem
		var discount decimal.Decimal
		if err := rows.Scan(&line.ID, &line.Name, &line.Quantity, &line.UnitPrice, &discount); err != nil {
			return nil, fmt.Errorf("scan detail: %w", err)
		}
		if !discount.IsZero() {
			line.Discounts = []entity.Discount{{Amount: discount, Reason: "Discount"}}
		}
		lines = append(lines, &line)
		byID[line.ID] = &line
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate details: %w", err)
	}

	const vatQuery = `
		SELECT v.detail_id, v.amount, COALESCE(v.value, 0)
		FROM detail_vats v
		JOIN transaction_details d ON d.id = v.detail_id
		WHERE d.transaction_id = $1
		ORDER BY v.id`
	vatRows, err := r.q.Query(context.Background(), vatQuery, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list detail vats: %w", err)
	}
	defer vatRows.Close()

	for vatRows.Next() {
		var detailID int64
		var pct, value decimal.Decimal
		if err := vatRows.Scan(&detailID, &pct, &value); err != nil {
			return nil, fmt.Errorf("scan vat: %w", err)
		}
		if line, ok := byID[detailID]; ok {
			line.Taxes = append(line.Taxes, entity.TaxComponent{
				Percentage: pct,
				Value:      value,
				Category:   "S",
			})
		}
	}
	return lines, vatRows.Err()
}

// ListPendingIDs returns submittable invoices without a PASS record yet,
// id-ordered across sales and sales returns so batch submission replays the
// original issue order.
func (r *InvoiceRepo) ListPendingIDs(storeID, shopID int64) ([]int64, error) {
	const query = `
		SELECT t.id
		FROM transactions t
		WHERE t.store_id = $1 AND t.shop_id = $2
		  AND t.transaction_type IN ($3, $4)
		  AND NOT EXISTS (
			SELECT 1 FROM zatca_results r
			WHERE r.transaction_id = t.id AND r.status = 'PASS'
		  )
		ORDER BY t.id`
	rows, err := r.q.Query(context.Background(), query, storeID, shopID,
		entity.TransactionSales, entity.TransactionSalesReturn)
	if err != nil {
		return nil, fmt.Errorf("list pending transactions: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan transaction id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// listFilterClause translates the list filter into its zatca_results
// predicate.
func listFilterClause(filter string) (string, error) {
	switch filter {
	case repository.ListFilterSync:
		return `NOT EXISTS (SELECT 1 FROM zatca_results r WHERE r.transaction_id = t.id)`, nil
	case repository.ListFilterReview:
		return `EXISTS (SELECT 1 FROM zatca_results r WHERE r.transaction_id = t.id)
		  AND NOT EXISTS (SELECT 1 FROM zatca_results r WHERE r.transaction_id = t.id AND r.status = 'PASS')`, nil
	default:
		return "", fmt.Errorf("unknown invoice list filter %q", filter)
	}
}

// listConditions is the shared WHERE body of the listing and its count:
// sales and sales returns with a positive net, returns only when the parent
// sale exists, dated on or after the sync start.
const listConditions = `
	t.store_id = $1 AND t.shop_id = $2
	AND t.transaction_type IN ($3, $4)
	AND t.invoice_net > 0
	AND (t.transaction_type = $3 OR t.reference_id IS NOT NULL)
	AND t.date >= $5`

// ListSummaries returns the store's submittable invoices for the filter with
// per-invoice tax sums and the joined client and store names.
func (r *InvoiceRepo) ListSummaries(storeID, shopID int64, filter string, syncStart time.Time) ([]*repository.InvoiceSummary, error) {
	clause, err := listFilterClause(filter)
	if err != nil {
		return nil, err
	}
	query := `
		SELECT t.id, t.transaction_number, t.transaction_type, t.date,
		       COALESCE(t.invoice_net, 0),
		       COALESCE(SUM(v.value * d.quantity), 0),
		       COALESCE(c.name, ''), COALESCE(s.name, '')
		FROM transactions t
		LEFT JOIN clients c ON c.id = t.client_id
		LEFT JOIN stores s ON s.id = t.store_id
		JOIN transaction_details d ON d.transaction_id = t.id
		LEFT JOIN detail_vats v ON v.detail_id = d.id
		WHERE ` + listConditions + `
		  AND ` + clause + `
		GROUP BY t.id, t.transaction_number, t.transaction_type, t.date, t.invoice_net, c.name, s.name
		ORDER BY t.id`
	rows, err := r.q.Query(context.Background(), query, storeID, shopID,
		entity.TransactionSales, entity.TransactionSalesReturn, syncStart)
	if err != nil {
		return nil, fmt.Errorf("list invoice summaries: %w", err)
	}
	defer rows.Close()

	var out []*repository.InvoiceSummary
	for rows.Next() {
		var s repository.InvoiceSummary
		if err := rows.Scan(&s.ID, &s.Number, &s.Type, &s.Date,
			&s.Net, &s.VATSum, &s.ClientName, &s.StoreName); err != nil {
			return nil, fmt.Errorf("scan invoice summary: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// CountByFilter counts the invoices ListSummaries would return.
func (r *InvoiceRepo) CountByFilter(storeID, shopID int64, filter string, syncStart time.Time) (int64, error) {
	clause, err := listFilterClause(filter)
	if err != nil {
		return 0, err
	}
	query := `
		SELECT COUNT(*)
		FROM transactions t
		WHERE ` + listConditions + `
		  AND ` + clause
	var count int64
	err = r.q.QueryRow(context.Background(), query, storeID, shopID,
		entity.TransactionSales, entity.TransactionSalesReturn, syncStart).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count invoices: %w", err)
	}
	return count, nil
}

// SetUUID persists the UUID assigned on first document generation.
func (r *InvoiceRepo) SetUUID(invoiceID int64, uuid string) error {
	_, err := r.q.Exec(context.Background(),
		`UPDATE transactions SET uuid = $2, updated_at = now() WHERE id = $1`,
		invoiceID, uuid,
	)
	if err != nil {
		return fmt.Errorf("set transaction uuid: %w", err)
	}
	return nil
}

// SetQRCode persists the generated QR payload on the transaction row.
func (r *InvoiceRepo) SetQRCode(invoiceID int64, qr string) error {
	_, err := r.q.Exec(context.Background(),
		`UPDATE transactions SET qr_code = $2, updated_at = now() WHERE id = $1`,
		invoiceID, qr,
	)
	if err != nil {
		return fmt.Errorf("set transaction qr code: %w", err)
	}
	return nil
}

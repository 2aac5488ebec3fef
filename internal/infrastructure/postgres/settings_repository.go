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

var _ repository.SettingsRepository = (*SettingsRepo)(nil)

// SettingsRepo implements SettingsRepository over PostgreSQL.
type SettingsRepo struct {
	q Querier
}

// NewSettingsRepository builds the adapter. Pass a pool or a tx (Querier).
func NewSettingsRepository(q Querier) *SettingsRepo {
	return &SettingsRepo{q: q}
}

const settingsColumns = `
	s.id, s.shop_id, COALESCE(s.name, ''), COALESCE(s.common_name, ''),
	COALESCE(s.tax_number, ''), COALESCE(s.commercial_register, ''),
	COALESCE(s.address, ''), COALESCE(s.building_number, ''),
	COALESCE(s.plot_identification, ''), COALESCE(s.city, ''),
	COALESCE(s.postal_number, ''), COALESCE(s.env, ''),
	COALESCE(s.business_category, ''),
	COALESCE(z.private_key, ''), COALESCE(z.csr_request, ''),
	COALESCE(z.certificate, ''), COALESCE(z.secret, ''), COALESCE(z.csid, ''),
	COALESCE(z.otp, ''), z.sync_start_date, z.created_at, z.updated_at`

// Get loads one store joined with its tax settings row.
func (r *SettingsRepo) Get(storeID, shopID int64) (*repository.StoreSettings, error) {
	query := `
		SELECT ` + settingsColumns + `
		FROM stores s
		LEFT JOIN zatca_settings z ON z.store_id = s.id AND z.shop_id = s.shop_id
		WHERE s.id = $1 AND s.shop_id = $2`

	settings, err := scanSettings(r.q.QueryRow(context.Background(), query, storeID, shopID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSettingsMissing
		}
		return nil, fmt.Errorf("get store settings: %w", err)
	}
	return settings, nil
}

// List returns every store of the shop with its settings.
func (r *SettingsRepo) List(shopID int64) ([]*repository.StoreSettings, error) {
	query := `
		SELECT ` + settingsColumns + `
		FROM stores s
		LEFT JOIN zatca_settings z ON z.store_id = s.id AND z.shop_id = s.shop_id
		WHERE s.shop_id = $1
		ORDER BY s.id`
	rows, err := r.q.Query(context.Background(), query, shopID)
	if err != nil {
		return nil, fmt.Errorf("list store settings: %w", err)
	}
	defer rows.Close()

	var list []*repository.StoreSettings
	for rows.Next() {
		settings, err := scanSettings(rows)
		if err != nil {
			return nil, fmt.Errorf("scan store settings: %w", err)
		}
		list = append(list, settings)
	}
	return list, rows.Err()
}

// UpdateCredential upserts the settings row with the new credential paths.
func (r *SettingsRepo) UpdateCredential(storeID, shopID int64, cred *entity.CredentialBundle) error {
	const query = `
		INSERT INTO zatca_settings
			(store_id, shop_id, private_key, csr_request, certificate, secret, csid, otp, sync_start_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		ON CONFLICT (store_id, shop_id) DO UPDATE SET
			private_key     = EXCLUDED.private_key,
			csr_request     = EXCLUDED.csr_request,
			certificate     = EXCLUDED.certificate,
			secret          = EXCLUDED.secret,
			csid            = EXCLUDED.csid,
			otp             = EXCLUDED.otp,
			sync_start_date = EXCLUDED.sync_start_date,
			updated_at      = now()`
	_, err := r.q.Exec(context.Background(), query,
		storeID, shopID,
		cred.PrivateKeyPath, cred.CSRPath, cred.CertificatePath,
		cred.SecretPath, cred.CSIDPath, cred.OTP, cred.SyncStartDate,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("settings row conflict: %w", err)
		}
		return fmt.Errorf("upsert zatca settings: %w", err)
	}
	return nil
}

// UpdateProfile writes the editable taxpayer fields back to the store row.
func (r *SettingsRepo) UpdateProfile(storeID, shopID int64, profile entity.TaxpayerProfile) error {
	const query = `
		UPDATE stores SET
			name                = $3,
			common_name         = $4,
			tax_number          = $5,
			commercial_register = $6,
			address             = $7,
			building_number     = $8,
			plot_identification = $9,
			city                = $10,
			postal_number       = $11,
			env                 = $12,
			business_category   = $13,
			updated_at          = now()
		WHERE id = $1 AND shop_id = $2`
	tag, err := r.q.Exec(context.Background(), query,
		storeID, shopID,
		profile.Name, profile.CommonName, profile.TaxNumber,
		profile.CommercialRegister, profile.StreetName, profile.BuildingNumber,
		profile.PlotIdentification, profile.City, profile.PostalNumber,
		profile.Environment, profile.BusinessCategory,
	)
	if err != nil {
		return fmt.Errorf("update store profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSettingsMissing
	}
	return nil
}

func scanSettings(row pgx.Row) (*repository.StoreSettings, error) {
	var s repository.StoreSettings
	var raw entity.TaxpayerProfile
	var configuredTaxNumber string
	var syncStart, createdAt, updatedAt *time.Time

	err := row.Scan(
		&raw.StoreID, &raw.ShopID, &raw.Name, &raw.CommonName,
		&configuredTaxNumber, &raw.CommercialRegister,
		&raw.StreetName, &raw.BuildingNumber,
		&raw.PlotIdentification, &raw.City,
		&raw.PostalNumber, &raw.Environment,
		&raw.BusinessCategory,
		&s.Credential.PrivateKeyPath, &s.Credential.CSRPath,
		&s.Credential.CertificatePath, &s.Credential.SecretPath, &s.Credential.CSIDPath,
		&s.Credential.OTP, &syncStart, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Profile = entity.NewTaxpayerProfile(raw, configuredTaxNumber)
	if syncStart != nil {
		s.Credential.SyncStartDate = *syncStart
	}
	if createdAt != nil {
		s.Credential.CreatedAt = *createdAt
	}
	if updatedAt != nil {
		s.Credential.UpdatedAt = *updatedAt
	}
	return &s, nil
}

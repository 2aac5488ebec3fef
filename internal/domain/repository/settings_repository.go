package repository

import "github.com/albadr/zatca-integration/internal/domain/entity"

// StoreSettings is the joined view of a store and its tax integration
// settings row, split per the domain model: immutable profile, mutable
// credential bundle.
type StoreSettings struct {
	Profile    entity.TaxpayerProfile
	Credential entity.CredentialBundle
}

// SettingsRepository is the port for store tax-integration settings.
type SettingsRepository interface {
	// Get loads the settings for one store, or domain.ErrSettingsMissing.
	Get(storeID, shopID int64) (*StoreSettings, error)
	// List returns every store with its settings summary for the shop.
	List(shopID int64) ([]*StoreSettings, error)
	// UpdateCredential persists the credential bundle after an issuance or
	// renewal: file paths, OTP and timestamps.
	UpdateCredential(storeID, shopID int64, cred *entity.CredentialBundle) error
	// UpdateProfile persists the editable taxpayer fields of the store row.
	UpdateProfile(storeID, shopID int64, profile entity.TaxpayerProfile) error
}

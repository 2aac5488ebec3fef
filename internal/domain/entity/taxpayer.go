package entity

import (
	"strconv"
	"strings"
)

// ZATCA environment selectors. The environment decides the gateway base URL
// and, for the sandbox, a fixed developer-portal tax number.
const (
	EnvSandbox    = "sandbox"
	EnvSimulation = "simulation"
	EnvProduction = "production"
)

// APIVersion is the Accept-Version header value required by the ZATCA gateway.
const APIVersion = "V2"

// SandboxTaxNumber is the fixed VAT registration number accepted by the
// developer portal; real numbers are rejected there.
const SandboxTaxNumber = "399999999900003"

const (
	baseURLProduction = "https://gw-fatoora.zatca.gov.sa/e-invoicing/core"
	baseURLSimulation = "https://gw-fatoora.zatca.gov.sa/e-invoicing/simulation"
	baseURLSandbox    = "https://gw-fatoora.zatca.gov.sa/e-invoicing/developer-portal"
)

// TaxpayerProfile is the immutable identity of a store inside the ZATCA
// network for one generation or submission run. It is built from the settings
// record; credential state lives separately in CredentialBundle.
type TaxpayerProfile struct {
	StoreID int64
	ShopID  int64

	Name               string // registered organization name
	CommonName         string // certificate common name
	TaxNumber          string // effective VAT registration number (sandbox override applied)
	OrganizationUnit   string // first 10 digits of the configured tax number
	CommercialRegister string

	StreetName         string
	BuildingNumber     string
	PlotIdentification string
	City               string
	PostalNumber       string

	Environment      string // sandbox | simulation | production
	BusinessCategory string
}

// NewTaxpayerProfile derives the environment-dependent fields the way the
// settings layer loads them: the organization unit is extracted from the
// configured tax number before any sandbox override replaces it.
func NewTaxpayerProfile(p TaxpayerProfile, configuredTaxNumber string) TaxpayerProfile {
	p.OrganizationUnit = firstDigits(configuredTaxNumber, 10)
	p.TaxNumber = configuredTaxNumber
	if p.Environment == "" {
		p.Environment = EnvSandbox
	}
	if p.Environment == EnvSandbox {
		p.TaxNumber = SandboxTaxNumber
	}
	if p.BusinessCategory == "" {
		p.BusinessCategory = "general sales"
	}
	if p.CommonName == "" {
		p.CommonName = p.Name
	}
	return p
}

// BaseURL returns the ZATCA gateway root for the profile's environment.
func (p TaxpayerProfile) BaseURL() string {
	switch p.Environment {
	case EnvProduction:
		return baseURLProduction
	case EnvSimulation:
		return baseURLSimulation
	default:
		return baseURLSandbox
	}
}

// EGSSerialNumber is the composite unit serial sent in the CSR:
// "1-<vendor>|2-<shop>|3-<store>".
func (p TaxpayerProfile) EGSSerialNumber() string {
	return "1-albadr|2-" + strconv.FormatInt(p.ShopID, 10) + "|3-" + strconv.FormatInt(p.StoreID, 10)
}

func firstDigits(s string, n int) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			if b.Len() == n {
				break
			}
		}
	}
	return b.String()
}

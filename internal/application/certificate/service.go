// Package certificate drives the credential lifecycle against the authority:
// CSR generation, the compliance exchange, the six sample document checks and
// the production CSID issuance and renewal.
package certificate

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/albadr/zatca-integration/internal/domain"
	"github.com/albadr/zatca-integration/internal/domain/entity"
	domzatca "github.com/albadr/zatca-integration/internal/domain/zatca"
	"github.com/albadr/zatca-integration/internal/infrastructure/storage"
	"github.com/albadr/zatca-integration/internal/infrastructure/zatca"
	"github.com/albadr/zatca-integration/pkg/logger"
)

// Result is the outcome of a lifecycle operation. Samples maps each sample
// document to its gateway disposition, for operator review when onboarding
// fails halfway.
type Result struct {
	Status  bool              `json:"status"`
	Errors  []string          `json:"errors,omitempty"`
	Samples map[string]string `json:"samples,omitempty"`
}

// Service orchestrates certificate issuance and renewal.
type Service struct {
	settings SettingsStore
	files    FileStore
	gateway  Gateway
	csr      *zatca.CSRBuilder
	signer   *zatca.Signer
	log      *logger.Logger

	now func() time.Time
}

// NewService builds the lifecycle service.
func NewService(settings SettingsStore, files FileStore, gateway Gateway, csr *zatca.CSRBuilder, signer *zatca.Signer, log *logger.Logger) *Service {
	return &Service{
		settings: settings,
		files:    files,
		gateway:  gateway,
		csr:      csr,
		signer:   signer,
		log:      log,
		now:      time.Now,
	}
}

// Generate runs the full onboarding: CSR, compliance exchange, the six sample
// documents and the production CSID. The store only ends up with a production
// credential when every step succeeded; a failed step leaves the previous
// credential untouched.
func (s *Service) Generate(ctx context.Context, storeID, shopID int64, otp string) (*Result, error) {
	st, err := s.settings.Get(storeID, shopID)
	if err != nil {
		return nil, err
	}
	profile := st.Profile

	bundle, err := s.csr.Build(profile, zatca.InvoiceCapabilities{Standard: true, Simplified: true})
	if err != nil {
		return nil, err
	}

	csrB64 := base64.StdEncoding.EncodeToString(bundle.CSRPEM)
	comp, err := s.gateway.RequestCompliance(ctx, profile.BaseURL(), csrB64, otp)
	if err != nil {
		return s.gatewayFailure("compliance request rejected", err)
	}

	paths := s.files.CredentialPaths(shopID, storeID)
	cred, err := s.storeCompliance(paths, bundle, comp, otp)
	if err != nil {
		return nil, err
	}
	if err := s.settings.UpdateCredential(storeID, shopID, cred); err != nil {
		return nil, err
	}

	sctx, err := zatca.NewSigningContext(zatca.ModeCompliance, []byte(comp.BinarySecurityToken), bundle.PrivateKeyPEM)
	if err != nil {
		return nil, err
	}
	creds := zatca.Credentials{Username: sctx.AuthUsername(), Secret: comp.Secret}

	done, samples, err := s.runComplianceSamples(ctx, profile, sctx, creds)
	if err != nil {
		return nil, err
	}
	if done != len(samples) {
		return &Result{
			Status:  false,
			Errors:  []string{fmt.Sprintf("compliance checks passed %d of %d sample documents", done, len(samples))},
			Samples: samples,
		}, nil
	}

	prod, err := s.gateway.RequestProductionCSID(ctx, profile.BaseURL(), comp.RequestID.String(), creds)
	if err != nil {
		return s.gatewayFailure("production CSID request rejected", err)
	}

	cred, err = s.storeIssued(paths, bundle, prod, otp)
	if err != nil {
		return nil, err
	}
	if err := s.settings.UpdateCredential(storeID, shopID, cred); err != nil {
		return nil, err
	}

	s.log.Info().Int64("store_id", storeID).Int64("shop_id", shopID).
		Bool("compliance_fallback", prod.ComplianceFallback).Msg("certificate issued")
	return &Result{Status: true, Samples: samples}, nil
}

// Renew replaces the key pair and certificate over the existing credential.
// A fresh key pair is generated on every renewal; the previous key is only
// overwritten once the gateway has accepted the new CSR.
func (s *Service) Renew(ctx context.Context, storeID, shopID int64, otp string) (*Result, error) {
	st, err := s.settings.Get(storeID, shopID)
	if err != nil {
		return nil, err
	}
	if !st.Credential.HasCertificate() || !s.files.Exists(st.Credential.CertificatePath) {
		return nil, domain.ErrCertificateMissing
	}

	certContent, err := s.files.Read(st.Credential.CertificatePath)
	if err != nil {
		return nil, err
	}
	secret, err := s.files.Read(st.Credential.SecretPath)
	if err != nil {
		return nil, err
	}

	profile := st.Profile
	bundle, err := s.csr.Build(profile, zatca.InvoiceCapabilities{Standard: true, Simplified: true})
	if err != nil {
		return nil, err
	}

	creds := zatca.Credentials{
		Username: base64.StdEncoding.EncodeToString(certContent),
		Secret:   string(secret),
	}
	csrB64 := base64.StdEncoding.EncodeToString(bundle.CSRPEM)
	prod, err := s.gateway.RenewProductionCSID(ctx, profile.BaseURL(), csrB64, creds)
	if err != nil {
		return s.gatewayFailure("certificate renewal rejected", err)
	}

	paths := s.files.CredentialPaths(shopID, storeID)
	cred, err := s.storeIssued(paths, bundle, prod, otp)
	if err != nil {
		return nil, err
	}
	if err := s.settings.UpdateCredential(storeID, shopID, cred); err != nil {
		return nil, err
	}

	s.log.Info().Int64("store_id", storeID).Int64("shop_id", shopID).Msg("certificate renewed")
	return &Result{Status: true}, nil
}

// runComplianceSamples signs and submits the six sample documents with the
// compliance credential and counts the accepted ones.
func (s *Service) runComplianceSamples(ctx context.Context, profile entity.TaxpayerProfile, sctx *zatca.SigningContext, creds zatca.Credentials) (int, map[string]string, error) {
	catalog := sampleCatalog()
	results := make(map[string]string, len(catalog))
	done := 0
	at := s.now()

	for i, tmpl := range catalog {
		inv := buildSampleInvoice(tmpl, int64(i+1), at)
		bctx := &zatca.DocumentBuildContext{
			Invoice:             inv,
			Profile:             profile,
			Totals:              domzatca.ComputeInvoiceTotals(inv.Lines),
			PreviousInvoiceHash: zatca.ZeroInvoiceHash(),
			SigningTime:         at,
		}
		docs, err := s.signer.Build(bctx, sctx)
		if err != nil {
			return 0, nil, fmt.Errorf("build sample %s: %w", tmpl.Name, err)
		}

		payload := zatca.SubmissionPayload{
			InvoiceHash: docs.InvoiceHash,
			UUID:        inv.UUID,
			Invoice:     base64.StdEncoding.EncodeToString(docs.SignXML),
		}
		resp, err := s.gateway.SubmitComplianceInvoice(ctx, profile.BaseURL(), payload, creds)
		if err != nil {
			s.log.Warn().Err(err).Str("sample", tmpl.Name).Msg("compliance sample rejected")
			results[tmpl.Name] = "error"
			continue
		}

		if resp.Accepted(inv.DocumentType()) {
			done++
			results[tmpl.Name] = acceptedStatus(resp, inv.DocumentType())
		} else {
			results[tmpl.Name] = "error"
		}

		if resp.ValidationResults != nil {
			outcome := domzatca.Classify(resp.ValidationResults.WarningMessages, resp.ValidationResults.ErrorMessages)
			if outcome.Status != domzatca.StatusPass {
				s.log.Warn().Str("sample", tmpl.Name).Str("status", outcome.Status).
					Interface("warnings", outcome.Warnings).Interface("errors", outcome.Errors).
					Msg("compliance sample needs review")
			}
		}
	}
	return done, results, nil
}

// storeCompliance persists the compliance-stage credential: the token is kept
// verbatim as returned.
func (s *Service) storeCompliance(paths storage.CredentialPaths, bundle *zatca.CSRBundle, comp *zatca.CSIDResponse, otp string) (*entity.CredentialBundle, error) {
	writes := []struct {
		path string
		data []byte
	}{
		{paths.PrivateKey, bundle.PrivateKeyPEM},
		{paths.CSR, bundle.CSRPEM},
		{paths.Certificate, []byte(comp.BinarySecurityToken)},
		{paths.Secret, []byte(comp.Secret)},
		{paths.RequestID, []byte(comp.RequestID.String())},
	}
	for _, w := range writes {
		if err := s.files.Write(w.path, w.data); err != nil {
			return nil, err
		}
	}
	return &entity.CredentialBundle{
		PrivateKeyPath:  paths.PrivateKey,
		CSRPath:         paths.CSR,
		CertificatePath: paths.Certificate,
		SecretPath:      paths.Secret,
		CSIDPath:        paths.RequestID,
		OTP:             otp,
	}, nil
}

// storeIssued persists a production result. The production token is stored
// decoded; a 428 fallback body is a compliance credential and is stored
// verbatim instead.
func (s *Service) storeIssued(paths storage.CredentialPaths, bundle *zatca.CSRBundle, prod *zatca.ProductionResult, otp string) (*entity.CredentialBundle, error) {
	resp := prod.Response

	certContent := []byte(resp.BinarySecurityToken)
	syncStart := time.Time{}
	if !prod.ComplianceFallback {
		decoded, err := base64.StdEncoding.DecodeString(resp.BinarySecurityToken)
		if err != nil {
			return nil, fmt.Errorf("decode production security token: %w", err)
		}
		certContent = decoded

		parsed, err := zatca.ParseCertificate(certContent, zatca.ModeProduction)
		if err != nil {
			return nil, err
		}
		syncStart = parsed.NotBefore()
	}

	writes := []struct {
		path string
		data []byte
	}{
		{paths.PrivateKey, bundle.PrivateKeyPEM},
		{paths.CSR, bundle.CSRPEM},
		{paths.Certificate, certContent},
		{paths.Secret, []byte(resp.Secret)},
		{paths.RequestID, []byte(resp.RequestID.String())},
	}
	for _, w := range writes {
		if err := s.files.Write(w.path, w.data); err != nil {
			return nil, err
		}
	}
	return &entity.CredentialBundle{
		PrivateKeyPath:  paths.PrivateKey,
		CSRPath:         paths.CSR,
		CertificatePath: paths.Certificate,
		SecretPath:      paths.Secret,
		CSIDPath:        paths.RequestID,
		OTP:             otp,
		SyncStartDate:   syncStart,
	}, nil
}

// gatewayFailure turns an authority rejection into a reviewable result;
// transport failures stay errors.
func (s *Service) gatewayFailure(context string, err error) (*Result, error) {
	var apiErr *zatca.APIError
	if errors.As(err, &apiErr) {
		msgs := apiErr.Messages
		if len(msgs) == 0 {
			msgs = []string{context}
		}
		s.log.Error().Int("status", apiErr.StatusCode).Strs("messages", msgs).Msg(context)
		return &Result{Status: false, Errors: msgs}, nil
	}
	return nil, err
}

// acceptedStatus picks the status field that applies to the document's
// classification.
func acceptedStatus(resp *zatca.InvoiceResponse, documentType string) string {
	if documentType == entity.DocumentStandard {
		return resp.ClearanceStatus
	}
	return resp.ReportingStatus
}

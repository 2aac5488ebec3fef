package zatca

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/albadr/zatca-integration/internal/domain"
	domzatca "github.com/albadr/zatca-integration/internal/domain/zatca"
	"github.com/albadr/zatca-integration/pkg/logger"
)

// Gateway document statuses reported on accepted invoices.
const (
	StatusReported = "REPORTED"
	StatusCleared  = "CLEARED"
)

// Credentials authenticate gateway calls: basic auth with the Base64
// certificate body as username and the gateway secret as password.
type Credentials struct {
	Username string
	Secret   string
}

// CSIDResponse is the body of the compliance and production CSID exchanges.
type CSIDResponse struct {
	RequestID           json.Number `json:"requestID"`
	DispositionMessage  string      `json:"dispositionMessage"`
	BinarySecurityToken string      `json:"binarySecurityToken"`
	Secret              string      `json:"secret"`
}

// ProductionResult wraps a production CSID response. ComplianceFallback is set
// when the gateway answered 428 and the body is a fresh compliance credential
// to be stored as such.
type ProductionResult struct {
	Response           *CSIDResponse
	ComplianceFallback bool
}

// SubmissionPayload is the invoice submission body shared by the compliance
// check and the live clearance/reporting endpoints.
type SubmissionPayload struct {
	InvoiceHash string `json:"invoiceHash"`
	UUID        string `json:"uuid"`
	Invoice     string `json:"invoice"`
}

// GatewayValidationResults is the validationResults object of an invoice
// response.
type GatewayValidationResults struct {
	Status          string                       `json:"status"`
	InfoMessages    []domzatca.ValidationMessage `json:"infoMessages"`
	WarningMessages []domzatca.ValidationMessage `json:"warningMessages"`
	ErrorMessages   []domzatca.ValidationMessage `json:"errorMessages"`
}

// InvoiceResponse is the parsed body of an invoice submission, compliance or
// live. StatusCode is kept so callers can tell an accepted document from a
// rejected one that still carried validation results.
type InvoiceResponse struct {
	StatusCode        int
	ValidationResults *GatewayValidationResults `json:"validationResults"`
	ReportingStatus   string                    `json:"reportingStatus"`
	ClearanceStatus   string                    `json:"clearanceStatus"`
	ClearedInvoice    string                    `json:"clearedInvoice"`
	Raw               json.RawMessage           `json:"-"`
}

// Accepted reports whether the document reached REPORTED or CLEARED state for
// its classification.
func (r *InvoiceResponse) Accepted(documentType string) bool {
	status := r.ReportingStatus
	if documentType == "standard" {
		status = r.ClearanceStatus
	}
	return status == StatusReported || status == StatusCleared
}

// APIError is a gateway rejection with its collected error messages.
type APIError struct {
	StatusCode int
	Messages   []string
}

func (e *APIError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("zatca gateway: request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("zatca gateway: %s", strings.Join(e.Messages, "; "))
}

// APIClient talks to the authority gateway. The base URL comes per call from
// the store's environment.
type APIClient struct {
	httpClient *http.Client
	locale     string
	log        *logger.Logger
}

// NewAPIClient creates the gateway client.
func NewAPIClient(timeout time.Duration, locale string, log *logger.Logger) *APIClient {
	if locale == "" {
		locale = "ar"
	}
	return &APIClient{
		httpClient: &http.Client{Timeout: timeout},
		locale:     locale,
		log:        log,
	}
}

// RequestCompliance submits the CSR with the portal OTP and returns the
// compliance credential.
func (c *APIClient) RequestCompliance(ctx context.Context, baseURL, csrB64, otp string) (*CSIDResponse, error) {
	body := map[string]string{"csr": csrB64}
	status, raw, err := c.do(ctx, http.MethodPost, baseURL+"/compliance", body, nil, map[string]string{"otp": otp})
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, c.gatewayError(status, raw)
	}

	var resp CSIDResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("zatca gateway: decode compliance response: %w", err)
	}
	return &resp, nil
}

// RequestProductionCSID exchanges the compliance request id for a production
// credential. A 428 means the compliance check is still pending on the
// gateway side and the body is a fresh compliance credential.
func (c *APIClient) RequestProductionCSID(ctx context.Context, baseURL, complianceRequestID string, creds Credentials) (*ProductionResult, error) {
	body := map[string]string{"compliance_request_id": complianceRequestID}
	return c.productionRequest(ctx, http.MethodPost, baseURL, body, creds)
}

// RenewProductionCSID submits a fresh CSR over the existing production
// credential.
func (c *APIClient) RenewProductionCSID(ctx context.Context, baseURL, csrB64 string, creds Credentials) (*ProductionResult, error) {
	body := map[string]string{"csr": csrB64}
	return c.productionRequest(ctx, http.MethodPatch, baseURL, body, creds)
}

func (c *APIClient) productionRequest(ctx context.Context, method, baseURL string, body map[string]string, creds Credentials) (*ProductionResult, error) {
	status, raw, err := c.do(ctx, method, baseURL+"/production/csids", body, &creds, nil)
	if err != nil {
		return nil, err
	}

	switch {
	case status >= 200 && status <= 299:
		var resp CSIDResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, fmt.Errorf("zatca gateway: decode production response: %w", err)
		}
		return &ProductionResult{Response: &resp}, nil

	case status == http.StatusPreconditionRequired:
		var resp CSIDResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, fmt.Errorf("zatca gateway: decode 428 compliance body: %w", err)
		}
		c.log.Warn().Int("status", status).Msg("production CSID deferred, gateway returned compliance credential")
		return &ProductionResult{Response: &resp, ComplianceFallback: true}, nil

	default:
		return nil, c.gatewayError(status, raw)
	}
}

// SubmitComplianceInvoice sends one sample document to the compliance checks
// endpoint during onboarding.
func (c *APIClient) SubmitComplianceInvoice(ctx context.Context, baseURL string, payload SubmissionPayload, creds Credentials) (*InvoiceResponse, error) {
	return c.submit(ctx, baseURL+"/compliance/invoices", payload, creds, nil)
}

// SubmitInvoice sends a live document: standard invoices go to clearance,
// simplified ones to reporting.
func (c *APIClient) SubmitInvoice(ctx context.Context, baseURL string, payload SubmissionPayload, creds Credentials, standard bool) (*InvoiceResponse, error) {
	endpoint := baseURL + "/invoices/reporting/single"
	clearance := "0"
	if standard {
		endpoint = baseURL + "/invoices/clearance/single"
		clearance = "1"
	}
	return c.submit(ctx, endpoint, payload, creds, map[string]string{"Clearance-Status": clearance})
}

func (c *APIClient) submit(ctx context.Context, url string, payload SubmissionPayload, creds Credentials, extra map[string]string) (*InvoiceResponse, error) {
	status, raw, err := c.do(ctx, http.MethodPost, url, payload, &creds, extra)
	if err != nil {
		return nil, err
	}

	var resp InvoiceResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		// An unreadable rejection body means the credential itself was
		// refused, not the document.
		c.log.Error().Int("status", status).Str("url", url).Msg("unparseable gateway response")
		return nil, domain.ErrCertificateRenewal
	}
	resp.StatusCode = status
	resp.Raw = raw
	return &resp, nil
}

// do runs one JSON request and returns the status and body. Transport
// failures are returned as errors; HTTP-level rejections are not.
func (c *APIClient) do(ctx context.Context, method, url string, body any, creds *Credentials, extra map[string]string) (int, []byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("zatca gateway: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("zatca gateway: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Version", "V2")
	req.Header.Set("Accept-Language", c.locale)
	for k, v := range extra {
		req.Header.Set(k, v)
	}
	if creds != nil {
		req.SetBasicAuth(creds.Username, creds.Secret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("zatca gateway: %s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("zatca gateway: read response: %w", err)
	}

	c.log.Debug().Str("method", method).Str("url", url).Int("status", resp.StatusCode).Msg("gateway call")
	return resp.StatusCode, raw, nil
}

// gatewayError collects the messages of an error body. Entries may be plain
// strings or objects with a message field.
func (c *APIClient) gatewayError(status int, raw []byte) error {
	apiErr := &APIError{StatusCode: status}

	var body struct {
		Errors []json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		for _, entry := range body.Errors {
			var s string
			if json.Unmarshal(entry, &s) == nil {
				apiErr.Messages = append(apiErr.Messages, s)
				continue
			}
			var obj struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(entry, &obj) == nil && obj.Message != "" {
				apiErr.Messages = append(apiErr.Messages, obj.Message)
			}
		}
	}
	return apiErr
}

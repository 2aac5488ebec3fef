package zatca

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albadr/zatca-integration/internal/domain"
	"github.com/albadr/zatca-integration/pkg/logger"
)

func testAPIClient() *APIClient {
	return NewAPIClient(5*time.Second, "ar", logger.New(logger.Config{Env: "production", Level: "error"}))
}

func TestRequestCompliance(t *testing.T) {
	var gotOTP, gotVersion, gotCSR string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/compliance", r.URL.Path)
		gotOTP = r.Header.Get("otp")
		gotVersion = r.Header.Get("Accept-Version")

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotCSR = body["csr"]

		json.NewEncoder(w).Encode(map[string]any{
			"requestID":           1234567890123,
			"dispositionMessage":  "ISSUED",
			"binarySecurityToken": "dG9rZW4=",
			"secret":              "top-secret",
		})
	}))
	defer srv.Close()

	resp, err := testAPIClient().RequestCompliance(context.Background(), srv.URL, "Y3Ny", "123456")
	require.NoError(t, err)

	assert.Equal(t, "123456", gotOTP)
	assert.Equal(t, "V2", gotVersion)
	assert.Equal(t, "Y3Ny", gotCSR)
	assert.Equal(t, "1234567890123", resp.RequestID.String())
	assert.Equal(t, "dG9rZW4=", resp.BinarySecurityToken)
	assert.Equal(t, "top-secret", resp.Secret)
}

func TestRequestComplianceRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errors":[{"message":"invalid CSR"},"OTP expired"]}`))
	}))
	defer srv.Close()

	_, err := testAPIClient().RequestCompliance(context.Background(), srv.URL, "Y3Ny", "000000")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, []string{"invalid CSR", "OTP expired"}, apiErr.Messages)
}

func TestRequestProductionCSID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/production/csids", r.URL.Path)

		user, secret, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "dXNlcg==", user)
		assert.Equal(t, "s3cret", secret)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "987654", body["compliance_request_id"])

		json.NewEncoder(w).Encode(map[string]any{
			"requestID":           987654,
			"binarySecurityToken": "cHJvZA==",
			"secret":              "prod-secret",
		})
	}))
	defer srv.Close()

	creds := Credentials{Username: "dXNlcg==", Secret: "s3cret"}
	result, err := testAPIClient().RequestProductionCSID(context.Background(), srv.URL, "987654", creds)
	require.NoError(t, err)
	assert.False(t, result.ComplianceFallback)
	assert.Equal(t, "cHJvZA==", result.Response.BinarySecurityToken)
}

func TestRequestProductionCSIDComplianceFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPreconditionRequired)
		json.NewEncoder(w).Encode(map[string]any{
			"requestID":           111,
			"binarySecurityToken": "ZnJlc2g=",
			"secret":              "fresh-secret",
		})
	}))
	defer srv.Close()

	creds := Credentials{Username: "u", Secret: "s"}
	result, err := testAPIClient().RequestProductionCSID(context.Background(), srv.URL, "111", creds)
	require.NoError(t, err)
	assert.True(t, result.ComplianceFallback)
	assert.Equal(t, "ZnJlc2g=", result.Response.BinarySecurityToken)
}

func TestRenewProductionCSIDUsesPatch(t *testing.T) {
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "bmV3LWNzcg==", body["csr"])
		json.NewEncoder(w).Encode(map[string]any{"requestID": 5, "binarySecurityToken": "dA==", "secret": "x"})
	}))
	defer srv.Close()

	creds := Credentials{Username: "u", Secret: "s"}
	_, err := testAPIClient().RenewProductionCSID(context.Background(), srv.URL, "bmV3LWNzcg==", creds)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, gotMethod)
}

func TestSubmitInvoiceRouting(t *testing.T) {
	tests := []struct {
		name          string
		standard      bool
		wantPath      string
		wantClearance string
	}{
		{"standard goes to clearance", true, "/invoices/clearance/single", "1"},
		{"simplified goes to reporting", false, "/invoices/reporting/single", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath, gotClearance string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotClearance = r.Header.Get("Clearance-Status")
				json.NewEncoder(w).Encode(map[string]any{
					"reportingStatus": "REPORTED",
					"clearanceStatus": "CLEARED",
					"validationResults": map[string]any{
						"status":          "PASS",
						"warningMessages": []any{},
						"errorMessages":   []any{},
					},
				})
			}))
			defer srv.Close()

			payload := SubmissionPayload{InvoiceHash: "aGFzaA==", UUID: "uuid-1", Invoice: "aW52"}
			resp, err := testAPIClient().SubmitInvoice(context.Background(), srv.URL, payload, Credentials{Username: "u", Secret: "s"}, tt.standard)
			require.NoError(t, err)

			assert.Equal(t, tt.wantPath, gotPath)
			assert.Equal(t, tt.wantClearance, gotClearance)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "PASS", resp.ValidationResults.Status)
		})
	}
}

func TestSubmitInvoiceKeepsRejectionBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"validationResults":{"status":"ERROR","errorMessages":[{"code":"BR-KSA-01","message":"bad document"}]}}`))
	}))
	defer srv.Close()

	payload := SubmissionPayload{InvoiceHash: "h", UUID: "u", Invoice: "i"}
	resp, err := testAPIClient().SubmitInvoice(context.Background(), srv.URL, payload, Credentials{}, false)
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Len(t, resp.ValidationResults.ErrorMessages, 1)
	assert.Equal(t, "BR-KSA-01", resp.ValidationResults.ErrorMessages[0].Code)
}

func TestSubmitInvoiceUnparseableBodyMeansBadCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("<html>unauthorized</html>"))
	}))
	defer srv.Close()

	payload := SubmissionPayload{InvoiceHash: "h", UUID: "u", Invoice: "i"}
	_, err := testAPIClient().SubmitInvoice(context.Background(), srv.URL, payload, Credentials{}, false)
	assert.ErrorIs(t, err, domain.ErrCertificateRenewal)
}

func TestInvoiceResponseAccepted(t *testing.T) {
	cleared := &InvoiceResponse{ClearanceStatus: "CLEARED"}
	assert.True(t, cleared.Accepted("standard"))
	assert.False(t, cleared.Accepted("simplified"))

	reported := &InvoiceResponse{ReportingStatus: "REPORTED"}
	assert.True(t, reported.Accepted("simplified"))
	assert.False(t, reported.Accepted("standard"))
}

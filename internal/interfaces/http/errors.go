package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/albadr/zatca-integration/internal/application/dto"
	"github.com/albadr/zatca-integration/internal/domain"
	"github.com/albadr/zatca-integration/internal/infrastructure/zatca"
)

// respondError maps domain errors to HTTP responses with the shared error
// body.
func respondError(c *fiber.Ctx, err error) error {
	var verr *zatca.CSRValidationError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: verr.Message})
	}

	switch {
	case errors.Is(err, domain.ErrInvoiceNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "INVOICE_NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrSettingsMissing):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "SETTINGS_MISSING", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrInvalidInvoiceType), errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrAlreadySubmitted):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "ALREADY_SUBMITTED", Message: err.Error()})
	case errors.Is(err, domain.ErrCertificateMissing), errors.Is(err, domain.ErrPrivateKeyMissing):
		return c.Status(fiber.StatusPreconditionFailed).JSON(dto.ErrorResponse{Code: "CERTIFICATE_MISSING", Message: err.Error()})
	case errors.Is(err, domain.ErrInvoiceBeforeCert):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "INVOICE_BEFORE_CERTIFICATE", Message: err.Error()})
	case errors.Is(err, domain.ErrCertificateRenewal):
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "CERTIFICATE_RENEWAL_REQUIRED", Message: err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}

// parseIDParam reads a positive numeric path parameter.
func parseIDParam(c *fiber.Ctx, name string) (int64, bool) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, false
	}
	return int64(id), true
}

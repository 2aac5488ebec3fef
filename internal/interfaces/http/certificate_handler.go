package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/albadr/zatca-integration/internal/application/certificate"
	"github.com/albadr/zatca-integration/internal/application/dto"
)

// CertificateService is the credential lifecycle surface.
type CertificateService interface {
	Generate(ctx context.Context, storeID, shopID int64, otp string) (*certificate.Result, error)
	Renew(ctx context.Context, storeID, shopID int64, otp string) (*certificate.Result, error)
}

// CertificateHandler serves certificate issuance and renewal.
type CertificateHandler struct {
	certs CertificateService
}

// NewCertificateHandler builds the handler.
func NewCertificateHandler(certs CertificateService) *CertificateHandler {
	return &CertificateHandler{certs: certs}
}

// Generate runs the full onboarding for one store.
// POST /api/stores/:id/certificate
func (h *CertificateHandler) Generate(c *fiber.Ctx) error {
	return h.run(c, h.certs.Generate)
}

// Renew replaces the store's certificate over the existing credential.
// POST /api/stores/:id/certificate/renew
func (h *CertificateHandler) Renew(c *fiber.Ctx) error {
	return h.run(c, h.certs.Renew)
}

func (h *CertificateHandler) run(c *fiber.Ctx, op func(ctx context.Context, storeID, shopID int64, otp string) (*certificate.Result, error)) error {
	shopID := GetShopID(c)
	if shopID == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "invalid token"})
	}
	storeID, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "store id required"})
	}
	var in dto.CertificateRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "invalid request body"})
	}
	if in.OTP == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "otp is required"})
	}

	result, err := op(c.Context(), storeID, shopID, in.OTP)
	if err != nil {
		return respondError(c, err)
	}
	if !result.Status {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(result)
	}
	return c.JSON(result)
}

package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/albadr/zatca-integration/internal/application/dto"
	"github.com/albadr/zatca-integration/internal/domain/entity"
	"github.com/albadr/zatca-integration/internal/domain/repository"
)

// SettingsService is the settings surface the handlers need.
type SettingsService interface {
	Get(storeID, shopID int64) (*repository.StoreSettings, error)
	List(shopID int64) ([]*repository.StoreSettings, error)
	UpdateProfile(storeID, shopID int64, profile entity.TaxpayerProfile) error
}

// StoreHandler serves the store settings endpoints.
type StoreHandler struct {
	settings SettingsService
}

// NewStoreHandler builds the handler.
func NewStoreHandler(settings SettingsService) *StoreHandler {
	return &StoreHandler{settings: settings}
}

// List returns every store of the shop with its tax integration state.
// GET /api/stores
func (h *StoreHandler) List(c *fiber.Ctx) error {
	shopID := GetShopID(c)
	if shopID == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "invalid token"})
	}
	list, err := h.settings.List(shopID)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.StoreSettingsResponse, 0, len(list))
	for _, s := range list {
		out = append(out, dto.NewStoreSettingsResponse(s))
	}
	return c.JSON(out)
}

// GetSettings returns one store's settings.
// GET /api/stores/:id/settings
func (h *StoreHandler) GetSettings(c *fiber.Ctx) error {
	shopID := GetShopID(c)
	if shopID == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "invalid token"})
	}
	storeID, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "store id required"})
	}
	settings, err := h.settings.Get(storeID, shopID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewStoreSettingsResponse(settings))
}

// UpdateSettings replaces the store's taxpayer profile fields.
// PUT /api/stores/:id/settings
func (h *StoreHandler) UpdateSettings(c *fiber.Ctx) error {
	shopID := GetShopID(c)
	if shopID == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "invalid token"})
	}
	storeID, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "store id required"})
	}
	var in dto.UpdateSettingsRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "invalid request body"})
	}
	if in.Name == "" || in.TaxNumber == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "name and tax_number are required"})
	}
	if err := h.settings.UpdateProfile(storeID, shopID, in.Profile(storeID, shopID)); err != nil {
		return respondError(c, err)
	}
	settings, err := h.settings.Get(storeID, shopID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewStoreSettingsResponse(settings))
}

package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/albadr/zatca-integration/internal/application/dto"
	"github.com/albadr/zatca-integration/internal/application/invoicing"
	"github.com/albadr/zatca-integration/internal/domain/entity"
	"github.com/albadr/zatca-integration/internal/domain/repository"
)

// InvoiceService is the submission surface the handlers need.
type InvoiceService interface {
	Submit(ctx context.Context, invoiceID, shopID int64) (*invoicing.SubmissionResult, error)
	SubmitMany(ctx context.Context, storeID, shopID int64) ([]*invoicing.SubmissionResult, error)
	GetRecord(invoiceID int64) (*entity.SubmissionRecord, error)
	List(storeID, shopID int64, filter string) ([]*repository.InvoiceSummary, error)
	GetStatistics(storeID, shopID int64) (*invoicing.Statistics, error)
}

// InvoiceHandler serves invoice submission and the audit record.
type InvoiceHandler struct {
	invoices InvoiceService
}

// NewInvoiceHandler builds the handler.
func NewInvoiceHandler(invoices InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

// Submit signs and submits one invoice.
// POST /api/invoices/:id/submit
func (h *InvoiceHandler) Submit(c *fiber.Ctx) error {
	shopID := GetShopID(c)
	if shopID == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "invalid token"})
	}
	invoiceID, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "invoice id required"})
	}
	result, err := h.invoices.Submit(c.Context(), invoiceID, shopID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// SubmitBatch submits every pending invoice of a store.
// POST /api/invoices/submit
func (h *InvoiceHandler) SubmitBatch(c *fiber.Ctx) error {
	shopID := GetShopID(c)
	if shopID == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "invalid token"})
	}
	var in dto.SubmitBatchRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "invalid request body"})
	}
	if in.StoreID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "store_id is required"})
	}
	results, err := h.invoices.SubmitMany(c.Context(), in.StoreID, shopID)
	if err != nil {
		return respondError(c, err)
	}
	if results == nil {
		results = []*invoicing.SubmissionResult{}
	}
	return c.JSON(results)
}

// List returns the store's unsynchronized or needs-review invoices.
// GET /api/invoices?store_id=1&type=sync|review
func (h *InvoiceHandler) List(c *fiber.Ctx) error {
	shopID := GetShopID(c)
	if shopID == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "invalid token"})
	}
	storeID := int64(c.QueryInt("store_id"))
	if storeID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "store_id is required"})
	}
	filter := c.Query("type", repository.ListFilterSync)
	if filter != repository.ListFilterSync && filter != repository.ListFilterReview {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "type must be sync or review"})
	}
	rows, err := h.invoices.List(storeID, shopID, filter)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.InvoiceListItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, dto.NewInvoiceListItem(row))
	}
	return c.JSON(out)
}

// Statistics returns the store's integration dashboard numbers.
// GET /api/stores/:id/statistics
func (h *InvoiceHandler) Statistics(c *fiber.Ctx) error {
	shopID := GetShopID(c)
	if shopID == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "invalid token"})
	}
	storeID, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "store id required"})
	}
	stats, err := h.invoices.GetStatistics(storeID, shopID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.StatisticsResponse{
		Settings:               dto.NewStoreSettingsResponse(stats.Settings),
		LastSyncDate:           stats.LastSyncDate,
		InvoicesNeedReview:     stats.NeedReview,
		UnsynchronizedInvoices: stats.Unsynchronized,
	})
}

// GetSubmission returns the audit record for one invoice.
// GET /api/invoices/:id/submission
func (h *InvoiceHandler) GetSubmission(c *fiber.Ctx) error {
	shopID := GetShopID(c)
	if shopID == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "invalid token"})
	}
	invoiceID, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "invoice id required"})
	}
	rec, err := h.invoices.GetRecord(invoiceID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewSubmissionResponse(rec))
}

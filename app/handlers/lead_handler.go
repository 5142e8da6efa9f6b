package handlers

import (
	"context"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/funnelworks/prospector/app/dto"
	businessflow "github.com/funnelworks/prospector/business_flow"
)

// LeadHandlerInterface defines the contract for lead handlers
type LeadHandlerInterface interface {
	CreateLead(c fiber.Ctx) error
	GetLead(c fiber.Ctx) error
	UpdateLead(c fiber.Ctx) error
	DeleteLead(c fiber.Ctx) error
	ListLeads(c fiber.Ctx) error
	ExportLeads(c fiber.Ctx) error
}

// LeadHandler handles lead-related HTTP requests
type LeadHandler struct {
	leadFlow  businessflow.LeadFlow
	validator *validator.Validate
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(leadFlow businessflow.LeadFlow) *LeadHandler {
	return &LeadHandler{
		leadFlow:  leadFlow,
		validator: newValidator(),
	}
}

func (h *LeadHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: &dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *LeadHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ValidationErrorResponse returns a 422 carrying the field→message map and
// echoing the submitted input back in data so the caller can correct and
// resubmit.
func (h *LeadHandler) ValidationErrorResponse(c fiber.Ctx, input any, details any) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.APIResponse{
		Success: false,
		Message: "Validation failed",
		Data:    input,
		Error: &dto.ErrorDetail{
			Code:    "VALIDATION_ERROR",
			Details: details,
		},
	})
}

// CreateLead handles lead creation
func (h *LeadHandler) CreateLead(c fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	var req dto.CreateLeadRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ValidationErrorResponse(c, req, validationFieldErrors(err))
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.leadFlow.CreateLead(h.createRequestContext(c, "/api/v1/leads"), userID, &req, metadata)
	if err != nil {
		if fieldErrs, ok := businessflow.AsFieldErrors(err); ok {
			return h.ValidationErrorResponse(c, req, fieldErrs)
		}
		if businessflow.IsUserNotFound(err) || businessflow.IsAccountInactive(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
		}

		log.Println("Create lead failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create lead", "LEAD_CREATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Lead created successfully", result)
}

// GetLead handles retrieval of a single lead
func (h *LeadHandler) GetLead(c fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.leadFlow.GetLead(h.createRequestContext(c, "/api/v1/leads/:uuid"), userID, c.Params("uuid"), metadata)
	if err != nil {
		return h.leadErrorResponse(c, err, "Failed to retrieve lead", "LEAD_GET_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Lead retrieved successfully", result)
}

// UpdateLead handles partial updates of a lead
func (h *LeadHandler) UpdateLead(c fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	var req dto.UpdateLeadRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ValidationErrorResponse(c, req, validationFieldErrors(err))
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.leadFlow.UpdateLead(h.createRequestContext(c, "/api/v1/leads/:uuid"), userID, c.Params("uuid"), &req, metadata)
	if err != nil {
		if fieldErrs, ok := businessflow.AsFieldErrors(err); ok {
			return h.ValidationErrorResponse(c, req, fieldErrs)
		}
		return h.leadErrorResponse(c, err, "Failed to update lead", "LEAD_UPDATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Lead updated successfully", result)
}

// DeleteLead handles permanent removal of a lead
func (h *LeadHandler) DeleteLead(c fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	err := h.leadFlow.DeleteLead(h.createRequestContext(c, "/api/v1/leads/:uuid"), userID, c.Params("uuid"), metadata)
	if err != nil {
		return h.leadErrorResponse(c, err, "Failed to delete lead", "LEAD_DELETE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Lead deleted successfully", nil)
}

// ListLeads handles paginated listing with optional filters
func (h *LeadHandler) ListLeads(c fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	var req dto.ListLeadsRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.leadFlow.ListLeads(h.createRequestContext(c, "/api/v1/leads"), userID, &req, metadata)
	if err != nil {
		if fieldErrs, ok := businessflow.AsFieldErrors(err); ok {
			return h.ValidationErrorResponse(c, req, fieldErrs)
		}

		log.Println("List leads failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list leads", "LEAD_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Leads retrieved successfully", result)
}

// ExportLeads streams the caller's leads as an Excel workbook, honoring the
// same filters as the list endpoint
func (h *LeadHandler) ExportLeads(c fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	var req dto.ListLeadsRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	filename, content, err := h.leadFlow.ExportLeads(h.createRequestContext(c, "/api/v1/leads/export"), userID, &req, metadata)
	if err != nil {
		if fieldErrs, ok := businessflow.AsFieldErrors(err); ok {
			return h.ValidationErrorResponse(c, req, fieldErrs)
		}

		log.Println("Export leads failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to export leads", "LEAD_EXPORT_FAILED", nil)
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	return c.Send(content)
}

// leadErrorResponse maps lead lookup errors to HTTP responses. A lead that
// does not exist yields 404 while a lead owned by another user yields 403.
func (h *LeadHandler) leadErrorResponse(c fiber.Ctx, err error, message, code string) error {
	if businessflow.IsLeadNotFound(err) {
		return h.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", "LEAD_NOT_FOUND", nil)
	}
	if businessflow.IsLeadAccessDenied(err) {
		return h.ErrorResponse(c, fiber.StatusForbidden, "Lead access denied", "LEAD_ACCESS_DENIED", nil)
	}

	log.Println(message, err)
	return h.ErrorResponse(c, fiber.StatusInternalServerError, message, code, nil)
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *LeadHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

package handlers

import (
	"context"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/leadforge/leadforge/app/dto"
	businessflow "github.com/leadforge/leadforge/business_flow"
	"github.com/leadforge/leadforge/utils"
)

// LeadHandlerInterface defines the contract for lead capture handlers
type LeadHandlerInterface interface {
	CaptureLead(c fiber.Ctx) error
	RetrieveLead(c fiber.Ctx) error
}

// LeadHandler handles lead capture and retrieval HTTP requests
type LeadHandler struct {
	leadFlow  businessflow.LeadFlow
	validator *validator.Validate
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(leadFlow businessflow.LeadFlow) *LeadHandler {
	handler := &LeadHandler{
		leadFlow:  leadFlow,
		validator: validator.New(),
	}
	registerPhoneValidation(handler.validator)
	return handler
}

func (h *LeadHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
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

// CaptureLead handles the public lead form submission
func (h *LeadHandler) CaptureLead(c fiber.Ctx) error {
	var req dto.CaptureLeadRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.SetRequestID(c.Get(businessflow.RequestIDKey))

	result, err := h.leadFlow.CaptureLead(h.createRequestContext(c, "/api/v1/leads"), &req, metadata)
	if err != nil {
		if businessflow.IsHoneypotTriggered(err) || businessflow.IsFormFillTooFast(err) {
			// Bots get the same generic rejection as any bad request
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Submission rejected", "SUBMISSION_REJECTED", nil)
		}
		if businessflow.IsStaleFormSubmission(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Form session expired, please reload the page", "FORM_EXPIRED", nil)
		}

		log.Println("Lead capture failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Lead capture failed", "LEAD_CAPTURE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Lead captured successfully", result)
}

// RetrieveLead exchanges a single-use token for the lead it protects
func (h *LeadHandler) RetrieveLead(c fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Token is required", "INVALID_REQUEST", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.SetRequestID(c.Get(businessflow.RequestIDKey))

	result, err := h.leadFlow.RetrieveLead(h.createRequestContext(c, "/api/v1/leads/retrieve"), token, metadata)
	if err != nil {
		if businessflow.IsRetrievalTokenInvalid(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid or expired token", "INVALID_TOKEN", nil)
		}
		if businessflow.IsLeadNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", "LEAD_NOT_FOUND", nil)
		}

		log.Println("Lead retrieval failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Lead retrieval failed", "RETRIEVAL_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Lead retrieved successfully", result)
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *LeadHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *LeadHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get(businessflow.RequestIDKey))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}

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

// AdminHandlerInterface defines the contract for admin dashboard handlers
type AdminHandlerInterface interface {
	InitCaptcha(c fiber.Ctx) error
	Login(c fiber.Ctx) error
	ListLeads(c fiber.Ctx) error
	ExportLeads(c fiber.Ctx) error
	ListSuspiciousEvents(c fiber.Ctx) error
}

// AdminHandler implements AdminHandlerInterface
type AdminHandler struct {
	flow      businessflow.AdminFlow
	validator *validator.Validate
}

func NewAdminHandler(flow businessflow.AdminFlow) AdminHandlerInterface {
	return &AdminHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

// ErrorResponse standard JSON error
func (h *AdminHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

// SuccessResponse standard JSON success
func (h *AdminHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// InitCaptcha starts the admin login by returning a rotate captcha challenge
func (h *AdminHandler) InitCaptcha(c fiber.Ctx) error {
	resp, err := h.flow.InitCaptcha(h.createRequestContext(c, "/api/v1/admin/auth/captcha/init"))
	if err != nil {
		log.Println("Admin captcha init failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Admin captcha init failed", "ADMIN_CAPTCHA_INIT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Captcha initialized", resp)
}

// Login completes admin login by verifying captcha and credentials
func (h *AdminHandler) Login(c fiber.Ctx) error {
	var req dto.AdminLoginRequest
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
	result, err := h.flow.Login(h.createRequestContext(c, "/api/v1/admin/auth/login"), &req, metadata)
	if err != nil {
		if businessflow.IsCaptchaFailed(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid captcha", "INVALID_CAPTCHA", nil)
		}
		if businessflow.IsAdminInactive(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Admin inactive", "ADMIN_INACTIVE", nil)
		}
		if businessflow.IsAdminNotFound(err) || businessflow.IsIncorrectPassword(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Incorrect credentials", "INCORRECT_CREDENTIALS", nil)
		}
		log.Println("Admin login failed", err)
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Login failed", "LOGIN_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Login successful", fiber.Map{
		"access_token": result.Session.AccessToken,
		"token_type":   result.Session.TokenType,
		"expires_in":   result.Session.ExpiresIn,
		"admin":        result.Admin,
	})
}

// ListLeads returns a page of captured leads for the dashboard
func (h *AdminHandler) ListLeads(c fiber.Ctx) error {
	var req dto.ListLeadsRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	result, err := h.flow.ListLeads(h.createRequestContext(c, "/api/v1/admin/leads"), &req)
	if err != nil {
		if businessflow.IsInvalidPage(err) || businessflow.IsInvalidPageSize(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid pagination", "INVALID_PAGINATION", nil)
		}
		log.Println("List leads failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list leads", "LIST_LEADS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Leads retrieved successfully", result)
}

// ExportLeads downloads the filtered leads as an Excel workbook
func (h *AdminHandler) ExportLeads(c fiber.Ctx) error {
	var req dto.ListLeadsRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}

	filename, data, err := h.flow.ExportLeadsExcel(h.createRequestContextWithTimeout(c, "/api/v1/admin/leads/export", 2*time.Minute), &req)
	if err != nil {
		log.Println("Export leads failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to export leads", "EXPORT_LEADS_FAILED", nil)
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Status(fiber.StatusOK).Send(data)
}

// ListSuspiciousEvents returns a page of the abuse log
func (h *AdminHandler) ListSuspiciousEvents(c fiber.Ctx) error {
	var req dto.ListSuspiciousEventsRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	result, err := h.flow.ListSuspiciousEvents(h.createRequestContext(c, "/api/v1/admin/suspicious-events"), &req)
	if err != nil {
		if businessflow.IsInvalidPage(err) || businessflow.IsInvalidPageSize(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid pagination", "INVALID_PAGINATION", nil)
		}
		log.Println("List suspicious events failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list suspicious events", "LIST_EVENTS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Suspicious events retrieved successfully", result)
}

// createRequestContext mirrors other handlers for request-scoped values
func (h *AdminHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *AdminHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get(businessflow.RequestIDKey))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}

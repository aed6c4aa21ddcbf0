package handlers

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/leadforge/leadforge/app/dto"
	businessflow "github.com/leadforge/leadforge/business_flow"
	"github.com/leadforge/leadforge/utils"
)

// OTPHandlerInterface defines the contract for phone verification handlers
type OTPHandlerInterface interface {
	VerifyOTP(c fiber.Ctx) error
	ResendOTP(c fiber.Ctx) error
}

// OTPHandler handles phone verification HTTP requests
type OTPHandler struct {
	otpFlow   businessflow.OTPFlow
	validator *validator.Validate
}

// NewOTPHandler creates a new OTP handler
func NewOTPHandler(otpFlow businessflow.OTPFlow) *OTPHandler {
	return &OTPHandler{
		otpFlow:   otpFlow,
		validator: validator.New(),
	}
}

func (h *OTPHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *OTPHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// VerifyOTP handles an OTP verification attempt
func (h *OTPHandler) VerifyOTP(c fiber.Ctx) error {
	var req dto.VerifyOTPRequest
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

	result, err := h.otpFlow.VerifyOTP(h.createRequestContext(c, "/api/v1/otp/verify"), &req, metadata)
	if err != nil {
		if businessflow.IsInvalidOTPFormat(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Code must be 6 digits", "INVALID_OTP_FORMAT", nil)
		}
		if businessflow.IsNoValidOTPFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "No valid verification found", "NO_VALID_OTP", nil)
		}
		if businessflow.IsOTPExpired(err) {
			return h.ErrorResponse(c, fiber.StatusGone, "Code has expired, request a new one", "OTP_EXPIRED", nil)
		}
		if businessflow.IsOTPLocked(err) {
			return h.ErrorResponse(c, fiber.StatusTooManyRequests, "Too many incorrect attempts", "OTP_LOCKED", nil)
		}
		if businessflow.IsInvalidOTPCode(err) {
			var invalidOTP *businessflow.InvalidOTPError
			if errors.As(err, &invalidOTP) {
				return h.ErrorResponse(c, fiber.StatusUnauthorized, "Incorrect code", "INVALID_OTP_CODE", fiber.Map{
					"attempts_remaining": invalidOTP.Remaining,
				})
			}
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Incorrect code", "INVALID_OTP_CODE", nil)
		}

		log.Println("OTP verification failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "OTP verification failed", "OTP_VERIFICATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Phone verified successfully", result)
}

// ResendOTP dispatches a fresh code to the lead's phone
func (h *OTPHandler) ResendOTP(c fiber.Ctx) error {
	var req dto.ResendOTPRequest
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

	result, err := h.otpFlow.ResendOTP(h.createRequestContext(c, "/api/v1/otp/resend"), &req, metadata)
	if err != nil {
		if businessflow.IsLeadNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", "LEAD_NOT_FOUND", nil)
		}
		if businessflow.IsAlreadyVerified(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Phone is already verified", "ALREADY_VERIFIED", nil)
		}
		if businessflow.IsOTPResendTooSoon(err) {
			return h.ErrorResponse(c, fiber.StatusTooManyRequests, "A code was sent recently, wait before requesting another", "RESEND_TOO_SOON", nil)
		}

		log.Println("OTP resend failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "OTP resend failed", "OTP_RESEND_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Verification code sent", result)
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *OTPHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *OTPHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get(businessflow.RequestIDKey))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}

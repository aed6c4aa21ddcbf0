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

// BookingHandlerInterface defines the contract for booking handlers
type BookingHandlerInterface interface {
	CreateBooking(c fiber.Ctx) error
	DownloadICS(c fiber.Ctx) error
}

// BookingHandler handles consultation booking HTTP requests
type BookingHandler struct {
	bookingFlow businessflow.BookingFlow
	validator   *validator.Validate
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookingFlow businessflow.BookingFlow) *BookingHandler {
	return &BookingHandler{
		bookingFlow: bookingFlow,
		validator:   validator.New(),
	}
}

func (h *BookingHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *BookingHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// CreateBooking claims a consultation slot for a verified lead
func (h *BookingHandler) CreateBooking(c fiber.Ctx) error {
	var req dto.CreateBookingRequest
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

	result, err := h.bookingFlow.CreateBooking(h.createRequestContext(c, "/api/v1/bookings"), &req, metadata)
	if err != nil {
		if businessflow.IsLeadNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", "LEAD_NOT_FOUND", nil)
		}
		if businessflow.IsPhoneNotVerified(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Phone must be verified before booking", "PHONE_NOT_VERIFIED", nil)
		}
		if businessflow.IsInvalidTimezone(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid timezone", "INVALID_TIMEZONE", nil)
		}
		if businessflow.IsSlotInvalidRange(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Slot end must be after slot start", "INVALID_SLOT_RANGE", nil)
		}
		if businessflow.IsSlotInPast(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Slot must be in the future", "SLOT_IN_PAST", nil)
		}
		if businessflow.IsSlotMisaligned(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Slot must align to 15 minute boundaries", "SLOT_MISALIGNED", nil)
		}
		if businessflow.IsSlotOutsideHours(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Slot must be between 08:00 and 20:00 local time", "SLOT_OUTSIDE_HOURS", nil)
		}
		if businessflow.IsSlotTaken(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Slot was just booked by someone else", "SLOT_CONFLICT", nil)
		}

		log.Println("Booking failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Booking failed", "BOOKING_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Booking confirmed", result)
}

// DownloadICS serves the calendar invite for a confirmed booking
func (h *BookingHandler) DownloadICS(c fiber.Ctx) error {
	bookingUUID := c.Query("booking_id")
	if bookingUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "booking_id is required", "INVALID_REQUEST", nil)
	}

	filename, data, err := h.bookingFlow.ExportICS(h.createRequestContext(c, "/api/v1/bookings/ics"), bookingUUID)
	if err != nil {
		if businessflow.IsBookingNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Booking not found", "BOOKING_NOT_FOUND", nil)
		}

		log.Println("ICS export failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Calendar export failed", "ICS_EXPORT_FAILED", nil)
	}

	c.Set(fiber.HeaderContentType, "text/calendar; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Status(fiber.StatusOK).Send(data)
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *BookingHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *BookingHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get(businessflow.RequestIDKey))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}

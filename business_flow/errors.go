package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Lead-related errors
	ErrLeadNotFound        = errors.New("lead not found")
	ErrHoneypotTriggered   = errors.New("honeypot field was filled")
	ErrFormFillTooFast     = errors.New("form submitted too fast")
	ErrStaleFormSubmission = errors.New("form submission is stale")

	// Retrieval token errors
	ErrRetrievalTokenInvalid = errors.New("retrieval token is invalid, expired, or already used")

	// OTP-related errors
	ErrNoValidOTPFound   = errors.New("no valid OTP found")
	ErrInvalidOTPCode    = errors.New("invalid OTP code")
	ErrInvalidOTPFormat  = errors.New("OTP code must be 6 digits")
	ErrOTPExpired        = errors.New("OTP has expired")
	ErrOTPLocked         = errors.New("maximum OTP attempts exceeded")
	ErrOTPResendTooSoon  = errors.New("OTP was sent recently, wait before requesting another")
	ErrAlreadyVerified   = errors.New("phone already verified")
	ErrPhoneNotVerified  = errors.New("phone is not verified")
	ErrCacheNotAvailable = errors.New("cache not available")

	// Booking-related errors
	ErrSlotTaken            = errors.New("slot already booked")
	ErrSlotInPast           = errors.New("slot starts in the past")
	ErrSlotOutsideHours     = errors.New("slot is outside business hours")
	ErrSlotMisaligned       = errors.New("slot does not align to the booking grid")
	ErrSlotInvalidRange     = errors.New("slot end must be after slot start")
	ErrInvalidTimezone      = errors.New("timezone is not a valid IANA name")
	ErrBookingNotFound      = errors.New("booking not found")
	ErrLeadAlreadyBooked    = errors.New("lead already has a booking")

	// Admin errors
	ErrAdminNotFound     = errors.New("admin not found")
	ErrAdminInactive     = errors.New("admin account is inactive")
	ErrIncorrectPassword = errors.New("incorrect password")
	ErrCaptchaFailed     = errors.New("captcha verification failed")

	// Filter errors
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidPageSize = errors.New("page size must be between 1 and 100")
)

// InvalidOTPError carries the remaining attempt budget alongside the
// mismatch, so the response can tell a fat-fingered human how many tries are
// left without changing the error's identity.
type InvalidOTPError struct {
	Remaining int
}

func (e *InvalidOTPError) Error() string {
	return fmt.Sprintf("invalid OTP code, %d attempts remaining", e.Remaining)
}

func (e *InvalidOTPError) Unwrap() error {
	return ErrInvalidOTPCode
}

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func IsLeadNotFound(err error) bool {
	return errors.Is(err, ErrLeadNotFound)
}

func IsHoneypotTriggered(err error) bool {
	return errors.Is(err, ErrHoneypotTriggered)
}

func IsFormFillTooFast(err error) bool {
	return errors.Is(err, ErrFormFillTooFast)
}

func IsStaleFormSubmission(err error) bool {
	return errors.Is(err, ErrStaleFormSubmission)
}

func IsRetrievalTokenInvalid(err error) bool {
	return errors.Is(err, ErrRetrievalTokenInvalid)
}

func IsNoValidOTPFound(err error) bool {
	return errors.Is(err, ErrNoValidOTPFound)
}

func IsInvalidOTPCode(err error) bool {
	return errors.Is(err, ErrInvalidOTPCode)
}

func IsInvalidOTPFormat(err error) bool {
	return errors.Is(err, ErrInvalidOTPFormat)
}

func IsOTPExpired(err error) bool {
	return errors.Is(err, ErrOTPExpired)
}

func IsOTPLocked(err error) bool {
	return errors.Is(err, ErrOTPLocked)
}

func IsOTPResendTooSoon(err error) bool {
	return errors.Is(err, ErrOTPResendTooSoon)
}

func IsAlreadyVerified(err error) bool {
	return errors.Is(err, ErrAlreadyVerified)
}

func IsPhoneNotVerified(err error) bool {
	return errors.Is(err, ErrPhoneNotVerified)
}

func IsCacheNotAvailable(err error) bool {
	return errors.Is(err, ErrCacheNotAvailable)
}

func IsSlotTaken(err error) bool {
	return errors.Is(err, ErrSlotTaken)
}

func IsSlotInPast(err error) bool {
	return errors.Is(err, ErrSlotInPast)
}

func IsSlotOutsideHours(err error) bool {
	return errors.Is(err, ErrSlotOutsideHours)
}

func IsSlotMisaligned(err error) bool {
	return errors.Is(err, ErrSlotMisaligned)
}

func IsSlotInvalidRange(err error) bool {
	return errors.Is(err, ErrSlotInvalidRange)
}

func IsInvalidTimezone(err error) bool {
	return errors.Is(err, ErrInvalidTimezone)
}

func IsBookingNotFound(err error) bool {
	return errors.Is(err, ErrBookingNotFound)
}

func IsLeadAlreadyBooked(err error) bool {
	return errors.Is(err, ErrLeadAlreadyBooked)
}

func IsAdminNotFound(err error) bool {
	return errors.Is(err, ErrAdminNotFound)
}

func IsAdminInactive(err error) bool {
	return errors.Is(err, ErrAdminInactive)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsCaptchaFailed(err error) bool {
	return errors.Is(err, ErrCaptchaFailed)
}

func IsInvalidPage(err error) bool {
	return errors.Is(err, ErrInvalidPage)
}

func IsInvalidPageSize(err error) bool {
	return errors.Is(err, ErrInvalidPageSize)
}

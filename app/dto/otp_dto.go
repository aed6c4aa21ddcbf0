package dto

// VerifyOTPRequest represents an OTP verification attempt
type VerifyOTPRequest struct {
	VerificationUUID string `json:"verification_id" validate:"required,uuid"`
	Code             string `json:"code" validate:"required"`
}

// VerifyOTPResponse is returned when a code is accepted
type VerifyOTPResponse struct {
	Status          string `json:"status" example:"verified"`
	LeadUUID        string `json:"lead_uuid" example:"f47ac10b-58cc-4372-a567-0e02b2c3d479"`
	PhoneVerifiedAt string `json:"phone_verified_at" example:"2024-01-15T10:30:00Z"`
}

// ResendOTPRequest asks for a fresh code for a lead
type ResendOTPRequest struct {
	LeadUUID string `json:"lead_uuid" validate:"required,uuid"`
}

// ResendOTPResponse is returned after a new code was dispatched
type ResendOTPResponse struct {
	VerificationUUID string `json:"verification_id"`
	OTPSent          bool   `json:"otp_sent" example:"true"`
	OTPExpiresIn     int    `json:"otp_expires_in" example:"300"`
}

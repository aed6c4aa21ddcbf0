package utils

import (
	"time"
)

// Verification and token time constants
const (
	// OTPExpiry is the time-to-live for OTP codes (5 minutes)
	OTPExpiry = 5 * time.Minute

	// OTPExpirySeconds is the time-to-live for OTP codes in seconds
	OTPExpirySeconds = 300

	// RetrievalTokenTTL is the time-to-live for lead retrieval tokens (15 minutes)
	RetrievalTokenTTL = 15 * time.Minute

	// OTPMaxAttempts is the number of wrong codes allowed before a challenge locks
	OTPMaxAttempts = 3

	// OTPResendCooldown is the minimum gap between OTP sends for the same lead
	OTPResendCooldown = 60 * time.Second
)

// Access token constants for the admin dashboard
const (
	// AccessTokenTTLSeconds is the time-to-live for admin access tokens in seconds (24 hours)
	AccessTokenTTLSeconds = 86400
)

// Form timing constants
const (
	// MinFormFillTime is the minimum believable time a human needs to fill the lead form
	MinFormFillTime = 2 * time.Second

	// MaxFormFillTime is the maximum age of a form submission before it is treated as stale
	MaxFormFillTime = 10 * time.Minute
)

// Booking slot constants
const (
	// SlotAlignment is the grid bookable slots must align to
	SlotAlignment = 15 * time.Minute

	// BusinessDayStartHour and BusinessDayEndHour bound bookable local hours
	BusinessDayStartHour = 8
	BusinessDayEndHour   = 20
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

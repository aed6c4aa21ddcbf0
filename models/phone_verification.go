package models

import (
	"time"

	"github.com/google/uuid"
)

type PhoneVerification struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UUID          uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`
	LeadID        uint      `gorm:"not null;index:idx_phone_verifications_lead_id" json:"lead_id"`
	Lead          Lead      `gorm:"foreignKey:LeadID;references:ID" json:"lead,omitempty"`
	OTPHash       string    `gorm:"size:64;not null" json:"-"` // SHA-256 hex, never the raw code
	Phone         string    `gorm:"size:20;not null" json:"phone"`
	Status        string    `gorm:"size:16;default:pending;index:idx_phone_verifications_status" json:"status"`
	Attempts      int       `gorm:"default:0" json:"attempts"`
	MaxAttempts   int       `gorm:"default:3" json:"max_attempts"`
	CreatedAt     time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	ExpiresAt     time.Time `gorm:"not null;index:idx_phone_verifications_expires_at" json:"expires_at"`
	VerifiedAt    *time.Time `json:"verified_at,omitempty"`
	IPHash        *string    `gorm:"size:64" json:"-"`
	UserAgentHash *string    `gorm:"size:64" json:"-"`
}

func (PhoneVerification) TableName() string {
	return "phone_verifications"
}

// Verification status constants
const (
	VerificationStatusPending  = "pending"
	VerificationStatusVerified = "verified"
	VerificationStatusExpired  = "expired"
	VerificationStatusFailed   = "failed"
)

// PhoneVerificationFilter represents filter criteria for phone verification queries
type PhoneVerificationFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	LeadID        *uint
	Phone         *string
	Status        *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	IsActive      *bool // non-expired pending challenges only
}

func (v *PhoneVerification) IsExpiredAt(now time.Time) bool {
	return now.After(v.ExpiresAt)
}

func (v *PhoneVerification) IsVerified() bool {
	return v.Status == VerificationStatusVerified
}

func (v *PhoneVerification) IsPending() bool {
	return v.Status == VerificationStatusPending
}

func (v *PhoneVerification) AttemptsRemaining() int {
	remaining := v.MaxAttempts - v.Attempts
	if remaining < 0 {
		return 0
	}
	return remaining
}

package models

import "time"

// SuspiciousEvent is an append-only abuse signal. IP and user agent arrive
// already hashed so a leaked table cannot expose raw client identifiers while
// repeated offenders still correlate by hash equality.
type SuspiciousEvent struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ReasonCode    string    `gorm:"size:32;not null;index:idx_suspicious_events_reason" json:"reason_code"`
	Severity      string    `gorm:"size:8;not null" json:"severity"`
	IPHash        *string   `gorm:"size:64;index:idx_suspicious_events_ip_hash" json:"-"`
	UserAgentHash *string   `gorm:"size:64" json:"-"`
	LeadID        *uint     `gorm:"index:idx_suspicious_events_lead_id" json:"lead_id,omitempty"`
	Metadata      []byte    `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt     time.Time `gorm:"default:CURRENT_TIMESTAMP;index:idx_suspicious_events_created_at" json:"created_at"`
}

func (SuspiciousEvent) TableName() string {
	return "suspicious_events"
}

// Reason code constants
const (
	ReasonRateLimitExceeded = "rate_limit_exceeded"
	ReasonHoneypotTriggered = "honeypot_triggered"
	ReasonFormFillTooFast   = "form_fill_too_fast"
	ReasonOTPInvalidAttempt = "otp_invalid_attempt"
	ReasonOTPMaxAttempts    = "otp_max_attempts"
	ReasonTokenReplay       = "token_replay"
)

// Severity constants
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// SuspiciousEventFilter represents filter criteria for suspicious event queries
type SuspiciousEventFilter struct {
	ID            *uint
	ReasonCode    *string
	Severity      *string
	IPHash        *string
	LeadID        *uint
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

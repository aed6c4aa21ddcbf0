// Package businessflow contains the core business logic and use cases for the lead funnel
package businessflow

import (
	"time"

	"github.com/leadforge/leadforge/app/dto"
	"github.com/leadforge/leadforge/config"
	"github.com/leadforge/leadforge/models"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds all client-related information for abuse logging.
// Flows hash the IP and user agent before anything is persisted.
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// redisKey prefixes a cache key with the configured namespace
func redisKey(cfg config.CacheConfig, key string) string {
	return cfg.RedisPrefix + key
}

// ToLeadDTO converts a lead model to its API representation
func ToLeadDTO(lead models.Lead) dto.LeadDTO {
	return dto.LeadDTO{
		UUID:               lead.UUID.String(),
		FullName:           lead.FullName,
		Email:              lead.Email,
		Phone:              lead.Phone,
		Country:            lead.Country,
		Company:            lead.Company,
		MonthlyBudgetRange: lead.MonthlyBudgetRange,
		Timeline:           lead.Timeline,
		DecisionMaker:      lead.DecisionMaker,
		ResponseWithin5Min: lead.ResponseWithin5Min,
		Score:              lead.Score,
		Grade:              lead.Grade,
		RecommendedPackage: lead.RecommendedPackage,
		Status:             lead.Status,
		PhoneVerified:      lead.IsPhoneVerified(),
		CreatedAt:          lead.CreatedAt.Format(time.RFC3339),
	}
}

// ToBookingDTO converts a booking model to its API representation
func ToBookingDTO(booking models.Booking, leadUUID string) dto.BookingDTO {
	return dto.BookingDTO{
		UUID:          booking.UUID.String(),
		LeadUUID:      leadUUID,
		SelectedStart: booking.SelectedStart.UTC().Format(time.RFC3339),
		SelectedEnd:   booking.SelectedEnd.UTC().Format(time.RFC3339),
		Timezone:      booking.BookingTimezone,
		SlotLabel:     booking.SlotLabel,
		MeetURL:       booking.MeetURL,
		CreatedAt:     booking.CreatedAt.Format(time.RFC3339),
	}
}

// ToAdminDTO converts an admin model to its API representation
func ToAdminDTO(admin models.Admin) dto.AdminDTO {
	out := dto.AdminDTO{
		ID:        admin.ID,
		Username:  admin.Username,
		IsActive:  admin.IsActive,
		CreatedAt: admin.CreatedAt.Format(time.RFC3339),
	}
	if admin.LastLoginAt != nil {
		out.LastLoginAt = admin.LastLoginAt.Format(time.RFC3339)
	}
	return out
}

// ToSuspiciousEventDTO converts an abuse log row to its API representation
func ToSuspiciousEventDTO(event models.SuspiciousEvent) dto.SuspiciousEventDTO {
	out := dto.SuspiciousEventDTO{
		ID:         event.ID,
		ReasonCode: event.ReasonCode,
		Severity:   event.Severity,
		LeadID:     event.LeadID,
		CreatedAt:  event.CreatedAt.Format(time.RFC3339),
	}
	if event.IPHash != nil {
		out.IPHash = *event.IPHash
	}
	if len(event.Metadata) > 0 {
		out.Metadata = string(event.Metadata)
	}
	return out
}

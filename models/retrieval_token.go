package models

import "time"

// RetrievalToken grants one-time, short-lived access to a lead's own record.
// Only the SHA-256 hash of the bearer token is stored; the raw token exists
// solely in the HTTP response that issued it.
type RetrievalToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	TokenHash string     `gorm:"size:64;uniqueIndex;not null" json:"-"`
	LeadID    uint       `gorm:"not null;index:idx_retrieval_tokens_lead_id" json:"lead_id"`
	Lead      Lead       `gorm:"foreignKey:LeadID;references:ID" json:"lead,omitempty"`
	ExpiresAt time.Time  `gorm:"not null;index:idx_retrieval_tokens_expires_at" json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (RetrievalToken) TableName() string {
	return "retrieval_tokens"
}

// RetrievalTokenFilter represents filter criteria for retrieval token queries
type RetrievalTokenFilter struct {
	ID        *uint
	TokenHash *string
	LeadID    *uint
	IsUsed    *bool
}

func (t *RetrievalToken) IsUsed() bool {
	return t.UsedAt != nil
}

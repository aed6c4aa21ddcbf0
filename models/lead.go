// Package models contains domain entities and business models for the lead funnel
package models

import (
	"time"

	"github.com/google/uuid"
)

type Lead struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UUID      uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`
	FullName  string    `gorm:"size:120;not null" json:"full_name"`
	Email     string    `gorm:"size:255;not null;index:idx_leads_email" json:"email"`
	Phone     string    `gorm:"size:20;not null;index:idx_leads_phone" json:"phone"` // E.164
	Country   string    `gorm:"size:2" json:"country"`                               // ISO 3166-1 alpha-2
	Company   *string   `gorm:"size:120" json:"company,omitempty"`

	// Qualification answers captured on form submit
	MonthlyBudgetRange  string `gorm:"size:32;not null" json:"monthly_budget_range"`
	Timeline            string `gorm:"size:32;not null" json:"timeline"`
	DecisionMaker       bool   `gorm:"default:false" json:"decision_maker"`
	ResponseWithin5Min  bool   `gorm:"default:false" json:"response_within_5_min"`

	// Computed on capture, immutable afterwards
	Score              int    `gorm:"not null" json:"score"`
	Grade              string `gorm:"size:1;not null;index:idx_leads_grade" json:"grade"`
	RecommendedPackage string `gorm:"size:32;not null" json:"recommended_package"`

	Status          string     `gorm:"size:16;default:new;index:idx_leads_status" json:"status"`
	PhoneVerifiedAt *time.Time `json:"phone_verified_at,omitempty"`

	// Submission fingerprint, hashed before storage
	IPHash        *string `gorm:"size:64" json:"-"`
	UserAgentHash *string `gorm:"size:64" json:"-"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP;index:idx_leads_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Lead) TableName() string {
	return "leads"
}

// Lead status constants
const (
	LeadStatusNew       = "new"
	LeadStatusContacted = "contacted"
	LeadStatusQualified = "qualified"
	LeadStatusClosed    = "closed"
)

// Lead grade constants
const (
	LeadGradeA = "A"
	LeadGradeB = "B"
	LeadGradeC = "C"
	LeadGradeD = "D"
)

// Recommended package constants
const (
	PackageScale   = "scale"
	PackageGrowth  = "growth"
	PackageStarter = "starter"
	PackageAudit   = "audit"
)

// LeadFilter represents filter criteria for lead queries
type LeadFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	Email         *string
	Phone         *string
	Grade         *string
	Status        *string
	PhoneVerified *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (l *Lead) IsPhoneVerified() bool {
	return l.PhoneVerifiedAt != nil
}

// Package dto provides data transfer objects for API requests and responses
package dto

// CaptureLeadRequest represents the public lead form submission
type CaptureLeadRequest struct {
	FullName           string  `json:"full_name" validate:"required,min=2,max=120"`
	Email              string  `json:"email" validate:"required,email,max=255"`
	Phone              string  `json:"phone" validate:"required,e164_phone"`
	Country            string  `json:"country" validate:"omitempty,iso3166_1_alpha2"`
	Company            *string `json:"company" validate:"omitempty,max=120"`
	MonthlyBudgetRange string  `json:"monthly_budget_range" validate:"required,oneof=<1000 1000-2999 3000-4999 5000-9999 10000+"`
	Timeline           string  `json:"timeline" validate:"required,oneof=immediate within_month exploring"`
	DecisionMaker      bool    `json:"decision_maker"`
	ResponseWithin5Min bool    `json:"response_within_5_min"`

	// Website is a honeypot. Humans never see the field; any value means a bot.
	Website string `json:"website" validate:"omitempty,max=255"`

	// FormRenderedAt is the Unix millisecond timestamp the form was served,
	// used to reject submissions filled implausibly fast.
	FormRenderedAt int64 `json:"form_rendered_at" validate:"required,gt=0"`
}

// LeadDTO is the lead representation returned to its owner and the dashboard
type LeadDTO struct {
	UUID               string  `json:"uuid" example:"f47ac10b-58cc-4372-a567-0e02b2c3d479"`
	FullName           string  `json:"full_name" example:"Jane Doe"`
	Email              string  `json:"email" example:"jane@example.com"`
	Phone              string  `json:"phone" example:"+14155550123"`
	Country            string  `json:"country" example:"US"`
	Company            *string `json:"company,omitempty" example:"Acme Inc"`
	MonthlyBudgetRange string  `json:"monthly_budget_range" example:"5000-9999"`
	Timeline           string  `json:"timeline" example:"immediate"`
	DecisionMaker      bool    `json:"decision_maker" example:"true"`
	ResponseWithin5Min bool    `json:"response_within_5_min" example:"true"`
	Score              int     `json:"score" example:"70"`
	Grade              string  `json:"grade" example:"B"`
	RecommendedPackage string  `json:"recommended_package" example:"growth"`
	Status             string  `json:"status" example:"new"`
	PhoneVerified      bool    `json:"phone_verified" example:"false"`
	CreatedAt          string  `json:"created_at" example:"2024-01-15T10:30:00Z"`
}

// CaptureLeadResponse is returned after a successful form submission
type CaptureLeadResponse struct {
	Lead             LeadDTO `json:"lead"`
	RetrievalToken   string  `json:"retrieval_token"`
	TokenExpiresIn   int     `json:"token_expires_in" example:"900"`
	VerificationUUID string  `json:"verification_id"`
	OTPSent          bool    `json:"otp_sent" example:"true"`
	OTPExpiresIn     int     `json:"otp_expires_in" example:"300"`
}

// RetrieveLeadResponse wraps the lead returned for a valid retrieval token
type RetrieveLeadResponse struct {
	Lead LeadDTO `json:"lead"`
}

// ListLeadsRequest represents dashboard lead listing filters
type ListLeadsRequest struct {
	Grade         string `json:"grade" query:"grade" validate:"omitempty,oneof=A B C D"`
	Status        string `json:"status" query:"status" validate:"omitempty,oneof=new contacted qualified closed"`
	PhoneVerified *bool  `json:"phone_verified" query:"phone_verified"`
	Page          int    `json:"page" query:"page" validate:"omitempty,min=1"`
	PageSize      int    `json:"page_size" query:"page_size" validate:"omitempty,min=1,max=100"`
}

// ListLeadsResponse carries a page of leads plus pagination info
type ListLeadsResponse struct {
	Items      []LeadDTO `json:"items"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalPages int       `json:"total_pages"`
}

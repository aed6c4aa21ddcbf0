package dto

type AdminDTO struct {
	ID          uint   `json:"id" example:"1"`
	Username    string `json:"username" example:"admin"`
	IsActive    *bool  `json:"is_active" example:"true"`
	LastLoginAt string `json:"last_login_at,omitempty" example:"2024-01-15T10:30:00Z"`
	CreatedAt   string `json:"created_at" example:"2024-01-15T10:30:00Z"`
}

type AdminSessionDTO struct {
	AccessToken string `json:"access_token" example:"jwt"`
	ExpiresIn   int    `json:"expires_in" example:"86400"`
	TokenType   string `json:"token_type" example:"Bearer"`
	CreatedAt   string `json:"created_at" example:"2024-01-15T10:30:00Z"`
}

type AdminCaptchaInitResponse struct {
	ChallengeID       string `json:"challenge_id"`
	MasterImageBase64 string `json:"master_image_base64"`
	ThumbImageBase64  string `json:"thumb_image_base64"`
}

type AdminLoginRequest struct {
	ChallengeID string  `json:"challenge_id" validate:"required"`
	Username    string  `json:"username" validate:"required,min=3,max=64"`
	Password    string  `json:"password" validate:"required,min=8,max=100"`
	UserAngle   float64 `json:"user_angle" validate:"required"`
}

type AdminLoginResponse struct {
	Admin   AdminDTO        `json:"admin"`
	Session AdminSessionDTO `json:"session"`
}

// SuspiciousEventDTO is the dashboard view of an abuse log row
type SuspiciousEventDTO struct {
	ID         uint   `json:"id" example:"42"`
	ReasonCode string `json:"reason_code" example:"otp_max_attempts"`
	Severity   string `json:"severity" example:"high"`
	IPHash     string `json:"ip_hash,omitempty"`
	LeadID     *uint  `json:"lead_id,omitempty"`
	Metadata   any    `json:"metadata,omitempty"`
	CreatedAt  string `json:"created_at" example:"2024-01-15T10:30:00Z"`
}

// ListSuspiciousEventsRequest filters the abuse log
type ListSuspiciousEventsRequest struct {
	ReasonCode string `json:"reason_code" query:"reason_code" validate:"omitempty,max=32"`
	Severity   string `json:"severity" query:"severity" validate:"omitempty,oneof=low medium high"`
	Page       int    `json:"page" query:"page" validate:"omitempty,min=1"`
	PageSize   int    `json:"page_size" query:"page_size" validate:"omitempty,min=1,max=100"`
}

// ListSuspiciousEventsResponse carries a page of abuse log rows
type ListSuspiciousEventsResponse struct {
	Items      []SuspiciousEventDTO `json:"items"`
	Total      int64                `json:"total"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"page_size"`
	TotalPages int                  `json:"total_pages"`
}

package dto

// CreateBookingRequest claims a consultation slot for a verified lead
type CreateBookingRequest struct {
	LeadUUID      string `json:"lead_uuid" validate:"required,uuid"`
	SelectedStart string `json:"selected_start" validate:"required"` // RFC 3339
	SelectedEnd   string `json:"selected_end" validate:"required"`   // RFC 3339
	Timezone      string `json:"timezone" validate:"required,timezone"`
}

// BookingDTO is the booking representation returned to clients
type BookingDTO struct {
	UUID          string  `json:"uuid" example:"f47ac10b-58cc-4372-a567-0e02b2c3d479"`
	LeadUUID      string  `json:"lead_uuid" example:"b9e7c3a1-4d2f-4c8e-9a31-7f6d5e4c3b2a"`
	SelectedStart string  `json:"selected_start" example:"2024-01-20T15:00:00Z"`
	SelectedEnd   string  `json:"selected_end" example:"2024-01-20T15:30:00Z"`
	Timezone      string  `json:"timezone" example:"America/New_York"`
	SlotLabel     string  `json:"slot_label" example:"Sat, Jan 20 at 10:00 AM"`
	MeetURL       *string `json:"meet_url,omitempty"`
	CreatedAt     string  `json:"created_at" example:"2024-01-15T10:30:00Z"`
}

// CreateBookingResponse wraps the confirmed booking
type CreateBookingResponse struct {
	Booking BookingDTO `json:"booking"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Booking is a claimed consultation slot. The composite unique index on
// (selected_start, selected_end) is the final arbiter against double booking;
// concurrent inserts for the same slot lose with a unique violation.
type Booking struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UUID            uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`
	LeadID          uint      `gorm:"not null;index:idx_bookings_lead_id" json:"lead_id"`
	Lead            Lead      `gorm:"foreignKey:LeadID;references:ID" json:"lead,omitempty"`
	SelectedStart   time.Time `gorm:"not null;uniqueIndex:idx_bookings_slot" json:"selected_start"` // UTC
	SelectedEnd     time.Time `gorm:"not null;uniqueIndex:idx_bookings_slot" json:"selected_end"`   // UTC
	BookingTimezone string    `gorm:"size:64;not null" json:"booking_timezone"`                     // IANA name
	SlotLabel       string    `gorm:"size:120" json:"slot_label"`
	MeetURL         *string   `gorm:"size:255" json:"meet_url,omitempty"`
	CalendarEventID *string   `gorm:"size:255" json:"calendar_event_id,omitempty"`
	CreatedAt       time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Booking) TableName() string {
	return "bookings"
}

// BookingFilter represents filter criteria for booking queries
type BookingFilter struct {
	ID          *uint
	UUID        *uuid.UUID
	LeadID      *uint
	StartAfter  *time.Time
	StartBefore *time.Time
}

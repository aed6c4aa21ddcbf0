package businessflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/leadforge/leadforge/app/dto"
	"github.com/leadforge/leadforge/app/services"
	"github.com/leadforge/leadforge/config"
	"github.com/leadforge/leadforge/models"
	"github.com/leadforge/leadforge/repository"
	"github.com/leadforge/leadforge/utils"
	"gorm.io/gorm"
)

// BookingFlow handles consultation slot booking and calendar export
type BookingFlow interface {
	CreateBooking(ctx context.Context, req *dto.CreateBookingRequest, metadata *ClientMetadata) (*dto.CreateBookingResponse, error)
	ExportICS(ctx context.Context, bookingUUID string) (filename string, data []byte, err error)
}

// BookingFlowImpl implements the booking business flow
type BookingFlowImpl struct {
	leadRepo        repository.LeadRepository
	bookingRepo     repository.BookingRepository
	calendarService services.CalendarService
	bookingConfig   *config.BookingConfig
	db              *gorm.DB
}

// NewBookingFlow creates a new booking flow instance
func NewBookingFlow(
	leadRepo repository.LeadRepository,
	bookingRepo repository.BookingRepository,
	calendarService services.CalendarService,
	bookingConfig *config.BookingConfig,
	db *gorm.DB,
) BookingFlow {
	return &BookingFlowImpl{
		leadRepo:        leadRepo,
		bookingRepo:     bookingRepo,
		calendarService: calendarService,
		bookingConfig:   bookingConfig,
		db:              db,
	}
}

// CreateBooking validates the requested slot and claims it. The application
// layer checks keep garbage out; the unique index on the slot columns is what
// actually decides ties between concurrent claimants.
func (s *BookingFlowImpl) CreateBooking(ctx context.Context, req *dto.CreateBookingRequest, metadata *ClientMetadata) (*dto.CreateBookingResponse, error) {
	leadUUID, err := uuid.Parse(req.LeadUUID)
	if err != nil {
		return nil, NewBusinessError("BOOKING_FAILED", "Booking failed", ErrLeadNotFound)
	}

	lead, err := s.leadRepo.ByUUID(ctx, leadUUID)
	if err != nil {
		return nil, NewBusinessError("BOOKING_FAILED", "Booking failed", err)
	}
	if lead == nil {
		return nil, NewBusinessError("BOOKING_FAILED", "Booking failed", ErrLeadNotFound)
	}
	if !lead.IsPhoneVerified() {
		return nil, NewBusinessError("BOOKING_FAILED", "Booking failed", ErrPhoneNotVerified)
	}

	loc, err := time.LoadLocation(req.Timezone)
	if err != nil {
		return nil, NewBusinessError("BOOKING_FAILED", "Booking failed", ErrInvalidTimezone)
	}

	start, end, err := parseSlotTimes(req.SelectedStart, req.SelectedEnd)
	if err != nil {
		return nil, NewBusinessError("BOOKING_FAILED", "Booking failed", err)
	}

	if err := validateSlot(start, end, loc, utils.UTCNow()); err != nil {
		return nil, NewBusinessError("BOOKING_FAILED", "Booking failed", err)
	}

	booking := &models.Booking{
		UUID:            uuid.New(),
		LeadID:          lead.ID,
		SelectedStart:   start,
		SelectedEnd:     end,
		BookingTimezone: req.Timezone,
		SlotLabel:       start.In(loc).Format("Mon, Jan 2 at 3:04 PM"),
		CreatedAt:       utils.UTCNow(),
	}
	meetURL := fmt.Sprintf("%s/%s", s.bookingConfig.MeetURLBase, booking.UUID.String())
	booking.MeetURL = &meetURL

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		return s.bookingRepo.SaveSlot(txCtx, booking)
	})
	if err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			return nil, NewBusinessError("SLOT_CONFLICT", "Slot already booked", ErrSlotTaken)
		}
		return nil, NewBusinessError("BOOKING_FAILED", "Booking failed", err)
	}

	return &dto.CreateBookingResponse{
		Booking: ToBookingDTO(*booking, lead.UUID.String()),
	}, nil
}

// ExportICS renders the calendar invite for a confirmed booking
func (s *BookingFlowImpl) ExportICS(ctx context.Context, bookingUUID string) (string, []byte, error) {
	id, err := uuid.Parse(bookingUUID)
	if err != nil {
		return "", nil, NewBusinessError("ICS_EXPORT_FAILED", "Calendar export failed", ErrBookingNotFound)
	}

	booking, err := s.bookingRepo.ByUUID(ctx, id)
	if err != nil {
		return "", nil, NewBusinessError("ICS_EXPORT_FAILED", "Calendar export failed", err)
	}
	if booking == nil {
		return "", nil, NewBusinessError("ICS_EXPORT_FAILED", "Calendar export failed", ErrBookingNotFound)
	}

	filename, data, err := s.calendarService.BuildInvite(booking, &booking.Lead)
	if err != nil {
		return "", nil, NewBusinessError("ICS_EXPORT_FAILED", "Calendar export failed", err)
	}

	return filename, data, nil
}

// parseSlotTimes parses the RFC 3339 slot bounds into UTC instants
func parseSlotTimes(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, ErrSlotInvalidRange
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, ErrSlotInvalidRange
	}
	return start.UTC(), end.UTC(), nil
}

// validateSlot enforces the booking rules: the slot must lie in the future,
// start and end must align to the 15-minute grid, and the whole slot must sit
// inside 08:00 to 20:00 in the booker's local time.
func validateSlot(start, end time.Time, loc *time.Location, now time.Time) error {
	if !end.After(start) {
		return ErrSlotInvalidRange
	}
	if !start.After(now) {
		return ErrSlotInPast
	}

	localStart := start.In(loc)
	localEnd := end.In(loc)

	if localStart.Minute()%int(utils.SlotAlignment.Minutes()) != 0 || localStart.Second() != 0 || localStart.Nanosecond() != 0 {
		return ErrSlotMisaligned
	}
	if localEnd.Minute()%int(utils.SlotAlignment.Minutes()) != 0 || localEnd.Second() != 0 || localEnd.Nanosecond() != 0 {
		return ErrSlotMisaligned
	}

	startMinutes := localStart.Hour()*60 + localStart.Minute()
	endMinutes := localEnd.Hour()*60 + localEnd.Minute()
	startYear, startMonth, startDay := localStart.Date()
	endYear, endMonth, endDay := localEnd.Date()
	if startYear != endYear || startMonth != endMonth || startDay != endDay {
		// a slot ending exactly at midnight is still outside business hours
		return ErrSlotOutsideHours
	}
	if startMinutes < utils.BusinessDayStartHour*60 || endMinutes > utils.BusinessDayEndHour*60 {
		return ErrSlotOutsideHours
	}

	return nil
}

package services

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leadforge/leadforge/config"
	"github.com/leadforge/leadforge/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCalendarService() CalendarService {
	return NewCalendarService(&config.BookingConfig{
		SlotMinutes:   30,
		MeetURLBase:   "https://meet.example.com/consult",
		OrganizerName: "LeadForge",
		OrganizerMail: "bookings@example.com",
	})
}

func testBookingFixture() (*models.Booking, *models.Lead) {
	meetURL := "https://meet.example.com/consult/abc123"
	booking := &models.Booking{
		UUID:            uuid.New(),
		SelectedStart:   time.Date(2024, 6, 11, 14, 0, 0, 0, time.UTC),
		SelectedEnd:     time.Date(2024, 6, 11, 14, 30, 0, 0, time.UTC),
		BookingTimezone: "America/New_York",
		MeetURL:         &meetURL,
	}
	lead := &models.Lead{
		FullName: "Jane Doe",
		Email:    "jane@example.com",
	}
	return booking, lead
}

func TestBuildInvite(t *testing.T) {
	svc := testCalendarService()
	booking, lead := testBookingFixture()

	filename, data, err := svc.BuildInvite(booking, lead)
	require.NoError(t, err)

	assert.Equal(t, "consultation-20240611-1400.ics", filename)

	content := string(data)
	assert.True(t, strings.HasPrefix(content, "BEGIN:VCALENDAR\r\n"))
	assert.True(t, strings.HasSuffix(content, "END:VCALENDAR\r\n"))

	assert.Contains(t, content, "VERSION:2.0")
	assert.Contains(t, content, "METHOD:REQUEST")
	assert.Contains(t, content, "BEGIN:VEVENT")
	assert.Contains(t, content, "UID:"+booking.UUID.String()+"@leadforge")
	assert.Contains(t, content, "DTSTART:20240611T140000Z")
	assert.Contains(t, content, "DTEND:20240611T143000Z")
	assert.Contains(t, content, "ORGANIZER;CN=LeadForge:mailto:bookings@example.com")
	assert.Contains(t, content, "ATTENDEE;CN=Jane Doe;RSVP=TRUE:mailto:jane@example.com")
	assert.Contains(t, content, "URL:https://meet.example.com/consult/abc123")
	assert.Contains(t, content, "STATUS:CONFIRMED")

	// Reminder fires one hour before the slot
	assert.Contains(t, content, "BEGIN:VALARM")
	assert.Contains(t, content, "TRIGGER:-PT1H")
	assert.Contains(t, content, "END:VALARM")
}

func TestBuildInviteEscapesText(t *testing.T) {
	svc := testCalendarService()
	booking, lead := testBookingFixture()
	lead.FullName = "Doe, Jane; of Acme\\Co"

	_, data, err := svc.BuildInvite(booking, lead)
	require.NoError(t, err)

	assert.Contains(t, string(data), `Doe\, Jane\; of Acme\\Co`)
}

func TestBuildInviteFoldsLongLines(t *testing.T) {
	svc := testCalendarService()
	booking, lead := testBookingFixture()
	lead.FullName = strings.Repeat("Verylongname ", 20)

	_, data, err := svc.BuildInvite(booking, lead)
	require.NoError(t, err)

	// RFC 5545 caps content lines at 75 octets plus the folding space
	for _, line := range strings.Split(string(data), "\r\n") {
		assert.LessOrEqual(t, len(line), 76, "line exceeds fold limit: %q", line)
	}
}

func TestBuildInviteWithoutMeetURL(t *testing.T) {
	svc := testCalendarService()
	booking, lead := testBookingFixture()
	booking.MeetURL = nil

	_, data, err := svc.BuildInvite(booking, lead)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "URL:")
}

func TestBuildInviteRequiresBookingAndLead(t *testing.T) {
	svc := testCalendarService()
	booking, lead := testBookingFixture()

	_, _, err := svc.BuildInvite(nil, lead)
	assert.Error(t, err)

	_, _, err = svc.BuildInvite(booking, nil)
	assert.Error(t, err)
}

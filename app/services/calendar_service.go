package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/leadforge/leadforge/config"
	"github.com/leadforge/leadforge/models"
)

// CalendarService builds iCalendar invites for confirmed bookings so leads
// can add the consultation to their own calendar.
type CalendarService interface {
	BuildInvite(booking *models.Booking, lead *models.Lead) (filename string, data []byte, err error)
}

// CalendarServiceImpl implements CalendarService
type CalendarServiceImpl struct {
	config *config.BookingConfig
}

// NewCalendarService creates a new calendar service instance
func NewCalendarService(cfg *config.BookingConfig) CalendarService {
	return &CalendarServiceImpl{config: cfg}
}

const icsTimeLayout = "20060102T150405Z"

// BuildInvite renders an RFC 5545 VCALENDAR with a single VEVENT and a
// reminder one hour before the slot.
func (s *CalendarServiceImpl) BuildInvite(booking *models.Booking, lead *models.Lead) (string, []byte, error) {
	if booking == nil || lead == nil {
		return "", nil, fmt.Errorf("booking and lead are required")
	}

	summary := fmt.Sprintf("Consultation with %s", s.config.OrganizerName)
	description := fmt.Sprintf("Marketing consultation for %s.", lead.FullName)
	if booking.MeetURL != nil && *booking.MeetURL != "" {
		description += fmt.Sprintf(" Join: %s", *booking.MeetURL)
	}

	var b strings.Builder
	writeICSLine(&b, "BEGIN:VCALENDAR")
	writeICSLine(&b, "VERSION:2.0")
	writeICSLine(&b, "PRODID:-//LeadForge//Bookings//EN")
	writeICSLine(&b, "CALSCALE:GREGORIAN")
	writeICSLine(&b, "METHOD:REQUEST")
	writeICSLine(&b, "BEGIN:VEVENT")
	writeICSLine(&b, "UID:"+booking.UUID.String()+"@leadforge")
	writeICSLine(&b, "DTSTAMP:"+time.Now().UTC().Format(icsTimeLayout))
	writeICSLine(&b, "DTSTART:"+booking.SelectedStart.UTC().Format(icsTimeLayout))
	writeICSLine(&b, "DTEND:"+booking.SelectedEnd.UTC().Format(icsTimeLayout))
	writeICSLine(&b, "SUMMARY:"+escapeICSText(summary))
	writeICSLine(&b, "DESCRIPTION:"+escapeICSText(description))
	writeICSLine(&b, fmt.Sprintf("ORGANIZER;CN=%s:mailto:%s", escapeICSText(s.config.OrganizerName), s.config.OrganizerMail))
	writeICSLine(&b, fmt.Sprintf("ATTENDEE;CN=%s;RSVP=TRUE:mailto:%s", escapeICSText(lead.FullName), lead.Email))
	if booking.MeetURL != nil && *booking.MeetURL != "" {
		writeICSLine(&b, "URL:"+*booking.MeetURL)
	}
	writeICSLine(&b, "STATUS:CONFIRMED")
	writeICSLine(&b, "BEGIN:VALARM")
	writeICSLine(&b, "ACTION:DISPLAY")
	writeICSLine(&b, "DESCRIPTION:"+escapeICSText(summary))
	writeICSLine(&b, "TRIGGER:-PT1H")
	writeICSLine(&b, "END:VALARM")
	writeICSLine(&b, "END:VEVENT")
	writeICSLine(&b, "END:VCALENDAR")

	filename := fmt.Sprintf("consultation-%s.ics", booking.SelectedStart.UTC().Format("20060102-1504"))
	return filename, []byte(b.String()), nil
}

// writeICSLine appends a content line with RFC 5545 CRLF termination, folding
// lines longer than 75 octets
func writeICSLine(b *strings.Builder, line string) {
	const maxLen = 75
	for len(line) > maxLen {
		b.WriteString(line[:maxLen])
		b.WriteString("\r\n ")
		line = line[maxLen:]
	}
	b.WriteString(line)
	b.WriteString("\r\n")
}

// escapeICSText escapes commas, semicolons, backslashes and newlines per RFC 5545
func escapeICSText(s string) string {
	r := strings.NewReplacer(
		"\\", "\\\\",
		";", "\\;",
		",", "\\,",
		"\r\n", "\\n",
		"\n", "\\n",
	)
	return r.Replace(s)
}

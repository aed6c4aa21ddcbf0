package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leadforge/leadforge/app/dto"
	"github.com/leadforge/leadforge/app/services"
	"github.com/leadforge/leadforge/config"
	"github.com/leadforge/leadforge/repository"
	testingutil "github.com/leadforge/leadforge/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSlot(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// America/New_York is UTC-4 in June
	tests := []struct {
		name     string
		start    time.Time
		end      time.Time
		loc      *time.Location
		expected error
	}{
		{
			name:  "valid mid morning slot",
			start: time.Date(2024, 6, 11, 14, 0, 0, 0, time.UTC), // 10:00 local
			end:   time.Date(2024, 6, 11, 14, 30, 0, 0, time.UTC),
			loc:   newYork,
		},
		{
			name:  "slot starting exactly at opening",
			start: time.Date(2024, 6, 11, 12, 0, 0, 0, time.UTC), // 08:00 local
			end:   time.Date(2024, 6, 11, 12, 30, 0, 0, time.UTC),
			loc:   newYork,
		},
		{
			name:  "slot ending exactly at closing",
			start: time.Date(2024, 6, 11, 23, 30, 0, 0, time.UTC), // 19:30 local
			end:   time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC),   // 20:00 local
			loc:   newYork,
		},
		{
			name:     "end before start",
			start:    time.Date(2024, 6, 11, 14, 30, 0, 0, time.UTC),
			end:      time.Date(2024, 6, 11, 14, 0, 0, 0, time.UTC),
			loc:      newYork,
			expected: ErrSlotInvalidRange,
		},
		{
			name:     "zero length slot",
			start:    time.Date(2024, 6, 11, 14, 0, 0, 0, time.UTC),
			end:      time.Date(2024, 6, 11, 14, 0, 0, 0, time.UTC),
			loc:      newYork,
			expected: ErrSlotInvalidRange,
		},
		{
			name:     "slot in the past",
			start:    time.Date(2024, 6, 9, 14, 0, 0, 0, time.UTC),
			end:      time.Date(2024, 6, 9, 14, 30, 0, 0, time.UTC),
			loc:      newYork,
			expected: ErrSlotInPast,
		},
		{
			name:     "start off the quarter hour grid",
			start:    time.Date(2024, 6, 11, 14, 5, 0, 0, time.UTC),
			end:      time.Date(2024, 6, 11, 14, 35, 0, 0, time.UTC),
			loc:      newYork,
			expected: ErrSlotMisaligned,
		},
		{
			name:     "start with stray seconds",
			start:    time.Date(2024, 6, 11, 14, 0, 30, 0, time.UTC),
			end:      time.Date(2024, 6, 11, 14, 30, 0, 0, time.UTC),
			loc:      newYork,
			expected: ErrSlotMisaligned,
		},
		{
			name:     "end off the quarter hour grid",
			start:    time.Date(2024, 6, 11, 14, 0, 0, 0, time.UTC),
			end:      time.Date(2024, 6, 11, 14, 20, 0, 0, time.UTC),
			loc:      newYork,
			expected: ErrSlotMisaligned,
		},
		{
			name:     "before local business hours",
			start:    time.Date(2024, 6, 11, 11, 0, 0, 0, time.UTC), // 07:00 local
			end:      time.Date(2024, 6, 11, 11, 30, 0, 0, time.UTC),
			loc:      newYork,
			expected: ErrSlotOutsideHours,
		},
		{
			name:     "running past local closing",
			start:    time.Date(2024, 6, 11, 23, 45, 0, 0, time.UTC), // 19:45 local
			end:      time.Date(2024, 6, 12, 0, 15, 0, 0, time.UTC),  // 20:15 local
			loc:      newYork,
			expected: ErrSlotOutsideHours,
		},
		{
			name:     "spanning a whole month on the same day of month",
			start:    time.Date(2024, 7, 5, 8, 0, 0, 0, time.UTC),
			end:      time.Date(2024, 8, 5, 19, 0, 0, 0, time.UTC),
			loc:      time.UTC,
			expected: ErrSlotOutsideHours,
		},
		{
			name:     "crossing local midnight",
			start:    time.Date(2024, 6, 11, 23, 45, 0, 0, time.UTC),
			end:      time.Date(2024, 6, 12, 0, 15, 0, 0, time.UTC),
			loc:      time.UTC,
			expected: ErrSlotOutsideHours,
		},
		{
			name:  "same instants are valid in a timezone where they fall in hours",
			start: time.Date(2024, 6, 11, 23, 45, 0, 0, time.UTC), // 16:45 in Los Angeles
			end:   time.Date(2024, 6, 12, 0, 15, 0, 0, time.UTC),  // 17:15 in Los Angeles
			loc:   mustLoadLocation(t, "America/Los_Angeles"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSlot(tt.start, tt.end, tt.loc, now)
			if tt.expected == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.expected)
			}
		})
	}
}

func mustLoadLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestParseSlotTimes(t *testing.T) {
	start, end, err := parseSlotTimes("2024-06-11T10:00:00-04:00", "2024-06-11T10:30:00-04:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 11, 14, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 6, 11, 14, 30, 0, 0, time.UTC), end)

	_, _, err = parseSlotTimes("tomorrow at noon", "2024-06-11T10:30:00-04:00")
	assert.ErrorIs(t, err, ErrSlotInvalidRange)

	_, _, err = parseSlotTimes("2024-06-11T10:00:00-04:00", "later")
	assert.ErrorIs(t, err, ErrSlotInvalidRange)
}

func testBookingConfig() *config.BookingConfig {
	return &config.BookingConfig{
		SlotMinutes:   30,
		MeetURLBase:   "https://meet.example.com/consult",
		OrganizerName: "LeadForge",
		OrganizerMail: "bookings@example.com",
	}
}

func newBookingFlowForTest(testDB *testingutil.TestDB) BookingFlow {
	cfg := testBookingConfig()
	return NewBookingFlow(
		repository.NewLeadRepository(testDB.DB),
		repository.NewBookingRepository(testDB.DB),
		services.NewCalendarService(cfg),
		cfg,
		testDB.DB,
	)
}

// futureSlot returns an aligned in-hours slot tomorrow at 14:00 UTC
func futureSlot() (string, string) {
	d := time.Now().UTC().AddDate(0, 0, 1)
	start := time.Date(d.Year(), d.Month(), d.Day(), 14, 0, 0, 0, time.UTC)
	return start.Format(time.RFC3339), start.Add(30 * time.Minute).Format(time.RFC3339)
}

func TestCreateBookingAndSlotConflict(t *testing.T) {
	testDB, fixtures := setupFlowTest(t)

	flow := newBookingFlowForTest(testDB)
	metadata := NewClientMetadata("198.51.100.9", "go-test")

	lead, err := fixtures.CreateVerifiedLead()
	require.NoError(t, err)

	start, end := futureSlot()
	resp, err := flow.CreateBooking(context.Background(), &dto.CreateBookingRequest{
		LeadUUID:      lead.UUID.String(),
		SelectedStart: start,
		SelectedEnd:   end,
		Timezone:      "UTC",
	}, metadata)
	require.NoError(t, err)
	assert.Equal(t, lead.UUID.String(), resp.Booking.LeadUUID)
	assert.Equal(t, "UTC", resp.Booking.Timezone)
	assert.NotEmpty(t, resp.Booking.SlotLabel)
	require.NotNil(t, resp.Booking.MeetURL)
	assert.Contains(t, *resp.Booking.MeetURL, "https://meet.example.com/consult/")

	// A second lead claiming the identical slot loses to the unique index
	rival, err := fixtures.CreateVerifiedLead()
	require.NoError(t, err)

	_, err = flow.CreateBooking(context.Background(), &dto.CreateBookingRequest{
		LeadUUID:      rival.UUID.String(),
		SelectedStart: start,
		SelectedEnd:   end,
		Timezone:      "UTC",
	}, metadata)
	require.Error(t, err)
	assert.True(t, IsSlotTaken(err))

	var bizErr *BusinessError
	require.ErrorAs(t, err, &bizErr)
	assert.Equal(t, "SLOT_CONFLICT", bizErr.Code)
}

func TestCreateBookingRequiresVerifiedPhone(t *testing.T) {
	testDB, fixtures := setupFlowTest(t)

	flow := newBookingFlowForTest(testDB)
	metadata := NewClientMetadata("198.51.100.9", "go-test")

	lead, err := fixtures.CreateTestLead()
	require.NoError(t, err)

	start, end := futureSlot()
	_, err = flow.CreateBooking(context.Background(), &dto.CreateBookingRequest{
		LeadUUID:      lead.UUID.String(),
		SelectedStart: start,
		SelectedEnd:   end,
		Timezone:      "UTC",
	}, metadata)
	require.Error(t, err)
	assert.True(t, IsPhoneNotVerified(err))
}

func TestCreateBookingRejectsBadInput(t *testing.T) {
	testDB, fixtures := setupFlowTest(t)

	flow := newBookingFlowForTest(testDB)
	metadata := NewClientMetadata("198.51.100.9", "go-test")

	lead, err := fixtures.CreateVerifiedLead()
	require.NoError(t, err)

	start, end := futureSlot()

	t.Run("UnknownLead", func(t *testing.T) {
		_, err := flow.CreateBooking(context.Background(), &dto.CreateBookingRequest{
			LeadUUID:      uuid.New().String(),
			SelectedStart: start,
			SelectedEnd:   end,
			Timezone:      "UTC",
		}, metadata)
		require.Error(t, err)
		assert.True(t, IsLeadNotFound(err))
	})

	t.Run("InvalidTimezone", func(t *testing.T) {
		_, err := flow.CreateBooking(context.Background(), &dto.CreateBookingRequest{
			LeadUUID:      lead.UUID.String(),
			SelectedStart: start,
			SelectedEnd:   end,
			Timezone:      "Mars/Olympus_Mons",
		}, metadata)
		require.Error(t, err)
		assert.True(t, IsInvalidTimezone(err))
	})

	t.Run("SlotInPast", func(t *testing.T) {
		past := time.Now().UTC().AddDate(0, 0, -1).Truncate(time.Hour)
		_, err := flow.CreateBooking(context.Background(), &dto.CreateBookingRequest{
			LeadUUID:      lead.UUID.String(),
			SelectedStart: past.Format(time.RFC3339),
			SelectedEnd:   past.Add(30 * time.Minute).Format(time.RFC3339),
			Timezone:      "UTC",
		}, metadata)
		require.Error(t, err)
		assert.True(t, IsSlotInPast(err))
	})
}

func TestExportICS(t *testing.T) {
	testDB, fixtures := setupFlowTest(t)

	flow := newBookingFlowForTest(testDB)
	metadata := NewClientMetadata("198.51.100.9", "go-test")

	lead, err := fixtures.CreateVerifiedLead()
	require.NoError(t, err)

	start, end := futureSlot()
	resp, err := flow.CreateBooking(context.Background(), &dto.CreateBookingRequest{
		LeadUUID:      lead.UUID.String(),
		SelectedStart: start,
		SelectedEnd:   end,
		Timezone:      "UTC",
	}, metadata)
	require.NoError(t, err)

	filename, data, err := flow.ExportICS(context.Background(), resp.Booking.UUID)
	require.NoError(t, err)
	assert.Contains(t, filename, ".ics")
	assert.Contains(t, string(data), "BEGIN:VCALENDAR")
	assert.Contains(t, string(data), "UID:"+resp.Booking.UUID+"@leadforge")

	_, _, err = flow.ExportICS(context.Background(), uuid.New().String())
	require.Error(t, err)
	assert.True(t, IsBookingNotFound(err))

	_, _, err = flow.ExportICS(context.Background(), "not-a-uuid")
	require.Error(t, err)
	assert.True(t, IsBookingNotFound(err))
}

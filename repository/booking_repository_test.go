package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leadforge/leadforge/models"
	testingutil "github.com/leadforge/leadforge/testing"
	"github.com/leadforge/leadforge/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepoTest(t *testing.T) (*testingutil.TestDB, *testingutil.TestFixtures) {
	t.Helper()

	testDB, err := testingutil.SetupTestDB()
	if err != nil {
		t.Skipf("test database unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := testDB.TeardownTestDB(); err != nil {
			t.Logf("failed to drop test database: %v", err)
		}
	})

	return testDB, testingutil.NewTestFixtures(testDB)
}

func futureAlignedStart() time.Time {
	d := time.Now().UTC().AddDate(0, 0, 1)
	return time.Date(d.Year(), d.Month(), d.Day(), 15, 0, 0, 0, time.UTC)
}

func newBooking(leadID uint, start time.Time) *models.Booking {
	return &models.Booking{
		UUID:            uuid.New(),
		LeadID:          leadID,
		SelectedStart:   start,
		SelectedEnd:     start.Add(30 * time.Minute),
		BookingTimezone: "UTC",
		SlotLabel:       start.Format("Mon, Jan 2 at 3:04 PM"),
		CreatedAt:       utils.UTCNow(),
	}
}

func TestSaveSlotRejectsDuplicateSlot(t *testing.T) {
	testDB, fixtures := setupRepoTest(t)

	repo := NewBookingRepository(testDB.DB)

	first, err := fixtures.CreateVerifiedLead()
	require.NoError(t, err)
	second, err := fixtures.CreateVerifiedLead()
	require.NoError(t, err)

	start := futureAlignedStart()

	require.NoError(t, repo.SaveSlot(context.Background(), newBooking(first.ID, start)))

	err = repo.SaveSlot(context.Background(), newBooking(second.ID, start))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSlotTaken)

	// A different slot still books fine
	assert.NoError(t, repo.SaveSlot(context.Background(), newBooking(second.ID, start.Add(time.Hour))))
}

func TestSaveSlotConcurrentClaimants(t *testing.T) {
	testDB, fixtures := setupRepoTest(t)

	repo := NewBookingRepository(testDB.DB)
	start := futureAlignedStart()

	const claimants = 6
	leads := make([]*models.Lead, claimants)
	for i := range leads {
		lead, err := fixtures.CreateVerifiedLead()
		require.NoError(t, err)
		leads[i] = lead
	}

	var wg sync.WaitGroup
	results := make(chan error, claimants)

	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func(leadID uint) {
			defer wg.Done()
			results <- repo.SaveSlot(context.Background(), newBooking(leadID, start))
		}(leads[i].ID)
	}
	wg.Wait()
	close(results)

	winners := 0
	for err := range results {
		if err == nil {
			winners++
		} else {
			assert.True(t, errors.Is(err, ErrSlotTaken))
		}
	}
	assert.Equal(t, 1, winners, "exactly one claimant may take the slot")

	count, err := repo.Count(context.Background(), models.BookingFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestBookingByUUIDPreloadsLead(t *testing.T) {
	testDB, fixtures := setupRepoTest(t)

	repo := NewBookingRepository(testDB.DB)

	lead, err := fixtures.CreateVerifiedLead()
	require.NoError(t, err)

	booking := newBooking(lead.ID, futureAlignedStart())
	require.NoError(t, repo.SaveSlot(context.Background(), booking))

	found, err := repo.ByUUID(context.Background(), booking.UUID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, lead.Email, found.Lead.Email)

	missing, err := repo.ByUUID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

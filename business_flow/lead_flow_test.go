package businessflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/leadforge/leadforge/app/dto"
	"github.com/leadforge/leadforge/app/services"
	"github.com/leadforge/leadforge/models"
	"github.com/leadforge/leadforge/repository"
	testingutil "github.com/leadforge/leadforge/testing"
	"github.com/leadforge/leadforge/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupFlowTest provisions a throwaway database, skipping when PostgreSQL is
// not reachable
func setupFlowTest(t *testing.T) (*testingutil.TestDB, *testingutil.TestFixtures) {
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

// recordingAbuseLogger captures events synchronously so tests can assert on
// them without racing a worker goroutine
type recordingAbuseLogger struct {
	mu     sync.Mutex
	events []*models.SuspiciousEvent
}

func (l *recordingAbuseLogger) Log(event *models.SuspiciousEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *recordingAbuseLogger) Close() {}

func (l *recordingAbuseLogger) Events() []*models.SuspiciousEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*models.SuspiciousEvent, len(l.events))
	copy(out, l.events)
	return out
}

func (l *recordingAbuseLogger) CountByReason(reason string) int {
	count := 0
	for _, e := range l.Events() {
		if e.ReasonCode == reason {
			count++
		}
	}
	return count
}

func newLeadFlowForTest(testDB *testingutil.TestDB, abuseLogger services.AbuseLogger) LeadFlow {
	return NewLeadFlow(
		repository.NewLeadRepository(testDB.DB),
		repository.NewPhoneVerificationRepository(testDB.DB),
		repository.NewRetrievalTokenRepository(testDB.DB),
		services.NewMockSMSService(),
		abuseLogger,
		testDB.DB,
	)
}

func validCaptureRequest() *dto.CaptureLeadRequest {
	return &dto.CaptureLeadRequest{
		FullName:           "Jane Doe",
		Email:              "jane@example.com",
		Phone:              "+14155550123",
		Country:            "US",
		MonthlyBudgetRange: Budget5KTo10K,
		Timeline:           TimelineImmediate,
		DecisionMaker:      true,
		ResponseWithin5Min: true,
		FormRenderedAt:     time.Now().Add(-10 * time.Second).UnixMilli(),
	}
}

func TestCaptureLead(t *testing.T) {
	testDB, _ := setupFlowTest(t)

	abuseLogger := &recordingAbuseLogger{}
	flow := newLeadFlowForTest(testDB, abuseLogger)
	metadata := NewClientMetadata("198.51.100.9", "go-test")

	resp, err := flow.CaptureLead(context.Background(), validCaptureRequest(), metadata)
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.Equal(t, 70, resp.Lead.Score)
	assert.Equal(t, models.LeadGradeB, resp.Lead.Grade)
	assert.Equal(t, models.PackageGrowth, resp.Lead.RecommendedPackage)
	assert.Equal(t, models.LeadStatusNew, resp.Lead.Status)
	assert.False(t, resp.Lead.PhoneVerified)

	assert.NotEmpty(t, resp.RetrievalToken)
	assert.Equal(t, int(utils.RetrievalTokenTTL.Seconds()), resp.TokenExpiresIn)
	assert.NotEmpty(t, resp.VerificationUUID)
	assert.True(t, resp.OTPSent)
	assert.Equal(t, utils.OTPExpirySeconds, resp.OTPExpiresIn)

	// The stored lead carries hashes, never the raw IP or user agent
	leadRepo := repository.NewLeadRepository(testDB.DB)
	lead, err := leadRepo.ByEmail(context.Background(), "jane@example.com")
	require.NoError(t, err)
	require.NotNil(t, lead)
	require.NotNil(t, lead.IPHash)
	assert.Equal(t, utils.HashSHA256("198.51.100.9"), *lead.IPHash)

	// A pending OTP challenge was created alongside the lead
	verificationRepo := repository.NewPhoneVerificationRepository(testDB.DB)
	verification, err := verificationRepo.LatestActiveByLead(context.Background(), lead.ID)
	require.NoError(t, err)
	require.NotNil(t, verification)
	assert.Equal(t, models.VerificationStatusPending, verification.Status)
	assert.Equal(t, utils.OTPMaxAttempts, verification.MaxAttempts)
	assert.Len(t, verification.OTPHash, 64)

	assert.Empty(t, abuseLogger.Events())
}

func TestCaptureLeadAbuseSignals(t *testing.T) {
	metadata := NewClientMetadata("198.51.100.9", "go-test")

	t.Run("HoneypotFilled", func(t *testing.T) {
		abuseLogger := &recordingAbuseLogger{}
		flow := NewLeadFlow(nil, nil, nil, services.NewMockSMSService(), abuseLogger, nil)

		req := validCaptureRequest()
		req.Website = "http://spam.example.com"

		_, err := flow.CaptureLead(context.Background(), req, metadata)
		require.Error(t, err)
		assert.True(t, IsHoneypotTriggered(err))
		assert.Equal(t, 1, abuseLogger.CountByReason(models.ReasonHoneypotTriggered))
	})

	t.Run("FilledTooFast", func(t *testing.T) {
		abuseLogger := &recordingAbuseLogger{}
		flow := NewLeadFlow(nil, nil, nil, services.NewMockSMSService(), abuseLogger, nil)

		req := validCaptureRequest()
		req.FormRenderedAt = time.Now().UnixMilli()

		_, err := flow.CaptureLead(context.Background(), req, metadata)
		require.Error(t, err)
		assert.True(t, IsFormFillTooFast(err))
		assert.Equal(t, 1, abuseLogger.CountByReason(models.ReasonFormFillTooFast))
	})

	t.Run("StaleSubmission", func(t *testing.T) {
		abuseLogger := &recordingAbuseLogger{}
		flow := NewLeadFlow(nil, nil, nil, services.NewMockSMSService(), abuseLogger, nil)

		req := validCaptureRequest()
		req.FormRenderedAt = time.Now().Add(-11 * time.Minute).UnixMilli()

		_, err := flow.CaptureLead(context.Background(), req, metadata)
		require.Error(t, err)
		assert.True(t, IsStaleFormSubmission(err))

		// A stale form is a user leaving a tab open, not a bot signal
		assert.Empty(t, abuseLogger.Events())
	})
}

func TestRetrieveLeadSingleUse(t *testing.T) {
	testDB, fixtures := setupFlowTest(t)

	abuseLogger := &recordingAbuseLogger{}
	flow := newLeadFlowForTest(testDB, abuseLogger)
	metadata := NewClientMetadata("198.51.100.9", "go-test")

	lead, err := fixtures.CreateTestLead()
	require.NoError(t, err)

	_, rawToken, err := fixtures.CreateTestRetrievalToken(lead)
	require.NoError(t, err)

	resp, err := flow.RetrieveLead(context.Background(), rawToken, metadata)
	require.NoError(t, err)
	assert.Equal(t, lead.UUID.String(), resp.Lead.UUID)
	assert.Equal(t, lead.Email, resp.Lead.Email)

	// The same token never works twice, and the replay is logged
	_, err = flow.RetrieveLead(context.Background(), rawToken, metadata)
	require.Error(t, err)
	assert.True(t, IsRetrievalTokenInvalid(err))
	assert.Equal(t, 1, abuseLogger.CountByReason(models.ReasonTokenReplay))
}

func TestRetrieveLeadConcurrentConsumption(t *testing.T) {
	testDB, fixtures := setupFlowTest(t)

	flow := newLeadFlowForTest(testDB, &recordingAbuseLogger{})
	metadata := NewClientMetadata("198.51.100.9", "go-test")

	lead, err := fixtures.CreateTestLead()
	require.NoError(t, err)

	_, rawToken, err := fixtures.CreateTestRetrievalToken(lead)
	require.NoError(t, err)

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := flow.RetrieveLead(context.Background(), rawToken, metadata)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
		} else {
			assert.True(t, IsRetrievalTokenInvalid(err))
		}
	}
	assert.Equal(t, 1, successes, "exactly one concurrent consumer may win")
}

func TestRetrieveLeadRejectsExpiredAndUnknownTokens(t *testing.T) {
	testDB, fixtures := setupFlowTest(t)

	abuseLogger := &recordingAbuseLogger{}
	flow := newLeadFlowForTest(testDB, abuseLogger)
	metadata := NewClientMetadata("198.51.100.9", "go-test")

	lead, err := fixtures.CreateTestLead()
	require.NoError(t, err)

	raw, hash, err := utils.GenerateRetrievalToken()
	require.NoError(t, err)
	expired := &models.RetrievalToken{
		TokenHash: hash,
		LeadID:    lead.ID,
		ExpiresAt: utils.UTCNowAdd(-time.Minute),
		CreatedAt: utils.UTCNowAdd(-16 * time.Minute),
	}
	require.NoError(t, testDB.DB.Create(expired).Error)

	_, err = flow.RetrieveLead(context.Background(), raw, metadata)
	require.Error(t, err)
	assert.True(t, IsRetrievalTokenInvalid(err))

	_, err = flow.RetrieveLead(context.Background(), "not-a-real-token", metadata)
	require.Error(t, err)
	assert.True(t, IsRetrievalTokenInvalid(err))

	_, err = flow.RetrieveLead(context.Background(), "", metadata)
	require.Error(t, err)
	assert.True(t, IsRetrievalTokenInvalid(err))

	// None of these tokens were ever spent, so nothing counts as a replay
	assert.Equal(t, 0, abuseLogger.CountByReason(models.ReasonTokenReplay))
}

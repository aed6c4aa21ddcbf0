package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/leadforge/leadforge/app/dto"
	"github.com/leadforge/leadforge/app/services"
	"github.com/leadforge/leadforge/models"
	"github.com/leadforge/leadforge/repository"
	testingutil "github.com/leadforge/leadforge/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCaptchaService accepts or rejects every answer, so login tests can
// exercise the credential path without solving image challenges
type stubCaptchaService struct {
	pass bool
}

func (s *stubCaptchaService) GenerateRotate(ctx context.Context) (*services.RotateChallenge, error) {
	return &services.RotateChallenge{
		ID:                "challenge-1",
		MasterImageBase64: "data:image/png;base64,master",
		ThumbImageBase64:  "data:image/png;base64,thumb",
	}, nil
}

func (s *stubCaptchaService) VerifyRotate(ctx context.Context, challengeID string, userAngle float64) bool {
	return s.pass
}

func newAdminFlowForTest(testDB *testingutil.TestDB, captcha services.CaptchaService) AdminFlow {
	tokenService, err := services.NewTokenService(
		15*time.Minute,
		"leadforge-test",
		"leadforge-admin",
		false,
		"",
		"",
		"test-secret-key-for-jwt-signing-32-chars",
	)
	if err != nil {
		panic(err)
	}

	return NewAdminFlow(
		repository.NewAdminRepository(testDB.DB),
		repository.NewLeadRepository(testDB.DB),
		repository.NewSuspiciousEventRepository(testDB.DB),
		tokenService,
		captcha,
	)
}

func adminLoginRequest(username, password string) *dto.AdminLoginRequest {
	return &dto.AdminLoginRequest{
		ChallengeID: "challenge-1",
		Username:    username,
		Password:    password,
		UserAngle:   127,
	}
}

func TestAdminLogin(t *testing.T) {
	testDB, fixtures := setupFlowTest(t)

	flow := newAdminFlowForTest(testDB, &stubCaptchaService{pass: true})
	metadata := NewClientMetadata("198.51.100.9", "go-test")

	admin, err := fixtures.CreateTestAdmin("dashboard", "correct-horse-battery")
	require.NoError(t, err)

	resp, err := flow.Login(context.Background(), adminLoginRequest("dashboard", "correct-horse-battery"), metadata)
	require.NoError(t, err)
	assert.Equal(t, admin.Username, resp.Admin.Username)
	assert.NotEmpty(t, resp.Session.AccessToken)
	assert.Equal(t, "Bearer", resp.Session.TokenType)
	assert.NotEmpty(t, resp.Admin.LastLoginAt)
}

func TestAdminLoginFailures(t *testing.T) {
	testDB, fixtures := setupFlowTest(t)

	metadata := NewClientMetadata("198.51.100.9", "go-test")

	_, err := fixtures.CreateTestAdmin("dashboard", "correct-horse-battery")
	require.NoError(t, err)

	t.Run("FailedCaptcha", func(t *testing.T) {
		flow := newAdminFlowForTest(testDB, &stubCaptchaService{pass: false})
		_, err := flow.Login(context.Background(), adminLoginRequest("dashboard", "correct-horse-battery"), metadata)
		require.Error(t, err)
		assert.True(t, IsCaptchaFailed(err))
	})

	t.Run("UnknownUsername", func(t *testing.T) {
		flow := newAdminFlowForTest(testDB, &stubCaptchaService{pass: true})
		_, err := flow.Login(context.Background(), adminLoginRequest("nobody", "correct-horse-battery"), metadata)
		require.Error(t, err)
		assert.True(t, IsAdminNotFound(err))
	})

	t.Run("WrongPassword", func(t *testing.T) {
		flow := newAdminFlowForTest(testDB, &stubCaptchaService{pass: true})
		_, err := flow.Login(context.Background(), adminLoginRequest("dashboard", "wrong-password-entirely"), metadata)
		require.Error(t, err)
		assert.True(t, IsIncorrectPassword(err))
	})

	t.Run("InactiveAccount", func(t *testing.T) {
		require.NoError(t, testDB.DB.Model(&models.Admin{}).
			Where("username = ?", "dashboard").
			Update("is_active", false).Error)

		flow := newAdminFlowForTest(testDB, &stubCaptchaService{pass: true})
		_, err := flow.Login(context.Background(), adminLoginRequest("dashboard", "correct-horse-battery"), metadata)
		require.Error(t, err)
		assert.True(t, IsAdminInactive(err))
	})
}

func TestAdminListLeads(t *testing.T) {
	testDB, fixtures := setupFlowTest(t)

	flow := newAdminFlowForTest(testDB, &stubCaptchaService{pass: true})

	for i := 0; i < 3; i++ {
		_, err := fixtures.CreateTestLead()
		require.NoError(t, err)
	}
	verified, err := fixtures.CreateVerifiedLead()
	require.NoError(t, err)

	resp, err := flow.ListLeads(context.Background(), &dto.ListLeadsRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), resp.Total)
	assert.Len(t, resp.Items, 4)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 20, resp.PageSize)
	assert.Equal(t, 1, resp.TotalPages)

	// Filter down to the verified lead
	phoneVerified := true
	filtered, err := flow.ListLeads(context.Background(), &dto.ListLeadsRequest{PhoneVerified: &phoneVerified})
	require.NoError(t, err)
	require.Len(t, filtered.Items, 1)
	assert.Equal(t, verified.UUID.String(), filtered.Items[0].UUID)

	// Pagination
	paged, err := flow.ListLeads(context.Background(), &dto.ListLeadsRequest{Page: 2, PageSize: 3})
	require.NoError(t, err)
	assert.Len(t, paged.Items, 1)
	assert.Equal(t, 2, paged.TotalPages)

	_, err = flow.ListLeads(context.Background(), &dto.ListLeadsRequest{Page: -1})
	require.Error(t, err)
	assert.True(t, IsInvalidPage(err))

	_, err = flow.ListLeads(context.Background(), &dto.ListLeadsRequest{PageSize: 500})
	require.Error(t, err)
	assert.True(t, IsInvalidPageSize(err))
}

func TestAdminExportLeadsExcel(t *testing.T) {
	testDB, fixtures := setupFlowTest(t)

	flow := newAdminFlowForTest(testDB, &stubCaptchaService{pass: true})

	for i := 0; i < 2; i++ {
		_, err := fixtures.CreateTestLead()
		require.NoError(t, err)
	}

	filename, data, err := flow.ExportLeadsExcel(context.Background(), &dto.ListLeadsRequest{})
	require.NoError(t, err)
	assert.Contains(t, filename, "leads-")
	assert.Contains(t, filename, ".xlsx")

	// xlsx files are zip archives
	require.Greater(t, len(data), 4)
	assert.Equal(t, []byte{'P', 'K'}, data[:2])
}

func TestAdminListSuspiciousEvents(t *testing.T) {
	testDB, _ := setupFlowTest(t)

	flow := newAdminFlowForTest(testDB, &stubCaptchaService{pass: true})

	events := []*models.SuspiciousEvent{
		{ReasonCode: models.ReasonHoneypotTriggered, Severity: models.SeverityMedium},
		{ReasonCode: models.ReasonOTPMaxAttempts, Severity: models.SeverityHigh},
		{ReasonCode: models.ReasonRateLimitExceeded, Severity: models.SeverityLow},
	}
	for _, event := range events {
		require.NoError(t, testDB.DB.Create(event).Error)
	}

	resp, err := flow.ListSuspiciousEvents(context.Background(), &dto.ListSuspiciousEventsRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), resp.Total)

	filtered, err := flow.ListSuspiciousEvents(context.Background(), &dto.ListSuspiciousEventsRequest{
		Severity: models.SeverityHigh,
	})
	require.NoError(t, err)
	require.Len(t, filtered.Items, 1)
	assert.Equal(t, models.ReasonOTPMaxAttempts, filtered.Items[0].ReasonCode)
}

func TestInitCaptcha(t *testing.T) {
	flow := NewAdminFlow(nil, nil, nil, nil, &stubCaptchaService{pass: true})

	resp, err := flow.InitCaptcha(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "challenge-1", resp.ChallengeID)
	assert.NotEmpty(t, resp.MasterImageBase64)
	assert.NotEmpty(t, resp.ThumbImageBase64)
}

func TestNormalizePagination(t *testing.T) {
	page, pageSize, err := normalizePagination(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, pageSize)

	page, pageSize, err = normalizePagination(3, 100)
	require.NoError(t, err)
	assert.Equal(t, 3, page)
	assert.Equal(t, 100, pageSize)

	_, _, err = normalizePagination(-1, 10)
	assert.ErrorIs(t, err, ErrInvalidPage)

	_, _, err = normalizePagination(1, 101)
	assert.ErrorIs(t, err, ErrInvalidPageSize)
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, totalPages(0, 20))
	assert.Equal(t, 1, totalPages(1, 20))
	assert.Equal(t, 1, totalPages(20, 20))
	assert.Equal(t, 2, totalPages(21, 20))
	assert.Equal(t, 0, totalPages(5, 0))
}

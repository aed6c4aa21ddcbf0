// Package testing provides test utilities and database setup for testing the lead funnel
package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/leadforge/leadforge/models"
	"github.com/leadforge/leadforge/utils"
	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestLead creates a lead with sensible defaults
func (tf *TestFixtures) CreateTestLead() (*models.Lead, error) {
	lead := &models.Lead{
		UUID:               uuid.New(),
		FullName:           "Test Lead",
		Email:              fmt.Sprintf("lead%d@example.com", rand.Intn(1000000)),
		Phone:              fmt.Sprintf("+1415555%04d", rand.Intn(10000)),
		Country:            "US",
		MonthlyBudgetRange: "5000-9999",
		Timeline:           "immediate",
		DecisionMaker:      true,
		ResponseWithin5Min: false,
		Score:              55,
		Grade:              models.LeadGradeC,
		RecommendedPackage: models.PackageStarter,
		Status:             models.LeadStatusNew,
		CreatedAt:          utils.UTCNow(),
		UpdatedAt:          utils.UTCNow(),
	}
	if err := tf.DB.DB.Create(lead).Error; err != nil {
		return nil, fmt.Errorf("failed to create test lead: %w", err)
	}
	return lead, nil
}

// CreateVerifiedLead creates a lead whose phone is already verified
func (tf *TestFixtures) CreateVerifiedLead() (*models.Lead, error) {
	lead, err := tf.CreateTestLead()
	if err != nil {
		return nil, err
	}
	now := utils.UTCNow()
	lead.PhoneVerifiedAt = &now
	if err := tf.DB.DB.Save(lead).Error; err != nil {
		return nil, fmt.Errorf("failed to mark test lead verified: %w", err)
	}
	return lead, nil
}

// CreateTestVerification creates a pending OTP challenge for the lead.
// The raw code is returned so tests can submit it.
func (tf *TestFixtures) CreateTestVerification(lead *models.Lead) (*models.PhoneVerification, string, error) {
	code, err := utils.GenerateOTP()
	if err != nil {
		return nil, "", err
	}

	verification := &models.PhoneVerification{
		UUID:        uuid.New(),
		LeadID:      lead.ID,
		OTPHash:     utils.HashSHA256(code),
		Phone:       lead.Phone,
		Status:      models.VerificationStatusPending,
		Attempts:    0,
		MaxAttempts: utils.OTPMaxAttempts,
		CreatedAt:   utils.UTCNow(),
		ExpiresAt:   utils.UTCNowAdd(utils.OTPExpiry),
	}
	if err := tf.DB.DB.Create(verification).Error; err != nil {
		return nil, "", fmt.Errorf("failed to create test verification: %w", err)
	}
	return verification, code, nil
}

// CreateTestRetrievalToken mints a live retrieval token for the lead.
// The raw token is returned so tests can spend it.
func (tf *TestFixtures) CreateTestRetrievalToken(lead *models.Lead) (*models.RetrievalToken, string, error) {
	raw, hash, err := utils.GenerateRetrievalToken()
	if err != nil {
		return nil, "", err
	}

	token := &models.RetrievalToken{
		TokenHash: hash,
		LeadID:    lead.ID,
		ExpiresAt: utils.UTCNowAdd(utils.RetrievalTokenTTL),
		CreatedAt: utils.UTCNow(),
	}
	if err := tf.DB.DB.Create(token).Error; err != nil {
		return nil, "", fmt.Errorf("failed to create test retrieval token: %w", err)
	}
	return token, raw, nil
}

// CreateTestBooking claims a slot for the lead starting at the given time
func (tf *TestFixtures) CreateTestBooking(lead *models.Lead, start time.Time) (*models.Booking, error) {
	booking := &models.Booking{
		UUID:            uuid.New(),
		LeadID:          lead.ID,
		SelectedStart:   start.UTC(),
		SelectedEnd:     start.UTC().Add(30 * time.Minute),
		BookingTimezone: "UTC",
		SlotLabel:       start.UTC().Format("Mon, Jan 2 at 3:04 PM"),
		CreatedAt:       utils.UTCNow(),
	}
	if err := tf.DB.DB.Create(booking).Error; err != nil {
		return nil, fmt.Errorf("failed to create test booking: %w", err)
	}
	return booking, nil
}

// CreateTestAdmin creates an active dashboard admin with the given password
func (tf *TestFixtures) CreateTestAdmin(username, password string) (*models.Admin, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	admin := &models.Admin{
		Username:     username,
		PasswordHash: string(hash),
		IsActive:     utils.ToPtr(true),
		CreatedAt:    utils.UTCNow(),
		UpdatedAt:    utils.UTCNow(),
	}
	if err := tf.DB.DB.Create(admin).Error; err != nil {
		return nil, fmt.Errorf("failed to create test admin: %w", err)
	}
	return admin, nil
}

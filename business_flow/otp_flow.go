package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/leadforge/leadforge/app/dto"
	"github.com/leadforge/leadforge/app/services"
	"github.com/leadforge/leadforge/config"
	"github.com/leadforge/leadforge/models"
	"github.com/leadforge/leadforge/repository"
	"github.com/leadforge/leadforge/utils"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// OTPFlow handles phone verification challenges
type OTPFlow interface {
	VerifyOTP(ctx context.Context, req *dto.VerifyOTPRequest, metadata *ClientMetadata) (*dto.VerifyOTPResponse, error)
	ResendOTP(ctx context.Context, req *dto.ResendOTPRequest, metadata *ClientMetadata) (*dto.ResendOTPResponse, error)
}

// OTPFlowImpl implements the OTP verification business flow
type OTPFlowImpl struct {
	leadRepo         repository.LeadRepository
	verificationRepo repository.PhoneVerificationRepository
	smsService       services.SMSService
	abuseLogger      services.AbuseLogger
	rc               *redis.Client
	cacheConfig      *config.CacheConfig
	db               *gorm.DB
}

// NewOTPFlow creates a new OTP flow instance
func NewOTPFlow(
	leadRepo repository.LeadRepository,
	verificationRepo repository.PhoneVerificationRepository,
	smsService services.SMSService,
	abuseLogger services.AbuseLogger,
	rc *redis.Client,
	cacheConfig *config.CacheConfig,
	db *gorm.DB,
) OTPFlow {
	return &OTPFlowImpl{
		leadRepo:         leadRepo,
		verificationRepo: verificationRepo,
		smsService:       smsService,
		abuseLogger:      abuseLogger,
		rc:               rc,
		cacheConfig:      cacheConfig,
		db:               db,
	}
}

// VerifyOTP walks a pending challenge through its state machine. The checks
// run in a fixed order: already verified, expired, locked, then the code
// comparison. A malformed code is rejected before any state is touched and
// does not consume an attempt. Attempt counters and terminal transitions on
// the rejection paths commit on their own; only the final match runs in a
// transaction, since wrapping a rejected request would roll the bookkeeping
// back together with the error.
func (s *OTPFlowImpl) VerifyOTP(ctx context.Context, req *dto.VerifyOTPRequest, metadata *ClientMetadata) (*dto.VerifyOTPResponse, error) {
	verificationUUID, err := uuid.Parse(req.VerificationUUID)
	if err != nil {
		return nil, NewBusinessError("OTP_VERIFICATION_FAILED", "OTP verification failed", ErrNoValidOTPFound)
	}

	if !isSixDigits(req.Code) {
		return nil, NewBusinessError("OTP_VERIFICATION_FAILED", "OTP verification failed", ErrInvalidOTPFormat)
	}

	verification, err := s.verificationRepo.ByUUID(ctx, verificationUUID)
	if err != nil {
		return nil, NewBusinessError("OTP_VERIFICATION_FAILED", "OTP verification failed", err)
	}
	if verification == nil {
		return nil, NewBusinessError("OTP_VERIFICATION_FAILED", "OTP verification failed", ErrNoValidOTPFound)
	}

	now := utils.UTCNow()

	// 1. Idempotent success
	if verification.IsVerified() {
		return s.buildVerifyResponse(verification, verification.VerifiedAt), nil
	}

	if verification.Status != models.VerificationStatusPending {
		return nil, NewBusinessError("OTP_VERIFICATION_FAILED", "OTP verification failed", ErrNoValidOTPFound)
	}

	// 2. Expiry beats everything else
	if verification.IsExpiredAt(now) {
		if err := s.verificationRepo.TransitionStatus(ctx, verification.ID, models.VerificationStatusExpired, nil); err != nil {
			return nil, NewBusinessError("OTP_VERIFICATION_FAILED", "OTP verification failed", err)
		}
		return nil, NewBusinessError("OTP_VERIFICATION_FAILED", "OTP verification failed", ErrOTPExpired)
	}

	// 3. Attempt budget already spent
	if verification.Attempts >= verification.MaxAttempts {
		if err := s.verificationRepo.TransitionStatus(ctx, verification.ID, models.VerificationStatusFailed, nil); err != nil {
			return nil, NewBusinessError("OTP_VERIFICATION_FAILED", "OTP verification failed", err)
		}
		s.logAbuse(models.ReasonOTPMaxAttempts, models.SeverityHigh, &verification.LeadID, metadata, nil)
		return nil, NewBusinessError("OTP_VERIFICATION_FAILED", "OTP verification failed", ErrOTPLocked)
	}

	// 4. Compare against the stored hash
	if !utils.ConstantTimeEqual(utils.HashSHA256(req.Code), verification.OTPHash) {
		if err := s.verificationRepo.IncrementAttempts(ctx, verification.ID); err != nil {
			return nil, NewBusinessError("OTP_VERIFICATION_FAILED", "OTP verification failed", err)
		}
		attempts := verification.Attempts + 1

		if attempts >= verification.MaxAttempts {
			if err := s.verificationRepo.TransitionStatus(ctx, verification.ID, models.VerificationStatusFailed, nil); err != nil {
				return nil, NewBusinessError("OTP_VERIFICATION_FAILED", "OTP verification failed", err)
			}
			s.logAbuse(models.ReasonOTPMaxAttempts, models.SeverityHigh, &verification.LeadID, metadata, nil)
			return nil, NewBusinessError("OTP_VERIFICATION_FAILED", "OTP verification failed", ErrOTPLocked)
		}

		s.logAbuse(models.ReasonOTPInvalidAttempt, models.SeverityLow, &verification.LeadID, metadata, map[string]any{
			"attempts": attempts,
		})
		return nil, NewBusinessError("OTP_VERIFICATION_FAILED", "OTP verification failed", &InvalidOTPError{Remaining: verification.MaxAttempts - attempts})
	}

	// 5. Match: the challenge and the owning lead flip together
	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.verificationRepo.TransitionStatus(txCtx, verification.ID, models.VerificationStatusVerified, &now); err != nil {
			return err
		}
		return s.leadRepo.MarkPhoneVerified(txCtx, verification.LeadID, now)
	})
	if err != nil {
		return nil, NewBusinessError("OTP_VERIFICATION_FAILED", "OTP verification failed", err)
	}

	return s.buildVerifyResponse(verification, &now), nil
}

// ResendOTP expires any live challenge for the lead and dispatches a fresh
// code, subject to a shared cooldown so the endpoint cannot be used to flood
// a phone with SMS.
func (s *OTPFlowImpl) ResendOTP(ctx context.Context, req *dto.ResendOTPRequest, metadata *ClientMetadata) (*dto.ResendOTPResponse, error) {
	leadUUID, err := uuid.Parse(req.LeadUUID)
	if err != nil {
		return nil, NewBusinessError("OTP_RESEND_FAILED", "OTP resend failed", ErrLeadNotFound)
	}

	lead, err := s.leadRepo.ByUUID(ctx, leadUUID)
	if err != nil {
		return nil, NewBusinessError("OTP_RESEND_FAILED", "OTP resend failed", err)
	}
	if lead == nil {
		return nil, NewBusinessError("OTP_RESEND_FAILED", "OTP resend failed", ErrLeadNotFound)
	}
	if lead.IsPhoneVerified() {
		return nil, NewBusinessError("OTP_RESEND_FAILED", "OTP resend failed", ErrAlreadyVerified)
	}

	if err := s.acquireResendCooldown(ctx, lead.ID); err != nil {
		return nil, NewBusinessError("OTP_RESEND_FAILED", "OTP resend failed", err)
	}

	var verification *models.PhoneVerification
	var otpCode string

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.verificationRepo.ExpireOldPending(txCtx, lead.ID); err != nil {
			return err
		}

		otpCode, err = utils.GenerateOTP()
		if err != nil {
			return err
		}

		verification = &models.PhoneVerification{
			UUID:          uuid.New(),
			LeadID:        lead.ID,
			OTPHash:       utils.HashSHA256(otpCode),
			Phone:         lead.Phone,
			Status:        models.VerificationStatusPending,
			Attempts:      0,
			MaxAttempts:   utils.OTPMaxAttempts,
			CreatedAt:     utils.UTCNow(),
			ExpiresAt:     utils.UTCNowAdd(utils.OTPExpiry),
			IPHash:        utils.HashSHA256Ptr(metadata.IPAddress),
			UserAgentHash: utils.HashSHA256Ptr(metadata.UserAgent),
		}
		return s.verificationRepo.Save(txCtx, verification)
	})
	if err != nil {
		return nil, NewBusinessError("OTP_RESEND_FAILED", "OTP resend failed", err)
	}

	go func() {
		leadID := int64(lead.ID)
		message := fmt.Sprintf("Your new verification code is: %s. Valid for 5 minutes.", otpCode)
		_ = s.smsService.SendOTP(context.Background(), lead.Phone, message, &leadID)
	}()

	return &dto.ResendOTPResponse{
		VerificationUUID: verification.UUID.String(),
		OTPSent:          true,
		OTPExpiresIn:     utils.OTPExpirySeconds,
	}, nil
}

// acquireResendCooldown takes a per-lead SETNX lock in Redis. Without Redis
// the cooldown is skipped rather than failing the resend.
func (s *OTPFlowImpl) acquireResendCooldown(ctx context.Context, leadID uint) error {
	if s.rc == nil || s.cacheConfig == nil {
		return nil
	}

	key := redisKey(*s.cacheConfig, fmt.Sprintf("otp:resend:%d", leadID))
	ok, err := s.rc.SetNX(ctx, key, "1", utils.OTPResendCooldown).Result()
	if err != nil {
		// cache outage must not block verification
		return nil
	}
	if !ok {
		return ErrOTPResendTooSoon
	}
	return nil
}

func (s *OTPFlowImpl) buildVerifyResponse(verification *models.PhoneVerification, verifiedAt *time.Time) *dto.VerifyOTPResponse {
	response := &dto.VerifyOTPResponse{
		Status: models.VerificationStatusVerified,
	}
	if verifiedAt != nil {
		response.PhoneVerifiedAt = verifiedAt.Format(time.RFC3339)
	}
	if verification.Lead.ID != 0 {
		response.LeadUUID = verification.Lead.UUID.String()
	}
	return response
}

// isSixDigits reports whether the code is exactly six ASCII digits
func isSixDigits(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (s *OTPFlowImpl) logAbuse(reason, severity string, leadID *uint, metadata *ClientMetadata, extra map[string]any) {
	var payload []byte
	if extra != nil {
		payload, _ = json.Marshal(extra)
	}

	s.abuseLogger.Log(&models.SuspiciousEvent{
		ReasonCode:    reason,
		Severity:      severity,
		IPHash:        utils.HashSHA256Ptr(metadata.IPAddress),
		UserAgentHash: utils.HashSHA256Ptr(metadata.UserAgent),
		LeadID:        leadID,
		Metadata:      payload,
		CreatedAt:     utils.UTCNow(),
	})
}

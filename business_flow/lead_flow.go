package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/leadforge/leadforge/app/dto"
	"github.com/leadforge/leadforge/app/services"
	"github.com/leadforge/leadforge/models"
	"github.com/leadforge/leadforge/repository"
	"github.com/leadforge/leadforge/utils"
	"gorm.io/gorm"
)

// LeadFlow handles lead capture and retrieval
type LeadFlow interface {
	CaptureLead(ctx context.Context, req *dto.CaptureLeadRequest, metadata *ClientMetadata) (*dto.CaptureLeadResponse, error)
	RetrieveLead(ctx context.Context, token string, metadata *ClientMetadata) (*dto.RetrieveLeadResponse, error)
}

// LeadFlowImpl implements the lead capture business flow
type LeadFlowImpl struct {
	leadRepo         repository.LeadRepository
	verificationRepo repository.PhoneVerificationRepository
	tokenRepo        repository.RetrievalTokenRepository
	smsService       services.SMSService
	abuseLogger      services.AbuseLogger
	db               *gorm.DB
}

// NewLeadFlow creates a new lead flow instance
func NewLeadFlow(
	leadRepo repository.LeadRepository,
	verificationRepo repository.PhoneVerificationRepository,
	tokenRepo repository.RetrievalTokenRepository,
	smsService services.SMSService,
	abuseLogger services.AbuseLogger,
	db *gorm.DB,
) LeadFlow {
	return &LeadFlowImpl{
		leadRepo:         leadRepo,
		verificationRepo: verificationRepo,
		tokenRepo:        tokenRepo,
		smsService:       smsService,
		abuseLogger:      abuseLogger,
		db:               db,
	}
}

// CaptureLead validates the submission, scores the lead, persists it together
// with an OTP challenge and a retrieval token, and dispatches the OTP SMS.
func (s *LeadFlowImpl) CaptureLead(ctx context.Context, req *dto.CaptureLeadRequest, metadata *ClientMetadata) (*dto.CaptureLeadResponse, error) {
	if err := s.checkAbuseSignals(req, metadata); err != nil {
		return nil, NewBusinessError("LEAD_VALIDATION_FAILED", "Lead validation failed", err)
	}

	score, grade, recommendedPackage := ScoreLead(req.MonthlyBudgetRange, req.DecisionMaker, req.ResponseWithin5Min, req.Timeline)

	var lead *models.Lead
	var verification *models.PhoneVerification
	var otpCode, rawToken string

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		lead = &models.Lead{
			UUID:               uuid.New(),
			FullName:           req.FullName,
			Email:              req.Email,
			Phone:              req.Phone,
			Country:            req.Country,
			Company:            req.Company,
			MonthlyBudgetRange: req.MonthlyBudgetRange,
			Timeline:           req.Timeline,
			DecisionMaker:      req.DecisionMaker,
			ResponseWithin5Min: req.ResponseWithin5Min,
			Score:              score,
			Grade:              grade,
			RecommendedPackage: recommendedPackage,
			Status:             models.LeadStatusNew,
			IPHash:             utils.HashSHA256Ptr(metadata.IPAddress),
			UserAgentHash:      utils.HashSHA256Ptr(metadata.UserAgent),
			CreatedAt:          utils.UTCNow(),
			UpdatedAt:          utils.UTCNow(),
		}
		if err := s.leadRepo.Save(txCtx, lead); err != nil {
			return err
		}

		var err error
		verification, otpCode, err = s.createVerification(txCtx, lead, metadata)
		if err != nil {
			return err
		}

		rawToken, err = s.issueRetrievalToken(txCtx, lead.ID)
		return err
	})
	if err != nil {
		return nil, NewBusinessError("LEAD_CAPTURE_FAILED", "Lead capture failed", err)
	}

	// Send OTP outside the transaction so an SMS provider hiccup cannot roll
	// back the captured lead.
	go func() {
		leadID := int64(lead.ID)
		message := fmt.Sprintf("Your verification code is: %s. Valid for 5 minutes.", otpCode)
		_ = s.smsService.SendOTP(context.Background(), lead.Phone, message, &leadID)
	}()

	return &dto.CaptureLeadResponse{
		Lead:             ToLeadDTO(*lead),
		RetrievalToken:   rawToken,
		TokenExpiresIn:   int(utils.RetrievalTokenTTL.Seconds()),
		VerificationUUID: verification.UUID.String(),
		OTPSent:          true,
		OTPExpiresIn:     utils.OTPExpirySeconds,
	}, nil
}

// RetrieveLead exchanges a single-use bearer token for the lead it protects.
// All failure modes collapse to one uniform error so callers cannot probe
// whether a token exists, expired, or was already spent.
func (s *LeadFlowImpl) RetrieveLead(ctx context.Context, token string, metadata *ClientMetadata) (*dto.RetrieveLeadResponse, error) {
	if token == "" {
		return nil, NewBusinessError("RETRIEVAL_FAILED", "Lead retrieval failed", ErrRetrievalTokenInvalid)
	}

	tokenHash := utils.HashSHA256(token)
	consumed, won, err := s.tokenRepo.Consume(ctx, tokenHash, utils.UTCNow())
	if err != nil {
		return nil, NewBusinessError("RETRIEVAL_FAILED", "Lead retrieval failed", err)
	}
	if !won {
		s.logReplayAttempt(ctx, tokenHash, metadata)
		return nil, NewBusinessError("RETRIEVAL_FAILED", "Lead retrieval failed", ErrRetrievalTokenInvalid)
	}

	lead, err := s.leadRepo.ByID(ctx, consumed.LeadID)
	if err != nil {
		return nil, NewBusinessError("RETRIEVAL_FAILED", "Lead retrieval failed", err)
	}
	if lead == nil {
		return nil, NewBusinessError("RETRIEVAL_FAILED", "Lead retrieval failed", ErrLeadNotFound)
	}

	return &dto.RetrieveLeadResponse{Lead: ToLeadDTO(*lead)}, nil
}

// checkAbuseSignals rejects bot-shaped submissions and logs the signal
func (s *LeadFlowImpl) checkAbuseSignals(req *dto.CaptureLeadRequest, metadata *ClientMetadata) error {
	if req.Website != "" {
		s.logAbuse(models.ReasonHoneypotTriggered, models.SeverityMedium, nil, metadata, map[string]any{
			"field": "website",
		})
		return ErrHoneypotTriggered
	}

	rendered := time.UnixMilli(req.FormRenderedAt).UTC()
	elapsed := utils.UTCNow().Sub(rendered)
	if elapsed < utils.MinFormFillTime {
		s.logAbuse(models.ReasonFormFillTooFast, models.SeverityMedium, nil, metadata, map[string]any{
			"elapsed_ms": elapsed.Milliseconds(),
		})
		return ErrFormFillTooFast
	}
	if elapsed > utils.MaxFormFillTime {
		return ErrStaleFormSubmission
	}

	return nil
}

// createVerification stores a fresh OTP challenge for the lead and returns
// the raw code for dispatch. Only the hash is persisted.
func (s *LeadFlowImpl) createVerification(ctx context.Context, lead *models.Lead, metadata *ClientMetadata) (*models.PhoneVerification, string, error) {
	otpCode, err := utils.GenerateOTP()
	if err != nil {
		return nil, "", err
	}

	verification := &models.PhoneVerification{
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
	if err := s.verificationRepo.Save(ctx, verification); err != nil {
		return nil, "", err
	}

	return verification, otpCode, nil
}

// issueRetrievalToken mints a single-use token and returns the raw value
func (s *LeadFlowImpl) issueRetrievalToken(ctx context.Context, leadID uint) (string, error) {
	rawToken, tokenHash, err := utils.GenerateRetrievalToken()
	if err != nil {
		return "", err
	}

	token := &models.RetrievalToken{
		TokenHash: tokenHash,
		LeadID:    leadID,
		ExpiresAt: utils.UTCNowAdd(utils.RetrievalTokenTTL),
		CreatedAt: utils.UTCNow(),
	}
	if err := s.tokenRepo.Save(ctx, token); err != nil {
		return "", err
	}

	return rawToken, nil
}

// logReplayAttempt records a token_replay event only when the presented hash
// belongs to a token that was already spent. Unknown and merely expired
// tokens stay out of the abuse log so the replay signal keeps pointing at
// real double spends.
func (s *LeadFlowImpl) logReplayAttempt(ctx context.Context, tokenHash string, metadata *ClientMetadata) {
	token, err := s.tokenRepo.ByTokenHash(ctx, tokenHash)
	if err != nil || token == nil || token.UsedAt == nil {
		return
	}

	s.logAbuse(models.ReasonTokenReplay, models.SeverityMedium, &token.LeadID, metadata, map[string]any{
		"token_hash": tokenHash,
	})
}

func (s *LeadFlowImpl) logAbuse(reason, severity string, leadID *uint, metadata *ClientMetadata, extra map[string]any) {
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

package businessflow

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/leadforge/leadforge/app/dto"
	"github.com/leadforge/leadforge/app/services"
	"github.com/leadforge/leadforge/models"
	"github.com/leadforge/leadforge/repository"
	"github.com/leadforge/leadforge/utils"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"
)

// AdminFlow handles dashboard authentication and reporting
type AdminFlow interface {
	InitCaptcha(ctx context.Context) (*dto.AdminCaptchaInitResponse, error)
	Login(ctx context.Context, req *dto.AdminLoginRequest, metadata *ClientMetadata) (*dto.AdminLoginResponse, error)
	ListLeads(ctx context.Context, req *dto.ListLeadsRequest) (*dto.ListLeadsResponse, error)
	ExportLeadsExcel(ctx context.Context, req *dto.ListLeadsRequest) (filename string, data []byte, err error)
	ListSuspiciousEvents(ctx context.Context, req *dto.ListSuspiciousEventsRequest) (*dto.ListSuspiciousEventsResponse, error)
}

// AdminFlowImpl implements the admin business flow
type AdminFlowImpl struct {
	adminRepo      repository.AdminRepository
	leadRepo       repository.LeadRepository
	eventRepo      repository.SuspiciousEventRepository
	tokenService   services.TokenService
	captchaService services.CaptchaService
}

// NewAdminFlow creates a new admin flow instance
func NewAdminFlow(
	adminRepo repository.AdminRepository,
	leadRepo repository.LeadRepository,
	eventRepo repository.SuspiciousEventRepository,
	tokenService services.TokenService,
	captchaService services.CaptchaService,
) AdminFlow {
	return &AdminFlowImpl{
		adminRepo:      adminRepo,
		leadRepo:       leadRepo,
		eventRepo:      eventRepo,
		tokenService:   tokenService,
		captchaService: captchaService,
	}
}

// InitCaptcha creates a rotate captcha challenge for the login page
func (s *AdminFlowImpl) InitCaptcha(ctx context.Context) (*dto.AdminCaptchaInitResponse, error) {
	challenge, err := s.captchaService.GenerateRotate(ctx)
	if err != nil {
		return nil, NewBusinessError("CAPTCHA_INIT_FAILED", "Failed to generate captcha", err)
	}

	return &dto.AdminCaptchaInitResponse{
		ChallengeID:       challenge.ID,
		MasterImageBase64: challenge.MasterImageBase64,
		ThumbImageBase64:  challenge.ThumbImageBase64,
	}, nil
}

// Login verifies the captcha answer and credentials, then issues a JWT.
// Captcha and password failures share one error so the login page leaks
// nothing about which check tripped.
func (s *AdminFlowImpl) Login(ctx context.Context, req *dto.AdminLoginRequest, metadata *ClientMetadata) (*dto.AdminLoginResponse, error) {
	if !s.captchaService.VerifyRotate(ctx, req.ChallengeID, req.UserAngle) {
		return nil, NewBusinessError("ADMIN_LOGIN_FAILED", "Login failed", ErrCaptchaFailed)
	}

	admin, err := s.adminRepo.ByUsername(ctx, req.Username)
	if err != nil {
		return nil, NewBusinessError("ADMIN_LOGIN_FAILED", "Login failed", err)
	}
	if admin == nil {
		return nil, NewBusinessError("ADMIN_LOGIN_FAILED", "Login failed", ErrAdminNotFound)
	}
	if !utils.IsTrue(admin.IsActive) {
		return nil, NewBusinessError("ADMIN_LOGIN_FAILED", "Login failed", ErrAdminInactive)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		return nil, NewBusinessError("ADMIN_LOGIN_FAILED", "Login failed", ErrIncorrectPassword)
	}

	accessToken, err := s.tokenService.GenerateAdminToken(admin.ID)
	if err != nil {
		return nil, NewBusinessError("ADMIN_LOGIN_FAILED", "Login failed", err)
	}

	now := utils.UTCNow()
	_ = s.adminRepo.UpdateLastLogin(ctx, admin.ID, now)
	admin.LastLoginAt = &now

	return &dto.AdminLoginResponse{
		Admin: ToAdminDTO(*admin),
		Session: dto.AdminSessionDTO{
			AccessToken: accessToken,
			ExpiresIn:   utils.AccessTokenTTLSeconds,
			TokenType:   "Bearer",
			CreatedAt:   now.Format(time.RFC3339),
		},
	}, nil
}

// ListLeads returns a page of leads matching the dashboard filters
func (s *AdminFlowImpl) ListLeads(ctx context.Context, req *dto.ListLeadsRequest) (*dto.ListLeadsResponse, error) {
	page, pageSize, err := normalizePagination(req.Page, req.PageSize)
	if err != nil {
		return nil, NewBusinessError("LIST_LEADS_FAILED", "Failed to list leads", err)
	}

	filter := leadFilterFromRequest(req)

	total, err := s.leadRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("LIST_LEADS_FAILED", "Failed to list leads", err)
	}

	leads, err := s.leadRepo.ByFilter(ctx, filter, "id DESC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("LIST_LEADS_FAILED", "Failed to list leads", err)
	}

	items := make([]dto.LeadDTO, 0, len(leads))
	for _, lead := range leads {
		items = append(items, ToLeadDTO(*lead))
	}

	return &dto.ListLeadsResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

// ExportLeadsExcel writes all leads matching the filters to an xlsx workbook
func (s *AdminFlowImpl) ExportLeadsExcel(ctx context.Context, req *dto.ListLeadsRequest) (string, []byte, error) {
	filter := leadFilterFromRequest(req)

	leads, err := s.leadRepo.ByFilter(ctx, filter, "id ASC", 0, 0)
	if err != nil {
		return "", nil, NewBusinessError("EXPORT_LEADS_FAILED", "Failed to fetch leads for export", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := "Leads"
	xl.SetSheetName(xl.GetSheetName(0), sheet)

	header := []string{"uuid", "full_name", "email", "phone", "country", "company", "budget_range", "timeline", "decision_maker", "response_within_5_min", "score", "grade", "package", "status", "phone_verified_at", "created_at"}
	_ = xl.SetSheetRow(sheet, "A1", &header)

	for ri, lead := range leads {
		company := ""
		if lead.Company != nil {
			company = *lead.Company
		}
		verifiedAt := ""
		if lead.PhoneVerifiedAt != nil {
			verifiedAt = lead.PhoneVerifiedAt.UTC().Format(time.RFC3339)
		}
		record := []string{
			lead.UUID.String(),
			lead.FullName,
			lead.Email,
			lead.Phone,
			lead.Country,
			company,
			lead.MonthlyBudgetRange,
			lead.Timeline,
			strconv.FormatBool(lead.DecisionMaker),
			strconv.FormatBool(lead.ResponseWithin5Min),
			strconv.Itoa(lead.Score),
			lead.Grade,
			lead.RecommendedPackage,
			lead.Status,
			verifiedAt,
			lead.CreatedAt.UTC().Format(time.RFC3339),
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, ri+2)
		_ = xl.SetSheetRow(sheet, cellRef, &record)
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXPORT_LEADS_FAILED", "Failed to write Excel file", err)
	}

	filename := fmt.Sprintf("leads-%s.xlsx", utils.UTCNow().Format("20060102-150405"))
	return filename, buf.Bytes(), nil
}

// ListSuspiciousEvents returns a page of the abuse log
func (s *AdminFlowImpl) ListSuspiciousEvents(ctx context.Context, req *dto.ListSuspiciousEventsRequest) (*dto.ListSuspiciousEventsResponse, error) {
	page, pageSize, err := normalizePagination(req.Page, req.PageSize)
	if err != nil {
		return nil, NewBusinessError("LIST_EVENTS_FAILED", "Failed to list suspicious events", err)
	}

	filter := models.SuspiciousEventFilter{}
	if req.ReasonCode != "" {
		filter.ReasonCode = utils.ToPtr(req.ReasonCode)
	}
	if req.Severity != "" {
		filter.Severity = utils.ToPtr(req.Severity)
	}

	total, err := s.eventRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("LIST_EVENTS_FAILED", "Failed to list suspicious events", err)
	}

	events, err := s.eventRepo.ByFilter(ctx, filter, "id DESC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("LIST_EVENTS_FAILED", "Failed to list suspicious events", err)
	}

	items := make([]dto.SuspiciousEventDTO, 0, len(events))
	for _, event := range events {
		items = append(items, ToSuspiciousEventDTO(*event))
	}

	return &dto.ListSuspiciousEventsResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

func leadFilterFromRequest(req *dto.ListLeadsRequest) models.LeadFilter {
	filter := models.LeadFilter{}
	if req.Grade != "" {
		filter.Grade = utils.ToPtr(req.Grade)
	}
	if req.Status != "" {
		filter.Status = utils.ToPtr(req.Status)
	}
	if req.PhoneVerified != nil {
		filter.PhoneVerified = req.PhoneVerified
	}
	return filter
}

func normalizePagination(page, pageSize int) (int, int, error) {
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = 20
	}
	if page < 1 {
		return 0, 0, ErrInvalidPage
	}
	if pageSize < 1 || pageSize > 100 {
		return 0, 0, ErrInvalidPageSize
	}
	return page, pageSize, nil
}

func totalPages(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	pages := int(total) / pageSize
	if int(total)%pageSize != 0 {
		pages++
	}
	return pages
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/leadforge/leadforge/models"
	"github.com/leadforge/leadforge/utils"
	"gorm.io/gorm"
)

// PhoneVerificationRepositoryImpl implements PhoneVerificationRepository interface
type PhoneVerificationRepositoryImpl struct {
	*BaseRepository[models.PhoneVerification, models.PhoneVerificationFilter]
}

// NewPhoneVerificationRepository creates a new phone verification repository
func NewPhoneVerificationRepository(db *gorm.DB) PhoneVerificationRepository {
	return &PhoneVerificationRepositoryImpl{
		BaseRepository: NewBaseRepository[models.PhoneVerification, models.PhoneVerificationFilter](db),
	}
}

// ByID retrieves a phone verification by its ID with the lead preloaded
func (r *PhoneVerificationRepositoryImpl) ByID(ctx context.Context, id uint) (*models.PhoneVerification, error) {
	db := r.getDB(ctx)

	var verification models.PhoneVerification
	err := db.Preload("Lead").
		Last(&verification, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &verification, nil
}

// ByUUID retrieves a phone verification by its public UUID
func (r *PhoneVerificationRepositoryImpl) ByUUID(ctx context.Context, id uuid.UUID) (*models.PhoneVerification, error) {
	db := r.getDB(ctx)

	var verification models.PhoneVerification
	err := db.Preload("Lead").
		Where("uuid = ?", id).
		Last(&verification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &verification, nil
}

// LatestActiveByLead retrieves the newest pending, non-expired challenge for a lead
func (r *PhoneVerificationRepositoryImpl) LatestActiveByLead(ctx context.Context, leadID uint) (*models.PhoneVerification, error) {
	db := r.getDB(ctx)

	var verification models.PhoneVerification
	err := db.Where("lead_id = ? AND status = ? AND expires_at > ?",
		leadID, models.VerificationStatusPending, utils.UTCNow()).
		Order("id DESC").
		First(&verification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &verification, nil
}

// IncrementAttempts bumps the failed attempt counter on a challenge
func (r *PhoneVerificationRepositoryImpl) IncrementAttempts(ctx context.Context, verificationID uint) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Model(&models.PhoneVerification{}).
		Where("id = ?", verificationID).
		Update("attempts", gorm.Expr("attempts + 1")).Error

	return err
}

// TransitionStatus moves a challenge to a terminal or verified state
func (r *PhoneVerificationRepositoryImpl) TransitionStatus(ctx context.Context, verificationID uint, status string, verifiedAt *time.Time) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	updates := map[string]any{"status": status}
	if verifiedAt != nil {
		updates["verified_at"] = *verifiedAt
	}

	err = db.Model(&models.PhoneVerification{}).
		Where("id = ?", verificationID).
		Updates(updates).Error

	return err
}

// ExpireOldPending marks all pending challenges for a lead as expired, so a
// resend leaves exactly one live challenge
func (r *PhoneVerificationRepositoryImpl) ExpireOldPending(ctx context.Context, leadID uint) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Model(&models.PhoneVerification{}).
		Where("lead_id = ? AND status = ?", leadID, models.VerificationStatusPending).
		Update("status", models.VerificationStatusExpired).Error

	return err
}

// applyFilter applies filter criteria to a GORM query
func (r *PhoneVerificationRepositoryImpl) applyFilter(query *gorm.DB, filter models.PhoneVerificationFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}

	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}

	if filter.LeadID != nil {
		query = query.Where("lead_id = ?", *filter.LeadID)
	}

	if filter.Phone != nil {
		query = query.Where("phone = ?", *filter.Phone)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}

	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}

	// Special handling for IsActive - filter non-expired pending challenges
	if filter.IsActive != nil && *filter.IsActive {
		query = query.Where("status = ? AND expires_at > ?", models.VerificationStatusPending, utils.UTCNow())
	}

	return query
}

// ByFilter retrieves phone verifications based on filter criteria
func (r *PhoneVerificationRepositoryImpl) ByFilter(ctx context.Context, filter models.PhoneVerificationFilter, orderBy string, limit, offset int) ([]*models.PhoneVerification, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.PhoneVerification{}), filter)

	if orderBy == "" {
		orderBy = "id DESC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var verifications []*models.PhoneVerification
	err := query.Find(&verifications).Error
	if err != nil {
		return nil, err
	}

	return verifications, nil
}

// Count returns the number of phone verifications matching the filter
func (r *PhoneVerificationRepositoryImpl) Count(ctx context.Context, filter models.PhoneVerificationFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.PhoneVerification{}), filter)

	var count int64
	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any phone verification matching the filter exists
func (r *PhoneVerificationRepositoryImpl) Exists(ctx context.Context, filter models.PhoneVerificationFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

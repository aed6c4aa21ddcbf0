package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/leadforge/leadforge/models"
	"gorm.io/gorm"
)

// LeadRepositoryImpl implements LeadRepository interface
type LeadRepositoryImpl struct {
	*BaseRepository[models.Lead, models.LeadFilter]
}

// NewLeadRepository creates a new lead repository
func NewLeadRepository(db *gorm.DB) LeadRepository {
	return &LeadRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Lead, models.LeadFilter](db),
	}
}

// ByUUID retrieves a lead by its public UUID
func (r *LeadRepositoryImpl) ByUUID(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	db := r.getDB(ctx)

	var lead models.Lead
	err := db.Where("uuid = ?", id).Last(&lead).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &lead, nil
}

// ByEmail retrieves the most recent lead with the given email
func (r *LeadRepositoryImpl) ByEmail(ctx context.Context, email string) (*models.Lead, error) {
	db := r.getDB(ctx)

	var lead models.Lead
	err := db.Where("email = ?", email).
		Order("id DESC").
		First(&lead).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &lead, nil
}

// ByPhone retrieves the most recent lead with the given phone number
func (r *LeadRepositoryImpl) ByPhone(ctx context.Context, phone string) (*models.Lead, error) {
	db := r.getDB(ctx)

	var lead models.Lead
	err := db.Where("phone = ?", phone).
		Order("id DESC").
		First(&lead).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &lead, nil
}

// MarkPhoneVerified stamps phone_verified_at on the lead
func (r *LeadRepositoryImpl) MarkPhoneVerified(ctx context.Context, leadID uint, verifiedAt time.Time) error {
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

	err = db.Model(&models.Lead{}).
		Where("id = ?", leadID).
		Updates(map[string]any{
			"phone_verified_at": verifiedAt,
			"updated_at":        verifiedAt,
		}).Error

	return err
}

// UpdateStatus moves a lead through the funnel
func (r *LeadRepositoryImpl) UpdateStatus(ctx context.Context, leadID uint, status string) error {
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

	err = db.Model(&models.Lead{}).
		Where("id = ?", leadID).
		Update("status", status).Error

	return err
}

// applyFilter applies filter criteria to a GORM query
func (r *LeadRepositoryImpl) applyFilter(query *gorm.DB, filter models.LeadFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}

	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}

	if filter.Email != nil {
		query = query.Where("email = ?", *filter.Email)
	}

	if filter.Phone != nil {
		query = query.Where("phone = ?", *filter.Phone)
	}

	if filter.Grade != nil {
		query = query.Where("grade = ?", *filter.Grade)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	if filter.PhoneVerified != nil {
		if *filter.PhoneVerified {
			query = query.Where("phone_verified_at IS NOT NULL")
		} else {
			query = query.Where("phone_verified_at IS NULL")
		}
	}

	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}

	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}

	return query
}

// ByFilter retrieves leads based on filter criteria
func (r *LeadRepositoryImpl) ByFilter(ctx context.Context, filter models.LeadFilter, orderBy string, limit, offset int) ([]*models.Lead, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Lead{}), filter)

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

	var leads []*models.Lead
	err := query.Find(&leads).Error
	if err != nil {
		return nil, err
	}

	return leads, nil
}

// Count returns the number of leads matching the filter
func (r *LeadRepositoryImpl) Count(ctx context.Context, filter models.LeadFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Lead{}), filter)

	var count int64
	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any lead matching the filter exists
func (r *LeadRepositoryImpl) Exists(ctx context.Context, filter models.LeadFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

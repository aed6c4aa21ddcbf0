package repository

import (
	"context"
	"errors"
	"time"

	"github.com/leadforge/leadforge/models"
	"gorm.io/gorm"
)

// AdminRepositoryImpl implements AdminRepository interface
type AdminRepositoryImpl struct {
	*BaseRepository[models.Admin, models.AdminFilter]
}

// NewAdminRepository creates a new admin repository
func NewAdminRepository(db *gorm.DB) AdminRepository {
	return &AdminRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Admin, models.AdminFilter](db),
	}
}

// ByUsername retrieves an admin by username
func (r *AdminRepositoryImpl) ByUsername(ctx context.Context, username string) (*models.Admin, error) {
	db := r.getDB(ctx)

	var admin models.Admin
	err := db.Where("username = ?", username).Last(&admin).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &admin, nil
}

// UpdateLastLogin stamps the last successful login time
func (r *AdminRepositoryImpl) UpdateLastLogin(ctx context.Context, adminID uint, at time.Time) error {
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

	err = db.Model(&models.Admin{}).
		Where("id = ?", adminID).
		Update("last_login_at", at).Error

	return err
}

// applyFilter applies filter criteria to a GORM query
func (r *AdminRepositoryImpl) applyFilter(query *gorm.DB, filter models.AdminFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}

	if filter.Username != nil {
		query = query.Where("username = ?", *filter.Username)
	}

	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	return query
}

// ByFilter retrieves admins based on filter criteria
func (r *AdminRepositoryImpl) ByFilter(ctx context.Context, filter models.AdminFilter, orderBy string, limit, offset int) ([]*models.Admin, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Admin{}), filter)

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

	var admins []*models.Admin
	err := query.Find(&admins).Error
	if err != nil {
		return nil, err
	}

	return admins, nil
}

// Count returns the number of admins matching the filter
func (r *AdminRepositoryImpl) Count(ctx context.Context, filter models.AdminFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Admin{}), filter)

	var count int64
	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any admin matching the filter exists
func (r *AdminRepositoryImpl) Exists(ctx context.Context, filter models.AdminFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/leadforge/leadforge/models"
	"gorm.io/gorm"
)

// RetrievalTokenRepositoryImpl implements RetrievalTokenRepository interface
type RetrievalTokenRepositoryImpl struct {
	*BaseRepository[models.RetrievalToken, models.RetrievalTokenFilter]
}

// NewRetrievalTokenRepository creates a new retrieval token repository
func NewRetrievalTokenRepository(db *gorm.DB) RetrievalTokenRepository {
	return &RetrievalTokenRepositoryImpl{
		BaseRepository: NewBaseRepository[models.RetrievalToken, models.RetrievalTokenFilter](db),
	}
}

// Consume marks a token used with a single conditional UPDATE. The WHERE
// clause only matches an unused, unexpired row, so under concurrent requests
// with the same token exactly one UPDATE reports an affected row and every
// other caller sees consumed=false.
func (r *RetrievalTokenRepositoryImpl) Consume(ctx context.Context, tokenHash string, now time.Time) (*models.RetrievalToken, bool, error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return nil, false, err
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

	result := db.Model(&models.RetrievalToken{}).
		Where("token_hash = ? AND used_at IS NULL AND expires_at > ?", tokenHash, now).
		Update("used_at", now)
	if result.Error != nil {
		err = result.Error
		return nil, false, err
	}

	if result.RowsAffected == 0 {
		return nil, false, nil
	}

	var token models.RetrievalToken
	err = db.Preload("Lead").
		Where("token_hash = ?", tokenHash).
		First(&token).Error
	if err != nil {
		return nil, false, err
	}

	return &token, true, nil
}

// ByTokenHash retrieves a token row by its stored hash
func (r *RetrievalTokenRepositoryImpl) ByTokenHash(ctx context.Context, tokenHash string) (*models.RetrievalToken, error) {
	db := r.getDB(ctx)

	var token models.RetrievalToken
	err := db.Where("token_hash = ?", tokenHash).Last(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &token, nil
}

// applyFilter applies filter criteria to a GORM query
func (r *RetrievalTokenRepositoryImpl) applyFilter(query *gorm.DB, filter models.RetrievalTokenFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}

	if filter.TokenHash != nil {
		query = query.Where("token_hash = ?", *filter.TokenHash)
	}

	if filter.LeadID != nil {
		query = query.Where("lead_id = ?", *filter.LeadID)
	}

	if filter.IsUsed != nil {
		if *filter.IsUsed {
			query = query.Where("used_at IS NOT NULL")
		} else {
			query = query.Where("used_at IS NULL")
		}
	}

	return query
}

// ByFilter retrieves retrieval tokens based on filter criteria
func (r *RetrievalTokenRepositoryImpl) ByFilter(ctx context.Context, filter models.RetrievalTokenFilter, orderBy string, limit, offset int) ([]*models.RetrievalToken, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.RetrievalToken{}), filter)

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

	var tokens []*models.RetrievalToken
	err := query.Find(&tokens).Error
	if err != nil {
		return nil, err
	}

	return tokens, nil
}

// Count returns the number of retrieval tokens matching the filter
func (r *RetrievalTokenRepositoryImpl) Count(ctx context.Context, filter models.RetrievalTokenFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.RetrievalToken{}), filter)

	var count int64
	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any retrieval token matching the filter exists
func (r *RetrievalTokenRepositoryImpl) Exists(ctx context.Context, filter models.RetrievalTokenFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

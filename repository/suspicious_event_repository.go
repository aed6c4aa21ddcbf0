package repository

import (
	"context"

	"github.com/leadforge/leadforge/models"
	"gorm.io/gorm"
)

// SuspiciousEventRepositoryImpl implements SuspiciousEventRepository interface
type SuspiciousEventRepositoryImpl struct {
	*BaseRepository[models.SuspiciousEvent, models.SuspiciousEventFilter]
}

// NewSuspiciousEventRepository creates a new suspicious event repository
func NewSuspiciousEventRepository(db *gorm.DB) SuspiciousEventRepository {
	return &SuspiciousEventRepositoryImpl{
		BaseRepository: NewBaseRepository[models.SuspiciousEvent, models.SuspiciousEventFilter](db),
	}
}

// applyFilter applies filter criteria to a GORM query
func (r *SuspiciousEventRepositoryImpl) applyFilter(query *gorm.DB, filter models.SuspiciousEventFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}

	if filter.ReasonCode != nil {
		query = query.Where("reason_code = ?", *filter.ReasonCode)
	}

	if filter.Severity != nil {
		query = query.Where("severity = ?", *filter.Severity)
	}

	if filter.IPHash != nil {
		query = query.Where("ip_hash = ?", *filter.IPHash)
	}

	if filter.LeadID != nil {
		query = query.Where("lead_id = ?", *filter.LeadID)
	}

	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}

	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}

	return query
}

// ByFilter retrieves suspicious events based on filter criteria
func (r *SuspiciousEventRepositoryImpl) ByFilter(ctx context.Context, filter models.SuspiciousEventFilter, orderBy string, limit, offset int) ([]*models.SuspiciousEvent, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.SuspiciousEvent{}), filter)

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

	var events []*models.SuspiciousEvent
	err := query.Find(&events).Error
	if err != nil {
		return nil, err
	}

	return events, nil
}

// Count returns the number of suspicious events matching the filter
func (r *SuspiciousEventRepositoryImpl) Count(ctx context.Context, filter models.SuspiciousEventFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.SuspiciousEvent{}), filter)

	var count int64
	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any suspicious event matching the filter exists
func (r *SuspiciousEventRepositoryImpl) Exists(ctx context.Context, filter models.SuspiciousEventFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/leadforge/leadforge/models"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ErrSlotTaken is returned when an insert loses the race for a slot to an
// earlier booking.
var ErrSlotTaken = errors.New("slot already booked")

// BookingRepositoryImpl implements BookingRepository interface
type BookingRepositoryImpl struct {
	*BaseRepository[models.Booking, models.BookingFilter]
}

// NewBookingRepository creates a new booking repository
func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &BookingRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Booking, models.BookingFilter](db),
	}
}

// ByUUID retrieves a booking by its public UUID
func (r *BookingRepositoryImpl) ByUUID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	db := r.getDB(ctx)

	var booking models.Booking
	err := db.Preload("Lead").
		Where("uuid = ?", id).
		Last(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &booking, nil
}

// SaveSlot inserts a booking. The unique index on (selected_start,
// selected_end) rejects the second writer for the same slot; that unique
// violation surfaces as ErrSlotTaken.
func (r *BookingRepositoryImpl) SaveSlot(ctx context.Context, booking *models.Booking) error {
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

	err = db.Create(booking).Error
	if err != nil {
		if isUniqueViolation(err) {
			err = ErrSlotTaken
		}
		return err
	}

	return nil
}

// isUniqueViolation reports whether the error is a Postgres 23505 or GORM's
// translated duplicate key error
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	return false
}

// ListUpcoming retrieves bookings starting at or after the given time
func (r *BookingRepositoryImpl) ListUpcoming(ctx context.Context, from time.Time, limit int) ([]*models.Booking, error) {
	db := r.getDB(ctx)

	query := db.Preload("Lead").
		Where("selected_start >= ?", from).
		Order("selected_start ASC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	var bookings []*models.Booking
	err := query.Find(&bookings).Error
	if err != nil {
		return nil, err
	}

	return bookings, nil
}

// applyFilter applies filter criteria to a GORM query
func (r *BookingRepositoryImpl) applyFilter(query *gorm.DB, filter models.BookingFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}

	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}

	if filter.LeadID != nil {
		query = query.Where("lead_id = ?", *filter.LeadID)
	}

	if filter.StartAfter != nil {
		query = query.Where("selected_start > ?", *filter.StartAfter)
	}

	if filter.StartBefore != nil {
		query = query.Where("selected_start < ?", *filter.StartBefore)
	}

	return query
}

// ByFilter retrieves bookings based on filter criteria
func (r *BookingRepositoryImpl) ByFilter(ctx context.Context, filter models.BookingFilter, orderBy string, limit, offset int) ([]*models.Booking, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Booking{}), filter)

	if orderBy == "" {
		orderBy = "selected_start ASC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var bookings []*models.Booking
	err := query.Find(&bookings).Error
	if err != nil {
		return nil, err
	}

	return bookings, nil
}

// Count returns the number of bookings matching the filter
func (r *BookingRepositoryImpl) Count(ctx context.Context, filter models.BookingFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Booking{}), filter)

	var count int64
	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any booking matching the filter exists
func (r *BookingRepositoryImpl) Exists(ctx context.Context, filter models.BookingFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/leadforge/leadforge/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// LeadRepository defines operations for leads
type LeadRepository interface {
	Repository[models.Lead, models.LeadFilter]
	ByUUID(ctx context.Context, id uuid.UUID) (*models.Lead, error)
	ByEmail(ctx context.Context, email string) (*models.Lead, error)
	ByPhone(ctx context.Context, phone string) (*models.Lead, error)
	MarkPhoneVerified(ctx context.Context, leadID uint, verifiedAt time.Time) error
	UpdateStatus(ctx context.Context, leadID uint, status string) error
}

// PhoneVerificationRepository defines operations for OTP challenges
type PhoneVerificationRepository interface {
	Repository[models.PhoneVerification, models.PhoneVerificationFilter]
	ByUUID(ctx context.Context, id uuid.UUID) (*models.PhoneVerification, error)
	LatestActiveByLead(ctx context.Context, leadID uint) (*models.PhoneVerification, error)
	IncrementAttempts(ctx context.Context, verificationID uint) error
	TransitionStatus(ctx context.Context, verificationID uint, status string, verifiedAt *time.Time) error
	ExpireOldPending(ctx context.Context, leadID uint) error
}

// RetrievalTokenRepository defines operations for single-use lead retrieval tokens
type RetrievalTokenRepository interface {
	Repository[models.RetrievalToken, models.RetrievalTokenFilter]
	// Consume atomically marks the token used and reports whether this call won.
	// A false result means the hash is unknown, expired, or already consumed;
	// callers must not be told which.
	Consume(ctx context.Context, tokenHash string, now time.Time) (*models.RetrievalToken, bool, error)
	ByTokenHash(ctx context.Context, tokenHash string) (*models.RetrievalToken, error)
}

// BookingRepository defines operations for bookings
type BookingRepository interface {
	Repository[models.Booking, models.BookingFilter]
	ByUUID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	// SaveSlot inserts a booking and maps a unique violation on the slot index
	// to ErrSlotTaken.
	SaveSlot(ctx context.Context, booking *models.Booking) error
	ListUpcoming(ctx context.Context, from time.Time, limit int) ([]*models.Booking, error)
}

// SuspiciousEventRepository defines operations for the append-only abuse log
type SuspiciousEventRepository interface {
	Repository[models.SuspiciousEvent, models.SuspiciousEventFilter]
}

// AdminRepository defines operations for dashboard admins
type AdminRepository interface {
	Repository[models.Admin, models.AdminFilter]
	ByUsername(ctx context.Context, username string) (*models.Admin, error)
	UpdateLastLogin(ctx context.Context, adminID uint, at time.Time) error
}

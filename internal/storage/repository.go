// Package storage is the orchestration layer over the persistence gateway: every
// user, category and transaction operation goes through a Repository.
package storage

import (
	"context" // Cancellation
	"fmt"     // Error wrapping
	"time"    // Clock

	"kudo/internal/cache"  // Category read cache
	"kudo/internal/db"     // Persistence gateway
	"kudo/internal/domain" // Persisted models
	"kudo/internal/errs"   // Error taxonomy

	"github.com/google/uuid"     // Identifiers
	"github.com/sirupsen/logrus" // Structured logging
)

// Repository exposes the domain operations. Each write commits through exactly
// one SaveAll, so an operation either lands completely or not at all. Like the
// Gateway it wraps, a Repository is not safe for concurrent use.
type Repository struct {
	gw    *db.Gateway      // Persistence gateway
	cache *cache.Cache     // Optional category cache; nil disables it
	now   func() time.Time // Clock for creation timestamps
}

// Option configures a Repository
type Option func(*Repository)

// WithCache serves category lists through c
func WithCache(c *cache.Cache) Option {
	return func(r *Repository) { r.cache = c }
}

// WithClock replaces time.Now for creation timestamps
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// NewRepository wraps gw
func NewRepository(gw *db.Gateway, opts ...Option) *Repository {
	r := &Repository{gw: gw, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// timestamp is the creation instant stored for new records, in UTC at the
// precision every supported store keeps
func (r *Repository) timestamp() time.Time {
	return r.now().UTC().Truncate(time.Microsecond)
}

// save commits the pending change set
func (r *Repository) save(ctx context.Context, op string) error {
	if _, err := r.gw.SaveAll(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// invalid builds a validation error for op
func invalid(op, reason string) error {
	return fmt.Errorf("%s: %w: %s", op, errs.ErrValidation, reason)
}

// findByID loads the record with id into dest and reports whether it exists
func (r *Repository) findByID(ctx context.Context, dest any, id uuid.UUID) (bool, error) {
	res := r.gw.Query(ctx).Where("id = ?", id).Limit(1).Find(dest)
	if res.Error != nil {
		return false, db.Classify(ctx, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// categoriesKey is the cache key of one user's categories of one type
func categoriesKey(userID uuid.UUID, typ domain.TransactionType) string {
	return "categories:user:" + userID.String() + ":type:" + string(typ)
}

// invalidateCategories drops a cached category list after a committed change.
// The commit already took effect, so caller cancellation does not skip it.
func (r *Repository) invalidateCategories(ctx context.Context, userID uuid.UUID, typ domain.TransactionType) {
	if err := r.cache.Delete(context.WithoutCancel(ctx), categoriesKey(userID, typ)); err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id": userID,      // Owner of the list
			"type":    typ,         // Transaction type of the list
			"error":   err.Error(), // Redis error
		}).Warn("Category cache invalidation failed")
	}
}

package storage

import (
	"context" // Cancellation
	"fmt"     // Error wrapping

	"kudo/internal/db"     // Error classification
	"kudo/internal/domain" // Persisted models

	"github.com/google/uuid"     // Identifiers
	"github.com/sirupsen/logrus" // Structured logging
)

// CreateCategory stores a category named name for the user with userLogin
func (r *Repository) CreateCategory(ctx context.Context, userLogin, name string, typ domain.TransactionType) error {
	const op = "create category"
	if !typ.Valid() {
		return invalid(op, fmt.Sprintf("unknown transaction type %q", typ))
	}
	user, err := r.GetUserByLogin(ctx, userLogin)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	category := &domain.Category{
		ID:              uuid.New(),
		UserID:          user.ID,
		Name:            name,
		TransactionType: typ,
	}
	r.gw.Add(category)
	if err := r.save(ctx, op); err != nil {
		return err
	}
	r.invalidateCategories(ctx, user.ID, typ)
	logrus.WithFields(logrus.Fields{
		"category_id": category.ID, // New category ID
		"user_id":     user.ID,     // Owner
		"type":        typ,         // Transaction type
	}).Info("Category created")
	return nil
}

// RemoveCategory deletes category id; an absent id is a no-op. Transactions
// referencing it are left in place.
func (r *Repository) RemoveCategory(ctx context.Context, id uuid.UUID) error {
	const op = "remove category"
	var category domain.Category
	found, err := r.findByID(ctx, &category, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return nil
	}
	r.gw.Remove(&category)
	if err := r.save(ctx, op); err != nil {
		return err
	}
	r.invalidateCategories(ctx, category.UserID, category.TransactionType)
	logrus.WithField("category_id", id).Info("Category removed")
	return nil
}

// GetCategoriesByUser lists the categories of type typ owned by login, ordered by
// name then id
func (r *Repository) GetCategoriesByUser(ctx context.Context, login string, typ domain.TransactionType) ([]domain.Category, error) {
	const op = "get categories"
	if !typ.Valid() {
		return nil, invalid(op, fmt.Sprintf("unknown transaction type %q", typ))
	}
	user, err := r.GetUserByLogin(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	key := categoriesKey(user.ID, typ)
	var categories []domain.Category
	hit, err := r.cache.Get(ctx, key, &categories)
	switch {
	case err != nil:
		logrus.WithFields(logrus.Fields{"key": key, "error": err.Error()}).Warn("Category cache read failed")
	case hit:
		return categories, nil
	}

	if err := r.gw.Query(ctx).
		Where("user_id = ? AND transaction_type = ?", user.ID, typ).
		Order("name").Order("id").
		Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, db.Classify(ctx, err))
	}
	if err := r.cache.Set(ctx, key, categories); err != nil {
		logrus.WithFields(logrus.Fields{"key": key, "error": err.Error()}).Warn("Category cache write failed")
	}
	return categories, nil
}

package storage

import (
	"context" // Cancellation
	"fmt"     // Error wrapping
	"time"    // Timestamp spacing

	"kudo/internal/db"     // Persistence gateway
	"kudo/internal/domain" // Persisted models

	"github.com/google/uuid"        // Identifiers
	"github.com/shopspring/decimal" // Amounts
	"github.com/sirupsen/logrus"    // Structured logging
)

// Default data inserted into an empty store
var (
	seedUsers = []struct{ login, password string }{
		{"ivan", "kudo1"},
		{"petr", "kudo2"},
	}
	seedCategories = []struct {
		login, name string
		typ         domain.TransactionType
	}{
		{"ivan", "Fruits", domain.Expense},
		{"ivan", "Utilities", domain.Expense},
		{"ivan", "Salary", domain.Income},
		{"petr", "Beer", domain.Expense},
		{"petr", "Utilities", domain.Expense},
		{"petr", "Paycheck", domain.Income},
	}
	seedTransactions = []struct{ login, category, amount string }{
		{"ivan", "Fruits", "500"},
		{"ivan", "Fruits", "1000"},
		{"ivan", "Utilities", "7000"},
		{"ivan", "Salary", "20000"},
		{"petr", "Beer", "5000"},
		{"petr", "Beer", "2000"},
		{"petr", "Utilities", "7000"},
		{"petr", "Paycheck", "70000"},
	}
)

// SeedDefaultData fills an empty store with the default users, categories and
// transactions in one transaction. It reports false, without writing, when any
// user, category or transaction already exists.
func (r *Repository) SeedDefaultData(ctx context.Context) (bool, error) {
	const op = "seed default data"
	var written int64
	err := r.gw.InTransaction(ctx, func(tx *db.Gateway) error {
		filled, err := hasData(ctx, tx)
		if err != nil || filled {
			return err
		}
		seeder := &Repository{gw: tx, now: r.now}
		if err := seeder.queueDefaultData(); err != nil {
			return err
		}
		written, err = tx.SaveAll(ctx)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if written == 0 {
		logrus.Info("Store already has data, seeding skipped")
		return false, nil
	}
	logrus.WithField("rows", written).Info("Default data seeded")
	return true, nil
}

// hasData reports whether any user, category or transaction exists
func hasData(ctx context.Context, gw *db.Gateway) (bool, error) {
	for _, model := range domain.Models() {
		var count int64
		if err := gw.Query(ctx).Model(model).Count(&count).Error; err != nil {
			return false, db.Classify(ctx, err)
		}
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}

// queueDefaultData adds the default records to the pending change set
func (r *Repository) queueDefaultData() error {
	users := make(map[string]*domain.User, len(seedUsers))
	for _, s := range seedUsers {
		user, err := r.newUser(s.login, s.password)
		if err != nil {
			return err
		}
		users[s.login] = user
		r.gw.Add(user)
	}

	type categoryKey struct{ login, name string }
	categories := make(map[categoryKey]*domain.Category, len(seedCategories))
	for _, s := range seedCategories {
		category := &domain.Category{
			ID:              uuid.New(),
			UserID:          users[s.login].ID,
			Name:            s.name,
			TransactionType: s.typ,
		}
		categories[categoryKey{s.login, s.name}] = category
		r.gw.Add(category)
	}

	// Spaced a microsecond apart so listings keep insertion order
	base := r.timestamp()
	for i, s := range seedTransactions {
		category := categories[categoryKey{s.login, s.category}]
		r.gw.Add(&domain.FinancialTransaction{
			ID:              uuid.New(),
			UserID:          users[s.login].ID,
			CategoryID:      category.ID,
			TransactionType: category.TransactionType,
			Amount:          decimal.RequireFromString(s.amount),
			CreatedAt:       base.Add(time.Duration(i) * time.Microsecond),
		})
	}
	return nil
}

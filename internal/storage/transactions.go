package storage

import (
	"context" // Cancellation
	"fmt"     // Error wrapping

	"kudo/internal/db"     // Error classification
	"kudo/internal/domain" // Persisted models
	"kudo/internal/errs"   // Error taxonomy

	"github.com/google/uuid"        // Identifiers
	"github.com/shopspring/decimal" // Amounts
	"github.com/sirupsen/logrus"    // Structured logging
)

// TransactionUpdate lists the fields UpdateFinancialTransaction changes; nil fields are kept
type TransactionUpdate struct {
	Type     *domain.TransactionType // New denormalized type
	Category *domain.Category        // New category; only its ID is used
	Amount   *decimal.Decimal        // New signed amount
}

// CreateFinancialTransaction records amount against category for the user with
// userLogin. An empty typ falls back to the category's type.
func (r *Repository) CreateFinancialTransaction(ctx context.Context, userLogin string, typ domain.TransactionType, category domain.Category, amount decimal.Decimal) error {
	const op = "create financial transaction"
	if typ == "" {
		typ = category.TransactionType
	}
	if !typ.Valid() {
		return invalid(op, fmt.Sprintf("unknown transaction type %q", typ))
	}
	if category.ID == uuid.Nil {
		return invalid(op, "category id is required")
	}
	user, err := r.GetUserByLogin(ctx, userLogin)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	transaction := &domain.FinancialTransaction{
		ID:              uuid.New(),
		UserID:          user.ID,
		CategoryID:      category.ID,
		TransactionType: typ,
		Amount:          amount,
		CreatedAt:       r.timestamp(),
	}
	r.gw.Add(transaction)
	if err := r.save(ctx, op); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"transaction_id": transaction.ID,  // New transaction ID
		"user_id":        user.ID,         // Owner
		"category_id":    category.ID,     // Category
		"amount":         amount.String(), // Signed amount
	}).Info("Transaction created")
	return nil
}

// UpdateFinancialTransaction applies the present fields of update to transaction
// id. Changing the category does not touch the stored type.
func (r *Repository) UpdateFinancialTransaction(ctx context.Context, id uuid.UUID, update TransactionUpdate) error {
	const op = "update financial transaction"
	var transaction domain.FinancialTransaction
	found, err := r.findByID(ctx, &transaction, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return fmt.Errorf("%s: %w: no transaction %s", op, errs.ErrNotFound, id)
	}
	if update.Type != nil {
		if !update.Type.Valid() {
			return invalid(op, fmt.Sprintf("unknown transaction type %q", *update.Type))
		}
		transaction.TransactionType = *update.Type
	}
	if update.Category != nil {
		if update.Category.ID == uuid.Nil {
			return invalid(op, "category id is required")
		}
		transaction.CategoryID = update.Category.ID
	}
	if update.Amount != nil {
		transaction.Amount = *update.Amount
	}
	r.gw.Update(&transaction)
	if err := r.save(ctx, op); err != nil {
		return err
	}
	logrus.WithField("transaction_id", id).Info("Transaction updated")
	return nil
}

// RemoveFinancialTransaction deletes transaction id; an absent id is a no-op
func (r *Repository) RemoveFinancialTransaction(ctx context.Context, id uuid.UUID) error {
	const op = "remove financial transaction"
	var transaction domain.FinancialTransaction
	found, err := r.findByID(ctx, &transaction, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return nil
	}
	r.gw.Remove(&transaction)
	if err := r.save(ctx, op); err != nil {
		return err
	}
	logrus.WithField("transaction_id", id).Info("Transaction removed")
	return nil
}

// GetFinancialTransactions lists the transactions of type typ owned by login,
// ordered by creation time then id
func (r *Repository) GetFinancialTransactions(ctx context.Context, login string, typ domain.TransactionType) ([]domain.FinancialTransaction, error) {
	const op = "get financial transactions"
	if !typ.Valid() {
		return nil, invalid(op, fmt.Sprintf("unknown transaction type %q", typ))
	}
	user, err := r.GetUserByLogin(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var transactions []domain.FinancialTransaction
	if err := r.gw.Query(ctx).
		Where("user_id = ? AND transaction_type = ?", user.ID, typ).
		Order("created_at").Order("id").
		Find(&transactions).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, db.Classify(ctx, err))
	}
	return transactions, nil
}

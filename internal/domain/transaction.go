package domain

import (
	"time" // Creation timestamp

	"github.com/google/uuid"        // Identifier type
	"github.com/shopspring/decimal" // Arbitrary-precision amount
	"gorm.io/gorm"                  // Hook signature
)

// FinancialTransaction Model.
//
// CategoryID is a weak reference: removing a category leaves it pointing at the
// deleted row, and readers treat the missing category as unknown. TransactionType
// is copied at creation and is not re-synced when the category changes.
type FinancialTransaction struct {
	ID              uuid.UUID       `gorm:"primaryKey" json:"id"`                            // Primary key
	UserID          uuid.UUID       `gorm:"not null;index" json:"user_id"`                   // Owning user
	CategoryID      uuid.UUID       `gorm:"not null" json:"category_id"`                     // Category reference, no foreign key
	TransactionType TransactionType `gorm:"size:16;not null" json:"transaction_type"`        // Denormalized from the category
	Amount          decimal.Decimal `gorm:"not null" json:"amount"`                          // Signed amount, no currency
	CreatedAt       time.Time       `gorm:"not null;autoCreateTime:false" json:"created_at"` // Set by the repository before insert
}

// TableName pins the table name used by the migrations
func (FinancialTransaction) TableName() string {
	return "FinancialTransactions"
}

// BeforeCreate assigns an identifier when the caller left it empty
func (t *FinancialTransaction) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

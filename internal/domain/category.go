package domain

import (
	"github.com/google/uuid" // Identifier type
	"gorm.io/gorm"           // Hook signature
)

// Category Model
type Category struct {
	ID              uuid.UUID       `gorm:"primaryKey" json:"id"`                     // Primary key
	UserID          uuid.UUID       `gorm:"not null;index" json:"user_id"`            // Owning user
	Name            string          `gorm:"size:32;not null" json:"name"`             // Display name, primary-strength collation
	TransactionType TransactionType `gorm:"size:16;not null" json:"transaction_type"` // Income or expense classification
}

// TableName pins the table name used by the migrations
func (Category) TableName() string {
	return "Categories"
}

// BeforeCreate assigns an identifier when the caller left it empty
func (c *Category) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

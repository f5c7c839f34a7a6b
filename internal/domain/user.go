package domain

import (
	"time" // Creation timestamp

	"github.com/google/uuid" // Identifier type
	"gorm.io/gorm"           // Hook signature
)

// User Model
type User struct {
	ID           uuid.UUID `gorm:"primaryKey" json:"id"`                            // Primary key
	Login        string    `gorm:"size:32;not null;uniqueIndex" json:"login"`       // Unique login, primary-strength collation
	PasswordHash string    `gorm:"size:512;not null" json:"-"`                      // Derived PBKDF2 hash, never serialized
	CreatedAt    time.Time `gorm:"not null;autoCreateTime:false" json:"created_at"` // Set once by the repository before insert
}

// TableName pins the table name used by the migrations
func (User) TableName() string {
	return "Users"
}

// BeforeCreate assigns an identifier when the caller left it empty
func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

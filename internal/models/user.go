package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID  `gorm:"type:varchar(36);primarykey" json:"id"`
	Email        string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"not null" json:"-"`
	FullName     string     `gorm:"type:text" json:"full_name"`
	PhoneNumber  string     `gorm:"type:text" json:"phone_number"`
	Province     string     `gorm:"type:text" json:"province"`
	City         string     `gorm:"type:text" json:"city"`
	IsAdmin      bool       `gorm:"not null;default:false" json:"is_admin"`
	IsActive     bool       `gorm:"not null;default:true" json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// RevokedToken records the jti of a token that was explicitly logged out.
// Rows are only useful until ExpiresAt; after that the token fails validation
// on its own and the row may be purged.
type RevokedToken struct {
	ID        uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	JTI       string    `gorm:"column:jti;size:64;uniqueIndex;not null" json:"jti"`
	UserID    uuid.UUID `gorm:"type:varchar(36);index" json:"user_id"`
	TokenType string    `gorm:"size:16;not null" json:"token_type"`
	RevokedAt time.Time `gorm:"not null" json:"revoked_at"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
}

func (r *RevokedToken) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.RevokedAt.IsZero() {
		r.RevokedAt = time.Now().UTC()
	}
	return nil
}

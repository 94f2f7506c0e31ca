package testhelpers

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/pageza/agrisoil/backend/internal/models"
)

const TestPassword = "testpassword123"

// CreateUser inserts an active user whose password is TestPassword.
func CreateUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     "Test Farmer",
		IsActive:     true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

// CreateSoilPhoto inserts an unlinked photo owned by user.
func CreateSoilPhoto(t *testing.T, db *gorm.DB, user *models.User) *models.SoilPhoto {
	t.Helper()

	photo := &models.SoilPhoto{
		UserID:        user.ID,
		PhotoURL:      "/uploads/soil-photos/test.jpg",
		PhotoFilename: "test.jpg",
		StorageKey:    "soil-photos/test.jpg",
	}
	if err := db.Create(photo).Error; err != nil {
		t.Fatalf("failed to create soil photo: %v", err)
	}
	return photo
}

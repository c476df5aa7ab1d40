package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/adopt-a-pet/internal/auth"
	"github.com/hugh/adopt-a-pet/internal/database"
	"github.com/hugh/adopt-a-pet/internal/database/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestPassword is the password of every user made by CreateTestUser.
const TestPassword = "testpassword123"

// SetupTestDB creates a private in-memory SQLite database with the schema
// applied. It is closed when the test ends.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		sqlDB.Close()
	})

	return db
}

// CreateTestUser inserts a user with TestPassword.
func CreateTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	hash, err := auth.HashPassword(TestPassword)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	return user
}

// CreateSavedAnimal stores an animal and marks it saved by user.
func CreateSavedAnimal(t *testing.T, db *gorm.DB, user *models.User, id, name string) *models.Animal {
	t.Helper()

	animal := &models.Animal{ID: id, Name: name, ImageURL: models.PlaceholderImageURL}
	if err := db.FirstOrCreate(animal, "id = ?", id).Error; err != nil {
		t.Fatalf("failed to create test animal: %v", err)
	}
	if err := db.Create(&models.SavedAnimal{UserID: user.ID, AnimalID: id}).Error; err != nil {
		t.Fatalf("failed to save test animal: %v", err)
	}

	return animal
}

// CreateSavedOrganization stores an organization and marks it saved by user.
func CreateSavedOrganization(t *testing.T, db *gorm.DB, user *models.User, id, name string) *models.Organization {
	t.Helper()

	org := &models.Organization{ID: id, Name: name, ImageURL: models.PlaceholderImageURL}
	if err := db.FirstOrCreate(org, "id = ?", id).Error; err != nil {
		t.Fatalf("failed to create test organization: %v", err)
	}
	if err := db.Create(&models.SavedOrganization{UserID: user.ID, OrganizationID: id}).Error; err != nil {
		t.Fatalf("failed to save test organization: %v", err)
	}

	return org
}

// CountRows returns the number of rows in model's table.
func CountRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()

	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	return n
}

// TestContext creates a context with a timeout for tests
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

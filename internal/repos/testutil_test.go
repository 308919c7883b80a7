package repos

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/coursecal/coursecal-backend/internal/logger"
	"github.com/coursecal/coursecal-backend/internal/types"
)

// Repo tests need a real postgres. Set TEST_POSTGRES_DSN to run them, e.g.
// TEST_POSTGRES_DSN="host=localhost user=postgres dbname=coursecal_test sslmode=disable"
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set, skipping postgres-backed test")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		t.Fatalf("enable uuid-ossp: %v", err)
	}
	if err := db.AutoMigrate(
		&types.User{},
		&types.UserToken{},
		&types.Class{},
		&types.Syllabus{},
		&types.CalendarEvent{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func repoTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("build logger: %v", err)
	}
	return log
}

func seedUser(t *testing.T, db *gorm.DB) *types.User {
	t.Helper()
	user := &types.User{
		ID:        uuid.New(),
		Email:     fmt.Sprintf("test-%s@example.com", uuid.New()),
		Password:  "hashed",
		FirstName: "Test",
		LastName:  "User",
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	t.Cleanup(func() {
		db.Unscoped().Where("user_id = ?", user.ID).Delete(&types.CalendarEvent{})
		db.Unscoped().Where("user_id = ?", user.ID).Delete(&types.Syllabus{})
		db.Unscoped().Where("user_id = ?", user.ID).Delete(&types.Class{})
		db.Unscoped().Where("user_id = ?", user.ID).Delete(&types.UserToken{})
		db.Unscoped().Where("id = ?", user.ID).Delete(&types.User{})
	})
	return user
}

func seedClass(t *testing.T, db *gorm.DB, user *types.User) *types.Class {
	t.Helper()
	class := &types.Class{
		ID:     uuid.New(),
		UserID: user.ID,
		Name:   "Test Class",
		Term:   "Fall 2024",
	}
	if err := db.Create(class).Error; err != nil {
		t.Fatalf("seed class: %v", err)
	}
	return class
}

func seedEvent(t *testing.T, db *gorm.DB, user *types.User, class *types.Class, title, dueDate string) *types.CalendarEvent {
	t.Helper()
	ev := &types.CalendarEvent{
		ID:               uuid.New(),
		UserID:           user.ID,
		ClassID:          class.ID,
		Title:            title,
		EventType:        types.EventTypeAssignment,
		DueDate:          dueDate,
		ExtractionMethod: types.ExtractionMethodManual,
	}
	if err := db.Create(ev).Error; err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return ev
}

func testCtx() context.Context {
	return context.Background()
}

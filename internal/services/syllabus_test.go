package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/coursecal/coursecal-backend/internal/repos"
	"github.com/coursecal/coursecal-backend/internal/requestdata"
	"github.com/coursecal/coursecal-backend/internal/types"
)

// Pipeline tests exercise the real repos against postgres; set
// TEST_POSTGRES_DSN to run them.
func openPipelineDB(t *testing.T) *gorm.DB {
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

// countingExtractor returns a fixed candidate list and records how often it
// was asked.
type countingExtractor struct {
	calls      int
	candidates []CandidateEvent
}

func (ce *countingExtractor) Extract(ctx context.Context, text string) []CandidateEvent {
	ce.calls++
	return ce.candidates
}

type pipelineFixture struct {
	db              *gorm.DB
	ctx             context.Context
	user            *types.User
	class           *types.Class
	extractor       *countingExtractor
	syllabusService SyllabusService
	syllabusRepo    repos.SyllabusRepo
	eventRepo       repos.CalendarEventRepo
}

func newPipelineFixture(t *testing.T, extractor *countingExtractor) *pipelineFixture {
	t.Helper()
	db := openPipelineDB(t)
	log := testLogger(t)

	user := &types.User{
		ID:        uuid.New(),
		Email:     fmt.Sprintf("pipeline-%s@example.com", uuid.New()),
		Password:  "hashed",
		FirstName: "Pipe",
		LastName:  "Line",
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	class := &types.Class{ID: uuid.New(), UserID: user.ID, Name: "Pipeline 101"}
	if err := db.Create(class).Error; err != nil {
		t.Fatalf("seed class: %v", err)
	}
	t.Cleanup(func() {
		db.Unscoped().Where("user_id = ?", user.ID).Delete(&types.CalendarEvent{})
		db.Unscoped().Where("user_id = ?", user.ID).Delete(&types.Syllabus{})
		db.Unscoped().Where("user_id = ?", user.ID).Delete(&types.Class{})
		db.Unscoped().Where("id = ?", user.ID).Delete(&types.User{})
	})

	classRepo := repos.NewClassRepo(db, log)
	syllabusRepo := repos.NewSyllabusRepo(db, log)
	eventRepo := repos.NewCalendarEventRepo(db, log)
	classService := NewClassService(db, log, classRepo, eventRepo)
	syllabusService := NewSyllabusService(db, log, syllabusRepo, eventRepo, classService, extractor, nil)

	ctx := requestdata.WithRequestData(context.Background(), &requestdata.RequestData{UserID: user.ID})
	return &pipelineFixture{
		db:              db,
		ctx:             ctx,
		user:            user,
		class:           class,
		extractor:       extractor,
		syllabusService: syllabusService,
		syllabusRepo:    syllabusRepo,
		eventRepo:       eventRepo,
	}
}

func TestUploadRejectsNonPDFBeforeExtraction(t *testing.T) {
	extractor := &countingExtractor{}
	fx := newPipelineFixture(t, extractor)

	_, err := fx.syllabusService.UploadAndExtract(fx.ctx, fx.class.ID, "notes.txt", "text/plain", []byte("plain text"))
	if !errors.Is(err, ErrUnsupportedDocumentType) {
		t.Fatalf("expected ErrUnsupportedDocumentType, got %v", err)
	}
	if extractor.calls != 0 {
		t.Fatalf("extractor must never run for rejected uploads, got %d calls", extractor.calls)
	}

	syllabi, err := fx.syllabusRepo.GetByClassIDs(fx.ctx, nil, []uuid.UUID{fx.class.ID})
	if err != nil {
		t.Fatalf("list syllabi: %v", err)
	}
	if len(syllabi) != 0 {
		t.Fatalf("rejected upload must not create a syllabus row, found %d", len(syllabi))
	}
}

func TestUploadRejectsUnownedClass(t *testing.T) {
	extractor := &countingExtractor{}
	fx := newPipelineFixture(t, extractor)

	strangerCtx := requestdata.WithRequestData(context.Background(), &requestdata.RequestData{UserID: uuid.New()})
	_, err := fx.syllabusService.UploadAndExtract(strangerCtx, fx.class.ID, "notes.txt", "text/plain", []byte("x"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another user's class, got %v", err)
	}
}

func TestReprocessValidatesAndDedupes(t *testing.T) {
	desc := "covers chapters 1-3"
	extractor := &countingExtractor{candidates: []CandidateEvent{
		{Title: "Midterm Exam", Description: &desc, EventType: types.EventTypeExam, DueDate: "2024-10-15", ConfidenceScore: 0.9, SourceText: "Midterm: Oct 15, 2024"},
		{Title: "midterm exam", EventType: types.EventTypeExam, DueDate: "2024-10-15", ConfidenceScore: 0.4},
		{Title: "Week 2 reading", EventType: types.EventTypeReading, DueDate: "2024-09-10", ConfidenceScore: 0.8},
		{Title: "No date", EventType: types.EventTypeQuiz, DueDate: "", ConfidenceScore: 0.8},
	}}
	fx := newPipelineFixture(t, extractor)

	syllabus := &types.Syllabus{
		ID:           uuid.New(),
		ClassID:      fx.class.ID,
		UserID:       fx.user.ID,
		OriginalName: "syllabus.pdf",
		RawText:      "Midterm: Oct 15, 2024",
		Status:       types.SyllabusStatusProcessed,
	}
	if _, err := fx.syllabusRepo.Create(fx.ctx, nil, []*types.Syllabus{syllabus}); err != nil {
		t.Fatalf("seed syllabus: %v", err)
	}

	result, err := fx.syllabusService.Reprocess(fx.ctx, syllabus.ID)
	if err != nil {
		t.Fatalf("reprocess: %v", err)
	}
	if extractor.calls != 1 {
		t.Fatalf("expected one extraction run, got %d", extractor.calls)
	}
	if result.SavedCount != 1 {
		t.Fatalf("expected 1 saved event after validation and dedupe, got %d", result.SavedCount)
	}
	saved := result.Events[0]
	if saved.Title != "Midterm Exam" {
		t.Fatalf("first duplicate must win, got %q", saved.Title)
	}
	if saved.ExtractionMethod != types.ExtractionMethodUpload {
		t.Fatalf("reprocess provenance = %q", saved.ExtractionMethod)
	}
	if saved.SyllabusID == nil || *saved.SyllabusID != syllabus.ID {
		t.Fatalf("saved event not linked to syllabus: %v", saved.SyllabusID)
	}

	stored, err := fx.eventRepo.GetByClassIDs(fx.ctx, nil, []uuid.UUID{fx.class.ID})
	if err != nil {
		t.Fatalf("load stored events: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("expected exactly 1 stored event, got %d", len(stored))
	}
}

func TestReprocessReplacesPreviousEvents(t *testing.T) {
	extractor := &countingExtractor{candidates: []CandidateEvent{
		{Title: "Quiz 1", EventType: types.EventTypeQuiz, DueDate: "2024-09-12", ConfidenceScore: 0.8},
	}}
	fx := newPipelineFixture(t, extractor)

	syllabus := &types.Syllabus{
		ID:           uuid.New(),
		ClassID:      fx.class.ID,
		UserID:       fx.user.ID,
		OriginalName: "syllabus.pdf",
		RawText:      "Quiz 1 on September 12, 2024",
		Status:       types.SyllabusStatusProcessed,
	}
	if _, err := fx.syllabusRepo.Create(fx.ctx, nil, []*types.Syllabus{syllabus}); err != nil {
		t.Fatalf("seed syllabus: %v", err)
	}

	if _, err := fx.syllabusService.Reprocess(fx.ctx, syllabus.ID); err != nil {
		t.Fatalf("first reprocess: %v", err)
	}
	if _, err := fx.syllabusService.Reprocess(fx.ctx, syllabus.ID); err != nil {
		t.Fatalf("second reprocess: %v", err)
	}

	stored, err := fx.eventRepo.GetByClassIDs(fx.ctx, nil, []uuid.UUID{fx.class.ID})
	if err != nil {
		t.Fatalf("load stored events: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("reprocess must replace, not append: got %d events", len(stored))
	}
}

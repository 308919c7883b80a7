package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coursecal/coursecal-backend/internal/logger"
	"github.com/coursecal/coursecal-backend/internal/repos"
	"github.com/coursecal/coursecal-backend/internal/requestdata"
	"github.com/coursecal/coursecal-backend/internal/types"
)

// UploadResult is what the upload endpoint returns: the stored syllabus row
// plus the events that survived validation and deduplication.
type UploadResult struct {
	Syllabus   *types.Syllabus        `json:"syllabus"`
	SavedCount int                    `json:"saved_count"`
	Events     []*types.CalendarEvent `json:"events"`
}

type SyllabusService interface {
	// UploadAndExtract runs the whole pipeline for one uploaded document:
	// text acquisition, event extraction, validation, deduplication and a
	// single-transaction save. Unsupported document types are rejected before
	// any model call is made.
	UploadAndExtract(ctx context.Context, classID uuid.UUID, originalName, mimeType string, data []byte) (*UploadResult, error)
	// Reprocess reruns extraction from the stored raw text, replacing the
	// events previously derived from this syllabus.
	Reprocess(ctx context.Context, syllabusID uuid.UUID) (*UploadResult, error)
	ListByClass(ctx context.Context, classID uuid.UUID) ([]*types.Syllabus, error)
	DeleteSyllabus(ctx context.Context, syllabusID uuid.UUID) error
}

type syllabusService struct {
	db           *gorm.DB
	log          *logger.Logger
	syllabusRepo repos.SyllabusRepo
	eventRepo    repos.CalendarEventRepo
	classService ClassService
	extractor    EventExtractor
	bucket       BucketService
}

func NewSyllabusService(
	db *gorm.DB,
	baseLog *logger.Logger,
	syllabusRepo repos.SyllabusRepo,
	eventRepo repos.CalendarEventRepo,
	classService ClassService,
	extractor EventExtractor,
	bucket BucketService,
) SyllabusService {
	return &syllabusService{
		db:           db,
		log:          baseLog.With("service", "SyllabusService"),
		syllabusRepo: syllabusRepo,
		eventRepo:    eventRepo,
		classService: classService,
		extractor:    extractor,
		bucket:       bucket,
	}
}

func (ss *syllabusService) UploadAndExtract(ctx context.Context, classID uuid.UUID, originalName, mimeType string, data []byte) (*UploadResult, error) {
	class, err := ss.classService.RequireOwnedClass(ctx, nil, classID)
	if err != nil {
		return nil, err
	}

	// Text acquisition comes first so an unsupported upload is turned away
	// before anything is stored or the model is called.
	text, err := ExtractDocumentText(originalName, mimeType, data)
	if err != nil {
		if errors.Is(err, ErrUnsupportedDocumentType) {
			return nil, fmt.Errorf("unsupported document type %q, upload a PDF: %w", mimeType, err)
		}
		return nil, fmt.Errorf("could not extract text from %q: %w", originalName, err)
	}

	syllabus := &types.Syllabus{
		ID:           uuid.New(),
		ClassID:      class.ID,
		UserID:       class.UserID,
		OriginalName: originalName,
		MimeType:     mimeType,
		SizeBytes:    int64(len(data)),
		RawText:      text,
		Status:       types.SyllabusStatusProcessing,
	}
	syllabus.StorageKey = fmt.Sprintf("syllabi/%s/%s%s", class.ID, syllabus.ID, strings.ToLower(filepath.Ext(originalName)))

	if ss.bucket != nil {
		if upErr := ss.bucket.UploadFile(ctx, syllabus.StorageKey, bytes.NewReader(data)); upErr != nil {
			return nil, fmt.Errorf("store syllabus file: %w", upErr)
		}
		syllabus.FileURL = ss.bucket.GetPublicURL(syllabus.StorageKey)
	}

	if _, err := ss.syllabusRepo.Create(ctx, nil, []*types.Syllabus{syllabus}); err != nil {
		return nil, fmt.Errorf("create syllabus record: %w", err)
	}

	saved, err := ss.runExtraction(ctx, syllabus, text, types.ExtractionMethodLLM)
	if err != nil {
		_ = ss.syllabusRepo.UpdateFields(ctx, nil, syllabus.ID, map[string]interface{}{"status": types.SyllabusStatusFailed})
		return nil, err
	}
	syllabus.Status = types.SyllabusStatusProcessed
	ss.log.Info("Syllabus processed",
		"syllabus_id", syllabus.ID,
		"class_id", class.ID,
		"saved_count", len(saved))
	return &UploadResult{Syllabus: syllabus, SavedCount: len(saved), Events: saved}, nil
}

func (ss *syllabusService) Reprocess(ctx context.Context, syllabusID uuid.UUID) (*UploadResult, error) {
	syllabus, err := ss.requireOwnedSyllabus(ctx, syllabusID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(syllabus.RawText) == "" {
		return nil, fmt.Errorf("syllabus %s has no stored text to reprocess", syllabusID)
	}
	if err := ss.syllabusRepo.UpdateFields(ctx, nil, syllabus.ID, map[string]interface{}{"status": types.SyllabusStatusProcessing}); err != nil {
		return nil, fmt.Errorf("mark syllabus processing: %w", err)
	}
	saved, err := ss.runExtraction(ctx, syllabus, syllabus.RawText, types.ExtractionMethodUpload)
	if err != nil {
		_ = ss.syllabusRepo.UpdateFields(ctx, nil, syllabus.ID, map[string]interface{}{"status": types.SyllabusStatusFailed})
		return nil, err
	}
	syllabus.Status = types.SyllabusStatusProcessed
	return &UploadResult{Syllabus: syllabus, SavedCount: len(saved), Events: saved}, nil
}

// runExtraction is the shared back half of the pipeline: extract, validate,
// dedupe, then replace this syllabus's previous events and insert the new
// batch in one transaction.
func (ss *syllabusService) runExtraction(ctx context.Context, syllabus *types.Syllabus, text, method string) ([]*types.CalendarEvent, error) {
	candidates := ss.extractor.Extract(ctx, text)
	validated := ValidateCandidates(candidates)
	deduped := DedupeCandidates(validated)
	ss.log.Info("Extraction pipeline finished",
		"syllabus_id", syllabus.ID,
		"extracted", len(candidates),
		"validated", len(validated),
		"deduped", len(deduped))

	events := make([]*types.CalendarEvent, 0, len(deduped))
	for _, c := range deduped {
		confidence := c.ConfidenceScore
		description := ""
		if c.Description != nil {
			description = *c.Description
		}
		syllabusID := syllabus.ID
		events = append(events, &types.CalendarEvent{
			ID:               uuid.New(),
			UserID:           syllabus.UserID,
			ClassID:          syllabus.ClassID,
			SyllabusID:       &syllabusID,
			Title:            c.Title,
			Description:      description,
			EventType:        c.EventType,
			DueDate:          c.DueDate,
			DueTime:          c.DueTime,
			ConfidenceScore:  &confidence,
			SourceText:       c.SourceText,
			ExtractionMethod: method,
		})
	}

	err := ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if dErr := ss.eventRepo.FullDeleteBySyllabusIDs(ctx, tx, []uuid.UUID{syllabus.ID}); dErr != nil {
			return fmt.Errorf("clear previous events: %w", dErr)
		}
		if _, cErr := ss.eventRepo.Create(ctx, tx, events); cErr != nil {
			return fmt.Errorf("save events: %w", cErr)
		}
		return ss.syllabusRepo.UpdateFields(ctx, tx, syllabus.ID, map[string]interface{}{"status": types.SyllabusStatusProcessed})
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (ss *syllabusService) ListByClass(ctx context.Context, classID uuid.UUID) ([]*types.Syllabus, error) {
	if _, err := ss.classService.RequireOwnedClass(ctx, nil, classID); err != nil {
		return nil, err
	}
	syllabi, err := ss.syllabusRepo.GetByClassIDs(ctx, nil, []uuid.UUID{classID})
	if err != nil {
		return nil, fmt.Errorf("list syllabi: %w", err)
	}
	if syllabi == nil {
		syllabi = []*types.Syllabus{}
	}
	return syllabi, nil
}

func (ss *syllabusService) DeleteSyllabus(ctx context.Context, syllabusID uuid.UUID) error {
	syllabus, err := ss.requireOwnedSyllabus(ctx, syllabusID)
	if err != nil {
		return err
	}
	err = ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if dErr := ss.eventRepo.FullDeleteBySyllabusIDs(ctx, tx, []uuid.UUID{syllabus.ID}); dErr != nil {
			return fmt.Errorf("delete syllabus events: %w", dErr)
		}
		return ss.syllabusRepo.SoftDeleteByIDs(ctx, tx, []uuid.UUID{syllabus.ID})
	})
	if err != nil {
		return err
	}
	if ss.bucket != nil && syllabus.StorageKey != "" {
		if dErr := ss.bucket.DeleteFile(ctx, syllabus.StorageKey); dErr != nil {
			// The database row is already gone; a stranded object is only a
			// storage-cost problem.
			ss.log.Warn("Failed to delete syllabus file from bucket", "storage_key", syllabus.StorageKey, "error", dErr)
		}
	}
	return nil
}

func (ss *syllabusService) requireOwnedSyllabus(ctx context.Context, syllabusID uuid.UUID) (*types.Syllabus, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		return nil, fmt.Errorf("no authenticated user in context")
	}
	syllabi, err := ss.syllabusRepo.GetByIDs(ctx, nil, []uuid.UUID{syllabusID})
	if err != nil {
		return nil, fmt.Errorf("load syllabus: %w", err)
	}
	if len(syllabi) == 0 || syllabi[0].UserID != rd.UserID {
		return nil, fmt.Errorf("syllabus %s: %w", syllabusID, ErrNotFound)
	}
	return syllabi[0], nil
}

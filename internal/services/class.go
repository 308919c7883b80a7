package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coursecal/coursecal-backend/internal/logger"
	"github.com/coursecal/coursecal-backend/internal/repos"
	"github.com/coursecal/coursecal-backend/internal/requestdata"
	"github.com/coursecal/coursecal-backend/internal/types"
)

var ErrNotFound = fmt.Errorf("not found")

type ClassInput struct {
	Name       string `json:"name"`
	Code       string `json:"code"`
	Instructor string `json:"instructor"`
	Term       string `json:"term"`
	Color      string `json:"color"`
}

type ClassService interface {
	CreateClass(ctx context.Context, input *ClassInput) (*types.Class, error)
	GetClass(ctx context.Context, classID uuid.UUID) (*types.Class, error)
	ListClasses(ctx context.Context) ([]*types.Class, error)
	UpdateClass(ctx context.Context, classID uuid.UUID, fields map[string]interface{}) (*types.Class, error)
	DeleteClass(ctx context.Context, classID uuid.UUID) error
	// RequireOwnedClass loads the class and checks it belongs to the
	// authenticated user. Other services use it as their ownership gate.
	RequireOwnedClass(ctx context.Context, tx *gorm.DB, classID uuid.UUID) (*types.Class, error)
}

type classService struct {
	db        *gorm.DB
	log       *logger.Logger
	classRepo repos.ClassRepo
	eventRepo repos.CalendarEventRepo
}

func NewClassService(db *gorm.DB, baseLog *logger.Logger, classRepo repos.ClassRepo, eventRepo repos.CalendarEventRepo) ClassService {
	return &classService{
		db:        db,
		log:       baseLog.With("service", "ClassService"),
		classRepo: classRepo,
		eventRepo: eventRepo,
	}
}

// Class fields a client may update. Anything else in the request body is
// dropped, so ownership and id columns cannot be overwritten.
var classUpdatableFields = map[string]bool{
	"name":       true,
	"code":       true,
	"instructor": true,
	"term":       true,
	"color":      true,
}

func (cs *classService) CreateClass(ctx context.Context, input *ClassInput) (*types.Class, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		return nil, fmt.Errorf("no authenticated user in context")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("class name is required")
	}
	class := &types.Class{
		ID:         uuid.New(),
		UserID:     rd.UserID,
		Name:       strings.TrimSpace(input.Name),
		Code:       strings.TrimSpace(input.Code),
		Instructor: strings.TrimSpace(input.Instructor),
		Term:       strings.TrimSpace(input.Term),
		Color:      strings.TrimSpace(input.Color),
	}
	if _, err := cs.classRepo.Create(ctx, nil, []*types.Class{class}); err != nil {
		cs.log.Error("CreateClass failed", "error", err)
		return nil, fmt.Errorf("create class: %w", err)
	}
	return class, nil
}

func (cs *classService) GetClass(ctx context.Context, classID uuid.UUID) (*types.Class, error) {
	return cs.RequireOwnedClass(ctx, nil, classID)
}

func (cs *classService) ListClasses(ctx context.Context) ([]*types.Class, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		return nil, fmt.Errorf("no authenticated user in context")
	}
	classes, err := cs.classRepo.GetByUserIDs(ctx, nil, []uuid.UUID{rd.UserID})
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	if classes == nil {
		classes = []*types.Class{}
	}
	return classes, nil
}

func (cs *classService) UpdateClass(ctx context.Context, classID uuid.UUID, fields map[string]interface{}) (*types.Class, error) {
	if _, err := cs.RequireOwnedClass(ctx, nil, classID); err != nil {
		return nil, err
	}
	filtered := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if classUpdatableFields[k] {
			filtered[k] = v
		}
	}
	if len(filtered) > 0 {
		if err := cs.classRepo.UpdateFields(ctx, nil, classID, filtered); err != nil {
			return nil, fmt.Errorf("update class: %w", err)
		}
	}
	classes, err := cs.classRepo.GetByIDs(ctx, nil, []uuid.UUID{classID})
	if err != nil || len(classes) == 0 {
		return nil, fmt.Errorf("reload class after update")
	}
	return classes[0], nil
}

func (cs *classService) DeleteClass(ctx context.Context, classID uuid.UUID) error {
	if _, err := cs.RequireOwnedClass(ctx, nil, classID); err != nil {
		return err
	}
	return cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		events, evErr := cs.eventRepo.GetByClassIDs(ctx, tx, []uuid.UUID{classID})
		if evErr != nil {
			return fmt.Errorf("load class events: %w", evErr)
		}
		eventIDs := make([]uuid.UUID, 0, len(events))
		for _, ev := range events {
			eventIDs = append(eventIDs, ev.ID)
		}
		if dErr := cs.eventRepo.SoftDeleteByIDs(ctx, tx, eventIDs); dErr != nil {
			return fmt.Errorf("delete class events: %w", dErr)
		}
		if dErr := cs.classRepo.SoftDeleteByIDs(ctx, tx, []uuid.UUID{classID}); dErr != nil {
			return fmt.Errorf("delete class: %w", dErr)
		}
		return nil
	})
}

func (cs *classService) RequireOwnedClass(ctx context.Context, tx *gorm.DB, classID uuid.UUID) (*types.Class, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		return nil, fmt.Errorf("no authenticated user in context")
	}
	classes, err := cs.classRepo.GetByIDs(ctx, tx, []uuid.UUID{classID})
	if err != nil {
		return nil, fmt.Errorf("load class: %w", err)
	}
	// Missing and not-owned report the same error so the response does not
	// reveal whether another user's class id exists.
	if len(classes) == 0 || classes[0].UserID != rd.UserID {
		return nil, fmt.Errorf("class %s: %w", classID, ErrNotFound)
	}
	return classes[0], nil
}

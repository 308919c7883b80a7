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

// Event types a client can set directly. Wider than the extraction allow-list:
// manual entries may also be readings or "other", and "google_calendar" is
// reserved for the sync path.
var manualEventTypes = map[string]bool{
	types.EventTypeAssignment: true,
	types.EventTypeExam:       true,
	types.EventTypeQuiz:       true,
	types.EventTypeProject:    true,
	types.EventTypeReading:    true,
	types.EventTypeDeadline:   true,
	types.EventTypeOther:      true,
}

type EventInput struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	EventType   string  `json:"event_type"`
	DueDate     string  `json:"due_date"`
	DueTime     *string `json:"due_time"`
}

type CalendarEventService interface {
	ListByClass(ctx context.Context, classID uuid.UUID) ([]*types.CalendarEvent, error)
	ListByUser(ctx context.Context) ([]*types.CalendarEvent, error)
	CreateManual(ctx context.Context, classID uuid.UUID, input *EventInput) (*types.CalendarEvent, error)
	UpdateEvent(ctx context.Context, eventID uuid.UUID, fields map[string]interface{}) (*types.CalendarEvent, error)
	DeleteEvent(ctx context.Context, eventID uuid.UUID) error
}

type calendarEventService struct {
	db           *gorm.DB
	log          *logger.Logger
	eventRepo    repos.CalendarEventRepo
	classService ClassService
}

func NewCalendarEventService(db *gorm.DB, baseLog *logger.Logger, eventRepo repos.CalendarEventRepo, classService ClassService) CalendarEventService {
	return &calendarEventService{
		db:           db,
		log:          baseLog.With("service", "CalendarEventService"),
		eventRepo:    eventRepo,
		classService: classService,
	}
}

func (es *calendarEventService) ListByClass(ctx context.Context, classID uuid.UUID) ([]*types.CalendarEvent, error) {
	if _, err := es.classService.RequireOwnedClass(ctx, nil, classID); err != nil {
		return nil, err
	}
	events, err := es.eventRepo.GetByClassIDs(ctx, nil, []uuid.UUID{classID})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if events == nil {
		events = []*types.CalendarEvent{}
	}
	return events, nil
}

func (es *calendarEventService) ListByUser(ctx context.Context) ([]*types.CalendarEvent, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		return nil, fmt.Errorf("no authenticated user in context")
	}
	events, err := es.eventRepo.GetByUserID(ctx, nil, rd.UserID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if events == nil {
		events = []*types.CalendarEvent{}
	}
	return events, nil
}

func (es *calendarEventService) CreateManual(ctx context.Context, classID uuid.UUID, input *EventInput) (*types.CalendarEvent, error) {
	class, err := es.classService.RequireOwnedClass(ctx, nil, classID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("event title is required")
	}
	if !validDueDate(input.DueDate) {
		return nil, fmt.Errorf("due_date must be a valid YYYY-MM-DD date")
	}
	if !manualEventTypes[input.EventType] {
		return nil, fmt.Errorf("invalid event_type %q", input.EventType)
	}
	if input.DueTime != nil {
		if _, _, tErr := SplitDueTime(*input.DueTime); tErr != nil {
			return nil, fmt.Errorf("due_time must be HH:MM: %w", tErr)
		}
	}

	event := &types.CalendarEvent{
		ID:               uuid.New(),
		UserID:           class.UserID,
		ClassID:          class.ID,
		Title:            strings.TrimSpace(input.Title),
		Description:      input.Description,
		EventType:        input.EventType,
		DueDate:          input.DueDate,
		DueTime:          input.DueTime,
		ExtractionMethod: types.ExtractionMethodManual,
	}
	if _, err := es.eventRepo.Create(ctx, nil, []*types.CalendarEvent{event}); err != nil {
		es.log.Error("CreateManual failed", "error", err)
		return nil, fmt.Errorf("create event: %w", err)
	}
	return event, nil
}

// Event fields a client may update. Provenance, export state and ownership
// columns stay server-controlled.
var eventUpdatableFields = map[string]bool{
	"title":       true,
	"description": true,
	"event_type":  true,
	"due_date":    true,
	"due_time":    true,
}

func (es *calendarEventService) UpdateEvent(ctx context.Context, eventID uuid.UUID, fields map[string]interface{}) (*types.CalendarEvent, error) {
	event, err := es.requireOwnedEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	filtered := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if eventUpdatableFields[k] {
			filtered[k] = v
		}
	}
	if v, ok := filtered["due_date"].(string); ok && !validDueDate(v) {
		return nil, fmt.Errorf("due_date must be a valid YYYY-MM-DD date")
	}
	if v, ok := filtered["event_type"].(string); ok && !manualEventTypes[v] {
		return nil, fmt.Errorf("invalid event_type %q", v)
	}
	if v, ok := filtered["due_time"].(string); ok && v != "" {
		if _, _, tErr := SplitDueTime(v); tErr != nil {
			return nil, fmt.Errorf("due_time must be HH:MM: %w", tErr)
		}
	}
	if len(filtered) > 0 {
		// An edited event needs re-exporting for calendars to pick it up.
		filtered["is_exported"] = false
		if err := es.eventRepo.UpdateFields(ctx, nil, event.ID, filtered); err != nil {
			return nil, fmt.Errorf("update event: %w", err)
		}
	}
	events, err := es.eventRepo.GetByIDs(ctx, nil, []uuid.UUID{event.ID})
	if err != nil || len(events) == 0 {
		return nil, fmt.Errorf("reload event after update")
	}
	return events[0], nil
}

func (es *calendarEventService) DeleteEvent(ctx context.Context, eventID uuid.UUID) error {
	event, err := es.requireOwnedEvent(ctx, eventID)
	if err != nil {
		return err
	}
	return es.eventRepo.SoftDeleteByIDs(ctx, nil, []uuid.UUID{event.ID})
}

func (es *calendarEventService) requireOwnedEvent(ctx context.Context, eventID uuid.UUID) (*types.CalendarEvent, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		return nil, fmt.Errorf("no authenticated user in context")
	}
	events, err := es.eventRepo.GetByIDs(ctx, nil, []uuid.UUID{eventID})
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}
	if len(events) == 0 || events[0].UserID != rd.UserID {
		return nil, fmt.Errorf("event %s: %w", eventID, ErrNotFound)
	}
	return events[0], nil
}

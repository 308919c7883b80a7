package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coursecal/coursecal-backend/internal/logger"
	"github.com/coursecal/coursecal-backend/internal/types"
)

type CalendarEventRepo interface {
	// Create inserts the batch in a single statement. gorm issues one INSERT
	// for the slice, so either every row is written or the whole batch fails.
	Create(ctx context.Context, tx *gorm.DB, events []*types.CalendarEvent) ([]*types.CalendarEvent, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, eventIDs []uuid.UUID) ([]*types.CalendarEvent, error)
	GetByClassIDs(ctx context.Context, tx *gorm.DB, classIDs []uuid.UUID) ([]*types.CalendarEvent, error)
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.CalendarEvent, error)
	GetUnexportedByClassID(ctx context.Context, tx *gorm.DB, classID uuid.UUID) ([]*types.CalendarEvent, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, eventID uuid.UUID, fields map[string]interface{}) error
	MarkExported(ctx context.Context, tx *gorm.DB, uidByEventID map[uuid.UUID]string, exportedAt time.Time) error
	SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, eventIDs []uuid.UUID) error
	FullDeleteBySyllabusIDs(ctx context.Context, tx *gorm.DB, syllabusIDs []uuid.UUID) error
}

type calendarEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCalendarEventRepo(db *gorm.DB, baseLog *logger.Logger) CalendarEventRepo {
	return &calendarEventRepo{db: db, log: baseLog.With("repo", "CalendarEventRepo")}
}

func (r *calendarEventRepo) Create(ctx context.Context, tx *gorm.DB, events []*types.CalendarEvent) ([]*types.CalendarEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(events) == 0 {
		return []*types.CalendarEvent{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *calendarEventRepo) GetByIDs(ctx context.Context, tx *gorm.DB, eventIDs []uuid.UUID) ([]*types.CalendarEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.CalendarEvent
	if len(eventIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", eventIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *calendarEventRepo) GetByClassIDs(ctx context.Context, tx *gorm.DB, classIDs []uuid.UUID) ([]*types.CalendarEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.CalendarEvent
	if len(classIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("class_id IN ?", classIDs).
		Order("due_date ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *calendarEventRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.CalendarEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.CalendarEvent
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("due_date ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *calendarEventRepo) GetUnexportedByClassID(ctx context.Context, tx *gorm.DB, classID uuid.UUID) ([]*types.CalendarEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.CalendarEvent
	if err := transaction.WithContext(ctx).
		Where("class_id = ? AND is_exported = ?", classID, false).
		Order("due_date ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *calendarEventRepo) UpdateFields(ctx context.Context, tx *gorm.DB, eventID uuid.UUID, fields map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(fields) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.CalendarEvent{}).
		Where("id = ?", eventID).
		Updates(fields).Error
}

func (r *calendarEventRepo) MarkExported(ctx context.Context, tx *gorm.DB, uidByEventID map[uuid.UUID]string, exportedAt time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	for eventID, uid := range uidByEventID {
		err := transaction.WithContext(ctx).
			Model(&types.CalendarEvent{}).
			Where("id = ?", eventID).
			Updates(map[string]interface{}{
				"is_exported": true,
				"exported_at": exportedAt,
				"ics_uid":     uid,
			}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *calendarEventRepo) SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, eventIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(eventIDs) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("id IN ?", eventIDs).
		Delete(&types.CalendarEvent{}).Error
}

func (r *calendarEventRepo) FullDeleteBySyllabusIDs(ctx context.Context, tx *gorm.DB, syllabusIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(syllabusIDs) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Unscoped().
		Where("syllabus_id IN ?", syllabusIDs).
		Delete(&types.CalendarEvent{}).Error
}

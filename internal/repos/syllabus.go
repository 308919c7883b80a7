package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coursecal/coursecal-backend/internal/logger"
	"github.com/coursecal/coursecal-backend/internal/types"
)

type SyllabusRepo interface {
	Create(ctx context.Context, tx *gorm.DB, syllabi []*types.Syllabus) ([]*types.Syllabus, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, syllabusIDs []uuid.UUID) ([]*types.Syllabus, error)
	GetByClassIDs(ctx context.Context, tx *gorm.DB, classIDs []uuid.UUID) ([]*types.Syllabus, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, syllabusID uuid.UUID, fields map[string]interface{}) error
	SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, syllabusIDs []uuid.UUID) error
}

type syllabusRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSyllabusRepo(db *gorm.DB, baseLog *logger.Logger) SyllabusRepo {
	return &syllabusRepo{db: db, log: baseLog.With("repo", "SyllabusRepo")}
}

func (r *syllabusRepo) Create(ctx context.Context, tx *gorm.DB, syllabi []*types.Syllabus) ([]*types.Syllabus, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(syllabi) == 0 {
		return []*types.Syllabus{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&syllabi).Error; err != nil {
		return nil, err
	}
	return syllabi, nil
}

func (r *syllabusRepo) GetByIDs(ctx context.Context, tx *gorm.DB, syllabusIDs []uuid.UUID) ([]*types.Syllabus, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Syllabus
	if len(syllabusIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", syllabusIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *syllabusRepo) GetByClassIDs(ctx context.Context, tx *gorm.DB, classIDs []uuid.UUID) ([]*types.Syllabus, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Syllabus
	if len(classIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("class_id IN ?", classIDs).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *syllabusRepo) UpdateFields(ctx context.Context, tx *gorm.DB, syllabusID uuid.UUID, fields map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(fields) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Syllabus{}).
		Where("id = ?", syllabusID).
		Updates(fields).Error
}

func (r *syllabusRepo) SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, syllabusIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(syllabusIDs) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("id IN ?", syllabusIDs).
		Delete(&types.Syllabus{}).Error
}

package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coursecal/coursecal-backend/internal/logger"
	"github.com/coursecal/coursecal-backend/internal/types"
)

type ClassRepo interface {
	Create(ctx context.Context, tx *gorm.DB, classes []*types.Class) ([]*types.Class, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, classIDs []uuid.UUID) ([]*types.Class, error)
	GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.Class, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, classID uuid.UUID, fields map[string]interface{}) error
	SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, classIDs []uuid.UUID) error
}

type classRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewClassRepo(db *gorm.DB, baseLog *logger.Logger) ClassRepo {
	return &classRepo{db: db, log: baseLog.With("repo", "ClassRepo")}
}

func (r *classRepo) Create(ctx context.Context, tx *gorm.DB, classes []*types.Class) ([]*types.Class, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(classes) == 0 {
		return []*types.Class{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&classes).Error; err != nil {
		return nil, err
	}
	return classes, nil
}

func (r *classRepo) GetByIDs(ctx context.Context, tx *gorm.DB, classIDs []uuid.UUID) ([]*types.Class, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Class
	if len(classIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", classIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *classRepo) GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.Class, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Class
	if len(userIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *classRepo) UpdateFields(ctx context.Context, tx *gorm.DB, classID uuid.UUID, fields map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(fields) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Class{}).
		Where("id = ?", classID).
		Updates(fields).Error
}

func (r *classRepo) SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, classIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(classIDs) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("id IN ?", classIDs).
		Delete(&types.Class{}).Error
}

package repository

import (
	"context"
	"errors"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type PasswordResetGormRepository struct {
	db *gorm.DB
}

// DI
func NewPasswordResetGormRepository(db *gorm.DB) *PasswordResetGormRepository {
	return &PasswordResetGormRepository{db: db}
}

func (r *PasswordResetGormRepository) Create(ctx context.Context, t model.PasswordResetToken) (model.PasswordResetToken, error) {
	if err := r.db.WithContext(ctx).Create(&t).Error; err != nil {
		return model.PasswordResetToken{}, err
	}
	return t, nil
}

func (r *PasswordResetGormRepository) FindByToken(ctx context.Context, token string) (model.PasswordResetToken, error) {
	var t model.PasswordResetToken
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.PasswordResetToken{}, repo.ErrNotFound
	}
	if err != nil {
		return model.PasswordResetToken{}, err
	}
	return t, nil
}

func (r *PasswordResetGormRepository) MarkUsed(ctx context.Context, id int64, usedAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.PasswordResetToken{}).
		Where("id = ? AND used_at IS NULL", id).
		Update("used_at", usedAt)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

package repository

import (
	"app/internal/domain/model"
	"context"
	"time"
)

type PasswordResetRepository interface {
	Create(ctx context.Context, t model.PasswordResetToken) (model.PasswordResetToken, error)
	FindByToken(ctx context.Context, token string) (model.PasswordResetToken, error)
	//使用済みマーク（再利用防止）
	MarkUsed(ctx context.Context, id int64, usedAt time.Time) error
}

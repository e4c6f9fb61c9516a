package repository

import (
	"app/internal/domain/model"
	"context"
)

type WishlistRepository interface {
	ListByUserID(ctx context.Context, userID int64) ([]model.WishlistItem, error)
	//既にあれば何もしない
	Add(ctx context.Context, userID int64, productID int64) error
	Remove(ctx context.Context, userID int64, productID int64) error
	Exists(ctx context.Context, userID int64, productID int64) (bool, error)
}

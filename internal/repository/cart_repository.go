package repository

import (
	"context"

	"github.com/Kartik-Sangwan/dtk-site/internal/domain/model"
)

type CartRepository interface {
	Create(ctx context.Context, cart model.Cart) error
	FindByID(ctx context.Context, cartID string) (model.Cart, error)
	FindActiveByUserID(ctx context.Context, userID int64) (model.Cart, error)
	AttachUser(ctx context.Context, cartID string, userID int64) error
	UpdateStatus(ctx context.Context, cartID string, status model.CartStatus) error
	// 明細ごと削除
	Delete(ctx context.Context, cartID string) error
}

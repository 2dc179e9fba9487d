package repository

import (
	"context"

	"github.com/Kartik-Sangwan/dtk-site/internal/domain/model"
)

type CartItemRepository interface {
	// 作成順
	ListByCartID(ctx context.Context, cartID string) ([]model.CartItem, error)
	// 同一部品は数量加算、無ければ作成
	Increment(ctx context.Context, cartID string, partNo string, inc int64) error
	// 数量を上書き、無ければ作成
	SetQty(ctx context.Context, cartID string, partNo string, qty int64) error
	DeleteLine(ctx context.Context, cartID string, partNo string) error
}

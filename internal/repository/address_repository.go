package repository

import (
	"context"

	"github.com/Kartik-Sangwan/dtk-site/internal/domain/model"
)

// 住所(Address)を保存・取得する窓口。ユーザーにつき1件
type AddressRepository interface {
	FindByUserID(ctx context.Context, userID int64) (model.Address, error)
	// 無ければ作成、あれば上書き
	Upsert(ctx context.Context, address model.Address) (model.Address, error)
}

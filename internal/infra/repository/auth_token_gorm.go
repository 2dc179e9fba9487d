package repository

import (
	"context"
	"time"

	"github.com/Kartik-Sangwan/dtk-site/internal/domain/model"
	repo "github.com/Kartik-Sangwan/dtk-site/internal/repository"

	"gorm.io/gorm"
)

type authTokenGormRepository struct {
	db *gorm.DB //DB接続（GORM）
}

// GORM実装
func NewAuthTokenGormRepository(db *gorm.DB) repo.AuthTokenRepository {
	return &authTokenGormRepository{db: db}
}

// トークンを保存する。
func (r *authTokenGormRepository) Create(ctx context.Context, token *model.AuthToken) error {
	//タイムアウトやキャンセルをDB処理に伝える
	return mapError(r.db.WithContext(ctx).Create(token).Error)
}

// token_hashで1件検索します。
func (r *authTokenGormRepository) FindByHash(ctx context.Context, purpose model.AuthTokenPurpose, tokenHash string) (*model.AuthToken, error) {
	var token model.AuthToken

	err := r.db.WithContext(ctx).
		Where("purpose = ? AND token_hash = ?", purpose, tokenHash).
		First(&token).Error
	if err != nil {
		return nil, mapError(err)
	}

	return &token, nil
}

// consumed_at をセットして「使用済み」にします。
func (r *authTokenGormRepository) MarkConsumed(ctx context.Context, tokenID string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&model.AuthToken{}).
		Where("id = ? AND consumed_at IS NULL", tokenID).
		Update("consumed_at", at)

	if res.Error != nil {
		return res.Error
	}
	//同時に使われた
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *authTokenGormRepository) DeleteOthers(ctx context.Context, userID int64, purpose model.AuthTokenPurpose, keepID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND purpose = ? AND id <> ?", userID, purpose, keepID).
		Delete(&model.AuthToken{}).Error
}

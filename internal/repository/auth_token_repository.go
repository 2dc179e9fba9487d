package repository

import (
	"context"
	"time"

	"github.com/Kartik-Sangwan/dtk-site/internal/domain/model"
)

// メール確認・再設定トークンの保存・取得・消費
type AuthTokenRepository interface {
	Create(ctx context.Context, token *model.AuthToken) error
	FindByHash(ctx context.Context, purpose model.AuthTokenPurpose, tokenHash string) (*model.AuthToken, error)
	// 未使用のときだけ消費する。すでに使われていたら ErrNotFound
	MarkConsumed(ctx context.Context, tokenID string, at time.Time) error
	//同じ用途の他のトークンを消す
	DeleteOthers(ctx context.Context, userID int64, purpose model.AuthTokenPurpose, keepID string) error
}

package repository

import (
	"context"

	"github.com/Kartik-Sangwan/dtk-site/internal/domain/model"
)

// 空文字・0 は絞り込まない
type AuditLogFilter struct {
	ResourceType model.AuditResourceType
	ResourceID   string
	Action       model.AuditAction
	ActorUserID  int64
	Limit        int
	Offset       int
}

// 監査ログは追記のみ
type AuditLogRepository interface {
	Create(ctx context.Context, log model.AuditLog) error
	// 新しい順
	List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLog, error)
}

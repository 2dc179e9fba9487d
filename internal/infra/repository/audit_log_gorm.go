package repository

import (
	"context"

	"github.com/Kartik-Sangwan/dtk-site/internal/domain/model"
	repo "github.com/Kartik-Sangwan/dtk-site/internal/repository"

	"gorm.io/gorm"
)

const (
	auditLogDefaultLimit = 50
	auditLogMaxLimit     = 200
)

type auditLogGormRepository struct {
	db *gorm.DB
}

func NewAuditLogGormRepository(db *gorm.DB) repo.AuditLogRepository {
	return &auditLogGormRepository{db: db}
}

// 注文更新と同じTxで呼ばれる
func (r *auditLogGormRepository) Create(ctx context.Context, log model.AuditLog) error {
	return mapError(r.db.WithContext(ctx).Create(&log).Error)
}

func (r *auditLogGormRepository) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	q := r.db.WithContext(ctx).Model(&model.AuditLog{})

	conds := map[string]any{}
	if f.ResourceType != "" {
		conds["resource_type"] = f.ResourceType
	}
	if f.ResourceID != "" {
		conds["resource_id"] = f.ResourceID
	}
	if f.Action != "" {
		conds["action"] = f.Action
	}
	if f.ActorUserID > 0 {
		conds["actor_user_id"] = f.ActorUserID
	}
	if len(conds) > 0 {
		q = q.Where(conds)
	}

	if f.Limit <= 0 || f.Limit > auditLogMaxLimit {
		f.Limit = auditLogDefaultLimit
	}
	q = q.Order("id desc").Limit(f.Limit).Offset(max(0, f.Offset))

	logs := []model.AuditLog{}
	if err := q.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

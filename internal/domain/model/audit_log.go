package model

import "time"

type AuditAction string

const (
	AuditActionUpdateOrderStatus AuditAction = "UPDATE_ORDER_STATUS"
	// 発送済み注文の追跡URLだけ変えた
	AuditActionUpdateTracking AuditAction = "UPDATE_TRACKING"
)

// ParseAuditAction は一覧の絞り込み用
func ParseAuditAction(s string) (AuditAction, bool) {
	switch a := AuditAction(s); a {
	case AuditActionUpdateOrderStatus, AuditActionUpdateTracking:
		return a, true
	default:
		return "", false
	}
}

type AuditResourceType string

const AuditResourceOrder AuditResourceType = "order"

// スタッフが注文を変えた記録。Before/After は {status, trackingUrl} のJSON
type AuditLog struct {
	ID           int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	ActorUserID  int64             `gorm:"not null;index" json:"actorUserId"`
	Action       AuditAction       `gorm:"type:varchar(50);not null;index" json:"action"`
	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index:ix_audit_resource" json:"resourceType"`
	ResourceID   string            `gorm:"type:varchar(64);not null;index:ix_audit_resource" json:"resourceId"`
	BeforeJSON   string            `gorm:"type:text" json:"before"`
	AfterJSON    string            `gorm:"type:text" json:"after"`
	CreatedAt    time.Time         `gorm:"not null;index" json:"createdAt"`
}

package model

import "time"

type CartStatus string

const (
	CartStatusActive     CartStatus = "ACTIVE"
	CartStatusCheckedOut CartStatus = "CHECKED_OUT"
)

// IDはcookie(dtk_cart_id)に入る不透明な値。ゲストはUserIDなし
type Cart struct {
	ID        string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    *int64     `gorm:"index" json:"user_id,omitempty"`
	Status    CartStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	CreatedAt time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// OwnedBy はそのユーザーのカートか
func (c Cart) OwnedBy(userID int64) bool {
	return c.UserID != nil && *c.UserID == userID
}

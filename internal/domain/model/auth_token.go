package model

import "time"

// トークンの用途
type AuthTokenPurpose string

const (
	AuthTokenEmailVerify   AuthTokenPurpose = "EMAIL_VERIFY"
	AuthTokenPasswordReset AuthTokenPurpose = "PASSWORD_RESET"
)

// メール確認・パスワード再設定の使い捨てトークン。平文は保存しない（sha256のみ）
type AuthToken struct {
	ID         string           `json:"id" gorm:"type:varchar(36);primaryKey"`
	UserID     int64            `json:"userId" gorm:"not null;index"`
	Purpose    AuthTokenPurpose `json:"purpose" gorm:"type:varchar(20);not null;index"`
	TokenHash  string           `json:"-" gorm:"type:varchar(64);not null;uniqueIndex"`
	ExpiresAt  time.Time        `json:"expiresAt" gorm:"not null;index"`
	ConsumedAt *time.Time       `json:"consumedAt"`
	CreatedAt  time.Time        `json:"createdAt" gorm:"not null"`
}

// Usable は未使用かつ期限内か
func (t AuthToken) Usable(now time.Time) bool {
	return t.ConsumedAt == nil && now.Before(t.ExpiresAt)
}

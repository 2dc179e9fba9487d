package model

import "time"

type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleSales    Role = "SALES"
	RoleOps      Role = "OPS"
	RoleAdmin    Role = "ADMIN"
)

// IsStaff は管理画面に入れるロールか
func (r Role) IsStaff() bool {
	return r == RoleSales || r == RoleOps || r == RoleAdmin
}

type User struct {
	ID              int64  `gorm:"primaryKey;autoIncrement"`
	Email           string `gorm:"type:varchar(255);uniqueIndex;not null"`
	Name            string `gorm:"type:varchar(255);not null;default:''"`
	PasswordHash    string `gorm:"column:password_hash;not null"`
	Role            Role   `gorm:"type:varchar(20);not null;default:'CUSTOMER'"`
	TokenVersion    int    `gorm:"not null;default:0"`
	IsActive        bool   `gorm:"not null;default:true"`
	EmailVerifiedAt *time.Time
	LastLoginAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// EmailVerified はメール確認済みか
func (u User) EmailVerified() bool {
	return u.EmailVerifiedAt != nil
}

package model

import "time"

// 配送先住所（ユーザーにつき1件）
type Address struct {
	ID     int64 `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID int64 `gorm:"not null;uniqueIndex" json:"-"`

	//宛名
	Name    string `gorm:"type:varchar(255);not null;default:''" json:"name"`
	Company string `gorm:"type:varchar(255);not null;default:''" json:"company"`
	Phone   string `gorm:"type:varchar(30);not null;default:''" json:"phone"`

	//番地など
	Line1 string `gorm:"type:varchar(255);not null;default:''" json:"line1"`
	Line2 string `gorm:"type:varchar(255);not null;default:''" json:"line2"`

	City       string `gorm:"type:varchar(255);not null;default:''" json:"city"`
	Province   string `gorm:"type:varchar(100);not null;default:''" json:"province"`
	PostalCode string `gorm:"type:varchar(20);not null;default:''" json:"postalCode"`
	Country    string `gorm:"type:varchar(50);not null;default:''" json:"country"`

	CreatedAt time.Time `gorm:"not null" json:"-"`
	UpdatedAt time.Time `gorm:"not null" json:"-"`
}

package model

import "time"

// カートの明細。1カートにつき部品番号は一意
type CartItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"-"`
	CartID    string    `gorm:"type:varchar(36);not null;uniqueIndex:ux_cart_items_cart_part" json:"-"`
	PartNo    string    `gorm:"type:varchar(100);not null;uniqueIndex:ux_cart_items_cart_part" json:"partNo"`
	Qty       int64     `gorm:"not null" json:"qty"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"-"`
}

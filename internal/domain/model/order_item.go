package model

import "time"

// 価格・数量の凍結スナップショット。在庫から再計算しない
type OrderItem struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"-"`
	OrderID        string    `gorm:"type:varchar(36);not null;index" json:"-"`
	PartNo         string    `gorm:"type:varchar(100);not null" json:"partNo"`
	Description    string    `gorm:"type:varchar(255);not null;default:''" json:"description"`
	Qty            int64     `gorm:"not null" json:"qty"`
	UnitPriceCents int64     `gorm:"not null" json:"unitPriceCents"`
	CreatedAt      time.Time `gorm:"not null;autoCreateTime" json:"-"`
}

// LineTotalCents は単価×数量
func (i OrderItem) LineTotalCents() int64 {
	return i.UnitPriceCents * i.Qty
}

package model

import "time"

// 購入単位（商品×サイズ×世代）。在庫台帳の1行。
// Stockは0未満にならない。更新は必ず相対デルタの条件付きUPDATEで行う。
type ProductVariant struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID    int64     `gorm:"not null;index;uniqueIndex:uq_variant" json:"product_id"`
	SizeID       int64     `gorm:"not null;uniqueIndex:uq_variant" json:"size_id"`
	GenerationID int64     `gorm:"not null;uniqueIndex:uq_variant" json:"generation_id"`
	Stock        int64     `gorm:"not null;default:0" json:"stock"`
	CreatedAt    time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

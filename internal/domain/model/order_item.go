package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 注文明細。チェックアウト時にカート明細を凍結コピーして作る。
// 作成後は一切更新しない（削除は注文ごとのpurgeのみ）。
type OrderItem struct {
	ID                int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID           int64           `gorm:"not null;index" json:"order_id"`
	VariantID         int64           `gorm:"not null;index" json:"variant_id"`
	ProductID         int64           `gorm:"not null;index" json:"product_id"`
	Quantity          int64           `gorm:"not null" json:"quantity"`
	UnitPriceSnapshot decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price_snapshot"`
	ProductTitle      string          `gorm:"type:varchar(255);not null" json:"product_title"`
	SizeName          string          `gorm:"type:varchar(50);not null" json:"size_name"`
	GenerationName    string          `gorm:"type:varchar(50);not null" json:"generation_name"`
	CreatedAt         time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
}

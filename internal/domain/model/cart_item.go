package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// カートの明細。
// 価格と表示名は保存時点のスナップショットを必ず持つ（後のカタログ編集に影響されない）。
type CartItem struct {
	ID                int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID            int64           `gorm:"not null;index" json:"cart_id"`
	VariantID         int64           `gorm:"not null;index" json:"variant_id"`
	Quantity          int64           `gorm:"not null" json:"quantity"`
	UnitPriceSnapshot decimal.Decimal `gorm:"type:numeric(12,2);not null;column:unit_price_snapshot" json:"unit_price_snapshot"`
	ProductTitle      string          `gorm:"type:varchar(255);not null" json:"product_title"`
	SizeName          string          `gorm:"type:varchar(50);not null" json:"size_name"`
	GenerationName    string          `gorm:"type:varchar(50);not null" json:"generation_name"`
	CreatedAt         time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

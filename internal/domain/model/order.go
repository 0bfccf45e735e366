package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPlaced         OrderStatus = "PLACED"
	OrderStatusReadyForPickup OrderStatus = "READY_FOR_PICKUP"
	OrderStatusCompleted      OrderStatus = "COMPLETED"
	OrderStatusCanceled       OrderStatus = "CANCELED"
)

// 既知のステータスかどうか。文字列のまま信用しない。
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPlaced, OrderStatusReadyForPickup, OrderStatusCompleted, OrderStatusCanceled:
		return true
	}
	return false
}

// ライフサイクル上の終端（purge対象判定はこれとは別）。
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCanceled
}

// 顧客が行える遷移。自分の注文のキャンセルのみ。
var customerTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPlaced:         {OrderStatusCanceled},
	OrderStatusReadyForPickup: {OrderStatusCanceled},
}

// 管理者が行える遷移。CANCELEDへは未キャンセルの全状態から到達できる
// （COMPLETEDからの場合は在庫戻しなし）。
var adminTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPlaced:         {OrderStatusReadyForPickup, OrderStatusCanceled},
	OrderStatusReadyForPickup: {OrderStatusCompleted, OrderStatusCanceled},
	OrderStatusCompleted:      {OrderStatusCanceled},
}

// CanTransition は from→to が遷移表にあるかを返す。
func CanTransition(from OrderStatus, to OrderStatus, admin bool) bool {
	table := customerTransitions
	if admin {
		table = adminTransitions
	}
	for _, t := range table[from] {
		if t == to {
			return true
		}
	}
	return false
}

// キャンセル時に在庫を戻すのは予約が生きている状態からだけ。
// COMPLETEDからの管理キャンセルは在庫を動かさない（商品は受け渡し済み）。
func ReleasesStockOnCancel(from OrderStatus) bool {
	return from == OrderStatusPlaced || from == OrderStatusReadyForPickup
}

// 注文。明細は不変のスナップショット、ステータス周りだけが可変。
// キャンセル系フィールドは status=CANCELED のときだけ非NULL。
// 受け取り系フィールドは status=READY_FOR_PICKUP の間だけ設定できる。
type Order struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64           `gorm:"not null;index" json:"user_id"`
	Status    OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	CartTotal decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"cart_total"`

	CancelReason      *string    `gorm:"type:varchar(255)" json:"cancel_reason,omitempty"`
	CancelNote        *string    `gorm:"type:text" json:"cancel_note,omitempty"`
	CanceledAt        *time.Time `json:"canceled_at,omitempty"`
	CanceledByAdminID *int64     `json:"canceled_by_admin_id,omitempty"`

	PickupPlace *string    `gorm:"type:varchar(255)" json:"pickup_place,omitempty"`
	PickupAt    *time.Time `json:"pickup_at,omitempty"`
	PickupNote  *string    `gorm:"type:text" json:"pickup_note,omitempty"`

	IdempotencyKey string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"-"`
	CreatedAt      time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null;autoUpdateTime;index" json:"updated_at"`
}

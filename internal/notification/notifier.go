package notification

import (
	"context"
	"time"
)

// 注文ステータス変更の通知イベント。
type OrderStatusEvent struct {
	EventID    string    `json:"event_id"`
	OrderID    int64     `json:"order_id"`
	UserID     int64     `json:"user_id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// 在庫僅少の通知イベント。
type LowStockEvent struct {
	EventID    string    `json:"event_id"`
	VariantID  int64     `json:"variant_id"`
	ProductID  int64     `json:"product_id"`
	Remaining  int64     `json:"remaining"`
	OccurredAt time.Time `json:"occurred_at"`
}

// 通知チャネルの約束。best-effortで、失敗しても業務トランザクションは巻き戻さない。
// 呼び出し側はコミット後に投げ、エラーはログに流すだけにする。
type Notifier interface {
	OrderStatusChanged(ctx context.Context, ev OrderStatusEvent) error
	LowStock(ctx context.Context, ev LowStockEvent) error
}

package repository

import (
	"context"
	"time"

	"github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/domain/model"
)

type AdminOrderListFilter struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	From   *time.Time
	To     *time.Time

	// 購入者名・メール・電話・注文ID・商品名にかかる自由検索
	Q string
}

// ListByUserIDの絞り込み。activeは未終端、historyはCOMPLETEDのみ。
type OrderScope string

const (
	OrderScopeAll     OrderScope = ""
	OrderScopeActive  OrderScope = "active"
	OrderScopeHistory OrderScope = "history"
)

// キャンセル確定時に一括で書くフィールド。
type CancelFields struct {
	Reason      string
	Note        string
	CanceledAt  time.Time
	AdminUserID *int64
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	// 遷移用。行ロック付きで読む（同一注文への並行遷移を直列化する）。
	FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error)
	ListByUserID(ctx context.Context, userID int64, scope OrderScope, page int, limit int) ([]model.Order, int64, error)
	Create(ctx context.Context, order model.Order) (int64, error)

	// 遷移の確定。statusと付随フィールドを1回のUPDATEで書く。
	UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error
	MarkCanceled(ctx context.Context, orderID int64, f CancelFields) error
	SetPickup(ctx context.Context, orderID int64, place string, at *time.Time, note string) error
	ClearPickup(ctx context.Context, orderID int64) error
	UpdateCancellation(ctx context.Context, orderID int64, reason string, note string) error

	Delete(ctx context.Context, orderID int64) error

	//検索（同じキーなら同じ結果を返す）
	FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error)
	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)
	//掃き出し対象（READY_FOR_PICKUPでcutoffより古い）
	ListReadyForPickupBefore(ctx context.Context, cutoff time.Time) ([]model.Order, error)
}

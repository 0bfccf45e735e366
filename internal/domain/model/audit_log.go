package model

import "time"

// 注文ステータス更新、在庫リセットなど。
type AuditAction string

const (
	//注文ステータスを更新した操作。
	AuditActionUpdateOrderStatus AuditAction = "UPDATE_ORDER_STATUS"
	//注文をキャンセルした操作。
	AuditActionCancelOrder AuditAction = "CANCEL_ORDER"
	//受け取り予定を設定・解除した操作。
	AuditActionSetPickup AuditAction = "SET_PICKUP"
	//キャンセル理由・メモを修正した操作。
	AuditActionEditCancellation AuditAction = "EDIT_CANCELLATION"
	//在庫をリセットした操作。
	AuditActionUpdateStock AuditAction = "UPDATE_STOCK"
	//期限切れ掃き出しを実行した操作。
	AuditActionExpireSweep AuditAction = "EXPIRE_SWEEP"
)

// 何に対する操作か
type AuditResourceType string

const (
	AuditResourceOrder   AuditResourceType = "order"
	AuditResourceVariant AuditResourceType = "variant"
	AuditResourceUser    AuditResourceType = "user"
)

// 監査ログ（管理者操作ログ）。
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す。
type AuditLog struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//操作したユーザー（主に管理者）のID。システム実行は0。
	ActorUserID int64 `gorm:"not null;index" json:"actor_user_id"`

	Action       AuditAction       `gorm:"type:varchar(50);not null;index" json:"action"`
	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resource_type"`
	ResourceID   int64             `gorm:"not null;index" json:"resource_id"`

	//JSON文字列で保存する。
	BeforeJSON string `gorm:"type:text" json:"before_json"`
	AfterJSON  string `gorm:"type:text" json:"after_json"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

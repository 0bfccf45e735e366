package usecase

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/domain/model"
	"github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/notification"
	repo "github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/repository"
)

// 注文ライフサイクルの共通コア。
// 顧客キャンセル・管理キャンセル・purge・期限切れ掃き出しは全部ここを通る。
// 呼び出し側はTx内でFindByIDForUpdate済みの注文を渡す約束（ロックで直列化済み）。

// 予約済み在庫を台帳に戻す。注文明細の数量ぶんきっかり1回だけ。
// 呼べるのは「まだ誰も戻していない」ことが現在ステータスから導ける場面のみ。
func releaseOrderStock(ctx context.Context, r repo.TxRepos, orderID int64) error {
	items, err := r.OrderItems().ListByOrderID(ctx, orderID)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	for _, it := range items {
		if err := r.Stock().IncreaseStock(ctx, it.VariantID, it.Quantity); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
	}
	return nil
}

// キャンセル確定。遷移表チェック→（必要なら）在庫戻し→ステータスと
// キャンセル系フィールドの一括更新。受け取り系フィールドはここで消える。
// SoldCountはキャンセルでは巻き戻さない。
func cancelLocked(ctx context.Context, r repo.TxRepos, o model.Order, f repo.CancelFields, admin bool) error {
	if !model.CanTransition(o.Status, model.OrderStatusCanceled, admin) {
		return NewHTTPError(http.StatusBadRequest, "invalid status transition")
	}

	if model.ReleasesStockOnCancel(o.Status) {
		if err := releaseOrderStock(ctx, r, o.ID); err != nil {
			return err
		}
	}

	if err := r.Orders().MarkCanceled(ctx, o.ID, f); err != nil {
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

// purge（注文レコードの削除）。在庫を戻し、SoldCountも減らしてから
// 明細→本体の順に消す。行が消える以上、販売集計に残すと迷子になるため。
func purgeLocked(ctx context.Context, r repo.TxRepos, o model.Order) error {
	items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	for _, it := range items {
		if err := r.Stock().IncreaseStock(ctx, it.VariantID, it.Quantity); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if err := r.Stock().DecrementSold(ctx, it.ProductID, it.Quantity); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
	}

	if err := r.OrderItems().DeleteByOrderID(ctx, o.ID); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if err := r.Orders().Delete(ctx, o.ID); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

// コミット後のbest-effort通知。失敗してもログに出すだけ。
func notifyStatusAsync(logger *zap.Logger, n notification.Notifier, o model.Order, from model.OrderStatus, to model.OrderStatus, reason string) {
	ev := notification.OrderStatusEvent{
		EventID:    uuid.NewString(),
		OrderID:    o.ID,
		UserID:     o.UserID,
		FromStatus: string(from),
		ToStatus:   string(to),
		Reason:     reason,
		OccurredAt: time.Now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := n.OrderStatusChanged(ctx, ev); err != nil {
			logger.Warn("order status notification failed",
				zap.Int64("order_id", ev.OrderID), zap.Error(err))
		}
	}()
}

func notifyLowStockAsync(logger *zap.Logger, n notification.Notifier, events []notification.LowStockEvent) {
	if len(events) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, ev := range events {
			if err := n.LowStock(ctx, ev); err != nil {
				logger.Warn("low stock notification failed",
					zap.Int64("variant_id", ev.VariantID), zap.Error(err))
			}
		}
	}()
}

package usecase

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/domain/model"
	"github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/notification"
	repo "github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/repository"
)

// AdminOrderUsecase は管理者側の注文操作。
// 遷移はすべて遷移表を通り、副作用（在庫戻し）はcancelLockedに集約する。
type AdminOrderUsecase struct {
	tx       repo.TransactionManager
	notifier notification.Notifier
	logger   *zap.Logger

	now func() time.Time
}

func NewAdminOrderUsecase(tx repo.TransactionManager, notifier notification.Notifier, logger *zap.Logger) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx, notifier: notifier, logger: logger, now: time.Now}
}

type AdminUpdateOrderStatusInput struct {
	Status string
	// CANCELEDへの遷移時のみ使用。管理者キャンセルでは必須。
	Reason string
	Note   string
}

// 注文一覧（filter＋自由検索）
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) ([]OrderOutput, error) {
	if f.Page < 1 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if f.Status != "" && !model.OrderStatus(f.Status).Valid() {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListAdmin(ctx, f)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			outs = append(outs, toOrderOutput(o, items))
		}
		return nil
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

// ステータス更新。CANCELEDへの遷移だけ在庫戻しの副作用を持つ。
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorAdminID int64, orderID int64, in AdminUpdateOrderStatusInput) error {
	if actorAdminID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	newStatus := model.OrderStatus(strings.TrimSpace(in.Status))
	if !newStatus.Valid() {
		return NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	reason := strings.TrimSpace(in.Reason)
	if newStatus == model.OrderStatusCanceled && reason == "" {
		//管理者キャンセルは理由必須
		return NewHTTPError(http.StatusBadRequest, "reason required")
	}

	var before model.OrderStatus
	var target model.Order
	var changed bool

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		changed = false

		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		// すでに同じなら何もしない（200）
		if o.Status == newStatus {
			return nil
		}

		before = o.Status
		target = o

		if newStatus == model.OrderStatusCanceled {
			adminID := actorAdminID
			if err := cancelLocked(ctx, r, o, repo.CancelFields{
				Reason:      reason,
				Note:        strings.TrimSpace(in.Note),
				CanceledAt:  u.now(),
				AdminUserID: &adminID,
			}, true); err != nil {
				return err
			}
		} else {
			if !model.CanTransition(o.Status, newStatus, true) {
				return NewHTTPError(http.StatusBadRequest, "invalid status transition")
			}
			if err := r.Orders().UpdateStatus(ctx, orderID, newStatus); err != nil {
				if err == repo.ErrNotFound {
					return NewHTTPError(http.StatusNotFound, "not found")
				}
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}

		//監査ログ
		action := model.AuditActionUpdateOrderStatus
		if newStatus == model.OrderStatusCanceled {
			action = model.AuditActionCancelOrder
		}
		beforeJSON := `{"status":"` + string(before) + `"}`
		afterJSON := `{"status":"` + string(newStatus) + `"}`
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorAdminID,
			Action:       action,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   beforeJSON,
			AfterJSON:    afterJSON,
			CreatedAt:    u.now(),
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		changed = true
		return nil
	})

	if err != nil {
		return err
	}

	if changed {
		notifyStatusAsync(u.logger, u.notifier, target, before, newStatus, reason)
	}
	return nil
}

// Cancel は理由付きの管理キャンセル。UpdateStatusのCANCELED経路と同じコアを通る。
func (u *AdminOrderUsecase) Cancel(ctx context.Context, actorAdminID int64, orderID int64, reason string, note string) error {
	return u.UpdateStatus(ctx, actorAdminID, orderID, AdminUpdateOrderStatusInput{
		Status: string(model.OrderStatusCanceled),
		Reason: reason,
		Note:   note,
	})
}

type SetPickupInput struct {
	Place string
	// RFC3339。空なら未定のまま。パースできない値は弾く（黙って捨てない）。
	PickupAt string
	Note     string
}

// SetPickup は受け取り予定の設定。READY_FOR_PICKUPの間だけ。
func (u *AdminOrderUsecase) SetPickup(ctx context.Context, actorAdminID int64, orderID int64, in SetPickupInput) error {
	if actorAdminID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	place := strings.TrimSpace(in.Place)
	if place == "" {
		return NewHTTPError(http.StatusBadRequest, "place required")
	}

	var at *time.Time
	if s := strings.TrimSpace(in.PickupAt); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return NewHTTPError(http.StatusBadRequest, "invalid pickup_at")
		}
		at = &t
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if o.Status != model.OrderStatusReadyForPickup {
			return NewHTTPError(http.StatusBadRequest, "order not ready for pickup")
		}

		if err := r.Orders().SetPickup(ctx, orderID, place, at, strings.TrimSpace(in.Note)); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		return u.auditPickup(ctx, r, actorAdminID, orderID, `{"place":"`+place+`"}`)
	})
}

// ClearPickup は受け取り予定の解除。3フィールドまとめてNULLに戻す。
func (u *AdminOrderUsecase) ClearPickup(ctx context.Context, actorAdminID int64, orderID int64) error {
	if actorAdminID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if o.Status != model.OrderStatusReadyForPickup {
			return NewHTTPError(http.StatusBadRequest, "order not ready for pickup")
		}

		if err := r.Orders().ClearPickup(ctx, orderID); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		return u.auditPickup(ctx, r, actorAdminID, orderID, `{"place":null}`)
	})
}

type BulkPickupResult struct {
	Updated int     `json:"updated"`
	Failed  []int64 `json:"failed"`
}

// BulkSetPickup は注文IDリストへの一括設定。
// 1件の失敗で残りを止めない（注文ごとに独立したTx）。
func (u *AdminOrderUsecase) BulkSetPickup(ctx context.Context, actorAdminID int64, orderIDs []int64, in SetPickupInput) (BulkPickupResult, error) {
	if actorAdminID <= 0 {
		return BulkPickupResult{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if len(orderIDs) == 0 {
		return BulkPickupResult{}, NewHTTPError(http.StatusBadRequest, "order_ids required")
	}

	result := BulkPickupResult{Failed: []int64{}}
	for _, id := range orderIDs {
		if err := u.SetPickup(ctx, actorAdminID, id, in); err != nil {
			u.logger.Warn("bulk pickup set failed",
				zap.Int64("order_id", id), zap.Error(err))
			result.Failed = append(result.Failed, id)
			continue
		}
		result.Updated++
	}
	return result, nil
}

// UpdateCancellation はキャンセル理由・メモの事後修正。
// CANCELEDの間だけ。在庫は一切動かさない。
func (u *AdminOrderUsecase) UpdateCancellation(ctx context.Context, actorAdminID int64, orderID int64, reason string, note string) error {
	if actorAdminID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return NewHTTPError(http.StatusBadRequest, "reason required")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if o.Status != model.OrderStatusCanceled {
			return NewHTTPError(http.StatusBadRequest, "order not canceled")
		}

		if err := r.Orders().UpdateCancellation(ctx, orderID, reason, strings.TrimSpace(note)); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		return r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorAdminID,
			Action:       model.AuditActionEditCancellation,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   `{"reason":` + jsonString(derefOr(o.CancelReason, "")) + `}`,
			AfterJSON:    `{"reason":` + jsonString(reason) + `}`,
			CreatedAt:    u.now(),
		})
	})
}

func (u *AdminOrderUsecase) auditPickup(ctx context.Context, r repo.TxRepos, actorAdminID int64, orderID int64, afterJSON string) error {
	if err := r.AuditLogs().Create(ctx, model.AuditLog{
		ActorUserID:  actorAdminID,
		Action:       model.AuditActionSetPickup,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   orderID,
		AfterJSON:    afterJSON,
		CreatedAt:    u.now(),
	}); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

func jsonString(s string) string {
	return strconv.Quote(s)
}

func derefOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}

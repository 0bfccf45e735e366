package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/domain/model"
	"github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/notification"
	repo "github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/repository"
)

// OrderUsecase は顧客側の注文フロー（チェックアウト・一覧・キャンセル・purge）。
type OrderUsecase struct {
	tx                repo.TransactionManager
	notifier          notification.Notifier
	logger            *zap.Logger
	lowStockThreshold int64
	purgeGrace        time.Duration

	now func() time.Time
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	notifier notification.Notifier,
	logger *zap.Logger,
	lowStockThreshold int64,
	purgeGrace time.Duration,
) *OrderUsecase {
	return &OrderUsecase{
		tx:                tx,
		notifier:          notifier,
		logger:            logger,
		lowStockThreshold: lowStockThreshold,
		purgeGrace:        purgeGrace,
		now:               time.Now,
	}
}

type CheckoutInput struct {
	IdempotencyKey string
}

type OrderItemOutput struct {
	VariantID      int64           `json:"variant_id"`
	ProductTitle   string          `json:"product_title"`
	SizeName       string          `json:"size_name"`
	GenerationName string          `json:"generation_name"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Quantity       int64           `json:"quantity"`
}

type OrderOutput struct {
	ID           int64             `json:"id"`
	UserID       int64             `json:"user_id"`
	Status       string            `json:"status"`
	CartTotal    decimal.Decimal   `json:"cart_total"`
	CreatedAt    time.Time         `json:"created_at"`
	PickupPlace  *string           `json:"pickup_place,omitempty"`
	PickupAt     *time.Time        `json:"pickup_at,omitempty"`
	PickupNote   *string           `json:"pickup_note,omitempty"`
	CancelReason *string           `json:"cancel_reason,omitempty"`
	CancelNote   *string           `json:"cancel_note,omitempty"`
	CanceledAt   *time.Time        `json:"canceled_at,omitempty"`
	Items        []OrderItemOutput `json:"items"`
}

// Checkout はカートを注文に変換する。
// 在庫チェックと減算はTx内の条件付きUPDATE1本で行うので、
// 2つの同時チェックアウトが最後の1枚を取り合っても勝つのは片方だけ。
// どこか1行でも在庫不足なら注文は作られず在庫も一切動かない。
func (u *OrderUsecase) Checkout(ctx context.Context, userID int64, in CheckoutInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	if key == "" || len(key) > 255 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid idempotency_key")
	}

	var out OrderOutput
	var lowStock []notification.LowStockEvent
	var created bool

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		lowStock = lowStock[:0]
		created = false

		// 同じキーなら同じ結果
		existing, found, err := r.Orders().FindByIdempotencyKey(ctx, userID, key)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if found {
			items, err := r.OrderItems().ListByOrderID(ctx, existing.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			out = toOrderOutput(existing, items)
			return nil
		}

		//ACTIVEカート取得
		cart, err := r.Carts().FindActiveByUserID(ctx, userID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusBadRequest, "cart empty")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		cartItems, err := r.Carts().ListItems(ctx, cart.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if len(cartItems) == 0 {
			return NewHTTPError(http.StatusBadRequest, "cart empty")
		}

		//在庫を確定時に再チェックして減らす
		orderItems := make([]model.OrderItem, 0, len(cartItems))
		total := decimal.Zero

		for _, ci := range cartItems {
			d, err := r.Variants().FindDetail(ctx, ci.VariantID)
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusBadRequest, "invalid variant")
			}
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !d.IsActive {
				return NewHTTPError(http.StatusBadRequest, "invalid variant")
			}

			//在庫減算（足りないなら false → 全体abort）
			ok, err := r.Stock().DecreaseStockIfEnough(ctx, ci.VariantID, ci.Quantity)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !ok {
				return NewHTTPError(http.StatusBadRequest, "out of stock")
			}

			if err := r.Stock().IncrementSold(ctx, d.Variant.ProductID, ci.Quantity); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}

			//減算後の残量で在庫僅少を拾う（通知はコミット後）
			v, err := r.Variants().FindByID(ctx, ci.VariantID)
			if err == nil && v.Stock <= u.lowStockThreshold {
				lowStock = append(lowStock, notification.LowStockEvent{
					EventID:    uuid.NewString(),
					VariantID:  v.ID,
					ProductID:  v.ProductID,
					Remaining:  v.Stock,
					OccurredAt: u.now(),
				})
			}

			//スナップショットはカート保存時の値（価格・表示名）をそのまま凍結
			orderItems = append(orderItems, model.OrderItem{
				VariantID:         ci.VariantID,
				ProductID:         d.Variant.ProductID,
				Quantity:          ci.Quantity,
				UnitPriceSnapshot: ci.UnitPriceSnapshot,
				ProductTitle:      ci.ProductTitle,
				SizeName:          ci.SizeName,
				GenerationName:    ci.GenerationName,
				CreatedAt:         u.now(),
			})

			total = total.Add(ci.UnitPriceSnapshot.Mul(decimal.NewFromInt(ci.Quantity)))
		}

		// 注文作成
		now := u.now()
		orderID, err := r.Orders().Create(ctx, model.Order{
			UserID:         userID,
			Status:         model.OrderStatusPlaced,
			CartTotal:      total,
			IdempotencyKey: key,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		if err == repo.ErrConflict {
			//競合（同時に同じキーが入った）はもう一回検索して同じ結果を返す
			ex2, found2, err2 := r.Orders().FindByIdempotencyKey(ctx, userID, key)
			if err2 == nil && found2 {
				items2, err3 := r.OrderItems().ListByOrderID(ctx, ex2.ID)
				if err3 != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
				out = toOrderOutput(ex2, items2)
				return nil
			}
			return NewHTTPError(http.StatusConflict, "idempotency conflict")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//カートをCHECKED_OUTにして明細をクリア（再注文防止）
		if err := r.Carts().UpdateStatus(ctx, cart.ID, model.CartStatusCheckedOut); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if err := r.Carts().Clear(ctx, cart.ID); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		createdOrder := model.Order{
			ID:        orderID,
			UserID:    userID,
			Status:    model.OrderStatusPlaced,
			CartTotal: total,
			CreatedAt: now,
		}
		out = toOrderOutput(createdOrder, orderItems)
		created = true
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}

	if created {
		notifyStatusAsync(u.logger, u.notifier, model.Order{ID: out.ID, UserID: userID}, "", model.OrderStatusPlaced, "")
		notifyLowStockAsync(u.logger, u.notifier, lowStock)
	}
	return out, nil
}

// ListMyOrders は自分の注文一覧。scopeでactive（未終端）/history（受け取り済み）を分ける。
func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64, scope repo.OrderScope, page int, limit int) ([]OrderOutput, error) {
	if userID <= 0 {
		return []OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListByUserID(ctx, userID, scope, page, limit)
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

func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if o.UserID != userID {
			//他人の注文は「存在しない扱い」にする
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

type CancelMyOrderInput struct {
	Reason string
	Note   string
}

// CancelMyOrder は自分の注文のキャンセル。理由は任意。
// PLACED/READY_FOR_PICKUPからだけ成立し、在庫はきっかり1回戻る。
func (u *OrderUsecase) CancelMyOrder(ctx context.Context, userID int64, orderID int64, in CancelMyOrderInput) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var before model.OrderStatus
	var canceled model.Order

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if o.UserID != userID {
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		before = o.Status
		canceled = o
		return cancelLocked(ctx, r, o, repo.CancelFields{
			Reason:     strings.TrimSpace(in.Reason),
			Note:       strings.TrimSpace(in.Note),
			CanceledAt: u.now(),
		}, false)
	})

	if err != nil {
		return err
	}

	notifyStatusAsync(u.logger, u.notifier, canceled, before, model.OrderStatusCanceled, in.Reason)
	return nil
}

// DeleteMyOrder は終端前の注文レコードを顧客自身が消すpurge。
// PLACEDはいつでも、READY_FOR_PICKUPは猶予期間経過後のみ。
// COMPLETED/CANCELEDはこの経路では消せない（履歴として残す）。
func (u *OrderUsecase) DeleteMyOrder(ctx context.Context, userID int64, orderID int64) error {
	if userID <= 0 {
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
		if o.UserID != userID {
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		switch o.Status {
		case model.OrderStatusPlaced:
			// OK
		case model.OrderStatusReadyForPickup:
			if u.now().Sub(o.UpdatedAt) < u.purgeGrace {
				return NewHTTPError(http.StatusBadRequest, "grace period not elapsed")
			}
		default:
			return NewHTTPError(http.StatusBadRequest, "cannot delete order in this status")
		}

		return purgeLocked(ctx, r, o)
	})
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			VariantID:      it.VariantID,
			ProductTitle:   it.ProductTitle,
			SizeName:       it.SizeName,
			GenerationName: it.GenerationName,
			UnitPrice:      it.UnitPriceSnapshot,
			Quantity:       it.Quantity,
		})
	}

	return OrderOutput{
		ID:           o.ID,
		UserID:       o.UserID,
		Status:       string(o.Status),
		CartTotal:    o.CartTotal,
		CreatedAt:    o.CreatedAt,
		PickupPlace:  o.PickupPlace,
		PickupAt:     o.PickupAt,
		PickupNote:   o.PickupNote,
		CancelReason: o.CancelReason,
		CancelNote:   o.CancelNote,
		CanceledAt:   o.CanceledAt,
		Items:        outItems,
	}
}

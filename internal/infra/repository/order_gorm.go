package repository

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/domain/model"
	repo "github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/repository"
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

func (r *OrderGormRepository) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

// 遷移用の行ロック付き読み取り。
// 同一注文への並行遷移はここで直列化される（二重キャンセル＝二重在庫戻しの防止）。
func (r *OrderGormRepository) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", orderID).
		First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

func (r *OrderGormRepository) ListByUserID(ctx context.Context, userID int64, scope repo.OrderScope, page int, limit int) ([]model.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Order{}).Where("user_id = ?", userID)

	switch scope {
	case repo.OrderScopeActive:
		q = q.Where("status IN ?", []model.OrderStatus{model.OrderStatusPlaced, model.OrderStatusReadyForPickup})
	case repo.OrderScopeHistory:
		q = q.Where("status = ?", model.OrderStatusCompleted)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.Order{}, 0, err
	}

	var items []model.Order
	offset := (page - 1) * limit
	err := q.Order("id desc").Limit(limit).Offset(offset).Find(&items).Error
	if err != nil {
		return []model.Order{}, 0, err
	}

	return items, total, nil
}

func (r *OrderGormRepository) Create(ctx context.Context, order model.Order) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&order).Error; err != nil {
		if isUniqueViolation(err) {
			return 0, repo.ErrConflict
		}
		return 0, err
	}
	return order.ID, nil
}

func (r *OrderGormRepository) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// キャンセル確定。status・キャンセル系・受け取り系を1回のUPDATEで書く。
// 受け取り系はここで必ずNULLに戻す（CANCELED後に残さない）。
func (r *OrderGormRepository) MarkCanceled(ctx context.Context, orderID int64, f repo.CancelFields) error {
	values := map[string]interface{}{
		"status":               model.OrderStatusCanceled,
		"cancel_reason":        f.Reason,
		"canceled_at":          f.CanceledAt,
		"canceled_by_admin_id": f.AdminUserID,
		"pickup_place":         nil,
		"pickup_at":            nil,
		"pickup_note":          nil,
		"updated_at":           time.Now(),
	}
	if f.Note != "" {
		values["cancel_note"] = f.Note
	}

	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(values)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 受け取り予定の設定。READY_FOR_PICKUP以外には書かない（条件付きUPDATE）。
func (r *OrderGormRepository) SetPickup(ctx context.Context, orderID int64, place string, at *time.Time, note string) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", orderID, model.OrderStatusReadyForPickup).
		Updates(map[string]interface{}{
			"pickup_place": place,
			"pickup_at":    at,
			"pickup_note":  note,
			"updated_at":   time.Now(),
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 受け取り予定の解除。3フィールドまとめてNULL。
func (r *OrderGormRepository) ClearPickup(ctx context.Context, orderID int64) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", orderID, model.OrderStatusReadyForPickup).
		Updates(map[string]interface{}{
			"pickup_place": nil,
			"pickup_at":    nil,
			"pickup_note":  nil,
			"updated_at":   time.Now(),
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// キャンセル理由・メモの事後修正。CANCELEDの間だけ。在庫は動かさない。
func (r *OrderGormRepository) UpdateCancellation(ctx context.Context, orderID int64, reason string, note string) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", orderID, model.OrderStatusCanceled).
		Updates(map[string]interface{}{
			"cancel_reason": reason,
			"cancel_note":   note,
			"updated_at":    time.Now(),
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OrderGormRepository) Delete(ctx context.Context, orderID int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Order{}, orderID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OrderGormRepository) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&o).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, false, nil
	}
	if err != nil {
		return model.Order{}, false, err
	}
	return o, true, nil
}

func (r *OrderGormRepository) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}

	q := r.db.WithContext(ctx).Model(&model.Order{})

	//status 絞り込み
	if f.Status != "" {
		q = q.Where("orders.status = ?", f.Status)
	}

	//user_id 絞り込み
	if f.UserID != nil {
		q = q.Where("orders.user_id = ?", *f.UserID)
	}

	//期間絞り込み
	if f.From != nil {
		q = q.Where("orders.created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("orders.created_at <= ?", *f.To)
	}

	//自由検索：購入者名・メール・電話・注文ID・商品名
	if term := strings.TrimSpace(f.Q); term != "" {
		like := "%" + term + "%"
		conds := []string{
			"EXISTS (SELECT 1 FROM users u WHERE u.id = orders.user_id AND (u.name ILIKE ? OR u.email ILIKE ? OR u.phone ILIKE ?))",
			"EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = orders.id AND oi.product_title ILIKE ?)",
		}
		args := []interface{}{like, like, like, like}
		if id, err := strconv.ParseInt(term, 10, 64); err == nil {
			conds = append(conds, "orders.id = ?")
			args = append(args, id)
		}
		q = q.Where("("+strings.Join(conds, " OR ")+")", args...)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.Order{}, 0, err
	}

	var items []model.Order
	offset := (f.Page - 1) * f.Limit
	if err := q.Order("orders.id desc").Limit(f.Limit).Offset(offset).Find(&items).Error; err != nil {
		return []model.Order{}, 0, err
	}

	return items, total, nil
}

// 掃き出し対象の抽出。最終更新がcutoffより古いREADY_FOR_PICKUP。
func (r *OrderGormRepository) ListReadyForPickupBefore(ctx context.Context, cutoff time.Time) ([]model.Order, error) {
	var items []model.Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", model.OrderStatusReadyForPickup, cutoff).
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return []model.Order{}, err
	}
	return items, nil
}

// 一意制約違反（idempotency_keyの同時挿入など）の判定
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/domain/model"
	repo "github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StockGormRepository struct {
	db *gorm.DB
}

func NewStockGormRepository(db *gorm.DB) *StockGormRepository {
	return &StockGormRepository{db: db}
}

// 在庫が足りるときだけ減らす。
// 条件付きUPDATEなのでアプリ側のread-modify-writeにならず、0未満に落ちない。
func (r *StockGormRepository) DecreaseStockIfEnough(ctx context.Context, variantID int64, qty int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.ProductVariant{}).
		Where("id = ? AND stock >= ?", variantID, qty).
		Update("stock", gorm.Expr("stock - ?", qty))

	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	return true, nil
}

// 在庫戻し（キャンセル・purge）
func (r *StockGormRepository) IncreaseStock(ctx context.Context, variantID int64, qty int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.ProductVariant{}).
		Where("id = ?", variantID).
		Update("stock", gorm.Expr("stock + ?", qty))

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 累計販売数の加算
func (r *StockGormRepository) IncrementSold(ctx context.Context, productID int64, qty int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", productID).
		Update("sold_count", gorm.Expr("sold_count + ?", qty))

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 累計販売数の減算（0未満には落とさない）
func (r *StockGormRepository) DecrementSold(ctx context.Context, productID int64, qty int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", productID).
		Update("sold_count", gorm.Expr("GREATEST(sold_count - ?, 0)", qty))

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 管理者の絶対値リセット。旧値を行ロックで読んでから書き、履歴を残す。
func (r *StockGormRepository) SetStockWithAdjustment(ctx context.Context, adminUserID int64, variantID int64, newStock int64, reason string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var v model.ProductVariant
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", variantID).
			First(&v).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return repo.ErrNotFound
		}
		if err != nil {
			return err
		}

		res := tx.Model(&model.ProductVariant{}).
			Where("id = ?", variantID).
			Update("stock", newStock)
		if res.Error != nil {
			return res.Error
		}

		adj := model.StockAdjustment{
			VariantID:   variantID,
			AdminUserID: adminUserID,
			OldStock:    v.Stock,
			NewStock:    newStock,
			Reason:      reason,
			CreatedAt:   time.Now(),
		}
		return tx.Create(&adj).Error
	})
}

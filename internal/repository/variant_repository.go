package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/domain/model"
)

var (
	ErrNotFound = errors.New("not found")
	//一意制約違反（重複キー）
	ErrConflict = errors.New("conflict")
)

// バリアント＋表示名・価格をまとめて引いた結果。
// チェックアウト時のスナップショット元。
type VariantDetail struct {
	Variant        model.ProductVariant
	ProductTitle   string
	SizeName       string
	GenerationName string
	Price          decimal.Decimal
	IsActive       bool
}

type VariantRepository interface {
	FindByID(ctx context.Context, variantID int64) (model.ProductVariant, error)
	FindDetail(ctx context.Context, variantID int64) (VariantDetail, error)
}

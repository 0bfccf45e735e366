package repository

import "context"

// 在庫台帳の約束。stockの更新は必ず相対デルタ。
// 絶対値書き込みは管理者のリセット（SetStockWithAdjustment）だけ。
type StockRepository interface {
	// 在庫が足りるときだけ減算（条件付きUPDATE）。足りなければfalse。
	DecreaseStockIfEnough(ctx context.Context, variantID int64, qty int64) (bool, error)

	// 在庫戻し（キャンセル・purge）
	IncreaseStock(ctx context.Context, variantID int64, qty int64) error

	// 累計販売数の加算・減算（商品単位）
	IncrementSold(ctx context.Context, productID int64, qty int64) error
	DecrementSold(ctx context.Context, productID int64, qty int64) error

	// 管理者による絶対値リセット＋履歴行
	SetStockWithAdjustment(ctx context.Context, adminUserID int64, variantID int64, newStock int64, reason string) error
}

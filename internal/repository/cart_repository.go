package repository

import (
	"context"

	"github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/domain/model"
)

type CartRepository interface {
	GetOrCreateActiveByUserID(ctx context.Context, userID int64) (model.Cart, error)
	FindActiveByUserID(ctx context.Context, userID int64) (model.Cart, error)

	// 保存は全入れ替え。既存明細をdeleteしてからinsert（同一Tx内）。
	ReplaceItems(ctx context.Context, cartID int64, items []model.CartItem) error
	ListItems(ctx context.Context, cartID int64) ([]model.CartItem, error)

	UpdateStatus(ctx context.Context, cartID int64, status model.CartStatus) error
	Clear(ctx context.Context, cartID int64) error
}

package usecase

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/domain/model"
	repo "github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/repository"
)

// CartUsecase は /cart の業務ロジック。
// 保存は全入れ替え（delete→insert）で、途中状態のカートを外に見せない。
type CartUsecase struct {
	tx repo.TransactionManager
}

func NewCartUsecase(tx repo.TransactionManager) *CartUsecase {
	return &CartUsecase{tx: tx}
}

type SaveCartLine struct {
	VariantID int64 `json:"variant_id"`
	Quantity  int64 `json:"quantity"`
}

type CartLineResponse struct {
	VariantID      int64           `json:"variant_id"`
	Quantity       int64           `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	ProductTitle   string          `json:"product_title"`
	SizeName       string          `json:"size_name"`
	GenerationName string          `json:"generation_name"`
}

type CartResponse struct {
	Items []CartLineResponse `json:"items"`
	Total decimal.Decimal    `json:"total"`
}

// SaveCart はカートを丸ごと置き換える。
// 価格・表示名はこの時点のスナップショットを取る。在庫チェックはしない（チェックアウト時のみ）。
func (u *CartUsecase) SaveCart(ctx context.Context, userID int64, lines []SaveCartLine) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	for _, l := range lines {
		if l.VariantID <= 0 {
			return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid variant_id")
		}
		if l.Quantity < 1 {
			return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
		}
	}

	var out CartResponse

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().GetOrCreateActiveByUserID(ctx, userID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		items := make([]model.CartItem, 0, len(lines))
		for _, l := range lines {
			d, err := r.Variants().FindDetail(ctx, l.VariantID)
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusBadRequest, "invalid variant")
			}
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !d.IsActive {
				return NewHTTPError(http.StatusBadRequest, "invalid variant")
			}

			items = append(items, model.CartItem{
				VariantID:         l.VariantID,
				Quantity:          l.Quantity,
				UnitPriceSnapshot: d.Price,
				ProductTitle:      d.ProductTitle,
				SizeName:          d.SizeName,
				GenerationName:    d.GenerationName,
			})
		}

		if err := r.Carts().ReplaceItems(ctx, cart.ID, items); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = toCartResponse(items)
		return nil
	})

	if err != nil {
		return CartResponse{}, err
	}
	return out, nil
}

// GetCart はカート取得（無ければACTIVEを作って空を返す）。
func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var out CartResponse

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().GetOrCreateActiveByUserID(ctx, userID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		items, err := r.Carts().ListItems(ctx, cart.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = toCartResponse(items)
		return nil
	})

	if err != nil {
		return CartResponse{}, err
	}
	return out, nil
}

// ClearCart はカートを空にする。
func (u *CartUsecase) ClearCart(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().FindActiveByUserID(ctx, userID)
		if err == repo.ErrNotFound {
			//カートが無ければ空のまま
			return nil
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := r.Carts().Clear(ctx, cart.ID); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
}

func toCartResponse(items []model.CartItem) CartResponse {
	respItems := make([]CartLineResponse, 0, len(items))
	total := decimal.Zero

	for _, it := range items {
		respItems = append(respItems, CartLineResponse{
			VariantID:      it.VariantID,
			Quantity:       it.Quantity,
			UnitPrice:      it.UnitPriceSnapshot,
			ProductTitle:   it.ProductTitle,
			SizeName:       it.SizeName,
			GenerationName: it.GenerationName,
		})

		total = total.Add(it.UnitPriceSnapshot.Mul(decimal.NewFromInt(it.Quantity)))
	}

	return CartResponse{Items: respItems, Total: total}
}

package usecase

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/domain/model"
	repo "github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/repository"
)

// AdminStockUsecase は在庫の絶対値リセット。
// 通常の在庫変動は注文ライフサイクルの相対デルタだけで、これは管理者の棚卸し用。
type AdminStockUsecase struct {
	tx repo.TransactionManager

	now func() time.Time
}

func NewAdminStockUsecase(tx repo.TransactionManager) *AdminStockUsecase {
	return &AdminStockUsecase{tx: tx, now: time.Now}
}

func (u *AdminStockUsecase) SetStock(ctx context.Context, actorAdminID int64, variantID int64, newStock int64, reason string) error {
	if actorAdminID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if variantID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if newStock < 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid stock")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return NewHTTPError(http.StatusBadRequest, "reason required")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		v, err := r.Variants().FindByID(ctx, variantID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := r.Stock().SetStockWithAdjustment(ctx, actorAdminID, variantID, newStock, reason); err != nil {
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusNotFound, "not found")
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		return r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorAdminID,
			Action:       model.AuditActionUpdateStock,
			ResourceType: model.AuditResourceVariant,
			ResourceID:   variantID,
			BeforeJSON:   `{"stock":` + strconv.FormatInt(v.Stock, 10) + `}`,
			AfterJSON:    `{"stock":` + strconv.FormatInt(newStock, 10) + `}`,
			CreatedAt:    u.now(),
		})
	})
}

package usecase

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/domain/model"
	"github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/notification"
	repo "github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/repository"
)

// キャンセル理由として書く固定文字列。掃き出し由来だと後から分かるように。
const expiredReason = "expired"

// SweepResult は1回の掃き出しの件数報告。
type SweepResult struct {
	Expired int `json:"expired"`
	Failed  int `json:"failed"`
}

// SweepUsecase は放置されたREADY_FOR_PICKUP注文の自動キャンセル。
// スケジューラからも管理者のオンデマンド実行からも同じ経路を通る。
// 注文レコードは消さずCANCELED（reason=expired）に倒して履歴を残す。
type SweepUsecase struct {
	tx       repo.TransactionManager
	notifier notification.Notifier
	logger   *zap.Logger

	now func() time.Time
}

func NewSweepUsecase(tx repo.TransactionManager, notifier notification.Notifier, logger *zap.Logger) *SweepUsecase {
	return &SweepUsecase{tx: tx, notifier: notifier, logger: logger, now: time.Now}
}

// ExpireReadyOrders はretentionDaysより古いREADY_FOR_PICKUPを全件キャンセルする。
// 注文ごとに独立したTxで処理し、1件の失敗が残り全部を巻き添えにしない。
// actorAdminIDは管理者のオンデマンド実行時のみ正、定期実行は0（システム）。
func (u *SweepUsecase) ExpireReadyOrders(ctx context.Context, actorAdminID int64, retentionDays int) (SweepResult, error) {
	if retentionDays < 1 {
		return SweepResult{}, NewHTTPError(http.StatusBadRequest, "invalid retention days")
	}

	cutoff := u.now().AddDate(0, 0, -retentionDays)

	//対象の選定は軽い読み取りTxで行い、処理は1件ずつ別Tx
	var targets []model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		targets, err = r.Orders().ListReadyForPickupBefore(ctx, cutoff)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
	if err != nil {
		return SweepResult{}, err
	}

	var result SweepResult
	for _, target := range targets {
		expired, err := u.expireOne(ctx, target.ID, cutoff)
		if err != nil {
			result.Failed++
			u.logger.Warn("expiry sweep: order failed",
				zap.Int64("order_id", target.ID), zap.Error(err))
			continue
		}
		if !expired {
			//選定後に別の遷移が先に確定していた
			continue
		}
		result.Expired++
		notifyStatusAsync(u.logger, u.notifier, target, model.OrderStatusReadyForPickup, model.OrderStatusCanceled, expiredReason)
	}

	if result.Expired > 0 || result.Failed > 0 {
		//実行記録。システム実行はActorUserID=0。
		_ = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
			return r.AuditLogs().Create(ctx, model.AuditLog{
				ActorUserID:  actorAdminID,
				Action:       model.AuditActionExpireSweep,
				ResourceType: model.AuditResourceOrder,
				ResourceID:   0,
				AfterJSON: `{"expired":` + strconv.Itoa(result.Expired) +
					`,"failed":` + strconv.Itoa(result.Failed) + `}`,
				CreatedAt: u.now(),
			})
		})
	}

	return result, nil
}

// 1件ぶんの掃き出し。Tx内でステータスを読み直すので、
// 選定後に顧客が受け取り済み・キャンセル済みにしていれば何もしない。
func (u *SweepUsecase) expireOne(ctx context.Context, orderID int64, cutoff time.Time) (bool, error) {
	expired := false
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err == repo.ErrNotFound {
			//選定後に消えていたら対象外
			return nil
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if o.Status != model.OrderStatusReadyForPickup || !o.UpdatedAt.Before(cutoff) {
			//並行する遷移に負けた。スキップ。
			return nil
		}

		if err := cancelLocked(ctx, r, o, repo.CancelFields{
			Reason:     expiredReason,
			CanceledAt: u.now(),
		}, true); err != nil {
			return err
		}
		expired = true
		return nil
	})
	return expired, err
}

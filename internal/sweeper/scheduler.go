package sweeper

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/usecase"
)

// Scheduler は期限切れ掃き出しの定期実行部。
// タイマーだけを持ち、業務ロジックはSweepUsecaseに委譲する。
// 誰が起動したかをusecase側は知らない。
type Scheduler struct {
	sweep         *usecase.SweepUsecase
	interval      time.Duration
	retentionDays int
	logger        *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(sweep *usecase.SweepUsecase, interval time.Duration, retentionDays int, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		sweep:         sweep,
		interval:      interval,
		retentionDays: retentionDays,
		logger:        logger,
	}
}

// Start は掃き出しループを起動する。Stopで止まるまでinterval毎に1回走る。
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	ticker := time.NewTicker(s.interval)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.runOnce(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop は実行中の1回を待ってから戻る。
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	//定期実行はシステムアクター（actor=0）
	result, err := s.sweep.ExpireReadyOrders(runCtx, 0, s.retentionDays)
	if err != nil {
		s.logger.Error("expiry sweep failed", zap.Error(err))
		return
	}
	if result.Expired > 0 || result.Failed > 0 {
		s.logger.Info("expiry sweep done",
			zap.Int("expired", result.Expired),
			zap.Int("failed", result.Failed),
		)
	}
}

package notification

import (
	"context"

	"go.uber.org/zap"
)

// ブローカー未設定の環境用。ログに出すだけ。
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) OrderStatusChanged(_ context.Context, ev OrderStatusEvent) error {
	n.logger.Info("order status changed",
		zap.String("event_id", ev.EventID),
		zap.Int64("order_id", ev.OrderID),
		zap.String("from", ev.FromStatus),
		zap.String("to", ev.ToStatus),
	)
	return nil
}

func (n *LogNotifier) LowStock(_ context.Context, ev LowStockEvent) error {
	n.logger.Warn("low stock",
		zap.String("event_id", ev.EventID),
		zap.Int64("variant_id", ev.VariantID),
		zap.Int64("remaining", ev.Remaining),
	)
	return nil
}

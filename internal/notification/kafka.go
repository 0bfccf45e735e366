package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	TopicOrderStatus = "shirt-sales.order-status"
	TopicLowStock    = "shirt-sales.low-stock"
)

// Kafkaに流す実装。main側でClose()まで面倒を見る（グローバルには持たない）。
type KafkaNotifier struct {
	orderWriter *kafka.Writer
	stockWriter *kafka.Writer
}

func NewKafkaNotifier(broker string) *KafkaNotifier {
	return &KafkaNotifier{
		orderWriter: &kafka.Writer{
			Addr:         kafka.TCP(broker),
			Topic:        TopicOrderStatus,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
		},
		stockWriter: &kafka.Writer{
			Addr:         kafka.TCP(broker),
			Topic:        TopicLowStock,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (n *KafkaNotifier) OrderStatusChanged(ctx context.Context, ev OrderStatusEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return n.orderWriter.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.EventID),
		Value: payload,
	})
}

func (n *KafkaNotifier) LowStock(ctx context.Context, ev LowStockEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return n.stockWriter.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.EventID),
		Value: payload,
	})
}

func (n *KafkaNotifier) Close() error {
	if err := n.orderWriter.Close(); err != nil {
		_ = n.stockWriter.Close()
		return err
	}
	return n.stockWriter.Close()
}

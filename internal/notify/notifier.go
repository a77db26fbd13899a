package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"dropsync/internal/logger"
	"dropsync/internal/models"
)

const notificationTopic = "notification-events"

// Event types published to the notification topic.
const (
	EventLowStock      = "inventory.low_stock"
	EventSyncCompleted = "sync.completed"
)

// Event is the message shape the notification worker consumes.
type Event struct {
	Type      string                 `json:"type"`
	ProductID string                 `json:"product_id,omitempty"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// SyncSummary describes one finished sync cycle.
type SyncSummary struct {
	Suppliers int
	Products  int
	Created   int
	Updated   int
	Failed    int
	Errors    int
	StartedAt time.Time
	Duration  time.Duration
}

// Notifier publishes platform events. Publish failures are logged and
// swallowed: a broker outage must never fail a sync cycle.
type Notifier interface {
	LowStock(ctx context.Context, product *models.Product, supplier *models.Supplier, threshold int)
	SyncCompleted(ctx context.Context, summary SyncSummary)
	Close() error
}

// KafkaNotifier publishes events to the notification topic.
type KafkaNotifier struct {
	writer *kafka.Writer
	logger *logger.Logger
}

func NewKafkaNotifier(brokers string, log *logger.Logger) *KafkaNotifier {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers),
		Topic:    notificationTopic,
		Balancer: &kafka.LeastBytes{},
	}
	return &KafkaNotifier{writer: writer, logger: log}
}

func (n *KafkaNotifier) LowStock(ctx context.Context, product *models.Product, supplier *models.Supplier, threshold int) {
	data := map[string]interface{}{
		"supplier_id":        supplier.ID,
		"supplier_name":      supplier.Name,
		"title":              product.Title,
		"sku":                product.SKU,
		"inventory_quantity": product.InventoryQuantity,
		"threshold":          threshold,
	}
	if product.MerchantID != nil {
		data["merchant_id"] = *product.MerchantID
	}
	n.publish(ctx, Event{
		Type:      EventLowStock,
		ProductID: product.ID,
		Data:      data,
	})
}

func (n *KafkaNotifier) SyncCompleted(ctx context.Context, summary SyncSummary) {
	n.publish(ctx, Event{
		Type: EventSyncCompleted,
		Data: map[string]interface{}{
			"suppliers":  summary.Suppliers,
			"products":   summary.Products,
			"created":    summary.Created,
			"updated":    summary.Updated,
			"failed":     summary.Failed,
			"errors":     summary.Errors,
			"started_at": summary.StartedAt.UTC().Format(time.RFC3339),
			"duration":   summary.Duration.String(),
		},
	})
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

func (n *KafkaNotifier) publish(ctx context.Context, event Event) {
	event.Timestamp = time.Now().UTC()

	value, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("Failed to encode %s event: %v", event.Type, err)
		return
	}

	key := event.ProductID
	if key == "" {
		key = event.Type
	}

	if err := n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	}); err != nil {
		n.logger.Error("Failed to publish %s event: %v", event.Type, err)
		return
	}
	n.logger.Debug("Published %s event", event.Type)
}

// NopNotifier drops all events. Used when no broker is configured.
type NopNotifier struct{}

func (NopNotifier) LowStock(ctx context.Context, product *models.Product, supplier *models.Supplier, threshold int) {
}

func (NopNotifier) SyncCompleted(ctx context.Context, summary SyncSummary) {}

func (NopNotifier) Close() error { return nil }

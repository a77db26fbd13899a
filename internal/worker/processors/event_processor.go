package processors

import (
	"context"
	"fmt"
	"time"

	"dropsync/internal/config"
	"dropsync/internal/logger"
	"dropsync/internal/notify"
	"dropsync/internal/worker/processors/dispatch"
)

const dispatchTimeout = 15 * time.Second

// EventProcessor routes notification events to their outbound channel.
type EventProcessor struct {
	config     *config.Config
	logger     *logger.Logger
	dispatcher *dispatch.Dispatcher
}

func NewEventProcessor(cfg *config.Config, logger *logger.Logger) *EventProcessor {
	return &EventProcessor{
		config:     cfg,
		logger:     logger,
		dispatcher: dispatch.New(cfg, logger),
	}
}

func (ep *EventProcessor) Process(event notify.Event) error {
	switch event.Type {
	case notify.EventLowStock:
		return ep.handleLowStock(event)
	case notify.EventSyncCompleted:
		return ep.handleSyncCompleted(event)
	default:
		ep.logger.Debug("Ignoring event type: %s", event.Type)
		return nil
	}
}

func (ep *EventProcessor) handleLowStock(event notify.Event) error {
	text := fmt.Sprintf("Low stock: %v (%v) from %v is down to %v (threshold %v)",
		event.Data["title"],
		event.Data["sku"],
		event.Data["supplier_name"],
		event.Data["inventory_quantity"],
		event.Data["threshold"],
	)

	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	return ep.dispatcher.Send(ctx, dispatch.Notification{
		Type:      event.Type,
		Text:      text,
		ProductID: event.ProductID,
		Data:      event.Data,
		Timestamp: event.Timestamp,
	})
}

func (ep *EventProcessor) handleSyncCompleted(event notify.Event) error {
	text := fmt.Sprintf("Sync completed: %v suppliers, %v products (%v created, %v updated, %v failed)",
		event.Data["suppliers"],
		event.Data["products"],
		event.Data["created"],
		event.Data["updated"],
		event.Data["failed"],
	)

	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	return ep.dispatcher.Send(ctx, dispatch.Notification{
		Type:      event.Type,
		Text:      text,
		Data:      event.Data,
		Timestamp: event.Timestamp,
	})
}

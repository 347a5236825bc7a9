package events

import (
	"github.com/dmehra2102/todo-realtime/internal/domain"
	"go.uber.org/zap"
)

// RegisterDebugLogger logs hub activity: publishes and subscriptions at debug
// level, dropped events as warnings.
func RegisterDebugLogger(hub *Hub, logger *zap.Logger) {
	hub.OnPublish(func(event domain.Event) {
		logger.Debug("event published",
			zap.String("method", string(event.Method)),
			zap.Int64("todo_id", event.Todo.ID),
		)
	})

	hub.OnDrop(func(id string, event domain.Event) {
		logger.Warn("event dropped: subscriber buffer full",
			zap.String("subscriber_id", id),
			zap.String("method", string(event.Method)),
		)
	})

	hub.OnSubscribe(func(id string) {
		logger.Debug("subscriber registered", zap.String("subscriber_id", id))
	})
}

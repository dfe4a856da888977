package server

import (
	"errors"
	"time"

	"github.com/zeusync/stereoview/internal/core/events/bus"
	"github.com/zeusync/stereoview/internal/core/observability/log"
)

var _ bus.EventBusObserver = (*deliveryObserver)(nil)

// deliveryObserver logs presenter events whose handlers failed. Attaching
// it also turns on the bus metrics reported by /healthz.
type deliveryObserver struct {
	logger log.Log
}

func (o *deliveryObserver) OnPublish(string, string, bus.Event) {}

func (o *deliveryObserver) OnDelivered(topic, eventType string, handlers int, err error, duration time.Duration) {
	if err == nil {
		return
	}
	fields := []log.Field{
		log.String("session", topic),
		log.String("event", eventType),
		log.Int("handlers", handlers),
		log.Duration("duration", duration),
		log.Error(err),
	}
	if errors.Is(err, errSessionEnded) {
		o.logger.Debug("Presenter event dropped", fields...)
		return
	}
	o.logger.Warn("Presenter event delivery failed", fields...)
}

package gaze

import (
	"github.com/zeusync/stereoview/internal/core/events/bus"
	"github.com/zeusync/stereoview/internal/core/observability/log"
)

// Presenter receives the controller's visual and activation commands.
// Implementations must not call back into the Controller except from
// Activate, which is always the last thing a controller method does.
type Presenter interface {
	Highlight(id TargetID)
	ClearHighlight(id TargetID)
	Activate(id TargetID)
	Indicator(active bool)
}

// Event types published by BusPresenter.
const (
	EventHighlight      = "gaze.highlight"
	EventClearHighlight = "gaze.clear_highlight"
	EventActivate       = "gaze.activate"
	EventIndicator      = "gaze.indicator"
)

var _ Presenter = (*BusPresenter)(nil)

// BusPresenter turns presenter calls into bus events on one topic, so many
// controllers can share a bus. Highlight, clear and activate events carry
// the TargetID as data; indicator events carry a bool.
type BusPresenter struct {
	bus    bus.EventBus
	topic  string
	logger log.Log
}

// NewBusPresenter publishes to topic, which is also the event source.
func NewBusPresenter(b bus.EventBus, topic string, logger log.Log) *BusPresenter {
	return &BusPresenter{bus: b, topic: topic, logger: logger}
}

func (p *BusPresenter) Highlight(id TargetID)      { p.publish(EventHighlight, id) }
func (p *BusPresenter) ClearHighlight(id TargetID) { p.publish(EventClearHighlight, id) }
func (p *BusPresenter) Activate(id TargetID)       { p.publish(EventActivate, id) }
func (p *BusPresenter) Indicator(active bool)      { p.publish(EventIndicator, active) }

func (p *BusPresenter) publish(eventType string, data any) {
	if err := p.bus.PublishToTopic(p.topic, bus.NewEvent(eventType, p.topic, data)); err != nil && p.logger != nil {
		p.logger.Warn("Presenter event handler failed",
			log.String("event", eventType),
			log.Error(err))
	}
}

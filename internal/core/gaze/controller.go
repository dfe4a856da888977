package gaze

import (
	"time"

	"github.com/zeusync/stereoview/internal/core/clock"
	"github.com/zeusync/stereoview/internal/core/observability/log"
	"github.com/zeusync/stereoview/internal/core/physics"
)

// Option configures a Controller.
type Option func(*Controller)

// WithDwell overrides DefaultDwell. Non-positive values are ignored.
func WithDwell(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.dwell = d
		}
	}
}

// WithLogger sets the logger for gaze transitions. Nil is ignored.
func WithLogger(l log.Log) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// Controller owns hover and dwell state over a set of targets.
//
// It is not safe for concurrent use. All methods, and the callbacks the
// scheduler runs, must be serialized by the owner; clock.Mailbox does that
// for timer fires.
type Controller struct {
	sched     clock.Scheduler
	presenter Presenter
	logger    log.Log
	dwell     time.Duration

	targets []Target
	regions []physics.Region

	hovered    TargetID
	dwellStart time.Time
	timer      clock.Timer
	// gen invalidates fires of timers that were cancelled after they had
	// already been queued.
	gen       uint64
	pressed   bool
	uiVisible bool
	indicator bool
}

// NewController returns an Idle controller with no targets.
func NewController(sched clock.Scheduler, presenter Presenter, opts ...Option) *Controller {
	c := &Controller{
		sched:     sched,
		presenter: presenter,
		logger:    log.NewNop(),
		dwell:     DefaultDwell,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dwell returns the configured dwell duration.
func (c *Controller) Dwell() time.Duration { return c.dwell }

// Tick runs one hit-test step. ray is nil while no camera is available.
// targets replaces the candidate list when non-nil (see SetTargets).
func (c *Controller) Tick(ray *physics.Ray, targets []Target, uiVisible bool) HoverChange {
	prev := c.hovered
	if targets != nil {
		c.SetTargets(targets)
	}
	c.uiVisible = uiVisible

	if !uiVisible {
		c.clearHover()
		c.pressed = false
		c.syncIndicator()
		return HoverChange{Previous: prev}
	}

	hit := c.hitTest(ray)
	if hit == c.hovered {
		return HoverChange{Previous: prev, Current: c.hovered}
	}

	c.clearHover()
	if hit != "" {
		c.hovered = hit
		c.startDwell()
		c.presenter.Highlight(hit)
		c.logger.Debug("Gaze entered target", log.String("target", string(hit)))
	}
	c.syncIndicator()
	return HoverChange{Previous: prev, Current: c.hovered}
}

// Track acquires the ray from p and ticks against the current targets.
func (c *Controller) Track(p RayProvider, pose Pose, uiVisible bool) HoverChange {
	ray, ok := p.Ray(pose)
	if !ok {
		return c.Tick(nil, nil, uiVisible)
	}
	return c.Tick(&ray, nil, uiVisible)
}

// DwellElapsed activates id if it is still the hovered target, its dwell
// is still running and the UI is still visible. Hover is cleared so the
// user has to look away and back to trigger again.
func (c *Controller) DwellElapsed(id TargetID) {
	if id == "" || id != c.hovered || c.dwellStart.IsZero() || !c.uiVisible {
		c.logger.Debug("Ignoring stale dwell", log.String("target", string(id)))
		return
	}
	c.logger.Info("Dwell activation",
		log.String("target", string(id)),
		log.Duration("held", c.sched.Now().Sub(c.dwellStart)))

	c.cancelDwell()
	c.hovered = ""
	c.presenter.ClearHighlight(id)
	c.syncIndicator()
	c.presenter.Activate(id)
}

// ManualPress handles a physical click or touch: the dwell timer stops,
// the indicator lights, and a hovered target activates immediately.
func (c *Controller) ManualPress() (TargetID, bool) {
	c.cancelDwell()
	c.pressed = true

	id := c.hovered
	if id == "" || !c.uiVisible {
		c.syncIndicator()
		return "", false
	}

	c.hovered = ""
	c.presenter.ClearHighlight(id)
	c.syncIndicator()
	c.logger.Info("Manual activation", log.String("target", string(id)))
	c.presenter.Activate(id)
	return id, true
}

// ManualRelease ends a press. A target that is still hovered gets a fresh
// dwell; releasing never activates by itself.
func (c *Controller) ManualRelease() {
	c.pressed = false
	c.cancelDwell()
	if c.hovered != "" && c.uiVisible {
		c.startDwell()
	}
	c.syncIndicator()
}

// SetTargets replaces the candidate list. Hover on a target that is no
// longer present is dropped along with its timer. Targets with an empty id
// or nil region are skipped; for duplicate ids the first one wins.
func (c *Controller) SetTargets(targets []Target) {
	seen := make(map[TargetID]struct{}, len(targets))
	c.targets = c.targets[:0]
	c.regions = c.regions[:0]
	for _, t := range targets {
		if t.ID == "" || t.Region == nil {
			continue
		}
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		c.targets = append(c.targets, t)
		c.regions = append(c.regions, t.Region)
	}

	if c.hovered != "" {
		if _, ok := seen[c.hovered]; !ok {
			c.logger.Debug("Hovered target removed", log.String("target", string(c.hovered)))
			c.clearHover()
			c.syncIndicator()
		}
	}
}

// Targets returns a copy of the current candidate list.
func (c *Controller) Targets() []Target {
	return append([]Target(nil), c.targets...)
}

// Reset returns to Idle: hover, highlight, timer and press are cleared.
// Called when gaze interaction is switched off.
func (c *Controller) Reset() {
	c.clearHover()
	c.pressed = false
	c.syncIndicator()
}

// State reports the current interaction state.
func (c *Controller) State() State {
	switch {
	case c.hovered != "" && c.timer != nil:
		return StateDwelling
	case c.hovered != "":
		return StateHovering
	case c.pressed:
		return StateArmed
	default:
		return StateIdle
	}
}

// Snapshot returns the hover, dwell start and indicator state.
func (c *Controller) Snapshot() GazeState {
	return GazeState{
		Hovered:    c.hovered,
		DwellStart: c.dwellStart,
		Armed:      c.indicator,
	}
}

func (c *Controller) hitTest(ray *physics.Ray) TargetID {
	if ray == nil {
		return ""
	}
	idx, _ := physics.Raycast(*ray, c.regions)
	if idx < 0 {
		return ""
	}
	return c.targets[idx].ID
}

func (c *Controller) clearHover() {
	c.cancelDwell()
	if c.hovered == "" {
		return
	}
	id := c.hovered
	c.hovered = ""
	c.presenter.ClearHighlight(id)
}

// startDwell always cancels the previous timer before scheduling, so at
// most one dwell timer exists.
func (c *Controller) startDwell() {
	c.cancelDwell()
	c.gen++
	gen, id := c.gen, c.hovered
	c.dwellStart = c.sched.Now()
	c.timer = c.sched.AfterFunc(c.dwell, func() { c.fire(id, gen) })
}

func (c *Controller) cancelDwell() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
		c.gen++
	}
	c.dwellStart = time.Time{}
}

func (c *Controller) fire(id TargetID, gen uint64) {
	if gen != c.gen {
		return
	}
	c.DwellElapsed(id)
}

func (c *Controller) syncIndicator() {
	armed := c.pressed || c.timer != nil
	if armed == c.indicator {
		return
	}
	c.indicator = armed
	c.presenter.Indicator(armed)
}

package gaze

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/stereoview/internal/core/clock"
	"github.com/zeusync/stereoview/internal/core/events/bus"
	"github.com/zeusync/stereoview/internal/core/physics"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type recorder struct {
	calls     []string
	activated []TargetID
	// onActivate lets a test react to activation the way a mode manager would.
	onActivate func(TargetID)
}

func (r *recorder) Highlight(id TargetID)      { r.calls = append(r.calls, "highlight:"+string(id)) }
func (r *recorder) ClearHighlight(id TargetID) { r.calls = append(r.calls, "clear:"+string(id)) }
func (r *recorder) Indicator(active bool)      { r.calls = append(r.calls, fmt.Sprintf("indicator:%v", active)) }
func (r *recorder) Activate(id TargetID) {
	r.calls = append(r.calls, "activate:"+string(id))
	r.activated = append(r.activated, id)
	if r.onActivate != nil {
		r.onActivate(id)
	}
}

// Two stacked buttons; the center of the screen sits on A.
var (
	rectA = physics.ScreenRect{X: 0.4, Y: 0.4, Width: 0.2, Height: 0.2}
	rectB = physics.ScreenRect{X: 0.4, Y: 0.7, Width: 0.2, Height: 0.1}

	onA  = physics.ScreenRay(0.5, 0.5)
	onB  = physics.ScreenRay(0.5, 0.75)
	miss = physics.ScreenRay(0.05, 0.05)
)

func twoTargets() []Target {
	return []Target{{ID: "A", Region: rectA}, {ID: "B", Region: rectB}}
}

func newTestController(t *testing.T) (*Controller, *clock.Fake, *recorder) {
	t.Helper()
	fake := clock.NewFake(epoch)
	rec := &recorder{}
	c := NewController(fake, rec)
	c.SetTargets(twoTargets())
	return c, fake, rec
}

func ray(r physics.Ray) *physics.Ray { return &r }

func TestInitialState(t *testing.T) {
	c, fake, _ := newTestController(t)
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, GazeState{}, c.Snapshot())
	assert.Equal(t, DefaultDwell, c.Dwell())
	assert.Zero(t, fake.Active())
}

func TestHoverStartsDwell(t *testing.T) {
	c, fake, rec := newTestController(t)

	change := c.Tick(ray(onA), nil, true)
	assert.True(t, change.Changed())
	assert.Equal(t, TargetID("A"), change.Current)
	assert.Equal(t, StateDwelling, c.State())
	assert.Equal(t, 1, fake.Active())

	snap := c.Snapshot()
	assert.Equal(t, TargetID("A"), snap.Hovered)
	assert.Equal(t, epoch, snap.DwellStart)
	assert.True(t, snap.Armed)
	assert.Equal(t, []string{"highlight:A", "indicator:true"}, rec.calls)
}

func TestUnchangedTickKeepsTimer(t *testing.T) {
	c, fake, rec := newTestController(t)
	c.Tick(ray(onA), nil, true)
	fake.Advance(500 * time.Millisecond)

	change := c.Tick(ray(onA), nil, true)
	assert.False(t, change.Changed())
	assert.Equal(t, epoch, c.Snapshot().DwellStart)
	assert.Len(t, rec.calls, 2)

	fake.Advance(1000 * time.Millisecond)
	assert.Equal(t, []TargetID{"A"}, rec.activated)
}

func TestFullDwellActivatesOnce(t *testing.T) {
	c, fake, rec := newTestController(t)
	c.Tick(ray(onA), nil, true)

	fake.Advance(DefaultDwell - time.Millisecond)
	assert.Empty(t, rec.activated)

	fake.Advance(time.Millisecond)
	assert.Equal(t, []TargetID{"A"}, rec.activated)
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, GazeState{}, c.Snapshot())
	assert.Zero(t, fake.Active())

	// Staring on does not repeat the activation.
	c.Tick(ray(onA), nil, true)
	fake.Advance(DefaultDwell / 2)
	assert.Len(t, rec.activated, 1)

	assert.Equal(t, []string{
		"highlight:A", "indicator:true",
		"clear:A", "indicator:false", "activate:A",
		"highlight:A", "indicator:true",
	}, rec.calls)
}

func TestShortHoverNeverActivates(t *testing.T) {
	c, fake, rec := newTestController(t)
	c.Tick(ray(onA), nil, true)
	fake.Advance(1400 * time.Millisecond)

	change := c.Tick(ray(miss), nil, true)
	assert.Equal(t, TargetID("A"), change.Previous)
	assert.Equal(t, TargetID(""), change.Current)
	assert.Zero(t, fake.Active())

	fake.Advance(10 * time.Second)
	assert.Empty(t, rec.activated)
	assert.Equal(t, StateIdle, c.State())
}

func TestHoverSwitchReplacesTimer(t *testing.T) {
	c, fake, rec := newTestController(t)
	c.Tick(ray(onA), nil, true)
	fake.Advance(1000 * time.Millisecond)

	c.Tick(ray(onB), nil, true)
	assert.Equal(t, 1, fake.Active(), "only one dwell timer may exist")
	assert.Equal(t, TargetID("B"), c.Snapshot().Hovered)

	fake.Advance(1000 * time.Millisecond)
	assert.Empty(t, rec.activated, "A's timer must not fire")

	fake.Advance(500 * time.Millisecond)
	assert.Equal(t, []TargetID{"B"}, rec.activated)
	// The indicator stays lit across the switch.
	assert.Equal(t, []string{
		"highlight:A", "indicator:true",
		"clear:A", "highlight:B",
		"clear:B", "indicator:false", "activate:B",
	}, rec.calls)
}

func TestAtMostOneTimerUnderChurn(t *testing.T) {
	c, fake, _ := newTestController(t)
	rays := []physics.Ray{onA, onB, miss, onA, onA, onB, onB, miss, onB}
	for _, r := range rays {
		c.Tick(ray(r), nil, true)
		assert.LessOrEqual(t, fake.Active(), 1)
		fake.Advance(100 * time.Millisecond)
	}
}

func TestUIHiddenForcesIdle(t *testing.T) {
	prepare := map[string]func(c *Controller, fake *clock.Fake){
		"idle": func(*Controller, *clock.Fake) {},
		"dwelling": func(c *Controller, fake *clock.Fake) {
			c.Tick(ray(onA), nil, true)
			fake.Advance(700 * time.Millisecond)
		},
		"armed": func(c *Controller, _ *clock.Fake) {
			c.Tick(ray(miss), nil, true)
			c.ManualPress()
		},
		"hovering while pressed": func(c *Controller, _ *clock.Fake) {
			c.Tick(ray(miss), nil, true)
			c.ManualPress()
			c.Tick(ray(onB), nil, true)
		},
	}
	for name, setup := range prepare {
		t.Run(name, func(t *testing.T) {
			c, fake, rec := newTestController(t)
			setup(c, fake)

			change := c.Tick(ray(onA), nil, false)
			assert.Equal(t, TargetID(""), change.Current)
			assert.Equal(t, StateIdle, c.State())
			assert.Equal(t, GazeState{}, c.Snapshot())
			assert.Zero(t, fake.Active())

			fake.Advance(5 * time.Second)
			assert.Empty(t, rec.activated)
		})
	}
}

func TestDwellIgnoredAfterUIHidden(t *testing.T) {
	c, _, rec := newTestController(t)
	c.Tick(ray(onA), nil, true)
	c.Tick(ray(onA), nil, false)

	c.DwellElapsed("A")
	assert.Empty(t, rec.activated)
}

func TestPressWhileHoveringActivatesOnce(t *testing.T) {
	c, fake, rec := newTestController(t)
	c.Tick(ray(onA), nil, true)
	fake.Advance(300 * time.Millisecond)

	id, ok := c.ManualPress()
	require.True(t, ok)
	assert.Equal(t, TargetID("A"), id)
	assert.Equal(t, StateArmed, c.State())
	assert.True(t, c.Snapshot().Armed)

	c.ManualRelease()
	assert.Equal(t, StateIdle, c.State())
	assert.False(t, c.Snapshot().Armed)

	fake.Advance(10 * time.Second)
	assert.Equal(t, []TargetID{"A"}, rec.activated)
	assert.Zero(t, fake.Active())
}

func TestPressWithoutHover(t *testing.T) {
	c, fake, rec := newTestController(t)
	c.Tick(ray(miss), nil, true)

	_, ok := c.ManualPress()
	assert.False(t, ok)
	assert.Equal(t, StateArmed, c.State())
	assert.Equal(t, []string{"indicator:true"}, rec.calls)

	// Looking at a target while holding starts the dwell as usual.
	c.Tick(ray(onB), nil, true)
	assert.Equal(t, StateDwelling, c.State())
	fake.Advance(800 * time.Millisecond)

	// Release restarts the dwell for the still-hovered target.
	c.ManualRelease()
	assert.Equal(t, epoch.Add(800*time.Millisecond), c.Snapshot().DwellStart)
	assert.Equal(t, 1, fake.Active())

	fake.Advance(1499 * time.Millisecond)
	assert.Empty(t, rec.activated)
	fake.Advance(time.Millisecond)
	assert.Equal(t, []TargetID{"B"}, rec.activated)
}

func TestSetTargetsDropsRemovedHover(t *testing.T) {
	c, fake, rec := newTestController(t)
	c.Tick(ray(onA), nil, true)
	fake.Advance(1000 * time.Millisecond)

	c.SetTargets([]Target{{ID: "B", Region: rectB}})
	assert.Equal(t, StateIdle, c.State())
	assert.Zero(t, fake.Active())
	assert.Contains(t, rec.calls, "clear:A")

	fake.Advance(5 * time.Second)
	assert.Empty(t, rec.activated)

	// A late stale dwell call is ignored too.
	c.DwellElapsed("A")
	assert.Empty(t, rec.activated)
}

func TestSetTargetsKeepsSurvivingHover(t *testing.T) {
	c, fake, rec := newTestController(t)
	c.Tick(ray(onA), nil, true)
	c.SetTargets([]Target{{ID: "A", Region: rectA}})
	assert.Equal(t, StateDwelling, c.State())

	fake.Advance(DefaultDwell)
	assert.Equal(t, []TargetID{"A"}, rec.activated)
}

func TestTickReplacesTargets(t *testing.T) {
	c, _, _ := newTestController(t)
	c.Tick(ray(onA), nil, true)

	change := c.Tick(ray(onA), []Target{{ID: "B", Region: rectB}}, true)
	assert.Equal(t, TargetID("A"), change.Previous)
	assert.Equal(t, TargetID(""), change.Current)
	assert.Len(t, c.Targets(), 1)
}

func TestSetTargetsFiltersInvalid(t *testing.T) {
	c, _, _ := newTestController(t)
	c.SetTargets([]Target{
		{ID: "", Region: rectA},
		{ID: "nil-region"},
		{ID: "A", Region: rectB},
		{ID: "A", Region: rectA},
	})
	targets := c.Targets()
	require.Len(t, targets, 1)
	assert.Equal(t, rectB, targets[0].Region)
}

func TestFirstScreenMatchWins(t *testing.T) {
	c, _, _ := newTestController(t)
	c.SetTargets([]Target{
		{ID: "outer", Region: physics.ScreenRect{Width: 1, Height: 1}},
		{ID: "A", Region: rectA},
	})
	c.Tick(ray(onA), nil, true)
	assert.Equal(t, TargetID("outer"), c.Snapshot().Hovered)
}

func TestNoRayMeansNoHover(t *testing.T) {
	c, fake, _ := newTestController(t)
	c.Tick(ray(onA), nil, true)
	change := c.Tick(nil, nil, true)
	assert.Equal(t, TargetID(""), change.Current)
	assert.Zero(t, fake.Active())
}

func TestLookAwayAndBackRestartsDwell(t *testing.T) {
	c, fake, rec := newTestController(t)

	c.Tick(ray(onA), nil, true) // t=0
	fake.Advance(500 * time.Millisecond)
	c.Tick(ray(onA), nil, true) // t=500
	fake.Advance(100 * time.Millisecond)
	c.Tick(ray(miss), nil, true) // t=600
	fake.Advance(100 * time.Millisecond)
	c.Tick(ray(onA), nil, true) // t=700

	fake.Advance(800 * time.Millisecond) // t=1500
	assert.Empty(t, rec.activated)

	fake.Advance(699 * time.Millisecond) // t=2199
	assert.Empty(t, rec.activated)

	var at time.Time
	rec.onActivate = func(TargetID) { at = fake.Now() }
	fake.Advance(time.Millisecond) // t=2200
	assert.Equal(t, []TargetID{"A"}, rec.activated)
	assert.Equal(t, epoch.Add(2200*time.Millisecond), at)
}

func TestActivationMaySwapTargets(t *testing.T) {
	c, fake, rec := newTestController(t)
	rec.onActivate = func(TargetID) {
		// A mode switch rebuilds the target list from inside the activation.
		c.SetTargets([]Target{{ID: "B", Region: rectB}})
	}
	c.Tick(ray(onA), nil, true)
	fake.Advance(DefaultDwell)

	assert.Equal(t, []TargetID{"A"}, rec.activated)
	assert.Equal(t, StateIdle, c.State())
	assert.Zero(t, fake.Active())
}

func TestStaleQueuedFireIgnored(t *testing.T) {
	fake := clock.NewFake(epoch)
	var queue []func()
	mb := clock.NewMailbox(fake, func(f func()) { queue = append(queue, f) })
	rec := &recorder{}
	c := NewController(mb, rec)
	c.SetTargets(twoTargets())

	c.Tick(ray(onA), nil, true)
	fake.Advance(DefaultDwell)
	require.Len(t, queue, 1, "fire is waiting in the mailbox")

	// The user looks away and back before the queued fire is processed.
	c.Tick(ray(miss), nil, true)
	c.Tick(ray(onA), nil, true)
	queue[0]()
	assert.Empty(t, rec.activated, "fire belongs to a cancelled dwell")

	fake.Advance(DefaultDwell)
	require.Len(t, queue, 2)
	queue[1]()
	assert.Equal(t, []TargetID{"A"}, rec.activated)
}

func TestResetReturnsToIdle(t *testing.T) {
	c, fake, rec := newTestController(t)
	c.Tick(ray(onA), nil, true)
	c.Reset()
	assert.Equal(t, StateIdle, c.State())
	assert.Zero(t, fake.Active())
	assert.Equal(t, []string{"highlight:A", "indicator:true", "clear:A", "indicator:false"}, rec.calls)
}

func TestWithDwell(t *testing.T) {
	fake := clock.NewFake(epoch)
	rec := &recorder{}
	c := NewController(fake, rec, WithDwell(300*time.Millisecond), WithDwell(-1))
	c.SetTargets(twoTargets())
	c.Tick(ray(onA), nil, true)
	fake.Advance(300 * time.Millisecond)
	assert.Equal(t, []TargetID{"A"}, rec.activated)
}

func TestWorldSpaceProxies(t *testing.T) {
	fake := clock.NewFake(epoch)
	rec := &recorder{}
	c := NewController(fake, rec)
	c.SetTargets([]Target{
		{ID: "far", Region: physics.Sphere{Center: physics.Vec3{Z: -20}, Radius: 2}},
		{ID: "near", Region: physics.Box{Min: physics.Vec3{X: -1, Y: -1, Z: -6}, Max: physics.Vec3{X: 1, Y: 1, Z: -4}}},
		{ID: "hud", Region: rectA},
	})

	c.Track(HeadPoseRay{}, Pose{Orientation: physics.IdentityQuat, Valid: true}, true)
	assert.Equal(t, TargetID("near"), c.Snapshot().Hovered)

	c.Track(HeadPoseRay{}, Pose{}, true)
	assert.Equal(t, TargetID(""), c.Snapshot().Hovered, "invalid pose yields no ray")

	c.Track(FixedScreenCenterRay{}, Pose{}, true)
	assert.Equal(t, TargetID("hud"), c.Snapshot().Hovered)
}

func TestBusPresenterPublishes(t *testing.T) {
	b := bus.New()
	var got []string
	for _, et := range []string{EventHighlight, EventClearHighlight, EventActivate, EventIndicator} {
		_, err := b.SubscribeTopic("test", et, func(e bus.Event) error {
			assert.Equal(t, "test", e.Source())
			got = append(got, fmt.Sprintf("%s=%v", e.Type(), e.Data()))
			return nil
		})
		require.NoError(t, err)
	}
	// The default topic stays quiet.
	_, err := b.Subscribe(EventHighlight, func(bus.Event) error {
		t.Error("default topic must not see topic events")
		return nil
	})
	require.NoError(t, err)

	fake := clock.NewFake(epoch)
	c := NewController(fake, NewBusPresenter(b, "test", nil))
	c.SetTargets(twoTargets())
	c.Tick(ray(onA), nil, true)
	fake.Advance(DefaultDwell)

	assert.Equal(t, []string{
		"gaze.highlight=A", "gaze.indicator=true",
		"gaze.clear_highlight=A", "gaze.indicator=false", "gaze.activate=A",
	}, got)
}

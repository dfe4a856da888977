package server

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/zeusync/stereoview/internal/core/clock"
	"github.com/zeusync/stereoview/internal/core/events/bus"
	"github.com/zeusync/stereoview/internal/core/gaze"
	"github.com/zeusync/stereoview/internal/core/observability/log"
	"github.com/zeusync/stereoview/internal/core/protocol"
	pws "github.com/zeusync/stereoview/internal/core/protocol/websocket"
	"github.com/zeusync/stereoview/internal/core/viewer"
	"github.com/zeusync/stereoview/internal/core/world"
)

// Session is one connected page. A single actor goroutine owns the
// controller and the manager; everything else reaches them by posting
// closures to the mailbox.
type Session struct {
	id     string
	conn   *pws.Connection
	logger log.Log

	mailbox chan func()
	outbox  chan protocol.Message
	// later holds work queued by bus handlers while the actor is inside a
	// controller call. It runs once that call has returned.
	later []func()
	done  <-chan struct{}

	events     bus.EventBus
	subs       []bus.Subscription
	controller *gaze.Controller
	manager    *viewer.Manager

	worldParams world.Params
	worldSeed   uint64
	worldSent   bool

	presenting bool
	gazeOn     bool
	revision   uint64
	seq        uint64
}

func newSession(s *Server, conn *pws.Connection) (*Session, error) {
	cfg := s.config
	id := conn.ID()
	logger := s.logger.With(
		log.String("session", id),
		log.String("remote_addr", conn.RemoteAddr().String()))

	manager, err := viewer.NewManager(cfg.ViewerSettings(), logger)
	if err != nil {
		return nil, err
	}

	seed := world.SeedFrom(id)
	if cfg.World.Seed != "" {
		seed = world.SeedFrom(cfg.World.Seed)
	}

	sess := &Session{
		id:          id,
		conn:        conn,
		logger:      logger,
		mailbox:     make(chan func(), cfg.Server.MailboxSize),
		outbox:      make(chan protocol.Message, cfg.Server.OutboxSize),
		events:      s.events,
		manager:     manager,
		worldParams: cfg.World.Params,
		worldSeed:   seed,
	}

	presenter := gaze.NewBusPresenter(sess.events, id, logger)
	sess.controller = gaze.NewController(
		clock.NewMailbox(s.sched, sess.post),
		presenter,
		gaze.WithDwell(cfg.Gaze.Dwell),
		gaze.WithLogger(logger),
	)

	if err := sess.subscribe(); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Session) ID() string { return s.id }

// Stats returns the connection counters.
func (s *Session) Stats() pws.Stats { return s.conn.Stats() }

// Run serves the session until the peer leaves or ctx ends.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	s.done = gctx.Done()

	g.Go(func() error {
		defer cancel()
		return s.readLoop(gctx)
	})
	g.Go(func() error {
		defer cancel()
		return s.writeLoop(gctx)
	})
	g.Go(func() error {
		defer cancel()
		return s.actorLoop(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		_ = s.conn.Close()
		return nil
	})

	err := g.Wait()
	// The actor is gone; stopping the dwell timer here publishes to a
	// topic without subscribers.
	for _, sub := range s.subs {
		_ = s.events.Unsubscribe(sub)
	}
	s.controller.Reset()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// post hands f to the actor. It gives up once the session has ended.
func (s *Session) post(f func()) {
	select {
	case s.mailbox <- f:
	case <-s.done:
	}
}

// send queues a message for the writer. It reports false once the session
// has ended or the payload cannot be encoded.
func (s *Session) send(t protocol.Type, payload any) bool {
	msg, err := protocol.New(t, payload)
	if err != nil {
		s.logger.Error("Failed to encode message", log.String("type", string(t)), log.Error(err))
		return false
	}
	select {
	case s.outbox <- msg:
		return true
	case <-s.done:
		return false
	}
}

func (s *Session) sendError(ref uint64, err error) {
	s.logger.Warn("Client message rejected", log.Uint64("seq", ref), log.Error(err))
	s.send(protocol.TypeError, protocol.Error{Message: err.Error(), Ref: ref})
}

func (s *Session) readLoop(ctx context.Context) error {
	for {
		msg, err := s.conn.Receive()
		if err != nil {
			if ctx.Err() != nil || pws.IsNormalClose(err) {
				return nil
			}
			if errors.Is(err, protocol.ErrInvalidMessage) || errors.Is(err, protocol.ErrUnknownType) {
				s.sendError(msg.Seq, err)
				continue
			}
			return err
		}
		s.post(func() { s.handle(msg) })
	}
}

func (s *Session) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-s.outbox:
			s.seq++
			msg.Seq = s.seq
			if err := s.conn.Send(msg); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

func (s *Session) actorLoop(ctx context.Context) error {
	s.greet()
	for {
		select {
		case <-ctx.Done():
			return nil
		case f := <-s.mailbox:
			f()
			s.runLater()
		}
	}
}

func (s *Session) runLater() {
	for len(s.later) > 0 {
		f := s.later[0]
		s.later = s.later[1:]
		f()
	}
}

func (s *Session) subscribe() error {
	forward := func(t protocol.Type) bus.EventHandler {
		return func(e bus.Event) error {
			id, _ := e.Data().(gaze.TargetID)
			if !s.send(t, protocol.Target{ID: string(id)}) {
				return errSessionEnded
			}
			return nil
		}
	}
	subs := []struct {
		event   string
		handler bus.EventHandler
	}{
		{gaze.EventHighlight, forward(protocol.TypeHighlight)},
		{gaze.EventClearHighlight, forward(protocol.TypeClearHighlight)},
		{gaze.EventActivate, forward(protocol.TypeActivate)},
		{gaze.EventActivate, s.onActivate},
		{gaze.EventIndicator, func(e bus.Event) error {
			active, _ := e.Data().(bool)
			if !s.send(protocol.TypeIndicator, protocol.Indicator{Active: active}) {
				return errSessionEnded
			}
			return nil
		}},
	}
	for _, sub := range subs {
		handle, err := s.events.SubscribeTopic(s.id, sub.event, sub.handler)
		if err != nil {
			for _, h := range s.subs {
				_ = h.Cancel()
			}
			return err
		}
		s.subs = append(s.subs, handle)
	}
	return nil
}

// onActivate runs inside the controller; the action is deferred until the
// controller call has returned.
func (s *Session) onActivate(e bus.Event) error {
	id, _ := e.Data().(gaze.TargetID)
	s.later = append(s.later, func() {
		if err := s.manager.Activate(id); err != nil {
			s.sendError(0, err)
		}
		s.sync()
	})
	return nil
}

func (s *Session) greet() {
	s.send(protocol.TypeHello, protocol.Hello{
		Session: s.id,
		DwellMS: s.controller.Dwell().Milliseconds(),
	})
	s.sync()
}

func (s *Session) handle(msg protocol.Message) {
	var err error
	switch msg.Type {
	case protocol.TypeFrame:
		err = s.handleFrame(msg)
	case protocol.TypePress:
		if !s.gazeOn {
			break
		}
		s.controller.ManualPress()
	case protocol.TypeRelease:
		if !s.gazeOn {
			break
		}
		s.controller.ManualRelease()
	case protocol.TypeClick:
		var c protocol.Click
		if err = msg.Decode(&c); err == nil {
			err = s.manager.Activate(gaze.TargetID(c.ID))
		}
	case protocol.TypeLayout:
		var l protocol.Layout
		if err = msg.Decode(&l); err == nil {
			err = s.manager.SetLayout(l.Targets)
		}
	case protocol.TypeUI:
		var u protocol.UI
		if err = msg.Decode(&u); err == nil {
			if u.Visible {
				s.manager.ShowUI()
			} else {
				s.manager.HideUI()
			}
		}
	case protocol.TypeXR:
		var x protocol.XR
		if err = msg.Decode(&x); err == nil {
			s.presenting = x.Presenting
			s.logger.Info("XR session", log.Bool("presenting", x.Presenting))
		}
	case protocol.TypeMode:
		var m protocol.ModeChange
		if err = msg.Decode(&m); err == nil {
			var mode viewer.Mode
			if mode, err = viewer.ParseMode(m.Mode); err == nil {
				err = s.manager.SetMode(mode)
			}
		}
	case protocol.TypeVR:
		s.manager.ToggleVR()
	}
	if err != nil {
		s.sendError(msg.Seq, err)
	}
	s.sync()
}

func (s *Session) handleFrame(msg protocol.Message) error {
	var f protocol.Frame
	if err := msg.Decode(&f); err != nil {
		return err
	}
	if !s.gazeOn {
		return nil
	}
	ui := s.manager.UIVisible()
	switch {
	case s.presenting && f.Pose != nil:
		pose := gaze.Pose{Position: f.Pose.Position, Orientation: f.Pose.Orientation, Valid: true}
		s.controller.Track(gaze.HeadPoseRay{}, pose, ui)
	case s.presenting:
		s.controller.Tick(nil, nil, ui)
	case f.Pointer:
		s.controller.Track(gaze.FixedScreenCenterRay{}, gaze.Pose{}, ui)
	}
	return nil
}

// sync pushes manager changes into the controller and the page.
func (s *Session) sync() {
	gazeOn := s.presenting || s.manager.VR()
	if gazeOn != s.gazeOn {
		s.gazeOn = gazeOn
		if !gazeOn {
			s.controller.Reset()
		}
	}

	rev := s.manager.Revision()
	if rev == s.revision {
		return
	}
	s.revision = rev
	s.controller.SetTargets(s.manager.Targets())
	s.sendState()

	if s.manager.Mode() == viewer.ModeVRWorld && !s.worldSent {
		s.worldSent = true
		s.send(protocol.TypeWorld, world.NewScene(s.worldParams, s.worldSeed))
	}
}

func (s *Session) sendState() {
	s.send(protocol.TypeState, s.manager.Snapshot())
}

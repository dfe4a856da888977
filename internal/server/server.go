package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/zeusync/stereoview/internal/config"
	"github.com/zeusync/stereoview/internal/core/clock"
	"github.com/zeusync/stereoview/internal/core/events/bus"
	"github.com/zeusync/stereoview/internal/core/observability/log"
)

// Server hosts one viewer session per connected page.
type Server struct {
	config config.Config
	logger log.Log
	sched  clock.Scheduler
	// events carries presenter commands, one topic per session.
	events bus.EventBus

	upgrader   websocket.Upgrader
	httpServer *http.Server
	listener   net.Listener

	sessions     sync.Map // map[string]*Session
	sessionCount int64    // atomic

	running int32 // atomic bool
	closed  int32 // atomic bool

	// ctx outlives requests; hijacked sockets are not tracked by http.Server.
	ctx       context.Context
	cancel    context.CancelFunc
	workersMu sync.Mutex
	workers   sync.WaitGroup
}

type Option func(*Server)

// WithScheduler replaces the real clock used for dwell timers.
func WithScheduler(s clock.Scheduler) Option {
	return func(srv *Server) {
		if s != nil {
			srv.sched = s
		}
	}
}

func New(cfg *config.Config, logger log.Log, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config: *cfg,
		logger: logger.With(log.String("component", "server")),
		sched:  clock.Real{},
		events: bus.New(),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.events.AddObserver(&deliveryObserver{logger: s.logger})
	if err := s.subscribeLifecycle(); err != nil {
		cancel()
		return nil, err
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	s.logger.Info("Server created",
		log.String("listen_addr", cfg.Server.ListenAddr),
		log.Int("max_sessions", cfg.Server.MaxSessions))

	return s, nil
}

// Handler serves /ws and /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(_ context.Context) error {
	if atomic.LoadInt32(&s.closed) == 1 {
		return ErrServerClosed
	}
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		return ErrServerAlreadyRunning
	}

	ln, err := net.Listen("tcp", s.config.Server.ListenAddr)
	if err != nil {
		atomic.StoreInt32(&s.running, 0)
		s.logger.Error("Failed to create listener", log.Error(err))
		return errors.Join(ErrListenerFailed, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{Handler: s.Handler()}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server stopped", log.Error(err))
		}
	}()

	s.logger.Info("Server listening", log.String("addr", ln.Addr().String()))
	return nil
}

// Addr is the bound address once started.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop refuses new connections, ends every session and waits for them.
func (s *Server) Stop(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.running, 1, 0) {
		return ErrServerNotRunning
	}
	s.logger.Info("Stopping server")

	err := s.httpServer.Shutdown(ctx)
	if cerr := s.closeSessions(ctx); cerr != nil {
		return cerr
	}

	s.logger.Info("Server stopped")
	return err
}

// Close ends every session without touching the listener. It is what a
// caller serving Handler on its own http.Server uses.
func (s *Server) Close() error {
	if atomic.LoadInt32(&s.running) == 1 {
		return s.Stop(context.Background())
	}
	return s.closeSessions(context.Background())
}

// track registers a session worker unless the server is closing.
func (s *Server) track() bool {
	s.workersMu.Lock()
	defer s.workersMu.Unlock()
	if atomic.LoadInt32(&s.closed) == 1 {
		return false
	}
	s.workers.Add(1)
	return true
}

func (s *Server) closeSessions(ctx context.Context) error {
	s.workersMu.Lock()
	atomic.StoreInt32(&s.closed, 1)
	s.workersMu.Unlock()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.workers.Wait()
		close(done)
	}()
	select {
	case <-done:
		return s.events.Close()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SessionCount is the number of live sessions.
func (s *Server) SessionCount() int {
	return int(atomic.LoadInt64(&s.sessionCount))
}

// Traffic sums the counters of every live session.
func (s *Server) Traffic() Traffic {
	var t Traffic
	s.sessions.Range(func(_, value any) bool {
		st := value.(*Session).Stats()
		t.MessagesIn += st.MessagesReceived
		t.MessagesOut += st.MessagesSent
		t.BytesIn += st.BytesReceived
		t.BytesOut += st.BytesSent
		return true
	})
	return t
}

func (s *Server) reserve() bool {
	if atomic.AddInt64(&s.sessionCount, 1) > int64(s.config.Server.MaxSessions) {
		atomic.AddInt64(&s.sessionCount, -1)
		return false
	}
	return true
}

func (s *Server) release() {
	atomic.AddInt64(&s.sessionCount, -1)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	allowed := s.config.Server.AllowedOrigins
	if len(allowed) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, o := range allowed {
		if o == origin {
			return true
		}
	}
	s.logger.Warn("Rejected origin", log.String("origin", origin))
	return false
}

package server

import (
	"time"

	"github.com/zeusync/stereoview/internal/core/events/bus"
	"github.com/zeusync/stereoview/internal/core/observability/log"
)

// Session lifecycle events, published on the default topic with the
// *Session as data.
const (
	EventSessionOpened = "session.opened"
	EventSessionClosed = "session.closed"
)

func (s *Server) publish(eventType string, session *Session) {
	if err := s.events.Publish(bus.NewEvent(eventType, "server", session)); err != nil {
		s.logger.Warn("Lifecycle event failed",
			log.String("event", eventType),
			log.String("session", session.ID()),
			log.Error(err))
	}
}

func (s *Server) subscribeLifecycle() error {
	if _, err := s.events.Subscribe(EventSessionOpened, s.onSessionOpened); err != nil {
		return err
	}
	_, err := s.events.Subscribe(EventSessionClosed, s.onSessionClosed)
	return err
}

func (s *Server) onSessionOpened(e bus.Event) error {
	session, ok := e.Data().(*Session)
	if !ok {
		return nil
	}
	s.sessions.Store(session.ID(), session)
	s.logger.Info("Session connected",
		log.String("session", session.ID()),
		log.String("remote_addr", session.conn.RemoteAddr().String()),
		log.Int("total_sessions", s.SessionCount()))
	return nil
}

func (s *Server) onSessionClosed(e bus.Event) error {
	session, ok := e.Data().(*Session)
	if !ok {
		return nil
	}
	s.sessions.Delete(session.ID())
	st := session.Stats()
	s.logger.Info("Session disconnected",
		log.String("session", session.ID()),
		log.Uint64("messages_in", st.MessagesReceived),
		log.Uint64("messages_out", st.MessagesSent),
		log.Uint64("bytes_in", st.BytesReceived),
		log.Uint64("bytes_out", st.BytesSent),
		log.Duration("connected_for", time.Since(st.ConnectedAt)))
	return nil
}

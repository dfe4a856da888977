package server

import (
	"net/http"

	"github.com/zeusync/stereoview/internal/core/observability/log"
	pws "github.com/zeusync/stereoview/internal/core/protocol/websocket"
)

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.track() {
		http.Error(w, ErrServerClosed.Error(), http.StatusServiceUnavailable)
		return
	}
	defer s.workers.Done()

	if !s.reserve() {
		s.logger.Warn("Maximum sessions reached, rejecting connection",
			log.String("remote_addr", r.RemoteAddr))
		http.Error(w, ErrMaxSessionsReached.Error(), http.StatusServiceUnavailable)
		return
	}
	defer s.release()

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", log.Error(err))
		return
	}

	conn := pws.NewConnection(ws, pws.Config{
		ReadLimit:    s.config.Server.ReadLimit,
		WriteTimeout: s.config.Server.WriteTimeout,
	})
	session, err := newSession(s, conn)
	if err != nil {
		s.logger.Error("Failed to create session", log.Error(err))
		_ = conn.Close()
		return
	}

	s.publish(EventSessionOpened, session)

	if err := session.Run(s.ctx); err != nil {
		s.logger.Warn("Session ended with error",
			log.String("session", session.ID()),
			log.Error(err))
	}

	s.publish(EventSessionClosed, session)
}

package server

import (
	"encoding/json"
	"net/http"
)

// Traffic is the websocket volume of the live sessions.
type Traffic struct {
	MessagesIn  uint64 `json:"messages_in"`
	MessagesOut uint64 `json:"messages_out"`
	BytesIn     uint64 `json:"bytes_in"`
	BytesOut    uint64 `json:"bytes_out"`
}

type eventStats struct {
	Published uint64 `json:"published"`
	Errors    uint64 `json:"errors"`
}

type healthResponse struct {
	Status   string     `json:"status"`
	Sessions int        `json:"sessions"`
	Max      int        `json:"max_sessions"`
	Traffic  Traffic    `json:"traffic"`
	Events   eventStats `json:"events"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	status := "ok"
	if s.SessionCount() >= s.config.Server.MaxSessions {
		status = "full"
	}
	m := s.events.GetMetrics()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthResponse{
		Status:   status,
		Sessions: s.SessionCount(),
		Max:      s.config.Server.MaxSessions,
		Traffic:  s.Traffic(),
		Events:   eventStats{Published: m.Published, Errors: m.Errors},
	})
}

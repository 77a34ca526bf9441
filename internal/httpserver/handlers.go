package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"webrtc-rendezvous/internal/broker"
	"webrtc-rendezvous/internal/metrics"
	"webrtc-rendezvous/internal/session"
	"webrtc-rendezvous/internal/store"
)

const indexHTML = `<!doctype html>
<html>
<head><title>rendezvous</title></head>
<body>
<h1>rendezvous</h1>
<p>WebRTC signaling broker. Hosts register at <code>POST /host</code>;
clients join at <code>POST /join</code>. Public sessions are listed at
<code>GET /sessions</code>.</p>
</body>
</html>
`

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(indexHTML))
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"ready": false})
		return
	}
	if err := s.store.Ping(r.Context()); err != nil {
		WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"ready": false, "error": "store unreachable"})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ready": true})
}

type registerHostRequest struct {
	// Public is a pointer so a missing field is distinguishable from an
	// explicit false.
	Public   *bool  `json:"public"`
	HostName string `json:"host_name"`
}

type registerHostResponse struct {
	Success     bool   `json:"success"`
	SessionName string `json:"session_name"`
	HostSecret  string `json:"host_secret"`
}

func (s *Server) handleRegisterHost(w http.ResponseWriter, r *http.Request) {
	var req registerHostRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.Public == nil {
		writeError(w, http.StatusBadRequest, "public must be a boolean")
		return
	}

	creds, err := s.broker.RegisterHost(r.Context(), *req.Public, req.HostName)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, registerHostResponse{
		Success:     true,
		SessionName: creds.SessionName,
		HostSecret:  creds.HostSecret,
	})
}

func (s *Server) handleHostMessages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	msgs, err := s.broker.HostMessages(r.Context(), q.Get("session_name"), q.Get("host_secret"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, msgs)
}

type joinRequest struct {
	SessionName string `json:"session_name"`
	ClientName  string `json:"client_name"`
	RTCOffer    string `json:"rtc_offer"`
}

type joinResponse struct {
	Success      bool   `json:"success"`
	ClientSecret string `json:"client_secret"`
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	secret, err := s.broker.InitiateJoin(r.Context(), req.SessionName, req.ClientName, req.RTCOffer)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, joinResponse{Success: true, ClientSecret: secret})
}

type joinCandidatesRequest struct {
	SessionName  string   `json:"session_name"`
	ClientName   string   `json:"client_name"`
	ClientSecret string   `json:"client_secret"`
	Candidates   []string `json:"candidates"`
}

func (s *Server) handleJoinCandidates(w http.ResponseWriter, r *http.Request) {
	var req joinCandidatesRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	err := s.broker.RelayCandidates(r.Context(), req.SessionName, req.ClientName, req.ClientSecret, req.Candidates)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

type joinResponseRequest struct {
	SessionName string          `json:"session_name"`
	ClientName  string          `json:"client_name"`
	HostSecret  string          `json:"host_secret"`
	Messages    json.RawMessage `json:"messages"`
}

func (s *Server) handleJoinResponse(w http.ResponseWriter, r *http.Request) {
	var req joinResponseRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	err := s.broker.RelayToClient(r.Context(), req.SessionName, req.ClientName, req.HostSecret, req.Messages)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleClientMessages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	msgs, err := s.broker.ClientMessages(r.Context(), q.Get("session_name"), q.Get("client_name"), q.Get("client_secret"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, msgs)
}

type listSessionsResponse struct {
	Success  bool              `json:"success"`
	Sessions []session.Summary `json:"sessions"`
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.broker.ListSessions(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []session.Summary{}
	}
	WriteJSON(w, http.StatusOK, listSessionsResponse{Success: true, Sessions: sessions})
}

// decodeBody decodes a JSON request body into v, writing the error
// response itself on failure.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return false
	}
	return true
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, broker.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, broker.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthenticated")
	case errors.Is(err, broker.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, broker.ErrNameTaken):
		writeError(w, http.StatusConflict, "client name already taken")
	case errors.Is(err, broker.ErrNameSpaceExhausted):
		writeError(w, http.StatusServiceUnavailable, "no session names available")
	case errors.Is(err, store.ErrUnavailable):
		s.metrics.Inc(metrics.StoreError)
		s.log.Error("store unavailable", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusBadGateway, "backing store unavailable")
	default:
		s.log.Error("unhandled broker error", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// WriteJSON writes a JSON response body and sets the Content-Type header.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(v)
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, errorResponse{Success: false, Error: msg})
}

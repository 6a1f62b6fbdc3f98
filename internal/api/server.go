// Package api exposes the session controls and the transcript over HTTP.
package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	orchestration "github.com/koscakluka/ema-realtime/core"
	"github.com/koscakluka/ema-realtime/core/audio"
	"github.com/koscakluka/ema-realtime/core/conversation"
	"github.com/koscakluka/ema-realtime/core/items"
	"github.com/koscakluka/ema-realtime/core/realtime"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Controller is the part of the orchestrator the API drives.
type Controller interface {
	Session() orchestration.Session
	Transcript() conversation.Snapshot
	Profiles() []realtime.Profile

	Connect(ctx context.Context) error
	Disconnect(ctx context.Context)
	ToggleMute(ctx context.Context) error
	ToggleRecording(ctx context.Context) error
	SetProfile(ctx context.Context, id string) error
}

type Server struct {
	controller Controller
	handler    http.Handler
	addr       string
	logger     *slog.Logger

	httpServer *http.Server
}

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewServer(controller Controller, addr string, opts ...ServerOption) *Server {
	srv := &Server{
		controller: controller,
		addr:       addr,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(srv)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", srv.handleHealth)
		r.Get("/session", srv.handleGetSession)
		r.Get("/transcript", srv.handleGetTranscript)
		r.Get("/transcript/{itemID}/audio", srv.handleGetItemAudio)
		r.Get("/profiles", srv.handleListProfiles)

		r.Post("/session/connect", srv.handleConnect)
		r.Post("/session/disconnect", srv.handleDisconnect)
		r.Post("/session/mute", srv.handleToggleMute)
		r.Post("/session/record", srv.handleToggleRecording)
		r.Put("/session/profile", srv.handleSetProfile)
	})

	srv.handler = otelhttp.NewHandler(r, "ema-realtime",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
	return srv
}

func (s *Server) Handler() http.Handler { return s.handler }

// Start serves until Shutdown is called. It returns nil after a clean
// shutdown.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.logger.Info("starting HTTP API", "addr", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "ema-realtime",
		"state":   s.controller.Session().State.String(),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newSessionResponse(s.controller.Session()))
}

func (s *Server) handleGetTranscript(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newTranscriptResponse(s.controller.Transcript()))
}

func (s *Server) handleGetItemAudio(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")

	item, ok := s.controller.Transcript().Find(itemID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
		return
	}
	if len(item.Formatted.File) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "item has no audio"})
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.WriteHeader(http.StatusOK)
	w.Write(item.Formatted.File)
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Profiles())
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, "connect", s.controller.Connect(r.Context()))
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	s.controller.Disconnect(r.Context())
	s.respond(w, r, "disconnect", nil)
}

func (s *Server) handleToggleMute(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, "toggle mute", s.controller.ToggleMute(r.Context()))
}

func (s *Server) handleToggleRecording(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, "toggle recording", s.controller.ToggleRecording(r.Context()))
}

type setProfileRequest struct {
	ID string `json:"id"`
}

func (s *Server) handleSetProfile(w http.ResponseWriter, r *http.Request) {
	var req setProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "profile id is required"})
		return
	}
	s.respond(w, r, "set profile", s.controller.SetProfile(r.Context(), req.ID))
}

// respond writes the session state after a control operation, or the error
// mapped to a status code.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, operation string, err error) {
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.ErrorContext(r.Context(), operation+" failed", "error", err)
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(s.controller.Session()))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, orchestration.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, orchestration.ErrUnknownProfile):
		return http.StatusNotFound
	case errors.Is(err, orchestration.ErrDeviceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, orchestration.ErrTransport):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

type sessionResponse struct {
	State     string            `json:"state"`
	Connected bool              `json:"connected"`
	Recording bool              `json:"recording"`
	Muted     bool              `json:"muted"`
	StartedAt *time.Time        `json:"started_at,omitempty"`
	Profile   *realtime.Profile `json:"profile,omitempty"`
}

func newSessionResponse(session orchestration.Session) sessionResponse {
	resp := sessionResponse{
		State:     session.State.String(),
		Connected: session.Connected,
		Recording: session.Recording,
		Muted:     session.Muted,
		Profile:   session.Profile,
	}
	if !session.StartedAt.IsZero() {
		startedAt := session.StartedAt
		resp.StartedAt = &startedAt
	}
	return resp
}

type transcriptResponse struct {
	Version uint64         `json:"version"`
	Items   []itemResponse `json:"items"`
}

type itemResponse struct {
	ID         string `json:"id"`
	Role       string `json:"role,omitempty"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	Label      string `json:"label"`
	Text       string `json:"text,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	ToolName   string `json:"tool_name,omitempty"`
	Arguments  string `json:"arguments,omitempty"`
	Output     string `json:"output,omitempty"`
	// AudioMs is the duration of the accumulated audio.
	AudioMs int64 `json:"audio_ms"`
	// File is the base64 WAV rendition, present once the item completes.
	File string `json:"file,omitempty"`
}

func newTranscriptResponse(snapshot conversation.Snapshot) transcriptResponse {
	resp := transcriptResponse{Version: snapshot.Version, Items: make([]itemResponse, 0, len(snapshot.Items))}
	for _, item := range snapshot.Items {
		resp.Items = append(resp.Items, newItemResponse(item))
	}
	return resp
}

func newItemResponse(item items.Item) itemResponse {
	resp := itemResponse{
		ID:         item.ID,
		Role:       string(item.Role),
		Type:       string(item.Type),
		Status:     string(item.Status),
		Label:      item.Label(),
		Text:       item.Formatted.Text,
		Transcript: item.Formatted.Transcript,
		Output:     item.Formatted.Output,
		AudioMs:    int64(audio.GetDefaultEncodingInfo().SamplesToMilliseconds(len(item.Formatted.Audio))),
	}
	if tool := item.Formatted.Tool; tool != nil {
		resp.ToolName = tool.Name
		resp.Arguments = tool.Arguments
	}
	if len(item.Formatted.File) > 0 {
		resp.File = base64.StdEncoding.EncodeToString(item.Formatted.File)
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bryanchriswhite/viewcapture/internal/capture"
	"github.com/bryanchriswhite/viewcapture/internal/config"
	"github.com/bryanchriswhite/viewcapture/internal/logger"
	"github.com/bryanchriswhite/viewcapture/internal/window"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Version is reported by the health endpoint and the CLI
var Version = "0.1.0"

const (
	maxRequestBody  = 64 << 10
	requestIDHeader = "X-Request-ID"
)

// Capturer produces captures; *capture.Orchestrator satisfies it
type Capturer interface {
	Capture(target capture.Target, bounds capture.Bounds) (*capture.Result, error)
	Native() capture.NativeCapturer
}

// WindowLister reports which windows match which targets; *window.Resolver
// satisfies it
type WindowLister interface {
	Matches() ([]window.Match, error)
}

// Server represents the HTTP API server
type Server struct {
	router    *mux.Router
	capturer  Capturer
	windows   WindowLister
	configMgr *config.Manager
	upgrader  websocket.Upgrader
	http      *http.Server
}

// NewServer creates a new API server
func NewServer(capturer Capturer, windows WindowLister, configMgr *config.Manager) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		capturer:  capturer,
		windows:   windows,
		configMgr: configMgr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins
			},
		},
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/capture", s.handleCapture).Methods("POST")
	api.HandleFunc("/capture/stream", s.handleCaptureStream)
	api.HandleFunc("/capture/{target:[a-z]+}.png", s.handleCapturePNG).Methods("GET")

	api.HandleFunc("/targets", s.handleTargets).Methods("GET")
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	s.router.Use(s.logRequests)
}

// Handler returns the root handler with CORS applied
func (s *Server) Handler() http.Handler {
	return s.enableCORS(s.router)
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start(port int) error {
	log := logger.WithComponent("api")

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().Msgf("Starting server on http://localhost:%d", port)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// enableCORS adds CORS headers
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// logRequests tags each request with an ID, echoed in the response header
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(requestIDHeader, id)

		next.ServeHTTP(w, r)
		logger.WithComponent("api").Debug().
			Str("request_id", id).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("Request")
	})
}

func (s *Server) defaults() Defaults {
	if s.configMgr == nil {
		return Defaults{Target: config.TargetGame}
	}
	return DefaultsFrom(s.configMgr.Get().Capture)
}

// HTTP Handlers

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, FailureResponse(&ValidationError{Err: err}))
		return
	}

	resp := s.execute(body, w.Header().Get(requestIDHeader))
	status := http.StatusOK
	if resp.ErrorKind == ErrorKindValidation {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, resp)
}

func (s *Server) execute(body []byte, requestID string) CaptureResponse {
	log := logger.WithComponent("api")

	req, err := ParseRequest(body)
	if err != nil {
		log.Debug().Err(err).Str("request_id", requestID).Msg("Rejected capture request")
		return FailureResponse(err)
	}

	resp := Execute(s.capturer, req, s.defaults())
	if !resp.Success {
		log.Info().
			Str("request_id", requestID).
			Str("target", req.Target).
			Str("error_kind", resp.ErrorKind).
			Str("message", resp.Message).
			Msg("Capture request failed")
	}
	return resp
}

// handleCapturePNG serves the raw PNG for quick inspection in a browser
func (s *Server) handleCapturePNG(w http.ResponseWriter, r *http.Request) {
	req := CaptureRequest{Target: mux.Vars(r)["target"]}
	q := r.URL.Query()
	for key, dst := range map[string]**int{"maxWidth": &req.MaxWidth, "maxHeight": &req.MaxHeight} {
		raw := q.Get(key)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, FailureResponse(&ValidationError{
				Err: fmt.Errorf("%s must be an integer", key),
			}))
			return
		}
		*dst = &v
	}

	target, bounds, err := req.Resolve(s.defaults())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, FailureResponse(err))
		return
	}

	res, err := s.capturer.Capture(target, bounds)
	if err != nil {
		status := http.StatusInternalServerError
		switch capture.KindOf(err) {
		case capture.KindNoActiveSurface:
			status = http.StatusNotFound
		case capture.KindInvalidBounds:
			status = http.StatusBadRequest
		}
		writeJSON(w, status, FailureResponse(err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Capture-Description", res.Description)
	w.Write(res.PNG)
}

// handleCaptureStream answers each capture request message on a WebSocket.
// Message n is logged as <connection request id>-<n>.
func (s *Server) handleCaptureStream(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("api")

	connID := w.Header().Get(requestIDHeader)
	conn, err := s.upgrader.Upgrade(w, r, http.Header{requestIDHeader: []string{connID}})
	if err != nil {
		log.Warn().Err(err).Str("request_id", connID).Msg("WebSocket upgrade error")
		return
	}
	defer conn.Close()

	for n := 1; ; n++ {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Str("request_id", connID).Msg("WebSocket read error")
			}
			return
		}

		if err := conn.WriteJSON(s.execute(msg, fmt.Sprintf("%s-%d", connID, n))); err != nil {
			log.Debug().Err(err).Str("request_id", connID).Msg("WebSocket write error")
			return
		}
	}
}

func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request) {
	if s.windows == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no window backend"})
		return
	}

	matches, err := s.windows.Matches()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	resp := struct {
		Rules   map[string]config.TargetRule `json:"rules,omitempty"`
		Windows []window.Match               `json:"windows"`
	}{Windows: matches}
	if s.configMgr != nil {
		resp.Rules = s.configMgr.Get().Targets
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	native := s.capturer.Native()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"version": Version,
		"native_capturer": map[string]interface{}{
			"name":      native.Name(),
			"available": native.Available(),
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithComponent("api").Debug().Err(err).Msg("Failed to write response")
	}
}

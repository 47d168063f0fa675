// Package dashboard, dashboard daemon'ının HTTP yüzüdür.
//
// Daemon tek bir realtime.Service'e sahiptir. Bu paket o servisi:
//   - session endpoint'leriyle besler (JWT → identity, logout → cleanup)
//   - read-only projection'ları JSON ve SSE olarak sunar
//
// Consumer'lar (admin UI sekmeleri, yardımcı araçlar) subscription yönetmez;
// sadece state'i okur veya /api/realtime/events'i dinler.
package dashboard

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
	"github.com/juju/clock"
	"github.com/rs/cors"

	"github.com/akinalp/adminpulse/models"
	"github.com/akinalp/adminpulse/pkg"
	"github.com/akinalp/adminpulse/realtime"
	"github.com/akinalp/adminpulse/ws"
)

const (
	// keepAliveInterval: SSE bağlantısında boş yorum satırı aralığı.
	// Proxy'lerin boşta kalan bağlantıyı kesmemesi için.
	keepAliveInterval = 25 * time.Second
	// watchBuffer: her SSE consumer'ının store bildirim kuyruğu.
	watchBuffer = 64
)

// Server, daemon'ın HTTP server'ı.
type Server struct {
	rt        *realtime.Service
	tokens    ws.TokenValidator
	clock     clock.Clock
	onSession func(token string)
	router    chi.Router
}

// Options, Server ayarları.
type Options struct {
	// AllowedOrigins: CORS izinli origin'ler. Boşsa CORS middleware'ı eklenmez.
	AllowedOrigins []string
	// Clock: SSE keep-alive zamanlayıcısı. nil → WallClock.
	Clock clock.Clock
	// OnSession: session açılınca doğrulanmış token ile, kapanınca "" ile çağrılır.
	// Socket feed'i servis token'ı yoksa session token'ıyla bağlanır.
	OnSession func(token string)
}

// New, server'ı oluşturur ve route'ları kurar.
func New(rt *realtime.Service, tokens ws.TokenValidator, opts Options) *Server {
	s := &Server{rt: rt, tokens: tokens, clock: opts.Clock, onSession: opts.OnSession}
	if s.clock == nil {
		s.clock = clock.WallClock
	}
	if s.onSession == nil {
		s.onSession = func(string) {}
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
		}).Handler)
	}

	r.Get("/api/health", s.handleHealth)
	r.Put("/api/session", s.handleStartSession)
	r.Delete("/api/session", s.handleEndSession)
	r.Route("/api/realtime", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/events", s.handleEvents)
		r.Post("/refresh", s.handleRefresh)
	})

	s.router = r
	return s
}

// ServeHTTP, http.Handler implementasyonu.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// --- Session ---

// handleStartSession godoc
// PUT /api/session
// Token Authorization header'ından veya {"token": "..."} body'sinden okunur.
// Realtime kurulumu arka planda başlar; yanıt 202 döner.
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		var body struct {
			Token string `json:"token"`
		}
		if err := pkg.DecodeJSON(r, &body); err != nil {
			pkg.Error(w, err)
			return
		}
		token = body.Token
	}
	if token == "" {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "token required")
		return
	}

	claims, err := s.tokens.ValidateAccessToken(token)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	s.onSession(token)
	go s.rt.UpdateIdentity(claims.UserID)
	pkg.JSON(w, http.StatusAccepted, map[string]string{"identity": claims.UserID})
}

// handleEndSession godoc
// DELETE /api/session
func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	s.rt.UpdateIdentity("")
	s.onSession("")
	pkg.JSON(w, http.StatusOK, map[string]string{"message": "session ended"})
}

// --- Realtime projections ---

type stateResponse struct {
	models.Snapshot
	Channels []models.ChannelInfo `json:"channels"`
}

// handleState godoc
// GET /api/realtime/state
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	pkg.JSON(w, http.StatusOK, stateResponse{
		Snapshot: s.rt.Store().Snapshot(),
		Channels: s.rt.Channels(),
	})
}

// handleRefresh godoc
// POST /api/realtime/refresh
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.rt.ForceRefresh(r.Context()); err != nil {
		pkg.Error(w, fmt.Errorf("%w: refresh failed: %v", pkg.ErrUnavailable, err))
		return
	}
	pkg.JSON(w, http.StatusOK, s.rt.Store().Counters())
}

// handleHealth godoc
// GET /api/health
// Session yoksa "idle", bağlıysa "ok", değilse 503 "degraded".
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	conn := s.rt.Connection()
	status, code := "ok", http.StatusOK
	switch {
	case s.rt.Identity() == "":
		status = "idle"
	case !conn.IsConnected:
		status, code = "degraded", http.StatusServiceUnavailable
	}

	pkg.JSON(w, code, map[string]any{
		"status":     status,
		"service":    "adminpulse-dashboard",
		"connection": conn,
		"channels":   s.rt.Channels(),
	})
}

// --- SSE ---

// eventPayload, SSE ile gönderilen store bildirimi.
// Sayaçlar ve bağlantı durumu her bildirime eklenir; koleksiyonlar için
// consumer /api/realtime/state'i tekrar okur.
type eventPayload struct {
	models.StoreChange
	Counters   models.Counters         `json:"counters"`
	Connection models.ConnectionStatus `json:"connection"`
}

// handleEvents godoc
// GET /api/realtime/events
//
// İlk event tam snapshot'tır ("snapshot"), sonrası store bildirimleri
// (event adı = topic). Yavaş consumer bildirim kaçırabilir; seq boşluğu
// görürse state'i tekrar okumalı.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	changes, cancel := s.rt.Store().Watch(watchBuffer)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, "snapshot", s.rt.Store().Snapshot()); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		log.Printf("[dashboard] streaming unsupported: %v", err)
		return
	}

	keepAlive := s.clock.NewTimer(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			payload := eventPayload{
				StoreChange: change,
				Counters:    s.rt.Store().Counters(),
				Connection:  s.rt.Connection(),
			}
			if err := writeEvent(w, string(change.Topic), payload); err != nil {
				return
			}
		case <-keepAlive.Chan():
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			keepAlive.Reset(keepAliveInterval)
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", name, err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}

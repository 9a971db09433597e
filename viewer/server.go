package viewer

import (
	"context"
	_ "embed"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/s0up4200/civshow/slideshow"
)

// DefaultSessionIdle is how long an unused session is kept
const DefaultSessionIdle = 30 * time.Minute

//go:embed static/index.html
var indexHTML []byte

// Option configures a Server
type Option func(*Server)

// WithControllerOptions sets the options every session Controller is
// created with
func WithControllerOptions(opts ...slideshow.Option) Option {
	return func(s *Server) {
		s.controllerOpts = append(s.controllerOpts, opts...)
	}
}

// WithSessionIdle sets how long an unused session is kept
func WithSessionIdle(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.sessionIdle = d
		}
	}
}

// Server is the web slideshow
type Server struct {
	router         chi.Router
	sessions       *sessions
	fetcher        slideshow.Fetcher
	logger         zerolog.Logger
	controllerOpts []slideshow.Option
	sessionIdle    time.Duration
}

// NewServer creates the web viewer. Each browser session gets its own
// Controller backed by fetcher.
func NewServer(fetcher slideshow.Fetcher, logger zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		fetcher:     fetcher,
		logger:      logger,
		sessionIdle: DefaultSessionIdle,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.sessions = newSessions(func() *slideshow.Controller {
		return slideshow.NewController(s.fetcher, s.logger, s.controllerOpts...)
	}, logger)
	s.router = s.routes()

	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/health", handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/events", s.handleEvents)
		r.Post("/draft", s.handleDraft)
		r.Post("/apply", s.action(fixed(slideshow.ApplyFilters{})))
		r.Post("/next", s.action(fixed(slideshow.ManualNext{})))
		r.Post("/reset", s.action(fixed(slideshow.ManualReset{})))
		r.Post("/panel", s.action(fixed(slideshow.TogglePanel{})))
		r.Post("/advance", s.action(parseAdvance))
		r.Post("/page/{page}", s.action(intParam("page", func(n int) slideshow.Action {
			return slideshow.JumpToPage{Page: n}
		})))
		r.Post("/seek/{index}", s.action(intParam("index", func(n int) slideshow.Action {
			return slideshow.Seek{Index: n}
		})))
		r.Post("/delay/{seconds}", s.action(intParam("seconds", func(n int) slideshow.Action {
			return slideshow.SetDelay{Seconds: n}
		})))
	})

	return r
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Sweep closes idle sessions
func (s *Server) Sweep() int {
	n := s.sessions.sweep(s.sessionIdle)
	if n > 0 {
		s.logger.Debug().Int("closed", n).Int("open", s.sessions.len()).Msg("Closed idle viewer sessions")
	}
	return n
}

// RunSweeper sweeps idle sessions until ctx is done
func (s *Server) RunSweeper(ctx context.Context) error {
	ticker := time.NewTicker(s.sessionIdle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Close stops every session's fetches
func (s *Server) Close() {
	s.sessions.closeAll()
}

// requestLogger logs each request through zerolog
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Debug().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("HTTP request")
		})
	}
}

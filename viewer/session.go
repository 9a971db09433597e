package viewer

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/s0up4200/civshow/slideshow"
)

const sessionCookie = "civshow_session"

type session struct {
	controller *slideshow.Controller
	lastSeen   time.Time
	// streams counts open event streams; a watched session is never idle
	streams int
}

// sessions gives every browser its own Controller, keyed by a cookie
type sessions struct {
	mu     sync.Mutex
	byID   map[string]*session
	create func() *slideshow.Controller
	logger zerolog.Logger
	now    func() time.Time
}

func newSessions(create func() *slideshow.Controller, logger zerolog.Logger) *sessions {
	return &sessions{
		byID:   make(map[string]*session),
		create: create,
		logger: logger,
		now:    time.Now,
	}
}

// get returns the caller's Controller, starting a session and its first
// load when the request carries no known session cookie
func (s *sessions) get(w http.ResponseWriter, r *http.Request) *slideshow.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(w, r).controller
}

// watch is get for event streams. The session is not swept until the
// returned release is called.
func (s *sessions) watch(w http.ResponseWriter, r *http.Request) (*slideshow.Controller, func()) {
	s.mu.Lock()
	sess := s.lookup(w, r)
	sess.streams++
	s.mu.Unlock()

	var once sync.Once
	return sess.controller, func() {
		once.Do(func() {
			s.mu.Lock()
			sess.streams--
			sess.lastSeen = s.now()
			s.mu.Unlock()
		})
	}
}

// lookup finds or starts the caller's session. Callers hold s.mu.
func (s *sessions) lookup(w http.ResponseWriter, r *http.Request) *session {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			if sess, ok := s.byID[id.String()]; ok {
				sess.lastSeen = s.now()
				return sess
			}
		}
	}

	id := uuid.NewString()
	sess := &session{controller: s.create(), lastSeen: s.now()}
	s.byID[id] = sess

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	s.logger.Debug().Str("session", id).Msg("Started viewer session")
	sess.controller.Dispatch(slideshow.Init{})

	return sess
}

// sweep closes sessions idle for longer than maxIdle and returns how many
// were closed. Sessions with an open event stream are kept.
func (s *sessions) sweep(maxIdle time.Duration) int {
	s.mu.Lock()
	cutoff := s.now().Add(-maxIdle)
	var stale []*slideshow.Controller
	for id, sess := range s.byID {
		if sess.streams == 0 && sess.lastSeen.Before(cutoff) {
			stale = append(stale, sess.controller)
			delete(s.byID, id)
		}
	}
	s.mu.Unlock()

	for _, c := range stale {
		c.Close()
	}
	return len(stale)
}

func (s *sessions) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

func (s *sessions) closeAll() {
	s.mu.Lock()
	all := s.byID
	s.byID = make(map[string]*session)
	s.mu.Unlock()

	for _, sess := range all {
		sess.controller.Close()
	}
}

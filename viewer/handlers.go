package viewer

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/s0up4200/civshow/civitai"
	"github.com/s0up4200/civshow/slideshow"
)

// maxDraftBody bounds the filter JSON accepted by /api/draft
const maxDraftBody = 4 << 10

// stateResponse is the JSON shape of a slideshow snapshot
type stateResponse struct {
	slideshow.State
	Status  string             `json:"status"`
	Current *civitai.MediaItem `json:"current,omitempty"`
}

func newStateResponse(s slideshow.State) stateResponse {
	if s.Page.Items == nil {
		s.Page.Items = []civitai.MediaItem{}
	}
	resp := stateResponse{State: s, Status: s.Status()}
	if item, ok := s.Current(); ok {
		resp.Current = &item
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, `{"status":"ok"}`)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.sessions.get(w, r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	c := s.sessions.get(w, r)
	writeJSON(w, http.StatusOK, newStateResponse(c.Snapshot()))
}

func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	var draft slideshow.FilterSnapshot
	if err := json.NewDecoder(io.LimitReader(r.Body, maxDraftBody)).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid filters: %w", err))
		return
	}
	draft, err := draft.Normalize()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	c := s.sessions.get(w, r)
	writeJSON(w, http.StatusOK, newStateResponse(c.Dispatch(slideshow.EditDraft{Filters: draft})))
}

// handleEvents streams a snapshot after every state change
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}

	c, release := s.sessions.watch(w, r)
	defer release()
	updates, unsubscribe := c.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func() error {
		data, err := json.Marshal(newStateResponse(c.Snapshot()))
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: state\ndata: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if err := send(); err != nil {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case _, ok := <-updates:
			if !ok {
				// The session was closed; the client reconnects into a new one
				return
			}
			if err := send(); err != nil {
				s.logger.Debug().Err(err).Msg("Event stream closed")
				return
			}
		}
	}
}

type actionParser func(r *http.Request) (slideshow.Action, error)

// action dispatches the parsed action on the caller's Controller and
// responds with the new state
func (s *Server) action(parse actionParser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := parse(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		c := s.sessions.get(w, r)
		writeJSON(w, http.StatusOK, newStateResponse(c.Dispatch(a)))
	}
}

func fixed(a slideshow.Action) actionParser {
	return func(*http.Request) (slideshow.Action, error) {
		return a, nil
	}
}

func intParam(name string, build func(int) slideshow.Action) actionParser {
	return func(r *http.Request) (slideshow.Action, error) {
		n, err := strconv.Atoi(chi.URLParam(r, name))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %q", name, chi.URLParam(r, name))
		}
		return build(n), nil
	}
}

func parseAdvance(r *http.Request) (slideshow.Action, error) {
	step := 1
	if v := r.URL.Query().Get("step"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid step: %q", v)
		}
		step = n
	}
	return slideshow.Advance{Step: step}, nil
}

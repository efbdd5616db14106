// Package server exposes the chord matcher and a practice session over
// HTTP so browser front-ends and web MIDI clients can drive them.
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/jsphweid/chordcoach/aggregator"
	"github.com/jsphweid/chordcoach/chord"
	"github.com/jsphweid/chordcoach/midi"
	"github.com/jsphweid/chordcoach/model"
	"github.com/jsphweid/chordcoach/session"
	"github.com/jsphweid/chordcoach/util"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 16

type Server struct {
	agg    *aggregator.Aggregator
	engine *session.Engine
	log    *log.Entry
}

func New(agg *aggregator.Aggregator, engine *session.Engine, logger *log.Entry) *Server {
	if logger == nil {
		logger = log.WithField("component", "server")
	}
	return &Server{agg: agg, engine: engine, log: logger}
}

// Handler routes every endpoint and allows cross-origin requests.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/classify", s.HandleClassify).Methods("POST")
	router.HandleFunc("/midi", s.HandleMidi).Methods("POST")
	router.HandleFunc("/session", s.HandleSession).Methods("GET")
	router.HandleFunc("/session/stats", s.HandleStats).Methods("GET")
	router.HandleFunc("/session/attempts", s.HandleAttempts).Methods("GET")
	router.HandleFunc("/session/{action:start|pause|skip|restart}", s.HandleAction).Methods("POST")
	return cors.Default().Handler(router)
}

// ListenAndServe serves until ctx is cancelled and then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) HandleClassify(w http.ResponseWriter, r *http.Request) {
	var input model.ClassifyRequestBody
	if err := decodeBody(r, &input); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(input.Notes) == 0 {
		s.writeError(w, http.StatusBadRequest, errors.New("notes must not be empty"))
		return
	}
	s.writeJSON(w, http.StatusOK, model.ClassifyResponse{
		Key:   chord.CreateChordKey(input.Notes),
		Match: chord.Classify(input.Notes),
	})
}

// HandleMidi relays one raw message from a web MIDI client into the
// aggregator.
func (s *Server) HandleMidi(w http.ResponseWriter, r *http.Request) {
	var input model.MidiRequestBody
	if err := decodeBody(r, &input); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	raw := make([]byte, len(input.Bytes))
	for i, b := range input.Bytes {
		if b < 0 || b > 0xff {
			s.writeError(w, http.StatusBadRequest, errors.Errorf("byte %d out of range: %d", i, b))
			return
		}
		raw[i] = byte(b)
	}
	if err := midi.FeedBytes(s.agg, raw, time.Now()); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) HandleSession(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.sessionResponse())
}

func (s *Server) HandleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Stats())
}

func (s *Server) HandleAttempts(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Attempts())
}

func (s *Server) HandleAction(w http.ResponseWriter, r *http.Request) {
	var err error
	switch action := mux.Vars(r)["action"]; action {
	case "start":
		err = s.engine.Start()
	case "pause":
		err = s.engine.Pause()
	case "skip":
		err = s.engine.SkipChord()
	case "restart":
		err = s.engine.Restart()
	default:
		err = errors.Errorf("unknown action %q", action)
	}
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, session.ErrInvalidTransition), errors.Is(err, session.ErrDisposed):
			status = http.StatusConflict
		}
		s.writeError(w, status, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.sessionResponse())
}

func (s *Server) sessionResponse() model.SessionResponse {
	streak, _ := s.engine.Streak()
	res := model.SessionResponse{
		State:       s.engine.State(),
		TaskIndex:   s.engine.TaskIndex(),
		TaskCount:   len(s.engine.Tasks()),
		Score:       s.engine.Score(),
		Streak:      streak,
		ActiveNotes: util.SortedKeys(s.agg.GetActiveNotes()),
	}
	if task, ok := s.engine.CurrentTask(); ok {
		res.Task = &task
	}
	return res
}

func decodeBody(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return errors.Wrap(err, "reading request body")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.Wrap(err, "could not unmarshal request body")
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Warn("writing response failed")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.log.WithFields(log.Fields{
		"status": status,
		"error":  err,
	}).Debug("request failed")
	s.writeJSON(w, status, model.ErrorResponse{Error: err.Error()})
}

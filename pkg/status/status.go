// Package status serves a live view of a running probe over HTTP.
package status

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// Snapshot is what GET /api/status returns.
type Snapshot struct {
	RunID   string `json:"run_id"`
	Ops     int64  `json:"ops"`
	Ok      int64  `json:"ok"`
	Failed  int64  `json:"failed"`
	Unknown int64  `json:"unknown"`
	Nemesis string `json:"nemesis"`
}

// Source produces the current snapshot on demand.
type Source func() Snapshot

// Server serves run status on addr until the process exits.
type Server struct {
	addr string
	src  Source
}

func NewServer(addr string, src Source) *Server {
	return &Server{addr: addr, src: src}
}

// Start listens in the background. Listen errors surface on the returned
// channel; a status endpoint failing should not take the run down.
func (s *Server) Start() <-chan error {
	r := mux.NewRouter()
	sr := r.PathPrefix("/api").Subrouter()
	sr.Path("/status").Methods("GET").HandlerFunc(s.handleStatus)

	errs := make(chan error, 1)
	go func() {
		errs <- http.ListenAndServe(s.addr, r)
	}()
	return errs
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.src()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

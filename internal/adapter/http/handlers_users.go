package adapthttp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleUserList(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.ListSummaries(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleUserProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.users.Profile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats.ComputeStats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

package http

import (
	"errors"
	"net/http"

	"github.com/couchcryptid/facility-freshness/internal/domain"
	"github.com/couchcryptid/facility-freshness/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

type facilitiesResponse struct {
	Snapshot *domain.Snapshot `json:"snapshot"`
	domain.ViewResult
}

type summaryResponse struct {
	Snapshot *domain.Snapshot      `json:"snapshot"`
	Criteria domain.FilterCriteria `json:"criteria"`
	Summary  domain.Summary        `json:"summary"`
}

type statsResponse struct {
	Snapshot *domain.Snapshot `json:"snapshot"`
	domain.Stats
}

// currentSnapshot writes 503 and reports false when no healthy snapshot exists.
func (s *Server) currentSnapshot(w http.ResponseWriter) (*domain.Snapshot, bool) {
	snap, err := s.service.Current()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return nil, false
	}
	return snap, true
}

// serveCached answers from the response cache or renders, caches and answers.
func (s *Server) serveCached(w http.ResponseWriter, r *http.Request, snap *domain.Snapshot, render func() any) {
	key := cacheKey(snap.Generation, r.URL.Path, r.URL.Query())
	if v, ok := s.cache.get(key); ok {
		sharedobs.WriteJSON(w, http.StatusOK, v)
		return
	}
	v := render()
	s.cache.set(key, v)
	sharedobs.WriteJSON(w, http.StatusOK, v)
}

func (s *Server) handleFacilities(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.currentSnapshot(w)
	if !ok {
		return
	}
	q := r.URL.Query()
	criteria, err := parseCriteria(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	pages, err := parsePages(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s.serveCached(w, r, snap, func() any {
		view := domain.NewView(snap.Records).WithMacroRegions(s.macros)
		view.SetCriteria(criteria)
		for range pages - 1 {
			view.Grow()
		}
		return facilitiesResponse{Snapshot: snap, ViewResult: view.Result()}
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.currentSnapshot(w)
	if !ok {
		return
	}
	criteria, err := parseCriteria(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s.serveCached(w, r, snap, func() any {
		matching := domain.FilterWith(snap.Records, criteria, s.macros)
		return summaryResponse{
			Snapshot: snap,
			Criteria: criteria,
			Summary:  domain.Summarize(snap.Records, matching),
		}
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.currentSnapshot(w)
	if !ok {
		return
	}
	entity := r.URL.Query().Get("entity")

	s.serveCached(w, r, snap, func() any {
		return statsResponse{Snapshot: snap, Stats: domain.Breakdown(snap.Records, entity)}
	})
}

func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.currentSnapshot(w)
	if !ok {
		return
	}
	s.serveCached(w, r, snap, func() any {
		return map[string][]string{"entities": domain.Entities(snap.Records)}
	})
}

func (s *Server) handleMacroRegions(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.macros)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := s.service.Refresh(r.Context())
	switch {
	case errors.Is(err, pipeline.ErrSuperseded):
		writeError(w, http.StatusConflict, err)
	case err != nil:
		s.logger.Warn("manual refresh failed", "error", err)
		writeError(w, http.StatusBadGateway, err)
	default:
		sharedobs.WriteJSON(w, http.StatusOK, snap)
	}
}

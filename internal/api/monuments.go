package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bowerhall/monumentd/internal/catalog"
	"github.com/bowerhall/monumentd/internal/facets"
	"github.com/bowerhall/monumentd/internal/logger"
	"github.com/bowerhall/monumentd/internal/monument"
)

// writeMonuments honours ?base=true by answering with base projections.
func writeMonuments(w http.ResponseWriter, r *http.Request, ms []monument.Monument) {
	if queryBool(r, "base") {
		writeJSON(w, http.StatusOK, monument.Bases(ms))
		return
	}
	writeJSON(w, http.StatusOK, ms)
}

func (s *Server) handleAll(w http.ResponseWriter, r *http.Request) {
	writeMonuments(w, r, s.catalog.All())
}

func (s *Server) handleByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid id %q", chi.URLParam(r, "id")))
		return
	}

	m, err := s.catalog.ByID(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid id %q", chi.URLParam(r, "id")))
		return
	}

	data, err := s.catalog.ImageBytes(r.Context(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		logger.Error("image read failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("image unavailable"))
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(data)
}

func (s *Server) handleNearby(w http.ResponseWriter, r *http.Request) {
	lat, okLat := queryFloat(r, "latitude")
	lon, okLon := queryFloat(r, "longitude")
	km, okKm := queryFloat(r, "distance")
	if !okLat || !okLon || !okKm {
		writeError(w, http.StatusBadRequest, errors.New("latitude, longitude and distance are required numbers"))
		return
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 || km < 0 {
		writeError(w, http.StatusBadRequest, errors.New("coordinates or distance out of range"))
		return
	}

	writeMonuments(w, r, s.catalog.Nearby(lat, lon, km))
}

// handleByField matches case-insensitively, as users type names freely.
func (s *Server) handleByField(field monument.Field) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ms, err := s.catalog.ByField(field, chi.URLParam(r, "value"), true)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeMonuments(w, r, ms)
	}
}

func (s *Server) handleFacets(w http.ResponseWriter, r *http.Request) {
	dim, err := facets.ParseDimension(chi.URLParam(r, "dimension"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	values, err := s.catalog.FacetValues(r.Context(), dim)
	if err != nil {
		logger.Error("facet read failed", "dimension", dim, "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("facets unavailable"))
		return
	}
	writeJSON(w, http.StatusOK, values)
}

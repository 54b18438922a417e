package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/yourusername/pitwall/internal/datasource"
	"github.com/yourusername/pitwall/internal/models"
)

// Pass-through handlers answer with the same JSON envelopes the upstream
// prediction API uses.

func (s *Server) handleCurrentRace(w http.ResponseWriter, r *http.Request) {
	race, err := s.provider.FetchCurrentRace(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, race)
}

func (s *Server) handleRacePredictions(w http.ResponseWriter, r *http.Request) {
	raceID, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	predictions, err := s.provider.FetchRacePredictions(r.Context(), raceID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"predictions": predictions})
}

func (s *Server) handleDriver(w http.ResponseWriter, r *http.Request) {
	driverID, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	driver, err := s.provider.FetchDriver(r.Context(), driverID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, driver)
}

func (s *Server) handleDriverPerformance(w http.ResponseWriter, r *http.Request) {
	driverID, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	limit := datasource.DefaultPerformanceLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			s.writeError(w, r, fmt.Errorf("%w: limit must be a positive integer", errInvalidBody))
			return
		}
	}

	performance, err := s.provider.FetchDriverPerformance(r.Context(), driverID, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"performance": performance})
}

func (s *Server) handleDriverExplanations(w http.ResponseWriter, r *http.Request) {
	driverID, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var raceID *int
	if raw := r.URL.Query().Get("race_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			s.writeError(w, r, fmt.Errorf("%w: race_id must be a positive integer", errInvalidBody))
			return
		}
		raceID = &id
	}

	explanations, err := s.provider.FetchDriverExplanations(r.Context(), driverID, raceID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"explanations": explanations})
}

func (s *Server) handleModelStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.provider.FetchModelStatus(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"model_status": status})
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")

	var driverID *int
	if raw := r.URL.Query().Get("driver_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			s.writeError(w, r, fmt.Errorf("%w: driver_id must be a positive integer", errInvalidBody))
			return
		}
		driverID = &id
	}

	telemetry, err := s.provider.FetchTelemetry(r.Context(), sessionID, driverID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"telemetry": telemetry})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req models.PredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errInvalidBody, err))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, r, err)
		return
	}

	resp, err := s.provider.Predict(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/mkalvans/skyfence/internal/db"
	"github.com/mkalvans/skyfence/internal/metrics"
	"github.com/mkalvans/skyfence/pkg/intercept"
	"github.com/mkalvans/skyfence/pkg/simulation"
	"github.com/mkalvans/skyfence/pkg/threat"
)

// radarReport is one track observation submitted for evaluation.
type radarReport struct {
	SpeedMS            float64 `json:"speed_ms"`
	AltitudeM          float64 `json:"altitude_m"`
	HeadingDeg         float64 `json:"heading_deg"`
	Latitude           float64 `json:"latitude"`
	Longitude          float64 `json:"longitude"`
	SecondsSinceLaunch float64 `json:"seconds_since_launch,omitempty"`
}

// decisionResponse is the flattened wire shape of an intercept decision.
// Optional fields are present only when an interceptor was assigned.
type decisionResponse struct {
	ThreatLevel        string   `json:"threat_level"`
	BaseName           *string  `json:"base_name"`
	InterceptorType    *string  `json:"interceptor_type"`
	BaseLatitude       *float64 `json:"base_latitude"`
	BaseLongitude      *float64 `json:"base_longitude"`
	InterceptLatitude  *float64 `json:"intercept_latitude"`
	InterceptLongitude *float64 `json:"intercept_longitude"`
	TimeToInterceptS   *float64 `json:"time_to_intercept_s"`
	InterceptorLat     *float64 `json:"interceptor_current_latitude"`
	InterceptorLon     *float64 `json:"interceptor_current_longitude"`
	CalculatedCostEUR  *float64 `json:"calculated_cost_eur"`
	Note               string   `json:"note"`
	MapURL             *string  `json:"map_url"`
}

// toDecisionResponse flattens a core decision, recomputing the interceptor's
// current position for the report's elapsed-since-launch clock.
func toDecisionResponse(track intercept.Track, d intercept.Decision) decisionResponse {
	resp := decisionResponse{
		ThreatLevel: string(d.Level),
		Note:        d.Note,
	}

	a := d.Assignment
	if a == nil {
		return resp
	}

	resp.BaseName = &a.SiteName
	resp.InterceptorType = &a.InterceptorName
	resp.BaseLatitude = &a.SiteLat
	resp.BaseLongitude = &a.SiteLon
	resp.InterceptLatitude = &a.InterceptLat
	resp.InterceptLongitude = &a.InterceptLon
	resp.TimeToInterceptS = &a.TimeToInterceptS
	resp.CalculatedCostEUR = &a.Cost
	resp.MapURL = &a.MapURL

	if lat, lon, ok := intercept.CurrentPosition(d, track.SecondsSinceLaunch); ok {
		resp.InterceptorLat = &lat
		resp.InterceptorLon = &lon
	}

	return resp
}

// validateReport rejects non-finite or out-of-range inputs before the core
// sees them. The solver itself assumes validated numbers.
func validateReport(rep radarReport) error {
	for name, v := range map[string]float64{
		"speed_ms":    rep.SpeedMS,
		"altitude_m":  rep.AltitudeM,
		"heading_deg": rep.HeadingDeg,
		"latitude":    rep.Latitude,
		"longitude":   rep.Longitude,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be finite", name)
		}
	}
	if rep.SpeedMS < 0 {
		return fmt.Errorf("speed_ms must be >= 0")
	}
	if rep.Latitude < -90 || rep.Latitude > 90 {
		return fmt.Errorf("latitude out of range")
	}
	if rep.Longitude < -180 || rep.Longitude > 180 {
		return fmt.Errorf("longitude out of range")
	}
	if rep.SecondsSinceLaunch < 0 {
		return fmt.Errorf("seconds_since_launch must be >= 0")
	}
	return nil
}

func (rep radarReport) toTrack() intercept.Track {
	return intercept.Track{
		SpeedMS:            rep.SpeedMS,
		AltitudeM:          rep.AltitudeM,
		HeadingDeg:         rep.HeadingDeg,
		Latitude:           rep.Latitude,
		Longitude:          rep.Longitude,
		SecondsSinceLaunch: rep.SecondsSinceLaunch,
	}
}

// handleLogin handles operator login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := s.userRepo.GetByUsername(r.Context(), req.Username)
	if err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if err := s.authSvc.ComparePassword(user.PasswordHash, req.Password); err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if !user.IsActive {
		http.Error(w, "Account is disabled", http.StatusForbidden)
		return
	}

	token, err := s.authSvc.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	_ = s.userRepo.UpdateLastLogin(r.Context(), user.ID)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"token":   token,
		"user": map[string]interface{}{
			"id":       user.ID,
			"username": user.Username,
			"role":     user.Role,
		},
	})
}

// handleIntercept evaluates one radar report and returns the decision.
func (s *Server) handleIntercept(w http.ResponseWriter, r *http.Request) {
	var rep radarReport
	if err := json.NewDecoder(r.Body).Decode(&rep); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validateReport(rep); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	offerings, err := s.catalogRepo.GetOfferings(r.Context())
	if err != nil {
		log.Printf("Error loading catalog: %v", err)
		http.Error(w, "Failed to load catalog", http.StatusInternalServerError)
		return
	}
	metrics.SetCatalogOfferings(len(offerings))

	track := rep.toTrack()

	start := time.Now()
	decision := intercept.Solve(track, offerings)
	metrics.ObserveDecision(string(decision.Level), decisionOutcome(decision), time.Since(start))

	if err := s.decisionRepo.Record(r.Context(), track, decision); err != nil {
		log.Printf("Warning: failed to audit decision: %v", err)
	}

	respondJSON(w, http.StatusOK, toDecisionResponse(track, decision))
}

// simulationRequest describes the initial track for a tick simulation.
type simulationRequest struct {
	InitialLatitude  float64 `json:"initial_latitude"`
	InitialLongitude float64 `json:"initial_longitude"`
	SpeedMS          float64 `json:"speed_ms"`
	AltitudeM        float64 `json:"altitude_m"`
	HeadingDeg       float64 `json:"heading_deg"`
	DurationSeconds  int     `json:"duration_seconds"`
}

func (req simulationRequest) toReport() radarReport {
	return radarReport{
		SpeedMS:    req.SpeedMS,
		AltitudeM:  req.AltitudeM,
		HeadingDeg: req.HeadingDeg,
		Latitude:   req.InitialLatitude,
		Longitude:  req.InitialLongitude,
	}
}

// simulationStep is one second of a simulation on the wire.
type simulationStep struct {
	Second          int              `json:"second"`
	ThreatLatitude  float64          `json:"threat_latitude"`
	ThreatLongitude float64          `json:"threat_longitude"`
	Decision        decisionResponse `json:"decision"`
}

func toSimulationStep(step simulation.Step) simulationStep {
	return simulationStep{
		Second:          step.Second,
		ThreatLatitude:  step.Track.Latitude,
		ThreatLongitude: step.Track.Longitude,
		Decision:        toDecisionResponse(step.Track, step.Decision),
	}
}

// newRunner builds a simulation runner backed by the live catalog. Each tick
// re-reads the offering snapshot so catalog edits take effect mid-run.
func (s *Server) newRunner(interval time.Duration) *simulation.Runner {
	return &simulation.Runner{
		Offerings: s.catalogRepo.GetOfferings,
		Interval:  interval,
	}
}

// handleSimulate runs a bounded tick simulation and returns every step at
// once. Real-time pacing belongs to the stream endpoint.
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validateReport(req.toReport()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	duration := s.clampDuration(req.DurationSeconds)

	steps := make([]simulationStep, 0, duration)
	runner := s.newRunner(0) // batch mode: no pacing
	err := runner.Run(r.Context(), req.toReport().toTrack(), duration, func(step simulation.Step) error {
		steps = append(steps, toSimulationStep(step))
		return nil
	})
	if err != nil {
		log.Printf("Simulation failed: %v", err)
		http.Error(w, "Simulation failed", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"initial_params": req,
		"steps":          steps,
	})
}

// handleGetCatalog returns the current offering snapshot.
func (s *Server) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	offerings, err := s.catalogRepo.GetOfferings(r.Context())
	if err != nil {
		log.Printf("Error loading catalog: %v", err)
		http.Error(w, "Failed to load catalog", http.StatusInternalServerError)
		return
	}

	sites, err := s.catalogRepo.GetSites(r.Context())
	if err != nil {
		log.Printf("Error loading sites: %v", err)
		http.Error(w, "Failed to load sites", http.StatusInternalServerError)
		return
	}

	type offeringResponse struct {
		SiteID          int     `json:"site_id"`
		SiteName        string  `json:"site_name"`
		InterceptorID   int     `json:"interceptor_id"`
		InterceptorName string  `json:"interceptor_name"`
		SpeedMS         float64 `json:"speed_ms"`
		RangeM          float64 `json:"range_m"`
		MaxAltitudeM    float64 `json:"max_altitude_m"`
		PriceModel      string  `json:"price_model"`
		PriceValueEUR   float64 `json:"price_value_eur"`
	}

	out := make([]offeringResponse, 0, len(offerings))
	for _, o := range offerings {
		out = append(out, offeringResponse{
			SiteID:          o.SiteID,
			SiteName:        o.SiteName,
			InterceptorID:   o.InterceptorID,
			InterceptorName: o.InterceptorName,
			SpeedMS:         o.SpeedMS,
			RangeM:          o.RangeM,
			MaxAltitudeM:    o.MaxAltitudeM,
			PriceModel:      string(o.PriceModel),
			PriceValueEUR:   o.PriceValue,
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sites":     sites,
		"offerings": out,
	})
}

// handleGetDecisions returns recent audited decisions.
func (s *Server) handleGetDecisions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	decisions, err := s.decisionRepo.Recent(r.Context(), limit)
	if err != nil {
		log.Printf("Error loading decisions: %v", err)
		http.Error(w, "Failed to load decisions", http.StatusInternalServerError)
		return
	}
	if decisions == nil {
		decisions = []db.AuditedDecision{}
	}

	respondJSON(w, http.StatusOK, decisions)
}

// handleGetSystemStatus returns health and catalog statistics.
func (s *Server) handleGetSystemStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.database.GetStats(r.Context())
	if err != nil {
		log.Printf("Error loading stats: %v", err)
		http.Error(w, "Failed to load stats", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"database": db.HealthCheck(s.database),
		"stats":    stats,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// clampDuration applies the configured default and ceiling to a requested
// simulation length.
func (s *Server) clampDuration(requested int) int {
	if requested <= 0 {
		return s.cfg.Simulation.DefaultDurationSeconds
	}
	if max := s.cfg.Simulation.MaxDurationSeconds; max > 0 && requested > max {
		return max
	}
	return requested
}

func decisionOutcome(d intercept.Decision) string {
	switch {
	case d.Assigned():
		return metrics.OutcomeAssigned
	case d.Level == threat.Threat:
		return metrics.OutcomeNoOption
	default:
		return metrics.OutcomeBelowThreshold
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

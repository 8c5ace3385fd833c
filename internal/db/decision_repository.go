package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mkalvans/skyfence/pkg/intercept"
)

// AuditedDecision is one persisted decision row for operator review.
type AuditedDecision struct {
	ID                 int       `json:"id"`
	ThreatLevel        string    `json:"threatLevel"`
	SiteName           *string   `json:"siteName,omitempty"`
	InterceptorName    *string   `json:"interceptorName,omitempty"`
	TrackLatitude      float64   `json:"trackLatitude"`
	TrackLongitude     float64   `json:"trackLongitude"`
	TrackSpeedMS       float64   `json:"trackSpeedMs"`
	TrackAltitudeM     float64   `json:"trackAltitudeM"`
	InterceptLatitude  *float64  `json:"interceptLatitude,omitempty"`
	InterceptLongitude *float64  `json:"interceptLongitude,omitempty"`
	TimeToInterceptS   *float64  `json:"timeToInterceptS,omitempty"`
	CostEUR            *float64  `json:"costEur,omitempty"`
	Note               string    `json:"note"`
	CreatedAt          time.Time `json:"createdAt"`
}

// DecisionRepository persists solver decisions for after-action review. The
// solver itself never writes here; the transport layer records outcomes
// after each solve.
type DecisionRepository struct {
	db *DB
}

// NewDecisionRepository creates a new decision audit repository.
func NewDecisionRepository(db *DB) *DecisionRepository {
	return &DecisionRepository{db: db}
}

// Record inserts one decision row. Assignment columns stay NULL for
// no-assignment decisions.
func (r *DecisionRepository) Record(ctx context.Context, track intercept.Track, d intercept.Decision) error {
	query := `
		INSERT INTO decision_audit (
			threat_level, site_name, interceptor_name,
			track_latitude, track_longitude, track_speed_ms, track_altitude_m,
			intercept_latitude, intercept_longitude, time_to_intercept_s,
			cost_eur, note
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	var (
		siteName, interceptorName  sql.NullString
		interceptLat, interceptLon sql.NullFloat64
		timeToIntercept, costEUR   sql.NullFloat64
	)
	if a := d.Assignment; a != nil {
		siteName = sql.NullString{String: a.SiteName, Valid: true}
		interceptorName = sql.NullString{String: a.InterceptorName, Valid: true}
		interceptLat = sql.NullFloat64{Float64: a.InterceptLat, Valid: true}
		interceptLon = sql.NullFloat64{Float64: a.InterceptLon, Valid: true}
		timeToIntercept = sql.NullFloat64{Float64: a.TimeToInterceptS, Valid: true}
		costEUR = sql.NullFloat64{Float64: a.Cost, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		string(d.Level),
		siteName,
		interceptorName,
		track.Latitude,
		track.Longitude,
		track.SpeedMS,
		track.AltitudeM,
		interceptLat,
		interceptLon,
		timeToIntercept,
		costEUR,
		d.Note,
	)
	if err != nil {
		return fmt.Errorf("failed to record decision: %w", err)
	}

	return nil
}

// Recent returns the most recent audited decisions, newest first.
func (r *DecisionRepository) Recent(ctx context.Context, limit int) ([]AuditedDecision, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT
			id, threat_level, site_name, interceptor_name,
			track_latitude, track_longitude, track_speed_ms, track_altitude_m,
			intercept_latitude, intercept_longitude, time_to_intercept_s,
			cost_eur, note, created_at
		FROM decision_audit
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	var decisions []AuditedDecision
	for rows.Next() {
		var d AuditedDecision
		err := rows.Scan(
			&d.ID,
			&d.ThreatLevel,
			&d.SiteName,
			&d.InterceptorName,
			&d.TrackLatitude,
			&d.TrackLongitude,
			&d.TrackSpeedMS,
			&d.TrackAltitudeM,
			&d.InterceptLatitude,
			&d.InterceptLongitude,
			&d.TimeToInterceptS,
			&d.CostEUR,
			&d.Note,
			&d.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate decisions: %w", err)
	}

	return decisions, nil
}

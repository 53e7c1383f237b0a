package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/reanchor/internal/relocate"
)

// earthRadiusMeters is the mean Earth radius used for proximity queries.
const earthRadiusMeters = 6371000.0

// RecordStore provides persistence for saved anchor records.
type RecordStore struct {
	db *sql.DB
}

// NewRecordStore creates a RecordStore backed by the given database.
func NewRecordStore(db *sql.DB) *RecordStore {
	return &RecordStore{db: db}
}

// InsertRecord creates a new anchor record. If record.ID is empty, a new
// UUID is generated.
func (s *RecordStore) InsertRecord(ctx context.Context, record *relocate.SavedAnchorRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAtNanos == 0 {
		record.CreatedAtNanos = time.Now().UnixNano()
	}

	transformJSON, err := MarshalTransform(record.Transform)
	if err != nil {
		return err
	}

	var lat, lon, alt, acc sql.NullFloat64
	if loc := record.Location; loc != nil {
		lat = sql.NullFloat64{Float64: loc.Latitude, Valid: true}
		lon = sql.NullFloat64{Float64: loc.Longitude, Valid: true}
		alt = sql.NullFloat64{Float64: loc.Altitude, Valid: true}
		acc = sql.NullFloat64{Float64: loc.HorizontalAccuracy, Valid: true}
	}

	var scale sql.NullFloat64
	if record.Scale != nil {
		scale = sql.NullFloat64{Float64: *record.Scale, Valid: true}
	}

	var override sql.NullString
	if record.OrientationOverride != nil {
		data, err := json.Marshal(record.OrientationOverride)
		if err != nil {
			return fmt.Errorf("marshal orientation override: %w", err)
		}
		override = sql.NullString{String: string(data), Valid: true}
	}

	query := `
		INSERT INTO anchor_records (
			record_id, transform_json, latitude, longitude, altitude,
			horizontal_accuracy, content_id, scale, orientation_override_json,
			created_at_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		record.ID,
		transformJSON,
		lat, lon, alt, acc,
		record.ContentID,
		scale,
		override,
		record.CreatedAtNanos,
	)
	if err != nil {
		return fmt.Errorf("insert anchor record: %w", err)
	}

	return nil
}

// GetRecord retrieves a record by id. Returns sql.ErrNoRows when absent.
func (s *RecordStore) GetRecord(ctx context.Context, id string) (*relocate.SavedAnchorRecord, error) {
	query := `
		SELECT record_id, transform_json, latitude, longitude, altitude,
		       horizontal_accuracy, content_id, scale, orientation_override_json,
		       created_at_ns
		FROM anchor_records
		WHERE record_id = ?
	`
	row := s.db.QueryRowContext(ctx, query, id)
	return scanRecord(row)
}

// ListNear returns records whose saved geolocation lies within radiusMeters
// of loc, implementing the engine's RecordSource. A latitude/longitude
// bounding box narrows the scan in SQL; the exact haversine check runs in
// Go. Records without a geolocation never match.
func (s *RecordStore) ListNear(ctx context.Context, loc relocate.Geolocation, radiusMeters float64) ([]*relocate.SavedAnchorRecord, error) {
	latDelta := radiusMeters / earthRadiusMeters * 180 / math.Pi
	lonDelta := latDelta
	if cosLat := math.Cos(loc.Latitude * math.Pi / 180); cosLat > 0.01 {
		lonDelta = latDelta / cosLat
	}

	query := `
		SELECT record_id, transform_json, latitude, longitude, altitude,
		       horizontal_accuracy, content_id, scale, orientation_override_json,
		       created_at_ns
		FROM anchor_records
		WHERE latitude BETWEEN ? AND ?
		  AND longitude BETWEEN ? AND ?
		ORDER BY created_at_ns
	`

	rows, err := s.db.QueryContext(ctx, query,
		loc.Latitude-latDelta, loc.Latitude+latDelta,
		loc.Longitude-lonDelta, loc.Longitude+lonDelta,
	)
	if err != nil {
		return nil, fmt.Errorf("list records near: %w", err)
	}
	defer rows.Close()

	var out []*relocate.SavedAnchorRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if record.Location == nil {
			continue
		}
		if haversineMeters(loc.Latitude, loc.Longitude, record.Location.Latitude, record.Location.Longitude) <= radiusMeters {
			out = append(out, record)
		}
	}
	return out, rows.Err()
}

// DeleteRecord removes a record by id.
func (s *RecordStore) DeleteRecord(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM anchor_records WHERE record_id = ?`, id); err != nil {
		return fmt.Errorf("delete anchor record: %w", err)
	}
	return nil
}

// rowScanner matches both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*relocate.SavedAnchorRecord, error) {
	var record relocate.SavedAnchorRecord
	var transformJSON string
	var lat, lon, alt, acc, scale sql.NullFloat64
	var override sql.NullString

	err := row.Scan(
		&record.ID,
		&transformJSON,
		&lat, &lon, &alt, &acc,
		&record.ContentID,
		&scale,
		&override,
		&record.CreatedAtNanos,
	)
	if err != nil {
		return nil, err
	}

	record.Transform, err = UnmarshalTransform(transformJSON)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", record.ID, err)
	}

	if lat.Valid && lon.Valid {
		record.Location = &relocate.Geolocation{
			Latitude:           lat.Float64,
			Longitude:          lon.Float64,
			Altitude:           alt.Float64,
			HorizontalAccuracy: acc.Float64,
		}
	}
	if scale.Valid {
		v := scale.Float64
		record.Scale = &v
	}
	if override.Valid {
		var o [4]float64
		if err := json.Unmarshal([]byte(override.String), &o); err != nil {
			return nil, fmt.Errorf("record %s orientation override: %w", record.ID, err)
		}
		record.OrientationOverride = &o
	}

	return &record, nil
}

// haversineMeters computes the great-circle distance between two lat/lon
// points.
func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := math.Pi / 180
	dLat := (lat2 - lat1) * toRad
	dLon := (lon2 - lon1) * toRad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*toRad)*math.Cos(lat2*toRad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(a))
}

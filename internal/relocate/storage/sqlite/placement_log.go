package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/reanchor/internal/relocate"
)

// PlacementEntry is one row of the placement audit log.
type PlacementEntry struct {
	PlacementID  string             `json:"placement_id"`
	RecordID     string             `json:"record_id"`
	Transform    relocate.Transform `json:"transform"`
	Confidence   float64            `json:"confidence"`
	PlacedAtNano int64              `json:"placed_at_ns"`
}

// PlacementLog persists one row per committed placement for later
// analysis (the report tool and the monitor charts read it back).
type PlacementLog struct {
	db *sql.DB
}

// NewPlacementLog creates a PlacementLog backed by the given database.
func NewPlacementLog(db *sql.DB) *PlacementLog {
	return &PlacementLog{db: db}
}

// Append records one committed placement.
func (l *PlacementLog) Append(ctx context.Context, anchor relocate.PlacedAnchor) error {
	transformJSON, err := MarshalTransform(anchor.Transform)
	if err != nil {
		return err
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO placement_log (placement_id, record_id, transform_json, confidence, placed_at_ns)
		VALUES (?, ?, ?, ?, ?)
	`,
		uuid.New().String(),
		anchor.ID,
		transformJSON,
		anchor.Confidence,
		anchor.PlacedAtNanos,
	)
	if err != nil {
		return fmt.Errorf("append placement log: %w", err)
	}
	return nil
}

// List returns all logged placements ordered by placement time.
func (l *PlacementLog) List(ctx context.Context) ([]PlacementEntry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT placement_id, record_id, transform_json, confidence, placed_at_ns
		FROM placement_log
		ORDER BY placed_at_ns
	`)
	if err != nil {
		return nil, fmt.Errorf("list placement log: %w", err)
	}
	defer rows.Close()

	var out []PlacementEntry
	for rows.Next() {
		var entry PlacementEntry
		var transformJSON string
		if err := rows.Scan(&entry.PlacementID, &entry.RecordID, &transformJSON, &entry.Confidence, &entry.PlacedAtNano); err != nil {
			return nil, err
		}
		entry.Transform, err = UnmarshalTransform(transformJSON)
		if err != nil {
			return nil, fmt.Errorf("placement %s: %w", entry.PlacementID, err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

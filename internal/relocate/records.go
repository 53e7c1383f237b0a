package relocate

import (
	"context"
	"errors"
	"fmt"
)

// Unrecoverable-input errors. Records failing these checks are reported
// once via the listener error path and dropped; they are never queued for
// retry.
var (
	ErrMissingGeolocation = errors.New("record has no geolocation")
	ErrCorruptTransform   = errors.New("record transform is not a rigid transform")
	ErrMissingContent     = errors.New("record has no content identifier")
	ErrMissingID          = errors.New("record has no id")
)

// Geolocation is the coarse geographic position captured when an anchor was
// saved. Proximity filtering against it happens upstream, in the record
// store.
type Geolocation struct {
	Latitude           float64 `json:"latitude"`
	Longitude          float64 `json:"longitude"`
	Altitude           float64 `json:"altitude"`
	HorizontalAccuracy float64 `json:"horizontal_accuracy"` // meters
}

// SavedAnchorRecord is a previously saved anchor placement as loaded from
// the record store. Immutable once loaded; the placement pipeline owns it
// until it is committed or dropped.
type SavedAnchorRecord struct {
	ID        string       `json:"id"`
	Transform Transform    `json:"transform"` // rigid pose in the save-time session frame
	Location  *Geolocation `json:"location,omitempty"`
	ContentID string       `json:"content_id"`

	// Optional user overrides captured at save time.
	Scale               *float64    `json:"scale,omitempty"`
	OrientationOverride *[4]float64 `json:"orientation_override,omitempty"` // quaternion w,x,y,z

	CreatedAtNanos int64 `json:"created_at_ns"`
}

// Validate classifies the record as placeable or unrecoverable. It returns
// the first unrecoverable-input error found, or nil.
func (r *SavedAnchorRecord) Validate() error {
	if r.ID == "" {
		return ErrMissingID
	}
	if r.Location == nil {
		return fmt.Errorf("record %s: %w", r.ID, ErrMissingGeolocation)
	}
	if !r.Transform.IsValid() {
		return fmt.Errorf("record %s: %w", r.ID, ErrCorruptTransform)
	}
	if r.ContentID == "" {
		return fmt.Errorf("record %s: %w", r.ID, ErrMissingContent)
	}
	return nil
}

// VisualRelocalizer is the stub interface for dense visual relocalization
// (image feature matching). The engine does not implement it; an external
// system may provide one to refine a saved pose before the geometric search
// runs. ErrNoVisualMatch indicates the stub declined.
type VisualRelocalizer interface {
	Relocalize(ctx context.Context, record *SavedAnchorRecord) (Transform, float64, error)
}

// ErrNoVisualMatch is returned by VisualRelocalizer implementations that
// cannot refine the pose. The geometric pipeline proceeds unchanged.
var ErrNoVisualMatch = errors.New("no visual match")

// NoopVisualRelocalizer always declines.
type NoopVisualRelocalizer struct{}

// Relocalize implements VisualRelocalizer.
func (NoopVisualRelocalizer) Relocalize(context.Context, *SavedAnchorRecord) (Transform, float64, error) {
	return Transform{}, 0, ErrNoVisualMatch
}

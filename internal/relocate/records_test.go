package relocate

import (
	"context"
	"errors"
	"testing"
)

func TestSavedAnchorRecord_Validate(t *testing.T) {
	valid := testRecord("r1")
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid record rejected: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(*SavedAnchorRecord)
		wantErr error
	}{
		{"missing id", func(r *SavedAnchorRecord) { r.ID = "" }, ErrMissingID},
		{"missing location", func(r *SavedAnchorRecord) { r.Location = nil }, ErrMissingGeolocation},
		{"corrupt transform", func(r *SavedAnchorRecord) { r.Transform = Transform{} }, ErrCorruptTransform},
		{"missing content", func(r *SavedAnchorRecord) { r.ContentID = "" }, ErrMissingContent},
	}
	for _, tt := range tests {
		r := testRecord("r1")
		tt.mutate(r)
		err := r.Validate()
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("%s: error = %v, want %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestNoopVisualRelocalizer(t *testing.T) {
	_, _, err := NoopVisualRelocalizer{}.Relocalize(context.Background(), testRecord("r1"))
	if !errors.Is(err, ErrNoVisualMatch) {
		t.Errorf("noop relocalizer error = %v, want ErrNoVisualMatch", err)
	}
}

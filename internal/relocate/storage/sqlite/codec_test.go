package sqlite

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/reanchor/internal/relocate"
)

func TestTransformCodecRoundTrip(t *testing.T) {
	// A transform with all-distinct entries so any transposition mistake
	// shows up.
	var original relocate.Transform
	for i := range original {
		original[i] = float64(i) * 1.25
	}

	encoded, err := MarshalTransform(original)
	if err != nil {
		t.Fatalf("MarshalTransform: %v", err)
	}

	decoded, err := UnmarshalTransform(encoded)
	if err != nil {
		t.Fatalf("UnmarshalTransform: %v", err)
	}
	if diff := cmp.Diff(original, decoded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestTransformCodecColumnMajorLayout(t *testing.T) {
	// The translation lives in the last column row-major; on the wire it
	// must land at indices 12..14 (column-major).
	tr := relocate.TranslationTransform(r3.Vec{X: 1, Y: 2, Z: 3})

	encoded, err := MarshalTransform(tr)
	if err != nil {
		t.Fatalf("MarshalTransform: %v", err)
	}

	var wire [16]float64
	if err := json.Unmarshal([]byte(encoded), &wire); err != nil {
		t.Fatalf("decode wire layout: %v", err)
	}
	if wire[12] != 1 || wire[13] != 2 || wire[14] != 3 || wire[15] != 1 {
		t.Errorf("wire last column = %v, want [1 2 3 1]", wire[12:])
	}
	if wire[0] != 1 || wire[5] != 1 || wire[10] != 1 {
		t.Errorf("wire diagonal = [%v %v %v], want identity rotation", wire[0], wire[5], wire[10])
	}
}

func TestUnmarshalTransformRejectsGarbage(t *testing.T) {
	if _, err := UnmarshalTransform("not json"); err == nil {
		t.Error("garbage input should fail")
	}
	if _, err := UnmarshalTransform(`{"m": 1}`); err == nil {
		t.Error("non-array input should fail")
	}
}

package sqlite

import (
	"encoding/json"
	"fmt"

	"github.com/banshee-data/reanchor/internal/relocate"
)

// MarshalTransform encodes a transform in the storage wire layout: a JSON
// array of 16 floats in column-major order.
func MarshalTransform(t relocate.Transform) (string, error) {
	var cols [16]float64
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			cols[col*4+row] = t[row*4+col]
		}
	}
	data, err := json.Marshal(cols)
	if err != nil {
		return "", fmt.Errorf("marshal transform: %w", err)
	}
	return string(data), nil
}

// UnmarshalTransform decodes the storage wire layout back into the
// engine's row-major transform.
func UnmarshalTransform(s string) (relocate.Transform, error) {
	var cols [16]float64
	if err := json.Unmarshal([]byte(s), &cols); err != nil {
		return relocate.Transform{}, fmt.Errorf("unmarshal transform: %w", err)
	}
	var t relocate.Transform
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			t[row*4+col] = cols[col*4+row]
		}
	}
	return t, nil
}

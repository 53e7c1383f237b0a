package monitor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/reanchor/internal/relocate"
)

func sampleObservations(now time.Time) []*relocate.SurfaceObservation {
	return []*relocate.SurfaceObservation{
		{SurfaceID: "floor", Area: 0.5, OrientationAlignment: 1.0, Stability: 5, FirstSeenNanos: now.Add(-2 * time.Second).UnixNano()},
		{SurfaceID: "table", Area: 0.1, OrientationAlignment: 0.9, Stability: 2, FirstSeenNanos: now.UnixNano()},
	}
}

func TestQualityPlotterSampleCount(t *testing.T) {
	qp := NewQualityPlotter(t.TempDir())
	now := time.Now()

	if qp.SampleCount() != 0 {
		t.Fatalf("fresh plotter sample count = %d", qp.SampleCount())
	}

	qp.Sample(sampleObservations(now), now)
	qp.Sample(sampleObservations(now), now.Add(time.Second))

	if got := qp.SampleCount(); got != 2 {
		t.Errorf("sample count = %d, want 2", got)
	}
}

func TestQualityPlotterWritePlots(t *testing.T) {
	dir := t.TempDir()
	qp := NewQualityPlotter(dir)
	now := time.Now()

	for i := 0; i < 5; i++ {
		qp.Sample(sampleObservations(now), now.Add(time.Duration(i)*time.Second))
	}

	if err := qp.WritePlots(); err != nil {
		t.Fatalf("WritePlots: %v", err)
	}

	for _, name := range []string{
		"surface_floor_quality.png",
		"surface_table_quality.png",
		"surfaces_quality.png",
	} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Errorf("missing plot %s: %v", name, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("plot %s is empty", name)
		}
	}
}

func TestQualityPlotterWritePlotsEmpty(t *testing.T) {
	qp := NewQualityPlotter(t.TempDir())
	if err := qp.WritePlots(); err != nil {
		t.Errorf("WritePlots with no samples should be a no-op, got %v", err)
	}
}

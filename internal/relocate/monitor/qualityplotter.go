// Package monitor provides introspection surfaces for the anchor engine:
// quality time-series plotting and HTML chart handlers for debugging
// mapping readiness and placement confidence.
package monitor

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/reanchor/internal/relocate"
)

// QualitySample is one snapshot of a surface's quality score.
type QualitySample struct {
	SampleIdx int
	Timestamp time.Time
	Quality   float64
	Area      float64
}

// QualityPlotter records per-surface quality scores over time. Call
// Sample on whatever cadence suits the debugging session, then WritePlots
// after the run.
type QualityPlotter struct {
	mu        sync.Mutex
	outputDir string
	samples   map[string][]QualitySample // key = surface id
	sampleIdx int
	startTime time.Time
}

// NewQualityPlotter creates a plotter writing PNGs under outputDir.
func NewQualityPlotter(outputDir string) *QualityPlotter {
	return &QualityPlotter{
		outputDir: outputDir,
		samples:   make(map[string][]QualitySample),
	}
}

// Sample records the current quality of every tracked surface.
func (qp *QualityPlotter) Sample(observations []*relocate.SurfaceObservation, now time.Time) {
	qp.mu.Lock()
	defer qp.mu.Unlock()

	if qp.startTime.IsZero() {
		qp.startTime = now
	}

	for _, obs := range observations {
		qp.samples[obs.SurfaceID] = append(qp.samples[obs.SurfaceID], QualitySample{
			SampleIdx: qp.sampleIdx,
			Timestamp: now,
			Quality:   obs.QualityScore(now),
			Area:      obs.Area,
		})
	}
	qp.sampleIdx++
}

// SampleCount returns the number of Sample calls so far.
func (qp *QualityPlotter) SampleCount() int {
	qp.mu.Lock()
	defer qp.mu.Unlock()
	return qp.sampleIdx
}

// WritePlots renders one quality-over-time PNG per tracked surface plus a
// combined plot of all surfaces.
func (qp *QualityPlotter) WritePlots() error {
	qp.mu.Lock()
	defer qp.mu.Unlock()

	if len(qp.samples) == 0 {
		return nil
	}
	if err := os.MkdirAll(qp.outputDir, 0o755); err != nil {
		return fmt.Errorf("create plot output dir: %w", err)
	}

	combined := plot.New()
	combined.Title.Text = "Surface quality over time"
	combined.X.Label.Text = "sample"
	combined.Y.Label.Text = "quality"
	combined.Y.Min = 0
	combined.Y.Max = 1

	ids := make([]string, 0, len(qp.samples))
	for id := range qp.samples {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		samples := qp.samples[id]
		pts := make(plotter.XYs, 0, len(samples))
		for _, s := range samples {
			pts = append(pts, plotter.XY{X: float64(s.SampleIdx), Y: s.Quality})
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("surface %s line: %w", id, err)
		}
		line.Width = vg.Points(1)
		combined.Add(line)
		combined.Legend.Add(id, line)

		single := plot.New()
		single.Title.Text = fmt.Sprintf("Surface %s quality", id)
		single.X.Label.Text = "sample"
		single.Y.Label.Text = "quality"
		single.Y.Min = 0
		single.Y.Max = 1

		singleLine, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("surface %s line: %w", id, err)
		}
		singleLine.Width = vg.Points(1)
		single.Add(singleLine)

		file := filepath.Join(qp.outputDir, fmt.Sprintf("surface_%s_quality.png", id))
		if err := single.Save(10*vg.Inch, 4*vg.Inch, file); err != nil {
			return fmt.Errorf("save %s: %w", file, err)
		}
	}

	combinedFile := filepath.Join(qp.outputDir, "surfaces_quality.png")
	if err := combined.Save(10*vg.Inch, 4*vg.Inch, combinedFile); err != nil {
		return fmt.Errorf("save %s: %w", combinedFile, err)
	}

	return nil
}

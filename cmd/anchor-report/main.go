// Package main provides an offline reporting tool for anchor session
// databases. It reads the placement audit log and renders confidence
// charts (HTML via go-echarts, PNG via gonum/plot) for tuning the
// acceptance threshold.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/reanchor/internal/db"
	storage "github.com/banshee-data/reanchor/internal/relocate/storage/sqlite"
)

var (
	dbFile    = flag.String("db", "anchors.db", "Session database path")
	outputDir = flag.String("out", "report", "Output directory for charts")
)

func main() {
	flag.Parse()

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	entries, err := storage.NewPlacementLog(database.DB).List(context.Background())
	if err != nil {
		log.Fatalf("failed to read placement log: %v", err)
	}
	if len(entries) == 0 {
		log.Fatal("no placements logged; nothing to report")
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		log.Fatalf("failed to create output dir: %v", err)
	}

	if err := writeHTMLReport(entries, filepath.Join(*outputDir, "placements.html")); err != nil {
		log.Fatalf("failed to write HTML report: %v", err)
	}
	if err := writeConfidencePNG(entries, filepath.Join(*outputDir, "confidence.png")); err != nil {
		log.Fatalf("failed to write PNG report: %v", err)
	}

	log.Printf("report written to %s (%d placements)", *outputDir, len(entries))
}

// writeHTMLReport renders placement confidence over time as an ECharts
// line chart.
func writeHTMLReport(entries []storage.PlacementEntry, path string) error {
	x := make([]string, 0, len(entries))
	y := make([]opts.LineData, 0, len(entries))
	for _, entry := range entries {
		x = append(x, time.Unix(0, entry.PlacedAtNano).Format("2006-01-02 15:04:05"))
		y = append(y, opts.LineData{Value: entry.Confidence, Name: entry.RecordID})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Placement Report", Width: "1100px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Placement confidence",
			Subtitle: fmt.Sprintf("placements=%d", len(entries)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1, Name: "confidence"}),
	)
	line.SetXAxis(x).AddSeries("confidence", y)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return line.Render(f)
}

// writeConfidencePNG renders the same series as a PNG for embedding in
// docs.
func writeConfidencePNG(entries []storage.PlacementEntry, path string) error {
	pts := make(plotter.XYs, 0, len(entries))
	for i, entry := range entries {
		pts = append(pts, plotter.XY{X: float64(i), Y: entry.Confidence})
	}

	p := plot.New()
	p.Title.Text = "Placement confidence"
	p.X.Label.Text = "placement"
	p.Y.Label.Text = "confidence"
	p.Y.Min = 0
	p.Y.Max = 1

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Width = vg.Points(1)
	p.Add(line)

	return p.Save(11*vg.Inch, 5*vg.Inch, path)
}

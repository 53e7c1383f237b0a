package monitor

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/reanchor/internal/relocate"
	storage "github.com/banshee-data/reanchor/internal/relocate/storage/sqlite"
)

// Charts serves debugging-only HTML charts (no auth) for the live session
// and the placement audit log.
type Charts struct {
	session *relocate.Session
	log     *storage.PlacementLog
}

// NewCharts creates the chart handler set. log may be nil when no session
// database is open.
func NewCharts(session *relocate.Session, log *storage.PlacementLog) *Charts {
	return &Charts{session: session, log: log}
}

// Register mounts the chart endpoints on mux.
func (c *Charts) Register(mux *http.ServeMux) {
	mux.HandleFunc("/debug/charts/surfaces", c.handleSurfaceQuality)
	mux.HandleFunc("/debug/charts/placements", c.handlePlacementConfidence)
}

// handleSurfaceQuality renders a bar chart of current per-surface quality
// scores.
func (c *Charts) handleSurfaceQuality(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	observations := c.session.Tracker().Observations()
	if len(observations) == 0 {
		http.Error(w, "no tracked surfaces", http.StatusNotFound)
		return
	}

	x := make([]string, 0, len(observations))
	y := make([]opts.BarData, 0, len(observations))
	for _, obs := range observations {
		x = append(x, obs.SurfaceID)
		y = append(y, opts.BarData{Value: obs.QualityScore(now)})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Surface Quality", Theme: "dark", Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Surface quality scores",
			Subtitle: fmt.Sprintf("state=%s surfaces=%d", c.session.State(), len(observations)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1, Name: "quality"}),
	)
	bar.SetXAxis(x).AddSeries("quality", y)

	renderChart(w, bar)
}

// handlePlacementConfidence renders placement confidences over time from
// the audit log.
func (c *Charts) handlePlacementConfidence(w http.ResponseWriter, r *http.Request) {
	if c.log == nil {
		http.Error(w, "no placement log available", http.StatusNotFound)
		return
	}

	entries, err := c.log.List(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to read placement log: %v", err), http.StatusInternalServerError)
		return
	}
	if len(entries) == 0 {
		http.Error(w, "no placements logged", http.StatusNotFound)
		return
	}

	x := make([]string, 0, len(entries))
	y := make([]opts.LineData, 0, len(entries))
	for _, entry := range entries {
		x = append(x, time.Unix(0, entry.PlacedAtNano).Format("15:04:05"))
		y = append(y, opts.LineData{Value: entry.Confidence, Name: entry.RecordID})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Placement Confidence", Theme: "dark", Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Placement confidence",
			Subtitle: fmt.Sprintf("placements=%d", len(entries)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1, Name: "confidence"}),
	)
	line.SetXAxis(x).AddSeries("confidence", y)

	renderChart(w, line)
}

// renderer matches every go-echarts chart type.
type renderer interface {
	Render(w io.Writer) error
}

func renderChart(w http.ResponseWriter, chart renderer) {
	var buf bytes.Buffer
	if err := chart.Render(&buf); err != nil {
		http.Error(w, fmt.Sprintf("failed to render chart: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

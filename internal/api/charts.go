package api

import (
	"bytes"
	"fmt"
	"image/color"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/lap.timer/internal/httputil"
	"github.com/banshee-data/lap.timer/internal/stopwatch"
)

// lapChart renders the lap ledger as an HTML bar chart with the best lap
// highlighted.
func (s *Server) lapChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	snap := s.session.Snapshot()

	x := make([]string, len(snap.Laps))
	y := make([]opts.BarData, len(snap.Laps))
	for i, ms := range snap.Laps {
		x[i] = strconv.Itoa(i + 1)
		bar := opts.BarData{Name: stopwatch.Format(ms), Value: ms}
		if snap.BestMs != nil && ms == *snap.BestMs {
			bar.ItemStyle = &opts.ItemStyle{Color: "#2ca02c"}
		}
		y[i] = bar
	}

	subtitle := fmt.Sprintf("laps=%d best=%s", len(snap.Laps), bestText(snap.BestMs))
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Laps", Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Lap times", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Lap"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "ms"}),
	)
	bar.SetXAxis(x).
		AddSeries("laps", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.AddCharts(bar)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("render error: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// lapChartPNG renders the lap ledger as a PNG bar chart with the best lap
// drawn as a horizontal line.
func (s *Server) lapChartPNG(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	snap := s.session.Snapshot()

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Lap times (best %s)", bestText(snap.BestMs))
	p.X.Label.Text = "Lap"
	p.Y.Label.Text = "Time (ms)"
	p.Y.Min = 0

	if len(snap.Laps) > 0 {
		bars, err := plotter.NewBarChart(plotter.Values(snap.Laps), vg.Points(20))
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("plot error: %v", err))
			return
		}
		bars.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
		bars.LineStyle.Width = vg.Length(0)
		p.Add(bars)

		labels := make([]string, len(snap.Laps))
		for i := range labels {
			labels[i] = strconv.Itoa(i + 1)
		}
		p.NominalX(labels...)
	}
	if snap.BestMs != nil {
		best := *snap.BestMs
		line := plotter.NewFunction(func(float64) float64 { return best })
		line.Color = color.RGBA{R: 44, G: 160, B: 44, A: 255}
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add("best", line)
		p.Legend.Top = true
	}

	wt, err := p.WriterTo(8*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("plot error: %v", err))
		return
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("plot error: %v", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

func bestText(best *float64) string {
	if best == nil {
		return stopwatch.NoBestLap
	}
	return stopwatch.Format(*best)
}

package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/plate.report/internal/alpr/pipeline"
)

// AssetsHost is where the rendered page loads the echarts scripts from.
var AssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// RenderHTML writes a page with a per-frame line chart, a status bar chart
// and a bar chart of the most read plates.
func RenderHTML(w io.Writer, s Summary) error {
	page := components.NewPage()
	page.SetAssetsHost(AssetsHost)
	page.SetPageTitle(fmt.Sprintf("plate.report %s", s.RunID))
	page.AddCharts(frameChart(s), statusChart(s), plateChart(s))

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

func frameChart(s Summary) *charts.Line {
	x := make([]string, len(s.PerFrame))
	vehicles := make([]opts.LineData, len(s.PerFrame))
	candidates := make([]opts.LineData, len(s.PerFrame))
	stored := make([]opts.LineData, len(s.PerFrame))
	for i, f := range s.PerFrame {
		x[i] = strconv.Itoa(f.Frame)
		vehicles[i] = opts.LineData{Value: f.Vehicles}
		candidates[i] = opts.LineData{Value: f.Candidates}
		stored[i] = opts.LineData{Value: f.Stored}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Per frame", Subtitle: fmt.Sprintf("source=%s mode=%s frames=%d", s.Source, s.Mode, s.Frames)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "frame"}),
	)
	line.SetXAxis(x).
		AddSeries("vehicles", vehicles).
		AddSeries("candidates", candidates).
		AddSeries("stored", stored)
	return line
}

func statusChart(s Summary) *charts.Bar {
	x := make([]string, 0, len(pipeline.AllStatuses))
	y := make([]opts.BarData, 0, len(pipeline.AllStatuses))
	for _, st := range pipeline.AllStatuses {
		name := st.String()
		x = append(x, name)
		y = append(y, opts.BarData{Value: s.ByStatus[name]})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "360px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Candidates by status", Subtitle: fmt.Sprintf("candidates=%d stored=%d", s.Candidates, s.Stored)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("status", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

// maxPlateBars caps the plate chart so long runs stay readable.
const maxPlateBars = 20

func plateChart(s Summary) *charts.Bar {
	plates := s.Plates
	if len(plates) > maxPlateBars {
		plates = plates[:maxPlateBars]
	}
	x := make([]string, len(plates))
	y := make([]opts.BarData, len(plates))
	for i, p := range plates {
		x[i] = p.Text
		y[i] = opts.BarData{Value: p.Reads}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "360px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Plates", Subtitle: fmt.Sprintf("distinct=%d", len(s.Plates))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).AddSeries("reads", y)
	return bar
}

package report

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/taxiin.report/internal/taxiin"
)

// RenderDailyChart writes an HTML page with the daily taxi-in count and the
// average and total durations, one category per day.
func RenderDailyChart(w io.Writer, summaries []taxiin.DailySummary) error {
	days := make([]string, len(summaries))
	counts := make([]opts.BarData, len(summaries))
	avgs := make([]opts.LineData, len(summaries))
	totals := make([]opts.BarData, len(summaries))
	for i, s := range summaries {
		days[i] = s.Date
		counts[i] = opts.BarData{Value: s.TaxiInCount}
		avgs[i] = opts.LineData{Value: s.AvgDurationMin}
		totals[i] = opts.BarData{Value: s.TotalDurationMin}
	}

	countChart := charts.NewBar()
	countChart.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Taxi-in summary", Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Taxi-in episodes per day", Subtitle: fmt.Sprintf("days=%d", len(summaries))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "day"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "episodes"}),
	)
	countChart.SetXAxis(days).
		AddSeries("taxi_in_count", counts,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	avgChart := charts.NewLine()
	avgChart.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Average taxi-in duration (min)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "day"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "minutes"}),
	)
	avgChart.SetXAxis(days).AddSeries("avg_taxi_in_duration_min", avgs)

	totalChart := charts.NewBar()
	totalChart.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Total taxi-in time (min)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	totalChart.SetXAxis(days).AddSeries("total_duration_min", totals)

	page := components.NewPage()
	page.SetPageTitle("Taxi-in summary")
	page.AddCharts(countChart, avgChart, totalChart)
	return page.Render(w)
}

// RenderDurationHistogram writes a PNG histogram of episode durations.
// durations must not be empty.
func RenderDurationHistogram(w io.Writer, durations []float64) error {
	if len(durations) == 0 {
		return fmt.Errorf("no durations to plot")
	}

	p := plot.New()
	p.Title.Text = "Taxi-in durations"
	p.X.Label.Text = "duration (min)"
	p.Y.Label.Text = "episodes"

	// Square-root rule. Equal durations collapse into a single unit-wide bin.
	bins := max(1, int(math.Ceil(math.Sqrt(float64(len(durations))))))
	hist, err := plotter.NewHist(plotter.Values(durations), bins)
	if err != nil {
		return fmt.Errorf("build histogram: %w", err)
	}
	p.Add(hist)

	wt, err := p.WriterTo(10*vg.Inch, 5*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("encode histogram: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// Package chart builds the visualizations of a working table.
//
// Each builder returns plain series data that marshals to JSON for API
// clients and renders a standalone go-echarts HTML page for browsers.
package chart

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/JonMunkholm/datasweeper/internal/frame"
)

// Kinds of chart, as named in URLs.
const (
	KindBar         = "bar"
	KindPie         = "pie"
	KindCorrelation = "correlation"
)

// Kinds lists the chart kinds in display order.
var Kinds = []string{KindBar, KindPie, KindCorrelation}

// Chart is a built chart that can be rendered as HTML.
type Chart interface {
	Render(w io.Writer) error
}

// Page dimensions of rendered charts.
const (
	width  = "900px"
	height = "500px"
)

// emptyValue marks a missing point; ECharts skips it.
const emptyValue = "-"

// Series is one line of values.
type Series struct {
	Name string        `json:"name"`
	Data []frame.Float `json:"data"`
}

// BarChart plots the first two number columns against the row index.
type BarChart struct {
	Title  string   `json:"title"`
	X      []int    `json:"x"`
	Series []Series `json:"series"`
}

// Bar builds a bar chart of t. A table with fewer than two number columns
// yields fewer series, possibly none.
func Bar(t *frame.Table) *BarChart {
	b := &BarChart{
		Title:  "Bar Chart",
		X:      make([]int, t.Rows()),
		Series: []Series{},
	}
	for i := range b.X {
		b.X[i] = i
	}

	nums := t.NumericColumns()
	if len(nums) > 2 {
		nums = nums[:2]
	}
	for _, c := range nums {
		s := Series{Name: c.Name, Data: make([]frame.Float, len(c.Values))}
		for i, v := range c.Values {
			if v.Valid {
				s.Data[i] = frame.Float(v.Num)
			} else {
				s.Data[i] = frame.Float(math.NaN())
			}
		}
		b.Series = append(b.Series, s)
	}
	return b
}

// Render writes b as an HTML page.
func (b *BarChart) Render(w io.Writer) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: b.Title,
			Width:     width,
			Height:    height,
		}),
		charts.WithTitleOpts(opts.Title{Title: b.Title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)

	x := make([]string, len(b.X))
	for i, v := range b.X {
		x[i] = strconv.Itoa(v)
	}
	bar.SetXAxis(x)

	for _, s := range b.Series {
		data := make([]opts.BarData, len(s.Data))
		for i, v := range s.Data {
			if v.Valid() {
				data[i] = opts.BarData{Value: float64(v)}
			} else {
				data[i] = opts.BarData{Value: emptyValue}
			}
		}
		bar.AddSeries(s.Name, data)
	}
	return bar.Render(w)
}

// Slice is one wedge of a pie chart.
type Slice struct {
	Value   string  `json:"value"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
	Label   string  `json:"label"`
}

// PieChart shows the value frequencies of one column.
type PieChart struct {
	Title  string  `json:"title"`
	Column string  `json:"column"`
	Slices []Slice `json:"slices"`
}

// Pie builds a pie chart of the value counts of t's first column, whatever
// its kind. Missing cells are not counted.
func Pie(t *frame.Table) (*PieChart, error) {
	if len(t.Columns) == 0 {
		return nil, fmt.Errorf("pie chart: %w", frame.ErrNoColumns)
	}
	col := t.Columns[0]
	counts, err := t.ValueCounts(col.Name)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, vc := range counts {
		total += vc.Count
	}

	p := &PieChart{Title: "Pie Chart", Column: col.Name, Slices: make([]Slice, len(counts))}
	for i, vc := range counts {
		pct := math.Round(float64(vc.Count)/float64(total)*1000) / 10
		p.Slices[i] = Slice{
			Value:   vc.Value,
			Count:   vc.Count,
			Percent: pct,
			Label:   fmt.Sprintf("%s: %.1f%%", vc.Value, pct),
		}
	}
	return p, nil
}

// Render writes p as an HTML page.
func (p *PieChart) Render(w io.Writer) error {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: p.Title,
			Width:     width,
			Height:    height,
		}),
		charts.WithTitleOpts(opts.Title{Title: p.Title, Subtitle: p.Column}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	data := make([]opts.PieData, len(p.Slices))
	for i, s := range p.Slices {
		data[i] = opts.PieData{Name: s.Label, Value: s.Count}
	}
	pie.AddSeries(p.Column, data).
		SetSeriesOptions(charts.WithLabelOpts(opts.Label{
			Show:      opts.Bool(true),
			Formatter: "{b}",
		}))
	return pie.Render(w)
}

// Heatmap shows a correlation matrix.
type Heatmap struct {
	Title   string          `json:"title"`
	Columns []string        `json:"columns"`
	Matrix  [][]frame.Float `json:"matrix"`
	Encoded bool            `json:"encoded"`
}

// CorrelationHeatmap builds a heatmap of c.
func CorrelationHeatmap(c *frame.Correlation) *Heatmap {
	return &Heatmap{
		Title:   "Correlation Heatmap",
		Columns: c.Columns,
		Matrix:  c.Matrix,
		Encoded: c.Encoded,
	}
}

// Render writes h as an HTML page. Undefined coefficients are left blank.
func (h *Heatmap) Render(w io.Writer) error {
	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: h.Title,
			Width:     width,
			Height:    height,
		}),
		charts.WithTitleOpts(opts.Title{Title: h.Title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: h.Columns}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: h.Columns}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        -1,
			Max:        1,
			InRange: &opts.VisualMapInRange{
				Color: []string{"#3b4cc0", "#f7f7f7", "#b40426"},
			},
		}),
	)

	var data []opts.HeatMapData
	for i, row := range h.Matrix {
		for j, v := range row {
			var cell interface{} = emptyValue
			if v.Valid() {
				cell = math.Round(float64(v)*100) / 100
			}
			data = append(data, opts.HeatMapData{Value: [3]interface{}{j, i, cell}})
		}
	}
	hm.SetXAxis(h.Columns)
	hm.AddSeries("correlation", data,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true)}),
	)
	return hm.Render(w)
}

package chart

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/google/uuid"
)

// Render writes spec as a standalone HTML page.
func Render(spec Spec, w io.Writer) error {
	if len(spec.Axes) == 0 {
		return fmt.Errorf("chart %q has no y axes", spec.Title)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: spec.Title,
			ChartID:   "chart_" + uuid.NewString()[:8],
			Theme:     types.ThemeWesteros,
			Width:     "1100px",
			Height:    "560px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    spec.Title,
			Subtitle: spec.Subtitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    true,
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: true,
		}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Type:  "slider",
			Start: 0,
			End:   100,
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: spec.XAxisTitle,
			Type: "time",
		}),
		charts.WithYAxisOpts(yAxis(spec.Axes[0])),
	)

	for _, ax := range spec.Axes[1:] {
		line.ExtendYAxis(yAxis(ax))
	}

	for _, tr := range spec.Traces {
		if tr.Axis < 0 || tr.Axis >= len(spec.Axes) {
			return fmt.Errorf("trace %q bound to missing axis %d", tr.Name, tr.Axis)
		}
		data := make([]opts.LineData, len(tr.Points))
		for i, p := range tr.Points {
			data[i] = opts.LineData{Value: []interface{}{p.X, p.Y}}
		}
		line.AddSeries(tr.Name, data, charts.WithLineChartOpts(opts.LineChart{
			YAxisIndex: tr.Axis,
		}))
	}

	return line.Render(w)
}

// RenderString is Render into a string.
func RenderString(spec Spec) (string, error) {
	var buf bytes.Buffer
	if err := Render(spec, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func yAxis(ax Axis) opts.YAxis {
	y := opts.YAxis{
		Name: ax.Title,
		Type: "value",
	}
	if ax.Min != nil {
		y.Min = *ax.Min
	}
	if ax.Max != nil {
		y.Max = *ax.Max
	}
	return y
}

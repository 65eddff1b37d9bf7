package tools

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"math"

	"github.com/fogleman/gg"

	"github.com/Chative-medical-agent/server/internal/agent/model"
)

// ChartRenderer draws a health history and returns an image reference that
// can be embedded in markdown.
type ChartRenderer interface {
	Render(ctx context.Context, req model.ChartRequest) (string, error)
}

const (
	chartWidth  = 960
	chartHeight = 540
	chartMargin = 60.0
)

type series struct {
	label   string
	r, g, b int
	value   func(model.HealthRecord) int
}

var chartSeries = []series{
	{label: "SYS", r: 220, g: 60, b: 60, value: func(h model.HealthRecord) int { return h.Systolic }},
	{label: "DIA", r: 60, g: 110, b: 220, value: func(h model.HealthRecord) int { return h.Diastolic }},
	{label: "PUL", r: 60, g: 170, b: 90, value: func(h model.HealthRecord) int { return h.Pulse }},
}

// GGChartRenderer renders PNG charts with gg and returns them as base64
// data URIs.
type GGChartRenderer struct{}

func NewGGChartRenderer() *GGChartRenderer { return &GGChartRenderer{} }

func (GGChartRenderer) Render(ctx context.Context, req model.ChartRequest) (string, error) {
	if len(req.Records) == 0 {
		return "", fmt.Errorf("render chart: no records")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dc := gg.NewContext(chartWidth, chartHeight)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	lo, hi := valueRange(req.Records)
	plotW := float64(chartWidth) - 2*chartMargin
	plotH := float64(chartHeight) - 2*chartMargin
	n := len(req.Records)

	xAt := func(i int) float64 {
		if n == 1 {
			return chartMargin + plotW/2
		}
		return chartMargin + plotW*float64(i)/float64(n-1)
	}
	yAt := func(v int) float64 {
		return chartMargin + plotH*(1-float64(v-lo)/float64(hi-lo))
	}

	drawAxes(dc, lo, hi, yAt)
	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored(req.Title, float64(chartWidth)/2, chartMargin/2, 0.5, 0.5)

	for si, s := range chartSeries {
		dc.SetRGB255(s.r, s.g, s.b)
		switch req.Type {
		case model.ChartBar:
			slot := plotW / float64(n)
			barW := slot / float64(len(chartSeries)+1)
			for i, rec := range req.Records {
				x := chartMargin + slot*float64(i) + barW*float64(si) + barW/2
				y := yAt(s.value(rec))
				dc.DrawRectangle(x, y, barW, chartMargin+plotH-y)
			}
			dc.Fill()
		case model.ChartScatter:
			for i, rec := range req.Records {
				dc.DrawCircle(xAt(i), yAt(s.value(rec)), 4)
			}
			dc.Fill()
		default:
			dc.SetLineWidth(2)
			for i, rec := range req.Records {
				if i == 0 {
					dc.MoveTo(xAt(i), yAt(s.value(rec)))
					continue
				}
				dc.LineTo(xAt(i), yAt(s.value(rec)))
			}
			dc.Stroke()
		}
		legendX := float64(chartWidth) - chartMargin - 60
		legendY := chartMargin + float64(si)*18
		dc.DrawRectangle(legendX, legendY-8, 10, 10)
		dc.Fill()
		dc.SetRGB(0, 0, 0)
		dc.DrawString(s.label, legendX+16, legendY+1)
	}

	dc.SetRGB(0.3, 0.3, 0.3)
	dc.DrawStringAnchored(req.Records[0].Date, chartMargin, float64(chartHeight)-chartMargin/2, 0, 0.5)
	dc.DrawStringAnchored(req.Records[n-1].Date, chartMargin+plotW, float64(chartHeight)-chartMargin/2, 1, 0.5)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return "", fmt.Errorf("encode chart: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func drawAxes(dc *gg.Context, lo, hi int, yAt func(int) float64) {
	dc.SetRGB(0.85, 0.85, 0.85)
	dc.SetLineWidth(1)
	step := int(math.Max(10, float64((hi-lo)/5/10*10)))
	for v := lo; v <= hi; v += step {
		y := yAt(v)
		dc.DrawLine(chartMargin, y, float64(chartWidth)-chartMargin, y)
		dc.Stroke()
		dc.DrawStringAnchored(fmt.Sprint(v), chartMargin-8, y, 1, 0.5)
	}
	dc.SetRGB(0.2, 0.2, 0.2)
	dc.DrawLine(chartMargin, chartMargin, chartMargin, float64(chartHeight)-chartMargin)
	dc.DrawLine(chartMargin, float64(chartHeight)-chartMargin, float64(chartWidth)-chartMargin, float64(chartHeight)-chartMargin)
	dc.Stroke()
}

// valueRange pads the observed min/max to multiples of ten.
func valueRange(records []model.HealthRecord) (lo, hi int) {
	lo, hi = math.MaxInt, math.MinInt
	for _, r := range records {
		for _, s := range chartSeries {
			v := s.value(r)
			lo = min(lo, v)
			hi = max(hi, v)
		}
	}
	lo = (lo/10 - 1) * 10
	hi = (hi/10 + 2) * 10
	if lo < 0 {
		lo = 0
	}
	return lo, hi
}

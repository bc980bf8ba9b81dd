package service

import (
	"bytes"
	"fmt"
	"time"

	"golang-analyst-gateway/internal/gateway/dto"
	"golang-analyst-gateway/pkg/logger"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ChartService renders market data into PNG images for report embedding.
type ChartService interface {
	RenderPriceChart(candles *dto.Candles) ([]byte, error)
	RenderVolumeChart(candles *dto.Candles) ([]byte, error)
	RenderComparisonChart(series map[string]*dto.Candles) ([]byte, error)
}

type chartService struct {
	log *logger.Logger
}

func NewChartService(log *logger.Logger) ChartService {
	return &chartService{log: log}
}

func (s *chartService) RenderPriceChart(candles *dto.Candles) ([]byte, error) {
	if candles == nil || len(candles.Close) == 0 {
		return nil, fmt.Errorf("no candle data to render")
	}

	xs := timestampsToTimes(candles.Timestamps)
	graph := chart.Chart{
		Title:  fmt.Sprintf("%s Price", candles.Ticker),
		Width:  900,
		Height: 400,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.2f", f)
				}
				return ""
			},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Close",
				XValues: xs,
				YValues: candles.Close,
				Style: chart.Style{
					StrokeColor: drawing.ColorBlue,
					StrokeWidth: 2,
				},
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render price chart: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *chartService) RenderVolumeChart(candles *dto.Candles) ([]byte, error) {
	if candles == nil || len(candles.Volume) == 0 {
		return nil, fmt.Errorf("no volume data to render")
	}

	xs := timestampsToTimes(candles.Timestamps)
	graph := chart.Chart{
		Title:  fmt.Sprintf("%s Volume", candles.Ticker),
		Width:  900,
		Height: 220,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Volume",
				XValues: xs,
				YValues: candles.Volume,
				Style: chart.Style{
					StrokeColor: chart.ColorAlternateGray,
					FillColor:   chart.ColorAlternateGray.WithAlpha(96),
				},
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render volume chart: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderComparisonChart normalizes each series to its first close so that
// companies with very different price levels share one axis.
func (s *chartService) RenderComparisonChart(series map[string]*dto.Candles) ([]byte, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("no candle data to render")
	}

	palette := []drawing.Color{
		drawing.ColorBlue,
		drawing.ColorRed,
		drawing.ColorGreen,
		drawing.ColorFromHex("ff8c00"),
	}

	var chartSeries []chart.Series
	idx := 0
	for ticker, candles := range series {
		if candles == nil || len(candles.Close) == 0 {
			continue
		}
		base := candles.Close[0]
		if base == 0 {
			continue
		}
		normalized := make([]float64, len(candles.Close))
		for i, c := range candles.Close {
			normalized[i] = c / base * 100
		}
		chartSeries = append(chartSeries, chart.TimeSeries{
			Name:    ticker,
			XValues: timestampsToTimes(candles.Timestamps),
			YValues: normalized,
			Style: chart.Style{
				StrokeColor: palette[idx%len(palette)],
				StrokeWidth: 2,
			},
		})
		idx++
	}
	if len(chartSeries) == 0 {
		return nil, fmt.Errorf("no renderable series")
	}

	graph := chart.Chart{
		Title:  "Relative Performance (start = 100)",
		Width:  900,
		Height: 400,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		Series: chartSeries,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render comparison chart: %w", err)
	}
	return buf.Bytes(), nil
}

func timestampsToTimes(ts []int64) []time.Time {
	out := make([]time.Time, len(ts))
	for i, t := range ts {
		out[i] = time.Unix(t, 0)
	}
	return out
}

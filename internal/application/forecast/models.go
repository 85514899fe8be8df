package forecast

import (
	"math"
	"time"

	"smart-sales-forecast/internal/domain/dataset"
	domain "smart-sales-forecast/internal/domain/forecast"
)

const (
	smoothWindow = 3    // 趨勢季節模型的平滑視窗（日）
	capRatio     = 1.05 // 上限 = 平滑序列最大值 * capRatio
	narrowLower  = 0.95
	narrowUpper  = 1.05
	wideLower    = 0.9
	wideUpper    = 1.1
)

// model 為各預測方法的共用介面；predict 產出的每一點保證
// Lower <= Value <= Upper。
type model interface {
	fit(series dataset.TimeSeries, events map[time.Time]bool) error
	predict(dates []time.Time, events map[time.Time]bool) []domain.Point
}

func newModel(method domain.Method) (model, error) {
	switch method {
	case domain.MethodTrendSeasonal:
		return &trendSeasonalModel{}, nil
	case domain.MethodLinear:
		return &linearModel{}, nil
	case domain.MethodExponential:
		return &expSmoothingModel{}, nil
	default:
		return nil, domain.ErrUnknownMethod
	}
}

// --- 趨勢季節模型 ---

// trendSeasonalModel 先以 3 日移動平均平滑，再配適線性趨勢，
// 加上週間效應與事件日增量，輸出裁剪在 [0, cap] 區間。
type trendSeasonalModel struct {
	slope     float64
	intercept float64
	cap       float64
	weekday   [7]float64
	eventLift float64
}

func (m *trendSeasonalModel) fit(series dataset.TimeSeries, events map[time.Time]bool) error {
	if len(series) < 2 {
		return domain.ErrInsufficientHistory
	}

	smoothed := rollingMean(series.Values(), smoothWindow)
	m.cap = maxOf(smoothed) * capRatio

	xs := make([]float64, len(series))
	for i, p := range series {
		xs[i] = dayOrdinal(p.Date)
	}
	slope, intercept, ok := olsLine(xs, smoothed)
	if !ok {
		return domain.ErrInsufficientHistory
	}
	m.slope, m.intercept = slope, intercept

	// 週間效應 = 各星期幾的平均殘差。
	var sums, counts [7]float64
	for i, p := range series {
		resid := smoothed[i] - (m.slope*xs[i] + m.intercept)
		wd := int(p.Date.Weekday())
		sums[wd] += resid
		counts[wd]++
	}
	for wd := 0; wd < 7; wd++ {
		if counts[wd] > 0 {
			m.weekday[wd] = sums[wd] / counts[wd]
		}
	}

	// 事件日增量 = 事件日殘差（扣除週間效應後）的平均。
	if len(events) > 0 {
		var sum float64
		var n int
		for i, p := range series {
			if !events[p.Date] {
				continue
			}
			resid := smoothed[i] - (m.slope*xs[i] + m.intercept) - m.weekday[int(p.Date.Weekday())]
			sum += resid
			n++
		}
		if n > 0 {
			m.eventLift = sum / float64(n)
		}
	}
	return nil
}

func (m *trendSeasonalModel) predict(dates []time.Time, events map[time.Time]bool) []domain.Point {
	out := make([]domain.Point, 0, len(dates))
	for _, d := range dates {
		v := m.slope*dayOrdinal(d) + m.intercept + m.weekday[int(d.Weekday())]
		if events[d] {
			v += m.eventLift
		}
		v = clamp(v, 0, m.cap)
		out = append(out, bandedPoint(d, v, narrowLower, narrowUpper))
	}
	return out
}

// --- 線性迴歸模型 ---

// linearModel 以最小平方法對日序數配適趨勢線後外插。
type linearModel struct {
	slope     float64
	intercept float64
}

func (m *linearModel) fit(series dataset.TimeSeries, _ map[time.Time]bool) error {
	if len(series) < 2 {
		return domain.ErrInsufficientHistory
	}
	xs := make([]float64, len(series))
	for i, p := range series {
		xs[i] = dayOrdinal(p.Date)
	}
	slope, intercept, ok := olsLine(xs, series.Values())
	if !ok {
		return domain.ErrInsufficientHistory
	}
	m.slope, m.intercept = slope, intercept
	return nil
}

func (m *linearModel) predict(dates []time.Time, _ map[time.Time]bool) []domain.Point {
	out := make([]domain.Point, 0, len(dates))
	for _, d := range dates {
		v := m.slope*dayOrdinal(d) + m.intercept
		if v < 0 {
			v = 0
		}
		out = append(out, bandedPoint(d, v, narrowLower, narrowUpper))
	}
	return out
}

// --- 指數平滑模型 ---

// expSmoothingModel 為 Holt 加法趨勢平滑，alpha/beta 以粗網格
// 搜尋最小化單步預測誤差平方和。
type expSmoothingModel struct {
	level float64
	trend float64
}

var holtGrid = []float64{0.1, 0.3, 0.5, 0.7, 0.9}

func (m *expSmoothingModel) fit(series dataset.TimeSeries, _ map[time.Time]bool) error {
	if len(series) < 2 {
		return domain.ErrInsufficientHistory
	}
	ys := series.Values()

	bestSSE := math.Inf(1)
	for _, alpha := range holtGrid {
		for _, beta := range holtGrid {
			level, trend, sse := holtRun(ys, alpha, beta)
			if sse < bestSSE {
				bestSSE = sse
				m.level, m.trend = level, trend
			}
		}
	}
	return nil
}

// holtRun 以指定參數走完整個序列，回傳末端狀態與單步 SSE。
func holtRun(ys []float64, alpha, beta float64) (level, trend, sse float64) {
	level = ys[0]
	trend = ys[1] - ys[0]
	for t := 1; t < len(ys); t++ {
		pred := level + trend
		diff := ys[t] - pred
		sse += diff * diff
		prevLevel := level
		level = alpha*ys[t] + (1-alpha)*(level+trend)
		trend = beta*(level-prevLevel) + (1-beta)*trend
	}
	return level, trend, sse
}

func (m *expSmoothingModel) predict(dates []time.Time, _ map[time.Time]bool) []domain.Point {
	out := make([]domain.Point, 0, len(dates))
	for h, d := range dates {
		v := m.level + float64(h+1)*m.trend
		if v < 0 {
			v = 0
		}
		out = append(out, bandedPoint(d, v, wideLower, wideUpper))
	}
	return out
}

// --- 共用數學 ---

// bandedPoint 以比例帶包住非負預測值，保證 Lower <= Value <= Upper。
func bandedPoint(d time.Time, v, lowerRatio, upperRatio float64) domain.Point {
	return domain.Point{Date: d, Value: v, Lower: v * lowerRatio, Upper: v * upperRatio}
}

// rollingMean 回傳尾端對齊的移動平均；視窗未滿時取現有值平均。
func rollingMean(vals []float64, window int) []float64 {
	out := make([]float64, len(vals))
	var sum float64
	for i, v := range vals {
		sum += v
		if i >= window {
			sum -= vals[i-window]
		}
		n := i + 1
		if n > window {
			n = window
		}
		out[i] = sum / float64(n)
	}
	return out
}

// olsLine 最小平方法直線配適；x 無變異時回傳 ok=false。
func olsLine(xs, ys []float64) (slope, intercept float64, ok bool) {
	n := float64(len(xs))
	if n < 2 {
		return 0, 0, false
	}
	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX := sumX / n
	meanY := sumY / n
	var sxx, sxy float64
	for i := range xs {
		dx := xs[i] - meanX
		sxx += dx * dx
		sxy += dx * (ys[i] - meanY)
	}
	if sxx == 0 {
		return 0, 0, false
	}
	slope = sxy / sxx
	intercept = meanY - slope*meanX
	return slope, intercept, true
}

func dayOrdinal(t time.Time) float64 {
	return float64(t.Unix() / 86400)
}

func maxOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package forecast

import (
	"math"

	"smart-sales-forecast/internal/domain/dataset"
	domain "smart-sales-forecast/internal/domain/forecast"
)

const (
	patternWindow  = 7    // 判斷走勢用的移動平均視窗（日）
	flatSlopeLimit = 1e-2 // 斜率絕對值低於此視為持平
)

const (
	PatternUpward   = "Upward trend detected"
	PatternDownward = "Downward trend detected"
	PatternFlat     = "Stationary or flat trend"
)

// DetectPattern 以 7 日移動平均的斜率粗判歷史走勢。
// 資料不足以配適直線時一律回報持平。
func DetectPattern(series dataset.TimeSeries) string {
	series = series.Aggregate()
	if len(series) < 2 {
		return PatternFlat
	}
	smoothed := rollingMean(series.Values(), patternWindow)
	xs := make([]float64, len(smoothed))
	for i := range xs {
		xs[i] = float64(i)
	}
	slope, _, ok := olsLine(xs, smoothed)
	if !ok || math.Abs(slope) < flatSlopeLimit {
		return PatternFlat
	}
	if slope > 0 {
		return PatternUpward
	}
	return PatternDownward
}

var explanations = map[domain.Method]string{
	domain.MethodTrendSeasonal: "Trend-seasonal modeling combines the overall trend with weekday cycles and special events to forecast future sales.",
	domain.MethodLinear:        "Linear regression fits a simple trend line based on past values.",
	domain.MethodExponential:   "Exponential smoothing weighs recent values more heavily.",
}

// MethodExplanation 回傳預測方法的簡短說明文字。
func MethodExplanation(method domain.Method) string {
	if text, ok := explanations[method]; ok {
		return text
	}
	return "No explanation available."
}

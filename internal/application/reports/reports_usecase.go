package reports

import (
	"encoding/csv"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"smart-sales-forecast/internal/domain/dataset"
	domain "smart-sales-forecast/internal/domain/forecast"
)

const dateLayout = "2006-01-02"

// BandChart 為含信賴帶的折線圖資料。
type BandChart struct {
	Labels   []string  `json:"labels"`
	Forecast []float64 `json:"forecast"`
	Upper    []float64 `json:"upper"`
	Lower    []float64 `json:"lower"`
}

// ComparisonChart 為實際對預測的折線圖；未來日的實際值為 null。
type ComparisonChart struct {
	Labels   []string   `json:"labels"`
	Forecast []float64  `json:"forecast"`
	Actual   []*float64 `json:"actual"`
}

// BarChart 為每日實際銷售長條圖。
type BarChart struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// DailyRow 為每日預測表的一列，數值取到小數兩位。
type DailyRow struct {
	Date  string  `json:"date"`
	Value float64 `json:"forecasted_sales"`
}

// MetricRow 為目標分析指標的顯示列。
type MetricRow struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// UseCase 將預測結果整理成前端可直接繪製的圖表與表格。
type UseCase struct{}

// NewUseCase 建立報表用例。
func NewUseCase() *UseCase {
	return &UseCase{}
}

// BuildForecastChart 由完整序列組出含上下界的折線圖。
func (u *UseCase) BuildForecastChart(res domain.Result) BandChart {
	out := BandChart{
		Labels:   make([]string, 0, len(res.Full)),
		Forecast: make([]float64, 0, len(res.Full)),
		Upper:    make([]float64, 0, len(res.Full)),
		Lower:    make([]float64, 0, len(res.Full)),
	}
	for _, p := range res.Full {
		out.Labels = append(out.Labels, p.Date.Format(dateLayout))
		out.Forecast = append(out.Forecast, p.Value)
		out.Upper = append(out.Upper, p.Upper)
		out.Lower = append(out.Lower, p.Lower)
	}
	return out
}

// BuildActualVsForecast 以日期對齊實際與預測；沒有實績的日期補 null。
func (u *UseCase) BuildActualVsForecast(series dataset.TimeSeries, res domain.Result) ComparisonChart {
	agg := series.Aggregate()
	actuals := make(map[time.Time]float64, len(agg))
	for _, p := range agg {
		actuals[p.Date] = p.Value
	}

	out := ComparisonChart{
		Labels:   make([]string, 0, len(res.Full)),
		Forecast: make([]float64, 0, len(res.Full)),
		Actual:   make([]*float64, 0, len(res.Full)),
	}
	for _, p := range res.Full {
		out.Labels = append(out.Labels, p.Date.Format(dateLayout))
		out.Forecast = append(out.Forecast, p.Value)
		if v, ok := actuals[p.Date]; ok {
			val := v
			out.Actual = append(out.Actual, &val)
		} else {
			out.Actual = append(out.Actual, nil)
		}
	}
	return out
}

// BuildDailyActuals 產出每日實際銷售長條圖資料。
func (u *UseCase) BuildDailyActuals(series dataset.TimeSeries) BarChart {
	agg := series.Aggregate()
	out := BarChart{
		Labels: make([]string, 0, len(agg)),
		Values: make([]float64, 0, len(agg)),
	}
	for _, p := range agg {
		out.Labels = append(out.Labels, p.Date.Format(dateLayout))
		out.Values = append(out.Values, p.Value)
	}
	return out
}

// BuildDailyTable 列出未來每日的預測值。
func (u *UseCase) BuildDailyTable(res domain.Result) []DailyRow {
	rows := make([]DailyRow, 0, len(res.Future))
	for _, p := range res.Future {
		rows = append(rows, DailyRow{
			Date:  p.Date.Format(dateLayout),
			Value: roundTo2(p.Value),
		})
	}
	return rows
}

// MetricsRows 依固定顯示順序輸出目標分析指標。
func (u *UseCase) MetricsRows(m domain.TargetMetrics) []MetricRow {
	return []MetricRow{
		{Label: "Target", Value: formatAmount(m.Target)},
		{Label: "Current Sales", Value: formatAmount(m.CurrentSales)},
		{Label: "Forecasted Sales (Remaining Days)", Value: formatAmount(m.ForecastRemaining)},
		{Label: "Total Projected (Actual + Forecast)", Value: formatAmount(m.TotalProjected)},
		{Label: "Remaining to Hit Target", Value: formatAmount(m.RemainingToTarget)},
		{Label: "Days Left to Forecast", Value: strconv.Itoa(m.DaysLeft)},
		{Label: "Required Per Day", Value: formatAmount(m.RequiredPerDay)},
		{Label: "Projected % of Target", Value: formatAmount(m.PercentOfTarget)},
	}
}

// ExportForecastCSV 將每日預測表輸出成 CSV 文字。
func (u *UseCase) ExportForecastCSV(res domain.Result) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	if err := w.Write([]string{"date", "forecasted_sales", "lower", "upper"}); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}
	for _, p := range res.Future {
		row := []string{
			p.Date.Format(dateLayout),
			formatAmount(p.Value),
			formatAmount(p.Lower),
			formatAmount(p.Upper),
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return sb.String(), nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(roundTo2(v), 'f', 2, 64)
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

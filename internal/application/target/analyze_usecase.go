package target

import (
	"context"
	"fmt"
	"math"

	"smart-sales-forecast/internal/domain/dataset"
	domain "smart-sales-forecast/internal/domain/forecast"
)

// Input 描述一次目標達成分析：實際序列、既有預測與目標值。
type Input struct {
	Series   dataset.TimeSeries
	Forecast domain.Result
	Target   float64
	Mode     domain.PeriodMode
}

// Output 為指標組與建議文字。
type Output struct {
	Metrics        domain.TargetMetrics
	Recommendation string
}

// AnalyzeUseCase 將當期實績與剩餘天數的預測值合併，評估目標達成度。
type AnalyzeUseCase struct{}

// NewAnalyzeUseCase 建立目標分析用例。
func NewAnalyzeUseCase() *AnalyzeUseCase {
	return &AnalyzeUseCase{}
}

func (u *AnalyzeUseCase) Execute(ctx context.Context, input Input) (Output, error) {
	var out Output

	if input.Target <= 0 {
		return out, fmt.Errorf("%w: got %v", domain.ErrInvalidTarget, input.Target)
	}
	mode := input.Mode
	if mode == "" {
		mode = domain.PeriodMonthly
	}

	last := dataset.Day(input.Forecast.LastDate)
	series := input.Series.Aggregate()

	// 當期實績：與最後資料日同月（或同年）的加總。
	var current float64
	for _, p := range series {
		if p.Date.Year() != last.Year() {
			continue
		}
		if mode == domain.PeriodMonthly && p.Date.Month() != last.Month() {
			continue
		}
		current += p.Value
	}

	// 剩餘天數的預測合計，以及預測涵蓋的最遠日期。
	var forecastRemaining float64
	maxDate := last
	for _, p := range input.Forecast.Future {
		if p.Date.After(last) {
			forecastRemaining += p.Value
		}
		if p.Date.After(maxDate) {
			maxDate = p.Date
		}
	}

	total := current + forecastRemaining
	remaining := input.Target - current
	if remaining < 0 {
		remaining = 0
	}
	daysLeft := int(maxDate.Sub(last).Hours() / 24)

	perDay := 0.0
	if daysLeft > 0 {
		perDay = round2(remaining / float64(daysLeft))
	}
	pct := round2(total / input.Target * 100)

	out.Metrics = domain.TargetMetrics{
		Target:            input.Target,
		CurrentSales:      round2(current),
		ForecastRemaining: round2(forecastRemaining),
		TotalProjected:    round2(total),
		RemainingToTarget: round2(remaining),
		DaysLeft:          daysLeft,
		RequiredPerDay:    perDay,
		PercentOfTarget:   pct,
	}
	out.Recommendation = recommend(out.Metrics)
	return out, nil
}

// recommend 依達成率產生建議；比較一律用數值而非格式化字串。
func recommend(m domain.TargetMetrics) string {
	if m.PercentOfTarget >= 100 {
		return "You're on track or exceeding your goal!"
	}
	return fmt.Sprintf("You need to sell %.2f units/day for %d days.", m.RequiredPerDay, m.DaysLeft)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

package forecast

import (
	"context"
	"fmt"
	"time"

	"smart-sales-forecast/internal/domain/dataset"
	domain "smart-sales-forecast/internal/domain/forecast"
)

// fullBandRatio 為完整序列（歷史+未來）統一套用的信賴帶比例。
const (
	fullBandLower = 0.95
	fullBandUpper = 1.05
)

// RunInput 描述一次預測請求。
type RunInput struct {
	Series     dataset.TimeSeries
	Method     domain.Method
	Horizon    domain.Horizon
	EventDates []time.Time
}

// Engine 為預測引擎：彙總序列、推算期間、建模並產出含信賴帶的結果。
type Engine struct{}

// NewEngine 建立預測引擎。
func NewEngine() *Engine {
	return &Engine{}
}

// Run 執行一次預測。期間內沒有未來日時回傳空結果而非錯誤；
// 歷史少於兩個不同日期回傳 ErrInsufficientHistory。
func (e *Engine) Run(ctx context.Context, input RunInput) (domain.Result, error) {
	var out domain.Result

	if err := input.Method.Validate(); err != nil {
		return out, err
	}

	series := input.Series.Aggregate()
	if len(series) < 2 {
		return out, domain.ErrInsufficientHistory
	}
	last := series[len(series)-1].Date
	out.LastDate = last

	end, err := input.Horizon.EndDate(last)
	if err != nil {
		return out, fmt.Errorf("resolve horizon: %w", err)
	}

	var futureDates []time.Time
	for d := last.AddDate(0, 0, 1); !d.After(end); d = d.AddDate(0, 0, 1) {
		futureDates = append(futureDates, d)
	}
	if len(futureDates) == 0 {
		// 資料已覆蓋整個期間，無事可做。
		return out, nil
	}

	m, err := newModel(input.Method)
	if err != nil {
		return out, err
	}
	events := eventSet(input.EventDates)
	if err := m.fit(series, events); err != nil {
		return out, fmt.Errorf("fit %s model: %w", input.Method, err)
	}

	out.Future = m.predict(futureDates, events)
	out.Days = len(out.Future)
	out.Full = buildFull(series, out.Future)
	return out, nil
}

// buildFull 將歷史與未來串成完整序列，並統一以 ±5% 重建信賴帶。
// 未來點在 Future 內保留各方法自己的帶寬，此處刻意覆蓋。
func buildFull(series dataset.TimeSeries, future []domain.Point) []domain.Point {
	full := make([]domain.Point, 0, len(series)+len(future))
	for _, p := range series {
		full = append(full, domain.Point{Date: p.Date, Value: p.Value})
	}
	for _, p := range future {
		full = append(full, domain.Point{Date: p.Date, Value: p.Value})
	}
	for i := range full {
		full[i].Lower = full[i].Value * fullBandLower
		full[i].Upper = full[i].Value * fullBandUpper
	}
	return full
}

func eventSet(dates []time.Time) map[time.Time]bool {
	if len(dates) == 0 {
		return nil
	}
	set := make(map[time.Time]bool, len(dates))
	for _, d := range dates {
		set[dataset.Day(d)] = true
	}
	return set
}

package forecast

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"smart-sales-forecast/internal/domain/dataset"
)

// Method 列舉支援的預測方法。
type Method string

const (
	MethodTrendSeasonal Method = "trend_seasonal"
	MethodLinear        Method = "linear"
	MethodExponential   Method = "exponential"
)

// ParseMethod 解析方法字串，接受既有別名。
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trend_seasonal", "prophet", "trend":
		return MethodTrendSeasonal, nil
	case "linear", "linear_regression":
		return MethodLinear, nil
	case "exponential", "exponential_smoothing", "holt":
		return MethodExponential, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
}

// Validate 檢查方法是否在支援清單內。
func (m Method) Validate() error {
	switch m {
	case MethodTrendSeasonal, MethodLinear, MethodExponential:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMethod, string(m))
	}
}

// HorizonPolicy 決定預測終點的推算方式。
type HorizonPolicy string

const (
	HorizonMonthEnd   HorizonPolicy = "month_end"
	HorizonQuarterEnd HorizonPolicy = "quarter_end"
	HorizonYearEnd    HorizonPolicy = "year_end"
	HorizonCustom     HorizonPolicy = "custom"
)

// Horizon 表示預測期間設定；Custom 時需帶天數。
type Horizon struct {
	Policy     HorizonPolicy
	CustomDays int
}

// EndDate 依資料最後日期推算預測終點（含當日）。
func (h Horizon) EndDate(last time.Time) (time.Time, error) {
	last = dataset.Day(last)
	switch h.Policy {
	case HorizonMonthEnd:
		return endOfMonth(last.Year(), last.Month()), nil
	case HorizonQuarterEnd:
		qm := time.Month(((int(last.Month())-1)/3 + 1) * 3)
		return endOfMonth(last.Year(), qm), nil
	case HorizonYearEnd, "":
		return time.Date(last.Year(), time.December, 31, 0, 0, 0, 0, time.UTC), nil
	case HorizonCustom:
		if h.CustomDays <= 0 {
			return time.Time{}, fmt.Errorf("custom horizon requires positive days, got %d", h.CustomDays)
		}
		return last.AddDate(0, 0, h.CustomDays), nil
	default:
		return time.Time{}, fmt.Errorf("unknown horizon policy %q", string(h.Policy))
	}
}

func endOfMonth(year int, month time.Month) time.Time {
	// 下月首日退一天即為月底。
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, 1, -1)
}

// PeriodMode 決定目標分析的期間視角。
type PeriodMode string

const (
	PeriodMonthly PeriodMode = "monthly"
	PeriodYearly  PeriodMode = "yearly"
)

// ParsePeriodMode 解析期間模式字串，空值視為 monthly。
func ParsePeriodMode(s string) (PeriodMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "monthly", "month":
		return PeriodMonthly, nil
	case "yearly", "year", "annual":
		return PeriodYearly, nil
	default:
		return "", fmt.Errorf("unknown period mode %q", s)
	}
}

// Point 為單日預測點，恆有 Lower <= Value <= Upper。
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
	Lower float64   `json:"lower"`
	Upper float64   `json:"upper"`
}

// Result 封裝一次預測：Future 僅含未來日、Full 為歷史加未來的完整序列。
type Result struct {
	Future   []Point   `json:"future"`
	Full     []Point   `json:"full"`
	LastDate time.Time `json:"last_date"`
	Days     int       `json:"days"`
}

// Empty 表示期間內沒有任何可預測的未來日。
func (r Result) Empty() bool {
	return r.Days == 0 || len(r.Future) == 0
}

// Run 紀錄一次預測執行與其輸入參數，目標分析會以同樣參數重建序列。
type Run struct {
	DatasetID   string
	Method      Method
	DateColumn  string
	ValueColumn string
	Filters     map[string]string
	Pattern     string
	Result      Result
	CreatedAt   time.Time
}

// TargetMetrics 為目標達成分析的輸出指標，金額皆四捨五入到小數兩位。
type TargetMetrics struct {
	Target            float64 `json:"target"`
	CurrentSales      float64 `json:"current_sales"`
	ForecastRemaining float64 `json:"forecast_remaining"`
	TotalProjected    float64 `json:"total_projected"`
	RemainingToTarget float64 `json:"remaining_to_target"`
	DaysLeft          int     `json:"days_left"`
	RequiredPerDay    float64 `json:"required_per_day"`
	PercentOfTarget   float64 `json:"percent_of_target"`
}

// RegionTotal 為單一地區的未來銷售預測合計。
type RegionTotal struct {
	Region string  `json:"region"`
	Total  float64 `json:"total"`
}

var (
	// ErrInsufficientHistory 表示歷史資料不足（少於兩個不同日期）無法建模。
	ErrInsufficientHistory = errors.New("insufficient history: at least two distinct dates required")
	// ErrInvalidTarget 表示目標值非正數。
	ErrInvalidTarget = errors.New("target must be greater than zero")
	// ErrUnknownMethod 表示不支援的預測方法。
	ErrUnknownMethod = errors.New("unknown forecast method")
	// ErrNoForecast 表示該資料集尚未執行過預測。
	ErrNoForecast = errors.New("no forecast has been run for this dataset")
)

// IsInsufficientHistory 檢查錯誤是否為歷史資料不足。
func IsInsufficientHistory(err error) bool {
	return errors.Is(err, ErrInsufficientHistory)
}

// IsInvalidTarget 檢查錯誤是否為目標值無效。
func IsInvalidTarget(err error) bool {
	return errors.Is(err, ErrInvalidTarget)
}

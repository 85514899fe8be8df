package dataset

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	domain "smart-sales-forecast/internal/domain/dataset"
)

// PreprocessInput 指定日期欄、數值欄與等值過濾條件。
type PreprocessInput struct {
	Table       domain.RawTable
	DateColumn  string
	ValueColumn string
	Filters     map[string]string
}

// PreprocessOutput 回傳清理後紀錄、依日彙總序列與被丟棄的列數。
type PreprocessOutput struct {
	Records []domain.Record
	Series  domain.TimeSeries
	Dropped int
}

// PreprocessUseCase 將原始表格轉成可分析的紀錄：解析日期與數值、
// 丟棄無法解析的列、套用欄位過濾，其餘欄位保留為標籤。
type PreprocessUseCase struct{}

// NewPreprocessUseCase 建立資料清理用例。
func NewPreprocessUseCase() *PreprocessUseCase {
	return &PreprocessUseCase{}
}

func (u *PreprocessUseCase) Execute(ctx context.Context, input PreprocessInput) (PreprocessOutput, error) {
	var out PreprocessOutput

	dateCol := domain.NormalizeHeader(input.DateColumn)
	valueCol := domain.NormalizeHeader(input.ValueColumn)
	dateIdx := input.Table.ColumnIndex(dateCol)
	if dateIdx < 0 {
		return out, &domain.ColumnError{Column: input.DateColumn}
	}
	valueIdx := input.Table.ColumnIndex(valueCol)
	if valueIdx < 0 {
		return out, &domain.ColumnError{Column: input.ValueColumn}
	}
	for col := range input.Filters {
		if input.Table.ColumnIndex(domain.NormalizeHeader(col)) < 0 {
			return out, &domain.ColumnError{Column: col}
		}
	}

	for rowIdx := range input.Table.Rows {
		date, ok := parseCellDate(input.Table.Cell(rowIdx, dateIdx))
		if !ok {
			out.Dropped++
			continue
		}
		value, ok := parseCellValue(input.Table.Cell(rowIdx, valueIdx))
		if !ok {
			out.Dropped++
			continue
		}

		tags := make(map[string]string)
		for i, h := range input.Table.Headers {
			if i == dateIdx || i == valueIdx || h == "" {
				continue
			}
			tags[h] = strings.TrimSpace(input.Table.Cell(rowIdx, i))
		}

		if !matchFilters(tags, input.Filters) {
			continue
		}

		out.Records = append(out.Records, domain.Record{
			Date:  date,
			Value: value,
			Tags:  tags,
		})
	}

	if len(out.Records) == 0 {
		return out, fmt.Errorf("%w (dropped %d rows)", domain.ErrNoUsableRows, out.Dropped)
	}

	out.Series = domain.BuildDailySeries(out.Records)
	return out, nil
}

func matchFilters(tags map[string]string, filters map[string]string) bool {
	for col, want := range filters {
		if want == "" {
			continue
		}
		if tags[domain.NormalizeHeader(col)] != want {
			return false
		}
	}
	return true
}

// dateLayouts 依常見程度排序，逐一嘗試。
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02/01/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02-Jan-2006",
	"Jan 2, 2006",
}

// excel 序號日期的紀元（1899-12-30，含 1900 閏年 bug 的慣例校正）。
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

func parseCellDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.Day(t), true
		}
	}
	// 試算表匯出常見的日期序號。
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 59 && serial < 200000 {
		return domain.Day(excelEpoch.AddDate(0, 0, int(serial))), true
	}
	return time.Time{}, false
}

func parseCellValue(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	// 去除千分位與常見幣別符號。
	s = strings.NewReplacer(",", "", "NT$", "", "$", "", "€", "", "£", "").Replace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

package dataset

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// RawTable 保存上傳檔案解析後的原始表格（欄名已正規化）。
type RawTable struct {
	Headers []string
	Rows    [][]string
}

// ColumnIndex 依欄名尋找欄位位置，找不到回傳 -1。
func (t RawTable) ColumnIndex(name string) int {
	for i, h := range t.Headers {
		if h == name {
			return i
		}
	}
	return -1
}

// Cell 取出指定列、指定欄的值；欄不存在或該列太短回傳空字串。
func (t RawTable) Cell(row int, col int) string {
	if row < 0 || row >= len(t.Rows) {
		return ""
	}
	cells := t.Rows[row]
	if col < 0 || col >= len(cells) {
		return ""
	}
	return cells[col]
}

// Dataset 描述一份上傳的銷售資料集。
type Dataset struct {
	ID         string
	Name       string
	UploadedAt time.Time
	Table      RawTable
}

// Record 為清理後的單筆銷售紀錄；Tags 保留原始列的其餘欄位，
// 供後續以地區、通路等維度過濾或分群。
type Record struct {
	Date  time.Time
	Value float64
	Tags  map[string]string
}

// DataPoint 為依日彙總後的單點。
type DataPoint struct {
	Date  time.Time
	Value float64
}

// TimeSeries 為依日遞增排序的彙總序列，同一天僅一點。
type TimeSeries []DataPoint

var nonWordRe = regexp.MustCompile(`[^\w]`)

// NormalizeHeader 將欄名轉小寫、去頭尾空白、空白轉底線並移除其餘符號。
func NormalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, " ", "_")
	return nonWordRe.ReplaceAllString(h, "")
}

// Day 將時間截斷到當日零時（UTC），作為彙總鍵。
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// BuildDailySeries 依日加總紀錄並排序，產出時間序列。
func BuildDailySeries(records []Record) TimeSeries {
	if len(records) == 0 {
		return nil
	}
	sums := make(map[time.Time]float64)
	for _, r := range records {
		sums[Day(r.Date)] += r.Value
	}
	out := make(TimeSeries, 0, len(sums))
	for d, v := range sums {
		out = append(out, DataPoint{Date: d, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// Aggregate 重新依日彙總序列本身，保證同日唯一且遞增排序。
// 對已彙總過的序列為冪等操作。
func (ts TimeSeries) Aggregate() TimeSeries {
	if len(ts) == 0 {
		return nil
	}
	sums := make(map[time.Time]float64)
	for _, p := range ts {
		sums[Day(p.Date)] += p.Value
	}
	out := make(TimeSeries, 0, len(sums))
	for d, v := range sums {
		out = append(out, DataPoint{Date: d, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// Last 回傳序列最後一點；序列為空時 ok 為 false。
func (ts TimeSeries) Last() (DataPoint, bool) {
	if len(ts) == 0 {
		return DataPoint{}, false
	}
	return ts[len(ts)-1], true
}

// Sum 回傳全序列加總。
func (ts TimeSeries) Sum() float64 {
	var total float64
	for _, p := range ts {
		total += p.Value
	}
	return total
}

// Values 取出數值切片，順序與序列一致。
func (ts TimeSeries) Values() []float64 {
	out := make([]float64, len(ts))
	for i, p := range ts {
		out[i] = p.Value
	}
	return out
}

// ErrEmptyTable 表示上傳檔案沒有任何資料列。
var ErrEmptyTable = errors.New("uploaded file contains no data rows")

// ErrNoUsableRows 表示清理後沒有任何可用紀錄（日期或數值皆無法解析）。
var ErrNoUsableRows = errors.New("no usable rows after preprocessing")

// ColumnError 表示指定欄位不存在於表格。
type ColumnError struct {
	Column string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("column %q not found", e.Column)
}

// IsColumnError 檢查錯誤是否為欄位缺失。
func IsColumnError(err error) bool {
	var ce *ColumnError
	return errors.As(err, &ce)
}

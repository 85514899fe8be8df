package dataset

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	domain "smart-sales-forecast/internal/domain/dataset"
)

// ParseInput 描述一份待解析的上傳檔案。
type ParseInput struct {
	Filename string
	Reader   io.Reader
}

// ParseOutput 回傳正規化後的表格與列數。
type ParseOutput struct {
	Table    domain.RawTable
	RowCount int
}

// ParseUseCase 將 CSV / XLSX 上傳檔解析成 RawTable。
type ParseUseCase struct{}

// NewParseUseCase 建立檔案解析用例。
func NewParseUseCase() *ParseUseCase {
	return &ParseUseCase{}
}

func (u *ParseUseCase) Execute(ctx context.Context, input ParseInput) (ParseOutput, error) {
	var out ParseOutput
	if input.Reader == nil {
		return out, fmt.Errorf("file reader is required")
	}

	ext := strings.ToLower(filepath.Ext(input.Filename))
	var (
		table domain.RawTable
		err   error
	)
	switch ext {
	case ".csv", "":
		table, err = parseCSV(input.Reader)
	case ".xlsx":
		table, err = parseXLSX(input.Reader)
	default:
		return out, fmt.Errorf("unsupported file type %q (expected .csv or .xlsx)", ext)
	}
	if err != nil {
		return out, err
	}
	if len(table.Rows) == 0 {
		return out, domain.ErrEmptyTable
	}

	out.Table = table
	out.RowCount = len(table.Rows)
	return out, nil
}

func parseCSV(r io.Reader) (domain.RawTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // 允許不齊的列，缺欄以空字串處理
	reader.TrimLeadingSpace = true

	var table domain.RawTable
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return domain.RawTable{}, fmt.Errorf("read csv: %w", err)
		}
		if table.Headers == nil {
			table.Headers = normalizeHeaders(row)
			continue
		}
		table.Rows = append(table.Rows, row)
	}
	if table.Headers == nil {
		return domain.RawTable{}, domain.ErrEmptyTable
	}
	return table, nil
}

func parseXLSX(r io.Reader) (domain.RawTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("read xlsx: %w", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return domain.RawTable{}, domain.ErrEmptyTable
	}
	// 僅取第一個工作表，與上傳介面的行為一致。
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return domain.RawTable{}, domain.ErrEmptyTable
	}

	table := domain.RawTable{Headers: normalizeHeaders(rows[0])}
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func normalizeHeaders(raw []string) []string {
	out := make([]string, len(raw))
	for i, h := range raw {
		out[i] = domain.NormalizeHeader(h)
	}
	return out
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

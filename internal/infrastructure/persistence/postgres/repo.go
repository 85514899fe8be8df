package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	datasetDomain "smart-sales-forecast/internal/domain/dataset"
	forecastDomain "smart-sales-forecast/internal/domain/forecast"
)

// Repo 提供 Postgres 資料存取，涵蓋上傳資料集與預測結果讀寫。
type Repo struct {
	db *sql.DB
}

// NewRepo 建立 Postgres 資料存取實例。
func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// SaveDataset 寫入資料集與所有原始列；同 ID 重傳會整份覆蓋。
func (r *Repo) SaveDataset(ctx context.Context, d datasetDomain.Dataset) error {
	if d.ID == "" {
		return fmt.Errorf("dataset id is required")
	}
	headers, err := json.Marshal(d.Table.Headers)
	if err != nil {
		return fmt.Errorf("marshal headers: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const upsertQ = `
INSERT INTO datasets (id, name, uploaded_at, headers)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, uploaded_at = EXCLUDED.uploaded_at, headers = EXCLUDED.headers;
`
	if _, err := tx.ExecContext(ctx, upsertQ, d.ID, d.Name, d.UploadedAt, headers); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM dataset_rows WHERE dataset_id = $1;`, d.ID); err != nil {
		return err
	}

	const rowQ = `
INSERT INTO dataset_rows (dataset_id, row_index, cells)
VALUES ($1, $2, $3);
`
	for i, row := range d.Table.Rows {
		cells, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("marshal row %d: %w", i, err)
		}
		if _, err := tx.ExecContext(ctx, rowQ, d.ID, i, cells); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetDataset 取回資料集與原始表格（列依上傳順序）。
func (r *Repo) GetDataset(ctx context.Context, id string) (datasetDomain.Dataset, error) {
	const q = `SELECT id, name, uploaded_at, headers FROM datasets WHERE id = $1 LIMIT 1;`
	var d datasetDomain.Dataset
	var headers []byte
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&d.ID, &d.Name, &d.UploadedAt, &headers); err != nil {
		return datasetDomain.Dataset{}, err
	}
	if err := json.Unmarshal(headers, &d.Table.Headers); err != nil {
		return datasetDomain.Dataset{}, fmt.Errorf("unmarshal headers: %w", err)
	}

	const rowsQ = `SELECT cells FROM dataset_rows WHERE dataset_id = $1 ORDER BY row_index;`
	rows, err := r.db.QueryContext(ctx, rowsQ, id)
	if err != nil {
		return datasetDomain.Dataset{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var cells []byte
		if err := rows.Scan(&cells); err != nil {
			return datasetDomain.Dataset{}, err
		}
		var row []string
		if err := json.Unmarshal(cells, &row); err != nil {
			return datasetDomain.Dataset{}, fmt.Errorf("unmarshal row: %w", err)
		}
		d.Table.Rows = append(d.Table.Rows, row)
	}
	return d, rows.Err()
}

// SaveForecastRun 紀錄資料集最近一次預測，同一資料集覆蓋舊結果。
func (r *Repo) SaveForecastRun(ctx context.Context, run forecastDomain.Run) error {
	if run.DatasetID == "" {
		return fmt.Errorf("dataset id is required")
	}
	filters, err := json.Marshal(run.Filters)
	if err != nil {
		return fmt.Errorf("marshal filters: %w", err)
	}
	result, err := json.Marshal(run.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	const q = `
INSERT INTO forecast_runs (dataset_id, method, date_column, value_column, filters, pattern, result, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (dataset_id)
DO UPDATE SET method = EXCLUDED.method,
              date_column = EXCLUDED.date_column,
              value_column = EXCLUDED.value_column,
              filters = EXCLUDED.filters,
              pattern = EXCLUDED.pattern,
              result = EXCLUDED.result,
              created_at = EXCLUDED.created_at;
`
	_, err = r.db.ExecContext(ctx, q,
		run.DatasetID,
		string(run.Method),
		run.DateColumn,
		run.ValueColumn,
		filters,
		run.Pattern,
		result,
		run.CreatedAt,
	)
	return err
}

// LatestForecastRun 取回資料集最近一次預測；不存在時回傳 ErrNoForecast。
func (r *Repo) LatestForecastRun(ctx context.Context, datasetID string) (forecastDomain.Run, error) {
	const q = `
SELECT dataset_id, method, date_column, value_column, filters, pattern, result, created_at
FROM forecast_runs
WHERE dataset_id = $1
LIMIT 1;
`
	var run forecastDomain.Run
	var method string
	var filters, result []byte
	err := r.db.QueryRowContext(ctx, q, datasetID).Scan(
		&run.DatasetID,
		&method,
		&run.DateColumn,
		&run.ValueColumn,
		&filters,
		&run.Pattern,
		&result,
		&run.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return forecastDomain.Run{}, forecastDomain.ErrNoForecast
	}
	if err != nil {
		return forecastDomain.Run{}, err
	}
	run.Method = forecastDomain.Method(method)
	if len(filters) > 0 {
		if err := json.Unmarshal(filters, &run.Filters); err != nil {
			return forecastDomain.Run{}, fmt.Errorf("unmarshal filters: %w", err)
		}
	}
	if len(result) > 0 {
		if err := json.Unmarshal(result, &run.Result); err != nil {
			return forecastDomain.Run{}, fmt.Errorf("unmarshal result: %w", err)
		}
	}
	return run, nil
}

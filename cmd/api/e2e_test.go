package main

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"smart-sales-forecast/internal/infrastructure/config"
	httpapi "smart-sales-forecast/internal/interface/http"
)

const (
	errUnauthorized     = "AUTH_UNAUTHORIZED"
	errForbidden        = "AUTH_FORBIDDEN"
	errInvalidCreds     = "AUTH_INVALID_CREDENTIALS"
	errForecastNotReady = "FORECAST_NOT_READY"
	errInvalidTarget    = "INVALID_TARGET"
)

const e2eCSV = `Date,Sales Amount,Region
2024-03-01,10,North
2024-03-02,20,North
2024-03-03,30,South
2024-03-04,40,North
2024-03-05,50,South
2024-03-06,60,North
2024-03-07,70,South
2024-03-08,80,North
2024-03-09,90,South
2024-03-10,100,North
`

// TestForecastE2EFlow 覆蓋登入、上傳、預測、目標分析、地區彙總與匯出。
func TestForecastE2EFlow(t *testing.T) {
	cfg := config.Config{Auth: config.AuthConfig{Secret: "test-secret"}}
	srv := httpapi.NewServer(cfg, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	analystToken := login(t, ts, "analyst@example.com", "password123")
	datasetID := uploadCSV(t, ts, analystToken, e2eCSV)

	// 匯出必須先執行預測
	notReady := getJSON(t, ts, "/api/datasets/"+datasetID+"/forecast/export", analystToken, http.StatusConflict)
	if notReady.ErrorCode != errForecastNotReady {
		t.Fatalf("expected error_code=%s got=%s", errForecastNotReady, notReady.ErrorCode)
	}

	forecast := postJSON(t, ts, "/api/datasets/"+datasetID+"/forecast", analystToken, map[string]interface{}{
		"date_column":  "date",
		"value_column": "sales_amount",
		"method":       "linear",
		"horizon":      "custom",
		"custom_days":  5,
	}, http.StatusOK)
	var fcBody struct {
		Days    int    `json:"forecast_days"`
		Pattern string `json:"pattern"`
	}
	decode(t, forecast.RawBody, &fcBody)
	if fcBody.Days != 5 {
		t.Fatalf("forecast days = %d, want 5", fcBody.Days)
	}
	if fcBody.Pattern != "Upward trend detected" {
		t.Fatalf("pattern = %q", fcBody.Pattern)
	}

	// 目標分析：一般使用者角色也可以查看報表
	userToken := login(t, ts, "user@example.com", "password123")
	targetRes := postJSON(t, ts, "/api/datasets/"+datasetID+"/target", userToken, map[string]interface{}{
		"target":      1000,
		"period_mode": "monthly",
	}, http.StatusOK)
	var tgBody struct {
		Metrics struct {
			CurrentSales   float64 `json:"current_sales"`
			RequiredPerDay float64 `json:"required_per_day"`
		} `json:"metrics"`
	}
	decode(t, targetRes.RawBody, &tgBody)
	if tgBody.Metrics.CurrentSales != 550 {
		t.Fatalf("current_sales = %.2f, want 550", tgBody.Metrics.CurrentSales)
	}
	if tgBody.Metrics.RequiredPerDay != 90 {
		t.Fatalf("required_per_day = %.2f, want 90", tgBody.Metrics.RequiredPerDay)
	}

	badTarget := postJSON(t, ts, "/api/datasets/"+datasetID+"/target", userToken, map[string]interface{}{
		"target": -5,
	}, http.StatusBadRequest)
	if badTarget.ErrorCode != errInvalidTarget {
		t.Fatalf("expected error_code=%s got=%s", errInvalidTarget, badTarget.ErrorCode)
	}

	regions := postJSON(t, ts, "/api/datasets/"+datasetID+"/regions", analystToken, map[string]interface{}{
		"date_column":   "date",
		"value_column":  "sales_amount",
		"region_column": "region",
		"method":        "linear",
		"horizon":       "custom",
		"custom_days":   5,
	}, http.StatusOK)
	var rgBody struct {
		Summary []struct {
			Region string  `json:"region"`
			Total  float64 `json:"total"`
		} `json:"summary"`
	}
	decode(t, regions.RawBody, &rgBody)
	if len(rgBody.Summary) != 2 {
		t.Fatalf("summary = %+v", rgBody.Summary)
	}

	export := getJSON(t, ts, "/api/datasets/"+datasetID+"/forecast/export", analystToken, http.StatusOK)
	if !bytes.HasPrefix(export.RawBody, []byte("date,forecasted_sales,lower,upper")) {
		t.Fatalf("unexpected export header: %q", string(export.RawBody[:40]))
	}

	health := getJSON(t, ts, "/api/health", "", http.StatusOK)
	if !health.Success {
		t.Fatalf("health should be success")
	}
}

// TestAuthErrors 檢查未帶 token、錯誤密碼、權限不足的行為。
func TestAuthErrors(t *testing.T) {
	cfg := config.Config{Auth: config.AuthConfig{Secret: "test-secret"}}
	srv := httpapi.NewServer(cfg, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp := getJSON(t, ts, "/api/datasets/any/columns", "", http.StatusUnauthorized)
	if resp.ErrorCode != errUnauthorized {
		t.Fatalf("expected error_code=%s got=%s", errUnauthorized, resp.ErrorCode)
	}

	fail := postJSON(t, ts, "/api/auth/login", "", map[string]string{
		"email":    "user@example.com",
		"password": "wrong",
	}, http.StatusUnauthorized)
	if fail.ErrorCode != errInvalidCreds {
		t.Fatalf("expected error_code=%s got=%s", errInvalidCreds, fail.ErrorCode)
	}

	userToken := login(t, ts, "user@example.com", "password123")
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "sales.csv")
	fw.Write([]byte(e2eCSV))
	mw.Close()
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/datasets", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+userToken)
	client := &http.Client{Timeout: 5 * time.Second}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected forbidden for user upload, got %d", res.StatusCode)
	}
}

// --- helpers ---

type apiError struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
}

type apiResponse struct {
	apiError
	Status  int
	RawBody []byte
}

func login(t *testing.T, ts *httptest.Server, email, password string) string {
	resp := postJSON(t, ts, "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	}, http.StatusOK)

	var body struct {
		Success     bool   `json:"success"`
		AccessToken string `json:"access_token"`
	}
	decode(t, resp.RawBody, &body)
	if !body.Success || body.AccessToken == "" {
		t.Fatalf("login failed for %s", email)
	}
	return body.AccessToken
}

func uploadCSV(t *testing.T, ts *httptest.Server, token, content string) string {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "sales.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	fw.Write([]byte(content))
	mw.Close()

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/datasets", &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	client := &http.Client{Timeout: 5 * time.Second}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	raw, _ := io.ReadAll(res.Body)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("upload expected 200 got %d: %s", res.StatusCode, raw)
	}
	var body struct {
		DatasetID string `json:"dataset_id"`
	}
	decode(t, raw, &body)
	if body.DatasetID == "" {
		t.Fatalf("missing dataset_id")
	}
	return body.DatasetID
}

func postJSON(t *testing.T, ts *httptest.Server, path, token string, payload interface{}, expect int) apiResponse {
	buf, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, ts.URL+path, bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	client := &http.Client{Timeout: 5 * time.Second}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	body := readResponse(t, res)
	if res.StatusCode != expect {
		t.Fatalf("POST %s expected %d got %d (code=%s err=%s)", path, expect, res.StatusCode, body.ErrorCode, body.Error)
	}
	body.Status = res.StatusCode
	return body
}

func getJSON(t *testing.T, ts *httptest.Server, path, token string, expect int) apiResponse {
	req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	client := &http.Client{Timeout: 5 * time.Second}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	body := readResponse(t, res)
	if res.StatusCode != expect {
		t.Fatalf("GET %s expected %d got %d (code=%s err=%s)", path, expect, res.StatusCode, body.ErrorCode, body.Error)
	}
	body.Status = res.StatusCode
	return body
}

func readResponse(t *testing.T, res *http.Response) apiResponse {
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var body apiError
	// 匯出端點回傳 CSV，解析失敗時保留原始內容即可。
	_ = json.Unmarshal(raw, &body)
	return apiResponse{apiError: body, RawBody: raw}
}

func decode(t *testing.T, raw []byte, v interface{}) {
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

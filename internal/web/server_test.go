package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dataclean/internal/config"
	"github.com/JonMunkholm/dataclean/internal/core"
	"github.com/JonMunkholm/dataclean/internal/history"
)

const messyCSV = "Name , Amount,Date\n  Alice ,\"1,234\",1/2/2024\nAlice,1234,2024-01-02\n,,\nSample,1,\n"

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Port: 8080, RequestTimeout: time.Minute, ShutdownTimeout: time.Second},
		Upload:  config.UploadConfig{MaxFileSize: 1 << 20, MaxBatchFiles: 3, MaxConcurrent: 2, MaxWaitTime: time.Second, Timeout: time.Minute},
		History: config.HistoryConfig{ListLimit: 50},
		Rate:    config.RateLimitConfig{Enabled: false},
		Security: config.SecurityConfig{
			EnableCSP: true,
		},
		Logging: config.LoggingConfig{Level: "error", Format: "text"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, store history.Store) *Server {
	t.Helper()
	s := NewServer(core.NewEngine(), store, cfg, core.DefaultOptions())
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s
}

func sqliteStore(t *testing.T) history.Store {
	t.Helper()
	store, err := history.Open(context.Background(), filepath.Join(t.TempDir(), "h.db"), history.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

type upload struct {
	field, name, content string
}

func multipartRequest(t *testing.T, files []upload, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.content))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/services/data-clean", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, false, body["history"])
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestListServices(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/services", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Services []serviceInfo `json:"services"`
	}](t, rec)
	require.Len(t, body.Services, 1)
	assert.Equal(t, "data-clean", body.Services[0].ID)
	assert.Len(t, body.Services[0].Dialects, core.DialectCount())
}

func TestDataClean_SingleFile(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	rec := serve(s, multipartRequest(t, []upload{{"file", "people.csv", messyCSV}}, map[string]string{
		"export_formats": "csv,json",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decode[cleanResult](t, rec)
	assert.True(t, res.Success)
	assert.Equal(t, "people.csv", res.Filename)
	require.NotNil(t, res.Outputs)
	assert.Equal(t, "name,amount,date\nAlice,1234,2024-01-02\n", res.Outputs.CSV)
	assert.NotEmpty(t, res.Outputs.JSON)
	assert.Empty(t, res.Outputs.Excel, "excel was not requested")
	require.NotNil(t, res.Report)
	assert.Equal(t, 1, res.Report.DuplicatesRemoved)
	assert.Equal(t, 1, res.Report.IrrelevantRowsRemoved)
}

func TestDataClean_Batch(t *testing.T) {
	store := sqliteStore(t)
	s := newTestServer(t, testConfig(), store)

	rec := serve(s, multipartRequest(t, []upload{
		{"files[]", "a.csv", messyCSV},
		{"files[]", "empty.csv", ""},
		{"files[]", "b.json", `[{"id": 1, "name": " Bob "}]`},
	}, map[string]string{"export_formats": "csv"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode[batchResponse](t, rec)
	assert.True(t, body.Batch)
	assert.Equal(t, 3, body.FilesProcessed)
	require.Len(t, body.Results, 3)

	assert.True(t, body.Results[0].Success)
	assert.False(t, body.Results[1].Success)
	assert.Equal(t, "CLN001", body.Results[1].Code)
	assert.True(t, body.Results[2].Success)
	assert.Equal(t, "id,name\n1,Bob\n", body.Results[2].Outputs.CSV)

	runs, err := store.Recent(context.Background(), history.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, runs, 2, "failed files are not recorded")
}

func TestDataClean_Errors(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	tests := []struct {
		name     string
		req      *http.Request
		wantCode int
		wantErr  string
	}{
		{
			"no file",
			multipartRequest(t, nil, map[string]string{"delimiter": ","}),
			http.StatusBadRequest, "FILE003",
		},
		{
			"too many files",
			multipartRequest(t, []upload{
				{"files[]", "1.csv", "a\n1\n"}, {"files[]", "2.csv", "a\n1\n"},
				{"files[]", "3.csv", "a\n1\n"}, {"files[]", "4.csv", "a\n1\n"},
			}, nil),
			http.StatusBadRequest, "FILE004",
		},
		{
			"bad delimiter",
			multipartRequest(t, []upload{{"file", "a.csv", "a\n1\n"}}, map[string]string{"delimiter": ";;"}),
			http.StatusBadRequest, "CLN002",
		},
		{
			"bad flag",
			multipartRequest(t, []upload{{"file", "a.csv", "a\n1\n"}}, map[string]string{"drop_empty_rows": "perhaps"}),
			http.StatusBadRequest, "CLN002",
		},
		{
			"unsupported file type",
			multipartRequest(t, []upload{{"file", "a.csv", "a\n1\n"}}, map[string]string{"file_type": "parquet"}),
			http.StatusUnsupportedMediaType, "CLN003",
		},
		{
			"empty file",
			multipartRequest(t, []upload{{"file", "a.csv", ""}}, nil),
			http.StatusBadRequest, "CLN001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(s, tt.req)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			body := decode[ErrorResponse](t, rec)
			assert.Equal(t, tt.wantErr, body.Code)
			assert.False(t, body.Success)
		})
	}
}

func TestDataClean_FileTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxFileSize = 64
	s := newTestServer(t, cfg, nil)

	big := "a,b\n" + strings.Repeat("1,2\n", 200)
	rec := serve(s, multipartRequest(t, []upload{{"file", "big.csv", big}}, nil))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
	assert.Equal(t, "FILE001", decode[ErrorResponse](t, rec).Code)
}

func TestDataClean_Text(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	body := `{"csv_text": "A;B\n x ;2\n", "delimiter": ";"}`
	req := httptest.NewRequest(http.MethodPost, "/api/services/data-clean", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decode[textResponse](t, rec)
	assert.True(t, res.Success)
	assert.Equal(t, "a;b\nx;2\n", res.CleanedCSV)
	assert.Equal(t, core.FileCSV, res.Report.FileType)
}

func TestDataClean_TextErrors(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	tests := []struct {
		name        string
		contentType string
		body        string
		wantStatus  int
		wantCode    string
	}{
		{"blank text", "application/json", `{"csv_text": "   "}`, http.StatusBadRequest, "CLN004"},
		{"malformed json", "application/json", `{"csv_text":`, http.StatusBadRequest, "ERR000"},
		{"plain text", "text/plain", "a,b", http.StatusUnsupportedMediaType, "ERR000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/services/data-clean", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rec := serve(s, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestHistoryEndpoints(t *testing.T) {
	store := sqliteStore(t)
	s := newTestServer(t, testConfig(), store)

	rec := serve(s, multipartRequest(t, []upload{{"file", "people.csv", messyCSV}}, map[string]string{"export_formats": "csv"}))
	require.Equal(t, http.StatusOK, rec.Code)
	runID := decode[cleanResult](t, rec).Report.RunID

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/history?file_type=csv&limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Runs  []core.Report `json:"runs"`
		Count int           `json:"count"`
	}](t, rec)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, runID, list.Runs[0].RunID)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/history/"+runID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "people.csv", decode[core.Report](t, rec).FileName)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/history/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "HIST001", decode[ErrorResponse](t, rec).Code)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/history?since=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryDisabled(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "HIST002", decode[ErrorResponse](t, rec).Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2, CleanLimit: 1}
	s := newTestServer(t, cfg, nil)

	for i := 0; i < 2; i++ {
		rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/services", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/services", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE001", decode[ErrorResponse](t, rec).Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"secret"}
	s := newTestServer(t, cfg, nil)

	assert.Equal(t, http.StatusOK, serve(s, httptest.NewRequest(http.MethodGet, "/api/health", nil)).Code,
		"health stays open")
	assert.Equal(t, http.StatusUnauthorized, serve(s, httptest.NewRequest(http.MethodGet, "/api/services", nil)).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/services", nil)
	req.Header.Set("X-API-Key", "secret")
	assert.Equal(t, http.StatusOK, serve(s, req).Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.MissingField("csv_text"), http.StatusBadRequest},
		{core.ErrUnsupportedFeature, http.StatusUnsupportedMediaType},
		{core.ErrTooManyRuns, http.StatusServiceUnavailable},
		{history.ErrNotFound, http.StatusNotFound},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errFileTooLarge, http.StatusRequestEntityTooLarge},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

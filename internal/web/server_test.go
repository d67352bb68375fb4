package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/datasweeper/internal/config"
	"github.com/JonMunkholm/datasweeper/internal/core"
	_ "github.com/JonMunkholm/datasweeper/internal/core/formats"
	"github.com/JonMunkholm/datasweeper/internal/metrics"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: 10 * time.Second},
		Upload: config.UploadConfig{
			MaxFileSize:    1 << 20,
			MaxConcurrent:  2,
			MaxWaitTime:    time.Second,
			PreviewRows:    5,
			MaxPreviewRows: 100,
		},
		Session:  config.SessionConfig{TTL: time.Hour, MaxFiles: 5},
		Security: config.SecurityConfig{EnableCSP: true},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	svc := core.NewService(core.Options{
		MaxFileSize:    cfg.Upload.MaxFileSize,
		PreviewRows:    cfg.Upload.PreviewRows,
		MaxPreviewRows: cfg.Upload.MaxPreviewRows,
		SessionTTL:     cfg.Session.TTL,
		MaxFiles:       cfg.Session.MaxFiles,
	}, core.NewUploadLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime), nil)
	return NewServer(svc, cfg, metrics.New())
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

// multipartRequest builds a request whose "files" parts hold the given
// name to content pairs.
func multipartRequest(t *testing.T, target string, files ...[2]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f[0])
		require.NoError(t, err)
		_, err = part.Write([]byte(f[1]))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(t *testing.T, method, target string, v any) *http.Request {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

const salesCSV = "id,amount,region\n1,10,North\n2,20,South\n2,20,South\n"

// createWithFile creates a session over the API and uploads sales.csv.
func createWithFile(t *testing.T, s *Server) (sid, fid string) {
	t.Helper()
	rec := do(s, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	sid = decode[core.SessionInfo](t, rec).ID

	rec = do(s, multipartRequest(t, "/api/sessions/"+sid+"/files", [2]string{"sales.csv", salesCSV}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[core.UploadResult](t, rec)
	require.Len(t, res.Files, 1)
	return sid, res.Files[0].ID
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[healthResponse](t, rec)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 0, body.Sessions)
	assert.Equal(t, 2, body.Uploads.MaxConcurrent)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestListFormats(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/formats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	keys := []string{}
	for _, f := range decode[[]formatResponse](t, rec) {
		keys = append(keys, f.Key)
	}
	assert.Contains(t, keys, "csv")
	assert.Contains(t, keys, "xlsx")
}

func TestUpload_ReportsSkippedFiles(t *testing.T) {
	s := newTestServer(t, testConfig())
	sid := decode[core.SessionInfo](t, do(s, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))).ID

	rec := do(s, multipartRequest(t, "/api/sessions/"+sid+"/files",
		[2]string{"sales.csv", salesCSV},
		[2]string{"notes.txt", "hello"},
	))
	require.Equal(t, http.StatusOK, rec.Code)

	res := decode[core.UploadResult](t, rec)
	require.Len(t, res.Files, 1)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "notes.txt", res.Errors[0].Name)
	assert.Equal(t, "FILE001", res.Errors[0].Code)

	rec = do(s, multipartRequest(t, "/api/sessions/"+sid+"/files", [2]string{"notes.txt", "hello"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpload_NoFiles(t *testing.T) {
	s := newTestServer(t, testConfig())
	sid := decode[core.SessionInfo](t, do(s, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))).ID

	rec := do(s, multipartRequest(t, "/api/sessions/"+sid+"/files"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "FILE004", decode[ErrorResponse](t, rec).Code)
}

func TestSessionNotFound(t *testing.T) {
	s := newTestServer(t, testConfig())

	tests := []struct {
		name   string
		method string
		path   string
		code   string
	}{
		{"get session", http.MethodGet, "/api/sessions/missing/", "SES001"},
		{"preview", http.MethodGet, "/api/sessions/missing/files/f/preview", "SES001"},
		{"merged", http.MethodGet, "/api/sessions/missing/merged", "SES001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(s, httptest.NewRequest(tt.method, tt.path, nil))
			require.Equal(t, http.StatusNotFound, rec.Code)
			assert.Equal(t, tt.code, decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestFileNotFound(t *testing.T) {
	s := newTestServer(t, testConfig())
	sid, _ := createWithFile(t, s)

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/sessions/"+sid+"/files/nope/summary", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "SES002", decode[ErrorResponse](t, rec).Code)
}

func TestPreviewAndSummary(t *testing.T) {
	s := newTestServer(t, testConfig())
	sid, fid := createWithFile(t, s)
	base := "/api/sessions/" + sid + "/files/" + fid

	rec := do(s, httptest.NewRequest(http.MethodGet, base+"/preview?n=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	p := decode[core.Preview](t, rec)
	assert.Len(t, p.Rows, 2)
	assert.Equal(t, 3, p.TotalRows)
	require.Len(t, p.Columns, 3)
	assert.Equal(t, "id", p.Columns[0].Name)

	rec = do(s, httptest.NewRequest(http.MethodGet, base+"/summary", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 3)

	rec = do(s, httptest.NewRequest(http.MethodGet, base+"/correlation", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "columns")
}

func TestClean(t *testing.T) {
	s := newTestServer(t, testConfig())
	sid, fid := createWithFile(t, s)
	target := "/api/sessions/" + sid + "/files/" + fid + "/clean"

	rec := do(s, jsonRequest(t, http.MethodPost, target, map[string]string{"operation": "drop_duplicates"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decode[core.CleanResult](t, rec)
	assert.Equal(t, "Duplicates Removed!", res.Message)
	assert.Equal(t, 3, res.RowsBefore)
	assert.Equal(t, 2, res.RowsAfter)

	tests := []struct {
		name string
		body any
	}{
		{"unknown operation", map[string]string{"operation": "shuffle"}},
		{"missing operation", map[string]string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(s, jsonRequest(t, http.MethodPost, target, tt.body))
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "VAL001", decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestSelectColumnsAndExport(t *testing.T) {
	s := newTestServer(t, testConfig())
	sid, fid := createWithFile(t, s)
	base := "/api/sessions/" + sid + "/files/" + fid

	rec := do(s, jsonRequest(t, http.MethodPut, base+"/columns", map[string][]string{"columns": {"region", "id"}}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"region", "id"}, decode[core.FileInfo](t, rec).Selected)

	rec = do(s, jsonRequest(t, http.MethodPut, base+"/columns", map[string][]string{"columns": {"nope"}}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "TBL001", decode[ErrorResponse](t, rec).Code)

	rec = do(s, httptest.NewRequest(http.MethodGet, base+"/export?format=csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "sales.csv")
	assert.Equal(t, "region,id\nNorth,1\nSouth,2\nSouth,2\n", rec.Body.String())

	rec = do(s, httptest.NewRequest(http.MethodGet, base+"/export?format=xlsx", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "sales.xlsx")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")

	rec = do(s, httptest.NewRequest(http.MethodGet, base+"/export?format=pdf", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCharts(t *testing.T) {
	s := newTestServer(t, testConfig())
	sid, fid := createWithFile(t, s)
	base := "/api/sessions/" + sid + "/files/" + fid + "/charts/"

	rec := do(s, httptest.NewRequest(http.MethodGet, base+"bar?format=json", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"name":"id"`)
	assert.Contains(t, rec.Body.String(), `"name":"amount"`)

	for _, kind := range []string{"bar", "pie", "correlation"} {
		t.Run(kind, func(t *testing.T) {
			rec := do(s, httptest.NewRequest(http.MethodGet, base+kind, nil))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		})
	}

	rec = do(s, httptest.NewRequest(http.MethodGet, base+"scatter", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(s, httptest.NewRequest(http.MethodGet, base+"bar?format=svg", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMerge(t *testing.T) {
	s := newTestServer(t, testConfig())
	sid, _ := createWithFile(t, s)

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/sessions/"+sid+"/merged", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MRG001", decode[ErrorResponse](t, rec).Code)

	rec = do(s, multipartRequest(t, "/api/sessions/"+sid+"/files",
		[2]string{"targets.csv", "id,target\n1,15\n3,30\n"}))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/sessions/"+sid+"/merged", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	p := decode[core.Preview](t, rec)
	names := make([]string, len(p.Columns))
	for i, c := range p.Columns {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"id", "amount", "region", "target"}, names)

	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/sessions/"+sid+"/merged/export", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), core.MergedFileName)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "id,amount,region,target\n"))
}

func TestDeleteSessionAndFile(t *testing.T) {
	s := newTestServer(t, testConfig())
	sid, fid := createWithFile(t, s)

	rec := do(s, httptest.NewRequest(http.MethodDelete, "/api/sessions/"+sid+"/files/"+fid+"/", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/sessions/"+sid+"/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[core.SessionInfo](t, rec).Files)

	rec = do(s, httptest.NewRequest(http.MethodDelete, "/api/sessions/"+sid+"/", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/sessions/"+sid+"/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

var sessionIDPattern = regexp.MustCompile(`action="/sessions/([^/"]+)/files"`)

func TestUIFlow(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(s, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Data Sweeper")
	assert.Contains(t, rec.Body.String(), ".csv")

	rec = do(s, multipartRequest(t, "/sessions",
		[2]string{"sales.csv", salesCSV},
		[2]string{"notes.txt", "hello"},
	))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	page := rec.Body.String()
	assert.Contains(t, page, "All files processed successfully: sales.csv")
	assert.Contains(t, page, "notes.txt")
	assert.Contains(t, page, "FILE001")

	m := sessionIDPattern.FindStringSubmatch(page)
	require.Len(t, m, 2)
	sid := m[1]

	info := decode[core.SessionInfo](t, do(s, httptest.NewRequest(http.MethodGet, "/api/sessions/"+sid+"/", nil)))
	require.Len(t, info.Files, 1)
	fileBase := "/sessions/" + sid + "/files/" + info.Files[0].ID

	form := url.Values{"operation": {"drop_duplicates"}}
	req := httptest.NewRequest(http.MethodPost, fileBase+"/clean", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = do(s, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	location := rec.Header().Get("Location")
	assert.Equal(t, "/sessions/"+sid+"?done=drop_duplicates", location)

	rec = do(s, httptest.NewRequest(http.MethodGet, location, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Duplicates Removed!")
	assert.Contains(t, rec.Body.String(), "2 rows, 3 columns")

	req = httptest.NewRequest(http.MethodPost, fileBase+"/delete", nil)
	rec = do(s, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = do(s, httptest.NewRequest(http.MethodGet, "/sessions/"+sid, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No files in this session yet.")
}

func TestUI_UnknownSessionRendersErrorPage(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(s, httptest.NewRequest(http.MethodGet, "/sessions/missing", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "SES001")
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 1}
	s := newTestServer(t, cfg)

	req := func() *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/api/formats", nil)
		r.RemoteAddr = "192.0.2.1:1234"
		return r
	}

	rec := do(s, req())
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(s, req())
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE001", decode[ErrorResponse](t, rec).Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestCORS(t *testing.T) {
	cfg := testConfig()
	cfg.Security.CORSAllowedOrigins = []string{"https://app.example.com"}
	s := newTestServer(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/formats", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := do(s, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/formats", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = do(s, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

type failingChart struct{}

func (failingChart) Render(w io.Writer) error {
	_, _ = io.WriteString(w, "<html><body>partial")
	return errors.New("series encode failed")
}

func TestWriteChart_RenderFailureSendsOnlyError(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/sessions/s/files/f/charts/bar", nil)
	s.writeChart(rec, req, "bar", failingChart{})

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "partial")
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, "ERR000", decode[ErrorResponse](t, rec).Code)
}

func TestUI_FailedCreateDropsSession(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(s, multipartRequest(t, "/sessions"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "FILE004")
	assert.Equal(t, 0, s.service.SessionCount())
}

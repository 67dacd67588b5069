package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)

func newTestApp(t *testing.T, store Store) (*App, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	metrics, err := newAppMetrics()
	require.NoError(t, err)

	cfg := &Config{
		Addr:               ":0",
		Env:                "test",
		StoreDriver:        storeDriverMongo,
		DataRoot:           t.TempDir(),
		MaxMultipartMemory: defaultMaxMultipartMemory,
		DashboardSource:    dashboardSourceLive,
		MockSeed:           42,
		ReconcileInterval:  time.Hour,
		OrphanGracePeriod:  24 * time.Hour,
		CatalogCacheTTL:    time.Minute,
	}
	app := &App{
		cfg:       cfg,
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		store:     store,
		catalog:   newCatalogResolver(store, cfg.CatalogCacheTTL),
		evidence:  newEvidenceStore(cfg.DataRoot),
		metrics:   metrics,
		now:       func() time.Time { return testNow },
		mockSeed:  cfg.MockSeed,
		lifecycle: context.Background(),
	}
	return app, app.buildRouter()
}

type testUpload struct {
	name string
	body string
}

func newReportRequest(t *testing.T, fields map[string]string, uploads ...testUpload) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	for _, u := range uploads {
		part, err := writer.CreateFormFile(evidenceFormField, u.name)
		require.NoError(t, err)
		_, err = io.WriteString(part, u.body)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/report", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func doRequest(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
}

func assertAPIError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	assert.Equal(t, status, rec.Code, rec.Body.String())
	var body map[string]string
	decodeJSON(t, rec, &body)
	assert.Equal(t, code, body["error"])
}

func TestHealthzReportsStore(t *testing.T) {
	_, router := newTestApp(t, newMemStore())

	rec := doRequest(router, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	decodeJSON(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "memory", body["store"])
}

func TestMetricsEndpointExposesCounters(t *testing.T) {
	_, router := newTestApp(t, newMemStore())

	rec := doRequest(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "transitguard_evidence_files_stored_total")
}

func TestCORSAllowsAnyOriginByDefault(t *testing.T) {
	_, router := newTestApp(t, newMemStore())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://admin.example.lk")
	rec := doRequest(router, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSRestrictsConfiguredOrigins(t *testing.T) {
	app, _ := newTestApp(t, newMemStore())
	app.cfg.CORSAllowedOrigins = []string{"http://admin.example.lk"}
	router := app.buildRouter()

	allowed := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	allowed.Header.Set("Origin", "http://admin.example.lk")
	assert.Equal(t, "http://admin.example.lk", doRequest(router, allowed).Header().Get("Access-Control-Allow-Origin"))

	denied := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	denied.Header.Set("Origin", "http://evil.example")
	rec := doRequest(router, denied)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRoutesMatchCaseInsensitively(t *testing.T) {
	_, router := newTestApp(t, newSeededMemStore())

	rec := doRequest(router, httptest.NewRequest(http.MethodGet, "/api/Location", nil))

	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/api/location", rec.Header().Get("Location"))
}

func TestServeStopsOnCancelWithoutCreatingUploads(t *testing.T) {
	app, _ := newTestApp(t, newSeededMemStore())
	app.cfg.Addr = "127.0.0.1:0"
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, app.serve(ctx))

	assert.NoDirExists(t, app.evidence.uploadsDir())
	assert.NoDirExists(t, app.evidence.stagingDir())
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCommand()

	names := make([]string, 0)
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	assert.Subset(t, names, []string{"serve", "seed", "seed-mock-reports", "reconcile", "export"})

	cmd, _, err := root.Find([]string{"seed-mock-reports"})
	require.NoError(t, err)
	flag := cmd.Flags().Lookup("count")
	require.NotNil(t, flag)
	assert.Equal(t, "50", flag.DefValue)
}

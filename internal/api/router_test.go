package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/timmy/mojiscan/internal/config"
	"github.com/timmy/mojiscan/internal/inference/mock"
	"github.com/timmy/mojiscan/internal/logger"
	"github.com/timmy/mojiscan/internal/observe"
	"github.com/timmy/mojiscan/internal/prompts"
	"github.com/timmy/mojiscan/internal/service"
	"go.opentelemetry.io/otel/metric/noop"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testPrompts = prompts.Set{
	Base:        "BASE",
	Variant:     "VARIANT",
	Arbitration: "ARB {candidate_a} | {candidate_b}",
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Mode:        "test",
			MaxUploadMB: 1,
			CORS:        config.CORSConfig{AllowAllOrigins: true},
		},
		Transcribe: config.TranscribeConfig{AllowedFormats: []string{"png", "jpeg"}},
		Metrics:    config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func newTestRouter(t *testing.T, gen *mock.Generator) (*gin.Engine, *service.ResultCache) {
	t.Helper()
	log := logger.New(&logger.Config{Level: "error", Output: io.Discard})
	metrics, err := observe.NewMetrics(noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	cache := service.NewResultCache()
	tr := service.NewTranscriber(gen, cache, metrics, log, nil)
	engine := service.NewConsensusEngine(tr, metrics, log, &service.ConsensusConfig{Parallel: true})
	scans := service.NewScanService(engine, testPrompts, metrics, log)

	r := SetupRouter(testConfig(), RouterDeps{
		ScanService: scans,
		Cache:       cache,
		Metrics:     metrics,
		Logger:      log,
		Provider:    gen.Name(),
		Model:       gen.Model(),
	})
	return r, cache
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func multipartBody(t *testing.T, image []byte, reference string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if image != nil {
		part, err := w.CreateFormFile("image", "note.png")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		_, _ = part.Write(image)
	}
	if reference != "" {
		_ = w.WriteField("reference", reference)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &body, w.FormDataContentType()
}

func TestScanEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		image      []byte
		reference  string
		gen        *mock.Generator
		wantStatus int
		wantPath   string
		wantScore  bool
	}{
		{
			name:       "agreed with score",
			image:      pngBytes(t),
			reference:  "こんにちは",
			gen:        &mock.Generator{DefaultResponse: "こんにちは"},
			wantStatus: http.StatusOK,
			wantPath:   "agreed",
			wantScore:  true,
		},
		{
			name:  "arbitrated without score",
			image: pngBytes(t),
			gen: &mock.Generator{
				Responses: map[string]string{"BASE": "Hello", "VARIANT": "Helo"},
				Respond:   func(string) (string, error) { return "Hello", nil },
			},
			wantStatus: http.StatusOK,
			wantPath:   "arbitrated",
		},
		{
			name:  "degraded is still a success",
			image: pngBytes(t),
			gen: &mock.Generator{
				Responses: map[string]string{"BASE": "Hello", "VARIANT": "Helo"},
				Respond:   func(string) (string, error) { return "", errors.New("blocked") },
			},
			wantStatus: http.StatusOK,
			wantPath:   "degraded",
		},
		{
			name:       "missing image",
			gen:        &mock.Generator{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "not an image",
			image:      []byte("plain text"),
			gen:        &mock.Generator{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "backend failure",
			image:      pngBytes(t),
			gen:        &mock.Generator{Errors: map[string]error{"BASE": errors.New("HTTP 500")}},
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRouter(t, tt.gen)
			body, contentType := multipartBody(t, tt.image, tt.reference)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/scans", body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if w.Header().Get("X-Request-ID") == "" {
				t.Error("expected X-Request-ID header")
			}
			if tt.wantStatus != http.StatusOK {
				var resp map[string]string
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp["error"] == "" {
					t.Errorf("expected error body, got %s", w.Body.String())
				}
				if tt.wantStatus == http.StatusBadGateway && resp["request_id"] != w.Header().Get("X-Request-ID") {
					t.Errorf("expected request_id %q in body, got %q", w.Header().Get("X-Request-ID"), resp["request_id"])
				}
				return
			}

			var resp service.ScanResult
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if string(resp.Outcome.Path) != tt.wantPath {
				t.Errorf("expected path %s, got %s", tt.wantPath, resp.Outcome.Path)
			}
			if (resp.Score != nil) != tt.wantScore {
				t.Errorf("expected score present=%v, got %+v", tt.wantScore, resp.Score)
			}
			if resp.ScanID == "" {
				t.Error("expected scan id")
			}
		})
	}
}

func TestScanEndpointRejectsOversizedUpload(t *testing.T) {
	r, _ := newTestRouter(t, &mock.Generator{})
	body, contentType := multipartBody(t, bytes.Repeat([]byte{0x89}, 2<<20), "")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scans", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge && w.Code != http.StatusBadRequest {
		t.Errorf("expected 413 or 400, got %d", w.Code)
	}
}

func TestScoreEndpoint(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		wantStatus   int
		wantDistance int
	}{
		{name: "kitten", body: `{"candidate":"kitten","reference":"sitting"}`, wantStatus: http.StatusOK, wantDistance: 3},
		{name: "both empty", body: `{"candidate":"","reference":""}`, wantStatus: http.StatusOK, wantDistance: 0},
		{name: "missing reference", body: `{"candidate":"abc"}`, wantStatus: http.StatusBadRequest},
		{name: "malformed", body: `{`, wantStatus: http.StatusBadRequest},
	}

	r, _ := newTestRouter(t, &mock.Generator{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/score", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp struct {
				EditDistance      int     `json:"edit_distance"`
				SimilarityPercent float64 `json:"similarity_percent"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.EditDistance != tt.wantDistance {
				t.Errorf("expected distance %d, got %d", tt.wantDistance, resp.EditDistance)
			}
		})
	}
}

func TestStatsReflectCache(t *testing.T) {
	r, _ := newTestRouter(t, &mock.Generator{DefaultResponse: "same"})

	for i := 0; i < 2; i++ {
		body, contentType := multipartBody(t, pngBytes(t), "")
		req := httptest.NewRequest(http.MethodPost, "/api/v1/scans", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("scan %d: expected 200, got %d", i, w.Code)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))

	var stats struct {
		CacheEnabled bool  `json:"cache_enabled"`
		CacheEntries int   `json:"cache_entries"`
		CacheHits    int64 `json:"cache_hits"`
		CacheMisses  int64 `json:"cache_misses"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if !stats.CacheEnabled || stats.CacheEntries != 2 || stats.CacheHits != 2 || stats.CacheMisses != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestAuxiliaryRoutes(t *testing.T) {
	r, _ := newTestRouter(t, &mock.Generator{ProviderName: "gemini", ModelName: "gemini-2.0-flash"})

	tests := []struct {
		name     string
		method   string
		path     string
		wantCode int
		contains string
	}{
		{name: "health", method: http.MethodGet, path: "/health", wantCode: http.StatusOK, contains: `"model":"gemini-2.0-flash"`},
		{name: "index page", method: http.MethodGet, path: "/", wantCode: http.StatusOK, contains: "Moji Scan"},
		{name: "metrics", method: http.MethodGet, path: "/metrics", wantCode: http.StatusOK},
		{name: "preflight", method: http.MethodOptions, path: "/api/v1/scans", wantCode: http.StatusNoContent},
		{name: "unknown", method: http.MethodGet, path: "/nope", wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.Header.Set("Origin", "http://example.com")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, w.Code)
			}
			if tt.contains != "" && !strings.Contains(w.Body.String(), tt.contains) {
				t.Errorf("expected body to contain %q", tt.contains)
			}
		})
	}
}

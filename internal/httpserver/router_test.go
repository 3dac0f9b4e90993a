package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"catalog-importer/internal/domain"
	"catalog-importer/internal/importer"
	"catalog-importer/internal/service/imports"
)

type stubImports struct {
	runID   string
	err     error
	stats   importer.Stats
	hasRun  bool
	lastReq imports.Request
}

func (s *stubImports) Start(_ context.Context, req imports.Request) (string, error) {
	s.lastReq = req
	return s.runID, s.err
}

func (s *stubImports) Current() (importer.Stats, bool) {
	return s.stats, s.hasRun
}

type stubProducts struct {
	product *domain.Product
	err     error
}

func (s *stubProducts) Get(_ context.Context, _ string) (*domain.Product, error) {
	return s.product, s.err
}

type stubTerms struct {
	terms []domain.Term
	err   error
}

func (s *stubTerms) List(_ context.Context, _ string) ([]domain.Term, error) {
	return s.terms, s.err
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func testRouter(db pinger, deps Deps) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return newRouter(context.Background(), zap.NewNop(), db, deps)
}

func serve(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestReady(t *testing.T) {
	rec := serve(testRouter(stubPinger{}, Deps{}), http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(testRouter(stubPinger{err: errors.New("down")}, Deps{}), http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = serve(testRouter(nil, Deps{}), http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStartImport(t *testing.T) {
	svc := &stubImports{runID: "run-1"}
	router := testRouter(nil, Deps{Imports: svc})

	rec := serve(router, http.MethodPost, "/api/imports", `{"file":"/data/catalog.csv","batchSize":200}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"runId":"run-1"}`, rec.Body.String())
	assert.Equal(t, "/data/catalog.csv", svc.lastReq.File)
	assert.Equal(t, 200, svc.lastReq.BatchSize)
}

func TestStartImport_Errors(t *testing.T) {
	cases := []struct {
		name string
		svc  *stubImports
		body string
		want int
	}{
		{"bad json", &stubImports{}, `{`, http.StatusBadRequest},
		{"missing file", &stubImports{}, `{"batchSize":10}`, http.StatusBadRequest},
		{"already running", &stubImports{err: imports.ErrRunning}, `{"file":"a.csv"}`, http.StatusConflict},
		{"rejected", &stubImports{err: errors.New("batch size must be within 1..10000")}, `{"file":"a.csv"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(testRouter(nil, Deps{Imports: tc.svc}), http.MethodPost, "/api/imports", tc.body)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestCurrentImport(t *testing.T) {
	router := testRouter(nil, Deps{Imports: &stubImports{}})
	rec := serve(router, http.MethodGet, "/api/imports/current", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	svc := &stubImports{hasRun: true, stats: importer.Stats{
		RunID: "run-2", Created: 5, Updated: 1, Malformed: 1, Completed: true, PeakMemory: 2048,
	}}
	rec = serve(testRouter(nil, Deps{Imports: svc}), http.MethodGet, "/api/imports/current", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "run-2", body["runId"])
	assert.Equal(t, importer.StatusCompletedWithErrors, body["status"])
	assert.EqualValues(t, 1, body["errors"])
	assert.EqualValues(t, 5, body["created"])
	assert.Equal(t, "2.0 KiB", body["peakMemory"])
}

func TestGetProduct(t *testing.T) {
	products := &stubProducts{product: &domain.Product{
		ID: 7, SKU: "A1", Name: "Alpha", PriceCents: 999, StockQuantity: 3,
		StockStatus: domain.StockInStock,
		Terms:       []domain.TermRef{{Taxonomy: "category", Name: "Tools"}},
	}}
	rec := serve(testRouter(nil, Deps{Products: products}), http.MethodGet, "/api/products/A1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body productResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "9.99", body.Price)
	assert.Equal(t, domain.StockInStock, body.StockStatus)
	assert.Len(t, body.Terms, 1)
	assert.Empty(t, body.MediaIDs)
	assert.Empty(t, body.SalePrice)
	assert.NotNil(t, body.Attributes)
}

func TestGetProduct_SaleAndAttributes(t *testing.T) {
	products := &stubProducts{product: &domain.Product{
		ID: 8, SKU: "B1", Name: "Beta", PriceCents: 2000, SalePriceCents: 1500,
		ShortDescription: "Compact",
		Attributes:       []domain.Attribute{{Name: "Color", Values: []string{"Red", "Blue"}}},
	}}
	rec := serve(testRouter(nil, Deps{Products: products}), http.MethodGet, "/api/products/B1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body productResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "20.00", body.Price)
	assert.Equal(t, "15.00", body.SalePrice)
	assert.Equal(t, "Compact", body.ShortDescription)
	assert.Equal(t, []domain.Attribute{{Name: "Color", Values: []string{"Red", "Blue"}}}, body.Attributes)
}

func TestGetProduct_Errors(t *testing.T) {
	rec := serve(testRouter(nil, Deps{Products: &stubProducts{err: domain.ErrNotFound}}), http.MethodGet, "/api/products/X", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(testRouter(nil, Deps{Products: &stubProducts{err: errors.New("boom")}}), http.MethodGet, "/api/products/X", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListTerms(t *testing.T) {
	terms := &stubTerms{terms: []domain.Term{{ID: 3, Name: "Tools", Slug: "tools", Taxonomy: "category"}}}
	rec := serve(testRouter(nil, Deps{Terms: terms}), http.MethodGet, "/api/terms/category", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Results []domain.Term `json:"results"`
		Count   int           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "tools", body.Results[0].Slug)

	rec = serve(testRouter(nil, Deps{Terms: &stubTerms{err: domain.ErrNotFound}}), http.MethodGet, "/api/terms/color", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(testRouter(nil, Deps{Terms: &stubTerms{}}), http.MethodGet, "/api/terms/brand", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"results":[],"count":0}`, rec.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	router := testRouter(nil, Deps{Imports: &stubImports{}, AllowOrigins: []string{"https://admin.example.com"}})
	req := httptest.NewRequest(http.MethodOptions, "/api/imports", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://admin.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "0.05", formatCents(5))
	assert.Equal(t, "12.00", formatCents(1200))
	assert.Equal(t, "-1.50", formatCents(-150))
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/houstoncardinal/home-source-evolve-sub000/internal/clients"
	"github.com/houstoncardinal/home-source-evolve-sub000/internal/models"
)

// MockScanStore is a mock implementation of ScanStore
type MockScanStore struct {
	mock.Mock
}

func (m *MockScanStore) CreateScan(ctx context.Context, scan *models.CompetitorScan) error {
	args := m.Called(ctx, scan)
	return args.Error(0)
}

func (m *MockScanStore) UpdateScan(ctx context.Context, scan *models.CompetitorScan) error {
	args := m.Called(ctx, scan)
	return args.Error(0)
}

func (m *MockScanStore) InsertComparisons(ctx context.Context, comparisons []models.CompetitorPrice) error {
	args := m.Called(ctx, comparisons)
	return args.Error(0)
}

func (m *MockScanStore) CatalogForMatching(ctx context.Context, limit int) ([]models.CatalogEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CatalogEntry), args.Error(1)
}

// MockExtractor is a mock implementation of ProductExtractor
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) ExtractProducts(ctx context.Context, pageURL string) ([]clients.CompetitorProduct, error) {
	args := m.Called(ctx, pageURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]clients.CompetitorProduct), args.Error(1)
}

// MockChat is a mock implementation of ChatCompleter
type MockChat struct {
	mock.Mock
}

func (m *MockChat) Chat(ctx context.Context, system, user string) (string, error) {
	args := m.Called(ctx, system, user)
	return args.String(0), args.Error(1)
}

func scanRouter(h *CompetitorHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/v1/competitor-scan", h.ScanCompetitor)
	return router
}

func postScan(t *testing.T, router *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/competitor-scan", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestScanCompetitorMissingURL(t *testing.T) {
	store := new(MockScanStore)
	handler := NewCompetitorHandler(store, new(MockExtractor), nil, nil, testLogger())

	w := postScan(t, scanRouter(handler), `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	store.AssertNotCalled(t, "CreateScan", mock.Anything, mock.Anything)
}

func TestScanCompetitorEmptyPageCompletesWithoutAI(t *testing.T) {
	store := new(MockScanStore)
	store.On("CreateScan", mock.Anything, mock.Anything).Return(nil)
	store.On("UpdateScan", mock.Anything, mock.MatchedBy(func(s *models.CompetitorScan) bool {
		return s.Status == models.ScanStatusCompleted && s.CompletedAt != nil
	})).Return(nil)

	extractor := new(MockExtractor)
	extractor.On("ExtractProducts", mock.Anything, "https://competitor.example").
		Return([]clients.CompetitorProduct{}, nil)

	llm := new(MockChat)
	handler := NewCompetitorHandler(store, extractor, llm, nil, testLogger())

	w := postScan(t, scanRouter(handler), `{"competitor_url":"competitor.example"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp models.CompetitorScanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 0, resp.ProductsFound)
	assert.Equal(t, 0, resp.Matches)

	llm.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything, mock.Anything)
	store.AssertExpectations(t)
}

func TestScanCompetitorScrapeFailureMarksScanFailed(t *testing.T) {
	store := new(MockScanStore)
	store.On("CreateScan", mock.Anything, mock.Anything).Return(nil)
	store.On("UpdateScan", mock.Anything, mock.MatchedBy(func(s *models.CompetitorScan) bool {
		return s.Status == models.ScanStatusFailed && s.ErrorMessage != nil
	})).Return(nil)

	extractor := new(MockExtractor)
	extractor.On("ExtractProducts", mock.Anything, mock.Anything).
		Return(nil, errors.New("scrape API unavailable"))

	handler := NewCompetitorHandler(store, extractor, nil, nil, testLogger())
	w := postScan(t, scanRouter(handler), `{"competitor_url":"https://competitor.example"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "SCAN_FAILED", resp.Error.Code)
	store.AssertExpectations(t)
}

func TestScanCompetitorFullMatchFlow(t *testing.T) {
	theirPrice := 649.0
	ourPrice := 799.0

	store := new(MockScanStore)
	store.On("CreateScan", mock.Anything, mock.Anything).Return(nil)
	store.On("CatalogForMatching", mock.Anything, localCatalogCap).
		Return([]models.CatalogEntry{{Name: "Gray Sofa", Price: ourPrice, Category: "Living Room"}}, nil)
	store.On("InsertComparisons", mock.Anything, mock.MatchedBy(func(rows []models.CompetitorPrice) bool {
		if len(rows) != 1 {
			return false
		}
		r := rows[0]
		return r.CompetitorProductName == "Cozy Gray Sofa" &&
			r.OurProductName != nil && *r.OurProductName == "Gray Sofa" &&
			r.PriceDifference != nil && *r.PriceDifference == 150.0 &&
			r.Recommendation != nil && *r.Recommendation == "lower_price"
	})).Return(nil)
	store.On("UpdateScan", mock.Anything, mock.MatchedBy(func(s *models.CompetitorScan) bool {
		return s.Status == models.ScanStatusCompleted && s.ProductsFound == 1 && s.MatchesFound == 1
	})).Return(nil)

	extractor := new(MockExtractor)
	extractor.On("ExtractProducts", mock.Anything, mock.Anything).
		Return([]clients.CompetitorProduct{{Name: "Cozy Gray Sofa", Price: &theirPrice}}, nil)

	llm := new(MockChat)
	llm.On("Chat", mock.Anything, mock.Anything, mock.Anything).
		Return(`{"matches":[{"competitor_name":"Cozy Gray Sofa","our_product_name":"Gray Sofa","our_price":799,"recommendation":"lower_price"}]}`, nil)

	handler := NewCompetitorHandler(store, extractor, llm, nil, testLogger())
	w := postScan(t, scanRouter(handler), `{"competitor_url":"https://competitor.example"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp models.CompetitorScanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.ProductsFound)
	assert.Equal(t, 1, resp.Matches)
	store.AssertExpectations(t)
}

func TestScanCompetitorUnparseableAIResponse(t *testing.T) {
	price := 200.0
	store := new(MockScanStore)
	store.On("CreateScan", mock.Anything, mock.Anything).Return(nil)
	store.On("CatalogForMatching", mock.Anything, localCatalogCap).
		Return([]models.CatalogEntry{{Name: "Oak Desk", Price: 250, Category: "Office"}}, nil)
	store.On("InsertComparisons", mock.Anything, mock.MatchedBy(func(rows []models.CompetitorPrice) bool {
		// The unmatched row still lands, without match fields.
		return len(rows) == 1 && rows[0].OurProductName == nil
	})).Return(nil)
	store.On("UpdateScan", mock.Anything, mock.MatchedBy(func(s *models.CompetitorScan) bool {
		return s.Status == models.ScanStatusCompleted && s.MatchesFound == 0
	})).Return(nil)

	extractor := new(MockExtractor)
	extractor.On("ExtractProducts", mock.Anything, mock.Anything).
		Return([]clients.CompetitorProduct{{Name: "Desk", Price: &price}}, nil)

	llm := new(MockChat)
	llm.On("Chat", mock.Anything, mock.Anything, mock.Anything).
		Return("Sorry, I could not find any confident matches.", nil)

	handler := NewCompetitorHandler(store, extractor, llm, nil, testLogger())
	w := postScan(t, scanRouter(handler), `{"competitor_url":"https://competitor.example"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp models.CompetitorScanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 0, resp.Matches)
	store.AssertExpectations(t)
}

func TestScanCompetitorWithoutAICredential(t *testing.T) {
	price := 99.0
	store := new(MockScanStore)
	store.On("CreateScan", mock.Anything, mock.Anything).Return(nil)
	store.On("InsertComparisons", mock.Anything, mock.Anything).Return(nil)
	store.On("UpdateScan", mock.Anything, mock.Anything).Return(nil)

	extractor := new(MockExtractor)
	extractor.On("ExtractProducts", mock.Anything, mock.Anything).
		Return([]clients.CompetitorProduct{{Name: "Lamp", Price: &price}}, nil)

	handler := NewCompetitorHandler(store, extractor, nil, nil, testLogger())
	w := postScan(t, scanRouter(handler), `{"competitor_url":"https://competitor.example"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	store.AssertNotCalled(t, "CatalogForMatching", mock.Anything, mock.Anything)
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://example.com", normalizeURL("example.com"))
	assert.Equal(t, "http://example.com", normalizeURL("http://example.com"))
}

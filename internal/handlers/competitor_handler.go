package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/houstoncardinal/home-source-evolve-sub000/internal/clients"
	"github.com/houstoncardinal/home-source-evolve-sub000/internal/matcher"
	"github.com/houstoncardinal/home-source-evolve-sub000/internal/models"
)

const (
	localCatalogCap      = 100
	competitorProductCap = 50
)

// ScanStore is the persistence surface of a competitor scan.
type ScanStore interface {
	CreateScan(ctx context.Context, scan *models.CompetitorScan) error
	UpdateScan(ctx context.Context, scan *models.CompetitorScan) error
	InsertComparisons(ctx context.Context, comparisons []models.CompetitorPrice) error
	CatalogForMatching(ctx context.Context, limit int) ([]models.CatalogEntry, error)
}

// ProductExtractor scrapes a competitor page into a product list.
type ProductExtractor interface {
	ExtractProducts(ctx context.Context, pageURL string) ([]clients.CompetitorProduct, error)
}

// ChatCompleter sends one prompt exchange to the AI matcher.
type ChatCompleter interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

// ScanEventPublisher announces finished scans. May be absent.
type ScanEventPublisher interface {
	PublishScanCompleted(ctx context.Context, scan *models.CompetitorScan)
}

// CompetitorHandler runs on-demand competitor pricing scans:
// scrape the competitor page, AI-match against our catalog, persist one
// comparison row per competitor product.
type CompetitorHandler struct {
	store   ScanStore
	scraper ProductExtractor
	llm     ChatCompleter // nil when no AI credential is configured
	events  ScanEventPublisher
	log     *logrus.Entry
}

func NewCompetitorHandler(store ScanStore, scraper ProductExtractor, llm ChatCompleter, events ScanEventPublisher, logger *logrus.Logger) *CompetitorHandler {
	return &CompetitorHandler{
		store:   store,
		scraper: scraper,
		llm:     llm,
		events:  events,
		log:     logger.WithField("component", "competitor-handler"),
	}
}

// ScanCompetitor handles POST /api/v1/competitor-scan.
func (h *CompetitorHandler) ScanCompetitor(c *gin.Context) {
	var req models.CompetitorScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success:   false,
			Error:     models.Error{Code: "VALIDATION_ERROR", Message: "competitor_url is required", Field: "competitor_url"},
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	ctx := c.Request.Context()
	scan := &models.CompetitorScan{
		CompetitorURL:  normalizeURL(req.CompetitorURL),
		CompetitorName: req.CompetitorName,
		Status:         models.ScanStatusScraping,
	}
	if err := h.store.CreateScan(ctx, scan); err != nil {
		h.internalError(c, err)
		return
	}

	products, err := h.scraper.ExtractProducts(ctx, scan.CompetitorURL)
	if err != nil {
		h.failScan(ctx, scan, err)
		h.internalError(c, err)
		return
	}

	scan.ProductsFound = len(products)
	if len(products) == 0 {
		h.completeScan(ctx, scan)
		c.JSON(http.StatusOK, models.CompetitorScanResponse{
			Success:       true,
			ScanID:        scan.ID,
			ProductsFound: 0,
			Matches:       0,
		})
		return
	}

	matches, err := h.matchProducts(ctx, products)
	if err != nil {
		h.failScan(ctx, scan, err)
		h.internalError(c, err)
		return
	}

	comparisons := buildComparisons(scan.ID, products, matches)
	if err := h.store.InsertComparisons(ctx, comparisons); err != nil {
		h.log.WithError(err).Warn("Comparison insert failed")
	}

	scan.MatchesFound = len(matches)
	h.completeScan(ctx, scan)

	c.JSON(http.StatusOK, models.CompetitorScanResponse{
		Success:       true,
		ScanID:        scan.ID,
		ProductsFound: scan.ProductsFound,
		Matches:       scan.MatchesFound,
	})
}

// matchProducts runs the AI matching step. Without an AI credential the step
// is skipped entirely; a response the matcher cannot parse degrades to zero
// matches rather than failing the scan.
func (h *CompetitorHandler) matchProducts(ctx context.Context, products []clients.CompetitorProduct) ([]matcher.Match, error) {
	if h.llm == nil {
		h.log.Debug("AI credential not configured, skipping match step")
		return nil, nil
	}

	catalog, err := h.store.CatalogForMatching(ctx, localCatalogCap)
	if err != nil {
		return nil, err
	}
	if len(catalog) == 0 {
		return nil, nil
	}

	capped := products
	if len(capped) > competitorProductCap {
		capped = capped[:competitorProductCap]
	}

	system, user := buildMatchPrompt(catalog, capped)
	raw, err := h.llm.Chat(ctx, system, user)
	if err != nil {
		return nil, err
	}

	matches, err := matcher.Parse(raw)
	if err != nil {
		if errors.Is(err, matcher.ErrUnparseable) {
			h.log.WithError(err).Warn("AI match response unparseable, treating as zero matches")
			return nil, nil
		}
		return nil, err
	}
	return matches, nil
}

func buildMatchPrompt(catalog []models.CatalogEntry, products []clients.CompetitorProduct) (system, user string) {
	system = "You match competitor furniture products against our catalog. " +
		"Answer with JSON only, shaped as {\"matches\": [{\"competitor_name\", \"our_product_name\", \"our_price\", \"recommendation\"}]}. " +
		"recommendation must be one of: " + strings.Join(matcher.Recommendations, ", ") + ". " +
		"Only include pairs that are plausibly the same product."

	ours, _ := json.Marshal(catalog)
	theirs, _ := json.Marshal(products)
	user = fmt.Sprintf("Our catalog:\n%s\n\nCompetitor products:\n%s", ours, theirs)
	return system, user
}

// buildComparisons emits one row per competitor product, matched or not.
// Price deltas are computed only when both sides have a price.
func buildComparisons(scanID uuid.UUID, products []clients.CompetitorProduct, matches []matcher.Match) []models.CompetitorPrice {
	byName := make(map[string]matcher.Match, len(matches))
	for _, m := range matches {
		byName[strings.ToLower(m.CompetitorName)] = m
	}

	comparisons := make([]models.CompetitorPrice, 0, len(products))
	for _, p := range products {
		row := models.CompetitorPrice{
			ScanID:                scanID,
			CompetitorProductName: p.Name,
			CompetitorPrice:       p.Price,
			CompetitorURL:         p.URL,
		}

		if m, ok := byName[strings.ToLower(p.Name)]; ok {
			name := m.OurProductName
			row.OurProductName = &name
			row.OurPrice = m.OurPrice
			if m.Recommendation != "" {
				rec := m.Recommendation
				row.Recommendation = &rec
			}
			if m.OurPrice != nil && p.Price != nil && *p.Price != 0 {
				diff := *m.OurPrice - *p.Price
				pct := diff / *p.Price * 100
				row.PriceDifference = &diff
				row.PercentageDifference = &pct
			}
		}
		comparisons = append(comparisons, row)
	}
	return comparisons
}

func (h *CompetitorHandler) completeScan(ctx context.Context, scan *models.CompetitorScan) {
	now := time.Now().UTC()
	scan.Status = models.ScanStatusCompleted
	scan.CompletedAt = &now
	if err := h.store.UpdateScan(ctx, scan); err != nil {
		h.log.WithError(err).Warn("Scan completion update failed")
	}
	if h.events != nil {
		h.events.PublishScanCompleted(ctx, scan)
	}
}

func (h *CompetitorHandler) failScan(ctx context.Context, scan *models.CompetitorScan, cause error) {
	msg := cause.Error()
	scan.Status = models.ScanStatusFailed
	scan.ErrorMessage = &msg
	if err := h.store.UpdateScan(ctx, scan); err != nil {
		h.log.WithError(err).Warn("Scan failure update failed")
	}
}

func (h *CompetitorHandler) internalError(c *gin.Context, err error) {
	h.log.WithError(err).Error("Competitor scan failed")
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Success:   false,
		Error:     models.Error{Code: "SCAN_FAILED", Message: err.Error()},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// normalizeURL prepends a scheme when the caller omitted one.
func normalizeURL(u string) string {
	if strings.Contains(u, "://") {
		return u
	}
	return "https://" + u
}

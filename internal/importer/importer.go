package importer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/houstoncardinal/home-source-evolve-sub000/internal/config"
	"github.com/houstoncardinal/home-source-evolve-sub000/internal/models"
	"github.com/houstoncardinal/home-source-evolve-sub000/internal/scraper"
)

// ErrNoProducts signals that every category crawl came back empty, which
// almost always means the source site's markup changed.
var ErrNoProducts = errors.New("no products found across any category")

// CategoryCrawler walks one category's listing pages.
type CategoryCrawler interface {
	CrawlCategory(ctx context.Context, cat config.CategoryPage) []scraper.ScrapedProduct
}

// DetailFetcher enriches one product from its detail page.
type DetailFetcher interface {
	FetchProductDetail(ctx context.Context, url string) (*scraper.ProductDetail, error)
}

// CatalogStore is the persistence surface the importer writes through.
type CatalogStore interface {
	// ReplaceCatalog wipes the product tables and bulk-inserts the new rows,
	// returning how many rows made it in.
	ReplaceCatalog(ctx context.Context, products []models.Product) (int, error)
	ProductIDsBySlug(ctx context.Context, slugs []string) (map[string]uuid.UUID, error)
	InsertImages(ctx context.Context, images []models.ProductImage) error
	InStockProducts(ctx context.Context, limit int) ([]models.Product, error)
	SetFeatured(ctx context.Context, id uuid.UUID) error
}

// Summary reports what an import run accomplished.
type Summary struct {
	Total       int
	Inserted    int
	Featured    int
	PerCategory map[string]int
}

// Importer orchestrates the full catalog refresh: crawl every category,
// de-duplicate globally, enrich details in small concurrent batches, then
// wipe and reinsert the catalog tables. Everything past the empty-crawl
// check logs and continues rather than aborting.
type Importer struct {
	cfg      config.CrawlConfig
	crawler  CategoryCrawler
	enricher DetailFetcher
	store    CatalogStore
	log      *logrus.Entry
}

func New(cfg config.CrawlConfig, crawler CategoryCrawler, enricher DetailFetcher, store CatalogStore, logger *logrus.Logger) *Importer {
	return &Importer{
		cfg:      cfg,
		crawler:  crawler,
		enricher: enricher,
		store:    store,
		log:      logger.WithField("component", "importer"),
	}
}

// Run executes one full import. It fails hard only when no category yielded
// any product; the wipe happens strictly after that check.
func (i *Importer) Run(ctx context.Context) (*Summary, error) {
	var scraped []scraper.ScrapedProduct
	for idx, cat := range i.cfg.Categories {
		found := i.crawler.CrawlCategory(ctx, cat)
		i.log.WithFields(logrus.Fields{
			"category": cat.Category,
			"path":     cat.Path,
			"products": len(found),
		}).Info("Category crawled")
		scraped = append(scraped, found...)

		if idx < len(i.cfg.Categories)-1 {
			if !sleepCtx(ctx, i.cfg.CategoryDelay) {
				break
			}
		}
	}

	unique := dedupeByStoreID(scraped)
	if len(unique) == 0 {
		return nil, ErrNoProducts
	}
	i.log.WithFields(logrus.Fields{
		"scraped": len(scraped),
		"unique":  len(unique),
	}).Info("Crawl finished")

	details := i.enrichAll(ctx, unique)

	rows := make([]models.Product, 0, len(unique))
	for idx, p := range unique {
		rows = append(rows, buildProduct(p, details[idx]))
	}

	inserted, err := i.store.ReplaceCatalog(ctx, rows)
	if err != nil {
		return nil, err
	}
	i.log.WithField("inserted", inserted).Info("Catalog replaced")

	i.insertImages(ctx, unique, details)
	featured := i.featureCategoryLeads(ctx)

	summary := &Summary{
		Total:       len(unique),
		Inserted:    inserted,
		Featured:    featured,
		PerCategory: countByCategory(unique),
	}
	i.log.WithFields(logrus.Fields{
		"total":       summary.Total,
		"inserted":    summary.Inserted,
		"featured":    summary.Featured,
		"perCategory": summary.PerCategory,
	}).Info("Import complete")
	return summary, nil
}

// dedupeByStoreID keeps the first occurrence of every store id across all
// categories, so a product listed twice keeps its earliest categorization.
func dedupeByStoreID(products []scraper.ScrapedProduct) []scraper.ScrapedProduct {
	seen := make(map[string]bool, len(products))
	unique := make([]scraper.ScrapedProduct, 0, len(products))
	for _, p := range products {
		if seen[p.StoreID] {
			continue
		}
		seen[p.StoreID] = true
		unique = append(unique, p)
	}
	return unique
}

// enrichAll fetches detail pages in small concurrent batches. The batch size
// and inter-batch delay bound the request rate toward the source site; a
// failed fetch just leaves that product without enrichment.
func (i *Importer) enrichAll(ctx context.Context, products []scraper.ScrapedProduct) []*scraper.ProductDetail {
	details := make([]*scraper.ProductDetail, len(products))
	batchSize := i.cfg.DetailBatchSize
	if batchSize <= 0 {
		batchSize = 5
	}

	for start := 0; start < len(products); start += batchSize {
		end := start + batchSize
		if end > len(products) {
			end = len(products)
		}

		var wg sync.WaitGroup
		for idx := start; idx < end; idx++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				detail, err := i.enricher.FetchProductDetail(ctx, products[idx].DetailURL)
				if err != nil {
					i.log.WithError(err).WithField("storeId", products[idx].StoreID).
						Debug("Detail fetch failed, using crawl-time data only")
					return
				}
				details[idx] = detail
			}(idx)
		}
		wg.Wait()

		if end < len(products) {
			if !sleepCtx(ctx, i.cfg.DetailBatchDelay) {
				break
			}
		}
	}
	return details
}

// buildProduct normalizes one scraped product plus its optional enrichment
// into an insertable row.
func buildProduct(p scraper.ScrapedProduct, detail *scraper.ProductDetail) models.Product {
	clean := CleanName(p.Name)
	brand := InferBrand(clean)

	category := p.Category
	if category == "New Arrivals" {
		category = InferCategory(clean)
	}

	price := 0.0 // 0 means "contact for price"
	description := FallbackDescription(clean, brand)
	var dimensions *string
	if detail != nil {
		if detail.Price != nil {
			price = *detail.Price
		}
		if detail.Description != "" {
			description = detail.Description
		}
		if detail.Dimensions != "" {
			d := detail.Dimensions
			dimensions = &d
		}
	}

	inStock := !p.SoldOut
	stockQuantity := 0
	if inStock {
		stockQuantity = 10 // placeholder, not a real inventory count
	}

	return models.Product{
		StoreID:       p.StoreID,
		Name:          clean,
		Slug:          ProductSlug(p.Name, p.StoreID),
		Category:      category,
		Subcategory:   p.Subcategory,
		Brand:         brand,
		Price:         price,
		InStock:       inStock,
		StockQuantity: stockQuantity,
		Featured:      false,
		Badge:         ExtractBadge(p.Name),
		Description:   description,
		Dimensions:    dimensions,
	}
}

// insertImages relinks image rows to the database-assigned product ids by
// re-querying slugs in batches. Products whose lookup failed are skipped.
func (i *Importer) insertImages(ctx context.Context, products []scraper.ScrapedProduct, details []*scraper.ProductDetail) {
	batchSize := i.cfg.InsertBatchSize
	if batchSize <= 0 {
		batchSize = 50
	}

	for start := 0; start < len(products); start += batchSize {
		end := start + batchSize
		if end > len(products) {
			end = len(products)
		}
		batch := products[start:end]

		slugs := make([]string, 0, len(batch))
		for _, p := range batch {
			slugs = append(slugs, ProductSlug(p.Name, p.StoreID))
		}
		ids, err := i.store.ProductIDsBySlug(ctx, slugs)
		if err != nil {
			i.log.WithError(err).Warn("Slug lookup failed for image batch, skipping")
			continue
		}

		var images []models.ProductImage
		for idx, p := range batch {
			productID, ok := ids[slugs[idx]]
			if !ok {
				continue
			}
			images = append(images, buildImageRows(productID, p, details[start+idx])...)
		}
		if len(images) == 0 {
			continue
		}
		if err := i.store.InsertImages(ctx, images); err != nil {
			i.log.WithError(err).Warn("Image batch insert failed, continuing")
		}
	}
}

// buildImageRows produces the primary image row plus up to five secondary
// rows from enrichment, in scrape order, skipping duplicates of the primary.
func buildImageRows(productID uuid.UUID, p scraper.ScrapedProduct, detail *scraper.ProductDetail) []models.ProductImage {
	clean := CleanName(p.Name)
	var rows []models.ProductImage
	if p.Image != "" {
		rows = append(rows, models.ProductImage{
			ProductID:    productID,
			URL:          p.Image,
			AltText:      clean,
			IsPrimary:    true,
			DisplayOrder: 1,
		})
	}
	if detail == nil {
		return rows
	}

	order := 2
	for _, img := range detail.AdditionalImages {
		if img == p.Image {
			continue
		}
		if order > 6 {
			break
		}
		rows = append(rows, models.ProductImage{
			ProductID:    productID,
			URL:          img,
			AltText:      clean,
			IsPrimary:    false,
			DisplayOrder: order,
		})
		order++
	}
	return rows
}

// featureCategoryLeads marks the first in-stock product seen per distinct
// category as featured, capped at the configured limit.
func (i *Importer) featureCategoryLeads(ctx context.Context) int {
	candidates, err := i.store.InStockProducts(ctx, i.cfg.FeaturedScanLimit)
	if err != nil {
		i.log.WithError(err).Warn("Featured candidate query failed, skipping featuring")
		return 0
	}

	featured := 0
	seenCategories := make(map[string]bool)
	for _, p := range candidates {
		if featured >= i.cfg.FeaturedLimit {
			break
		}
		if seenCategories[p.Category] {
			continue
		}
		seenCategories[p.Category] = true
		if err := i.store.SetFeatured(ctx, p.ID); err != nil {
			i.log.WithError(err).WithField("productId", p.ID).Warn("Feature update failed")
			continue
		}
		featured++
	}
	return featured
}

// sleepCtx waits out a politeness delay, returning false when the context
// was cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func countByCategory(products []scraper.ScrapedProduct) map[string]int {
	counts := make(map[string]int)
	for _, p := range products {
		counts[p.Category]++
	}
	return counts
}

package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/houstoncardinal/home-source-evolve-sub000/internal/config"
)

const crawlerUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// nextLinkPattern is the page-1-only heuristic for a "Next" pagination link.
var nextLinkPattern = regexp.MustCompile(`(?i)>\s*next\s*(?:&raquo;|»|<)`)

// Crawler walks the supplier's category listing pages and extracts products
// from each. Failures degrade to fewer products, never a hard error: a
// failing fetch ends that category's crawl with whatever was collected.
type Crawler struct {
	cfg       config.CrawlConfig
	client    *http.Client
	extractor *Extractor
	log       *logrus.Entry
}

func NewCrawler(cfg config.CrawlConfig, client *http.Client, extractor *Extractor, logger *logrus.Logger) *Crawler {
	return &Crawler{
		cfg:       cfg,
		client:    client,
		extractor: extractor,
		log:       logger.WithField("component", "crawler"),
	}
}

// CrawlCategory paginates one category up to the configured page cap,
// tagging every product with the category labels.
func (c *Crawler) CrawlCategory(ctx context.Context, cat config.CategoryPage) []ScrapedProduct {
	var products []ScrapedProduct

	for page := 1; page <= c.cfg.MaxPagesPerCategory; page++ {
		html, err := c.fetchPage(ctx, cat.Path, page)
		if err != nil {
			c.log.WithError(err).WithFields(logrus.Fields{
				"category": cat.Category,
				"page":     page,
			}).Warn("Page fetch failed, keeping partial category results")
			break
		}

		found := c.extractor.ExtractProducts(html)
		if len(found) == 0 {
			break
		}

		for _, p := range found {
			p.Category = cat.Category
			p.Subcategory = cat.Subcategory
			p.DetailURL = c.absoluteURL(p.DetailURL)
			p.Image = c.absoluteURL(p.Image)
			products = append(products, p)
		}

		c.log.WithFields(logrus.Fields{
			"category": cat.Category,
			"page":     page,
			"products": len(found),
		}).Debug("Category page crawled")

		if !hasNextPage(html, page) {
			break
		}
		if !sleepCtx(ctx, c.cfg.PageDelay) {
			break
		}
	}

	return products
}

func (c *Crawler) fetchPage(ctx context.Context, path string, page int) (string, error) {
	pageURL := c.cfg.SourceBaseURL + path
	if page > 1 {
		pageURL = fmt.Sprintf("%s?page=%d", pageURL, page)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", crawlerUserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", pageURL, err)
	}
	return string(body), nil
}

// absoluteURL resolves site-relative paths against the source base URL.
func (c *Crawler) absoluteURL(u string) string {
	if u == "" || strings.Contains(u, "://") {
		return u
	}
	if !strings.HasPrefix(u, "/") {
		u = "/" + u
	}
	return c.cfg.SourceBaseURL + u
}

// hasNextPage detects a further page either via the next page-number marker
// anywhere in the markup or, on page 1 only, a "Next" link text heuristic.
func hasNextPage(html string, page int) bool {
	if strings.Contains(html, fmt.Sprintf("page=%d", page+1)) {
		return true
	}
	return page == 1 && nextLinkPattern.MatchString(html)
}

// sleepCtx waits for the politeness delay, returning false if the context
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

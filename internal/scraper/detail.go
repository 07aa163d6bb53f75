package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

const (
	descriptionMaxLen     = 500
	descriptionMinFragLen = 20
	maxAdditionalImages   = 5
)

// descriptionSelectors are tried in order; fragments from all of them are
// concatenated. Short fragments are dropped as boilerplate.
var descriptionSelectors = []string{
	".product-description",
	"#description",
	".description",
	".product-details",
	"#tab-description",
	"[itemprop=description]",
}

// dimensionPattern matches free-text size strings like
// `72" x 36" x 30"H` or `84 x 38 in`. The match is kept raw, never
// decomposed into width/height/depth.
var dimensionPattern = regexp.MustCompile(`(?i)\d+(?:\.\d+)?\s*(?:["']|in(?:ch(?:es)?)?|cm|mm)?\s*[x×]\s*\d+(?:\.\d+)?\s*(?:["']|in(?:ch(?:es)?)?|cm|mm)?(?:\s*[x×]\s*\d+(?:\.\d+)?\s*(?:["']|in(?:ch(?:es)?)?|cm|mm)?)?\s*[LWHD]?`)

// pricePattern matches the first dollar amount on the page.
var pricePattern = regexp.MustCompile(`\$\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)`)

// Enricher fetches a product detail page and opportunistically mines
// description, dimensions, extra images and price out of it. Everything here
// is best effort over unstructured markup; a detail page with no price or no
// dimension string is normal, not an error.
type Enricher struct {
	client *http.Client
	log    *logrus.Entry
}

func NewEnricher(client *http.Client, logger *logrus.Logger) *Enricher {
	return &Enricher{
		client: client,
		log:    logger.WithField("component", "enricher"),
	}
}

// FetchProductDetail fetches and mines one detail page. Any fetch or parse
// failure returns a nil detail; the caller treats that as "use defaults".
func (e *Enricher) FetchProductDetail(ctx context.Context, pageURL string) (*ProductDetail, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build detail request: %w", err)
	}
	req.Header.Set("User-Agent", crawlerUserAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch detail page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch detail page: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse detail page: %w", err)
	}

	pageText := doc.Text()
	detail := &ProductDetail{
		Description:      extractDescription(doc),
		Dimensions:       strings.TrimSpace(dimensionPattern.FindString(pageText)),
		AdditionalImages: resolveImageURLs(pageURL, extractUploadImages(doc)),
	}
	if price, ok := extractPrice(pageText); ok {
		detail.Price = &price
	}
	return detail, nil
}

func extractDescription(doc *goquery.Document) string {
	var fragments []string
	for _, sel := range descriptionSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			text := strings.TrimSpace(whitespacePattern.ReplaceAllString(s.Text(), " "))
			if len(text) > descriptionMinFragLen {
				fragments = append(fragments, text)
			}
		})
	}
	description := strings.Join(fragments, " ")
	if len(description) > descriptionMaxLen {
		cut := descriptionMaxLen
		for cut > 0 && !utf8.RuneStart(description[cut]) {
			cut--
		}
		description = description[:cut]
	}
	return description
}

// extractUploadImages collects gallery images under the supplier uploads
// path, de-duplicated in encounter order and capped at maxAdditionalImages.
func extractUploadImages(doc *goquery.Document) []string {
	seen := make(map[string]bool)
	var images []string
	doc.Find(`img[src*="/uploads/"], img[data-src*="/uploads/"]`).EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src, ok := img.Attr("src")
		if !ok || !strings.Contains(src, "/uploads/") {
			src, _ = img.Attr("data-src")
		}
		src = stripCacheBuster(src)
		if src == "" || seen[src] {
			return true
		}
		seen[src] = true
		images = append(images, src)
		return len(images) < maxAdditionalImages
	})
	return images
}

// resolveImageURLs makes detail-page image srcs absolute against the page
// URL. Listing-page images come back absolute already; without this the
// duplicate-of-primary comparison downstream compares an absolute URL against
// a site-relative one and never matches.
func resolveImageURLs(pageURL string, images []string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return images
	}
	resolved := make([]string, 0, len(images))
	for _, img := range images {
		ref, err := url.Parse(img)
		if err != nil {
			resolved = append(resolved, img)
			continue
		}
		resolved = append(resolved, base.ResolveReference(ref).String())
	}
	return resolved
}

func extractPrice(text string) (float64, bool) {
	m := pricePattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	price, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil || price <= 0 {
		return 0, false
	}
	return price, true
}

package scraper

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

// detailHrefPattern matches supplier detail-page links. Group 1 is the
// supplier-assigned product id, group 2 the URL-embedded name slug.
var detailHrefPattern = regexp.MustCompile(`/products/(\d+)/([^"'\s<>]+?)\.html`)

// fallbackImagePattern finds an image tag in the raw HTML following a link
// when structured parsing failed.
var fallbackImagePattern = regexp.MustCompile(`<img[^>]+(?:src|data-src)=["']([^"']+)["']`)

var whitespacePattern = regexp.MustCompile(`\s+`)

// ProductPageParser extracts product fragments from a listing page's markup.
// The extractor runs the structured parser first and falls back to a raw
// regex scan when it yields nothing.
type ProductPageParser interface {
	Parse(html string) []ScrapedProduct
}

// Extractor turns listing-page HTML into de-duplicated product fragments.
type Extractor struct {
	primary  ProductPageParser
	fallback ProductPageParser
	log      *logrus.Entry
}

func NewExtractor(logger *logrus.Logger) *Extractor {
	return &Extractor{
		primary:  documentParser{},
		fallback: regexParser{},
		log:      logger.WithField("component", "extractor"),
	}
}

// ExtractProducts parses a listing page. When the structured pass finds
// nothing (markup changed, parser choked) it retries with the regex parser,
// which cannot detect sold-out state and always reports in stock.
func (e *Extractor) ExtractProducts(html string) []ScrapedProduct {
	products := e.primary.Parse(html)
	if len(products) > 0 {
		return products
	}

	products = e.fallback.Parse(html)
	if len(products) > 0 {
		e.log.WithField("products", len(products)).
			Warn("Structured parse found nothing, regex fallback used; stock state defaults to in-stock")
	}
	return products
}

// documentParser is the structured goquery strategy.
type documentParser struct{}

func (documentParser) Parse(html string) []ScrapedProduct {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var products []ScrapedProduct

	doc.Find(`a[href*="/products/"]`).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		m := detailHrefPattern.FindStringSubmatch(href)
		if m == nil {
			return
		}
		storeID := m[1]
		if seen[storeID] {
			return
		}

		name := nameFromSlug(m[2])
		if label := productLabel(a); label != "" {
			name = label
		}
		image := firstImage(a)
		if name == "" && image == "" {
			return
		}

		seen[storeID] = true
		products = append(products, ScrapedProduct{
			StoreID:   storeID,
			Name:      name,
			Image:     image,
			SoldOut:   soldOutNear(a),
			DetailURL: href,
		})
	})

	return products
}

// regexParser is the raw-markup fallback. It recovers id, name, image and
// detail URL only; sold-out detection is not attempted here.
type regexParser struct{}

func (regexParser) Parse(html string) []ScrapedProduct {
	seen := make(map[string]bool)
	var products []ScrapedProduct

	for _, loc := range detailHrefPattern.FindAllStringSubmatchIndex(html, -1) {
		storeID := html[loc[2]:loc[3]]
		if seen[storeID] {
			continue
		}

		name := nameFromSlug(html[loc[4]:loc[5]])
		image := ""
		windowEnd := loc[1] + 800
		if windowEnd > len(html) {
			windowEnd = len(html)
		}
		if im := fallbackImagePattern.FindStringSubmatch(html[loc[1]:windowEnd]); im != nil {
			image = stripCacheBuster(im[1])
		}
		if name == "" && image == "" {
			continue
		}

		seen[storeID] = true
		products = append(products, ScrapedProduct{
			StoreID:   storeID,
			Name:      name,
			Image:     image,
			DetailURL: html[loc[0]:loc[1]],
		})
	}

	return products
}

// nameFromSlug recovers a readable name from the URL slug. The supplier
// percent-escapes commas, ampersands and slashes into the slug, so the
// decoded characters come back literally in the name.
func nameFromSlug(slug string) string {
	decoded, err := url.QueryUnescape(slug)
	if err != nil {
		decoded = slug
	}
	name := strings.ReplaceAll(decoded, "-", " ")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(name, " "))
}

// productLabel prefers an in-page product name text node over the slug name.
func productLabel(a *goquery.Selection) string {
	label := strings.TrimSpace(a.Find(".product-name, .product-title, .name, h3, h4").First().Text())
	if label == "" {
		label = strings.TrimSpace(a.Text())
	}
	label = whitespacePattern.ReplaceAllString(label, " ")
	if len(label) < 3 || strings.Contains(label, "://") {
		return ""
	}
	return label
}

// firstImage resolves the primary image from the first img descendant,
// preferring src, then common lazy-load attributes.
func firstImage(a *goquery.Selection) string {
	img := a.Find("img").First()
	if img.Length() == 0 {
		return ""
	}
	for _, attr := range []string{"src", "data-src", "data-lazy-src", "data-original"} {
		if v, ok := img.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return stripCacheBuster(v)
		}
	}
	return ""
}

// soldOutNear scans the nearest ancestor blocks for a sold-out phrase. The
// climb stops once an ancestor holds more than one detail link, since that is
// the product grid rather than this product's card.
func soldOutNear(a *goquery.Selection) bool {
	sel := a.Parent()
	for i := 0; i < 4 && sel.Length() > 0; i++ {
		if sel.Find(`a[href*="/products/"]`).Length() > 1 {
			return false
		}
		if strings.Contains(strings.ToLower(sel.Text()), "sold out") {
			return true
		}
		sel = sel.Parent()
	}
	return false
}

// stripCacheBuster drops query-string cache suffixes from image URLs.
func stripCacheBuster(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		return u[:i]
	}
	return u
}

package scraper

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExtractor() *Extractor {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewExtractor(logger)
}

const listingFixture = `
<html><body>
<div class="product-grid">
  <div class="product-card">
    <a href="/products/101/blue-velvet-sofa.html">
      <img src="/uploads/101-main.jpg?v=3" />
      <span class="product-name">Blue Velvet Sofa</span>
    </a>
  </div>
  <div class="product-card">
    <a href="/products/102/red-accent-chair.html">
      <img data-src="/uploads/102-main.jpg" />
      <h3>Red Accent Chair</h3>
    </a>
    <span>Sold Out</span>
  </div>
  <div class="product-card">
    <a href="/products/101/blue-velvet-sofa.html">duplicate link</a>
  </div>
</div>
</body></html>`

func TestExtractProducts(t *testing.T) {
	products := newTestExtractor().ExtractProducts(listingFixture)
	require.Len(t, products, 2)

	assert.Equal(t, "101", products[0].StoreID)
	assert.Equal(t, "Blue Velvet Sofa", products[0].Name)
	assert.Equal(t, "/uploads/101-main.jpg", products[0].Image, "cache buster should be stripped")
	assert.Equal(t, "/products/101/blue-velvet-sofa.html", products[0].DetailURL)
	assert.False(t, products[0].SoldOut)

	assert.Equal(t, "102", products[1].StoreID)
	assert.Equal(t, "Red Accent Chair", products[1].Name)
	assert.Equal(t, "/uploads/102-main.jpg", products[1].Image, "lazy-load attribute should be used")
	assert.True(t, products[1].SoldOut)
}

func TestExtractProductsSoldOutDoesNotLeakAcrossCards(t *testing.T) {
	// The sold-out marker sits next to product 102 only; 101 shares the same
	// grid ancestor and must not inherit it.
	products := newTestExtractor().ExtractProducts(listingFixture)
	require.Len(t, products, 2)
	assert.False(t, products[0].SoldOut)
}

func TestExtractProductsDecodesSlugEscapes(t *testing.T) {
	html := `<a href="/products/205/Loveseat%2C-Gray-%26-White.html"></a>`
	products := newTestExtractor().ExtractProducts(html)
	require.Len(t, products, 1)
	assert.Equal(t, "Loveseat, Gray & White", products[0].Name)
}

func TestExtractProductsRegexFallback(t *testing.T) {
	// Malformed markup goquery yields no anchors for, but the regex still
	// recovers the link and the nearby image.
	html := `<<<garbage
	href="/products/310/oak-dining-table.html"
	<img src="/uploads/310.jpg?cache=1">
	more garbage`

	products := newTestExtractor().ExtractProducts(html)
	require.Len(t, products, 1)
	assert.Equal(t, "310", products[0].StoreID)
	assert.Equal(t, "oak dining table", products[0].Name)
	assert.Equal(t, "/uploads/310.jpg", products[0].Image)
	assert.False(t, products[0].SoldOut, "fallback cannot detect stock state")
}

func TestExtractProductsEmptyPage(t *testing.T) {
	assert.Empty(t, newTestExtractor().ExtractProducts("<html><body>no products here</body></html>"))
}

func TestNameFromSlug(t *testing.T) {
	assert.Equal(t, "queen bed frame", nameFromSlug("queen-bed-frame"))
	assert.Equal(t, "Sofa & Loveseat", nameFromSlug("Sofa-%26-Loveseat"))
}

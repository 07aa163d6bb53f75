package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/houstoncardinal/home-source-evolve-sub000/internal/config"
)

func newTestCrawler(baseURL string, maxPages int) *Crawler {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	cfg := config.CrawlConfig{
		SourceBaseURL:       baseURL,
		MaxPagesPerCategory: maxPages,
	}
	return NewCrawler(cfg, &http.Client{}, NewExtractor(logger), logger)
}

func productAnchor(id int) string {
	return fmt.Sprintf(`<a href="/products/%d/item-%d.html"><img src="/uploads/%d.jpg"></a>`, id, id, id)
}

func TestCrawlCategoryPaginates(t *testing.T) {
	pages := map[string]string{
		"":       productAnchor(1) + `<a href="/sofas.html?page=2">2</a>`,
		"page=2": productAnchor(2),
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(pages[r.URL.RawQuery]))
	}))
	t.Cleanup(srv.Close)

	sub := "Sofas"
	cat := config.CategoryPage{Path: "/sofas.html", Category: "Living Room", Subcategory: &sub}
	products := newTestCrawler(srv.URL, 10).CrawlCategory(context.Background(), cat)

	require.Len(t, products, 2)
	assert.Equal(t, "1", products[0].StoreID)
	assert.Equal(t, "2", products[1].StoreID)
	assert.Equal(t, "Living Room", products[0].Category)
	assert.Equal(t, &sub, products[0].Subcategory)
	assert.Equal(t, srv.URL+"/products/1/item-1.html", products[0].DetailURL, "detail URL should be absolutized")
	assert.Equal(t, srv.URL+"/uploads/1.jpg", products[0].Image)
}

func TestCrawlCategoryStopsWithoutNextSignal(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		_, _ = w.Write([]byte(productAnchor(1)))
	}))
	t.Cleanup(srv.Close)

	products := newTestCrawler(srv.URL, 10).CrawlCategory(context.Background(), config.CategoryPage{Path: "/beds.html", Category: "Bedroom"})

	assert.Len(t, products, 1)
	assert.Equal(t, 1, requests)
}

func TestCrawlCategoryKeepsPartialOnFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery == "page=2" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(productAnchor(1) + `<a href="?page=2">Next</a>`))
	}))
	t.Cleanup(srv.Close)

	products := newTestCrawler(srv.URL, 10).CrawlCategory(context.Background(), config.CategoryPage{Path: "/desks.html", Category: "Office"})

	assert.Len(t, products, 1, "page 1 results survive a page 2 failure")
}

func TestCrawlCategoryStopsOnEmptyPage(t *testing.T) {
	pages := map[string]string{
		"":       productAnchor(1) + `page=2`,
		"page=2": `<html><body>nothing here</body></html>`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(pages[r.URL.RawQuery]))
	}))
	t.Cleanup(srv.Close)

	products := newTestCrawler(srv.URL, 10).CrawlCategory(context.Background(), config.CategoryPage{Path: "/rugs.html", Category: "Accessories"})

	assert.Len(t, products, 1)
}

func TestCrawlCategoryHonorsPageCap(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		page := requests
		// Every page advertises the one after it.
		_, _ = w.Write([]byte(productAnchor(page) + fmt.Sprintf("page=%d", page+1)))
	}))
	t.Cleanup(srv.Close)

	products := newTestCrawler(srv.URL, 3).CrawlCategory(context.Background(), config.CategoryPage{Path: "/lighting.html", Category: "Accessories"})

	assert.Len(t, products, 3)
	assert.Equal(t, 3, requests)
}

func TestHasNextPage(t *testing.T) {
	assert.True(t, hasNextPage(`<a href="?page=2">2</a>`, 1))
	assert.True(t, hasNextPage(`<a href="?p=x">Next »</a>`, 1))
	assert.False(t, hasNextPage(`<a href="?p=x">Next »</a>`, 2), "next-link heuristic only applies to page 1")
	assert.False(t, hasNextPage(`no pagination`, 1))
}

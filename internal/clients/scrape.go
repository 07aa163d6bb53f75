package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// CompetitorProduct is one product extracted from a competitor page by the
// scrape API.
type CompetitorProduct struct {
	Name  string   `json:"name"`
	Price *float64 `json:"price,omitempty"`
	URL   *string  `json:"url,omitempty"`
}

// ScrapeClient calls a hosted scrape API that renders a page and extracts a
// structured product list from it.
type ScrapeClient struct {
	apiURL string
	apiKey string
	client *http.Client
}

func NewScrapeClient(apiURL, apiKey string) *ScrapeClient {
	return &ScrapeClient{
		apiURL: apiURL,
		apiKey: apiKey,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

type scrapeRequest struct {
	URL     string        `json:"url"`
	Formats []string      `json:"formats"`
	Extract scrapeExtract `json:"extract"`
}

type scrapeExtract struct {
	Prompt string          `json:"prompt"`
	Schema json.RawMessage `json:"schema"`
}

type scrapeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    struct {
		Extract struct {
			Products []CompetitorProduct `json:"products"`
		} `json:"extract"`
	} `json:"data"`
}

// productSchema asks the scrape API for name/price/url triples.
var productSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"products": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"name": {"type": "string"},
					"price": {"type": "number"},
					"url": {"type": "string"}
				},
				"required": ["name"]
			}
		}
	},
	"required": ["products"]
}`)

// ExtractProducts scrapes the competitor page and returns the extracted
// product list. An empty list is a valid outcome, not an error.
func (c *ScrapeClient) ExtractProducts(ctx context.Context, pageURL string) ([]CompetitorProduct, error) {
	payload, err := json.Marshal(scrapeRequest{
		URL:     pageURL,
		Formats: []string{"extract"},
		Extract: scrapeExtract{
			Prompt: "Extract every product listed on this page with its name, numeric price and product page URL.",
			Schema: productSchema,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal scrape request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build scrape request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call scrape API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read scrape response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scrape API status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var parsed scrapeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode scrape response: %w", err)
	}
	if !parsed.Success {
		return nil, fmt.Errorf("scrape API error: %s", parsed.Error)
	}
	return parsed.Data.Extract.Products, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

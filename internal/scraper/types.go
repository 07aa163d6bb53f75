package scraper

// ScrapedProduct is one product discovered on a supplier listing page. It only
// lives for the duration of a single import run.
type ScrapedProduct struct {
	StoreID     string
	Name        string
	Image       string
	SoldOut     bool
	DetailURL   string
	Category    string
	Subcategory *string
}

// ProductDetail is the optional enrichment mined from a product detail page.
// Absent fields stay at their zero value and are simply omitted downstream.
type ProductDetail struct {
	Description      string
	Dimensions       string
	AdditionalImages []string
	Price            *float64
}

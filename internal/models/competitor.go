package models

import (
	"time"

	"github.com/google/uuid"
)

// ScanStatus represents the lifecycle state of a competitor scan.
type ScanStatus string

const (
	ScanStatusScraping  ScanStatus = "scraping"
	ScanStatusCompleted ScanStatus = "completed"
	ScanStatusFailed    ScanStatus = "failed"
)

// CompetitorScan is one on-demand competitor pricing run.
type CompetitorScan struct {
	ID             uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CompetitorURL  string     `json:"competitorUrl" gorm:"column:competitor_url;not null"`
	CompetitorName *string    `json:"competitorName,omitempty" gorm:"column:competitor_name"`
	Status         ScanStatus `json:"status" gorm:"not null;default:'scraping';index"`
	ProductsFound  int        `json:"productsFound" gorm:"column:products_found;not null;default:0"`
	MatchesFound   int        `json:"matchesFound" gorm:"column:matches_found;not null;default:0"`
	ErrorMessage   *string    `json:"errorMessage,omitempty" gorm:"column:error_message"`
	CompletedAt    *time.Time `json:"completedAt,omitempty" gorm:"column:completed_at"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// CompetitorPrice is one competitor product observed during a scan, with the
// AI match against our catalog when one was produced.
type CompetitorPrice struct {
	ID                    uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ScanID                uuid.UUID `json:"scanId" gorm:"type:uuid;not null;index"`
	CompetitorProductName string    `json:"competitorProductName" gorm:"column:competitor_product_name;not null"`
	CompetitorPrice       *float64  `json:"competitorPrice,omitempty" gorm:"column:competitor_price"`
	CompetitorURL         *string   `json:"competitorUrl,omitempty" gorm:"column:competitor_url"`
	OurProductName        *string   `json:"ourProductName,omitempty" gorm:"column:our_product_name"`
	OurPrice              *float64  `json:"ourPrice,omitempty" gorm:"column:our_price"`
	PriceDifference       *float64  `json:"priceDifference,omitempty" gorm:"column:price_difference"`
	PercentageDifference  *float64  `json:"percentageDifference,omitempty" gorm:"column:percentage_difference"`
	Recommendation        *string   `json:"recommendation,omitempty"`
	CreatedAt             time.Time `json:"createdAt"`
}

// TableName returns the table name for the CompetitorScan model
func (CompetitorScan) TableName() string {
	return "competitor_scans"
}

// TableName returns the table name for the CompetitorPrice model
func (CompetitorPrice) TableName() string {
	return "competitor_prices"
}

// CompetitorScanRequest is the scan endpoint request body.
type CompetitorScanRequest struct {
	CompetitorURL  string  `json:"competitor_url" binding:"required"`
	CompetitorName *string `json:"competitor_name,omitempty"`
}

// CompetitorScanResponse is the scan endpoint success payload.
type CompetitorScanResponse struct {
	Success       bool      `json:"success"`
	ScanID        uuid.UUID `json:"scan_id"`
	ProductsFound int       `json:"products_found"`
	Matches       int       `json:"matches"`
}

// CatalogEntry is the minimal product view sent to the AI matcher.
type CatalogEntry struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Product represents a catalog product row populated by the supplier import.
type Product struct {
	ID            uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	StoreID       string         `json:"storeId" gorm:"column:store_id;not null;index"`
	Name          string         `json:"name" gorm:"not null"`
	Slug          string         `json:"slug" gorm:"not null;uniqueIndex:idx_products_slug"`
	Category      string         `json:"category" gorm:"not null;index:idx_products_category"`
	Subcategory   *string        `json:"subcategory,omitempty"`
	Brand         string         `json:"brand" gorm:"not null"`
	Price         float64        `json:"price" gorm:"not null;default:0"`
	InStock       bool           `json:"inStock" gorm:"column:in_stock;not null;default:true"`
	StockQuantity int            `json:"stockQuantity" gorm:"column:stock_quantity;not null;default:0"`
	Featured      bool           `json:"featured" gorm:"not null;default:false;index"`
	Badge         *string        `json:"badge,omitempty"`
	Description   string         `json:"description"`
	Dimensions    *string        `json:"dimensions,omitempty"`
	Images        []ProductImage `json:"images,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// ProductImage represents a product gallery image. display_order 1 is the
// primary image, 2..6 are secondary images in scrape order.
type ProductImage struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ProductID    uuid.UUID `json:"productId" gorm:"type:uuid;not null;index"`
	URL          string    `json:"url" gorm:"not null"`
	AltText      string    `json:"altText" gorm:"column:alt_text"`
	IsPrimary    bool      `json:"isPrimary" gorm:"column:is_primary;not null;default:false"`
	DisplayOrder int       `json:"displayOrder" gorm:"column:display_order;not null;default:1"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ProductColor is owned by the storefront admin; the importer only wipes it.
type ProductColor struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ProductID uuid.UUID `json:"productId" gorm:"type:uuid;not null;index"`
	Name      string    `json:"name" gorm:"not null"`
	HexCode   *string   `json:"hexCode,omitempty" gorm:"column:hex_code"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProductTexture is owned by the storefront admin; the importer only wipes it.
type ProductTexture struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ProductID uuid.UUID `json:"productId" gorm:"type:uuid;not null;index"`
	Name      string    `json:"name" gorm:"not null"`
	ImageURL  *string   `json:"imageUrl,omitempty" gorm:"column:image_url"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProductVariation is owned by the storefront admin; the importer only wipes it.
type ProductVariation struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ProductID uuid.UUID `json:"productId" gorm:"type:uuid;not null;index"`
	Name      string    `json:"name" gorm:"not null"`
	Price     *float64  `json:"price,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProductFeature is owned by the storefront admin; the importer only wipes it.
type ProductFeature struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ProductID uuid.UUID `json:"productId" gorm:"type:uuid;not null;index"`
	Feature   string    `json:"feature" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName returns the table name for the Product model
func (Product) TableName() string {
	return "products"
}

// TableName returns the table name for the ProductImage model
func (ProductImage) TableName() string {
	return "product_images"
}

// TableName returns the table name for the ProductColor model
func (ProductColor) TableName() string {
	return "product_colors"
}

// TableName returns the table name for the ProductTexture model
func (ProductTexture) TableName() string {
	return "product_textures"
}

// TableName returns the table name for the ProductVariation model
func (ProductVariation) TableName() string {
	return "product_variations"
}

// TableName returns the table name for the ProductFeature model
func (ProductFeature) TableName() string {
	return "product_features"
}

// ProductFilter carries storefront list query parameters.
type ProductFilter struct {
	Category string
	InStock  *bool
	Featured *bool
	Page     int
	Limit    int
}

// CategoryCount is a category name with its product count.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// Response types
type PaginationInfo struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"totalPages"`
	HasNext     bool  `json:"hasNext"`
	HasPrevious bool  `json:"hasPrevious"`
}

type ProductResponse struct {
	Success bool     `json:"success"`
	Data    *Product `json:"data"`
	Message *string  `json:"message,omitempty"`
}

type ProductListResponse struct {
	Success    bool            `json:"success"`
	Data       []Product       `json:"data"`
	Pagination *PaginationInfo `json:"pagination"`
}

type CategoryListResponse struct {
	Success bool            `json:"success"`
	Data    []CategoryCount `json:"data"`
}

type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     Error  `json:"error"`
	Timestamp string `json:"timestamp,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// ExportProductsRequest represents a back-office export request.
type ExportProductsRequest struct {
	Format   string  `json:"format" binding:"required"` // csv, xlsx
	Category *string `json:"category,omitempty"`
}

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/houstoncardinal/home-source-evolve-sub000/internal/models"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// CatalogReader is the read-only surface the public storefront consumes.
type CatalogReader interface {
	ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, int64, error)
	GetProductBySlug(ctx context.Context, slug string) (*models.Product, error)
	ListCategories(ctx context.Context) ([]models.CategoryCount, error)
	ExportProducts(ctx context.Context, category *string) ([]models.Product, error)
}

// StorefrontHandler serves the public catalog browsing endpoints.
type StorefrontHandler struct {
	repo CatalogReader
	log  *logrus.Entry
}

func NewStorefrontHandler(repo CatalogReader, logger *logrus.Logger) *StorefrontHandler {
	return &StorefrontHandler{
		repo: repo,
		log:  logger.WithField("component", "storefront-handler"),
	}
}

// GetProducts handles GET /api/v1/storefront/products.
func (h *StorefrontHandler) GetProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	filter := models.ProductFilter{
		Category: c.Query("category"),
		Page:     page,
		Limit:    limit,
	}
	if v := c.Query("inStock"); v != "" {
		inStock := v == "true"
		filter.InStock = &inStock
	}
	if v := c.Query("featured"); v != "" {
		featured := v == "true"
		filter.Featured = &featured
	}

	products, total, err := h.repo.ListProducts(c.Request.Context(), filter)
	if err != nil {
		h.log.WithError(err).Error("Product list query failed")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success:   false,
			Error:     models.Error{Code: "QUERY_FAILED", Message: "failed to list products"},
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	c.JSON(http.StatusOK, models.ProductListResponse{
		Success: true,
		Data:    products,
		Pagination: &models.PaginationInfo{
			Page:        page,
			Limit:       limit,
			Total:       total,
			TotalPages:  totalPages,
			HasNext:     page < totalPages,
			HasPrevious: page > 1,
		},
	})
}

// GetProduct handles GET /api/v1/storefront/products/:slug.
func (h *StorefrontHandler) GetProduct(c *gin.Context) {
	slug := c.Param("slug")

	product, err := h.repo.GetProductBySlug(c.Request.Context(), slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success:   false,
				Error:     models.Error{Code: "NOT_FOUND", Message: "product not found"},
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			})
			return
		}
		h.log.WithError(err).WithField("slug", slug).Error("Product query failed")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success:   false,
			Error:     models.Error{Code: "QUERY_FAILED", Message: "failed to load product"},
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	c.JSON(http.StatusOK, models.ProductResponse{Success: true, Data: product})
}

// GetCategories handles GET /api/v1/storefront/categories.
func (h *StorefrontHandler) GetCategories(c *gin.Context) {
	categories, err := h.repo.ListCategories(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error("Category list query failed")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success:   false,
			Error:     models.Error{Code: "QUERY_FAILED", Message: "failed to list categories"},
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	c.JSON(http.StatusOK, models.CategoryListResponse{Success: true, Data: categories})
}

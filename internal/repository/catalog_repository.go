package repository

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/houstoncardinal/home-source-evolve-sub000/internal/models"
)

// Cache TTL constants
const (
	ProductCacheTTL     = 5 * time.Minute
	ProductListCacheTTL = 2 * time.Minute
	CategoryCacheTTL    = 30 * time.Minute

	cacheKeyPrefix = "homesource:catalog:"
)

// wipeOrder lists the child tables deleted before products so foreign-key
// constraints hold during the destructive reset.
var wipeOrder = []interface{}{
	&models.ProductFeature{},
	&models.ProductVariation{},
	&models.ProductTexture{},
	&models.ProductColor{},
	&models.ProductImage{},
	&models.Product{},
}

type CatalogRepository struct {
	db              *gorm.DB
	redis           *redis.Client
	insertBatchSize int
	log             *logrus.Entry
}

func NewCatalogRepository(db *gorm.DB, redisClient *redis.Client, insertBatchSize int, logger *logrus.Logger) *CatalogRepository {
	if insertBatchSize <= 0 {
		insertBatchSize = 50
	}
	return &CatalogRepository{
		db:              db,
		redis:           redisClient,
		insertBatchSize: insertBatchSize,
		log:             logger.WithField("component", "catalog-repository"),
	}
}

// ReplaceCatalog wipes every product table in dependency order and bulk
// inserts the new rows, all inside one transaction so a crash mid-run rolls
// back to the previous catalog instead of leaving it half-populated. Inserts
// go in batches; a failing batch degrades to per-row inserts so one bad row
// cannot block the rest. Every statement that may fail runs under its own
// savepoint: Postgres aborts the whole transaction on any statement error,
// so without the rollback-to the skip-and-continue branches would poison
// every statement after the first failure.
func (r *CatalogRepository) ReplaceCatalog(ctx context.Context, products []models.Product) (int, error) {
	inserted := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, table := range wipeOrder {
			sp := fmt.Sprintf("wipe_%d", i)
			tx.SavePoint(sp)
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(table).Error; err != nil {
				tx.RollbackTo(sp)
				r.log.WithError(err).WithField("table", fmt.Sprintf("%T", table)).
					Warn("Table wipe failed, continuing")
			}
		}

		for start := 0; start < len(products); start += r.insertBatchSize {
			end := start + r.insertBatchSize
			if end > len(products) {
				end = len(products)
			}
			batch := products[start:end]

			batchSP := fmt.Sprintf("batch_%d", start)
			tx.SavePoint(batchSP)
			if err := tx.Create(&batch).Error; err != nil {
				tx.RollbackTo(batchSP)
				r.log.WithError(err).WithFields(logrus.Fields{
					"from": start,
					"to":   end,
				}).Warn("Batch insert failed, retrying rows individually")
				for idx := range batch {
					row := batch[idx]
					rowSP := fmt.Sprintf("row_%d", start+idx)
					tx.SavePoint(rowSP)
					if err := tx.Create(&row).Error; err != nil {
						tx.RollbackTo(rowSP)
						r.log.WithError(err).WithField("storeId", row.StoreID).
							Warn("Row insert failed, skipping")
						continue
					}
					inserted++
				}
				continue
			}
			inserted += len(batch)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("replace catalog: %w", err)
	}

	r.invalidateCatalogCaches(ctx)
	return inserted, nil
}

// ProductIDsBySlug resolves database-assigned ids for the given slugs.
// Missing slugs are simply absent from the result map.
func (r *CatalogRepository) ProductIDsBySlug(ctx context.Context, slugs []string) (map[string]uuid.UUID, error) {
	var rows []struct {
		ID   uuid.UUID
		Slug string
	}
	if err := r.db.WithContext(ctx).Model(&models.Product{}).
		Select("id", "slug").
		Where("slug IN ?", slugs).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("lookup product ids by slug: %w", err)
	}

	ids := make(map[string]uuid.UUID, len(rows))
	for _, row := range rows {
		ids[row.Slug] = row.ID
	}
	return ids, nil
}

func (r *CatalogRepository) InsertImages(ctx context.Context, images []models.ProductImage) error {
	if len(images) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&images).Error; err != nil {
		return fmt.Errorf("insert product images: %w", err)
	}
	return nil
}

// InStockProducts returns up to limit in-stock products in creation order,
// the candidate pool for featuring.
func (r *CatalogRepository) InStockProducts(ctx context.Context, limit int) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).
		Where("in_stock = ?", true).
		Order("created_at ASC").
		Limit(limit).
		Find(&products).Error; err != nil {
		return nil, fmt.Errorf("query in-stock products: %w", err)
	}
	return products, nil
}

func (r *CatalogRepository) SetFeatured(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		Update("featured", true).Error; err != nil {
		return fmt.Errorf("set featured: %w", err)
	}
	return nil
}

// Storefront reads

// ListProducts returns a filtered, paginated product page with cache-aside.
func (r *CatalogRepository) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, int64, error) {
	type cached struct {
		Products []models.Product `json:"products"`
		Total    int64            `json:"total"`
	}

	cacheKey := listCacheKey("products:list", filter)
	if r.redis != nil {
		if val, err := r.redis.Get(ctx, cacheKey).Result(); err == nil {
			var c cached
			if err := json.Unmarshal([]byte(val), &c); err == nil {
				return c.Products, c.Total, nil
			}
		}
	}

	query := r.db.WithContext(ctx).Model(&models.Product{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.InStock != nil {
		query = query.Where("in_stock = ?", *filter.InStock)
	}
	if filter.Featured != nil {
		query = query.Where("featured = ?", *filter.Featured)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	var products []models.Product
	offset := (filter.Page - 1) * filter.Limit
	if err := query.Preload("Images").
		Order("created_at DESC").
		Offset(offset).
		Limit(filter.Limit).
		Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}

	if r.redis != nil {
		if data, err := json.Marshal(cached{Products: products, Total: total}); err == nil {
			r.redis.Set(ctx, cacheKey, data, ProductListCacheTTL)
		}
	}
	return products, total, nil
}

func (r *CatalogRepository) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	cacheKey := cacheKeyPrefix + "product:" + slug
	if r.redis != nil {
		if val, err := r.redis.Get(ctx, cacheKey).Result(); err == nil {
			var product models.Product
			if err := json.Unmarshal([]byte(val), &product); err == nil {
				return &product, nil
			}
		}
	}

	var product models.Product
	if err := r.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC")
		}).
		Where("slug = ?", slug).
		First(&product).Error; err != nil {
		return nil, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(product); err == nil {
			r.redis.Set(ctx, cacheKey, data, ProductCacheTTL)
		}
	}
	return &product, nil
}

func (r *CatalogRepository) ListCategories(ctx context.Context) ([]models.CategoryCount, error) {
	cacheKey := cacheKeyPrefix + "categories"
	if r.redis != nil {
		if val, err := r.redis.Get(ctx, cacheKey).Result(); err == nil {
			var categories []models.CategoryCount
			if err := json.Unmarshal([]byte(val), &categories); err == nil {
				return categories, nil
			}
		}
	}

	var categories []models.CategoryCount
	if err := r.db.WithContext(ctx).Model(&models.Product{}).
		Select("category", "COUNT(*) AS count").
		Group("category").
		Order("category ASC").
		Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	if r.redis != nil {
		if data, err := json.Marshal(categories); err == nil {
			r.redis.Set(ctx, cacheKey, data, CategoryCacheTTL)
		}
	}
	return categories, nil
}

// ExportProducts returns the full catalog (optionally one category) for the
// back-office export surface.
func (r *CatalogRepository) ExportProducts(ctx context.Context, category *string) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{}).Order("category ASC, name ASC")
	if category != nil && *category != "" {
		query = query.Where("category = ?", *category)
	}
	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("export products: %w", err)
	}
	return products, nil
}

// Competitor pricing

// CatalogForMatching returns the minimal product view sent to the AI
// matcher, capped at limit.
func (r *CatalogRepository) CatalogForMatching(ctx context.Context, limit int) ([]models.CatalogEntry, error) {
	var entries []models.CatalogEntry
	if err := r.db.WithContext(ctx).Model(&models.Product{}).
		Select("name", "price", "category").
		Order("created_at ASC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("load catalog for matching: %w", err)
	}
	return entries, nil
}

func (r *CatalogRepository) CreateScan(ctx context.Context, scan *models.CompetitorScan) error {
	if err := r.db.WithContext(ctx).Create(scan).Error; err != nil {
		return fmt.Errorf("create competitor scan: %w", err)
	}
	return nil
}

func (r *CatalogRepository) UpdateScan(ctx context.Context, scan *models.CompetitorScan) error {
	if err := r.db.WithContext(ctx).Save(scan).Error; err != nil {
		return fmt.Errorf("update competitor scan: %w", err)
	}
	return nil
}

func (r *CatalogRepository) InsertComparisons(ctx context.Context, comparisons []models.CompetitorPrice) error {
	if len(comparisons) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&comparisons).Error; err != nil {
		return fmt.Errorf("insert competitor prices: %w", err)
	}
	return nil
}

// listCacheKey creates a deterministic cache key for list queries.
func listCacheKey(prefix string, params interface{}) string {
	data, _ := json.Marshal(params)
	hash := md5.Sum(data)
	return fmt.Sprintf("%s%s:%s", cacheKeyPrefix, prefix, hex.EncodeToString(hash[:]))
}

// invalidateCatalogCaches drops every cached read after an import run.
func (r *CatalogRepository) invalidateCatalogCaches(ctx context.Context) {
	if r.redis == nil {
		return
	}
	iter := r.redis.Scan(ctx, 0, cacheKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := r.redis.Del(ctx, iter.Val()).Err(); err != nil {
			r.log.WithError(err).Debug("Cache key delete failed")
		}
	}
	if err := iter.Err(); err != nil {
		r.log.WithError(err).Debug("Cache invalidation scan failed")
	}
}

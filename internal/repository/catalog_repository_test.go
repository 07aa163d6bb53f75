//go:build integration

package repository

import (
	"context"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/houstoncardinal/home-source-evolve-sub000/internal/models"
)

// CatalogRepositoryTestSuite exercises the repository against a real
// Postgres instance. Run with: go test -tags integration ./internal/repository/
type CatalogRepositoryTestSuite struct {
	suite.Suite
	db   *gorm.DB
	repo *CatalogRepository
}

func (s *CatalogRepositoryTestSuite) SetupSuite() {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		dsn = "host=localhost user=postgres password=postgres dbname=catalog_test port=5432 sslmode=disable"
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		s.T().Fatalf("Failed to connect to database: %v", err)
	}
	s.db = db

	err = s.db.AutoMigrate(
		&models.Product{},
		&models.ProductImage{},
		&models.ProductColor{},
		&models.ProductTexture{},
		&models.ProductVariation{},
		&models.ProductFeature{},
		&models.CompetitorScan{},
		&models.CompetitorPrice{},
	)
	if err != nil {
		s.T().Fatalf("Failed to run migrations: %v", err)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	s.repo = NewCatalogRepository(s.db, nil, 50, logger)
}

func (s *CatalogRepositoryTestSuite) SetupTest() {
	for _, table := range wipeOrder {
		s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(table)
	}
}

func (s *CatalogRepositoryTestSuite) TestReplaceCatalogWipesPreviousRows() {
	ctx := context.Background()

	_, err := s.repo.ReplaceCatalog(ctx, []models.Product{
		{StoreID: "1", Name: "Old Sofa", Slug: "old-sofa-1", Category: "Living Room", Brand: "Home Source"},
	})
	s.Require().NoError(err)

	inserted, err := s.repo.ReplaceCatalog(ctx, []models.Product{
		{StoreID: "2", Name: "New Sofa", Slug: "new-sofa-2", Category: "Living Room", Brand: "Home Source"},
		{StoreID: "3", Name: "New Bed", Slug: "new-bed-3", Category: "Bedroom", Brand: "Home Source"},
	})
	s.Require().NoError(err)
	s.Equal(2, inserted)

	var count int64
	s.db.Model(&models.Product{}).Count(&count)
	s.Equal(int64(2), count)

	_, err = s.repo.GetProductBySlug(ctx, "old-sofa-1")
	s.ErrorIs(err, gorm.ErrRecordNotFound)
}

func (s *CatalogRepositoryTestSuite) TestReplaceCatalogSkipsConflictingRows() {
	ctx := context.Background()

	inserted, err := s.repo.ReplaceCatalog(ctx, []models.Product{
		{StoreID: "1", Name: "Sofa", Slug: "dup-slug", Category: "Living Room", Brand: "Home Source"},
		{StoreID: "2", Name: "Chair", Slug: "dup-slug", Category: "Living Room", Brand: "Home Source"},
		{StoreID: "3", Name: "Bed", Slug: "unique-slug", Category: "Bedroom", Brand: "Home Source"},
	})
	s.Require().NoError(err, "a conflicting row degrades to a skip, not a failure")
	s.Equal(2, inserted)

	// The surviving rows must actually commit: on Postgres a failed statement
	// aborts the transaction unless it ran under a savepoint, which would turn
	// the per-row retries into no-ops and roll everything back.
	var count int64
	s.db.Model(&models.Product{}).Count(&count)
	s.Equal(int64(2), count)

	ids, err := s.repo.ProductIDsBySlug(ctx, []string{"dup-slug", "unique-slug"})
	s.Require().NoError(err)
	s.Len(ids, 2)
}

func (s *CatalogRepositoryTestSuite) TestReplaceCatalogBatchAfterConflictStillInserts() {
	ctx := context.Background()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	repo := NewCatalogRepository(s.db, nil, 2, logger)

	// First batch fails on the slug collision; the second batch runs after
	// the failure and must still land.
	inserted, err := repo.ReplaceCatalog(ctx, []models.Product{
		{StoreID: "1", Name: "Sofa", Slug: "dup-slug", Category: "Living Room", Brand: "Home Source"},
		{StoreID: "2", Name: "Chair", Slug: "dup-slug", Category: "Living Room", Brand: "Home Source"},
		{StoreID: "3", Name: "Bed", Slug: "bed-3", Category: "Bedroom", Brand: "Home Source"},
		{StoreID: "4", Name: "Desk", Slug: "desk-4", Category: "Office", Brand: "Home Source"},
	})
	s.Require().NoError(err)
	s.Equal(3, inserted)

	var count int64
	s.db.Model(&models.Product{}).Count(&count)
	s.Equal(int64(3), count)
}

func (s *CatalogRepositoryTestSuite) TestImageRelinkRoundTrip() {
	ctx := context.Background()

	_, err := s.repo.ReplaceCatalog(ctx, []models.Product{
		{StoreID: "5", Name: "Tan Sofa", Slug: "tan-sofa-5", Category: "Living Room", Brand: "Home Source", InStock: true},
	})
	s.Require().NoError(err)

	ids, err := s.repo.ProductIDsBySlug(ctx, []string{"tan-sofa-5", "never-existed"})
	s.Require().NoError(err)
	s.Len(ids, 1)

	productID := ids["tan-sofa-5"]
	err = s.repo.InsertImages(ctx, []models.ProductImage{
		{ProductID: productID, URL: "http://src/uploads/5.jpg", IsPrimary: true, DisplayOrder: 1},
	})
	s.Require().NoError(err)

	product, err := s.repo.GetProductBySlug(ctx, "tan-sofa-5")
	s.Require().NoError(err)
	s.Len(product.Images, 1)
	s.True(product.Images[0].IsPrimary)
}

func (s *CatalogRepositoryTestSuite) TestListProductsFiltersAndCounts() {
	ctx := context.Background()

	_, err := s.repo.ReplaceCatalog(ctx, []models.Product{
		{StoreID: "1", Name: "Sofa", Slug: "sofa-1", Category: "Living Room", Brand: "Home Source", InStock: true},
		{StoreID: "2", Name: "Bed", Slug: "bed-2", Category: "Bedroom", Brand: "Home Source", InStock: false},
	})
	s.Require().NoError(err)

	inStock := true
	products, total, err := s.repo.ListProducts(ctx, models.ProductFilter{InStock: &inStock, Page: 1, Limit: 20})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Len(products, 1)
	s.Equal("Sofa", products[0].Name)

	categories, err := s.repo.ListCategories(ctx)
	s.Require().NoError(err)
	s.Len(categories, 2)
}

func (s *CatalogRepositoryTestSuite) TestScanLifecycle() {
	ctx := context.Background()

	scan := &models.CompetitorScan{CompetitorURL: "https://competitor.example", Status: models.ScanStatusScraping}
	s.Require().NoError(s.repo.CreateScan(ctx, scan))
	s.NotEqual("", scan.ID.String())

	scan.Status = models.ScanStatusCompleted
	scan.ProductsFound = 3
	s.Require().NoError(s.repo.UpdateScan(ctx, scan))

	price := 649.0
	s.Require().NoError(s.repo.InsertComparisons(ctx, []models.CompetitorPrice{
		{ScanID: scan.ID, CompetitorProductName: "Cozy Sofa", CompetitorPrice: &price},
	}))

	var count int64
	s.db.Model(&models.CompetitorPrice{}).Where("scan_id = ?", scan.ID).Count(&count)
	s.Equal(int64(1), count)
}

func TestCatalogRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(CatalogRepositoryTestSuite))
}

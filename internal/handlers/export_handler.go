package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/houstoncardinal/home-source-evolve-sub000/internal/models"
)

var exportColumns = []string{
	"Name", "Slug", "Category", "Subcategory", "Brand", "Price",
	"In Stock", "Stock Quantity", "Featured", "Badge", "Dimensions", "Store ID",
}

// ExportHandler streams the catalog as CSV or XLSX for the back office.
type ExportHandler struct {
	repo CatalogReader
	log  *logrus.Entry
}

func NewExportHandler(repo CatalogReader, logger *logrus.Logger) *ExportHandler {
	return &ExportHandler{
		repo: repo,
		log:  logger.WithField("component", "export-handler"),
	}
}

// ExportProducts handles POST /api/v1/products/export.
func (h *ExportHandler) ExportProducts(c *gin.Context) {
	var req models.ExportProductsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success:   false,
			Error:     models.Error{Code: "VALIDATION_ERROR", Message: "format is required (csv or xlsx)", Field: "format"},
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	products, err := h.repo.ExportProducts(c.Request.Context(), req.Category)
	if err != nil {
		h.log.WithError(err).Error("Export query failed")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success:   false,
			Error:     models.Error{Code: "EXPORT_FAILED", Message: "failed to export products"},
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	switch req.Format {
	case "csv":
		h.writeCSV(c, products)
	case "xlsx":
		h.writeXLSX(c, products)
	default:
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success:   false,
			Error:     models.Error{Code: "VALIDATION_ERROR", Message: "unsupported format: " + req.Format, Field: "format"},
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func (h *ExportHandler) writeCSV(c *gin.Context, products []models.Product) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=catalog_export.csv")

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write(exportColumns)
	for _, p := range products {
		writer.Write(exportRow(p))
	}
}

func (h *ExportHandler) writeXLSX(c *gin.Context, products []models.Product) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Catalog"
	f.SetSheetName("Sheet1", sheetName)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	for i, col := range exportColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, col)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, p := range products {
		for colIdx, value := range exportRow(p) {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=catalog_export.xlsx")
	if err := f.Write(c.Writer); err != nil {
		h.log.WithError(err).Error("XLSX write failed")
	}
}

func exportRow(p models.Product) []string {
	return []string{
		p.Name,
		p.Slug,
		p.Category,
		strOrEmpty(p.Subcategory),
		p.Brand,
		fmt.Sprintf("%.2f", p.Price),
		strconv.FormatBool(p.InStock),
		strconv.Itoa(p.StockQuantity),
		strconv.FormatBool(p.Featured),
		strOrEmpty(p.Badge),
		strOrEmpty(p.Dimensions),
		p.StoreID,
	}
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

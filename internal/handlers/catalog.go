package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/digistore/internal/models"
	"github.com/example/digistore/internal/utils"
)

// CatalogHandler serves the public product catalog.
type CatalogHandler struct {
	db *gorm.DB
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(db *gorm.DB) *CatalogHandler {
	return &CatalogHandler{db: db}
}

// ListProducts returns paginated active products, optionally filtered by type.
func (h *CatalogHandler) ListProducts(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)

	query := h.db.Model(&models.Product{}).Where("is_active = ?", true)
	if productType := c.Query("type"); productType != "" {
		if productType != models.ProductTypeTemplate && productType != models.ProductTypeTool {
			return fiber.NewError(fiber.StatusBadRequest, "unknown product type")
		}
		query = query.Where("product_type = ?", productType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var products []models.Product
	if err := query.Limit(pg.Limit).Offset(pg.Offset).Order("created_at desc").
		Find(&products).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    products,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// GetProduct returns a single active product by slug.
func (h *CatalogHandler) GetProduct(c *fiber.Ctx) error {
	slug := c.Params("slug")

	var product models.Product
	if err := h.db.Where("slug = ? AND is_active = ?", slug, true).First(&product).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "product not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": product})
}

package models

import "gorm.io/datatypes"

// Product types sold by the storefront.
const (
	ProductTypeTemplate = "template"
	ProductTypeTool     = "tool"
)

// Product is a storefront item: a hosted site template or a downloadable
// digital tool.
type Product struct {
	BaseModel
	Name        string  `gorm:"not null" json:"name"`
	Slug        string  `gorm:"uniqueIndex;not null" json:"slug"`
	ProductType string  `gorm:"index;not null" json:"product_type"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Currency    string  `gorm:"default:NGN" json:"currency"`
	PreviewURL  string  `json:"preview_url"`
	IsActive    bool    `gorm:"default:true;index" json:"is_active"`
	// FileLinks holds the downloadable bundle for tools; copied onto the
	// delivery at fulfillment time.
	FileLinks datatypes.JSON `json:"-"`
}

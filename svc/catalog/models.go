package catalog

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// ProductStatus represents the status of a product
type ProductStatus string

const (
	ProductStatusAvailable  ProductStatus = "available"
	ProductStatusOutOfStock ProductStatus = "out_of_stock"
	ProductStatusArchived   ProductStatus = "archived"
)

// Value implements driver.Valuer interface for database storage
func (ps ProductStatus) Value() (driver.Value, error) {
	return string(ps), nil
}

// Scan implements sql.Scanner interface for database retrieval
func (ps *ProductStatus) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	if str, ok := value.(string); ok {
		*ps = ProductStatus(str)
		return nil
	}
	return fmt.Errorf("cannot scan %T into ProductStatus", value)
}

// IsValid checks if the status is one of the known values
func (ps ProductStatus) IsValid() bool {
	switch ps {
	case ProductStatusAvailable, ProductStatusOutOfStock, ProductStatusArchived:
		return true
	}
	return false
}

// Material represents the primary material of a jewelry piece
type Material string

const (
	MaterialGold     Material = "gold"
	MaterialSilver   Material = "silver"
	MaterialPlatinum Material = "platinum"
	MaterialDiamond  Material = "diamond"
	MaterialPearl    Material = "pearl"
	MaterialGemstone Material = "gemstone"
	MaterialOther    Material = "other"
)

// Value implements driver.Valuer interface for database storage
func (m Material) Value() (driver.Value, error) {
	return string(m), nil
}

// Scan implements sql.Scanner interface for database retrieval
func (m *Material) Scan(value interface{}) error {
	if value == nil {
		*m = MaterialOther
		return nil
	}
	if str, ok := value.(string); ok {
		*m = Material(str)
		return nil
	}
	return fmt.Errorf("cannot scan %T into Material", value)
}

// IsValid checks if the material is one of the known values
func (m Material) IsValid() bool {
	switch m {
	case MaterialGold, MaterialSilver, MaterialPlatinum, MaterialDiamond,
		MaterialPearl, MaterialGemstone, MaterialOther:
		return true
	}
	return false
}

// MediaKind represents the type of media
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
	MediaKindFile  MediaKind = "file"
)

// Value implements driver.Valuer interface for database storage
func (mk MediaKind) Value() (driver.Value, error) {
	return string(mk), nil
}

// Scan implements sql.Scanner interface for database retrieval
func (mk *MediaKind) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	if str, ok := value.(string); ok {
		*mk = MediaKind(str)
		return nil
	}
	return fmt.Errorf("cannot scan %T into MediaKind", value)
}

// Category represents a node in the three-level category hierarchy
// (main category, sub category, base category).
type Category struct {
	ID        int64     `json:"id" db:"id"`
	NameEn    string    `json:"name_en" db:"name_en"`
	NameUr    string    `json:"name_ur" db:"name_ur"`
	NameAr    string    `json:"name_ar" db:"name_ar"`
	Slug      string    `json:"slug" db:"slug"`
	Level     int       `json:"level" db:"level"`
	ParentID  *int64    `json:"parent_id" db:"parent_id"`
	SortOrder int       `json:"sort_order" db:"sort_order"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Name returns the category name for the requested language,
// falling back to English.
func (c Category) Name(lang string) string {
	switch lang {
	case "ur":
		if c.NameUr != "" {
			return c.NameUr
		}
	case "ar":
		if c.NameAr != "" {
			return c.NameAr
		}
	}
	return c.NameEn
}

// Product represents a jewelry product in the catalog
type Product struct {
	ID            int64         `json:"id" db:"id"`
	NameEn        string        `json:"name_en" db:"name_en"`
	NameUr        string        `json:"name_ur" db:"name_ur"`
	NameAr        string        `json:"name_ar" db:"name_ar"`
	Slug          string        `json:"slug" db:"slug"`
	DescriptionEn *string       `json:"description_en" db:"description_en"`
	DescriptionUr *string       `json:"description_ur" db:"description_ur"`
	DescriptionAr *string       `json:"description_ar" db:"description_ar"`
	CategoryID    int64         `json:"category_id" db:"category_id"`
	Material      Material      `json:"material" db:"material"`
	Karat         *int          `json:"karat" db:"karat"`
	WeightGrams   *float64      `json:"weight_grams" db:"weight_grams"`
	PriceNet      float64       `json:"price_net" db:"price_net"`
	StockQty      int           `json:"stock_qty" db:"stock_qty"`
	LowStockAt    int           `json:"low_stock_threshold" db:"low_stock_threshold"`
	Status        ProductStatus `json:"status" db:"status"`
	Featured      bool          `json:"featured" db:"featured"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`

	// Related entities (loaded separately)
	Media []Media `json:"media,omitempty"`
}

// Name returns the product name for the requested language,
// falling back to English.
func (p Product) Name(lang string) string {
	switch lang {
	case "ur":
		if p.NameUr != "" {
			return p.NameUr
		}
	case "ar":
		if p.NameAr != "" {
			return p.NameAr
		}
	}
	return p.NameEn
}

// IsLowStock returns true if the current stock is at or below the threshold
func (p Product) IsLowStock() bool {
	return p.StockQty <= p.LowStockAt
}

// IsOutOfStock returns true if the stock quantity is zero
func (p Product) IsOutOfStock() bool {
	return p.StockQty == 0
}

// GetPriceGross calculates the gross price including VAT
func (p Product) GetPriceGross(vatRate float64) float64 {
	return p.PriceNet * (1 + vatRate)
}

// IsAvailableForPurchase returns true if the product can be added to a cart
func (p Product) IsAvailableForPurchase() bool {
	return p.Status == ProductStatusAvailable && p.StockQty > 0
}

// Media represents media files associated with products
type Media struct {
	ID               int64      `json:"id" db:"id"`
	ProductID        int64      `json:"product_id" db:"product_id"`
	Kind             MediaKind  `json:"kind" db:"kind"`
	GCSPath          string     `json:"gcs_path" db:"gcs_path"`
	ThumbPath        *string    `json:"thumb_path" db:"thumb_path"`
	WatermarkApplied bool       `json:"watermark_applied" db:"watermark_applied"`
	FileSize         *int64     `json:"file_size" db:"file_size"`
	MimeType         *string    `json:"mime_type" db:"mime_type"`
	OriginalFilename *string    `json:"original_filename" db:"original_filename"`
	ArchivedAt       *time.Time `json:"archived_at" db:"archived_at"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// IsArchived returns true if the media is archived
func (m Media) IsArchived() bool {
	return m.ArchivedAt != nil
}

// ProductWithDetails represents a complete product with all its details
type ProductWithDetails struct {
	Product
	Media []Media `json:"media"`
}

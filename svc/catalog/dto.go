package catalog

import (
	"strings"
	"time"

	"encore.app/pkg/categorytree"
	"encore.app/pkg/errs"
)

// ProductsListRequest represents the request to list products with filters
type ProductsListRequest struct {
	CategoryID  int64   `query:"category_id"` // Filter by category (includes descendants)
	MaterialStr string  `query:"material"`    // Filter by material (gold/silver/...)
	StatusStr   string  `query:"status"`      // Filter by product status
	Q           string  `query:"q"`           // Search query (names, descriptions)
	PriceMin    float64 `query:"price_min"`   // Minimum price filter (0 for no filter)
	PriceMax    float64 `query:"price_max"`   // Maximum price filter (0 for no filter)
	Featured    bool    `query:"featured"`    // Only featured products
	Page        int     `query:"page"`        // Page number (default: 1)
	Limit       int     `query:"limit"`       // Items per page (default: 20, max: 100)
	SortStr     string  `query:"sort"`        // Sort order: "newest", "oldest", "price_asc", "price_desc"
	Lang        string  `query:"lang"`        // Display language: ar (default), en, ur
}

// Validate validates the products list request and converts string parameters
func (req *ProductsListRequest) Validate() error {
	// Set default values
	if req.Page <= 0 {
		req.Page = 1
	}

	if req.Limit <= 0 {
		req.Limit = 20
	} else if req.Limit > 100 {
		req.Limit = 100
	}

	if req.Lang == "" {
		req.Lang = "ar"
	}
	if req.Lang != "ar" && req.Lang != "en" && req.Lang != "ur" {
		return errs.New(errs.InvalidArgument, "lang يجب أن يكون: ar, en, ur")
	}

	// Validate material filter
	if req.MaterialStr != "" && !Material(req.MaterialStr).IsValid() {
		return errs.New(errs.InvalidArgument, "قيمة المادة غير صالحة")
	}

	// Validate status filter
	if req.StatusStr != "" && !ProductStatus(req.StatusStr).IsValid() {
		return errs.New(errs.InvalidArgument, "قيمة الحالة غير صالحة")
	}

	// Validate price range
	if req.PriceMin < 0 {
		return errs.New(errs.InvalidArgument, "price_min يجب ألا يكون سالبًا")
	}

	if req.PriceMax < 0 {
		return errs.New(errs.InvalidArgument, "price_max يجب ألا يكون سالبًا")
	}

	if req.PriceMin > 0 && req.PriceMax > 0 && req.PriceMin > req.PriceMax {
		return errs.New(errs.InvalidArgument, "price_min لا يمكن أن يكون أكبر من price_max")
	}

	// Validate sort parameter
	if req.SortStr != "" {
		validSorts := []string{"newest", "oldest", "price_asc", "price_desc"}
		valid := false
		for _, sort := range validSorts {
			if req.SortStr == sort {
				valid = true
				break
			}
		}
		if !valid {
			return errs.New(errs.InvalidArgument, "sort يجب أن يكون: newest, oldest, price_asc, price_desc")
		}
	}

	return nil
}

// GetCategoryID returns pointer to CategoryID, or nil if zero
func (req *ProductsListRequest) GetCategoryID() *int64 {
	if req.CategoryID <= 0 {
		return nil
	}
	return &req.CategoryID
}

// GetMaterial returns the Material from string, or nil if empty
func (req *ProductsListRequest) GetMaterial() *Material {
	if req.MaterialStr == "" {
		return nil
	}
	material := Material(req.MaterialStr)
	return &material
}

// GetStatus returns the ProductStatus from string, or nil if empty
func (req *ProductsListRequest) GetStatus() *ProductStatus {
	if req.StatusStr == "" {
		return nil
	}
	productStatus := ProductStatus(req.StatusStr)
	return &productStatus
}

// GetPriceMin returns pointer to PriceMin, or nil if zero
func (req *ProductsListRequest) GetPriceMin() *float64 {
	if req.PriceMin <= 0 {
		return nil
	}
	return &req.PriceMin
}

// GetPriceMax returns pointer to PriceMax, or nil if zero
func (req *ProductsListRequest) GetPriceMax() *float64 {
	if req.PriceMax <= 0 {
		return nil
	}
	return &req.PriceMax
}

// GetSort returns pointer to Sort, or nil if empty
func (req *ProductsListRequest) GetSort() *string {
	if req.SortStr == "" {
		return nil
	}
	return &req.SortStr
}

// GetQ returns pointer to Q, or nil if empty
func (req *ProductsListRequest) GetQ() *string {
	if req.Q == "" {
		return nil
	}
	return &req.Q
}

// ProductsListResponse represents the response for listing products
type ProductsListResponse struct {
	Products   []ProductSummary `json:"products"`
	Pagination PaginationMeta   `json:"pagination"`
}

// ProductSummary represents a product summary for listings
type ProductSummary struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"` // Resolved per requested language
	NameEn      string        `json:"name_en"`
	NameUr      string        `json:"name_ur"`
	NameAr      string        `json:"name_ar"`
	Slug        string        `json:"slug"`
	CategoryID  int64         `json:"category_id"`
	Material    Material      `json:"material"`
	Karat       *int          `json:"karat,omitempty"`
	WeightGrams *float64      `json:"weight_grams,omitempty"`
	PriceNet    float64       `json:"price_net"`
	PriceGross  float64       `json:"price_gross"` // Calculated with current VAT
	StockQty    int           `json:"stock_qty"`
	Status      ProductStatus `json:"status"`
	Featured    bool          `json:"featured"`
	CreatedAt   time.Time     `json:"created_at"`

	// Media info
	ThumbnailURL *string `json:"thumbnail_url,omitempty"`
	MediaCount   int     `json:"media_count"`
}

// PaginationMeta represents pagination metadata
type PaginationMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// ProductDetailResponse represents the response for getting product details
type ProductDetailResponse struct {
	Product ProductWithDetails `json:"product"`
}

// CreateProductRequest represents a request to create a new product
type CreateProductRequest struct {
	NameEn        string   `json:"name_en"`
	NameUr        string   `json:"name_ur"`
	NameAr        string   `json:"name_ar"`
	DescriptionEn *string  `json:"description_en,omitempty"`
	DescriptionUr *string  `json:"description_ur,omitempty"`
	DescriptionAr *string  `json:"description_ar,omitempty"`
	CategoryID    int64    `json:"category_id"`
	Material      Material `json:"material"`
	Karat         *int     `json:"karat,omitempty"`
	WeightGrams   *float64 `json:"weight_grams,omitempty"`
	PriceNet      float64  `json:"price_net"`
	StockQty      int      `json:"stock_qty"`
	LowStockAt    *int     `json:"low_stock_threshold,omitempty"`
	Featured      bool     `json:"featured"`
}

// Validate validates the create product request
func (req *CreateProductRequest) Validate() error {
	if strings.TrimSpace(req.NameEn) == "" {
		return errs.New(errs.InvalidArgument, "name_en مطلوب")
	}

	if req.CategoryID <= 0 {
		return errs.New(errs.InvalidArgument, "category_id مطلوب")
	}

	if !req.Material.IsValid() {
		return errs.New(errs.InvalidArgument, "قيمة المادة غير صالحة")
	}

	if req.Karat != nil && (*req.Karat < 1 || *req.Karat > 24) {
		return errs.New(errs.InvalidArgument, "karat يجب أن يكون بين 1 و 24")
	}

	if req.WeightGrams != nil && *req.WeightGrams <= 0 {
		return errs.New(errs.InvalidArgument, "weight_grams يجب أن يكون موجبًا")
	}

	if req.PriceNet < 0 {
		return errs.New(errs.InvalidArgument, "price_net يجب ألا يكون سالبًا")
	}

	if req.StockQty < 0 {
		return errs.New(errs.InvalidArgument, "stock_qty يجب ألا يكون سالبًا")
	}

	if req.LowStockAt != nil && *req.LowStockAt <= 0 {
		return errs.New(errs.InvalidArgument, "low_stock_threshold يجب أن يكون موجبًا")
	}

	return nil
}

// CreateProductResponse represents the response after creating a product
type CreateProductResponse struct {
	Product ProductWithDetails `json:"product"`
}

// UpdateProductRequest represents a request to update an existing product
type UpdateProductRequest struct {
	NameEn        *string        `json:"name_en,omitempty"`
	NameUr        *string        `json:"name_ur,omitempty"`
	NameAr        *string        `json:"name_ar,omitempty"`
	DescriptionEn **string       `json:"description_en,omitempty"` // Double pointer to allow setting to null
	DescriptionUr **string       `json:"description_ur,omitempty"`
	DescriptionAr **string       `json:"description_ar,omitempty"`
	CategoryID    *int64         `json:"category_id,omitempty"`
	Material      *Material      `json:"material,omitempty"`
	Karat         *int           `json:"karat,omitempty"`
	WeightGrams   *float64       `json:"weight_grams,omitempty"`
	PriceNet      *float64       `json:"price_net,omitempty"`
	StockQty      *int           `json:"stock_qty,omitempty"`
	LowStockAt    *int           `json:"low_stock_threshold,omitempty"`
	Status        *ProductStatus `json:"status,omitempty"`
	Featured      *bool          `json:"featured,omitempty"`
}

// Validate validates the update product request
func (req *UpdateProductRequest) Validate() error {
	if req.NameEn != nil && strings.TrimSpace(*req.NameEn) == "" {
		return errs.New(errs.InvalidArgument, "name_en لا يمكن أن يكون فارغًا")
	}

	if req.CategoryID != nil && *req.CategoryID <= 0 {
		return errs.New(errs.InvalidArgument, "category_id غير صالح")
	}

	if req.Material != nil && !req.Material.IsValid() {
		return errs.New(errs.InvalidArgument, "قيمة المادة غير صالحة")
	}

	if req.Karat != nil && (*req.Karat < 1 || *req.Karat > 24) {
		return errs.New(errs.InvalidArgument, "karat يجب أن يكون بين 1 و 24")
	}

	if req.WeightGrams != nil && *req.WeightGrams <= 0 {
		return errs.New(errs.InvalidArgument, "weight_grams يجب أن يكون موجبًا")
	}

	if req.PriceNet != nil && *req.PriceNet < 0 {
		return errs.New(errs.InvalidArgument, "price_net يجب ألا يكون سالبًا")
	}

	if req.StockQty != nil && *req.StockQty < 0 {
		return errs.New(errs.InvalidArgument, "stock_qty يجب ألا يكون سالبًا")
	}

	if req.LowStockAt != nil && *req.LowStockAt <= 0 {
		return errs.New(errs.InvalidArgument, "low_stock_threshold يجب أن يكون موجبًا")
	}

	if req.Status != nil && !req.Status.IsValid() {
		return errs.New(errs.InvalidArgument, "قيمة الحالة غير صالحة")
	}

	return nil
}

// UpdateProductResponse represents the response after updating a product
type UpdateProductResponse struct {
	Product ProductWithDetails `json:"product"`
}

// DeleteProductResponse represents the response after deleting a product
type DeleteProductResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// UploadMediaRequest represents a request to upload media for a product
type UploadMediaRequest struct {
	ProductID int64 `json:"id"`
	// File upload is handled separately by the endpoint
}

// UploadMediaResponse represents the response after uploading media
type UploadMediaResponse struct {
	Media Media `json:"media"`
}

// UpdateMediaRequest represents a request to update media
type UpdateMediaRequest struct {
	ProductID int64 `json:"product_id"`
	MediaID   int64 `json:"media_id"`

	ArchivedAt *time.Time `json:"archived_at"` // Set to archive/unarchive
}

// UpdateMediaResponse represents the response after updating media
type UpdateMediaResponse struct {
	Media Media `json:"media"`
}

// MediaUploadConfig represents configuration for media upload
type MediaUploadConfig struct {
	MaxFileSizeImage int64 // 10MB for images
	MaxFileSizeVideo int64 // 100MB for videos
	AllowedImageExt  []string
	AllowedVideoExt  []string
}

// DefaultMediaUploadConfig returns the default upload configuration
func DefaultMediaUploadConfig() MediaUploadConfig {
	return MediaUploadConfig{
		MaxFileSizeImage: 10 * 1024 * 1024,  // 10MB
		MaxFileSizeVideo: 100 * 1024 * 1024, // 100MB
		AllowedImageExt:  []string{".jpg", ".jpeg", ".png", ".webp"},
		AllowedVideoExt:  []string{".mp4"},
	}
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Code          string                 `json:"code"`
	Message       string                 `json:"message"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Details       map[string]interface{} `json:"details,omitempty"`
}

// HealthCheckResponse represents a health check response
type HealthCheckResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ========================= Category DTOs =========================

// CategoryTreeRequest represents options for the category tree endpoint
type CategoryTreeRequest struct {
	Lang string `query:"lang"` // Display language: ar (default), en, ur
}

// CategoryTreeResponse wraps the full three-level category tree
type CategoryTreeResponse struct {
	Categories []categorytree.Category `json:"categories"`
}

// CategoryFlatRequest represents options for the flattened category list
type CategoryFlatRequest struct {
	Lang     string `query:"lang"`      // Display language: ar (default), en, ur
	MaxLevel int    `query:"max_level"` // Deepest level to include (default: 3)
	Indent   string `query:"indent"`    // Indentation unit (default: two spaces)
}

// Validate applies defaults and bounds to the flat-list request
func (req *CategoryFlatRequest) Validate() error {
	if req.Lang == "" {
		req.Lang = "ar"
	}
	if req.Lang != "ar" && req.Lang != "en" && req.Lang != "ur" {
		return errs.New(errs.InvalidArgument, "lang يجب أن يكون: ar, en, ur")
	}
	if req.MaxLevel <= 0 || req.MaxLevel > categorytree.MaxDepth {
		req.MaxLevel = categorytree.MaxDepth
	}
	if req.Indent == "" {
		req.Indent = "  "
	}
	return nil
}

// CategoryFlatResponse wraps the flattened, indented category list
type CategoryFlatResponse struct {
	Categories []categorytree.FlatCategory `json:"categories"`
}

// CategoryChildrenRequest represents options for listing direct children
type CategoryChildrenRequest struct {
	Lang string `query:"lang"`
}

// CategoryChildrenResponse wraps the direct children of a category,
// used to drive cascading category selects.
type CategoryChildrenResponse struct {
	Categories []categorytree.FlatCategory `json:"categories"`
}

// CategoryDetailResponse wraps a single category with its subtree
type CategoryDetailResponse struct {
	Category categorytree.Category `json:"category"`
}

// CreateCategoryRequest represents a request to create a category
type CreateCategoryRequest struct {
	NameEn    string `json:"name_en"`
	NameUr    string `json:"name_ur"`
	NameAr    string `json:"name_ar"`
	ParentID  *int64 `json:"parent_id,omitempty"` // nil for a main category
	SortOrder int    `json:"sort_order"`
}

// Validate validates the create category request
func (req *CreateCategoryRequest) Validate() error {
	if strings.TrimSpace(req.NameEn) == "" {
		return errs.New(errs.InvalidArgument, "name_en مطلوب")
	}
	if req.ParentID != nil && *req.ParentID <= 0 {
		return errs.New(errs.InvalidArgument, "parent_id غير صالح")
	}
	return nil
}

// CreateCategoryResponse represents the response after creating a category
type CreateCategoryResponse struct {
	Category Category `json:"category"`
}

// UpdateCategoryRequest represents a request to update a category
type UpdateCategoryRequest struct {
	NameEn    *string `json:"name_en,omitempty"`
	NameUr    *string `json:"name_ur,omitempty"`
	NameAr    *string `json:"name_ar,omitempty"`
	SortOrder *int    `json:"sort_order,omitempty"`
	Active    *bool   `json:"active,omitempty"`
}

// Validate validates the update category request
func (req *UpdateCategoryRequest) Validate() error {
	if req.NameEn != nil && strings.TrimSpace(*req.NameEn) == "" {
		return errs.New(errs.InvalidArgument, "name_en لا يمكن أن يكون فارغًا")
	}
	return nil
}

// UpdateCategoryResponse represents the response after updating a category
type UpdateCategoryResponse struct {
	Category Category `json:"category"`
}

// DeleteCategoryResponse represents the response after deleting a category
type DeleteCategoryResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// MessageResponse is a simple message wrapper
type MessageResponse struct {
	Message string `json:"message"`
}

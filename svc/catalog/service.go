package catalog

import (
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"encore.dev/storage/sqldb"

	"encore.app/pkg/categorytree"
	"encore.app/pkg/config"
	"encore.app/pkg/errs"
	"encore.app/pkg/slugify"
	"encore.app/pkg/storagegcs"
)

// Service handles catalog business logic
type Service struct {
	repo      *Repository
	slugifier *slugify.Slugifier
	storage   *storagegcs.Client
	config    *config.ConfigManager
}

// NewService creates a new catalog service
func NewService(
	db *sqldb.Database,
	slugifier *slugify.Slugifier,
	storage *storagegcs.Client,
	configMgr *config.ConfigManager,
) *Service {
	return &Service{
		repo:      NewRepository(db),
		slugifier: slugifier,
		storage:   storage,
		config:    configMgr,
	}
}

// executeWithTransaction executes a function within a database transaction
func (s *Service) executeWithTransaction(ctx context.Context, fn func(context.Context) error) error {
	tx, err := s.repo.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("فشل بدء المعاملة: %w", err)
	}
	defer tx.Rollback()

	// Execute the function
	if err := fn(ctx); err != nil {
		return err
	}

	// Commit if successful
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("فشل تأكيد المعاملة: %w", err)
	}

	return nil
}

// GetProducts retrieves products with filtering, sorting, and pagination
func (s *Service) GetProducts(ctx context.Context, req ProductsListRequest) (*ProductsListResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// Convert request to filter using helper methods
	filter := ProductsFilter{
		CategoryID: req.GetCategoryID(),
		Material:   req.GetMaterial(),
		Status:     req.GetStatus(),
		Search:     req.GetQ(),
		PriceMin:   req.GetPriceMin(),
		PriceMax:   req.GetPriceMax(),
		Featured:   req.Featured,
	}

	// Convert sort parameter
	sort := ProductsSort{
		Field:     "created_at",
		Direction: "DESC",
	}

	if sortPtr := req.GetSort(); sortPtr != nil {
		switch *sortPtr {
		case "newest":
			sort.Field = "created_at"
			sort.Direction = "DESC"
		case "oldest":
			sort.Field = "created_at"
			sort.Direction = "ASC"
		case "price_asc":
			sort.Field = "price_net"
			sort.Direction = "ASC"
		case "price_desc":
			sort.Field = "price_net"
			sort.Direction = "DESC"
		}
	}

	// Calculate offset
	offset := (req.Page - 1) * req.Limit

	// Get products from repository
	products, totalCount, err := s.repo.GetProducts(ctx, filter, sort, offset, req.Limit)
	if err != nil {
		return nil, errs.E(ctx, "CAT_PRODUCTS_READ_FAILED", "فشل جلب قائمة المنتجات")
	}

	// Get current VAT settings from config manager
	vatSettings := s.getVATSettings()

	// Convert to summary format
	summaries := make([]ProductSummary, len(products))
	for i, product := range products {
		summaries[i] = s.convertToSummary(ctx, product, vatSettings, req.Lang)
	}

	// Calculate pagination
	totalPages := int((totalCount + int64(req.Limit) - 1) / int64(req.Limit))
	pagination := PaginationMeta{
		Page:       req.Page,
		Limit:      req.Limit,
		TotalItems: totalCount,
		TotalPages: totalPages,
		HasNext:    req.Page < totalPages,
		HasPrev:    req.Page > 1,
	}

	return &ProductsListResponse{
		Products:   summaries,
		Pagination: pagination,
	}, nil
}

// GetProductByID retrieves a single product by ID with full details
func (s *Service) GetProductByID(ctx context.Context, id int64) (*ProductDetailResponse, error) {
	// Get product
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return nil, errs.E(ctx, "CAT_PRODUCT_READ_FAILED", "فشل جلب المنتج")
	}

	if product == nil {
		return nil, errs.E(ctx, errs.CatProductNotFound, "المنتج غير موجود")
	}

	// Get full details
	productWithDetails, err := s.getProductWithDetails(ctx, product)
	if err != nil {
		return nil, err
	}

	return &ProductDetailResponse{
		Product: *productWithDetails,
	}, nil
}

// GetProductBySlug retrieves a single product by slug with full details
func (s *Service) GetProductBySlug(ctx context.Context, slug string) (*ProductDetailResponse, error) {
	product, err := s.repo.GetProductBySlug(ctx, slug)
	if err != nil {
		return nil, errs.E(ctx, "CAT_PRODUCT_READ_FAILED", "فشل جلب المنتج")
	}

	if product == nil {
		return nil, errs.E(ctx, errs.CatProductNotFound, "المنتج غير موجود")
	}

	productWithDetails, err := s.getProductWithDetails(ctx, product)
	if err != nil {
		return nil, err
	}

	return &ProductDetailResponse{
		Product: *productWithDetails,
	}, nil
}

// CreateProduct creates a new product
func (s *Service) CreateProduct(ctx context.Context, req CreateProductRequest) (*CreateProductResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// Category must exist and be a leaf-capable node
	category, err := s.repo.GetCategoryByID(ctx, req.CategoryID)
	if err != nil {
		return nil, errs.E(ctx, "CAT_CATEGORY_READ_FAILED", "فشل التحقق من الفئة")
	}
	if category == nil {
		return nil, errs.E(ctx, errs.CatCategoryNotFound, "الفئة غير موجودة")
	}

	// Generate slug from the English name
	slug, err := s.slugifier.GenerateUnique(ctx, req.NameEn, "products", "slug")
	if err != nil {
		return nil, errs.E(ctx, "CAT_SLUG_GENERATE_FAILED", "فشل إنشاء معرّف slug للمنتج")
	}

	threshold := 5 // default
	if req.LowStockAt != nil {
		threshold = *req.LowStockAt
	}

	status := ProductStatusAvailable
	if req.StockQty == 0 {
		status = ProductStatusOutOfStock
	}

	product := &Product{
		NameEn:        req.NameEn,
		NameUr:        req.NameUr,
		NameAr:        req.NameAr,
		Slug:          slug,
		DescriptionEn: req.DescriptionEn,
		DescriptionUr: req.DescriptionUr,
		DescriptionAr: req.DescriptionAr,
		CategoryID:    req.CategoryID,
		Material:      req.Material,
		Karat:         req.Karat,
		WeightGrams:   req.WeightGrams,
		PriceNet:      req.PriceNet,
		StockQty:      req.StockQty,
		LowStockAt:    threshold,
		Status:        status,
		Featured:      req.Featured,
	}

	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return nil, errs.E(ctx, "CAT_PRODUCT_CREATE_FAILED", "فشل إنشاء المنتج")
	}

	productWithDetails, err := s.getProductWithDetails(ctx, product)
	if err != nil {
		return nil, err
	}

	return &CreateProductResponse{
		Product: *productWithDetails,
	}, nil
}

// UpdateProduct updates an existing product
func (s *Service) UpdateProduct(ctx context.Context, id int64, req UpdateProductRequest) (*UpdateProductResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return nil, errs.E(ctx, "CAT_PRODUCT_READ_FAILED", "فشل جلب المنتج")
	}
	if product == nil {
		return nil, errs.E(ctx, errs.CatProductNotFound, "المنتج غير موجود")
	}

	if req.CategoryID != nil {
		category, err := s.repo.GetCategoryByID(ctx, *req.CategoryID)
		if err != nil {
			return nil, errs.E(ctx, "CAT_CATEGORY_READ_FAILED", "فشل التحقق من الفئة")
		}
		if category == nil {
			return nil, errs.E(ctx, errs.CatCategoryNotFound, "الفئة غير موجودة")
		}
		product.CategoryID = *req.CategoryID
	}

	if req.NameEn != nil {
		product.NameEn = *req.NameEn
	}
	if req.NameUr != nil {
		product.NameUr = *req.NameUr
	}
	if req.NameAr != nil {
		product.NameAr = *req.NameAr
	}
	if req.DescriptionEn != nil {
		product.DescriptionEn = *req.DescriptionEn
	}
	if req.DescriptionUr != nil {
		product.DescriptionUr = *req.DescriptionUr
	}
	if req.DescriptionAr != nil {
		product.DescriptionAr = *req.DescriptionAr
	}
	if req.Material != nil {
		product.Material = *req.Material
	}
	if req.Karat != nil {
		product.Karat = req.Karat
	}
	if req.WeightGrams != nil {
		product.WeightGrams = req.WeightGrams
	}
	if req.PriceNet != nil {
		product.PriceNet = *req.PriceNet
	}
	if req.StockQty != nil {
		product.StockQty = *req.StockQty
		// Stock changes flip availability unless explicitly overridden below
		if product.StockQty == 0 && product.Status == ProductStatusAvailable {
			product.Status = ProductStatusOutOfStock
		} else if product.StockQty > 0 && product.Status == ProductStatusOutOfStock {
			product.Status = ProductStatusAvailable
		}
	}
	if req.LowStockAt != nil {
		product.LowStockAt = *req.LowStockAt
	}
	if req.Status != nil {
		product.Status = *req.Status
	}
	if req.Featured != nil {
		product.Featured = *req.Featured
	}

	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		return nil, errs.E(ctx, "CAT_PRODUCT_UPDATE_FAILED", "فشل تحديث المنتج")
	}

	productWithDetails, err := s.getProductWithDetails(ctx, product)
	if err != nil {
		return nil, err
	}

	return &UpdateProductResponse{
		Product: *productWithDetails,
	}, nil
}

// ArchiveProduct marks a product as archived so it no longer appears in listings
func (s *Service) ArchiveProduct(ctx context.Context, id int64) (*DeleteProductResponse, error) {
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return nil, errs.E(ctx, "CAT_PRODUCT_READ_FAILED", "فشل جلب المنتج")
	}
	if product == nil {
		return nil, errs.E(ctx, errs.CatProductNotFound, "المنتج غير موجود")
	}

	if err := s.repo.ArchiveProduct(ctx, id); err != nil {
		return nil, errs.E(ctx, "CAT_PRODUCT_ARCHIVE_FAILED", "فشل أرشفة المنتج")
	}

	return &DeleteProductResponse{
		Message: "تمت أرشفة المنتج",
		ID:      fmt.Sprintf("%d", id),
	}, nil
}

// ================= Categories =================

// buildCategoryTree converts flat DB categories into a categorytree hierarchy
func buildCategoryTree(categories []Category) []categorytree.Category {
	nodes := make(map[int64]*categorytree.Category, len(categories))
	order := make([]int64, 0, len(categories))

	for _, c := range categories {
		nodes[c.ID] = &categorytree.Category{
			ID:       c.ID,
			NameEn:   c.NameEn,
			NameUr:   c.NameUr,
			NameAr:   c.NameAr,
			Slug:     c.Slug,
			Level:    c.Level,
			ParentID: c.ParentID,
		}
		order = append(order, c.ID)
	}

	var roots []categorytree.Category
	// Categories are ordered by level, so parents are attached before children
	for _, id := range order {
		node := nodes[id]
		if node.ParentID == nil {
			continue
		}
		if parent, ok := nodes[*node.ParentID]; ok {
			parent.Children = append(parent.Children, *node)
		}
	}
	// Re-collect from deepest level up so children lists are complete
	for level := categorytree.MaxDepth - 1; level >= 1; level-- {
		for _, id := range order {
			node := nodes[id]
			if node.Level != level || node.ParentID == nil {
				continue
			}
			parent := nodes[*node.ParentID]
			for i := range parent.Children {
				if parent.Children[i].ID == node.ID {
					parent.Children[i] = *node
				}
			}
		}
	}
	for _, id := range order {
		node := nodes[id]
		if node.ParentID == nil {
			roots = append(roots, *node)
		}
	}

	return roots
}

// GetCategoryTree returns the full three-level category hierarchy
func (s *Service) GetCategoryTree(ctx context.Context) (*CategoryTreeResponse, error) {
	categories, err := s.repo.GetCategories(ctx, false)
	if err != nil {
		return nil, errs.E(ctx, "CAT_CATEGORIES_READ_FAILED", "فشل جلب الفئات")
	}

	return &CategoryTreeResponse{
		Categories: buildCategoryTree(categories),
	}, nil
}

// GetCategoriesFlat returns the category tree flattened depth-first with
// indentation, for single-select dropdowns.
func (s *Service) GetCategoriesFlat(ctx context.Context, req CategoryFlatRequest) (*CategoryFlatResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	categories, err := s.repo.GetCategories(ctx, false)
	if err != nil {
		return nil, errs.E(ctx, "CAT_CATEGORIES_READ_FAILED", "فشل جلب الفئات")
	}

	tree := buildCategoryTree(categories)
	flat := categorytree.FlattenForLang(tree, req.MaxLevel, req.Indent, req.Lang)

	return &CategoryFlatResponse{Categories: flat}, nil
}

// GetCategoryBySlug finds a category by slug anywhere in the tree and
// returns it with its full subtree.
func (s *Service) GetCategoryBySlug(ctx context.Context, slug string) (*CategoryDetailResponse, error) {
	categories, err := s.repo.GetCategories(ctx, false)
	if err != nil {
		return nil, errs.E(ctx, "CAT_CATEGORIES_READ_FAILED", "فشل جلب الفئات")
	}

	tree := buildCategoryTree(categories)
	found := categorytree.FindBySlug(tree, slug)
	if found == nil {
		return nil, errs.E(ctx, errs.CatCategoryNotFound, "الفئة غير موجودة")
	}

	return &CategoryDetailResponse{Category: *found}, nil
}

// GetCategoryChildren returns the direct children of a category, for
// cascading category selects.
func (s *Service) GetCategoryChildren(ctx context.Context, id int64, req CategoryChildrenRequest) (*CategoryChildrenResponse, error) {
	parent, err := s.repo.GetCategoryByID(ctx, id)
	if err != nil {
		return nil, errs.E(ctx, "CAT_CATEGORY_READ_FAILED", "فشل جلب الفئة")
	}
	if parent == nil {
		return nil, errs.E(ctx, errs.CatCategoryNotFound, "الفئة غير موجودة")
	}

	lang := req.Lang
	if lang == "" {
		lang = "ar"
	}

	categories, err := s.repo.GetCategories(ctx, false)
	if err != nil {
		return nil, errs.E(ctx, "CAT_CATEGORIES_READ_FAILED", "فشل جلب الفئات")
	}

	tree := buildCategoryTree(categories)
	flat := categorytree.FlattenForLang(tree, categorytree.MaxDepth, "", lang)
	children := categorytree.FilterByParent(flat, id, parent.Level+1)

	return &CategoryChildrenResponse{Categories: children}, nil
}

// CreateCategory creates a new category, enforcing the three-level bound
func (s *Service) CreateCategory(ctx context.Context, req CreateCategoryRequest) (*CreateCategoryResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	level := 1
	if req.ParentID != nil {
		parent, err := s.repo.GetCategoryByID(ctx, *req.ParentID)
		if err != nil {
			return nil, errs.E(ctx, "CAT_CATEGORY_READ_FAILED", "فشل التحقق من الفئة الأم")
		}
		if parent == nil {
			return nil, errs.E(ctx, errs.CatCategoryNotFound, "الفئة الأم غير موجودة")
		}
		if parent.Level >= categorytree.MaxDepth {
			return nil, errs.E(ctx, errs.CatCategoryDepth, "لا يمكن إنشاء فئة أعمق من ثلاثة مستويات")
		}
		level = parent.Level + 1
	}

	slug, err := s.slugifier.GenerateUnique(ctx, req.NameEn, "categories", "slug")
	if err != nil {
		return nil, errs.E(ctx, "CAT_SLUG_GENERATE_FAILED", "فشل إنشاء معرّف slug للفئة")
	}

	category := &Category{
		NameEn:    req.NameEn,
		NameUr:    req.NameUr,
		NameAr:    req.NameAr,
		Slug:      slug,
		Level:     level,
		ParentID:  req.ParentID,
		SortOrder: req.SortOrder,
		Active:    true,
	}

	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, errs.E(ctx, "CAT_CATEGORY_CREATE_FAILED", "فشل إنشاء الفئة")
	}

	return &CreateCategoryResponse{Category: *category}, nil
}

// UpdateCategory updates an existing category
func (s *Service) UpdateCategory(ctx context.Context, id int64, req UpdateCategoryRequest) (*UpdateCategoryResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	category, err := s.repo.GetCategoryByID(ctx, id)
	if err != nil {
		return nil, errs.E(ctx, "CAT_CATEGORY_READ_FAILED", "فشل جلب الفئة")
	}
	if category == nil {
		return nil, errs.E(ctx, errs.CatCategoryNotFound, "الفئة غير موجودة")
	}

	if req.NameEn != nil {
		category.NameEn = *req.NameEn
	}
	if req.NameUr != nil {
		category.NameUr = *req.NameUr
	}
	if req.NameAr != nil {
		category.NameAr = *req.NameAr
	}
	if req.SortOrder != nil {
		category.SortOrder = *req.SortOrder
	}
	if req.Active != nil {
		category.Active = *req.Active
	}

	if err := s.repo.UpdateCategory(ctx, category); err != nil {
		return nil, errs.E(ctx, "CAT_CATEGORY_UPDATE_FAILED", "فشل تحديث الفئة")
	}

	return &UpdateCategoryResponse{Category: *category}, nil
}

// DeleteCategory removes a category that has no children and no products
func (s *Service) DeleteCategory(ctx context.Context, id int64) (*DeleteCategoryResponse, error) {
	category, err := s.repo.GetCategoryByID(ctx, id)
	if err != nil {
		return nil, errs.E(ctx, "CAT_CATEGORY_READ_FAILED", "فشل جلب الفئة")
	}
	if category == nil {
		return nil, errs.E(ctx, errs.CatCategoryNotFound, "الفئة غير موجودة")
	}

	children, err := s.repo.CountCategoryChildren(ctx, id)
	if err != nil {
		return nil, errs.E(ctx, "CAT_CATEGORY_READ_FAILED", "فشل التحقق من الفئات الفرعية")
	}
	if children > 0 {
		return nil, errs.E(ctx, errs.CatCategoryHasItems, "لا يمكن حذف فئة لديها فئات فرعية")
	}

	productCount, err := s.repo.CountCategoryProducts(ctx, id)
	if err != nil {
		return nil, errs.E(ctx, "CAT_CATEGORY_READ_FAILED", "فشل التحقق من منتجات الفئة")
	}
	if productCount > 0 {
		return nil, errs.E(ctx, errs.CatCategoryHasItems, "لا يمكن حذف فئة لديها منتجات")
	}

	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return nil, errs.E(ctx, "CAT_CATEGORY_DELETE_FAILED", "فشل حذف الفئة")
	}

	return &DeleteCategoryResponse{
		Message: "تم حذف الفئة",
		ID:      fmt.Sprintf("%d", id),
	}, nil
}

// ================= Media =================

// UploadMedia uploads media file for a product
func (s *Service) UploadMedia(ctx context.Context, productID int64, file multipart.File, header *multipart.FileHeader) (*UploadMediaResponse, error) {
	// Check if product exists
	product, err := s.repo.GetProductByID(ctx, productID)
	if err != nil {
		return nil, errs.E(ctx, "CAT_PRODUCT_READ_FAILED", "فشل التحقق من وجود المنتج")
	}

	if product == nil {
		return nil, errs.E(ctx, errs.CatProductNotFound, "المنتج غير موجود")
	}

	// Validate file
	uploadCfg := DefaultMediaUploadConfig()
	if err := s.validateMediaFile(header, uploadCfg); err != nil {
		return nil, err
	}

	mediaSettings := s.getMediaSettings()

	// Prepare upload configuration
	uploadConfig := storagegcs.CreateUploadConfigFromSettings(storagegcs.MediaSettings{
		WatermarkEnabled:  mediaSettings.WatermarkEnabled,
		WatermarkPosition: mediaSettings.WatermarkPosition,
		WatermarkOpacity:  mediaSettings.WatermarkOpacity,
		ThumbnailsEnabled: mediaSettings.ThumbnailsEnabled,
		ThumbnailSizes:    mediaSettings.ThumbnailSizes,
	})

	// Upload to GCS
	uploadResult, err := s.storage.Upload(ctx, file, header.Filename, uploadConfig)
	if err != nil {
		return nil, errs.E(ctx, "CAT_MEDIA_UPLOAD_FAILED", "فشل رفع الملف إلى التخزين")
	}

	// Create media record
	media := &Media{
		ProductID:        productID,
		Kind:             MediaKind(uploadResult.Kind),
		GCSPath:          uploadResult.GCSPath,
		ThumbPath:        &uploadResult.ThumbPath,
		WatermarkApplied: uploadResult.WatermarkApplied,
		FileSize:         &uploadResult.Size,
		MimeType:         func() *string { ct := header.Header.Get("Content-Type"); return &ct }(),
		OriginalFilename: &header.Filename,
	}

	if err := s.repo.CreateMedia(ctx, media); err != nil {
		return nil, errs.E(ctx, "CAT_MEDIA_SAVE_FAILED", "فشل حفظ سجل الوسائط")
	}

	return &UploadMediaResponse{
		Media: *media,
	}, nil
}

// UpdateMedia updates media properties (mainly for archiving/unarchiving)
func (s *Service) UpdateMedia(ctx context.Context, productID, mediaID int64, archivedAt *time.Time) (*UpdateMediaResponse, error) {
	// Get media
	media, err := s.repo.GetMediaByID(ctx, mediaID)
	if err != nil {
		return nil, errs.E(ctx, "CAT_MEDIA_READ_FAILED", "فشل جلب الوسائط")
	}

	if media == nil {
		return nil, errs.E(ctx, "CAT_MEDIA_NOT_FOUND", "الوسائط غير موجودة")
	}

	// Check if media belongs to the product
	if media.ProductID != productID {
		return nil, errs.E(ctx, "CAT_MEDIA_NOT_FOR_PRODUCT", "الوسائط غير تابعة لهذا المنتج")
	}

	// Update media
	media.ArchivedAt = archivedAt
	if err := s.repo.UpdateMedia(ctx, media); err != nil {
		return nil, errs.E(ctx, "CAT_MEDIA_UPDATE_FAILED", "فشل تحديث الوسائط")
	}

	return &UpdateMediaResponse{
		Media: *media,
	}, nil
}

// VATSettings represents VAT configuration
type VATSettings struct {
	Enabled bool
	Rate    float64
}

// getVATSettings retrieves VAT settings from the config manager
func (s *Service) getVATSettings() *VATSettings {
	if s.config != nil {
		st := s.config.GetSettings()
		return &VATSettings{Enabled: st.VATEnabled, Rate: st.VATRate}
	}
	return &VATSettings{Enabled: true, Rate: 0.15}
}

// getMediaSettings retrieves media processing settings from the config manager
func (s *Service) getMediaSettings() *MediaSettings {
	// Defaults
	settings := &MediaSettings{
		WatermarkEnabled:  true,
		WatermarkPosition: "bottom-right",
		WatermarkOpacity:  0.7,
		ThumbnailsEnabled: true,
		ThumbnailSizes:    []int{200, 400},
		MaxFileSize:       10485760, // 10MB
		AllowedTypes:      []string{"image/jpeg", "image/png", "image/webp", "video/mp4"},
	}
	if s.config == nil {
		return settings
	}
	st := s.config.GetSettings()
	settings.WatermarkEnabled = st.MediaWatermarkEnabled
	if st.MediaWatermarkPosition != "" {
		settings.WatermarkPosition = st.MediaWatermarkPosition
	}
	if st.MediaWatermarkOpacity > 0 {
		settings.WatermarkOpacity = st.MediaWatermarkOpacity
	}
	if st.MediaMaxFileSize > 0 {
		settings.MaxFileSize = st.MediaMaxFileSize
	}
	if len(st.MediaAllowedTypes) > 0 {
		settings.AllowedTypes = st.MediaAllowedTypes
	}
	return settings
}

// MediaSettings represents media processing configuration
type MediaSettings struct {
	WatermarkEnabled  bool
	WatermarkPosition string
	WatermarkOpacity  float64
	ThumbnailsEnabled bool
	ThumbnailSizes    []int
	MaxFileSize       int64
	AllowedTypes      []string
}

// convertToSummary converts a Product to ProductSummary with additional info
func (s *Service) convertToSummary(ctx context.Context, product Product, vatSettings *VATSettings, lang string) ProductSummary {
	summary := ProductSummary{
		ID:          product.ID,
		Name:        product.Name(lang),
		NameEn:      product.NameEn,
		NameUr:      product.NameUr,
		NameAr:      product.NameAr,
		Slug:        product.Slug,
		CategoryID:  product.CategoryID,
		Material:    product.Material,
		Karat:       product.Karat,
		WeightGrams: product.WeightGrams,
		PriceNet:    product.PriceNet,
		PriceGross:  product.GetPriceGross(vatSettings.Rate),
		StockQty:    product.StockQty,
		Status:      product.Status,
		Featured:    product.Featured,
		CreatedAt:   product.CreatedAt,
	}

	// Add media information
	mediaList, err := s.repo.GetMediaByProductID(ctx, product.ID, false)
	if err == nil {
		summary.MediaCount = len(mediaList)

		// Find first image for thumbnail
		for _, media := range mediaList {
			if media.Kind == MediaKindImage && media.ThumbPath != nil {
				publicURL := s.storage.GetPublicURL(*media.ThumbPath)
				summary.ThumbnailURL = &publicURL
				break
			}
		}
	}

	return summary
}

// getProductWithDetails retrieves a product with all its details
func (s *Service) getProductWithDetails(ctx context.Context, product *Product) (*ProductWithDetails, error) {
	details := ProductWithDetails{
		Product: *product,
	}

	// Get media
	media, err := s.repo.GetMediaByProductID(ctx, product.ID, false)
	if err != nil {
		return nil, errs.E(ctx, "CAT_MEDIA_READ_FAILED", "فشل جلب الوسائط")
	}
	details.Media = media

	return &details, nil
}

// validateMediaFile validates uploaded media file with comprehensive checks
func (s *Service) validateMediaFile(header *multipart.FileHeader, config MediaUploadConfig) error {
	filename := header.Filename
	fileSize := header.Size
	ext := strings.ToLower(filepath.Ext(filename))

	// Basic validation
	if filename == "" {
		return errs.New(errs.InvalidArgument, "اسم الملف مطلوب")
	}

	if fileSize <= 0 {
		return errs.New(errs.InvalidArgument, "الملف فارغ")
	}

	// Check for dangerous file extensions
	dangerousExt := []string{".exe", ".bat", ".cmd", ".com", ".scr", ".vbs", ".js", ".jar"}
	for _, dangerous := range dangerousExt {
		if ext == dangerous {
			return errs.New(errs.InvalidArgument, "نوع الملف غير مسموح لأسباب أمنية")
		}
	}

	// Check file extension and size based on type
	switch {
	case contains(config.AllowedImageExt, ext):
		if fileSize > config.MaxFileSizeImage {
			return errs.New(errs.InvalidArgument, fmt.Sprintf("صورة كبيرة جدًا. الحد الأقصى: %d م.ب", config.MaxFileSizeImage/(1024*1024)))
		}

	case contains(config.AllowedVideoExt, ext):
		if fileSize > config.MaxFileSizeVideo {
			return errs.New(errs.InvalidArgument, fmt.Sprintf("فيديو كبير جدًا. الحد الأقصى: %d م.ب", config.MaxFileSizeVideo/(1024*1024)))
		}

	default:
		return errs.New(errs.InvalidArgument, fmt.Sprintf("النوع %s غير مدعوم. الأنواع المسموحة: %v, %v",
			ext, config.AllowedImageExt, config.AllowedVideoExt))
	}

	return nil
}

// Helper function to check if slice contains string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"encore.dev/storage/sqldb"
)

// Repository handles database operations for catalog
type Repository struct {
	db *sqldb.Database
}

// NewRepository creates a new catalog repository
func NewRepository(db *sqldb.Database) *Repository {
	return &Repository{db: db}
}

// ProductsFilter represents filters for product queries
type ProductsFilter struct {
	CategoryID *int64 // Matches the category and all its descendants
	Material   *Material
	Status     *ProductStatus
	Search     *string
	PriceMin   *float64
	PriceMax   *float64
	Featured   bool
}

// ProductsSort represents sorting options for products
type ProductsSort struct {
	Field     string // "created_at", "price_net", "name_en"
	Direction string // "ASC", "DESC"
}

const productColumns = `
	p.id, p.name_en, p.name_ur, p.name_ar, p.slug,
	p.description_en, p.description_ur, p.description_ar,
	p.category_id, p.material, p.karat, p.weight_grams,
	p.price_net, p.stock_qty, p.low_stock_threshold,
	p.status, p.featured, p.created_at, p.updated_at`

func scanProduct(scan func(dest ...interface{}) error) (Product, error) {
	var p Product
	err := scan(
		&p.ID, &p.NameEn, &p.NameUr, &p.NameAr, &p.Slug,
		&p.DescriptionEn, &p.DescriptionUr, &p.DescriptionAr,
		&p.CategoryID, &p.Material, &p.Karat, &p.WeightGrams,
		&p.PriceNet, &p.StockQty, &p.LowStockAt,
		&p.Status, &p.Featured, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

// GetProducts retrieves products with optional filters, sorting, and pagination
func (r *Repository) GetProducts(ctx context.Context, filter ProductsFilter, sort ProductsSort, offset, limit int) ([]Product, int64, error) {
	// Build WHERE clause
	whereClauses := []string{}
	args := []interface{}{}
	argCount := 0

	if filter.CategoryID != nil {
		// Match the category and its descendants within the 3-level tree
		argCount++
		whereClauses = append(whereClauses, fmt.Sprintf(`p.category_id IN (
			WITH RECURSIVE subtree AS (
				SELECT id FROM categories WHERE id = $%d
				UNION ALL
				SELECT c.id FROM categories c JOIN subtree s ON c.parent_id = s.id
			)
			SELECT id FROM subtree
		)`, argCount))
		args = append(args, *filter.CategoryID)
	}

	if filter.Material != nil {
		argCount++
		whereClauses = append(whereClauses, fmt.Sprintf("p.material = $%d", argCount))
		args = append(args, *filter.Material)
	}

	if filter.Status != nil {
		argCount++
		whereClauses = append(whereClauses, fmt.Sprintf("p.status = $%d", argCount))
		args = append(args, *filter.Status)
	}

	if filter.Search != nil && *filter.Search != "" {
		argCount++
		whereClauses = append(whereClauses, fmt.Sprintf(
			`(p.name_en ILIKE $%d OR p.name_ur ILIKE $%d OR p.name_ar ILIKE $%d
			OR p.description_en ILIKE $%d OR p.description_ur ILIKE $%d OR p.description_ar ILIKE $%d)`,
			argCount, argCount, argCount, argCount, argCount, argCount))
		args = append(args, "%"+*filter.Search+"%")
	}

	if filter.PriceMin != nil {
		argCount++
		whereClauses = append(whereClauses, fmt.Sprintf("p.price_net >= $%d", argCount))
		args = append(args, *filter.PriceMin)
	}

	if filter.PriceMax != nil {
		argCount++
		whereClauses = append(whereClauses, fmt.Sprintf("p.price_net <= $%d", argCount))
		args = append(args, *filter.PriceMax)
	}

	if filter.Featured {
		whereClauses = append(whereClauses, "p.featured = TRUE")
	}

	// Build WHERE clause string
	whereClause := ""
	if len(whereClauses) > 0 {
		whereClause = "WHERE " + strings.Join(whereClauses, " AND ")
	}

	// Build ORDER BY clause
	orderBy := fmt.Sprintf("ORDER BY p.%s %s", sort.Field, sort.Direction)

	// Count total items
	countQuery := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM products p
		%s
	`, whereClause)

	var totalCount int64
	err := r.db.QueryRow(ctx, countQuery, args...).Scan(&totalCount)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	// Get products with pagination
	argCount++
	args = append(args, limit)
	argCount++
	args = append(args, offset)

	query := fmt.Sprintf(`
		SELECT %s
		FROM products p
		%s
		%s
		LIMIT $%d OFFSET $%d
	`, productColumns, whereClause, orderBy, argCount-1, argCount)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating products: %w", err)
	}

	return products, totalCount, nil
}

// GetProductByID retrieves a single product by ID
func (r *Repository) GetProductByID(ctx context.Context, id int64) (*Product, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM products p
		WHERE p.id = $1
	`, productColumns)

	p, err := scanProduct(r.db.QueryRow(ctx, query, id).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Product not found
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return &p, nil
}

// GetProductBySlug retrieves a single product by slug
func (r *Repository) GetProductBySlug(ctx context.Context, slug string) (*Product, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM products p
		WHERE p.slug = $1
	`, productColumns)

	p, err := scanProduct(r.db.QueryRow(ctx, query, slug).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Product not found
		}
		return nil, fmt.Errorf("failed to get product by slug: %w", err)
	}

	return &p, nil
}

// CreateProduct creates a new product
func (r *Repository) CreateProduct(ctx context.Context, product *Product) error {
	query := `
		INSERT INTO products (
			name_en, name_ur, name_ar, slug,
			description_en, description_ur, description_ar,
			category_id, material, karat, weight_grams,
			price_net, stock_qty, low_stock_threshold, status, featured
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		product.NameEn, product.NameUr, product.NameAr, product.Slug,
		product.DescriptionEn, product.DescriptionUr, product.DescriptionAr,
		product.CategoryID, product.Material, product.Karat, product.WeightGrams,
		product.PriceNet, product.StockQty, product.LowStockAt,
		product.Status, product.Featured,
	).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// UpdateProduct updates an existing product
func (r *Repository) UpdateProduct(ctx context.Context, product *Product) error {
	query := `
		UPDATE products
		SET name_en = $2, name_ur = $3, name_ar = $4,
			description_en = $5, description_ur = $6, description_ar = $7,
			category_id = $8, material = $9, karat = $10, weight_grams = $11,
			price_net = $12, stock_qty = $13, low_stock_threshold = $14,
			status = $15, featured = $16,
			updated_at = (CURRENT_TIMESTAMP AT TIME ZONE 'UTC')
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRow(ctx, query,
		product.ID, product.NameEn, product.NameUr, product.NameAr,
		product.DescriptionEn, product.DescriptionUr, product.DescriptionAr,
		product.CategoryID, product.Material, product.Karat, product.WeightGrams,
		product.PriceNet, product.StockQty, product.LowStockAt,
		product.Status, product.Featured,
	).Scan(&product.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	return nil
}

// ArchiveProduct marks a product as archived
func (r *Repository) ArchiveProduct(ctx context.Context, id int64) error {
	query := `
		UPDATE products
		SET status = 'archived', updated_at = (CURRENT_TIMESTAMP AT TIME ZONE 'UTC')
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to archive product: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("product not found for ID %d", id)
	}
	return nil
}

// UpdateProductStock updates the stock quantity for a product
func (r *Repository) UpdateProductStock(ctx context.Context, productID int64, newStockQty int) error {
	query := `
		UPDATE products
		SET stock_qty = $2,
			status = CASE
				WHEN $2 <= 0 AND status = 'available' THEN 'out_of_stock'
				WHEN $2 > 0 AND status = 'out_of_stock' THEN 'available'
				ELSE status
			END,
			updated_at = (CURRENT_TIMESTAMP AT TIME ZONE 'UTC')
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query, productID, newStockQty)
	if err != nil {
		return fmt.Errorf("failed to update product stock: %w", err)
	}

	rowsAffected := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("product not found for ID %d", productID)
	}

	return nil
}

// ================= Categories =================

const categoryColumns = `
	c.id, c.name_en, c.name_ur, c.name_ar, c.slug, c.level,
	c.parent_id, c.sort_order, c.active, c.created_at, c.updated_at`

func scanCategory(scan func(dest ...interface{}) error) (Category, error) {
	var c Category
	err := scan(
		&c.ID, &c.NameEn, &c.NameUr, &c.NameAr, &c.Slug, &c.Level,
		&c.ParentID, &c.SortOrder, &c.Active, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

// GetCategories retrieves all active categories ordered for tree building
func (r *Repository) GetCategories(ctx context.Context, includeInactive bool) ([]Category, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM categories c
	`, categoryColumns)

	if !includeInactive {
		query += " WHERE c.active = TRUE"
	}

	query += " ORDER BY c.level ASC, c.sort_order ASC, c.id ASC"

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		c, err := scanCategory(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

// GetCategoryByID retrieves a single category by ID
func (r *Repository) GetCategoryByID(ctx context.Context, id int64) (*Category, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM categories c
		WHERE c.id = $1
	`, categoryColumns)

	c, err := scanCategory(r.db.QueryRow(ctx, query, id).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Category not found
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	return &c, nil
}

// GetCategoryBySlug retrieves a single category by slug
func (r *Repository) GetCategoryBySlug(ctx context.Context, slug string) (*Category, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM categories c
		WHERE c.slug = $1
	`, categoryColumns)

	c, err := scanCategory(r.db.QueryRow(ctx, query, slug).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Category not found
		}
		return nil, fmt.Errorf("failed to get category by slug: %w", err)
	}

	return &c, nil
}

// CreateCategory creates a new category
func (r *Repository) CreateCategory(ctx context.Context, category *Category) error {
	query := `
		INSERT INTO categories (name_en, name_ur, name_ar, slug, level, parent_id, sort_order, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		category.NameEn, category.NameUr, category.NameAr, category.Slug,
		category.Level, category.ParentID, category.SortOrder, category.Active,
	).Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}

	return nil
}

// UpdateCategory updates an existing category
func (r *Repository) UpdateCategory(ctx context.Context, category *Category) error {
	query := `
		UPDATE categories
		SET name_en = $2, name_ur = $3, name_ar = $4,
			sort_order = $5, active = $6,
			updated_at = (CURRENT_TIMESTAMP AT TIME ZONE 'UTC')
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRow(ctx, query,
		category.ID, category.NameEn, category.NameUr, category.NameAr,
		category.SortOrder, category.Active,
	).Scan(&category.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}

	return nil
}

// DeleteCategory removes a category
func (r *Repository) DeleteCategory(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("category not found for ID %d", id)
	}
	return nil
}

// CountCategoryChildren counts direct children of a category
func (r *Repository) CountCategoryChildren(ctx context.Context, id int64) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM categories WHERE parent_id = $1`, id).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count category children: %w", err)
	}
	return count, nil
}

// CountCategoryProducts counts products assigned to a category
func (r *Repository) CountCategoryProducts(ctx context.Context, id int64) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE category_id = $1`, id).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count category products: %w", err)
	}
	return count, nil
}

// CheckCategorySlugExists checks if a slug already exists for categories
func (r *Repository) CheckCategorySlugExists(ctx context.Context, slug string) (bool, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM categories WHERE slug = $1`, slug).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check category slug existence: %w", err)
	}
	return count > 0, nil
}

// ================= Media =================

// GetMediaByProductID retrieves all media for a product
func (r *Repository) GetMediaByProductID(ctx context.Context, productID int64, includeArchived bool) ([]Media, error) {
	query := `
		SELECT
			id, product_id, kind, gcs_path, thumb_path, watermark_applied,
			file_size, mime_type, original_filename, archived_at, created_at, updated_at
		FROM media
		WHERE product_id = $1
	`

	args := []interface{}{productID}

	if !includeArchived {
		query += " AND archived_at IS NULL"
	}

	query += " ORDER BY created_at ASC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query media: %w", err)
	}
	defer rows.Close()

	var mediaList []Media
	for rows.Next() {
		var m Media
		err := rows.Scan(
			&m.ID, &m.ProductID, &m.Kind, &m.GCSPath, &m.ThumbPath, &m.WatermarkApplied,
			&m.FileSize, &m.MimeType, &m.OriginalFilename, &m.ArchivedAt,
			&m.CreatedAt, &m.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan media: %w", err)
		}
		mediaList = append(mediaList, m)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating media: %w", err)
	}

	return mediaList, nil
}

// CreateMedia creates a new media entry
func (r *Repository) CreateMedia(ctx context.Context, media *Media) error {
	query := `
		INSERT INTO media (
			product_id, kind, gcs_path, thumb_path, watermark_applied,
			file_size, mime_type, original_filename
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		media.ProductID, media.Kind, media.GCSPath, media.ThumbPath, media.WatermarkApplied,
		media.FileSize, media.MimeType, media.OriginalFilename,
	).Scan(&media.ID, &media.CreatedAt, &media.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create media: %w", err)
	}

	return nil
}

// UpdateMedia updates media properties
func (r *Repository) UpdateMedia(ctx context.Context, media *Media) error {
	query := `
		UPDATE media
		SET archived_at = $2, updated_at = (CURRENT_TIMESTAMP AT TIME ZONE 'UTC')
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRow(ctx, query, media.ID, media.ArchivedAt).Scan(&media.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update media: %w", err)
	}

	return nil
}

// GetMediaByID retrieves a media entry by ID
func (r *Repository) GetMediaByID(ctx context.Context, mediaID int64) (*Media, error) {
	query := `
		SELECT
			id, product_id, kind, gcs_path, thumb_path, watermark_applied,
			file_size, mime_type, original_filename, archived_at, created_at, updated_at
		FROM media
		WHERE id = $1
	`

	var m Media
	err := r.db.QueryRow(ctx, query, mediaID).Scan(
		&m.ID, &m.ProductID, &m.Kind, &m.GCSPath, &m.ThumbPath, &m.WatermarkApplied,
		&m.FileSize, &m.MimeType, &m.OriginalFilename, &m.ArchivedAt,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Media not found
		}
		return nil, fmt.Errorf("failed to get media: %w", err)
	}

	return &m, nil
}

// CheckSlugExists checks if a slug already exists for products
func (r *Repository) CheckSlugExists(ctx context.Context, slug string) (bool, error) {
	query := `SELECT COUNT(*) FROM products WHERE slug = $1`

	var count int
	err := r.db.QueryRow(ctx, query, slug).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check slug existence: %w", err)
	}

	return count > 0, nil
}

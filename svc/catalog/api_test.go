package catalog

import (
	"testing"

	"encore.app/pkg/errs"
)

func TestProductsListRequestValidation(t *testing.T) {
	tests := []struct {
		name        string
		req         ProductsListRequest
		expectError bool
	}{
		{
			name: "Valid request with all filters",
			req: ProductsListRequest{
				CategoryID:  3,
				MaterialStr: "gold",
				StatusStr:   "available",
				Q:           "خاتم",
				PriceMin:    100.0,
				PriceMax:    500.0,
				Featured:    true,
				Page:        1,
				Limit:       20,
				SortStr:     "newest",
				Lang:        "ar",
			},
		},
		{
			name: "Valid request with minimal data",
			req: ProductsListRequest{
				Page:  1,
				Limit: 10,
			},
		},
		{
			name: "Invalid material filter",
			req: ProductsListRequest{
				MaterialStr: "copper",
				Page:        1,
				Limit:       20,
			},
			expectError: true,
		},
		{
			name: "Invalid status filter",
			req: ProductsListRequest{
				StatusStr: "invalid_status",
				Page:      1,
				Limit:     20,
			},
			expectError: true,
		},
		{
			name: "Invalid language",
			req: ProductsListRequest{
				Lang:  "fr",
				Page:  1,
				Limit: 20,
			},
			expectError: true,
		},
		{
			name: "Invalid price range - negative min",
			req: ProductsListRequest{
				PriceMin: -100.0,
				Page:     1,
				Limit:    20,
			},
			expectError: true,
		},
		{
			name: "Invalid price range - min > max",
			req: ProductsListRequest{
				PriceMin: 500.0,
				PriceMax: 100.0,
				Page:     1,
				Limit:    20,
			},
			expectError: true,
		},
		{
			name: "Invalid sort parameter",
			req: ProductsListRequest{
				SortStr: "invalid_sort",
				Page:    1,
				Limit:   20,
			},
			expectError: true,
		},
		{
			name: "Auto-correct page and limit",
			req: ProductsListRequest{
				Page:  0,   // Should be corrected to 1
				Limit: 200, // Should be corrected to 100 (max)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
					return
				}
				e, ok := err.(*errs.Error)
				if !ok {
					t.Fatalf("Expected *errs.Error, got %T", err)
				}
				if e.Code != errs.InvalidArgument {
					t.Errorf("Expected code %s, got %s", errs.InvalidArgument, e.Code)
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}

				// Check auto-corrections
				if tt.req.Page < 1 {
					t.Errorf("Page should be auto-corrected to 1, got %d", tt.req.Page)
				}
				if tt.req.Limit > 100 || tt.req.Limit <= 0 {
					t.Errorf("Limit should be clamped to 1..100, got %d", tt.req.Limit)
				}
				if tt.req.Lang == "" {
					t.Error("Lang should default to ar")
				}
			}
		})
	}
}

func TestProductsListRequestHelperMethods(t *testing.T) {
	req := ProductsListRequest{
		CategoryID:  5,
		MaterialStr: "gold",
		StatusStr:   "available",
		Q:           "necklace",
		PriceMin:    100.0,
		PriceMax:    500.0,
		SortStr:     "price_asc",
	}

	if catPtr := req.GetCategoryID(); catPtr == nil || *catPtr != 5 {
		t.Errorf("GetCategoryID() should return 5, got %v", catPtr)
	}

	if matPtr := req.GetMaterial(); matPtr == nil || *matPtr != MaterialGold {
		t.Errorf("GetMaterial() should return gold, got %v", matPtr)
	}

	if statusPtr := req.GetStatus(); statusPtr == nil || *statusPtr != ProductStatusAvailable {
		t.Errorf("GetStatus() should return 'available', got %v", statusPtr)
	}

	if qPtr := req.GetQ(); qPtr == nil || *qPtr != "necklace" {
		t.Errorf("GetQ() should return 'necklace', got %v", qPtr)
	}

	if priceMinPtr := req.GetPriceMin(); priceMinPtr == nil || *priceMinPtr != 100.0 {
		t.Errorf("GetPriceMin() should return 100.0, got %v", priceMinPtr)
	}

	if priceMaxPtr := req.GetPriceMax(); priceMaxPtr == nil || *priceMaxPtr != 500.0 {
		t.Errorf("GetPriceMax() should return 500.0, got %v", priceMaxPtr)
	}

	if sortPtr := req.GetSort(); sortPtr == nil || *sortPtr != "price_asc" {
		t.Errorf("GetSort() should return 'price_asc', got %v", sortPtr)
	}
}

func TestProductsListRequestEmptyValues(t *testing.T) {
	req := ProductsListRequest{}

	if req.GetCategoryID() != nil {
		t.Error("GetCategoryID() should return nil for zero value")
	}

	if req.GetMaterial() != nil {
		t.Error("GetMaterial() should return nil for empty string")
	}

	if req.GetStatus() != nil {
		t.Error("GetStatus() should return nil for empty string")
	}

	if req.GetQ() != nil {
		t.Error("GetQ() should return nil for empty string")
	}

	if req.GetPriceMin() != nil {
		t.Error("GetPriceMin() should return nil for zero value")
	}

	if req.GetPriceMax() != nil {
		t.Error("GetPriceMax() should return nil for zero value")
	}

	if req.GetSort() != nil {
		t.Error("GetSort() should return nil for empty string")
	}
}

func TestCreateProductRequestValidation(t *testing.T) {
	karat := 21
	weight := 12.5
	badKarat := 30
	badWeight := -1.0

	base := CreateProductRequest{
		NameEn:     "Gold Ring",
		NameAr:     "خاتم ذهب",
		CategoryID: 3,
		Material:   MaterialGold,
		Karat:      &karat,
		WeightGrams: func() *float64 {
			w := weight
			return &w
		}(),
		PriceNet: 1500,
		StockQty: 4,
	}

	tests := []struct {
		name        string
		mutate      func(r *CreateProductRequest)
		expectError bool
	}{
		{name: "valid", mutate: func(r *CreateProductRequest) {}},
		{name: "missing name_en", mutate: func(r *CreateProductRequest) { r.NameEn = "  " }, expectError: true},
		{name: "missing category", mutate: func(r *CreateProductRequest) { r.CategoryID = 0 }, expectError: true},
		{name: "bad material", mutate: func(r *CreateProductRequest) { r.Material = "plastic" }, expectError: true},
		{name: "karat out of range", mutate: func(r *CreateProductRequest) { r.Karat = &badKarat }, expectError: true},
		{name: "negative weight", mutate: func(r *CreateProductRequest) { r.WeightGrams = &badWeight }, expectError: true},
		{name: "negative price", mutate: func(r *CreateProductRequest) { r.PriceNet = -5 }, expectError: true},
		{name: "negative stock", mutate: func(r *CreateProductRequest) { r.StockQty = -1 }, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			tt.mutate(&req)
			err := req.Validate()
			if tt.expectError && err == nil {
				t.Error("expected validation error, got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestCategoryFlatRequestDefaults(t *testing.T) {
	req := CategoryFlatRequest{}
	if err := req.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Lang != "ar" {
		t.Errorf("Lang should default to ar, got %q", req.Lang)
	}
	if req.MaxLevel != 3 {
		t.Errorf("MaxLevel should default to 3, got %d", req.MaxLevel)
	}
	if req.Indent != "  " {
		t.Errorf("Indent should default to two spaces, got %q", req.Indent)
	}

	bad := CategoryFlatRequest{Lang: "de"}
	if err := bad.Validate(); err == nil {
		t.Error("expected error for unsupported language")
	}

	deep := CategoryFlatRequest{MaxLevel: 9}
	if err := deep.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deep.MaxLevel != 3 {
		t.Errorf("MaxLevel above bound should clamp to 3, got %d", deep.MaxLevel)
	}
}

func TestCreateCategoryRequestValidation(t *testing.T) {
	valid := CreateCategoryRequest{NameEn: "Rings", NameAr: "خواتم"}
	if err := valid.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	empty := CreateCategoryRequest{NameEn: " "}
	if err := empty.Validate(); err == nil {
		t.Error("expected error for blank name_en")
	}

	badParent := int64(-2)
	withBadParent := CreateCategoryRequest{NameEn: "Rings", ParentID: &badParent}
	if err := withBadParent.Validate(); err == nil {
		t.Error("expected error for non-positive parent_id")
	}
}

func TestBuildCategoryTree(t *testing.T) {
	parent := int64(1)
	sub := int64(2)
	cats := []Category{
		{ID: 1, NameEn: "Jewelry", Slug: "jewelry", Level: 1},
		{ID: 2, NameEn: "Rings", Slug: "rings", Level: 2, ParentID: &parent},
		{ID: 3, NameEn: "Gold Rings", Slug: "gold-rings", Level: 3, ParentID: &sub},
		{ID: 4, NameEn: "Watches", Slug: "watches", Level: 1},
	}

	tree := buildCategoryTree(cats)
	if len(tree) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(tree))
	}
	if tree[0].Slug != "jewelry" || tree[1].Slug != "watches" {
		t.Fatalf("unexpected root order: %s, %s", tree[0].Slug, tree[1].Slug)
	}
	if len(tree[0].Children) != 1 || tree[0].Children[0].Slug != "rings" {
		t.Fatalf("expected jewelry > rings, got %+v", tree[0].Children)
	}
	if len(tree[0].Children[0].Children) != 1 || tree[0].Children[0].Children[0].Slug != "gold-rings" {
		t.Fatalf("expected rings > gold-rings, got %+v", tree[0].Children[0].Children)
	}
}

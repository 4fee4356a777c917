package seed

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"

	"encore.dev/storage/sqldb"

	"encore.app/pkg/audit"
	"encore.app/pkg/authn"
	"encore.app/pkg/config"
)

// Database handle
var db = sqldb.Named("coredb")

// Optional Encore secret for seed protection. If not set, falls back to OS env SEED_SECRET
var secrets struct {
	SeedSecret string //encore:secret
}

//encore:service
type Service struct{}

// SeedRequest allows customizing counts (all optional)
type SeedRequest struct {
	UsersCustomers int `json:"users_customers"`
	UsersAdmins    int `json:"users_admins"`

	ProductsPerCategory int `json:"products_per_category"`

	Orders       int `json:"orders"`
	Testimonials int `json:"testimonials"`
	Subscribers  int `json:"subscribers"`
}

// SeedResponse summarizes what was created
type SeedResponse struct {
	Created struct {
		UsersCustomers int `json:"users_customers"`
		UsersAdmins    int `json:"users_admins"`

		Categories int `json:"categories"`
		Products   int `json:"products"`
		Addresses  int `json:"addresses"`

		Orders       int `json:"orders"`
		Testimonials int `json:"testimonials"`
		Subscribers  int `json:"subscribers"`
	} `json:"created"`
	Notes []string `json:"notes"`
}

//encore:api public raw method=POST path=/dev/seed
func RunSeed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	// Verify secret
	expected := strings.TrimSpace(getExpectedSecret())
	provided := strings.TrimSpace(r.Header.Get("X-Seed-Secret"))
	if expected == "" || provided == "" || provided != expected {
		writeJSON(w, http.StatusForbidden, map[string]any{
			"ok":      false,
			"message": "forbidden: invalid or missing X-Seed-Secret",
		})
		return
	}

	// Ensure config manager initialized (avoid nil deref in config.GetSettings)
	if config.GetGlobalManager() == nil {
		_ = config.Initialize(db, 5*time.Minute)
	}

	// Parse request (optional)
	var req SeedRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	applyDefaults(&req)
	// Initialize response and add start note
	resp := &SeedResponse{}
	resp.Notes = append(resp.Notes, "Seeding started")

	// Ensure we have at least one city (migrations already insert many)
	cityIDs, err := getCityIDs(ctx)
	if err != nil || len(cityIDs) == 0 {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "message": "no cities available", "error": errString(err)})
		return
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	// 1) Users
	password := "Password123" // strong enough for dev seed
	var customerIDs, adminIDs []int64
	if ids, n, err := seedUsers(ctx, rng, "customer", req.UsersCustomers, password); err == nil {
		customerIDs = ids
		resp.Created.UsersCustomers = n
	} else { resp.Notes = append(resp.Notes, "users_customers error: "+err.Error()) }
	if ids, n, err := seedUsers(ctx, rng, "admin", req.UsersAdmins, password); err == nil {
		adminIDs = ids
		resp.Created.UsersAdmins = n
	} else { resp.Notes = append(resp.Notes, "users_admins error: "+err.Error()) }

	// 2) Category tree (fixed three-level jewelry taxonomy)
	leafIDs, nCats, err := seedCategories(ctx)
	if err == nil {
		resp.Created.Categories = nCats
	} else { resp.Notes = append(resp.Notes, "categories error: "+err.Error()) }

	// 3) Products per leaf category
	var productIDs []int64
	if len(leafIDs) > 0 {
		if ids, n, err := seedProducts(ctx, rng, leafIDs, req.ProductsPerCategory); err == nil {
			productIDs = ids
			resp.Created.Products = n
		} else { resp.Notes = append(resp.Notes, "products error: "+err.Error()) }
	}

	// 4) Addresses for customers
	if len(customerIDs) > 0 {
		if n, err := seedAddresses(ctx, rng, customerIDs, cityIDs); err == nil {
			resp.Created.Addresses = n
		} else { resp.Notes = append(resp.Notes, "addresses error: "+err.Error()) }
	}

	// 5) Orders (customers buying seeded products)
	if len(customerIDs) > 0 && len(productIDs) > 0 && req.Orders > 0 {
		cnt, err := seedOrders(ctx, rng, customerIDs, productIDs, req.Orders)
		if err == nil { resp.Created.Orders = cnt } else { resp.Notes = append(resp.Notes, "orders error: "+err.Error()) }
	}

	// 6) Testimonials pending review
	if len(customerIDs) > 0 && req.Testimonials > 0 {
		cnt, err := seedTestimonials(ctx, rng, customerIDs, req.Testimonials)
		if err == nil { resp.Created.Testimonials = cnt } else { resp.Notes = append(resp.Notes, "testimonials error: "+err.Error()) }
	}

	// 7) Newsletter subscribers
	if req.Subscribers > 0 {
		cnt, err := seedSubscribers(ctx, rng, req.Subscribers)
		if err == nil { resp.Created.Subscribers = cnt } else { resp.Notes = append(resp.Notes, "subscribers error: "+err.Error()) }
	}

	// Attribute the run to one of the seeded admins in the audit trail
	if len(adminIDs) > 0 {
		if _, err := audit.LogAction(ctx, db, "seed.run", "seed", time.Now().UTC().Format(time.RFC3339),
			resp.Created, audit.WithActor(adminIDs[0]), audit.WithReason("dev seed")); err != nil {
			resp.Notes = append(resp.Notes, "audit error: "+err.Error())
		}
	}

	resp.Notes = append(resp.Notes, "Seeding finished")
	writeJSON(w, http.StatusOK, resp)
}

func getExpectedSecret() string {
	if strings.TrimSpace(secrets.SeedSecret) != "" {
		return strings.TrimSpace(secrets.SeedSecret)
	}
	return strings.TrimSpace(os.Getenv("SEED_SECRET"))
}

func applyDefaults(r *SeedRequest) {
	if r.UsersCustomers == 0 { r.UsersCustomers = 10 }
	if r.UsersAdmins == 0 { r.UsersAdmins = 2 }
	if r.ProductsPerCategory == 0 { r.ProductsPerCategory = 4 }
	if r.Orders == 0 { r.Orders = 5 }
	if r.Testimonials == 0 { r.Testimonials = 4 }
	if r.Subscribers == 0 { r.Subscribers = 6 }
}

func errString(err error) string { if err == nil { return "" }; return err.Error() }

// --- Helpers ---

func getCityIDs(ctx context.Context) ([]int64, error) {
	rows, err := db.Stdlib().QueryContext(ctx, `SELECT id FROM cities WHERE enabled = true ORDER BY id`)
	if err != nil { return nil, err }
	defer rows.Close()
	var ids []int64
	for rows.Next() { var id int64; if err := rows.Scan(&id); err != nil { return nil, err }; ids = append(ids, id) }
	return ids, nil
}

func randomChoice[T any](r *rand.Rand, arr []T) T {
	return arr[r.Intn(len(arr))]
}

func seedUsers(ctx context.Context, r *rand.Rand, role string, n int, password string) ([]int64, int, error) {
	if n <= 0 { return nil, 0, nil }
	hash, _ := authn.HashPassword(password)
	langs := []string{"ar", "en", "ur"}
	created := 0
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("%s User %d", strings.Title(role), r.Intn(100000))
		email := strings.ToLower(fmt.Sprintf("seed.%s.%d@noor.local", role, r.Intn(1_000_000_000)))
		phone := fmt.Sprintf("05%08d", r.Intn(100000000))
		lang := randomChoice(r, langs)
		var id int64
		err := db.Stdlib().QueryRowContext(ctx, `
			INSERT INTO users (name, email, phone, password_hash, role, state, preferred_lang, email_verified_at)
			VALUES ($1, LOWER($2), $3, $4, $5, 'active', $6, NOW())
			ON CONFLICT (email) DO NOTHING
			RETURNING id
		`, name, email, phone, hash, role, lang).Scan(&id)
		if err != nil {
			if err == sql.ErrNoRows {
				// Already exists; fetch id
				if e := db.Stdlib().QueryRowContext(ctx, `SELECT id FROM users WHERE email=LOWER($1)`, email).Scan(&id); e != nil { continue }
			} else { continue }
		}
		if id > 0 { ids = append(ids, id); created++ }
	}
	return ids, created, nil
}

type seedCategory struct {
	nameEn, nameUr, nameAr, slug string
	level                        int
	parentSlug                   string
	leaf                         bool
}

// seedCategories inserts a fixed three-level taxonomy and returns leaf ids.
// Re-running is safe: existing slugs are fetched rather than re-inserted.
func seedCategories(ctx context.Context) ([]int64, int, error) {
	cats := []seedCategory{
		{"Jewelry", "زیورات", "مجوهرات", "jewelry", 1, "", false},
		{"Watches", "گھڑیاں", "ساعات", "watches", 1, "", true},

		{"Rings", "انگوٹھیاں", "خواتم", "rings", 2, "jewelry", false},
		{"Necklaces", "ہار", "قلائد", "necklaces", 2, "jewelry", false},
		{"Bracelets", "کنگن", "أساور", "bracelets", 2, "jewelry", true},
		{"Earrings", "بالیاں", "أقراط", "earrings", 2, "jewelry", true},

		{"Gold Rings", "سونے کی انگوٹھیاں", "خواتم ذهب", "gold-rings", 3, "rings", true},
		{"Silver Rings", "چاندی کی انگوٹھیاں", "خواتم فضة", "silver-rings", 3, "rings", true},
		{"Pearl Necklaces", "موتیوں کے ہار", "قلائد لؤلؤ", "pearl-necklaces", 3, "necklaces", true},
		{"Diamond Necklaces", "ہیرے کے ہار", "قلائد ألماس", "diamond-necklaces", 3, "necklaces", true},
	}

	idBySlug := map[string]int64{}
	created := 0
	var leafIDs []int64
	for i, c := range cats {
		var parentID sql.NullInt64
		if c.parentSlug != "" {
			pid, ok := idBySlug[c.parentSlug]
			if !ok { continue }
			parentID = sql.NullInt64{Int64: pid, Valid: true}
		}
		var id int64
		err := db.Stdlib().QueryRowContext(ctx, `
			INSERT INTO categories (name_en, name_ur, name_ar, slug, level, parent_id, sort_order, active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, true)
			ON CONFLICT (slug) DO NOTHING
			RETURNING id
		`, c.nameEn, c.nameUr, c.nameAr, c.slug, c.level, parentID, i).Scan(&id)
		if err != nil {
			if err != sql.ErrNoRows { return leafIDs, created, err }
			if e := db.Stdlib().QueryRowContext(ctx, `SELECT id FROM categories WHERE slug=$1`, c.slug).Scan(&id); e != nil { continue }
		} else {
			created++
		}
		idBySlug[c.slug] = id
		if c.leaf { leafIDs = append(leafIDs, id) }
	}
	return leafIDs, created, nil
}

func seedProducts(ctx context.Context, r *rand.Rand, leafIDs []int64, perCategory int) ([]int64, int, error) {
	if perCategory <= 0 || len(leafIDs) == 0 { return nil, 0, nil }
	materials := []string{"gold", "silver", "platinum", "diamond", "pearl", "gemstone"}
	namesEn := []string{"Classic", "Royal", "Twilight", "Oasis", "Noor", "Amber", "Layla", "Dana"}
	ids := make([]int64, 0, len(leafIDs)*perCategory)
	created := 0
	for _, catID := range leafIDs {
		for i := 0; i < perCategory; i++ {
			material := randomChoice(r, materials)
			base := randomChoice(r, namesEn)
			n := r.Intn(1_000_000)
			nameEn := fmt.Sprintf("%s %s Piece %d", base, strings.Title(material), n)
			nameAr := fmt.Sprintf("قطعة %s رقم %d", base, n)
			nameUr := fmt.Sprintf("%s زیور نمبر %d", base, n)
			slug := fmt.Sprintf("seed-%s-%d-%d", material, time.Now().Unix(), n)

			var karat sql.NullInt64
			if material == "gold" {
				karat = sql.NullInt64{Int64: int64(randomChoice(r, []int{18, 21, 24})), Valid: true}
			}
			weight := round2(1.5 + r.Float64()*48.5)   // 1.5..50 grams
			price := float64(150 + r.Intn(14850))       // 150..15000 SAR net
			stock := 1 + r.Intn(20)

			var pid int64
			err := db.Stdlib().QueryRowContext(ctx, `
				INSERT INTO products (name_en, name_ur, name_ar, slug, description_en, category_id,
				                      material, karat, weight_grams, price_net, stock_qty, low_stock_threshold, status, featured)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 2, 'available', $12)
				RETURNING id
			`, nameEn, nameUr, nameAr, slug, "Seed product", catID, material, karat, weight, price, stock, r.Intn(5) == 0).Scan(&pid)
			if err != nil { continue }
			ids = append(ids, pid); created++
		}
	}
	return ids, created, nil
}

func seedAddresses(ctx context.Context, r *rand.Rand, userIDs []int64, cityIDs []int64) (int, error) {
	created := 0
	for _, uid := range userIDs {
		city := randomChoice(r, cityIDs)
		line1 := fmt.Sprintf("شارع %d، حي %d", 1+r.Intn(99), 1+r.Intn(20))
		_, err := db.Stdlib().ExecContext(ctx, `
			INSERT INTO addresses (user_id, full_name, phone, city_id, label, line1, is_default)
			SELECT id, name, COALESCE(phone, '0500000000'), $2, 'المنزل', $3, true
			FROM users WHERE id = $1
		`, uid, city, line1)
		if err == nil { created++ }
	}
	return created, nil
}

func seedOrders(ctx context.Context, r *rand.Rand, userIDs []int64, productIDs []int64, n int) (int, error) {
	if n <= 0 { return 0, nil }
	settings := config.GetSettings()
	vat := 0.0
	shipping := 0.0
	if settings != nil {
		if settings.VATEnabled { vat = settings.VATRate }
		shipping = settings.ShippingFlatFee
	}
	created := 0
	for i := 0; i < n; i++ {
		uid := userIDs[r.Intn(len(userIDs))]
		pid := productIDs[r.Intn(len(productIDs))]
		var priceNet float64
		if err := db.Stdlib().QueryRowContext(ctx, `SELECT price_net FROM products WHERE id=$1`, pid).Scan(&priceNet); err != nil { continue }
		qty := 1 + r.Intn(2)
		unitGross := round2(priceNet * (1 + vat))
		lineGross := round2(unitGross * float64(qty))
		subtotal := round2(priceNet * float64(qty))
		vatAmount := round2(subtotal * vat)
		grandTotal := round2(subtotal + vatAmount + shipping)
		addr, _ := json.Marshal(map[string]any{
			"name": "Seed Customer", "phone": "0500000000", "city": "الرياض",
			"line1": "شارع التحلية", "line2": nil,
		})
		idemKey := fmt.Sprintf("seed-%d-%d", time.Now().UnixNano(), r.Intn(1_000_000))

		tx, err := db.Stdlib().BeginTx(ctx, nil)
		if err != nil { continue }
		var orderNumber string
		if err := tx.QueryRowContext(ctx, `SELECT next_order_number($1)`, time.Now().UTC().Year()).Scan(&orderNumber); err != nil { _ = tx.Rollback(); continue }
		var orderID int64
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO orders (user_id, order_number, status, idem_key, subtotal, vat_amount, vat_rate_snapshot,
			                    shipping_fee, grand_total, shipping_address, notes)
			VALUES ($1,$2,'pending',$3,$4,$5,$6,$7,$8,$9,'seed order')
			RETURNING id
		`, uid, orderNumber, idemKey, subtotal, vatAmount, vat, shipping, grandTotal, addr).Scan(&orderID); err != nil { _ = tx.Rollback(); continue }
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, qty, unit_price_net, unit_price_gross, line_total_gross)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, orderID, pid, qty, priceNet, unitGross, lineGross); err != nil { _ = tx.Rollback(); continue }
		if err := tx.Commit(); err != nil { _ = tx.Rollback(); continue }
		created++
	}
	return created, nil
}

func seedTestimonials(ctx context.Context, r *rand.Rand, userIDs []int64, n int) (int, error) {
	if n <= 0 { return 0, nil }
	texts := []string{
		"جودة ممتازة وتغليف أنيق، أنصح بالشراء",
		"القطعة أجمل من الصور، شكراً لكم",
		"توصيل سريع وخدمة عملاء رائعة",
		"Beautiful craftsmanship, will order again",
	}
	created := 0
	for i := 0; i < n; i++ {
		uid := userIDs[r.Intn(len(userIDs))]
		if _, err := db.Stdlib().ExecContext(ctx, `
			INSERT INTO testimonials (user_id, content, rating, lang, status)
			VALUES ($1, $2, $3, 'ar', 'pending')
		`, uid, randomChoice(r, texts), 3+r.Intn(3)); err == nil { created++ }
	}
	return created, nil
}

func seedSubscribers(ctx context.Context, r *rand.Rand, n int) (int, error) {
	if n <= 0 { return 0, nil }
	created := 0
	for i := 0; i < n; i++ {
		email := strings.ToLower(fmt.Sprintf("seed.news.%d@noor.local", r.Intn(1_000_000_000)))
		token := fmt.Sprintf("%08x-%04x-%04x-%04x-%012x", r.Uint32(), r.Intn(0x10000), 0x4000|r.Intn(0x1000), 0x8000|r.Intn(0x4000), r.Int63n(1<<48))
		if _, err := db.Stdlib().ExecContext(ctx, `
			INSERT INTO newsletter_subscribers (email, lang, status, unsubscribe_token, subscribed_at)
			VALUES ($1, 'ar', 'subscribed', $2, NOW())
			ON CONFLICT (email) DO NOTHING
		`, email, token); err == nil { created++ }
	}
	return created, nil
}

func round2(v float64) float64 { return math.Floor(v*100+0.5) / 100 }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

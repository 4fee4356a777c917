package integration

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"encore.app/pkg/authn"
	"encore.dev/storage/sqldb"
)

// TestCreateOrder: إنشاء طلب والتحقق من رقمه وحالته وقيمته
func TestCreateOrder(t *testing.T) {
	ctx := context.Background()
	db := testDB

	// تنظيف البيانات القديمة
	cleanupOrderTestData(t, db)
	defer cleanupOrderTestData(t, db)

	buyerID, productID := createOrderFixtures(t, db)

	orderID, orderNumber, grand := createTestOrder(t, db, buyerID, productID, nil)
	if orderID == 0 || grand <= 0 {
		t.Fatalf("expected order created with total > 0")
	}
	if !strings.HasPrefix(orderNumber, "NJ-") {
		t.Errorf("expected order number with NJ- prefix, got %s", orderNumber)
	}

	// تحقق من الحالة من قاعدة البيانات
	var status string
	if err := db.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1`, orderID).Scan(&status); err != nil {
		t.Fatalf("failed to read order status: %v", err)
	}
	if status != "pending" {
		t.Errorf("expected status pending got %s", status)
	}

	// تحقق من المشتري
	var buyer int64
	if err := db.QueryRow(ctx, `SELECT user_id FROM orders WHERE id=$1`, orderID).Scan(&buyer); err == nil {
		if buyer != buyerID {
			t.Errorf("expected buyer %d got %d", buyerID, buyer)
		}
	}
}

// TestOrderStatusLifecycle: تتبع حالة الطلب عبر مراحلها
func TestOrderStatusLifecycle(t *testing.T) {
	ctx := context.Background()
	db := testDB

	cleanupOrderTestData(t, db)
	defer cleanupOrderTestData(t, db)

	buyerID, productID := createOrderFixtures(t, db)
	orderID, _, _ := createTestOrder(t, db, buyerID, productID, nil)

	for _, status := range []string{"processing", "shipped", "delivered"} {
		if _, err := db.Exec(ctx, `UPDATE orders SET status=$1, updated_at=NOW() WHERE id=$2`, status, orderID); err != nil {
			t.Fatalf("failed to update status to %s: %v", status, err)
		}
		var got string
		if err := db.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1`, orderID).Scan(&got); err != nil || got != status {
			t.Errorf("expected %s, got %s err=%v", status, got, err)
		}
	}

	// حالة غير معروفة ترفض بقيد الفحص
	if _, err := db.Exec(ctx, `UPDATE orders SET status='paid' WHERE id=$1`, orderID); err == nil {
		t.Errorf("expected unknown status to violate the check constraint")
	}
}

// TestOrderIdempotencyKey: نفس مفتاح التكرار لنفس المستخدم يرفض
func TestOrderIdempotencyKey(t *testing.T) {
	ctx := context.Background()
	db := testDB

	cleanupOrderTestData(t, db)
	defer cleanupOrderTestData(t, db)

	buyerID, productID := createOrderFixtures(t, db)

	idem := fmt.Sprintf("chk-%d", time.Now().UnixNano())
	createTestOrder(t, db, buyerID, productID, &idem)

	// إدخال ثانٍ بنفس المفتاح يجب أن يفشل على الفهرس الفريد
	var year int
	_ = db.QueryRow(ctx, `SELECT EXTRACT(YEAR FROM NOW())::INT`).Scan(&year)
	var number string
	_ = db.QueryRow(ctx, `SELECT next_order_number($1)`, year).Scan(&number)
	_, err := db.Exec(ctx, `
		INSERT INTO orders (user_id, order_number, status, idem_key, subtotal, vat_amount, vat_rate_snapshot, shipping_fee, grand_total, shipping_address)
		VALUES ($1, $2, 'pending', $3, 100, 15, 0.15, 25, 140, '{}'::jsonb)
	`, buyerID, number, idem)
	if err == nil {
		t.Fatalf("expected duplicate idem_key to be rejected")
	}
	if !strings.Contains(err.Error(), "uq_orders_user_idem") {
		t.Errorf("expected unique index violation, got %v", err)
	}
}

// TestOrderNumberSequence: أرقام الطلبات تتزايد ضمن السنة
func TestOrderNumberSequence(t *testing.T) {
	ctx := context.Background()
	db := testDB

	var year int
	if err := db.QueryRow(ctx, `SELECT EXTRACT(YEAR FROM NOW())::INT`).Scan(&year); err != nil {
		t.Fatalf("failed to read year: %v", err)
	}

	var first, second string
	if err := db.QueryRow(ctx, `SELECT next_order_number($1)`, year).Scan(&first); err != nil {
		t.Fatalf("next_order_number failed: %v", err)
	}
	if err := db.QueryRow(ctx, `SELECT next_order_number($1)`, year).Scan(&second); err != nil {
		t.Fatalf("next_order_number failed: %v", err)
	}
	prefix := fmt.Sprintf("NJ-%d-", year)
	if !strings.HasPrefix(first, prefix) || !strings.HasPrefix(second, prefix) {
		t.Fatalf("unexpected order number format: %s / %s", first, second)
	}
	if first == second {
		t.Fatalf("expected distinct sequential numbers")
	}
}

// Helpers (kept in-file)

func cleanupOrderTestData(t *testing.T, db *sqldb.Database) {
	ctx := context.Background()
	queries := []string{
		"DELETE FROM order_items WHERE order_id IN (SELECT id FROM orders WHERE user_id IN (SELECT id FROM users WHERE email LIKE 'order_%@example.com'))",
		"DELETE FROM orders WHERE user_id IN (SELECT id FROM users WHERE email LIKE 'order_%@example.com')",
		"DELETE FROM addresses WHERE user_id IN (SELECT id FROM users WHERE email LIKE 'order_%@example.com')",
		"DELETE FROM users WHERE email LIKE 'order_%@example.com'",
		"DELETE FROM products WHERE slug LIKE 'test-order-%'",
		"DELETE FROM categories WHERE slug LIKE 'test-order-%'",
	}
	for _, q := range queries {
		_, _ = db.Exec(ctx, q)
	}
}

func createOrderFixtures(t *testing.T, db *sqldb.Database) (buyerID, productID int64) {
	ctx := context.Background()
	suffix := time.Now().UnixNano()

	hash, _ := authn.HashPassword("SecurePass123!")
	if err := db.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash, phone, preferred_lang, role, state, email_verified_at, created_at, updated_at)
		VALUES ('Order Buyer', $1, $2, '+966501112233', 'ar', 'customer', 'active', NOW(), NOW(), NOW()) RETURNING id
	`, fmt.Sprintf("order_buyer_%d@example.com", suffix), hash).Scan(&buyerID); err != nil {
		t.Fatalf("failed to create buyer: %v", err)
	}

	var categoryID int64
	if err := db.QueryRow(ctx, `
		INSERT INTO categories (name_en, name_ur, name_ar, slug, level, sort_order, active)
		VALUES ('Order Necklaces', 'ہار', 'قلائد', $1, 1, 0, true) RETURNING id
	`, fmt.Sprintf("test-order-cat-%d", suffix)).Scan(&categoryID); err != nil {
		t.Fatalf("failed to create category: %v", err)
	}

	if err := db.QueryRow(ctx, `
		INSERT INTO products (name_en, name_ur, name_ar, slug, category_id, material, weight_grams, price_net, stock_qty, status)
		VALUES ('Test Order Necklace', 'ٹیسٹ ہار', 'قلادة اختبار', $1, $2, 'pearl', 12.00, 850.00, 10, 'available') RETURNING id
	`, fmt.Sprintf("test-order-necklace-%d", suffix), categoryID).Scan(&productID); err != nil {
		t.Fatalf("failed to create product: %v", err)
	}
	return buyerID, productID
}

func createTestOrder(t *testing.T, db *sqldb.Database, buyerID, productID int64, idemKey *string) (int64, string, float64) {
	ctx := context.Background()

	var year int
	if err := db.QueryRow(ctx, `SELECT EXTRACT(YEAR FROM NOW())::INT`).Scan(&year); err != nil {
		t.Fatalf("failed to read year: %v", err)
	}
	var number string
	if err := db.QueryRow(ctx, `SELECT next_order_number($1)`, year).Scan(&number); err != nil {
		t.Fatalf("next_order_number failed: %v", err)
	}

	subtotal := 850.00
	vat := 127.50
	shipping := 25.00
	grand := subtotal + vat + shipping

	var orderID int64
	if err := db.QueryRow(ctx, `
		INSERT INTO orders (user_id, order_number, status, idem_key, subtotal, vat_amount, vat_rate_snapshot, shipping_fee, grand_total, shipping_address)
		VALUES ($1, $2, 'pending', $3, $4, $5, 0.15, $6, $7, '{"city":"الرياض","line1":"شارع التحلية"}'::jsonb)
		RETURNING id
	`, buyerID, number, idemKey, subtotal, vat, shipping, grand).Scan(&orderID); err != nil {
		t.Fatalf("failed to create order: %v", err)
	}

	if _, err := db.Exec(ctx, `
		INSERT INTO order_items (order_id, product_id, qty, unit_price_net, unit_price_gross, line_total_gross)
		VALUES ($1, $2, 1, $3, $4, $4)
	`, orderID, productID, subtotal, subtotal+vat); err != nil {
		t.Fatalf("failed to insert order item: %v", err)
	}

	var gotGrand float64
	if err := db.QueryRow(ctx, `SELECT grand_total FROM orders WHERE id=$1`, orderID).Scan(&gotGrand); err != nil {
		t.Fatalf("failed to read grand_total: %v", err)
	}
	return orderID, number, gotGrand
}

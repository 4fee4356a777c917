package checkout

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"encore.dev/beta/auth"
	"encore.dev/storage/sqldb"

	"encore.app/pkg/cartstore"
	"encore.app/pkg/config"
	"encore.app/pkg/errs"
	"encore.app/pkg/metrics"
	"encore.app/pkg/money"
)

var db = sqldb.Named("coredb")

//encore:service
type Service struct{}

func initService() (*Service, error) { return &Service{}, nil }

// CreateOrderRequest places an order from the caller's persisted cart.
// Prices are always re-derived server-side; the cart only contributes
// product ids and quantities.
type CreateOrderRequest struct {
	IdemKey   string `header:"Idempotency-Key"`
	AddressID int64  `json:"address_id"`
	Notes     string `json:"notes,omitempty"`
}

// CreateOrderResponse reports the created (or idempotently replayed) order.
type CreateOrderResponse struct {
	OrderID     int64   `json:"order_id"`
	OrderNumber string  `json:"order_number"`
	Status      string  `json:"status"`
	Subtotal    float64 `json:"subtotal"`
	VATAmount   float64 `json:"vat_amount"`
	Shipping    float64 `json:"shipping"`
	GrandTotal  float64 `json:"grand_total"`
}

//encore:api auth method=POST path=/orders
func CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	uidStr, ok := auth.UserID()
	if !ok {
		return nil, &errs.Error{Code: errs.Unauthenticated, Message: "مطلوب تسجيل الدخول"}
	}
	userID, perr := strconv.ParseInt(string(uidStr), 10, 64)
	if perr != nil {
		return nil, &errs.Error{Code: errs.InvalidArgument, Message: "معرّف مستخدم غير صالح"}
	}
	if req == nil {
		return nil, &errs.Error{Code: errs.InvalidArgument, Message: "بيانات غير مكتملة"}
	}

	// Require email verified
	var verified bool
	if err := db.Stdlib().QueryRowContext(ctx, `SELECT email_verified_at IS NOT NULL FROM users WHERE id=$1`, userID).Scan(&verified); err != nil {
		return nil, &errs.Error{Code: errs.Internal, Message: "فشل التحقق"}
	}
	if !verified {
		return nil, &errs.Error{Code: "AUTH_EMAIL_VERIFY_REQUIRED_AT_CHECKOUT", Message: "فعّل حسابك لإتمام الشراء"}
	}

	key := strings.TrimSpace(req.IdemKey)
	if key == "" {
		return nil, &errs.Error{Code: errs.InvalidArgument, Message: "مطلوب Idempotency-Key"}
	}

	// Idempotency lock
	hash := int64(hashKey(key))
	if _, err := db.Stdlib().ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, hash); err != nil {
		return nil, &errs.Error{Code: errs.Internal, Message: "فشل القفل"}
	}

	// Replay: return the order already created under this idempotency key
	var existing CreateOrderResponse
	err := db.Stdlib().QueryRowContext(ctx, `
        SELECT id, order_number, status::text, subtotal, vat_amount, shipping_fee, grand_total
        FROM orders WHERE user_id=$1 AND idem_key=$2
    `, userID, key).Scan(&existing.OrderID, &existing.OrderNumber, &existing.Status,
		&existing.Subtotal, &existing.VATAmount, &existing.Shipping, &existing.GrandTotal)
	if err == nil {
		return &existing, nil
	}
	if err != sql.ErrNoRows {
		return nil, &errs.Error{Code: errs.Internal, Message: "فشل التحقق من تكرار الطلب"}
	}

	// Shipping address must belong to the caller
	var addressJSON []byte
	err = db.Stdlib().QueryRowContext(ctx, `
        SELECT jsonb_build_object(
            'name', a.full_name, 'phone', a.phone, 'city', c.name_ar, 'line1', a.line1, 'line2', a.line2
        )
        FROM addresses a
        JOIN cities c ON c.id = a.city_id
        WHERE a.id=$1 AND a.user_id=$2 AND a.archived_at IS NULL
    `, req.AddressID, userID).Scan(&addressJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &errs.Error{Code: errs.InvalidArgument, Message: "عنوان الشحن غير موجود"}
		}
		return nil, &errs.Error{Code: errs.Internal, Message: "فشل جلب عنوان الشحن"}
	}

	// Load the persisted user cart
	cartKey := "user:" + string(uidStr)
	var cartRaw []byte
	err = db.Stdlib().QueryRowContext(ctx, `SELECT state FROM carts WHERE cart_key=$1`, cartKey).Scan(&cartRaw)
	if err != nil && err != sql.ErrNoRows {
		return nil, &errs.Error{Code: errs.Internal, Message: "فشل جلب السلة"}
	}
	var cartState cartstore.State
	if len(cartRaw) > 0 {
		if err := json.Unmarshal(cartRaw, &cartState); err != nil {
			return nil, &errs.Error{Code: errs.Internal, Message: "حالة السلة تالفة"}
		}
	}
	if len(cartState.Items) == 0 {
		return nil, &errs.Error{Code: "ORD_CART_EMPTY", Message: "السلة فارغة"}
	}

	// Settings snapshot
	vatRate := 0.0
	shippingFee := 25.0
	freeThreshold := 500.0
	if s := config.GetSettings(); s != nil {
		if s.VATEnabled {
			vatRate = s.VATRate
		}
		shippingFee = s.ShippingFlatFee
		freeThreshold = s.ShippingFreeThreshold
	}

	tx, err := db.Stdlib().BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, &errs.Error{Code: errs.Internal, Message: "فشل إنشاء معاملة"}
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	type line struct {
		productID  int64
		qty        int
		unitNet    float64
		unitGross  float64
		lineGross  float64
		nameAr     string
		nameEn     string
	}
	var lines []line
	var netTotals []float64

	for _, item := range cartState.Items {
		pid, convErr := strconv.ParseInt(item.ProductID, 10, 64)
		if convErr != nil {
			continue
		}
		var l line
		var status string
		var stock int
		err = tx.QueryRowContext(ctx, `
            SELECT id, name_ar, name_en, price_net, stock_qty, status::text
            FROM products WHERE id=$1 FOR UPDATE
        `, pid).Scan(&l.productID, &l.nameAr, &l.nameEn, &l.unitNet, &stock, &status)
		if err != nil {
			if err == sql.ErrNoRows {
				err = nil
				continue // vanished products silently drop from the order
			}
			return nil, &errs.Error{Code: errs.Internal, Message: "فشل قراءة المنتج"}
		}
		if status != "available" {
			err = fmt.Errorf("unavailable")
			return nil, &errs.Error{Code: "ORD_PRODUCT_UNAVAILABLE", Message: "منتج في سلتك لم يعد متاحًا: " + l.nameAr}
		}
		if stock < item.Quantity {
			err = fmt.Errorf("stock")
			return nil, &errs.Error{Code: "ORD_INSUFFICIENT_STOCK", Message: "الكمية المطلوبة غير متوفرة: " + l.nameAr}
		}

		l.qty = item.Quantity
		l.unitGross = money.GrossFromNet(l.unitNet, vatRate)
		l.lineGross = money.LineTotal(l.unitGross, l.qty)
		lines = append(lines, l)
		netTotals = append(netTotals, money.LineTotal(l.unitNet, l.qty))
	}

	if len(lines) == 0 {
		err = fmt.Errorf("empty")
		return nil, &errs.Error{Code: "ORD_CART_EMPTY", Message: "السلة فارغة"}
	}

	subtotal := money.Sum(netTotals...)
	vatAmount := money.VATFromNet(subtotal, vatRate)
	shipping := shippingFee
	if freeThreshold > 0 && subtotal >= freeThreshold {
		shipping = 0
	}
	grandTotal := money.Sum(subtotal, vatAmount, shipping)

	// Create order
	year := time.Now().UTC().Year()
	var orderNumber string
	if err = tx.QueryRowContext(ctx, `SELECT next_order_number($1)`, year).Scan(&orderNumber); err != nil {
		return nil, &errs.Error{Code: errs.Internal, Message: "فشل ترقيم الطلب"}
	}

	var orderID int64
	if err = tx.QueryRowContext(ctx, `
        INSERT INTO orders (user_id, order_number, status, idem_key, subtotal, vat_amount, vat_rate_snapshot,
                            shipping_fee, grand_total, shipping_address, notes)
        VALUES ($1,$2,'pending',$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id
    `, userID, orderNumber, key, subtotal, vatAmount, vatRate, shipping, grandTotal, addressJSON, req.Notes).Scan(&orderID); err != nil {
		return nil, &errs.Error{Code: errs.Internal, Message: "فشل إنشاء الطلب"}
	}

	for _, l := range lines {
		if _, err = tx.ExecContext(ctx, `
            INSERT INTO order_items (order_id, product_id, qty, unit_price_net, unit_price_gross, line_total_gross)
            VALUES ($1,$2,$3,$4,$5,$6)
        `, orderID, l.productID, l.qty, l.unitNet, l.unitGross, l.lineGross); err != nil {
			return nil, &errs.Error{Code: errs.Internal, Message: "فشل إدراج عنصر الطلب"}
		}
		// Decrement stock; status flips when the last unit sells
		if _, err = tx.ExecContext(ctx, `
            UPDATE products
            SET stock_qty = stock_qty - $1,
                status = CASE WHEN stock_qty - $1 <= 0 THEN 'out_of_stock' ELSE status END
            WHERE id = $2
        `, l.qty, l.productID); err != nil {
			return nil, &errs.Error{Code: errs.Internal, Message: "فشل تحديث المخزون"}
		}
	}

	// Clear the consumed cart
	if _, err = tx.ExecContext(ctx, `DELETE FROM carts WHERE cart_key=$1`, cartKey); err != nil {
		return nil, &errs.Error{Code: errs.Internal, Message: "فشل إفراغ السلة"}
	}

	// Queue the confirmation email
	if _, err = tx.ExecContext(ctx, `
        INSERT INTO notifications (user_id, channel, template_id, payload, status)
        SELECT id, 'email', 'order_confirmation',
               jsonb_build_object(
                   'email', email, 'name', name, 'language', COALESCE(preferred_lang, 'ar'),
                   'OrderNumber', $2::text, 'GrandTotal', $3::text
               ),
               'queued'
        FROM users WHERE id = $1
    `, userID, orderNumber, money.Format(grandTotal, "SAR")); err != nil {
		return nil, &errs.Error{Code: errs.Internal, Message: "فشل جدولة بريد التأكيد"}
	}

	if err = tx.Commit(); err != nil {
		return nil, &errs.Error{Code: errs.Internal, Message: "فشل الحفظ"}
	}

	metrics.OrdersCreatedTotal.Inc()

	return &CreateOrderResponse{
		OrderID:     orderID,
		OrderNumber: orderNumber,
		Status:      "pending",
		Subtotal:    subtotal,
		VATAmount:   vatAmount,
		Shipping:    shipping,
		GrandTotal:  grandTotal,
	}, nil
}

func hashKey(s string) uint64 {
	var h uint64 = 1469598103934665603
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}

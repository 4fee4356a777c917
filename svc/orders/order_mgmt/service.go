package order_mgmt

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"

	"encore.dev/beta/auth"
	"encore.dev/storage/sqldb"

	"encore.app/pkg/audit"
	"encore.app/pkg/errs"
	"encore.app/pkg/metrics"
)

var db = sqldb.Named("coredb")

//encore:service
type Service struct{}

func initService() (*Service, error) { return &Service{}, nil }

// validTransitions enumerates the allowed order status transitions.
// pending → processing → shipped → delivered; cancellation is possible
// until the order ships.
var validTransitions = map[string][]string{
	"pending":    {"processing", "cancelled"},
	"processing": {"shipped", "cancelled"},
	"shipped":    {"delivered"},
	"delivered":  {},
	"cancelled":  {},
}

func canTransition(from, to string) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Paginate struct {
	Page  int    `query:"page"`
	Limit int    `query:"limit"`
	Status string `query:"status"` // optional filter (admin list)
}

type OrderSummary struct {
	ID           int64   `json:"id"`
	OrderNumber  string  `json:"order_number"`
	Status       string  `json:"status"`
	GrandTotal   float64 `json:"grand_total"`
	CreatedAtISO string  `json:"created_at"`
}

type OrdersResponse struct {
	Items []OrderSummary `json:"items"`
}

//encore:api auth method=GET path=/orders
func ListMyOrders(ctx context.Context, q *Paginate) (*OrdersResponse, error) {
	uidStr, ok := auth.UserID()
	if !ok {
		return nil, &errs.Error{Code: errs.Unauthenticated, Message: "مطلوب تسجيل الدخول"}
	}
	uid, _ := strconv.ParseInt(string(uidStr), 10, 64)
	page, limit := q.Page, q.Limit
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit
	rows, err := db.Stdlib().QueryContext(ctx, `
		SELECT id, order_number, status::text, grand_total, to_char(created_at at time zone 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"')
		FROM orders WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, uid, limit, offset)
	if err != nil {
		return nil, &errs.Error{Code: errs.Internal, Message: "فشل الاستعلام"}
	}
	defer rows.Close()
	var items []OrderSummary
	for rows.Next() {
		var it OrderSummary
		if err := rows.Scan(&it.ID, &it.OrderNumber, &it.Status, &it.GrandTotal, &it.CreatedAtISO); err != nil {
			return nil, &errs.Error{Code: errs.Internal, Message: "فشل القراءة"}
		}
		items = append(items, it)
	}
	return &OrdersResponse{Items: items}, nil
}

type OrderDetail struct {
	ID              int64            `json:"id"`
	OrderNumber     string           `json:"order_number"`
	Status          string           `json:"status"`
	Items           []OrderItem      `json:"items"`
	Totals          OrderTotals      `json:"totals"`
	UserID          int64            `json:"user_id,omitempty"`
	UserName        string           `json:"user_name,omitempty"`
	UserEmail       string           `json:"user_email,omitempty"`
	UserPhone       string           `json:"user_phone,omitempty"`
	ShippingAddress *ShippingAddress `json:"shipping_address,omitempty"`
	Notes           string           `json:"notes,omitempty"`
}

// ShippingAddress is the address snapshot stored on the order at checkout.
type ShippingAddress struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	City  string `json:"city,omitempty"`
	Line1 string `json:"line1,omitempty"`
	Line2 string `json:"line2,omitempty"`
}

type OrderItem struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Qty       int     `json:"qty"`
	UnitNet   float64 `json:"unit_price_net"`
	UnitGross float64 `json:"unit_price_gross"`
	LineGross float64 `json:"line_total_gross"`
}

type OrderTotals struct {
	Subtotal   float64 `json:"subtotal"`
	VATAmount  float64 `json:"vat_amount"`
	Shipping   float64 `json:"shipping_fee"`
	GrandTotal float64 `json:"grand_total"`
}

// requireOwnerOrAdmin checks that the caller owns the order or is an admin.
func requireOwnerOrAdmin(ctx context.Context, uid, ownerID int64) error {
	if ownerID == uid {
		return nil
	}
	var role string
	_ = db.Stdlib().QueryRowContext(ctx, `SELECT role::text FROM users WHERE id=$1`, uid).Scan(&role)
	if strings.ToLower(role) != "admin" {
		return &errs.Error{Code: errs.Forbidden, Message: "غير مصرح"}
	}
	return nil
}

//encore:api auth method=GET path=/orders/:id
func GetOrder(ctx context.Context, id string) (*OrderDetail, error) {
	uidStr, ok := auth.UserID()
	if !ok {
		return nil, &errs.Error{Code: errs.Unauthenticated, Message: "مطلوب تسجيل الدخول"}
	}
	uid, _ := strconv.ParseInt(string(uidStr), 10, 64)
	oid, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, &errs.Error{Code: errs.InvalidArgument, Message: "معرّف غير صالح"}
	}

	var ownerID int64
	if err := db.Stdlib().QueryRowContext(ctx, `SELECT user_id FROM orders WHERE id=$1`, oid).Scan(&ownerID); err != nil {
		return nil, &errs.Error{Code: "ORD_NOT_FOUND", Message: "الطلب غير موجود"}
	}
	if err := requireOwnerOrAdmin(ctx, uid, ownerID); err != nil {
		return nil, err
	}

	var det OrderDetail
	det.ID = oid

	var userName, userPhone sql.NullString
	var notes sql.NullString
	var addressJSON []byte

	err = db.Stdlib().QueryRowContext(ctx, `
		SELECT
			o.order_number,
			o.status::text,
			o.subtotal,
			o.vat_amount,
			o.shipping_fee,
			o.grand_total,
			o.user_id,
			o.shipping_address,
			o.notes,
			u.name,
			u.email,
			u.phone
		FROM orders o
		JOIN users u ON u.id = o.user_id
		WHERE o.id = $1
	`, oid).Scan(
		&det.OrderNumber,
		&det.Status,
		&det.Totals.Subtotal,
		&det.Totals.VATAmount,
		&det.Totals.Shipping,
		&det.Totals.GrandTotal,
		&det.UserID,
		&addressJSON,
		&notes,
		&userName,
		&det.UserEmail,
		&userPhone,
	)
	if err != nil {
		return nil, &errs.Error{Code: errs.Internal, Message: "فشل قراءة الطلب"}
	}

	if userName.Valid {
		det.UserName = userName.String
	}
	if userPhone.Valid {
		det.UserPhone = userPhone.String
	}
	if notes.Valid {
		det.Notes = notes.String
	}
	if len(addressJSON) > 0 {
		var addr ShippingAddress
		if err := json.Unmarshal(addressJSON, &addr); err == nil {
			det.ShippingAddress = &addr
		}
	}

	rows, err := db.Stdlib().QueryContext(ctx, `
		SELECT oi.product_id, p.name_ar, oi.qty, oi.unit_price_net, oi.unit_price_gross, oi.line_total_gross
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id=$1
		ORDER BY oi.id
	`, oid)
	if err != nil {
		return nil, &errs.Error{Code: errs.Internal, Message: "فشل قراءة العناصر"}
	}
	defer rows.Close()
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ProductID, &it.Name, &it.Qty, &it.UnitNet, &it.UnitGross, &it.LineGross); err != nil {
			return nil, &errs.Error{Code: errs.Internal, Message: "فشل قراءة عنصر"}
		}
		det.Items = append(det.Items, it)
	}
	return &det, nil
}

// requireAdmin resolves the caller and verifies the admin role.
func requireAdmin(ctx context.Context) (int64, error) {
	uidStr, ok := auth.UserID()
	if !ok {
		return 0, &errs.Error{Code: errs.Unauthenticated, Message: "مطلوب تسجيل الدخول"}
	}
	uid, err := strconv.ParseInt(string(uidStr), 10, 64)
	if err != nil {
		return 0, &errs.Error{Code: errs.InvalidArgument, Message: "معرّف مستخدم غير صالح"}
	}
	var role string
	if err := db.Stdlib().QueryRowContext(ctx, `SELECT role::text FROM users WHERE id=$1 AND state='active'`, uid).Scan(&role); err != nil {
		return 0, &errs.Error{Code: errs.Internal, Message: "فشل التحقق من الصلاحيات"}
	}
	if strings.ToLower(role) != "admin" {
		return 0, &errs.Error{Code: errs.Forbidden, Message: "يتطلب صلاحيات مدير"}
	}
	return uid, nil
}

//encore:api auth method=GET path=/admin/orders
func AdminListOrders(ctx context.Context, q *Paginate) (*OrdersResponse, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	page, limit := q.Page, q.Limit
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	query := `
		SELECT id, order_number, status::text, grand_total, to_char(created_at at time zone 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"')
		FROM orders`
	args := []interface{}{}
	if q.Status != "" {
		if _, ok := validTransitions[q.Status]; !ok {
			return nil, &errs.Error{Code: errs.InvalidArgument, Message: "حالة طلب غير صالحة"}
		}
		query += ` WHERE status = $1`
		args = append(args, q.Status)
	}
	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := db.Stdlib().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &errs.Error{Code: errs.Internal, Message: "فشل الاستعلام"}
	}
	defer rows.Close()
	var items []OrderSummary
	for rows.Next() {
		var it OrderSummary
		if err := rows.Scan(&it.ID, &it.OrderNumber, &it.Status, &it.GrandTotal, &it.CreatedAtISO); err != nil {
			return nil, &errs.Error{Code: errs.Internal, Message: "فشل القراءة"}
		}
		items = append(items, it)
	}
	return &OrdersResponse{Items: items}, nil
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

type UpdateOrderStatusResponse struct {
	OrderID   int64  `json:"order_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

//encore:api auth method=PATCH path=/admin/orders/:id/status
func AdminUpdateOrderStatus(ctx context.Context, id string, req *UpdateOrderStatusRequest) (*UpdateOrderStatusResponse, error) {
	adminID, err := requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	oid, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, &errs.Error{Code: errs.InvalidArgument, Message: "معرّف غير صالح"}
	}
	if req == nil || req.Status == "" {
		return nil, &errs.Error{Code: errs.InvalidArgument, Message: "الحالة الجديدة مطلوبة"}
	}
	if _, ok := validTransitions[req.Status]; !ok {
		return nil, &errs.Error{Code: errs.InvalidArgument, Message: "حالة طلب غير صالحة"}
	}

	tx, err := db.Stdlib().BeginTx(ctx, nil)
	if err != nil {
		return nil, &errs.Error{Code: errs.Internal, Message: "فشل إنشاء معاملة"}
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current string
	var userID int64
	var orderNumber string
	if err = tx.QueryRowContext(ctx, `SELECT status::text, user_id, order_number FROM orders WHERE id=$1 FOR UPDATE`, oid).Scan(&current, &userID, &orderNumber); err != nil {
		if err == sql.ErrNoRows {
			return nil, &errs.Error{Code: "ORD_NOT_FOUND", Message: "الطلب غير موجود"}
		}
		return nil, &errs.Error{Code: errs.Internal, Message: "فشل قراءة الطلب"}
	}

	if !canTransition(current, req.Status) {
		_ = tx.Rollback()
		return nil, &errs.Error{Code: "ORD_INVALID_TRANSITION", Message: "لا يمكن نقل الطلب من " + current + " إلى " + req.Status}
	}

	if _, err = tx.ExecContext(ctx, `UPDATE orders SET status=$1, updated_at=NOW() WHERE id=$2`, req.Status, oid); err != nil {
		return nil, &errs.Error{Code: errs.Internal, Message: "فشل تحديث الحالة"}
	}

	// Cancelling restocks every line
	if req.Status == "cancelled" {
		if _, err = tx.ExecContext(ctx, `
			UPDATE products p
			SET stock_qty = p.stock_qty + oi.qty,
			    status = CASE WHEN p.status = 'out_of_stock' THEN 'available' ELSE p.status END
			FROM order_items oi
			WHERE oi.order_id = $1 AND oi.product_id = p.id
		`, oid); err != nil {
			return nil, &errs.Error{Code: errs.Internal, Message: "فشل إعادة المخزون"}
		}
	}

	// Notify the customer about the status change
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO notifications (user_id, channel, template_id, payload, status)
		SELECT id, 'email', 'order_status_update',
		       jsonb_build_object(
		           'email', email, 'name', name, 'language', COALESCE(preferred_lang, 'ar'),
		           'OrderNumber', $2::text, 'Status', $3::text
		       ),
		       'queued'
		FROM users WHERE id = $1
	`, userID, orderNumber, req.Status); err != nil {
		return nil, &errs.Error{Code: errs.Internal, Message: "فشل جدولة بريد الإشعار"}
	}

	if err = tx.Commit(); err != nil {
		return nil, &errs.Error{Code: errs.Internal, Message: "فشل الحفظ"}
	}

	metrics.OrderStatusTransitionsTotal.WithLabelValues(req.Status).Inc()

	opts := []audit.Option{audit.WithActor(adminID)}
	if req.Reason != "" {
		opts = append(opts, audit.WithReason(req.Reason))
	}
	_, _ = audit.LogAction(ctx, db, "orders.status.update", "order", id,
		map[string]string{"from": current, "to": req.Status}, opts...)

	return &UpdateOrderStatusResponse{OrderID: oid, OldStatus: current, NewStatus: req.Status}, nil
}

package adminsettings

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"encore.app/pkg/audit"
	"encore.app/pkg/config"
	"encore.app/pkg/errs"
	"encore.app/pkg/logger"
	"encore.dev/beta/auth"
	"encore.dev/storage/sqldb"
)

var db = sqldb.Named("coredb")

//encore:service
type Service struct {
	cfg *config.ConfigManager
}

//encore:api auth method=POST path=/admin/cities
func (s *Service) CreateCity(ctx context.Context, req *CreateCityRequest) (*ListCitiesResponse, error) {
	if _, ok := auth.UserID(); !ok {
		return nil, errs.New(errs.Unauthenticated, "مطلوب تسجيل الدخول")
	}
	if !isAdmin() {
		return nil, errs.New(errs.Forbidden, "يتطلب صلاحيات مدير")
	}
	if req == nil || strings.TrimSpace(req.NameAr) == "" || strings.TrimSpace(req.ShippingFeeNet) == "" {
		return nil, errs.New(errs.InvalidArgument, "الاسم العربي وقيمة الشحن مطلوبة")
	}
	// Basic numeric validation for shipping fee
	if _, err := strconv.ParseFloat(strings.TrimSpace(req.ShippingFeeNet), 64); err != nil {
		return nil, errs.New(errs.ValidationFailed, "قيمة رسوم الشحن غير صالحة")
	}

	nameEn := ""
	if req.NameEn != nil {
		nameEn = strings.TrimSpace(*req.NameEn)
	}
	nameUr := ""
	if req.NameUr != nil {
		nameUr = strings.TrimSpace(*req.NameUr)
	}

	// Insert city
	if _, err := db.Stdlib().ExecContext(ctx,
		`INSERT INTO cities (name_ar, name_en, name_ur, shipping_fee_net, enabled) VALUES ($1, $2, NULLIF($3,''), $4, $5)`,
		strings.TrimSpace(req.NameAr), nameEn, nameUr, strings.TrimSpace(req.ShippingFeeNet), req.Enabled,
	); err != nil {
		return nil, errs.New(errs.Internal, "فشل إنشاء المدينة")
	}

	return s.ListCities(ctx)
}

func initService() (*Service, error) {
	// Initialize global config manager (safe to call once via sync.Once)
	cfg := config.Initialize(db, 30*time.Second)
	return &Service{cfg: cfg}, nil
}

// isAdmin يتحقق من أن بيانات المصادقة تحمل دور "admin"
func isAdmin() bool {
	if d := auth.Data(); d != nil {
		// Case 1: map[string]any
		if m, ok := d.(map[string]interface{}); ok {
			if role, ok := m["role"].(string); ok {
				return role == "admin"
			}
		}
		// Case 2: struct with field Role (via reflection)
		rv := reflect.ValueOf(d)
		if rv.Kind() == reflect.Ptr {
			rv = rv.Elem()
		}
		if rv.IsValid() && rv.Kind() == reflect.Struct {
			f := rv.FieldByName("Role")
			if f.IsValid() && f.Kind() == reflect.String {
				return f.String() == "admin"
			}
		}
	}
	return false
}

type RawSetting struct {
	Key           string   `json:"key"`
	Value         *string  `json:"value,omitempty"`
	Description   *string  `json:"description,omitempty"`
	AllowedValues []string `json:"allowed_values,omitempty"`
	UpdatedAt     string   `json:"updated_at"`
}

type ListRawSettingsResponse struct {
	Items []RawSetting `json:"items"`
}

//encore:api auth method=GET path=/admin/system-settings
func (s *Service) ListRawSettings(ctx context.Context) (*ListRawSettingsResponse, error) {
	if _, ok := auth.UserID(); !ok {
		return nil, errs.New(errs.Unauthenticated, "مطلوب تسجيل الدخول")
	}
	if !isAdmin() {
		return nil, errs.New(errs.Forbidden, "يتطلب صلاحيات مدير")
	}

	rows, err := db.Stdlib().QueryContext(ctx, `
		SELECT key, value, description,
		       COALESCE(TO_JSON(allowed_values)::text, 'null') AS allowed_json,
		       to_char(updated_at at time zone 'UTC','YYYY-MM-DD"T"HH24:MI:SS"Z"')
		FROM system_settings
		ORDER BY key
	`)
	if err != nil {
		return nil, errs.New(errs.Internal, "فشل الاستعلام عن الإعدادات")
	}
	defer rows.Close()

	var items []RawSetting
	for rows.Next() {
		var key string
		var val sql.NullString
		var desc sql.NullString
		var allowedJSON sql.NullString
		var updated string
		if err := rows.Scan(&key, &val, &desc, &allowedJSON, &updated); err != nil {
			return nil, errs.New(errs.Internal, "فشل قراءة صف الإعداد")
		}
		var allowed []string
		if allowedJSON.Valid && allowedJSON.String != "null" {
			_ = json.Unmarshal([]byte(allowedJSON.String), &allowed)
		}
		var valuePtr *string
		if val.Valid {
			tmp := val.String
			valuePtr = &tmp
		}
		var descPtr *string
		if desc.Valid {
			tmp := desc.String
			descPtr = &tmp
		}
		items = append(items, RawSetting{
			Key:           key,
			Value:         valuePtr,
			Description:   descPtr,
			AllowedValues: allowed,
			UpdatedAt:     updated,
		})
	}
	return &ListRawSettingsResponse{Items: items}, nil
}

type RuntimeSettingsResponse struct {
	Settings *config.SystemSettings `json:"settings"`
}

//encore:api auth method=GET path=/admin/system-settings/runtime
func (s *Service) GetRuntimeSettings(ctx context.Context) (*RuntimeSettingsResponse, error) {
	if _, ok := auth.UserID(); !ok {
		return nil, errs.New(errs.Unauthenticated, "مطلوب تسجيل الدخول")
	}
	if !isAdmin() {
		return nil, errs.New(errs.Forbidden, "يتطلب صلاحيات مدير")
	}
	return &RuntimeSettingsResponse{Settings: s.cfg.GetSettings()}, nil
}

type GetKeyRequest struct {
	Key string `query:"key"`
}

type GetKeyResponse struct {
	Item RawSetting `json:"item"`
}

//encore:api auth method=GET path=/admin/system-settings/get
func (s *Service) GetKey(ctx context.Context, req *GetKeyRequest) (*GetKeyResponse, error) {
	if _, ok := auth.UserID(); !ok {
		return nil, errs.New(errs.Unauthenticated, "مطلوب تسجيل الدخول")
	}
	if !isAdmin() {
		return nil, errs.New(errs.Forbidden, "يتطلب صلاحيات مدير")
	}
	if req == nil || req.Key == "" {
		return nil, errs.New(errs.InvalidArgument, "المفتاح مطلوب")
	}

	row := db.Stdlib().QueryRowContext(ctx, `
		SELECT key, value, description,
		       COALESCE(TO_JSON(allowed_values)::text, 'null') AS allowed_json,
		       to_char(updated_at at time zone 'UTC','YYYY-MM-DD"T"HH24:MI:SS"Z"')
		FROM system_settings WHERE key=$1
	`, req.Key)

	var key string
	var val sql.NullString
	var desc sql.NullString
	var allowedJSON sql.NullString
	var updated string
	if err := row.Scan(&key, &val, &desc, &allowedJSON, &updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, errs.New(errs.NotFound, "الإعداد غير موجود")
		}
		return nil, errs.New(errs.Internal, "فشل قراءة الإعداد")
	}
	var allowed []string
	if allowedJSON.Valid && allowedJSON.String != "null" {
		_ = json.Unmarshal([]byte(allowedJSON.String), &allowed)
	}
	var valuePtr *string
	if val.Valid {
		tmp := val.String
		valuePtr = &tmp
	}
	var descPtr *string
	if desc.Valid {
		tmp := desc.String
		descPtr = &tmp
	}
	return &GetKeyResponse{Item: RawSetting{
		Key:           key,
		Value:         valuePtr,
		Description:   descPtr,
		AllowedValues: allowed,
		UpdatedAt:     updated,
	}}, nil
}

type UpdateSettingItem struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type UpdateSettingsRequest struct {
	Items []UpdateSettingItem `json:"items"`
}

type UpdateError struct {
	Key     string `json:"key"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type UpdateSettingsResponse struct {
	Updated int           `json:"updated"`
	Errors  []UpdateError `json:"errors,omitempty"`
}

// ====== History API Types ======
type SettingsHistoryRequest struct {
	Key   string `query:"key"`
	Limit int    `query:"limit"`
}

type SettingsHistoryItem struct {
	Key      string          `json:"key"`
	OldValue *string         `json:"old_value,omitempty"`
	NewValue *string         `json:"new_value,omitempty"`
	ActorID  *int64          `json:"actor_user_id,omitempty"`
	At       string          `json:"at"`
	Meta     json.RawMessage `json:"meta,omitempty"`
}

type SettingsHistoryResponse struct {
	Items []SettingsHistoryItem `json:"items"`
}

//encore:api auth method=PUT path=/admin/system-settings
func (s *Service) UpdateSettings(ctx context.Context, req *UpdateSettingsRequest) (*UpdateSettingsResponse, error) {
	uidStr, ok := auth.UserID()
	if !ok {
		return nil, errs.New(errs.Unauthenticated, "مطلوب تسجيل الدخول")
	}
	// تحويل معرف المستخدم لاستخدامه في سجل التدقيق
	var actorID *int64
	if id64, err := strconv.ParseInt(string(uidStr), 10, 64); err == nil {
		actorID = &id64
	}
	if !isAdmin() {
		return nil, errs.New(errs.Forbidden, "يتطلب صلاحيات مدير")
	}
	if req == nil || len(req.Items) == 0 {
		return nil, errs.New(errs.InvalidArgument, "قائمة التحديثات مطلوبة")
	}

	resp := &UpdateSettingsResponse{}

	for _, it := range req.Items {
		if it.Key == "" {
			resp.Errors = append(resp.Errors, UpdateError{Key: it.Key, Code: errs.InvalidArgument, Message: "مفتاح فارغ"})
			continue
		}
		// Fetch allowed values (if any)
		var allowedJSON sql.NullString
		row := db.Stdlib().QueryRowContext(ctx, `SELECT COALESCE(TO_JSON(allowed_values)::text, 'null') FROM system_settings WHERE key=$1`, it.Key)
		if err := row.Scan(&allowedJSON); err != nil {
			if err == sql.ErrNoRows {
				resp.Errors = append(resp.Errors, UpdateError{Key: it.Key, Code: errs.NotFound, Message: "الإعداد غير موجود"})
				continue
			}
			resp.Errors = append(resp.Errors, UpdateError{Key: it.Key, Code: errs.Internal, Message: "فشل التحقق من الإعداد"})
			continue
		}
		var allowed []string
		if allowedJSON.Valid && allowedJSON.String != "null" {
			_ = json.Unmarshal([]byte(allowedJSON.String), &allowed)
		}
		// Validate against allowed values if present
		if len(allowed) > 0 {
			ok := false
			for _, v := range allowed {
				if v == it.Value {
					ok = true
					break
				}
			}
			if !ok {
				resp.Errors = append(resp.Errors, UpdateError{Key: it.Key, Code: errs.ValidationFailed, Message: "قيمة غير مسموحة"})
				continue
			}
		}

		// JSON array validation for specific keys
		if it.Key == "store.supported_languages" || it.Key == "store.display_currencies" || it.Key == "cors.allowed_origins" || it.Key == "media.allowed_types" {
			var arr []string
			if err := json.Unmarshal([]byte(it.Value), &arr); err != nil {
				resp.Errors = append(resp.Errors, UpdateError{Key: it.Key, Code: errs.ValidationFailed, Message: "يجب أن تكون قيمة JSON Array صالحة من السلاسل"})
				continue
			}
		}

		// Additional type validations for known numeric keys
		if verr := validateKeyValue(it.Key, it.Value); verr != nil {
			resp.Errors = append(resp.Errors, UpdateError{Key: it.Key, Code: verr.Code, Message: verr.Message})
			continue
		}
		// Capture current value before update for audit (غير مانع في حال الفشل)
		var oldVal sql.NullString
		if err := db.Stdlib().QueryRowContext(ctx, `SELECT value FROM system_settings WHERE key=$1`, it.Key).Scan(&oldVal); err != nil && err != sql.ErrNoRows {
			// غير مانع: نستمر في التحديث حتى لو تعذر جلب القيمة القديمة
		}

		// Perform update (will trigger async reload)
		if err := s.cfg.UpdateSetting(ctx, it.Key, it.Value); err != nil {
			resp.Errors = append(resp.Errors, UpdateError{Key: it.Key, Code: errs.Internal, Message: "فشل تحديث الإعداد"})
			continue
		}

		// Audit logging (non-blocking): سجّل الفرق بين القديم والجديد
		meta := map[string]interface{}{
			"key":       it.Key,
			"new_value": it.Value,
		}
		if oldVal.Valid {
			meta["old_value"] = oldVal.String
		} else {
			meta["old_value"] = nil
		}
		if _, aerr := audit.Log(ctx, db, audit.Entry{
			ActorUserID: actorID,
			Action:      "system_settings.update",
			EntityType:  "system_setting",
			EntityID:    it.Key,
			Meta:        meta,
		}); aerr != nil {
			logger.LogError(ctx, aerr, "failed to write audit log for system setting update", logger.Fields{"key": it.Key})
		}

		resp.Updated++
	}

	return resp, nil
}

//encore:api auth method=GET path=/admin/system-settings/history
func (s *Service) GetSettingsHistory(ctx context.Context, req *SettingsHistoryRequest) (*SettingsHistoryResponse, error) {
	if _, ok := auth.UserID(); !ok {
		return nil, errs.New(errs.Unauthenticated, "مطلوب تسجيل الدخول")
	}
	if !isAdmin() {
		return nil, errs.New(errs.Forbidden, "يتطلب صلاحيات مدير")
	}

	limit := 50
	if req != nil && req.Limit > 0 && req.Limit <= 200 {
		limit = req.Limit
	}

	var rows *sql.Rows
	var err error
	if req != nil && req.Key != "" {
		rows, err = db.Stdlib().QueryContext(ctx, `
			SELECT entity_id AS key,
			       (meta->>'old_value') AS old_value,
			       (meta->>'new_value') AS new_value,
			       actor_user_id,
			       to_char(created_at at time zone 'UTC','YYYY-MM-DD"T"HH24:MI:SS"Z"') as at,
			       meta
			FROM audit_logs
			WHERE action = 'system_settings.update' AND entity_type = 'system_setting' AND entity_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		`, req.Key, limit)
	} else {
		rows, err = db.Stdlib().QueryContext(ctx, `
			SELECT entity_id AS key,
			       (meta->>'old_value') AS old_value,
			       (meta->>'new_value') AS new_value,
			       actor_user_id,
			       to_char(created_at at time zone 'UTC','YYYY-MM-DD"T"HH24:MI:SS"Z"') as at,
			       meta
			FROM audit_logs
			WHERE action = 'system_settings.update' AND entity_type = 'system_setting'
			ORDER BY created_at DESC
			LIMIT $1
		`, limit)
	}
	if err != nil {
		return nil, errs.New(errs.Internal, "فشل قراءة السجل التدقيقي")
	}
	defer rows.Close()

	items := make([]SettingsHistoryItem, 0, limit)
	for rows.Next() {
		var key string
		var oldVal, newVal sql.NullString
		var actor sql.NullInt64
		var at string
		var metaJSON json.RawMessage
		if err := rows.Scan(&key, &oldVal, &newVal, &actor, &at, &metaJSON); err != nil {
			return nil, errs.New(errs.Internal, "فشل قراءة صف السجل")
		}
		var actorPtr *int64
		if actor.Valid {
			v := actor.Int64
			actorPtr = &v
		}
		var oldPtr *string
		if oldVal.Valid {
			v := oldVal.String
			oldPtr = &v
		}
		var newPtr *string
		if newVal.Valid {
			v := newVal.String
			newPtr = &v
		}

		items = append(items, SettingsHistoryItem{
			Key:      key,
			OldValue: oldPtr,
			NewValue: newPtr,
			ActorID:  actorPtr,
			At:       at,
			Meta:     metaJSON,
		})
	}

	return &SettingsHistoryResponse{Items: items}, nil
}

// validateKeyValue يطبّق تحققًا إضافيًا للأنواع/النطاقات للمفاتيح المعروفة
func validateKeyValue(key, value string) *errs.Error {
	// Integer keys (> 0)
	intKeysGTZero := map[string]bool{
		"cors.max_age":                       true,
		"security.session_timeout":           true,
		"security.max_login_attempts":        true,
		"security.lockout_duration":          true,
		"notifications.email.retention_days": true,
		"cart.guest_session_ttl_days":        true,
		"cart.max_quantity_per_item":         true,
		"catalog.default_page_size":          true,
		"catalog.max_page_size":              true,
		"contact.rate_limit_per_hour":        true,
		"newsletter.rate_limit_per_hour":     true,
	}

	// Bounded integer keys
	bounded := map[string]struct{ Min, Max int }{
		"cart.max_quantity_per_item":     {Min: 1, Max: 50},
		"cart.guest_session_ttl_days":    {Min: 1, Max: 90},
		"catalog.default_page_size":      {Min: 5, Max: 100},
		"catalog.max_page_size":          {Min: 10, Max: 200},
		"contact.rate_limit_per_hour":    {Min: 1, Max: 100},
		"newsletter.rate_limit_per_hour": {Min: 1, Max: 100},
	}

	if intKeysGTZero[key] {
		i, err := strconv.Atoi(value)
		if err != nil {
			return errs.New(errs.ValidationFailed, "يجب أن تكون قيمة صحيحة")
		}
		if i <= 0 {
			return errs.New(errs.ValidationFailed, "يجب أن تكون أكبر من صفر")
		}
		if b, ok := bounded[key]; ok {
			if i < b.Min || i > b.Max {
				return errs.New(errs.ValidationFailed, fmt.Sprintf("القيمة يجب أن تكون بين %d و %d", b.Min, b.Max))
			}
		}
		return nil
	}

	// int64 keys
	if key == "media.max_file_size" {
		if _, err := strconv.ParseInt(value, 10, 64); err != nil {
			return errs.New(errs.ValidationFailed, "حجم الملف غير صالح")
		}
		return nil
	}

	// float keys
	switch key {
	case "vat.rate":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return errs.New(errs.ValidationFailed, "قيمة رقمية غير صالحة")
		}
		if f < 0 || f > 0.25 {
			return errs.New(errs.ValidationFailed, "النسبة يجب أن تكون بين 0 و 0.25")
		}
		return nil
	case "shipping.flat_fee", "shipping.free_shipping_threshold":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return errs.New(errs.ValidationFailed, "قيمة رقمية غير صالحة")
		}
		if f < 0 {
			return errs.New(errs.ValidationFailed, "يجب ألا تكون سالبة")
		}
		return nil
	case "media.watermark.opacity":
		i, err := strconv.Atoi(value)
		if err != nil {
			return errs.New(errs.ValidationFailed, "يجب أن تكون قيمة صحيحة")
		}
		if i < 0 || i > 100 {
			return errs.New(errs.ValidationFailed, "الشفافية يجب أن تكون بين 0 و 100")
		}
		return nil
	}

	// Boolean and string/slice keys إما مقيّدة عبر allowed_values أو لا تحتاج تحقق إضافي
	return nil
}

// ====== Admin Dashboard Stats ======

type AdminDashboardStats struct {
	UsersTotal           int64  `json:"users_total"`
	UsersVerified        int64  `json:"users_verified"`
	ProductsTotal        int64  `json:"products_total"`
	ProductsAvailable    int64  `json:"products_available"`
	ProductsOutOfStock   int64  `json:"products_out_of_stock"`
	ProductsArchived     int64  `json:"products_archived"`
	CategoriesActive     int64  `json:"categories_active"`
	OrdersPending        int64  `json:"orders_pending"`
	OrdersProcessing     int64  `json:"orders_processing"`
	OrdersShipped        int64  `json:"orders_shipped"`
	OrdersDelivered      int64  `json:"orders_delivered"`
	OrdersCancelled      int64  `json:"orders_cancelled"`
	ContactsNew          int64  `json:"contacts_new"`
	TestimonialsPending  int64  `json:"testimonials_pending"`
	NewsletterSubscribed int64  `json:"newsletter_subscribed"`
	EmailsQueued         int64  `json:"emails_queued"`
	EmailsFailed         int64  `json:"emails_failed"`
	GeneratedAt          string `json:"generated_at"`
}

//encore:api auth method=GET path=/admin/dashboard/stats
func (s *Service) GetAdminDashboardStats(ctx context.Context) (*AdminDashboardStats, error) {
	if _, ok := auth.UserID(); !ok {
		return nil, errs.New(errs.Unauthenticated, "مطلوب تسجيل الدخول")
	}
	if !isAdmin() {
		return nil, errs.New(errs.Forbidden, "يتطلب صلاحيات مدير")
	}

	query := `
		SELECT
			(SELECT COUNT(*) FROM users) AS users_total,
			(SELECT COUNT(*) FROM users WHERE email_verified_at IS NOT NULL) AS users_verified,
			(SELECT COUNT(*) FROM products) AS products_total,
			(SELECT COUNT(*) FROM products WHERE status='available') AS products_available,
			(SELECT COUNT(*) FROM products WHERE status='out_of_stock') AS products_out_of_stock,
			(SELECT COUNT(*) FROM products WHERE status='archived') AS products_archived,
			(SELECT COUNT(*) FROM categories WHERE active=true) AS categories_active,
			(SELECT COUNT(*) FROM orders WHERE status='pending') AS orders_pending,
			(SELECT COUNT(*) FROM orders WHERE status='processing') AS orders_processing,
			(SELECT COUNT(*) FROM orders WHERE status='shipped') AS orders_shipped,
			(SELECT COUNT(*) FROM orders WHERE status='delivered') AS orders_delivered,
			(SELECT COUNT(*) FROM orders WHERE status='cancelled') AS orders_cancelled,
			(SELECT COUNT(*) FROM contacts WHERE status='new') AS contacts_new,
			(SELECT COUNT(*) FROM testimonials WHERE status='pending') AS testimonials_pending,
			(SELECT COUNT(*) FROM newsletter_subscribers WHERE status='subscribed') AS newsletter_subscribed,
			(SELECT COUNT(*) FROM notifications WHERE channel='email' AND status='queued') AS emails_queued,
			(SELECT COUNT(*) FROM notifications WHERE channel='email' AND status='failed') AS emails_failed
	`

	var st AdminDashboardStats
	row := db.Stdlib().QueryRowContext(ctx, query)
	if err := row.Scan(
		&st.UsersTotal,
		&st.UsersVerified,
		&st.ProductsTotal,
		&st.ProductsAvailable,
		&st.ProductsOutOfStock,
		&st.ProductsArchived,
		&st.CategoriesActive,
		&st.OrdersPending,
		&st.OrdersProcessing,
		&st.OrdersShipped,
		&st.OrdersDelivered,
		&st.OrdersCancelled,
		&st.ContactsNew,
		&st.TestimonialsPending,
		&st.NewsletterSubscribed,
		&st.EmailsQueued,
		&st.EmailsFailed,
	); err != nil {
		return nil, errs.New(errs.Internal, "فشل جلب إحصائيات لوحة الإدارة")
	}

	st.GeneratedAt = time.Now().UTC().Format("2006-01-02T15:04:05Z")
	return &st, nil
}

// ====== Admin: Update User Role ======

type UpdateUserRoleRequest struct {
	Role   string  `json:"role"` // customer|admin
	Reason *string `json:"reason,omitempty"`
}

type AdminUserRoleItem struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	State string `json:"state"`
}

//encore:api auth method=POST path=/admin/users/:id/role
func (s *Service) UpdateUserRole(ctx context.Context, id int64, req *UpdateUserRoleRequest) (*AdminUserRoleItem, error) {
	uidStr, ok := auth.UserID()
	if !ok {
		return nil, errs.New(errs.Unauthenticated, "مطلوب تسجيل الدخول")
	}
	if !isAdmin() {
		return nil, errs.New(errs.Forbidden, "يتطلب صلاحيات مدير")
	}
	if req == nil || strings.TrimSpace(req.Role) == "" {
		return nil, errs.New(errs.InvalidArgument, "الدور مطلوب")
	}
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role != "customer" && role != "admin" {
		return nil, errs.New(errs.ValidationFailed, "دور غير مسموح")
	}

	// Admins cannot change their own role
	if actor, err := strconv.ParseInt(string(uidStr), 10, 64); err == nil && actor == id {
		return nil, errs.New(errs.FailedPrecondition, "لا يمكنك تغيير دورك الخاص")
	}

	var it AdminUserRoleItem
	err := db.Stdlib().QueryRowContext(ctx, `
		UPDATE users SET role=$1, updated_at=(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')
		WHERE id=$2
		RETURNING id, COALESCE(name,''), COALESCE(email,''), role::text, state::text
	`, role, id).Scan(&it.ID, &it.Name, &it.Email, &it.Role, &it.State)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errs.New(errs.NotFound, "المستخدم غير موجود")
		}
		return nil, errs.New(errs.Internal, "فشل تحديث الدور")
	}

	// Audit
	meta := map[string]interface{}{"user_id": id, "new_role": role}
	if req.Reason != nil {
		meta["reason"] = *req.Reason
	}
	if _, aerr := audit.Log(ctx, db, audit.Entry{
		Action:     "admin.user.role.update",
		EntityType: "user",
		EntityID:   fmt.Sprintf("%d", id),
		Meta:       meta,
	}); aerr != nil {
		logger.LogError(ctx, aerr, "failed to write audit log for user role update", logger.Fields{"user_id": id})
	}

	return &it, nil
}

// ====== Admin: Low Stock Products ======

type LowStockRequest struct {
	Limit int `query:"limit"`
}

type LowStockItem struct {
	ID         int64  `json:"id"`
	NameAr     string `json:"name_ar"`
	NameEn     string `json:"name_en"`
	Slug       string `json:"slug"`
	StockQty   int    `json:"stock_qty"`
	LowStockAt int    `json:"low_stock_threshold"`
	Status     string `json:"status"`
}

type LowStockResponse struct {
	Items []LowStockItem `json:"items"`
}

//encore:api auth method=GET path=/admin/products/low-stock
func (s *Service) ListLowStockProducts(ctx context.Context, req *LowStockRequest) (*LowStockResponse, error) {
	if _, ok := auth.UserID(); !ok {
		return nil, errs.New(errs.Unauthenticated, "مطلوب تسجيل الدخول")
	}
	if !isAdmin() {
		return nil, errs.New(errs.Forbidden, "يتطلب صلاحيات مدير")
	}

	limit := 50
	if req != nil && req.Limit > 0 && req.Limit <= 200 {
		limit = req.Limit
	}

	rows, err := db.Stdlib().QueryContext(ctx, `
		SELECT id, name_ar, name_en, slug, stock_qty, low_stock_threshold, status::text
		FROM products
		WHERE status <> 'archived' AND stock_qty <= low_stock_threshold
		ORDER BY stock_qty ASC, updated_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, errs.New(errs.Internal, "فشل قراءة المنتجات")
	}
	defer rows.Close()

	resp := &LowStockResponse{}
	for rows.Next() {
		var it LowStockItem
		if err := rows.Scan(&it.ID, &it.NameAr, &it.NameEn, &it.Slug, &it.StockQty, &it.LowStockAt, &it.Status); err != nil {
			return nil, errs.New(errs.Internal, "فشل قراءة صف منتج")
		}
		resp.Items = append(resp.Items, it)
	}
	return resp, nil
}

// ====== Admin: Audit Log Browser ======

type ListAuditLogsRequest struct {
	Action     string `query:"action"`
	EntityType string `query:"entity_type"`
	EntityID   string `query:"entity_id"`
	Page       int    `query:"page"`
	Limit      int    `query:"limit"`
}

type AuditLogItem struct {
	ID         int64           `json:"id"`
	ActorID    *int64          `json:"actor_user_id,omitempty"`
	Action     string          `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Reason     *string         `json:"reason,omitempty"`
	Meta       json.RawMessage `json:"meta,omitempty"`
	CreatedAt  string          `json:"created_at"`
}

type ListAuditLogsResponse struct {
	Items []AuditLogItem `json:"items"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

//encore:api auth method=GET path=/admin/audit-logs
func (s *Service) ListAuditLogs(ctx context.Context, req *ListAuditLogsRequest) (*ListAuditLogsResponse, error) {
	if _, ok := auth.UserID(); !ok {
		return nil, errs.New(errs.Unauthenticated, "مطلوب تسجيل الدخول")
	}
	if !isAdmin() {
		return nil, errs.New(errs.Forbidden, "يتطلب صلاحيات مدير")
	}

	limit := 50
	page := 1
	if req != nil {
		if req.Limit > 0 && req.Limit <= 200 {
			limit = req.Limit
		}
		if req.Page > 0 {
			page = req.Page
		}
	}
	offset := (page - 1) * limit

	base := `SELECT id, actor_user_id, action, entity_type, entity_id, reason, meta,
	                to_char(created_at at time zone 'UTC','YYYY-MM-DD"T"HH24:MI:SS"Z"')
	         FROM audit_logs`
	var whereParts []string
	var args []interface{}
	addArg := func(v interface{}) string { args = append(args, v); return fmt.Sprintf("$%d", len(args)) }
	if req != nil {
		if strings.TrimSpace(req.Action) != "" {
			whereParts = append(whereParts, fmt.Sprintf("action = %s", addArg(req.Action)))
		}
		if strings.TrimSpace(req.EntityType) != "" {
			whereParts = append(whereParts, fmt.Sprintf("entity_type = %s", addArg(req.EntityType)))
		}
		if strings.TrimSpace(req.EntityID) != "" {
			whereParts = append(whereParts, fmt.Sprintf("entity_id = %s", addArg(req.EntityID)))
		}
	}
	where := ""
	if len(whereParts) > 0 {
		where = " WHERE " + strings.Join(whereParts, " AND ")
	}
	order := " ORDER BY created_at DESC"
	pag := fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := db.Stdlib().QueryContext(ctx, base+where+order+pag, args...)
	if err != nil {
		return nil, errs.New(errs.Internal, "فشل قراءة السجل التدقيقي")
	}
	defer rows.Close()

	items := make([]AuditLogItem, 0, limit)
	for rows.Next() {
		var it AuditLogItem
		var actor sql.NullInt64
		var reason sql.NullString
		var meta json.RawMessage
		if err := rows.Scan(&it.ID, &actor, &it.Action, &it.EntityType, &it.EntityID, &reason, &meta, &it.CreatedAt); err != nil {
			return nil, errs.New(errs.Internal, "فشل قراءة صف السجل")
		}
		if actor.Valid {
			v := actor.Int64
			it.ActorID = &v
		}
		if reason.Valid {
			v := reason.String
			it.Reason = &v
		}
		it.Meta = meta
		items = append(items, it)
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM audit_logs" + where
	if err := db.Stdlib().QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		total = int64(len(items))
	}
	return &ListAuditLogsResponse{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// ====== Admin: Orders List ======

type ListOrdersRequest struct {
	Status string `query:"status"` // pending|processing|shipped|delivered|cancelled
	UserID int64  `query:"user_id"`
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`
}

type AdminOrderItem struct {
	ID          int64  `json:"id"`
	OrderNumber string `json:"order_number"`
	UserID      int64  `json:"user_id"`
	Status      string `json:"status"`
	GrandTotal  string `json:"grand_total"`
	CreatedAt   string `json:"created_at"`
}

type ListOrdersResponse struct {
	Items []AdminOrderItem `json:"items"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

//encore:api auth method=GET path=/admin/orders/summary
func (s *Service) ListOrders(ctx context.Context, req *ListOrdersRequest) (*ListOrdersResponse, error) {
	if _, ok := auth.UserID(); !ok {
		return nil, errs.New(errs.Unauthenticated, "مطلوب تسجيل الدخول")
	}
	if !isAdmin() {
		return nil, errs.New(errs.Forbidden, "يتطلب صلاحيات مدير")
	}

	limit := 50
	page := 1
	if req != nil {
		if req.Limit > 0 && req.Limit <= 200 {
			limit = req.Limit
		}
		if req.Page > 0 {
			page = req.Page
		}
	}
	offset := (page - 1) * limit

	base := `SELECT id, order_number, user_id, status::text, grand_total::text,
                    to_char(created_at at time zone 'UTC','YYYY-MM-DD"T"HH24:MI:SS"Z"')
             FROM orders`
	var whereParts []string
	var args []interface{}
	addArg := func(v interface{}) string { args = append(args, v); return fmt.Sprintf("$%d", len(args)) }
	if req != nil {
		if strings.TrimSpace(req.Status) != "" {
			whereParts = append(whereParts, fmt.Sprintf("status = %s", addArg(req.Status)))
		}
		if req.UserID > 0 {
			whereParts = append(whereParts, fmt.Sprintf("user_id = %s", addArg(req.UserID)))
		}
	}
	where := ""
	if len(whereParts) > 0 {
		where = " WHERE " + strings.Join(whereParts, " AND ")
	}
	order := " ORDER BY created_at DESC"
	pag := fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := db.Stdlib().QueryContext(ctx, base+where+order+pag, args...)
	if err != nil {
		return nil, errs.New(errs.Internal, "فشل قراءة الطلبات")
	}
	defer rows.Close()

	items := make([]AdminOrderItem, 0, limit)
	for rows.Next() {
		var it AdminOrderItem
		if err := rows.Scan(&it.ID, &it.OrderNumber, &it.UserID, &it.Status, &it.GrandTotal, &it.CreatedAt); err != nil {
			return nil, errs.New(errs.Internal, "فشل قراءة صف طلب")
		}
		items = append(items, it)
	}
	var total int64
	countQuery := "SELECT COUNT(*) FROM orders" + where
	if err := db.Stdlib().QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		total = int64(len(items))
	}
	return &ListOrdersResponse{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// Cities
type AdminCityItem struct {
	ID             int64  `json:"id"`
	NameAr         string `json:"name_ar"`
	NameEn         string `json:"name_en"`
	NameUr         string `json:"name_ur"`
	ShippingFeeNet string `json:"shipping_fee_net"`
	Enabled        bool   `json:"enabled"`
}

type CreateCityRequest struct {
	NameAr         string  `json:"name_ar"`
	NameEn         *string `json:"name_en,omitempty"`
	NameUr         *string `json:"name_ur,omitempty"`
	ShippingFeeNet string  `json:"shipping_fee_net"` // decimal as string
	Enabled        bool    `json:"enabled"`
}

type ListCitiesResponse struct {
	Items []AdminCityItem `json:"items"`
}

//encore:api auth method=GET path=/admin/cities
func (s *Service) ListCities(ctx context.Context) (*ListCitiesResponse, error) {
	if _, ok := auth.UserID(); !ok {
		return nil, errs.New(errs.Unauthenticated, "مطلوب تسجيل الدخول")
	}
	if !isAdmin() {
		return nil, errs.New(errs.Forbidden, "يتطلب صلاحيات مدير")
	}
	rows, err := db.Stdlib().QueryContext(ctx, `SELECT id, name_ar, name_en, COALESCE(name_ur,''), shipping_fee_net::text, enabled FROM cities ORDER BY id`)
	if err != nil {
		return nil, errs.New(errs.Internal, "فشل قراءة المدن")
	}
	defer rows.Close()
	resp := &ListCitiesResponse{}
	for rows.Next() {
		var it AdminCityItem
		if err := rows.Scan(&it.ID, &it.NameAr, &it.NameEn, &it.NameUr, &it.ShippingFeeNet, &it.Enabled); err != nil {
			return nil, errs.New(errs.Internal, "فشل قراءة صف مدينة")
		}
		resp.Items = append(resp.Items, it)
	}
	return resp, nil
}

type UpdateCityRequest struct {
	Enabled        *bool   `json:"enabled,omitempty"`
	ShippingFeeNet *string `json:"shipping_fee_net,omitempty"` // decimal as string
}

//encore:api auth method=PATCH path=/admin/cities/:id
func (s *Service) UpdateCity(ctx context.Context, id int64, req *UpdateCityRequest) (*ListCitiesResponse, error) {
	if _, ok := auth.UserID(); !ok {
		return nil, errs.New(errs.Unauthenticated, "مطلوب تسجيل الدخول")
	}
	if !isAdmin() {
		return nil, errs.New(errs.Forbidden, "يتطلب صلاحيات مدير")
	}
	if req == nil || (req.Enabled == nil && req.ShippingFeeNet == nil) {
		return nil, errs.New(errs.InvalidArgument, "لا يوجد حقول للتحديث")
	}
	// Build update
	var setParts []string
	var args []interface{}
	if req.Enabled != nil {
		setParts = append(setParts, fmt.Sprintf("enabled=$%d", len(args)+1))
		args = append(args, *req.Enabled)
	}
	if req.ShippingFeeNet != nil {
		setParts = append(setParts, fmt.Sprintf("shipping_fee_net=$%d", len(args)+1))
		args = append(args, *req.ShippingFeeNet)
	}
	args = append(args, id)
	q := fmt.Sprintf("UPDATE cities SET %s WHERE id=$%d", strings.Join(setParts, ", "), len(args))
	if _, err := db.Stdlib().ExecContext(ctx, q, args...); err != nil {
		return nil, errs.New(errs.Internal, "فشل تحديث المدينة")
	}
	return s.ListCities(ctx)
}

// ====== Admin: Archive Product ======

type ArchiveProductRequest struct {
	Reason *string `json:"reason,omitempty"`
}

type ArchiveProductResponse struct {
	Message string `json:"message"`
}

//encore:api auth method=PATCH path=/admin/products/:id/archive
func (s *Service) ArchiveProduct(ctx context.Context, id int64, req *ArchiveProductRequest) (*ArchiveProductResponse, error) {
	uidStr, ok := auth.UserID()
	if !ok {
		return nil, errs.New(errs.Unauthenticated, "مطلوب تسجيل الدخول")
	}
	if !isAdmin() {
		return nil, errs.New(errs.Forbidden, "يتطلب صلاحيات مدير")
	}

	// Convert user ID for audit
	var actorID *int64
	if id64, err := strconv.ParseInt(string(uidStr), 10, 64); err == nil {
		actorID = &id64
	}

	var status string
	err := db.Stdlib().QueryRowContext(ctx,
		`SELECT status::text FROM products WHERE id = $1`, id,
	).Scan(&status)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errs.New(errs.NotFound, "المنتج غير موجود")
		}
		return nil, errs.New(errs.Internal, "فشل التحقق من المنتج")
	}

	if status == "archived" {
		return nil, errs.New(errs.Conflict, "المنتج مؤرشف بالفعل")
	}

	// Update product status to archived
	_, err = db.Stdlib().ExecContext(ctx,
		`UPDATE products SET status = 'archived', updated_at = NOW() WHERE id = $1`,
		id,
	)

	if err != nil {
		return nil, errs.New(errs.Internal, "فشل أرشفة المنتج")
	}

	// Audit log
	meta := map[string]interface{}{
		"product_id": id,
		"old_status": status,
		"new_status": "archived",
	}
	if req != nil && req.Reason != nil {
		meta["reason"] = *req.Reason
	}

	if _, aerr := audit.Log(ctx, db, audit.Entry{
		ActorUserID: actorID,
		Action:      "product.archive",
		EntityType:  "product",
		EntityID:    strconv.FormatInt(id, 10),
		Meta:        meta,
	}); aerr != nil {
		logger.LogError(ctx, aerr, "failed to write audit log for product archive", logger.Fields{"product_id": id})
	}

	return &ArchiveProductResponse{Message: "تم أرشفة المنتج بنجاح"}, nil
}

// ====== Admin: Unarchive Product ======

//encore:api auth method=PATCH path=/admin/products/:id/unarchive
func (s *Service) UnarchiveProduct(ctx context.Context, id int64) (*ArchiveProductResponse, error) {
	uidStr, ok := auth.UserID()
	if !ok {
		return nil, errs.New(errs.Unauthenticated, "مطلوب تسجيل الدخول")
	}
	if !isAdmin() {
		return nil, errs.New(errs.Forbidden, "يتطلب صلاحيات مدير")
	}

	// Convert user ID for audit
	var actorID *int64
	if id64, err := strconv.ParseInt(string(uidStr), 10, 64); err == nil {
		actorID = &id64
	}

	// Check if product exists and is archived
	var status string
	var stockQty int
	err := db.Stdlib().QueryRowContext(ctx,
		`SELECT status::text, stock_qty FROM products WHERE id = $1`, id,
	).Scan(&status, &stockQty)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errs.New(errs.NotFound, "المنتج غير موجود")
		}
		return nil, errs.New(errs.Internal, "فشل التحقق من المنتج")
	}

	if status != "archived" {
		return nil, errs.New(errs.Conflict, "المنتج ليس مؤرشفاً")
	}

	// Restore according to remaining stock
	newStatus := "available"
	if stockQty <= 0 {
		newStatus = "out_of_stock"
	}
	_, err = db.Stdlib().ExecContext(ctx,
		`UPDATE products SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, newStatus,
	)

	if err != nil {
		return nil, errs.New(errs.Internal, "فشل إلغاء أرشفة المنتج")
	}

	// Audit log
	if _, aerr := audit.Log(ctx, db, audit.Entry{
		ActorUserID: actorID,
		Action:      "product.unarchive",
		EntityType:  "product",
		EntityID:    strconv.FormatInt(id, 10),
		Meta: map[string]interface{}{
			"product_id": id,
			"old_status": "archived",
			"new_status": newStatus,
		},
	}); aerr != nil {
		logger.LogError(ctx, aerr, "failed to write audit log for product unarchive", logger.Fields{"product_id": id})
	}

	return &ArchiveProductResponse{Message: "تم إلغاء أرشفة المنتج بنجاح"}, nil
}

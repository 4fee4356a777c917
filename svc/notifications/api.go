package notifications

import (
	"context"
	"encoding/json"
	"reflect"
	"strconv"

	"encore.dev/beta/auth"
	"encore.dev/storage/sqldb"

	"encore.app/pkg/errs"
	"encore.app/pkg/templates"
)

var db = sqldb.Named("coredb")

//encore:service
type Service struct{}

func initService() (*Service, error) { return &Service{}, nil }

type Notification struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Channel   string          `json:"channel"`
	Template  string          `json:"template_id"`
	Payload   json.RawMessage `json:"payload"`
	Status    string          `json:"status"`
	CreatedAt string          `json:"created_at"`
}

type ListResponse struct {
	Items []Notification `json:"items"`
}

// ListQuery معلمات التصفح
type ListQuery struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

//encore:api auth method=GET path=/notifications
func (s *Service) List(ctx context.Context, req *ListQuery) (*ListResponse, error) {
	uidStr, ok := auth.UserID()
	if !ok {
		return nil, errs.New(errs.Unauthenticated, "مطلوب تسجيل الدخول")
	}
	uid, err := strconv.ParseInt(string(uidStr), 10, 64)
	if err != nil {
		return nil, errs.New(errs.InvalidArgument, "معرّف مستخدم غير صالح")
	}
	// ضبط الحدود الافتراضية
	limit := 20
	offset := 0
	if req != nil {
		if req.Limit > 0 {
			if req.Limit > 100 {
				limit = 100
			} else {
				limit = req.Limit
			}
		}
		if req.Offset > 0 {
			offset = req.Offset
		}
	}
	rows, err := db.Stdlib().QueryContext(ctx, `
        SELECT id, user_id, channel::text, template_id, payload, status::text,
               to_char(created_at at time zone 'UTC','YYYY-MM-DD"T"HH24:MI:SS"Z"')
        FROM notifications
        WHERE user_id=$1 AND channel='internal'
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3
    `, uid, limit, offset)
	if err != nil {
		return nil, errs.New(errs.NtfQueueQueryFailed, "فشل الاستعلام")
	}
	defer rows.Close()
	var items []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Channel, &n.Template, &n.Payload, &n.Status, &n.CreatedAt); err != nil {
			return nil, errs.New(errs.NtfQueueQueryFailed, "فشل القراءة")
		}
		items = append(items, n)
	}
	return &ListResponse{Items: items}, nil
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

// TestEmailRequest طلب اختبار البريد الإلكتروني
type TestEmailRequest struct {
	Email      string          `json:"email"`
	TemplateID string          `json:"template_id"`
	Language   string          `json:"language"` // ar, en or ur
	Data       json.RawMessage `json:"data,omitempty"`
}

// TestEmailResponse استجابة اختبار البريد
type TestEmailResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	EmailID int64  `json:"email_id,omitempty"`
}

//encore:api auth method=POST path=/notifications/email/test
func (s *Service) TestEmail(ctx context.Context, req *TestEmailRequest) (*TestEmailResponse, error) {
	uidStr, ok := auth.UserID()
	if !ok {
		return nil, errs.New(errs.Unauthenticated, "مطلوب تسجيل الدخول")
	}
	// Enforce admin-only access using role from auth.Data()
	if !isAdmin() {
		return nil, errs.New(errs.Forbidden, "يتطلب صلاحيات مدير")
	}

	uid, err := strconv.ParseInt(string(uidStr), 10, 64)
	if err != nil {
		return nil, errs.New(errs.InvalidArgument, "معرّف مستخدم غير صالح")
	}

	// Validate template exists
	_, err = templates.GetTemplateInfo(req.TemplateID)
	if err != nil {
		return nil, errs.New(errs.NtfTemplateNotFound, "القالب غير موجود")
	}

	// Prepare test data
	dataMap := make(map[string]interface{})
	if len(req.Data) > 0 {
		_ = json.Unmarshal(req.Data, &dataMap)
	}
	dataMap["email"] = req.Email
	dataMap["name"] = "Test User"
	dataMap["language"] = req.Language

	// Add sample data based on template
	switch req.TemplateID {
	case "welcome":
		dataMap["ActivationURL"] = "https://noor-jewels.com/activate/test-token"
	case "order_confirmation":
		dataMap["OrderNumber"] = "ORD-2026-000123"
		dataMap["GrandTotal"] = "1,725.00 ر.س"
	case "order_status_update":
		dataMap["OrderNumber"] = "ORD-2026-000123"
		dataMap["Status"] = "shipped"
	case "password_reset":
		dataMap["ResetURL"] = "https://noor-jewels.com/reset-password/test-token"
	case "newsletter_welcome":
		dataMap["UnsubscribeURL"] = "https://noor-jewels.com/newsletter/unsubscribe/test-token"
	case "contact_reply":
		dataMap["Subject"] = "استفسار عن طقم لؤلؤ"
		dataMap["Reply"] = "شكرًا لتواصلك معنا، الطقم متوفر حاليًا."
	}

	// Enqueue test email
	emailID, err := EnqueueEmail(ctx, uid, req.TemplateID, dataMap)
	if err != nil {
		return nil, errs.New(errs.NtfQueueInsertFailed, "فشل إرسال البريد التجريبي")
	}

	return &TestEmailResponse{
		Success: true,
		Message: "تم إضافة البريد إلى الطابور بنجاح. سيتم إرساله خلال دقيقتين.",
		EmailID: emailID,
	}, nil
}

// TemplateInfo تمثيل معلومات القالب
type TemplateInfo struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Languages   []string `json:"languages"`
}

// GetTemplatesResponse استجابة القوالب المتاحة
type GetTemplatesResponse struct {
	Templates []TemplateInfo `json:"templates"`
}

//encore:api auth method=GET path=/notifications/templates
func (s *Service) GetTemplates(ctx context.Context) (*GetTemplatesResponse, error) {
	_, ok := auth.UserID()
	if !ok {
		return nil, errs.New(errs.Unauthenticated, "مطلوب تسجيل الدخول")
	}

	templateIDs := templates.GetAvailableTemplates()
	var templatesInfo []TemplateInfo

	for _, id := range templateIDs {
		info, _ := templates.GetTemplateInfo(id)
		ti := TemplateInfo{}
		if v, ok := info["id"].(string); ok {
			ti.ID = v
		}
		if v, ok := info["description"].(string); ok {
			ti.Description = v
		}
		if langs, ok := info["languages"].([]string); ok {
			ti.Languages = langs
		}
		templatesInfo = append(templatesInfo, ti)
	}

	return &GetTemplatesResponse{
		Templates: templatesInfo,
	}, nil
}

// UpdateTemplateRequest طلب تعديل قالب بريد للغة واحدة
type UpdateTemplateRequest struct {
	Lang     string `json:"lang"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
	TextBody string `json:"text_body"`
}

// UpdateTemplateResponse استجابة تعديل القالب
type UpdateTemplateResponse struct {
	Message string `json:"message"`
}

// UpdateTemplate stores an admin override for one language of a built-in
// template. Bodies are validated against the template's known placeholders
// before they are accepted.
//
//encore:api auth method=PUT path=/notifications/templates/:id
func (s *Service) UpdateTemplate(ctx context.Context, id string, req *UpdateTemplateRequest) (*UpdateTemplateResponse, error) {
	if _, ok := auth.UserID(); !ok {
		return nil, errs.New(errs.Unauthenticated, "مطلوب تسجيل الدخول")
	}
	if !isAdmin() {
		return nil, errs.New(errs.Forbidden, "يتطلب صلاحيات مدير")
	}
	if req == nil {
		return nil, errs.New(errs.InvalidArgument, "بيانات غير مكتملة")
	}
	if req.Lang != "ar" && req.Lang != "en" && req.Lang != "ur" {
		return nil, errs.New(errs.InvalidArgument, "lang يجب أن يكون: ar, en, ur")
	}
	if _, err := templates.GetTemplate(id); err != nil {
		return nil, errs.New(errs.NtfTemplateNotFound, "القالب غير موجود")
	}

	for _, body := range []string{req.Subject, req.HTMLBody, req.TextBody} {
		if body == "" {
			continue
		}
		if err := templates.ValidateBody(id, body); err != nil {
			return nil, err
		}
	}

	if _, err := db.Stdlib().ExecContext(ctx, `
		INSERT INTO email_templates (template_id, lang, subject, html_body, text_body, updated_at)
		VALUES ($1,$2,$3,$4,$5,NOW())
		ON CONFLICT (template_id, lang)
		DO UPDATE SET subject=EXCLUDED.subject, html_body=EXCLUDED.html_body,
		              text_body=EXCLUDED.text_body, updated_at=NOW()
	`, id, req.Lang, req.Subject, req.HTMLBody, req.TextBody); err != nil {
		return nil, errs.New(errs.Internal, "فشل حفظ القالب")
	}

	return &UpdateTemplateResponse{Message: "تم حفظ القالب"}, nil
}

// ResetTemplate removes the admin override so the built-in content applies
// again.
//
//encore:api auth method=DELETE path=/notifications/templates/:id
func (s *Service) ResetTemplate(ctx context.Context, id string) (*UpdateTemplateResponse, error) {
	if _, ok := auth.UserID(); !ok {
		return nil, errs.New(errs.Unauthenticated, "مطلوب تسجيل الدخول")
	}
	if !isAdmin() {
		return nil, errs.New(errs.Forbidden, "يتطلب صلاحيات مدير")
	}
	if _, err := db.Stdlib().ExecContext(ctx, `DELETE FROM email_templates WHERE template_id=$1`, id); err != nil {
		return nil, errs.New(errs.Internal, "فشل حذف التخصيص")
	}
	return &UpdateTemplateResponse{Message: "تمت إعادة القالب الافتراضي"}, nil
}

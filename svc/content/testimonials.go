package content

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"encore.dev/beta/auth"

	"encore.app/pkg/errs"
)

// SubmitTestimonialRequest طلب إضافة تقييم
type SubmitTestimonialRequest struct {
	Content string `json:"content"`
	Rating  int    `json:"rating"` // 1..5
	Lang    string `json:"lang,omitempty"`
}

// Testimonial تقييم عميل
type Testimonial struct {
	ID         int64  `json:"id"`
	UserID     int64  `json:"user_id,omitempty"`
	CustomerName string `json:"customer_name"`
	Content    string `json:"content"`
	Rating     int    `json:"rating"`
	Lang       string `json:"lang"`
	Status     string `json:"status"` // pending, approved, rejected
	CreatedAt  string `json:"created_at"`
}

// TestimonialsResponse استجابة قائمة التقييمات
type TestimonialsResponse struct {
	Items []Testimonial `json:"items"`
}

// AdminTestimonialsQuery معلمات قائمة التقييمات للمدير
type AdminTestimonialsQuery struct {
	Status string `query:"status"`
}

// ReviewTestimonialRequest طلب مراجعة تقييم
type ReviewTestimonialRequest struct {
	Action string `json:"action"` // approve or reject
}

// SubmitTestimonial lets a signed-in customer submit a testimonial for review
//
//encore:api auth method=POST path=/testimonials
func (s *Service) SubmitTestimonial(ctx context.Context, req *SubmitTestimonialRequest) (*Testimonial, error) {
	uidStr, ok := auth.UserID()
	if !ok {
		return nil, errs.New(errs.Unauthenticated, "مطلوب تسجيل الدخول")
	}
	uid, err := strconv.ParseInt(string(uidStr), 10, 64)
	if err != nil {
		return nil, errs.New(errs.InvalidArgument, "معرّف مستخدم غير صالح")
	}
	if req == nil || strings.TrimSpace(req.Content) == "" {
		return nil, errs.New(errs.InvalidArgument, "نص التقييم مطلوب")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return nil, errs.New(errs.InvalidArgument, "التقييم يجب أن يكون بين 1 و 5")
	}
	if len(req.Content) > 2000 {
		return nil, errs.New(errs.InvalidArgument, "نص التقييم طويل جداً")
	}

	var it Testimonial
	err = db.QueryRow(ctx, `
		INSERT INTO testimonials (user_id, content, rating, lang, status)
		SELECT u.id, $2, $3, $4, 'pending'
		FROM users u WHERE u.id = $1 AND u.state = 'active'
		RETURNING id, user_id, content, rating, lang, status::text,
		          to_char(created_at at time zone 'UTC','YYYY-MM-DD"T"HH24:MI:SS"Z"')
	`, uid, strings.TrimSpace(req.Content), req.Rating, normalizeLang(req.Lang)).Scan(
		&it.ID, &it.UserID, &it.Content, &it.Rating, &it.Lang, &it.Status, &it.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errs.New(errs.Forbidden, "الحساب غير نشط")
		}
		return nil, errs.New(errs.Internal, "فشل حفظ التقييم")
	}
	return &it, nil
}

// ListTestimonials returns approved testimonials for the storefront
//
//encore:api public method=GET path=/testimonials
func (s *Service) ListTestimonials(ctx context.Context) (*TestimonialsResponse, error) {
	rows, err := db.Stdlib().QueryContext(ctx, `
		SELECT t.id, COALESCE(u.name, ''), t.content, t.rating, t.lang, t.status::text,
		       to_char(t.created_at at time zone 'UTC','YYYY-MM-DD"T"HH24:MI:SS"Z"')
		FROM testimonials t
		LEFT JOIN users u ON u.id = t.user_id
		WHERE t.status = 'approved'
		ORDER BY t.created_at DESC
		LIMIT 50
	`)
	if err != nil {
		return nil, errs.New(errs.Internal, "تعذر جلب التقييمات")
	}
	defer rows.Close()

	var items []Testimonial
	for rows.Next() {
		var it Testimonial
		if err := rows.Scan(&it.ID, &it.CustomerName, &it.Content, &it.Rating, &it.Lang, &it.Status, &it.CreatedAt); err != nil {
			return nil, errs.New(errs.Internal, "تعذر قراءة التقييم")
		}
		items = append(items, it)
	}
	return &TestimonialsResponse{Items: items}, nil
}

// AdminListTestimonials lists testimonials by status for review
//
//encore:api auth method=GET path=/admin/testimonials
func (s *Service) AdminListTestimonials(ctx context.Context, q *AdminTestimonialsQuery) (*TestimonialsResponse, error) {
	if err := ensureAdmin(ctx); err != nil {
		return nil, err
	}
	status := "pending"
	if q != nil && q.Status != "" {
		status = q.Status
	}
	if status != "pending" && status != "approved" && status != "rejected" {
		return nil, errs.New(errs.InvalidArgument, "قيمة الحالة غير صالحة")
	}

	rows, err := db.Stdlib().QueryContext(ctx, `
		SELECT t.id, t.user_id, COALESCE(u.name, ''), t.content, t.rating, t.lang, t.status::text,
		       to_char(t.created_at at time zone 'UTC','YYYY-MM-DD"T"HH24:MI:SS"Z"')
		FROM testimonials t
		LEFT JOIN users u ON u.id = t.user_id
		WHERE t.status::text = $1
		ORDER BY t.created_at ASC
	`, status)
	if err != nil {
		return nil, errs.New(errs.Internal, "تعذر جلب التقييمات")
	}
	defer rows.Close()

	var items []Testimonial
	for rows.Next() {
		var it Testimonial
		if err := rows.Scan(&it.ID, &it.UserID, &it.CustomerName, &it.Content, &it.Rating, &it.Lang, &it.Status, &it.CreatedAt); err != nil {
			return nil, errs.New(errs.Internal, "تعذر قراءة التقييم")
		}
		items = append(items, it)
	}
	return &TestimonialsResponse{Items: items}, nil
}

// AdminReviewTestimonial approves or rejects a pending testimonial
//
//encore:api auth method=POST path=/admin/testimonials/:id/review
func (s *Service) AdminReviewTestimonial(ctx context.Context, id int64, req *ReviewTestimonialRequest) (*Testimonial, error) {
	if err := ensureAdmin(ctx); err != nil {
		return nil, err
	}
	if req == nil || (req.Action != "approve" && req.Action != "reject") {
		return nil, errs.New(errs.InvalidArgument, "الإجراء يجب أن يكون approve أو reject")
	}
	status := "approved"
	if req.Action == "reject" {
		status = "rejected"
	}

	var it Testimonial
	err := db.QueryRow(ctx, `
		UPDATE testimonials
		SET status = $2, reviewed_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING id, user_id, content, rating, lang, status::text,
		          to_char(created_at at time zone 'UTC','YYYY-MM-DD"T"HH24:MI:SS"Z"')
	`, id, status).Scan(&it.ID, &it.UserID, &it.Content, &it.Rating, &it.Lang, &it.Status, &it.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errs.New(errs.CntTestimonialNotFound, "التقييم غير موجود أو تمت مراجعته")
		}
		return nil, errs.New(errs.Internal, "فشل تحديث التقييم")
	}
	return &it, nil
}

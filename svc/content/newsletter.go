package content

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"encore.app/pkg/errs"
	"encore.app/pkg/metrics"
	"encore.app/pkg/ratelimit"
)

// SubscribeRequest طلب الاشتراك في النشرة البريدية
type SubscribeRequest struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Lang  string `json:"lang,omitempty"`
}

// SubscribeResponse استجابة الاشتراك
type SubscribeResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

// UnsubscribeResponse استجابة إلغاء الاشتراك
type UnsubscribeResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

// SubscriberItem مشترك في النشرة كما يظهر للمدير
type SubscriberItem struct {
	ID           int64   `json:"id"`
	Email        string  `json:"email"`
	Name         string  `json:"name,omitempty"`
	Lang         string  `json:"lang"`
	Status       string  `json:"status"` // subscribed, unsubscribed
	SubscribedAt string  `json:"subscribed_at"`
	UnsubscribedAt *string `json:"unsubscribed_at,omitempty"`
}

// AdminSubscribersQuery معلمات قائمة المشتركين
type AdminSubscribersQuery struct {
	Status string `query:"status"`
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`
}

// AdminSubscribersResponse استجابة قائمة المشتركين
type AdminSubscribersResponse struct {
	Items []SubscriberItem `json:"items"`
	Total int              `json:"total"`
}

var newsletterLimiter *ratelimit.RateLimiter

func getNewsletterLimiter() *ratelimit.RateLimiter {
	if newsletterLimiter == nil {
		newsletterLimiter = ratelimit.NewRateLimiter(ratelimit.RateLimitConfig{
			MaxAttempts: newsletterHourlyLimit(),
			Window:      time.Hour,
		})
	}
	return newsletterLimiter
}

// Subscribe adds an email to the newsletter. Re-subscribing a previously
// unsubscribed address reactivates it with a fresh token.
//
//encore:api public method=POST path=/newsletter/subscribe
func (s *Service) Subscribe(ctx context.Context, req *SubscribeRequest) (*SubscribeResponse, error) {
	if req == nil || !validEmail(req.Email) {
		return nil, errs.New(errs.InvalidArgument, "البريد الإلكتروني غير صالح")
	}

	key := ratelimit.GenerateEmailKey("newsletter", req.Email)
	if err := getNewsletterLimiter().RecordAttempt(key); err != nil {
		return nil, errs.New(errs.TooManyRequests, "محاولات كثيرة جداً. حاول لاحقاً")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	lang := normalizeLang(req.Lang)
	token := uuid.NewString()

	var status string
	err := db.QueryRow(ctx, `SELECT status::text FROM newsletter_subscribers WHERE email = $1`, email).Scan(&status)
	if err == nil && status == "subscribed" {
		return nil, errs.New(errs.CntAlreadySubscribed, "هذا البريد مشترك بالفعل")
	}
	if err != nil && err != sql.ErrNoRows {
		return nil, errs.New(errs.Internal, "فشل التحقق من الاشتراك")
	}

	if _, err := db.Exec(ctx, `
		INSERT INTO newsletter_subscribers (email, name, lang, status, unsubscribe_token, subscribed_at)
		VALUES ($1, NULLIF($2,''), $3, 'subscribed', $4, NOW())
		ON CONFLICT (email) DO UPDATE
		SET status = 'subscribed', lang = EXCLUDED.lang, unsubscribe_token = EXCLUDED.unsubscribe_token,
		    subscribed_at = NOW(), unsubscribed_at = NULL
	`, email, strings.TrimSpace(req.Name), lang, token); err != nil {
		return nil, errs.New(errs.Internal, "فشل حفظ الاشتراك")
	}

	metrics.NewsletterSubscribersTotal.Inc()

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = email
	}
	unsubscribeURL := fmt.Sprintf("https://noor-jewels.com/newsletter/unsubscribe/%s", token)
	if err := queueGuestEmail(ctx, nil, "newsletter_welcome", map[string]any{
		"email":          email,
		"name":           name,
		"language":       lang,
		"UnsubscribeURL": unsubscribeURL,
	}); err != nil {
		return nil, errs.New(errs.NtfQueueInsertFailed, "فشل جدولة بريد الترحيب")
	}

	return &SubscribeResponse{
		Message: "تم الاشتراك في النشرة البريدية بنجاح",
		Success: true,
	}, nil
}

// Unsubscribe removes an email from the newsletter using the emailed token
//
//encore:api public method=POST path=/newsletter/unsubscribe/:token
func (s *Service) Unsubscribe(ctx context.Context, token string) (*UnsubscribeResponse, error) {
	if _, err := uuid.Parse(token); err != nil {
		return nil, errs.New(errs.InvalidArgument, "رمز إلغاء الاشتراك غير صالح")
	}

	res, err := db.Exec(ctx, `
		UPDATE newsletter_subscribers
		SET status = 'unsubscribed', unsubscribed_at = NOW()
		WHERE unsubscribe_token = $1 AND status = 'subscribed'
	`, token)
	if err != nil {
		return nil, errs.New(errs.Internal, "فشل إلغاء الاشتراك")
	}
	if res.RowsAffected() == 0 {
		return nil, errs.New(errs.CntSubscriberNotFound, "الاشتراك غير موجود أو ملغى مسبقاً")
	}

	return &UnsubscribeResponse{
		Message: "تم إلغاء الاشتراك من النشرة البريدية",
		Success: true,
	}, nil
}

// AdminListSubscribers lists newsletter subscribers
//
//encore:api auth method=GET path=/admin/newsletter
func (s *Service) AdminListSubscribers(ctx context.Context, q *AdminSubscribersQuery) (*AdminSubscribersResponse, error) {
	if err := ensureAdmin(ctx); err != nil {
		return nil, err
	}
	page, limit := 1, 50
	status := ""
	if q != nil {
		if q.Page > 0 {
			page = q.Page
		}
		if q.Limit > 0 && q.Limit <= 200 {
			limit = q.Limit
		}
		status = q.Status
	}
	if status != "" && status != "subscribed" && status != "unsubscribed" {
		return nil, errs.New(errs.InvalidArgument, "قيمة الحالة غير صالحة")
	}

	var total int
	if err := db.QueryRow(ctx, `
		SELECT COUNT(*) FROM newsletter_subscribers WHERE ($1 = '' OR status::text = $1)
	`, status).Scan(&total); err != nil {
		return nil, errs.New(errs.Internal, "تعذر عدّ المشتركين")
	}

	rows, err := db.Stdlib().QueryContext(ctx, `
		SELECT id, email, COALESCE(name,''), lang, status::text,
		       to_char(subscribed_at at time zone 'UTC','YYYY-MM-DD"T"HH24:MI:SS"Z"'),
		       to_char(unsubscribed_at at time zone 'UTC','YYYY-MM-DD"T"HH24:MI:SS"Z"')
		FROM newsletter_subscribers
		WHERE ($1 = '' OR status::text = $1)
		ORDER BY subscribed_at DESC
		LIMIT $2 OFFSET $3
	`, status, limit, (page-1)*limit)
	if err != nil {
		return nil, errs.New(errs.Internal, "تعذر جلب المشتركين")
	}
	defer rows.Close()

	var items []SubscriberItem
	for rows.Next() {
		var it SubscriberItem
		var unsub sql.NullString
		if err := rows.Scan(&it.ID, &it.Email, &it.Name, &it.Lang, &it.Status, &it.SubscribedAt, &unsub); err != nil {
			return nil, errs.New(errs.Internal, "تعذر قراءة المشترك")
		}
		if unsub.Valid {
			it.UnsubscribedAt = &unsub.String
		}
		items = append(items, it)
	}
	return &AdminSubscribersResponse{Items: items, Total: total}, nil
}

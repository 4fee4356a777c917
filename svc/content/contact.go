package content

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"encore.app/pkg/errs"
	"encore.app/pkg/ratelimit"
)

// SubmitContactRequest طلب إرسال رسالة تواصل
type SubmitContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Subject string `json:"subject"`
	Message string `json:"message"`
	Lang    string `json:"lang,omitempty"`
}

// SubmitContactResponse استجابة إرسال رسالة تواصل
type SubmitContactResponse struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

// ContactItem رسالة تواصل كما تظهر للمدير
type ContactItem struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Phone     string  `json:"phone,omitempty"`
	Subject   string  `json:"subject"`
	Message   string  `json:"message"`
	Lang      string  `json:"lang"`
	Status    string  `json:"status"` // new, replied, archived
	Reply     *string `json:"reply,omitempty"`
	RepliedAt *string `json:"replied_at,omitempty"`
	CreatedAt string  `json:"created_at"`
}

// AdminContactsQuery معلمات قائمة رسائل التواصل
type AdminContactsQuery struct {
	Status string `query:"status"`
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`
}

// AdminContactsResponse استجابة قائمة رسائل التواصل
type AdminContactsResponse struct {
	Items []ContactItem `json:"items"`
	Total int           `json:"total"`
}

// ReplyContactRequest طلب الرد على رسالة تواصل
type ReplyContactRequest struct {
	Reply string `json:"reply"`
}

// contactLimiter is keyed by email, window one hour. The cap comes from
// settings at first use.
var contactLimiter *ratelimit.RateLimiter

func getContactLimiter() *ratelimit.RateLimiter {
	if contactLimiter == nil {
		contactLimiter = ratelimit.NewRateLimiter(ratelimit.RateLimitConfig{
			MaxAttempts: contactHourlyLimit(),
			Window:      time.Hour,
		})
	}
	return contactLimiter
}

// SubmitContact receives a contact message from the storefront
//
//encore:api public method=POST path=/contact
func (s *Service) SubmitContact(ctx context.Context, req *SubmitContactRequest) (*SubmitContactResponse, error) {
	if req == nil {
		return nil, errs.New(errs.InvalidArgument, "بيانات غير مكتملة")
	}
	name := strings.TrimSpace(req.Name)
	subject := strings.TrimSpace(req.Subject)
	message := strings.TrimSpace(req.Message)
	if name == "" || subject == "" || message == "" {
		return nil, errs.New(errs.InvalidArgument, "الاسم والموضوع والرسالة مطلوبة")
	}
	if !validEmail(req.Email) {
		return nil, errs.New(errs.InvalidArgument, "البريد الإلكتروني غير صالح")
	}
	if len(message) > 5000 {
		return nil, errs.New(errs.InvalidArgument, "الرسالة طويلة جداً")
	}

	key := ratelimit.GenerateEmailKey("contact", req.Email)
	if err := getContactLimiter().RecordAttempt(key); err != nil {
		return nil, errs.New(errs.TooManyRequests, "تجاوزت حد الرسائل لهذه الساعة. حاول لاحقاً")
	}

	lang := normalizeLang(req.Lang)
	var id int64
	if err := db.QueryRow(ctx, `
		INSERT INTO contacts (name, email, phone, subject, message, lang, status)
		VALUES ($1, $2, NULLIF($3,''), $4, $5, $6, 'new')
		RETURNING id
	`, name, strings.TrimSpace(req.Email), strings.TrimSpace(req.Phone), subject, message, lang).Scan(&id); err != nil {
		return nil, errs.New(errs.Internal, "فشل حفظ الرسالة")
	}

	return &SubmitContactResponse{
		ID:      id,
		Message: "تم استلام رسالتك وسنرد عليك قريباً",
	}, nil
}

// AdminListContacts lists contact messages for review
//
//encore:api auth method=GET path=/admin/contacts
func (s *Service) AdminListContacts(ctx context.Context, q *AdminContactsQuery) (*AdminContactsResponse, error) {
	if err := ensureAdmin(ctx); err != nil {
		return nil, err
	}
	page, limit := 1, 20
	status := ""
	if q != nil {
		if q.Page > 0 {
			page = q.Page
		}
		if q.Limit > 0 && q.Limit <= 100 {
			limit = q.Limit
		}
		status = q.Status
	}
	if status != "" && status != "new" && status != "replied" && status != "archived" {
		return nil, errs.New(errs.InvalidArgument, "قيمة الحالة غير صالحة")
	}

	var total int
	if err := db.QueryRow(ctx, `
		SELECT COUNT(*) FROM contacts WHERE ($1 = '' OR status::text = $1)
	`, status).Scan(&total); err != nil {
		return nil, errs.New(errs.Internal, "تعذر عدّ الرسائل")
	}

	rows, err := db.Stdlib().QueryContext(ctx, `
		SELECT id, name, email, COALESCE(phone,''), subject, message, lang, status::text, reply,
		       to_char(replied_at at time zone 'UTC','YYYY-MM-DD"T"HH24:MI:SS"Z"'),
		       to_char(created_at at time zone 'UTC','YYYY-MM-DD"T"HH24:MI:SS"Z"')
		FROM contacts
		WHERE ($1 = '' OR status::text = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, status, limit, (page-1)*limit)
	if err != nil {
		return nil, errs.New(errs.Internal, "تعذر جلب الرسائل")
	}
	defer rows.Close()

	var items []ContactItem
	for rows.Next() {
		var it ContactItem
		var reply sql.NullString
		var repliedAt sql.NullString
		if err := rows.Scan(&it.ID, &it.Name, &it.Email, &it.Phone, &it.Subject, &it.Message, &it.Lang, &it.Status, &reply, &repliedAt, &it.CreatedAt); err != nil {
			return nil, errs.New(errs.Internal, "تعذر قراءة الرسالة")
		}
		if reply.Valid {
			it.Reply = &reply.String
		}
		if repliedAt.Valid {
			it.RepliedAt = &repliedAt.String
		}
		items = append(items, it)
	}
	return &AdminContactsResponse{Items: items, Total: total}, nil
}

// AdminReplyContact stores a reply and emails it to the sender
//
//encore:api auth method=POST path=/admin/contacts/:id/reply
func (s *Service) AdminReplyContact(ctx context.Context, id int64, req *ReplyContactRequest) (*ContactItem, error) {
	if err := ensureAdmin(ctx); err != nil {
		return nil, err
	}
	if req == nil || strings.TrimSpace(req.Reply) == "" {
		return nil, errs.New(errs.InvalidArgument, "نص الرد مطلوب")
	}

	var it ContactItem
	var reply sql.NullString
	var repliedAt sql.NullString
	err := db.QueryRow(ctx, `
		UPDATE contacts
		SET status = 'replied', reply = $2, replied_at = NOW()
		WHERE id = $1
		RETURNING id, name, email, COALESCE(phone,''), subject, message, lang, status::text, reply,
		          to_char(replied_at at time zone 'UTC','YYYY-MM-DD"T"HH24:MI:SS"Z"'),
		          to_char(created_at at time zone 'UTC','YYYY-MM-DD"T"HH24:MI:SS"Z"')
	`, id, strings.TrimSpace(req.Reply)).Scan(&it.ID, &it.Name, &it.Email, &it.Phone, &it.Subject, &it.Message, &it.Lang, &it.Status, &reply, &repliedAt, &it.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errs.New(errs.CntContactNotFound, "الرسالة غير موجودة")
		}
		return nil, errs.New(errs.Internal, "فشل حفظ الرد")
	}
	if reply.Valid {
		it.Reply = &reply.String
	}
	if repliedAt.Valid {
		it.RepliedAt = &repliedAt.String
	}

	// The sender may not have an account, so the notification carries no user id
	if err := queueGuestEmail(ctx, nil, "contact_reply", map[string]any{
		"email":    it.Email,
		"name":     it.Name,
		"language": it.Lang,
		"Subject":  it.Subject,
		"Reply":    strings.TrimSpace(req.Reply),
	}); err != nil {
		return nil, errs.New(errs.NtfQueueInsertFailed, "فشل جدولة بريد الرد")
	}

	return &it, nil
}

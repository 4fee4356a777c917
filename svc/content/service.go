// Package content serves the storefront's engagement surfaces: contact
// messages, the newsletter and customer testimonials.
package content

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"encore.dev/beta/auth"
	"encore.dev/storage/sqldb"

	"encore.app/pkg/config"
	"encore.app/pkg/errs"
)

var db = sqldb.Named("coredb")

//encore:service
type Service struct{}

func initService() (*Service, error) { return &Service{}, nil }

func ensureAdmin(ctx context.Context) error {
	uidStr, ok := auth.UserID()
	if !ok {
		return errs.New(errs.Unauthenticated, "مطلوب تسجيل الدخول")
	}
	var role string
	id64, err := strconv.ParseInt(string(uidStr), 10, 64)
	if err != nil {
		return errs.New(errs.Forbidden, "فشل التحقق من الصلاحيات")
	}
	if err := db.QueryRow(ctx, `SELECT role FROM users WHERE id = $1 AND state='active'`, id64).Scan(&role); err != nil {
		return errs.New(errs.Forbidden, "فشل التحقق من الصلاحيات")
	}
	if role != "admin" {
		return errs.New(errs.Forbidden, "يتطلب صلاحيات مدير")
	}
	return nil
}

func normalizeLang(lang string) string {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "en":
		return "en"
	case "ur":
		return "ur"
	}
	return "ar"
}

func validEmail(email string) bool {
	email = strings.TrimSpace(email)
	at := strings.Index(email, "@")
	dot := strings.LastIndex(email, ".")
	return at > 0 && dot > at+1 && dot < len(email)-1 && len(email) <= 254
}

// contactHourlyLimit reads the configured per-hour contact submission cap
func contactHourlyLimit() int {
	if s := config.GetSettings(); s != nil && s.ContactRateLimitPerHour > 0 {
		return s.ContactRateLimitPerHour
	}
	return 5
}

// newsletterHourlyLimit reads the configured per-hour newsletter subscription cap
func newsletterHourlyLimit() int {
	if s := config.GetSettings(); s != nil && s.NewsletterRateLimitPerHour > 0 {
		return s.NewsletterRateLimitPerHour
	}
	return 3
}

// queueGuestEmail enqueues an email notification that may have no user account
// behind it (contact replies, newsletter mail).
func queueGuestEmail(ctx context.Context, userID *int64, templateID string, payload map[string]any) error {
	buf, _ := json.Marshal(payload)
	_, err := db.Exec(ctx, `
		INSERT INTO notifications (user_id, channel, template_id, payload, status)
		VALUES ($1, 'email', $2, $3, 'queued')
	`, userID, templateID, json.RawMessage(buf))
	return err
}

package jobs

import (
	"context"

	"net/http"

	"encore.app/coredb"
	"encore.app/pkg/audit"
	"encore.app/svc/notifications"
	"encore.dev/cron"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//encore:service
type Service struct{}

func initService() (*Service, error) { return &Service{}, nil }

// RunGuestCartCleanup drops guest carts that outlived their session TTL.
// The TTL comes from the 'cart.guest_session_ttl_days' setting (default 30).
//
//encore:api private
func RunGuestCartCleanup(ctx context.Context) error {
	var ttlDays int
	_ = coredb.DB.QueryRow(ctx, `
		SELECT COALESCE(NULLIF(value,'')::int, 30) FROM system_settings WHERE key='cart.guest_session_ttl_days'
	`).Scan(&ttlDays)
	if ttlDays <= 0 {
		ttlDays = 30
	}

	res, err := coredb.DB.Exec(ctx, `
		DELETE FROM carts
		WHERE cart_key LIKE 'guest:%'
		  AND updated_at < (CURRENT_TIMESTAMP AT TIME ZONE 'UTC') - ($1 || ' days')::interval
	`, ttlDays)
	if err != nil {
		return err
	}
	if n := res.RowsAffected(); n > 0 {
		_, _ = audit.Log(ctx, coredb.DB, audit.Entry{
			Action:     "carts.cleanup",
			EntityType: "system",
			EntityID:   "guest_cart_cleanup",
			Meta:       map[string]interface{}{"deleted": n, "ttl_days": ttlDays},
		})
	}
	return nil
}

var _ = cron.NewJob("guest-cart-cleanup", cron.JobConfig{
	Title:    "Cleanup expired guest carts",
	Every:    6 * cron.Hour,
	Endpoint: RunGuestCartCleanup,
})

//encore:api private
func RunDailyAdminDigest(ctx context.Context) error {
	// Disabled by default via system setting key 'admin.digest.enabled' (string 'true' to enable)
	var enabled bool
	_ = coredb.DB.QueryRow(ctx, `SELECT COALESCE(value,'false')='true' FROM system_settings WHERE key='admin.digest.enabled'`).Scan(&enabled)
	if !enabled {
		return nil
	}

	var pending48 int
	_ = coredb.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM orders
		WHERE status='pending'
		  AND created_at <= (CURRENT_TIMESTAMP AT TIME ZONE 'UTC') - INTERVAL '48 hours'`).Scan(&pending48)

	var newUsers24 int
	_ = coredb.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM users
		WHERE created_at >= (CURRENT_TIMESTAMP AT TIME ZONE 'UTC') - INTERVAL '24 hours'`).Scan(&newUsers24)

	var newContacts24 int
	_ = coredb.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM contacts
		WHERE created_at >= (CURRENT_TIMESTAMP AT TIME ZONE 'UTC') - INTERVAL '24 hours'`).Scan(&newContacts24)

	var failedEmails24 int
	_ = coredb.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE channel='email' AND status='failed'
		  AND updated_at >= (CURRENT_TIMESTAMP AT TIME ZONE 'UTC') - INTERVAL '24 hours'`).Scan(&failedEmails24)

	var lowStock int
	_ = coredb.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM products
		WHERE status <> 'archived' AND stock_qty <= low_stock_threshold`).Scan(&lowStock)

	meta := map[string]interface{}{
		"orders_pending_over_48h": pending48,
		"new_users_24h":           newUsers24,
		"new_contacts_24h":        newContacts24,
		"failed_emails_24h":       failedEmails24,
		"low_stock_products":      lowStock,
	}

	_, _ = audit.Log(ctx, coredb.DB, audit.Entry{
		Action:     "ADMIN.DIGEST",
		EntityType: "system",
		EntityID:   "daily_admin_digest",
		Meta:       meta,
	})

	return nil
}

var _ = cron.NewJob("daily-admin-digest", cron.JobConfig{
	Title:    "Daily admin digest (optional)",
	Every:    24 * cron.Hour,
	Endpoint: RunDailyAdminDigest,
})

//encore:api public raw method=GET path=/metrics
func Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// ===== Admin endpoints (temporary) to manually trigger cron jobs locally =====

type RunAllCronResponse struct {
	GuestCartCleanup  string                                      `json:"guest_cart_cleanup"`
	EmailQueue        string                                      `json:"email_queue"`
	DailyAdminDigest  string                                      `json:"daily_admin_digest"`
	RetentionCleanup  string                                      `json:"retention_cleanup"`
	EmailQueueStats   *notifications.ProcessEmailQueueResponse    `json:"email_queue_stats,omitempty"`
	RetentionStats    *notifications.CleanupNotificationsResponse `json:"retention_stats,omitempty"`
}

//encore:api public method=POST path=/admin/cron/run-all
func RunAllCronJobs(ctx context.Context) (*RunAllCronResponse, error) {
	out := &RunAllCronResponse{}

	if err := RunGuestCartCleanup(ctx); err != nil {
		out.GuestCartCleanup = err.Error()
	} else {
		out.GuestCartCleanup = "ok"
	}

	if resp, err := notifications.ProcessEmailQueue(ctx); err != nil {
		out.EmailQueue = err.Error()
	} else {
		out.EmailQueue = "ok"
		out.EmailQueueStats = resp
	}

	if err := RunDailyAdminDigest(ctx); err != nil {
		out.DailyAdminDigest = err.Error()
	} else {
		out.DailyAdminDigest = "ok"
	}

	if resp, err := notifications.CleanupNotifications(ctx); err != nil {
		out.RetentionCleanup = err.Error()
	} else {
		out.RetentionCleanup = "ok"
		out.RetentionStats = resp
	}

	return out, nil
}

//encore:api public method=POST path=/admin/cron/guest-cart-cleanup
func RunGuestCartCleanupAdmin(ctx context.Context) error { return RunGuestCartCleanup(ctx) }

//encore:api public method=POST path=/admin/cron/daily-admin-digest
func RunDailyAdminDigestAdmin(ctx context.Context) error { return RunDailyAdminDigest(ctx) }

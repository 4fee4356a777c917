package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"testing"
	"time"

	authlib "encore.dev/beta/auth"

	"encore.app/pkg/templates"
	authsvc "encore.app/svc/auth"
	notifs "encore.app/svc/notifications"
)

// createAdminUserNotifications creates a unique admin user for notifications tests.
func createAdminUserNotifications(t *testing.T) int64 {
	t.Helper()
	ctx := context.Background()
	email := fmt.Sprintf("notif_admin_%d@example.com", time.Now().UnixNano())
	var id int64
	if err := testDB.QueryRow(ctx, `
        INSERT INTO users (name,email,password_hash,phone,preferred_lang,role,state,email_verified_at,created_at,updated_at)
        VALUES ('Admin Notif',$1,'x','+966500000000','ar','admin','active',NOW(),NOW(),NOW()) RETURNING id
    `, email).Scan(&id); err != nil {
		t.Fatalf("failed to create admin user: %v", err)
	}
	return id
}

func adminCtx(t *testing.T, adminID int64) context.Context {
	t.Helper()
	ctx := context.Background()
	uid := authsvc.AuthData{UserID: adminID, Role: "admin", Email: fmt.Sprintf("admin_%d@example.com", adminID)}
	return authlib.WithContext(ctx, authlib.UID(strconv.FormatInt(adminID, 10)), &uid)
}

func TestNotifications_Templates_And_TestEmail(t *testing.T) {
	t.Parallel()
	adminID := createAdminUserNotifications(t)
	ctx := adminCtx(t, adminID)

	// Get templates requires auth
	// Read templates via package
	ids := templates.GetAvailableTemplates()
	if len(ids) == 0 {
		t.Fatalf("expected at least one template")
	}

	// Use the first available template if possible, else fallback
	tplID := ids[0]
	if tplID == "" {
		tplID = "welcome"
	}

	// Enqueue a test email
	req := &notifs.TestEmailRequest{
		Email:      fmt.Sprintf("user_%d@example.com", time.Now().UnixNano()),
		TemplateID: tplID,
		Language:   "ar",
	}
	// Use enqueue directly (avoid API call restriction from tests)
	data := map[string]any{"email": req.Email, "name": "Test User", "language": req.Language}
	emailID, err := notifs.EnqueueEmail(ctx, adminID, req.TemplateID, data)
	if err != nil {
		t.Fatalf("EnqueueEmail failed: %v", err)
	}

	// Assert the notification row exists and is queued
	var status string
	if err := testDB.QueryRow(ctx, `SELECT status::text FROM notifications WHERE id=$1`, emailID).Scan(&status); err != nil {
		t.Fatalf("failed to read queued email: %v", err)
	}
	if status != "queued" && status != "sending" && status != "sent" && status != "failed" {
		t.Fatalf("unexpected email status: %s", status)
	}

	// Also enqueue and list internal notification for the same user
	payload := map[string]any{"msg": "hello"}
	buf, _ := json.Marshal(payload)
	_, err = notifs.EnqueueInternal(ctx, adminID, "test_internal", json.RawMessage(buf))
	if err != nil {
		t.Fatalf("EnqueueInternal failed: %v", err)
	}

	// List internal notifications for current user
	var count int
	if err := testDB.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id=$1 AND channel='internal'`, adminID).Scan(&count); err != nil {
		t.Fatalf("failed to count internal notifications: %v", err)
	}
	if count == 0 {
		t.Fatalf("expected at least one internal notification")
	}
}

func TestNotifications_GuestEmailQueueProcessing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// Guest rows (contact replies, newsletter) carry no user_id. Backdate
	// created_at so the guest row sits at the head of the batch.
	guestEmail := fmt.Sprintf("guest_%d@example.com", time.Now().UnixNano())
	payload, _ := json.Marshal(map[string]any{"email": guestEmail, "name": "Guest", "language": "ar"})
	var guestID int64
	if err := testDB.QueryRow(ctx, `
        INSERT INTO notifications (user_id, channel, template_id, payload, status, created_at)
        VALUES (NULL, 'email', 'contact_reply', $1, 'queued', NOW() - INTERVAL '1 minute')
        RETURNING id
    `, json.RawMessage(payload)).Scan(&guestID); err != nil {
		t.Fatalf("failed to queue guest email: %v", err)
	}

	// A registered-user email queued behind the guest row.
	adminID := createAdminUserNotifications(t)
	userData := map[string]any{"email": fmt.Sprintf("user_%d@example.com", adminID), "name": "User", "language": "ar"}
	userRowID, err := notifs.EnqueueEmail(ctx, adminID, "welcome", userData)
	if err != nil {
		t.Fatalf("EnqueueEmail failed: %v", err)
	}

	if _, err := notifs.ProcessEmailQueue(ctx); err != nil {
		t.Fatalf("ProcessEmailQueue failed: %v", err)
	}

	// The guest row must have been claimed and moved past 'queued'. Without
	// mail credentials the send fails, so 'failed' (or 'archived') is fine;
	// stuck at 'queued' means the NULL user_id blocked the queue head.
	var status string
	if err := testDB.QueryRow(ctx, `SELECT status::text FROM notifications WHERE id=$1`, guestID).Scan(&status); err != nil {
		t.Fatalf("failed to read guest notification: %v", err)
	}
	if status == "queued" {
		t.Fatalf("guest notification still queued after processing")
	}

	// And the row behind it was processed too, so one guest row cannot
	// stall the rest of the batch.
	if err := testDB.QueryRow(ctx, `SELECT status::text FROM notifications WHERE id=$1`, userRowID).Scan(&status); err != nil {
		t.Fatalf("failed to read user notification: %v", err)
	}
	if status == "queued" {
		t.Fatalf("notification behind the guest row was not processed")
	}
}

package integration

import (
	"context"
	"testing"
	"time"

	authsvc "encore.app/svc/auth"
	"encore.dev/storage/sqldb"
)

// Helper: cleanup test data
func cleanupAuthFlowData(t *testing.T, db *sqldb.Database) {
	ctx := context.Background()
	queries := []string{
		"DELETE FROM email_verification_codes WHERE user_id IN (SELECT id FROM users WHERE email LIKE 'flow_%@example.com')",
		"DELETE FROM password_reset_tokens WHERE user_id IN (SELECT id FROM users WHERE email LIKE 'flow_%@example.com')",
		"DELETE FROM notifications WHERE user_id IN (SELECT id FROM users WHERE email LIKE 'flow_%@example.com')",
		"DELETE FROM users WHERE email LIKE 'flow_%@example.com'",
	}
	for _, q := range queries {
		if _, err := db.Exec(ctx, q); err != nil {
			t.Logf("cleanup warning: %v", err)
		}
	}
}

// TestCompleteRegistrationFlow walks a customer from registration through
// email verification, first login and token refresh.
func TestCompleteRegistrationFlow(t *testing.T) {
	ctx := context.Background()
	db := testDB
	cleanupAuthFlowData(t, db)
	defer cleanupAuthFlowData(t, db)

	svc, err := authsvc.NewService()
	if err != nil {
		t.Fatalf("failed to init auth service: %v", err)
	}

	email := "flow_registration@example.com"
	password := "SecurePass123!"

	// التسجيل
	regResp, err := svc.Register(ctx, &authsvc.RegisterRequest{
		Name:          "أحمد محمد",
		Email:         email,
		Phone:         "+966501234567",
		PreferredLang: "ur",
		Password:      password,
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if regResp.UserID == 0 {
		t.Fatalf("expected a user id from registration")
	}

	// اللغة المفضلة تحفظ كما طلبها المستخدم
	var lang string
	if err := db.QueryRow(ctx, `SELECT preferred_lang FROM users WHERE id=$1`, regResp.UserID).Scan(&lang); err != nil {
		t.Fatalf("failed to read preferred_lang: %v", err)
	}
	if lang != "ur" {
		t.Errorf("expected preferred_lang ur, got %s", lang)
	}

	// الدخول ممكن قبل التفعيل لكن الحالة تظهر غير مفعلة
	if early, err := svc.Login(ctx, &authsvc.LoginRequest{Email: email, Password: password}); err != nil {
		t.Fatalf("login before verification failed: %v", err)
	} else if early.User.EmailVerified {
		t.Errorf("expected unverified email before activation")
	}

	// استخراج رمز التحقق من قاعدة البيانات
	var code string
	if err := db.QueryRow(ctx, `
		SELECT code FROM email_verification_codes
		WHERE user_id=$1 AND email=$2
		ORDER BY created_at DESC LIMIT 1
	`, regResp.UserID, email).Scan(&code); err != nil {
		t.Fatalf("failed to get verification code: %v", err)
	}

	// التفعيل
	vr, err := svc.VerifyEmail(ctx, &authsvc.VerifyEmailRequest{Email: email, Code: code})
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if vr == nil || !vr.Success {
		t.Fatalf("expected verification success")
	}

	// الدخول بعد التفعيل
	lr, err := svc.Login(ctx, &authsvc.LoginRequest{Email: email, Password: password})
	if err != nil || lr == nil || lr.AccessToken == "" || lr.RefreshToken == "" {
		t.Fatalf("expected successful login after verification, err=%v", err)
	}
	if !lr.User.EmailVerified {
		t.Errorf("expected user info to report verified email")
	}

	// Short sleep to ensure different timestamp
	time.Sleep(100 * time.Millisecond)

	// تجديد الرمز
	rr, err := svc.RefreshToken(ctx, &authsvc.RefreshTokenRequest{RefreshToken: lr.RefreshToken})
	if err != nil || rr == nil || rr.AccessToken == "" || rr.RefreshToken == "" {
		t.Fatalf("expected refresh to succeed, err=%v", err)
	}
	if rr.AccessToken == lr.AccessToken {
		t.Errorf("expected a fresh access token after refresh")
	}
}

// TestVerificationCodeRejected يتأكد من رفض الرموز الخاطئة
func TestVerificationCodeRejected(t *testing.T) {
	ctx := context.Background()
	db := testDB
	cleanupAuthFlowData(t, db)
	defer cleanupAuthFlowData(t, db)

	svc, err := authsvc.NewService()
	if err != nil {
		t.Fatalf("failed to init auth service: %v", err)
	}

	email := "flow_badcode@example.com"
	regResp, err := svc.Register(ctx, &authsvc.RegisterRequest{
		Name:     "اختبار",
		Email:    email,
		Password: "SecurePass123!",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, err := svc.VerifyEmail(ctx, &authsvc.VerifyEmailRequest{Email: email, Code: "000000"}); err == nil {
		t.Errorf("expected wrong code to be rejected")
	}

	// البريد يبقى غير مفعل
	var verified bool
	if err := db.QueryRow(ctx, `SELECT email_verified_at IS NOT NULL FROM users WHERE id=$1`, regResp.UserID).Scan(&verified); err != nil {
		t.Fatalf("status check failed: %v", err)
	}
	if verified {
		t.Fatalf("email should not be verified")
	}
}

// Package auth provides authentication and authorization services
package auth

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"encore.app/pkg/authn"
	"encore.app/pkg/config"
	"encore.app/pkg/logger"
	"encore.app/pkg/ratelimit"
	"encore.app/pkg/session"
)

// Secrets configuration
var secrets struct {
	JWTAccessSecret  string
	JWTRefreshSecret string
}

// frontendBaseURL is used to build activation and reset links in emails
const frontendBaseURL = "https://noor-jewels.com"

// passwordResetTTL bounds how long a reset link stays valid
const passwordResetTTL = 30 * time.Minute

// Service represents the authentication service
//
//encore:service
type Service struct {
	repo                *Repository
	jwtManager          *authn.JWTManager
	sessionManager      *session.SessionManager
	verificationManager *authn.VerificationManager
	loginRateLimit      *ratelimit.RateLimiter
	registerRateLimit   *ratelimit.RateLimiter
	verifyRateLimit     *ratelimit.RateLimiter
	resetRateLimit      *ratelimit.RateLimiter
}

// Initialize the authentication service
func initService() (*Service, error) {
	repo := NewRepository()

	jwtManager := authn.NewJWTManager(secrets.JWTAccessSecret, secrets.JWTRefreshSecret)

	sessionConfig := session.ProductionSessionConfig
	sessionManager := session.NewSessionManager(sessionConfig)

	verificationManager := authn.NewVerificationManager()

	loginRateLimit := ratelimit.NewRateLimiter(ratelimit.LoginRateLimit)
	registerRateLimit := ratelimit.NewRateLimiter(ratelimit.RegistrationRateLimit)
	verifyRateLimit := ratelimit.NewRateLimiter(ratelimit.EmailVerificationRateLimit)
	resetRateLimit := ratelimit.NewRateLimiter(ratelimit.PasswordResetRateLimit)

	return &Service{
		repo:                repo,
		jwtManager:          jwtManager,
		sessionManager:      sessionManager,
		verificationManager: verificationManager,
		loginRateLimit:      loginRateLimit,
		registerRateLimit:   registerRateLimit,
		verifyRateLimit:     verifyRateLimit,
		resetRateLimit:      resetRateLimit,
	}, nil
}

// NewService constructs a fully wired service outside Encore's lifecycle,
// mainly for integration tests.
func NewService() (*Service, error) {
	return initService()
}

// normalizeLang coerces a requested language to a supported storefront language
func normalizeLang(lang string) string {
	switch lang {
	case "ar", "en", "ur":
		return lang
	}
	return "ar"
}

// RegisterUser handles user registration business logic
func (s *Service) RegisterUser(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error) {
	// Rate limiting by IP
	clientIP := getClientIP(ctx)
	rateLimitKey := ratelimit.GenerateIPKey("register", clientIP)

	if err := s.registerRateLimit.RecordAttempt(rateLimitKey); err != nil {
		return nil, NewRateLimitError("محاولات تسجيل كثيرة جداً. يرجى المحاولة لاحقاً")
	}

	if settings := config.GetSettings(); settings != nil && !settings.AppRegistrationEnabled {
		return nil, NewValidationError("التسجيل مغلق حالياً")
	}

	// Validate password strength
	if !authn.IsValidPassword(req.Password) {
		return nil, ErrWeakPassword
	}

	// Check if user already exists
	exists, err := s.repo.UserExists(ctx, req.Email)
	if err != nil {
		return nil, NewInternalError("فشل التحقق من البريد الإلكتروني")
	}
	if exists {
		return nil, ErrUserAlreadyExists
	}

	// Hash password
	passwordHash, err := authn.HashPassword(req.Password)
	if err != nil {
		return nil, NewInternalError("فشل معالجة كلمة المرور")
	}

	lang := normalizeLang(req.PreferredLang)

	// Create user and verification code atomically
	userID, verificationCode, err := s.repo.CreateUserWithVerification(ctx, req.Email, passwordHash, req.Name, req.Phone, lang, s.verificationManager)
	if err != nil {
		return nil, NewInternalError("فشل إنشاء الحساب")
	}

	// Queue the activation email; registration succeeds even if queueing fails
	if err := s.queueActivationEmail(ctx, userID, req.Email, req.Name, lang, verificationCode.Code); err != nil {
		logger.Error(ctx, "failed to queue activation email", logger.Fields{"user_id": userID, "error": err.Error()})
	}

	return &RegisterResponse{
		Message: "تم إنشاء الحساب. تحقق من بريدك الإلكتروني لتفعيل الحساب",
		UserID:  userID,
	}, nil
}

func (s *Service) queueActivationEmail(ctx context.Context, userID int64, email, name, lang, code string) error {
	activationURL := fmt.Sprintf("%s/verify-email?email=%s&code=%s", frontendBaseURL, url.QueryEscape(email), url.QueryEscape(code))
	return s.repo.QueueEmail(ctx, userID, "welcome", map[string]any{
		"email":         email,
		"name":          name,
		"language":      lang,
		"ActivationURL": activationURL,
	})
}

// LoginUser handles user authentication business logic
func (s *Service) LoginUser(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	// Rate limiting by IP and email
	clientIP := getClientIP(ctx)
	ipRateLimitKey := ratelimit.GenerateIPKey("login", clientIP)
	emailRateLimitKey := ratelimit.GenerateEmailKey("login", req.Email)

	if err := s.loginRateLimit.RecordAttempt(ipRateLimitKey); err != nil {
		return nil, NewRateLimitError("محاولات دخول كثيرة من هذا العنوان. يرجى المحاولة لاحقاً")
	}

	if err := s.loginRateLimit.RecordAttempt(emailRateLimitKey); err != nil {
		return nil, NewRateLimitError("محاولات دخول كثيرة لهذا البريد. يرجى المحاولة لاحقاً")
	}

	// Get user from database
	user, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	// Verify password
	if err := authn.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	// Generate JWT tokens
	tokenPair, err := s.jwtManager.GenerateTokens(user.ID, user.Role, user.Email)
	if err != nil {
		return nil, NewInternalError("فشل إنشاء رموز المصادقة")
	}

	// Create session
	userAgent := getUserAgent(ctx)
	_, _, err = s.sessionManager.CreateSession(
		user.ID, user.Role, user.Email, tokenPair.AccessToken, tokenPair.RefreshToken, clientIP, userAgent)
	if err != nil {
		return nil, NewInternalError("فشل إنشاء الجلسة")
	}

	// Update last login
	if err := s.repo.UpdateUserLastLogin(ctx, user.ID); err != nil {
		logger.Warn(ctx, "failed to update last login", logger.Fields{"user_id": user.ID, "error": err.Error()})
	}

	return &LoginResponse{
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresAt:    tokenPair.ExpiresAt,
		TokenType:    tokenPair.TokenType,
		User: UserInfo{
			ID:            user.ID,
			Email:         user.Email,
			Role:          user.Role,
			Name:          user.Name,
			PreferredLang: user.PreferredLang,
			EmailVerified: user.EmailVerifiedAt != nil,
		},
	}, nil
}

// VerifyUserEmail handles email verification business logic
func (s *Service) VerifyUserEmail(ctx context.Context, req *VerifyEmailRequest) (*VerifyEmailResponse, error) {
	// Rate limiting by email
	rateLimitKey := ratelimit.GenerateEmailKey("verify", req.Email)

	if err := s.verifyRateLimit.RecordAttempt(rateLimitKey); err != nil {
		return nil, NewRateLimitError("محاولات تحقق كثيرة جداً. يرجى المحاولة لاحقاً")
	}

	// Verify the code
	verificationCode, err := s.verificationManager.VerifyCode(req.Email, req.Code)
	if err != nil {
		switch err {
		case authn.ErrCodeExpired:
			return nil, ErrVerificationCodeExpired
		case authn.ErrCodeInvalid:
			return nil, ErrInvalidVerificationCode
		case authn.ErrCodeAlreadyUsed:
			return nil, ErrVerificationCodeUsed
		case authn.ErrTooManyAttempts:
			return nil, NewRateLimitError("محاولات تحقق كثيرة جداً. يرجى طلب رمز جديد")
		default:
			return nil, NewInternalError("فشل التحقق من الرمز")
		}
	}

	// Update user verification status
	err = s.repo.UpdateUserVerificationStatus(ctx, verificationCode.UserID, req.Email)
	if err != nil {
		return nil, NewInternalError("فشل تحديث حالة التفعيل")
	}

	// Mark verification request as used
	err = s.repo.MarkVerificationRequestUsed(ctx, verificationCode.UserID, req.Email, req.Code)
	if err != nil {
		logger.Warn(ctx, "failed to mark verification request as used", logger.Fields{"user_id": verificationCode.UserID, "error": err.Error()})
	}

	return &VerifyEmailResponse{
		Message: "تم تفعيل البريد الإلكتروني بنجاح",
		Success: true,
	}, nil
}

// RefreshUserToken handles token refresh business logic
func (s *Service) RefreshUserToken(ctx context.Context, req *RefreshTokenRequest) (*RefreshTokenResponse, error) {
	// Validate refresh token
	claims, err := s.jwtManager.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	// Check if user still exists and is active
	exists, err := s.repo.UserExistsByID(ctx, claims.UserID)
	if err != nil || !exists {
		return nil, ErrUserInactive
	}

	// Generate new token pair
	newTokenPair, err := s.jwtManager.GenerateTokens(claims.UserID, claims.Role, claims.Email)
	if err != nil {
		return nil, NewInternalError("فشل إنشاء رموز جديدة")
	}

	return &RefreshTokenResponse{
		AccessToken:  newTokenPair.AccessToken,
		RefreshToken: newTokenPair.RefreshToken,
		ExpiresAt:    newTokenPair.ExpiresAt,
		TokenType:    newTokenPair.TokenType,
	}, nil
}

// LogoutUser handles user logout business logic
func (s *Service) LogoutUser(ctx context.Context, userID int64) (*LogoutResponse, error) {
	deletedSessions := s.sessionManager.DeleteUserSessions(userID)

	logger.Info(ctx, "user logged out", logger.Fields{"user_id": userID, "deleted_sessions": deletedSessions})

	return &LogoutResponse{
		Message: "تم تسجيل الخروج بنجاح",
		Success: true,
	}, nil
}

// ResendUserVerification handles resending verification code business logic
func (s *Service) ResendUserVerification(ctx context.Context, req *ResendVerificationRequest) (*ResendVerificationResponse, error) {
	// Rate limiting by email
	rateLimitKey := ratelimit.GenerateEmailKey("resend", req.Email)

	if err := s.verifyRateLimit.RecordAttempt(rateLimitKey); err != nil {
		return nil, NewRateLimitError("محاولات إعادة إرسال كثيرة جداً. يرجى المحاولة لاحقاً")
	}

	// Get user information
	user, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, ErrUserNotFound
	}

	// Check if user is already verified
	if user.EmailVerifiedAt != nil {
		return nil, ErrEmailAlreadyVerified
	}

	// Generate new verification code
	verificationCode, err := s.verificationManager.CreateVerificationCode(user.ID, req.Email)
	if err != nil {
		switch err {
		case authn.ErrResendTooSoon:
			cooldown := s.verificationManager.GetResendCooldownRemaining(req.Email)
			return nil, NewRateLimitError(fmt.Sprintf("يرجى الانتظار %v قبل طلب رمز آخر", cooldown.Round(time.Second)))
		case authn.ErrMaxResendsReached:
			return nil, NewRateLimitError("تم بلوغ الحد الأقصى لإعادة الإرسال لهذه الساعة")
		default:
			return nil, NewInternalError("فشل إنشاء رمز التحقق")
		}
	}

	// Store verification request
	err = s.repo.CreateVerificationRequest(ctx, user.ID, req.Email, verificationCode.Code, verificationCode.ExpiresAt)
	if err != nil {
		return nil, NewInternalError("فشل حفظ طلب التحقق")
	}

	if err := s.queueActivationEmail(ctx, user.ID, user.Email, user.Name, user.PreferredLang, verificationCode.Code); err != nil {
		logger.Error(ctx, "failed to queue activation email", logger.Fields{"user_id": user.ID, "error": err.Error()})
	}

	return &ResendVerificationResponse{
		Message: "تم إرسال رمز التحقق إلى بريدك الإلكتروني",
		Success: true,
	}, nil
}

// ForgotUserPassword starts the password reset flow. The response is identical
// whether or not the email exists, to avoid account enumeration.
func (s *Service) ForgotUserPassword(ctx context.Context, req *ForgotPasswordRequest) (*ForgotPasswordResponse, error) {
	rateLimitKey := ratelimit.GenerateEmailKey("password_reset", req.Email)
	if err := s.resetRateLimit.RecordAttempt(rateLimitKey); err != nil {
		return nil, NewRateLimitError("محاولات كثيرة جداً. يرجى المحاولة لاحقاً")
	}

	neutral := &ForgotPasswordResponse{
		Message: "إذا كان البريد مسجلاً لدينا فستصلك رسالة لإعادة تعيين كلمة المرور",
		Success: true,
	}

	user, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return neutral, nil
	}

	token := uuid.NewString()
	expiresAt := time.Now().UTC().Add(passwordResetTTL)
	if err := s.repo.CreatePasswordResetToken(ctx, user.ID, token, expiresAt); err != nil {
		return nil, NewInternalError("فشل إنشاء رمز إعادة التعيين")
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s", frontendBaseURL, url.QueryEscape(token))
	if err := s.repo.QueueEmail(ctx, user.ID, "password_reset", map[string]any{
		"email":    user.Email,
		"name":     user.Name,
		"language": user.PreferredLang,
		"ResetURL": resetURL,
	}); err != nil {
		logger.Error(ctx, "failed to queue password reset email", logger.Fields{"user_id": user.ID, "error": err.Error()})
	}

	return neutral, nil
}

// ResetUserPassword completes the password reset flow
func (s *Service) ResetUserPassword(ctx context.Context, req *ResetPasswordRequest) (*ResetPasswordResponse, error) {
	if !authn.IsValidPassword(req.NewPassword) {
		return nil, ErrWeakPassword
	}

	userID, err := s.repo.ConsumePasswordResetToken(ctx, req.Token)
	if err != nil {
		return nil, ErrInvalidResetToken
	}

	passwordHash, err := authn.HashPassword(req.NewPassword)
	if err != nil {
		return nil, NewInternalError("فشل معالجة كلمة المرور")
	}

	if err := s.repo.UpdateUserPassword(ctx, userID, passwordHash); err != nil {
		return nil, NewInternalError("فشل تحديث كلمة المرور")
	}

	// Invalidate every active session for the account
	s.sessionManager.DeleteUserSessions(userID)

	return &ResetPasswordResponse{
		Message: "تم تغيير كلمة المرور بنجاح",
		Success: true,
	}, nil
}

// Helper functions

// getClientIP extracts the client IP address from the request context
func getClientIP(ctx context.Context) string {
	// In a real Encore application, you would extract this from the request
	// For now, we'll return a placeholder
	return "127.0.0.1"
}

// getUserAgent extracts the user agent from the request context
func getUserAgent(ctx context.Context) string {
	// In a real Encore application, you would extract this from the request
	// For now, we'll return a placeholder
	return "Encore-Client/1.0"
}

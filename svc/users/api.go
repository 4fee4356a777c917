// Package users provides user profile and address management services
package users

import (
	"context"
	"strconv"
	"time"

	"encore.dev/beta/auth"

	"encore.app/pkg/errs"
	"encore.app/pkg/ratelimit"
)

// isAdmin checks if the authenticated user has admin role
func isAdmin() bool {
	if d := auth.Data(); d != nil {
		// Case 1: map[string]any
		if m, ok := d.(map[string]interface{}); ok {
			if role, ok := m["role"].(string); ok {
				return role == "admin"
			}
		}
		// Case 2: struct with Role accessor
		if v, ok := d.(interface{ GetRole() string }); ok {
			return v.GetRole() == "admin"
		}
	}
	return false
}

// currentUserID extracts the authenticated user id as int64
func currentUserID() (int64, error) {
	userID, ok := auth.UserID()
	if !ok {
		return 0, &errs.Error{Code: errs.Unauthenticated, Message: "المستخدم غير مصادق."}
	}
	uid, err := strconv.ParseInt(string(userID), 10, 64)
	if err != nil {
		return 0, &errs.Error{Code: errs.Internal, Message: "معرّف المستخدم غير صالح."}
	}
	return uid, nil
}

// GetProfile returns the current user's profile information
//
//encore:api auth method=GET path=/me
func (s *Service) GetProfile(ctx context.Context) (*UserProfileResponse, error) {
	uid, err := currentUserID()
	if err != nil {
		return nil, err
	}

	return s.GetUserProfile(ctx, uid)
}

// UpdateProfile updates the current user's profile information
//
//encore:api auth method=PATCH path=/me
func (s *Service) UpdateProfile(ctx context.Context, req *UpdateProfileRequest) (*UpdateProfileResponse, error) {
	uid, err := currentUserID()
	if err != nil {
		return nil, err
	}

	return s.UpdateUserProfile(ctx, uid, req)
}

// ListAddresses returns all addresses for the current user
//
//encore:api auth method=GET path=/addresses
func (s *Service) ListAddresses(ctx context.Context) (*ListAddressesResponse, error) {
	uid, err := currentUserID()
	if err != nil {
		return nil, err
	}

	return s.GetAddressesForUser(ctx, uid)
}

// addressRateLimit throttles address mutations per user
var addressRateLimit = ratelimit.NewRateLimiter(ratelimit.RateLimitConfig{
	MaxAttempts: 10,
	Window:      time.Minute,
})

// CreateAddress creates a new address for the current user (requires email verification)
//
//encore:api auth method=POST path=/addresses
func (s *Service) CreateAddress(ctx context.Context, req *AddressInput) (*AddressOutput, error) {
	uid, err := currentUserID()
	if err != nil {
		return nil, err
	}

	rateLimitKey := ratelimit.GenerateUserKey("create_address", uid)
	if err := addressRateLimit.RecordAttempt(rateLimitKey); err != nil {
		return nil, &errs.Error{
			Code:    errs.TooManyRequests,
			Message: "تجاوزت حد المحاولات. حاول لاحقاً",
		}
	}

	return s.ProcessAddressCreation(ctx, uid, req)
}

// UpdateAddress updates an existing address for the current user (requires email verification)
//
//encore:api auth method=PATCH path=/addresses/:id
func (s *Service) UpdateAddress(ctx context.Context, id int64, req *UpdateAddressRequest) (*UpdateAddressResponse, error) {
	uid, err := currentUserID()
	if err != nil {
		return nil, err
	}

	rateLimitKey := ratelimit.GenerateUserKey("update_address", uid)
	if err := addressRateLimit.RecordAttempt(rateLimitKey); err != nil {
		return nil, &errs.Error{
			Code:    errs.TooManyRequests,
			Message: "تجاوزت حد المحاولات. حاول لاحقاً",
		}
	}

	return s.ProcessAddressUpdate(ctx, uid, id, req)
}

// DeleteAddress archives an address owned by the current user
//
//encore:api auth method=DELETE path=/addresses/:id
func (s *Service) DeleteAddress(ctx context.Context, id int64) (*DeleteAddressResponse, error) {
	uid, err := currentUserID()
	if err != nil {
		return nil, err
	}

	return s.ProcessAddressArchival(ctx, uid, id)
}

// AdminListUsers returns a paginated user listing (Admin only)
//
//encore:api auth method=GET path=/admin/users
func (s *Service) AdminListUsers(ctx context.Context, q *AdminListUsersQuery) (*AdminListUsersResponse, error) {
	if _, err := currentUserID(); err != nil {
		return nil, err
	}
	if !isAdmin() {
		return nil, &errs.Error{Code: errs.Forbidden, Message: "يتطلب صلاحيات مدير"}
	}

	return s.ProcessAdminListUsers(ctx, q)
}

// AdminUpdateUserState blocks or reactivates a user account (Admin only)
//
//encore:api auth method=PATCH path=/admin/users/:id/state
func (s *Service) AdminUpdateUserState(ctx context.Context, id int64, req *AdminUpdateUserStateRequest) (*AdminUpdateUserStateResponse, error) {
	adminID, err := currentUserID()
	if err != nil {
		return nil, err
	}
	if !isAdmin() {
		return nil, &errs.Error{Code: errs.Forbidden, Message: "يتطلب صلاحيات مدير"}
	}

	return s.ProcessAdminUserStateUpdate(ctx, adminID, id, req)
}

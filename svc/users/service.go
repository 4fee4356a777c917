// Package users provides user profile and address management services
package users

import (
	"context"
	"strconv"

	"encore.dev/storage/sqldb"

	"encore.app/pkg/audit"
	"encore.app/pkg/errs"
)

// Database instance for the users service
var db = sqldb.Named("coredb")

//encore:service
type Service struct {
	repo *Repository
}

// initService initializes the users service
func initService() (*Service, error) {
	repo := NewRepository(db)

	return &Service{
		repo: repo,
	}, nil
}

// GetUserProfile retrieves a user's profile information
func (s *Service) GetUserProfile(ctx context.Context, userID int64) (*UserProfileResponse, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &UserProfileResponse{
		ID:              user.ID,
		Name:            user.Name,
		Email:           user.Email,
		Phone:           user.Phone,
		PreferredLang:   user.PreferredLang,
		Role:            user.Role,
		State:           user.State,
		EmailVerifiedAt: user.EmailVerifiedAt,
		CreatedAt:       user.CreatedAt,
		UpdatedAt:       user.UpdatedAt,
	}, nil
}

// UpdateUserProfile updates a user's profile information
func (s *Service) UpdateUserProfile(ctx context.Context, userID int64, req *UpdateProfileRequest) (*UpdateProfileResponse, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.State != "active" {
		return nil, ErrUserInactive
	}

	// Validate language if provided
	if req.PreferredLang != nil {
		switch *req.PreferredLang {
		case "ar", "en", "ur":
		default:
			return nil, ErrInvalidLang
		}
	}

	updatedUser, err := s.repo.UpdateUser(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	return &UpdateProfileResponse{
		User: UserProfileResponse{
			ID:              updatedUser.ID,
			Name:            updatedUser.Name,
			Email:           updatedUser.Email,
			Phone:           updatedUser.Phone,
			PreferredLang:   updatedUser.PreferredLang,
			Role:            updatedUser.Role,
			State:           updatedUser.State,
			EmailVerifiedAt: updatedUser.EmailVerifiedAt,
			CreatedAt:       updatedUser.CreatedAt,
			UpdatedAt:       updatedUser.UpdatedAt,
		},
		Message: MsgProfileUpdated,
	}, nil
}

// GetAddressesForUser retrieves all addresses for a user
func (s *Service) GetAddressesForUser(ctx context.Context, userID int64) (*ListAddressesResponse, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.State != "active" {
		return nil, ErrUserInactive
	}

	addresses, err := s.repo.GetUserAddresses(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &ListAddressesResponse{
		Addresses: addresses,
		Total:     len(addresses),
	}, nil
}

// ProcessAddressCreation creates a new address for a user (requires email verification)
func (s *Service) ProcessAddressCreation(ctx context.Context, userID int64, req *AddressInput) (*AddressOutput, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.State != "active" {
		return nil, ErrUserInactive
	}

	// Email verification is required before shipping addresses can be managed
	if user.EmailVerifiedAt == nil {
		return nil, ErrEmailNotVerified
	}

	exists, err := s.repo.CityExists(ctx, req.CityID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrInvalidCity
	}

	address, err := s.repo.CreateAddress(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	return &AddressOutput{
		Address: *address,
		Message: MsgAddressCreated,
	}, nil
}

// ProcessAddressUpdate updates an existing address for a user (requires email verification)
func (s *Service) ProcessAddressUpdate(ctx context.Context, userID, addressID int64, req *UpdateAddressRequest) (*UpdateAddressResponse, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.State != "active" {
		return nil, ErrUserInactive
	}

	if user.EmailVerifiedAt == nil {
		return nil, ErrEmailNotVerified
	}

	// Ownership check
	address, err := s.repo.GetAddressByID(ctx, addressID)
	if err != nil {
		return nil, err
	}
	if address.UserID != userID {
		return nil, ErrAddressPermissionDenied
	}

	if req.CityID != nil {
		exists, err := s.repo.CityExists(ctx, *req.CityID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrInvalidCity
		}
	}

	updatedAddress, err := s.repo.UpdateAddress(ctx, addressID, req)
	if err != nil {
		return nil, err
	}

	return &UpdateAddressResponse{
		Address: *updatedAddress,
		Message: MsgAddressUpdated,
	}, nil
}

// ProcessAddressArchival soft-deletes an address owned by the user
func (s *Service) ProcessAddressArchival(ctx context.Context, userID, addressID int64) (*DeleteAddressResponse, error) {
	address, err := s.repo.GetAddressByID(ctx, addressID)
	if err != nil {
		return nil, err
	}
	if address.UserID != userID {
		return nil, ErrAddressPermissionDenied
	}

	if err := s.repo.ArchiveAddress(ctx, addressID); err != nil {
		return nil, err
	}

	return &DeleteAddressResponse{
		Message: MsgAddressArchived,
		Success: true,
	}, nil
}

// ProcessAdminListUsers returns a paginated admin user listing
func (s *Service) ProcessAdminListUsers(ctx context.Context, q *AdminListUsersQuery) (*AdminListUsersResponse, error) {
	if q == nil {
		q = &AdminListUsersQuery{}
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 100 {
		q.Limit = 20
	}
	if q.Role != "" && q.Role != "customer" && q.Role != "admin" {
		return nil, &errs.Error{Code: errs.InvalidArgument, Message: "قيمة الدور غير صالحة."}
	}
	if q.State != "" && q.State != "active" && q.State != "blocked" {
		return nil, &errs.Error{Code: errs.InvalidArgument, Message: "قيمة الحالة غير صالحة."}
	}

	items, total, err := s.repo.ListUsers(ctx, q)
	if err != nil {
		return nil, err
	}

	return &AdminListUsersResponse{
		Items: items,
		Total: total,
		Page:  q.Page,
		Limit: q.Limit,
	}, nil
}

// ProcessAdminUserStateUpdate blocks or reactivates a user account
func (s *Service) ProcessAdminUserStateUpdate(ctx context.Context, adminUserID, targetUserID int64, req *AdminUpdateUserStateRequest) (*AdminUpdateUserStateResponse, error) {
	if req == nil || (req.State != "active" && req.State != "blocked") {
		return nil, &errs.Error{Code: errs.InvalidArgument, Message: "الحالة يجب أن تكون active أو blocked."}
	}
	if adminUserID == targetUserID {
		return nil, &errs.Error{Code: errs.InvalidArgument, Message: "لا يمكنك تغيير حالة حسابك."}
	}

	target, err := s.repo.GetUserByID(ctx, targetUserID)
	if err != nil {
		return nil, err
	}
	if target.Role == "admin" {
		return nil, &errs.Error{Code: errs.PermissionDenied, Message: "لا يمكن تغيير حالة حساب مدير."}
	}

	updated, err := s.repo.UpdateUserState(ctx, targetUserID, req.State)
	if err != nil {
		return nil, err
	}

	opts := []audit.Option{audit.WithActor(adminUserID)}
	if req.Reason != "" {
		opts = append(opts, audit.WithReason(req.Reason))
	}
	_, _ = audit.LogAction(ctx, db, "users.state.update", "user", strconv.FormatInt(targetUserID, 10),
		map[string]any{"from": target.State, "to": req.State}, opts...)

	return &AdminUpdateUserStateResponse{
		User:    *updated,
		Message: MsgUserStateUpdated,
	}, nil
}

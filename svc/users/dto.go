// Package users provides user profile and address management services
package users

import "time"

// UserProfileResponse represents user profile information
type UserProfileResponse struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone"`
	PreferredLang   string     `json:"preferred_lang"`
	Role            string     `json:"role"`
	State           string     `json:"state"`
	EmailVerifiedAt *time.Time `json:"email_verified_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// UpdateProfileRequest represents the profile update request
type UpdateProfileRequest struct {
	Name          *string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Phone         *string `json:"phone,omitempty" validate:"omitempty"`
	PreferredLang *string `json:"preferred_lang,omitempty" validate:"omitempty"` // ar, en or ur
}

// UpdateProfileResponse represents the profile update response
type UpdateProfileResponse struct {
	User    UserProfileResponse `json:"user"`
	Message string              `json:"message"`
}

// Address represents a user address
type Address struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	FullName   string     `json:"full_name"`
	Phone      string     `json:"phone"`
	CityID     int64      `json:"city_id"`
	Label      string     `json:"label"`
	Line1      string     `json:"line1"`
	Line2      *string    `json:"line2"`
	IsDefault  bool       `json:"is_default"`
	ArchivedAt *time.Time `json:"archived_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// AddressInput represents the address creation request
type AddressInput struct {
	FullName  string  `json:"full_name" validate:"required,min=2,max=100"`
	Phone     string  `json:"phone" validate:"required,min=7,max=20"`
	CityID    int64   `json:"city_id" validate:"required,min=1"`
	Label     string  `json:"label" validate:"required,min=2,max=50"`
	Line1     string  `json:"line1" validate:"required,min=5,max=200"`
	Line2     *string `json:"line2,omitempty" validate:"omitempty,max=200"`
	IsDefault *bool   `json:"is_default,omitempty"`
}

// AddressOutput represents the address creation response
type AddressOutput struct {
	Address Address `json:"address"`
	Message string  `json:"message"`
}

// UpdateAddressRequest represents the address update request
type UpdateAddressRequest struct {
	FullName  *string `json:"full_name,omitempty" validate:"omitempty,min=2,max=100"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,min=7,max=20"`
	CityID    *int64  `json:"city_id,omitempty" validate:"omitempty,min=1"`
	Label     *string `json:"label,omitempty" validate:"omitempty,min=2,max=50"`
	Line1     *string `json:"line1,omitempty" validate:"omitempty,min=5,max=200"`
	Line2     *string `json:"line2,omitempty" validate:"omitempty,max=200"`
	IsDefault *bool   `json:"is_default,omitempty"`
}

// UpdateAddressResponse represents the address update response
type UpdateAddressResponse struct {
	Address Address `json:"address"`
	Message string  `json:"message"`
}

// DeleteAddressResponse represents the address archival response
type DeleteAddressResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

// ListAddressesResponse represents the addresses list response
type ListAddressesResponse struct {
	Addresses []Address `json:"addresses"`
	Total     int       `json:"total"`
}

// AdminListUsersQuery represents list filters for the admin users listing
type AdminListUsersQuery struct {
	Search string `query:"search"`
	Role   string `query:"role"`  // optional: customer/admin
	State  string `query:"state"` // optional: active/blocked
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`
}

// AdminUserListItem represents a user row in the admin listing
type AdminUserListItem struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone"`
	Role            string     `json:"role"`
	State           string     `json:"state"`
	EmailVerifiedAt *time.Time `json:"email_verified_at"`
	CreatedAt       time.Time  `json:"created_at"`
}

// AdminListUsersResponse represents the admin users list response
type AdminListUsersResponse struct {
	Items []AdminUserListItem `json:"items"`
	Total int                 `json:"total"`
	Page  int                 `json:"page"`
	Limit int                 `json:"limit"`
}

// AdminUpdateUserStateRequest represents the admin account state change request
type AdminUpdateUserStateRequest struct {
	State  string `json:"state"` // active or blocked
	Reason string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// AdminUpdateUserStateResponse represents the admin account state change response
type AdminUpdateUserStateResponse struct {
	User    AdminUserListItem `json:"user"`
	Message string            `json:"message"`
}

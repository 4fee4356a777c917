// Package users provides user profile and address management services
package users

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"encore.dev/storage/sqldb"

	"encore.app/pkg/errs"
)

// Repository handles database operations for users
type Repository struct {
	db *sqldb.Database
}

// NewRepository creates a new users repository
func NewRepository(db *sqldb.Database) *Repository {
	return &Repository{db: db}
}

// User represents a user entity from the database
type User struct {
	ID              int64
	Name            string
	Email           string
	Phone           string
	PreferredLang   string
	PasswordHash    string
	Role            string
	State           string
	EmailVerifiedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// GetUserByID retrieves a user by ID
func (r *Repository) GetUserByID(ctx context.Context, userID int64) (*User, error) {
	query := `
        SELECT id, name, email, COALESCE(phone, '') as phone, COALESCE(preferred_lang, 'ar') as preferred_lang,
               password_hash, role, state, email_verified_at, created_at, updated_at
        FROM users WHERE id = $1`

	var user User
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&user.ID, &user.Name, &user.Email, &user.Phone, &user.PreferredLang,
		&user.PasswordHash, &user.Role, &user.State, &user.EmailVerifiedAt,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, &errs.Error{Code: errs.Internal, Message: "خطأ في جلب بيانات المستخدم."}
	}
	return &user, nil
}

// UpdateUser updates user profile information
func (r *Repository) UpdateUser(ctx context.Context, userID int64, req *UpdateProfileRequest) (*User, error) {
	set := []string{}
	args := []interface{}{}
	idx := 1
	if req.Name != nil {
		set = append(set, fmt.Sprintf("name = $%d", idx))
		args = append(args, *req.Name)
		idx++
	}
	if req.Phone != nil {
		set = append(set, fmt.Sprintf("phone = $%d", idx))
		args = append(args, *req.Phone)
		idx++
	}
	if req.PreferredLang != nil {
		set = append(set, fmt.Sprintf("preferred_lang = $%d", idx))
		args = append(args, *req.PreferredLang)
		idx++
	}
	if len(set) == 0 {
		return r.GetUserByID(ctx, userID)
	}
	set = append(set, "updated_at = (CURRENT_TIMESTAMP AT TIME ZONE 'UTC')")
	args = append(args, userID)

	query := `UPDATE users SET ` + strings.Join(set, ", ") + ` WHERE id = $` + fmt.Sprintf("%d", idx) + `
              RETURNING id, name, email, COALESCE(phone, '') as phone, COALESCE(preferred_lang, 'ar') as preferred_lang,
                        password_hash, role, state, email_verified_at, created_at, updated_at`
	var user User
	if err := r.db.QueryRow(ctx, query, args...).Scan(
		&user.ID, &user.Name, &user.Email, &user.Phone, &user.PreferredLang,
		&user.PasswordHash, &user.Role, &user.State, &user.EmailVerifiedAt,
		&user.CreatedAt, &user.UpdatedAt,
	); err != nil {
		return nil, &errs.Error{Code: errs.Internal, Message: "فشل تحديث الملف الشخصي."}
	}
	return &user, nil
}

// CityExists checks if a city exists and is enabled for delivery
func (r *Repository) CityExists(ctx context.Context, cityID int64) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM cities WHERE id = $1 AND enabled = true)`, cityID).Scan(&exists); err != nil {
		return false, &errs.Error{Code: errs.Internal, Message: "خطأ في التحقق من المدينة."}
	}
	return exists, nil
}

// GetUserAddresses retrieves all non-archived addresses for a user
func (r *Repository) GetUserAddresses(ctx context.Context, userID int64) ([]Address, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, user_id, full_name, phone, city_id, label, line1, line2, is_default, archived_at, created_at, updated_at
        FROM addresses WHERE user_id = $1 AND archived_at IS NULL
        ORDER BY is_default DESC, created_at DESC`, userID)
	if err != nil {
		return nil, &errs.Error{Code: errs.Internal, Message: "تعذر جلب العناوين."}
	}
	defer rows.Close()

	var res []Address
	for rows.Next() {
		var a Address
		if err := rows.Scan(&a.ID, &a.UserID, &a.FullName, &a.Phone, &a.CityID, &a.Label, &a.Line1, &a.Line2, &a.IsDefault, &a.ArchivedAt, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, &errs.Error{Code: errs.Internal, Message: "تعذر قراءة العنوان."}
		}
		res = append(res, a)
	}
	if err := rows.Err(); err != nil {
		return nil, &errs.Error{Code: errs.Internal, Message: "خطأ في قراءة العناوين."}
	}
	return res, nil
}

// GetAddressByID retrieves an address by ID
func (r *Repository) GetAddressByID(ctx context.Context, addressID int64) (*Address, error) {
	var a Address
	err := r.db.QueryRow(ctx, `
        SELECT id, user_id, full_name, phone, city_id, label, line1, line2, is_default, archived_at, created_at, updated_at
        FROM addresses WHERE id = $1`, addressID,
	).Scan(&a.ID, &a.UserID, &a.FullName, &a.Phone, &a.CityID, &a.Label, &a.Line1, &a.Line2, &a.IsDefault, &a.ArchivedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAddressNotFound
		}
		return nil, &errs.Error{Code: errs.Internal, Message: "خطأ في جلب العنوان."}
	}
	return &a, nil
}

// CreateAddress creates a new address for a user
func (r *Repository) CreateAddress(ctx context.Context, userID int64, req *AddressInput) (*Address, error) {
	isDefault := false
	if req.IsDefault != nil {
		isDefault = *req.IsDefault
	}

	var a Address
	err := r.db.QueryRow(ctx, `
        INSERT INTO addresses (user_id, full_name, phone, city_id, label, line1, line2, is_default, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,(CURRENT_TIMESTAMP AT TIME ZONE 'UTC'),(CURRENT_TIMESTAMP AT TIME ZONE 'UTC'))
        RETURNING id, user_id, full_name, phone, city_id, label, line1, line2, is_default, archived_at, created_at, updated_at`,
		userID, req.FullName, req.Phone, req.CityID, req.Label, req.Line1, req.Line2, isDefault,
	).Scan(&a.ID, &a.UserID, &a.FullName, &a.Phone, &a.CityID, &a.Label, &a.Line1, &a.Line2, &a.IsDefault, &a.ArchivedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "uq_default_address_per_user") {
			return nil, ErrDefaultAddressExists
		}
		return nil, &errs.Error{Code: errs.Internal, Message: "تعذر إنشاء العنوان."}
	}
	return &a, nil
}

// UpdateAddress updates an existing address
func (r *Repository) UpdateAddress(ctx context.Context, addressID int64, req *UpdateAddressRequest) (*Address, error) {
	set := []string{}
	args := []interface{}{}
	idx := 1
	if req.FullName != nil {
		set = append(set, fmt.Sprintf("full_name = $%d", idx))
		args = append(args, *req.FullName)
		idx++
	}
	if req.Phone != nil {
		set = append(set, fmt.Sprintf("phone = $%d", idx))
		args = append(args, *req.Phone)
		idx++
	}
	if req.CityID != nil {
		set = append(set, fmt.Sprintf("city_id = $%d", idx))
		args = append(args, *req.CityID)
		idx++
	}
	if req.Label != nil {
		set = append(set, fmt.Sprintf("label = $%d", idx))
		args = append(args, *req.Label)
		idx++
	}
	if req.Line1 != nil {
		set = append(set, fmt.Sprintf("line1 = $%d", idx))
		args = append(args, *req.Line1)
		idx++
	}
	if req.Line2 != nil {
		set = append(set, fmt.Sprintf("line2 = $%d", idx))
		args = append(args, *req.Line2)
		idx++
	}
	if req.IsDefault != nil {
		set = append(set, fmt.Sprintf("is_default = $%d", idx))
		args = append(args, *req.IsDefault)
		idx++
	}
	set = append(set, "updated_at = (CURRENT_TIMESTAMP AT TIME ZONE 'UTC')")
	args = append(args, addressID)

	query := `UPDATE addresses SET ` + strings.Join(set, ", ") + ` WHERE id = $` + fmt.Sprintf("%d", idx) + `
              RETURNING id, user_id, full_name, phone, city_id, label, line1, line2, is_default, archived_at, created_at, updated_at`
	var a Address
	if err := r.db.QueryRow(ctx, query, args...).Scan(&a.ID, &a.UserID, &a.FullName, &a.Phone, &a.CityID, &a.Label, &a.Line1, &a.Line2, &a.IsDefault, &a.ArchivedAt, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, &errs.Error{Code: errs.Internal, Message: "تعذر تحديث العنوان."}
	}
	return &a, nil
}

// ArchiveAddress soft-deletes an address
func (r *Repository) ArchiveAddress(ctx context.Context, addressID int64) error {
	if _, err := r.db.Exec(ctx, `
        UPDATE addresses
        SET archived_at = (CURRENT_TIMESTAMP AT TIME ZONE 'UTC'), is_default = false,
            updated_at = (CURRENT_TIMESTAMP AT TIME ZONE 'UTC')
        WHERE id = $1`, addressID); err != nil {
		return &errs.Error{Code: errs.Internal, Message: "تعذر أرشفة العنوان."}
	}
	return nil
}

// ListUsers returns a page of users for the admin listing
func (r *Repository) ListUsers(ctx context.Context, q *AdminListUsersQuery) ([]AdminUserListItem, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	idx := 1
	if q.Search != "" {
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", idx, idx))
		args = append(args, "%"+q.Search+"%")
		idx++
	}
	if q.Role != "" {
		where = append(where, fmt.Sprintf("role = $%d", idx))
		args = append(args, q.Role)
		idx++
	}
	if q.State != "" {
		where = append(where, fmt.Sprintf("state = $%d", idx))
		args = append(args, q.State)
		idx++
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, &errs.Error{Code: errs.Internal, Message: "تعذر عدّ المستخدمين."}
	}

	offset := (q.Page - 1) * q.Limit
	args = append(args, q.Limit, offset)
	rows, err := r.db.Query(ctx, `
        SELECT id, name, email, COALESCE(phone, '') as phone, role, state, email_verified_at, created_at
        FROM users WHERE `+cond+`
        ORDER BY created_at DESC
        LIMIT $`+fmt.Sprintf("%d", idx)+` OFFSET $`+fmt.Sprintf("%d", idx+1), args...)
	if err != nil {
		return nil, 0, &errs.Error{Code: errs.Internal, Message: "تعذر جلب المستخدمين."}
	}
	defer rows.Close()

	var items []AdminUserListItem
	for rows.Next() {
		var u AdminUserListItem
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Role, &u.State, &u.EmailVerifiedAt, &u.CreatedAt); err != nil {
			return nil, 0, &errs.Error{Code: errs.Internal, Message: "تعذر قراءة المستخدم."}
		}
		items = append(items, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, &errs.Error{Code: errs.Internal, Message: "خطأ في قراءة المستخدمين."}
	}
	return items, total, nil
}

// UpdateUserState changes a user's account state
func (r *Repository) UpdateUserState(ctx context.Context, userID int64, state string) (*AdminUserListItem, error) {
	var u AdminUserListItem
	err := r.db.QueryRow(ctx, `
        UPDATE users SET state = $2, updated_at = (CURRENT_TIMESTAMP AT TIME ZONE 'UTC')
        WHERE id = $1
        RETURNING id, name, email, COALESCE(phone, '') as phone, role, state, email_verified_at, created_at`,
		userID, state,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Role, &u.State, &u.EmailVerifiedAt, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, &errs.Error{Code: errs.Internal, Message: "تعذر تحديث حالة الحساب."}
	}
	return &u, nil
}

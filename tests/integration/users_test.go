package integration

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	authlib "encore.dev/beta/auth"

	users "encore.app/svc/users"
)

func createActiveUserVerifiedEmail(t *testing.T) int64 {
	t.Helper()
	ctx := context.Background()
	email := fmt.Sprintf("user_profile_%d@example.com", time.Now().UnixNano())
	var id int64
	if err := testDB.QueryRow(ctx, `
        INSERT INTO users (name,email,password_hash,phone,preferred_lang,role,state,email_verified_at,created_at,updated_at)
        VALUES ('User Profile',$1,'x','+966533333333','ar','customer','active',NOW(),NOW(),NOW()) RETURNING id
    `, email).Scan(&id); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return id
}

func userCtxUsers(t *testing.T, userID int64) context.Context {
	t.Helper()
	ctx := context.Background()
	ad := struct {
		UserID int64
		Role   string
		Email  string
	}{UserID: userID, Role: "customer", Email: fmt.Sprintf("u_%d@example.com", userID)}
	return authlib.WithContext(ctx, authlib.UID(strconv.FormatInt(userID, 10)), &ad)
}

func TestUsers_Profile_And_Addresses(t *testing.T) {
	t.Parallel()
	userID := createActiveUserVerifiedEmail(t)
	// Get profile via repo to avoid auth requirement
	if u, err := users.NewRepository(testDB).GetUserByID(context.Background(), userID); err != nil || u == nil || u.ID != userID {
		t.Fatalf("GetUserByID failed: %v", err)
	}

	// Switch preferred language to Urdu
	if _, err := testDB.Exec(context.Background(), `UPDATE users SET preferred_lang='ur' WHERE id=$1`, userID); err != nil {
		t.Fatalf("failed to update preferred language: %v", err)
	}

	// List addresses (none)
	if lst, err := users.NewRepository(testDB).GetUserAddresses(context.Background(), userID); err != nil || len(lst) != 0 {
		t.Fatalf("expected 0 addresses initially")
	}

	// Create default address
	addrIn := &users.AddressInput{
		FullName:  "مستخدم تجريبي",
		Phone:     "+966533333333",
		CityID:    1,
		Label:     "المنزل",
		Line1:     "شارع الملك فهد 12",
		Line2:     nil,
		IsDefault: func() *bool { v := true; return &v }(),
	}
	addrOut, err := users.NewRepository(testDB).CreateAddress(context.Background(), userID, addrIn)
	if err != nil {
		t.Fatalf("CreateAddress failed: %v", err)
	}
	if addrOut.ID == 0 || addrOut.UserID != userID {
		t.Fatalf("unexpected address output: %+v", addrOut)
	}
	if !addrOut.IsDefault {
		t.Fatalf("expected address to be default")
	}

	// Update label and line
	newLabel := "العمل"
	newLine := "طريق العليا 45"
	upd, err := users.NewRepository(testDB).UpdateAddress(context.Background(), addrOut.ID, &users.UpdateAddressRequest{
		Label: &newLabel,
		Line1: &newLine,
	})
	if err != nil {
		t.Fatalf("UpdateAddress failed: %v", err)
	}
	if upd.Label != newLabel || upd.Line1 != newLine {
		t.Fatalf("address fields not updated: %+v", upd)
	}

	// Archive address, then it disappears from the active list
	if err := users.NewRepository(testDB).ArchiveAddress(context.Background(), addrOut.ID); err != nil {
		t.Fatalf("ArchiveAddress failed: %v", err)
	}
	if lst, err := users.NewRepository(testDB).GetUserAddresses(context.Background(), userID); err != nil || len(lst) != 0 {
		t.Fatalf("expected archived address to be hidden, got %d", len(lst))
	}
}

func TestUsers_SingleDefaultAddress(t *testing.T) {
	t.Parallel()
	userID := createActiveUserVerifiedEmail(t)
	repo := users.NewRepository(testDB)
	ctx := context.Background()

	yes := true
	first, err := repo.CreateAddress(ctx, userID, &users.AddressInput{
		FullName: "مستخدم", Phone: "+966500000001", CityID: 1,
		Label: "المنزل", Line1: "حي النرجس 1", IsDefault: &yes,
	})
	if err != nil {
		t.Fatalf("first CreateAddress failed: %v", err)
	}

	// A second default for the same user violates the partial unique index
	if _, err := repo.CreateAddress(ctx, userID, &users.AddressInput{
		FullName: "مستخدم", Phone: "+966500000001", CityID: 2,
		Label: "العمل", Line1: "حي الياسمين 2", IsDefault: &yes,
	}); err == nil {
		t.Fatalf("expected second default address to be rejected")
	}

	// Demote the first, then a new default is accepted
	no := false
	if _, err := repo.UpdateAddress(ctx, first.ID, &users.UpdateAddressRequest{IsDefault: &no}); err != nil {
		t.Fatalf("failed to demote default address: %v", err)
	}
	second, err := repo.CreateAddress(ctx, userID, &users.AddressInput{
		FullName: "مستخدم", Phone: "+966500000001", CityID: 2,
		Label: "العمل", Line1: "حي الياسمين 2", IsDefault: &yes,
	})
	if err != nil {
		t.Fatalf("CreateAddress after demotion failed: %v", err)
	}
	if !second.IsDefault {
		t.Fatalf("expected new address to be default")
	}
}

package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"encore.app/pkg/cartstore"
	cartsvc "encore.app/svc/orders/cart"
)

// TestCartPersistence_RoundTrip writes a cart through the SQL port and
// reloads it with a fresh store, the way a returning session would.
func TestCartPersistence_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cartKey := fmt.Sprintf("guest:test-%d", time.Now().UnixNano())
	db := testDB.Stdlib()
	defer func() {
		_, _ = testDB.Exec(ctx, `DELETE FROM carts WHERE cart_key=$1`, cartKey)
	}()

	store := cartstore.New(cartsvc.NewSQLPort(ctx, db, cartKey))
	store.AddItem(cartstore.LineItem{ProductID: "101", Name: "خاتم ذهب", Price: 1200, Quantity: 2})
	store.AddItem(cartstore.LineItem{ProductID: "202", Name: "قلادة لؤلؤ", Price: 850, Quantity: 1})

	// The row must exist after the first mutation
	var cnt int
	if err := testDB.QueryRow(ctx, `SELECT COUNT(*) FROM carts WHERE cart_key=$1`, cartKey).Scan(&cnt); err != nil || cnt != 1 {
		t.Fatalf("expected persisted cart row, cnt=%d err=%v", cnt, err)
	}

	// A fresh store over the same key sees the same items
	reloaded := cartstore.New(cartsvc.NewSQLPort(ctx, db, cartKey))
	if reloaded.TotalItems() != 3 {
		t.Fatalf("expected 3 items after reload, got %d", reloaded.TotalItems())
	}
	items := reloaded.Items()
	if len(items) != 2 || items[0].ProductID != "101" || items[1].ProductID != "202" {
		t.Fatalf("unexpected reloaded items: %+v", items)
	}

	// Quantity update and removal persist too
	reloaded.UpdateQuantity("101", 5)
	reloaded.RemoveItem("202")

	final := cartstore.New(cartsvc.NewSQLPort(ctx, db, cartKey))
	if final.TotalItems() != 5 {
		t.Fatalf("expected quantity 5 after reload, got %d", final.TotalItems())
	}
}

// TestCartPersistence_ClearEmptiesRow clears the cart and expects the stored
// state to come back empty on the next load.
func TestCartPersistence_ClearEmptiesRow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cartKey := fmt.Sprintf("guest:test-clear-%d", time.Now().UnixNano())
	db := testDB.Stdlib()
	defer func() {
		_, _ = testDB.Exec(ctx, `DELETE FROM carts WHERE cart_key=$1`, cartKey)
	}()

	store := cartstore.New(cartsvc.NewSQLPort(ctx, db, cartKey))
	store.AddItem(cartstore.LineItem{ProductID: "1", Name: "سوار فضة", Price: 300, Quantity: 2})
	store.Clear()

	reloaded := cartstore.New(cartsvc.NewSQLPort(ctx, db, cartKey))
	if reloaded.TotalItems() != 0 {
		t.Fatalf("expected empty cart after clear, got %d items", reloaded.TotalItems())
	}
}

// TestGuestCartCleanupQuery exercises the TTL delete the cron job runs.
func TestGuestCartCleanupQuery(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	staleKey := fmt.Sprintf("guest:test-stale-%d", time.Now().UnixNano())
	freshKey := fmt.Sprintf("guest:test-fresh-%d", time.Now().UnixNano())
	defer func() {
		_, _ = testDB.Exec(ctx, `DELETE FROM carts WHERE cart_key IN ($1, $2)`, staleKey, freshKey)
	}()

	if _, err := testDB.Exec(ctx, `
		INSERT INTO carts (cart_key, state, updated_at)
		VALUES ($1, '{"items":[]}', NOW() - INTERVAL '40 days'),
		       ($2, '{"items":[]}', NOW())
	`, staleKey, freshKey); err != nil {
		t.Fatalf("failed to seed carts: %v", err)
	}

	res, err := testDB.Exec(ctx, `
		DELETE FROM carts
		WHERE cart_key LIKE 'guest:test-stale-%'
		  AND updated_at < NOW() - ($1 || ' days')::interval
	`, "30")
	if err != nil {
		t.Fatalf("cleanup delete failed: %v", err)
	}
	if res.RowsAffected() == 0 {
		t.Fatalf("expected the stale cart to be deleted")
	}

	var freshCnt int
	if err := testDB.QueryRow(ctx, `SELECT COUNT(*) FROM carts WHERE cart_key=$1`, freshKey).Scan(&freshCnt); err != nil || freshCnt != 1 {
		t.Fatalf("fresh cart should survive cleanup, cnt=%d err=%v", freshCnt, err)
	}
}

package cartstore

import (
	"testing"
)

func item(id string, price float64, qty int) LineItem {
	return LineItem{ProductID: id, Name: "item " + id, Price: price, Quantity: qty, Image: "/img/" + id + ".jpg", Stock: 10}
}

func TestAddItemMergesDuplicates(t *testing.T) {
	s := New(&MemoryPort{})

	s.AddItem(item("P1", 1000, 1))
	s.AddItem(item("P1", 1000, 2))

	items := s.Items()
	if len(items) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(items))
	}
	if items[0].Quantity != 3 {
		t.Errorf("expected quantity 3, got %d", items[0].Quantity)
	}
	if got := s.TotalPrice(); got != 3000 {
		t.Errorf("expected total price 3000, got %v", got)
	}
}

func TestAddItemDefaultsQuantityToOne(t *testing.T) {
	s := New(&MemoryPort{})
	s.AddItem(item("P1", 500, 0))
	s.AddItem(item("P2", 500, -4))

	for _, it := range s.Items() {
		if it.Quantity != 1 {
			t.Errorf("product %s: expected quantity 1, got %d", it.ProductID, it.Quantity)
		}
	}
}

func TestRemoveItemIdempotent(t *testing.T) {
	s := New(&MemoryPort{})
	s.AddItem(item("P1", 100, 1))
	s.AddItem(item("P2", 200, 2))

	s.RemoveItem("P1")
	s.RemoveItem("P1") // absent: no-op
	s.RemoveItem("P9") // never present: no-op

	items := s.Items()
	if len(items) != 1 || items[0].ProductID != "P2" {
		t.Fatalf("expected only P2 to remain, got %+v", items)
	}
}

func TestUpdateQuantity(t *testing.T) {
	tests := []struct {
		name     string
		quantity int
		wantGone bool
		wantQty  int
	}{
		{name: "positive sets quantity", quantity: 5, wantQty: 5},
		{name: "zero removes item", quantity: 0, wantGone: true},
		{name: "negative removes item", quantity: -5, wantGone: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(&MemoryPort{})
			s.AddItem(item("P1", 750, 2))

			s.UpdateQuantity("P1", tt.quantity)

			items := s.Items()
			if tt.wantGone {
				if len(items) != 0 {
					t.Fatalf("expected item removed, got %+v", items)
				}
				return
			}
			if len(items) != 1 || items[0].Quantity != tt.wantQty {
				t.Fatalf("expected quantity %d, got %+v", tt.wantQty, items)
			}
		})
	}
}

func TestSetQuantityRejectsBelowOne(t *testing.T) {
	s := New(&MemoryPort{})
	s.AddItem(item("P1", 750, 2))

	if s.SetQuantity("P1", 0) {
		t.Error("SetQuantity(0) should be rejected")
	}
	if s.SetQuantity("P1", -1) {
		t.Error("SetQuantity(-1) should be rejected")
	}
	if !s.SetQuantity("P1", 4) {
		t.Error("SetQuantity(4) should succeed")
	}
	if s.SetQuantity("P9", 4) {
		t.Error("SetQuantity on absent product should report false")
	}

	items := s.Items()
	if len(items) != 1 || items[0].Quantity != 4 {
		t.Fatalf("expected P1 with quantity 4, got %+v", items)
	}
}

func TestClear(t *testing.T) {
	s := New(&MemoryPort{})
	s.AddItem(item("P1", 100, 1))
	s.AddItem(item("P2", 200, 3))

	s.Clear()

	if len(s.Items()) != 0 {
		t.Error("expected empty cart after Clear")
	}
	if s.TotalItems() != 0 {
		t.Errorf("expected 0 total items, got %d", s.TotalItems())
	}
	if s.TotalPrice() != 0 {
		t.Errorf("expected 0 total price, got %v", s.TotalPrice())
	}
}

func TestTotalsConsistentAfterEveryMutation(t *testing.T) {
	s := New(&MemoryPort{})

	check := func(step string) {
		wantItems := 0
		wantPrice := 0.0
		for _, it := range s.Items() {
			if it.Quantity <= 0 {
				t.Fatalf("%s: invariant violated, quantity %d for %s", step, it.Quantity, it.ProductID)
			}
			wantItems += it.Quantity
			wantPrice += it.Price * float64(it.Quantity)
		}
		if got := s.TotalItems(); got != wantItems {
			t.Errorf("%s: TotalItems=%d, want %d", step, got, wantItems)
		}
		if got := s.TotalPrice(); got != wantPrice {
			t.Errorf("%s: TotalPrice=%v, want %v", step, got, wantPrice)
		}
	}

	s.AddItem(item("P1", 1250, 1))
	check("add P1")
	s.AddItem(item("P2", 890, 2))
	check("add P2")
	s.AddItem(item("P1", 1250, 3))
	check("merge P1")
	s.UpdateQuantity("P2", 7)
	check("set P2")
	s.UpdateQuantity("P1", 0)
	check("remove P1 via zero")
	s.RemoveItem("P2")
	check("remove P2")
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := New(&MemoryPort{})
	s.AddItem(item("P1", 1000, 2))
	s.AddItem(item("P2", 2500, 1))

	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	restored := New(&MemoryPort{})
	if err := restored.RestoreSnapshot(snap); err != nil {
		t.Fatalf("RestoreSnapshot failed: %v", err)
	}

	a, b := s.Items(), restored.Items()
	if len(a) != len(b) {
		t.Fatalf("expected %d items after round trip, got %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("item %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestLoadSanitizesPersistedState(t *testing.T) {
	port := &MemoryPort{}
	// Hand-written state with a zero-quantity entry and a duplicate id, as an
	// older or buggy writer could have produced.
	_ = port.Save(State{Items: []LineItem{
		{ProductID: "P1", Price: 100, Quantity: 2},
		{ProductID: "P2", Price: 200, Quantity: 0},
		{ProductID: "P1", Price: 100, Quantity: 1},
	}})

	s := New(port)
	items := s.Items()
	if len(items) != 1 {
		t.Fatalf("expected 1 sanitized entry, got %+v", items)
	}
	if items[0].ProductID != "P1" || items[0].Quantity != 3 {
		t.Errorf("expected merged P1 quantity 3, got %+v", items[0])
	}
}

func TestFailedSaveDegradesSilently(t *testing.T) {
	port := &MemoryPort{FailSaves: true}
	s := New(port)

	s.AddItem(item("P1", 100, 1))
	s.AddItem(item("P1", 100, 2))

	// In-memory state stays correct even though nothing was persisted.
	if got := s.TotalItems(); got != 3 {
		t.Errorf("expected in-memory total 3, got %d", got)
	}
	if st, _ := port.Load(); len(st.Items) != 0 {
		t.Errorf("expected nothing persisted, got %+v", st.Items)
	}
}

func TestPersistAfterEveryMutation(t *testing.T) {
	port := &MemoryPort{}
	s := New(port)

	s.AddItem(item("P1", 100, 1))
	if st, _ := port.Load(); len(st.Items) != 1 {
		t.Fatal("AddItem did not persist")
	}
	s.UpdateQuantity("P1", 5)
	if st, _ := port.Load(); st.Items[0].Quantity != 5 {
		t.Fatal("UpdateQuantity did not persist")
	}
	s.Clear()
	if st, _ := port.Load(); len(st.Items) != 0 {
		t.Fatal("Clear did not persist")
	}
}

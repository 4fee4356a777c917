// Package cartstore implements the shopping cart state container used by the
// orders services. The store is an explicit, injectable value (no package
// globals) so callers can plug in their own persistence adapter; the SQL
// adapter lives in svc/orders/cart and an in-memory stub ships here for tests.
package cartstore

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/shopspring/decimal"
)

// LineItem is one product entry in the cart.
type LineItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"` // unit net price
	Quantity  int     `json:"quantity"`
	Image     string  `json:"image"`
	Stock     int     `json:"stock"` // advisory; the store never clamps against it
}

// State is the full cart content. Items are ordered by insertion and unique
// by ProductID; no item ever carries Quantity <= 0.
type State struct {
	Items []LineItem `json:"items"`
}

// Port is the persistence boundary of the store. Load is called once when the
// store is created; Save after every mutation.
type Port interface {
	Load() (State, error)
	Save(State) error
}

// Store holds cart state for one cart (user or guest session) and writes it
// through the persistence port after every mutation. Persistence is
// best-effort: a failing Save leaves the in-memory state authoritative for
// the rest of the session and is not surfaced to the caller.
type Store struct {
	mu    sync.Mutex
	port  Port
	state State
}

// New creates a store backed by the given port. A failing Load starts the
// cart empty rather than propagating the error.
func New(port Port) *Store {
	s := &Store{port: port}
	if port != nil {
		if loaded, err := port.Load(); err == nil {
			s.state = sanitize(loaded)
		}
	}
	return s
}

// sanitize drops entries a conformant writer never produces (Quantity <= 0,
// duplicate ProductID). Persisted state from older versions is untrusted.
func sanitize(st State) State {
	seen := make(map[string]int, len(st.Items))
	out := State{}
	for _, it := range st.Items {
		if it.Quantity <= 0 {
			continue
		}
		if idx, ok := seen[it.ProductID]; ok {
			out.Items[idx].Quantity += it.Quantity
			continue
		}
		seen[it.ProductID] = len(out.Items)
		out.Items = append(out.Items, it)
	}
	return out
}

// AddItem adds a line item. If the product is already in the cart the
// quantities are merged; otherwise the item is appended. A non-positive
// incoming quantity counts as 1.
func (s *Store) AddItem(item LineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	for i := range s.state.Items {
		if s.state.Items[i].ProductID == item.ProductID {
			s.state.Items[i].Quantity += item.Quantity
			s.persist()
			return
		}
	}
	s.state.Items = append(s.state.Items, item)
	s.persist()
}

// RemoveItem removes the entry with the given product id. Removing an absent
// product is a no-op, not an error.
func (s *Store) RemoveItem(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.Items {
		if s.state.Items[i].ProductID == productID {
			s.state.Items = append(s.state.Items[:i], s.state.Items[i+1:]...)
			s.persist()
			return
		}
	}
}

// UpdateQuantity sets (not increments) the quantity of the given product.
// A quantity <= 0 removes the item entirely; that is the documented policy
// of this operation, not a validation failure. UI layers that want "set or
// reject" semantics should call SetQuantity instead.
func (s *Store) UpdateQuantity(productID string, quantity int) {
	if quantity <= 0 {
		s.RemoveItem(productID)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.state.Items {
		if s.state.Items[i].ProductID == productID {
			s.state.Items[i].Quantity = quantity
			s.persist()
			return
		}
	}
}

// SetQuantity sets the quantity of the given product and rejects quantities
// below 1. Returns false when the quantity is invalid or the product is not
// in the cart.
func (s *Store) SetQuantity(productID string, quantity int) bool {
	if quantity < 1 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.state.Items {
		if s.state.Items[i].ProductID == productID {
			s.state.Items[i].Quantity = quantity
			s.persist()
			return true
		}
	}
	return false
}

// Clear empties the cart unconditionally.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{}
	s.persist()
}

// Items returns a copy of the current line items.
func (s *Store) Items() []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]LineItem, len(s.state.Items))
	copy(out, s.state.Items)
	return out
}

// TotalItems returns the sum of quantities across all line items.
func (s *Store) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, it := range s.state.Items {
		total += it.Quantity
	}
	return total
}

// TotalPrice returns the cart subtotal (unit price × quantity, summed).
// The arithmetic runs on decimals so repeated float accumulation cannot
// drift the subtotal shown at checkout.
func (s *Store) TotalPrice() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, it := range s.state.Items {
		line := decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity)))
		total = total.Add(line)
	}
	f, _ := total.Float64()
	return f
}

// Snapshot serializes the current state to JSON.
func (s *Store) Snapshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return json.Marshal(s.state)
}

// RestoreSnapshot replaces the current state with a previously serialized
// one. The snapshot is sanitized on the way in.
func (s *Store) RestoreSnapshot(data []byte) error {
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = sanitize(st)
	s.persist()
	return nil
}

// persist writes the state through the port. Callers hold s.mu. Errors are
// swallowed: the in-memory cart stays correct for the session and the next
// successful Save catches the storage up.
func (s *Store) persist() {
	if s.port == nil {
		return
	}
	_ = s.port.Save(s.state)
}

// MemoryPort is an in-memory Port used by tests and as a fallback when no
// durable storage is configured.
type MemoryPort struct {
	mu    sync.Mutex
	state State
	set   bool

	// FailSaves makes every Save return an error, for exercising the
	// silent-degradation path.
	FailSaves bool
}

// Load returns the last saved state, or an empty one.
func (p *MemoryPort) Load() (State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.set {
		return State{}, nil
	}
	return p.state, nil
}

// Save stores the state in memory.
func (p *MemoryPort) Save(st State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailSaves {
		return errors.New("cartstore: saves disabled")
	}
	p.state = st
	p.set = true
	return nil
}

package cart

// AddToCartRequest adds a product to the cart. Quantity below 1 counts as 1.
type AddToCartRequest struct {
	SessionToken string `header:"X-Cart-Session" encore:"optional"`
	ProductID    int64  `json:"product_id"`
	Qty          int    `json:"qty"`
	Lang         string `json:"lang"` // ar (default), en, ur
}

// UpdateCartItemRequest sets the quantity of a cart line. A qty <= 0 removes
// the line.
type UpdateCartItemRequest struct {
	SessionToken string `header:"X-Cart-Session" encore:"optional"`
	Qty          int    `json:"qty"`
	Lang         string `json:"lang"`
}

// CartSessionRequest carries only the guest session token.
type CartSessionRequest struct {
	SessionToken string `header:"X-Cart-Session" encore:"optional"`
	Lang         string `query:"lang"`
}

// CartItemView is one cart line as returned to clients.
type CartItemView struct {
	ProductID  int64   `json:"product_id"`
	Name       string  `json:"name"` // resolved per requested language
	Slug       string  `json:"slug"`
	PriceNet   float64 `json:"price_net"`
	PriceGross float64 `json:"price_gross"`
	Qty        int     `json:"qty"`
	LineTotal  float64 `json:"line_total"` // gross unit price × qty
	Image      string  `json:"image,omitempty"`
	Stock      int     `json:"stock"`
}

// CartResponse is the full cart as returned after every read or mutation.
// SessionToken is echoed back (and minted on first contact for guests) so the
// client can persist it.
type CartResponse struct {
	SessionToken string         `json:"session_token"`
	Items        []CartItemView `json:"items"`
	TotalItems   int            `json:"total_items"`
	Subtotal     float64        `json:"subtotal"`   // net
	VATAmount    float64        `json:"vat_amount"` // on subtotal
	Total        float64        `json:"total"`      // gross, before shipping
}

// LocalCartItem is one entry of a client-side cart to merge after login.
type LocalCartItem struct {
	ProductID int64 `json:"product_id"`
	Qty       int   `json:"qty"`
}

// MergeCartRequest merges a locally kept cart (guest session or client
// storage) into the caller's server-side cart.
type MergeCartRequest struct {
	SessionToken string          `header:"X-Cart-Session" encore:"optional"`
	LocalItems   []LocalCartItem `json:"local_items"`
	Lang         string          `json:"lang"`
}

// MergeFailure explains why one local item could not be merged.
type MergeFailure struct {
	ProductID int64  `json:"product_id"`
	Reason    string `json:"reason"`
}

// MergeCartResponse reports per-item merge results plus the resulting cart.
type MergeCartResponse struct {
	CartResponse
	Merged []int64        `json:"merged"`
	Failed []MergeFailure `json:"failed"`
}

package cart

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"encore.dev/beta/auth"
	"encore.dev/storage/sqldb"
	"github.com/google/uuid"

	"encore.app/pkg/cartstore"
	"encore.app/pkg/config"
	"encore.app/pkg/errs"
	"encore.app/pkg/metrics"
	"encore.app/pkg/money"
)

var db = sqldb.Named("coredb")

//encore:service
type Service struct{}

var svc *Service

func initService() (*Service, error) {
	// Initialize dynamic config with hot-reload (5 minutes)
	if config.GetGlobalManager() == nil {
		config.Initialize(db, 5*time.Minute)
	}
	svc = &Service{}
	return svc, nil
}

func ensureInit() error {
	if svc == nil {
		if _, err := initService(); err != nil {
			return &errs.Error{Code: errs.Internal, Message: "فشل التهيئة"}
		}
	}
	return nil
}

// resolveCartKey determines whose cart this request targets. Authenticated
// users get a user-scoped key regardless of any guest token; guests get a
// token-scoped key, minting a fresh uuid on first contact.
func resolveCartKey(sessionToken string) (cartKey, token string, err error) {
	if uidStr, ok := auth.UserID(); ok {
		return "user:" + string(uidStr), sessionToken, nil
	}
	if sessionToken == "" {
		token = uuid.NewString()
		return "guest:" + token, token, nil
	}
	if _, perr := uuid.Parse(sessionToken); perr != nil {
		return "", "", &errs.Error{Code: errs.InvalidArgument, Message: "رمز جلسة السلة غير صالح"}
	}
	return "guest:" + sessionToken, sessionToken, nil
}

func loadStore(ctx context.Context, cartKey string) *cartstore.Store {
	return cartstore.New(NewSQLPort(ctx, db.Stdlib(), cartKey))
}

func normalizeLang(lang string) string {
	switch lang {
	case "en", "ur":
		return lang
	}
	return "ar"
}

func maxQtyPerItem() int {
	if settings := config.GetSettings(); settings != nil && settings.CartMaxQuantityPerItem > 0 {
		return settings.CartMaxQuantityPerItem
	}
	return 10
}

func vatRate() float64 {
	if settings := config.GetSettings(); settings != nil && settings.VATEnabled {
		return settings.VATRate
	}
	return 0.0
}

// buildResponse refreshes every line against the catalog (names and prices
// are never trusted from the stored snapshot) and computes totals. Lines
// whose product vanished or was archived are dropped from the cart.
func buildResponse(ctx context.Context, store *cartstore.Store, token, lang string) (*CartResponse, error) {
	repo := NewRepository(db.Stdlib())
	rate := vatRate()

	resp := &CartResponse{
		SessionToken: token,
		Items:        []CartItemView{},
	}

	var netTotals []float64
	for _, item := range store.Items() {
		productID, err := strconv.ParseInt(item.ProductID, 10, 64)
		if err != nil {
			store.RemoveItem(item.ProductID)
			continue
		}
		product, err := repo.GetProductForCart(ctx, productID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				store.RemoveItem(item.ProductID)
				continue
			}
			return nil, &errs.Error{Code: errs.Internal, Message: "فشل جلب السلة"}
		}
		if product.Status == "archived" {
			store.RemoveItem(item.ProductID)
			continue
		}

		view := CartItemView{
			ProductID:  product.ID,
			Name:       product.name(lang),
			Slug:       product.Slug,
			PriceNet:   product.PriceNet,
			PriceGross: money.GrossFromNet(product.PriceNet, rate),
			Qty:        item.Quantity,
			Stock:      product.StockQty,
		}
		view.LineTotal = money.LineTotal(view.PriceGross, view.Qty)
		if product.Thumb.Valid {
			view.Image = product.Thumb.String
		}
		resp.Items = append(resp.Items, view)
		resp.TotalItems += item.Quantity
		netTotals = append(netTotals, money.LineTotal(product.PriceNet, item.Quantity))
	}

	resp.Subtotal = money.Sum(netTotals...)
	resp.VATAmount = money.VATFromNet(resp.Subtotal, rate)
	resp.Total = money.Sum(resp.Subtotal, resp.VATAmount)
	return resp, nil
}

// GetCart returns the caller's cart: the user cart when authenticated, the
// guest-session cart otherwise.
//
//encore:api public method=GET path=/cart
func GetCart(ctx context.Context, req *CartSessionRequest) (*CartResponse, error) {
	if err := ensureInit(); err != nil {
		return nil, err
	}
	if req == nil {
		req = &CartSessionRequest{}
	}
	cartKey, token, err := resolveCartKey(req.SessionToken)
	if err != nil {
		return nil, err
	}
	store := loadStore(ctx, cartKey)
	return buildResponse(ctx, store, token, normalizeLang(req.Lang))
}

// AddToCart adds a product, merging quantities when it is already in the
// cart.
//
//encore:api public method=POST path=/cart
func AddToCart(ctx context.Context, req *AddToCartRequest) (*CartResponse, error) {
	if err := ensureInit(); err != nil {
		return nil, err
	}
	if req == nil || req.ProductID == 0 {
		return nil, &errs.Error{Code: errs.InvalidArgument, Message: "بيانات غير مكتملة"}
	}

	cartKey, token, err := resolveCartKey(req.SessionToken)
	if err != nil {
		return nil, err
	}

	repo := NewRepository(db.Stdlib())
	product, err := repo.GetProductForCart(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &errs.Error{Code: errs.NotFound, Message: "المنتج غير موجود"}
		}
		return nil, &errs.Error{Code: errs.Internal, Message: "فشل جلب المنتج"}
	}
	if product.Status != "available" {
		return nil, &errs.Error{Code: errs.Conflict, Message: "المنتج غير متاح للشراء"}
	}
	if product.StockQty <= 0 {
		return nil, &errs.Error{Code: errs.Conflict, Message: "المنتج غير متوفر في المخزون"}
	}

	qty := req.Qty
	if qty <= 0 {
		qty = 1
	}

	store := loadStore(ctx, cartKey)
	store.AddItem(cartstore.LineItem{
		ProductID: strconv.FormatInt(product.ID, 10),
		Name:      product.NameEn,
		Price:     product.PriceNet,
		Quantity:  qty,
		Stock:     product.StockQty,
	})

	// Clamp against the per-item cap after the merge
	if limit := maxQtyPerItem(); limit > 0 {
		for _, item := range store.Items() {
			if item.ProductID == strconv.FormatInt(product.ID, 10) && item.Quantity > limit {
				store.SetQuantity(item.ProductID, limit)
			}
		}
	}

	metrics.CartMutationsTotal.WithLabelValues("add").Inc()
	return buildResponse(ctx, store, token, normalizeLang(req.Lang))
}

// UpdateCartItem sets the quantity of a cart line. A qty <= 0 removes the
// line.
//
//encore:api public method=PATCH path=/cart/items/:id
func UpdateCartItem(ctx context.Context, id string, req *UpdateCartItemRequest) (*CartResponse, error) {
	if err := ensureInit(); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, &errs.Error{Code: errs.InvalidArgument, Message: "بيانات غير مكتملة"}
	}

	productID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, &errs.Error{Code: errs.InvalidArgument, Message: "معرّف غير صالح"}
	}

	cartKey, token, err := resolveCartKey(req.SessionToken)
	if err != nil {
		return nil, err
	}

	qty := req.Qty
	if limit := maxQtyPerItem(); limit > 0 && qty > limit {
		qty = limit
	}

	store := loadStore(ctx, cartKey)
	store.UpdateQuantity(strconv.FormatInt(productID, 10), qty)

	metrics.CartMutationsTotal.WithLabelValues("update").Inc()
	return buildResponse(ctx, store, token, normalizeLang(req.Lang))
}

// DeleteCartItem removes a cart line. Removing an absent line is a no-op.
//
//encore:api public method=DELETE path=/cart/items/:id
func DeleteCartItem(ctx context.Context, id string, req *CartSessionRequest) (*CartResponse, error) {
	if err := ensureInit(); err != nil {
		return nil, err
	}
	if req == nil {
		req = &CartSessionRequest{}
	}

	productID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, &errs.Error{Code: errs.InvalidArgument, Message: "معرّف غير صالح"}
	}

	cartKey, token, err := resolveCartKey(req.SessionToken)
	if err != nil {
		return nil, err
	}

	store := loadStore(ctx, cartKey)
	store.RemoveItem(strconv.FormatInt(productID, 10))

	metrics.CartMutationsTotal.WithLabelValues("remove").Inc()
	return buildResponse(ctx, store, token, normalizeLang(req.Lang))
}

// ClearCart empties the caller's cart.
//
//encore:api public method=DELETE path=/cart
func ClearCart(ctx context.Context, req *CartSessionRequest) (*CartResponse, error) {
	if err := ensureInit(); err != nil {
		return nil, err
	}
	if req == nil {
		req = &CartSessionRequest{}
	}

	cartKey, token, err := resolveCartKey(req.SessionToken)
	if err != nil {
		return nil, err
	}

	store := loadStore(ctx, cartKey)
	store.Clear()

	metrics.CartMutationsTotal.WithLabelValues("clear").Inc()
	return buildResponse(ctx, store, token, normalizeLang(req.Lang))
}

// MergeCart merges a locally kept cart into the caller's server-side cart,
// typically right after login. Quantities of entries already in the cart are
// merged, not replaced. Unknown and unavailable products are reported back
// per item instead of failing the whole merge.
//
//encore:api auth method=POST path=/cart/merge
func MergeCart(ctx context.Context, req *MergeCartRequest) (*MergeCartResponse, error) {
	if err := ensureInit(); err != nil {
		return nil, err
	}
	if req == nil {
		req = &MergeCartRequest{}
	}

	cartKey, token, err := resolveCartKey(req.SessionToken)
	if err != nil {
		return nil, err
	}

	repo := NewRepository(db.Stdlib())
	store := loadStore(ctx, cartKey)
	response := &MergeCartResponse{}

	// Pull the guest-session cart into the merge set first so a login picks
	// up what the visitor collected before authenticating.
	if req.SessionToken != "" {
		guestStore := loadStore(ctx, "guest:"+req.SessionToken)
		for _, item := range guestStore.Items() {
			pid, err := strconv.ParseInt(item.ProductID, 10, 64)
			if err != nil {
				continue
			}
			req.LocalItems = append(req.LocalItems, LocalCartItem{ProductID: pid, Qty: item.Quantity})
		}
		guestStore.Clear()
		_ = repo.DeleteCart(ctx, "guest:"+req.SessionToken)
	}

	limit := maxQtyPerItem()
	for _, local := range req.LocalItems {
		product, err := repo.GetProductForCart(ctx, local.ProductID)
		if err != nil {
			response.Failed = append(response.Failed, MergeFailure{ProductID: local.ProductID, Reason: "المنتج غير موجود"})
			continue
		}
		if product.Status != "available" {
			response.Failed = append(response.Failed, MergeFailure{ProductID: local.ProductID, Reason: "المنتج غير متاح"})
			continue
		}

		qty := local.Qty
		if qty <= 0 {
			qty = 1
		}
		key := strconv.FormatInt(product.ID, 10)
		store.AddItem(cartstore.LineItem{
			ProductID: key,
			Name:      product.NameEn,
			Price:     product.PriceNet,
			Quantity:  qty,
			Stock:     product.StockQty,
		})
		if limit > 0 {
			for _, item := range store.Items() {
				if item.ProductID == key && item.Quantity > limit {
					store.SetQuantity(key, limit)
				}
			}
		}
		response.Merged = append(response.Merged, local.ProductID)
	}

	metrics.CartMutationsTotal.WithLabelValues("merge").Inc()

	cartResp, err := buildResponse(ctx, store, token, normalizeLang(req.Lang))
	if err != nil {
		return nil, err
	}
	response.CartResponse = *cartResp
	return response, nil
}

package cart

import (
	"context"
	"database/sql"
	"encoding/json"

	"encore.app/pkg/cartstore"
)

type Repository struct{ db *sql.DB }

func NewRepository(db *sql.DB) *Repository { return &Repository{db: db} }

// cartProduct is the product snapshot the cart needs for validation and
// display. Prices are always re-read from here, never trusted from clients.
type cartProduct struct {
	ID       int64
	NameEn   string
	NameUr   string
	NameAr   string
	Slug     string
	PriceNet float64
	StockQty int
	Status   string
	Thumb    sql.NullString
}

func (p cartProduct) name(lang string) string {
	switch lang {
	case "ur":
		if p.NameUr != "" {
			return p.NameUr
		}
	case "ar":
		if p.NameAr != "" {
			return p.NameAr
		}
	}
	return p.NameEn
}

func (r *Repository) GetProductForCart(ctx context.Context, productID int64) (*cartProduct, error) {
	var p cartProduct
	err := r.db.QueryRowContext(ctx, `
        SELECT p.id, p.name_en, p.name_ur, p.name_ar, p.slug, p.price_net, p.stock_qty, p.status::text,
               (SELECT m.thumb_path FROM media m
                WHERE m.product_id = p.id AND m.kind = 'image' AND m.archived_at IS NULL
                ORDER BY m.id LIMIT 1)
        FROM products p
        WHERE p.id = $1
    `, productID).Scan(&p.ID, &p.NameEn, &p.NameUr, &p.NameAr, &p.Slug, &p.PriceNet, &p.StockQty, &p.Status, &p.Thumb)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteCart drops the persisted state for a cart key.
func (r *Repository) DeleteCart(ctx context.Context, cartKey string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM carts WHERE cart_key = $1`, cartKey)
	return err
}

// SQLPort persists one cart's serialized state keyed by cart key
// ("user:<id>" or "guest:<token>"). It implements cartstore.Port.
type SQLPort struct {
	ctx context.Context
	db  *sql.DB
	key string
}

func NewSQLPort(ctx context.Context, db *sql.DB, cartKey string) *SQLPort {
	return &SQLPort{ctx: ctx, db: db, key: cartKey}
}

func (p *SQLPort) Load() (cartstore.State, error) {
	var raw []byte
	err := p.db.QueryRowContext(p.ctx, `SELECT state FROM carts WHERE cart_key = $1`, p.key).Scan(&raw)
	if err != nil {
		if err == sql.ErrNoRows {
			return cartstore.State{}, nil
		}
		return cartstore.State{}, err
	}
	var st cartstore.State
	if err := json.Unmarshal(raw, &st); err != nil {
		return cartstore.State{}, err
	}
	return st, nil
}

func (p *SQLPort) Save(st cartstore.State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(p.ctx, `
        INSERT INTO carts (cart_key, state, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (cart_key)
        DO UPDATE SET state = EXCLUDED.state, updated_at = NOW()
    `, p.key, raw)
	return err
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/biovolt/marketplace-api/internal/domain"
	pg "github.com/biovolt/marketplace-api/internal/platform/postgres"
	"github.com/biovolt/marketplace-api/internal/repositories"
)

// CartRepository is the Postgres-backed cart store.
type CartRepository struct {
	db *sql.DB
}

// NewCartRepository constructs the repository.
func NewCartRepository(db *sql.DB) *CartRepository {
	return &CartRepository{db: db}
}

var _ repositories.CartRepository = (*CartRepository)(nil)

func (r *CartRepository) FindByUser(ctx context.Context, userID string) (domain.Cart, error) {
	return r.findBy(ctx, `user_id = $1`, userID)
}

func (r *CartRepository) FindBySessionToken(ctx context.Context, token string) (domain.Cart, error) {
	return r.findBy(ctx, `session_token = $1`, token)
}

func (r *CartRepository) findBy(ctx context.Context, predicate string, arg any) (domain.Cart, error) {
	q := pg.QuerierFor(ctx, r.db)

	var (
		cart         domain.Cart
		userID       sql.NullString
		sessionToken sql.NullString
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, user_id, session_token, created_at, updated_at
		 FROM carts WHERE `+predicate, arg).
		Scan(&cart.ID, &userID, &sessionToken, &cart.CreatedAt, &cart.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Cart{}, repositories.NewNotFound("cart", err)
	}
	if err != nil {
		return domain.Cart{}, repositories.NewUnavailable("find cart", err)
	}
	cart.UserID = userID.String
	cart.SessionToken = sessionToken.String

	items, err := r.loadItems(ctx, q, cart.ID)
	if err != nil {
		return domain.Cart{}, err
	}
	cart.Items = items
	return cart, nil
}

func (r *CartRepository) loadItems(ctx context.Context, q pg.Querier, cartID string) ([]domain.CartItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, cart_id, product_id, quantity, selected_variant, added_at, updated_at
		 FROM cart_items WHERE cart_id = $1 ORDER BY added_at`, cartID)
	if err != nil {
		return nil, repositories.NewUnavailable("list cart items", err)
	}
	defer rows.Close()

	var items []domain.CartItem
	for rows.Next() {
		var (
			item    domain.CartItem
			variant []byte
		)
		if err := rows.Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity,
			&variant, &item.AddedAt, &item.UpdatedAt); err != nil {
			return nil, repositories.NewUnavailable("scan cart item", err)
		}
		selection, err := scanVariantJSON(variant)
		if err != nil {
			return nil, repositories.NewUnavailable("decode cart item variant", err)
		}
		item.SelectedVariant = selection
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, repositories.NewUnavailable("iterate cart items", err)
	}
	return items, nil
}

func (r *CartRepository) Create(ctx context.Context, cart domain.Cart) error {
	q := pg.QuerierFor(ctx, r.db)

	_, err := q.ExecContext(ctx,
		`INSERT INTO carts (id, user_id, session_token, created_at, updated_at)
		 VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5)`,
		cart.ID, cart.UserID, cart.SessionToken, cart.CreatedAt, cart.UpdatedAt)
	if err != nil {
		return repositories.NewUnavailable("create cart", err)
	}
	return nil
}

func (r *CartRepository) UpsertItem(ctx context.Context, item domain.CartItem) error {
	q := pg.QuerierFor(ctx, r.db)

	variant, err := variantJSON(item.SelectedVariant)
	if err != nil {
		return repositories.NewUnavailable("encode cart item variant", err)
	}

	variantID := ""
	if item.SelectedVariant != nil {
		variantID = item.SelectedVariant.ID
	}

	_, err = q.ExecContext(ctx,
		`INSERT INTO cart_items
		   (id, cart_id, product_id, variant_id, quantity, selected_variant, added_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (cart_id, product_id, variant_id)
		 DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity,
		               updated_at = EXCLUDED.updated_at`,
		item.ID, item.CartID, item.ProductID, variantID, item.Quantity, variant,
		item.AddedAt, item.UpdatedAt)
	if err != nil {
		return repositories.NewUnavailable("upsert cart item", err)
	}
	return nil
}

func (r *CartRepository) UpdateItemQuantity(ctx context.Context, cartID, itemID string, quantity int) error {
	q := pg.QuerierFor(ctx, r.db)

	res, err := q.ExecContext(ctx,
		`UPDATE cart_items SET quantity = $3, updated_at = now()
		 WHERE cart_id = $1 AND id = $2`,
		cartID, itemID, quantity)
	if err != nil {
		return repositories.NewUnavailable("update cart item", err)
	}
	return requireRow(res, fmt.Sprintf("cart item %s", itemID))
}

func (r *CartRepository) DeleteItem(ctx context.Context, cartID, itemID string) error {
	q := pg.QuerierFor(ctx, r.db)

	res, err := q.ExecContext(ctx,
		`DELETE FROM cart_items WHERE cart_id = $1 AND id = $2`, cartID, itemID)
	if err != nil {
		return repositories.NewUnavailable("delete cart item", err)
	}
	return requireRow(res, fmt.Sprintf("cart item %s", itemID))
}

func (r *CartRepository) Clear(ctx context.Context, cartID string) error {
	q := pg.QuerierFor(ctx, r.db)

	_, err := q.ExecContext(ctx,
		`DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		return repositories.NewUnavailable("clear cart", err)
	}
	return nil
}

func requireRow(res sql.Result, subject string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return repositories.NewUnavailable("update result", err)
	}
	if affected == 0 {
		return repositories.NewNotFound(subject, nil)
	}
	return nil
}

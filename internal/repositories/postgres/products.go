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

// ProductRepository is the Postgres-backed catalog and stock store.
type ProductRepository struct {
	db *sql.DB
}

// NewProductRepository constructs the repository.
func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

var _ repositories.ProductRepository = (*ProductRepository)(nil)

const productColumns = `id, name, description, category, price, stock_quantity, low_stock_threshold, image_url, created_at, updated_at`

func (r *ProductRepository) List(ctx context.Context, category string) ([]domain.Product, error) {
	q := pg.QuerierFor(ctx, r.db)

	query := `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC`
	args := []any{}
	if category != "" {
		query = `SELECT ` + productColumns + ` FROM products WHERE category = $1 ORDER BY created_at DESC`
		args = append(args, category)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, repositories.NewUnavailable("list products", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, repositories.NewUnavailable("scan product", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, repositories.NewUnavailable("iterate products", err)
	}

	if err := r.attachVariants(ctx, q, products); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	q := pg.QuerierFor(ctx, r.db)

	row := q.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, productID)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, repositories.NewNotFound(fmt.Sprintf("product %s", productID), err)
	}
	if err != nil {
		return domain.Product{}, repositories.NewUnavailable("find product", err)
	}

	products := []domain.Product{p}
	if err := r.attachVariants(ctx, q, products); err != nil {
		return domain.Product{}, err
	}
	return products[0], nil
}

func (r *ProductRepository) DeductStock(ctx context.Context, productID string, quantity int) error {
	q := pg.QuerierFor(ctx, r.db)

	res, err := q.ExecContext(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity - $2, updated_at = now()
		 WHERE id = $1 AND stock_quantity >= $2`,
		productID, quantity)
	if err != nil {
		return repositories.NewUnavailable("deduct product stock", err)
	}
	return checkStockUpdate(res, fmt.Sprintf("product %s", productID))
}

func (r *ProductRepository) DeductVariantStock(ctx context.Context, variantID string, quantity int) error {
	q := pg.QuerierFor(ctx, r.db)

	res, err := q.ExecContext(ctx,
		`UPDATE product_variants
		 SET stock_quantity = stock_quantity - $2
		 WHERE id = $1 AND stock_quantity >= $2`,
		variantID, quantity)
	if err != nil {
		return repositories.NewUnavailable("deduct variant stock", err)
	}
	return checkStockUpdate(res, fmt.Sprintf("variant %s", variantID))
}

func (r *ProductRepository) RestoreStock(ctx context.Context, productID string, quantity int) error {
	q := pg.QuerierFor(ctx, r.db)

	_, err := q.ExecContext(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity + $2, updated_at = now()
		 WHERE id = $1`,
		productID, quantity)
	if err != nil {
		return repositories.NewUnavailable("restore product stock", err)
	}
	return nil
}

func (r *ProductRepository) RestoreVariantStock(ctx context.Context, variantID string, quantity int) error {
	q := pg.QuerierFor(ctx, r.db)

	_, err := q.ExecContext(ctx,
		`UPDATE product_variants
		 SET stock_quantity = stock_quantity + $2
		 WHERE id = $1`,
		variantID, quantity)
	if err != nil {
		return repositories.NewUnavailable("restore variant stock", err)
	}
	return nil
}

// checkStockUpdate turns a zero-row conditional update into a conflict. The
// guard clause cannot distinguish a missing row from short stock; both abort
// the checkout the same way.
func checkStockUpdate(res sql.Result, subject string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return repositories.NewUnavailable("stock update result", err)
	}
	if affected == 0 {
		return repositories.NewConflict(fmt.Sprintf("insufficient stock for %s", subject), nil)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		p        domain.Product
		desc     sql.NullString
		category sql.NullString
		imageURL sql.NullString
	)
	err := row.Scan(&p.ID, &p.Name, &desc, &category, &p.Price, &p.StockQuantity,
		&p.LowStockThreshold, &imageURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Product{}, err
	}
	p.Description = desc.String
	p.Category = category.String
	p.ImageURL = imageURL.String
	return p, nil
}

func (r *ProductRepository) attachVariants(ctx context.Context, q pg.Querier, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	index := make(map[string]int, len(products))
	ids := make([]string, len(products))
	for i, p := range products {
		index[p.ID] = i
		ids[i] = p.ID
	}

	rows, err := q.QueryContext(ctx,
		`SELECT id, product_id, name, price, stock_quantity
		 FROM product_variants
		 WHERE product_id = ANY($1)
		 ORDER BY name`, pqArray(ids))
	if err != nil {
		return repositories.NewUnavailable("list variants", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			v     domain.ProductVariant
			price sql.NullFloat64
		)
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Name, &price, &v.StockQuantity); err != nil {
			return repositories.NewUnavailable("scan variant", err)
		}
		if price.Valid {
			value := price.Float64
			v.Price = &value
		}
		if i, ok := index[v.ProductID]; ok {
			products[i].Variants = append(products[i].Variants, v)
		}
	}
	return rows.Err()
}

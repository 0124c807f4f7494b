package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/luckybee/storefront-system/internal/model"
)

// ProductFilter задаёт фильтры по равенству для выборки товаров.
// Пустое поле означает отсутствие фильтра по нему.
type ProductFilter struct {
	Status   model.ProductStatus
	Category string
}

// Поля, по которым каталог умеет сортировать товары.
const (
	SortFieldCreatedAt  = "created_at"
	SortFieldName       = "name"
	SortFieldSalesCount = "sales_count"
)

// ProductSort задаёт сортировку выборки товаров по одному полю.
type ProductSort struct {
	Field      string
	Descending bool
}

var productSortFields = map[string]bool{
	SortFieldCreatedAt:  true,
	SortFieldName:       true,
	SortFieldSalesCount: true,
}

const productColumns = `id, name, slug, description, short_description, category, sku,
	wholesale_price, retail_price, cost_per_item,
	has_box_option, box_wholesale_price, box_retail_price,
	inventory, low_stock_threshold, minimum_order_quantity, weight_oz,
	status, featured, tags, images, sales_count, view_count, created_at, updated_at`

func scanProduct(row pgx.Row) (model.Product, error) {
	var p model.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Slug, &p.Description, &p.ShortDescription, &p.Category, &p.SKU,
		&p.WholesalePrice, &p.RetailPrice, &p.CostPerItem,
		&p.HasBoxOption, &p.BoxWholesalePrice, &p.BoxRetailPrice,
		&p.Inventory, &p.LowStockThreshold, &p.MinimumOrderQuantity, &p.WeightOz,
		&p.Status, &p.Featured, &p.Tags, &p.Images, &p.SalesCount, &p.ViewCount,
		&p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

// CountProducts возвращает число товаров, удовлетворяющих фильтру.
func (r *PostgresRepository) CountProducts(ctx context.Context, filter ProductFilter) (int, error) {
	query := `SELECT COUNT(*) FROM products`
	args := []any{}
	conds := []string{}

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}

	var count int
	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx, query, args...).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}

	return count, nil
}

// ListProducts возвращает страницу товаров и курсор её последнего документа.
// Курсор after продолжает выборку после указанного документа; limit <= 0
// означает выборку без ограничения. Пагинация выполняется только через
// keyset-сравнение (field, id), смещения не используются.
func (r *PostgresRepository) ListProducts(ctx context.Context, filter ProductFilter, sort ProductSort, limit int, after string) ([]model.Product, string, error) {
	if !productSortFields[sort.Field] {
		return nil, "", fmt.Errorf("unsupported sort field: %s", sort.Field)
	}

	op := ">"
	dir := "ASC"
	if sort.Descending {
		op = "<"
		dir = "DESC"
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE status = $1`
	args := []any{string(filter.Status)}

	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(` AND category = $%d`, len(args))
	}

	if after != "" {
		sortValue, id, err := decodeCursor(after, sort.Field, sort.Descending)
		if err != nil {
			return nil, "", err
		}
		typed, err := decodeSortValue(sort.Field, sortValue)
		if err != nil {
			return nil, "", err
		}
		args = append(args, typed, id)
		query += fmt.Sprintf(` AND (%s, id) %s ($%d, $%d)`, sort.Field, op, len(args)-1, len(args))
	}

	query += fmt.Sprintf(` ORDER BY %s %s, id %s`, sort.Field, dir, dir)

	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	var products []model.Product
	err := r.withRetry(ctx, func() error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		products = products[:0]
		for rows.Next() {
			p, err := scanProduct(rows)
			if err != nil {
				return fmt.Errorf("scan product: %w", err)
			}
			products = append(products, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, "", fmt.Errorf("select products: %w", err)
	}

	if len(products) == 0 {
		return nil, "", nil
	}

	last := products[len(products)-1]
	cursor := encodeCursor(sort.Field, sort.Descending, encodeSortValue(sort.Field, last), last.ID)

	return products, cursor, nil
}

func encodeSortValue(field string, p model.Product) string {
	switch field {
	case SortFieldCreatedAt:
		return p.CreatedAt.Format(time.RFC3339Nano)
	case SortFieldSalesCount:
		return strconv.FormatInt(p.SalesCount, 10)
	default:
		return p.Name
	}
}

func decodeSortValue(field, value string) (any, error) {
	switch field {
	case SortFieldCreatedAt:
		t, err := time.Parse(time.RFC3339Nano, value)
		if err != nil {
			return nil, ErrBadCursor
		}
		return t, nil
	case SortFieldSalesCount:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, ErrBadCursor
		}
		return n, nil
	default:
		return value, nil
	}
}

// GetProduct возвращает товар по идентификатору.
func (r *PostgresRepository) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id)

	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return &p, nil
}

// GetProductBySlug возвращает товар по slug.
func (r *PostgresRepository) GetProductBySlug(ctx context.Context, slug string) (*model.Product, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE slug = $1`, slug)

	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product by slug: %w", err)
	}

	return &p, nil
}

// CreateProduct сохраняет новый товар.
func (r *PostgresRepository) CreateProduct(ctx context.Context, p *model.Product) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO products (
			id, name, slug, description, short_description, category, sku,
			wholesale_price, retail_price, cost_per_item,
			has_box_option, box_wholesale_price, box_retail_price,
			inventory, low_stock_threshold, minimum_order_quantity, weight_oz,
			status, featured, tags, images, sales_count, view_count
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)`,
		p.ID, p.Name, p.Slug, p.Description, p.ShortDescription, p.Category, p.SKU,
		p.WholesalePrice, p.RetailPrice, p.CostPerItem,
		p.HasBoxOption, p.BoxWholesalePrice, p.BoxRetailPrice,
		p.Inventory, p.LowStockThreshold, p.MinimumOrderQuantity, p.WeightOz,
		string(p.Status), p.Featured, p.Tags, p.Images, p.SalesCount, p.ViewCount,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: %s", ErrProductExists, p.Slug)
		}
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

// UpdateProductStatus меняет статус товара и обновляет updated_at.
func (r *PostgresRepository) UpdateProductStatus(ctx context.Context, id string, status model.ProductStatus) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE products SET status = $2, updated_at = now() WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return fmt.Errorf("update product status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}

	return nil
}

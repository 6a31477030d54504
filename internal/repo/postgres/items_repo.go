package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/inventoryhub/internal/domain/item"
	"github.com/geocoder89/inventoryhub/internal/domain/oid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const itemColumns = `id, name, item_code, COALESCE(category, ''), quantity, price, min_stock, description, created_at, updated_at`

type ItemsRepo struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewItemsRepo(pool *pgxpool.Pool) *ItemsRepo {
	return &ItemsRepo{
		pool: pool,
		now:  func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

func (r *ItemsRepo) Create(ctx context.Context, it item.Item) (item.Item, error) {
	if it.ID.IsZero() {
		it.ID = oid.New()
	}

	now := r.now()
	it.CreatedAt = &now
	it.UpdatedAt = &now

	_, err := r.pool.Exec(ctx,
		`INSERT INTO items (id, name, item_code, category, quantity, price, min_stock, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		it.ID.String(), it.Name, it.ItemCode, it.Category, it.Quantity, it.Price, it.MinStock, it.Description, now, now,
	)

	if err != nil {
		return item.Item{}, err
	}

	return it, nil
}

// escapeLike makes the search term a literal for ILIKE.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func whereClause(f item.ListFilter) (string, []any) {
	var conds []string
	var args []any

	argsPosition := 1

	if f.Search != nil && *f.Search != "" {
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d OR item_code ILIKE $%d)", argsPosition, argsPosition, argsPosition))
		args = append(args, "%"+escapeLike(*f.Search)+"%")
		argsPosition++
	}

	if f.Category != nil {
		conds = append(conds, fmt.Sprintf("category = $%d", argsPosition))
		args = append(args, *f.Category)
	}

	if len(conds) == 0 {
		return "", args
	}

	return " WHERE " + strings.Join(conds, " AND "), args
}

// List sends the count and the page in one batch.
func (r *ItemsRepo) List(ctx context.Context, f item.ListFilter) ([]item.Item, int64, error) {
	where, args := whereClause(f)

	page := `SELECT ` + itemColumns + ` FROM items` + where +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC OFFSET $%d", len(args)+1)
	pageArgs := append(append([]any{}, args...), f.Offset)

	if f.Limit > 0 {
		page += fmt.Sprintf(" LIMIT $%d", len(pageArgs)+1)
		pageArgs = append(pageArgs, f.Limit)
	}

	batch := &pgx.Batch{}
	batch.Queue(`SELECT COUNT(*) FROM items`+where, args...)
	batch.Queue(page, pageArgs...)

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	var total int64

	if err := results.QueryRow().Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := results.Query()

	if err != nil {
		return nil, 0, err
	}

	items, err := collectItems(rows, f.Limit)

	if err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func (r *ItemsRepo) GetByID(ctx context.Context, id oid.ID) (item.Item, error) {
	it, err := scanItem(r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id.String()))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return item.Item{}, item.ErrNotFound
		}
		return item.Item{}, err
	}

	return it, nil
}

func (r *ItemsRepo) Update(ctx context.Context, id oid.ID, p item.Patch) (item.Item, error) {
	var sets []string
	args := []any{id.String()}

	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.ItemCode != nil {
		add("item_code", *p.ItemCode)
	}
	if p.Category != nil {
		add("category", *p.Category)
	}
	if p.Quantity != nil {
		add("quantity", *p.Quantity)
	}
	if p.Price != nil {
		add("price", *p.Price)
	}
	if p.MinStock != nil {
		add("min_stock", *p.MinStock)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	add("updated_at", r.now())

	it, err := scanItem(r.pool.QueryRow(ctx,
		`UPDATE items SET `+strings.Join(sets, ", ")+`
		WHERE id = $1
		RETURNING `+itemColumns,
		args...,
	))

	if err != nil {
		// if there are no rows matching the id
		if errors.Is(err, pgx.ErrNoRows) {
			return item.Item{}, item.ErrNotFound
		}
		return item.Item{}, err
	}

	return it, nil
}

func (r *ItemsRepo) Delete(ctx context.Context, id oid.ID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM items WHERE id = $1`, id.String())

	if err != nil {
		return err
	}

	// if no rows were deleted as a result return a not found error
	if tag.RowsAffected() == 0 {
		return item.ErrNotFound
	}

	return nil
}

func (r *ItemsRepo) ListLowStock(ctx context.Context, threshold int64) ([]item.Item, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+itemColumns+` FROM items WHERE quantity <= $1 ORDER BY created_at DESC, id DESC`,
		threshold,
	)

	if err != nil {
		return nil, err
	}

	return collectItems(rows, 0)
}

// Stats returns the unrounded total value; rounding belongs to the stats service.
func (r *ItemsRepo) Stats(ctx context.Context) (item.Stats, error) {
	batch := &pgx.Batch{}
	batch.Queue(
		`SELECT COUNT(*),
			COUNT(*) FILTER (WHERE quantity <= $1),
			COALESCE(SUM(quantity * price), 0)
		FROM items`,
		item.LowStockThreshold,
	)
	batch.Queue(
		`SELECT category, COUNT(*) AS cnt
		FROM items
		GROUP BY category
		ORDER BY cnt DESC, category ASC NULLS FIRST`,
	)

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	s := item.Stats{Categories: []item.CategoryCount{}}

	err := results.QueryRow().Scan(&s.TotalItems, &s.LowStockItems, &s.TotalValue)

	if err != nil {
		return item.Stats{}, err
	}

	rows, err := results.Query()

	if err != nil {
		return item.Stats{}, err
	}

	defer rows.Close()

	for rows.Next() {
		var c item.CategoryCount

		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return item.Stats{}, err
		}

		s.Categories = append(s.Categories, c)
	}

	if err := rows.Err(); err != nil {
		return item.Stats{}, err
	}

	return s, nil
}

func (r *ItemsRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanItem(row pgx.Row) (item.Item, error) {
	var it item.Item
	var createdAt, updatedAt time.Time

	err := row.Scan(
		&it.ID,
		&it.Name,
		&it.ItemCode,
		&it.Category,
		&it.Quantity,
		&it.Price,
		&it.MinStock,
		&it.Description,
		&createdAt,
		&updatedAt,
	)

	if err != nil {
		return item.Item{}, err
	}

	createdAt, updatedAt = createdAt.UTC(), updatedAt.UTC()
	it.CreatedAt = &createdAt
	it.UpdatedAt = &updatedAt

	return it, nil
}

func collectItems(rows pgx.Rows, capacity int) ([]item.Item, error) {
	defer rows.Close()

	output := make([]item.Item, 0, capacity)

	for rows.Next() {
		it, err := scanItem(rows)

		if err != nil {
			return nil, err
		}

		output = append(output, it)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return output, nil
}

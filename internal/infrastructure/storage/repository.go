package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"MarketSniper/internal/domain"
	"MarketSniper/internal/ports"
)

var pendingColumns = []string{
	"cart.listing_id",
	"cart.item_id",
	"cart.subtotal",
	"cart.fee",
	"cart.asset_float",
	"cart.task_id",
	"tasks.amount",
}

// SQLRepository persists tasks, cart entries, purchases and the request log.
type SQLRepository struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ ports.Storage = (*SQLRepository)(nil)

// NewSQLRepository wires a sql.DB opened with one of the supported drivers.
func NewSQLRepository(db *sql.DB, driver string) *SQLRepository {
	var format sq.PlaceholderFormat = sq.Question
	if driver == DriverPostgres {
		format = sq.Dollar
	}
	return &SQLRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(format),
	}
}

// ActiveTasks returns every task with remaining quota.
func (r *SQLRepository) ActiveTasks(ctx context.Context) ([]domain.Task, error) {
	query, args, err := r.sb.
		Select("id", "link", "pages", `"float"`, "price", "amount").
		From("tasks").
		Where(sq.Gt{"amount": 0}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build tasks query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}

	var tasks []domain.Task
	for rows.Next() {
		var t domain.Task
		if err := rows.Scan(&t.ID, &t.Link, &t.Pages, &t.Float, &t.Price, &t.Amount); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return tasks, nil
}

// Task loads a single task by id.
func (r *SQLRepository) Task(ctx context.Context, id int64) (domain.Task, error) {
	query, args, err := r.sb.
		Select("id", "link", "pages", `"float"`, "price", "amount").
		From("tasks").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.Task{}, fmt.Errorf("build task query: %w", err)
	}

	var t domain.Task
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&t.ID, &t.Link, &t.Pages, &t.Float, &t.Price, &t.Amount)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Task{}, fmt.Errorf("task %d: %w", id, domain.ErrTaskNotFound)
	}
	if err != nil {
		return domain.Task{}, fmt.Errorf("query task %d: %w", id, err)
	}

	return t, nil
}

// DecrementAmount lowers the task quota by one.
func (r *SQLRepository) DecrementAmount(ctx context.Context, id int64) error {
	query, args, err := r.sb.
		Update("tasks").
		Set("amount", sq.Expr("amount - 1")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build decrement: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("decrement task %d: %w", id, err)
	}
	return nil
}

// AddToCart inserts all entries in a single statement. Duplicates are accepted.
func (r *SQLRepository) AddToCart(ctx context.Context, entries []domain.CartEntry) error {
	if len(entries) == 0 {
		return nil
	}

	insert := r.sb.
		Insert("cart").
		Columns("listing_id", "item_id", "subtotal", "fee", "asset_float", "task_id", "is_handled")
	for _, e := range entries {
		insert = insert.Values(e.ListingID, e.ItemID, e.Subtotal, e.Fee, e.AssetFloat, e.TaskID, boolToInt(e.IsHandled))
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("build cart insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert cart: %w", err)
	}
	return nil
}

// PendingCart returns unhandled entries with their task quota, best float first.
// Identical rows collapse into one.
func (r *SQLRepository) PendingCart(ctx context.Context) ([]domain.PendingEntry, error) {
	query, args, err := r.sb.
		Select(pendingColumns...).
		From("cart").
		LeftJoin("tasks ON tasks.id = cart.task_id").
		Where(sq.Eq{"cart.is_handled": 0}).
		GroupBy(pendingColumns...).
		OrderBy("cart.asset_float ASC", "cart.listing_id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build pending query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pending cart: %w", err)
	}

	var pending []domain.PendingEntry
	for rows.Next() {
		var (
			p      domain.PendingEntry
			amount sql.NullInt64
		)
		if err := rows.Scan(&p.ListingID, &p.ItemID, &p.Subtotal, &p.Fee, &p.AssetFloat, &p.TaskID, &amount); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan cart entry: %w", err)
		}
		p.Amount = int(amount.Int64)
		pending = append(pending, p)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return pending, nil
}

// MarkHandled flags every cart row of the given listings as handled.
func (r *SQLRepository) MarkHandled(ctx context.Context, listingIDs []string) error {
	ids := distinct(listingIDs)
	if len(ids) == 0 {
		return nil
	}

	query, args, err := r.sb.
		Update("cart").
		Set("is_handled", 1).
		Where(sq.Eq{"listing_id": ids}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build handled update: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark handled: %w", err)
	}
	return nil
}

// SavePurchase appends a purchase record.
func (r *SQLRepository) SavePurchase(ctx context.Context, record domain.PurchaseRecord) error {
	query, args, err := r.sb.
		Insert("purchases").
		Columns("link", "float_value", "price", "task_id").
		Values(record.Link, record.FloatValue, record.Price, record.TaskID).
		ToSql()
	if err != nil {
		return fmt.Errorf("build purchase insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert purchase: %w", err)
	}
	return nil
}

// LogRequests writes one market_requests row per requested page.
func (r *SQLRepository) LogRequests(ctx context.Context, taskID int64, pages int) error {
	if pages <= 0 {
		return nil
	}

	insert := r.sb.Insert("market_requests").Columns("task_id")
	for i := 0; i < pages; i++ {
		insert = insert.Values(taskID)
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("build request log insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert request log: %w", err)
	}
	return nil
}

func distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

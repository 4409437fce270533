package orderstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/adashop/storefront/internal/order"
)

const (
	EventOrderCreated       = "order_created"
	EventOrderStatusChanged = "order_status_changed"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	log.Println("Connected to postgres!")
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "orders_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

// CreateOrder persists a new pending order, its item snapshots and the
// order_created outbox row in a single transaction.
func (r *Repository) CreateOrder(ctx context.Context, req order.CreateOrderRequest) (*order.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	o := &order.Order{
		ID:            uuid.NewString(),
		PayerAddress:  req.PayerAddress,
		TotalLovelace: req.TotalLovelace,
		Status:        order.StatusPending,
		Items:         req.Items,
	}

	row := tx.QueryRowContext(ctx,
		`INSERT INTO orders (id, payer_address, total_lovelace, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NOW(), NOW())
		 RETURNING created_at, updated_at`,
		o.ID, o.PayerAddress, o.TotalLovelace, o.Status)
	if err := row.Scan(&o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	for _, it := range req.Items {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, product_id, quantity, price_lovelace, token_policy_id, token_asset_name)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			o.ID, it.ProductID, it.Quantity, it.PriceLovelace, it.TokenPolicyID, it.TokenAssetName)
		if err != nil {
			return nil, fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := r.insertOutboxEvent(ctx, tx, o, EventOrderCreated); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit order: %w", err)
	}
	return o, nil
}

// UpdateOrderStatus moves an order along the status graph. The current row
// is locked for the check, so concurrent updates serialize and the graph
// holds even under racing callers.
func (r *Repository) UpdateOrderStatus(ctx context.Context, req order.StatusUpdateRequest) (*order.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var current order.Status
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM orders WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`,
		req.OrderID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock order: %w", err)
	}

	if !order.CanTransitionTo(current, req.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", order.ErrInvalidTransition, current, req.Status)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE orders
		 SET status = $2,
		     transaction_id = COALESCE(NULLIF($3, ''), transaction_id),
		     payment_error = COALESCE(NULLIF($4, ''), payment_error),
		     updated_at = NOW()
		 WHERE id = $1`,
		req.OrderID, req.Status, req.TransactionID, req.PaymentError)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	updated, err := r.getOrderTx(ctx, tx, req.OrderID)
	if err != nil {
		return nil, err
	}

	if err := r.insertOutboxEvent(ctx, tx, updated, EventOrderStatusChanged); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit status update: %w", err)
	}
	return updated, nil
}

func (r *Repository) GetOrder(ctx context.Context, orderID string) (*order.Order, error) {
	return r.getOrderTx(ctx, r.db, orderID)
}

// ListOrders returns the payer's orders, newest first. Soft-deleted rows are
// hidden.
func (r *Repository) ListOrders(ctx context.Context, payerAddress string) ([]*order.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, payer_address, total_lovelace, status, COALESCE(transaction_id, ''), COALESCE(payment_error, ''), created_at, updated_at
		 FROM orders
		 WHERE payer_address = $1 AND deleted_at IS NULL
		 ORDER BY created_at DESC`,
		payerAddress)
	if err != nil {
		return nil, fmt.Errorf("query orders by payer: %w", err)
	}
	defer rows.Close()

	var orders []*order.Order
	for rows.Next() {
		var o order.Order
		if err := rows.Scan(
			&o.ID,
			&o.PayerAddress,
			&o.TotalLovelace,
			&o.Status,
			&o.TransactionID,
			&o.PaymentError,
			&o.CreatedAt,
			&o.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	for _, o := range orders {
		items, err := r.loadItems(ctx, r.db, o.ID)
		if err != nil {
			return nil, err
		}
		o.Items = items
	}
	return orders, nil
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, aggregate_id, event_type, payload, created_at
		 FROM order_outbox
		 WHERE processed_at IS NULL
		 ORDER BY id
		 LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var e OutboxEvent
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, eventID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE order_outbox SET processed_at = NOW() WHERE id = $1`, eventID)
	if err != nil {
		return fmt.Errorf("mark outbox event processed: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *Repository) getOrderTx(ctx context.Context, q querier, orderID string) (*order.Order, error) {
	var o order.Order
	err := q.QueryRowContext(ctx,
		`SELECT id, payer_address, total_lovelace, status, COALESCE(transaction_id, ''), COALESCE(payment_error, ''), created_at, updated_at
		 FROM orders WHERE id = $1 AND deleted_at IS NULL`,
		orderID).Scan(
		&o.ID,
		&o.PayerAddress,
		&o.TotalLovelace,
		&o.Status,
		&o.TransactionID,
		&o.PaymentError,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}

	items, err := r.loadItems(ctx, q, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

func (r *Repository) loadItems(ctx context.Context, q querier, orderID string) ([]order.Item, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT product_id, quantity, price_lovelace, COALESCE(token_policy_id, ''), COALESCE(token_asset_name, '')
		 FROM order_items WHERE order_id = $1 ORDER BY id`,
		orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	var items []order.Item
	for rows.Next() {
		var it order.Item
		if err := rows.Scan(&it.ProductID, &it.Quantity, &it.PriceLovelace, &it.TokenPolicyID, &it.TokenAssetName); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *Repository) insertOutboxEvent(ctx context.Context, tx execer, o *order.Order, eventType string) error {
	payload, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO order_outbox (aggregate_id, event_type, payload, created_at)
		 VALUES ($1, $2, $3, NOW())`,
		o.ID, eventType, payload)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

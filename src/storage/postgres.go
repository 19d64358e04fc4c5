package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"trade-orders/src/interfaces"
	"trade-orders/src/logger"
	"trade-orders/src/models"

	"github.com/lib/pq"
	"github.com/pkg/errors"
)

var _ interfaces.IOrderStore = (*PostgresOrderStore)(nil)

// -----------------------------------------------------------------------------

type PostgresOrderStore struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

// NewPostgresOrderStore uses the configured schema, or the executable name
// when none is set.
func NewPostgresOrderStore(cfg *models.MConfig, log *logger.Logger) (*PostgresOrderStore, error) {
	schema := cfg.Storage.Schema
	if schema == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to get executable name: %w", err)
		}
		name := filepath.Base(exe)
		schema = strings.TrimSuffix(name, filepath.Ext(name))
	}

	return &PostgresOrderStore{
		Config: cfg,
		Schema: schema,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresOrderStore) Initialize(ctx context.Context) error {
	db, err := sql.Open("postgres", d.Config.Storage.DBConnectionString)
	if err != nil {
		return errors.Wrap(err, "open postgres")
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return errors.Wrap(err, "ping postgres")
	}

	d.DB = db
	if err := d.createTables(ctx); err != nil {
		db.Close()
		d.DB = nil
		return err
	}

	d.Logger.Info("PostgresOrderStore initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresOrderStore) createTables(ctx context.Context) error {
	if _, err := d.DB.ExecContext(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, pq.QuoteIdentifier(d.Schema))); err != nil {
		return errors.Wrapf(err, "create schema %s", d.Schema)
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			symbol TEXT NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			quantity BIGINT NOT NULL,
			order_type TEXT NOT NULL CHECK (order_type IN ('BUY', 'SELL')),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ
		);
	`, d.table())
	if _, err := d.DB.ExecContext(ctx, query); err != nil {
		return errors.Wrap(err, "create orders table")
	}

	index := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS ix_orders_symbol ON %s (symbol)`, d.table())
	if _, err := d.DB.ExecContext(ctx, index); err != nil {
		return errors.Wrap(err, "create orders symbol index")
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresOrderStore) table() string {
	return pq.QuoteIdentifier(d.Schema) + "." + pq.QuoteIdentifier("orders")
}

// -----------------------------------------------------------------------------

func (d *PostgresOrderStore) Insert(ctx context.Context, input models.MOrderInput) (*models.MOrder, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (symbol, price, quantity, order_type)
		VALUES ($1, $2, $3, $4)
		RETURNING id, symbol, price, quantity, order_type, created_at, updated_at
	`, d.table())

	row := d.DB.QueryRowContext(ctx, query, input.Symbol, input.Price, input.Quantity, string(input.OrderType))
	order, err := scanPostgresOrder(row)
	if err != nil {
		return nil, errors.Wrap(err, "insert order")
	}
	return order, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresOrderStore) GetByID(ctx context.Context, id int64) (*models.MOrder, error) {
	query := fmt.Sprintf(`
		SELECT id, symbol, price, quantity, order_type, created_at, updated_at
		FROM %s WHERE id = $1
	`, d.table())

	order, err := scanPostgresOrder(d.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get order %d", id)
	}
	return order, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresOrderStore) List(ctx context.Context, skip, limit int) ([]models.MOrder, error) {
	query := fmt.Sprintf(`
		SELECT id, symbol, price, quantity, order_type, created_at, updated_at
		FROM %s ORDER BY id ASC LIMIT $1 OFFSET $2
	`, d.table())

	rows, err := d.DB.QueryContext(ctx, query, limit, skip)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	defer rows.Close()

	orders := []models.MOrder{}
	for rows.Next() {
		order, err := scanPostgresOrder(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		orders = append(orders, *order)
	}
	return orders, errors.Wrap(rows.Err(), "iterate orders")
}

// -----------------------------------------------------------------------------

func (d *PostgresOrderStore) UpdateByID(ctx context.Context, id int64, input models.MOrderInput) (*models.MOrder, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET symbol = $1, price = $2, quantity = $3, order_type = $4, updated_at = now()
		WHERE id = $5
		RETURNING id, symbol, price, quantity, order_type, created_at, updated_at
	`, d.table())

	row := d.DB.QueryRowContext(ctx, query, input.Symbol, input.Price, input.Quantity, string(input.OrderType), id)
	order, err := scanPostgresOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "update order %d", id)
	}
	return order, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresOrderStore) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------

func scanPostgresOrder(row rowScanner) (*models.MOrder, error) {
	var (
		order     models.MOrder
		orderType string
		updatedAt sql.NullTime
	)
	if err := row.Scan(&order.ID, &order.Symbol, &order.Price, &order.Quantity, &orderType, &order.CreatedAt, &updatedAt); err != nil {
		return nil, err
	}

	order.OrderType = models.OrderType(orderType)
	order.CreatedAt = order.CreatedAt.UTC()
	if updatedAt.Valid {
		t := updatedAt.Time.UTC()
		order.UpdatedAt = &t
	}
	return &order, nil
}

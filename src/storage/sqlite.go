package storage

import (
	"context"
	"database/sql"
	"time"

	"trade-orders/src/interfaces"
	"trade-orders/src/logger"
	"trade-orders/src/models"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

var _ interfaces.IOrderStore = (*SQLiteOrderStore)(nil)

// -----------------------------------------------------------------------------

type SQLiteOrderStore struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteOrderStore(cfg *models.MConfig, log *logger.Logger) *SQLiteOrderStore {
	return &SQLiteOrderStore{
		Config: cfg,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

func (d *SQLiteOrderStore) Initialize(ctx context.Context) error {
	dsn := d.Config.Storage.DBPath

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return errors.Wrap(err, "open sqlite")
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return errors.Wrap(err, "ping sqlite")
	}

	// sqlite allows a single writer; share one connection
	db.SetMaxOpenConns(1)
	d.DB = db

	// PRAGMA optimizations
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	if err := d.createTables(ctx); err != nil {
		db.Close()
		d.DB = nil
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteOrderStore) createTables(ctx context.Context) error {
	// AUTOINCREMENT: ids are never reused
	// Timestamps are unix nanoseconds (UTC)
	query := `
		CREATE TABLE IF NOT EXISTS orders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol TEXT NOT NULL,
			price REAL NOT NULL,
			quantity INTEGER NOT NULL,
			order_type TEXT NOT NULL CHECK (order_type IN ('BUY', 'SELL')),
			created_at INTEGER NOT NULL,
			updated_at INTEGER
		);
	`
	if _, err := d.DB.ExecContext(ctx, query); err != nil {
		return errors.Wrap(err, "create orders table")
	}

	if _, err := d.DB.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS ix_orders_symbol ON orders (symbol)"); err != nil {
		return errors.Wrap(err, "create orders symbol index")
	}

	d.Logger.Info("SQLite order store ready (%s)", d.Config.Storage.DBPath)
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteOrderStore) Insert(ctx context.Context, input models.MOrderInput) (*models.MOrder, error) {
	createdAt := time.Now().UTC()

	res, err := d.DB.ExecContext(ctx, `
		INSERT INTO orders (symbol, price, quantity, order_type, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, input.Symbol, input.Price, input.Quantity, string(input.OrderType), createdAt.UnixNano())
	if err != nil {
		return nil, errors.Wrap(err, "insert order")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "read inserted order id")
	}

	order := &models.MOrder{ID: id, CreatedAt: createdAt}
	order.Apply(input)
	return order, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteOrderStore) GetByID(ctx context.Context, id int64) (*models.MOrder, error) {
	row := d.DB.QueryRowContext(ctx, `
		SELECT id, symbol, price, quantity, order_type, created_at, updated_at
		FROM orders WHERE id = ?
	`, id)

	order, err := scanSQLiteOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get order %d", id)
	}
	return order, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteOrderStore) List(ctx context.Context, skip, limit int) ([]models.MOrder, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, symbol, price, quantity, order_type, created_at, updated_at
		FROM orders ORDER BY id ASC LIMIT ? OFFSET ?
	`, limit, skip)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	defer rows.Close()

	orders := []models.MOrder{}
	for rows.Next() {
		order, err := scanSQLiteOrder(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		orders = append(orders, *order)
	}
	return orders, errors.Wrap(rows.Err(), "iterate orders")
}

// -----------------------------------------------------------------------------

func (d *SQLiteOrderStore) UpdateByID(ctx context.Context, id int64, input models.MOrderInput) (*models.MOrder, error) {
	updatedAt := time.Now().UTC()

	res, err := d.DB.ExecContext(ctx, `
		UPDATE orders SET symbol = ?, price = ?, quantity = ?, order_type = ?, updated_at = ?
		WHERE id = ?
	`, input.Symbol, input.Price, input.Quantity, string(input.OrderType), updatedAt.UnixNano(), id)
	if err != nil {
		return nil, errors.Wrapf(err, "update order %d", id)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, errors.Wrap(err, "read affected rows")
	}
	if affected == 0 {
		return nil, nil
	}

	return d.GetByID(ctx, id)
}

// -----------------------------------------------------------------------------

func (d *SQLiteOrderStore) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteOrder(row rowScanner) (*models.MOrder, error) {
	var (
		order     models.MOrder
		orderType string
		createdAt int64
		updatedAt sql.NullInt64
	)
	if err := row.Scan(&order.ID, &order.Symbol, &order.Price, &order.Quantity, &orderType, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	order.OrderType = models.OrderType(orderType)
	order.CreatedAt = time.Unix(0, createdAt).UTC()
	if updatedAt.Valid {
		t := time.Unix(0, updatedAt.Int64).UTC()
		order.UpdatedAt = &t
	}
	return &order, nil
}

package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/golang-migrate/migrate/v4"
	pgxv5 "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/solbotics/trade-engine/pkg/types"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Postgres is the durable Orders implementation. Claim exclusivity rides on
// a conditional UPDATE so multiple engine instances can share one table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects a pool over the DSN.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// Migrate applies the embedded schema migrations to the database at dsn.
func Migrate(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migrations connection: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping migrations database: %w", err)
	}

	driver, err := pgxv5.WithInstance(db, &pgxv5.Config{})
	if err != nil {
		return fmt.Errorf("initialise pgx driver: %w", err)
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "pgx5", driver)
	if err != nil {
		return fmt.Errorf("initialise migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

const orderColumns = `id, owner, mint, side, quantity, slippage_bps, priority, tip_lamports,
kind, threshold, anchor_price, multi, disabled, state, signature, fail_reason, transactions,
created_at, updated_at`

func (p *Postgres) Create(ctx context.Context, order *AutoOrder) error {
	if order.State == "" {
		order.State = OrderPending
	}
	row := p.pool.QueryRow(ctx, `
INSERT INTO auto_orders (owner, mint, side, quantity, slippage_bps, priority, tip_lamports,
                         kind, threshold, anchor_price, multi, disabled, state)
VALUES (@owner, @mint, @side, @quantity, @slippage_bps, @priority, @tip_lamports,
        @kind, @threshold, @anchor_price, @multi, @disabled, @state)
RETURNING id, created_at, updated_at`,
		pgx.NamedArgs{
			"owner":        order.Owner,
			"mint":         order.Mint.String(),
			"side":         string(order.Side),
			"quantity":     order.Quantity,
			"slippage_bps": int64(order.SlippageBps),
			"priority":     string(order.Priority),
			"tip_lamports": int64(order.TipLamports),
			"kind":         string(order.Kind),
			"threshold":    order.Threshold,
			"anchor_price": order.AnchorPrice,
			"multi":        order.Multi,
			"disabled":     order.Disabled,
			"state":        string(order.State),
		})
	if err := row.Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt); err != nil {
		return fmt.Errorf("insert auto order: %w", err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, id int64) (*AutoOrder, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM auto_orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrOrderNotFound, id)
	}
	return order, err
}

func (p *Postgres) Pending(ctx context.Context) ([]*AutoOrder, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM auto_orders WHERE state = $1 ORDER BY id`,
		string(OrderPending))
	if err != nil {
		return nil, fmt.Errorf("list pending orders: %w", err)
	}
	defer rows.Close()

	var out []*AutoOrder
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, order)
	}
	return out, rows.Err()
}

func (p *Postgres) Claim(ctx context.Context, id int64) (bool, error) {
	tag, err := p.pool.Exec(ctx, `
UPDATE auto_orders SET state = $1, updated_at = NOW()
WHERE id = $2 AND state = $3`,
		string(OrderProcessing), id, string(OrderPending))
	if err != nil {
		return false, fmt.Errorf("claim order %d: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (p *Postgres) Release(ctx context.Context, id int64) error {
	tag, err := p.pool.Exec(ctx, `
UPDATE auto_orders SET state = $1, updated_at = NOW()
WHERE id = $2 AND state = $3`,
		string(OrderPending), id, string(OrderProcessing))
	if err != nil {
		return fmt.Errorf("release order %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %d is not processing", id)
	}
	return nil
}

func (p *Postgres) Finish(ctx context.Context, id int64, state OrderState, signature, reason string) error {
	tag, err := p.pool.Exec(ctx, `
UPDATE auto_orders
SET state = @state,
    signature = COALESCE(NULLIF(@signature, ''), signature),
    fail_reason = COALESCE(NULLIF(@reason, ''), fail_reason),
    updated_at = NOW()
WHERE id = @id AND state = @processing`,
		pgx.NamedArgs{
			"state":      string(state),
			"signature":  signature,
			"reason":     reason,
			"id":         id,
			"processing": string(OrderProcessing),
		})
	if err != nil {
		return fmt.Errorf("finish order %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %d is not processing", id)
	}
	return nil
}

func (p *Postgres) UpdateThreshold(ctx context.Context, id int64, threshold string) error {
	tag, err := p.pool.Exec(ctx, `
UPDATE auto_orders SET threshold = $1, updated_at = NOW()
WHERE id = $2 AND state = $3`,
		threshold, id, string(OrderPending))
	if err != nil {
		return fmt.Errorf("update threshold of order %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %d is not pending", id)
	}
	return nil
}

func (p *Postgres) AppendTransaction(ctx context.Context, id int64, signature string) error {
	tag, err := p.pool.Exec(ctx, `
UPDATE auto_orders SET transactions = array_append(transactions, $1), updated_at = NOW()
WHERE id = $2`,
		signature, id)
	if err != nil {
		return fmt.Errorf("append transaction to order %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", ErrOrderNotFound, id)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, id int64) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM auto_orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", ErrOrderNotFound, id)
	}
	return nil
}

func scanOrder(row pgx.Row) (*AutoOrder, error) {
	var o AutoOrder
	var mint, side, priority, kind, state string
	var slippage, tip int64
	if err := row.Scan(&o.ID, &o.Owner, &mint, &side, &o.Quantity, &slippage, &priority, &tip,
		&kind, &o.Threshold, &o.AnchorPrice, &o.Multi, &o.Disabled, &state,
		&o.Signature, &o.FailReason, &o.Transactions,
		&o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	pk, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return nil, fmt.Errorf("stored mint %q: %w", mint, err)
	}
	o.Mint = pk
	o.Side = types.Side(side)
	o.SlippageBps = uint64(slippage)
	o.TipLamports = uint64(tip)
	o.Priority = types.PriorityPreset(priority)
	o.Kind = Kind(kind)
	o.State = OrderState(state)
	return &o, nil
}

package db

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"

	"robux-bot/config"
	"robux-bot/internal/cart"
	"robux-bot/internal/models"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

type PostgresDB struct {
	pool *pgxpool.Pool
}

var _ cart.Repository = (*PostgresDB)(nil)

func NewPostgresDB(cfg config.DBConfig) (*PostgresDB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode, cfg.MaxOpenConns,
	)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DB connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnLifetime
	poolConfig.MaxConnIdleTime = 15 * time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresDB{pool: pool}, nil
}

func (db *PostgresDB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Migrate creates the tables and indexes that do not exist yet.
func (db *PostgresDB) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

func (db *PostgresDB) EnsureUser(ctx context.Context, userID, username string) error {
	query := `
        INSERT INTO users (user_id, username)
        VALUES ($1, $2)
        ON CONFLICT (user_id) DO UPDATE
        SET username = CASE WHEN $2 = '' THEN users.username ELSE $2 END, updated_at = NOW()
    `

	_, err := db.pool.Exec(ctx, query, userID, username)
	return err
}

func (db *PostgresDB) GetUser(ctx context.Context, userID string) (*models.User, error) {
	query := `
        SELECT user_id, username, active_cart_id, roblox_nickname, purchases_count,
               total_spent::text, created_at, updated_at
        FROM users
        WHERE user_id = $1
    `

	var (
		user  models.User
		spent string
	)
	err := db.pool.QueryRow(ctx, query, userID).Scan(
		&user.UserID, &user.Username, &user.ActiveCartID, &user.RobloxNickname,
		&user.PurchasesCount, &spent, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, cart.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if user.TotalSpent, err = decimal.NewFromString(spent); err != nil {
		return nil, fmt.Errorf("invalid total_spent %q: %w", spent, err)
	}
	return &user, nil
}

func (db *PostgresDB) SetNickname(ctx context.Context, userID, nickname string) error {
	query := `
        UPDATE users
        SET roblox_nickname = $2, updated_at = NOW()
        WHERE user_id = $1
    `

	tag, err := db.pool.Exec(ctx, query, userID, nickname)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrNotFound
	}
	return nil
}

const cartColumns = `
        cart_id, user_id, COALESCE(thread_id, ''), category, product_type, product_name,
        quantity_label, price::text, roblox_nickname, gamepass_value, gamepass_link,
        payment_method, proof_submitted_at, claimed_by, prompt_message_id, status,
        version, expires_at, created_at, updated_at
`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanCart(row scanner) (*models.Cart, error) {
	var (
		c                                  models.Cart
		productType, price, method, status string
	)
	err := row.Scan(
		&c.CartID, &c.UserID, &c.ThreadID, &c.Category, &productType, &c.ProductName,
		&c.QuantityLabel, &price, &c.RobloxNickname, &c.GamepassValue, &c.GamepassLink,
		&method, &c.ProofSubmittedAt, &c.ClaimedBy, &c.PromptMessageID, &status,
		&c.Version, &c.ExpiresAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, cart.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	c.ProductType = models.ProductType(productType)
	c.PaymentMethod = models.PaymentMethod(method)
	c.Status = models.CartStatus(status)
	if c.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("invalid price %q on cart %d: %w", price, c.CartID, err)
	}
	return &c, nil
}

func terminalStatuses() []string {
	out := make([]string, len(models.TerminalStatuses))
	for i, s := range models.TerminalStatuses {
		out[i] = string(s)
	}
	return out
}

func (db *PostgresDB) FindActiveCartForUser(ctx context.Context, userID string) (*models.Cart, error) {
	query := `SELECT ` + cartColumns + `
        FROM carts
        WHERE user_id = $1 AND status <> ALL($2::text[])
        ORDER BY cart_id DESC
        LIMIT 1
    `
	return scanCart(db.pool.QueryRow(ctx, query, userID, terminalStatuses()))
}

func (db *PostgresDB) CreateCart(ctx context.Context, c *models.Cart) error {
	err := db.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		query := `
            INSERT INTO carts (user_id, category, status, version, expires_at)
            VALUES ($1, $2, $3, 1, $4)
            RETURNING cart_id, version, created_at, updated_at
        `
		if err := tx.QueryRow(ctx, query, c.UserID, c.Category, string(c.Status), c.ExpiresAt).
			Scan(&c.CartID, &c.Version, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return err
		}

		_, err := tx.Exec(ctx,
			`UPDATE users SET active_cart_id = $2, updated_at = NOW() WHERE user_id = $1`,
			c.UserID, c.CartID)
		return err
	})
	if isUniqueViolation(err) {
		return cart.ErrActiveCartExists
	}
	return err
}

func (db *PostgresDB) AttachThread(ctx context.Context, cartID int64, threadID string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE carts SET thread_id = $2, updated_at = NOW() WHERE cart_id = $1`,
		cartID, threadID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrNotFound
	}
	return nil
}

func (db *PostgresDB) GetCart(ctx context.Context, cartID int64) (*models.Cart, error) {
	query := `SELECT ` + cartColumns + ` FROM carts WHERE cart_id = $1`
	return scanCart(db.pool.QueryRow(ctx, query, cartID))
}

func (db *PostgresDB) GetCartByThread(ctx context.Context, threadID string) (*models.Cart, error) {
	query := `SELECT ` + cartColumns + ` FROM carts WHERE thread_id = $1`
	return scanCart(db.pool.QueryRow(ctx, query, threadID))
}

// lockCart loads the cart row for update and checks it against guard.
func lockCart(ctx context.Context, tx pgx.Tx, cartID int64, guard *cart.Guard) (*models.Cart, error) {
	query := `SELECT ` + cartColumns + ` FROM carts WHERE cart_id = $1 FOR UPDATE`
	c, err := scanCart(tx.QueryRow(ctx, query, cartID))
	if err != nil {
		return nil, err
	}
	if guard != nil && (c.Status != guard.Status || c.Version != guard.Version) {
		return nil, cart.ErrStaleTransition
	}
	return c, nil
}

func writeCart(ctx context.Context, tx pgx.Tx, c *models.Cart) error {
	query := `
        UPDATE carts
        SET product_type = $2, product_name = $3, quantity_label = $4, price = $5::numeric,
            roblox_nickname = $6, gamepass_value = $7, gamepass_link = $8, payment_method = $9,
            proof_submitted_at = $10, claimed_by = $11, prompt_message_id = $12, status = $13,
            version = $14, expires_at = $15, updated_at = NOW()
        WHERE cart_id = $1
        RETURNING updated_at
    `
	return tx.QueryRow(ctx, query,
		c.CartID, string(c.ProductType), c.ProductName, c.QuantityLabel, c.Price.String(),
		c.RobloxNickname, c.GamepassValue, c.GamepassLink, string(c.PaymentMethod),
		c.ProofSubmittedAt, c.ClaimedBy, c.PromptMessageID, string(c.Status),
		c.Version, c.ExpiresAt,
	).Scan(&c.UpdatedAt)
}

func releaseUser(ctx context.Context, tx pgx.Tx, c *models.Cart) error {
	_, err := tx.Exec(ctx, `
        UPDATE users
        SET active_cart_id = NULL, updated_at = NOW()
        WHERE user_id = $1 AND active_cart_id = $2
    `, c.UserID, c.CartID)
	return err
}

func (db *PostgresDB) Transition(ctx context.Context, cartID int64, guard cart.Guard, to models.CartStatus, upd models.CartUpdate) (*models.Cart, error) {
	var out *models.Cart
	err := db.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		c, err := lockCart(ctx, tx, cartID, &guard)
		if err != nil {
			return err
		}

		upd.Apply(c)
		c.Status = to
		c.Version++
		if to.IsTerminal() {
			c.ExpiresAt = nil
		}
		if err := writeCart(ctx, tx, c); err != nil {
			return err
		}
		if to.IsTerminal() {
			if err := releaseUser(ctx, tx, c); err != nil {
				return err
			}
		}
		out = c
		return nil
	})
	return out, err
}

func (db *PostgresDB) SetPromptMessage(ctx context.Context, cartID int64, messageID string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE carts SET prompt_message_id = $2 WHERE cart_id = $1`,
		cartID, messageID)
	return err
}

func (db *PostgresDB) Claim(ctx context.Context, cartID int64, adminID string) (*models.Cart, error) {
	var out *models.Cart
	err := db.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		c, err := lockCart(ctx, tx, cartID, nil)
		if err != nil {
			return err
		}
		if c.Status.IsTerminal() {
			return cart.ErrStaleTransition
		}
		switch c.ClaimedBy {
		case adminID:
			out = c
			return nil
		case "":
		default:
			return cart.ErrAlreadyClaimed
		}

		c.ClaimedBy = adminID
		c.Version++
		if err := writeCart(ctx, tx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}

func (db *PostgresDB) Complete(ctx context.Context, cartID int64, guard cart.Guard, order *models.Order) (*models.Cart, error) {
	var out *models.Cart
	err := db.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		c, err := lockCart(ctx, tx, cartID, &guard)
		if err != nil {
			return err
		}

		c.Status = models.StatusCompleted
		c.Version++
		c.ExpiresAt = nil
		if err := writeCart(ctx, tx, c); err != nil {
			return err
		}

		query := `
            INSERT INTO orders (reference, cart_id, user_id, product_type, product_name, quantity_label,
                                price, roblox_nickname, gamepass_link, delivered_by)
            VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9, $10)
            RETURNING order_id, completed_at
        `
		if err := tx.QueryRow(ctx, query,
			order.Reference, order.CartID, order.UserID, string(order.ProductType), order.ProductName,
			order.QuantityLabel, order.Price.String(), order.RobloxNickname, order.GamepassLink,
			order.DeliveredBy,
		).Scan(&order.OrderID, &order.CompletedAt); err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}

		if _, err := tx.Exec(ctx, `
            UPDATE users
            SET purchases_count = purchases_count + 1,
                total_spent = total_spent + $2::numeric,
                active_cart_id = CASE WHEN active_cart_id = $3 THEN NULL ELSE active_cart_id END,
                updated_at = NOW()
            WHERE user_id = $1
        `, c.UserID, order.Price.String(), c.CartID); err != nil {
			return fmt.Errorf("failed to update buyer totals: %w", err)
		}

		out = c
		return nil
	})
	return out, err
}

func (db *PostgresDB) DueForExpiry(ctx context.Context, now time.Time) ([]*models.Cart, error) {
	query := `SELECT ` + cartColumns + `
        FROM carts
        WHERE status <> ALL($1::text[]) AND expires_at IS NOT NULL AND expires_at <= $2
        ORDER BY cart_id
    `
	rows, err := db.pool.Query(ctx, query, terminalStatuses(), now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var due []*models.Cart
	for rows.Next() {
		c, err := scanCart(rows)
		if err != nil {
			return nil, err
		}
		due = append(due, c)
	}
	return due, rows.Err()
}

func (db *PostgresDB) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	query := `
        SELECT order_id, reference, cart_id, user_id, product_type, product_name, quantity_label,
               price::text, roblox_nickname, gamepass_link, delivered_by, completed_at
        FROM orders
        WHERE order_id = $1
    `

	var (
		o                  models.Order
		productType, price string
	)
	err := db.pool.QueryRow(ctx, query, orderID).Scan(
		&o.OrderID, &o.Reference, &o.CartID, &o.UserID, &productType, &o.ProductName,
		&o.QuantityLabel, &price, &o.RobloxNickname, &o.GamepassLink, &o.DeliveredBy,
		&o.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, cart.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	o.ProductType = models.ProductType(productType)
	if o.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("invalid price %q on order %d: %w", price, o.OrderID, err)
	}
	return &o, nil
}

func (db *PostgresDB) InsertReview(ctx context.Context, r *models.Review) error {
	query := `
        INSERT INTO reviews (order_id, user_id, rating, text)
        VALUES ($1, $2, $3, $4)
        RETURNING review_id, created_at
    `

	err := db.pool.QueryRow(ctx, query, r.OrderID, r.UserID, r.Rating, r.Text).
		Scan(&r.ReviewID, &r.CreatedAt)
	if isUniqueViolation(err) {
		return cart.ErrReviewExists
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

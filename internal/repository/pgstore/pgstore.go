// Package pgstore implements repository.Store on PostgreSQL with pgx.
package pgstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/RamanBirulia/stock-notebook/internal/models"
	"github.com/RamanBirulia/stock-notebook/internal/repository"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

type Store struct {
	pool *pgxpool.Pool
}

var _ repository.Store = (*Store)(nil)

// Open connects, pings and applies the schema.
func Open(ctx context.Context, url string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	cfg.MaxConns = 8
	cfg.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	s := &Store{pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Truncate empties every table. Used by tests.
func (s *Store) Truncate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `TRUNCATE daily_holdings, stock_symbols, stock_data, purchases, users`)
	return err
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close(context.Context) error {
	s.pool.Close()
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.Username = strings.ToLower(u.Username)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, username, password_hash, created_at, last_login)
		VALUES ($1, $2, $3, $4, $5)
	`, u.ID, u.Username, u.PasswordHash, u.CreatedAt, u.LastLogin)
	if isUniqueViolation(err) {
		return repository.ErrUsernameTaken
	}
	return err
}

const userColumns = `id, username, password_hash, created_at, last_login`

func scanUser(row pgx.Row) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt, &u.LastLogin)
	if err != nil {
		return models.User{}, notFound(err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	if u.LastLogin != nil {
		t := u.LastLogin.UTC()
		u.LastLogin = &t
	}
	return u, nil
}

func (s *Store) UserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *Store) UserByUsername(ctx context.Context, username string) (models.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, strings.ToLower(username)))
}

func (s *Store) execOne(ctx context.Context, sql string, args ...any) error {
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return s.execOne(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, at.UTC())
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return s.execOne(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
}

const purchaseColumns = `id, user_id, symbol, quantity, price_per_share, commission, purchase_date, created_at`

func scanPurchase(row pgx.Row) (models.Purchase, error) {
	var (
		p                     models.Purchase
		qty, price, fee       pgtype.Numeric
		purchaseDate, created time.Time
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.Symbol, &qty, &price, &fee, &purchaseDate, &created); err != nil {
		return models.Purchase{}, notFound(err)
	}
	p.Quantity = numericToDecimal(qty)
	p.PricePerShare = numericToDecimal(price)
	p.Commission = numericToDecimal(fee)
	p.PurchaseDate = models.DateOf(purchaseDate)
	p.CreatedAt = created.UTC()
	return p, nil
}

func (s *Store) CreatePurchase(ctx context.Context, p *models.Purchase) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.Symbol = models.NormalizeSymbol(p.Symbol)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO purchases (`+purchaseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.ID, p.UserID, p.Symbol, decimalToNumeric(p.Quantity), decimalToNumeric(p.PricePerShare),
		decimalToNumeric(p.Commission), p.PurchaseDate.Time(), p.CreatedAt)
	return err
}

func (s *Store) PurchaseByID(ctx context.Context, userID, id uuid.UUID) (models.Purchase, error) {
	return scanPurchase(s.pool.QueryRow(ctx,
		`SELECT `+purchaseColumns+` FROM purchases WHERE id = $1 AND user_id = $2`, id, userID))
}

func (s *Store) UpdatePurchase(ctx context.Context, p *models.Purchase) error {
	p.Symbol = models.NormalizeSymbol(p.Symbol)
	err := s.pool.QueryRow(ctx, `
		UPDATE purchases
		SET symbol = $3, quantity = $4, price_per_share = $5, commission = $6, purchase_date = $7
		WHERE id = $1 AND user_id = $2
		RETURNING created_at
	`, p.ID, p.UserID, p.Symbol, decimalToNumeric(p.Quantity), decimalToNumeric(p.PricePerShare),
		decimalToNumeric(p.Commission), p.PurchaseDate.Time()).Scan(&p.CreatedAt)
	if err != nil {
		return notFound(err)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return nil
}

func (s *Store) DeletePurchase(ctx context.Context, userID, id uuid.UUID) error {
	return s.execOne(ctx, `DELETE FROM purchases WHERE id = $1 AND user_id = $2`, id, userID)
}

func (s *Store) ListPurchases(ctx context.Context, f repository.PurchaseFilter) ([]models.Purchase, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.UserID != uuid.Nil {
		add("user_id = $%d", f.UserID)
	}
	if f.Symbol != "" {
		add("symbol = $%d", models.NormalizeSymbol(f.Symbol))
	}
	if !f.From.IsZero() {
		add("purchase_date >= $%d", f.From.Time())
	}
	if !f.To.IsZero() {
		add("purchase_date <= $%d", f.To.Time())
	}

	sql := `SELECT ` + purchaseColumns + ` FROM purchases`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += ` ORDER BY purchase_date DESC, created_at DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		sql += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]models.Purchase, 0)
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (s *Store) queryStrings(ctx context.Context, sql string, args ...any) ([]string, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (s *Store) UserSymbols(ctx context.Context, userID uuid.UUID) ([]string, error) {
	return s.queryStrings(ctx, `SELECT DISTINCT symbol FROM purchases WHERE user_id = $1 ORDER BY symbol`, userID)
}

func (s *Store) TrackedSymbols(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, `SELECT DISTINCT symbol FROM purchases ORDER BY symbol`)
}

func (s *Store) PurchaseOwners(ctx context.Context) ([]uuid.UUID, error) {
	ids, err := s.queryStrings(ctx, `SELECT DISTINCT user_id::text FROM purchases ORDER BY 1`)
	if err != nil {
		return nil, err
	}
	out := make([]uuid.UUID, 0, len(ids))
	for _, raw := range ids {
		if id, err := uuid.Parse(raw); err == nil {
			out = append(out, id)
		}
	}
	return out, nil
}

const upsertStock = `
	INSERT INTO stock_data (symbol, date, price, volume, updated_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (symbol, date) DO UPDATE
	SET price = EXCLUDED.price, volume = EXCLUDED.volume, updated_at = EXCLUDED.updated_at
`

func stockArgs(row models.StockData) []any {
	updatedAt := row.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	return []any{models.NormalizeSymbol(row.Symbol), row.Date.Time(), decimalToNumeric(row.Price), row.Volume, updatedAt}
}

func (s *Store) UpsertStockData(ctx context.Context, row models.StockData) error {
	_, err := s.pool.Exec(ctx, upsertStock, stockArgs(row)...)
	return err
}

func (s *Store) UpsertStockDataBatch(ctx context.Context, rows []models.StockData) error {
	if len(rows) == 0 {
		return nil
	}
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, row := range rows {
			batch.Queue(upsertStock, stockArgs(row)...)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

func scanStock(row pgx.Row) (models.StockData, error) {
	var (
		d       models.StockData
		price   pgtype.Numeric
		date    time.Time
		updated time.Time
	)
	if err := row.Scan(&d.Symbol, &date, &price, &d.Volume, &updated); err != nil {
		return models.StockData{}, notFound(err)
	}
	d.Date = models.DateOf(date)
	d.Price = numericToDecimal(price)
	d.UpdatedAt = updated.UTC()
	return d, nil
}

func (s *Store) StockDataOn(ctx context.Context, symbol string, date models.Date) (models.StockData, error) {
	return scanStock(s.pool.QueryRow(ctx, `
		SELECT symbol, date, price, volume, updated_at FROM stock_data
		WHERE symbol = $1 AND date = $2
	`, models.NormalizeSymbol(symbol), date.Time()))
}

func (s *Store) StockDataRange(ctx context.Context, symbol string, from, to models.Date) ([]models.StockData, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT symbol, date, price, volume, updated_at FROM stock_data
		WHERE symbol = $1 AND date BETWEEN $2 AND $3
		ORDER BY date
	`, models.NormalizeSymbol(symbol), from.Time(), to.Time())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]models.StockData, 0)
	for rows.Next() {
		d, err := scanStock(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (s *Store) UpsertSymbols(ctx context.Context, symbols []models.StockSymbol) error {
	if len(symbols) == 0 {
		return nil
	}
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, sym := range symbols {
			batch.Queue(`
				INSERT INTO stock_symbols (symbol, name, exchange, asset_type, ipo_date, status, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, now())
				ON CONFLICT (symbol) DO UPDATE
				SET name = EXCLUDED.name, exchange = EXCLUDED.exchange, asset_type = EXCLUDED.asset_type,
				    ipo_date = EXCLUDED.ipo_date, status = EXCLUDED.status, updated_at = now()
			`, models.NormalizeSymbol(sym.Symbol), sym.Name, sym.Exchange, sym.AssetType, sym.IPODate, sym.Status)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *Store) SearchSymbols(ctx context.Context, query string, limit int) ([]models.StockSymbol, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return []models.StockSymbol{}, nil
	}
	if limit <= 0 {
		limit = 50
	}
	pattern := likeEscaper.Replace(q)
	rows, err := s.pool.Query(ctx, `
		SELECT symbol, name, exchange, asset_type, ipo_date, status FROM stock_symbols
		WHERE symbol ILIKE $1 || '%' OR name ILIKE '%' || $1 || '%'
		ORDER BY symbol
		LIMIT $2
	`, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]models.StockSymbol, 0)
	for rows.Next() {
		var sym models.StockSymbol
		if err := rows.Scan(&sym.Symbol, &sym.Name, &sym.Exchange, &sym.AssetType, &sym.IPODate, &sym.Status); err != nil {
			return nil, err
		}
		items = append(items, sym)
	}
	return items, rows.Err()
}

func (s *Store) UpsertDailyValue(ctx context.Context, userID uuid.UUID, v models.DailyValue) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO daily_holdings (user_id, date, total_value, total_spent, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id, date) DO UPDATE
		SET total_value = EXCLUDED.total_value, total_spent = EXCLUDED.total_spent, updated_at = now()
	`, userID, v.Date.Time(), decimalToNumeric(v.TotalValue), decimalToNumeric(v.TotalSpent))
	return err
}

func (s *Store) DailyValues(ctx context.Context, userID uuid.UUID, before models.Date) ([]models.DailyValue, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT date, total_value, total_spent FROM daily_holdings
		WHERE user_id = $1 AND date < $2
		ORDER BY date
	`, userID, before.Time())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]models.DailyValue, 0)
	for rows.Next() {
		var (
			date         time.Time
			value, spent pgtype.Numeric
		)
		if err := rows.Scan(&date, &value, &spent); err != nil {
			return nil, err
		}
		items = append(items, models.DailyValue{
			Date:       models.DateOf(date),
			TotalValue: numericToDecimal(value),
			TotalSpent: numericToDecimal(spent),
		})
	}
	return items, rows.Err()
}

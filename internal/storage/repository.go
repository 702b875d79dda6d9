package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finboard/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

const dateLayout = "2006-01-02"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateLiability stores l with a fresh ID and returns that ID.
func (r *SQLiteRepository) CreateLiability(ctx context.Context, l core.Liability) (string, error) {
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO liabilities (id, name, currency, balance, due_day, statement_day) VALUES (?, ?, ?, ?, ?, ?)`,
		id, l.Name, l.Currency, l.Balance.String(), l.DueDay, l.StatementDay)
	if err != nil {
		return "", fmt.Errorf("create liability: %w", err)
	}

	slog.InfoContext(ctx, "Liability saved",
		"id", id,
		"name", l.Name,
		"due_day", l.DueDay,
		"statement_day", l.StatementDay)

	return id, nil
}

func (r *SQLiteRepository) GetLiability(ctx context.Context, id string) (core.Liability, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, currency, balance, due_day, statement_day FROM liabilities WHERE id = ?`, id)
	l, err := scanLiability(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Liability{}, fmt.Errorf("liability %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Liability{}, fmt.Errorf("get liability: %w", err)
	}
	return l, nil
}

func (r *SQLiteRepository) ListLiabilities(ctx context.Context) ([]core.Liability, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, currency, balance, due_day, statement_day FROM liabilities ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list liabilities: %w", err)
	}
	defer rows.Close()

	var liabilities []core.Liability
	for rows.Next() {
		l, err := scanLiability(rows)
		if err != nil {
			return nil, fmt.Errorf("scan liability: %w", err)
		}
		liabilities = append(liabilities, l)
	}
	return liabilities, rows.Err()
}

func (r *SQLiteRepository) DeleteLiability(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM liabilities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete liability: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("liability %s: %w", id, ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLiability(s scanner) (core.Liability, error) {
	var l core.Liability
	err := s.Scan(&l.ID, &l.Name, &l.Currency, &l.Balance, &l.DueDay, &l.StatementDay)
	return l, err
}

// CreateTransaction stores a shared transaction and its obligations in one
// database transaction. IDs are assigned here and returned on the copy.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.SharedTransaction) (core.SharedTransaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return t, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	t.ID = uuid.NewString()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO shared_transactions (id, description, tx_date, currency, amount) VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.Description, t.Date.Format(dateLayout), t.Currency, t.Amount.String())
	if err != nil {
		return t, fmt.Errorf("insert shared transaction: %w", err)
	}

	obligations := make([]core.Obligation, len(t.Obligations))
	for i, o := range t.Obligations {
		o.ID = uuid.NewString()
		o.TransactionID = t.ID
		if o.Paid.GreaterThanOrEqual(o.Share) {
			o.Settled = true
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO obligations (id, transaction_id, counterparty, currency, share, paid, settled) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			o.ID, o.TransactionID, o.Counterparty, o.Currency, o.Share.String(), o.Paid.String(), o.Settled)
		if err != nil {
			return t, fmt.Errorf("insert obligation: %w", err)
		}
		obligations[i] = o
	}
	t.Obligations = obligations

	if err := tx.Commit(); err != nil {
		return t, fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Shared transaction saved",
		"id", t.ID,
		"description", t.Description,
		"obligations", len(obligations))

	return t, nil
}

// ListObligations returns the obligations of the given transactions, or of
// every transaction when transactionIDs is empty.
func (r *SQLiteRepository) ListObligations(ctx context.Context, transactionIDs []string) ([]core.Obligation, error) {
	query := `SELECT id, transaction_id, counterparty, currency, share, paid, settled FROM obligations`
	args := make([]any, 0, len(transactionIDs))
	if len(transactionIDs) > 0 {
		placeholders := make([]string, len(transactionIDs))
		for i, id := range transactionIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		query += ` WHERE transaction_id IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY transaction_id, counterparty`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list obligations: %w", err)
	}
	defer rows.Close()

	var obligations []core.Obligation
	for rows.Next() {
		o, err := scanObligation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan obligation: %w", err)
		}
		obligations = append(obligations, o)
	}
	return obligations, rows.Err()
}

func scanObligation(s scanner) (core.Obligation, error) {
	var o core.Obligation
	err := s.Scan(&o.ID, &o.TransactionID, &o.Counterparty, &o.Currency, &o.Share, &o.Paid, &o.Settled)
	return o, err
}

// RecordPayment adds amount to what was paid on an obligation and marks it
// settled once the share is covered.
func (r *SQLiteRepository) RecordPayment(ctx context.Context, obligationID string, amount decimal.Decimal) (core.Obligation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Obligation{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT id, transaction_id, counterparty, currency, share, paid, settled FROM obligations WHERE id = ?`, obligationID)
	o, err := scanObligation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Obligation{}, fmt.Errorf("obligation %s: %w", obligationID, ErrNotFound)
	}
	if err != nil {
		return core.Obligation{}, fmt.Errorf("get obligation: %w", err)
	}

	o.Paid = o.Paid.Add(amount)
	o.Settled = o.Paid.GreaterThanOrEqual(o.Share)

	_, err = tx.ExecContext(ctx, `UPDATE obligations SET paid = ?, settled = ? WHERE id = ?`,
		o.Paid.String(), o.Settled, o.ID)
	if err != nil {
		return core.Obligation{}, fmt.Errorf("update obligation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Obligation{}, fmt.Errorf("commit payment: %w", err)
	}

	slog.InfoContext(ctx, "Obligation payment recorded",
		"id", o.ID,
		"paid", o.Paid.String(),
		"settled", o.Settled)

	return o, nil
}

// UpsertExchangeRate inserts or replaces the rate of rate.Currency against rate.Base.
func (r *SQLiteRepository) UpsertExchangeRate(ctx context.Context, rate core.ExchangeRate) error {
	updatedAt := rate.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO exchange_rates (base, currency, rate, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (base, currency) DO UPDATE SET rate = excluded.rate, updated_at = excluded.updated_at`,
		rate.Base, rate.Currency, rate.Rate.String(), updatedAt)
	if err != nil {
		return fmt.Errorf("upsert exchange rate: %w", err)
	}
	return nil
}

// ListExchangeRates returns every stored rate against base, ordered by currency.
func (r *SQLiteRepository) ListExchangeRates(ctx context.Context, base string) ([]core.ExchangeRate, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT base, currency, rate, updated_at FROM exchange_rates WHERE base = ? ORDER BY currency`, base)
	if err != nil {
		return nil, fmt.Errorf("list exchange rates: %w", err)
	}
	defer rows.Close()

	var rates []core.ExchangeRate
	for rows.Next() {
		var rate core.ExchangeRate
		if err := rows.Scan(&rate.Base, &rate.Currency, &rate.Rate, &rate.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan exchange rate: %w", err)
		}
		rates = append(rates, rate)
	}
	return rates, rows.Err()
}

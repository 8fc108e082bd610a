package customers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of pgx used by PostgresStore; *pgxpool.Pool and pgx.Tx satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore is a Directory backed by the customers and workers tables.
type PostgresStore struct {
	db DBTX
}

func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

const customerColumns = `record_id::text, customer_id, display_name, avatar, phone_number,
	COALESCE(worker_identity, ''), channels, links, title, content, consent`

const getCustomerByID = `SELECT ` + customerColumns + ` FROM customers WHERE customer_id = $1`

const getCustomerByNumber = `SELECT ` + customerColumns + ` FROM customers
WHERE phone_number = $1
   OR channels @> jsonb_build_array(jsonb_build_object('value', $1::text))
ORDER BY created_at
LIMIT 1`

const listCustomersByWorker = `SELECT ` + customerColumns + ` FROM customers
WHERE worker_identity = $1
  AND ($2::text = '' OR customer_id > $2::text)
ORDER BY customer_id
LIMIT $3`

const listAllCustomersByWorker = `SELECT ` + customerColumns + ` FROM customers
WHERE worker_identity = $1
ORDER BY customer_id`

const findWorkerForCustomer = `SELECT COALESCE(worker_identity, '') FROM customers
WHERE phone_number = $1
   OR channels @> jsonb_build_array(jsonb_build_object('value', $1::text))
ORDER BY created_at
LIMIT 1`

const listWorkers = `SELECT identity FROM workers ORDER BY identity`

const updateConsent = `UPDATE customers SET consent = $2, updated_at = now() WHERE record_id = $1::uuid`

func (s *PostgresStore) GetByID(ctx context.Context, customerID string) (Customer, error) {
	c, err := scanCustomer(s.db.QueryRow(ctx, getCustomerByID, customerID))
	return c, wrapErr("get customer by id", err)
}

func (s *PostgresStore) GetByNumber(ctx context.Context, address string) (Customer, error) {
	if address == "" {
		return Customer{}, ErrNotFound
	}
	c, err := scanCustomer(s.db.QueryRow(ctx, getCustomerByNumber, address))
	return c, wrapErr("get customer by number", err)
}

func (s *PostgresStore) List(ctx context.Context, worker string, pageSize int, anchor string) ([]Customer, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if pageSize <= 0 {
		rows, err = s.db.Query(ctx, listAllCustomersByWorker, worker)
	} else {
		if isFirstPage(anchor) {
			anchor = ""
		}
		rows, err = s.db.Query(ctx, listCustomersByWorker, worker, anchor, pageSize)
	}
	if err != nil {
		return nil, wrapErr("list customers", err)
	}
	defer rows.Close()

	items := make([]Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, wrapErr("list customers", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list customers", err)
	}
	return items, nil
}

func (s *PostgresStore) FindWorkerForCustomer(ctx context.Context, address string) (string, error) {
	if address == "" {
		return "", nil
	}
	var worker string
	err := s.db.QueryRow(ctx, findWorkerForCustomer, address).Scan(&worker)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", wrapErr("find worker for customer", err)
	}
	return worker, nil
}

func (s *PostgresStore) Workers(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, listWorkers)
	if err != nil {
		return nil, wrapErr("list workers", err)
	}
	workers, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, wrapErr("list workers", err)
	}
	return workers, nil
}

func (s *PostgresStore) UpdateConsent(ctx context.Context, recordID string, consent bool) error {
	tag, err := s.db.Exec(ctx, updateConsent, recordID, consent)
	if err != nil {
		return wrapErr("update consent", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanCustomer(row pgx.Row) (Customer, error) {
	var (
		c        Customer
		channels []byte
		links    []byte
		title    *string
		content  *string
	)
	err := row.Scan(
		&c.Details.RecordID,
		&c.CustomerID,
		&c.DisplayName,
		&c.Avatar,
		&c.PhoneNumber,
		&c.Worker,
		&channels,
		&links,
		&title,
		&content,
		&c.Details.Consent,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	if err != nil {
		return Customer{}, err
	}
	if len(channels) > 0 {
		if err := json.Unmarshal(channels, &c.Channels); err != nil {
			return Customer{}, fmt.Errorf("decode channels: %w", err)
		}
	}
	if len(links) > 0 {
		if err := json.Unmarshal(links, &c.Links); err != nil {
			return Customer{}, fmt.Errorf("decode links: %w", err)
		}
	}
	if title != nil {
		c.Details.Title = *title
	}
	if content != nil {
		c.Details.Content = *content
	}
	return c, nil
}

const upsertWorker = `INSERT INTO workers (identity) VALUES ($1) ON CONFLICT (identity) DO NOTHING`

const upsertCustomer = `INSERT INTO customers (
  customer_id, display_name, avatar, phone_number, worker_identity, channels, links, title, content, consent
) VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, NULLIF($8, ''), NULLIF($9, ''), $10)
ON CONFLICT (customer_id) DO UPDATE SET
  display_name = EXCLUDED.display_name,
  avatar = EXCLUDED.avatar,
  phone_number = EXCLUDED.phone_number,
  worker_identity = EXCLUDED.worker_identity,
  channels = EXCLUDED.channels,
  links = EXCLUDED.links,
  title = EXCLUDED.title,
  content = EXCLUDED.content,
  updated_at = now()`

// Import upserts the workers and customers of seed. Existing consent flags are kept.
func (s *PostgresStore) Import(ctx context.Context, seed Seed) (int, error) {
	workers := append([]string{}, seed.Workers...)
	for _, c := range seed.Customers {
		if c.Worker != "" {
			workers = append(workers, c.Worker)
		}
	}
	for _, w := range workers {
		if _, err := s.db.Exec(ctx, upsertWorker, w); err != nil {
			return 0, wrapErr("import worker", err)
		}
	}
	for i, c := range seed.Customers {
		channels, err := json.Marshal(nonNilSlice(c.Channels))
		if err != nil {
			return i, fmt.Errorf("encode channels: %w", err)
		}
		links, err := json.Marshal(nonNilSlice(c.Links))
		if err != nil {
			return i, fmt.Errorf("encode links: %w", err)
		}
		if _, err := s.db.Exec(ctx, upsertCustomer,
			c.CustomerID, c.DisplayName, c.Avatar, c.PhoneNumber, c.Worker,
			channels, links, c.Details.Title, c.Details.Content, c.Details.Consent,
		); err != nil {
			return i, wrapErr("import customer", err)
		}
	}
	return len(seed.Customers), nil
}

func nonNilSlice[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

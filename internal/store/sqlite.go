package store

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore backs the Store interface with a local SQLite file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: d, path: path}
	if err := s.init(); err != nil {
		d.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (id TEXT PRIMARY KEY, email TEXT UNIQUE, password_hash TEXT, role TEXT, created_at TEXT);`,
		`CREATE TABLE IF NOT EXISTS orders (id TEXT PRIMARY KEY, user_id TEXT, reference TEXT UNIQUE, amount_cents INTEGER, currency TEXT, status TEXT, created_at TEXT, paid_at TEXT);`,
		`CREATE TABLE IF NOT EXISTS webhook_events (id TEXT PRIMARY KEY, event_type TEXT, order_ref TEXT, payload BLOB, received_at TEXT);`,
	}
	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func isSQLiteUnique(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE")
}

func (s *SQLiteStore) CreateUser(email, passwordHash, role string) (*User, error) {
	u := &User{ID: uuid.NewString(), Email: email, PasswordHash: passwordHash, Role: role, CreatedAt: time.Now().UTC()}
	_, err := s.db.Exec(`INSERT INTO users(id,email,password_hash,role,created_at) VALUES(?,?,?,?,?)`,
		u.ID, u.Email, u.PasswordHash, u.Role, u.CreatedAt.Format(time.RFC3339))
	if isSQLiteUnique(err) {
		return nil, ErrExists
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*User, error) {
	var u User
	var created string
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &created); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &u, nil
}

func (s *SQLiteStore) GetUserByEmail(email string) (*User, error) {
	return s.scanUser(s.db.QueryRow(`SELECT id,email,password_hash,role,created_at FROM users WHERE email = ?`, email))
}

func (s *SQLiteStore) GetUserByID(id string) (*User, error) {
	return s.scanUser(s.db.QueryRow(`SELECT id,email,password_hash,role,created_at FROM users WHERE id = ?`, id))
}

func (s *SQLiteStore) ListUsers() ([]*User, error) {
	rows, err := s.db.Query(`SELECT id,email,password_hash,role,created_at FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*User
	for rows.Next() {
		var u User
		var created string
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &created); err != nil {
			return nil, err
		}
		u.CreatedAt, _ = time.Parse(time.RFC3339, created)
		out = append(out, &u)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CreateOrder(userID string, amountCents int64, currency string) (*Order, error) {
	o := &Order{
		ID:          uuid.NewString(),
		UserID:      userID,
		Reference:   "ord_" + uuid.NewString(),
		AmountCents: amountCents,
		Currency:    currency,
		Status:      OrderStatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	_, err := s.db.Exec(`INSERT INTO orders(id,user_id,reference,amount_cents,currency,status,created_at) VALUES(?,?,?,?,?,?,?)`,
		o.ID, o.UserID, o.Reference, o.AmountCents, o.Currency, o.Status, o.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *SQLiteStore) GetOrderByReference(ref string) (*Order, error) {
	row := s.db.QueryRow(`SELECT id,user_id,reference,amount_cents,currency,status,created_at,paid_at FROM orders WHERE reference = ?`, ref)
	return scanOrderStrings(row.Scan)
}

func (s *SQLiteStore) ListOrdersForUser(userID string) ([]*Order, error) {
	rows, err := s.db.Query(`SELECT id,user_id,reference,amount_cents,currency,status,created_at,paid_at FROM orders WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Order
	for rows.Next() {
		o, err := scanOrderStrings(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// scanOrderStrings decodes an order row whose timestamps are stored as
// RFC3339 text, as the SQLite schema above does.
func scanOrderStrings(scan func(dest ...any) error) (*Order, error) {
	var o Order
	var created string
	var paid sql.NullString
	err := scan(&o.ID, &o.UserID, &o.Reference, &o.AmountCents, &o.Currency, &o.Status, &created, &paid)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	o.CreatedAt, _ = time.Parse(time.RFC3339, created)
	if paid.Valid {
		t, err := time.Parse(time.RFC3339, paid.String)
		if err == nil {
			o.PaidAt = &t
		}
	}
	return &o, nil
}

func (s *SQLiteStore) MarkOrderPaid(ref string, paidAt time.Time) error {
	res, err := s.db.Exec(`UPDATE orders SET status = ?, paid_at = ? WHERE reference = ?`,
		OrderStatusPaid, paidAt.UTC().Format(time.RFC3339), ref)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) RecordWebhookEvent(id, eventType, orderRef string, payload []byte) error {
	_, err := s.db.Exec(`INSERT INTO webhook_events(id,event_type,order_ref,payload,received_at) VALUES(?,?,?,?,?)`,
		id, eventType, orderRef, payload, time.Now().UTC().Format(time.RFC3339))
	if isSQLiteUnique(err) {
		return ErrExists
	}
	return err
}

func (s *SQLiteStore) Ping() bool   { return s.db.Ping() == nil }
func (s *SQLiteStore) Close() error { return s.db.Close() }

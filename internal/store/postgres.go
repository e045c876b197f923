package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresStore backs the Store interface with PostgreSQL. Schema comes
// from the migrations directory, not from this file.
type PostgresStore struct {
	db  *sql.DB
	dsn string
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	d, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := d.PingContext(ctx); err != nil {
		d.Close()
		return nil, err
	}
	return &PostgresStore{db: d, dsn: dsn}, nil
}

func isPGUnique(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}

func (p *PostgresStore) CreateUser(email, passwordHash, role string) (*User, error) {
	u := &User{ID: uuid.NewString(), Email: email, PasswordHash: passwordHash, Role: role}
	err := p.db.QueryRow(`INSERT INTO users(id,email,password_hash,role,created_at) VALUES($1,$2,$3,$4,now()) RETURNING created_at`,
		u.ID, u.Email, u.PasswordHash, u.Role).Scan(&u.CreatedAt)
	if isPGUnique(err) {
		return nil, ErrExists
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (p *PostgresStore) scanUser(row *sql.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (p *PostgresStore) GetUserByEmail(email string) (*User, error) {
	return p.scanUser(p.db.QueryRow(`SELECT id,email,password_hash,role,created_at FROM users WHERE email = $1`, email))
}

func (p *PostgresStore) GetUserByID(id string) (*User, error) {
	return p.scanUser(p.db.QueryRow(`SELECT id,email,password_hash,role,created_at FROM users WHERE id = $1`, id))
}

func (p *PostgresStore) ListUsers() ([]*User, error) {
	rows, err := p.db.Query(`SELECT id,email,password_hash,role,created_at FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}

func (p *PostgresStore) CreateOrder(userID string, amountCents int64, currency string) (*Order, error) {
	o := &Order{
		ID:          uuid.NewString(),
		UserID:      userID,
		Reference:   "ord_" + uuid.NewString(),
		AmountCents: amountCents,
		Currency:    currency,
		Status:      OrderStatusPending,
	}
	err := p.db.QueryRow(`INSERT INTO orders(id,user_id,reference,amount_cents,currency,status,created_at) VALUES($1,$2,$3,$4,$5,$6,now()) RETURNING created_at`,
		o.ID, o.UserID, o.Reference, o.AmountCents, o.Currency, o.Status).Scan(&o.CreatedAt)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (p *PostgresStore) scanOrder(scan func(dest ...any) error) (*Order, error) {
	var o Order
	var paid sql.NullTime
	err := scan(&o.ID, &o.UserID, &o.Reference, &o.AmountCents, &o.Currency, &o.Status, &o.CreatedAt, &paid)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if paid.Valid {
		t := paid.Time
		o.PaidAt = &t
	}
	return &o, nil
}

func (p *PostgresStore) GetOrderByReference(ref string) (*Order, error) {
	row := p.db.QueryRow(`SELECT id,user_id,reference,amount_cents,currency,status,created_at,paid_at FROM orders WHERE reference = $1`, ref)
	return p.scanOrder(row.Scan)
}

func (p *PostgresStore) ListOrdersForUser(userID string) ([]*Order, error) {
	rows, err := p.db.Query(`SELECT id,user_id,reference,amount_cents,currency,status,created_at,paid_at FROM orders WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Order
	for rows.Next() {
		o, err := p.scanOrder(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (p *PostgresStore) MarkOrderPaid(ref string, paidAt time.Time) error {
	res, err := p.db.Exec(`UPDATE orders SET status = $1, paid_at = $2 WHERE reference = $3`,
		OrderStatusPaid, paidAt.UTC(), ref)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) RecordWebhookEvent(id, eventType, orderRef string, payload []byte) error {
	_, err := p.db.Exec(`INSERT INTO webhook_events(id,event_type,order_ref,payload,received_at) VALUES($1,$2,$3,$4,now())`,
		id, eventType, orderRef, payload)
	if isPGUnique(err) {
		return ErrExists
	}
	return err
}

func (p *PostgresStore) Ping() bool   { return p.db.Ping() == nil }
func (p *PostgresStore) Close() error { return p.db.Close() }

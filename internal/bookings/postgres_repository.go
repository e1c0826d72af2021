package bookings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/medbook-ai/booking-assistant/internal/booking"
)

// PgxPool is the slice of pgxpool.Pool the repository uses, kept narrow so
// tests can swap in pgxmock.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores customers and bookings in the relational database.
type PostgresRepository struct {
	pool PgxPool
}

func NewPostgresRepository(pool PgxPool) *PostgresRepository {
	if pool == nil {
		panic("bookings: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// GetOrCreateCustomer upserts on email and refreshes the contact details the
// patient gave this time around.
func (r *PostgresRepository) GetOrCreateCustomer(ctx context.Context, name, email, phone string) (*Customer, error) {
	query := `
		INSERT INTO customers (id, name, email, phone)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email)
		DO UPDATE SET name = EXCLUDED.name, phone = EXCLUDED.phone
		RETURNING id, created_at
	`
	c := &Customer{Name: name, Email: email, Phone: phone}
	if err := r.pool.QueryRow(ctx, query, uuid.New(), name, email, phone).
		Scan(&c.ID, &c.CreatedAt); err != nil {
		return nil, fmt.Errorf("bookings: upsert customer: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) CreateBooking(ctx context.Context, b *Booking) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	query := `
		INSERT INTO bookings (id, customer_id, booking_type, scheduled_date, scheduled_time, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	if err := r.pool.QueryRow(ctx, query,
		b.ID,
		b.CustomerID,
		b.BookingType,
		b.Date,
		b.Time,
		b.Notes,
		string(b.Status),
	).Scan(&b.CreatedAt, &b.UpdatedAt); err != nil {
		return fmt.Errorf("bookings: insert booking: %w", err)
	}
	return nil
}

const detailColumns = `
	b.id, b.customer_id, b.booking_type, b.scheduled_date, b.scheduled_time,
	b.notes, b.status, b.created_at, b.updated_at,
	c.name, c.email, c.phone
`

func (r *PostgresRepository) GetBooking(ctx context.Context, id uuid.UUID) (*Detail, error) {
	query := `SELECT ` + detailColumns + `
		FROM bookings b JOIN customers c ON c.id = b.customer_id
		WHERE b.id = $1`
	d, err := scanDetail(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("bookings: select booking: %w", err)
	}
	return d, nil
}

func (r *PostgresRepository) ListBookings(ctx context.Context, filter ListFilter) ([]Detail, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Status != "" {
		conds = append(conds, "b.status = "+arg(string(filter.Status)))
	}
	if !filter.Date.IsZero() {
		conds = append(conds, "b.scheduled_date = "+arg(filter.Date))
	}
	if filter.Query != "" {
		p := arg("%" + strings.ToLower(filter.Query) + "%")
		conds = append(conds, "(LOWER(c.name) LIKE "+p+" OR LOWER(c.email) LIKE "+p+")")
	}

	query := `SELECT ` + detailColumns + `
		FROM bookings b JOIN customers c ON c.id = b.customer_id`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY b.scheduled_date, b.scheduled_time"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("bookings: list bookings: %w", err)
	}
	defer rows.Close()

	var out []Detail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("bookings: scan booking: %w", err)
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bookings: list bookings: %w", err)
	}
	return out, nil
}

// ListByEmail returns the bookings belonging to a single customer, soonest
// first. It backs the "look up my appointment" chat flow.
func (r *PostgresRepository) ListByEmail(ctx context.Context, email string) ([]Detail, error) {
	query := `SELECT ` + detailColumns + `
		FROM bookings b JOIN customers c ON c.id = b.customer_id
		WHERE LOWER(c.email) = LOWER($1)
		ORDER BY b.scheduled_date, b.scheduled_time`
	rows, err := r.pool.Query(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("bookings: list by email: %w", err)
	}
	defer rows.Close()

	var out []Detail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("bookings: scan booking: %w", err)
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bookings: list by email: %w", err)
	}
	return out, nil
}

func scanDetail(row pgx.Row) (*Detail, error) {
	var d Detail
	var status string
	if err := row.Scan(
		&d.ID,
		&d.CustomerID,
		&d.BookingType,
		&d.Date,
		&d.Time,
		&d.Notes,
		&status,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.CustomerName,
		&d.CustomerEmail,
		&d.CustomerPhone,
	); err != nil {
		return nil, err
	}
	d.Status = booking.Status(status)
	return &d, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status booking.Status) error {
	query := `UPDATE bookings SET status = $2, updated_at = now() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, string(status))
	if err != nil {
		return fmt.Errorf("bookings: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}

func (r *PostgresRepository) CountByEmailSince(ctx context.Context, email string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM bookings b JOIN customers c ON c.id = b.customer_id
		WHERE c.email = $1 AND b.created_at >= $2
	`
	var n int
	if err := r.pool.QueryRow(ctx, query, email, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("bookings: count recent bookings: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'PENDING'),
			COUNT(*) FILTER (WHERE status = 'CONFIRMED'),
			COUNT(*) FILTER (WHERE status = 'CANCELLED'),
			COUNT(*) FILTER (WHERE status = 'COMPLETED'),
			COUNT(*) FILTER (WHERE scheduled_date >= $1 AND status <> 'CANCELLED')
		FROM bookings
	`
	s := &Stats{}
	if err := r.pool.QueryRow(ctx, query, today).
		Scan(&s.Total, &s.Pending, &s.Confirmed, &s.Cancelled, &s.Completed, &s.Upcoming); err != nil {
		return nil, fmt.Errorf("bookings: stats: %w", err)
	}
	return s, nil
}

package bookings

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medbook-ai/booking-assistant/internal/booking"
)

// Repository is the persistence surface the service and admin handlers need.
type Repository interface {
	GetOrCreateCustomer(ctx context.Context, name, email, phone string) (*Customer, error)
	CreateBooking(ctx context.Context, b *Booking) error
	GetBooking(ctx context.Context, id uuid.UUID) (*Detail, error)
	ListBookings(ctx context.Context, filter ListFilter) ([]Detail, error)
	ListByEmail(ctx context.Context, email string) ([]Detail, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status booking.Status) error
	CountByEmailSince(ctx context.Context, email string, since time.Time) (int, error)
	Stats(ctx context.Context, now time.Time) (*Stats, error)
}

// InMemoryRepository keeps everything in maps. It backs local development and
// tests; production wiring uses PostgresRepository.
type InMemoryRepository struct {
	mu        sync.RWMutex
	customers map[string]*Customer // keyed by email
	bookings  map[uuid.UUID]*Booking
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		customers: make(map[string]*Customer),
		bookings:  make(map[uuid.UUID]*Booking),
	}
}

func (r *InMemoryRepository) GetOrCreateCustomer(_ context.Context, name, email, phone string) (*Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.customers[email]; ok {
		c.Name = name
		c.Phone = phone
		cp := *c
		return &cp, nil
	}
	c := &Customer{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		Phone:     phone,
		CreatedAt: time.Now().UTC(),
	}
	r.customers[email] = c
	cp := *c
	return &cp, nil
}

func (r *InMemoryRepository) CreateBooking(_ context.Context, b *Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	cp := *b
	r.bookings[b.ID] = &cp
	return nil
}

func (r *InMemoryRepository) GetBooking(_ context.Context, id uuid.UUID) (*Detail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	return r.detail(b), nil
}

func (r *InMemoryRepository) detail(b *Booking) *Detail {
	d := &Detail{Booking: *b}
	for _, c := range r.customers {
		if c.ID == b.CustomerID {
			d.CustomerName = c.Name
			d.CustomerEmail = c.Email
			d.CustomerPhone = c.Phone
			break
		}
	}
	return d
}

func (r *InMemoryRepository) ListBookings(_ context.Context, filter ListFilter) ([]Detail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Detail, 0, len(r.bookings))
	for _, b := range r.bookings {
		d := r.detail(b)
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		if !filter.Date.IsZero() && !sameDay(d.Date, filter.Date) {
			continue
		}
		if q := strings.ToLower(filter.Query); q != "" {
			if !strings.Contains(strings.ToLower(d.CustomerName), q) &&
				!strings.Contains(strings.ToLower(d.CustomerEmail), q) {
				continue
			}
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Time < out[j].Time
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []Detail{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// ListByEmail returns every booking tied to the customer with the given
// email, soonest first.
func (r *InMemoryRepository) ListByEmail(_ context.Context, email string) ([]Detail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.customers[email]
	if !ok {
		return []Detail{}, nil
	}
	out := make([]Detail, 0, 4)
	for _, b := range r.bookings {
		if b.CustomerID == c.ID {
			out = append(out, *r.detail(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Time < out[j].Time
	})
	return out, nil
}

func (r *InMemoryRepository) UpdateStatus(_ context.Context, id uuid.UUID, status booking.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return ErrBookingNotFound
	}
	b.Status = status
	b.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InMemoryRepository) CountByEmailSince(_ context.Context, email string, since time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.customers[email]
	if !ok {
		return 0, nil
	}
	n := 0
	for _, b := range r.bookings {
		if b.CustomerID == c.ID && !b.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *InMemoryRepository) Stats(_ context.Context, now time.Time) (*Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	s := &Stats{}
	for _, b := range r.bookings {
		s.Total++
		switch b.Status {
		case booking.StatusPending:
			s.Pending++
		case booking.StatusConfirmed:
			s.Confirmed++
		case booking.StatusCancelled:
			s.Cancelled++
		case booking.StatusCompleted:
			s.Completed++
		}
		if !b.Date.Before(today) && b.Status != booking.StatusCancelled {
			s.Upcoming++
		}
	}
	return s, nil
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

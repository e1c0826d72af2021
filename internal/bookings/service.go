package bookings

import (
	"context"
	"fmt"
	"time"

	"github.com/medbook-ai/booking-assistant/internal/booking"
	"github.com/medbook-ai/booking-assistant/pkg/logging"
)

// Notifier delivers the confirmation message for a freshly created booking.
type Notifier interface {
	BookingCreated(ctx context.Context, d *Detail) error
}

// Service turns a completed wizard record into persisted rows and an outbound
// confirmation. The wizard emits each record exactly once, so one call here
// means one booking.
type Service struct {
	repo       Repository
	notifier   Notifier
	log        *logging.Logger
	rateLimit  int
	rateWindow time.Duration
	now        func() time.Time
}

// NewService wires the persistence and notification sides together. notifier
// may be nil when outbound email is disabled.
func NewService(repo Repository, notifier Notifier, log *logging.Logger) *Service {
	if repo == nil {
		panic("bookings: repository required")
	}
	if log == nil {
		log = logging.Default()
	}
	return &Service{
		repo:       repo,
		notifier:   notifier,
		log:        log,
		rateLimit:  5,
		rateWindow: time.Hour,
		now:        time.Now,
	}
}

// WithRateLimit overrides the per-email booking cap. A limit of zero disables
// the check.
func (s *Service) WithRateLimit(limit int, window time.Duration) *Service {
	s.rateLimit = limit
	s.rateWindow = window
	return s
}

// PersistAndNotify stores the record and sends the confirmation email.
// Email failure does not fail the booking; the rows are already committed and
// staff can resend from the dashboard.
func (s *Service) PersistAndNotify(ctx context.Context, rec *booking.Record) (*Detail, error) {
	date, err := time.Parse("2006-01-02", rec.Date)
	if err != nil {
		return nil, fmt.Errorf("bookings: bad record date %q: %w", rec.Date, err)
	}

	now := s.now().UTC()
	if s.rateLimit > 0 {
		n, err := s.repo.CountByEmailSince(ctx, rec.Email, now.Add(-s.rateWindow))
		if err != nil {
			return nil, err
		}
		if n >= s.rateLimit {
			return nil, ErrRateLimited
		}
	}

	customer, err := s.repo.GetOrCreateCustomer(ctx, rec.PatientName, rec.Email, rec.Phone)
	if err != nil {
		return nil, err
	}

	b := &Booking{
		CustomerID:  customer.ID,
		BookingType: rec.BookingType,
		Date:        date,
		Time:        rec.Time,
		Notes:       rec.Notes,
		Status:      rec.Status,
	}
	if err := s.repo.CreateBooking(ctx, b); err != nil {
		return nil, err
	}

	d := &Detail{
		Booking:       *b,
		CustomerName:  customer.Name,
		CustomerEmail: customer.Email,
		CustomerPhone: customer.Phone,
	}
	s.log.Info("booking created",
		"booking_id", b.ID,
		"booking_type", b.BookingType,
		"date", rec.Date,
		"time", rec.Time,
	)

	if s.notifier != nil {
		if err := s.notifier.BookingCreated(ctx, d); err != nil {
			s.log.Warn("booking confirmation email failed", "booking_id", b.ID, "error", err)
		}
	}
	return d, nil
}

// FindByEmail returns the bookings on file for an email address, soonest
// first. The chat engine uses it to answer "when is my appointment".
func (s *Service) FindByEmail(ctx context.Context, email string) ([]Detail, error) {
	return s.repo.ListByEmail(ctx, email)
}

package bookings

import (
	"time"

	"github.com/google/uuid"

	"github.com/medbook-ai/booking-assistant/internal/booking"
)

// Customer is a patient identified by email. The wizard's contact fields are
// deduplicated into this table so repeat bookings share one customer row.
type Customer struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// Booking is one scheduled appointment.
type Booking struct {
	ID          uuid.UUID      `json:"id"`
	CustomerID  uuid.UUID      `json:"customer_id"`
	BookingType string         `json:"booking_type"`
	Date        time.Time      `json:"date"`
	Time        string         `json:"time"`
	Notes       string         `json:"notes,omitempty"`
	Status      booking.Status `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Detail is a booking joined with its customer, the shape the admin
// dashboard lists and exports.
type Detail struct {
	Booking
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
}

// ListFilter narrows admin listings. Zero values mean "no constraint".
type ListFilter struct {
	Status booking.Status
	// Query matches customer name or email, case-insensitively.
	Query  string
	Date   time.Time
	Limit  int
	Offset int
}

// Stats summarizes the book for the admin dashboard.
type Stats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Cancelled int `json:"cancelled"`
	Completed int `json:"completed"`
	Upcoming  int `json:"upcoming"`
}

package bookings

import "errors"

var (
	ErrBookingNotFound  = errors.New("bookings: booking not found")
	ErrCustomerNotFound = errors.New("bookings: customer not found")

	// ErrRateLimited is returned when one email address tries to create more
	// bookings inside the window than policy allows.
	ErrRateLimited = errors.New("bookings: too many recent bookings for this email")
)

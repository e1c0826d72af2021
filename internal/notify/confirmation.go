package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/medbook-ai/booking-assistant/internal/bookings"
	"github.com/medbook-ai/booking-assistant/pkg/logging"
)

// Clinic is the identity stamped into outbound patient email.
type Clinic struct {
	Name    string
	Phone   string
	Address string
}

// BookingConfirmer emails patients when their booking request is recorded.
// It implements bookings.Notifier.
type BookingConfirmer struct {
	sender EmailSender
	clinic Clinic
	logger *logging.Logger
}

// NewBookingConfirmer returns nil when no sender is configured; the bookings
// service treats a nil notifier as email-disabled.
func NewBookingConfirmer(sender EmailSender, clinic Clinic, logger *logging.Logger) *BookingConfirmer {
	if sender == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingConfirmer{sender: sender, clinic: clinic, logger: logger}
}

// BookingCreated sends the "request received" email. The booking is still
// PENDING at this point, and the copy says so.
func (c *BookingConfirmer) BookingCreated(ctx context.Context, d *bookings.Detail) error {
	msg := EmailMessage{
		To:      d.CustomerEmail,
		ToName:  d.CustomerName,
		Subject: fmt.Sprintf("Appointment request received - %s", c.clinic.Name),
		Body:    c.textBody(d),
		HTML:    c.htmlBody(d),
	}
	return c.sender.Send(ctx, msg)
}

func (c *BookingConfirmer) textBody(d *bookings.Detail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", firstName(d.CustomerName))
	fmt.Fprintf(&b, "We've received your appointment request at %s.\n\n", c.clinic.Name)
	fmt.Fprintf(&b, "  Appointment: %s\n", d.BookingType)
	fmt.Fprintf(&b, "  Date:        %s\n", d.Date.Format("Monday, January 2, 2006"))
	fmt.Fprintf(&b, "  Time:        %s\n", d.Time)
	fmt.Fprintf(&b, "  Reference:   %s\n\n", d.ID)
	b.WriteString("Your booking is pending confirmation. We'll email you again once our staff confirms the slot.\n\n")
	if c.clinic.Phone != "" {
		fmt.Fprintf(&b, "Need to change something? Call us at %s.\n", c.clinic.Phone)
	}
	if c.clinic.Address != "" {
		fmt.Fprintf(&b, "%s\n", c.clinic.Address)
	}
	return b.String()
}

func (c *BookingConfirmer) htmlBody(d *bookings.Detail) string {
	row := func(label, value string) string {
		return fmt.Sprintf(`<tr><td style="padding:4px 12px 4px 0;color:#555;">%s</td><td style="padding:4px 0;"><strong>%s</strong></td></tr>`, label, value)
	}
	var b strings.Builder
	b.WriteString(`<div style="font-family:Arial,sans-serif;max-width:560px;margin:0 auto;">`)
	fmt.Fprintf(&b, `<h2 style="color:#2c5f8a;">%s</h2>`, c.clinic.Name)
	fmt.Fprintf(&b, `<p>Hi %s,</p><p>We've received your appointment request.</p>`, firstName(d.CustomerName))
	b.WriteString(`<table style="border-collapse:collapse;">`)
	b.WriteString(row("Appointment", d.BookingType))
	b.WriteString(row("Date", d.Date.Format("Monday, January 2, 2006")))
	b.WriteString(row("Time", d.Time))
	b.WriteString(row("Reference", d.ID.String()))
	b.WriteString(`</table>`)
	b.WriteString(`<p style="color:#8a6d3b;">Your booking is <strong>pending confirmation</strong>. We'll email you again once our staff confirms the slot.</p>`)
	if c.clinic.Phone != "" {
		fmt.Fprintf(&b, `<p>Need to change something? Call us at %s.</p>`, c.clinic.Phone)
	}
	if c.clinic.Address != "" {
		fmt.Fprintf(&b, `<p style="color:#777;font-size:13px;">%s</p>`, c.clinic.Address)
	}
	b.WriteString(`</div>`)
	return b.String()
}

var _ bookings.Notifier = (*BookingConfirmer)(nil)

func firstName(full string) string {
	if i := strings.IndexByte(full, ' '); i > 0 {
		return full[:i]
	}
	return full
}

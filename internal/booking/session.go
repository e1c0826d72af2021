package booking

import "time"

// Step identifies the wizard's current position in the collection flow.
type Step string

const (
	StepName    Step = "awaiting_name"
	StepEmail   Step = "awaiting_email"
	StepPhone   Step = "awaiting_phone"
	StepType    Step = "awaiting_type"
	StepDate    Step = "awaiting_date"
	StepTime    Step = "awaiting_time"
	StepConfirm Step = "awaiting_confirmation"
	StepEdit    Step = "editing"
	StepComplete  Step = "complete"
	StepCancelled Step = "cancelled"
)

// Field names one of the six values the wizard collects.
type Field string

const (
	FieldName  Field = "name"
	FieldEmail Field = "email"
	FieldPhone Field = "phone"
	FieldType  Field = "booking_type"
	FieldDate  Field = "date"
	FieldTime  Field = "time"
)

// fieldOrder is the fixed collection sequence. Editing a single field from
// the confirmation summary does not re-enter this sequence.
var fieldOrder = []Field{FieldName, FieldEmail, FieldPhone, FieldType, FieldDate, FieldTime}

var stepForField = map[Field]Step{
	FieldName:  StepName,
	FieldEmail: StepEmail,
	FieldPhone: StepPhone,
	FieldType:  StepType,
	FieldDate:  StepDate,
	FieldTime:  StepTime,
}

// Session holds the wizard state for one conversation. It is a plain value
// that marshals to JSON so callers can park it in Redis between turns.
type Session struct {
	ID     string           `json:"id"`
	Step   Step             `json:"step"`
	Fields map[Field]string `json:"fields"`
	// Attempts counts consecutive rejected inputs for the current step. It
	// resets whenever the step changes.
	Attempts    int        `json:"attempts,omitempty"`
	EditField   Field      `json:"edit_field,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewSession starts a session at the first collection step.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		Step:      StepName,
		Fields:    make(map[Field]string),
		StartedAt: now.UTC(),
	}
}

// Active reports whether the session still accepts patient input.
func (s *Session) Active() bool {
	return s.Step != StepComplete && s.Step != StepCancelled
}

// missingField returns the first field in collection order that has no
// validated value yet, or false once all six are present.
func (s *Session) missingField() (Field, bool) {
	for _, f := range fieldOrder {
		if s.Fields[f] == "" {
			return f, true
		}
	}
	return "", false
}

// Status is the lifecycle state of a persisted booking.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

// Record is the immutable output of a completed wizard session. New records
// always carry StatusPending; staff confirm them out of band.
type Record struct {
	SessionID   string `json:"session_id"`
	PatientName string `json:"patient_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	BookingType string `json:"booking_type"`
	Date        string `json:"date"` // YYYY-MM-DD
	Time        string `json:"time"` // HH:MM, 24-hour
	Notes       string `json:"notes,omitempty"`
	Status      Status `json:"status"`
}

func (s *Session) record() *Record {
	return &Record{
		SessionID:   s.ID,
		PatientName: s.Fields[FieldName],
		Email:       s.Fields[FieldEmail],
		Phone:       s.Fields[FieldPhone],
		BookingType: s.Fields[FieldType],
		Date:        s.Fields[FieldDate],
		Time:        s.Fields[FieldTime],
		Notes:       s.Notes,
		Status:      StatusPending,
	}
}

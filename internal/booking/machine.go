package booking

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// StepResult reports the outcome of one wizard turn.
type StepResult struct {
	// Advanced is true when the input moved the session forward, either to
	// the next collection step or to a terminal state.
	Advanced bool
	// Reply is the message to send back to the patient: the next prompt, a
	// validation hint, the confirmation summary or the closing line.
	Reply string
	// Done is true once the session reached completion. Record is non-nil
	// on exactly that turn.
	Done      bool
	Cancelled bool
	Record    *Record
	// Invalid is set when the turn failed validation and the session stayed
	// on its current step.
	Invalid *ValidationError
}

// Wizard drives the slot-filling flow that collects the six booking fields,
// shows a confirmation summary and emits a Record on explicit consent. It is
// stateless itself; all per-conversation state lives in the Session.
type Wizard struct {
	rules Rules
}

func NewWizard(rules Rules) *Wizard {
	if len(rules.Types) == 0 {
		rules = DefaultRules()
	}
	return &Wizard{rules: rules}
}

func (w *Wizard) Rules() Rules { return w.rules }

// Greeting returns the opening line plus the first prompt for a fresh session.
func (w *Wizard) Greeting() string {
	return "I'd be happy to help you book an appointment. " + prompts[FieldName]
}

var prompts = map[Field]string{
	FieldName:  "What's your full name?",
	FieldEmail: "What's your email address? We'll send the confirmation there.",
	FieldPhone: "What's the best phone number to reach you?",
	FieldType:  "What type of appointment do you need? For example: general checkup, dental care, lab tests or vaccination.",
	FieldDate:  "What date works for you? You can say things like 'tomorrow', 'next Tuesday' or a date like 2026-09-15.",
	FieldTime:  "What time would you like? We see patients between 08:00 and 18:00.",
}

var cancelWords = []string{"cancel", "nevermind", "never mind", "abort", "stop", "quit", "forget it"}

var yesWords = []string{"yes", "y", "yep", "yeah", "confirm", "correct", "sure", "ok", "okay", "book it", "looks good", "that's right", "sounds good"}

var noWords = []string{"no", "n", "nope", "edit", "change", "wrong", "fix", "update", "incorrect"}

// editKeywords maps words a patient might use at the confirmation summary to
// the field they want to change.
var editKeywords = map[string]Field{
	"name":        FieldName,
	"email":       FieldEmail,
	"mail":        FieldEmail,
	"phone":       FieldPhone,
	"number":      FieldPhone,
	"type":        FieldType,
	"appointment": FieldType,
	"service":     FieldType,
	"date":        FieldDate,
	"day":         FieldDate,
	"time":        FieldTime,
	"hour":        FieldTime,
}

// Submit feeds one patient message into the session. Terminal sessions reject
// further input so a duplicate "yes" can never create a second booking.
func (w *Wizard) Submit(s *Session, raw string, now time.Time) (StepResult, error) {
	switch s.Step {
	case StepComplete:
		return StepResult{}, ErrSessionCompleted
	case StepCancelled:
		return StepResult{}, ErrSessionCancelled
	}

	input := strings.ToLower(strings.TrimSpace(raw))
	if isCancel(input) {
		s.Step = StepCancelled
		return StepResult{
			Advanced:  true,
			Cancelled: true,
			Reply:     "No problem, I've cancelled this booking. Just say 'book an appointment' whenever you're ready.",
		}, nil
	}

	var result StepResult
	switch s.Step {
	case StepConfirm:
		result = w.handleConfirmation(s, input, now)
	case StepEdit:
		result = w.handleEdit(s, raw, input, now)
	default:
		result = w.handleCollection(s, raw, now)
	}

	if result.Invalid != nil {
		s.Attempts++
	} else if result.Advanced {
		s.Attempts = 0
	}
	return result, nil
}

func (w *Wizard) handleCollection(s *Session, raw string, now time.Time) StepResult {
	field := fieldForStep(s.Step)
	value, verr := w.rules.Validate(field, raw, now)
	if verr != nil {
		return StepResult{Reply: verr.Reason + " " + prompts[field], Invalid: verr}
	}
	s.Fields[field] = value

	if next, missing := s.missingField(); missing {
		s.Step = stepForField[next]
		return StepResult{Advanced: true, Reply: acknowledge(field, value) + " " + prompts[next]}
	}
	s.Step = StepConfirm
	return StepResult{Advanced: true, Reply: w.summary(s)}
}

func (w *Wizard) handleConfirmation(s *Session, input string, now time.Time) StepResult {
	// Consent must be a bare yes-word. "correct the email" names a field and
	// is an edit request, not a confirmation.
	if isAffirmative(input) {
		done := now.UTC()
		s.CompletedAt = &done
		s.Step = StepComplete
		return StepResult{
			Advanced: true,
			Done:     true,
			Record:   s.record(),
			Reply: fmt.Sprintf(
				"You're all set. Your %s on %s at %s is pending confirmation; we'll email %s once the clinic confirms it.",
				strings.ToLower(s.Fields[FieldType]), s.Fields[FieldDate], s.Fields[FieldTime], s.Fields[FieldEmail]),
		}
	}

	// "change the phone number" goes straight to that field's re-prompt.
	if field, ok := fieldFromInput(input); ok {
		s.Step = StepEdit
		s.EditField = field
		return StepResult{Advanced: true, Reply: prompts[field]}
	}

	if matchesAny(input, noWords) {
		s.Step = StepEdit
		s.EditField = ""
		return StepResult{Advanced: true, Reply: w.editMenu()}
	}

	return StepResult{
		Reply:   "Please reply 'yes' to confirm, tell me which detail to change, or say 'cancel'.",
		Invalid: invalid("confirmation", "unrecognized confirmation reply"),
	}
}

func (w *Wizard) handleEdit(s *Session, raw, input string, now time.Time) StepResult {
	if s.EditField == "" {
		field, ok := fieldFromInput(input)
		if !ok {
			return StepResult{
				Reply:   "Which detail should I change? " + w.editMenu(),
				Invalid: invalid("edit", "could not identify a field to edit"),
			}
		}
		s.EditField = field
		return StepResult{Advanced: true, Reply: prompts[field]}
	}

	field := s.EditField
	value, verr := w.rules.Validate(field, raw, now)
	if verr != nil {
		return StepResult{Reply: verr.Reason + " " + prompts[field], Invalid: verr}
	}
	s.Fields[field] = value
	s.EditField = ""
	s.Step = StepConfirm
	return StepResult{Advanced: true, Reply: "Updated. " + w.summary(s)}
}

func (w *Wizard) summary(s *Session) string {
	var b strings.Builder
	b.WriteString("Here's what I have:\n")
	for i, f := range fieldOrder {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, fieldLabels[f], s.Fields[f])
	}
	b.WriteString("Shall I book it? Reply 'yes' to confirm, name a detail to change it, or 'cancel'.")
	return b.String()
}

func (w *Wizard) editMenu() string {
	labels := make([]string, len(fieldOrder))
	for i, f := range fieldOrder {
		labels[i] = fmt.Sprintf("%d) %s", i+1, fieldLabels[f])
	}
	return "You can change: " + strings.Join(labels, ", ") + "."
}

var fieldLabels = map[Field]string{
	FieldName:  "Name",
	FieldEmail: "Email",
	FieldPhone: "Phone",
	FieldType:  "Appointment type",
	FieldDate:  "Date",
	FieldTime:  "Time",
}

func fieldForStep(step Step) Field {
	for f, st := range stepForField {
		if st == step {
			return f
		}
	}
	return FieldName
}

// fieldFromInput recognizes a field by keyword or by its position in the
// numbered summary, so both "the email" and "2" work.
func fieldFromInput(input string) (Field, bool) {
	if n, err := strconv.Atoi(strings.TrimSpace(input)); err == nil {
		if n >= 1 && n <= len(fieldOrder) {
			return fieldOrder[n-1], true
		}
		return "", false
	}
	for word, field := range editKeywords {
		if strings.Contains(input, word) {
			return field, true
		}
	}
	return "", false
}

func acknowledge(field Field, value string) string {
	switch field {
	case FieldName:
		first := strings.Split(value, " ")[0]
		return "Thanks, " + first + "."
	case FieldType:
		return "Got it, " + strings.ToLower(value) + "."
	default:
		return "Got it."
	}
}

func isCancel(input string) bool {
	for _, w := range cancelWords {
		if input == w || strings.HasPrefix(input, w+" ") {
			return true
		}
	}
	return false
}

func isAffirmative(input string) bool {
	input = strings.TrimRight(input, "!.")
	for _, w := range yesWords {
		if input == w {
			return true
		}
	}
	return false
}

func matchesAny(input string, words []string) bool {
	for _, w := range words {
		if input == w || strings.HasPrefix(input, w+" ") || strings.HasPrefix(input, w+",") {
			return true
		}
	}
	return false
}

package booking

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// AppointmentTypes is the set of appointments the clinic schedules. Stored
// values are always one of these, regardless of how the patient phrased it.
var AppointmentTypes = []string{
	"General Checkup",
	"Specialist Consultation",
	"Follow-up Visit",
	"Vaccination",
	"Lab Tests",
	"Dental Care",
	"Eye Examination",
	"Physical Therapy",
	"Mental Health Consultation",
	"Pediatric Care",
	"Other",
}

// Rules carries the clinic's scheduling policy. All validators hang off it so
// boundaries come from configuration, not constants buried in parsing code.
type Rules struct {
	Types       []string
	HorizonDays int
	Granularity time.Duration
	OpenHour    int
	CloseHour   int
}

// DefaultRules matches the clinic's standard policy: book up to 90 days out,
// on 30-minute slots, between 08:00 and 18:00 inclusive.
func DefaultRules() Rules {
	return Rules{
		Types:       AppointmentTypes,
		HorizonDays: 90,
		Granularity: 30 * time.Minute,
		OpenHour:    8,
		CloseHour:   18,
	}
}

var (
	nameRe  = regexp.MustCompile(`^[a-zA-Z\s\-.']+$`)
	emailRe = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)
	digitRe = regexp.MustCompile(`\D`)
)

// ValidateName accepts 2-50 characters of letters, spaces, hyphens,
// apostrophes and periods, and returns the title-cased form.
func (r Rules) ValidateName(raw string) (string, *ValidationError) {
	name := strings.Join(strings.Fields(raw), " ")
	if len(name) < 2 || len(name) > 50 {
		return "", invalid(FieldName, "name must be between 2 and 50 characters")
	}
	if !nameRe.MatchString(name) {
		return "", invalid(FieldName, "name may only contain letters, spaces, hyphens, apostrophes and periods")
	}
	words := strings.Split(name, " ")
	for i, w := range words {
		words[i] = titleWord(w)
	}
	return strings.Join(words, " "), nil
}

func titleWord(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
}

// ValidateEmail lowercases and checks the address shape. Deliverability is
// not verified here.
func (r Rules) ValidateEmail(raw string) (string, *ValidationError) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if len(email) > 254 {
		return "", invalid(FieldEmail, "email address is too long")
	}
	if !emailRe.MatchString(email) {
		return "", invalid(FieldEmail, "that doesn't look like a valid email address")
	}
	return email, nil
}

// ValidatePhone strips separators and keeps only digits. A leading country
// code is fine; the stored form is digits only, 10 to 15 of them.
func (r Rules) ValidatePhone(raw string) (string, *ValidationError) {
	digits := digitRe.ReplaceAllString(raw, "")
	if len(digits) < 10 || len(digits) > 15 {
		return "", invalid(FieldPhone, "phone number must have between 10 and 15 digits")
	}
	return digits, nil
}

// ValidateType matches the patient's phrasing against the clinic's
// appointment categories. Matching is case-insensitive and tolerates the
// category appearing inside a longer sentence.
func (r Rules) ValidateType(raw string) (string, *ValidationError) {
	input := strings.ToLower(strings.TrimSpace(raw))
	if input == "" {
		return "", invalid(FieldType, "please tell me what kind of appointment you need")
	}
	for _, t := range r.Types {
		lt := strings.ToLower(t)
		if input == lt || strings.Contains(input, lt) || strings.Contains(lt, input) {
			return t, nil
		}
	}
	// Common shorthand that doesn't literally contain a category name.
	aliases := map[string]string{
		"checkup":  "General Checkup",
		"check-up": "General Checkup",
		"physical": "General Checkup",
		"doctor":   "General Checkup",
		"specialist": "Specialist Consultation",
		"follow":     "Follow-up Visit",
		"followup":   "Follow-up Visit",
		"vaccine":    "Vaccination",
		"shot":       "Vaccination",
		"immunization": "Vaccination",
		"lab":       "Lab Tests",
		"blood":     "Lab Tests",
		"test":      "Lab Tests",
		"dental":    "Dental Care",
		"dentist":   "Dental Care",
		"teeth":     "Dental Care",
		"tooth":     "Dental Care",
		"eye":       "Eye Examination",
		"vision":    "Eye Examination",
		"optometry": "Eye Examination",
		"therapy":   "Physical Therapy",
		"physio":    "Physical Therapy",
		"mental":    "Mental Health Consultation",
		"counseling": "Mental Health Consultation",
		"therapist":  "Mental Health Consultation",
		"pediatric": "Pediatric Care",
		"child":     "Pediatric Care",
		"kid":       "Pediatric Care",
	}
	for word, category := range aliases {
		if strings.Contains(input, word) {
			for _, t := range r.Types {
				if t == category {
					return t, nil
				}
			}
		}
	}
	return "", invalid(FieldType, "I couldn't match that to an appointment type. Options include: %s", strings.Join(r.Types, ", "))
}

var (
	isoDateRe   = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	slashDateRe = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?\b`)
	monthDayRe  = regexp.MustCompile(`\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s*(\d{4}))?\b`)
	dayMonthRe  = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?(?:,?\s*(\d{4}))?\b`)
	weekdayRe   = regexp.MustCompile(`\b(next|this)?\s*(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	inDaysRe    = regexp.MustCompile(`\bin\s+(\d+)\s+days?\b`)
)

var monthNumbers = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var weekdayNumbers = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday,
	"friday": time.Friday, "saturday": time.Saturday,
}

// ValidateDate parses natural-language and numeric dates relative to now.
// The result must fall strictly after today and within the booking horizon.
// The stored form is YYYY-MM-DD.
func (r Rules) ValidateDate(raw string, now time.Time) (string, *ValidationError) {
	input := strings.ToLower(strings.TrimSpace(raw))
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	date, ok := parseDate(input, today)
	if !ok {
		return "", invalid(FieldDate, "I couldn't understand that date. Try something like 'tomorrow', 'next Tuesday' or '2026-09-15'")
	}
	if !date.After(today) {
		return "", invalid(FieldDate, "the appointment date must be in the future")
	}
	if limit := today.AddDate(0, 0, r.HorizonDays); date.After(limit) {
		return "", invalid(FieldDate, "we can only book up to %d days in advance", r.HorizonDays)
	}
	return date.Format("2006-01-02"), nil
}

func parseDate(input string, today time.Time) (time.Time, bool) {
	switch {
	case strings.Contains(input, "day after tomorrow"):
		return today.AddDate(0, 0, 2), true
	case strings.Contains(input, "tomorrow"):
		return today.AddDate(0, 0, 1), true
	case strings.Contains(input, "today"):
		return today, true
	}
	if m := inDaysRe.FindStringSubmatch(input); m != nil {
		n, _ := strconv.Atoi(m[1])
		return today.AddDate(0, 0, n), true
	}
	if m := isoDateRe.FindStringSubmatch(input); m != nil {
		return buildDate(m[1], m[2], m[3], today)
	}
	if m := slashDateRe.FindStringSubmatch(input); m != nil {
		year := m[3]
		if year == "" {
			year = "0"
		}
		return buildDate(year, m[1], m[2], today)
	}
	if m := monthDayRe.FindStringSubmatch(input); m != nil {
		return buildMonthDay(m[1], m[2], m[3], today)
	}
	if m := dayMonthRe.FindStringSubmatch(input); m != nil {
		return buildMonthDay(m[2], m[1], m[3], today)
	}
	if m := weekdayRe.FindStringSubmatch(input); m != nil {
		target := weekdayNumbers[m[2]]
		ahead := (int(target) - int(today.Weekday()) + 7) % 7
		// "next monday" said on a Monday means a week out; "this monday"
		// keeps the nearest occurrence.
		if ahead == 0 && m[1] != "this" {
			ahead = 7
		}
		return today.AddDate(0, 0, ahead), true
	}
	return time.Time{}, false
}

func buildDate(yearS, monthS, dayS string, today time.Time) (time.Time, bool) {
	year, _ := strconv.Atoi(yearS)
	month, _ := strconv.Atoi(monthS)
	day, _ := strconv.Atoi(dayS)
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	if year == 0 {
		year = today.Year()
	} else if year < 100 {
		year += 2000
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, today.Location())
	if d.Day() != day {
		return time.Time{}, false
	}
	if yearS == "0" && d.Before(today) {
		d = d.AddDate(1, 0, 0)
	}
	return d, true
}

func buildMonthDay(monthS, dayS, yearS string, today time.Time) (time.Time, bool) {
	month, ok := monthNumbers[monthS]
	if !ok {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(dayS)
	if day < 1 || day > 31 {
		return time.Time{}, false
	}
	year := today.Year()
	explicit := yearS != ""
	if explicit {
		year, _ = strconv.Atoi(yearS)
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, today.Location())
	if d.Day() != day {
		return time.Time{}, false
	}
	if !explicit && d.Before(today) {
		d = d.AddDate(1, 0, 0)
	}
	return d, true
}

var (
	ampmTimeRe = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)
	clockTimeRe = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	bareHourRe = regexp.MustCompile(`^\s*(\d{1,2})\s*$`)
)

var periodTimes = map[string]string{
	"early morning": "08:00",
	"morning":       "09:00",
	"noon":          "12:00",
	"midday":        "12:00",
	"lunch":         "12:00",
	"afternoon":     "14:00",
	"late afternoon": "16:00",
	"evening":        "17:00",
}

// ValidateTime parses 12-hour, 24-hour and named-period times. The result
// must fall inside clinic hours, inclusive at both ends, and align with the
// slot granularity. The stored form is HH:MM.
func (r Rules) ValidateTime(raw string) (string, *ValidationError) {
	input := strings.ToLower(strings.TrimSpace(raw))

	hour, minute, ok := parseClock(input)
	if !ok {
		return "", invalid(FieldTime, "I couldn't understand that time. Try something like '3pm', '14:30' or 'morning'")
	}

	opens := r.OpenHour * 60
	closes := r.CloseHour * 60
	total := hour*60 + minute
	if total < opens || total > closes {
		return "", invalid(FieldTime, "appointments run from %02d:00 to %02d:00", r.OpenHour, r.CloseHour)
	}
	if step := int(r.Granularity.Minutes()); step > 0 && total%step != 0 {
		return "", invalid(FieldTime, "appointments start every %d minutes, e.g. %02d:00 or %02d:%02d", step, hour, hour, step)
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

func parseClock(input string) (hour, minute int, ok bool) {
	// Longest period names first so "late afternoon" wins over "afternoon".
	for _, period := range []string{"early morning", "late afternoon", "morning", "afternoon", "evening", "midday", "noon", "lunch"} {
		if strings.Contains(input, period) {
			t := periodTimes[period]
			hour, _ = strconv.Atoi(t[:2])
			minute, _ = strconv.Atoi(t[3:])
			return hour, minute, true
		}
	}
	if m := ampmTimeRe.FindStringSubmatch(input); m != nil {
		hour, _ = strconv.Atoi(m[1])
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if hour < 1 || hour > 12 || minute > 59 {
			return 0, 0, false
		}
		if m[3] == "pm" && hour != 12 {
			hour += 12
		}
		if m[3] == "am" && hour == 12 {
			hour = 0
		}
		return hour, minute, true
	}
	if m := clockTimeRe.FindStringSubmatch(input); m != nil {
		hour, _ = strconv.Atoi(m[1])
		minute, _ = strconv.Atoi(m[2])
		if hour > 23 || minute > 59 {
			return 0, 0, false
		}
		return hour, minute, true
	}
	if m := bareHourRe.FindStringSubmatch(input); m != nil {
		hour, _ = strconv.Atoi(m[1])
		if hour > 23 {
			return 0, 0, false
		}
		// A bare small number like "3" almost always means afternoon.
		if hour >= 1 && hour <= 7 {
			hour += 12
		}
		return hour, 0, true
	}
	return 0, 0, false
}

// Validate applies the rule for a single field and returns the normalized
// stored form.
func (r Rules) Validate(field Field, raw string, now time.Time) (string, *ValidationError) {
	switch field {
	case FieldName:
		return r.ValidateName(raw)
	case FieldEmail:
		return r.ValidateEmail(raw)
	case FieldPhone:
		return r.ValidatePhone(raw)
	case FieldType:
		return r.ValidateType(raw)
	case FieldDate:
		return r.ValidateDate(raw, now)
	case FieldTime:
		return r.ValidateTime(raw)
	}
	return "", invalid(field, "unknown field")
}

package booking

import (
	"testing"
	"time"
)

// Tuesday, so weekday math below is easy to eyeball.
var testNow = time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC)

func TestValidateName(t *testing.T) {
	r := DefaultRules()

	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"jane doe", "Jane Doe", true},
		{"  JANE   DOE  ", "Jane Doe", true},
		{"o'brien", "O'brien", true},
		{"Dr. Smith", "Dr. Smith", true},
		{"J", "", false},
		{"Jane123", "", false},
		{"jane@doe", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := r.ValidateName(tc.in)
		if tc.ok && err != nil {
			t.Errorf("ValidateName(%q): unexpected error: %v", tc.in, err)
			continue
		}
		if !tc.ok {
			if err == nil {
				t.Errorf("ValidateName(%q): expected error, got %q", tc.in, got)
			} else if err.Field != FieldName {
				t.Errorf("ValidateName(%q): error field = %s", tc.in, err.Field)
			}
			continue
		}
		if got != tc.want {
			t.Errorf("ValidateName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidateNameLength(t *testing.T) {
	r := DefaultRules()
	long := ""
	for range 51 {
		long += "a"
	}
	if _, err := r.ValidateName(long); err == nil {
		t.Error("expected a 51-character name to be rejected")
	}
	if _, err := r.ValidateName(long[:50]); err != nil {
		t.Errorf("expected a 50-character name to pass, got %v", err)
	}
}

func TestValidateEmail(t *testing.T) {
	r := DefaultRules()

	got, err := r.ValidateEmail("  Jane.Doe@Example.COM ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "jane.doe@example.com" {
		t.Errorf("got %q, want lowercased address", got)
	}

	for _, bad := range []string{"not-an-email", "a@b", "@example.com", "jane@", ""} {
		if _, err := r.ValidateEmail(bad); err == nil {
			t.Errorf("ValidateEmail(%q): expected error", bad)
		}
	}
}

func TestValidatePhone(t *testing.T) {
	r := DefaultRules()

	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"(987) 654-3210", "9876543210", true},
		{"+1 415 555 0199", "14155550199", true},
		{"987.654.3210", "9876543210", true},
		{"12-34", "", false},
		{"123456789", "", false},
		{"1234567890123456", "", false},
	}
	for _, tc := range cases {
		got, err := r.ValidatePhone(tc.in)
		if tc.ok != (err == nil) {
			t.Errorf("ValidatePhone(%q): ok=%v, err=%v", tc.in, tc.ok, err)
			continue
		}
		if tc.ok && got != tc.want {
			t.Errorf("ValidatePhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidateType(t *testing.T) {
	r := DefaultRules()

	cases := []struct {
		in   string
		want string
	}{
		{"general checkup", "General Checkup"},
		{"checkup", "General Checkup"},
		{"I need dental care please", "Dental Care"},
		{"dentist", "Dental Care"},
		{"blood work", "Lab Tests"},
		{"my kid needs a doctor", "Pediatric Care"},
		{"eye exam", "Eye Examination"},
		{"VACCINATION", "Vaccination"},
	}
	for _, tc := range cases {
		got, err := r.ValidateType(tc.in)
		if err != nil {
			t.Errorf("ValidateType(%q): unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ValidateType(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	if _, err := r.ValidateType("heart surgery"); err == nil {
		t.Error("expected an unknown appointment type to be rejected")
	}
}

func TestValidateDate(t *testing.T) {
	r := DefaultRules()

	cases := []struct {
		in   string
		want string
	}{
		{"tomorrow", "2026-09-02"},
		{"day after tomorrow", "2026-09-03"},
		{"in 5 days", "2026-09-06"},
		{"next friday", "2026-09-04"},
		{"next tuesday", "2026-09-08"},
		{"2026-09-15", "2026-09-15"},
		{"sep 15", "2026-09-15"},
		{"15th of september", "2026-09-15"},
		{"october 3rd", "2026-10-03"},
		{"9/15", "2026-09-15"},
	}
	for _, tc := range cases {
		got, err := r.ValidateDate(tc.in, testNow)
		if err != nil {
			t.Errorf("ValidateDate(%q): unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ValidateDate(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidateDateRejectsPastAndToday(t *testing.T) {
	r := DefaultRules()

	for _, in := range []string{"today", "2026-09-01", "2026-08-20", "yesterday morning at noonish"} {
		if _, err := r.ValidateDate(in, testNow); err == nil {
			t.Errorf("ValidateDate(%q): expected rejection", in)
		}
	}
}

func TestValidateDateHorizon(t *testing.T) {
	r := DefaultRules()

	// 2026-09-01 plus 90 days lands on 2026-11-30.
	if _, err := r.ValidateDate("2026-11-30", testNow); err != nil {
		t.Errorf("date exactly at the horizon should pass, got %v", err)
	}
	if _, err := r.ValidateDate("2026-12-01", testNow); err == nil {
		t.Error("date one day past the horizon should be rejected")
	}
}

func TestValidateDateUnparseable(t *testing.T) {
	r := DefaultRules()
	_, err := r.ValidateDate("whenever you have space", testNow)
	if err == nil {
		t.Fatal("expected an unparseable date to be rejected")
	}
	if err.Field != FieldDate {
		t.Errorf("error field = %s, want %s", err.Field, FieldDate)
	}
}

func TestValidateTime(t *testing.T) {
	r := DefaultRules()

	cases := []struct {
		in   string
		want string
	}{
		{"3pm", "15:00"},
		{"3:30 PM", "15:30"},
		{"14:30", "14:30"},
		{"8am", "08:00"},
		{"08:00", "08:00"},
		{"18:00", "18:00"},
		{"6pm", "18:00"},
		{"morning", "09:00"},
		{"afternoon", "14:00"},
		{"late afternoon", "16:00"},
		{"noon", "12:00"},
		{"lunchtime", "12:00"},
	}
	for _, tc := range cases {
		got, err := r.ValidateTime(tc.in)
		if err != nil {
			t.Errorf("ValidateTime(%q): unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ValidateTime(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidateTimeClinicHours(t *testing.T) {
	r := DefaultRules()

	for _, in := range []string{"7:30am", "07:59", "18:01", "18:30", "7pm", "11pm", "midnight snack"} {
		if _, err := r.ValidateTime(in); err == nil {
			t.Errorf("ValidateTime(%q): expected rejection", in)
		}
	}
}

func TestValidateTimeGranularity(t *testing.T) {
	r := DefaultRules()

	if _, err := r.ValidateTime("14:45"); err == nil {
		t.Error("a time off the 30-minute grid should be rejected")
	}

	r.Granularity = 15 * time.Minute
	if _, err := r.ValidateTime("14:45"); err != nil {
		t.Errorf("14:45 should pass on a 15-minute grid, got %v", err)
	}
}

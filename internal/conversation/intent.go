package conversation

import "strings"

// Intent is the coarse routing decision for an inbound message when no
// booking session is in flight.
type Intent string

const (
	IntentGreeting  Intent = "greeting"
	IntentBooking   Intent = "booking"
	IntentLookup    Intent = "lookup"
	IntentHelp      Intent = "help"
	IntentDocuments Intent = "documents"
	IntentGeneral   Intent = "general"
)

var bookingPhrases = []string{
	"book an appointment", "book appointment", "make an appointment",
	"schedule an appointment", "schedule a visit", "need an appointment",
	"want an appointment", "book me", "schedule me", "set up an appointment",
	"i'd like to book", "i want to book", "reserve",
}

var bookingWords = []string{"book", "appointment", "schedule", "booking"}

var greetingWords = []string{"hi", "hello", "hey", "good morning", "good afternoon", "good evening", "howdy"}

var helpPhrases = []string{
	"help", "what can you do", "how does this work", "what do you do",
	"who are you", "what are you",
}

var lookupPhrases = []string{
	"my appointment", "my booking", "my bookings", "do i have an appointment",
	"when is my", "look up", "lookup", "check my", "find my", "existing appointment",
}

var documentPhrases = []string{
	"what documents", "which documents", "what do you know",
	"what information do you have", "what's in your knowledge",
	"list your documents", "what files",
}

// Classify buckets a message by keyword. It is deliberately cheap; anything
// ambiguous falls through to the LLM as IntentGeneral.
func Classify(text string) Intent {
	input := strings.ToLower(strings.TrimSpace(text))
	if input == "" {
		return IntentGeneral
	}

	for _, p := range documentPhrases {
		if strings.Contains(input, p) {
			return IntentDocuments
		}
	}
	for _, p := range bookingPhrases {
		if strings.Contains(input, p) {
			return IntentBooking
		}
	}
	for _, p := range lookupPhrases {
		if strings.Contains(input, p) {
			return IntentLookup
		}
	}
	// A short message made of booking words ("book", "appointment please")
	// counts too; a long sentence mentioning "book" in passing does not.
	if len(strings.Fields(input)) <= 4 {
		for _, w := range bookingWords {
			if strings.Contains(input, w) {
				return IntentBooking
			}
		}
		for _, g := range greetingWords {
			if input == g || strings.HasPrefix(input, g+" ") || strings.HasPrefix(input, g+",") || strings.HasPrefix(input, g+"!") {
				return IntentGreeting
			}
		}
		for _, h := range helpPhrases {
			if input == h || input == h+"?" {
				return IntentHelp
			}
		}
	}
	for _, h := range helpPhrases {
		if h != "help" && strings.Contains(input, h) {
			return IntentHelp
		}
	}
	return IntentGeneral
}

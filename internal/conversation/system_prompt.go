package conversation

import (
	"fmt"
	"strings"
)

// ClinicInfo is the identity the assistant speaks for.
type ClinicInfo struct {
	Name    string
	Phone   string
	Address string
}

const personaTemplate = `You are the virtual front-desk assistant for %s, a medical clinic.

Rules:
- Answer only questions about the clinic, its services, and appointments.
- Be warm, concise and professional. Two short paragraphs at most.
- Never give medical advice or a diagnosis. For medical concerns, tell the patient to speak with a clinician.
- If you don't know something, say so and suggest calling the clinic%s.
- Do not invent prices, opening hours or policies that are not in the provided clinic information.
- If the patient wants to book, cancel or reschedule an appointment, tell them you can help and ask them to say "book an appointment".`

// buildSystemPrompts assembles the system messages for a general question.
// The knowledge context rides in a second system message so the persona stays
// cacheable.
func buildSystemPrompts(clinic ClinicInfo, knowledgeContext string) []string {
	phoneHint := ""
	if clinic.Phone != "" {
		phoneHint = fmt.Sprintf(" at %s", clinic.Phone)
	}
	prompts := []string{fmt.Sprintf(personaTemplate, clinic.Name, phoneHint)}

	if strings.TrimSpace(knowledgeContext) != "" {
		prompts = append(prompts, "Clinic information relevant to this question:\n\n"+knowledgeContext)
	}
	return prompts
}

package core

import "fmt"

// SystemPrompt is the instruction prompt shared by the hosted providers.
// It pins the taxonomy, the decision heuristics, and worked examples, and
// demands a bare JSON object so the reply survives ParseResponse.
const SystemPrompt = `Classify email type. Output ONLY this JSON (no other text):
{"category": "X", "confidence": Y, "reasoning": "Z"}

category must be ONE of: acknowledgement, rejection, followup_required, jobboard, unknown

Key distinctions:
- acknowledgement: About YOUR specific application (received, sent to, viewed, thanks)
- jobboard: Multiple job listings or job alerts
- followup_required: Action needed from you (schedule, complete, respond)
- rejection: Application declined or position filled
- unknown: Spam or unclear

Examples:
"We received your application" → {"category": "acknowledgement", "confidence": 0.95,
"reasoning": "received"}
"Your application was sent to hiring manager" → {"category": "acknowledgement",
"confidence": 0.95, "reasoning": "sent notification"}
"Your application was viewed" → {"category": "acknowledgement", "confidence": 0.95,
"reasoning": "viewed notification"}
"Thanks for applying to this position" → {"category": "acknowledgement", "confidence": 0.95,
"reasoning": "application confirmation"}
"We're moving forward with other candidates" → {"category": "rejection",
"confidence": 0.95, "reasoning": "declined"}
"Schedule your interview here" → {"category": "followup_required",
"confidence": 0.95, "reasoning": "action needed"}
"5 new jobs: Engineer at Google, Dev at Amazon" → {"category": "jobboard",
"confidence": 0.95, "reasoning": "job alert"}
"Buy cheap watches" → {"category": "unknown", "confidence": 0.90,
"reasoning": "spam"}

Do NOT extract job details. Do NOT list jobs. Output ONLY the classification JSON.`

// UserMessage formats the per-call user message.
func UserMessage(subject, body string) string {
	return fmt.Sprintf("Subject: %s\nBody: %s\n\nOutput JSON only:", subject, body)
}

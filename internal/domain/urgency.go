package domain

import "strings"

type urgencyKey struct {
	requestType string
	level       string
}

// Urgency wording shown next to each request, keyed by (request type, level).
// Matches the victim intake form's option labels.
var urgencyLabels = map[urgencyKey]string{
	{"food", "low"}:      "Have some food but running low",
	{"food", "medium"}:   "Will run out of food in 24 hours",
	{"food", "high"}:     "No food available",
	{"food", "critical"}: "Haven't eaten for over 24 hours",

	{"medical", "low"}:      "Non-urgent medical attention needed",
	{"medical", "medium"}:   "Need medical attention within 24 hours",
	{"medical", "high"}:     "Need immediate medical attention",
	{"medical", "critical"}: "Life-threatening situation",

	{"shelter", "low"}:      "Current shelter is inadequate",
	{"shelter", "medium"}:   "Need shelter within 24 hours",
	{"shelter", "high"}:     "Need immediate shelter",
	{"shelter", "critical"}: "Exposed to dangerous conditions",

	{"evacuation", "low"}:      "Can evacuate within 24 hours",
	{"evacuation", "medium"}:   "Need to evacuate soon",
	{"evacuation", "high"}:     "Need immediate evacuation",
	{"evacuation", "critical"}: "Life-threatening situation, immediate evacuation required",

	{"supplies", "low"}:      "Running low on supplies",
	{"supplies", "medium"}:   "Will run out of supplies soon",
	{"supplies", "high"}:     "Urgently need supplies",
	{"supplies", "critical"}: "Critical supplies depleted",
}

// UrgencyLabel resolves the human-readable description for a request's urgency.
// Unknown (type, level) pairs degrade to the upper-cased level string; the
// function is total and never fails.
func UrgencyLabel(requestType, level string) string {
	key := urgencyKey{
		requestType: strings.ToLower(strings.TrimSpace(requestType)),
		level:       strings.ToLower(strings.TrimSpace(level)),
	}
	if label, ok := urgencyLabels[key]; ok {
		return label
	}
	return strings.ToUpper(level)
}

package triage

import "strings"

var emergencyKeywords = []string{
	"chest pain", "can't breathe", "cannot breathe", "difficulty breathing",
	"severe chest pain", "crushing chest pain",
	"suicidal", "suicide", "kill myself", "end my life",
	"severe bleeding", "heavy bleeding", "bleeding won't stop",
	"slurred speech", "can't speak clearly", "face drooping",
	"numbness", "sudden numbness", "paralysis",
	"loss of vision", "sudden blindness", "can't see",
	"unconscious", "fainting", "passed out", "losing consciousness",
	"seizure", "convulsions", "shaking uncontrollably",
	"stroke", "heart attack", "cardiac arrest",
	"severe abdominal pain", "stabbing stomach pain",
	"coughing blood", "vomiting blood", "blood in stool",
	"severe head injury", "head trauma", "skull fracture",
	"choking", "can't swallow", "airway blocked",
	"anaphylaxis", "severe allergic reaction", "throat swelling",
	"overdose", "poisoning", "toxic ingestion",
}

// DefaultKeywords returns a copy of the built-in emergency keyword list.
func DefaultKeywords() []string {
	out := make([]string, len(emergencyKeywords))
	copy(out, emergencyKeywords)
	return out
}

// Detect reports whether text contains any of the keywords, case-insensitively.
func Detect(text string, keywords []string) bool {
	_, ok := FirstMatch(text, keywords)
	return ok
}

// FirstMatch returns the first keyword, in list order, found in text.
func FirstMatch(text string, keywords []string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}

	lower := strings.ToLower(text)
	for _, keyword := range keywords {
		k := strings.ToLower(strings.TrimSpace(keyword))
		if k == "" {
			continue
		}
		if strings.Contains(lower, k) {
			return k, true
		}
	}
	return "", false
}

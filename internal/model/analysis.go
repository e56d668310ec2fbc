package model

// UrgencyLevel is the closed three-value classification attached to every analysis.
type UrgencyLevel string

const (
	UrgencyLow    UrgencyLevel = "low"
	UrgencyMedium UrgencyLevel = "medium"
	UrgencyHigh   UrgencyLevel = "high"
)

// Disclaimer is attached to every analysis result regardless of what the model produced.
const Disclaimer = "⚠️ IMPORTANT: This is educational information only, not medical advice. Always consult a qualified healthcare professional for proper diagnosis and treatment."

// FallbackSummary is used when the analysis could not be completed.
const FallbackSummary = "Unable to complete analysis due to a technical issue. Please consult a healthcare professional for proper evaluation of your symptoms."

// EmergencyMessage is returned instead of clarification questions when triage fires.
const EmergencyMessage = "Emergency symptoms detected. Seek immediate medical attention."

// Valid reports whether u is one of the three allowed levels.
func (u UrgencyLevel) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return true
	default:
		return false
	}
}

type PotentialCondition struct {
	ConditionName   string   `json:"conditionName"`
	MatchPercentage int      `json:"matchPercentage"`
	Reasoning       string   `json:"reasoning"`
	Recommendations []string `json:"recommendations"`
	Source          string   `json:"source"`
}

type AnalysisResult struct {
	PotentialConditions []PotentialCondition `json:"potentialConditions"`
	Summary             string               `json:"summary"`
	UrgencyLevel        UrgencyLevel         `json:"urgencyLevel"`
	Disclaimer          string               `json:"disclaimer"`
}

// FallbackAnalysis returns the result used when the completion service fails or
// answers with something unusable.
func FallbackAnalysis() AnalysisResult {
	return AnalysisResult{
		PotentialConditions: []PotentialCondition{},
		Summary:             FallbackSummary,
		UrgencyLevel:        UrgencyMedium,
		Disclaimer:          Disclaimer,
	}
}

// FallbackQuestions returns the fixed clarification questions.
func FallbackQuestions() []string {
	return []string{
		"How long have you been experiencing this symptom?",
		"On a scale of 1-10, how severe is it?",
		"Do you have any other symptoms along with this?",
	}
}

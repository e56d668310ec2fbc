package analysis

import (
	"encoding/json"
	"strings"

	"github.com/Skufu/symptom-checker/internal/model"
)

// QuestionCount is the number of clarification questions returned to the user.
const QuestionCount = 3

type rawQuestions struct {
	Questions json.RawMessage `json:"questions"`
}

type rawAnalysis struct {
	PotentialConditions conditionList `json:"potentialConditions"`
	Summary             flexString    `json:"summary"`
	UrgencyLevel        flexString    `json:"urgencyLevel"`
}

type rawCondition struct {
	ConditionName   flexString `json:"conditionName"`
	MatchPercentage percent    `json:"matchPercentage"`
	Reasoning       flexString `json:"reasoning"`
	Recommendations stringList `json:"recommendations"`
	Source          flexString `json:"source"`
}

// NormalizeQuestions turns raw completion text into exactly three questions.
// Anything short of three usable strings yields the fixed fallback set.
func NormalizeQuestions(raw string) []string {
	qs, _ := normalizeQuestions(raw)
	return qs
}

func normalizeQuestions(raw string) ([]string, bool) {
	var parsed rawQuestions
	if !decodeLenient(raw, &parsed) || len(parsed.Questions) == 0 {
		return model.FallbackQuestions(), true
	}

	var items []json.RawMessage
	if err := json.Unmarshal(parsed.Questions, &items); err != nil {
		return model.FallbackQuestions(), true
	}

	out := make([]string, 0, QuestionCount)
	for _, item := range items {
		var q string
		if json.Unmarshal(item, &q) != nil {
			continue
		}
		if q = strings.TrimSpace(q); q == "" {
			continue
		}
		out = append(out, q)
		if len(out) == QuestionCount {
			return out, false
		}
	}
	return model.FallbackQuestions(), true
}

// NormalizeAnalysis turns raw completion text into a well-formed result. It
// never fails: unparseable text yields the fallback result, an unknown urgency
// becomes medium and the disclaimer is always the canonical one.
func NormalizeAnalysis(raw string) model.AnalysisResult {
	r, _ := normalizeAnalysis(raw)
	return r
}

func normalizeAnalysis(raw string) (model.AnalysisResult, bool) {
	var parsed rawAnalysis
	if !decodeLenient(raw, &parsed) {
		return model.FallbackAnalysis(), true
	}

	conditions := make([]model.PotentialCondition, 0, len(parsed.PotentialConditions))
	for _, c := range parsed.PotentialConditions {
		recs := []string(c.Recommendations)
		if recs == nil {
			recs = []string{}
		}
		conditions = append(conditions, model.PotentialCondition{
			ConditionName:   string(c.ConditionName),
			MatchPercentage: int(c.MatchPercentage),
			Reasoning:       string(c.Reasoning),
			Recommendations: recs,
			Source:          string(c.Source),
		})
	}

	urgency := model.UrgencyLevel(parsed.UrgencyLevel)
	if !urgency.Valid() {
		urgency = model.UrgencyMedium
	}

	return model.AnalysisResult{
		PotentialConditions: conditions,
		Summary:             string(parsed.Summary),
		UrgencyLevel:        urgency,
		Disclaimer:          model.Disclaimer,
	}, false
}

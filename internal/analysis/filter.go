package analysis

import (
	"strings"

	"github.com/Skufu/symptom-checker/internal/catalog"
	"github.com/Skufu/symptom-checker/internal/model"
)

// FilterToCandidates keeps only the potential conditions whose name matches one
// of the supplied candidates, ignoring case and surrounding space. Kept entries
// take the catalog's spelling of the name and its source when they left it blank.
func FilterToCandidates(r model.AnalysisResult, candidates []catalog.MatchCandidate) model.AnalysisResult {
	byName := make(map[string]catalog.Condition, len(candidates))
	for _, c := range candidates {
		byName[foldName(c.Condition.Name)] = c.Condition
	}

	kept := make([]model.PotentialCondition, 0, len(r.PotentialConditions))
	for _, pc := range r.PotentialConditions {
		cond, ok := byName[foldName(pc.ConditionName)]
		if !ok {
			continue
		}
		pc.ConditionName = cond.Name
		if strings.TrimSpace(pc.Source) == "" {
			pc.Source = cond.Source
		}
		kept = append(kept, pc)
	}

	r.PotentialConditions = kept
	return r
}

func foldName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

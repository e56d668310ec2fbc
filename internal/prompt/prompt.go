package prompt

import (
	"fmt"
	"strings"

	"github.com/Skufu/symptom-checker/internal/catalog"
)

// NoConditions stands in for the knowledge-base block when matching found nothing.
const NoConditions = "No matching conditions found in database."

const questionTemplate = `You are a medical assistant. A patient reports: "%s"

Generate 3 essential clarifying questions to better understand their condition.
Focus on: duration, severity, associated symptoms, and relevant history.

Respond with ONLY valid JSON (no markdown, no explanations):
{"questions": ["question 1", "question 2", "question 3"]}`

const analysisTemplate = `You are a medical AI assistant. Analyze the patient's symptoms against trusted medical information.

[PATIENT SYMPTOMS]
%s

[MEDICAL KNOWLEDGE BASE]
%s

Based ONLY on the conditions above, provide analysis in this EXACT JSON format (no markdown):
{
  "potentialConditions": [
    {
      "conditionName": "exact name from knowledge base",
      "matchPercentage": 85,
      "reasoning": "why this matches the symptoms",
      "recommendations": ["recommendation 1", "recommendation 2"],
      "source": "source from knowledge base"
    }
  ],
  "summary": "brief summary and next steps",
  "urgencyLevel": "low"
}

CRITICAL RULES:
- Only suggest conditions from the knowledge base provided above
- If no knowledge base conditions match, suggest consulting a doctor
- Be honest if you cannot determine a specific condition
- Always emphasize consulting a healthcare professional
- urgencyLevel must be exactly one of: low, medium, high
- Respond with PURE JSON only - no markdown, no code blocks, start with { and end with }`

// BuildQuestionPrompt asks for exactly three clarifying questions about symptom.
// The symptom is embedded as given.
func BuildQuestionPrompt(symptom string) string {
	return fmt.Sprintf(questionTemplate, symptom)
}

// BuildAnalysisPrompt renders the patient context and the candidate block.
func BuildAnalysisPrompt(contextText string, candidates []catalog.MatchCandidate) string {
	return fmt.Sprintf(analysisTemplate, contextText, knowledgeBlock(candidates))
}

func knowledgeBlock(candidates []catalog.MatchCandidate) string {
	if len(candidates) == 0 {
		return NoConditions
	}

	blocks := make([]string, 0, len(candidates))
	for i, cand := range candidates {
		c := cand.Condition
		blocks = append(blocks, fmt.Sprintf("[Condition %d]\nName: %s\nSymptoms: %s\nDescription: %s\nSource: %s\nSeverity: %s",
			i+1, c.Name, strings.Join(c.Symptoms, ", "), c.Description, c.Source, c.Severity))
	}
	return strings.Join(blocks, "\n\n")
}

package analysis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/symptom-checker/internal/model"
)

func TestNormalizeQuestions(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "plain json",
			raw:  `{"questions":["A?","B?","C?"]}`,
			want: []string{"A?", "B?", "C?"},
		},
		{
			name: "json fence",
			raw:  "```json\n{\"questions\":[\"A?\",\"B?\",\"C?\"]}\n```",
			want: []string{"A?", "B?", "C?"},
		},
		{
			name: "bare fence",
			raw:  "```\n{\"questions\":[\"A?\",\"B?\",\"C?\"]}```",
			want: []string{"A?", "B?", "C?"},
		},
		{
			name: "prose around object",
			raw:  `Sure! Here you go: {"questions":["A?","B?","C?"]} Hope this helps.`,
			want: []string{"A?", "B?", "C?"},
		},
		{
			name: "more than three",
			raw:  `{"questions":["A?","B?","C?","D?"]}`,
			want: []string{"A?", "B?", "C?"},
		},
		{
			name: "non strings skipped",
			raw:  `{"questions":["A?",7,"","B?",null,"C?"]}`,
			want: []string{"A?", "B?", "C?"},
		},
		{
			name: "fewer than three",
			raw:  `{"questions":["A?","B?"]}`,
			want: model.FallbackQuestions(),
		},
		{
			name: "questions not array",
			raw:  `{"questions":"A? B? C?"}`,
			want: model.FallbackQuestions(),
		},
		{
			name: "missing key",
			raw:  `{"qs":["A?","B?","C?"]}`,
			want: model.FallbackQuestions(),
		},
		{
			name: "not json",
			raw:  "I cannot help with that.",
			want: model.FallbackQuestions(),
		},
		{
			name: "empty",
			raw:  "",
			want: model.FallbackQuestions(),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeQuestions(tc.raw)
			assert.Equal(t, tc.want, got)
			assert.Len(t, got, QuestionCount)
		})
	}
}

func TestNormalizeAnalysisFallback(t *testing.T) {
	for _, raw := range []string{"", "null", "[1,2,3]", "not json at all", "{broken", "```json\n```"} {
		got := NormalizeAnalysis(raw)
		assert.Equal(t, model.FallbackAnalysis(), got, "raw=%q", raw)
	}
}

func TestNormalizeAnalysisForcesUrgencyAndDisclaimer(t *testing.T) {
	for _, urgency := range []string{`"critical"`, `"HIGH"`, `""`, `3`, `null`} {
		raw := `{"potentialConditions":[],"summary":"s","urgencyLevel":` + urgency + `,"disclaimer":"trust me"}`
		got := NormalizeAnalysis(raw)
		assert.Equal(t, model.UrgencyMedium, got.UrgencyLevel, urgency)
		assert.Equal(t, model.Disclaimer, got.Disclaimer)
		assert.Equal(t, "s", got.Summary)
	}

	got := NormalizeAnalysis(`{"urgencyLevel":"high"}`)
	assert.Equal(t, model.UrgencyHigh, got.UrgencyLevel)
	assert.NotNil(t, got.PotentialConditions)
}

func TestNormalizeAnalysisLenientFields(t *testing.T) {
	raw := "```json\n" + `{
		"potentialConditions": [
			{"conditionName":"Migraine","matchPercentage":"85%","reasoning":"fits","recommendations":"rest","source":"Mayo Clinic"},
			{"conditionName":"Common Cold","matchPercentage":140.4,"recommendations":null},
			{"conditionName":"Influenza (Flu)","matchPercentage":-3,"recommendations":["fluids", 2, ""]}
		],
		"summary": "see a doctor",
		"urgencyLevel": "low"
	}` + "\n```"

	got := NormalizeAnalysis(raw)
	require.Len(t, got.PotentialConditions, 3)
	assert.Equal(t, 85, got.PotentialConditions[0].MatchPercentage)
	assert.Equal(t, []string{"rest"}, got.PotentialConditions[0].Recommendations)
	assert.Equal(t, 100, got.PotentialConditions[1].MatchPercentage)
	assert.Equal(t, []string{}, got.PotentialConditions[1].Recommendations)
	assert.Equal(t, 0, got.PotentialConditions[2].MatchPercentage)
	assert.Equal(t, []string{"fluids", "2"}, got.PotentialConditions[2].Recommendations)
	assert.Equal(t, model.UrgencyLow, got.UrgencyLevel)
}

func TestNormalizeAnalysisOddConditionShapes(t *testing.T) {
	tests := []struct {
		name       string
		conditions string
		want       int
	}{
		{"string", `"none found"`, 0},
		{"array of strings", `["Migraine"]`, 0},
		{"single object", `{"conditionName":"Migraine"}`, 0},
		{"null", `null`, 0},
		{"mixed elements", `["Migraine", 4, {"conditionName":"Migraine","matchPercentage":70}]`, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := `{"potentialConditions":` + tt.conditions + `,"summary":"Please see a doctor.","urgencyLevel":"high"}`

			got, fallback := normalizeAnalysis(raw)

			assert.False(t, fallback)
			assert.Equal(t, "Please see a doctor.", got.Summary)
			assert.Equal(t, model.UrgencyHigh, got.UrgencyLevel)
			assert.Equal(t, model.Disclaimer, got.Disclaimer)
			require.NotNil(t, got.PotentialConditions)
			assert.Len(t, got.PotentialConditions, tt.want)
		})
	}
}

func TestNormalizeAnalysisRoundTrip(t *testing.T) {
	want := model.AnalysisResult{
		PotentialConditions: []model.PotentialCondition{{
			ConditionName:   "Migraine",
			MatchPercentage: 72,
			Reasoning:       "throbbing pain and light sensitivity",
			Recommendations: []string{"rest in a dark room", "see a neurologist"},
			Source:          "Mayo Clinic & American Migraine Foundation",
		}},
		Summary:      "Likely a migraine.",
		UrgencyLevel: model.UrgencyLow,
		Disclaimer:   model.Disclaimer,
	}
	b, err := json.Marshal(want)
	require.NoError(t, err)

	assert.Equal(t, want, NormalizeAnalysis(string(b)))
}

func TestStripFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFence("  ```json\n{\"a\":1}\n```  "))
	assert.Equal(t, `{"a":1}`, stripFence("```{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, stripFence(`{"a":1}`))
}

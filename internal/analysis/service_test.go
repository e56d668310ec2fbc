package analysis

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/symptom-checker/internal/catalog"
	"github.com/Skufu/symptom-checker/internal/history"
	"github.com/Skufu/symptom-checker/internal/llm"
	"github.com/Skufu/symptom-checker/internal/metrics"
	"github.com/Skufu/symptom-checker/internal/model"
	"github.com/Skufu/symptom-checker/internal/prompt"
)

type fakeCompleter struct {
	mu      sync.Mutex
	out     string
	err     error
	prompts []string
	tokens  []int
}

func (f *fakeCompleter) Complete(ctx context.Context, p string, maxTokens, retries int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, p)
	f.tokens = append(f.tokens, maxTokens)
	return f.out, f.err
}

func (f *fakeCompleter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type stubMatcher struct {
	candidates []catalog.MatchCandidate
	err        error
	seen       string
}

func (s *stubMatcher) Match(ctx context.Context, text string) ([]catalog.MatchCandidate, error) {
	s.seen = text
	return s.candidates, s.err
}

type failingSink struct{ calls int }

func (f *failingSink) Record(ctx context.Context, entry model.QueryLogEntry) error {
	f.calls++
	return errors.New("disk full")
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(m Matcher, c Completer, sink history.Sink) *Service {
	return NewService(m, c, sink, DefaultConfig(), quiet(), metrics.New())
}

func TestStartCheckEmergencySkipsCompletion(t *testing.T) {
	c := &fakeCompleter{out: `{"questions":["a","b","c"]}`}
	log := history.NewMemoryLog(10)
	s := newTestService(&stubMatcher{}, c, log)

	got := s.StartCheck(context.Background(), "I have Chest Pain", model.RequestMeta{IPAddress: "10.0.0.1", UserAgent: "ua"})
	assert.True(t, got.IsEmergency)
	assert.Equal(t, model.EmergencyMessage, got.Message)
	assert.Empty(t, got.Questions)
	assert.Equal(t, 0, c.calls())

	entries, err := log.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "i have chest pain", entries[0].Symptom)
	assert.True(t, entries[0].IsEmergency)
	assert.Equal(t, "10.0.0.1", entries[0].IPAddress)
	assert.Nil(t, entries[0].AnalysisResult)
}

func TestStartCheckQuestions(t *testing.T) {
	c := &fakeCompleter{out: "```json\n{\"questions\":[\"How long?\",\"How bad?\",\"Anything else?\"]}\n```"}
	s := newTestService(&stubMatcher{}, c, nil)

	got := s.StartCheck(context.Background(), "I have a mild headache", model.RequestMeta{})
	assert.False(t, got.IsEmergency)
	assert.Equal(t, []string{"How long?", "How bad?", "Anything else?"}, got.Questions)
	require.Equal(t, 1, c.calls())
	assert.Equal(t, prompt.BuildQuestionPrompt("I have a mild headache"), c.prompts[0])
	assert.Equal(t, 512, c.tokens[0])
}

func TestStartCheckFallbackOnUpstreamFailure(t *testing.T) {
	s := newTestService(&stubMatcher{}, &fakeCompleter{err: errors.New("503")}, nil)

	got := s.StartCheck(context.Background(), "itchy eyes", model.RequestMeta{})
	assert.False(t, got.IsEmergency)
	assert.Equal(t, model.FallbackQuestions(), got.Questions)
}

func TestAnalyzeEmptyCatalogTimeout(t *testing.T) {
	// The real gateway over a completer that always times out.
	slow := &timeoutCompleter{}
	gw := llm.NewGateway(slow, llm.WithBaseDelay(time.Millisecond), llm.WithLogger(quiet()))
	matcher := catalog.NewMatcher(catalog.NewMemoryStore(), quiet(), nil)
	log := history.NewMemoryLog(10)
	s := newTestService(matcher, gw, log)

	got := s.Analyze(context.Background(), AnalyzeRequest{Context: "Initial symptom: weird tingling. Additional details: two days"})
	assert.Equal(t, model.FallbackAnalysis(), got)
	assert.Equal(t, model.UrgencyMedium, got.UrgencyLevel)
	assert.Empty(t, got.PotentialConditions)
	assert.Equal(t, 2, slow.calls)
	assert.Contains(t, slow.lastPrompt, prompt.NoConditions)

	entries, err := log.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].IsEmergency)
	require.NotNil(t, entries[0].AnalysisResult)
	assert.Equal(t, model.FallbackSummary, entries[0].AnalysisResult.Summary)
}

type timeoutCompleter struct {
	calls      int
	lastPrompt string
}

func (t *timeoutCompleter) Model() string { return "slow" }

func (t *timeoutCompleter) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	t.calls++
	t.lastPrompt = req.Prompt
	return "", context.DeadlineExceeded
}

func TestAnalyzeFiltersToCandidates(t *testing.T) {
	matcher := &stubMatcher{candidates: []catalog.MatchCandidate{
		{Condition: catalog.Condition{Name: "Migraine", Symptoms: []string{"severe headache"}, Source: "Mayo Clinic"}},
	}}
	c := &fakeCompleter{out: `{
		"potentialConditions": [
			{"conditionName":"migraine ","matchPercentage":80,"reasoning":"r","recommendations":["rest"],"source":""},
			{"conditionName":"Brain Tumor","matchPercentage":10,"reasoning":"r","recommendations":[],"source":"web"}
		],
		"summary":"s",
		"urgencyLevel":"low"
	}`}
	s := newTestService(matcher, c, nil)

	got := s.Analyze(context.Background(), AnalyzeRequest{Context: "severe headache for two days"})
	require.Len(t, got.PotentialConditions, 1)
	assert.Equal(t, "Migraine", got.PotentialConditions[0].ConditionName)
	assert.Equal(t, "Mayo Clinic", got.PotentialConditions[0].Source)
	assert.Equal(t, model.UrgencyLow, got.UrgencyLevel)
	assert.Equal(t, model.Disclaimer, got.Disclaimer)
	assert.Equal(t, 2048, c.tokens[0])
	assert.Contains(t, c.prompts[0], "[Condition 1]\nName: Migraine")
}

func TestAnalyzeTrustsModelWhenNotStrict(t *testing.T) {
	c := &fakeCompleter{out: `{"potentialConditions":[{"conditionName":"Brain Tumor"}],"summary":"s","urgencyLevel":"high"}`}
	cfg := DefaultConfig()
	cfg.StrictCandidates = false
	s := NewService(&stubMatcher{}, c, nil, cfg, quiet(), nil)

	got := s.Analyze(context.Background(), AnalyzeRequest{Context: "headache all week"})
	require.Len(t, got.PotentialConditions, 1)
	assert.Equal(t, "Brain Tumor", got.PotentialConditions[0].ConditionName)
}

func TestAnalyzeBuildsContextFromAnswers(t *testing.T) {
	matcher := &stubMatcher{}
	s := newTestService(matcher, &fakeCompleter{err: errors.New("down")}, nil)

	s.Analyze(context.Background(), AnalyzeRequest{
		Symptom: "cough",
		Answers: []model.ClarificationAnswer{
			{Question: "How long?", Answer: "3 days"},
			{Question: "Fever?", Answer: ""},
			{Question: "", Answer: "dry"},
		},
	})
	assert.Equal(t, "Initial symptom: cough. Additional details: How long?: 3 days dry", matcher.seen)
}

func TestAnalyzeHistoryFailureDoesNotFail(t *testing.T) {
	sink := &failingSink{}
	c := &fakeCompleter{out: `{"potentialConditions":[],"summary":"ok","urgencyLevel":"low"}`}
	s := newTestService(&stubMatcher{}, c, sink)

	got := s.Analyze(context.Background(), AnalyzeRequest{Context: "runny nose and sneezing"})
	assert.Equal(t, "ok", got.Summary)
	assert.Equal(t, 1, sink.calls)
}

func TestAnalyzeRecordsAfterClientCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	log := history.NewMemoryLog(10)
	s := newTestService(&stubMatcher{err: context.Canceled}, &fakeCompleter{err: context.Canceled}, log)

	got := s.Analyze(ctx, AnalyzeRequest{Context: "sore throat since monday"})
	assert.Equal(t, model.FallbackAnalysis(), got)

	n, err := log.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFilterToCandidates(t *testing.T) {
	r := model.AnalysisResult{
		PotentialConditions: []model.PotentialCondition{
			{ConditionName: "COMMON COLD", Source: "model"},
			{ConditionName: "Made Up"},
		},
		UrgencyLevel: model.UrgencyLow,
	}
	cands := []catalog.MatchCandidate{{Condition: catalog.Condition{Name: "Common Cold", Source: "CDC"}}}

	got := FilterToCandidates(r, cands)
	require.Len(t, got.PotentialConditions, 1)
	assert.Equal(t, "Common Cold", got.PotentialConditions[0].ConditionName)
	assert.Equal(t, "model", got.PotentialConditions[0].Source)
	assert.Equal(t, model.UrgencyLow, got.UrgencyLevel)
	assert.Len(t, r.PotentialConditions, 2, "input must not be mutated")

	assert.Empty(t, FilterToCandidates(r, nil).PotentialConditions)
}

func TestBuildContext(t *testing.T) {
	got := BuildContext(" fever ", nil)
	assert.True(t, strings.HasPrefix(got, "Initial symptom: fever. Additional details:"))
}

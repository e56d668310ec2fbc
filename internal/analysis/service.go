package analysis

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Skufu/symptom-checker/internal/catalog"
	"github.com/Skufu/symptom-checker/internal/history"
	"github.com/Skufu/symptom-checker/internal/metrics"
	"github.com/Skufu/symptom-checker/internal/model"
	"github.com/Skufu/symptom-checker/internal/prompt"
	"github.com/Skufu/symptom-checker/internal/triage"
)

type Matcher interface {
	Match(ctx context.Context, contextText string) ([]catalog.MatchCandidate, error)
}

// Completer is the retrying completion gateway.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens, retries int) (string, error)
}

type Config struct {
	Keywords         []string
	QuestionTokens   int
	AnalysisTokens   int
	Retries          int
	StrictCandidates bool
	HistoryTimeout   time.Duration
}

func DefaultConfig() Config {
	return Config{
		Keywords:         triage.DefaultKeywords(),
		QuestionTokens:   512,
		AnalysisTokens:   2048,
		Retries:          1,
		StrictCandidates: true,
		HistoryTimeout:   3 * time.Second,
	}
}

// Service runs the two user-facing steps: start-check and analyze. Both always
// return a well-formed value; upstream failures degrade to fixed fallbacks.
type Service struct {
	matcher Matcher
	llm     Completer
	history history.Sink
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewService(matcher Matcher, llm Completer, sink history.Sink, cfg Config, logger *slog.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Keywords == nil {
		cfg.Keywords = triage.DefaultKeywords()
	}
	if cfg.HistoryTimeout <= 0 {
		cfg.HistoryTimeout = 3 * time.Second
	}
	return &Service{
		matcher: matcher,
		llm:     llm,
		history: sink,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
	}
}

type StartCheckResult struct {
	IsEmergency bool     `json:"isEmergency"`
	Message     string   `json:"message,omitempty"`
	Questions   []string `json:"questions,omitempty"`
}

type AnalyzeRequest struct {
	// Context is the full description. When blank it is assembled from
	// Symptom and Answers.
	Context string
	Symptom string
	Answers []model.ClarificationAnswer
	Meta    model.RequestMeta
}

// StartCheck triages symptom and, when nothing urgent is found, asks the model
// for three clarifying questions.
func (s *Service) StartCheck(ctx context.Context, symptom string, meta model.RequestMeta) StartCheckResult {
	logger := s.logger.With("request_id", meta.RequestID)

	if keyword, ok := triage.FirstMatch(symptom, s.cfg.Keywords); ok {
		lower := strings.ToLower(symptom)
		logger.WarnContext(ctx, "emergency symptoms detected", "keyword", keyword, "symptom", lower)
		s.metrics.ObserveEmergency("start_check")
		s.record(ctx, logger, model.QueryLogEntry{
			Symptom:     lower,
			IsEmergency: true,
			IPAddress:   meta.IPAddress,
			UserAgent:   meta.UserAgent,
		})
		return StartCheckResult{IsEmergency: true, Message: model.EmergencyMessage}
	}

	raw, err := s.llm.Complete(ctx, prompt.BuildQuestionPrompt(symptom), s.cfg.QuestionTokens, s.cfg.Retries)
	if err != nil {
		logger.ErrorContext(ctx, "question generation failed, using fallback", "error", err)
		s.metrics.ObserveQuestions(true)
		return StartCheckResult{Questions: model.FallbackQuestions()}
	}

	questions, fallback := normalizeQuestions(raw)
	if fallback {
		logger.WarnContext(ctx, "unusable question response, using fallback", "raw_len", len(raw))
	}
	s.metrics.ObserveQuestions(fallback)
	logger.InfoContext(ctx, "questions generated", "count", len(questions), "fallback", fallback)
	return StartCheckResult{Questions: questions}
}

// Analyze matches the context against the catalog, asks the model for an
// analysis and records the outcome in the query log.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) model.AnalysisResult {
	logger := s.logger.With("request_id", req.Meta.RequestID)

	contextText := req.Context
	if strings.TrimSpace(contextText) == "" {
		contextText = BuildContext(req.Symptom, req.Answers)
	}

	candidates, err := s.matcher.Match(ctx, contextText)
	if err != nil {
		logger.WarnContext(ctx, "condition matching aborted", "error", err)
		candidates = nil
	}
	logger.InfoContext(ctx, "conditions matched", "count", len(candidates))

	result, fallback := s.complete(ctx, logger, contextText, candidates)
	s.metrics.ObserveAnalysis(string(result.UrgencyLevel), fallback)
	logger.InfoContext(ctx, "analysis completed",
		"conditions", len(result.PotentialConditions),
		"urgency", result.UrgencyLevel,
		"fallback", fallback,
	)

	s.record(ctx, logger, model.QueryLogEntry{
		Symptom:              contextText,
		ClarificationAnswers: req.Answers,
		AnalysisResult:       &result,
		IPAddress:            req.Meta.IPAddress,
		UserAgent:            req.Meta.UserAgent,
	})
	return result
}

func (s *Service) complete(ctx context.Context, logger *slog.Logger, contextText string, candidates []catalog.MatchCandidate) (model.AnalysisResult, bool) {
	raw, err := s.llm.Complete(ctx, prompt.BuildAnalysisPrompt(contextText, candidates), s.cfg.AnalysisTokens, s.cfg.Retries)
	if err != nil {
		logger.ErrorContext(ctx, "analysis failed, using fallback", "error", err)
		return model.FallbackAnalysis(), true
	}

	result, fallback := normalizeAnalysis(raw)
	if fallback {
		logger.WarnContext(ctx, "unparseable analysis response, using fallback", "raw_len", len(raw))
		return result, true
	}
	if s.cfg.StrictCandidates {
		before := len(result.PotentialConditions)
		result = FilterToCandidates(result, candidates)
		if dropped := before - len(result.PotentialConditions); dropped > 0 {
			logger.WarnContext(ctx, "dropped conditions outside the knowledge base", "dropped", dropped)
		}
	}
	return result, false
}

// record writes the audit entry on a context detached from the request.
// Failures are logged only.
func (s *Service) record(ctx context.Context, logger *slog.Logger, entry model.QueryLogEntry) {
	if s.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.HistoryTimeout)
	defer cancel()

	err := s.history.Record(ctx, entry)
	s.metrics.ObserveHistoryWrite(err)
	if err != nil {
		logger.ErrorContext(ctx, "query log write failed", "error", err)
	}
}

// BuildContext assembles the analysis context from the initial symptom and the
// clarification answers.
func BuildContext(symptom string, answers []model.ClarificationAnswer) string {
	parts := make([]string, 0, len(answers))
	for _, a := range answers {
		q, ans := strings.TrimSpace(a.Question), strings.TrimSpace(a.Answer)
		switch {
		case ans == "":
			continue
		case q == "":
			parts = append(parts, ans)
		default:
			parts = append(parts, q+": "+ans)
		}
	}
	return "Initial symptom: " + strings.TrimSpace(symptom) + ". Additional details: " + strings.Join(parts, " ")
}

package catalog

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/Skufu/symptom-checker/internal/metrics"
)

// MaxCandidates caps the relevance path. The keyword fallback is uncapped.
const MaxCandidates = 5

type Strategy string

const (
	StrategyRelevance Strategy = "relevance"
	StrategyKeyword   Strategy = "keyword"
	StrategyNone      Strategy = "none"
)

// Matcher selects catalog conditions relevant to a free-text description.
type Matcher struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewMatcher(store Store, logger *slog.Logger, m *metrics.Metrics) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{store: store, logger: logger, metrics: m}
}

// Match returns candidate conditions for contextText. Store failures degrade
// to the keyword heuristic and then to an empty set; the only error returned
// is the context's own.
func (m *Matcher) Match(ctx context.Context, contextText string) ([]MatchCandidate, error) {
	candidates, strategy := m.match(ctx, contextText)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.metrics.ObserveMatch(string(strategy))
	m.logger.DebugContext(ctx, "conditions matched", "strategy", strategy, "candidates", len(candidates))
	return candidates, nil
}

func (m *Matcher) match(ctx context.Context, contextText string) ([]MatchCandidate, Strategy) {
	query := strings.ToLower(contextText)

	primary, err := m.store.FindByRelevance(ctx, query, MaxCandidates)
	if err != nil {
		m.logger.WarnContext(ctx, "relevance search failed, using keyword fallback", "error", err)
	} else if len(primary) > 0 {
		if len(primary) > MaxCandidates {
			primary = primary[:MaxCandidates]
		}
		return primary, StrategyRelevance
	}

	all, err := m.store.FindAll(ctx)
	if err != nil {
		m.logger.WarnContext(ctx, "catalog unavailable, no candidates", "error", err)
		return []MatchCandidate{}, StrategyNone
	}

	matched := KeywordMatch(all, query)
	if len(matched) == 0 {
		return matched, StrategyNone
	}
	return matched, StrategyKeyword
}

// KeywordMatch keeps, in catalog order, every condition with a symptom phrase
// that contains a context token or is contained in one. Only tokens longer
// than three characters count, measured after trimming punctuation.
func KeywordMatch(conditions []Condition, contextText string) []MatchCandidate {
	tokens := fallbackTokens(contextText)
	out := []MatchCandidate{}
	if len(tokens) == 0 {
		return out
	}

	for _, c := range conditions {
		hits := 0
		for _, symptom := range c.Symptoms {
			s := strings.ToLower(strings.TrimSpace(symptom))
			if s == "" {
				continue
			}
			for _, tok := range tokens {
				if strings.Contains(s, tok) || strings.Contains(tok, s) {
					hits++
				}
			}
		}
		if hits > 0 {
			out = append(out, MatchCandidate{Condition: c, Score: float64(hits)})
		}
	}
	return out
}

func fallbackTokens(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		// length is judged on the raw word, so "(flu)" still counts
		if len([]rune(f)) <= 3 {
			continue
		}
		f = strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

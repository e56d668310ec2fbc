package catalog

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/kljensen/snowball/english"
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "but": {},
	"by": {}, "for": {}, "from": {}, "had": {}, "has": {}, "have": {}, "i": {}, "in": {},
	"is": {}, "it": {}, "its": {}, "me": {}, "my": {}, "no": {}, "not": {}, "of": {},
	"on": {}, "or": {}, "so": {}, "that": {}, "the": {}, "this": {}, "to": {}, "was": {},
	"were": {}, "with": {}, "you": {}, "your": {},
}

// MemoryStore keeps the catalog in process with a stemmed inverted index.
type MemoryStore struct {
	mu         sync.RWMutex
	conditions []Condition
	byName     map[string]int
	postings   map[string]map[int]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byName:   make(map[string]int),
		postings: make(map[string]map[int]int),
	}
}

func (s *MemoryStore) InsertMany(ctx context.Context, conditions []Condition) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	normalized := make([]Condition, 0, len(conditions))
	for _, c := range conditions {
		n, err := c.Normalize()
		if err != nil {
			return 0, err
		}
		normalized = append(normalized, n)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, c := range normalized {
		if _, exists := s.byName[c.Name]; exists {
			continue
		}
		idx := len(s.conditions)
		s.conditions = append(s.conditions, c)
		s.byName[c.Name] = idx
		for _, term := range indexTerms(c.searchText()) {
			docs, ok := s.postings[term]
			if !ok {
				docs = make(map[int]int)
				s.postings[term] = docs
			}
			docs[idx]++
		}
		inserted++
	}
	return inserted, nil
}

func (s *MemoryStore) FindAll(ctx context.Context) ([]Condition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Condition, len(s.conditions))
	copy(out, s.conditions)
	return out, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conditions), nil
}

// FindByRelevance ranks conditions by summed tf-idf of the stemmed query terms.
// Ties keep catalog order.
func (s *MemoryStore) FindByRelevance(ctx context.Context, query string, limit int) ([]MatchCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	terms := uniqueTerms(indexTerms(query))
	if len(terms) == 0 || limit <= 0 {
		return []MatchCandidate{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	total := float64(len(s.conditions))
	scores := make(map[int]float64)
	for _, term := range terms {
		docs := s.postings[term]
		if len(docs) == 0 {
			continue
		}
		idf := math.Log(1 + total/float64(len(docs)))
		for idx, tf := range docs {
			scores[idx] += float64(tf) * idf
		}
	}

	ranked := make([]int, 0, len(scores))
	for idx := range scores {
		ranked = append(ranked, idx)
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if scores[a] != scores[b] {
			return scores[a] > scores[b]
		}
		return a < b
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	out := make([]MatchCandidate, 0, len(ranked))
	for _, idx := range ranked {
		out = append(out, MatchCandidate{Condition: s.conditions[idx], Score: scores[idx]})
	}
	return out, nil
}

// indexTerms lowercases, splits on anything that is not a letter or digit,
// drops stopwords and stems what is left.
func indexTerms(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make([]string, 0, len(words))
	for _, w := range words {
		if _, stop := stopwords[w]; stop {
			continue
		}
		if stem := english.Stem(w, false); stem != "" {
			out = append(out, stem)
		}
	}
	return out
}

func uniqueTerms(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := terms[:0:0]
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

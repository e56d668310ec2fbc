package catalog

import (
	"context"
	"errors"
	"strings"
)

type Severity string

const (
	SeverityLow       Severity = "low"
	SeverityMedium    Severity = "medium"
	SeverityHigh      Severity = "high"
	SeverityEmergency Severity = "emergency"
)

var ErrInvalidCondition = errors.New("invalid medical condition")

// Condition is one curated knowledge-base record.
type Condition struct {
	Name            string   `json:"condition" yaml:"condition"`
	Symptoms        []string `json:"symptoms" yaml:"symptoms"`
	Description     string   `json:"description" yaml:"description"`
	Recommendations []string `json:"recommendations" yaml:"recommendations"`
	Source          string   `json:"source" yaml:"source"`
	Severity        Severity `json:"severity" yaml:"severity"`
}

// MatchCandidate is a condition with its relevance score. Scores only rank
// candidates returned by the same strategy.
type MatchCandidate struct {
	Condition Condition `json:"condition"`
	Score     float64   `json:"score"`
}

// Store is the persistent condition catalog.
type Store interface {
	FindByRelevance(ctx context.Context, query string, limit int) ([]MatchCandidate, error)
	FindAll(ctx context.Context) ([]Condition, error)
	Count(ctx context.Context) (int, error)
	InsertMany(ctx context.Context, conditions []Condition) (int, error)
}

// Normalize trims fields, lowercases symptoms and defaults the severity.
func (c Condition) Normalize() (Condition, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return c, errors.Join(ErrInvalidCondition, errors.New("name is required"))
	}

	symptoms := make([]string, 0, len(c.Symptoms))
	for _, s := range c.Symptoms {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			symptoms = append(symptoms, s)
		}
	}
	if len(symptoms) == 0 {
		return c, errors.Join(ErrInvalidCondition, errors.New(c.Name+": at least one symptom is required"))
	}
	c.Symptoms = symptoms

	switch c.Severity {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityEmergency:
	case "":
		c.Severity = SeverityMedium
	default:
		return c, errors.Join(ErrInvalidCondition, errors.New(c.Name+": unknown severity "+string(c.Severity)))
	}
	return c, nil
}

// searchText is the indexed text of a condition: name, symptoms and description.
func (c Condition) searchText() string {
	return c.Name + " " + strings.Join(c.Symptoms, " ") + " " + c.Description
}

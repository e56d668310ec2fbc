package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedYAML []byte

type seedFile struct {
	Conditions []Condition `yaml:"conditions"`
}

// SeedConditions returns the curated conditions bundled with the binary.
func SeedConditions() ([]Condition, error) {
	return parseConditions(seedYAML)
}

func parseConditions(data []byte) ([]Condition, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode conditions: %w", err)
	}

	out := make([]Condition, 0, len(f.Conditions))
	seen := make(map[string]struct{}, len(f.Conditions))
	for _, c := range f.Conditions {
		n, err := c.Normalize()
		if err != nil {
			return nil, err
		}
		if _, dup := seen[n.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate condition %q", ErrInvalidCondition, n.Name)
		}
		seen[n.Name] = struct{}{}
		out = append(out, n)
	}
	return out, nil
}

// Seed inserts the curated conditions when the store is empty. It returns the
// number of inserted records; an already populated store is left untouched.
func Seed(ctx context.Context, store Store, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}

	count, err := store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count conditions: %w", err)
	}
	if count > 0 {
		logger.Info("catalog already seeded", "conditions", count)
		return 0, nil
	}

	conditions, err := SeedConditions()
	if err != nil {
		return 0, err
	}

	inserted, err := store.InsertMany(ctx, conditions)
	if err != nil {
		return 0, fmt.Errorf("insert conditions: %w", err)
	}
	logger.Info("catalog seeded", "conditions", inserted)
	return inserted, nil
}

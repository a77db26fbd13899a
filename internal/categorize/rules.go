package categorize

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"dropsync/internal/models"
)

// Rule is one keyword rule: a category name plus the inclusion keywords
// that vote for it and the exclusion keywords that veto it outright.
type Rule struct {
	CategoryID   string
	CategoryName string
	Keywords     []string
	Exclusions   []string
}

func rulesFromCategories(categories []models.Category) []Rule {
	rules := make([]Rule, 0, len(categories))
	for _, c := range categories {
		if len(c.Keywords) == 0 {
			continue
		}
		rules = append(rules, Rule{
			CategoryID:   c.ID,
			CategoryName: c.Name,
			Keywords:     c.Keywords,
			Exclusions:   c.ExcludeKeywords,
		})
	}
	return rules
}

type fallbackRulesFile struct {
	Categories []struct {
		Name     string   `yaml:"name"`
		Keywords []string `yaml:"keywords"`
		Exclude  []string `yaml:"exclude"`
	} `yaml:"categories"`
}

// LoadFallbackRules reads the platform-wide rule file used for
// suppliers that have not defined categories of their own. Fallback
// rules carry no category id; matches only suggest a display name.
func LoadFallbackRules(path string) ([]Rule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var file fallbackRulesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}

	rules := make([]Rule, 0, len(file.Categories))
	for _, c := range file.Categories {
		if c.Name == "" || len(c.Keywords) == 0 {
			continue
		}
		rules = append(rules, Rule{
			CategoryName: c.Name,
			Keywords:     c.Keywords,
			Exclusions:   c.Exclude,
		})
	}
	return rules, nil
}

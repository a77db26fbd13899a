package categorize

import (
	"context"
	"strings"
	"time"

	"dropsync/internal/logger"
	"dropsync/internal/models"
)

const (
	confidenceStrong    = 0.9
	confidenceMultiHit  = 0.8
	confidenceSingleHit = 0.6
	confidenceAI        = 0.75

	// Keyword matches at or above this confidence are trusted outright;
	// anything weaker consults the AI fallback instead of guessing.
	aiSkipThreshold = 0.7

	// A keyword longer than this counts as strong on a substring hit;
	// shorter keywords must appear as a whole word.
	strongKeywordLen = 5

	categoryCacheTTL = 10 * time.Minute
)

type Method string

const (
	MethodKeyword  Method = "keyword"
	MethodAI       Method = "ai"
	MethodFallback Method = "fallback"
)

// Match is the categorization outcome for one product.
type Match struct {
	CategoryID   string  `json:"category_id,omitempty"`
	CategoryName string  `json:"category_name"`
	Confidence   float64 `json:"confidence"`
	Method       Method  `json:"method"`
}

// Lister loads the categories an admin has defined for a supplier.
type Lister interface {
	ListBySupplier(ctx context.Context, supplierID string) ([]models.Category, error)
}

// Engine assigns catalog categories from keyword rules, with an
// optional model-backed fallback for titles the rules cannot place.
type Engine struct {
	lister     Lister
	ai         *AIClient // nil disables the fallback
	fallback   []Rule
	categories *categoryCache
	aiResults  *aiCache
	logger     *logger.Logger
}

func NewEngine(lister Lister, ai *AIClient, fallback []Rule, log *logger.Logger) *Engine {
	return &Engine{
		lister:     lister,
		ai:         ai,
		fallback:   fallback,
		categories: newCategoryCache(categoryCacheTTL),
		aiResults:  newAICache(),
		logger:     log,
	}
}

// Categorize matches a product against the supplier's keyword rules and
// falls back to one constrained model call when the rules are not
// confident. A nil match with a nil error means "no category": the
// caller keeps whatever category it already derived.
func (e *Engine) Categorize(ctx context.Context, supplierID string, title, description, rawCategory string) (*Match, error) {
	search := strings.ToLower(strings.TrimSpace(strings.Join([]string{title, description, rawCategory}, " ")))
	if search == "" {
		return nil, nil
	}

	categories, err := e.supplierCategories(ctx, supplierID)
	if err != nil {
		return nil, err
	}

	method := MethodKeyword
	rules := rulesFromCategories(categories)
	if len(rules) == 0 && len(e.fallback) > 0 {
		rules = e.fallback
		method = MethodFallback
	}

	if best, confidence := bestRule(search, rules); best != nil && confidence >= aiSkipThreshold {
		return &Match{
			CategoryID:   best.CategoryID,
			CategoryName: best.CategoryName,
			Confidence:   confidence,
			Method:       method,
		}, nil
	}

	// The fallback prompt is constrained to the supplier's own category
	// names; with none defined there is nothing to constrain to.
	if e.ai == nil || len(categories) == 0 {
		return nil, nil
	}

	name, cached := e.aiResults.get(supplierID, title)
	if !cached {
		answer, err := e.ai.SuggestCategory(ctx, title, categoryNames(categories))
		if err != nil {
			// Model errors are transient: log, skip, and leave the
			// cache alone so the next cycle can retry.
			e.logger.Warn("AI categorization failed for supplier %s: %v", supplierID, err)
			return nil, nil
		}
		name = acceptExactName(answer, categories)
		e.aiResults.put(supplierID, title, name)
	}
	if name == "" {
		return nil, nil
	}

	for _, c := range categories {
		if strings.EqualFold(c.Name, name) {
			return &Match{
				CategoryID:   c.ID,
				CategoryName: c.Name,
				Confidence:   confidenceAI,
				Method:       MethodAI,
			}, nil
		}
	}
	return nil, nil
}

// InvalidateSupplier drops cached categories and fallback answers after
// an admin edits the supplier's category set.
func (e *Engine) InvalidateSupplier(supplierID string) {
	e.categories.invalidate(supplierID)
	e.aiResults.invalidate(supplierID)
}

func (e *Engine) supplierCategories(ctx context.Context, supplierID string) ([]models.Category, error) {
	if cached, ok := e.categories.get(supplierID); ok {
		return cached, nil
	}

	list, err := e.lister.ListBySupplier(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	e.categories.put(supplierID, list)
	return list, nil
}

// bestRule scores every rule against the search text and keeps the
// highest score; ties keep the first-seen rule.
func bestRule(search string, rules []Rule) (*Rule, float64) {
	var best *Rule
	bestScore := 0.0

	for i := range rules {
		score := scoreRule(search, rules[i])
		if score > bestScore {
			best = &rules[i]
			bestScore = score
		}
	}
	return best, bestScore
}

func scoreRule(search string, rule Rule) float64 {
	for _, exclusion := range rule.Exclusions {
		if exclusion != "" && strings.Contains(search, strings.ToLower(exclusion)) {
			return 0
		}
	}

	hits := 0
	strong := false
	for _, keyword := range rule.Keywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword == "" || !strings.Contains(search, keyword) {
			continue
		}
		hits++
		if len(keyword) > strongKeywordLen || containsWholeWord(search, keyword) {
			strong = true
		}
	}

	switch {
	case hits == 0:
		return 0
	case strong:
		return confidenceStrong
	case hits >= 2:
		return confidenceMultiHit
	default:
		return confidenceSingleHit
	}
}

// containsWholeWord reports whether word occurs in s bounded by
// non-alphanumeric characters on both sides.
func containsWholeWord(s, word string) bool {
	for from := 0; ; {
		i := strings.Index(s[from:], word)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(word)

		startOK := start == 0 || isWordBoundary(s[start-1])
		endOK := end == len(s) || isWordBoundary(s[end])
		if startOK && endOK {
			return true
		}
		from = start + 1
	}
}

func isWordBoundary(b byte) bool {
	isAlnum := (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
	return !isAlnum
}

func categoryNames(categories []models.Category) []string {
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.Name)
	}
	return names
}

// acceptExactName keeps a model answer only when it exactly matches a
// known category name, case-insensitively. "NONE", paraphrases, and
// invented names all map to no category.
func acceptExactName(answer string, categories []models.Category) string {
	answer = strings.TrimSpace(strings.Trim(strings.TrimSpace(answer), `"'`))
	if answer == "" || strings.EqualFold(answer, "NONE") {
		return ""
	}
	for _, c := range categories {
		if strings.EqualFold(c.Name, answer) {
			return c.Name
		}
	}
	return ""
}

package categorize

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dropsync/internal/logger"
	"dropsync/internal/models"
)

type fakeLister struct {
	categories []models.Category
	calls      int
}

func (f *fakeLister) ListBySupplier(ctx context.Context, supplierID string) ([]models.Category, error) {
	f.calls++
	return f.categories, nil
}

func furnitureCategories() []models.Category {
	return []models.Category{
		{
			ID:              uuid.New().String(),
			Name:            "Sofas",
			Keywords:        []string{"sofa", "sectional", "loveseat", "couch"},
			ExcludeKeywords: []string{"sofa table"},
		},
		{
			ID:       uuid.New().String(),
			Name:     "Lighting",
			Keywords: []string{"lamp", "chandelier", "sconce"},
		},
		{
			ID:       uuid.New().String(),
			Name:     "Tables",
			Keywords: []string{"dining table", "coffee table", "desk"},
		},
	}
}

func newAITestClient(t *testing.T, handler http.HandlerFunc) (*AIClient, *int) {
	t.Helper()
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client := NewAIClient("sk-test", logger.New("error"))
	client.apiURL = server.URL
	return client, &calls
}

func aiAnswer(w http.ResponseWriter, content string) {
	json.NewEncoder(w).Encode(map[string]interface{}{
		"choices": []interface{}{
			map[string]interface{}{
				"message": map[string]interface{}{"role": "assistant", "content": content},
			},
		},
	})
}

func TestCategorize_KeywordMatchSkipsAI(t *testing.T) {
	ai, aiCalls := newAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
		aiAnswer(w, "Sofas")
	})
	lister := &fakeLister{categories: furnitureCategories()}
	engine := NewEngine(lister, ai, nil, logger.New("error"))

	match, err := engine.Categorize(context.Background(), uuid.New().String(), "Modern L-Shaped Sofa", "", "")

	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "Sofas", match.CategoryName)
	assert.GreaterOrEqual(t, match.Confidence, 0.8)
	assert.Equal(t, MethodKeyword, match.Method)
	assert.Equal(t, 0, *aiCalls) // confident keyword match never pays for the model
}

func TestCategorize_ExclusionVetoesRule(t *testing.T) {
	lister := &fakeLister{categories: furnitureCategories()}
	engine := NewEngine(lister, nil, nil, logger.New("error"))

	match, err := engine.Categorize(context.Background(), uuid.New().String(), "Sofa Table Lamp", "", "")

	require.NoError(t, err)
	require.NotNil(t, match)
	// "sofa table" vetoes Sofas even though "sofa" appears; Lighting
	// still matches on "lamp".
	assert.Equal(t, "Lighting", match.CategoryName)
}

func TestCategorize_WeakMatchWithoutAIYieldsNothing(t *testing.T) {
	categories := []models.Category{
		{ID: uuid.New().String(), Name: "Decor", Keywords: []string{"vas"}},
	}
	engine := NewEngine(&fakeLister{categories: categories}, nil, nil, logger.New("error"))

	// "vas" hits inside "canvas" but is neither long nor a whole word:
	// a 0.6 single-hit score stays below the trust threshold.
	match, err := engine.Categorize(context.Background(), uuid.New().String(), "Canvas Wall Art", "", "")

	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestCategorize_AIExactMatchAccepted(t *testing.T) {
	ai, aiCalls := newAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req openAIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, openAIModel, req.Model)
		assert.Zero(t, req.Temperature)

		aiAnswer(w, "office chairs") // case differs from the defined name
	})
	categories := []models.Category{
		{ID: uuid.New().String(), Name: "Office Chairs", Keywords: []string{"zzz-no-hit"}},
	}
	engine := NewEngine(&fakeLister{categories: categories}, ai, nil, logger.New("error"))

	match, err := engine.Categorize(context.Background(), uuid.New().String(), "ErgoFlex 3000", "", "")

	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "Office Chairs", match.CategoryName)
	assert.Equal(t, categories[0].ID, match.CategoryID)
	assert.Equal(t, MethodAI, match.Method)
	assert.Equal(t, 1, *aiCalls)
}

func TestCategorize_AIParaphraseRejected(t *testing.T) {
	ai, _ := newAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
		aiAnswer(w, "This looks like an office chair to me")
	})
	categories := []models.Category{
		{ID: uuid.New().String(), Name: "Office Chairs", Keywords: []string{"zzz-no-hit"}},
	}
	engine := NewEngine(&fakeLister{categories: categories}, ai, nil, logger.New("error"))

	match, err := engine.Categorize(context.Background(), uuid.New().String(), "ErgoFlex 3000", "", "")

	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestCategorize_AINoneRejected(t *testing.T) {
	ai, _ := newAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
		aiAnswer(w, "NONE")
	})
	categories := []models.Category{
		{ID: uuid.New().String(), Name: "Office Chairs", Keywords: []string{"zzz-no-hit"}},
	}
	engine := NewEngine(&fakeLister{categories: categories}, ai, nil, logger.New("error"))

	match, err := engine.Categorize(context.Background(), uuid.New().String(), "ErgoFlex 3000", "", "")

	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestCategorize_AIResultCached(t *testing.T) {
	ai, aiCalls := newAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
		aiAnswer(w, "Office Chairs")
	})
	categories := []models.Category{
		{ID: uuid.New().String(), Name: "Office Chairs", Keywords: []string{"zzz-no-hit"}},
	}
	engine := NewEngine(&fakeLister{categories: categories}, ai, nil, logger.New("error"))
	supplierID := uuid.New().String()

	for i := 0; i < 3; i++ {
		match, err := engine.Categorize(context.Background(), supplierID, "ErgoFlex 3000", "", "")
		require.NoError(t, err)
		require.NotNil(t, match)
	}

	assert.Equal(t, 1, *aiCalls)
}

func TestCategorize_AIRejectionCachedToo(t *testing.T) {
	ai, aiCalls := newAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
		aiAnswer(w, "NONE")
	})
	categories := []models.Category{
		{ID: uuid.New().String(), Name: "Office Chairs", Keywords: []string{"zzz-no-hit"}},
	}
	engine := NewEngine(&fakeLister{categories: categories}, ai, nil, logger.New("error"))
	supplierID := uuid.New().String()

	for i := 0; i < 3; i++ {
		match, err := engine.Categorize(context.Background(), supplierID, "ErgoFlex 3000", "", "")
		require.NoError(t, err)
		assert.Nil(t, match)
	}

	assert.Equal(t, 1, *aiCalls)
}

func TestCategorize_AIErrorNotCached(t *testing.T) {
	ai, aiCalls := newAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	categories := []models.Category{
		{ID: uuid.New().String(), Name: "Office Chairs", Keywords: []string{"zzz-no-hit"}},
	}
	engine := NewEngine(&fakeLister{categories: categories}, ai, nil, logger.New("error"))
	supplierID := uuid.New().String()

	for i := 0; i < 2; i++ {
		match, err := engine.Categorize(context.Background(), supplierID, "ErgoFlex 3000", "", "")
		require.NoError(t, err) // model failures are swallowed
		assert.Nil(t, match)
	}

	assert.Equal(t, 2, *aiCalls) // transient failure retries next time
}

func TestCategorize_CategoryListCached(t *testing.T) {
	lister := &fakeLister{categories: furnitureCategories()}
	engine := NewEngine(lister, nil, nil, logger.New("error"))
	supplierID := uuid.New().String()

	for i := 0; i < 4; i++ {
		_, err := engine.Categorize(context.Background(), supplierID, "Modern L-Shaped Sofa", "", "")
		require.NoError(t, err)
	}

	assert.Equal(t, 1, lister.calls)
}

func TestInvalidateSupplier(t *testing.T) {
	lister := &fakeLister{categories: furnitureCategories()}
	engine := NewEngine(lister, nil, nil, logger.New("error"))
	supplierID := uuid.New().String()

	_, err := engine.Categorize(context.Background(), supplierID, "Modern L-Shaped Sofa", "", "")
	require.NoError(t, err)
	engine.InvalidateSupplier(supplierID)
	_, err = engine.Categorize(context.Background(), supplierID, "Modern L-Shaped Sofa", "", "")
	require.NoError(t, err)

	assert.Equal(t, 2, lister.calls)
}

func TestCategorize_FallbackRulesWhenSupplierHasNone(t *testing.T) {
	fallback := []Rule{
		{CategoryName: "Rugs", Keywords: []string{"rug", "runner", "carpet"}},
	}
	engine := NewEngine(&fakeLister{}, nil, fallback, logger.New("error"))

	match, err := engine.Categorize(context.Background(), uuid.New().String(), "Hand-Woven Wool Rug", "", "")

	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "Rugs", match.CategoryName)
	assert.Equal(t, MethodFallback, match.Method)
	assert.Empty(t, match.CategoryID)
}

func TestScoreRule(t *testing.T) {
	tests := []struct {
		name   string
		search string
		rule   Rule
		want   float64
	}{
		{
			name:   "long keyword is strong",
			search: "leather recliner with footrest",
			rule:   Rule{Keywords: []string{"recliner"}},
			want:   confidenceStrong,
		},
		{
			name:   "short keyword as whole word is strong",
			search: "modern l-shaped sofa",
			rule:   Rule{Keywords: []string{"sofa"}},
			want:   confidenceStrong,
		},
		{
			name:   "two weak hits",
			search: "canvas wall art modish",
			rule:   Rule{Keywords: []string{"vas", "mod"}},
			want:   confidenceMultiHit,
		},
		{
			name:   "single weak hit",
			search: "canvas wall art",
			rule:   Rule{Keywords: []string{"vas"}},
			want:   confidenceSingleHit,
		},
		{
			name:   "exclusion vetoes everything",
			search: "walnut sofa table",
			rule:   Rule{Keywords: []string{"sofa"}, Exclusions: []string{"sofa table"}},
			want:   0,
		},
		{
			name:   "no hits",
			search: "ceramic planter",
			rule:   Rule{Keywords: []string{"sofa"}},
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scoreRule(tt.search, tt.rule))
		})
	}
}

func TestContainsWholeWord(t *testing.T) {
	assert.True(t, containsWholeWord("modern l-shaped sofa", "sofa"))
	assert.True(t, containsWholeWord("sofa bed deluxe", "sofa"))
	assert.True(t, containsWholeWord("best sofa, grey", "sofa"))
	assert.False(t, containsWholeWord("sofabed deluxe", "sofa"))
	assert.False(t, containsWholeWord("ultrasofa", "sofa"))
}

func TestLoadFallbackRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `categories:
  - name: Rugs
    keywords: [rug, runner, carpet]
    exclude: [rug pad]
  - name: ""
    keywords: [ignored]
  - name: Empty
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rules, err := LoadFallbackRules(path)

	require.NoError(t, err)
	require.Len(t, rules, 1) // nameless and keywordless entries dropped
	assert.Equal(t, "Rugs", rules[0].CategoryName)
	assert.Equal(t, []string{"rug pad"}, rules[0].Exclusions)
}

func TestLoadFallbackRules_MissingFile(t *testing.T) {
	_, err := LoadFallbackRules(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

package categorize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dropsync/internal/logger"
)

const (
	openAIURL   = "https://api.openai.com/v1/chat/completions"
	openAIModel = "gpt-3.5-turbo"
)

// AIClient issues the single constrained categorization prompt. It is
// deliberately narrow: one method, zero temperature, tiny completion.
type AIClient struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
	logger     *logger.Logger
}

func NewAIClient(apiKey string, log *logger.Logger) *AIClient {
	return &AIClient{
		apiKey: apiKey,
		apiURL: openAIURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: log,
	}
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

// SuggestCategory asks the model to place a product title into one of
// the given category names. The prompt demands either an exact name or
// NONE; the caller still validates the answer before trusting it.
func (c *AIClient) SuggestCategory(ctx context.Context, title string, names []string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("OpenAI API key not configured")
	}

	prompt := fmt.Sprintf(
		"Categorize this product into exactly one of the following categories.\n\nProduct: %s\n\nCategories:\n%s\n\nAnswer with the category name exactly as written above, or NONE if none of them fit. Return ONLY the category name, no explanations.",
		title, strings.Join(names, "\n"),
	)

	request := openAIRequest{
		Model:       openAIModel,
		Temperature: 0,
		MaxTokens:   20,
		Messages: []openAIMessage{
			{
				Role:    "system",
				Content: "You classify wholesale products into catalog categories.",
			},
			{
				Role:    "user",
				Content: prompt,
			},
		},
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OpenAI API error: %s", string(body))
	}

	var parsed openAIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// Package summarize wraps the LLM provider with the prompt templates and
// response parsing for content summaries, theme categorization, and theme
// bootstrapping.
package summarize

import (
	"context"
	"fmt"
	"log"

	"github.com/mvanwyk/curio/internal/database"
	"github.com/mvanwyk/curio/internal/llm"
	"github.com/mvanwyk/curio/internal/ratelimit"
)

// degradedInsight is stored when the model replies with prose instead of the
// requested JSON. The raw reply becomes the overview so nothing is lost.
const degradedInsight = "Summary generation partially failed - see overview"

// Summary type identifiers stored in the summaries table.
const (
	TypeComprehensive = "comprehensive"
	TypeBrief         = "brief"
)

// Metadata describes the content being summarized, for prompt context.
type Metadata struct {
	Title      string
	Author     *string
	SourceType string
}

// Summary is a parsed summarization result.
type Summary struct {
	Overview        string
	KeyInsights     []string
	Implications    *string
	SuggestedThemes []string
	TokenCount      int
	ModelVersion    string
}

// ThemeMatch is one existing-theme assignment from categorization.
type ThemeMatch struct {
	ThemeID    int64
	Confidence float64
	Reasoning  string
}

// NewThemeSuggestion proposes a theme not covered by the existing taxonomy.
type NewThemeSuggestion struct {
	Name        string
	Description *string
}

// Categorization is the parsed result of a categorization call.
type Categorization struct {
	Matches  []ThemeMatch
	NewTheme *NewThemeSuggestion
}

// ThemeProposal is one theme from a bootstrap run.
type ThemeProposal struct {
	Name        string
	Description *string
}

// Client runs summarization and categorization against an LLM provider,
// throttled by the shared LLM rate limit.
type Client struct {
	provider  llm.Provider
	limiter   *ratelimit.Limiter
	maxTokens int
}

// NewClient creates a summarization client.
func NewClient(provider llm.Provider, limiter *ratelimit.Limiter, maxTokens int) *Client {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Client{provider: provider, limiter: limiter, maxTokens: maxTokens}
}

// GenerateSummary produces a structured summary of the content. For the
// comprehensive type the model must reply with JSON; a prose reply degrades
// into an overview-only summary rather than failing. A brief summary is
// plain text. Missing required fields in an otherwise valid JSON reply are
// an error.
func (c *Client) GenerateSummary(ctx context.Context, content string, meta Metadata, summaryType string) (*Summary, error) {
	c.limiter.Acquire()

	var prompt string
	if summaryType == TypeBrief {
		prompt = briefPrompt(content, meta)
	} else {
		summaryType = TypeComprehensive
		prompt = comprehensivePrompt(content, meta)
	}

	log.Printf("generating %s summary for: %s", summaryType, truncate(meta.Title, 100))

	resp, err := c.provider.Complete(ctx, llm.Request{
		Prompt:      prompt,
		MaxTokens:   c.maxTokens,
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate summary: %w", err)
	}

	if summaryType == TypeBrief {
		return &Summary{
			Overview:     resp.Text,
			KeyInsights:  []string{},
			TokenCount:   resp.OutputTokens,
			ModelVersion: c.provider.Model(),
		}, nil
	}

	parsed := llm.ParseJSONResponse(resp.Text)
	if parsed == nil {
		log.Printf("summary response was not valid JSON, storing raw text as overview")
		return &Summary{
			Overview:        resp.Text,
			KeyInsights:     []string{degradedInsight},
			SuggestedThemes: []string{},
			TokenCount:      resp.OutputTokens,
			ModelVersion:    c.provider.Model(),
		}, nil
	}

	overview, ok := parsed["overview"].(string)
	if !ok || overview == "" {
		return nil, fmt.Errorf("summary response missing 'overview'")
	}
	insights := stringSlice(parsed["key_insights"])
	if insights == nil {
		return nil, fmt.Errorf("summary response missing 'key_insights'")
	}

	summary := &Summary{
		Overview:        overview,
		KeyInsights:     insights,
		SuggestedThemes: stringSlice(parsed["suggested_themes"]),
		TokenCount:      resp.OutputTokens,
		ModelVersion:    c.provider.Model(),
	}
	if impl, ok := parsed["implications"].(string); ok && impl != "" {
		summary.Implications = &impl
	}

	log.Printf("generated summary with %d output tokens", resp.OutputTokens)
	return summary, nil
}

// CategorizeContent asks the model which existing themes the summary fits.
// An unparseable reply degrades to an empty categorization; a failed API
// call is an error.
func (c *Client) CategorizeContent(ctx context.Context, summary *Summary, existing []database.Theme) (*Categorization, error) {
	c.limiter.Acquire()

	log.Printf("categorizing content against %d existing themes", len(existing))

	resp, err := c.provider.Complete(ctx, llm.Request{
		Prompt:      categorizationPrompt(summary, existing),
		MaxTokens:   2048,
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to categorize content: %w", err)
	}

	parsed := llm.ParseJSONResponse(resp.Text)
	if parsed == nil {
		log.Printf("categorization response was not valid JSON, returning empty categorization")
		return &Categorization{}, nil
	}

	result := &Categorization{}
	if matches, ok := parsed["theme_matches"].([]any); ok {
		for _, raw := range matches {
			m, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			themeID, ok := m["theme_id"].(float64)
			if !ok {
				continue
			}
			confidence, _ := m["confidence"].(float64)
			reasoning, _ := m["reasoning"].(string)
			result.Matches = append(result.Matches, ThemeMatch{
				ThemeID:    int64(themeID),
				Confidence: confidence,
				Reasoning:  reasoning,
			})
		}
	}

	if suggestion, ok := parsed["new_theme_suggestion"].(map[string]any); ok {
		if name, ok := suggestion["name"].(string); ok && name != "" {
			nt := &NewThemeSuggestion{Name: name}
			if desc, ok := suggestion["description"].(string); ok && desc != "" {
				nt.Description = &desc
			}
			result.NewTheme = nt
		}
	}

	log.Printf("categorization complete: %d matches", len(result.Matches))
	return result, nil
}

// BootstrapThemes derives an initial theme taxonomy from a batch of stored
// summaries. An unparseable reply degrades to an empty proposal list.
func (c *Client) BootstrapThemes(ctx context.Context, summaries []database.Summary) ([]ThemeProposal, error) {
	c.limiter.Acquire()

	log.Printf("bootstrapping themes from %d summaries", len(summaries))

	resp, err := c.provider.Complete(ctx, llm.Request{
		Prompt:      bootstrapPrompt(summaries),
		MaxTokens:   2048,
		Temperature: 0.5,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to bootstrap themes: %w", err)
	}

	parsed := llm.ParseJSONResponse(resp.Text)
	if parsed == nil {
		log.Printf("bootstrap response was not valid JSON, returning no themes")
		return nil, nil
	}

	rawThemes, ok := parsed["themes"].([]any)
	if !ok {
		return nil, nil
	}

	var proposals []ThemeProposal
	for _, raw := range rawThemes {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name, ok := m["name"].(string)
		if !ok || name == "" {
			continue
		}
		p := ThemeProposal{Name: name}
		if desc, ok := m["description"].(string); ok && desc != "" {
			p.Description = &desc
		}
		proposals = append(proposals, p)
	}

	log.Printf("generated %d initial themes", len(proposals))
	return proposals, nil
}

// stringSlice converts a decoded JSON array into []string, skipping
// non-string elements. Returns nil when the value is not an array.
func stringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

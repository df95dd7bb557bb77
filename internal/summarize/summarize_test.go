package summarize

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mvanwyk/curio/internal/database"
	"github.com/mvanwyk/curio/internal/llm"
	"github.com/mvanwyk/curio/internal/ratelimit"
)

// fakeProvider returns canned responses and records the prompts it saw.
type fakeProvider struct {
	response string
	err      error
	requests []llm.Request
}

func (f *fakeProvider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Text: f.response, OutputTokens: 17}, nil
}

func (f *fakeProvider) Model() string      { return "fake-model" }
func (f *fakeProvider) IsConfigured() bool { return true }

func newTestClient(provider llm.Provider) *Client {
	return NewClient(provider, ratelimit.New(1000, time.Second), 4096)
}

func TestGenerateComprehensiveSummary(t *testing.T) {
	provider := &fakeProvider{response: "```json\n" + `{
		"overview": "A structured look at the topic.",
		"key_insights": ["insight one", "insight two"],
		"implications": "Wide-reaching.",
		"suggested_themes": ["Machine Learning", "Systems"]
	}` + "\n```"}

	c := newTestClient(provider)
	meta := Metadata{Title: "Paper", SourceType: "arxiv"}
	summary, err := c.GenerateSummary(context.Background(), "content body", meta, TypeComprehensive)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Overview != "A structured look at the topic." {
		t.Errorf("unexpected overview: %q", summary.Overview)
	}
	if len(summary.KeyInsights) != 2 {
		t.Errorf("unexpected insights: %v", summary.KeyInsights)
	}
	if summary.Implications == nil || *summary.Implications != "Wide-reaching." {
		t.Errorf("unexpected implications: %v", summary.Implications)
	}
	if len(summary.SuggestedThemes) != 2 {
		t.Errorf("unexpected themes: %v", summary.SuggestedThemes)
	}
	if summary.TokenCount != 17 || summary.ModelVersion != "fake-model" {
		t.Errorf("metadata not captured: %+v", summary)
	}

	// The prompt carries the content and source type context.
	prompt := provider.requests[0].Prompt
	if !strings.Contains(prompt, "content body") || !strings.Contains(prompt, "arxiv") {
		t.Errorf("prompt missing context: %q", prompt)
	}
	if provider.requests[0].Temperature != 0.3 {
		t.Errorf("unexpected temperature: %v", provider.requests[0].Temperature)
	}
}

func TestGenerateSummaryDegradesOnProse(t *testing.T) {
	provider := &fakeProvider{response: "Sorry, here is a plain text summary of the content instead."}

	c := newTestClient(provider)
	summary, err := c.GenerateSummary(context.Background(), "x", Metadata{Title: "T"}, TypeComprehensive)
	if err != nil {
		t.Fatalf("prose reply must degrade, not fail: %v", err)
	}

	if summary.Overview != provider.response {
		t.Errorf("raw text should become the overview: %q", summary.Overview)
	}
	if len(summary.KeyInsights) != 1 || summary.KeyInsights[0] != degradedInsight {
		t.Errorf("expected degraded insight sentinel, got %v", summary.KeyInsights)
	}
	if summary.Implications != nil {
		t.Errorf("degraded summary must have nil implications, got %v", summary.Implications)
	}
}

func TestGenerateSummaryMissingFieldIsError(t *testing.T) {
	// Valid JSON without required fields is a hard failure, not a degrade.
	provider := &fakeProvider{response: `{"key_insights": ["a"]}`}
	c := newTestClient(provider)
	if _, err := c.GenerateSummary(context.Background(), "x", Metadata{}, TypeComprehensive); err == nil {
		t.Fatal("expected error for missing overview")
	}

	provider = &fakeProvider{response: `{"overview": "o"}`}
	c = newTestClient(provider)
	if _, err := c.GenerateSummary(context.Background(), "x", Metadata{}, TypeComprehensive); err == nil {
		t.Fatal("expected error for missing key_insights")
	}
}

func TestGenerateBriefSummary(t *testing.T) {
	provider := &fakeProvider{response: "Two sentences about it. That is all."}
	c := newTestClient(provider)

	summary, err := c.GenerateSummary(context.Background(), "x", Metadata{Title: "T"}, TypeBrief)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Overview != provider.response {
		t.Errorf("brief summary should be raw text: %q", summary.Overview)
	}
	if len(summary.KeyInsights) != 0 {
		t.Errorf("brief summary has no insights, got %v", summary.KeyInsights)
	}
}

func TestGenerateSummaryProviderError(t *testing.T) {
	provider := &fakeProvider{err: fmt.Errorf("api down")}
	c := newTestClient(provider)
	if _, err := c.GenerateSummary(context.Background(), "x", Metadata{}, TypeComprehensive); err == nil {
		t.Fatal("expected provider error to propagate")
	}
}

func TestCategorizeContent(t *testing.T) {
	provider := &fakeProvider{response: `{
		"theme_matches": [
			{"theme_id": 3, "confidence": 0.85, "reasoning": "fits"},
			{"theme_id": 7, "confidence": 0.6, "reasoning": "partial"}
		],
		"new_theme_suggestion": null
	}`}
	c := newTestClient(provider)

	desc := "All about ML"
	existing := []database.Theme{{ID: 3, Name: "Machine Learning", Description: &desc}}
	summary := &Summary{Overview: "o", KeyInsights: []string{"k"}}

	result, err := c.CategorizeContent(context.Background(), summary, existing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(result.Matches))
	}
	if result.Matches[0].ThemeID != 3 || result.Matches[0].Confidence != 0.85 {
		t.Errorf("unexpected first match: %+v", result.Matches[0])
	}
	if result.NewTheme != nil {
		t.Errorf("expected no new theme, got %+v", result.NewTheme)
	}

	// The prompt lists the existing themes.
	if !strings.Contains(provider.requests[0].Prompt, "Machine Learning: All about ML") {
		t.Errorf("prompt missing theme list: %q", provider.requests[0].Prompt)
	}
	if provider.requests[0].MaxTokens != 2048 {
		t.Errorf("unexpected max tokens: %d", provider.requests[0].MaxTokens)
	}
}

func TestCategorizeContentNewTheme(t *testing.T) {
	provider := &fakeProvider{response: `{
		"theme_matches": [],
		"new_theme_suggestion": {"name": "Robotics", "description": "Physical systems", "reasoning": "new area"}
	}`}
	c := newTestClient(provider)

	result, err := c.CategorizeContent(context.Background(), &Summary{Overview: "o"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.NewTheme == nil || result.NewTheme.Name != "Robotics" {
		t.Fatalf("expected new theme suggestion, got %+v", result.NewTheme)
	}
	if result.NewTheme.Description == nil || *result.NewTheme.Description != "Physical systems" {
		t.Errorf("unexpected description: %v", result.NewTheme.Description)
	}
}

func TestCategorizeContentDegradesOnProse(t *testing.T) {
	provider := &fakeProvider{response: "I could not decide."}
	c := newTestClient(provider)

	result, err := c.CategorizeContent(context.Background(), &Summary{Overview: "o"}, nil)
	if err != nil {
		t.Fatalf("prose reply must degrade: %v", err)
	}
	if len(result.Matches) != 0 || result.NewTheme != nil {
		t.Errorf("expected empty categorization, got %+v", result)
	}
}

func TestBootstrapThemes(t *testing.T) {
	provider := &fakeProvider{response: "```json\n" + `{
		"themes": [
			{"name": "Climate Science", "description": "Climate research", "example_content": ["Summary 1"]},
			{"name": "Healthcare Innovation"}
		]
	}` + "\n```"}
	c := newTestClient(provider)

	summaries := []database.Summary{
		{Overview: "paper on warming", KeyInsights: []string{"a"}},
		{Overview: "hospital AI", KeyInsights: []string{"b"}},
	}
	proposals, err := c.BootstrapThemes(context.Background(), summaries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(proposals) != 2 {
		t.Fatalf("expected 2 proposals, got %d", len(proposals))
	}
	if proposals[0].Name != "Climate Science" || proposals[0].Description == nil {
		t.Errorf("unexpected first proposal: %+v", proposals[0])
	}
	if proposals[1].Description != nil {
		t.Errorf("missing description must stay nil, got %v", proposals[1].Description)
	}
	if provider.requests[0].Temperature != 0.5 {
		t.Errorf("bootstrap should use a higher temperature, got %v", provider.requests[0].Temperature)
	}
}

func TestBootstrapThemesDegradesOnProse(t *testing.T) {
	provider := &fakeProvider{response: "no json here"}
	c := newTestClient(provider)

	proposals, err := c.BootstrapThemes(context.Background(), nil)
	if err != nil {
		t.Fatalf("prose reply must degrade: %v", err)
	}
	if len(proposals) != 0 {
		t.Errorf("expected no proposals, got %v", proposals)
	}
}

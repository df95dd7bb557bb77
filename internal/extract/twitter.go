package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mvanwyk/curio/internal/ratelimit"
)

const twitterAPIBaseURL = "https://api.twitter.com"

// TwitterExtractor fetches tweets and their threads via the Twitter API v2.
type TwitterExtractor struct {
	BearerToken string
	BaseURL     string
	limiter     *ratelimit.Limiter
	client      *http.Client
}

// NewTwitterExtractor creates a Twitter extractor using the given bearer token.
func NewTwitterExtractor(bearerToken string, limiter *ratelimit.Limiter) *TwitterExtractor {
	return &TwitterExtractor{
		BearerToken: bearerToken,
		BaseURL:     twitterAPIBaseURL,
		limiter:     limiter,
		client:      &http.Client{Timeout: 30 * time.Second},
	}
}

// CanHandle matches twitter.com and x.com URLs.
func (t *TwitterExtractor) CanHandle(source string, isFile bool) bool {
	if isFile {
		return false
	}
	kind, _ := DetectSource(source)
	return kind == KindTwitter
}

// SourceType returns the stable source type identifier.
func (t *TwitterExtractor) SourceType() string {
	return SourceTwitter
}

type tweet struct {
	ID             string         `json:"id"`
	Text           string         `json:"text"`
	AuthorID       string         `json:"author_id"`
	ConversationID string         `json:"conversation_id"`
	CreatedAt      string         `json:"created_at"`
	PublicMetrics  map[string]int `json:"public_metrics"`
}

type twitterUser struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Verified bool   `json:"verified"`
}

// Extract fetches the tweet and, when it opens a thread, the rest of the
// author's tweets in the conversation.
func (t *TwitterExtractor) Extract(ctx context.Context, source string) (*Record, error) {
	if t.BearerToken == "" {
		return nil, fmt.Errorf("twitter API credentials not configured; set the bearer token env var")
	}

	_, tweetID := DetectSource(source)
	if tweetID == "" {
		return nil, fmt.Errorf("could not extract tweet ID from URL")
	}

	t.limiter.Acquire()

	tw, author, err := t.fetchTweet(ctx, tweetID)
	if err != nil {
		return nil, err
	}

	contentParts := []string{tw.Text}

	// Thread expansion is best-effort: the main tweet alone is still a
	// valid extraction.
	if tw.ConversationID != "" && tw.ConversationID != tw.ID {
		thread, err := t.fetchThread(ctx, tw.ConversationID, tw.AuthorID)
		if err != nil {
			log.Printf("could not fetch thread for tweet %s: %v", tweetID, err)
		} else {
			for _, item := range thread {
				if item.ID != tw.ID {
					contentParts = append(contentParts, "\n---\n"+item.Text)
				}
			}
		}
	}

	title := "Twitter Thread"
	var authorStr *string
	if author != nil {
		title = fmt.Sprintf("Tweet by @%s", author.Username)
		if author.Name != "" {
			title = fmt.Sprintf("Tweet by %s (@%s)", author.Name, author.Username)
		}
		s := fmt.Sprintf("%s (@%s)", author.Name, author.Username)
		authorStr = &s
	}

	var publishDate *string
	if ts, err := time.Parse(time.RFC3339, tw.CreatedAt); err == nil {
		s := ts.UTC().Format(time.RFC3339)
		publishDate = &s
	}

	metadata := map[string]any{
		"url":             source,
		"tweet_id":        tweetID,
		"extractor":       "twitter",
		"conversation_id": tw.ConversationID,
	}
	if author != nil {
		metadata["author_username"] = author.Username
		metadata["author_verified"] = author.Verified
	}
	if tw.PublicMetrics != nil {
		metadata["public_metrics"] = tw.PublicMetrics
	}

	return &Record{
		Title:       title,
		Author:      authorStr,
		PublishDate: publishDate,
		Content:     strings.Join(contentParts, "\n"),
		Metadata:    metadata,
	}, nil
}

func (t *TwitterExtractor) fetchTweet(ctx context.Context, tweetID string) (*tweet, *twitterUser, error) {
	endpoint := fmt.Sprintf(
		"%s/2/tweets/%s?expansions=author_id&tweet.fields=created_at,author_id,conversation_id,public_metrics&user.fields=name,username,verified",
		t.BaseURL, tweetID,
	)

	var result struct {
		Data     *tweet `json:"data"`
		Includes struct {
			Users []twitterUser `json:"users"`
		} `json:"includes"`
	}
	if err := t.getJSON(ctx, endpoint, &result); err != nil {
		return nil, nil, err
	}
	if result.Data == nil {
		return nil, nil, fmt.Errorf("tweet not found: %s", tweetID)
	}

	var author *twitterUser
	for i := range result.Includes.Users {
		if result.Includes.Users[i].ID == result.Data.AuthorID {
			author = &result.Includes.Users[i]
			break
		}
	}
	return result.Data, author, nil
}

func (t *TwitterExtractor) fetchThread(ctx context.Context, conversationID, authorID string) ([]tweet, error) {
	query := url.QueryEscape("conversation_id:" + conversationID)
	endpoint := fmt.Sprintf(
		"%s/2/tweets/search/recent?query=%s&max_results=100&tweet.fields=created_at,author_id",
		t.BaseURL, query,
	)

	var result struct {
		Data []tweet `json:"data"`
	}
	if err := t.getJSON(ctx, endpoint, &result); err != nil {
		return nil, err
	}

	var thread []tweet
	for _, tw := range result.Data {
		if tw.AuthorID == authorID {
			thread = append(thread, tw)
		}
	}
	sort.Slice(thread, func(i, j int) bool { return thread[i].CreatedAt < thread[j].CreatedAt })
	return thread, nil
}

func (t *TwitterExtractor) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.BearerToken)

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("twitter API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("twitter API returned %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

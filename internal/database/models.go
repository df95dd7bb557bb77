package database

// Content represents one ingested source: a fetched URL or an uploaded file.
// Exactly one of SourceURL and FilePath is set, depending on the source type.
type Content struct {
	ID                 int64
	SourceType         string // 'twitter', 'pdf', 'arxiv', 'acm', 'web'
	SourceURL          *string
	FilePath           *string
	Title              string
	Author             *string
	PublishDate        *string
	RawContent         *string
	ContentHash        string
	ExtractionMetadata map[string]any
	CreatedAt          *string
	UpdatedAt          *string
}

// Summary holds the LLM-generated structured summary for a content item.
type Summary struct {
	ID           int64
	ContentID    int64
	SummaryType  string
	Overview     string
	KeyInsights  []string
	Implications *string
	ModelVersion *string
	TokenCount   *int
	GeneratedAt  *string
}

// Theme is a named category content gets grouped under. The taxonomy grows
// organically: themes come from bootstrap runs or from per-item suggestions.
type Theme struct {
	ID           int64
	Name         string
	Description  *string
	Color        *string
	ContentCount int
	CreatedAt    *string
	UpdatedAt    *string
}

// ContentTheme links a content item to a theme with a confidence score.
// Confidence is nil-able in the schema but always written as 1.0 for
// cold-start assignments.
type ContentTheme struct {
	ID         int64
	ContentID  int64
	ThemeID    int64
	Confidence *float64
	CreatedAt  *string
}

// Stats contains aggregate database statistics.
type Stats struct {
	TotalContents int
	Summaries     int
	Themes        int
	ThemeLinks    int
	BySourceType  map[string]int
}

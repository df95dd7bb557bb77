// Package themes manages the organically growing theme taxonomy: cold-start
// creation from summary suggestions, bootstrap generation once enough content
// exists, and LLM-assisted categorization of each new item.
package themes

import (
	"context"
	"fmt"
	"log"
	"math/rand"

	"github.com/mvanwyk/curio/internal/database"
	"github.com/mvanwyk/curio/internal/summarize"
)

const (
	// ConfidenceHigh marks assignments trusted enough to auto-surface in UIs.
	ConfidenceHigh = 0.75
	// ConfidenceLow is the floor below which a theme match is discarded.
	ConfidenceLow = 0.5

	// Bootstrap fires when the taxonomy is still sparse but enough content
	// has accumulated to derive themes from.
	bootstrapThreshold  = 10
	bootstrapSampleSize = 20
	sparseThemeCount    = 5

	// Cold-start takes at most this many suggested themes from a summary.
	maxColdStartThemes = 3

	// Confidence recorded when the model proposes a brand-new theme.
	newThemeConfidence = 0.9
)

// themeColors is the palette new themes draw from.
var themeColors = []string{
	"#FF5733", "#33FF57", "#3357FF", "#F333FF", "#FF33F3",
	"#33FFF3", "#F3FF33", "#FF8C33", "#8C33FF", "#33FF8C",
	"#FF3383", "#33FFA5", "#A533FF", "#FFA533", "#5733FF",
}

// Categorizer is the LLM-backed part of categorization.
type Categorizer interface {
	CategorizeContent(ctx context.Context, summary *summarize.Summary, existing []database.Theme) (*summarize.Categorization, error)
	BootstrapThemes(ctx context.Context, summaries []database.Summary) ([]summarize.ThemeProposal, error)
}

// Assignment is one theme assigned to a content item.
type Assignment struct {
	ThemeID    int64
	Confidence float64
}

// Outcome reports what categorization did. Err records a swallowed failure:
// categorization problems never fail the surrounding pipeline, but callers
// can still log them.
type Outcome struct {
	Assignments []Assignment
	Err         error
}

// Manager runs theme categorization and owns theme CRUD.
type Manager struct {
	db *database.DB
	ai Categorizer
}

// NewManager creates a theme manager.
func NewManager(db *database.DB, ai Categorizer) *Manager {
	return &Manager{db: db, ai: ai}
}

// Categorize assigns themes to a freshly summarized content item inside the
// caller's transaction. It never returns an error: a categorization failure
// must not block content creation, so failures are recorded in the Outcome
// and the assignments made before the failure stand.
func (m *Manager) Categorize(ctx context.Context, tx *database.Tx, contentID int64, summary *summarize.Summary) Outcome {
	existing, err := tx.GetAllThemes()
	if err != nil {
		return Outcome{Err: fmt.Errorf("loading themes: %w", err)}
	}

	// A sparse taxonomy with enough accumulated content gets rebuilt from
	// recent summaries before categorizing.
	if len(existing) < sparseThemeCount {
		linkCount, err := tx.CountContentThemes()
		if err != nil {
			return Outcome{Err: fmt.Errorf("counting theme links: %w", err)}
		}
		if linkCount >= bootstrapThreshold {
			log.Printf("bootstrapping themes from existing content")
			if err := m.bootstrap(ctx, tx); err != nil {
				log.Printf("theme bootstrap failed: %v", err)
			}
			existing, err = tx.GetAllThemes()
			if err != nil {
				return Outcome{Err: fmt.Errorf("reloading themes: %w", err)}
			}
		}
	}

	if len(existing) == 0 {
		return m.coldStart(tx, contentID, summary)
	}
	return m.categorizeExisting(ctx, tx, contentID, summary, existing)
}

// coldStart seeds the taxonomy from the summary's own suggested themes when
// no themes exist at all. Each becomes a theme with a full-confidence link.
func (m *Manager) coldStart(tx *database.Tx, contentID int64, summary *summarize.Summary) Outcome {
	var out Outcome
	suggestions := summary.SuggestedThemes
	if len(suggestions) > maxColdStartThemes {
		suggestions = suggestions[:maxColdStartThemes]
	}

	for _, name := range suggestions {
		theme, err := m.createThemeTx(tx, name, nil)
		if err != nil {
			out.Err = fmt.Errorf("creating theme %q: %w", name, err)
			return out
		}

		confidence := 1.0
		if err := tx.InsertContentTheme(contentID, theme.ID, &confidence); err != nil {
			out.Err = fmt.Errorf("linking theme %q: %w", name, err)
			return out
		}
		out.Assignments = append(out.Assignments, Assignment{ThemeID: theme.ID, Confidence: confidence})
	}

	log.Printf("created %d new themes from suggestions", len(out.Assignments))
	return out
}

// categorizeExisting matches the summary against the current taxonomy. A new
// theme is only created when nothing existing matched.
func (m *Manager) categorizeExisting(ctx context.Context, tx *database.Tx, contentID int64, summary *summarize.Summary, existing []database.Theme) Outcome {
	var out Outcome

	categorization, err := m.ai.CategorizeContent(ctx, summary, existing)
	if err != nil {
		out.Err = fmt.Errorf("categorizing content %d: %w", contentID, err)
		return out
	}

	for _, match := range categorization.Matches {
		if match.Confidence < ConfidenceLow || match.ThemeID == 0 {
			continue
		}
		confidence := match.Confidence
		if err := tx.InsertContentTheme(contentID, match.ThemeID, &confidence); err != nil {
			out.Err = fmt.Errorf("linking theme %d: %w", match.ThemeID, err)
			return out
		}
		if err := tx.IncrementThemeCount(match.ThemeID); err != nil {
			out.Err = fmt.Errorf("updating theme %d count: %w", match.ThemeID, err)
			return out
		}
		out.Assignments = append(out.Assignments, Assignment{ThemeID: match.ThemeID, Confidence: confidence})
	}

	if categorization.NewTheme != nil && len(out.Assignments) == 0 {
		theme, err := m.createThemeTx(tx, categorization.NewTheme.Name, categorization.NewTheme.Description)
		if err != nil {
			out.Err = fmt.Errorf("creating theme %q: %w", categorization.NewTheme.Name, err)
			return out
		}

		confidence := newThemeConfidence
		if err := tx.InsertContentTheme(contentID, theme.ID, &confidence); err != nil {
			out.Err = fmt.Errorf("linking new theme: %w", err)
			return out
		}
		out.Assignments = append(out.Assignments, Assignment{ThemeID: theme.ID, Confidence: confidence})
		log.Printf("created new theme: %s", theme.Name)
	}

	return out
}

// bootstrap derives an initial theme set from recent summaries. Failures are
// non-fatal; categorization proceeds with whatever taxonomy exists.
func (m *Manager) bootstrap(ctx context.Context, tx *database.Tx) error {
	summaries, err := tx.GetRecentSummaries(bootstrapSampleSize)
	if err != nil {
		return fmt.Errorf("loading recent summaries: %w", err)
	}
	if len(summaries) == 0 {
		return nil
	}

	proposals, err := m.ai.BootstrapThemes(ctx, summaries)
	if err != nil {
		return err
	}

	for _, p := range proposals {
		if _, err := m.createThemeTx(tx, p.Name, p.Description); err != nil {
			return fmt.Errorf("creating theme %q: %w", p.Name, err)
		}
	}

	log.Printf("bootstrapped %d themes", len(proposals))
	return nil
}

// createThemeTx inserts a theme inside the transaction. A name collision
// with a concurrently created theme resolves to the existing row.
func (m *Manager) createThemeTx(tx *database.Tx, name string, description *string) (*database.Theme, error) {
	color := themeColors[rand.Intn(len(themeColors))]

	id, err := tx.InsertTheme(name, description, &color, 1)
	if err != nil {
		if database.IsUniqueViolation(err) {
			existing, getErr := tx.GetThemeByName(name)
			if getErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, err
	}

	log.Printf("created theme: %s (ID: %d)", name, id)
	return &database.Theme{ID: id, Name: name, Description: description, Color: &color, ContentCount: 1}, nil
}

// ListThemes returns all themes, most populated first.
func (m *Manager) ListThemes() ([]database.Theme, error) {
	return m.db.GetAllThemes()
}

// GetTheme returns a theme by id, or nil.
func (m *Manager) GetTheme(id int64) (*database.Theme, error) {
	return m.db.GetTheme(id)
}

// CreateTheme makes a theme by hand, outside any categorization run.
func (m *Manager) CreateTheme(name string, description *string) (*database.Theme, error) {
	color := themeColors[rand.Intn(len(themeColors))]
	id, err := m.db.InsertTheme(name, description, &color, 0)
	if err != nil {
		return nil, err
	}
	return m.db.GetTheme(id)
}

// UpdateTheme changes the given fields; nil fields stay as they are.
func (m *Manager) UpdateTheme(id int64, name, description, color *string) (*database.Theme, error) {
	if err := m.db.UpdateTheme(id, name, description, color); err != nil {
		return nil, err
	}
	return m.db.GetTheme(id)
}

// DeleteTheme removes a theme and its content associations.
func (m *Manager) DeleteTheme(id int64) error {
	return m.db.DeleteTheme(id)
}

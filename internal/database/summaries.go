package database

import (
	"database/sql"
	"encoding/json"
)

const summaryColumns = `id, content_id, summary_type, overview, key_insights,
	implications, model_version, token_count, generated_at`

// InsertSummary inserts a summary row inside the transaction and returns its id.
func (t *Tx) InsertSummary(s *Summary) (int64, error) {
	kpJSON, err := json.Marshal(s.KeyInsights)
	if err != nil {
		return 0, err
	}

	summaryType := s.SummaryType
	if summaryType == "" {
		summaryType = "comprehensive"
	}

	result, err := t.tx.Exec(
		`INSERT INTO summaries
		(content_id, summary_type, overview, key_insights, implications, model_version, token_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ContentID, summaryType, s.Overview, string(kpJSON),
		s.Implications, s.ModelVersion, s.TokenCount,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetSummaryForContent returns the summary for a content item, or nil.
func (db *DB) GetSummaryForContent(contentID int64) (*Summary, error) {
	return getSummaryForContent(db.conn, contentID)
}

// GetSummaryForContent is the transactional variant.
func (t *Tx) GetSummaryForContent(contentID int64) (*Summary, error) {
	return getSummaryForContent(t.tx, contentID)
}

func getSummaryForContent(q querier, contentID int64) (*Summary, error) {
	row := q.QueryRow(
		"SELECT "+summaryColumns+" FROM summaries WHERE content_id = ?", contentID,
	)
	s, err := scanSummaryRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetRecentSummaries returns the most recently generated summaries, newest
// first. Theme bootstrap samples from these.
func (t *Tx) GetRecentSummaries(limit int) ([]Summary, error) {
	rows, err := t.tx.Query(
		"SELECT "+summaryColumns+" FROM summaries ORDER BY generated_at DESC, id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		s, err := scanSummaryRow(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *s)
	}
	return summaries, rows.Err()
}

func scanSummaryRow(r rowScanner) (*Summary, error) {
	var s Summary
	var kpJSON string
	if err := r.Scan(&s.ID, &s.ContentID, &s.SummaryType, &s.Overview, &kpJSON,
		&s.Implications, &s.ModelVersion, &s.TokenCount, &s.GeneratedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(kpJSON), &s.KeyInsights); err != nil {
		s.KeyInsights = nil
	}
	return &s, nil
}

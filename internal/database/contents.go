package database

import (
	"database/sql"
	"encoding/json"
)

const contentColumns = `id, source_type, source_url, file_path, title, author,
	publish_date, raw_content, content_hash, extraction_metadata, created_at, updated_at`

// InsertContent inserts a content row inside the transaction and returns its id.
func (t *Tx) InsertContent(c *Content) (int64, error) {
	return insertContent(t.tx, c)
}

func insertContent(q querier, c *Content) (int64, error) {
	var metaJSON *string
	if c.ExtractionMetadata != nil {
		data, err := json.Marshal(c.ExtractionMetadata)
		if err != nil {
			return 0, err
		}
		s := string(data)
		metaJSON = &s
	}

	result, err := q.Exec(
		`INSERT INTO contents
		(source_type, source_url, file_path, title, author, publish_date, raw_content, content_hash, extraction_metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.SourceType, c.SourceURL, c.FilePath, c.Title, c.Author,
		c.PublishDate, c.RawContent, c.ContentHash, metaJSON,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetContentByHash returns the content with the given hash, or nil.
func (db *DB) GetContentByHash(hash string) (*Content, error) {
	return getContentWhere(db.conn, "content_hash = ?", hash)
}

// GetContentByID returns a single content item by id, or nil.
func (db *DB) GetContentByID(id int64) (*Content, error) {
	return getContentWhere(db.conn, "id = ?", id)
}

// GetContentByID is the transactional variant used by the pipeline to build
// the result envelope before commit.
func (t *Tx) GetContentByID(id int64) (*Content, error) {
	return getContentWhere(t.tx, "id = ?", id)
}

func getContentWhere(q querier, where string, arg any) (*Content, error) {
	row := q.QueryRow(
		"SELECT "+contentColumns+" FROM contents WHERE "+where, arg,
	)
	c, err := scanContent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListContents returns contents ordered by created_at DESC.
func (db *DB) ListContents(limit, offset int) ([]Content, error) {
	rows, err := db.conn.Query(
		"SELECT "+contentColumns+" FROM contents ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanContents(rows)
}

// SearchContents returns contents whose title or extracted text matches the query.
func (db *DB) SearchContents(query string, limit int) ([]Content, error) {
	pattern := "%" + query + "%"
	rows, err := db.conn.Query(
		"SELECT "+contentColumns+` FROM contents
		WHERE title LIKE ? OR raw_content LIKE ?
		ORDER BY created_at DESC LIMIT ?`,
		pattern, pattern, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanContents(rows)
}

// GetContentsForTheme returns contents linked to a theme, most recent first.
func (db *DB) GetContentsForTheme(themeID int64) ([]Content, error) {
	rows, err := db.conn.Query(
		`SELECT c.id, c.source_type, c.source_url, c.file_path, c.title, c.author,
		c.publish_date, c.raw_content, c.content_hash, c.extraction_metadata, c.created_at, c.updated_at
		FROM contents c JOIN content_themes ct ON c.id = ct.content_id
		WHERE ct.theme_id = ? ORDER BY c.created_at DESC`, themeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanContents(rows)
}

// DeleteContent removes a content item. Its summary and theme links go with
// it via ON DELETE CASCADE. The caller is responsible for any uploaded file.
func (db *DB) DeleteContent(id int64) error {
	_, err := db.conn.Exec("DELETE FROM contents WHERE id = ?", id)
	return err
}

// GetStats returns aggregate counts for the status command.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{BySourceType: make(map[string]int)}

	row := db.conn.QueryRow(`SELECT
		(SELECT COUNT(*) FROM contents),
		(SELECT COUNT(*) FROM summaries),
		(SELECT COUNT(*) FROM themes),
		(SELECT COUNT(*) FROM content_themes)`)
	if err := row.Scan(&s.TotalContents, &s.Summaries, &s.Themes, &s.ThemeLinks); err != nil {
		return nil, err
	}

	rows, err := db.conn.Query("SELECT source_type, COUNT(*) FROM contents GROUP BY source_type")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var st string
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		s.BySourceType[st] = n
	}
	return s, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContentRow(r rowScanner) (*Content, error) {
	var c Content
	var metaJSON *string
	if err := r.Scan(&c.ID, &c.SourceType, &c.SourceURL, &c.FilePath, &c.Title,
		&c.Author, &c.PublishDate, &c.RawContent, &c.ContentHash, &metaJSON,
		&c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if metaJSON != nil {
		if err := json.Unmarshal([]byte(*metaJSON), &c.ExtractionMetadata); err != nil {
			c.ExtractionMetadata = nil
		}
	}
	return &c, nil
}

func scanContent(row *sql.Row) (*Content, error) {
	return scanContentRow(row)
}

func scanContents(rows *sql.Rows) ([]Content, error) {
	var contents []Content
	for rows.Next() {
		c, err := scanContentRow(rows)
		if err != nil {
			return nil, err
		}
		contents = append(contents, *c)
	}
	return contents, rows.Err()
}

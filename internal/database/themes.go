package database

import "database/sql"

const themeColumns = "id, name, description, color, content_count, created_at, updated_at"

// InsertTheme creates a theme and returns its id. A UNIQUE violation on the
// name means another submission created it concurrently; callers detect that
// with IsUniqueViolation and re-fetch by name.
func (db *DB) InsertTheme(name string, description, color *string, contentCount int) (int64, error) {
	return insertTheme(db.conn, name, description, color, contentCount)
}

// InsertTheme is the transactional variant used during categorization.
func (t *Tx) InsertTheme(name string, description, color *string, contentCount int) (int64, error) {
	return insertTheme(t.tx, name, description, color, contentCount)
}

func insertTheme(q querier, name string, description, color *string, contentCount int) (int64, error) {
	result, err := q.Exec(
		"INSERT INTO themes (name, description, color, content_count) VALUES (?, ?, ?, ?)",
		name, description, color, contentCount,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetAllThemes returns every theme ordered by content_count DESC.
func (db *DB) GetAllThemes() ([]Theme, error) {
	return getAllThemes(db.conn)
}

// GetAllThemes is the transactional variant; it sees themes created earlier
// in the same pipeline transaction.
func (t *Tx) GetAllThemes() ([]Theme, error) {
	return getAllThemes(t.tx)
}

func getAllThemes(q querier) ([]Theme, error) {
	rows, err := q.Query(
		"SELECT " + themeColumns + " FROM themes ORDER BY content_count DESC, id ASC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var themes []Theme
	for rows.Next() {
		var th Theme
		if err := rows.Scan(&th.ID, &th.Name, &th.Description, &th.Color,
			&th.ContentCount, &th.CreatedAt, &th.UpdatedAt); err != nil {
			return nil, err
		}
		themes = append(themes, th)
	}
	return themes, rows.Err()
}

// GetTheme returns a theme by id, or nil.
func (db *DB) GetTheme(id int64) (*Theme, error) {
	return getThemeWhere(db.conn, "id = ?", id)
}

// GetThemeByName returns a theme by its unique name, or nil.
func (db *DB) GetThemeByName(name string) (*Theme, error) {
	return getThemeWhere(db.conn, "name = ?", name)
}

// GetThemeByName is the transactional variant.
func (t *Tx) GetThemeByName(name string) (*Theme, error) {
	return getThemeWhere(t.tx, "name = ?", name)
}

func getThemeWhere(q querier, where string, arg any) (*Theme, error) {
	row := q.QueryRow("SELECT "+themeColumns+" FROM themes WHERE "+where, arg)

	var th Theme
	if err := row.Scan(&th.ID, &th.Name, &th.Description, &th.Color,
		&th.ContentCount, &th.CreatedAt, &th.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &th, nil
}

// UpdateTheme updates the given fields of a theme; nil fields are left alone.
func (db *DB) UpdateTheme(id int64, name, description, color *string) error {
	query := "UPDATE themes SET updated_at = ?"
	args := []any{nowUTC()}
	if name != nil {
		query += ", name = ?"
		args = append(args, *name)
	}
	if description != nil {
		query += ", description = ?"
		args = append(args, *description)
	}
	if color != nil {
		query += ", color = ?"
		args = append(args, *color)
	}
	query += " WHERE id = ?"
	args = append(args, id)

	_, err := db.conn.Exec(query, args...)
	return err
}

// DeleteTheme removes a theme. Its content associations cascade; the content
// itself stays.
func (db *DB) DeleteTheme(id int64) error {
	_, err := db.conn.Exec("DELETE FROM themes WHERE id = ?", id)
	return err
}

// IncrementThemeCount bumps the denormalized content counter for a theme.
func (t *Tx) IncrementThemeCount(themeID int64) error {
	_, err := t.tx.Exec(
		"UPDATE themes SET content_count = content_count + 1, updated_at = ? WHERE id = ?",
		nowUTC(), themeID,
	)
	return err
}

// InsertContentTheme links a content item to a theme with a confidence score.
func (t *Tx) InsertContentTheme(contentID, themeID int64, confidence *float64) error {
	_, err := t.tx.Exec(
		"INSERT INTO content_themes (content_id, theme_id, confidence) VALUES (?, ?, ?)",
		contentID, themeID, confidence,
	)
	return err
}

// CountContentThemes returns the total number of content-theme associations.
// The bootstrap trigger compares this against its threshold.
func (t *Tx) CountContentThemes() (int, error) {
	var n int
	err := t.tx.QueryRow("SELECT COUNT(*) FROM content_themes").Scan(&n)
	return n, err
}

// GetContentThemes returns the theme links for a content item.
func (db *DB) GetContentThemes(contentID int64) ([]ContentTheme, error) {
	return getContentThemes(db.conn, contentID)
}

// GetContentThemes is the transactional variant.
func (t *Tx) GetContentThemes(contentID int64) ([]ContentTheme, error) {
	return getContentThemes(t.tx, contentID)
}

func getContentThemes(q querier, contentID int64) ([]ContentTheme, error) {
	rows, err := q.Query(
		`SELECT id, content_id, theme_id, confidence, created_at
		FROM content_themes WHERE content_id = ? ORDER BY confidence DESC, theme_id ASC`,
		contentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []ContentTheme
	for rows.Next() {
		var ct ContentTheme
		if err := rows.Scan(&ct.ID, &ct.ContentID, &ct.ThemeID, &ct.Confidence, &ct.CreatedAt); err != nil {
			return nil, err
		}
		links = append(links, ct)
	}
	return links, rows.Err()
}

// Package server exposes the curation pipeline and library over a JSON API.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/mvanwyk/curio/internal/database"
	"github.com/mvanwyk/curio/internal/extract"
	"github.com/mvanwyk/curio/internal/files"
	"github.com/mvanwyk/curio/internal/pipeline"
	"github.com/mvanwyk/curio/internal/themes"
)

const defaultPageSize = 20

// Processor runs the ingestion pipeline. Satisfied by *pipeline.Processor.
type Processor interface {
	ProcessURL(ctx context.Context, url string) (*pipeline.Result, error)
	ProcessFile(ctx context.Context, path, originalName string) (*pipeline.Result, error)
}

// Server is the HTTP server for the curation API.
type Server struct {
	db        *database.DB
	processor Processor
	themes    *themes.Manager
	uploadDir string
	maxUpload int64
	mux       *http.ServeMux
}

// New creates a new Server.
func New(db *database.DB, processor Processor, themeManager *themes.Manager, uploadDir string, maxUpload int64) *Server {
	s := &Server{
		db:        db,
		processor: processor,
		themes:    themeManager,
		uploadDir: uploadDir,
		maxUpload: maxUpload,
		mux:       http.NewServeMux(),
	}
	s.routes()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/content/url", s.handleSubmitURL)
	s.mux.HandleFunc("/api/content/upload", s.handleUpload)
	s.mux.HandleFunc("/api/content", s.handleListContent)
	s.mux.HandleFunc("/api/content/", s.handleContentItem)
	s.mux.HandleFunc("/api/search", s.handleSearch)
	s.mux.HandleFunc("/api/themes", s.handleThemes)
	s.mux.HandleFunc("/api/themes/", s.handleThemeItem)
	s.mux.HandleFunc("/api/stats", s.handleStats)
}

// contentItem is the list/search representation of a content record.
type contentItem struct {
	ID             int64              `json:"id"`
	Title          string             `json:"title"`
	Author         *string            `json:"author"`
	SourceType     string             `json:"source_type"`
	SourceURL      *string            `json:"source_url"`
	CreatedAt      *string            `json:"created_at"`
	SummaryPreview *string            `json:"summary_preview"`
	Themes         []themeAssociation `json:"themes"`
}

type themeAssociation struct {
	ThemeID    int64    `json:"theme_id"`
	ThemeName  string   `json:"theme_name"`
	Confidence *float64 `json:"confidence"`
	Color      *string  `json:"color"`
}

type themeResponse struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Description  *string `json:"description"`
	Color        *string `json:"color"`
	ContentCount int     `json:"content_count"`
	CreatedAt    *string `json:"created_at"`
	UpdatedAt    *string `json:"updated_at"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSubmitURL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if !extract.IsValidURL(req.URL) {
		writeError(w, http.StatusUnprocessableEntity, "invalid URL")
		return
	}

	result, err := s.processor.ProcessURL(r.Context(), req.URL)
	if err != nil {
		log.Printf("error processing URL: %v", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to process URL: %v", err))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":    "URL processed successfully",
		"content_id": result.ContentID,
		"status":     "completed",
		"content":    result,
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, "upload too large or malformed")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing 'file' field")
		return
	}
	defer file.Close()

	if !files.IsAllowedType(header.Filename) {
		writeError(w, http.StatusBadRequest, "Only PDF files are allowed")
		return
	}

	path, err := files.SaveUpload(file, header.Filename, s.uploadDir)
	if err != nil {
		log.Printf("error saving upload: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to save upload")
		return
	}

	result, err := s.processor.ProcessFile(r.Context(), path, header.Filename)
	if err != nil {
		// The stored file is useless without a content row pointing at it.
		files.Delete(path)
		log.Printf("error processing file: %v", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to process file: %v", err))
		return
	}
	if result.Duplicate {
		// Dedup hit: the original upload is already on disk.
		files.Delete(path)
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":    "File processed successfully",
		"content_id": result.ContentID,
		"status":     "completed",
		"content":    result,
	})
}

func (s *Server) handleListContent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}

	contents, err := s.db.ListContents(limit, offset)
	if err != nil {
		log.Printf("error listing content: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list content")
		return
	}

	items, err := s.buildItems(contents)
	if err != nil {
		log.Printf("error building content items: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list content")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleContentItem(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/content/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid content id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.getContent(w, id)
	case http.MethodDelete:
		s.deleteContent(w, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) getContent(w http.ResponseWriter, id int64) {
	content, err := s.db.GetContentByID(id)
	if err != nil {
		log.Printf("error fetching content %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to fetch content")
		return
	}
	if content == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Content %d not found", id))
		return
	}

	summary, err := s.db.GetSummaryForContent(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch content")
		return
	}
	assocs, err := s.contentThemes(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch content")
		return
	}

	resp := map[string]any{
		"id":                  content.ID,
		"title":               content.Title,
		"author":              content.Author,
		"source_type":         content.SourceType,
		"source_url":          content.SourceURL,
		"file_path":           content.FilePath,
		"publish_date":        content.PublishDate,
		"created_at":          content.CreatedAt,
		"updated_at":          content.UpdatedAt,
		"extraction_metadata": content.ExtractionMetadata,
		"themes":              assocs,
	}
	if summary != nil {
		resp["summary"] = map[string]any{
			"overview":     summary.Overview,
			"key_insights": summary.KeyInsights,
			"implications": summary.Implications,
		}
	} else {
		resp["summary"] = nil
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) deleteContent(w http.ResponseWriter, id int64) {
	content, err := s.db.GetContentByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete content")
		return
	}
	if content == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Content %d not found", id))
		return
	}

	if content.FilePath != nil {
		files.Delete(*content.FilePath)
	}

	if err := s.db.DeleteContent(id); err != nil {
		log.Printf("error deleting content %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to delete content")
		return
	}

	log.Printf("deleted content %d", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter 'q'")
		return
	}

	limit, _, ok := pagination(w, r)
	if !ok {
		return
	}

	contents, err := s.db.SearchContents(query, limit)
	if err != nil {
		log.Printf("error searching content: %v", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	items, err := s.buildItems(contents)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query": query,
		"items": items,
		"total": len(items),
	})
}

func (s *Server) handleThemes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.themes.ListThemes()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list themes")
			return
		}
		resp := make([]themeResponse, 0, len(list))
		for i := range list {
			resp = append(resp, toThemeResponse(&list[i]))
		}
		writeJSON(w, http.StatusOK, resp)

	case http.MethodPost:
		var req struct {
			Name        string  `json:"name"`
			Description *string `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
			writeError(w, http.StatusBadRequest, "theme name is required")
			return
		}

		theme, err := s.themes.CreateTheme(strings.TrimSpace(req.Name), req.Description)
		if err != nil {
			if database.IsUniqueViolation(err) {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("Theme with name '%s' already exists", req.Name))
				return
			}
			log.Printf("error creating theme: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to create theme")
			return
		}
		writeJSON(w, http.StatusCreated, toThemeResponse(theme))

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleThemeItem(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/themes/")
	idStr, rest, _ := strings.Cut(path, "/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid theme id")
		return
	}

	theme, err := s.themes.GetTheme(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch theme")
		return
	}
	if theme == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Theme %d not found", id))
		return
	}

	if rest == "content" {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		contents, err := s.db.GetContentsForTheme(id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to fetch theme content")
			return
		}
		items, err := s.buildItems(contents)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to fetch theme content")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "total": len(items)})
		return
	}
	if rest != "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, toThemeResponse(theme))

	case http.MethodPut:
		var req struct {
			Name        *string `json:"name"`
			Description *string `json:"description"`
			Color       *string `json:"color"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		updated, err := s.themes.UpdateTheme(id, req.Name, req.Description, req.Color)
		if err != nil {
			if database.IsUniqueViolation(err) {
				writeError(w, http.StatusBadRequest, "theme name already in use")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to update theme")
			return
		}
		writeJSON(w, http.StatusOK, toThemeResponse(updated))

	case http.MethodDelete:
		if err := s.themes.DeleteTheme(id); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to delete theme")
			return
		}
		log.Printf("deleted theme %d", id)
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	stats, err := s.db.GetStats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch stats")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_contents": stats.TotalContents,
		"summaries":      stats.Summaries,
		"themes":         stats.Themes,
		"theme_links":    stats.ThemeLinks,
		"by_source_type": stats.BySourceType,
	})
}

// buildItems decorates content rows with summary previews and theme names.
func (s *Server) buildItems(contents []database.Content) ([]contentItem, error) {
	items := make([]contentItem, 0, len(contents))
	for i := range contents {
		c := &contents[i]

		var preview *string
		summary, err := s.db.GetSummaryForContent(c.ID)
		if err != nil {
			return nil, err
		}
		if summary != nil {
			text := summary.Overview
			if len(text) > 200 {
				text = text[:200] + "..."
			}
			preview = &text
		}

		assocs, err := s.contentThemes(c.ID)
		if err != nil {
			return nil, err
		}

		items = append(items, contentItem{
			ID:             c.ID,
			Title:          c.Title,
			Author:         c.Author,
			SourceType:     c.SourceType,
			SourceURL:      c.SourceURL,
			CreatedAt:      c.CreatedAt,
			SummaryPreview: preview,
			Themes:         assocs,
		})
	}
	return items, nil
}

func (s *Server) contentThemes(contentID int64) ([]themeAssociation, error) {
	links, err := s.db.GetContentThemes(contentID)
	if err != nil {
		return nil, err
	}

	assocs := make([]themeAssociation, 0, len(links))
	for _, link := range links {
		theme, err := s.db.GetTheme(link.ThemeID)
		if err != nil {
			return nil, err
		}
		if theme == nil {
			continue
		}
		assocs = append(assocs, themeAssociation{
			ThemeID:    link.ThemeID,
			ThemeName:  theme.Name,
			Confidence: link.Confidence,
			Color:      theme.Color,
		})
	}
	return assocs, nil
}

func toThemeResponse(t *database.Theme) themeResponse {
	return themeResponse{
		ID:           t.ID,
		Name:         t.Name,
		Description:  t.Description,
		Color:        t.Color,
		ContentCount: t.ContentCount,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

// pagination reads limit/offset query params with bounds checking.
func pagination(w http.ResponseWriter, r *http.Request) (limit, offset int, ok bool) {
	limit = defaultPageSize
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return 0, 0, false
		}
		limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "offset must be >= 0")
			return 0, 0, false
		}
		offset = n
	}
	return limit, offset, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// Serve starts the HTTP server on the given port.
func (s *Server) Serve(port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

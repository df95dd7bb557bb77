package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvanwyk/curio/internal/config"
	"github.com/mvanwyk/curio/internal/database"
	"github.com/mvanwyk/curio/internal/extract"
	"github.com/mvanwyk/curio/internal/files"
	"github.com/mvanwyk/curio/internal/llm"
	"github.com/mvanwyk/curio/internal/pipeline"
	"github.com/mvanwyk/curio/internal/ratelimit"
	"github.com/mvanwyk/curio/internal/render"
	"github.com/mvanwyk/curio/internal/server"
	"github.com/mvanwyk/curio/internal/summarize"
	"github.com/mvanwyk/curio/internal/themes"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "curio",
	Short:   "Personal research content curator",
	Long:    "Curio ingests tweets, papers, PDFs, and articles, summarizes them with an LLM, and organizes everything into an evolving theme taxonomy.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(contentCmd)
	rootCmd.AddCommand(themesCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("curio", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/curio/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to set your LLM model and API key environment variables.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show library and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Println("Library:")
		fmt.Printf("  Content items: %d\n", stats.TotalContents)
		fmt.Printf("  Summaries: %d\n", stats.Summaries)
		fmt.Printf("  Themes: %d\n", stats.Themes)
		fmt.Printf("  Theme links: %d\n", stats.ThemeLinks)

		if len(stats.BySourceType) > 0 {
			fmt.Println("\nBy source:")
			for _, st := range []string{extract.SourceTwitter, extract.SourceArxiv, extract.SourceACM, extract.SourcePDF, extract.SourceWeb} {
				if n, ok := stats.BySourceType[st]; ok {
					fmt.Printf("  %s: %d\n", st, n)
				}
			}
		}

		provider := llm.NewAnthropicClient(cfg.LLM.Model, cfg.LLM.APIKeyEnv)
		llmState := "not configured"
		if provider.IsConfigured() {
			llmState = "configured (" + provider.Model() + ")"
		}
		fmt.Printf("\nLLM: %s\n", llmState)
		return nil
	},
}

// --- add command ---

var addCmd = &cobra.Command{
	Use:   "add [url]",
	Short: "Ingest a URL (tweet, arXiv, ACM, or web article)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := extract.NormalizeURL(strings.TrimSpace(args[0]))
		if !extract.IsValidURL(url) {
			return fmt.Errorf("invalid URL: %s", args[0])
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		processor := newProcessor(db)
		result, err := processor.ProcessURL(context.Background(), url)
		if err != nil {
			return err
		}

		printResult(result)
		return nil
	},
}

// --- upload command ---

var uploadCmd = &cobra.Command{
	Use:   "upload [file.pdf]",
	Short: "Ingest a local PDF file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := args[0]
		if !files.IsAllowedType(source) {
			return fmt.Errorf("only PDF files are supported: %s", source)
		}

		f, err := os.Open(source)
		if err != nil {
			return fmt.Errorf("opening file: %w", err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return err
		}
		if info.Size() > cfg.MaxUploadBytes() {
			return fmt.Errorf("file exceeds the %d MB upload limit", cfg.Uploads.MaxSizeMB)
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stored, err := files.SaveUpload(f, filepath.Base(source), cfg.GetUploadDir())
		if err != nil {
			return err
		}

		processor := newProcessor(db)
		result, err := processor.ProcessFile(context.Background(), stored, filepath.Base(source))
		if err != nil {
			files.Delete(stored)
			return err
		}
		if result.Duplicate {
			files.Delete(stored)
		}

		printResult(result)
		return nil
	},
}

// --- content command ---

var (
	contentLimit  int
	contentOffset int
)

var contentCmd = &cobra.Command{
	Use:   "content",
	Short: "Browse the content library",
}

var contentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored content, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		contents, err := db.ListContents(contentLimit, contentOffset)
		if err != nil {
			return err
		}

		if len(contents) == 0 {
			fmt.Println("Library is empty. Add content with: curio add <url>")
			return nil
		}

		for _, c := range contents {
			fmt.Printf("  [%d] (%s) %s\n", c.ID, c.SourceType, c.Title)
			if c.Author != nil && *c.Author != "" {
				fmt.Printf("        by %s\n", *c.Author)
			}
		}
		return nil
	},
}

var contentShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a content item with its summary and themes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid content ID: %s", args[0])
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		content, err := db.GetContentByID(id)
		if err != nil {
			return err
		}
		if content == nil {
			return fmt.Errorf("content %d not found", id)
		}

		fmt.Printf("%s\n", content.Title)
		fmt.Printf("  Source: %s\n", content.SourceType)
		if content.SourceURL != nil {
			fmt.Printf("  URL: %s\n", *content.SourceURL)
		}
		if content.Author != nil {
			fmt.Printf("  Author: %s\n", *content.Author)
		}
		if content.PublishDate != nil {
			fmt.Printf("  Published: %s\n", *content.PublishDate)
		}

		summary, err := db.GetSummaryForContent(id)
		if err != nil {
			return err
		}
		if summary != nil {
			fmt.Printf("\n%s\n", summary.Overview)
			if len(summary.KeyInsights) > 0 {
				fmt.Println("\nKey insights:")
				for _, insight := range summary.KeyInsights {
					fmt.Printf("  - %s\n", insight)
				}
			}
			if summary.Implications != nil && *summary.Implications != "" {
				fmt.Printf("\nImplications: %s\n", *summary.Implications)
			}
		}

		links, err := db.GetContentThemes(id)
		if err != nil {
			return err
		}
		if len(links) > 0 {
			fmt.Println("\nThemes:")
			for _, link := range links {
				theme, err := db.GetTheme(link.ThemeID)
				if err != nil || theme == nil {
					continue
				}
				conf := ""
				if link.Confidence != nil {
					conf = fmt.Sprintf(" (%.2f)", *link.Confidence)
				}
				fmt.Printf("  - %s%s\n", theme.Name, conf)
			}
		}
		return nil
	},
}

var contentDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a content item and its summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid content ID: %s", args[0])
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		content, err := db.GetContentByID(id)
		if err != nil {
			return err
		}
		if content == nil {
			return fmt.Errorf("content %d not found", id)
		}

		if content.FilePath != nil {
			files.Delete(*content.FilePath)
		}
		if err := db.DeleteContent(id); err != nil {
			return err
		}
		fmt.Printf("Deleted content [%d]: %s\n", id, content.Title)
		return nil
	},
}

func init() {
	contentListCmd.Flags().IntVar(&contentLimit, "limit", 20, "Maximum items to list")
	contentListCmd.Flags().IntVar(&contentOffset, "offset", 0, "Items to skip")

	contentCmd.AddCommand(contentListCmd)
	contentCmd.AddCommand(contentShowCmd)
	contentCmd.AddCommand(contentDeleteCmd)
}

// --- themes command ---

var themesCmd = &cobra.Command{
	Use:   "themes",
	Short: "Manage the theme taxonomy",
}

var themesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all themes",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		list, err := db.GetAllThemes()
		if err != nil {
			return err
		}

		if len(list) == 0 {
			fmt.Println("No themes yet. They are created automatically as content is added.")
			return nil
		}

		fmt.Println("Themes:")
		for _, th := range list {
			fmt.Printf("  [%d] %s (%d items)\n", th.ID, th.Name, th.ContentCount)
			if th.Description != nil && *th.Description != "" {
				desc := *th.Description
				if len(desc) > 60 {
					desc = desc[:60] + "..."
				}
				fmt.Printf("        %s\n", desc)
			}
		}
		return nil
	},
}

var themesAddCmd = &cobra.Command{
	Use:   "add [name] [description]",
	Short: "Create a theme by hand",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		var description *string
		if len(args) > 1 {
			description = &args[1]
		}

		manager := themes.NewManager(db, nil)
		theme, err := manager.CreateTheme(args[0], description)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return fmt.Errorf("theme %q already exists", args[0])
			}
			return err
		}
		fmt.Printf("Added theme [%d]: %s\n", theme.ID, theme.Name)
		return nil
	},
}

var themesRemoveCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Delete a theme (content stays, associations are removed)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid theme ID: %s", args[0])
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		theme, err := db.GetTheme(id)
		if err != nil {
			return err
		}
		if theme == nil {
			return fmt.Errorf("theme %d not found", id)
		}

		if err := db.DeleteTheme(id); err != nil {
			return err
		}
		fmt.Printf("Removed theme [%d]: %s\n", id, theme.Name)
		return nil
	},
}

func init() {
	themesCmd.AddCommand(themesListCmd)
	themesCmd.AddCommand(themesAddCmd)
	themesCmd.AddCommand(themesRemoveCmd)
}

// --- search command ---

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search content titles and text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		results, err := db.SearchContents(args[0], 50)
		if err != nil {
			return err
		}

		if len(results) == 0 {
			fmt.Println("No matches.")
			return nil
		}

		for _, c := range results {
			fmt.Printf("  [%d] (%s) %s\n", c.ID, c.SourceType, c.Title)
		}
		return nil
	},
}

// --- export command ---

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the library as markdown or HTML",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		contents, err := db.ListContents(1000, 0)
		if err != nil {
			return err
		}

		items := make([]render.Item, 0, len(contents))
		for i := range contents {
			c := &contents[i]

			summary, err := db.GetSummaryForContent(c.ID)
			if err != nil {
				return err
			}

			links, err := db.GetContentThemes(c.ID)
			if err != nil {
				return err
			}
			var itemThemes []database.Theme
			for _, link := range links {
				theme, err := db.GetTheme(link.ThemeID)
				if err != nil {
					return err
				}
				if theme != nil {
					itemThemes = append(itemThemes, *theme)
				}
			}

			items = append(items, render.Item{Content: c, Summary: summary, Themes: itemThemes})
		}

		markdown := render.Markdown("Curio Library", items)

		var output string
		switch exportFormat {
		case "markdown", "md":
			output = markdown
		case "html":
			output, err = render.HTML(markdown)
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown format: %s (use markdown or html)", exportFormat)
		}

		if exportOut == "" {
			fmt.Print(output)
			return nil
		}
		if err := os.WriteFile(exportOut, []byte(output), 0o644); err != nil {
			return fmt.Errorf("writing export: %w", err)
		}
		fmt.Printf("Exported %d items to %s\n", len(items), exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "markdown", "Output format: markdown or html")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Write to file instead of stdout")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		limits := ratelimit.NewRegistry()
		router := extract.NewDefaultRouter(os.Getenv(cfg.Twitter.BearerTokenEnv), limits)
		provider := llm.NewAnthropicClient(cfg.LLM.Model, cfg.LLM.APIKeyEnv)
		summarizer := summarize.NewClient(provider, limits.Get(ratelimit.APILLM), cfg.LLM.MaxTokens)
		manager := themes.NewManager(db, summarizer)
		processor := pipeline.NewProcessor(db, router, summarizer, manager)

		srv := server.New(db, processor, manager, cfg.GetUploadDir(), cfg.MaxUploadBytes())

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return srv.Serve(port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

// --- wiring helpers ---

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "curio.db")
	return database.Open(dbPath)
}

func newProcessor(db *database.DB) *pipeline.Processor {
	limits := ratelimit.NewRegistry()

	bearerToken := os.Getenv(cfg.Twitter.BearerTokenEnv)
	router := extract.NewDefaultRouter(bearerToken, limits)

	provider := llm.NewAnthropicClient(cfg.LLM.Model, cfg.LLM.APIKeyEnv)
	summarizer := summarize.NewClient(provider, limits.Get(ratelimit.APILLM), cfg.LLM.MaxTokens)
	manager := themes.NewManager(db, summarizer)

	return pipeline.NewProcessor(db, router, summarizer, manager)
}

func printResult(result *pipeline.Result) {
	if result.Duplicate {
		fmt.Printf("Already in library as [%d]: %s\n", result.ContentID, result.Title)
		return
	}

	fmt.Printf("Added [%d]: %s\n", result.ContentID, result.Title)
	if result.Summary != nil {
		overview := result.Summary.Overview
		if len(overview) > 300 {
			overview = overview[:300] + "..."
		}
		fmt.Printf("\n%s\n", overview)
	}
	if len(result.Themes) > 0 {
		fmt.Printf("\nAssigned to %d theme(s).\n", len(result.Themes))
	}
}

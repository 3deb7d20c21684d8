package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/yuanying/epubreader/internal/converter"
	"github.com/yuanying/epubreader/internal/epub"
	"github.com/yuanying/epubreader/internal/store"
)

const (
	defaultDBPath        = "epubreader.db"
	defaultJPEGQuality   = 85
	defaultMaxImageWidth = 0
	defaultLocale        = "en"
)

type cliOptions struct {
	DBPath string
	Logger *slog.Logger
}

type parseOptions struct {
	cliOptions
	InputPath string
	Save      bool
	JSON      bool
	Pipeline  converter.ParseOptions
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "epubreader",
		Short: "Parse EPUB books into readable chapters",
		Long: `epubreader turns EPUB archives into plain-text and sanitized HTML
chapters with inlined images, and keeps parsed books in a local library
together with the reading position.`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.String("db", defaultDBPath, "Library database path")
	flags.String("log-level", "info", "Log level (debug|info|warn|error)")
	flags.String("log-format", "text", "Log format (text|json)")
	flags.BoolP("verbose", "v", false, "Enable verbose output (same as --log-level debug)")

	cmd.AddCommand(
		newParseCmd(),
		newListCmd(),
		newShowCmd(),
		newDeleteCmd(),
		newClearCmd(),
	)
	return cmd
}

func newParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <file.epub>",
		Short: "Parse an EPUB file and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readParseOptions(cmd, args)
			if err != nil {
				return err
			}
			return runParse(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().Int("max-image-width", defaultMaxImageWidth, "Downscale images wider than this (0 keeps the original size)")
	cmd.Flags().Int("quality", defaultJPEGQuality, "JPEG quality for downscaled images (1-100)")
	cmd.Flags().String("locale", defaultLocale, "Placeholder language (en|zh)")
	cmd.Flags().Bool("save", false, "Store the parsed book in the library")
	cmd.Flags().Bool("json", false, "Print the whole book as JSON")
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the books in the library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readCLIOptions(cmd)
			if err != nil {
				return err
			}
			return withStore(cmd.Context(), opts, func(s *store.SQLiteStore) error {
				return runList(cmd.Context(), cmd.OutOrStdout(), s)
			})
		},
	}
}

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a stored book, or one of its chapters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readCLIOptions(cmd)
			if err != nil {
				return err
			}
			chapter, _ := cmd.Flags().GetInt("chapter")
			return withStore(cmd.Context(), opts, func(s *store.SQLiteStore) error {
				return runShow(cmd.Context(), cmd.OutOrStdout(), s, args[0], chapter)
			})
		},
	}
	cmd.Flags().Int("chapter", 0, "Print the plain text of this chapter (1-based) and remember it as the reading position")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a book from the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readCLIOptions(cmd)
			if err != nil {
				return err
			}
			return withStore(cmd.Context(), opts, func(s *store.SQLiteStore) error {
				if err := s.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				opts.Logger.Info("book deleted", "id", args[0])
				return nil
			})
		},
	}
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every book from the library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readCLIOptions(cmd)
			if err != nil {
				return err
			}
			return withStore(cmd.Context(), opts, func(s *store.SQLiteStore) error {
				if err := s.Clear(cmd.Context()); err != nil {
					return err
				}
				opts.Logger.Info("library cleared", "db", opts.DBPath)
				return nil
			})
		},
	}
}

func readCLIOptions(cmd *cobra.Command) (cliOptions, error) {
	logLevel, _ := cmd.Flags().GetString("log-level")
	logFormat, _ := cmd.Flags().GetString("log-format")
	verbose, _ := cmd.Flags().GetBool("verbose")
	dbPath, _ := cmd.Flags().GetString("db")

	logLevel = strings.ToLower(logLevel)
	if verbose {
		logLevel = "debug"
	}
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return cliOptions{}, fmt.Errorf("invalid --log-level %q (must be debug, info, warn or error)", logLevel)
	}

	logFormat = strings.ToLower(logFormat)
	if logFormat != "text" && logFormat != "json" {
		return cliOptions{}, fmt.Errorf("invalid --log-format %q (must be text or json)", logFormat)
	}

	if strings.TrimSpace(dbPath) == "" {
		return cliOptions{}, fmt.Errorf("invalid --db: path must not be empty")
	}

	return cliOptions{
		DBPath: dbPath,
		Logger: buildLogger(cmd.ErrOrStderr(), logLevel, logFormat),
	}, nil
}

func readParseOptions(cmd *cobra.Command, args []string) (parseOptions, error) {
	base, err := readCLIOptions(cmd)
	if err != nil {
		return parseOptions{}, err
	}

	maxImageWidth, _ := cmd.Flags().GetInt("max-image-width")
	quality, _ := cmd.Flags().GetInt("quality")
	locale, _ := cmd.Flags().GetString("locale")
	save, _ := cmd.Flags().GetBool("save")
	asJSON, _ := cmd.Flags().GetBool("json")

	if maxImageWidth < 0 {
		return parseOptions{}, fmt.Errorf("invalid --max-image-width %d (must be 0 or greater)", maxImageWidth)
	}
	if quality < 1 || quality > 100 {
		return parseOptions{}, fmt.Errorf("invalid --quality %d (must be between 1 and 100)", quality)
	}
	placeholders, err := epub.PlaceholdersFor(locale)
	if err != nil {
		return parseOptions{}, fmt.Errorf("invalid --locale: %w", err)
	}

	return parseOptions{
		cliOptions: base,
		InputPath:  args[0],
		Save:       save,
		JSON:       asJSON,
		Pipeline: converter.ParseOptions{
			Logger:        base.Logger,
			MaxImageWidth: maxImageWidth,
			JPEGQuality:   quality,
			Placeholders:  placeholders,
		},
	}, nil
}

func buildLogger(w io.Writer, level, format string) *slog.Logger {
	var lv slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lv = slog.LevelDebug
	case "warn":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		lv = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: lv}
	if strings.ToLower(format) == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

func withStore(ctx context.Context, opts cliOptions, fn func(*store.SQLiteStore) error) error {
	s, err := store.Open(ctx, opts.DBPath)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func runParse(ctx context.Context, w io.Writer, opts parseOptions) error {
	info, err := os.Stat(opts.InputPath)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", opts.InputPath, err)
	}

	book, err := converter.NewPipeline(opts.Pipeline).ParseFile(ctx, opts.InputPath)
	if err != nil {
		return fmt.Errorf("parse failed: %w", err)
	}

	var id string
	if opts.Save {
		id = store.KeyFor(filepath.Base(opts.InputPath), info.Size(), info.ModTime())
		err := withStore(ctx, opts.cliOptions, func(s *store.SQLiteStore) error {
			return s.Save(ctx, id, store.Snapshot{Book: book})
		})
		if err != nil {
			return err
		}
		opts.Logger.Info("book saved", "id", id, "db", opts.DBPath)
	}

	if opts.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(book)
	}
	printBook(w, id, book)
	return nil
}

func runList(ctx context.Context, w io.Writer, s store.Store) error {
	books, err := s.List(ctx)
	if err != nil {
		return err
	}
	size, err := s.Size(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tPOSITION\tLAST READ")
	for _, b := range books {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%s\n",
			b.ID, b.Title, b.Author, b.CurrentChapter+1, b.ChapterCount, b.LastRead.Local().Format(time.DateTime))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "%d books, %d bytes\n", len(books), size)
	return nil
}

func runShow(ctx context.Context, w io.Writer, s store.Store, id string, chapter int) error {
	snap, err := s.Load(ctx, id)
	if err != nil {
		return err
	}

	if chapter == 0 {
		printBook(w, id, snap.Book)
		fmt.Fprintf(w, "Reading:  chapter %d\n", snap.CurrentChapter+1)
		return nil
	}

	if chapter < 1 || chapter > len(snap.Book.Chapters) {
		return fmt.Errorf("invalid --chapter %d (book has %d chapters)", chapter, len(snap.Book.Chapters))
	}
	ch := snap.Book.Chapters[chapter-1]
	fmt.Fprintf(w, "%s\n\n%s\n", ch.Title, ch.PlainText)
	return s.SetPosition(ctx, id, chapter-1)
}

func printBook(w io.Writer, id string, book *converter.Book) {
	if id != "" {
		fmt.Fprintf(w, "ID:       %s\n", id)
	}
	fmt.Fprintf(w, "Title:    %s\n", book.Title)
	fmt.Fprintf(w, "Author:   %s\n", book.Author)
	fmt.Fprintf(w, "Language: %s\n", book.Language)
	fmt.Fprintf(w, "Chapters: %d\n", len(book.Chapters))
	for _, ch := range book.Chapters {
		fmt.Fprintf(w, "  %3d  %s\n", ch.Order+1, ch.Title)
	}
	for _, d := range book.Diagnostics {
		fmt.Fprintf(w, "Warning:  [%s] %s %s\n", d.Stage, d.Path, d.Message)
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/phrazzld/artisan-api/internal/config"
	"github.com/phrazzld/artisan-api/internal/domain"
)

// ErrInvalidPath is reported when an explicit export path cannot be written.
var ErrInvalidPath = errors.New("invalid export path")

// Options controls a single export.
type Options struct {
	Format Format
	// Filename is the name of the file inside the export directory.
	// A timestamped name is generated when it is empty.
	Filename string
	// Path overrides the export directory and Filename when set.
	Path string
	// Title is used for the HTML document title.
	Title    string
	Metadata *Metadata
}

// Result reports the outcome of an export.
type Result struct {
	Success  bool   `json:"success"`
	FilePath string `json:"filePath,omitempty"`
	Error    string `json:"error,omitempty"`
	FileSize int64  `json:"fileSize,omitempty"`
}

func failure(err error) Result {
	return Result{Success: false, Error: err.Error()}
}

// Exporter writes export files below a base directory.
type Exporter struct {
	dir             string
	includeMetadata bool
	logger          *slog.Logger
	now             func() time.Time
}

// NewExporter creates an Exporter from the export configuration.
func NewExporter(cfg config.ExportConfig, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	dir := cfg.Dir
	if strings.TrimSpace(dir) == "" {
		dir = "./exports"
	}
	return &Exporter{
		dir:             dir,
		includeMetadata: cfg.IncludeMetadata,
		logger:          logger.With("component", "exporter"),
		now:             time.Now,
	}
}

// Dir returns the base export directory.
func (e *Exporter) Dir() string {
	return e.dir
}

// DefaultPath creates the export directory if needed and returns it.
func (e *Exporter) DefaultPath() (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	return e.dir, nil
}

// ValidatePath reports whether the parent directory of path exists.
func ValidatePath(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	info, err := os.Stat(filepath.Dir(path))
	return err == nil && info.IsDir()
}

// Export writes content in opts.Format. For xlsx the content is stored as a
// single article.
func (e *Exporter) Export(ctx context.Context, content string, opts Options) Result {
	if opts.Format == FormatXLSX {
		return e.ExportArticles(ctx, []domain.GeneratedArticle{domain.NewGeneratedArticle(0, content)}, opts)
	}
	if err := ctx.Err(); err != nil {
		return failure(err)
	}
	if !opts.Format.IsValid() {
		return Result{Success: false, Error: fmt.Sprintf("Unsupported format: %s", opts.Format)}
	}

	body, err := render(content, opts.Format, opts.Title, e.metadata(opts))
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to render export", "format", opts.Format, "error", err)
		return failure(err)
	}

	return e.write(ctx, opts, func(path string) error {
		return os.WriteFile(path, body, 0o644)
	})
}

// ExportArticles writes articles as one file. xlsx produces one row per
// article; the other formats export the combined Markdown document.
func (e *Exporter) ExportArticles(ctx context.Context, articles []domain.GeneratedArticle, opts Options) Result {
	if opts.Format != FormatXLSX {
		return e.Export(ctx, CombineArticles(articles), opts)
	}
	if err := ctx.Err(); err != nil {
		return failure(err)
	}

	meta := e.metadata(opts)
	return e.write(ctx, opts, func(path string) error {
		return writeWorkbook(path, articles, meta)
	})
}

// ExportBatch writes every article to its own file named
// "{sanitized title}_{index}.{ext}". opts.Filename and opts.Path are ignored.
func (e *Exporter) ExportBatch(ctx context.Context, articles []domain.GeneratedArticle, opts Options) []Result {
	results := make([]Result, 0, len(articles))
	for i, article := range articles {
		itemOpts := opts
		itemOpts.Path = ""
		itemOpts.Filename = fmt.Sprintf("%s_%d.%s", SanitizeFilename(article.Title), i, opts.Format.Extension())
		if itemOpts.Title == "" {
			itemOpts.Title = article.Title
		}
		results = append(results, e.ExportArticles(ctx, []domain.GeneratedArticle{article}, itemOpts))
	}
	return results
}

func (e *Exporter) metadata(opts Options) *Metadata {
	if !e.includeMetadata {
		return nil
	}
	return opts.Metadata
}

// write resolves the target path, runs writeFn and stats the result.
func (e *Exporter) write(ctx context.Context, opts Options, writeFn func(path string) error) Result {
	path, err := e.targetPath(opts)
	if err != nil {
		return failure(err)
	}

	if err := writeFn(path); err != nil {
		e.logger.ErrorContext(ctx, "failed to write export file", "path", path, "error", err)
		return failure(fmt.Errorf("failed to write export file: %w", err))
	}

	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}

	e.logger.InfoContext(ctx, "exported file",
		"path", path,
		"format", opts.Format,
		"size", size)

	return Result{Success: true, FilePath: path, FileSize: size}
}

func (e *Exporter) targetPath(opts Options) (string, error) {
	if opts.Path != "" {
		if !ValidatePath(opts.Path) {
			return "", fmt.Errorf("%w: parent directory of %s does not exist", ErrInvalidPath, opts.Path)
		}
		return opts.Path, nil
	}

	dir, err := e.DefaultPath()
	if err != nil {
		return "", err
	}

	name := filepath.Base(opts.Filename)
	if opts.Filename == "" || name == "." || name == string(filepath.Separator) {
		name = fmt.Sprintf("export_%d.%s", e.now().Unix(), opts.Format.Extension())
	}
	return filepath.Join(dir, name), nil
}

var unsafeFilenameChars = regexp.MustCompile(`[\\/:*?"<>|\x00-\x1f]+`)

// SanitizeFilename makes title safe to use as a file name.
func SanitizeFilename(title string) string {
	name := unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(title), "_")
	name = strings.Trim(name, ". ")
	if name == "" {
		return "article"
	}
	if r := []rune(name); len(r) > 100 {
		name = string(r[:100])
	}
	return name
}

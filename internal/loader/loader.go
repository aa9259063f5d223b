package loader

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	qaerrors "github.com/docqa/docqa/internal/errors"
)

// extractWorkers bounds concurrent file extraction. PDF parsing is the
// only CPU-heavy format, so a small pool is enough.
const extractWorkers = 4

// Loader walks a docs directory and extracts text from supported files.
type Loader struct {
	dir        string
	extractors map[string]TextExtractor
	logger     *slog.Logger
}

// New creates a loader for the given docs directory.
func New(dir string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		dir:        dir,
		extractors: defaultExtractors(),
		logger:     logger,
	}
}

// SupportedExtensions returns the extensions the loader will pick up.
func (l *Loader) SupportedExtensions() []string {
	exts := make([]string, 0, len(l.extractors))
	for ext := range l.extractors {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Load walks the docs directory recursively and extracts every supported
// file. A missing or unreadable directory is fatal; individual file
// failures are recorded as warnings and the run continues.
func (l *Loader) Load(ctx context.Context) (*LoadResult, error) {
	info, err := os.Stat(l.dir)
	if err != nil {
		return nil, qaerrors.New(qaerrors.ErrCodeDocsDirNotFound,
			fmt.Sprintf("docs directory not found: %s", l.dir), err).
			WithSuggestion("create the directory or set docs.directory in .docqa.yaml")
	}
	if !info.IsDir() {
		return nil, qaerrors.New(qaerrors.ErrCodeDocsDirNotFound,
			fmt.Sprintf("docs path is not a directory: %s", l.dir), nil)
	}

	paths, skipped, err := l.discover()
	if err != nil {
		return nil, err
	}

	result := &LoadResult{FilesSkipped: skipped}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(extractWorkers)

	for _, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			doc, extractErr := l.loadOne(p)

			mu.Lock()
			defer mu.Unlock()
			if extractErr != nil {
				// Degrade, never abort the whole run for one file.
				l.logger.Warn("skipping unreadable file",
					slog.String("path", p),
					slog.String("error", extractErr.Error()))
				result.Warnings = append(result.Warnings, Warning{Path: p, Err: extractErr})
				return nil
			}
			result.Documents = append(result.Documents, *doc)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(result.Documents, func(i, j int) bool {
		return result.Documents[i].SourcePath < result.Documents[j].SourcePath
	})

	l.logger.Info("documents loaded",
		slog.String("dir", l.dir),
		slog.Int("loaded", len(result.Documents)),
		slog.Int("skipped", result.FilesSkipped),
		slog.Int("warnings", len(result.Warnings)))

	return result, nil
}

// discover walks the tree and partitions files into supported paths and a
// skipped count.
func (l *Loader) discover() ([]string, int, error) {
	var paths []string
	skipped := 0

	err := filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Hidden directories (including the store path when nested
			// under the docs dir) are not part of the corpus.
			if path != l.dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		ext := normalizeExt(path)
		if _, ok := l.extractors[ext]; !ok {
			l.logger.Debug("unsupported extension", slog.String("path", path))
			skipped++
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, 0, qaerrors.Wrap(qaerrors.ErrCodeDocsDirNotFound, err)
	}

	return paths, skipped, nil
}

// loadOne extracts a single file into a Document.
func (l *Loader) loadOne(path string) (*Document, error) {
	ext := normalizeExt(path)
	extractor := l.extractors[ext]

	content, err := extractor.Extract(path)
	if err != nil {
		return nil, qaerrors.New(qaerrors.ErrCodeFileUnreadable,
			fmt.Sprintf("cannot extract text from %s", path), err).
			WithDetail("path", path)
	}

	rel, err := filepath.Rel(l.dir, path)
	if err != nil {
		rel = path
	}

	return &Document{
		ID:         DocumentID(rel),
		SourcePath: rel,
		Content:    content,
		Format:     ext,
	}, nil
}

// normalizeExt returns the lowercased extension without the leading dot.
func normalizeExt(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/matthacksteiner/kinderlosfrei/internal/domain"
	"github.com/matthacksteiner/kinderlosfrei/internal/utils"
)

const tempPrefix = ".kirbysync-"

var tempSeq atomic.Uint64

// Writer persists CMS documents below the content directory. Paths passed to
// its methods are slash separated and relative to that directory.
type Writer struct {
	fs     billy.Filesystem
	root   string
	strict bool
	logger *utils.Logger
}

// WriterOptions contains options for the writer
type WriterOptions struct {
	// BaseDir is the content directory on disk
	BaseDir string
	// Filesystem overrides the on-disk filesystem rooted at BaseDir
	Filesystem billy.Filesystem
	// Strict makes write failures fatal; otherwise they are logged and skipped
	Strict bool
	Logger *utils.Logger
}

// NewWriter creates a new content writer
func NewWriter(opts WriterOptions) *Writer {
	if opts.BaseDir == "" {
		opts.BaseDir = "./content"
	}

	fsys := opts.Filesystem
	if fsys == nil {
		fsys = osfs.New(opts.BaseDir)
	}

	logger := opts.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	return &Writer{
		fs:     fsys,
		root:   opts.BaseDir,
		strict: opts.Strict,
		logger: logger.WithComponent("writer"),
	}
}

// Root returns the content directory
func (w *Writer) Root() string {
	return w.root
}

// Strict reports whether write failures are propagated
func (w *Writer) Strict() bool {
	return w.strict
}

// EnsureDir creates dir and its parents. It is idempotent.
func (w *Writer) EnsureDir(dir string) error {
	return w.fs.MkdirAll(cleanDir(dir), 0755)
}

// WriteJSON re-indents raw with two spaces and replaces the file at rel
// atomically. It reports whether the file was written. In lenient mode a
// failure is logged and returned as (false, nil), leaving the previous file
// in place.
func (w *Writer) WriteJSON(rel string, raw []byte) (bool, error) {
	err := w.writeJSON(rel, raw)
	if err == nil {
		return true, nil
	}

	werr := domain.NewWriteError(path.Join(w.root, rel), err)
	if w.strict {
		return false, werr
	}
	w.logger.Warn().Err(werr).Msg("Failed to write content file, continuing")
	return false, nil
}

func (w *Writer) writeJSON(rel string, raw []byte) error {
	clean, err := utils.CleanRelPath(rel)
	if err != nil {
		return err
	}

	data, err := FormatJSON(raw)
	if err != nil {
		return err
	}

	return w.writeAtomic(clean, data)
}

func (w *Writer) writeAtomic(name string, data []byte) error {
	dir := path.Dir(name)
	if err := w.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := w.createTemp(dir)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = w.fs.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = w.fs.Remove(tmpName)
		return err
	}
	if err := w.fs.Rename(tmpName, name); err != nil {
		_ = w.fs.Remove(tmpName)
		return err
	}
	return nil
}

// createTemp opens a new exclusive file next to its destination so the
// final rename never crosses filesystems.
func (w *Writer) createTemp(dir string) (billy.File, error) {
	for i := 0; i < 10; i++ {
		name := path.Join(dir, fmt.Sprintf("%s%d-%d", tempPrefix, os.Getpid(), tempSeq.Add(1)))
		f, err := w.fs.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		return f, err
	}
	return nil, fmt.Errorf("no free temp file name in %s", dir)
}

// FormatJSON pretty prints raw JSON with two-space indentation
func FormatJSON(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(raw), "", "  "); err != nil {
		return nil, fmt.Errorf("indent JSON: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadRaw returns the bytes stored at rel
func (w *Writer) ReadRaw(rel string) ([]byte, error) {
	clean, err := utils.CleanRelPath(rel)
	if err != nil {
		return nil, err
	}
	return util.ReadFile(w.fs, clean)
}

// ReadJSON decodes the file at rel into a T, returning defaultValue when the
// file is missing or cannot be decoded.
func ReadJSON[T any](w *Writer, rel string, defaultValue T) T {
	data, err := w.ReadRaw(rel)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			w.logger.Debug().Err(err).Str("path", rel).Msg("Cannot read content file")
		}
		return defaultValue
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		w.logger.Warn().Err(err).Str("path", rel).Msg("Invalid JSON in content file, using default")
		return defaultValue
	}
	return v
}

// Exists reports whether rel exists
func (w *Writer) Exists(rel string) bool {
	_, err := w.fs.Stat(cleanDir(rel))
	return err == nil
}

// Clean empties dir, keeping top-level entries listed in exclude, and makes
// sure dir exists afterwards.
func (w *Writer) Clean(dir string, exclude ...string) error {
	dir = cleanDir(dir)

	entries, err := w.fs.ReadDir(dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read %s: %w", dir, err)
	}

	removed := 0
	for _, entry := range entries {
		if slices.Contains(exclude, entry.Name()) {
			continue
		}
		if err := util.RemoveAll(w.fs, w.fs.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("remove %s: %w", entry.Name(), err)
		}
		removed++
	}

	if err := w.fs.MkdirAll(dir, 0755); err != nil {
		return err
	}

	w.logger.Debug().
		Str("dir", path.Join(w.root, dir)).
		Int("removed", removed).
		Strs("kept", exclude).
		Msg("Cleaned directory")
	return nil
}

// Stats returns the number and total size of JSON files under the root
func (w *Writer) Stats() (int, int64, error) {
	var count int
	var size int64

	err := util.Walk(w.fs, ".", func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !info.IsDir() && filepath.Ext(p) == ".json" && !strings.HasPrefix(info.Name(), tempPrefix) {
			count++
			size += info.Size()
		}
		return nil
	})

	return count, size, err
}

func cleanDir(dir string) string {
	dir = strings.Trim(path.Clean("/"+dir), "/")
	if dir == "" {
		return "."
	}
	return dir
}

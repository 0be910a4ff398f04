// Package storage owns the files a generation leaves on disk: per-request
// workspaces and the published outputs served for download.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrInvalidName is returned for names that are not a plain file name.
	ErrInvalidName = errors.New("invalid file name")
	// ErrBundleExists is returned when publishing over an existing bundle.
	ErrBundleExists = errors.New("bundle already published")
)

// Store manages the output directory and the work directory beside it.
// Every bundle is published into outputDir/<bundle>/.
type Store struct {
	outputDir string
	workDir   string
	log       zerolog.Logger
}

// New creates both directories if needed.
func New(outputDir, workDir string, log zerolog.Logger) (*Store, error) {
	for _, dir := range []string{outputDir, workDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return &Store{
		outputDir: outputDir,
		workDir:   workDir,
		log:       log.With().Str("component", "storage").Logger(),
	}, nil
}

// OutputDir returns the directory published bundles live in.
func (s *Store) OutputDir() string {
	return s.outputDir
}

// Ref addresses one published file: the bundle directory it was published
// into and its file name there.
type Ref struct {
	Bundle string `json:"bundle"`
	Name   string `json:"name"`
}

func (r Ref) String() string {
	return r.Bundle + "/" + r.Name
}

// Path resolves a published file. Both parts must be bare names.
func (s *Store) Path(ref Ref) (string, error) {
	if !validName(ref.Bundle) || !validName(ref.Name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, ref.String())
	}
	return filepath.Join(s.outputDir, ref.Bundle, ref.Name), nil
}

// Open opens a published file for reading.
func (s *Store) Open(ref Ref) (*os.File, os.FileInfo, error) {
	path, err := s.Path(ref)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, fmt.Errorf("%w: %q is a directory", ErrInvalidName, ref.String())
	}
	return f, info, nil
}

// RemoveBundle deletes a published bundle. A missing bundle is not an error.
func (s *Store) RemoveBundle(bundle string) error {
	if !validName(bundle) {
		return fmt.Errorf("%w: %q", ErrInvalidName, bundle)
	}
	return os.RemoveAll(filepath.Join(s.outputDir, bundle))
}

// Sweep removes published bundles and leftover workspaces older than maxAge.
// It returns the files of the removed bundles.
func (s *Store) Sweep(maxAge time.Duration) ([]Ref, error) {
	cutoff := time.Now().Add(-maxAge)

	var removed []Ref
	entries, err := os.ReadDir(s.outputDir)
	if err != nil {
		return nil, fmt.Errorf("read output dir: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() || !validName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		dir := filepath.Join(s.outputDir, e.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			s.log.Warn().Err(err).Str("bundle", e.Name()).Msg("Failed to list expired bundle")
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			s.log.Warn().Err(err).Str("bundle", e.Name()).Msg("Failed to remove expired bundle")
			continue
		}
		for _, f := range files {
			removed = append(removed, Ref{Bundle: e.Name(), Name: f.Name()})
		}
	}

	work, err := os.ReadDir(s.workDir)
	if err != nil {
		return removed, fmt.Errorf("read work dir: %w", err)
	}
	for _, e := range work {
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.workDir, e.Name())); err != nil {
			s.log.Warn().Err(err).Str("workspace", e.Name()).Msg("Failed to remove stale workspace")
		}
	}
	return removed, nil
}

// NewWorkspace creates a private directory for one bundle. The bundle name
// becomes the published directory, so it must be unique per generation.
func (s *Store) NewWorkspace(bundle string) (*Workspace, error) {
	if !validName(bundle) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, bundle)
	}
	dir, err := os.MkdirTemp(s.workDir, "bundle-*")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{dir: dir, bundle: bundle, store: s}, nil
}

// Workspace collects the files of one bundle until they are all written.
// Nothing in it is visible to downloads before Publish.
type Workspace struct {
	dir    string
	bundle string
	store  *Store
	names  []string
}

// Create opens a new file in the workspace under its final published name.
func (w *Workspace) Create(name string) (*os.File, error) {
	if !validName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	f, err := os.Create(filepath.Join(w.dir, name))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", name, err)
	}
	w.names = append(w.names, name)
	return f, nil
}

// Publish moves every workspace file into the bundle's own directory under
// the output directory. The directory must not exist yet, so one bundle never
// replaces another. If any move fails the directory is removed again.
func (w *Workspace) Publish() error {
	dest := filepath.Join(w.store.outputDir, w.bundle)
	if err := os.Mkdir(dest, 0o755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrBundleExists, w.bundle)
		}
		return fmt.Errorf("create bundle dir: %w", err)
	}
	for _, name := range w.names {
		if err := moveFile(filepath.Join(w.dir, name), filepath.Join(dest, name)); err != nil {
			_ = os.RemoveAll(dest)
			return fmt.Errorf("publish %s: %w", name, err)
		}
	}
	return nil
}

// Discard deletes the workspace and anything left in it.
func (w *Workspace) Discard() error {
	return os.RemoveAll(w.dir)
}

// moveFile renames src to dst, copying through a temporary file in dst's
// directory when the two are on different filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".publish-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Remove(src)
}

func validName(name string) bool {
	return name != "" &&
		name == filepath.Base(name) &&
		!strings.HasPrefix(name, ".") &&
		!strings.ContainsAny(name, `/\`)
}

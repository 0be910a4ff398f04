// Package bundle turns a validated question table into the downloadable
// outputs of one generation request.
package bundle

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quizgen/internal/config"
	"github.com/stemsi/exstem-quizgen/internal/document"
	"github.com/stemsi/exstem-quizgen/internal/model"
	"github.com/stemsi/exstem-quizgen/internal/quiz"
	"github.com/stemsi/exstem-quizgen/internal/sheet"
	"github.com/stemsi/exstem-quizgen/internal/storage"
)

var (
	ErrInvalidVersions = errors.New("number of versions must be at least 1")
	ErrInvalidLayout   = errors.New("layout must be 1 or 2 columns")
)

// DefaultLayouts is used when a request names no layouts.
var DefaultLayouts = []int{2, 1}

// Request describes one bundle.
type Request struct {
	// Bundle names the directory the files are published into. A random
	// one is chosen when empty.
	Bundle    string
	Questions int
	Versions  int
	// Seed makes the bundle reproducible. Version v uses Seed+v.
	Seed           *int64
	ShuffleAnswers bool
	ClassName      string
	SubjectName    string
	Layouts        []int
	AnswerKey      bool
}

// Result names the published files.
type Result struct {
	Bundle string
	FileNames
	// Entries is the number of documents in each archive.
	Entries  int
	Versions int
	Layouts  []int
	Duration time.Duration
}

// Files lists the published file names, answer key last when present.
func (r *Result) Files() []string {
	files := []string{r.Regular, r.Highlighted}
	if r.AnswerKey != "" {
		files = append(files, r.AnswerKey)
	}
	return files
}

// Refs addresses the published files inside the result's bundle.
func (r *Result) Refs() []storage.Ref {
	files := r.Files()
	refs := make([]storage.Ref, len(files))
	for i, name := range files {
		refs[i] = storage.Ref{Bundle: r.Bundle, Name: name}
	}
	return refs
}

// Assembler builds bundles into a Store.
type Assembler struct {
	store  *storage.Store
	labels config.Labels
	log    zerolog.Logger
}

func NewAssembler(store *storage.Store, labels config.Labels, log zerolog.Logger) *Assembler {
	return &Assembler{
		store:  store,
		labels: labels,
		log:    log.With().Str("component", "bundle").Logger(),
	}
}

// Assemble samples every version, renders the papers and answer key and
// publishes them. Either all files are published or none are.
func (a *Assembler) Assemble(ctx context.Context, table *model.Table, req Request) (*Result, error) {
	start := time.Now()

	layouts, err := normalizeLayouts(req.Layouts)
	if err != nil {
		return nil, err
	}
	if req.Questions < 1 {
		return nil, quiz.ErrInvalidCount
	}
	if req.Versions < 1 {
		return nil, ErrInvalidVersions
	}
	if req.Questions > table.Len() {
		return nil, &quiz.InsufficientQuestionsError{Requested: req.Questions, Available: table.Len()}
	}

	versions, err := a.selectVersions(ctx, table, req)
	if err != nil {
		return nil, err
	}

	names := NamesFor(req.Questions, req.Versions, req.ClassName)
	if !req.AnswerKey {
		names.AnswerKey = ""
	}

	bundle := req.Bundle
	if bundle == "" {
		bundle = uuid.New().String()
	}

	ws, err := a.store.NewWorkspace(bundle)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := ws.Discard(); err != nil {
			a.log.Warn().Err(err).Msg("Failed to remove workspace")
		}
	}()

	if err := a.writeArchive(ctx, ws, names.Regular, versions, layouts, req, false); err != nil {
		return nil, err
	}
	if err := a.writeArchive(ctx, ws, names.Highlighted, versions, layouts, req, true); err != nil {
		return nil, err
	}
	if names.AnswerKey != "" {
		if err := a.writeAnswerKey(ws, names.AnswerKey, versions); err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ws.Publish(); err != nil {
		return nil, err
	}

	result := &Result{
		Bundle:    bundle,
		FileNames: names,
		Entries:   len(versions) * len(layouts),
		Versions:  len(versions),
		Layouts:   layouts,
		Duration:  time.Since(start),
	}

	event := a.log.Info().
		Int("questions", req.Questions).
		Int("versions", req.Versions).
		Bool("shuffle", req.ShuffleAnswers).
		Ints("layouts", layouts).
		Str("bundle", bundle).
		Str("regular", names.Regular).
		Dur("duration", result.Duration)
	if req.Seed != nil {
		event = event.Int64("seed", *req.Seed)
	}
	event.Msg("Bundle assembled")

	return result, nil
}

// selectVersions computes every version before anything is written.
func (a *Assembler) selectVersions(ctx context.Context, table *model.Table, req Request) ([]sheet.VersionKey, error) {
	versions := make([]sheet.VersionKey, 0, req.Versions)
	for v := 1; v <= req.Versions; v++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		seeder := quiz.NewSeeder(quiz.VersionSeed(req.Seed, v))
		questions, err := quiz.Sample(table, req.Questions, seeder)
		if err != nil {
			return nil, fmt.Errorf("version %d: %w", v, err)
		}
		if req.ShuffleAnswers {
			a.warnDuplicates(v, questions)
			questions = quiz.ShuffleOptions(questions, seeder)
		}
		versions = append(versions, sheet.VersionKey{Version: v, Questions: questions})
	}
	return versions, nil
}

func (a *Assembler) warnDuplicates(version int, questions []model.Question) {
	for _, q := range questions {
		if q.HasDuplicateOptions() {
			a.log.Warn().
				Int("version", version).
				Str("sheet", q.Sheet).
				Int("row", q.Row).
				Msg("Question has duplicate option text, correct label resolves to the first match")
		}
	}
}

func (a *Assembler) writeArchive(ctx context.Context, ws *storage.Workspace, name string, versions []sheet.VersionKey, layouts []int, req Request, highlight bool) error {
	f, err := ws.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, v := range versions {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, columns := range layouts {
			doc := document.Render(v.Questions, document.Options{
				Highlight: highlight,
				Columns:   columns,
				Header:    a.header(req, v.Version),
			})
			entry := EntryName(v.Version, columns, highlight)
			w, err := zw.Create(entry)
			if err != nil {
				return fmt.Errorf("create entry %s: %w", entry, err)
			}
			if err := doc.WriteDocx(w); err != nil {
				return fmt.Errorf("write %s: %w", entry, err)
			}
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish %s: %w", name, err)
	}
	return f.Close()
}

func (a *Assembler) writeAnswerKey(ws *storage.Workspace, name string, versions []sheet.VersionKey) error {
	f, err := ws.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()

	labels := sheet.AnswerKeyLabels{
		SheetName:     a.labels.AnswerKeySheet,
		VersionHeader: a.labels.VersionHeader,
		NumberHeader:  a.labels.NumberHeader,
	}
	if err := sheet.WriteAnswerKey(f, labels, versions); err != nil {
		return err
	}
	return f.Close()
}

func (a *Assembler) header(req Request, version int) document.Header {
	return document.Header{
		Title:        a.labels.Title,
		Subject:      req.SubjectName,
		Class:        req.ClassName,
		VersionLabel: a.labels.VersionLabel,
		Version:      version,
		StudentInfo:  a.labels.StudentInfo,
	}
}

// normalizeLayouts applies the default and drops repeats.
func normalizeLayouts(layouts []int) ([]int, error) {
	if len(layouts) == 0 {
		return append([]int(nil), DefaultLayouts...), nil
	}
	out := make([]int, 0, len(layouts))
	seen := make(map[int]bool, 2)
	for _, c := range layouts {
		if c != 1 && c != 2 {
			return nil, fmt.Errorf("%w: got %d", ErrInvalidLayout, c)
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out, nil
}

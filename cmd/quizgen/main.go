// Command quizgen builds exam bundles from a question workbook without the
// HTTP server, database or Redis.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quizgen/internal/bundle"
	"github.com/stemsi/exstem-quizgen/internal/config"
	"github.com/stemsi/exstem-quizgen/internal/logger"
	"github.com/stemsi/exstem-quizgen/internal/quiz"
	"github.com/stemsi/exstem-quizgen/internal/sheet"
	"github.com/stemsi/exstem-quizgen/internal/storage"
)

var errUsage = errors.New("invalid arguments")

type options struct {
	input     string
	questions int
	versions  int
	seed      string
	shuffle   bool
	className string
	subject   string
	layouts   string
	outDir    string
	bundle    string
	labels    string
	noKey     bool
	logLevel  string
}

func main() {
	var opts options
	flag.StringVar(&opts.input, "in", "", "Question workbook (.xlsx)")
	flag.IntVar(&opts.questions, "n", 0, "Questions per version")
	flag.IntVar(&opts.versions, "versions", 1, "Number of versions")
	flag.StringVar(&opts.seed, "seed", "", "Base seed for a reproducible run")
	flag.BoolVar(&opts.shuffle, "shuffle", false, "Shuffle answer options")
	flag.StringVar(&opts.className, "class", "", "Class name, also used in file names")
	flag.StringVar(&opts.subject, "subject", "", "Subject name")
	flag.StringVar(&opts.layouts, "layouts", "2,1", "Column layouts to render (1, 2 or 1,2)")
	flag.StringVar(&opts.outDir, "out", "outputs", "Output directory")
	flag.StringVar(&opts.bundle, "bundle", "", "Subdirectory of -out for this run (random when empty)")
	flag.StringVar(&opts.labels, "labels", "", "YAML labels profile")
	flag.BoolVar(&opts.noKey, "no-answer-key", false, "Skip the answer key workbook")
	flag.StringVar(&opts.logLevel, "log-level", "info", "Log level")
	flag.Parse()

	zerolog.SetGlobalLevel(logger.ParseLevel(opts.logLevel))
	log := logger.New(os.Stderr, "pretty", "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	files, err := run(ctx, opts, log)
	if err != nil {
		log.Error().Err(err).Msg("Generation failed")
		os.Exit(exitCode(err))
	}
	for _, f := range files {
		fmt.Println(f)
	}
}

func run(ctx context.Context, opts options, log zerolog.Logger) ([]string, error) {
	if opts.input == "" {
		return nil, fmt.Errorf("%w: -in is required", errUsage)
	}

	req := bundle.Request{
		Bundle:         strings.TrimSpace(opts.bundle),
		Questions:      opts.questions,
		Versions:       opts.versions,
		ShuffleAnswers: opts.shuffle,
		ClassName:      strings.TrimSpace(opts.className),
		SubjectName:    strings.TrimSpace(opts.subject),
		AnswerKey:      !opts.noKey,
	}
	if opts.seed != "" {
		seed, err := strconv.ParseInt(opts.seed, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: seed %q is not an integer", errUsage, opts.seed)
		}
		req.Seed = &seed
	}
	layouts, err := parseLayouts(opts.layouts)
	if err != nil {
		return nil, err
	}
	req.Layouts = layouts

	labels, err := config.LoadLabels(opts.labels)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(opts.input)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	table, err := sheet.ReadTable(f)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("rows", table.Len()).Strs("categories", table.Categories()).Msg("Workbook read")

	workDir, err := os.MkdirTemp("", "quizgen-cli-*")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	store, err := storage.New(opts.outDir, workDir, log)
	if err != nil {
		return nil, err
	}

	result, err := bundle.NewAssembler(store, labels, log).Assemble(ctx, table, req)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, ref := range result.Refs() {
		paths = append(paths, filepath.Join(store.OutputDir(), ref.Bundle, ref.Name))
	}
	return paths, nil
}

func parseLayouts(raw string) ([]int, error) {
	var layouts []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", bundle.ErrInvalidLayout, part)
		}
		layouts = append(layouts, n)
	}
	return layouts, nil
}

// exitCode separates bad input (2) from everything else (1).
func exitCode(err error) int {
	var (
		schemaErr       *quiz.SchemaError
		insufficientErr *quiz.InsufficientQuestionsError
		coverageErr     *quiz.CategoryCoverageError
	)
	switch {
	case errors.Is(err, errUsage),
		errors.As(err, &schemaErr),
		errors.As(err, &insufficientErr),
		errors.As(err, &coverageErr),
		errors.Is(err, quiz.ErrInvalidCount),
		errors.Is(err, bundle.ErrInvalidVersions),
		errors.Is(err, bundle.ErrInvalidLayout),
		errors.Is(err, sheet.ErrUnreadableWorkbook),
		errors.Is(err, storage.ErrInvalidName),
		errors.Is(err, storage.ErrBundleExists):
		return 2
	default:
		return 1
	}
}

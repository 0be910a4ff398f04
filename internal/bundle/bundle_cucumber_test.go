//go:build cucumber

package bundle

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/cucumber/godog"
	"github.com/stemsi/exstem-quizgen/internal/model"
	"github.com/stemsi/exstem-quizgen/internal/quiz"
	"github.com/stemsi/exstem-quizgen/internal/storage"
)

// TestBundleFeatures runs the bundle generation scenarios.
func TestBundleFeatures(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "bundle",
		ScenarioInitializer: func(ctx *godog.ScenarioContext) { InitializeBundleScenario(ctx, t) },
		Options: &godog.Options{
			Format:    "pretty",
			Paths:     []string{filepath.Join("testdata", "features")},
			Strict:    true,
			TestingT:  t,
			Randomize: 0,
		},
	}
	if suite.Run() != 0 {
		t.Fatalf("non-zero godog status")
	}
}

// InitializeBundleScenario wires steps for the bundle feature scenarios.
func InitializeBundleScenario(ctx *godog.ScenarioContext, t *testing.T) {
	state := &bundleState{t: t}
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		state.reset()
		return ctx, nil
	})

	ctx.Step(`^a question table with (\d+) rows and no category column$`, state.givenPlainTable)
	ctx.Step(`^a question table with categories "([^"]+)"$`, state.givenCategoryTable)
	ctx.Step(`^I generate (\d+) versions of (\d+) questions with seed (-?\d+) in (\d+) columns$`, state.generate)
	ctx.Step(`^the (regular|highlighted) archive has (\d+) entries$`, state.archiveHasEntries)
	ctx.Step(`^every paper has (\d+) numbered questions$`, state.everyPaperHasQuestions)
	ctx.Step(`^every version of the answer key covers categories "([^"]+)"$`, state.answerKeyCovers)
	ctx.Step(`^generation fails with a category coverage error$`, state.failsWithCoverage)
	ctx.Step(`^no files are published$`, state.nothingPublished)
	ctx.Step(`^each highlighted paper has the same text as its regular paper$`, state.highlightParity)
}

type bundleState struct {
	t         *testing.T
	assembler *Assembler
	store     *storage.Store
	table     *model.Table
	result    *Result
	err       error
}

func (s *bundleState) reset() {
	s.assembler, s.store = newAssembler(s.t)
	s.table = nil
	s.result = nil
	s.err = nil
}

func (s *bundleState) givenPlainTable(rows int) error {
	s.table = questionTable(rows)
	return nil
}

func (s *bundleState) givenCategoryTable(list string) error {
	s.table = questionTable(0, strings.Split(list, ",")...)
	return nil
}

func (s *bundleState) generate(versions, questions int, seedValue int64, columns int) error {
	s.result, s.err = s.assembler.Assemble(context.Background(), s.table, Request{
		Questions: questions,
		Versions:  versions,
		Seed:      &seedValue,
		Layouts:   []int{columns},
		AnswerKey: true,
	})
	return nil
}

func (s *bundleState) archive(kind string) (map[string][]byte, []string, error) {
	if s.err != nil {
		return nil, nil, fmt.Errorf("generation failed: %w", s.err)
	}
	name := s.result.Regular
	if kind == "highlighted" {
		name = s.result.Highlighted
	}
	return readArchive(published(s.store, s.result, name))
}

func (s *bundleState) archiveHasEntries(kind string, want int) error {
	_, names, err := s.archive(kind)
	if err != nil {
		return err
	}
	if len(names) != want {
		return fmt.Errorf("%s archive has %d entries, want %d", kind, len(names), want)
	}
	return nil
}

func (s *bundleState) everyPaperHasQuestions(want int) error {
	for _, kind := range []string{"regular", "highlighted"} {
		entries, _, err := s.archive(kind)
		if err != nil {
			return err
		}
		for name, data := range entries {
			paragraphs, err := docxParagraphs(data)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			if got := countNumbered(paragraphs); got != want {
				return fmt.Errorf("%s has %d numbered questions, want %d", name, got, want)
			}
		}
	}
	return nil
}

func (s *bundleState) answerKeyCovers(list string) error {
	if s.err != nil {
		return fmt.Errorf("generation failed: %w", s.err)
	}
	rows, err := answerKeyRows(published(s.store, s.result, s.result.AnswerKey))
	if err != nil {
		return err
	}
	seen := map[string]map[string]bool{}
	for _, r := range rows {
		if seen[r[0]] == nil {
			seen[r[0]] = map[string]bool{}
		}
		seen[r[0]][r[len(r)-1]] = true
	}
	for version, cats := range seen {
		for _, c := range strings.Split(list, ",") {
			if !cats[c] {
				return fmt.Errorf("version %s lacks category %q", version, c)
			}
		}
	}
	return nil
}

func (s *bundleState) failsWithCoverage() error {
	var cov *quiz.CategoryCoverageError
	if !errors.As(s.err, &cov) {
		return fmt.Errorf("err = %v, want category coverage error", s.err)
	}
	return nil
}

func (s *bundleState) nothingPublished() error {
	if got := outputEntries(s.store.OutputDir()); len(got) != 0 {
		return fmt.Errorf("output dir contains %v", got)
	}
	return nil
}

func (s *bundleState) highlightParity() error {
	regular, _, err := s.archive("regular")
	if err != nil {
		return err
	}
	highlighted, _, err := s.archive("highlighted")
	if err != nil {
		return err
	}
	for name, data := range regular {
		answers := strings.TrimSuffix(name, ".docx") + "_answers.docx"
		rp, err := docxParagraphs(data)
		if err != nil {
			return err
		}
		hp, err := docxParagraphs(highlighted[answers])
		if err != nil {
			return fmt.Errorf("%s: %w", answers, err)
		}
		if !reflect.DeepEqual(rp, hp) {
			return fmt.Errorf("%s and %s differ in text", name, answers)
		}
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quizgen/internal/bundle"
	"github.com/stemsi/exstem-quizgen/internal/storage"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, rows int) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetRow("Sheet1", "A1", &[]any{"Câu hỏi", "A", "B", "C", "D", "đáp án"})
	for i := 0; i < rows; i++ {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		f.SetSheetRow("Sheet1", cell, &[]any{fmt.Sprintf("Q%d", i+1), "a", "b", "c", "d", "A"})
	}
	path := filepath.Join(t.TempDir(), "questions.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun(t *testing.T) {
	out := t.TempDir()
	files, err := run(context.Background(), options{
		input:     writeWorkbook(t, 6),
		questions: 4,
		versions:  2,
		seed:      "7",
		className: "10A",
		layouts:   "1",
		outDir:    out,
		bundle:    "run-1",
	}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		filepath.Join(out, "run-1", "regular_quiz_4q_2v_10a.zip"),
		filepath.Join(out, "run-1", "highlighted_quiz_4q_2v_10a.zip"),
		filepath.Join(out, "run-1", "answer_key_4q_2v_10a.xlsx"),
	}
	if len(files) != len(want) {
		t.Fatalf("files = %v", files)
	}
	for i, f := range files {
		if f != want[i] {
			t.Errorf("file %d = %s, want %s", i, f, want[i])
		}
		if _, err := os.Stat(f); err != nil {
			t.Error(err)
		}
	}
}

func TestRunRejectsBadArguments(t *testing.T) {
	book := writeWorkbook(t, 3)
	tests := []struct {
		name string
		opts options
		code int
	}{
		{"missing input", options{questions: 1, versions: 1}, 2},
		{"bad seed", options{input: book, questions: 1, versions: 1, seed: "x"}, 2},
		{"bad layout", options{input: book, questions: 1, versions: 1, layouts: "3"}, 2},
		{"too many questions", options{input: book, questions: 4, versions: 1}, 2},
		{"missing file", options{input: filepath.Join(t.TempDir(), "nope.xlsx"), questions: 1, versions: 1}, 1},
		{"bad bundle", options{input: book, questions: 1, versions: 1, bundle: "../up"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.outDir = t.TempDir()
			_, err := run(context.Background(), tt.opts, zerolog.Nop())
			if err == nil {
				t.Fatal("expected error")
			}
			if got := exitCode(err); got != tt.code {
				t.Errorf("exitCode(%v) = %d, want %d", err, got, tt.code)
			}
		})
	}
}

func TestRunKeepsEarlierRuns(t *testing.T) {
	out := t.TempDir()
	opts := options{input: writeWorkbook(t, 3), questions: 2, versions: 1, seed: "1", layouts: "1", outDir: out}

	first, err := run(context.Background(), opts, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	second, err := run(context.Background(), opts, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(first[0]) != filepath.Base(second[0]) || first[0] == second[0] {
		t.Errorf("runs = %s, %s, want same name in different directories", first[0], second[0])
	}
	for _, f := range append(first, second...) {
		if _, err := os.Stat(f); err != nil {
			t.Error(err)
		}
	}

	opts.bundle = "fixed"
	if _, err := run(context.Background(), opts, zerolog.Nop()); err != nil {
		t.Fatal(err)
	}
	_, err = run(context.Background(), opts, zerolog.Nop())
	if !errors.Is(err, storage.ErrBundleExists) || exitCode(err) != 2 {
		t.Errorf("reused bundle err = %v", err)
	}
}

func TestParseLayouts(t *testing.T) {
	got, err := parseLayouts("2, 1")
	if err != nil || len(got) != 2 || got[0] != 2 || got[1] != 1 {
		t.Errorf("parseLayouts = %v, %v", got, err)
	}
	if _, err := parseLayouts("two"); !errors.Is(err, bundle.ErrInvalidLayout) {
		t.Errorf("err = %v", err)
	}
}

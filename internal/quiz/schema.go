package quiz

import (
	"fmt"
	"strings"

	"github.com/stemsi/exstem-quizgen/internal/model"
	"golang.org/x/text/unicode/norm"
)

// Column identifies a logical column of the question table.
type Column int

const (
	ColumnQuestion Column = iota
	ColumnA
	ColumnB
	ColumnC
	ColumnD
	ColumnAnswer
	ColumnCategory
)

// RequiredColumns must be present in every sheet that holds questions.
var RequiredColumns = []Column{ColumnQuestion, ColumnA, ColumnB, ColumnC, ColumnD, ColumnAnswer}

// OptionColumns maps option slots to their columns.
var OptionColumns = [4]Column{ColumnA, ColumnB, ColumnC, ColumnD}

// columnHeaders lists the accepted header names, the first being canonical.
var columnHeaders = map[Column][]string{
	ColumnQuestion: {"Câu hỏi", "Question"},
	ColumnA:        {"A"},
	ColumnB:        {"B"},
	ColumnC:        {"C"},
	ColumnD:        {"D"},
	ColumnAnswer:   {"đáp án", "Answer"},
	ColumnCategory: {"Phân loại", "Category"},
}

// Name returns the canonical header of c.
func (c Column) Name() string {
	if names, ok := columnHeaders[c]; ok {
		return names[0]
	}
	return "?"
}

// normalizeHeader folds case and Unicode composition so "ĐÁP ÁN" typed on
// any keyboard layout still matches.
func normalizeHeader(h string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(h)))
}

// ResolveColumns maps a header row to column positions. Headers are matched
// case-insensitively after trimming; the first match wins. missing lists the
// canonical names of absent required columns.
func ResolveColumns(headers []string) (positions map[Column]int, missing []string) {
	positions = make(map[Column]int)
	for i, h := range headers {
		h = normalizeHeader(h)
		if h == "" {
			continue
		}
		for col, names := range columnHeaders {
			if _, taken := positions[col]; taken {
				continue
			}
			for _, name := range names {
				if normalizeHeader(name) == h {
					positions[col] = i
					break
				}
			}
		}
	}
	for _, col := range RequiredColumns {
		if _, ok := positions[col]; !ok {
			missing = append(missing, col.Name())
		}
	}
	return positions, missing
}

// Validate checks every row of t and reports all violations in one SchemaError.
func Validate(t *model.Table) error {
	serr := &SchemaError{}
	for i := range t.Questions {
		validateRow(serr, &t.Questions[i], t.HasCategory)
	}
	return serr.Err()
}

func validateRow(serr *SchemaError, q *model.Question, withCategory bool) {
	at := func() string {
		if q.Sheet != "" {
			return fmt.Sprintf("sheet %q row %d", q.Sheet, q.Row)
		}
		return fmt.Sprintf("row %d", q.Row)
	}

	if isBlank(q.Text) {
		serr.Addf("%s: column %q is empty", at(), ColumnQuestion.Name())
	}
	for i, opt := range q.Options {
		if isBlank(opt.Text) {
			serr.Addf("%s: column %q is empty", at(), OptionColumns[i].Name())
		}
	}
	switch {
	case isBlank(string(q.Answer)):
		serr.Addf("%s: column %q is empty", at(), ColumnAnswer.Name())
	case !q.Answer.Valid():
		serr.Addf("%s: invalid answer %q, valid answers are A, B, C, D", at(), string(q.Answer))
	}
	if withCategory && isBlank(q.Category) {
		serr.Addf("%s: column %q is empty", at(), ColumnCategory.Name())
	}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

package sheet

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/stemsi/exstem-quizgen/internal/model"
	"github.com/stemsi/exstem-quizgen/internal/quiz"
	"github.com/xuri/excelize/v2"
)

// ErrUnreadableWorkbook is returned when the upload is not a valid .xlsx file.
var ErrUnreadableWorkbook = errors.New("file is not a readable .xlsx workbook")

// ReadTable loads every non-empty sheet of an .xlsx workbook into one
// question table, sheet by sheet in workbook order. Row 1 of each sheet is its
// header. The returned error is a *quiz.SchemaError listing every missing
// column and invalid cell, or an I/O error from the workbook itself.
func ReadTable(r io.Reader) (*model.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
	}
	defer f.Close()

	table := &model.Table{}
	serr := &quiz.SchemaError{}

	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		if len(rows) == 0 {
			continue
		}

		cols, missing := quiz.ResolveColumns(rows[0])
		if len(missing) > 0 {
			serr.Addf("sheet %q: missing required columns: %s", name, strings.Join(missing, ", "))
			continue
		}
		if _, ok := cols[quiz.ColumnCategory]; ok {
			table.HasCategory = true
		}

		for i := 1; i < len(rows); i++ {
			if isBlankRow(rows[i]) {
				continue
			}
			q, err := readQuestion(f, name, i+1, rows[i], cols)
			if err != nil {
				return nil, err
			}
			table.Questions = append(table.Questions, q)
		}
	}

	if len(serr.Problems) == 0 && table.Len() == 0 {
		serr.Addf("workbook contains no question rows")
	}
	var cellErr *quiz.SchemaError
	if errors.As(quiz.Validate(table), &cellErr) {
		serr.Problems = append(serr.Problems, cellErr.Problems...)
	}
	if err := serr.Err(); err != nil {
		return nil, err
	}
	return table, nil
}

func readQuestion(f *excelize.File, sheet string, rowNum int, row []string, cols map[quiz.Column]int) (model.Question, error) {
	q := model.Question{Sheet: sheet, Row: rowNum}

	var err error
	q.Text, q.Segments, err = readRichCell(f, sheet, rowNum, row, cols[quiz.ColumnQuestion])
	if err != nil {
		return q, err
	}
	for slot, col := range quiz.OptionColumns {
		opt := &q.Options[slot]
		opt.Text, opt.Segments, err = readRichCell(f, sheet, rowNum, row, cols[col])
		if err != nil {
			return q, err
		}
	}

	q.Answer = model.OptionKey(strings.TrimSpace(cellAt(row, cols[quiz.ColumnAnswer])))
	if idx, ok := cols[quiz.ColumnCategory]; ok {
		q.Category = strings.TrimSpace(cellAt(row, idx))
	}
	return q, nil
}

func readRichCell(f *excelize.File, sheet string, rowNum int, row []string, col int) (string, model.RichText, error) {
	display := cellAt(row, col)
	if strings.TrimSpace(display) == "" {
		return display, nil, nil
	}
	cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
	if err != nil {
		return "", nil, fmt.Errorf("cell name: %w", err)
	}
	segs, err := ExtractRichText(f, sheet, cell, display)
	if err != nil {
		return "", nil, err
	}
	return display, segs, nil
}

func cellAt(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

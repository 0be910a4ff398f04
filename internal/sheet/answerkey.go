package sheet

import (
	"fmt"
	"io"

	"github.com/stemsi/exstem-quizgen/internal/model"
	"github.com/stemsi/exstem-quizgen/internal/quiz"
	"github.com/xuri/excelize/v2"
)

// VersionKey is the final question list of one exam version.
type VersionKey struct {
	Version   int
	Questions []model.Question
}

// AnswerKeyLabels names the answer-key sheet and its two leading columns.
type AnswerKeyLabels struct {
	SheetName     string
	VersionHeader string
	NumberHeader  string
}

// WriteAnswerKey writes one row per question per version: version, number,
// question, options A to D, correct label and category. Question columns reuse
// the upload headers.
func WriteAnswerKey(w io.Writer, labels AnswerKeyLabels, versions []VersionKey) error {
	sheetName := labels.SheetName
	if sheetName == "" {
		sheetName = "Sheet1"
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := []any{
		labels.VersionHeader,
		labels.NumberHeader,
		quiz.ColumnQuestion.Name(),
		quiz.ColumnA.Name(),
		quiz.ColumnB.Name(),
		quiz.ColumnC.Name(),
		quiz.ColumnD.Name(),
		quiz.ColumnAnswer.Name(),
		quiz.ColumnCategory.Name(),
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetRowStyle(sheetName, 1, 1, bold); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}

	row := 2
	for _, v := range versions {
		for i, q := range v.Questions {
			values := []any{
				v.Version,
				i + 1,
				q.Text,
				q.Options[0].Text,
				q.Options[1].Text,
				q.Options[2].Text,
				q.Options[3].Text,
				string(q.Answer),
				q.Category,
			}
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return fmt.Errorf("cell name: %w", err)
			}
			if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
				return fmt.Errorf("write row %d: %w", row, err)
			}
			row++
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write answer key: %w", err)
	}
	return nil
}

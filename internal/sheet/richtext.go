package sheet

import (
	"fmt"
	"strings"

	"github.com/stemsi/exstem-quizgen/internal/model"
	"github.com/xuri/excelize/v2"
)

// ExtractRichText reads the formatted runs of one cell. display is the cell's
// plain display text; it is returned as a single plain segment when the cell
// carries no runs or when the runs do not reassemble into it.
func ExtractRichText(f *excelize.File, sheet, cell, display string) (model.RichText, error) {
	runs, err := f.GetCellRichText(sheet, cell)
	if err != nil {
		return nil, fmt.Errorf("read rich text %s!%s: %w", sheet, cell, err)
	}
	return SegmentsFromRuns(runs, display), nil
}

// SegmentsFromRuns converts excelize runs into segments. Runs are classified
// by their vertical alignment alone; neighbours with the same styling merge.
func SegmentsFromRuns(runs []excelize.RichTextRun, display string) model.RichText {
	var segs model.RichText
	for _, run := range runs {
		if run.Text == "" {
			continue
		}
		seg := model.Segment{Text: run.Text}
		if run.Font != nil {
			switch strings.ToLower(run.Font.VertAlign) {
			case "subscript":
				seg.Subscript = true
			case "superscript":
				seg.Superscript = true
			}
		}
		if n := len(segs); n > 0 &&
			segs[n-1].Subscript == seg.Subscript &&
			segs[n-1].Superscript == seg.Superscript {
			segs[n-1].Text += seg.Text
			continue
		}
		segs = append(segs, seg)
	}

	if len(segs) == 0 || segs.Plain() != display {
		return model.RichText{{Text: display}}
	}
	return segs
}

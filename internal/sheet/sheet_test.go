package sheet

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stemsi/exstem-quizgen/internal/model"
	"github.com/stemsi/exstem-quizgen/internal/quiz"
	"github.com/xuri/excelize/v2"
)

var header = []any{"Câu hỏi", "A", "B", "C", "D", "đáp án"}

func workbook(t *testing.T, build func(f *excelize.File)) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	build(f)
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

func setRow(t *testing.T, f *excelize.File, sheet, cell string, values []any) {
	t.Helper()
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		t.Fatalf("set row %s: %v", cell, err)
	}
}

func TestReadTablePreservesSubscriptAndSuperscript(t *testing.T) {
	r := workbook(t, func(f *excelize.File) {
		setRow(t, f, "Sheet1", "A1", header)
		setRow(t, f, "Sheet1", "A2", []any{"Công thức của nước là gì?", "H2O", "H3O", "H2SO4", "HCl", "A"})
		setRow(t, f, "Sheet1", "A3", []any{"Kết quả của x^2 khi x=3?", "6", "x2", "9", "12", "C"})
		if err := f.SetCellRichText("Sheet1", "B2", []excelize.RichTextRun{
			{Text: "H"},
			{Text: "2", Font: &excelize.Font{VertAlign: "subscript"}},
			{Text: "O"},
		}); err != nil {
			t.Fatal(err)
		}
		if err := f.SetCellRichText("Sheet1", "C3", []excelize.RichTextRun{
			{Text: "x"},
			{Text: "2", Font: &excelize.Font{VertAlign: "superscript"}},
		}); err != nil {
			t.Fatal(err)
		}
	})

	table, err := ReadTable(r)
	if err != nil {
		t.Fatalf("ReadTable() error = %v", err)
	}
	if table.Len() != 2 || table.HasCategory {
		t.Fatalf("got %d rows, category=%v", table.Len(), table.HasCategory)
	}

	h2o := table.Questions[0].Options[0]
	if h2o.Text != "H2O" {
		t.Fatalf("option A text = %q", h2o.Text)
	}
	want := model.RichText{{Text: "H"}, {Text: "2", Subscript: true}, {Text: "O"}}
	if len(h2o.Segments) != len(want) {
		t.Fatalf("segments = %+v, want %+v", h2o.Segments, want)
	}
	for i := range want {
		if h2o.Segments[i] != want[i] {
			t.Fatalf("segment %d = %+v, want %+v", i, h2o.Segments[i], want[i])
		}
	}

	x2 := table.Questions[1].Options[1]
	if len(x2.Segments) != 2 || !x2.Segments[1].Superscript || x2.Segments[1].Subscript {
		t.Fatalf("x2 segments = %+v", x2.Segments)
	}

	for _, q := range table.Questions {
		if q.Segments.Plain() != q.Text {
			t.Fatalf("question %d: segments %q != text %q", q.Row, q.Segments.Plain(), q.Text)
		}
		for _, o := range q.Options {
			if o.Segments.Plain() != o.Text {
				t.Fatalf("row %d: segments %q != text %q", q.Row, o.Segments.Plain(), o.Text)
			}
		}
	}
	if table.Questions[1].Answer != model.OptionC {
		t.Fatalf("answer = %q", table.Questions[1].Answer)
	}
}

func TestReadTableConcatenatesSheets(t *testing.T) {
	r := workbook(t, func(f *excelize.File) {
		setRow(t, f, "Sheet1", "A1", append(header, "Phân loại"))
		setRow(t, f, "Sheet1", "A2", []any{"q1", "a", "b", "c", "d", "A", "X"})
		setRow(t, f, "Sheet1", "A3", []any{"q2", "a", "b", "c", "d", "B", "X"})
		if _, err := f.NewSheet("Empty"); err != nil {
			t.Fatal(err)
		}
		if _, err := f.NewSheet("Sheet2"); err != nil {
			t.Fatal(err)
		}
		setRow(t, f, "Sheet2", "A1", []any{"Question", "A", "B", "C", "D", "Answer", "Category"})
		setRow(t, f, "Sheet2", "A2", []any{"q3", "a", "b", "c", "d", " D ", "Y"})
		setRow(t, f, "Sheet2", "A4", []any{"q4", "a", "b", "c", "d", "C", "Y"})
	})

	table, err := ReadTable(r)
	if err != nil {
		t.Fatalf("ReadTable() error = %v", err)
	}
	var got []string
	for _, q := range table.Questions {
		got = append(got, q.Text)
	}
	if strings.Join(got, ",") != "q1,q2,q3,q4" {
		t.Fatalf("row order = %v", got)
	}
	if !table.HasCategory {
		t.Fatal("category column not detected")
	}
	if cats := table.Categories(); len(cats) != 2 || cats[0] != "X" || cats[1] != "Y" {
		t.Fatalf("categories = %v", cats)
	}
	if table.Questions[2].Answer != model.OptionD {
		t.Fatalf("answer not trimmed: %q", table.Questions[2].Answer)
	}
	if table.Questions[3].Row != 4 || table.Questions[3].Sheet != "Sheet2" {
		t.Fatalf("source position = %s/%d", table.Questions[3].Sheet, table.Questions[3].Row)
	}
}

func TestReadTableReportsEveryProblem(t *testing.T) {
	r := workbook(t, func(f *excelize.File) {
		setRow(t, f, "Sheet1", "A1", append(header, "Phân loại"))
		setRow(t, f, "Sheet1", "A2", []any{"q1", "a", "", "c", "d", "E", "X"})
		setRow(t, f, "Sheet1", "A3", []any{"q2", "a", "b", "c", "d", "A", ""})
		if _, err := f.NewSheet("Broken"); err != nil {
			t.Fatal(err)
		}
		setRow(t, f, "Broken", "A1", []any{"Câu hỏi", "A", "B", "C"})
		setRow(t, f, "Broken", "A2", []any{"q3", "a", "b", "c"})
	})

	_, err := ReadTable(r)
	var se *quiz.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("ReadTable() error = %v, want SchemaError", err)
	}
	msg := se.Error()
	for _, want := range []string{
		`sheet "Broken": missing required columns: D, đáp án`,
		`sheet "Sheet1" row 2: column "B" is empty`,
		`sheet "Sheet1" row 2: invalid answer "E"`,
		`sheet "Sheet1" row 3: column "Phân loại" is empty`,
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q does not mention %q", msg, want)
		}
	}
}

func TestReadTableRejectsHeaderOnlyWorkbook(t *testing.T) {
	r := workbook(t, func(f *excelize.File) {
		setRow(t, f, "Sheet1", "A1", header)
	})
	_, err := ReadTable(r)
	var se *quiz.SchemaError
	if !errors.As(err, &se) || !strings.Contains(se.Error(), "no question rows") {
		t.Fatalf("ReadTable() error = %v", err)
	}
}

func TestSegmentsFromRuns(t *testing.T) {
	sub := &excelize.Font{VertAlign: "subscript"}
	sup := &excelize.Font{VertAlign: "superscript"}
	tests := []struct {
		name    string
		runs    []excelize.RichTextRun
		display string
		want    model.RichText
	}{
		{
			name:    "no runs",
			display: "plain",
			want:    model.RichText{{Text: "plain"}},
		},
		{
			name:    "superscript first",
			runs:    []excelize.RichTextRun{{Text: "2", Font: sup}, {Text: "x"}},
			display: "2x",
			want:    model.RichText{{Text: "2", Superscript: true}, {Text: "x"}},
		},
		{
			name:    "adjacent plain runs merge",
			runs:    []excelize.RichTextRun{{Text: "S"}, {Text: "O", Font: &excelize.Font{Bold: true}}, {Text: "4", Font: sub}, {Text: "2-", Font: sup}},
			display: "SO42-",
			want:    model.RichText{{Text: "SO"}, {Text: "4", Subscript: true}, {Text: "2-", Superscript: true}},
		},
		{
			name:    "mismatch falls back to display",
			runs:    []excelize.RichTextRun{{Text: "H"}, {Text: "2", Font: sub}},
			display: "H2O",
			want:    model.RichText{{Text: "H2O"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SegmentsFromRuns(tt.runs, tt.display)
			if len(got) != len(tt.want) {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("segment %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
			if got.Plain() != tt.display {
				t.Fatalf("round trip %q != %q", got.Plain(), tt.display)
			}
		})
	}
}

func TestWriteAnswerKey(t *testing.T) {
	q := model.Question{
		Text:     "Công thức của nước?",
		Options:  [4]model.Option{{Text: "H2O"}, {Text: "H3O"}, {Text: "H2SO4"}, {Text: "HCl"}},
		Answer:   model.OptionA,
		Category: "Hoá",
	}
	var buf bytes.Buffer
	err := WriteAnswerKey(&buf, AnswerKeyLabels{SheetName: "Đáp án", VersionHeader: "Đề số", NumberHeader: "STT"},
		[]VersionKey{{Version: 1, Questions: []model.Question{q, q}}, {Version: 2, Questions: []model.Question{q}}})
	if err != nil {
		t.Fatalf("WriteAnswerKey() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows("Đáp án")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want header + 3", len(rows))
	}
	if strings.Join(rows[0], "|") != "Đề số|STT|Câu hỏi|A|B|C|D|đáp án|Phân loại" {
		t.Fatalf("header = %v", rows[0])
	}
	if strings.Join(rows[3], "|") != "2|1|Công thức của nước?|H2O|H3O|H2SO4|HCl|A|Hoá" {
		t.Fatalf("last row = %v", rows[3])
	}
}

func TestReadTableRejectsNonWorkbook(t *testing.T) {
	_, err := ReadTable(strings.NewReader("Câu hỏi,A,B,C,D,đáp án\n"))
	if !errors.Is(err, ErrUnreadableWorkbook) {
		t.Fatalf("err = %v, want ErrUnreadableWorkbook", err)
	}
}

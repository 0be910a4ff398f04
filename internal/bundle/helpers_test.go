package bundle

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quizgen/internal/config"
	"github.com/stemsi/exstem-quizgen/internal/model"
	"github.com/stemsi/exstem-quizgen/internal/storage"
	"github.com/xuri/excelize/v2"
)

// questionTable builds n rows. With categories, row i gets categories[i].
func questionTable(n int, categories ...string) *model.Table {
	t := &model.Table{HasCategory: len(categories) > 0}
	if t.HasCategory {
		n = len(categories)
	}
	for i := 0; i < n; i++ {
		q := model.Question{
			Sheet:  "Sheet1",
			Row:    i + 2,
			Text:   fmt.Sprintf("Question %c", 'a'+i),
			Answer: model.OptionKeys[i%4],
		}
		for slot, key := range model.OptionKeys {
			q.Options[slot] = model.Option{Text: fmt.Sprintf("%c-%s", 'a'+i, key)}
		}
		if t.HasCategory {
			q.Category = categories[i]
		}
		t.Questions = append(t.Questions, q)
	}
	return t
}

func newAssembler(tb testing.TB) (*Assembler, *storage.Store) {
	tb.Helper()
	root := tb.TempDir()
	store, err := storage.New(filepath.Join(root, "out"), filepath.Join(root, "work"), zerolog.Nop())
	if err != nil {
		tb.Fatalf("storage.New: %v", err)
	}
	return NewAssembler(store, config.DefaultLabels(), zerolog.Nop()), store
}

// published resolves a file of res inside its bundle directory.
func published(store *storage.Store, res *Result, name string) string {
	return filepath.Join(store.OutputDir(), res.Bundle, name)
}

// readArchive returns entry name to raw bytes.
func readArchive(path string) (map[string][]byte, []string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, nil, err
	}
	defer zr.Close()

	entries := make(map[string][]byte, len(zr.File))
	var names []string
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, nil, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, nil, err
		}
		entries[f.Name] = data
		names = append(names, f.Name)
	}
	return entries, names, nil
}

// docxParagraphs extracts the text of every paragraph of a docx body.
func docxParagraphs(data []byte) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	var body io.ReadCloser
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			if body, err = f.Open(); err != nil {
				return nil, err
			}
		}
	}
	if body == nil {
		return nil, fmt.Errorf("word/document.xml not found")
	}
	defer body.Close()

	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
	)
	dec := xml.NewDecoder(body)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(el)
			}
		}
	}
	return paragraphs, nil
}

var numbered = regexp.MustCompile(`^\d+\. `)

func countNumbered(paragraphs []string) int {
	n := 0
	for _, p := range paragraphs {
		if numbered.MatchString(p) {
			n++
		}
	}
	return n
}

// answerKeyRows reads the answer key back, header excluded.
func answerKeyRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[1:], nil
}

func outputEntries(dir string) []string {
	entries, _ := os.ReadDir(dir)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

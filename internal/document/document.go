// Package document turns a version's questions into a WordprocessingML exam paper.
package document

import (
	"strings"

	"github.com/stemsi/exstem-quizgen/internal/model"
)

// Lengths are in twentieths of a point (twips), the unit WordprocessingML uses.
const (
	twipsPerInch  = 1440
	twipsPerPoint = 20

	letterShort = 12240
	letterLong  = 15840
)

// Alignment of a paragraph.
type Alignment string

const (
	AlignLeft   Alignment = ""
	AlignCenter Alignment = "center"
)

// Run is a span of text with one style.
type Run struct {
	Text        string
	Bold        bool
	Subscript   bool
	Superscript bool
}

// Paragraph is an ordered list of runs.
type Paragraph struct {
	Runs        []Run
	Align       Alignment
	IndentLeft  int
	SpaceBefore int
	SpaceAfter  int
}

// Text concatenates the runs.
func (p Paragraph) Text() string {
	var b strings.Builder
	for _, r := range p.Runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

// Margins of a page, in twips.
type Margins struct {
	Top, Right, Bottom, Left int
}

// Layout is the page setup shared by every section of the document.
type Layout struct {
	Columns   int
	Landscape bool
	Width     int
	Height    int
	Margins   Margins
}

// LayoutFor returns the page setup for a 1 or 2 column paper. Any other
// value gets the 2 column layout.
func LayoutFor(columns int) Layout {
	if columns == 1 {
		return Layout{
			Columns: 1,
			Width:   letterShort,
			Height:  letterLong,
			Margins: Margins{
				Top:    twipsPerInch / 2,
				Bottom: twipsPerInch / 2,
				Left:   twipsPerInch * 3 / 4,
				Right:  twipsPerInch * 3 / 4,
			},
		}
	}
	narrow := twipsPerInch * 3 / 10
	return Layout{
		Columns:   2,
		Landscape: true,
		Width:     letterLong,
		Height:    letterShort,
		Margins:   Margins{Top: narrow, Bottom: narrow, Left: narrow, Right: narrow},
	}
}

// Block is one numbered question with its options in final slot order.
type Block struct {
	Number   int
	Question Paragraph
	Options  [4]Paragraph
	Correct  model.OptionKey
}

// Document is a rendered exam paper.
type Document struct {
	Layout    Layout
	Highlight bool
	Header    []Paragraph
	Blocks    []Block
}

// Paragraphs flattens the document in reading order. Each block is followed by
// an empty separator paragraph.
func (d *Document) Paragraphs() []Paragraph {
	out := make([]Paragraph, 0, len(d.Header)+len(d.Blocks)*6)
	out = append(out, d.Header...)
	for _, b := range d.Blocks {
		out = append(out, b.Question)
		out = append(out, b.Options[:]...)
		out = append(out, Paragraph{SpaceAfter: 1 * twipsPerPoint})
	}
	return out
}

// Text returns the plain text of the document, one line per paragraph.
func (d *Document) Text() string {
	paras := d.Paragraphs()
	lines := make([]string, len(paras))
	for i, p := range paras {
		lines[i] = p.Text()
	}
	return strings.Join(lines, "\n")
}

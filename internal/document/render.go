package document

import (
	"fmt"

	"github.com/stemsi/exstem-quizgen/internal/model"
)

// Header holds the strings printed above the questions.
type Header struct {
	Title        string
	Subject      string
	Class        string
	VersionLabel string
	Version      int
	StudentInfo  string
}

// TitleLine assembles "<title>[ <subject>][ - <class>]".
func (h Header) TitleLine() string {
	title := h.Title
	if h.Subject != "" {
		title += " " + h.Subject
	}
	if h.Class != "" {
		title += " - " + h.Class
	}
	return title
}

// Options controls one rendering.
type Options struct {
	Highlight bool
	Columns   int
	Header    Header
}

// Render lays out questions as a numbered exam paper. With Highlight set the
// label and text of each correct option are bold; otherwise all options look
// the same.
func Render(questions []model.Question, opts Options) *Document {
	doc := &Document{
		Layout:    LayoutFor(opts.Columns),
		Highlight: opts.Highlight,
		Header:    renderHeader(opts.Header),
		Blocks:    make([]Block, 0, len(questions)),
	}

	for i, q := range questions {
		block := Block{
			Number:  i + 1,
			Correct: q.Answer,
			Question: Paragraph{
				SpaceAfter: 1 * twipsPerPoint,
				Runs:       append([]Run{{Text: fmt.Sprintf("%d. ", i+1), Bold: true}}, runs(q.Segments, q.Text, true)...),
			},
		}
		for slot, key := range model.OptionKeys {
			emphasis := opts.Highlight && key == q.Answer
			opt := q.Options[slot]
			block.Options[slot] = Paragraph{
				IndentLeft: 8 * twipsPerPoint,
				Runs:       append([]Run{{Text: string(key) + ": ", Bold: emphasis}}, runs(opt.Segments, opt.Text, emphasis)...),
			}
		}
		doc.Blocks = append(doc.Blocks, block)
	}
	return doc
}

func renderHeader(h Header) []Paragraph {
	return []Paragraph{
		{Align: AlignCenter, Runs: []Run{{Text: h.TitleLine(), Bold: true}}},
		{Align: AlignCenter, Runs: []Run{{Text: fmt.Sprintf("%s %d", h.VersionLabel, h.Version), Bold: true}}},
		{Runs: []Run{{Text: h.StudentInfo}}},
		{},
	}
}

// runs styles each segment, or emits text as one plain run when there are none.
func runs(segs model.RichText, text string, bold bool) []Run {
	if len(segs) == 0 {
		return []Run{{Text: text, Bold: bold}}
	}
	out := make([]Run, len(segs))
	for i, s := range segs {
		out[i] = Run{Text: s.Text, Bold: bold, Subscript: s.Subscript, Superscript: s.Superscript}
	}
	return out
}

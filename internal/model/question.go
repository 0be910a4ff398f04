package model

import "strings"

// OptionKey labels one of the four answer slots.
type OptionKey string

const (
	OptionA OptionKey = "A"
	OptionB OptionKey = "B"
	OptionC OptionKey = "C"
	OptionD OptionKey = "D"
)

// OptionKeys lists the slots in rendering order. A slot's index in this array
// is its index in Question.Options.
var OptionKeys = [4]OptionKey{OptionA, OptionB, OptionC, OptionD}

// Index returns the slot index of k, or -1 when k is not a valid key.
func (k OptionKey) Index() int {
	for i, key := range OptionKeys {
		if key == k {
			return i
		}
	}
	return -1
}

// Valid reports whether k is one of A, B, C or D.
func (k OptionKey) Valid() bool {
	return k.Index() >= 0
}

// Segment is a styled fragment of a cell's text.
// Subscript and Superscript are never both set.
type Segment struct {
	Text        string `json:"text"`
	Subscript   bool   `json:"subscript,omitempty"`
	Superscript bool   `json:"superscript,omitempty"`
}

// RichText is the ordered list of fragments making up one cell.
type RichText []Segment

// Plain concatenates the fragment texts.
func (rt RichText) Plain() string {
	var b strings.Builder
	for _, s := range rt {
		b.WriteString(s.Text)
	}
	return b.String()
}

// IsPlain reports whether no fragment carries vertical-alignment styling.
func (rt RichText) IsPlain() bool {
	for _, s := range rt {
		if s.Subscript || s.Superscript {
			return false
		}
	}
	return true
}

// Option is one answer slot. Text and Segments always move together.
type Option struct {
	Text     string   `json:"text"`
	Segments RichText `json:"segments,omitempty"`
}

// Question is one row of the uploaded question table.
type Question struct {
	Sheet    string    `json:"sheet"`
	Row      int       `json:"row"`
	Text     string    `json:"text"`
	Segments RichText  `json:"segments,omitempty"`
	Options  [4]Option `json:"options"`
	Answer   OptionKey `json:"answer"`
	Category string    `json:"category,omitempty"`
}

// Option returns the option stored under key.
func (q *Question) Option(key OptionKey) Option {
	i := key.Index()
	if i < 0 {
		return Option{}
	}
	return q.Options[i]
}

// CorrectOption returns the option currently labelled correct.
func (q *Question) CorrectOption() Option {
	return q.Option(q.Answer)
}

// HasDuplicateOptions reports whether two slots share the same text.
func (q *Question) HasDuplicateOptions() bool {
	seen := make(map[string]struct{}, len(q.Options))
	for _, o := range q.Options {
		if _, ok := seen[o.Text]; ok {
			return true
		}
		seen[o.Text] = struct{}{}
	}
	return false
}

// Clone returns a deep copy so per-version edits never reach the source table.
func (q Question) Clone() Question {
	out := q
	out.Segments = cloneRichText(q.Segments)
	for i := range q.Options {
		out.Options[i].Segments = cloneRichText(q.Options[i].Segments)
	}
	return out
}

func cloneRichText(rt RichText) RichText {
	if rt == nil {
		return nil
	}
	out := make(RichText, len(rt))
	copy(out, rt)
	return out
}

// Table is the validated question set built from one upload.
type Table struct {
	Questions   []Question
	HasCategory bool
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Questions)
}

// Categories returns the distinct category labels in first-appearance order.
// Returns nil when the table has no category column.
func (t *Table) Categories() []string {
	if !t.HasCategory {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, q := range t.Questions {
		if _, ok := seen[q.Category]; ok {
			continue
		}
		seen[q.Category] = struct{}{}
		out = append(out, q.Category)
	}
	return out
}

package bundle

import (
	"fmt"

	"github.com/stemsi/exstem-quizgen/internal/storage"
)

// FileNames are the published names of one bundle.
type FileNames struct {
	Regular     string
	Highlighted string
	AnswerKey   string
}

// NamesFor derives the bundle file names. The class suffix is omitted when
// className is empty.
func NamesFor(questions, versions int, className string) FileNames {
	stem := fmt.Sprintf("quiz_%dq_%dv", questions, versions)
	keyStem := fmt.Sprintf("answer_key_%dq_%dv", questions, versions)
	if className != "" {
		suffix := "_" + storage.NormalizeName(className)
		stem += suffix
		keyStem += suffix
	}
	return FileNames{
		Regular:     "regular_" + stem + ".zip",
		Highlighted: "highlighted_" + stem + ".zip",
		AnswerKey:   keyStem + ".xlsx",
	}
}

// EntryName is the archive entry of one version in one layout.
func EntryName(version, columns int, highlighted bool) string {
	if highlighted {
		return fmt.Sprintf("quiz_version_%d_%dcol_answers.docx", version, columns)
	}
	return fmt.Sprintf("quiz_version_%d_%dcol.docx", version, columns)
}

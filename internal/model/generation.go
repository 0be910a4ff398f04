package model

import "time"

// GenerationStatus is the outcome of one generation request.
type GenerationStatus string

const (
	GenerationSucceeded GenerationStatus = "succeeded"
	// GenerationRejected means the upload or parameters were invalid.
	GenerationRejected GenerationStatus = "rejected"
	GenerationFailed   GenerationStatus = "failed"
)

// Generation is the history record of one request.
type Generation struct {
	ID             string           `json:"id"`
	OperatorID     int              `json:"operator_id"`
	SourceName     string           `json:"source_name"`
	ClassName      string           `json:"class_name,omitempty"`
	SubjectName    string           `json:"subject_name,omitempty"`
	Questions      int              `json:"questions"`
	Versions       int              `json:"versions"`
	Seed           *int64           `json:"seed,omitempty"`
	ShuffleAnswers bool             `json:"shuffle_answers"`
	Layouts        []int            `json:"layouts"`
	Status         GenerationStatus `json:"status"`
	ErrorCode      string           `json:"error_code,omitempty"`
	Files          []string         `json:"files"`
	DurationMS     int64            `json:"duration_ms"`
	CreatedAt      time.Time        `json:"created_at"`
}

// GenerateRequest is the multipart form of POST /generations. The file itself
// travels in the excelFile part.
type GenerateRequest struct {
	NumQuestions   int    `form:"numQuestions" json:"numQuestions" binding:"required,min=1"`
	NumVersions    int    `form:"numVersions" json:"numVersions" binding:"required,min=1"`
	ClassName      string `form:"className" json:"className" binding:"max=100"`
	SubjectName    string `form:"subjectName" json:"subjectName" binding:"max=100"`
	Seed           *int64 `form:"seed" json:"seed"`
	ShuffleAnswers bool   `form:"shuffleAnswers" json:"shuffleAnswers"`
	Layouts        string `form:"layouts" json:"layouts" binding:"max=16"`
	AnswerKey      *bool  `form:"answerKey" json:"answerKey"`
}

// Download is one published file and its signed link.
type Download struct {
	Filename  string    `json:"filename"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

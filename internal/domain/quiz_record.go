package domain

import (
	"strings"
	"time"
)

// Status drives every pipeline decision for a QuizRecord.
type Status string

const (
	StatusUploading      Status = "uploading"
	StatusProcessingOCR  Status = "processing_ocr"
	StatusGeneratingQuiz Status = "generating_quiz"
	StatusReady          Status = "ready"
	StatusError          Status = "error"
)

// IsTerminal reports whether no stage can run after s.
func (s Status) IsTerminal() bool {
	return s == StatusReady || s == StatusError
}

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusUploading, StatusProcessingOCR, StatusGeneratingQuiz, StatusReady, StatusError:
		return true
	}
	return false
}

// forward lists the single allowed forward step for each non-terminal status.
var forward = map[Status]Status{
	StatusUploading:      StatusProcessingOCR,
	StatusProcessingOCR:  StatusGeneratingQuiz,
	StatusGeneratingQuiz: StatusReady,
}

// CanTransition reports whether a record may move from one status to another.
func CanTransition(from, to Status) bool {
	if from.IsTerminal() {
		return false
	}
	if to == StatusError {
		return true
	}
	return forward[from] == to
}

// PreviousStatus returns the status a forward step into s starts from.
func PreviousStatus(s Status) (Status, bool) {
	for from, to := range forward {
		if to == s {
			return from, true
		}
	}
	return "", false
}

// InputType distinguishes the two accepted input shapes.
type InputType string

const (
	InputTypeImages InputType = "images"
	InputTypePDF    InputType = "pdf"
)

// InputRefs is either a list of image references or a single PDF reference.
type InputRefs struct {
	ImageRefs []string `json:"imageUrls,omitempty"`
	PDFRef    string   `json:"pdfUrl,omitempty"`
}

// NewInputRefs folds the legacy single-image field into ImageRefs and drops blanks.
func NewInputRefs(imageRefs []string, pdfRef, legacyImageRef string) InputRefs {
	refs := InputRefs{PDFRef: strings.TrimSpace(pdfRef)}
	for _, ref := range imageRefs {
		if ref = strings.TrimSpace(ref); ref != "" {
			refs.ImageRefs = append(refs.ImageRefs, ref)
		}
	}
	if len(refs.ImageRefs) == 0 && refs.PDFRef == "" {
		if legacy := strings.TrimSpace(legacyImageRef); legacy != "" {
			refs.ImageRefs = []string{legacy}
		}
	}
	return refs
}

// IsEmpty reports whether no input was provided.
func (r InputRefs) IsEmpty() bool {
	return r.PDFRef == "" && len(r.ImageRefs) == 0
}

// Type reports the input shape. A PDF reference wins over images.
func (r InputRefs) Type() InputType {
	if r.PDFRef != "" {
		return InputTypePDF
	}
	return InputTypeImages
}

// All returns every referenced object, PDF first.
func (r InputRefs) All() []string {
	all := make([]string, 0, len(r.ImageRefs)+1)
	if r.PDFRef != "" {
		all = append(all, r.PDFRef)
	}
	return append(all, r.ImageRefs...)
}

// Question is one multiple-choice item.
type Question struct {
	ID           int      `json:"id"`
	Content      string   `json:"content"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct"`
	Explanation  string   `json:"explanation,omitempty"`
	Type         string   `json:"type"`
}

// DefaultQuestionType is used when the model output carries no type tag.
const DefaultQuestionType = "General"

// Validate checks the invariants every emitted question must hold.
func (q *Question) Validate() error {
	if strings.TrimSpace(q.Content) == "" {
		return NewValidationError("question content is required")
	}
	if len(q.Options) == 0 {
		return NewValidationError("at least one option is required")
	}
	if len(q.Options) > MaxOptions {
		return NewValidationError("too many options")
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return NewValidationError("correct index out of range")
	}
	return nil
}

// MaxOptions is the number of options kept per question (A-D).
const MaxOptions = 4

// ParsedQuiz is the parser's view of one model completion.
type ParsedQuiz struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Genre       string     `json:"genre"`
	Topics      []string   `json:"topics"`
	Questions   []Question `json:"questions"`
}

// QuizRecord is the shared document the pipeline advances stage by stage.
type QuizRecord struct {
	ID                         string
	Status                     Status
	Version                    int64
	Inputs                     InputRefs
	OCRModel                   string
	QuestionModel              string
	DeleteFilesAfterProcessing bool
	ExtractedText              string
	PageCount                  int
	InputType                  InputType
	Title                      string
	Description                string
	Genre                      string
	Topics                     []string
	Questions                  []Question
	ErrorMessage               string
	CreatedAt                  time.Time
	UpdatedAt                  time.Time
}

// NewQuizRecord creates a record in the uploading state.
func NewQuizRecord(id string, inputs InputRefs, ocrModel, questionModel string, deleteFiles bool) *QuizRecord {
	now := time.Now()
	return &QuizRecord{
		ID:                         id,
		Status:                     StatusUploading,
		Inputs:                     inputs,
		OCRModel:                   ocrModel,
		QuestionModel:              questionModel,
		DeleteFilesAfterProcessing: deleteFiles,
		InputType:                  inputs.Type(),
		CreatedAt:                  now,
		UpdatedAt:                  now,
	}
}

// Clone returns a deep copy; stages only ever see clones of the stored record.
func (r *QuizRecord) Clone() *QuizRecord {
	c := *r
	c.Inputs.ImageRefs = append([]string(nil), r.Inputs.ImageRefs...)
	c.Topics = append([]string(nil), r.Topics...)
	if r.Questions != nil {
		c.Questions = make([]Question, len(r.Questions))
		for i, q := range r.Questions {
			q.Options = append([]string(nil), q.Options...)
			c.Questions[i] = q
		}
	}
	return &c
}

// Advance moves the record to the next status, refusing anything but the single forward step.
func (r *QuizRecord) Advance(to Status) error {
	if to == StatusError || !CanTransition(r.Status, to) {
		return NewInvalidTransitionError(r.Status, to)
	}
	r.Status = to
	return nil
}

// Fail moves a non-terminal record into the error status.
func (r *QuizRecord) Fail(message string) error {
	if !CanTransition(r.Status, StatusError) {
		return NewInvalidTransitionError(r.Status, StatusError)
	}
	r.Status = StatusError
	r.ErrorMessage = message
	return nil
}

// Validate validates a freshly created record.
func (r *QuizRecord) Validate() error {
	if r.ID == "" {
		return NewValidationError("id is required")
	}
	if !r.Status.IsValid() {
		return NewValidationError("unknown status")
	}
	if r.Inputs.IsEmpty() {
		return NewValidationError("imageUrls or pdfUrl is required")
	}
	if r.Inputs.PDFRef != "" && len(r.Inputs.ImageRefs) > 0 {
		return NewValidationError("provide either imageUrls or pdfUrl, not both")
	}
	return nil
}

// ValidationError represents a validation error
type ValidationError struct {
	message string
}

func (e *ValidationError) Error() string {
	return e.message
}

func NewValidationError(message string) error {
	return &ValidationError{message: message}
}

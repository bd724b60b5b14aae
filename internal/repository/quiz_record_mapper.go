package repository

import (
	"unicode/utf8"

	"openlet/internal/domain"
	"openlet/internal/repository/models"
	"openlet/internal/util"
)

// Byte widths of the quiz_records VARCHAR2 columns filled from model output.
const (
	maxTitleBytes        = 512
	maxDescriptionBytes  = 2000
	maxGenreBytes        = 255
	maxErrorMessageBytes = 4000
)

func toModelQuizRecord(r *domain.QuizRecord) *models.QuizRecord {
	if r == nil {
		return nil
	}
	m := &models.QuizRecord{
		ID:            r.ID,
		Status:        string(r.Status),
		Version:       r.Version,
		ImageRefs:     models.StringSlice(r.Inputs.ImageRefs),
		PDFRef:        util.StringToNullString(r.Inputs.PDFRef),
		OCRModel:      util.StringToNullString(r.OCRModel),
		QuestionModel: util.StringToNullString(r.QuestionModel),
		ExtractedText: util.StringToNullString(r.ExtractedText),
		PageCount:     r.PageCount,
		InputType:     util.StringToNullString(string(r.InputType)),
		Title:         util.StringToNullString(truncateUTF8(r.Title, maxTitleBytes)),
		Description:   util.StringToNullString(truncateUTF8(r.Description, maxDescriptionBytes)),
		Genre:         util.StringToNullString(truncateUTF8(r.Genre, maxGenreBytes)),
		Topics:        models.StringSlice(r.Topics),
		ErrorMessage:  util.StringToNullString(truncateUTF8(r.ErrorMessage, maxErrorMessageBytes)),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.DeleteFilesAfterProcessing {
		m.DeleteFiles = 1
	}
	if r.Questions != nil {
		m.Questions = make(models.QuestionList, 0, len(r.Questions))
		for _, q := range r.Questions {
			m.Questions = append(m.Questions, models.QuestionJSON{
				ID:          q.ID,
				Content:     q.Content,
				Options:     q.Options,
				Correct:     q.CorrectIndex,
				Explanation: q.Explanation,
				Type:        q.Type,
			})
		}
	}
	return m
}

func toDomainQuizRecord(m *models.QuizRecord) *domain.QuizRecord {
	if m == nil {
		return nil
	}
	r := &domain.QuizRecord{
		ID:      m.ID,
		Status:  domain.Status(m.Status),
		Version: m.Version,
		Inputs: domain.InputRefs{
			PDFRef: m.PDFRef.String,
		},
		OCRModel:                   m.OCRModel.String,
		QuestionModel:              m.QuestionModel.String,
		DeleteFilesAfterProcessing: m.DeleteFiles != 0,
		ExtractedText:              m.ExtractedText.String,
		PageCount:                  m.PageCount,
		InputType:                  domain.InputType(m.InputType.String),
		Title:                      m.Title.String,
		Description:                m.Description.String,
		Genre:                      m.Genre.String,
		ErrorMessage:               m.ErrorMessage.String,
		CreatedAt:                  m.CreatedAt,
		UpdatedAt:                  m.UpdatedAt,
	}
	if len(m.ImageRefs) > 0 {
		r.Inputs.ImageRefs = []string(m.ImageRefs)
	}
	if len(m.Topics) > 0 {
		r.Topics = []string(m.Topics)
	}
	if len(m.Questions) > 0 {
		r.Questions = make([]domain.Question, 0, len(m.Questions))
		for _, q := range m.Questions {
			r.Questions = append(r.Questions, domain.Question{
				ID:           q.ID,
				Content:      q.Content,
				Options:      q.Options,
				CorrectIndex: q.Correct,
				Explanation:  q.Explanation,
				Type:         q.Type,
			})
		}
	}
	return r
}

func truncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	s = s[:max]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

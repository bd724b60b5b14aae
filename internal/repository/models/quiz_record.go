package models

import (
	"database/sql"
	"time"
)

// QuizRecord maps a row of quiz_records.
type QuizRecord struct {
	ID            string         `db:"id"`
	Status        string         `db:"status"`
	Version       int64          `db:"version"`
	ImageRefs     StringSlice    `db:"image_refs"`
	PDFRef        sql.NullString `db:"pdf_ref"`
	OCRModel      sql.NullString `db:"ocr_model"`
	QuestionModel sql.NullString `db:"question_model"`
	// DeleteFiles is NUMBER(1); Oracle has no boolean column type.
	DeleteFiles   int            `db:"delete_files"`
	ExtractedText sql.NullString `db:"extracted_text"`
	PageCount     int            `db:"page_count"`
	InputType     sql.NullString `db:"input_type"`
	Title         sql.NullString `db:"title"`
	Description   sql.NullString `db:"description"`
	Genre         sql.NullString `db:"genre"`
	Topics        StringSlice    `db:"topics"`
	Questions     QuestionList   `db:"questions"`
	ErrorMessage  sql.NullString `db:"error_message"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func (QuizRecord) TableName() string {
	return "quiz_records"
}

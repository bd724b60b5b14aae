package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"openlet/internal/domain"
	"openlet/internal/repository/models"

	"github.com/jmoiron/sqlx"
)

const selectQuizRecordByID = `SELECT
		id "id",
		status "status",
		version "version",
		image_refs "image_refs",
		pdf_ref "pdf_ref",
		ocr_model "ocr_model",
		question_model "question_model",
		delete_files "delete_files",
		extracted_text "extracted_text",
		page_count "page_count",
		input_type "input_type",
		title "title",
		description "description",
		genre "genre",
		topics "topics",
		questions "questions",
		error_message "error_message",
		created_at "created_at",
		updated_at "updated_at"
	FROM quiz_records
	WHERE id = :1`

const insertQuizRecord = `INSERT INTO quiz_records (
		id, status, version, image_refs, pdf_ref, ocr_model, question_model,
		delete_files, extracted_text, page_count, input_type, title, description,
		genre, topics, questions, error_message, created_at, updated_at
	) VALUES (
		:1, :2, :3, :4, :5, :6, :7, :8, :9, :10, :11, :12, :13, :14, :15, :16, :17, :18, :19
	)`

// Inputs, models and created_at are immutable and never rewritten.
const updateQuizRecord = `UPDATE quiz_records SET
		status = :1,
		version = version + 1,
		extracted_text = :2,
		page_count = :3,
		input_type = :4,
		title = :5,
		description = :6,
		genre = :7,
		topics = :8,
		questions = :9,
		error_message = :10,
		updated_at = :11
	WHERE id = :12 AND status = :13 AND version = :14`

// QuizRecordDatabaseAdapter implements domain.QuizRecordRepository using sqlx.DB
type QuizRecordDatabaseAdapter struct {
	db *sqlx.DB
}

func NewQuizRecordDatabaseAdapter(db *sqlx.DB) domain.QuizRecordRepository {
	return &QuizRecordDatabaseAdapter{db: db}
}

// Create inserts record at version 1.
func (a *QuizRecordDatabaseAdapter) Create(ctx context.Context, record *domain.QuizRecord) error {
	if record == nil {
		return fmt.Errorf("cannot create nil quiz record")
	}
	record.Version = 1
	m := toModelQuizRecord(record)

	_, err := GetExecutor(ctx, a.db).ExecContext(ctx, insertQuizRecord,
		m.ID, m.Status, m.Version, m.ImageRefs, m.PDFRef, m.OCRModel, m.QuestionModel,
		m.DeleteFiles, m.ExtractedText, m.PageCount, m.InputType, m.Title, m.Description,
		m.Genre, m.Topics, m.Questions, m.ErrorMessage, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert quiz record %s: %w", record.ID, err)
	}
	return nil
}

func (a *QuizRecordDatabaseAdapter) GetByID(ctx context.Context, id string) (*domain.QuizRecord, error) {
	var m models.QuizRecord
	err := GetExecutor(ctx, a.db).GetContext(ctx, &m, selectQuizRecordByID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewRecordNotFoundError(id)
		}
		return nil, fmt.Errorf("failed to get quiz record by ID %s: %w", id, err)
	}
	return toDomainQuizRecord(&m), nil
}

// Update applies next when the stored row is still at expectedStatus and
// expectedVersion, then re-reads the row through the same executor.
func (a *QuizRecordDatabaseAdapter) Update(ctx context.Context, next *domain.QuizRecord, expectedStatus domain.Status, expectedVersion int64) (*domain.QuizRecord, error) {
	next.UpdatedAt = time.Now()
	m := toModelQuizRecord(next)
	exec := GetExecutor(ctx, a.db)

	res, err := exec.ExecContext(ctx, updateQuizRecord,
		m.Status, m.ExtractedText, m.PageCount, m.InputType, m.Title, m.Description,
		m.Genre, m.Topics, m.Questions, m.ErrorMessage, m.UpdatedAt,
		m.ID, string(expectedStatus), expectedVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update quiz record %s: %w", next.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read affected rows for quiz record %s: %w", next.ID, err)
	}
	if affected == 0 {
		// Distinguish a missing record from a lost race.
		if _, getErr := a.GetByID(ctx, next.ID); getErr != nil {
			return nil, getErr
		}
		return nil, domain.NewStaleWriteError(next.ID, expectedStatus, expectedVersion)
	}

	return a.GetByID(ctx, next.ID)
}

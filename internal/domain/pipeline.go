package domain

import (
	"context"
	"time"
)

// ImagePayload is one image sent to a vision-capable model.
type ImagePayload struct {
	MIMEType string
	Data     []byte
}

// InferenceClient talks to the remote chat-completion API.
type InferenceClient interface {
	// ExtractText sends the OCR system prompt and the images in a single request
	// and returns the first choice's content, trimmed.
	ExtractText(ctx context.Context, model string, images ...ImagePayload) (string, error)

	// Complete sends a single user prompt at temperature 0 and returns the first
	// choice's content, trimmed.
	Complete(ctx context.Context, model string, prompt string) (string, error)
}

// ObjectStore is the storage collaborator holding uploaded inputs.
type ObjectStore interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
	Delete(ctx context.Context, ref string) error
}

// PageRenderer turns a PDF into page images.
type PageRenderer interface {
	// Render returns at most maxPages PNG-encoded pages in page order.
	Render(ctx context.Context, pdf []byte, maxPages int) ([][]byte, error)
}

// QuizRecordRepository persists QuizRecords.
type QuizRecordRepository interface {
	// Create inserts a new record at version 1.
	Create(ctx context.Context, record *QuizRecord) error

	// GetByID returns NOT_FOUND when the record does not exist.
	GetByID(ctx context.Context, id string) (*QuizRecord, error)

	// Update writes every mutable field of next if the stored record is still at
	// expectedStatus and expectedVersion, and returns the stored result.
	// It returns STALE_WRITE when the precondition no longer holds.
	Update(ctx context.Context, next *QuizRecord, expectedStatus Status, expectedVersion int64) (*QuizRecord, error)
}

// TransactionManager runs fn inside a single database transaction.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ChangeEvent announces one committed write to a QuizRecord.
type ChangeEvent struct {
	RecordID string
	Before   Status
	After    Status
	// Version is the record version produced by the write.
	Version    int64
	OccurredAt time.Time
}

// ChangePublisher delivers change events at least once.
type ChangePublisher interface {
	Publish(ctx context.Context, event ChangeEvent) error
}

// Change is a pair of snapshots handed to the dispatcher.
type Change struct {
	Before *QuizRecord
	After  *QuizRecord
}

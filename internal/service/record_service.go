package service

import (
	"context"
	"time"

	"openlet/internal/config"
	"openlet/internal/domain"
	"openlet/internal/dto"
	"openlet/internal/util"

	"go.uber.org/zap"
)

// Transitioner is the single write path for pipeline status changes.
type Transitioner interface {
	// Transition stores next if the record is still at expectedStatus and
	// expectedVersion, then announces the change.
	Transition(ctx context.Context, next *domain.QuizRecord, expectedStatus domain.Status, expectedVersion int64) (*domain.QuizRecord, error)
}

// RecordService defines the operations on quiz records.
type RecordService interface {
	Transitioner
	CreateRecord(ctx context.Context, req *dto.CreateQuizRequest) (*dto.CreateQuizResponse, error)
	StartProcessing(ctx context.Context, id string) (*dto.QuizRecordResponse, error)
	GetRecord(ctx context.Context, id string) (*dto.QuizRecordResponse, error)
}

type recordService struct {
	repo      domain.QuizRecordRepository
	tm        domain.TransactionManager
	publisher domain.ChangePublisher
	catalog   domain.ModelCatalog
	cfg       config.PipelineConfig
	logger    *zap.Logger
}

// NewRecordService creates a new instance of recordService
func NewRecordService(
	repo domain.QuizRecordRepository,
	tm domain.TransactionManager,
	publisher domain.ChangePublisher,
	catalog domain.ModelCatalog,
	cfg config.PipelineConfig,
	logger *zap.Logger,
) RecordService {
	return &recordService{
		repo:      repo,
		tm:        tm,
		publisher: publisher,
		catalog:   catalog,
		cfg:       cfg,
		logger:    logger,
	}
}

// CreateRecord stores a new record in the uploading state.
func (s *recordService) CreateRecord(ctx context.Context, req *dto.CreateQuizRequest) (*dto.CreateQuizResponse, error) {
	if req == nil {
		return nil, domain.NewInvalidInputError("request body is required")
	}
	if err := s.catalog.Check(req.OCRModel); err != nil {
		return nil, err
	}
	if err := s.catalog.Check(req.QuestionModel); err != nil {
		return nil, err
	}

	deleteFiles := s.cfg.DeleteFilesAfterProcessing
	if req.DeleteFilesAfterProcessing != nil {
		deleteFiles = *req.DeleteFilesAfterProcessing
	}

	inputs := domain.NewInputRefs(req.ImageURLs, req.PDFURL, req.ImageURL)
	record := domain.NewQuizRecord(util.NewULID(), inputs, req.OCRModel, req.QuestionModel, deleteFiles)
	if err := record.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, record); err != nil {
		s.logger.Error("Failed to create quiz record", zap.Error(err))
		return nil, domain.NewInternalError("Failed to create quiz record", err)
	}

	s.logger.Info("Quiz record created",
		zap.String("record_id", record.ID),
		zap.String("input_type", string(record.InputType)),
		zap.Int("inputs", len(record.Inputs.All())),
	)
	return &dto.CreateQuizResponse{ID: record.ID, Status: string(record.Status)}, nil
}

// StartProcessing moves an uploaded record into OCR.
func (s *recordService) StartProcessing(ctx context.Context, id string) (*dto.QuizRecordResponse, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next := current.Clone()
	if err := next.Advance(domain.StatusProcessingOCR); err != nil {
		return nil, err
	}

	stored, err := s.Transition(ctx, next, current.Status, current.Version)
	if stored == nil {
		return nil, err
	}
	// A publish failure still leaves the committed record in place.
	return toQuizRecordResponse(stored), err
}

// GetRecord returns the current state of a record.
func (s *recordService) GetRecord(ctx context.Context, id string) (*dto.QuizRecordResponse, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toQuizRecordResponse(record), nil
}

// Transition implements Transitioner. When the write commits but the event
// cannot be published, the stored record is returned together with the error.
func (s *recordService) Transition(ctx context.Context, next *domain.QuizRecord, expectedStatus domain.Status, expectedVersion int64) (*domain.QuizRecord, error) {
	if !domain.CanTransition(expectedStatus, next.Status) {
		return nil, domain.NewInvalidTransitionError(expectedStatus, next.Status)
	}

	var stored *domain.QuizRecord
	err := s.tm.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		stored, err = s.repo.Update(txCtx, next, expectedStatus, expectedVersion)
		return err
	})
	if err != nil {
		return nil, err
	}

	event := domain.ChangeEvent{
		RecordID:   stored.ID,
		Before:     expectedStatus,
		After:      stored.Status,
		Version:    stored.Version,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Record updated but change event was not published",
			zap.String("record_id", stored.ID),
			zap.String("status", string(stored.Status)),
			zap.Int64("version", stored.Version),
			zap.Error(err),
		)
		return stored, domain.NewInternalError("Failed to publish change event", err)
	}

	s.logger.Debug("Record transitioned",
		zap.String("record_id", stored.ID),
		zap.String("from", string(expectedStatus)),
		zap.String("to", string(stored.Status)),
		zap.Int64("version", stored.Version),
	)
	return stored, nil
}

func toQuizRecordResponse(r *domain.QuizRecord) *dto.QuizRecordResponse {
	resp := &dto.QuizRecordResponse{
		ID:                         r.ID,
		Status:                     string(r.Status),
		Version:                    r.Version,
		ImageURLs:                  r.Inputs.ImageRefs,
		PDFURL:                     r.Inputs.PDFRef,
		InputType:                  string(r.InputType),
		OCRModel:                   r.OCRModel,
		QuestionModel:              r.QuestionModel,
		DeleteFilesAfterProcessing: r.DeleteFilesAfterProcessing,
		PageCount:                  r.PageCount,
		Title:                      r.Title,
		Description:                r.Description,
		Genre:                      r.Genre,
		Topics:                     r.Topics,
		ErrorMessage:               r.ErrorMessage,
		CreatedAt:                  r.CreatedAt,
		UpdatedAt:                  r.UpdatedAt,
	}
	for _, q := range r.Questions {
		resp.Questions = append(resp.Questions, dto.QuestionResponse{
			ID:          q.ID,
			Content:     q.Content,
			Options:     q.Options,
			Correct:     q.CorrectIndex,
			Explanation: q.Explanation,
			Type:        q.Type,
		})
	}
	return resp
}

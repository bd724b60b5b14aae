package service

import (
	"context"
	"strings"

	"openlet/internal/domain"
	"openlet/internal/parser"
	"openlet/internal/prompt"

	"go.uber.org/zap"
)

// GenerationStage turns extracted text into quiz questions.
type GenerationStage struct {
	store   domain.ObjectStore
	llm     domain.InferenceClient
	records Transitioner
	catalog domain.ModelCatalog
	logger  *zap.Logger
}

// NewGenerationStage creates a new GenerationStage
func NewGenerationStage(
	store domain.ObjectStore,
	llm domain.InferenceClient,
	records Transitioner,
	catalog domain.ModelCatalog,
	logger *zap.Logger,
) *GenerationStage {
	return &GenerationStage{
		store:   store,
		llm:     llm,
		records: records,
		catalog: catalog,
		logger:  logger,
	}
}

// Run implements StageRunner.
func (s *GenerationStage) Run(ctx context.Context, snapshot *domain.QuizRecord) error {
	model := s.catalog.QuestionModel(snapshot.QuestionModel)
	log := s.logger.With(
		zap.String("record_id", snapshot.ID),
		zap.String("stage", string(StageGeneration)),
		zap.String("model", model),
		zap.String("model_tier", s.catalog.Tier(model)),
	)
	log.Info("Question generation started", zap.Int("text_length", len(snapshot.ExtractedText)))

	quiz, err := s.generate(ctx, snapshot.ExtractedText, model)
	if err != nil {
		return failRecord(ctx, s.records, snapshot, err, log)
	}

	next := snapshot.Clone()
	next.Title = quiz.Title
	next.Description = quiz.Description
	next.Genre = quiz.Genre
	next.Topics = quiz.Topics
	next.Questions = quiz.Questions
	if err := next.Advance(domain.StatusReady); err != nil {
		return err
	}

	applied, err := s.commitAndLog(ctx, snapshot, next, log)
	if err != nil || !applied {
		return err
	}
	if snapshot.DeleteFilesAfterProcessing {
		s.cleanup(ctx, snapshot.Inputs.All(), log)
	}
	return nil
}

func (s *GenerationStage) generate(ctx context.Context, text, model string) (domain.ParsedQuiz, error) {
	if strings.TrimSpace(text) == "" {
		return domain.ParsedQuiz{}, domain.NewInvalidInputError(domain.MsgNoExtractedText)
	}

	completion, err := s.llm.Complete(ctx, model, prompt.BuildGenerationPrompt(text))
	if err != nil {
		return domain.ParsedQuiz{}, err
	}

	quiz := parser.Parse(completion)
	if len(quiz.Questions) == 0 {
		return domain.ParsedQuiz{}, domain.NewEmptyResultError(domain.MsgNoQuestions)
	}
	return quiz, nil
}

func (s *GenerationStage) commitAndLog(ctx context.Context, snapshot, next *domain.QuizRecord, log *zap.Logger) (bool, error) {
	applied, err := commit(ctx, s.records, snapshot, next, log)
	if applied {
		log.Info("Question generation finished",
			zap.String("title", next.Title),
			zap.Int("question_count", len(next.Questions)),
		)
	}
	return applied, err
}

// cleanup deletes the uploaded inputs. Failures are logged only.
func (s *GenerationStage) cleanup(ctx context.Context, refs []string, log *zap.Logger) {
	for _, ref := range refs {
		if err := s.store.Delete(ctx, ref); err != nil {
			log.Warn("Failed to delete input file", zap.String("ref", ref), zap.Error(err))
			continue
		}
		log.Debug("Deleted input file", zap.String("ref", ref))
	}
}

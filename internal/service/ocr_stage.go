package service

import (
	"context"
	"strings"

	"openlet/internal/config"
	"openlet/internal/domain"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const pageSeparator = "\n\n"

// OCRStage extracts text from a record's images or PDF.
type OCRStage struct {
	store    domain.ObjectStore
	renderer domain.PageRenderer
	llm      domain.InferenceClient
	records  Transitioner
	catalog  domain.ModelCatalog
	cfg      config.PipelineConfig
	logger   *zap.Logger
}

// NewOCRStage creates a new OCRStage
func NewOCRStage(
	store domain.ObjectStore,
	renderer domain.PageRenderer,
	llm domain.InferenceClient,
	records Transitioner,
	catalog domain.ModelCatalog,
	cfg config.PipelineConfig,
	logger *zap.Logger,
) *OCRStage {
	return &OCRStage{
		store:    store,
		renderer: renderer,
		llm:      llm,
		records:  records,
		catalog:  catalog,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run implements StageRunner.
func (s *OCRStage) Run(ctx context.Context, snapshot *domain.QuizRecord) error {
	model := s.catalog.OCRModel(snapshot.OCRModel)
	log := s.logger.With(
		zap.String("record_id", snapshot.ID),
		zap.String("stage", string(StageOCR)),
		zap.String("model", model),
		zap.String("model_tier", s.catalog.Tier(model)),
	)
	log.Info("OCR started", zap.String("input_type", string(snapshot.Inputs.Type())))

	text, pages, err := s.extract(ctx, snapshot.Inputs, model, log)
	if err == nil && strings.TrimSpace(text) == "" {
		err = domain.NewEmptyResultError(domain.MsgEmptyOCR)
	}
	if err != nil {
		return failRecord(ctx, s.records, snapshot, err, log)
	}

	next := snapshot.Clone()
	next.ExtractedText = text
	next.PageCount = pages
	next.InputType = snapshot.Inputs.Type()
	if err := next.Advance(domain.StatusGeneratingQuiz); err != nil {
		return err
	}

	if _, err := commit(ctx, s.records, snapshot, next, log); err != nil {
		return err
	}
	log.Info("OCR finished", zap.Int("page_count", pages), zap.Int("text_length", len(text)))
	return nil
}

func (s *OCRStage) extract(ctx context.Context, inputs domain.InputRefs, model string, log *zap.Logger) (string, int, error) {
	switch {
	case inputs.IsEmpty():
		return "", 0, domain.NewInvalidInputError(domain.MsgNoInput)
	case inputs.Type() == domain.InputTypePDF:
		return s.extractPDF(ctx, inputs.PDFRef, model)
	default:
		return s.extractImages(ctx, inputs.ImageRefs, model, log)
	}
}

// extractPDF sends every rendered page in a single extraction call.
func (s *OCRStage) extractPDF(ctx context.Context, ref, model string) (string, int, error) {
	data, err := s.store.Fetch(ctx, ref)
	if err != nil {
		return "", 0, err
	}
	pages, err := s.renderer.Render(ctx, data, s.cfg.MaxPDFPages)
	if err != nil {
		return "", 0, err
	}
	if len(pages) == 0 {
		return "", 0, domain.NewEmptyResultError(domain.MsgEmptyPDF)
	}

	payloads := make([]domain.ImagePayload, len(pages))
	for i, page := range pages {
		payloads[i] = domain.ImagePayload{MIMEType: domain.DefaultImageMIMEType, Data: page}
	}
	text, err := s.llm.ExtractText(ctx, model, payloads...)
	if err != nil {
		return "", 0, err
	}
	return text, len(pages), nil
}

// extractImages runs one extraction call per image and joins the results in input order.
func (s *OCRStage) extractImages(ctx context.Context, refs []string, model string, log *zap.Logger) (string, int, error) {
	texts := make([]string, len(refs))
	failures := make([]error, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	if s.cfg.OCRConcurrency > 0 {
		g.SetLimit(s.cfg.OCRConcurrency)
	}
	for i, ref := range refs {
		g.Go(func() error {
			text, err := s.extractImage(gctx, ref, model)
			if err == nil {
				texts[i] = text
				return nil
			}
			if !s.cfg.AllowPartialOCR {
				return err
			}
			log.Warn("OCR failed for image", zap.Int("index", i), zap.String("ref", ref), zap.Error(err))
			failures[i] = err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", 0, err
	}

	var parts []string
	for i, text := range texts {
		if failures[i] != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
		}
	}
	if failed := countErrors(failures); failed == len(refs) {
		return "", 0, failures[0]
	}
	return strings.Join(parts, pageSeparator), len(refs), nil
}

func (s *OCRStage) extractImage(ctx context.Context, ref, model string) (string, error) {
	data, err := s.store.Fetch(ctx, ref)
	if err != nil {
		return "", err
	}
	return s.llm.ExtractText(ctx, model, domain.ImagePayload{MIMEType: domain.MimeTypeFor(ref), Data: data})
}

func countErrors(errs []error) int {
	n := 0
	for _, err := range errs {
		if err != nil {
			n++
		}
	}
	return n
}

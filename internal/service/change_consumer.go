package service

import (
	"context"

	"openlet/internal/domain"

	"go.uber.org/zap"
)

// ChangeConsumer feeds change events from the stream into the Dispatcher.
type ChangeConsumer struct {
	repo       domain.QuizRecordRepository
	dispatcher *Dispatcher
	logger     *zap.Logger
}

// NewChangeConsumer creates a new ChangeConsumer
func NewChangeConsumer(repo domain.QuizRecordRepository, dispatcher *Dispatcher, logger *zap.Logger) *ChangeConsumer {
	return &ChangeConsumer{repo: repo, dispatcher: dispatcher, logger: logger}
}

// Handle loads the record named by event and dispatches it. Events that no
// longer describe the stored record are skipped. Only infrastructure failures
// are returned, so the event stays pending for redelivery.
func (c *ChangeConsumer) Handle(ctx context.Context, event domain.ChangeEvent) error {
	log := c.logger.With(
		zap.String("record_id", event.RecordID),
		zap.Int64("version", event.Version),
		zap.String("before", string(event.Before)),
		zap.String("after", string(event.After)),
	)

	record, err := c.repo.GetByID(ctx, event.RecordID)
	if domain.IsCode(err, domain.ErrNotFound) {
		log.Warn("Change event for a missing record")
		return nil
	}
	if err != nil {
		return err
	}
	if record.Version != event.Version || record.Status != event.After {
		log.Debug("Skipping stale change event",
			zap.Int64("current_version", record.Version),
			zap.String("current_status", string(record.Status)),
		)
		return nil
	}

	before := record.Clone()
	before.Status = event.Before

	outcome, err := c.dispatcher.Dispatch(ctx, domain.Change{Before: before, After: record})
	if err != nil {
		log.Error("Dispatch failed", zap.Error(err))
		return err
	}
	log.Debug("Change handled", zap.String("outcome", string(outcome)))
	return nil
}

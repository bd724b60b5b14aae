package service

import (
	"context"

	"openlet/internal/domain"

	"go.uber.org/zap"
)

// commit writes next over snapshot. It reports false without an error when
// another writer moved the record first; that result is dropped.
func commit(ctx context.Context, records Transitioner, snapshot, next *domain.QuizRecord, log *zap.Logger) (bool, error) {
	_, err := records.Transition(ctx, next, snapshot.Status, snapshot.Version)
	if domain.IsCode(err, domain.ErrStaleWrite) {
		log.Warn("Record changed underneath the stage, dropping result",
			zap.String("target_status", string(next.Status)),
			zap.Error(err),
		)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// failRecord records cause on the record and moves it to error. A cancelled
// parent context is returned as is so the change can be redelivered.
func failRecord(ctx context.Context, records Transitioner, snapshot *domain.QuizRecord, cause error, log *zap.Logger) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	message := domain.FailureMessage(cause)
	log.Error("Stage failed", zap.String("error_message", message), zap.Error(cause))

	next := snapshot.Clone()
	if err := next.Fail(message); err != nil {
		return err
	}
	_, err := commit(ctx, records, snapshot, next, log)
	return err
}
